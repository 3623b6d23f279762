package nus

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ralim/libwii/sig"
	"github.com/ralim/libwii/tmd"
)

func sampleTMDBytes(t *testing.T) []byte {
	t.Helper()
	tm := tmd.TMD{
		Sig:             sig.Header{Type: sig.TypeRsa2048, Signature: make([]byte, sig.TypeRsa2048.Len())},
		SignatureIssuer: "Root-CA00000001-CP00000004",
		TitleID:         0x0001000148414141,
		ContentRecords: []tmd.ContentRecord{
			{ContentID: 0, Index: 0, ContentType: tmd.ContentTypeNormal, Size: 4},
		},
	}
	return tm.Dump()
}

func TestDownloadTMDParsesResponse(t *testing.T) {
	want := sampleTMDBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("got User-Agent %q, want %q", r.Header.Get("User-Agent"), userAgent)
		}
		w.Write(want)
	}))
	defer srv.Close()

	c := NewClient(WithEndpointOverride(srv.URL + "/"))
	got, err := c.DownloadTMD("0001000148414141", nil, nil)
	if err != nil {
		t.Fatalf("DownloadTMD: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d bytes, want %d", len(got), len(want))
	}
}

func TestDownloadTMDPropagates404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithEndpointOverride(srv.URL + "/"))
	if _, err := c.DownloadTMD("0001000148414141", nil, nil); err == nil {
		t.Fatalf("expected an error for a 404 response")
	}
}

func TestDownloadTMDUsesCacheOnSecondCall(t *testing.T) {
	calls := 0
	want := sampleTMDBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(want)
	}))
	defer srv.Close()

	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	c := NewClient(WithEndpointOverride(srv.URL+"/"), WithCache(cache))
	if _, err := c.DownloadTMD("0001000148414141", nil, nil); err != nil {
		t.Fatalf("DownloadTMD: %v", err)
	}
	if _, err := c.DownloadTMD("0001000148414141", nil, nil); err != nil {
		t.Fatalf("DownloadTMD: %v", err)
	}
	if calls != 1 {
		t.Fatalf("got %d upstream calls, want 1 (second call should be served from cache)", calls)
	}
	if c.cacheHits != 1 {
		t.Fatalf("got %d cache hits, want 1", c.cacheHits)
	}
}

func TestDownloadContentBuildsExpectedURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("content bytes"))
	}))
	defer srv.Close()

	c := NewClient(WithEndpointOverride(srv.URL + "/"))
	if _, err := c.DownloadContent("0001000148414141", 1, nil); err != nil {
		t.Fatalf("DownloadContent: %v", err)
	}
	if gotPath != "/0001000148414141/00000001" {
		t.Fatalf("got path %q, want %q", gotPath, "/0001000148414141/00000001")
	}
}

func TestDownloadCertChainAssemblesThreeBlocks(t *testing.T) {
	const blockLen = 768
	tmdData := make([]byte, 0x328+blockLen)
	copy(tmdData[0x328:], bytes.Repeat([]byte{0xCC}, blockLen)) // CP block

	cetkData := make([]byte, 0x2A4+blockLen*2)
	copy(cetkData[0x2A4:], bytes.Repeat([]byte{0xAA}, blockLen))            // XS block
	copy(cetkData[0x2A4+blockLen:], bytes.Repeat([]byte{0xBB}, blockLen)) // CA block

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/0000000100000002/tmd.513":
			w.Write(tmdData)
		case r.URL.Path == "/0000000100000002/cetk":
			w.Write(cetkData)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(WithEndpointOverride(srv.URL + "/"))
	chain, err := c.DownloadCertChain()
	if err != nil {
		t.Fatalf("DownloadCertChain: %v", err)
	}
	if len(chain) != blockLen*3 {
		t.Fatalf("got chain length %d, want %d", len(chain), blockLen*3)
	}
	if chain[0] != 0xBB || chain[blockLen] != 0xCC || chain[blockLen*2] != 0xAA {
		t.Fatalf("chain blocks are not in CA, CP, XS order")
	}
}

func TestWithWiiUEndpointOverridesDefault(t *testing.T) {
	c := NewClient(WithWiiUEndpoint())
	if c.endpoint != wiiUEndpoint {
		t.Fatalf("got endpoint %q, want %q", c.endpoint, wiiUEndpoint)
	}
}

func TestWithDevEndpointOverridesDefault(t *testing.T) {
	c := NewClient(WithDevEndpoint())
	if c.endpoint != wiiDevEndpoint {
		t.Fatalf("got endpoint %q, want %q", c.endpoint, wiiDevEndpoint)
	}
	if c.endpoint == wiiEndpoint {
		t.Fatalf("expected the dev endpoint to differ from retail")
	}
}

func TestStatsHandlerReportsCounters(t *testing.T) {
	c := NewClient()
	c.cacheHits = 3
	c.cacheMisses = 2

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	c.StatsHandler().ServeHTTP(rec, req)

	var stats CacheStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshaling stats response: %v", err)
	}
	if stats.Hits != 3 || stats.Misses != 2 {
		t.Fatalf("got %+v, want Hits=3 Misses=2", stats)
	}
}
