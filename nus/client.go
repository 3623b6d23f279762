// Package nus is a client for Nintendo's NUS (Network Update Server)
// content delivery network: the only network surface spec.md's §6
// describes (TMD/Ticket/content GETs), extended per SPEC_FULL.md to also
// assemble the signing certificate chain and support the faster Wii U
// CDN endpoint, matching original_source/title/nus.py.
package nus

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/justinas/alice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ralim/libwii/tmd"
	"github.com/ralim/libwii/wiierror"
)

const (
	wiiEndpoint    = "http://nus.cdn.shop.wii.com/ccs/download/"
	wiiDevEndpoint = "http://ccs.cdn.shop.wii.com/ccs/download/"
	wiiUEndpoint   = "http://ccs.cdn.wup.shop.nintendo.net/ccs/download/"
	userAgent      = "wii libnup/1.0"
	certChainTID   = "0000000100000002"
	certChainVers  = 513 // System Menu 4.3U, the reference cert source.
)

// DownloadCallback is invoked as a download streams, with the number of
// bytes transferred so far and the total size (0 if unknown).
type DownloadCallback func(done, total int64)

func noopCallback(done, total int64) {}

// Client downloads titles and their components from the NUS.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	cache       *Cache
	log         zerolog.Logger
	cacheHits   int
	cacheMisses int
}

// Option configures a Client.
type Option func(*Client)

// WithWiiUEndpoint switches the client to the faster Wii U CDN mirror.
func WithWiiUEndpoint() Option {
	return func(c *Client) { c.endpoint = wiiUEndpoint }
}

// WithDevEndpoint switches the client to the development NUS, the other
// base URL named by spec.md §6's NUS collaborator contract (alongside
// the default retail endpoint).
func WithDevEndpoint() Option {
	return func(c *Client) { c.endpoint = wiiDevEndpoint }
}

// WithEndpointOverride points the client at a custom NUS-compatible
// endpoint instead of either default.
func WithEndpointOverride(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithCache attaches an on-disk cache so repeat downloads of the same
// title/content are served locally.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient builds a Client pointed at the standard Wii NUS endpoint
// unless overridden by an Option.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		endpoint:   wiiEndpoint,
		log:        log.With().Str("component", "nus").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(url string, cacheKey string, progress DownloadCallback) ([]byte, error) {
	if progress == nil {
		progress = noopCallback
	}
	if c.cache != nil && cacheKey != "" {
		if data, ok := c.cache.Get(cacheKey); ok {
			c.cacheHits++
			c.log.Debug().Str("url", url).Msg("served from cache")
			progress(int64(len(data)), int64(len(data)))
			return data, nil
		}
		c.cacheMisses++
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("nus: building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nus: requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &wiierror.DownloadFailed{URL: url, Status: resp.StatusCode}
	}

	total, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	progress(0, total)

	buf := make([]byte, 0, total)
	chunk := make([]byte, 1024)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			progress(int64(len(buf)), total)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("nus: reading response body from %s: %w", url, err)
		}
	}

	if c.cache != nil && cacheKey != "" {
		if err := c.cache.Put(cacheKey, buf); err != nil {
			c.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to write NUS cache entry, continuing anyway")
		}
	}
	return buf, nil
}

// DownloadTMD downloads a title's TMD, latest version unless version is
// non-nil.
func (c *Client) DownloadTMD(titleID string, version *uint32, progress DownloadCallback) ([]byte, error) {
	url := c.endpoint + titleID + "/tmd"
	cacheKey := titleID + "/tmd"
	if version != nil {
		url += "." + strconv.FormatUint(uint64(*version), 10)
		cacheKey += "." + strconv.FormatUint(uint64(*version), 10)
	}
	raw, err := c.get(url, cacheKey, progress)
	if err != nil {
		return nil, err
	}
	tm, err := tmd.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("nus: downloaded TMD failed to parse: %w", err)
	}
	return tm.Dump(), nil
}

// DownloadTicket downloads a title's Ticket. This only succeeds for
// titles that are free on the NUS (most are not).
func (c *Client) DownloadTicket(titleID string, progress DownloadCallback) ([]byte, error) {
	url := c.endpoint + titleID + "/cetk"
	raw, err := c.get(url, "", progress)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// DownloadCertChain assembles the signing certificate chain from the
// System Menu's TMD and cetk, since the NUS has no dedicated cert
// endpoint. The chain is always the same bytes for retail consoles.
func (c *Client) DownloadCertChain() ([]byte, error) {
	tmdRaw, err := c.get(c.endpoint+certChainTID+"/tmd."+strconv.Itoa(certChainVers), "certchain/tmd", noopCallback)
	if err != nil {
		return nil, err
	}
	cetkRaw, err := c.get(c.endpoint+certChainTID+"/cetk", "certchain/cetk", noopCallback)
	if err != nil {
		return nil, err
	}

	const certBlockLen = 768
	if len(cetkRaw) < 0x2A4+certBlockLen*2 || len(tmdRaw) < 0x328+certBlockLen {
		return nil, fmt.Errorf("nus: certificate source TMD/cetk too short to extract the chain")
	}
	chain := make([]byte, 0, certBlockLen*3)
	chain = append(chain, cetkRaw[0x2A4+certBlockLen:0x2A4+certBlockLen*2]...) // CA
	chain = append(chain, tmdRaw[0x328:0x328+certBlockLen]...)                // CP
	chain = append(chain, cetkRaw[0x2A4:0x2A4+certBlockLen]...)               // XS
	return chain, nil
}

// DownloadContent downloads a single content by its numeric content ID.
func (c *Client) DownloadContent(titleID string, contentID uint32, progress DownloadCallback) ([]byte, error) {
	url := fmt.Sprintf("%s%s/%08x", c.endpoint, titleID, contentID)
	cacheKey := fmt.Sprintf("%s/content/%08x", titleID, contentID)
	raw, err := c.get(url, cacheKey, progress)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// DownloadContents downloads every content listed in a TMD's content
// records, in record order.
func (c *Client) DownloadContents(titleID string, tm tmd.TMD, progress DownloadCallback) ([][]byte, error) {
	contents := make([][]byte, len(tm.ContentRecords))
	for i, rec := range tm.ContentRecords {
		data, err := c.DownloadContent(titleID, uint32(rec.ContentID), progress)
		if err != nil {
			return nil, fmt.Errorf("nus: downloading content %08x: %w", rec.ContentID, err)
		}
		contents[i] = data
	}
	return contents, nil
}

// CacheStats reports how many requests this client served from cache
// versus fetched over the network.
type CacheStats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// StatsHandler returns an http.Handler reporting this client's cache
// hit/miss counters, for embedding in an operator's debug endpoint. The
// logging/recovery chain is composed with alice, matching
// server/http.go's use of alice.New(...).Then(handler).
func (c *Client) StatsHandler() http.Handler {
	logging := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.log.Debug().Str("path", r.URL.Path).Msg("serving NUS stats request")
			next.ServeHTTP(w, r)
		})
	}
	recovery := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					c.log.Error().Interface("panic", rec).Msg("recovered panic serving NUS stats")
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"hits":%d,"misses":%d}`, c.cacheHits, c.cacheMisses)
	})
	return alice.New(logging, recovery).Then(final)
}
