package emunand

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/ralim/libwii/title"
)

// ImportResult is one bundle's outcome from a bulk import run.
type ImportResult struct {
	Path  string
	Error error
}

// Importer bulk-installs a directory of zstd-compressed WAD bundles
// (".wad.zst", as produced by a backup/export step) into an Installer's
// EmuNAND, using a small worker pool. Grounded on library/library.go's
// channel-plus-waitgroup worker idiom, adapted from file-scan workers to
// WAD-decompress-and-install workers.
type Importer struct {
	installer *Installer
	skipHash  bool
	workers   int
}

// NewImporter builds an Importer over installer using workers concurrent
// decompress/install goroutines (at least 1).
func NewImporter(installer *Installer, workers int, skipHash bool) *Importer {
	if workers < 1 {
		workers = 1
	}
	return &Importer{installer: installer, workers: workers, skipHash: skipHash}
}

// ImportDir installs every "*.wad.zst" bundle found directly inside dir,
// fanning work out across the Importer's worker pool, and returns one
// ImportResult per bundle (in completion order, not input order).
func (imp *Importer) ImportDir(dir string) ([]ImportResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("emunand: reading import dir %s: %w", dir, err)
	}

	paths := make(chan string, len(entries))
	results := make(chan ImportResult, len(entries))
	var wg sync.WaitGroup

	for i := 0; i < imp.workers; i++ {
		wg.Add(1)
		go imp.worker(paths, results, &wg)
	}

	queued := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wad.zst") {
			continue
		}
		paths <- filepath.Join(dir, e.Name())
		queued++
	}
	close(paths)

	wg.Wait()
	close(results)

	out := make([]ImportResult, 0, queued)
	for r := range results {
		out = append(out, r)
	}
	return out, nil
}

func (imp *Importer) worker(paths <-chan string, results chan<- ImportResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for path := range paths {
		results <- ImportResult{Path: path, Error: imp.importOne(path)}
	}
}

func (imp *Importer) importOne(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("opening zstd stream for %s: %w", path, err)
	}
	defer dec.Close()
	wadData, err := io.ReadAll(dec)
	if err != nil {
		return fmt.Errorf("decompressing %s: %w", path, err)
	}

	t, err := title.LoadWAD(wadData)
	if err != nil {
		return fmt.Errorf("parsing WAD from %s: %w", path, err)
	}
	if err := imp.installer.InstallTitle(&t, imp.skipHash); err != nil {
		return fmt.Errorf("installing title from %s: %w", path, err)
	}
	return nil
}
