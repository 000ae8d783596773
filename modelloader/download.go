package modelloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// ProgressFunc receives a 0-100 completion percentage; Total<=0 responses
// from the server mean percentage can't be computed and ProgressFunc is
// never called.
type ProgressFunc func(percent float64)

// downloadChunkSize is how much of the body is read between ctx.Done()
// checks, implementing the cooperative cancellation the download pool
// needs without spawning a second goroutine per download.
const downloadChunkSize = 256 * 1024

// Download fetches the catalog entry name into modelsDir, writing to a
// ".downloading" temp file first so a cancelled or failed download never
// leaves a corrupt file at the final path. onProgress may be nil.
func (l *Loader) Download(ctx context.Context, name string, onProgress ProgressFunc) error {
	entry, ok := l.catalog.Find(name)
	if !ok {
		return fmt.Errorf("modelloader: unknown model %q", name)
	}

	// Fresh downloads always land in the primary per-model directory
	// layout; ModelPath's fallback candidates exist only to discover files
	// placed there by another means (manual drop, older layout).
	destPath := filepath.Join(l.modelsDir, entry.Name, entry.FileName)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("modelloader: create model dir: %w", err)
	}
	tempPath := destPath + ".downloading"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, nil)
	if err != nil {
		return fmt.Errorf("modelloader: build request for %q: %w", name, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("modelloader: download %q: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("modelloader: download %q: http %d", name, resp.StatusCode)
	}

	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("modelloader: create temp file: %w", err)
	}
	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(tempPath)
		}
	}()

	if err := copyWithCancellation(ctx, out, resp.Body, resp.ContentLength, onProgress); err != nil {
		return fmt.Errorf("modelloader: download %q: %w", name, err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("modelloader: sync %q: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("modelloader: close %q: %w", name, err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return fmt.Errorf("modelloader: finalize %q: %w", name, err)
	}
	success = true
	return nil
}

// copyWithCancellation is io.Copy with a ctx check between each chunk, so a
// cancelled download context stops the transfer within one chunk instead
// of running to completion.
func copyWithCancellation(ctx context.Context, dst io.Writer, src io.Reader, total int64, onProgress ProgressFunc) error {
	buf := make([]byte, downloadChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			written += int64(n)
			if total > 0 && onProgress != nil {
				onProgress(float64(written) / float64(total) * 100)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
