// Package fetch makes sure a local copy of a remote file exists.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/go-units"
	"github.com/prometheus/client_golang/prometheus"
)

// Fetcher downloads remote assets to local paths.
type Fetcher struct {
	client  HTTPClient
	logger  *slog.Logger
	retries int
	timeout time.Duration
	bytes   prometheus.Counter

	newBackOff func() backoff.BackOff
}

// New returns a Fetcher. Without options it makes a single attempt with
// http.DefaultClient and no timeout.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: http.DefaultClient,
		logger: slog.Default(),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Ensure downloads url to dest unless dest already exists. It reports whether
// a transfer happened. The body is streamed to a temporary file in the same
// directory and renamed into place, so dest never holds a partial download.
func (f *Fetcher) Ensure(ctx context.Context, url, dest string) (bool, error) {
	if _, err := os.Stat(dest); err == nil {
		f.logger.Debug("Asset already present, skipping download", "path", dest)
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if url == "" {
		return false, fmt.Errorf("%w: %s does not exist", ErrNoSource, dest)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, fmt.Errorf("%w: creating %s: %v", ErrStorage, filepath.Dir(dest), err)
	}

	f.logger.Info("Downloading asset", "url", url, "path", dest)
	start := time.Now()

	var (
		written int64
		attempt int
	)
	operation := func() error {
		attempt++
		n, err := f.download(ctx, url, dest)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		written = n
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Warn("Download failed, retrying", "url", url, "attempt", attempt, "wait", wait, "error", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(f.newBackOff(), uint64(f.retries)), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return false, err
	}

	f.logger.Info("Asset downloaded",
		"path", dest,
		"size", units.HumanSize(float64(written)),
		"duration", time.Since(start).Round(time.Millisecond),
		"attempts", attempt)
	return true, nil
}

// download performs one attempt and returns the bytes written.
func (f *Fetcher) download(ctx context.Context, url, dest string) (int64, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("%w: building request: %v", ErrNetwork, err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &statusError{url: url, code: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("%w: creating temp file: %v", ErrStorage, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := &countingWriter{w: tmp, counter: f.bytes}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		if w.err != nil {
			return n, fmt.Errorf("%w: writing %s: %v", ErrStorage, tmpPath, err)
		}
		return n, fmt.Errorf("%w: reading body after %d bytes: %v", ErrNetwork, n, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, fmt.Errorf("%w: got %d of %d bytes", ErrNetwork, n, resp.ContentLength)
	}

	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("%w: syncing %s: %v", ErrStorage, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("%w: closing %s: %v", ErrStorage, tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return n, fmt.Errorf("%w: renaming into %s: %v", ErrStorage, dest, err)
	}
	committed = true

	return n, nil
}

type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d %s", ErrBadStatus, e.url, e.code, http.StatusText(e.code))
}

func (e *statusError) Unwrap() error {
	return ErrBadStatus
}

// retryable reports whether another attempt could succeed. Client errors
// other than timeouts and rate limits, and local storage failures, are final.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusRequestTimeout || se.code == http.StatusTooManyRequests
	}
	return !errors.Is(err, ErrStorage)
}

type countingWriter struct {
	w       io.Writer
	counter prometheus.Counter
	err     error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 && c.counter != nil {
		c.counter.Add(float64(n))
	}
	if err != nil {
		c.err = err
	}
	return n, err
}
