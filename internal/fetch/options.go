package fetch

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPClient is the interface for HTTP operations.
// *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*Fetcher)

// WithHTTPClient sets the client used for downloads. Defaults to
// http.DefaultClient.
func WithHTTPClient(client HTTPClient) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithRetries sets how many times a failed transfer is retried with
// exponential backoff. Zero means a single attempt.
func WithRetries(n int) Option {
	return func(f *Fetcher) {
		if n < 0 {
			n = 0
		}
		f.retries = n
	}
}

// WithTimeout bounds each attempt. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithBytesCounter adds every byte written to disk to c.
func WithBytesCounter(c prometheus.Counter) Option {
	return func(f *Fetcher) {
		f.bytes = c
	}
}
