package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amankumarsingh77/slideshow-encoder/internal/config"
)

type Fetcher struct {
	client        *http.Client
	timeout       time.Duration
	maxImageBytes int64
	userAgent     string
}

func NewFetcher(cfg config.FetcherConfig) *Fetcher {
	return &Fetcher{
		client:        &http.Client{},
		timeout:       cfg.Timeout,
		maxImageBytes: cfg.MaxImageBytes,
		userAgent:     cfg.UserAgent,
	}
}

// Fetch streams url into dst. dst is only created once the whole body has
// been written.
func (f *Fetcher) Fetch(ctx context.Context, url, dst string) (string, error) {
	res, cancel, err := f.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer cancel()
	defer res.Body.Close()

	err = writeFileAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, res.Body)
		return err
	})
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("failed to write %s: %w", dst, err)}
	}
	return dst, nil
}

// FetchBytes reads url into memory, refusing bodies larger than the
// configured image limit.
func (f *Fetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	res, cancel, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer res.Body.Close()

	var body io.Reader = res.Body
	if f.maxImageBytes > 0 {
		body = io.LimitReader(res.Body, f.maxImageBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if f.maxImageBytes > 0 && int64(len(data)) > f.maxImageBytes {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("body exceeds %d bytes", f.maxImageBytes)}
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if f.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, nil, &FetchError{URL: url, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	res, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, &FetchError{URL: url, Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		res.Body.Close()
		cancel()
		return nil, nil, &FetchError{URL: url, StatusCode: res.StatusCode}
	}
	return res, cancel, nil
}
