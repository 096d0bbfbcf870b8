package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/pkg/status"
)

// ErrSourceUnavailable marks a source that could not be reached after retries.
// The orchestrator records it against that source only and moves on.
var ErrSourceUnavailable = errors.New("source unavailable")

// RawRecord is one source item before normalization. Fields carry the source's
// own vocabulary (vod_name, vod_play_url, ...); only the normalizer reads them.
type RawRecord struct {
	Dialect status.SourceType `json:"dialect"`
	Fields  map[string]string `json:"fields"`
}

// RetryPolicy bounds how often a failed request is retried. Tests inject a
// zero-backoff policy.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Client fetches listing pages and item details from one resource site.
type Client interface {
	FetchListPage(ctx context.Context, site repo.SourceSite, category string, page int) (records []RawRecord, hasMore bool, err error)
	FetchDetail(ctx context.Context, site repo.SourceSite, externalID string) (*RawRecord, error)
}

// Factory builds a dialect-specific client for a site.
type Factory struct {
	httpClient    *http.Client
	policy        RetryPolicy
	listTimeout   time.Duration
	detailTimeout time.Duration
}

func NewFactory(policy RetryPolicy, listTimeout, detailTimeout time.Duration) *Factory {
	return &Factory{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		policy:        policy,
		listTimeout:   listTimeout,
		detailTimeout: detailTimeout,
	}
}

func (f *Factory) ForSite(site repo.SourceSite) Client {
	if site.SourceType == status.SourceTVBox {
		return &tvboxClient{f: f}
	}
	return &cmsClient{f: f}
}

// fetch performs one GET with the site's timeout and the bounded retry policy.
// A non-2xx response or transport error after all attempts surfaces as
// ErrSourceUnavailable.
func (f *Factory) fetch(ctx context.Context, site repo.SourceSite, url string, timeout time.Duration) ([]byte, error) {
	var lastErr error

	attempts := f.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && f.policy.Backoff > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.policy.Backoff):
			}
		}

		body, err := f.doRequest(ctx, url, site.Timeout(timeout))
		if err == nil {
			return body, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, site.Name, lastErr)
}

func (f *Factory) doRequest(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, application/xml, text/xml;q=0.9, */*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36"
