package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/mindmap/pkg/cache"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/tree"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second

	// DefaultTTL is how long fetched resources stay cached.
	DefaultTTL = 24 * time.Hour

	defaultAttempts = 3
	defaultDelay    = time.Second
)

// ErrNetwork marks failures to reach the remote host.
var ErrNetwork = errors.New("network error")

// Fetcher downloads remote resources through a cache.
type Fetcher struct {
	http     *http.Client
	cache    cache.Cache
	ttl      time.Duration
	attempts int
	delay    time.Duration
	limit    int64
	agent    string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client, which has a [DefaultTimeout].
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.http = c
		}
	}
}

// WithTTL sets the cache lifetime of fetched bodies. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(f *Fetcher) { f.ttl = ttl }
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(f *Fetcher) { f.attempts, f.delay = attempts, delay }
}

// WithLimit caps the accepted body size in bytes.
func WithLimit(n int64) Option {
	return func(f *Fetcher) { f.limit = n }
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.agent = ua }
}

// NewFetcher creates a fetcher storing bodies in c. A nil cache disables
// caching.
func NewFetcher(c cache.Cache, opts ...Option) *Fetcher {
	if c == nil {
		c = cache.NewNullCache()
	}
	f := &Fetcher{
		http:     &http.Client{Timeout: DefaultTimeout},
		cache:    c,
		ttl:      DefaultTTL,
		attempts: defaultAttempts,
		delay:    defaultDelay,
		limit:    pkgio.MaxImageSize,
		agent:    "mindmap",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsRemote reports whether ref is an http or https URL.
func IsRemote(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FetchImage downloads and decodes the image at rawURL.
func (f *Fetcher) FetchImage(ctx context.Context, rawURL string) (*tree.Image, error) {
	data, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return pkgio.DecodeImage(data)
}

// Fetch returns the body at rawURL, from the cache when present.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if !IsRemote(rawURL) {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "not an http(s) URL: %q", rawURL)
	}
	key := "remote:" + cache.Hash([]byte(rawURL))
	if data, ok, err := f.cache.Get(ctx, key); err == nil && ok {
		return data, nil
	}

	var body []byte
	err := Retry(ctx, f.attempts, f.delay, func() error {
		var err error
		body, err = f.get(ctx, rawURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	// A cache failure only costs a refetch.
	_ = f.cache.Set(ctx, key, body, f.ttl)
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "bad URL %q", rawURL)
	}
	if f.agent != "" {
		req.Header.Set("User-Agent", f.agent)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()

	if err := checkStatus(rawURL, resp.StatusCode); err != nil {
		return nil, err
	}
	if f.limit > 0 && resp.ContentLength > f.limit {
		return nil, tooLarge(rawURL, f.limit)
	}

	r := io.Reader(resp.Body)
	if f.limit > 0 {
		r = io.LimitReader(resp.Body, f.limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("%w: read body: %v", ErrNetwork, err)}
	}
	if f.limit > 0 && int64(len(data)) > f.limit {
		return nil, tooLarge(rawURL, f.limit)
	}
	return data, nil
}

func checkStatus(rawURL string, code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return pkgerrors.New(pkgerrors.ErrCodeNotFound, "%s: status %d", rawURL, code)
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{Err: fmt.Errorf("%w: %s: status %d", ErrNetwork, rawURL, code)}
	default:
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "%s: status %d", rawURL, code)
	}
}

func tooLarge(rawURL string, limit int64) error {
	return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "%s exceeds %d bytes", rawURL, limit)
}
