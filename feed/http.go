package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxBody caps how much of a quote response is read.
const maxBody = 1 << 20

// HTTPFeed fetches quotes from a plain-text endpoint that answers
// GET <url>?symbols=A,B with one "SYMBOL: PRICE" line per quote.
type HTTPFeed struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type HTTPOption func(*HTTPFeed)

// WithToken sends a bearer token with every request.
func WithToken(token string) HTTPOption {
	return func(f *HTTPFeed) { f.token = token }
}

// WithRateLimit allows at most one request per interval. Zero disables the
// limit.
func WithRateLimit(interval time.Duration) HTTPOption {
	return func(f *HTTPFeed) {
		if interval <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFeed) { f.httpClient = c }
}

func NewHTTPFeed(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTPFeed {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	f := &HTTPFeed{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPrices waits for the rate limiter, then requests quotes for symbols.
// Only quotes for requested symbols are returned.
func (f *HTTPFeed) FetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	body, err := f.get(ctx, "", q)
	if err != nil {
		return nil, err
	}

	quotes, err := ParseQuotes(body)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	for sym := range quotes {
		if !wanted[sym] {
			delete(quotes, sym)
		}
	}
	return quotes, nil
}

// get requests baseURL plus path with query merged in and returns the body
// of a 200 response.
func (f *HTTPFeed) get(ctx context.Context, path string, query url.Values) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	if path != "" {
		u = u.JoinPath(path)
	}
	q := u.Query()
	for k, vs := range query {
		q[k] = vs
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("feed error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}
