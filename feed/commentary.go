package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Commentary supplies short market commentary. Implementations may call out
// to slow or unreliable services.
type Commentary interface {
	Insight(ctx context.Context, symbol string) (string, error)
	News(ctx context.Context) ([]string, error)
}

const (
	InsightUnavailable = "Market insights currently unavailable."
	InsightFailed      = "Failed to fetch AI insights."
)

// FallbackHeadlines are served when no news source answers.
var FallbackHeadlines = []string{
	"Nifty reaches all-time high amid global rally",
	"RBI maintains interest rates, outlook positive",
	"Tech stocks lead market gains today",
}

// Static returns the same commentary every time.
type Static struct {
	Text      string
	Headlines []string
}

func (s Static) Insight(context.Context, string) (string, error) {
	return s.Text, nil
}

func (s Static) News(context.Context) ([]string, error) {
	return append([]string(nil), s.Headlines...), nil
}

// HTTPCommentary reads plain-text commentary from a service that answers
// GET <url>/insight?symbol=X with the insight text and GET <url>/news with
// one headline per line.
type HTTPCommentary struct {
	client *HTTPFeed
}

// NewHTTPCommentary takes the same options as NewHTTPFeed.
func NewHTTPCommentary(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTPCommentary {
	return &HTTPCommentary{client: NewHTTPFeed(baseURL, timeout, opts...)}
}

func (c *HTTPCommentary) Insight(ctx context.Context, symbol string) (string, error) {
	if err := c.client.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	body, err := c.client.get(ctx, "insight", url.Values{"symbol": {symbol}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

func (c *HTTPCommentary) News(ctx context.Context) ([]string, error) {
	if err := c.client.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	body, err := c.client.get(ctx, "news", nil)
	if err != nil {
		return nil, err
	}

	news := []string{}
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			news = append(news, line)
		}
	}
	return news, nil
}

// Fallback wraps a Commentary so callers always get something to show.
// Errors are logged, never returned.
type Fallback struct {
	Source Commentary
	Log    logrus.FieldLogger
}

func (f Fallback) Insight(ctx context.Context, symbol string) (string, error) {
	if f.Source == nil {
		return InsightUnavailable, nil
	}
	text, err := f.Source.Insight(ctx, symbol)
	if err != nil {
		f.logger().WithError(err).WithField("symbol", symbol).Warn("commentary insight")
		return InsightFailed, nil
	}
	if strings.TrimSpace(text) == "" {
		return InsightUnavailable, nil
	}
	return text, nil
}

func (f Fallback) News(ctx context.Context) ([]string, error) {
	if f.Source == nil {
		return append([]string(nil), FallbackHeadlines...), nil
	}
	news, err := f.Source.News(ctx)
	if err != nil {
		f.logger().WithError(err).Warn("commentary news")
		return append([]string(nil), FallbackHeadlines...), nil
	}
	if news == nil {
		return []string{}, nil
	}
	return news, nil
}

func (f Fallback) logger() logrus.FieldLogger {
	if f.Log == nil {
		return logrus.StandardLogger()
	}
	return f.Log
}
