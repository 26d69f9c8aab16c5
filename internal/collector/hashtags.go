// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/nichepulse/nichepulse/internal/config"
	"github.com/nichepulse/nichepulse/internal/logging"
	"github.com/nichepulse/nichepulse/internal/metrics"
	"github.com/nichepulse/nichepulse/internal/models"
)

// userAgent mimics a desktop browser, avoiding the reduced page served to
// unknown clients.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// maxResponseBytes caps how much of a hashtag page is read. The post count
// appears early in the document.
const maxResponseBytes = 2 << 20

// HashtagFetcher fetches hashtag post counts from the public hashtag pages.
// All requests share one circuit breaker and one outbound rate limiter, so a
// run of upstream failures stops outbound traffic instead of hammering a
// host that is refusing us.
type HashtagFetcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[int64]
	name    string
}

// NewHashtagFetcher creates a fetcher for the configured hashtag page host.
//
// Circuit breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
func NewHashtagFetcher(cfg *config.CollectorConfig) *HashtagFetcher {
	cbName := "hashtag-pages"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		// Opens when failure rate >= 60% with minimum 10 requests
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &HashtagFetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		cb:      cb,
		name:    cbName,
	}
}

// Hashtags fetches the post count for the niche's tag and returns it as a
// single-element signal list. Trend, engagement and reach need historical
// observations that a single page fetch cannot provide, so they stay at
// their zero placeholders.
func (f *HashtagFetcher) Hashtags(ctx context.Context, niche string) ([]models.HashtagSignal, error) {
	posts, err := f.fetchPostCount(ctx, niche)
	if err != nil {
		return nil, err
	}

	return []models.HashtagSignal{
		{
			Tag:         "#" + niche,
			Posts:       posts,
			Trend:       "+0%",
			Engagement:  0,
			Reach:       0,
			LastUpdated: time.Now().UTC(),
		},
	}, nil
}

// fetchPostCount performs the rate-limited, breaker-protected page fetch.
func (f *HashtagFetcher) fetchPostCount(ctx context.Context, tag string) (int64, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	posts, err := f.cb.Execute(func() (int64, error) {
		return f.doFetch(ctx, tag)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(f.name, "rejected").Inc()
			logging.Warn().Str("tag", tag).Err(err).Msg("Hashtag fetch rejected by circuit breaker")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(f.name, "failure").Inc()
		}
		return 0, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(f.name, "success").Inc()
	return posts, nil
}

func (f *HashtagFetcher) doFetch(ctx context.Context, tag string) (int64, error) {
	url := fmt.Sprintf("%s/explore/tags/%s/", f.baseURL, tag)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build hashtag request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("hashtag page request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("hashtag page returned status %d", resp.StatusCode)
	}

	posts, err := parsePostCount(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, fmt.Errorf("failed to parse hashtag page for %s: %w", tag, err)
	}
	return posts, nil
}

// parsePostCount extracts the post count from a hashtag page. The count is
// carried in the title attribute of a span, formatted with thousands
// separators ("1,234,567").
func parsePostCount(r io.Reader) (int64, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return 0, fmt.Errorf("invalid HTML: %w", err)
	}

	var posts int64
	var found bool

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.Data == "span" {
			for _, attr := range n.Attr {
				if attr.Key != "title" {
					continue
				}
				if v, err := parseGroupedInt(attr.Val); err == nil {
					posts = v
					found = true
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if !found {
		return 0, errors.New("no post count found in page")
	}
	return posts, nil
}

// parseGroupedInt parses a non-negative integer that may use comma grouping.
func parseGroupedInt(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseInt(s, 10, 64)
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	}
	return "unknown"
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
