// internal/provider/static.go
package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/harvest/internal/auth"
	"github.com/law-makers/harvest/internal/cache"
	"github.com/law-makers/harvest/internal/ratelimit"
	"github.com/law-makers/harvest/internal/retry"
	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Static produces snapshots from raw HTTP responses parsed with goquery.
// It is extremely fast but blind to client-side rendering.
type Static struct {
	cache     cache.Cache
	limiter   ratelimit.RateLimiter
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// NewStatic creates a new static provider with dependency injection
func NewStatic(c cache.Cache, lim ratelimit.RateLimiter, client *http.Client, timeout time.Duration, ua string) *Static {
	return &Static{
		cache:     c,
		limiter:   lim,
		client:    client,
		timeout:   timeout,
		userAgent: ua,
	}
}

// Name returns the name of this provider
func (s *Static) Name() string {
	return "static"
}

// requestClient returns shared unchanged when no per-request override
// applies, otherwise a shallow copy carrying the overrides. The underlying
// transport and its connection pool stay shared either way.
func requestClient(shared *http.Client, jar http.CookieJar, timeout time.Duration) *http.Client {
	if jar == nil && timeout <= 0 {
		return shared
	}
	dup := *shared
	if jar != nil {
		dup.Jar = jar
	}
	if timeout > 0 {
		dup.Timeout = timeout
	}
	return &dup
}

// Snapshot fetches and parses a static HTML page into a snapshot arena
func (s *Static) Snapshot(ctx context.Context, opts models.RequestOptions) (*snapshot.Snapshot, error) {
	start := time.Now()

	log.Debug().
		Str("url", opts.URL).
		Str("provider", s.Name()).
		Msg("Starting fetch")

	if s.cache != nil {
		if snap, ok := s.cache.Get(cache.CacheKeyFromURL(opts.URL, s.Name())); ok {
			return snap, nil
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, opts.URL); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	// Load session if specified
	var sessionJar http.CookieJar
	if opts.SessionName != "" {
		log.Debug().Str("session", opts.SessionName).Msg("Loading session")
		session, err := auth.LoadSession(opts.SessionName)
		if err != nil {
			log.Warn().Err(err).Str("session", opts.SessionName).Msg("Failed to load session")
		} else {
			jar, err := cookiejar.New(nil)
			if err == nil {
				parsedURL, _ := url.Parse(opts.URL)
				var cookies []*http.Cookie
				for _, c := range session.Cookies {
					cookies = append(cookies, &http.Cookie{
						Name:     c.Name,
						Value:    c.Value,
						Domain:   c.Domain,
						Path:     c.Path,
						Expires:  time.Unix(int64(c.Expires), 0),
						HttpOnly: c.HTTPOnly,
						Secure:   c.Secure,
					})
				}
				jar.SetCookies(parsedURL, cookies)
				sessionJar = jar
				log.Debug().Int("cookies", len(cookies)).Msg("Session cookies injected")
			}

			// Add session headers
			if len(session.Headers) > 0 {
				if opts.Headers == nil {
					opts.Headers = make(map[string]string)
				}
				for key, value := range session.Headers {
					opts.Headers[key] = value
				}
			}
		}
	}

	// Per-request overrides go on a copy; concurrent extractions share
	// s.client and must never see another request's jar or timeout.
	client := requestClient(s.client, sessionJar, opts.Timeout)
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy: %w", err)
		}
		client = &http.Client{
			Timeout:   client.Timeout,
			Jar:       client.Jar,
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	// Fetch with retry; 429 and 5xx responses back off and try again
	var statusCode int
	var doc *goquery.Document
	err := retry.WithRetry(ctx, retry.DefaultConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", opts.URL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		// Set default headers
		req.Header.Set("User-Agent", s.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		// Add custom headers
		for key, value := range opts.Headers {
			req.Header.Set(key, value)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch URL: %w", err)
		}
		defer resp.Body.Close()
		statusCode = resp.StatusCode

		if resp.StatusCode >= 400 {
			return retry.NewHTTPError(resp.StatusCode, resp.Status, "")
		}

		// Parse HTML with goquery
		doc, err = goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to parse HTML: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap := snapshot.FromDocument(opts.URL, doc)

	if s.cache != nil {
		_ = s.cache.Set(cache.CacheKeyFromURL(opts.URL, s.Name()), snap, 0)
	}

	log.Debug().
		Str("url", opts.URL).
		Int("status", statusCode).
		Int64("response_time_ms", time.Since(start).Milliseconds()).
		Int("elements", snap.Len()).
		Msg("Fetch completed")

	return snap, nil
}
