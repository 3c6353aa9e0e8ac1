// internal/provider/dynamic.go
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/harvest/internal/cache"
	"github.com/law-makers/harvest/internal/ratelimit"
	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// rectScript walks the rendered body in document order, mirroring the arena
// builder's traversal (element nodes only, same skip set), and returns one
// bounding rect per element. The arena and the rect list therefore zip by
// index.
const rectScript = `(() => {
	const skip = new Set(["SCRIPT","STYLE","NOSCRIPT","TEMPLATE","HEAD","META","LINK"]);
	const out = [];
	const walk = (n) => {
		for (const c of n.children) {
			if (skip.has(c.tagName)) continue;
			const r = c.getBoundingClientRect();
			out.push([r.x, r.y, r.width, r.height]);
			walk(c);
		}
	};
	if (document.body) walk(document.body);
	return JSON.stringify(out);
})()`

// Dynamic produces snapshots from headless-Chrome-rendered pages. It is the
// only provider that fills in element geometry.
type Dynamic struct {
	cache       cache.Cache
	limiter     ratelimit.RateLimiter
	browserPool *BrowserPool
	timeout     time.Duration
	userAgent   string
	mu          sync.Mutex
}

// NewDynamic creates a new dynamic provider with dependency injection
func NewDynamic(c cache.Cache, lim ratelimit.RateLimiter, pool *BrowserPool, timeout time.Duration, ua string) *Dynamic {
	return &Dynamic{
		cache:       c,
		limiter:     lim,
		browserPool: pool,
		timeout:     timeout,
		userAgent:   ua,
	}
}

// SetBrowserPool updates the browser pool used by the provider (thread-safe)
func (d *Dynamic) SetBrowserPool(bp *BrowserPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.browserPool = bp
}

// Name returns the name of this provider
func (d *Dynamic) Name() string {
	return "dynamic"
}

// Snapshot renders the page in headless Chrome and builds a snapshot arena
// with bounding geometry attached.
func (d *Dynamic) Snapshot(ctx context.Context, opts models.RequestOptions) (*snapshot.Snapshot, error) {
	start := time.Now()

	log.Debug().
		Str("url", opts.URL).
		Str("provider", d.Name()).
		Msg("Starting fetch")

	if d.cache != nil {
		if snap, ok := d.cache.Get(cache.CacheKeyFromURL(opts.URL, d.Name())); ok {
			return snap, nil
		}
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, opts.URL); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var runCtx context.Context
	var cancel context.CancelFunc

	// 1. Try to use browser pool (faster and more stable)
	d.mu.Lock()
	pool := d.browserPool
	d.mu.Unlock()

	if pool != nil {
		bCtx, err := pool.Acquire(timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire browser from pool: %w", err)
		}
		// Release back to pool when function exits
		defer pool.Release(bCtx)

		runCtx, cancel = context.WithTimeout(bCtx.Ctx, timeout)
		defer cancel()

		log.Debug().Dur("elapsed_ms", time.Since(start)).Msg("Acquired browser from pool")
	} else {
		// 2. Fallback: fresh allocator and context (slower)
		baseCtx, baseCancel := context.WithTimeout(ctx, timeout)
		defer baseCancel()

		chromePath := FindChrome()
		allocOpts := []chromedp.ExecAllocatorOption{
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
			chromedp.Flag("headless", "new"),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-background-networking", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("window-size", "1920,1080"),
			chromedp.Flag("mute-audio", true),
			chromedp.UserAgent(d.userAgent),
		}
		if chromePath != "" {
			allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(chromePath)}, allocOpts...)
		}
		if opts.Proxy != "" {
			allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(baseCtx, allocOpts...)
		defer allocCancel()

		runCtx, cancel = chromedp.NewContext(allocCtx)
		defer cancel()

		log.Debug().Dur("elapsed_ms", time.Since(start)).Msg("Created new browser context (fallback)")
	}

	var htmlContent string
	var rectJSON string
	var statusCode int64

	// Capture status code from the main document response
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Response.URL == opts.URL {
				statusCode = resp.Response.Status
			}
		}
	})

	tasks := []chromedp.Action{
		network.Enable(),
		chromedp.Navigate(opts.URL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Small sleep to let initial JS execute
			time.Sleep(300 * time.Millisecond)
			if opts.WaitSeconds > 0 {
				log.Debug().Int("wait_seconds", opts.WaitSeconds).Msg("Waiting after navigation before snapshot")
				time.Sleep(time.Duration(opts.WaitSeconds) * time.Second)
			}
			return nil
		}),
		chromedp.OuterHTML("html", &htmlContent, chromedp.ByQuery),
		chromedp.Evaluate(rectScript, &rectJSON),
	}

	if err := chromedp.Run(runCtx, tasks...); err != nil {
		return nil, fmt.Errorf("chromedp execution failed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered HTML: %w", err)
	}

	snap := snapshot.FromDocument(opts.URL, doc)
	attachRects(snap, rectJSON)

	if d.cache != nil {
		_ = d.cache.Set(cache.CacheKeyFromURL(opts.URL, d.Name()), snap, 0)
	}

	log.Info().
		Str("url", opts.URL).
		Int("status", int(statusCode)).
		Int64("response_time_ms", time.Since(start).Milliseconds()).
		Int("elements", snap.Len()).
		Msg("Fetch completed")

	return snap, nil
}

// attachRects zips browser-measured bounding rects onto arena elements.
// A length mismatch means the page mutated between capture passes; geometry
// is then left zeroed rather than misattributed.
func attachRects(snap *snapshot.Snapshot, rectJSON string) {
	if rectJSON == "" {
		return
	}
	var rects [][4]float64
	if err := json.Unmarshal([]byte(rectJSON), &rects); err != nil {
		log.Warn().Err(err).Msg("Failed to decode element geometry")
		return
	}
	elements := snap.Elements()
	if len(rects) != len(elements) {
		log.Warn().
			Int("rects", len(rects)).
			Int("elements", len(elements)).
			Msg("Geometry count mismatch, dropping rects")
		return
	}
	for i := range elements {
		elements[i].Rect = snapshot.Rect{X: rects[i][0], Y: rects[i][1], W: rects[i][2], H: rects[i][3]}
	}
}
