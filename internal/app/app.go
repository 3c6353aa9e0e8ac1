// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/harvest/internal/cache"
	"github.com/law-makers/harvest/internal/config"
	"github.com/law-makers/harvest/internal/detect"
	"github.com/law-makers/harvest/internal/fields"
	"github.com/law-makers/harvest/internal/filter"
	"github.com/law-makers/harvest/internal/knowledge"
	"github.com/law-makers/harvest/internal/llm"
	"github.com/law-makers/harvest/internal/orchestrator"
	"github.com/law-makers/harvest/internal/provider"
	"github.com/law-makers/harvest/internal/proxy"
	"github.com/law-makers/harvest/internal/ratelimit"
	"github.com/law-makers/harvest/internal/recipes"
	"github.com/law-makers/harvest/internal/validate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config       *config.Config
	Logger       *zerolog.Logger
	Cache        cache.Cache
	BrowserPool  *provider.BrowserPool
	poolMu       sync.Mutex
	RateLimiter  ratelimit.RateLimiter
	ProxyPool    *proxy.ProxyPool
	HTTPClient   *http.Client
	Static       *provider.Static
	Dynamic      *provider.Dynamic
	Provider     provider.Provider
	Knowledge    knowledge.Store
	Recipes      *recipes.Repo
	LLM          llm.Client
	Orchestrator *orchestrator.Orchestrator
	startTime    time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Creates and initializes the in-memory snapshot cache
//   - Creates the rate limiter for domain-based request throttling
//   - Initializes the HTTP client with proper timeouts
//   - Opens the knowledge database and the recipe repository
//   - Wires the snapshot providers and the extraction orchestrator
//
// The browser pool is created lazily, only when a dynamic snapshot is
// actually requested. If any step fails, an error is returned.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	// Initialize logger based on config
	logLevel := zerolog.ErrorLevel // default: suppress non-verbose info logs
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	// Treat "info" as non-verbose (don't display info logs unless -v is used)
	default:
		logLevel = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		// JSON logs to stderr
		logWriter = os.Stderr
	} else {
		// Human-friendly console output otherwise
		logWriter = zerolog.NewConsoleWriter()
	}

	logger := log.Output(logWriter).With().Timestamp().Logger()

	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	// Create cache
	memCache := cache.NewMemoryCache(cfg.CacheMaxSizeBytes)
	logger.Debug().
		Int64("max_size_bytes", cfg.CacheMaxSizeBytes).
		Msg("Snapshot cache initialized")

	// Create rate limiter
	rateLimiter := ratelimit.NewDomainLimiter(cfg.StaticRateLimitRPS, cfg.StaticRateLimitBurst)
	logger.Debug().
		Float64("static_rps", cfg.StaticRateLimitRPS).
		Int("static_burst", cfg.StaticRateLimitBurst).
		Msg("Rate limiter initialized")

	// A comma-separated proxy setting becomes a rotating pool; a single
	// proxy still goes through it so callers have one code path.
	var proxyPool *proxy.ProxyPool
	if cfg.Proxy != "" {
		var proxies []string
		for _, p := range strings.Split(cfg.Proxy, ",") {
			if p = strings.TrimSpace(p); p != "" {
				proxies = append(proxies, p)
			}
		}
		proxyPool = proxy.NewProxyPool(proxies)
		logger.Debug().Int("proxies", len(proxies)).Msg("Proxy pool initialized")
	}

	// Create HTTP client
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DisableKeepAlives:   false,
		},
	}
	logger.Debug().
		Dur("timeout", cfg.HTTPTimeout).
		Msg("HTTP client initialized")

	// Open persistence
	store, err := knowledge.Open(cfg.KnowledgeDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge base: %w", err)
	}
	logger.Debug().
		Str("path", cfg.KnowledgeDBPath).
		Msg("Knowledge base opened")

	repo, err := recipes.NewRepo(cfg.RecipesDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening recipe repository: %w", err)
	}
	logger.Debug().
		Str("dir", cfg.RecipesDir).
		Msg("Recipe repository opened")

	// Create snapshot providers. The dynamic provider attaches its browser
	// pool on demand via EnsureBrowserPool.
	staticProvider := provider.NewStatic(memCache, rateLimiter, httpClient, cfg.HTTPTimeout, cfg.UserAgent)
	dynamicProvider := provider.NewDynamic(memCache, rateLimiter, nil, cfg.HTTPTimeout, cfg.UserAgent)
	autoProvider := provider.NewAuto(staticProvider, dynamicProvider)

	// The language model is optional; everything downstream degrades to
	// deterministic behavior when it is absent.
	var model llm.Client
	if h := llm.NewHTTP(llm.Config{
		Endpoint: cfg.LLMEndpoint,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		Timeout:  cfg.LLMTimeout,
	}); h != nil {
		model = h
		logger.Debug().Str("endpoint", cfg.LLMEndpoint).Msg("Language model client initialized")
	}

	validator := validate.New(validate.Config{MinItems: cfg.ValidateMinItems}, model)
	pipeline := filter.New(model)

	orch := orchestrator.New(
		autoProvider,
		store,
		repo,
		validator,
		pipeline,
		detect.Config{MinRepeat: cfg.DetectMinRepeat, MaxAncestors: cfg.DetectMaxAncestors},
		fields.Config{},
	)

	app := &Application{
		Config:       cfg,
		Logger:       &logger,
		Cache:        memCache,
		RateLimiter:  rateLimiter,
		ProxyPool:    proxyPool,
		HTTPClient:   httpClient,
		Static:       staticProvider,
		Dynamic:      dynamicProvider,
		Provider:     autoProvider,
		Knowledge:    store,
		Recipes:      repo,
		LLM:          model,
		Orchestrator: orch,
		startTime:    time.Now(),
	}

	logger.Info().Msg("Application initialized successfully")
	return app, nil
}

// EnsureBrowserPool lazily creates the browser pool if it has not already been
// initialized. Callers should provide a context with an appropriate timeout.
func (a *Application) EnsureBrowserPool(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("application is nil")
	}

	a.poolMu.Lock()
	defer a.poolMu.Unlock()

	if a.BrowserPool != nil {
		return nil
	}

	logger := a.Logger
	logger.Debug().Msg("Initializing browser pool on demand")
	pool, err := provider.NewBrowserPool(provider.BrowserPoolOptions{
		Size:      a.Config.BrowserPoolSize,
		Headless:  a.Config.BrowserHeadless,
		UserAgent: a.Config.UserAgent,
		Proxy:     a.Config.Proxy,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create browser pool on demand")
		return err
	}

	a.BrowserPool = pool
	// Attach to the dynamic provider so it can reuse contexts
	if a.Dynamic != nil {
		a.Dynamic.SetBrowserPool(pool)
	}

	logger.Info().Int("pool_size", pool.Size()).Msg("Browser pool initialized on demand")
	return nil
}

// Close gracefully shuts down the application and all its resources.
//
// It closes the browser pool, the knowledge base, the cache and the HTTP
// client in order. A context with a timeout should be provided to prevent
// indefinite blocking. Errors during shutdown are logged but do not prevent
// other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Info().Msg("Shutting down application")

	// Close browser pool (will interrupt any running operations)
	if a.BrowserPool != nil {
		if err := a.BrowserPool.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing browser pool")
		}
	}

	// Close knowledge base
	if a.Knowledge != nil {
		if err := a.Knowledge.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing knowledge base")
		}
	}

	// Close cache
	if a.Cache != nil {
		a.Cache.Close()
	}

	// Close HTTP client (connection pooling cleanup)
	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}

	uptime := time.Since(a.startTime)
	a.Logger.Info().Dur("uptime", uptime).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}

// NextProxy returns the next proxy from the rotation, or "" when none are
// configured.
func (a *Application) NextProxy() string {
	if a.ProxyPool == nil {
		return ""
	}
	return a.ProxyPool.GetNext()
}
