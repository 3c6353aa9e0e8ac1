package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// HTTP/Scraping
	HTTPTimeout time.Duration
	UserAgent   string
	Proxy       string

	// Rate Limiting
	StaticRateLimitRPS    float64
	StaticRateLimitBurst  int
	DynamicRateLimitRPS   float64
	DynamicRateLimitBurst int

	// Browser Pool
	BrowserPoolSize int
	BrowserHeadless bool
	ChromePath      string

	// Caching
	CacheTTL          time.Duration
	CacheMaxSizeBytes int64

	// Detection
	DetectMinRepeat    int
	DetectMaxAncestors int

	// Validation
	ValidateMinItems int

	// Persistence
	KnowledgeDBPath string
	RecipesDir      string

	// Language model (optional; empty endpoint disables semantic stages)
	LLMEndpoint string
	LLMAPIKey   string
	LLMModel    string
	LLMTimeout  time.Duration

	// Feature Flags
	EnableBatch bool
}

// Load builds a Config by combining defaults, environment variables, and CLI
// flags. Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:              DefaultLogLevel,
		JSONLog:               DefaultJSONLog,
		HTTPTimeout:           DefaultHTTPTimeout,
		UserAgent:             DefaultUserAgent,
		StaticRateLimitRPS:    DefaultStaticRateLimitRPS,
		StaticRateLimitBurst:  DefaultStaticRateLimitBurst,
		DynamicRateLimitRPS:   DefaultDynamicRateLimitRPS,
		DynamicRateLimitBurst: DefaultDynamicRateLimitBurst,
		BrowserPoolSize:       DefaultBrowserPoolSize,
		BrowserHeadless:       DefaultBrowserHeadless,
		CacheTTL:              DefaultCacheTTL,
		CacheMaxSizeBytes:     DefaultCacheMaxSizeBytes,
		DetectMinRepeat:       DefaultDetectMinRepeat,
		DetectMaxAncestors:    DefaultDetectMaxAncestors,
		ValidateMinItems:      DefaultValidateMinItems,
		KnowledgeDBPath:       defaultDataPath("knowledge.db"),
		RecipesDir:            defaultDataPath("recipes"),
		LLMModel:              DefaultLLMModel,
		LLMTimeout:            DefaultLLMTimeout,
	}

	// Override from environment variables (simple helpers)
	if v := os.Getenv("HARVEST_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("HARVEST_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("HARVEST_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("HARVEST_KNOWLEDGE_DB"); v != "" {
		cfg.KnowledgeDBPath = v
	}
	if v := os.Getenv("HARVEST_RECIPES_DIR"); v != "" {
		cfg.RecipesDir = v
	}
	if v := os.Getenv("HARVEST_LLM_ENDPOINT"); v != "" {
		cfg.LLMEndpoint = v
	}
	if v := os.Getenv("HARVEST_LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv("HARVEST_LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}

	// Read CLI flags if provided
	if cmd != nil {
		if f := cmd.Flags().Lookup("user-agent"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.UserAgent = s
			}
		}
		if f := cmd.Flags().Lookup("proxy"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.Proxy = s
			}
		}
		if f := cmd.Flags().Lookup("timeout"); f != nil {
			if s := f.Value.String(); s != "" {
				if d, err := time.ParseDuration(s); err == nil {
					cfg.HTTPTimeout = d
				}
			}
		}
		if f := cmd.Flags().Lookup("knowledge-db"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.KnowledgeDBPath = s
			}
		}
		if f := cmd.Flags().Lookup("recipes-dir"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.RecipesDir = s
			}
		}
		if f := cmd.Flags().Lookup("llm-endpoint"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.LLMEndpoint = s
			}
		}
		if f := cmd.Flags().Lookup("json"); f != nil {
			if f.Value.String() == "true" {
				cfg.JSONLog = true
			}
		}
		if f := cmd.Flags().Lookup("verbose"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "debug"
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// defaultDataPath places persistent state under the user's home directory,
// falling back to the working directory when home is unknown.
func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return home + "/.harvest/" + name
}
