package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel              = "info"
	DefaultJSONLog               = false
	DefaultUserAgent             = "Harvest/1.0 (https://github.com/law-makers/harvest)"
	DefaultCacheTTL              = 5 * time.Minute
	DefaultHTTPTimeout           = 30 * time.Second
	DefaultStaticRateLimitRPS    = 5.0
	DefaultStaticRateLimitBurst  = 10
	DefaultDynamicRateLimitRPS   = 3.0
	DefaultDynamicRateLimitBurst = 5
	DefaultBrowserPoolSize       = 3
	DefaultMaxBrowserPoolSize    = 10
	DefaultBrowserHeadless       = true
	DefaultCacheMaxSizeBytes     = 100 * 1024 * 1024 // 100MB
	DefaultJSWaitTime            = 500 * time.Millisecond
	DefaultPoolAcquireTTL        = 10 * time.Second
	DefaultDetectMinRepeat       = 5
	DefaultDetectMaxAncestors    = 3
	DefaultValidateMinItems      = 3
	DefaultLLMModel              = "gpt-4o-mini"
	DefaultLLMTimeout            = 20 * time.Second
)
