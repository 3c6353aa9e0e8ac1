package config

import "fmt"

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.BrowserPoolSize <= 0 || c.BrowserPoolSize > DefaultMaxBrowserPoolSize {
		return fmt.Errorf("browser pool size must be between 1 and %d", DefaultMaxBrowserPoolSize)
	}
	if c.CacheMaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be > 0")
	}
	if c.DetectMinRepeat < 2 {
		return fmt.Errorf("detection repeat threshold must be >= 2")
	}
	if c.ValidateMinItems < 1 {
		return fmt.Errorf("validation minimum items must be >= 1")
	}
	if c.RecipesDir == "" {
		return fmt.Errorf("recipes directory must be set")
	}
	if c.KnowledgeDBPath == "" {
		return fmt.Errorf("knowledge database path must be set")
	}
	return nil
}
