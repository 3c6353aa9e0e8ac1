package urlutil

import (
	"fmt"
	"net/url"

	"github.com/law-makers/harvest/pkg/models"
)

// ValidateURL performs comprehensive URL validation
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL and returns a string
func ResolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// linkFields are entity fields holding URLs that may be page-relative.
var linkFields = []string{"url", "image"}

// ResolveRelativeLinks rewrites link-like entity fields to absolute URLs
// against the page they were extracted from.
func ResolveRelativeLinks(pageURL string, entities []models.Entity) {
	for i := range entities {
		for _, field := range linkFields {
			if v := entities[i].Fields[field]; v != "" {
				entities[i].Fields[field] = ResolveURL(pageURL, v)
			}
		}
	}
}
