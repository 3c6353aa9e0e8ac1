// Package provider produces page snapshots for the extraction engine.
// Three implementations cover the fetch strategies: static HTTP fetch,
// full headless-browser rendering, and an auto provider that starts
// static and escalates to the browser when the page looks unrendered.
package provider

import (
	"context"

	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/law-makers/harvest/pkg/models"
)

// Provider is the page snapshot accessor boundary. Implementations must be
// read-only with respect to the target page and safe for concurrent use.
type Provider interface {
	// Snapshot fetches the page and returns its structural view.
	Snapshot(ctx context.Context, opts models.RequestOptions) (*snapshot.Snapshot, error)

	// Name returns the name of the provider implementation
	Name() string
}
