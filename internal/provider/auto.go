// internal/provider/auto.go
package provider

import (
	"context"
	"fmt"

	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Auto dispatches on the requested mode: static and spa are honored as-is,
// auto tries the static provider first and escalates to browser rendering
// when the static snapshot looks like an unrendered SPA shell.
type Auto struct {
	static  Provider
	dynamic Provider
}

// NewAuto creates an auto provider composing a static and a dynamic provider
func NewAuto(static *Static, dynamic *Dynamic) *Auto {
	a := &Auto{}
	if static != nil {
		a.static = static
	}
	if dynamic != nil {
		a.dynamic = dynamic
	}
	return a
}

// Name returns the name of this provider
func (a *Auto) Name() string {
	return "auto"
}

// Snapshot honors an explicit mode, otherwise fetches statically and
// re-fetches with the browser if the page likely needs JavaScript to render
// its content.
func (a *Auto) Snapshot(ctx context.Context, opts models.RequestOptions) (*snapshot.Snapshot, error) {
	switch opts.Mode {
	case models.ModeStatic:
		return a.static.Snapshot(ctx, opts)
	case models.ModeSPA:
		if a.dynamic == nil {
			return nil, fmt.Errorf("browser rendering requested but no dynamic provider is configured")
		}
		return a.dynamic.Snapshot(ctx, opts)
	}

	snap, err := a.static.Snapshot(ctx, opts)
	if err == nil && !needsJavaScript(snap) {
		return snap, nil
	}
	if err != nil {
		log.Debug().Err(err).Str("url", opts.URL).Msg("Static fetch failed, escalating to browser")
	} else {
		log.Debug().
			Str("url", opts.URL).
			Int("elements", snap.Len()).
			Int("scripts", snap.ScriptCount).
			Msg("Static snapshot looks unrendered, escalating to browser")
	}
	if a.dynamic == nil {
		return snap, err
	}
	return a.dynamic.Snapshot(ctx, opts)
}

// needsJavaScript determines if a page likely needs JS rendering.
// Heavy script usage or a near-empty body are the SPA tells.
func needsJavaScript(snap *snapshot.Snapshot) bool {
	if snap.ScriptCount > 5 && snap.Len() < 30 {
		return true
	}
	// Minimal HTML content with scripts present is typical of SPA shells
	if snap.Len() < 3 && snap.ScriptCount > 0 {
		return true
	}
	return false
}
