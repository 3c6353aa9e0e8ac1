package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/law-makers/harvest/pkg/models"
)

type stubProvider struct {
	snap  *snapshot.Snapshot
	err   error
	calls int
}

func (s *stubProvider) Snapshot(ctx context.Context, opts models.RequestOptions) (*snapshot.Snapshot, error) {
	s.calls++
	return s.snap, s.err
}

func (s *stubProvider) Name() string { return "stub" }

func snapFrom(t *testing.T, html string) *snapshot.Snapshot {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return snapshot.FromDocument("https://shop.example/catalog", doc)
}

// spaShell is the unrendered single-page-app tell: scripts and an empty mount.
func spaShell(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	return snapFrom(t, `<html><head><script src="app.js"></script></head>
<body><div id="app"></div></body></html>`)
}

func renderedPage(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	return snapFrom(t, `<html><body>
<div class="card"><h3>Widget A</h3><span>$10.00</span></div>
<div class="card"><h3>Widget B</h3><span>$12.00</span></div>
<div class="card"><h3>Widget C</h3><span>$14.00</span></div>
</body></html>`)
}

func TestAutoEscalatesUnrenderedShell(t *testing.T) {
	static := &stubProvider{snap: spaShell(t)}
	dynamic := &stubProvider{snap: renderedPage(t)}
	auto := &Auto{static: static, dynamic: dynamic}

	snap, err := auto.Snapshot(context.Background(), models.RequestOptions{URL: "https://shop.example"})
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if static.calls != 1 || dynamic.calls != 1 {
		t.Errorf("Expected static then dynamic fetch, got %d/%d calls", static.calls, dynamic.calls)
	}
	if snap != dynamic.snap {
		t.Error("Expected the browser-rendered snapshot to win")
	}
}

func TestAutoStaysStaticWhenRendered(t *testing.T) {
	static := &stubProvider{snap: renderedPage(t)}
	dynamic := &stubProvider{}
	auto := &Auto{static: static, dynamic: dynamic}

	snap, err := auto.Snapshot(context.Background(), models.RequestOptions{URL: "https://shop.example"})
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if dynamic.calls != 0 {
		t.Errorf("Expected no browser fetch for a rendered page, got %d", dynamic.calls)
	}
	if snap != static.snap {
		t.Error("Expected the static snapshot")
	}
}

func TestAutoModeStaticNeverEscalates(t *testing.T) {
	static := &stubProvider{snap: spaShell(t)}
	dynamic := &stubProvider{}
	auto := &Auto{static: static, dynamic: dynamic}

	opts := models.RequestOptions{URL: "https://shop.example", Mode: models.ModeStatic}
	snap, err := auto.Snapshot(context.Background(), opts)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if dynamic.calls != 0 {
		t.Errorf("Static mode must not touch the browser, got %d calls", dynamic.calls)
	}
	if snap != static.snap {
		t.Error("Expected the static snapshot even when it looks unrendered")
	}
}

func TestAutoModeSPASkipsStatic(t *testing.T) {
	static := &stubProvider{snap: renderedPage(t)}
	dynamic := &stubProvider{snap: renderedPage(t)}
	auto := &Auto{static: static, dynamic: dynamic}

	opts := models.RequestOptions{URL: "https://shop.example", Mode: models.ModeSPA}
	if _, err := auto.Snapshot(context.Background(), opts); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if static.calls != 0 {
		t.Errorf("SPA mode must not fetch statically, got %d calls", static.calls)
	}
	if dynamic.calls != 1 {
		t.Errorf("Expected one browser fetch, got %d", dynamic.calls)
	}
}

func TestAutoModeSPAWithoutBrowser(t *testing.T) {
	auto := &Auto{static: &stubProvider{snap: renderedPage(t)}}

	opts := models.RequestOptions{URL: "https://shop.example", Mode: models.ModeSPA}
	if _, err := auto.Snapshot(context.Background(), opts); err == nil {
		t.Fatal("Expected an error when no dynamic provider is configured")
	}
}

func TestNewAutoNilDynamic(t *testing.T) {
	auto := NewAuto(nil, (*Dynamic)(nil))
	if auto.dynamic != nil {
		t.Error("Expected a nil *Dynamic to stay a nil provider")
	}
}

func TestNeedsJavaScript(t *testing.T) {
	if !needsJavaScript(spaShell(t)) {
		t.Error("Expected a script-only shell to need rendering")
	}
	if needsJavaScript(renderedPage(t)) {
		t.Error("Expected a populated page to pass as rendered")
	}
}
