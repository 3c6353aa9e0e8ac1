package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/law-makers/harvest/pkg/models"
)

func TestRequestClientSharedWhenNoOverrides(t *testing.T) {
	shared := &http.Client{Timeout: 10 * time.Second}
	if got := requestClient(shared, nil, 0); got != shared {
		t.Error("Expected the shared client back when nothing is overridden")
	}
}

func TestRequestClientCopiesOnOverride(t *testing.T) {
	shared := &http.Client{Timeout: 10 * time.Second}
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}

	got := requestClient(shared, jar, 3*time.Second)
	if got == shared {
		t.Fatal("Expected a per-request copy")
	}
	if got.Timeout != 3*time.Second || got.Jar != jar {
		t.Errorf("Overrides not applied: timeout=%v jar=%v", got.Timeout, got.Jar)
	}
	if shared.Timeout != 10*time.Second || shared.Jar != nil {
		t.Errorf("Shared client mutated: timeout=%v jar=%v", shared.Timeout, shared.Jar)
	}
}

func TestStaticSnapshotLeavesSharedClientAlone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="card"><h3>Widget</h3></div></body></html>`)
	}))
	t.Cleanup(srv.Close)

	shared := srv.Client()
	shared.Timeout = 30 * time.Second
	static := NewStatic(nil, nil, shared, 10*time.Second, "harvest-test")

	opts := models.RequestOptions{URL: srv.URL, Timeout: 2 * time.Second}
	if _, err := static.Snapshot(context.Background(), opts); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if shared.Timeout != 30*time.Second {
		t.Errorf("Per-request timeout leaked into the shared client: %v", shared.Timeout)
	}
	if shared.Jar != nil {
		t.Error("Shared client jar mutated")
	}
}
