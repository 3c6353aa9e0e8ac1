package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/law-makers/harvest/pkg/models"
)

func record(domain, task, algorithm string, success bool) models.ExecutionRecord {
	return models.ExecutionRecord{
		Domain:    domain,
		Task:      task,
		Algorithm: algorithm,
		Success:   success,
		Items:     12,
		Timestamp: time.Now().UTC(),
	}
}

func seedStore(ctx context.Context, m *Memory) {
	// statistical: 3 of 4 → 0.75
	m.RecordExecution(ctx, record("shop.example", "products", "statistical", true))
	m.RecordExecution(ctx, record("shop.example", "products", "statistical", true))
	m.RecordExecution(ctx, record("shop.example", "products", "statistical", true))
	m.RecordExecution(ctx, record("shop.example", "products", "statistical", false))
	// frequency: 1 of 2 → 0.5
	m.RecordExecution(ctx, record("shop.example", "products", "frequency", true))
	m.RecordExecution(ctx, record("shop.example", "products", "frequency", false))
	// geometry: 1 of 1 → 1.0 but only one sample
	m.RecordExecution(ctx, record("shop.example", "products", "geometry", true))
}

func TestRankingsOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedStore(ctx, m)

	rankings, err := m.Rankings(ctx, "shop.example", "products")
	if err != nil {
		t.Fatalf("Rankings failed: %v", err)
	}
	if len(rankings) != 3 {
		t.Fatalf("Expected 3 algorithms ranked, got %d", len(rankings))
	}

	wantOrder := []string{"geometry", "statistical", "frequency"}
	for i, want := range wantOrder {
		if rankings[i].Algorithm != want {
			t.Errorf("Rank %d: expected %s, got %s", i, want, rankings[i].Algorithm)
		}
	}
	if rankings[1].SuccessRate != 0.75 || rankings[1].Samples != 4 {
		t.Errorf("Expected statistical at 0.75 over 4 samples, got %v over %d",
			rankings[1].SuccessRate, rankings[1].Samples)
	}
}

func TestRankingsFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedStore(ctx, m)
	m.RecordExecution(ctx, record("other.example", "products", "frequency", true))
	m.RecordExecution(ctx, record("shop.example", "reviews", "statistical", true))

	rankings, err := m.Rankings(ctx, "other.example", "products")
	if err != nil {
		t.Fatalf("Rankings failed: %v", err)
	}
	if len(rankings) != 1 || rankings[0].Algorithm != "frequency" {
		t.Errorf("Expected only other.example records, got %+v", rankings)
	}

	// Empty domain and task aggregate across everything.
	all, err := m.Rankings(ctx, "", "")
	if err != nil {
		t.Fatalf("Rankings failed: %v", err)
	}
	total := 0
	for _, r := range all {
		total += r.Samples
	}
	if total != 9 {
		t.Errorf("Expected 9 records aggregated, got %d", total)
	}
}

func TestBestAlgorithmThresholds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedStore(ctx, m)

	// geometry leads the ranking but has a single sample; statistical is
	// the best algorithm that clears both thresholds.
	alg, ok, err := m.BestAlgorithm(ctx, "shop.example", "products")
	if err != nil {
		t.Fatalf("BestAlgorithm failed: %v", err)
	}
	if !ok || alg != "statistical" {
		t.Errorf("Expected statistical, got %q (ok=%v)", alg, ok)
	}

	// A domain with only failures has no best algorithm.
	m2 := NewMemory()
	m2.RecordExecution(ctx, record("fail.example", "products", "statistical", false))
	m2.RecordExecution(ctx, record("fail.example", "products", "statistical", false))
	if _, ok, _ := m2.BestAlgorithm(ctx, "fail.example", "products"); ok {
		t.Error("Expected no best algorithm for an all-failure history")
	}
}

func TestSuggestAlgorithms(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedStore(ctx, m)

	// Known domain: local history decides.
	local, err := m.SuggestAlgorithms(ctx, "https://www.shop.example/catalog", "products")
	if err != nil {
		t.Fatalf("SuggestAlgorithms failed: %v", err)
	}
	if len(local) == 0 || local[0] != "geometry" {
		t.Errorf("Expected geometry suggested first locally, got %v", local)
	}

	// Unknown domain: cross-domain task history decides.
	global, err := m.SuggestAlgorithms(ctx, "https://fresh.example/items", "products")
	if err != nil {
		t.Fatalf("SuggestAlgorithms failed: %v", err)
	}
	if len(global) == 0 {
		t.Error("Expected cross-domain suggestions for an unknown domain")
	}

	// No history at all: nothing to suggest.
	empty := NewMemory()
	none, err := empty.SuggestAlgorithms(ctx, "https://fresh.example/items", "products")
	if err != nil {
		t.Fatalf("SuggestAlgorithms failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no suggestions from an empty store, got %v", none)
	}
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedStore(ctx, m)

	stats, err := m.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if stats.TotalExecutions != 7 {
		t.Errorf("Expected 7 executions, got %d", stats.TotalExecutions)
	}
	want := 5.0 / 7.0
	if diff := stats.OverallSuccessRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected success rate %v, got %v", want, stats.OverallSuccessRate)
	}
	if len(stats.TopAlgorithms) == 0 {
		t.Error("Expected top algorithms listed")
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.shop.example/catalog?page=2", "shop.example"},
		{"https://shop.example", "shop.example"},
		{"http://127.0.0.1:8080/x", "127.0.0.1:8080"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		if got := Domain(tt.url); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
