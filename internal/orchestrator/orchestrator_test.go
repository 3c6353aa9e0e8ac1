package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/law-makers/harvest/internal/detect"
	"github.com/law-makers/harvest/internal/fields"
	"github.com/law-makers/harvest/internal/filter"
	"github.com/law-makers/harvest/internal/knowledge"
	"github.com/law-makers/harvest/internal/provider"
	"github.com/law-makers/harvest/internal/recipes"
	"github.com/law-makers/harvest/internal/validate"
	"github.com/law-makers/harvest/pkg/models"
)

func catalogHTML(n int) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Catalog</title></head><body><section class="listing">`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<div class="product-card">
<h3>Gadget %d</h3>
<span class="price">$%d.00</span>
<a href="/p/%d"><img src="/img/%d.jpg"></a>
</div>`, i, i*40, i, i)
	}
	b.WriteString(`</section></body></html>`)
	return b.String()
}

func catalogServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == "/empty" {
			fmt.Fprint(w, `<html><body><p>Nothing to see here.</p></body></html>`)
			return
		}
		fmt.Fprint(w, catalogHTML(n))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOrchestrator(t *testing.T, srv *httptest.Server) (*Orchestrator, *knowledge.Memory, *recipes.Repo) {
	t.Helper()
	repo, err := recipes.NewRepo(t.TempDir())
	if err != nil {
		t.Fatalf("creating recipe repo: %v", err)
	}
	store := knowledge.NewMemory()
	static := provider.NewStatic(nil, nil, srv.Client(), 10*time.Second, "harvest-test")
	validator := validate.New(validate.Config{}, nil)
	pipeline := filter.New(nil)

	orch := New(static, store, repo, validator, pipeline, detect.Config{}, fields.Config{})
	return orch, store, repo
}

func TestExtractCascade(t *testing.T) {
	srv := catalogServer(t, 20)
	orch, store, repo := testOrchestrator(t, srv)
	ctx := context.Background()

	req := Request{URL: srv.URL + "/catalog", Task: "products"}
	result, err := orch.Extract(ctx, req)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(result.Entities) != 20 {
		t.Errorf("Expected 20 entities, got %d", len(result.Entities))
	}
	if result.Exhausted {
		t.Error("Expected a successful run, got exhaustion")
	}

	// No recipe exists yet, so the cascade falls through to detection.
	if len(result.Trace) != 2 {
		t.Fatalf("Expected 2 trace records, got %d", len(result.Trace))
	}
	if result.Trace[0].Algorithm != AlgoKnownStrategy || result.Trace[0].Success {
		t.Errorf("Expected failed known-strategy attempt first, got %+v", result.Trace[0])
	}
	if result.Trace[1].Algorithm != AlgoStatistical || !result.Trace[1].Success {
		t.Errorf("Expected statistical success second, got %+v", result.Trace[1])
	}
	if result.Trace[1].Items != 20 {
		t.Errorf("Expected 20 items recorded, got %d", result.Trace[1].Items)
	}

	// The knowledge base saw every attempt.
	stats, err := store.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if stats.TotalExecutions != 2 {
		t.Errorf("Expected 2 recorded executions, got %d", stats.TotalExecutions)
	}

	// The winning strategy became a recipe.
	if result.StrategyUsed == nil {
		t.Fatal("Expected a strategy recorded")
	}
	if result.StrategyUsed.Algorithm != AlgoStatistical {
		t.Errorf("Expected statistical strategy, got %q", result.StrategyUsed.Algorithm)
	}
	wantFallbacks := []string{AlgoSemantic, AlgoFrequency, AlgoGeometry}
	if !reflect.DeepEqual(result.StrategyUsed.FallbackAlgorithms, wantFallbacks) {
		t.Errorf("Expected fallbacks %v, got %v", wantFallbacks, result.StrategyUsed.FallbackAlgorithms)
	}

	saved, err := repo.Find(knowledge.Domain(req.URL), req.Task)
	if err != nil {
		t.Fatalf("Expected a persisted recipe: %v", err)
	}
	if saved.Selector != "div.product-card" {
		t.Errorf("Expected container selector persisted, got %q", saved.Selector)
	}
	if saved.Fields["price"] != "span.price" {
		t.Errorf("Expected price selector persisted, got %q", saved.Fields["price"])
	}
}

func TestExtractReusesRecipe(t *testing.T) {
	srv := catalogServer(t, 8)
	orch, _, repo := testOrchestrator(t, srv)
	ctx := context.Background()

	req := Request{URL: srv.URL + "/catalog", Task: "products"}
	if _, err := orch.Extract(ctx, req); err != nil {
		t.Fatalf("First extract failed: %v", err)
	}

	result, err := orch.Extract(ctx, req)
	if err != nil {
		t.Fatalf("Second extract failed: %v", err)
	}
	if len(result.Trace) != 1 {
		t.Fatalf("Expected the recipe to short-circuit the cascade, trace: %+v", result.Trace)
	}
	if result.Trace[0].Algorithm != AlgoKnownStrategy || !result.Trace[0].Success {
		t.Errorf("Expected known-strategy success, got %+v", result.Trace[0])
	}
	if len(result.Entities) != 8 {
		t.Errorf("Expected 8 entities from replay, got %d", len(result.Entities))
	}

	// Reuse bumped the recipe metadata.
	saved, err := repo.Find(knowledge.Domain(req.URL), req.Task)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if saved.Metadata.UseCount != 2 {
		t.Errorf("Expected use count 2 after replay, got %d", saved.Metadata.UseCount)
	}
}

func TestExtractAppliesFilter(t *testing.T) {
	srv := catalogServer(t, 20)
	orch, _, _ := testOrchestrator(t, srv)

	req := Request{
		URL:         srv.URL + "/catalog",
		Task:        "products",
		Instruction: "price under 500",
	}
	result, err := orch.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Prices run $40..$800 in $40 steps; 12 fall under $500.
	if len(result.Entities) != 12 {
		t.Errorf("Expected 12 filtered entities, got %d", len(result.Entities))
	}
	if result.FilterReport == nil {
		t.Fatal("Expected a filter report")
	}
	if len(result.FilterReport.Stages) == 0 {
		t.Error("Expected filter stages recorded")
	}
}

func TestExtractExhaustion(t *testing.T) {
	srv := catalogServer(t, 20)
	orch, _, _ := testOrchestrator(t, srv)

	req := Request{URL: srv.URL + "/empty", Task: "products"}
	result, err := orch.Extract(context.Background(), req)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("Expected ErrExhausted, got %v", err)
	}
	if result == nil || !result.Exhausted {
		t.Fatal("Expected an exhausted result with the trace attached")
	}
	if len(result.Entities) != 0 {
		t.Errorf("Expected no entities, got %d", len(result.Entities))
	}

	// Every cascade step left a failure record.
	if len(result.Trace) != 5 {
		t.Fatalf("Expected 5 attempts traced, got %d", len(result.Trace))
	}
	seen := make(map[string]bool)
	for _, rec := range result.Trace {
		if rec.Success {
			t.Errorf("Expected only failures in the trace, got %+v", rec)
		}
		if rec.FailureKind == "" {
			t.Errorf("Expected a failure kind on %s", rec.Algorithm)
		}
		seen[rec.Algorithm] = true
	}
	for _, alg := range []string{AlgoKnownStrategy, AlgoStatistical, AlgoSemantic, AlgoFrequency, AlgoGeometry} {
		if !seen[alg] {
			t.Errorf("Expected %s attempted before exhaustion", alg)
		}
	}
}

func TestExtractSnapshotFailure(t *testing.T) {
	srv := catalogServer(t, 5)
	orch, _, _ := testOrchestrator(t, srv)

	_, err := orch.Extract(context.Background(), Request{URL: srv.URL + "/missing", Task: "products"})
	if err == nil {
		t.Fatal("Expected an error for an unreachable page")
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Expected a StepError, got %T", err)
	}
	if stepErr.Code != ErrCodeExtraction {
		t.Errorf("Expected extraction failure code, got %s", stepErr.Code)
	}
}

func TestMergeOrder(t *testing.T) {
	tests := []struct {
		suggested []string
		want      []string
	}{
		{nil, detectionOrder},
		{[]string{AlgoGeometry}, []string{AlgoGeometry, AlgoStatistical, AlgoSemantic, AlgoFrequency}},
		{[]string{"made-up", AlgoFrequency}, []string{AlgoFrequency, AlgoStatistical, AlgoSemantic, AlgoGeometry}},
		{[]string{AlgoKnownStrategy, AlgoFrequency}, []string{AlgoFrequency, AlgoStatistical, AlgoSemantic, AlgoGeometry}},
		{[]string{AlgoFrequency, AlgoFrequency}, []string{AlgoFrequency, AlgoStatistical, AlgoSemantic, AlgoGeometry}},
	}
	for _, tt := range tests {
		got := mergeOrder(tt.suggested, detectionOrder)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("mergeOrder(%v) = %v, want %v", tt.suggested, got, tt.want)
		}
	}
}

func TestFallbacksAfter(t *testing.T) {
	tests := []struct {
		algorithm string
		want      []string
	}{
		{AlgoStatistical, []string{AlgoSemantic, AlgoFrequency, AlgoGeometry}},
		{AlgoFrequency, []string{AlgoGeometry}},
		{AlgoGeometry, nil},
		{AlgoKnownStrategy, nil},
	}
	for _, tt := range tests {
		got := fallbacksAfter(tt.algorithm)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("fallbacksAfter(%s) = %v, want %v", tt.algorithm, got, tt.want)
		}
	}
}

func TestStepError(t *testing.T) {
	inner := errors.New("boom")
	err := NewStepError(ErrCodeValidation, AlgoStatistical, "candidate rejected", inner)

	if !errors.Is(err, inner) {
		t.Error("Expected the underlying error to unwrap")
	}
	if !errors.Is(err, &StepError{Code: ErrCodeValidation}) {
		t.Error("Expected code-based matching between StepErrors")
	}
	if errors.Is(err, &StepError{Code: ErrCodeDetection}) {
		t.Error("Expected different codes not to match")
	}
	msg := err.Error()
	if !strings.Contains(msg, string(ErrCodeValidation)) || !strings.Contains(msg, AlgoStatistical) {
		t.Errorf("Unexpected error text: %q", msg)
	}
}

// inventoryHTML builds a listing where price and weight slice the cards into
// known groups: cards 1-3 are cheap and light, 4-9 cheap but heavy, 10-12
// cheap with no weight at all, and 13-20 light but expensive.
func inventoryHTML() string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Inventory</title></head><body><section class="listing">`)
	for i := 1; i <= 20; i++ {
		price, weight := "$1,500.00", `<span class="weight">250 g</span>`
		switch {
		case i >= 13:
			price = "$2,500.00"
		case i >= 10:
			weight = ""
		case i >= 4:
			weight = `<span class="weight">750 g</span>`
		}
		fmt.Fprintf(&b, `<div class="product-card">
<h3>Field Kit %d</h3>
<span class="price">%s</span>
%s
<a href="/p/%d"><img src="/img/%d.jpg"></a>
</div>`, i, price, weight, i, i)
	}
	b.WriteString(`</section></body></html>`)
	return b.String()
}

func TestExtractEndToEndScenario(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, inventoryHTML())
	}))
	t.Cleanup(srv.Close)
	orch, _, _ := testOrchestrator(t, srv)

	req := Request{
		URL:         srv.URL + "/inventory",
		Task:        "products",
		Instruction: "find products under 2000 and under 500g",
		Fields:      []string{"name", "price", "weight", "url", "image"},
	}
	result, err := orch.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Only cards 1-3 are both under $2000 and under 500 g; the ones without
	// a weight are excluded rather than passed through.
	if len(result.Entities) != 3 {
		t.Fatalf("Expected exactly 3 entities, got %d: %+v", len(result.Entities), result.Entities)
	}
	for i := range result.Entities {
		e := &result.Entities[i]
		if e.Field("price") != "$1,500.00" {
			t.Errorf("Entity %d: unexpected price %q", i, e.Field("price"))
		}
		if e.Field("weight") != "250 g" {
			t.Errorf("Entity %d: unexpected weight %q", i, e.Field("weight"))
		}
	}

	if result.FilterReport == nil {
		t.Fatal("Expected a filter report")
	}
	var stages []string
	for _, s := range result.FilterReport.Stages {
		stages = append(stages, s.Stage)
	}
	want := []string{"numeric:price", "numeric:weight"}
	if !reflect.DeepEqual(stages, want) {
		t.Errorf("Expected stages %v, got %v", want, stages)
	}
}

// wornRecipe is a recipe whose own EMA has dipped below the reuse threshold.
func wornRecipe(domain string) *models.Strategy {
	return &models.Strategy{
		URLPattern: domain,
		Task:       "products",
		Algorithm:  AlgoStatistical,
		Selector:   "div.product-card",
		Fields: map[string]string{
			"name":  "h3",
			"price": "span.price",
			"url":   "a",
			"image": "img",
		},
		Metadata: models.StrategyMetadata{SuccessRate: 0.4, UseCount: 5},
	}
}

func TestExtractSkipsWornRecipe(t *testing.T) {
	srv := catalogServer(t, 8)
	orch, _, repo := testOrchestrator(t, srv)
	ctx := context.Background()

	req := Request{URL: srv.URL + "/catalog", Task: "products"}
	if err := repo.Save(wornRecipe(knowledge.Domain(req.URL))); err != nil {
		t.Fatalf("Saving recipe: %v", err)
	}

	result, err := orch.Extract(ctx, req)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Trace[0].Algorithm != AlgoKnownStrategy || result.Trace[0].Success {
		t.Errorf("Expected the worn recipe skipped, got %+v", result.Trace[0])
	}
	if len(result.Trace) < 2 || result.Trace[1].Algorithm != AlgoStatistical || !result.Trace[1].Success {
		t.Errorf("Expected detection to take over, trace: %+v", result.Trace)
	}
}

func TestExtractRecipeRescuedByHistory(t *testing.T) {
	srv := catalogServer(t, 8)
	orch, store, repo := testOrchestrator(t, srv)
	ctx := context.Background()

	req := Request{URL: srv.URL + "/catalog", Task: "products"}
	domain := knowledge.Domain(req.URL)
	if err := repo.Save(wornRecipe(domain)); err != nil {
		t.Fatalf("Saving recipe: %v", err)
	}

	// The execution log still backs the recipe's algorithm above thresholds,
	// so the dip in its own EMA does not bench it.
	for i := 0; i < 2; i++ {
		store.RecordExecution(ctx, models.ExecutionRecord{
			Domain:    domain,
			Task:      req.Task,
			Algorithm: AlgoStatistical,
			Success:   true,
			Timestamp: time.Now().UTC(),
		})
	}

	result, err := orch.Extract(ctx, req)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Trace) != 1 {
		t.Fatalf("Expected the recipe replay to short-circuit, trace: %+v", result.Trace)
	}
	if result.Trace[0].Algorithm != AlgoKnownStrategy || !result.Trace[0].Success {
		t.Errorf("Expected a known-strategy success, got %+v", result.Trace[0])
	}
	if len(result.Entities) != 8 {
		t.Errorf("Expected 8 entities from replay, got %d", len(result.Entities))
	}
}
