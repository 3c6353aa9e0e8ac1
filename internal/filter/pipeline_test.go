package filter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/law-makers/harvest/pkg/models"
)

// fakeModel is a canned llm.Client for pipeline tests.
type fakeModel struct {
	reply string
	err   error
	calls int
}

func (f *fakeModel) Complete(_ context.Context, _ string, _ int) (string, error) {
	f.calls++
	return f.reply, f.err
}

func product(name, price string, extra map[string]string) models.Entity {
	fields := map[string]string{"name": name, "price": price}
	for k, v := range extra {
		fields[k] = v
	}
	return models.Entity{Fields: fields, Confidence: 1.0, Completeness: 1.0}
}

func names(entities []models.Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Field("name"))
	}
	return out
}

func TestRunNoCriteriaPassThrough(t *testing.T) {
	entities := []models.Entity{
		product("A", "$10.00", nil),
		product("B", "$20.00", nil),
	}

	kept, report, err := New(nil).Run(context.Background(), "show me all the products", entities)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(kept) != 2 {
		t.Errorf("Expected pass-through, got %d entities", len(kept))
	}
	if len(report.Stages) != 1 || report.Stages[0].Stage != "parse" {
		t.Errorf("Expected a single parse stage, got %+v", report.Stages)
	}
}

func TestRunNumericFilter(t *testing.T) {
	entities := []models.Entity{
		product("Compact", "$400.00", map[string]string{"weight": "500 g"}),
		product("Heavy", "$400.00", map[string]string{"weight": "2 kg"}),
		product("Premium", "$600.00", map[string]string{"weight": "500 g"}),
		product("Mystery", "$100.00", nil),
	}
	instruction := "price under 500 weighing less than 1 kg"

	kept, report, err := New(nil).Run(context.Background(), instruction, entities)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(kept) != 1 || kept[0].Field("name") != "Compact" {
		t.Errorf("Expected only Compact to survive, got %v", names(kept))
	}

	if len(report.Stages) != 2 {
		t.Fatalf("Expected 2 numeric stages, got %d", len(report.Stages))
	}
	for _, stage := range report.Stages {
		if !strings.HasPrefix(stage.Stage, "numeric:") {
			t.Errorf("Expected numeric stage name, got %q", stage.Stage)
		}
	}

	// The entity without any weight text is rejected as unresolved, not
	// passed by default.
	var weightStage *models.StageResult
	for i := range report.Stages {
		if report.Stages[i].Stage == "numeric:weight" {
			weightStage = &report.Stages[i]
		}
	}
	if weightStage == nil {
		t.Fatal("Expected a numeric:weight stage")
	}
	foundUnresolved := false
	for _, reason := range weightStage.Rejected {
		if strings.Contains(reason, "Mystery") && strings.Contains(reason, "unresolved") {
			foundUnresolved = true
		}
	}
	if !foundUnresolved {
		t.Errorf("Expected Mystery rejected as unresolved, got %v", weightStage.Rejected)
	}
}

func TestRunMatchesManualIntersection(t *testing.T) {
	entities := []models.Entity{
		product("A", "$400.00", map[string]string{"weight": "500 g"}),
		product("B", "$450.00", map[string]string{"weight": "1.5 kg"}),
		product("C", "$600.00", map[string]string{"weight": "200 g"}),
		product("D", "$90.00", map[string]string{"weight": "900 g"}),
	}
	ctx := context.Background()
	p := New(nil)

	byPrice, _, err := p.Run(ctx, "price under 500", entities)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	byWeight, _, err := p.Run(ctx, "weighing less than 1 kg", entities)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	combined, _, err := p.Run(ctx, "price under 500 weighing less than 1 kg", entities)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	intersection := make(map[string]bool)
	weightSet := make(map[string]bool)
	for _, n := range names(byWeight) {
		weightSet[n] = true
	}
	for _, n := range names(byPrice) {
		if weightSet[n] {
			intersection[n] = true
		}
	}

	if len(combined) != len(intersection) {
		t.Fatalf("Combined filter kept %v, manual intersection is %v", names(combined), intersection)
	}
	for _, n := range names(combined) {
		if !intersection[n] {
			t.Errorf("Combined filter kept %q outside the intersection", n)
		}
	}
}

func TestRunFailsClosedOnUnknownUnit(t *testing.T) {
	entities := []models.Entity{
		product("Carafe", "$25.00", map[string]string{"volume": "750 ml"}),
		product("Pitcher", "$25.00", map[string]string{"volume": "2 quarts"}),
	}

	kept, _, err := New(nil).Run(context.Background(), "volume under 1 l", entities)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(kept) != 1 || kept[0].Field("name") != "Carafe" {
		t.Errorf("Expected the quart pitcher excluded, got %v", names(kept))
	}
}

func TestRunSemanticWithoutModel(t *testing.T) {
	entities := []models.Entity{
		product("BT Headset", "$50.00", nil),
		product("Wired Earbuds", "$20.00", nil),
	}

	kept, report, err := New(nil).Run(context.Background(), "find wireless headphones", entities)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Without a model, semantic criteria warn instead of guessing.
	if len(kept) != 2 {
		t.Errorf("Expected all entities kept, got %d", len(kept))
	}
	if len(report.Warnings) != 2 {
		t.Fatalf("Expected a warning per semantic keyword, got %v", report.Warnings)
	}
	for _, w := range report.Warnings {
		if !strings.Contains(w, "no language model configured") {
			t.Errorf("Unexpected warning text: %q", w)
		}
	}
}

func TestRunSemanticStage(t *testing.T) {
	entities := []models.Entity{
		product("AirWave Buds", "$90.00", nil),
		product("CableCo Earbuds", "$15.00", nil),
	}

	accept := &fakeModel{reply: `{"verdict": true, "confidence": 0.9}`}
	kept, report, err := New(accept).Run(context.Background(), "find wireless earbuds", entities)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(kept) != 2 {
		t.Errorf("Expected all kept on positive verdicts, got %d", len(kept))
	}
	if accept.calls == 0 {
		t.Error("Expected the model consulted")
	}
	for _, stage := range report.Stages {
		if !strings.HasPrefix(stage.Stage, "semantic:") {
			t.Errorf("Expected semantic stage names, got %q", stage.Stage)
		}
	}

	reject := &fakeModel{reply: `{"verdict": false, "confidence": 0.9}`}
	kept, _, err = New(reject).Run(context.Background(), "find wireless earbuds", entities)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(kept) != 0 {
		t.Errorf("Expected all dropped on negative verdicts, got %d", len(kept))
	}

	// Low confidence fails the keep threshold.
	hesitant := &fakeModel{reply: `{"verdict": true, "confidence": 0.3}`}
	kept, _, err = New(hesitant).Run(context.Background(), "find wireless earbuds", entities)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(kept) != 0 {
		t.Errorf("Expected low-confidence verdicts dropped, got %d", len(kept))
	}
}

func TestRunSemanticVerdictUnavailable(t *testing.T) {
	entities := []models.Entity{product("Gadget", "$10.00", nil)}

	broken := &fakeModel{err: errors.New("upstream 503")}
	kept, report, err := New(broken).Run(context.Background(), "find waterproof gadgets", entities)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// A failed verdict drops the entity; semantic criteria are demands.
	if len(kept) != 0 {
		t.Errorf("Expected entity dropped on verdict failure, got %d", len(kept))
	}
	if len(report.Stages) == 0 {
		t.Fatal("Expected semantic stages recorded")
	}
	rejected := report.Stages[0].Rejected
	if len(rejected) == 0 || !strings.Contains(rejected[0], "verdict unavailable") {
		t.Errorf("Expected verdict-unavailable rejection, got %v", rejected)
	}
}
