package filter

import (
	"errors"
	"math"
	"testing"

	"github.com/law-makers/harvest/pkg/models"
)

func TestParseComparators(t *testing.T) {
	tests := []struct {
		instruction string
		field       string
		op          models.Operator
		value       float64
	}{
		{"show products under 500", "price", models.OpLT, 500},
		{"price below 200 usd", "price", models.OpLT, 200},
		{"items over 50 eur", "price", models.OpGT, 50},
		{"cost at least 10", "price", models.OpGTE, 10},
		{"price at most 99", "price", models.OpLTE, 99},
		{"weight less than 500 g", "weight", models.OpLT, 500},
		{"weighing more than 1,5 kg", "weight", models.OpGT, 1.5},
		{"volume under 750 ml", "volume", models.OpLT, 750},
	}
	for _, tt := range tests {
		q := Parse(tt.instruction)
		numeric := q.NumericCriteria()
		if len(numeric) != 1 {
			t.Errorf("%q: expected 1 numeric criterion, got %d", tt.instruction, len(numeric))
			continue
		}
		c := numeric[0]
		if c.Field != tt.field || c.Operator != tt.op || c.Value != tt.value {
			t.Errorf("%q: got field=%s op=%s value=%v, want field=%s op=%s value=%v",
				tt.instruction, c.Field, c.Operator, c.Value, tt.field, tt.op, tt.value)
		}
	}
}

func TestParseBetween(t *testing.T) {
	q := Parse("find products between 100 and 200 usd")

	numeric := q.NumericCriteria()
	if len(numeric) != 1 {
		t.Fatalf("Expected 1 numeric criterion, got %d", len(numeric))
	}
	c := numeric[0]
	if c.Operator != models.OpBetween {
		t.Errorf("Expected between operator, got %s", c.Operator)
	}
	if c.Value != 100 || c.UpperValue != 200 {
		t.Errorf("Expected bounds 100..200, got %v..%v", c.Value, c.UpperValue)
	}
	if c.Field != "price" {
		t.Errorf("Expected price dimension, got %s", c.Field)
	}
}

func TestParseSemanticKeywords(t *testing.T) {
	q := Parse("find wireless headphones under 100")

	numeric := q.NumericCriteria()
	if len(numeric) != 1 || numeric[0].Value != 100 {
		t.Fatalf("Expected one numeric criterion at 100, got %+v", numeric)
	}

	semantic := q.SemanticCriteria()
	keywords := make(map[string]bool)
	for _, c := range semantic {
		if !c.Semantic || c.Keyword == "" {
			t.Errorf("Malformed semantic criterion: %+v", c)
		}
		keywords[c.Keyword] = true
	}
	if !keywords["wireless"] || !keywords["headphones"] {
		t.Errorf("Expected wireless and headphones as keywords, got %v", keywords)
	}
}

func TestParseCombinatorAlwaysAND(t *testing.T) {
	q := Parse("organic under 20 or over 100")
	if q.Combinator != models.CombineAND {
		t.Errorf("Expected AND combinator, got %s", q.Combinator)
	}
}

func TestParseRequiredFields(t *testing.T) {
	q := Parse("weight under 2 kg")

	names := make(map[string]bool)
	for _, f := range q.RequiredFields {
		names[f.Name] = true
	}
	for _, want := range []string{"name", "price", "url", "weight"} {
		if !names[want] {
			t.Errorf("Expected required field %q, got %v", want, names)
		}
	}
}

func TestParseNoCriteria(t *testing.T) {
	q := Parse("")
	if len(q.Criteria) != 0 {
		t.Errorf("Expected no criteria for empty instruction, got %d", len(q.Criteria))
	}
	if Summary(q) != "no filter criteria" {
		t.Errorf("Unexpected summary: %q", Summary(q))
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"1,299.95", 1299.95},
		{"1.299,95", 1299.95},
		{"1,299", 1299},
		{"12,99", 12.99},
		{"1 299", 1299},
		{"42", 42},
		{"19.99", 19.99},
	}
	for _, tt := range tests {
		got, err := parseNumber(tt.raw)
		if err != nil {
			t.Errorf("parseNumber(%q) failed: %v", tt.raw, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("parseNumber(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	if _, err := parseNumber("abc"); err == nil {
		t.Error("Expected error for non-numeric input")
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"$19.99", 19.99},
		{"€1.299,95", 1299.95},
		{"1,299.00 USD", 1299},
		{"Sale: £5", 5},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.text)
		if err != nil {
			t.Errorf("ParsePrice(%q) failed: %v", tt.text, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParsePrice(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}

	if _, err := ParsePrice("no price here"); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("Expected ErrUnknownUnit, got %v", err)
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		text string
		dim  Dimension
		want float64
	}{
		{"750 ml", DimVolume, 750},
		{"1.5 l", DimVolume, 1500},
		{"500 g", DimWeight, 500},
		{"2 kg", DimWeight, 2000},
		{"1 lb", DimWeight, 453.592},
		{"Tea 250g loose leaf", DimWeight, 250},
	}
	for _, tt := range tests {
		got, err := ParseQuantity(tt.text, tt.dim)
		if err != nil {
			t.Errorf("ParseQuantity(%q, %s) failed: %v", tt.text, tt.dim, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("ParseQuantity(%q, %s) = %v, want %v", tt.text, tt.dim, got, tt.want)
		}
	}
}

func TestParseQuantityFailsClosed(t *testing.T) {
	// An unrecognized unit must error, never pass as a bare number.
	if _, err := ParseQuantity("2 quarts", DimVolume); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("Expected ErrUnknownUnit for quarts, got %v", err)
	}
	if _, err := ParseQuantity("plain text", DimWeight); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("Expected ErrUnknownUnit for unitless text, got %v", err)
	}
	// A weight must not satisfy a volume lookup.
	if _, err := ParseQuantity("500 g", DimVolume); err == nil {
		t.Error("Expected error when only a different dimension is present")
	}
}

func TestNormalize(t *testing.T) {
	if got, err := Normalize(2, "kg", DimWeight); err != nil || got != 2000 {
		t.Errorf("Expected 2 kg = 2000 g, got %v err=%v", got, err)
	}
	if got, err := Normalize(1.5, "l", DimVolume); err != nil || got != 1500 {
		t.Errorf("Expected 1.5 l = 1500 ml, got %v err=%v", got, err)
	}
	if got, err := Normalize(500, "", DimPrice); err != nil || got != 500 {
		t.Errorf("Expected bare price unchanged, got %v err=%v", got, err)
	}
	if _, err := Normalize(2, "quart", DimVolume); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("Expected ErrUnknownUnit for quart, got %v", err)
	}
}

func TestUnitDimension(t *testing.T) {
	tests := []struct {
		unit string
		dim  Dimension
		ok   bool
	}{
		{"kg", DimWeight, true},
		{"ml", DimVolume, true},
		{"$", DimPrice, true},
		{"usd", DimPrice, true},
		{"quarts", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		dim, ok := UnitDimension(tt.unit)
		if ok != tt.ok || dim != tt.dim {
			t.Errorf("UnitDimension(%q) = %s,%v, want %s,%v", tt.unit, dim, ok, tt.dim, tt.ok)
		}
	}
}

func TestParseCurrencyPrefixedAmounts(t *testing.T) {
	tests := []struct {
		instruction string
		op          models.Operator
		value       float64
	}{
		{"laptops under $2000", models.OpLT, 2000},
		{"phones over €500", models.OpGT, 500},
		{"at most £ 99", models.OpLTE, 99},
	}
	for _, tt := range tests {
		q := Parse(tt.instruction)
		numeric := q.NumericCriteria()
		if len(numeric) != 1 {
			t.Errorf("%q: expected 1 numeric criterion, got %d", tt.instruction, len(numeric))
			continue
		}
		c := numeric[0]
		if c.Field != "price" || c.Operator != tt.op || c.Value != tt.value {
			t.Errorf("%q: got field=%s op=%s value=%v, want price %s %v",
				tt.instruction, c.Field, c.Operator, c.Value, tt.op, tt.value)
		}
	}

	// The symbol is consumed with the amount, never left as a keyword.
	q := Parse("laptops under $2000")
	for _, c := range q.SemanticCriteria() {
		if c.Keyword != "laptops" {
			t.Errorf("Unexpected semantic keyword %q", c.Keyword)
		}
	}
}

func TestParseBetweenCurrencyPrefixed(t *testing.T) {
	q := Parse("products between $100 and $200")

	numeric := q.NumericCriteria()
	if len(numeric) != 1 {
		t.Fatalf("Expected 1 numeric criterion, got %d", len(numeric))
	}
	c := numeric[0]
	if c.Operator != models.OpBetween || c.Value != 100 || c.UpperValue != 200 {
		t.Errorf("Expected between 100..200, got %s %v..%v", c.Operator, c.Value, c.UpperValue)
	}
	if c.Field != "price" {
		t.Errorf("Expected price dimension, got %s", c.Field)
	}
}
