// internal/filter/units.go
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dimension is a filterable numeric axis
type Dimension string

const (
	DimPrice  Dimension = "price"
	DimWeight Dimension = "weight"
	DimVolume Dimension = "volume"
)

// ErrUnknownUnit marks a quantity whose unit could not be resolved. Filtering
// on that dimension must then exclude the affected entity, never pass it.
var ErrUnknownUnit = errors.New("unrecognized unit")

// Canonical units per dimension: prices stay in major currency units,
// weights normalize to grams, volumes to milliliters.
var weightUnits = map[string]float64{
	"mg":  0.001,
	"g":   1,
	"gr":  1,
	"kg":  1000,
	"oz":  28.3495,
	"lb":  453.592,
	"lbs": 453.592,
}

var volumeUnits = map[string]float64{
	"ml":     1,
	"cl":     10,
	"l":      1000,
	"liter":  1000,
	"litre":  1000,
	"gal":    3785.41,
	"fl oz":  29.5735,
	"fl. oz": 29.5735,
}

// UnitDimension resolves which dimension a unit token belongs to.
func UnitDimension(unit string) (Dimension, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		return "", false
	}
	if _, ok := weightUnits[u]; ok {
		return DimWeight, true
	}
	if _, ok := volumeUnits[u]; ok {
		return DimVolume, true
	}
	if currencyUnit(u) {
		return DimPrice, true
	}
	return "", false
}

func currencyUnit(u string) bool {
	switch u {
	case "$", "€", "£", "¥", "₹", "usd", "eur", "gbp", "chf", "jpy", "dollars", "euros", "pounds":
		return true
	}
	return false
}

// Normalize converts a value in the given unit to the dimension's canonical
// unit. Unknown units fail closed.
func Normalize(value float64, unit string, dim Dimension) (float64, error) {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch dim {
	case DimPrice:
		if u == "" || currencyUnit(u) {
			return value, nil
		}
	case DimWeight:
		if f, ok := weightUnits[u]; ok {
			return value * f, nil
		}
	case DimVolume:
		if f, ok := volumeUnits[u]; ok {
			return value * f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q for %s", ErrUnknownUnit, unit, dim)
}

var quantityPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*([a-z$€£¥₹]+(?:\.\s?oz)?|\b)`)
var pricePattern = regexp.MustCompile(`(?i)(?:[$€£¥₹]|USD|EUR|GBP|CHF|JPY)\s?(\d{1,3}(?:[,.\s]\d{3})*(?:[.,]\d{1,2})?)|(\d{1,3}(?:[,.\s]\d{3})*(?:[.,]\d{1,2})?)\s?(?:[$€£¥₹]|USD|EUR|GBP|CHF|JPY)`)

// ParsePrice extracts a price in major currency units from raw text.
func ParsePrice(text string) (float64, error) {
	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%w: no price in %q", ErrUnknownUnit, text)
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	return parseNumber(raw)
}

// ParseQuantity extracts the first quantity of the wanted dimension from raw
// text, normalized to the canonical unit. Fails closed when the only
// candidate quantities carry unresolvable units.
func ParseQuantity(text string, dim Dimension) (float64, error) {
	if dim == DimPrice {
		return ParsePrice(text)
	}

	var firstErr error
	for _, m := range quantityPattern.FindAllStringSubmatch(text, -1) {
		value, err := parseNumber(m[1])
		if err != nil {
			continue
		}
		unit := strings.TrimSpace(m[2])
		d, ok := UnitDimension(unit)
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
			}
			continue
		}
		if d != dim {
			continue
		}
		return Normalize(value, unit, dim)
	}
	if firstErr != nil {
		return 0, firstErr
	}
	return 0, fmt.Errorf("%w: no %s quantity in %q", ErrUnknownUnit, dim, text)
}

// parseNumber handles both 1,299.95 and 1.299,95 grouping conventions.
func parseNumber(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.299,95
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,299.95
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// Trailing two digits after a single comma are decimals; anything
		// else is grouping.
		if len(s)-lastComma-1 <= 2 && strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return strconv.ParseFloat(s, 64)
}
