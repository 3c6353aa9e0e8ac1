// internal/filter/attrs.go
package filter

import (
	"strings"

	"github.com/law-makers/harvest/pkg/models"
)

// Attributes are one entity's typed, unit-normalized filter inputs.
// A nil pointer means the dimension could not be resolved from any of the
// entity's text; filtering on that dimension then fails closed.
type Attributes struct {
	Price  *float64
	Weight *float64 // grams
	Volume *float64 // milliliters
	Tags   map[string]bool
}

// Value returns the attribute for a dimension and whether it resolved.
func (a *Attributes) Value(dim Dimension) (float64, bool) {
	switch dim {
	case DimPrice:
		if a.Price != nil {
			return *a.Price, true
		}
	case DimWeight:
		if a.Weight != nil {
			return *a.Weight, true
		}
	case DimVolume:
		if a.Volume != nil {
			return *a.Volume, true
		}
	}
	return 0, false
}

// Derive extracts typed attributes from an entity's raw text fields.
// Dedicated fields are tried first; name and description text second, since
// listings routinely fold "500g" into the product name.
func Derive(e *models.Entity) Attributes {
	attrs := Attributes{Tags: make(map[string]bool)}

	attrs.Price = deriveDim(e, DimPrice, "price")
	attrs.Weight = deriveDim(e, DimWeight, "weight")
	attrs.Volume = deriveDim(e, DimVolume, "volume")

	for _, source := range []string{"name", "description"} {
		for _, word := range strings.Fields(strings.ToLower(e.Field(source))) {
			w := strings.Trim(word, ".,!?;:()\"'")
			if len(w) >= 3 {
				attrs.Tags[w] = true
			}
		}
	}

	return attrs
}

// deriveDim resolves one dimension: the dedicated field first, then the
// descriptive text fields.
func deriveDim(e *models.Entity, dim Dimension, fieldName string) *float64 {
	sources := []string{e.Field(fieldName), e.Field("name"), e.Field("description")}
	for _, text := range sources {
		if text == "" {
			continue
		}
		v, err := ParseQuantity(text, dim)
		if err != nil {
			continue
		}
		return &v
	}
	return nil
}

// satisfies checks one numeric criterion against resolved attributes.
// The second return is false when the dimension itself did not resolve,
// which excludes the entity (fail closed).
func satisfies(attrs *Attributes, c models.Criterion) (bool, bool) {
	dim := Dimension(c.Field)
	have, ok := attrs.Value(dim)
	if !ok {
		return false, false
	}

	want, err := Normalize(c.Value, c.Unit, dim)
	if err != nil {
		return false, false
	}

	switch c.Operator {
	case models.OpLT:
		return have < want, true
	case models.OpLTE:
		return have <= want, true
	case models.OpGT:
		return have > want, true
	case models.OpGTE:
		return have >= want, true
	case models.OpEQ:
		return have == want, true
	case models.OpBetween:
		upper, err := Normalize(c.UpperValue, c.Unit, dim)
		if err != nil {
			return false, false
		}
		return have >= want && have <= upper, true
	case models.OpContains:
		return attrs.Tags[strings.ToLower(c.Keyword)], true
	default:
		return false, false
	}
}
