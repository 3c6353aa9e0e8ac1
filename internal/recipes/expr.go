// internal/recipes/expr.go
package recipes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// Recipe filter and validate fields hold small JavaScript expressions that
// run against extracted entities. A filter expression sees one entity's
// fields as globals ("price < 2000 && name.length > 0"); a validate
// expression sees the whole set ("count >= 3 && items.every(i => i.price)").
// Evaluation is best-effort: an expression that throws keeps the entity
// (filter) or passes validation, since a broken hand-edited recipe must not
// turn into silent data loss.

// ApplyFilter evaluates a recipe filter expression against each entity and
// keeps those for which it is truthy.
func ApplyFilter(expr string, entities []models.Entity) []models.Entity {
	if strings.TrimSpace(expr) == "" {
		return entities
	}

	vm := goja.New()
	out := entities[:0:0]
	for _, e := range entities {
		bindEntity(vm, e)
		v, err := vm.RunString(expr)
		if err != nil {
			log.Warn().Err(err).Str("expr", expr).Msg("Recipe filter expression failed, keeping entity")
			out = append(out, e)
			continue
		}
		if v.ToBoolean() {
			out = append(out, e)
		}
	}

	log.Debug().
		Str("expr", expr).
		Int("in", len(entities)).
		Int("out", len(out)).
		Msg("Recipe filter applied")

	return out
}

// Validate evaluates a recipe validate expression over the entity set.
func Validate(expr string, entities []models.Entity) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return true, nil
	}

	vm := goja.New()
	items := make([]map[string]interface{}, 0, len(entities))
	for _, e := range entities {
		items = append(items, entityObject(e))
	}
	vm.Set("items", items)
	vm.Set("count", len(entities))

	v, err := vm.RunString(expr)
	if err != nil {
		return true, fmt.Errorf("validate expression: %w", err)
	}
	return v.ToBoolean(), nil
}

// bindEntity exposes one entity's fields as globals. Numeric-looking values
// are bound as numbers so comparisons work without explicit parsing.
func bindEntity(vm *goja.Runtime, e models.Entity) {
	for name, raw := range e.Fields {
		vm.Set(name, coerce(raw))
	}
	vm.Set("fields", e.Fields)
	vm.Set("confidence", e.Confidence)
}

func entityObject(e models.Entity) map[string]interface{} {
	obj := make(map[string]interface{}, len(e.Fields))
	for name, raw := range e.Fields {
		obj[name] = coerce(raw)
	}
	return obj
}

// coerce extracts a leading number from values like "$1,299.00"; anything
// else stays a string.
func coerce(raw string) interface{} {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r == ',':
			return -1
		default:
			return -1
		}
	}, raw)
	if cleaned == "" || cleaned == "-" {
		return raw
	}
	if n, err := strconv.ParseFloat(cleaned, 64); err == nil {
		// Only treat as numeric when digits dominate the raw text;
		// "Model 3" stays a string.
		digits := 0
		for _, r := range raw {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits*2 >= len(strings.TrimSpace(raw)) {
			return n
		}
	}
	return raw
}
