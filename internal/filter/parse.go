// internal/filter/parse.go
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// comparatorWords maps instruction phrasing to operators.
var comparatorWords = map[string]models.Operator{
	"under":     models.OpLT,
	"below":     models.OpLT,
	"less than": models.OpLT,
	"cheaper than": models.OpLT,
	"at most":   models.OpLTE,
	"up to":     models.OpLTE,
	"over":      models.OpGT,
	"above":     models.OpGT,
	"more than": models.OpGT,
	"at least":  models.OpGTE,
	"exactly":   models.OpEQ,
}

// unitToken enumerates the units the parser recognizes; anything else next
// to a number is ordinary prose, not a unit.
const unitToken = `(?:mg|kg|g|oz|lbs|lb|ml|cl|litres?|liters?|l|gal|usd|eur|gbp|chf|jpy|dollars|euros|pounds|[$€£¥₹])?`

// currencyPrefix admits amounts written symbol-first, "under $2000".
const currencyPrefix = `([$€£¥₹]\s?)?`

var betweenPattern = regexp.MustCompile(`(?i)\bbetween\s+` + currencyPrefix + `(\d+(?:[.,]\d+)?)\s*(` + unitToken + `)\b\s+and\s+` + currencyPrefix + `(\d+(?:[.,]\d+)?)\s*(` + unitToken + `)\b`)

// comparatorPattern is anchored on comparatorWords, longest phrases first so
// "less than" wins over bare "less".
var comparatorPattern = regexp.MustCompile(`(?i)\b(under|below|less than|cheaper than|at most|up to|over|above|more than|at least|exactly)\s+` + currencyPrefix + `(\d+(?:[.,]\d+)?)\s*(` + unitToken + `)\b`)

// dimensionWords lets phrasing like "weight under 500" name the dimension
// when the unit does not.
var dimensionWords = map[string]Dimension{
	"price":   DimPrice,
	"cost":    DimPrice,
	"weight":  DimWeight,
	"weighs":  DimWeight,
	"weighing": DimWeight,
	"volume":  DimVolume,
}

// stopwords are dropped when collecting residual semantic keywords.
var stopwords = map[string]bool{
	"find": true, "show": true, "get": true, "list": true, "search": true,
	"me": true, "all": true, "the": true, "a": true, "an": true, "of": true,
	"with": true, "and": true, "or": true, "that": true, "which": true,
	"are": true, "is": true, "in": true, "for": true, "to": true,
	"products": true, "product": true, "items": true, "item": true,
	"results": true, "things": true, "ones": true, "than": true,
	"under": true, "below": true, "over": true, "above": true,
	"between": true, "least": true, "most": true, "less": true, "more": true,
	"cheaper": true, "exactly": true, "up": true, "at": true,
}

// Parse converts a natural-language instruction into a structured query.
// Numeric constraints are recognized for price, weight and volume; residual
// descriptive keywords become semantic criteria. Mixed criteria always
// combine with AND.
func Parse(instruction string) *models.Query {
	q := &models.Query{
		EntityType: "product",
		Combinator: models.CombineAND,
	}

	consumed := instruction

	// Between-ranges first, so their bounds are not re-read as single
	// comparators.
	for _, m := range betweenPattern.FindAllStringSubmatch(consumed, -1) {
		lo, err1 := parseNumber(m[2])
		hi, err2 := parseNumber(m[5])
		if err1 != nil || err2 != nil {
			continue
		}
		unit := m[3]
		if unit == "" {
			unit = m[6]
		}
		if unit == "" {
			unit = strings.TrimSpace(m[1])
		}
		if unit == "" {
			unit = strings.TrimSpace(m[4])
		}
		dim := dimensionFor(unit, instruction, m[0])
		q.Criteria = append(q.Criteria, models.Criterion{
			Field:      string(dim),
			Operator:   models.OpBetween,
			Value:      lo,
			UpperValue: hi,
			Unit:       unit,
		})
		consumed = strings.Replace(consumed, m[0], " ", 1)
	}

	for _, m := range comparatorPattern.FindAllStringSubmatch(consumed, -1) {
		value, err := parseNumber(m[3])
		if err != nil {
			continue
		}
		op := comparatorWords[strings.ToLower(m[1])]
		unit := m[4]
		if unit == "" {
			unit = strings.TrimSpace(m[2])
		}
		dim := dimensionFor(unit, instruction, m[0])
		q.Criteria = append(q.Criteria, models.Criterion{
			Field:    string(dim),
			Operator: op,
			Value:    value,
			Unit:     unit,
		})
		consumed = strings.Replace(consumed, m[0], " ", 1)
	}

	// Residual descriptive keywords become semantic criteria.
	for _, word := range strings.Fields(consumed) {
		w := strings.ToLower(strings.Trim(word, ".,!?;:()\"'"))
		if w == "" || stopwords[w] {
			continue
		}
		if _, isDim := dimensionWords[w]; isDim {
			continue
		}
		if !strings.ContainsFunc(w, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
			continue
		}
		q.Criteria = append(q.Criteria, models.Criterion{
			Field:    "description",
			Operator: models.OpContains,
			Keyword:  w,
			Semantic: true,
		})
	}

	// Requested fields follow from the criteria dimensions.
	q.RequiredFields = requiredFields(q.Criteria)

	log.Debug().
		Str("instruction", instruction).
		Int("numeric", len(q.NumericCriteria())).
		Int("semantic", len(q.SemanticCriteria())).
		Msg("Instruction parsed")

	return q
}

// dimensionFor resolves a criterion's dimension: the unit decides when it
// can, then a dimension word near the match, then price as the default for
// bare numbers.
func dimensionFor(unit, instruction, match string) Dimension {
	if dim, ok := UnitDimension(unit); ok {
		return dim
	}
	// Look for a dimension word in the clause preceding the match.
	idx := strings.Index(instruction, match)
	prefix := instruction
	if idx >= 0 {
		prefix = instruction[:idx]
	}
	words := strings.Fields(strings.ToLower(prefix))
	for i := len(words) - 1; i >= 0 && i >= len(words)-4; i-- {
		if dim, ok := dimensionWords[strings.Trim(words[i], ".,")]; ok {
			return dim
		}
	}
	return DimPrice
}

func requiredFields(criteria []models.Criterion) []models.FieldSpec {
	fields := []models.FieldSpec{
		{Name: "name", Type: models.FieldText},
		{Name: "price", Type: models.FieldNumber},
		{Name: "url", Type: models.FieldURL},
	}
	seen := map[string]bool{"name": true, "price": true, "url": true}
	for _, c := range criteria {
		if c.Semantic || seen[c.Field] {
			continue
		}
		seen[c.Field] = true
		fields = append(fields, models.FieldSpec{Name: c.Field, Type: models.FieldNumber})
	}
	return fields
}

// Summary renders a human-readable account of the parsed criteria.
func Summary(q *models.Query) string {
	if len(q.Criteria) == 0 {
		return "no filter criteria"
	}
	var parts []string
	for _, c := range q.Criteria {
		if c.Semantic {
			parts = append(parts, fmt.Sprintf("%s (semantic)", c.Keyword))
			continue
		}
		switch c.Operator {
		case models.OpBetween:
			parts = append(parts, fmt.Sprintf("%s between %g and %g %s", c.Field, c.Value, c.UpperValue, c.Unit))
		default:
			parts = append(parts, fmt.Sprintf("%s %s %g %s", c.Field, c.Operator, c.Value, c.Unit))
		}
	}
	return strings.Join(parts, " "+string(q.Combinator)+" ")
}
