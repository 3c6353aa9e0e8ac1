// Package fields locates named sub-elements inside detected containers and
// assembles one entity per container occurrence. Claims are exclusive: an
// element assigned to one field is never reused for another within the same
// entity.
package fields

import (
	"errors"
	"regexp"
	"strings"

	"github.com/law-makers/harvest/internal/detect"
	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// ErrNoEntities is returned when no container occurrence yields any field
// at all. The orchestrator treats it as an extraction failure.
var ErrNoEntities = errors.New("no entities could be assembled from container occurrences")

// DefaultFields are extracted when the caller does not name any.
var DefaultFields = []string{"name", "price", "url", "image"}

// Config tunes field extraction
type Config struct {
	// Fields to locate per entity; DefaultFields when empty.
	Fields []string
	// SignalPattern identifies price-like text; detect.PricePattern when nil.
	SignalPattern *regexp.Regexp
	// MinCompleteness below which an entity is flagged low-confidence
	// (default 0.5). Low completeness never fails extraction here; the
	// validator owns that judgment.
	MinCompleteness float64
}

func (c Config) withDefaults() Config {
	if len(c.Fields) == 0 {
		c.Fields = DefaultFields
	}
	if c.SignalPattern == nil {
		c.SignalPattern = detect.PricePattern
	}
	if c.MinCompleteness <= 0 {
		c.MinCompleteness = 0.5
	}
	return c
}

var weightText = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s?(?:g|kg|mg|lb|lbs|oz)\b`)
var volumeText = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s?(?:ml|cl|l|litre|liter|fl\s?oz)\b`)
var ratingText = regexp.MustCompile(`(?i)\b[0-5](?:[.,]\d)?\s?(?:/\s?5|stars?|★)|★{1,5}`)
var stockText = regexp.MustCompile(`(?i)\b(?:in stock|out of stock|available|unavailable|sold out|pre-?order)\b`)

// headingTags rank "prominence" for name extraction, best first.
var headingTags = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

// Extract assembles one entity per occurrence of the container candidate.
// The returned selector map records, per field, the relative "tag.class"
// selector of the first element that supplied it, for recipe persistence.
func Extract(snap *snapshot.Snapshot, cand detect.Candidate, cfg Config) ([]models.Entity, map[string]string, error) {
	cfg = cfg.withDefaults()

	fieldSelectors := make(map[string]string)
	var entities []models.Entity
	for _, occ := range cand.Occurrences {
		entity := extractOne(snap, occ, cand.Selector, cfg, fieldSelectors)
		if len(entity.Fields) == 0 {
			continue
		}
		entities = append(entities, entity)
	}

	if len(entities) == 0 {
		return nil, nil, ErrNoEntities
	}

	log.Debug().
		Str("selector", cand.Selector).
		Int("occurrences", len(cand.Occurrences)).
		Int("entities", len(entities)).
		Msg("Field extraction completed")

	return entities, fieldSelectors, nil
}

// extractOne locates the requested fields within one container subtree.
func extractOne(snap *snapshot.Snapshot, root int, selector string, cfg Config, fieldSelectors map[string]string) models.Entity {
	subtree := snap.Subtree(root)
	claimed := make(map[int]bool)

	fields := make(map[string]string)
	for _, name := range cfg.Fields {
		id, value := locate(snap, subtree, HintFor(name), cfg.SignalPattern, claimed)
		if value == "" {
			continue
		}
		if id >= 0 {
			claimed[id] = true
			if _, seen := fieldSelectors[name]; !seen {
				fieldSelectors[name] = snapshot.SelectorFor(snap.Get(id), detect.ValidClass)
			}
		}
		fields[name] = value
	}

	completeness := float64(len(fields)) / float64(len(cfg.Fields))
	confidence := completeness
	if completeness < cfg.MinCompleteness {
		// Keep the entity but mark it so the validator can weigh it.
		confidence = completeness / 2
	}

	return models.Entity{
		Fields:       fields,
		Selector:     selector,
		Confidence:   confidence,
		Completeness: completeness,
	}
}

// locate finds the best unclaimed element for a hint and returns its arena
// ID and extracted value. ID is -1 when no element backs the value.
func locate(snap *snapshot.Snapshot, subtree []int, hint Hint, signal *regexp.Regexp, claimed map[int]bool) (int, string) {
	switch hint {
	case HintPrice:
		return firstMatchingText(snap, subtree, claimed, func(t string) bool {
			return signal.MatchString(t)
		})

	case HintURL:
		for _, id := range subtree {
			el := snap.Get(id)
			if claimed[id] || el.Tag != "a" || el.Href == "" {
				continue
			}
			return id, el.Href
		}
		return -1, ""

	case HintImage:
		for _, id := range subtree {
			el := snap.Get(id)
			if claimed[id] || el.Tag != "img" || el.Src == "" {
				continue
			}
			return id, el.Src
		}
		return -1, ""

	case HintName:
		// Prefer heading text, then anchor text, then the longest short
		// text block not claimed by another field.
		for _, tag := range headingTags {
			for _, id := range subtree {
				el := snap.Get(id)
				if claimed[id] || el.Tag != tag {
					continue
				}
				if t := snap.TextWithin(id); t != "" {
					return id, t
				}
			}
		}
		for _, id := range subtree {
			el := snap.Get(id)
			if claimed[id] || el.Tag != "a" {
				continue
			}
			if t := strings.TrimSpace(el.Text); t != "" && !signal.MatchString(t) {
				return id, t
			}
		}
		return bestText(snap, subtree, claimed, 8, 120)

	case HintDescription:
		return bestText(snap, subtree, claimed, 30, 2000)

	case HintWeight:
		return firstMatchingText(snap, subtree, claimed, weightText.MatchString)

	case HintVolume:
		return firstMatchingText(snap, subtree, claimed, volumeText.MatchString)

	case HintRating:
		return firstMatchingText(snap, subtree, claimed, ratingText.MatchString)

	case HintAvailability:
		return firstMatchingText(snap, subtree, claimed, stockText.MatchString)

	default:
		return bestText(snap, subtree, claimed, 3, 200)
	}
}

// firstMatchingText returns the first unclaimed element whose own text
// passes the predicate.
func firstMatchingText(snap *snapshot.Snapshot, subtree []int, claimed map[int]bool, match func(string) bool) (int, string) {
	for _, id := range subtree {
		if claimed[id] {
			continue
		}
		t := strings.TrimSpace(snap.Get(id).Text)
		if t != "" && match(t) {
			return id, t
		}
	}
	return -1, ""
}

// bestText returns the longest unclaimed own-text within length bounds.
func bestText(snap *snapshot.Snapshot, subtree []int, claimed map[int]bool, minLen, maxLen int) (int, string) {
	bestID := -1
	best := ""
	for _, id := range subtree {
		if claimed[id] {
			continue
		}
		t := strings.TrimSpace(snap.Get(id).Text)
		if len(t) < minLen || len(t) > maxLen {
			continue
		}
		if len(t) > len(best) {
			best = t
			bestID = id
		}
	}
	return bestID, best
}
