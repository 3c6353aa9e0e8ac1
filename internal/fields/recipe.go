// internal/fields/recipe.go
package fields

import (
	"strings"

	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/law-makers/harvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// ExtractWithSelectors replays a persisted recipe: container occurrences are
// resolved by selector, and each field uses its recorded relative selector
// first, falling back to the hint heuristics when the page has drifted.
func ExtractWithSelectors(snap *snapshot.Snapshot, containerSelector string, fieldSelectors map[string]string, cfg Config) ([]models.Entity, error) {
	cfg = cfg.withDefaults()
	if len(fieldSelectors) > 0 {
		names := make([]string, 0, len(fieldSelectors))
		for name := range fieldSelectors {
			names = append(names, name)
		}
		cfg.Fields = names
	}

	occurrences := snap.Select(containerSelector)
	if len(occurrences) == 0 {
		return nil, ErrNoEntities
	}

	var entities []models.Entity
	for _, occ := range occurrences {
		subtree := snap.Subtree(occ)
		claimed := make(map[int]bool)
		found := make(map[string]string)

		for _, name := range cfg.Fields {
			rel := fieldSelectors[name]
			id, value := locateBySelector(snap, subtree, rel, HintFor(name), claimed)
			if value == "" {
				// Page drifted under the recipe; heuristics still apply.
				id, value = locate(snap, subtree, HintFor(name), cfg.SignalPattern, claimed)
			}
			if value == "" {
				continue
			}
			if id >= 0 {
				claimed[id] = true
			}
			found[name] = value
		}

		if len(found) == 0 {
			continue
		}
		completeness := float64(len(found)) / float64(len(cfg.Fields))
		entities = append(entities, models.Entity{
			Fields:       found,
			Selector:     containerSelector,
			Confidence:   completeness,
			Completeness: completeness,
		})
	}

	if len(entities) == 0 {
		return nil, ErrNoEntities
	}

	log.Debug().
		Str("selector", containerSelector).
		Int("entities", len(entities)).
		Msg("Recipe field extraction completed")

	return entities, nil
}

// locateBySelector finds the first unclaimed subtree element matching a
// "tag.class" relative selector and extracts the value a field of this hint
// would want from it.
func locateBySelector(snap *snapshot.Snapshot, subtree []int, rel string, hint Hint, claimed map[int]bool) (int, string) {
	if rel == "" {
		return -1, ""
	}
	tag, class, hasClass := strings.Cut(rel, ".")
	for _, id := range subtree {
		if claimed[id] {
			continue
		}
		el := snap.Get(id)
		if el.Tag != tag {
			continue
		}
		if hasClass && !el.HasClass(class) {
			continue
		}
		switch hint {
		case HintURL:
			if el.Href != "" {
				return id, el.Href
			}
		case HintImage:
			if el.Src != "" {
				return id, el.Src
			}
		default:
			if t := snap.TextWithin(id); t != "" {
				return id, t
			}
		}
	}
	return -1, ""
}
