// internal/detect/geometry.go
package detect

import (
	"math"
	"sort"

	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/rs/zerolog/log"
)

// DetectGeometry clusters same-selector elements by rendered size. Listing
// grids render their cards at near-identical dimensions, so a cluster of
// equally sized repeated elements is a strong container hypothesis even
// when class names defeat the other detectors. Requires a browser-rendered
// snapshot; zero-geometry snapshots yield ErrNoContainer.
func DetectGeometry(snap *snapshot.Snapshot, cfg Config) ([]Candidate, error) {
	cfg = cfg.withDefaults()

	// Group visible elements by selector, then check dimensional uniformity
	// within each group.
	groups := make(map[string][]int)
	visible := 0
	for _, el := range snap.Elements() {
		if el.Rect.W <= 0 || el.Rect.H <= 0 {
			continue
		}
		visible++
		sel, ok := selectorFor(&el)
		if !ok {
			continue
		}
		groups[sel] = append(groups[sel], el.ID)
	}
	if visible == 0 {
		log.Debug().Str("url", snap.URL).Msg("Snapshot carries no geometry")
		return nil, ErrNoContainer
	}

	var candidates []Candidate
	for sel, ids := range groups {
		if len(ids) < cfg.MinRepeat {
			continue
		}
		uniform := uniformDimensions(snap, ids)
		if len(uniform) < cfg.MinRepeat {
			continue
		}
		sort.Ints(uniform)

		cand := buildCandidate(snap, sel, uniform, cfg.SignalPattern)
		// Uniformity stands in for the signal bonus the statistical
		// detector gets from seeding.
		cand.Score = score(cand) + signalBonus/2
		candidates = append(candidates, cand)
	}

	if len(candidates) == 0 {
		return nil, ErrNoContainer
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Selector < candidates[j].Selector
	})

	log.Debug().
		Str("url", snap.URL).
		Int("candidates", len(candidates)).
		Str("top", candidates[0].Selector).
		Msg("Geometry clustering completed")

	return candidates, nil
}

// uniformDimensions keeps the members whose width and height sit within 15%
// of the group median.
func uniformDimensions(snap *snapshot.Snapshot, ids []int) []int {
	ws := make([]float64, 0, len(ids))
	hs := make([]float64, 0, len(ids))
	for _, id := range ids {
		el := snap.Get(id)
		ws = append(ws, el.Rect.W)
		hs = append(hs, el.Rect.H)
	}
	mw := median(ws)
	mh := median(hs)
	if mw == 0 || mh == 0 {
		return nil
	}

	var out []int
	for _, id := range ids {
		el := snap.Get(id)
		if math.Abs(el.Rect.W-mw)/mw <= 0.15 && math.Abs(el.Rect.H-mh)/mh <= 0.15 {
			out = append(out, id)
		}
	}
	return out
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
