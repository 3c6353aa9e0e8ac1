// internal/detect/frequency.go
package detect

import (
	"sort"

	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/rs/zerolog/log"
)

// DetectFrequency is the signal-free fallback: instead of seeding from
// price-like text, it scores every repeated child pattern under a common
// parent across the whole page. Less precise than the statistical detector
// but works on pages whose records carry no recognizable signal text.
func DetectFrequency(snap *snapshot.Snapshot, cfg Config) ([]Candidate, error) {
	cfg = cfg.withDefaults()

	// For every parent, count direct children sharing a selector. Clusters
	// earn repetition points plus a depth bonus: deeper repeating groups are
	// likelier to be the record list than page-level scaffolding.
	type cluster struct {
		members map[int]bool
		points  float64
	}
	clusters := make(map[string]*cluster)

	for _, parent := range snap.Elements() {
		childSels := make(map[string][]int)
		for _, childID := range snap.Children(parent.ID) {
			child := snap.Get(childID)
			sel, ok := selectorFor(child)
			if !ok {
				continue
			}
			childSels[sel] = append(childSels[sel], childID)
		}
		for sel, ids := range childSels {
			if len(ids) < 2 {
				continue
			}
			cl := clusters[sel]
			if cl == nil {
				cl = &cluster{members: make(map[int]bool)}
				clusters[sel] = cl
			}
			for _, id := range ids {
				cl.members[id] = true
			}
			cl.points += float64(len(ids)*5 + parent.Depth)
		}
	}

	var candidates []Candidate
	for sel, cl := range clusters {
		if len(cl.members) < cfg.MinRepeat {
			continue
		}
		ids := make([]int, 0, len(cl.members))
		for id := range cl.members {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		cand := buildCandidate(snap, sel, ids, cfg.SignalPattern)
		cand.Score = score(cand) + cl.points/10
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
		Msg("Frequency analysis completed")

	return candidates, nil
}
