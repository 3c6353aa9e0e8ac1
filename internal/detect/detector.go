// Package detect finds repeating data containers in a page snapshot without
// per-site selectors. Detection is seeded by "signal" elements (price-like
// text by default), walks their ancestor chains, clusters the repeating
// structural patterns and scores the clusters into a ranked candidate list.
package detect

import (
	"errors"
	"regexp"
	"sort"

	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/rs/zerolog/log"
)

// ErrNoContainer is returned when no candidate survives the repeat and
// signal thresholds. The orchestrator treats it as a detection failure and
// falls through to the next cascade step.
var ErrNoContainer = errors.New("no container candidate met detection thresholds")

// Config tunes the statistical detector
type Config struct {
	// SignalPattern seeds detection; defaults to PricePattern.
	SignalPattern *regexp.Regexp
	// MinRepeat is the minimum cluster size for eligibility (default 5).
	MinRepeat int
	// MaxAncestors bounds the upward walk from each signal element (default 3).
	MaxAncestors int
}

func (c Config) withDefaults() Config {
	if c.SignalPattern == nil {
		c.SignalPattern = PricePattern
	}
	if c.MinRepeat <= 0 {
		c.MinRepeat = 5
	}
	if c.MaxAncestors <= 0 {
		c.MaxAncestors = 3
	}
	return c
}

// Candidate is one scored container hypothesis. Occurrences are the arena
// IDs of its member elements, in document order.
type Candidate struct {
	Selector    string
	RepeatCount int
	Specificity int
	HasLink     bool
	HasImage    bool
	HasSignal   bool
	Score       float64
	Occurrences []int

	// internal scoring inputs, computed from member subtrees
	utilityClasses bool
	marketingText  bool
	productText    bool
}

// Detect runs the statistical container detection and returns candidates
// sorted by descending score. The ranking is deterministic for a fixed
// snapshot and configuration.
func Detect(snap *snapshot.Snapshot, cfg Config) ([]Candidate, error) {
	cfg = cfg.withDefaults()

	signals := signalElements(snap, cfg.SignalPattern)
	if len(signals) == 0 {
		log.Debug().Str("url", snap.URL).Msg("No signal elements on page")
		return nil, ErrNoContainer
	}

	// Walk ancestor chains and cluster by derived selector. A signal element
	// contributes each ancestor at most once per selector.
	groups := make(map[string]map[int]bool)
	for _, sig := range signals {
		for _, anc := range snap.Ancestors(sig, cfg.MaxAncestors) {
			sel, ok := selectorFor(anc)
			if !ok {
				continue
			}
			if groups[sel] == nil {
				groups[sel] = make(map[int]bool)
			}
			groups[sel][anc.ID] = true
		}
	}

	var candidates []Candidate
	for sel, members := range groups {
		if len(members) < cfg.MinRepeat {
			continue
		}
		ids := make([]int, 0, len(members))
		for id := range members {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		cand := buildCandidate(snap, sel, ids, cfg.SignalPattern)
		cand.Score = score(cand)
		candidates = append(candidates, cand)
	}

	if len(candidates) == 0 {
		log.Debug().
			Str("url", snap.URL).
			Int("signals", len(signals)).
			Int("min_repeat", cfg.MinRepeat).
			Msg("No cluster met repeat threshold")
		return nil, ErrNoContainer
	}

	// Descending score; selector order breaks ties so ranking is stable
	// across runs.
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
		Float64("top_score", candidates[0].Score).
		Msg("Container detection completed")

	return candidates, nil
}

// signalElements returns the IDs of elements whose own text matches the
// signal pattern.
func signalElements(snap *snapshot.Snapshot, pattern *regexp.Regexp) []int {
	var out []int
	for _, el := range snap.Elements() {
		if el.Text != "" && pattern.MatchString(el.Text) {
			out = append(out, el.ID)
		}
	}
	return out
}

// selectorFor derives the cluster selector for an ancestor: tag plus its
// first valid class token. Generic tags with no valid class are skipped.
func selectorFor(el *snapshot.Element) (string, bool) {
	for _, c := range el.Classes {
		if ValidClass(c) {
			return el.Tag + "." + c, true
		}
	}
	if genericTag(el.Tag) {
		return "", false
	}
	return el.Tag, true
}

// buildCandidate computes the structural features of a cluster from its
// member subtrees.
func buildCandidate(snap *snapshot.Snapshot, sel string, ids []int, signal *regexp.Regexp) Candidate {
	cand := Candidate{
		Selector:    sel,
		RepeatCount: len(ids),
		Occurrences: ids,
	}

	utility := false
	marketing := false
	productish := false

	for _, id := range ids {
		member := snap.Get(id)
		if n := qualifyingClasses(member.Classes); n > cand.Specificity {
			cand.Specificity = n
		}
		for _, c := range member.Classes {
			if UtilityClass(c) {
				utility = true
			}
		}

		for _, sub := range snap.Subtree(id) {
			el := snap.Get(sub)
			if el.Tag == "a" && el.Href != "" {
				cand.HasLink = true
			}
			if el.Tag == "img" && el.Src != "" {
				cand.HasImage = true
			}
			if el.Text == "" {
				continue
			}
			if signal.MatchString(el.Text) {
				cand.HasSignal = true
			}
			if productishText(el.Text) {
				productish = true
			}
			if marketingCopy.MatchString(el.Text) {
				marketing = true
			}
		}
	}

	cand.utilityClasses = utility
	cand.marketingText = marketing
	cand.productText = productish
	return cand
}
