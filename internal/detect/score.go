// internal/detect/score.go
package detect

// Scoring weights. Specificity dominates: a selector anchored on multiple
// meaningful class tokens nearly always wraps one record, while structural
// extras (link, image, signal) separate real listings from decorative
// repetition. Repeat count contributes only a small capped bonus so a
// 200-row utility grid cannot outscore a 12-card product list.
const (
	specificityTier1 = 10.0 // exactly one qualifying class
	specificityTier2 = 28.0 // two qualifying classes
	specificityTier3 = 45.0 // three or more

	linkBonus    = 15.0
	imageBonus   = 15.0
	signalBonus  = 20.0
	productBonus = 10.0

	repeatUnit = 1.0
	repeatCap  = 20.0

	utilityPenalty   = 25.0
	marketingPenalty = 20.0
)

// score computes the weighted sum for one candidate. Pure function of the
// candidate's structural features.
func score(c Candidate) float64 {
	var s float64

	switch {
	case c.Specificity >= 3:
		s += specificityTier3
	case c.Specificity == 2:
		s += specificityTier2
	case c.Specificity == 1:
		s += specificityTier1
	}

	if c.HasLink {
		s += linkBonus
	}
	if c.HasImage {
		s += imageBonus
	}
	if c.HasSignal {
		s += signalBonus
	}
	if c.productText {
		s += productBonus
	}

	repeat := float64(c.RepeatCount) * repeatUnit
	if repeat > repeatCap {
		repeat = repeatCap
	}
	s += repeat

	if c.utilityClasses {
		s -= utilityPenalty
	}
	if c.marketingText {
		s -= marketingPenalty
	}

	return s
}
