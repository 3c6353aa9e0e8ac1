// internal/detect/classes.go
package detect

import (
	"regexp"
	"strings"
)

// classToken is the conservative grammar a class must match to be considered
// a meaningful structural hook: starts with a letter, then letters, digits,
// hyphens or underscores, between 3 and 40 characters. Hashed and numeric
// framework classes fall outside it.
var classToken = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{2,39}$`)

// utilityVocab are class tokens that describe layout, not content. A selector
// built on one of these repeats everywhere on the page and tells us nothing
// about what it wraps.
var utilityVocab = map[string]bool{
	"container": true,
	"wrapper":   true,
	"wrap":      true,
	"row":       true,
	"col":       true,
	"column":    true,
	"inner":     true,
	"outer":     true,
	"content":   true,
	"main":      true,
	"section":   true,
	"block":     true,
	"box":       true,
	"layout":    true,
	"clearfix":  true,
}

// utilityPrefixes catch the spacing/flex/grid utility systems (Tailwind,
// Bootstrap helpers) by prefix.
var utilityPrefixes = []string{
	"flex", "grid", "d-", "mt-", "mb-", "ml-", "mr-", "mx-", "my-",
	"pt-", "pb-", "pl-", "pr-", "px-", "py-", "m-", "p-", "w-", "h-",
	"gap-", "justify-", "items-", "align-", "text-", "bg-", "border-",
	"rounded", "shadow", "hidden", "visible", "absolute", "relative",
	"sticky", "fixed", "overflow", "space-",
}

// genericTags carry so little meaning that an element with such a tag and no
// valid class is skipped during ancestor walks.
var genericTags = map[string]bool{
	"div":  true,
	"span": true,
}

// ValidClass reports whether a class token qualifies as a selector hook.
func ValidClass(c string) bool {
	if !classToken.MatchString(c) {
		return false
	}
	return !UtilityClass(c)
}

// UtilityClass reports whether a class token belongs to the layout/utility
// vocabulary that the scorer penalizes.
func UtilityClass(c string) bool {
	lc := strings.ToLower(c)
	if utilityVocab[lc] {
		return true
	}
	for _, p := range utilityPrefixes {
		if strings.HasPrefix(lc, p) {
			return true
		}
	}
	return false
}

// genericTag reports whether the tag alone cannot anchor a selector.
func genericTag(tag string) bool {
	return genericTags[tag]
}

// qualifyingClasses counts the distinct valid class tokens of an element,
// the specificity input to scoring.
func qualifyingClasses(classes []string) int {
	seen := make(map[string]bool, len(classes))
	n := 0
	for _, c := range classes {
		if seen[c] {
			continue
		}
		seen[c] = true
		if ValidClass(c) {
			n++
		}
	}
	return n
}
