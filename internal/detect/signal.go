// internal/detect/signal.go
package detect

import "regexp"

// PricePattern matches currency-formatted numbers: an optional currency
// symbol or ISO code on either side of a grouped decimal. This is the
// default signal used to seed container detection.
var PricePattern = regexp.MustCompile(
	`(?i)(?:[$€£¥₹]|USD|EUR|GBP|CHF|JPY)\s?\d{1,3}(?:[.,'\s]\d{3})*(?:[.,]\d{1,2})?|` +
		`\d{1,3}(?:[.,'\s]\d{3})*(?:[.,]\d{1,2})?\s?(?:[$€£¥₹]|USD|EUR|GBP|CHF|JPY)`)

// modelToken matches alphanumeric product/model designators like "XPS-15"
// or "RTX4090", a strong hint that text belongs to a product listing.
var modelToken = regexp.MustCompile(`\b[A-Z]{2,}[-_]?\d{2,}\b|\b\d{2,}[-_]?[A-Z]{2,}\b`)

// specNumber matches unit-qualified quantity text like "500 g", "1.5 kg",
// "256GB" or "27 inch".
var specNumber = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s?(?:g|kg|mg|lb|oz|ml|cl|l|gb|tb|mb|mm|cm|m|inch|in|"|px|w|kw|mah|hz|ghz)\b`)

// marketingCopy matches the promotional phrases that wrap carousels and
// banner sections rather than data records.
var marketingCopy = regexp.MustCompile(`(?i)\b(?:sign up|subscribe|newsletter|free shipping|learn more|shop now|best deals?|don'?t miss|limited time|sale ends|cookie|privacy policy)\b`)

// productishText reports whether text shows product-listing character:
// model-style tokens or unit-qualified spec numbers.
func productishText(text string) bool {
	return modelToken.MatchString(text) || specNumber.MatchString(text)
}
