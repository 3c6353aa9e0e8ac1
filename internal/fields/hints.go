// internal/fields/hints.go
package fields

// Hint is the closed set of field roles the extractor knows how to locate.
// Matching logic switches exhaustively over these; free-form field names
// map to HintOther and fall back to text matching.
type Hint int

const (
	HintOther Hint = iota
	HintName
	HintPrice
	HintURL
	HintImage
	HintDescription
	HintWeight
	HintVolume
	HintRating
	HintAvailability
)

// String returns the canonical field name for the hint
func (h Hint) String() string {
	switch h {
	case HintName:
		return "name"
	case HintPrice:
		return "price"
	case HintURL:
		return "url"
	case HintImage:
		return "image"
	case HintDescription:
		return "description"
	case HintWeight:
		return "weight"
	case HintVolume:
		return "volume"
	case HintRating:
		return "rating"
	case HintAvailability:
		return "availability"
	default:
		return "other"
	}
}

// HintFor maps a requested field name to its hint. Unknown names get
// HintOther rather than an error, so callers can still request ad-hoc
// fields and receive best-effort text matches.
func HintFor(name string) Hint {
	switch name {
	case "name", "title", "product", "heading":
		return HintName
	case "price", "cost", "amount":
		return HintPrice
	case "url", "link", "href":
		return HintURL
	case "image", "img", "thumbnail", "photo":
		return HintImage
	case "description", "summary", "details":
		return HintDescription
	case "weight":
		return HintWeight
	case "volume", "capacity":
		return HintVolume
	case "rating", "stars", "score":
		return HintRating
	case "availability", "stock", "in_stock":
		return HintAvailability
	default:
		return HintOther
	}
}
