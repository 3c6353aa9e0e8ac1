package detect

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/harvest/internal/snapshot"
)

func snapFromHTML(t *testing.T, html string) *snapshot.Snapshot {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return snapshot.FromDocument("https://shop.example/catalog", doc)
}

// listingPage renders n product cards plus a repeated promo strip that
// carries prices of its own but is built on utility classes and marketing
// copy.
func listingPage(n int, withPromos bool) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Catalog</title></head><body><section class="listing">`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<div class="product-card">
<h3>Laptop Model X%d</h3>
<span class="price">$%d.00</span>
<a href="/p/%d"><img src="/img/%d.jpg"></a>
</div>`, i, 100+i*37, i, i)
	}
	b.WriteString(`</section>`)
	if withPromos {
		b.WriteString(`<ul class="deals">`)
		for i := 1; i <= 6; i++ {
			fmt.Fprintf(&b, `<li class="deal row">
<span>Free shipping on orders over $50.00 - shop now</span>
<span class="price">$%d.00</span>
<a href="/deal/%d"><img src="/banner/%d.jpg"></a>
</li>`, i*10, i, i)
		}
		b.WriteString(`</ul>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func TestDetectFindsProductCluster(t *testing.T) {
	snap := snapFromHTML(t, listingPage(8, false))

	candidates, err := Detect(snap, Config{})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	top := candidates[0]
	if top.Selector != "div.product-card" {
		t.Errorf("Expected div.product-card on top, got %q", top.Selector)
	}
	if top.RepeatCount != 8 {
		t.Errorf("Expected 8 occurrences, got %d", top.RepeatCount)
	}
	if !top.HasLink || !top.HasImage || !top.HasSignal {
		t.Errorf("Expected link, image and signal flags set, got %+v", top)
	}
	if len(top.Occurrences) != 8 {
		t.Errorf("Expected 8 occurrence IDs, got %d", len(top.Occurrences))
	}
}

func TestDetectPrefersSemanticClassesOverUtility(t *testing.T) {
	snap := snapFromHTML(t, listingPage(6, true))

	candidates, err := Detect(snap, Config{})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if candidates[0].Selector != "div.product-card" {
		t.Errorf("Expected product cluster to outrank promo strip, got %q", candidates[0].Selector)
	}

	var promo *Candidate
	for i := range candidates {
		if candidates[i].Selector == "li.deal" {
			promo = &candidates[i]
		}
	}
	if promo == nil {
		t.Fatal("Expected li.deal cluster among candidates")
	}
	if promo.Score >= candidates[0].Score {
		t.Errorf("Utility/marketing cluster scored %v, product cluster %v", promo.Score, candidates[0].Score)
	}
}

func TestDetectDeterministic(t *testing.T) {
	html := listingPage(10, true)

	first, err := Detect(snapFromHTML(t, html), Config{})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	second, err := Detect(snapFromHTML(t, html), Config{})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("Ranking length differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Selector != second[i].Selector || first[i].Score != second[i].Score {
			t.Errorf("Rank %d differs: %s(%v) vs %s(%v)",
				i, first[i].Selector, first[i].Score, second[i].Selector, second[i].Score)
		}
	}
}

func TestDetectMinRepeatThreshold(t *testing.T) {
	snap := snapFromHTML(t, listingPage(4, false))

	if _, err := Detect(snap, Config{}); err != ErrNoContainer {
		t.Errorf("Expected ErrNoContainer for 4 repeats, got %v", err)
	}

	// Lowering the threshold admits the same cluster.
	candidates, err := Detect(snap, Config{MinRepeat: 3})
	if err != nil {
		t.Fatalf("Detect with MinRepeat=3 failed: %v", err)
	}
	if candidates[0].RepeatCount != 4 {
		t.Errorf("Expected 4 occurrences, got %d", candidates[0].RepeatCount)
	}
}

func TestDetectNoSignals(t *testing.T) {
	snap := snapFromHTML(t, `<html><body><p>Welcome to our store.</p><p>No listings today.</p></body></html>`)

	if _, err := Detect(snap, Config{}); err != ErrNoContainer {
		t.Errorf("Expected ErrNoContainer on signal-free page, got %v", err)
	}
}

func TestScoreWeights(t *testing.T) {
	base := Candidate{
		Specificity: 1,
		RepeatCount: 10,
		HasLink:     true,
		HasImage:    true,
		HasSignal:   true,
	}

	utility := base
	utility.utilityClasses = true
	if score(utility) >= score(base) {
		t.Errorf("Utility classes must lower the score: %v vs %v", score(utility), score(base))
	}

	marketing := base
	marketing.marketingText = true
	if score(marketing) >= score(base) {
		t.Errorf("Marketing copy must lower the score: %v vs %v", score(marketing), score(base))
	}

	specific := base
	specific.Specificity = 2
	if score(specific) <= score(base) {
		t.Errorf("Higher specificity must raise the score: %v vs %v", score(specific), score(base))
	}

	productish := base
	productish.productText = true
	if score(productish) <= score(base) {
		t.Errorf("Product-like text must raise the score: %v vs %v", score(productish), score(base))
	}

	// Repeat contribution is capped; a 200-row grid earns no more than a
	// 20-row one.
	capped := base
	capped.RepeatCount = 20
	huge := base
	huge.RepeatCount = 200
	if score(huge) != score(capped) {
		t.Errorf("Repeat bonus should cap: %v vs %v", score(huge), score(capped))
	}
}

func TestValidClass(t *testing.T) {
	tests := []struct {
		class string
		valid bool
	}{
		{"product-card", true},
		{"listing", true},
		{"searchResult", true},
		{"row", false},        // utility vocabulary
		{"container", false},  // utility vocabulary
		{"flex-wrap", false},  // utility prefix
		{"mt-4", false},       // utility prefix
		{"px-2", false},       // utility prefix
		{"ab", false},         // too short
		{"9lives", false},     // leading digit
		{"a b", false},        // not a single token
	}
	for _, tt := range tests {
		if got := ValidClass(tt.class); got != tt.valid {
			t.Errorf("ValidClass(%q) = %v, want %v", tt.class, got, tt.valid)
		}
	}
}

func TestPricePattern(t *testing.T) {
	matches := []string{"$19.99", "1.299,95 €", "USD 1,299.00", "49 EUR", "£5"}
	for _, s := range matches {
		if !PricePattern.MatchString(s) {
			t.Errorf("Expected %q to match the price pattern", s)
		}
	}
	nonMatches := []string{"Model 3000", "version 2.5", "free"}
	for _, s := range nonMatches {
		if PricePattern.MatchString(s) {
			t.Errorf("Expected %q not to match the price pattern", s)
		}
	}
}

func TestDetectFrequencyWithoutSignals(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="results">`)
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&b, `<li class="result-item"><h3>Entry %d</h3><a href="/e/%d">details</a></li>`, i, i)
	}
	b.WriteString(`</ul></body></html>`)
	snap := snapFromHTML(t, b.String())

	// Statistical detection has nothing to seed from here.
	if _, err := Detect(snap, Config{}); err != ErrNoContainer {
		t.Fatalf("Expected statistical detection to fail, got %v", err)
	}

	candidates, err := DetectFrequency(snap, Config{})
	if err != nil {
		t.Fatalf("DetectFrequency failed: %v", err)
	}
	if candidates[0].Selector != "li.result-item" {
		t.Errorf("Expected li.result-item on top, got %q", candidates[0].Selector)
	}
	if candidates[0].RepeatCount != 6 {
		t.Errorf("Expected 6 members, got %d", candidates[0].RepeatCount)
	}
}

func TestDetectGeometry(t *testing.T) {
	elements := []snapshot.Element{
		{ID: 0, ParentID: -1, Tag: "section", Classes: []string{"results"}},
	}
	for i := 1; i <= 7; i++ {
		w, h := 200.0, 300.0
		if i == 7 {
			// An oversized banner that shares the class but not the shape.
			w, h = 960.0, 120.0
		}
		elements = append(elements, snapshot.Element{
			ID:       i,
			ParentID: 0,
			Tag:      "div",
			Classes:  []string{"tile"},
			Rect:     snapshot.Rect{X: float64(i) * 210, Y: 40, W: w, H: h},
			Depth:    1,
		})
	}
	snap := snapshot.New("https://shop.example/grid", "Grid", elements)

	candidates, err := DetectGeometry(snap, Config{})
	if err != nil {
		t.Fatalf("DetectGeometry failed: %v", err)
	}
	top := candidates[0]
	if top.Selector != "div.tile" {
		t.Errorf("Expected div.tile, got %q", top.Selector)
	}
	if top.RepeatCount != 6 {
		t.Errorf("Expected the outlier excluded, got %d members", top.RepeatCount)
	}
}

func TestDetectGeometryNeedsRects(t *testing.T) {
	snap := snapFromHTML(t, listingPage(8, false))

	if _, err := DetectGeometry(snap, Config{}); err != ErrNoContainer {
		t.Errorf("Expected ErrNoContainer for a snapshot without geometry, got %v", err)
	}
}
