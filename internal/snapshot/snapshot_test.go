package snapshot

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const fixturePage = `<!DOCTYPE html>
<html>
<head>
<title>Widget Catalog</title>
<script>var tracking = true;</script>
<style>.card { border: 1px solid; }</style>
</head>
<body>
<div class="card featured">
  <h3>Widget Alpha</h3>
  <span class="price">$19.99</span>
  <a href="/w/alpha"><img src="/img/alpha.jpg"></a>
</div>
<script>render();</script>
</body>
</html>`

func parseFixture(t *testing.T, html string) *Snapshot {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return FromDocument("https://shop.example/catalog", doc)
}

func TestFromDocument(t *testing.T) {
	snap := parseFixture(t, fixturePage)

	if snap.Title != "Widget Catalog" {
		t.Errorf("Expected title 'Widget Catalog', got %q", snap.Title)
	}
	if snap.ScriptCount != 2 {
		t.Errorf("Expected 2 scripts counted, got %d", snap.ScriptCount)
	}

	// Arena in document order: div, h3, span, a, img. Scripts and styles
	// never enter the arena.
	if snap.Len() != 5 {
		t.Fatalf("Expected 5 arena elements, got %d", snap.Len())
	}
	for _, el := range snap.Elements() {
		if el.Tag == "script" || el.Tag == "style" {
			t.Errorf("Arena contains skipped tag %q", el.Tag)
		}
	}

	div := snap.Get(0)
	if div.Tag != "div" || div.ParentID != -1 {
		t.Errorf("Expected root div with ParentID -1, got %q parent %d", div.Tag, div.ParentID)
	}
	if !div.HasClass("card") || !div.HasClass("featured") {
		t.Errorf("Expected classes card+featured, got %v", div.Classes)
	}

	h3 := snap.Get(1)
	if h3.Text != "Widget Alpha" {
		t.Errorf("Expected own text 'Widget Alpha', got %q", h3.Text)
	}
	if h3.Depth != 1 {
		t.Errorf("Expected depth 1, got %d", h3.Depth)
	}
}

func TestSelectAndSubtree(t *testing.T) {
	snap := parseFixture(t, fixturePage)

	ids := snap.Select("span.price")
	if len(ids) != 1 {
		t.Fatalf("Expected 1 match for span.price, got %d", len(ids))
	}
	if snap.Get(ids[0]).Text != "$19.99" {
		t.Errorf("Expected price text, got %q", snap.Get(ids[0]).Text)
	}

	if snap.Select("div.nope") != nil {
		t.Error("Unknown selector should yield nil")
	}

	subtree := snap.Subtree(0)
	if len(subtree) != 4 {
		t.Errorf("Expected 4 subtree elements, got %d", len(subtree))
	}
	// Root is excluded from its own subtree.
	for _, id := range subtree {
		if id == 0 {
			t.Error("Subtree must exclude the root")
		}
	}
}

func TestAncestors(t *testing.T) {
	snap := parseFixture(t, fixturePage)

	imgs := snap.Select("img")
	if len(imgs) != 1 {
		t.Fatalf("Expected 1 img, got %d", len(imgs))
	}

	ancestors := snap.Ancestors(imgs[0], 10)
	if len(ancestors) != 2 {
		t.Fatalf("Expected 2 ancestors (a, div), got %d", len(ancestors))
	}
	if ancestors[0].Tag != "a" || ancestors[1].Tag != "div" {
		t.Errorf("Expected nearest-first a then div, got %s then %s", ancestors[0].Tag, ancestors[1].Tag)
	}

	// The max bound truncates the walk.
	if got := snap.Ancestors(imgs[0], 1); len(got) != 1 {
		t.Errorf("Expected 1 ancestor with max=1, got %d", len(got))
	}
}

func TestTextWithin(t *testing.T) {
	snap := parseFixture(t, fixturePage)

	got := snap.TextWithin(0)
	if got != "Widget Alpha $19.99" {
		t.Errorf("Expected concatenated subtree text, got %q", got)
	}
}

func TestSelectorFor(t *testing.T) {
	el := &Element{Tag: "div", Classes: []string{"row", "product-card"}}

	if got := SelectorFor(el, nil); got != "div.row" {
		t.Errorf("Expected first class with nil filter, got %q", got)
	}

	notRow := func(c string) bool { return c != "row" }
	if got := SelectorFor(el, notRow); got != "div.product-card" {
		t.Errorf("Expected filter to skip row, got %q", got)
	}

	none := func(string) bool { return false }
	if got := SelectorFor(el, none); got != "div" {
		t.Errorf("Expected bare tag when no class qualifies, got %q", got)
	}
}

func TestSubtreePreorder(t *testing.T) {
	// A nested anchor sits before a shallow span in the markup; a preorder
	// walk must surface it first, a level-by-level walk would not.
	snap := parseFixture(t, `<html><body>
<div class="card">
  <div class="inner"><a href="/x">deep link</a></div>
  <span class="label">shallow</span>
</div>
</body></html>`)

	cards := snap.Select("div.card")
	if len(cards) != 1 {
		t.Fatalf("Expected 1 card, got %d", len(cards))
	}

	var tags []string
	for _, id := range snap.Subtree(cards[0]) {
		tags = append(tags, snap.Get(id).Tag)
	}
	want := []string{"div", "a", "span"}
	if len(tags) != len(want) {
		t.Fatalf("Expected %d subtree elements, got %v", len(want), tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("Expected document order %v, got %v", want, tags)
		}
	}
}
