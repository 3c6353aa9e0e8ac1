package snapshot

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// skipTags are never added to the arena; their subtrees carry no extractable
// structure.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"meta":     true,
	"link":     true,
}

// FromDocument builds a snapshot arena from a parsed goquery document.
// Geometry is left zeroed; only browser-rendered snapshots carry rects.
func FromDocument(url string, doc *goquery.Document) *Snapshot {
	title := strings.TrimSpace(doc.Find("title").First().Text())

	var elements []Element
	var walk func(n *html.Node, parentID, depth int)
	walk = func(n *html.Node, parentID, depth int) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			tag := strings.ToLower(c.Data)
			if skipTags[tag] {
				continue
			}
			id := len(elements)
			elements = append(elements, Element{
				ID:       id,
				ParentID: parentID,
				Tag:      tag,
				Classes:  classList(c),
				Text:     ownText(c),
				Href:     attr(c, "href"),
				Src:      attr(c, "src"),
				Depth:    depth,
			})
			walk(c, id, depth+1)
		}
	}

	body := doc.Find("body")
	if body.Length() > 0 && len(body.Nodes) > 0 {
		walk(body.Nodes[0], -1, 0)
	} else if len(doc.Nodes) > 0 {
		walk(doc.Nodes[0], -1, 0)
	}

	snap := New(url, title, elements)
	snap.ScriptCount = doc.Find("script").Length()
	return snap
}

// ownText collects the direct text node content of an element, excluding
// descendant elements, collapsed to single spaces.
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			t := strings.TrimSpace(c.Data)
			if t == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t)
		}
	}
	return b.String()
}

func classList(n *html.Node) []string {
	raw := attr(n, "class")
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
