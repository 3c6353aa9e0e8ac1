// Package snapshot provides an immutable, indexed view of a page's DOM
// captured at one point in time. Elements are referenced by stable integer
// IDs; ancestor and subtree lookups resolve through indexes rather than
// live node pointers, so a snapshot can be shared freely across goroutines.
package snapshot

import (
	"strings"
)

// Rect is an element's bounding geometry in page coordinates
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// Element is one DOM element in the arena. ParentID is -1 for the root.
type Element struct {
	ID       int
	ParentID int
	Tag      string
	Classes  []string
	Text     string
	Href     string
	Src      string
	Rect     Rect
	Depth    int
}

// HasClass reports whether the element carries the given class token.
func (e *Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Snapshot is the read-only element arena plus lookup indexes
type Snapshot struct {
	URL   string
	Title string
	// ScriptCount is the number of script tags seen while building; the
	// arena itself never stores script elements.
	ScriptCount int
	elements    []Element
	children    map[int][]int
	// bySelector maps "tag.class" and bare "tag" keys to element IDs,
	// in document order.
	bySelector map[string][]int
}

// New builds a snapshot from a pre-assembled element slice. Elements must be
// in document order with IDs equal to their slice index.
func New(url, title string, elements []Element) *Snapshot {
	s := &Snapshot{
		URL:        url,
		Title:      title,
		elements:   elements,
		children:   make(map[int][]int),
		bySelector: make(map[string][]int),
	}
	for i := range elements {
		el := &elements[i]
		if el.ParentID >= 0 {
			s.children[el.ParentID] = append(s.children[el.ParentID], el.ID)
		}
		s.bySelector[el.Tag] = append(s.bySelector[el.Tag], el.ID)
		for _, c := range el.Classes {
			key := el.Tag + "." + c
			s.bySelector[key] = append(s.bySelector[key], el.ID)
		}
	}
	return s
}

// Len returns the number of elements in the arena.
func (s *Snapshot) Len() int {
	return len(s.elements)
}

// Get returns the element with the given ID, or nil if out of range.
func (s *Snapshot) Get(id int) *Element {
	if id < 0 || id >= len(s.elements) {
		return nil
	}
	return &s.elements[id]
}

// Elements returns the full arena in document order. Callers must not mutate.
func (s *Snapshot) Elements() []Element {
	return s.elements
}

// Parent returns the parent element, or nil at the root.
func (s *Snapshot) Parent(id int) *Element {
	el := s.Get(id)
	if el == nil || el.ParentID < 0 {
		return nil
	}
	return s.Get(el.ParentID)
}

// Ancestors returns up to max ancestors of the element, nearest first.
func (s *Snapshot) Ancestors(id, max int) []*Element {
	var out []*Element
	cur := s.Parent(id)
	for cur != nil && len(out) < max {
		out = append(out, cur)
		cur = s.Parent(cur.ID)
	}
	return out
}

// Children returns the direct child IDs of an element in document order.
func (s *Snapshot) Children(id int) []int {
	return s.children[id]
}

// Select returns the IDs of elements matching a "tag.class" or "tag"
// selector, in document order. Unknown selectors yield nil.
func (s *Snapshot) Select(selector string) []int {
	return s.bySelector[selector]
}

// Subtree returns all element IDs under root (root excluded), in document
// order. Field location takes the first match in this order, so the walk
// must be preorder, not level by level.
func (s *Snapshot) Subtree(root int) []int {
	var out []int
	var stack []int
	push := func(ids []int) {
		for i := len(ids) - 1; i >= 0; i-- {
			stack = append(stack, ids[i])
		}
	}
	push(s.children[root])
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, id)
		push(s.children[id])
	}
	return out
}

// SelectorFor builds the "tag.class" selector key for an element using its
// first class token that passes the provided filter, or bare tag if none.
func SelectorFor(el *Element, valid func(string) bool) string {
	for _, c := range el.Classes {
		if valid == nil || valid(c) {
			return el.Tag + "." + c
		}
	}
	return el.Tag
}

// TextWithin concatenates the text of an element and its subtree, trimmed.
func (s *Snapshot) TextWithin(id int) string {
	el := s.Get(id)
	if el == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(el.Text)
	for _, sub := range s.Subtree(id) {
		t := s.elements[sub].Text
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return strings.TrimSpace(b.String())
}
