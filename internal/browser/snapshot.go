package browser

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Attribute is one HTML attribute captured for an element.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Element is one row of the serialized element tree. Interactive elements
// carry an Index >= 1; text rows have Index 0.
type Element struct {
	Index      int         `json:"index"`
	Tag        string      `json:"tag,omitempty"`
	Attributes []Attribute `json:"attrs,omitempty"`
	Text       string      `json:"text,omitempty"`
	Depth      int         `json:"depth,omitempty"`
}

// Interactive reports whether the element can be targeted by index.
func (e Element) Interactive() bool {
	return e.Index > 0
}

// Attr returns the value of the named attribute.
func (e Element) Attr(name string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Tab describes an open browser tab.
type Tab struct {
	PageID int    `json:"page_id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

// Snapshot is an immutable picture of the page taken at the start of a step.
type Snapshot struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Tabs        []Tab     `json:"tabs"`
	Elements    []Element `json:"elements"`
	PixelsAbove int       `json:"pixels_above"`
	PixelsBelow int       `json:"pixels_below"`
	Screenshot  []byte    `json:"-"`
}

// SnapshotOptions tunes what a driver captures.
type SnapshotOptions struct {
	Screenshot        bool
	IncludeAttributes []string
}

// SelectorMap indexes the interactive elements of the snapshot.
func (s *Snapshot) SelectorMap() map[int]Element {
	out := make(map[int]Element)
	for _, el := range s.Elements {
		if el.Interactive() {
			out[el.Index] = el
		}
	}
	return out
}

// HasIndex reports whether index names an interactive element of s.
func (s *Snapshot) HasIndex(index int) bool {
	if s == nil || index <= 0 {
		return false
	}
	for _, el := range s.Elements {
		if el.Index == index {
			return true
		}
	}
	return false
}

// HasScreenshot reports whether an image was captured.
func (s *Snapshot) HasScreenshot() bool {
	return s != nil && len(s.Screenshot) > 0
}

// ClickableElementsToString renders the element tree one row per line.
// Interactive rows look like `3[:]<button type="submit">Send</button>`,
// text rows like `_[:]Welcome back`. Only attributes named in include are
// rendered; a nil include renders every captured attribute.
func (s *Snapshot) ClickableElementsToString(include []string) string {
	if s == nil || len(s.Elements) == 0 {
		return ""
	}

	var allowed map[string]struct{}
	if include != nil {
		allowed = make(map[string]struct{}, len(include))
		for _, name := range include {
			allowed[name] = struct{}{}
		}
	}

	var sb strings.Builder
	for _, el := range s.Elements {
		if !el.Interactive() {
			text := strings.TrimSpace(el.Text)
			if text == "" {
				continue
			}
			sb.WriteString("_[:]")
			sb.WriteString(text)
			sb.WriteByte('\n')
			continue
		}

		sb.WriteString(strconv.Itoa(el.Index))
		sb.WriteString("[:]<")
		sb.WriteString(el.Tag)
		for _, a := range el.Attributes {
			if allowed != nil {
				if _, ok := allowed[a.Name]; !ok {
					continue
				}
			}
			if a.Value == "" {
				continue
			}
			sb.WriteByte(' ')
			sb.WriteString(a.Name)
			sb.WriteString(`="`)
			sb.WriteString(strings.ReplaceAll(a.Value, `"`, `\"`))
			sb.WriteByte('"')
		}
		sb.WriteByte('>')
		sb.WriteString(el.Text)
		sb.WriteString("</")
		sb.WriteString(el.Tag)
		sb.WriteString(">\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Fingerprint is a comparable summary of page structure. Two snapshots of
// the same page differ in fingerprint only when the URL, the number of tabs
// or the set of interactive elements changed. Typing into a field does not
// change it.
type Fingerprint struct {
	URL   string
	Tabs  int
	Shape uint64
}

// Fingerprint computes the structural fingerprint of s.
func (s *Snapshot) Fingerprint() Fingerprint {
	d := xxhash.New()
	for _, el := range s.Elements {
		if !el.Interactive() {
			continue
		}
		_, _ = d.WriteString(strconv.Itoa(el.Index))
		_, _ = d.WriteString("|")
		_, _ = d.WriteString(el.Tag)
		_, _ = d.WriteString("\n")
	}
	return Fingerprint{URL: s.URL, Tabs: len(s.Tabs), Shape: d.Sum64()}
}
