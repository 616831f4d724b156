// Package xhtml renders dictionary entries as XHTML fragments and
// assembles them into a document.
package xhtml

import (
	"strings"

	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/encoding"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
	"github.com/FocuswithJustin/lexpub/core/render"
)

// Fragment is XHTML markup.
type Fragment struct {
	markup string
}

// IsEmpty implements render.Fragment.
func (f Fragment) IsEmpty() bool { return f.markup == "" }

// String implements render.Fragment.
func (f Fragment) String() string { return f.markup }

func markup(f render.Fragment) string {
	if f == nil {
		return ""
	}
	return f.String()
}

// Backend emits spans for fields, divs for entries and letter headers.
// Decorations are written as literal text.
type Backend struct{}

// New returns an XHTML backend.
func New() render.Backend { return Backend{} }

// Name implements render.Backend.
func (Backend) Name() string { return "xhtml" }

// Empty implements render.Backend.
func (Backend) Empty() render.Fragment { return Fragment{} }

// Join implements render.Backend.
func (Backend) Join(parts ...render.Fragment) render.Fragment {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(markup(p))
	}
	return Fragment{b.String()}
}

// Run implements render.Backend.
func (Backend) Run(r render.Run) render.Fragment {
	var b strings.Builder
	if r.Abbrev != "" {
		b.WriteString(`<span class="writingsystemprefix">`)
		b.WriteString(encoding.EscapeXMLText(r.Abbrev))
		b.WriteString("</span> ")
	}
	b.WriteString("<span")
	if r.WS != "" {
		b.WriteString(` lang="`)
		b.WriteString(encoding.EscapeXMLAttr(r.WS))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	writeText(&b, r.Text)
	b.WriteString("</span>")
	return Fragment{b.String()}
}

// writeText escapes text and turns line breaks into <br/>.
func writeText(b *strings.Builder, text string) {
	start := 0
	for i, r := range text {
		if r == '\n' || r == encoding.LineSeparator {
			b.WriteString(encoding.EscapeXMLText(text[start:i]))
			b.WriteString("<br/>")
			start = i + len(string(r))
		}
	}
	b.WriteString(encoding.EscapeXMLText(text[start:]))
}

func wrap(class, before, body, after string) render.Fragment {
	var b strings.Builder
	b.WriteString(`<span class="`)
	b.WriteString(encoding.EscapeXMLAttr(class))
	b.WriteString(`">`)
	b.WriteString(encoding.EscapeXMLText(before))
	b.WriteString(body)
	b.WriteString(encoding.EscapeXMLText(after))
	b.WriteString("</span>")
	return Fragment{b.String()}
}

func joinBetween(parts []render.Fragment, between string) (string, bool) {
	var b strings.Builder
	n := 0
	for _, p := range parts {
		if p == nil || p.IsEmpty() {
			continue
		}
		if n > 0 {
			b.WriteString(encoding.EscapeXMLText(between))
		}
		b.WriteString(p.String())
		n++
	}
	return b.String(), n > 0
}

// Property implements render.Backend.
func (Backend) Property(node *config.Node, values []render.Fragment) render.Fragment {
	body, ok := joinBetween(values, node.Between)
	if !ok {
		return Fragment{}
	}
	return wrap(node.ClassName(), node.Before, body, node.After)
}

// Object implements render.Backend.
func (Backend) Object(node *config.Node, content render.Fragment) render.Fragment {
	if content == nil || content.IsEmpty() {
		return Fragment{}
	}
	return wrap(node.ClassName(), node.Before, content.String(), node.After)
}

// Collection implements render.Backend.
func (Backend) Collection(node *config.Node, items []render.Fragment) render.Fragment {
	body, ok := joinBetween(items, node.Between)
	if !ok {
		return Fragment{}
	}
	return wrap(node.ClassName(), node.Before, body, node.After)
}

// CollectionItem implements render.Backend.
func (Backend) CollectionItem(node *config.Node, content render.Fragment) render.Fragment {
	if content == nil || content.IsEmpty() {
		return Fragment{}
	}
	return wrap(node.ClassName()+"-item", "", content.String(), "")
}

// SenseNumber implements render.Backend.
func (Backend) SenseNumber(number, style string) render.Fragment {
	return wrap("sensenumber", "", encoding.EscapeXMLText(number), "")
}

// Audio implements render.Backend.
func (Backend) Audio(m render.Media) render.Fragment {
	id := encoding.EscapeXMLAttr(m.ID)
	return Fragment{`<audio id="` + id + `"><source src="` + encoding.EscapeXMLAttr(m.Path) +
		`"/></audio><a class="mediafile" href="#` + id + `">&#9658;</a>`}
}

// Image implements render.Backend.
func (Backend) Image(m render.Media) render.Fragment {
	return Fragment{`<img class="picture" id="` + encoding.EscapeXMLAttr(m.ID) +
		`" src="` + encoding.EscapeXMLAttr(m.Path) + `" alt=""/>`}
}

// Link implements render.Backend.
func (Backend) Link(target lexicon.Handle, content render.Fragment) render.Fragment {
	if content == nil || content.IsEmpty() {
		return Fragment{}
	}
	return Fragment{`<a href="#` + render.AnchorID(target) + `">` + content.String() + "</a>"}
}

// Error implements render.Backend.
func (Backend) Error(node *config.Node, diagnostic string) render.Fragment {
	return Fragment{`<span class="error" title="` + encoding.EscapeXMLAttr(node.Path()) + `">` +
		encoding.EscapeXMLText(diagnostic) + "</span>"}
}

// Entry implements render.Backend.
func (Backend) Entry(meta render.EntryMeta, content render.Fragment) render.Fragment {
	return Fragment{`<div class="` + encoding.EscapeXMLAttr(meta.Class) + `" id="` + render.AnchorID(meta.Handle) +
		`">` + markup(content) + "</div>"}
}

// LetterHeader implements render.Backend.
func (Backend) LetterHeader(text string) render.Fragment {
	return Fragment{`<div class="letHead"><span class="letter">` + encoding.EscapeXMLText(text) + "</span></div>"}
}

var _ render.Backend = Backend{}
