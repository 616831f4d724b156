// Package odt renders dictionary entries as OpenDocument text paragraphs
// and packages them into an .odt file.
package odt

import (
	"strings"

	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/encoding"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
	"github.com/FocuswithJustin/lexpub/core/render"
)

// Paragraph style names used by the backend.
const (
	EntryStyle       = "Entry"
	LetterStyle      = "Letter"
	SenseNumberStyle = "Dictionary-SenseNumber"
	ErrorStyle       = "Dictionary-Error"
)

// Fragment is content.xml markup.
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

// Backend writes text:span runs inside one text:p per entry. Styles are
// referenced by name; WritePackage defines them.
type Backend struct{}

// New returns an ODT backend.
func New() render.Backend { return Backend{} }

// Name implements render.Backend.
func (Backend) Name() string { return "odt" }

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

// StyleName turns a style name into an ODF NCName.
func StyleName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '-' || r == '_' || r == '.':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		case r == ' ':
			b.WriteString("_20_")
		case r < 0x80 && !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// writeText escapes text. Line breaks, tabs and repeated spaces become
// their ODF elements so the text survives whitespace collapsing.
func writeText(b *strings.Builder, text string) {
	prevSpace := false
	for _, r := range text {
		switch r {
		case '\n', encoding.LineSeparator:
			b.WriteString("<text:line-break/>")
			prevSpace = false
			continue
		case '\t':
			b.WriteString("<text:tab/>")
		case ' ':
			if prevSpace {
				b.WriteString("<text:s/>")
			} else {
				b.WriteByte(' ')
			}
			prevSpace = true
			continue
		default:
			b.WriteString(encoding.EscapeXMLText(string(r)))
		}
		prevSpace = false
	}
}

func text(s string) string {
	var b strings.Builder
	writeText(&b, s)
	return b.String()
}

func span(styleName, body string) string {
	if styleName == "" {
		return body
	}
	return `<text:span text:style-name="` + encoding.EscapeXMLAttr(StyleName(styleName)) + `">` + body + "</text:span>"
}

// Run implements render.Backend.
func (Backend) Run(r render.Run) render.Fragment {
	body := text(r.Text)
	if r.Abbrev != "" {
		body = text(r.Abbrev) + " " + body
	}
	return Fragment{span(r.Style, body)}
}

func decorate(node *config.Node, body string) string {
	return text(node.Before) + body + text(node.After)
}

func joinBetween(parts []render.Fragment, between string) (string, bool) {
	var b strings.Builder
	n := 0
	for _, p := range parts {
		if p == nil || p.IsEmpty() {
			continue
		}
		if n > 0 {
			b.WriteString(text(between))
		}
		b.WriteString(p.String())
		n++
	}
	return b.String(), n > 0
}

// Property implements render.Backend. The runs carry the node style.
func (Backend) Property(node *config.Node, values []render.Fragment) render.Fragment {
	body, ok := joinBetween(values, node.Between)
	if !ok {
		return Fragment{}
	}
	return Fragment{decorate(node, body)}
}

// Object implements render.Backend.
func (Backend) Object(node *config.Node, content render.Fragment) render.Fragment {
	if content == nil || content.IsEmpty() {
		return Fragment{}
	}
	return Fragment{span(node.Style, decorate(node, content.String()))}
}

// Collection implements render.Backend.
func (Backend) Collection(node *config.Node, items []render.Fragment) render.Fragment {
	body, ok := joinBetween(items, node.Between)
	if !ok {
		return Fragment{}
	}
	return Fragment{span(node.Style, decorate(node, body))}
}

// CollectionItem implements render.Backend.
func (Backend) CollectionItem(node *config.Node, content render.Fragment) render.Fragment {
	if content == nil || content.IsEmpty() {
		return Fragment{}
	}
	return Fragment{content.String()}
}

// SenseNumber implements render.Backend.
func (Backend) SenseNumber(number, style string) render.Fragment {
	if style == "" {
		style = SenseNumberStyle
	}
	return Fragment{span(style, text(number))}
}

// Audio implements render.Backend.
func (Backend) Audio(m render.Media) render.Fragment {
	return Fragment{`<text:a xlink:type="simple" xlink:href="` + encoding.EscapeXMLAttr(m.Path) + `">&#9658;</text:a>`}
}

// Image implements render.Backend. Pictures are linked, not embedded.
func (Backend) Image(m render.Media) render.Fragment {
	return Fragment{`<draw:frame draw:name="` + encoding.EscapeXMLAttr(m.ID) +
		`" text:anchor-type="as-char" svg:width="3cm" svg:height="3cm"><draw:image xlink:type="simple" xlink:href="` +
		encoding.EscapeXMLAttr(m.Path) + `"/></draw:frame>`}
}

// Link implements render.Backend.
func (Backend) Link(target lexicon.Handle, content render.Fragment) render.Fragment {
	if content == nil || content.IsEmpty() {
		return Fragment{}
	}
	return Fragment{`<text:a xlink:type="simple" xlink:href="#` + render.AnchorID(target) + `">` + content.String() + "</text:a>"}
}

// Error implements render.Backend.
func (Backend) Error(node *config.Node, diagnostic string) render.Fragment {
	return Fragment{span(ErrorStyle, text(diagnostic))}
}

// Entry implements render.Backend.
func (Backend) Entry(meta render.EntryMeta, content render.Fragment) render.Fragment {
	return Fragment{`<text:p text:style-name="` + EntryStyle + `"><text:bookmark text:name="` +
		render.AnchorID(meta.Handle) + `"/>` + markup(content) + "</text:p>"}
}

// LetterHeader implements render.Backend.
func (Backend) LetterHeader(header string) render.Fragment {
	return Fragment{`<text:p text:style-name="` + LetterStyle + `">` + text(header) + "</text:p>"}
}

var _ render.Backend = Backend{}
