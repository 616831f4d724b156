// Package render walks a configuration tree over the visible entries of a
// publication and produces output through a format-specific Backend.
//
// Rendering an entry is a pure function of the publication view, the
// configuration tree and the entry handle, so a batch renders entries in
// parallel and assembles the fragments in their original order.
package render

import (
	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
)

// Fragment is a piece of backend output. Its concrete type belongs to the
// backend that built it; a fragment handed to a parent call belongs to the
// parent from then on.
type Fragment interface {
	// IsEmpty reports whether the fragment would produce no output.
	IsEmpty() bool
	// String returns the serialized form of the fragment.
	String() string
}

// Run is a unit of text in one writing system. '\n' and U+2028 inside Text
// are line breaks.
type Run struct {
	WS string
	// Abbrev, when set, is shown before the text to name the writing system.
	Abbrev string
	Text   string
	Style  string
}

// Media is an audio or image attachment.
type Media struct {
	ID   string
	Path string
}

// EntryMeta describes an entry to the backend when it is bracketed.
type EntryMeta struct {
	Handle   lexicon.Handle
	Class    string
	Index    int
	Headword string
	Letter   string
	// LetterHead is the header text when this entry opens a new letter
	// section, "" otherwise.
	LetterHead string
}

// Backend is the contract every output format implements. Calls that wrap
// content receive the finished child fragments, so nesting always
// balances; wrapping calls given only empty content return an empty
// fragment instead of an empty container.
//
// Backends never call back into the pipeline and keep no state between
// calls, so one backend value may serve a whole batch assembly while each
// worker uses its own.
type Backend interface {
	// Name identifies the format ("xhtml", "json", "odt").
	Name() string
	Empty() Fragment
	// Join concatenates sibling fragments.
	Join(parts ...Fragment) Fragment
	Run(r Run) Fragment
	// Property wraps the values of a string-like field. The node's between
	// text separates the values; before and after surround them.
	Property(node *config.Node, values []Fragment) Fragment
	// Object wraps the rendered children of an owned or referenced object,
	// or of a grouping node.
	Object(node *config.Node, content Fragment) Fragment
	// Collection wraps the items of a vector field.
	Collection(node *config.Node, items []Fragment) Fragment
	CollectionItem(node *config.Node, content Fragment) Fragment
	SenseNumber(number, style string) Fragment
	Audio(m Media) Fragment
	Image(m Media) Fragment
	// Link makes content point at another entry or sense.
	Link(target lexicon.Handle, content Fragment) Fragment
	// Error is the marker emitted in place of a value that could not be
	// rendered. diagnostic is already sanitized.
	Error(node *config.Node, diagnostic string) Fragment
	// Entry brackets the content of one entry.
	Entry(meta EntryMeta, content Fragment) Fragment
	LetterHeader(text string) Fragment
}

// Factory returns a fresh Backend. RenderBatch calls it once per worker
// and once for assembly.
type Factory func() Backend

// AnchorID returns the id used for an object in output and links.
func AnchorID(h lexicon.Handle) string {
	return "h" + h.String()
}
