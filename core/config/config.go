// Package config models the dictionary configuration tree: which fields of
// an entry are shown, in what order, with which decorations and styles.
//
// Trees are built by callers or loaded from YAML and are read-only once
// linked; the render pipeline only traverses them.
package config

import (
	"strings"
	"unicode"
)

// Node is one element of a configuration tree.
type Node struct {
	Label    string `yaml:"label"`
	Field    string `yaml:"field,omitempty"`
	SubField string `yaml:"subField,omitempty"`
	CSSClass string `yaml:"cssClass,omitempty"`
	Style    string `yaml:"style,omitempty"`
	Before   string `yaml:"before,omitempty"`
	Between  string `yaml:"between,omitempty"`
	After    string `yaml:"after,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`

	WritingSystems *WritingSystemOptions `yaml:"writingSystems,omitempty"`
	Senses         *SenseOptions         `yaml:"senses,omitempty"`
	List           *ListOptions          `yaml:"list,omitempty"`

	Children []*Node `yaml:"children,omitempty"`

	parent *Node
}

// WritingSystemOptions selects the writing systems a string field renders.
type WritingSystemOptions struct {
	Options []Option `yaml:"options"`
	// DisplayAbbreviation prefixes each alternative with its writing
	// system abbreviation.
	DisplayAbbreviation bool `yaml:"displayAbbreviation,omitempty"`
}

// Option is one selectable item of an option list.
type Option struct {
	ID       string `yaml:"id"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// Enabled returns the ids of the enabled options in order.
func (o *WritingSystemOptions) Enabled() []string {
	if o == nil {
		return nil
	}
	return enabledIDs(o.Options)
}

// SenseOptions controls sense numbering.
type SenseOptions struct {
	// NumberStyle is one of %d, %a, %A, %i, %I. Empty disables numbering.
	NumberStyle     string `yaml:"numberStyle,omitempty"`
	NumberBefore    string `yaml:"numberBefore,omitempty"`
	NumberAfter     string `yaml:"numberAfter,omitempty"`
	NumberStyleName string `yaml:"numberStyleName,omitempty"`
	// ShowParentNumber prefixes subsense numbers with the parent number,
	// joined by ParentSeparator.
	ShowParentNumber  bool   `yaml:"showParentNumber,omitempty"`
	ParentSeparator   string `yaml:"parentSeparator,omitempty"`
	NumberSingleSense bool   `yaml:"numberSingleSense,omitempty"`
}

// ListOptions restricts which list items (relation types by name) are shown.
type ListOptions struct {
	Options []Option `yaml:"options"`
}

// Allows reports whether name is enabled. A nil or empty list allows all.
func (o *ListOptions) Allows(name string) bool {
	if o == nil || len(o.Options) == 0 {
		return true
	}
	for _, opt := range o.Options {
		if opt.ID == name {
			return !opt.Disabled
		}
	}
	return false
}

func enabledIDs(opts []Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if !o.Disabled {
			out = append(out, o.ID)
		}
	}
	return out
}

// Enabled reports whether the node is rendered.
func (n *Node) Enabled() bool { return !n.Disabled }

// IsGroup reports whether the node only aggregates its children under a
// heading without reading a field of its own.
func (n *Node) IsGroup() bool { return n.Field == "" && len(n.Children) > 0 }

// Parent returns the parent node, or nil for the root or an unlinked node.
func (n *Node) Parent() *Node { return n.parent }

// Path returns the labels from the root down to n joined by " > ".
func (n *Node) Path() string {
	var labels []string
	for cur := n; cur != nil; cur = cur.parent {
		labels = append(labels, cur.Label)
	}
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return strings.Join(labels, " > ")
}

// ClassName returns the CSS class (and JSON key) for the node: the
// override when set, otherwise the lower-cased label with everything but
// letters and digits removed.
func (n *Node) ClassName() string {
	if n.CSSClass != "" {
		return n.CSSClass
	}
	name := n.Label
	if name == "" {
		name = n.Field
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Link sets parent pointers throughout the subtree rooted at n and
// returns n.
func (n *Node) Link() *Node {
	for _, c := range n.Children {
		c.parent = n
		c.Link()
	}
	return n
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the first descendant (or n itself) with the given label.
func (n *Node) Find(label string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Label == label {
			found = c
			return false
		}
		return true
	})
	return found
}
