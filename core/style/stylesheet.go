package style

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/encoding"
	"github.com/FocuswithJustin/lexpub/core/errors"
)

// StylesheetOptions controls CSS generation.
type StylesheetOptions struct {
	// WritingSystem is used to resolve node styles.
	WritingSystem string
	// Decorations emits before/between/after text as generated content,
	// for outputs that do not carry the text themselves.
	Decorations bool
}

// Stylesheet generates CSS for a configuration tree: one rule per styled
// node, selected by the chain of class names from the root. Styles the
// resolver does not know are left out.
func Stylesheet(root *config.Node, r Resolver, opts StylesheetOptions) (string, error) {
	var b strings.Builder
	if err := writeRule(&b, ".letter", "Dictionary-Letter", r, opts.WritingSystem); err != nil {
		return "", err
	}
	var walk func(n *config.Node, selector string) error
	walk = func(n *config.Node, selector string) error {
		if !n.Enabled() {
			return nil
		}
		sel := "." + n.ClassName()
		if selector != "" {
			sel = selector + " " + sel
		}
		if n.Style != "" {
			if err := writeRule(&b, sel, n.Style, r, opts.WritingSystem); err != nil {
				return err
			}
		}
		if opts.Decorations {
			writeContent(&b, sel+":before", n.Before)
			writeContent(&b, sel+" > * + *:before", n.Between)
			writeContent(&b, sel+":after", n.After)
		}
		for _, c := range n.Children {
			if err := walk(c, sel); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, ""); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeRule(b *strings.Builder, selector, name string, r Resolver, ws string) error {
	decls, err := r.ResolveStyle(name, ws)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return errors.Wrapf(err, "resolving style %s", name)
	}
	if len(decls) == 0 {
		return nil
	}
	fmt.Fprintf(b, "%s { %s }\n", selector, decls.CSS())
	return nil
}

func writeContent(b *strings.Builder, selector, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(b, "%s { content: \"%s\"; }\n", selector, encoding.EscapeCSSString(text))
}
