package render

import (
	"sort"

	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
)

// vector renders the publication-filtered items of a vector field as a
// collection.
func (p *Pipeline) vector(sc scope, node *config.Node, info lexicon.FieldInfo) (Fragment, error) {
	items, err := p.view.Vector(sc.obj, info.ID)
	if err != nil {
		return nil, err
	}
	if info.Name == lexicon.FieldTargets && sc.referrer != lexicon.NoHandle {
		items = without(items, sc.referrer)
	}
	if info.Dest == lexicon.ClassReference && node.List != nil {
		if items, err = p.allowedRelations(node, items); err != nil {
			return nil, err
		}
	}
	if len(items) == 0 {
		return p.backend.Empty(), nil
	}

	numbering := senseNumbering(node, info)
	type emitted struct {
		content Fragment
		number  string
	}
	var kept []emitted
	for _, item := range items {
		child := scope{obj: item, referrer: sc.obj, senseNumber: sc.senseNumber}
		if numbering != nil {
			// Items that render nothing do not consume a number.
			child.senseNumber = numbering.full(sc.senseNumber, len(kept)+1)
		}
		content, err := p.children(child, node)
		if err != nil {
			return nil, err
		}
		if content.IsEmpty() {
			continue
		}
		if content, err = p.linkIfReferenced(sc.obj, item, content); err != nil {
			return nil, err
		}
		kept = append(kept, emitted{content: content, number: child.senseNumber})
	}
	if len(kept) == 0 {
		return p.backend.Empty(), nil
	}

	show := numbering != nil && numbering.show(len(kept))
	out := make([]Fragment, 0, len(kept))
	for _, k := range kept {
		content := k.content
		if show {
			number := p.backend.SenseNumber(numbering.display(k.number), numbering.opts.NumberStyleName)
			content = p.backend.Join(number, content)
		}
		out = append(out, p.backend.CollectionItem(node, content))
	}
	return p.backend.Collection(node, out), nil
}

// allowedRelations keeps the lexical references whose relation type the
// node's list options enable.
func (p *Pipeline) allowedRelations(node *config.Node, refs []lexicon.Handle) ([]lexicon.Handle, error) {
	nameField, err := p.field(lexicon.ClassRefType, lexicon.FieldName)
	if err != nil {
		return refs, nil
	}
	out := make([]lexicon.Handle, 0, len(refs))
	for _, ref := range refs {
		refType, err := p.view.Owner(ref)
		if err != nil {
			return nil, err
		}
		val, err := p.view.Scalar(refType, nameField)
		if err != nil {
			return nil, err
		}
		if node.List.Allows(firstAlternative(val)) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func firstAlternative(val lexicon.Value) string {
	if val.Kind != lexicon.KindMultiString {
		return val.Str
	}
	keys := make([]string, 0, len(val.Multi))
	for k := range val.Multi {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if val.Multi[k] != "" {
			return val.Multi[k]
		}
	}
	return ""
}

func without(items []lexicon.Handle, h lexicon.Handle) []lexicon.Handle {
	out := make([]lexicon.Handle, 0, len(items))
	for _, it := range items {
		if it != h {
			out = append(out, it)
		}
	}
	return out
}

type numbering struct {
	opts *config.SenseOptions
}

// senseNumbering returns the numbering for a sense vector, or nil when the
// node does not number its items.
func senseNumbering(node *config.Node, info lexicon.FieldInfo) *numbering {
	if node.Senses == nil || node.Senses.NumberStyle == "" || info.Dest != lexicon.ClassSense {
		return nil
	}
	return &numbering{opts: node.Senses}
}

// show reports whether numbers are displayed for count rendered senses.
func (n *numbering) show(count int) bool {
	return count > 1 || n.opts.NumberSingleSense
}

func (n *numbering) full(parent string, i int) string {
	own := FormatNumber(n.opts.NumberStyle, i)
	if n.opts.ShowParentNumber && parent != "" {
		return parent + n.opts.ParentSeparator + own
	}
	return own
}

func (n *numbering) display(number string) string {
	return n.opts.NumberBefore + number + n.opts.NumberAfter
}
