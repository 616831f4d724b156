// Package jsonout renders dictionary entries as JSON records. Decorations
// (before, between and after text) are not part of the data; the
// companion stylesheet written by WriteStylesheet carries them.
package jsonout

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
	"github.com/FocuswithJustin/lexpub/core/render"
)

type member struct {
	key   string
	value any
}

// object is a JSON object that keeps its members in insertion order.
type object []member

// MarshalJSON implements json.Marshaler. Repeated keys, such as two
// sibling nodes with the same class name, get a numeric suffix.
func (o object) MarshalJSON() ([]byte, error) {
	keys := o.uniqueKeys()
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(keys[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// uniqueKeys returns the member keys with repeats renamed to key_2,
// key_3 and so on, skipping names already taken.
func (o object) uniqueKeys() []string {
	keys := make([]string, len(o))
	taken := make(map[string]bool, len(o))
	for _, m := range o {
		taken[m.key] = true
	}
	seen := make(map[string]bool, len(o))
	for i, m := range o {
		key := m.key
		if seen[key] {
			for n := 2; ; n++ {
				candidate := key + "_" + strconv.Itoa(n)
				if !taken[candidate] {
					key = candidate
					break
				}
			}
			taken[key] = true
		}
		seen[key] = true
		keys[i] = key
	}
	return keys
}

// marshal encodes v without HTML escaping so text round-trips verbatim.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Fragment holds keyed members for the enclosing object and unkeyed
// values for the enclosing array. Wrapping calls read the side they need.
type Fragment struct {
	members object
	values  []any
}

// IsEmpty implements render.Fragment.
func (f Fragment) IsEmpty() bool { return len(f.members) == 0 && len(f.values) == 0 }

// String implements render.Fragment. Members serialize as an object; a
// single value as itself; several values as an array.
func (f Fragment) String() string {
	var v any
	switch {
	case len(f.values) == 0:
		v = f.members
	case len(f.values) == 1:
		v = f.values[0]
	default:
		v = f.values
	}
	data, err := marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// Value returns the fragment as a value for encoding.
func (f Fragment) Value() any {
	if len(f.values) == 1 {
		return f.values[0]
	}
	if len(f.values) > 1 {
		return f.values
	}
	return f.members
}

func as(f render.Fragment) Fragment {
	if jf, ok := f.(Fragment); ok {
		return jf
	}
	return Fragment{}
}

// Backend builds JSON fragments.
type Backend struct{}

// New returns a JSON backend.
func New() render.Backend { return Backend{} }

// Name implements render.Backend.
func (Backend) Name() string { return "json" }

// Empty implements render.Backend.
func (Backend) Empty() render.Fragment { return Fragment{} }

// Join implements render.Backend.
func (Backend) Join(parts ...render.Fragment) render.Fragment {
	var out Fragment
	for _, p := range parts {
		f := as(p)
		out.members = append(out.members, f.members...)
		out.values = append(out.values, f.values...)
	}
	return out
}

// Run implements render.Backend.
func (Backend) Run(r render.Run) render.Fragment {
	var o object
	if r.WS != "" {
		o = append(o, member{"lang", r.WS})
	}
	if r.Abbrev != "" {
		o = append(o, member{"wsAbbr", r.Abbrev})
	}
	o = append(o, member{"value", r.Text})
	return Fragment{values: []any{o}}
}

// Property implements render.Backend.
func (Backend) Property(node *config.Node, values []render.Fragment) render.Fragment {
	var list []any
	for _, v := range values {
		list = append(list, as(v).values...)
	}
	if len(list) == 0 {
		return Fragment{}
	}
	return Fragment{members: object{{node.ClassName(), list}}}
}

// Object implements render.Backend.
func (Backend) Object(node *config.Node, content render.Fragment) render.Fragment {
	c := as(content)
	if len(c.members) == 0 {
		return Fragment{}
	}
	return Fragment{members: object{{node.ClassName(), c.members}}}
}

// Collection implements render.Backend.
func (Backend) Collection(node *config.Node, items []render.Fragment) render.Fragment {
	var list []any
	for _, it := range items {
		list = append(list, as(it).values...)
	}
	if len(list) == 0 {
		return Fragment{}
	}
	return Fragment{members: object{{node.ClassName(), list}}}
}

// CollectionItem implements render.Backend.
func (Backend) CollectionItem(node *config.Node, content render.Fragment) render.Fragment {
	c := as(content)
	if len(c.members) == 0 {
		return Fragment{}
	}
	return Fragment{values: []any{c.members}}
}

// SenseNumber implements render.Backend.
func (Backend) SenseNumber(number, style string) render.Fragment {
	return Fragment{members: object{{"senseNumber", number}}}
}

// Audio implements render.Backend.
func (Backend) Audio(m render.Media) render.Fragment {
	return Fragment{members: object{{"audio", object{{"id", m.ID}, {"src", m.Path}}}}}
}

// Image implements render.Backend.
func (Backend) Image(m render.Media) render.Fragment {
	return Fragment{members: object{{"picture", object{{"id", m.ID}, {"src", m.Path}}}}}
}

// Link implements render.Backend.
func (Backend) Link(target lexicon.Handle, content render.Fragment) render.Fragment {
	c := as(content)
	if c.IsEmpty() {
		return Fragment{}
	}
	members := append(object{{"target", render.AnchorID(target)}}, c.members...)
	return Fragment{members: members, values: c.values}
}

// Error implements render.Backend. The marker serves both as a value in
// a property and as a member of an object.
func (Backend) Error(node *config.Node, diagnostic string) render.Fragment {
	marker := object{{"error", diagnostic}}
	return Fragment{members: object{{node.ClassName(), marker}}, values: []any{marker}}
}

// Entry implements render.Backend.
func (Backend) Entry(meta render.EntryMeta, content render.Fragment) render.Fragment {
	rec := object{
		{"class", meta.Class},
		{"id", render.AnchorID(meta.Handle)},
		{"headword", meta.Headword},
		{"sortIndex", meta.Index},
	}
	if meta.LetterHead != "" {
		rec = append(rec, member{"letterHead", meta.LetterHead})
	}
	rec = append(rec, as(content).members...)
	return Fragment{values: []any{rec}}
}

// LetterHeader implements render.Backend. Records carry their letter
// head instead.
func (Backend) LetterHeader(string) render.Fragment { return Fragment{} }

var _ render.Backend = Backend{}
