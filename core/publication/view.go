// Package publication filters a lexical object graph down to what one
// publication may show.
//
// A View decorates a lexicon.Source. Vector fields are filtered by the
// publication's exclusion rules, homograph numbers are recomputed within
// the visible subset, and headwords are rebuilt from the recomputed
// numbers. The derived state is rebuilt only by Refresh; a View must not
// be refreshed while a render batch is reading it.
package publication

import (
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
)

type policy int

const (
	policyNone policy = iota
	policyAllEntries
	policyExcluded
	policyLexRef
	policyEntryRef
)

// Option configures a View.
type Option func(*View)

// WithWritingSystem sets the writing system used for homograph forms and
// for headwords requested without one.
func WithWritingSystem(ws string) Option {
	return func(v *View) { v.ws = ws }
}

// View is the publication-filtered view of a Source. It implements
// lexicon.Source itself, so consumers can read through it transparently.
type View struct {
	src lexicon.Source
	pub lexicon.Handle
	ws  string

	f        fields
	policies map[lexicon.FieldID]policy

	state atomic.Pointer[state]
}

// fields caches the ids the view needs, resolved once in New.
type fields struct {
	entries        lexicon.FieldID
	lexemeForm     lexicon.FieldID
	citationForm   lexicon.FieldID
	homograph      lexicon.FieldID
	homographForm  lexicon.FieldID
	morphType      lexicon.FieldID
	entrySenses    lexicon.FieldID
	subsenses      lexicon.FieldID
	examples       lexicon.FieldID
	targets        lexicon.FieldID
	mappingType    lexicon.FieldID
	components     lexicon.FieldID
	secondaryOrder lexicon.FieldID
	prefix         lexicon.FieldID
	postfix        lexicon.FieldID
	doNotShowMain  lexicon.FieldID
	doNotPublishIn map[lexicon.ClassID]lexicon.FieldID
}

type state struct {
	excluded           map[lexicon.Handle]struct{}
	excludedAsHeadword map[lexicon.Handle]struct{}
	homographs         map[lexicon.Handle]int
}

// New builds a view of src for publication pub and computes its derived
// state. A pub of lexicon.NoHandle publishes everything.
func New(src lexicon.Source, pub lexicon.Handle, opts ...Option) (*View, error) {
	v := &View{src: src, pub: pub}
	for _, opt := range opts {
		opt(v)
	}
	if err := v.resolveFields(); err != nil {
		return nil, err
	}
	v.classifyFields()
	if err := v.Refresh(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *View) resolveFields() error {
	var firstErr error
	resolve := func(class lexicon.ClassID, name string) lexicon.FieldID {
		id, err := v.src.FieldID(class, name)
		if err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "publication view needs %s.%s", class, name)
		}
		return id
	}
	optional := func(class lexicon.ClassID, name string) lexicon.FieldID {
		id, err := v.src.FieldID(class, name)
		if err != nil {
			return 0
		}
		return id
	}

	v.f = fields{
		entries:        resolve(lexicon.ClassLexDb, lexicon.FieldEntries),
		lexemeForm:     resolve(lexicon.ClassEntry, lexicon.FieldLexemeForm),
		citationForm:   optional(lexicon.ClassEntry, lexicon.FieldCitationForm),
		homograph:      resolve(lexicon.ClassEntry, lexicon.FieldHomographNumber),
		homographForm:  optional(lexicon.ClassEntry, lexicon.FieldHomographForm),
		morphType:      optional(lexicon.ClassEntry, lexicon.FieldMorphType),
		entrySenses:    resolve(lexicon.ClassEntry, lexicon.FieldSenses),
		subsenses:      optional(lexicon.ClassSense, lexicon.FieldSenses),
		examples:       optional(lexicon.ClassSense, lexicon.FieldExamples),
		targets:        resolve(lexicon.ClassReference, lexicon.FieldTargets),
		mappingType:    resolve(lexicon.ClassRefType, lexicon.FieldMappingType),
		components:     resolve(lexicon.ClassEntryRef, lexicon.FieldComponentLexemes),
		secondaryOrder: optional(lexicon.ClassMorphType, lexicon.FieldSecondaryOrder),
		prefix:         optional(lexicon.ClassMorphType, lexicon.FieldPrefix),
		postfix:        optional(lexicon.ClassMorphType, lexicon.FieldPostfix),
		doNotShowMain:  optional(lexicon.ClassEntry, lexicon.FieldDoNotShowMainEntryIn),
		doNotPublishIn: make(map[lexicon.ClassID]lexicon.FieldID),
	}
	for _, class := range []lexicon.ClassID{lexicon.ClassEntry, lexicon.ClassSense, lexicon.ClassExample} {
		if id := optional(class, lexicon.FieldDoNotPublishIn); id != 0 {
			v.f.doNotPublishIn[class] = id
		}
	}
	return firstErr
}

// classifyFields assigns a filter policy to every vector field known to
// the source.
func (v *View) classifyFields() {
	v.policies = make(map[lexicon.FieldID]policy)
	for _, info := range v.src.Fields() {
		if info.Kind != lexicon.KindVector {
			continue
		}
		switch {
		case info.ID == v.f.entries:
			v.policies[info.ID] = policyAllEntries
		case info.Dest == lexicon.ClassEntry, info.Dest == lexicon.ClassSense,
			info.Dest == lexicon.ClassExample, info.Dest == lexicon.ClassEntryOrSense:
			v.policies[info.ID] = policyExcluded
		case info.Dest == lexicon.ClassReference:
			v.policies[info.ID] = policyLexRef
		case info.Dest == lexicon.ClassEntryRef:
			v.policies[info.ID] = policyEntryRef
		}
	}
}

// Publication returns the publication handle of the view.
func (v *View) Publication() lexicon.Handle { return v.pub }

// WritingSystem returns the configured headword writing system.
func (v *View) WritingSystem() string { return v.ws }

// Underlying returns the unfiltered source.
func (v *View) Underlying() lexicon.Source { return v.src }

func (v *View) current() *state {
	return v.state.Load()
}

// IsVisible reports whether h may appear anywhere in the publication.
func (v *View) IsVisible(h lexicon.Handle) bool {
	_, hidden := v.current().excluded[h]
	return !hidden
}

// IsHeadwordVisible reports whether h may appear as a main entry.
func (v *View) IsHeadwordVisible(h lexicon.Handle) bool {
	st := v.current()
	if _, hidden := st.excluded[h]; hidden {
		return false
	}
	_, hidden := st.excludedAsHeadword[h]
	return !hidden
}

// Excluded returns the sorted excluded handles.
func (v *View) Excluded() []lexicon.Handle {
	return sortedHandles(v.current().excluded)
}

// ExcludedAsHeadword returns the sorted handles excluded only as main entries.
func (v *View) ExcludedAsHeadword() []lexicon.Handle {
	return sortedHandles(v.current().excludedAsHeadword)
}

// Homographs returns a copy of the homograph table.
func (v *View) Homographs() map[lexicon.Handle]int {
	src := v.current().homographs
	out := make(map[lexicon.Handle]int, len(src))
	for h, n := range src {
		out[h] = n
	}
	return out
}

// Vector returns the owner's vector for field, filtered by the field's
// publication policy.
func (v *View) Vector(owner lexicon.Handle, field lexicon.FieldID) ([]lexicon.Handle, error) {
	raw, err := v.src.Vector(owner, field)
	if err != nil {
		return nil, err
	}
	st := v.current()
	switch v.policies[field] {
	case policyAllEntries:
		return filter(raw, func(h lexicon.Handle) (bool, error) {
			if _, ok := st.excluded[h]; ok {
				return false, nil
			}
			_, ok := st.excludedAsHeadword[h]
			return !ok, nil
		})
	case policyExcluded:
		return filter(raw, func(h lexicon.Handle) (bool, error) {
			_, ok := st.excluded[h]
			return !ok, nil
		})
	case policyLexRef:
		return filter(raw, v.isPublishableLexRef)
	case policyEntryRef:
		return filter(raw, func(ref lexicon.Handle) (bool, error) {
			return v.isPublishableEntryRef(st, owner, ref)
		})
	}
	return raw, nil
}

func filter(raw []lexicon.Handle, keep func(lexicon.Handle) (bool, error)) ([]lexicon.Handle, error) {
	out := make([]lexicon.Handle, 0, len(raw))
	for _, h := range raw {
		ok, err := keep(h)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// IsPublishableLexRef reports whether a lexical reference survives the
// publication as a whole.
func (v *View) IsPublishableLexRef(ref lexicon.Handle) (bool, error) {
	return v.isPublishableLexRef(ref)
}

func (v *View) isPublishableLexRef(ref lexicon.Handle) (bool, error) {
	original, err := v.src.Vector(ref, v.f.targets)
	if err != nil {
		return false, err
	}
	valid := v.visibleOnly(original)
	if len(valid) == len(original) {
		return true, nil
	}
	if len(valid) < 2 {
		return false, nil
	}
	refType, err := v.src.Owner(ref)
	if err != nil {
		return false, err
	}
	mapping, err := v.src.Scalar(refType, v.f.mappingType)
	if err != nil {
		return false, err
	}
	if lexicon.MappingType(mapping.Int).IsTree() && original[0] != valid[0] {
		return false, nil
	}
	return true, nil
}

// IsPublishableEntryRef reports whether an entry reference may be shown
// when reached from sourceEntry.
func (v *View) IsPublishableEntryRef(sourceEntry, ref lexicon.Handle) (bool, error) {
	return v.isPublishableEntryRef(v.current(), sourceEntry, ref)
}

func (v *View) isPublishableEntryRef(st *state, sourceEntry, ref lexicon.Handle) (bool, error) {
	owner, err := v.src.Owner(ref)
	if err != nil {
		return false, err
	}
	if owner == sourceEntry {
		components, err := v.src.Vector(ref, v.f.components)
		if err != nil {
			return false, err
		}
		if len(v.visibleOnly(components)) > 0 {
			return true, nil
		}
	}
	_, hidden := st.excluded[owner]
	return !hidden, nil
}

func (v *View) visibleOnly(handles []lexicon.Handle) []lexicon.Handle {
	st := v.current()
	out := make([]lexicon.Handle, 0, len(handles))
	for _, h := range handles {
		if _, ok := st.excluded[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}

// HomographNumber returns the homograph number of h within the
// publication, falling back to the stored number for unknown handles.
func (v *View) HomographNumber(h lexicon.Handle) int {
	if n, ok := v.current().homographs[h]; ok {
		return n
	}
	raw, err := v.src.Scalar(h, v.f.homograph)
	if err != nil {
		return 0
	}
	return raw.Int
}

// HeadwordText returns the headword of entry h in writing system ws using
// the publication's homograph number. An empty ws uses the view's
// writing system.
func (v *View) HeadwordText(h lexicon.Handle, ws string) (string, error) {
	form, err := v.headwordForm(h, ws)
	if err != nil {
		return "", err
	}
	prefix, postfix, err := v.morphMarkers(h)
	if err != nil {
		return "", err
	}
	text := prefix + form + postfix
	if n := v.HomographNumber(h); n > 0 {
		text += strconv.Itoa(n)
	}
	return text, nil
}

// headwordForm prefers the citation form over the lexeme form.
func (v *View) headwordForm(h lexicon.Handle, ws string) (string, error) {
	if ws == "" {
		ws = v.ws
	}
	for _, f := range []lexicon.FieldID{v.f.citationForm, v.f.lexemeForm} {
		if f == 0 {
			continue
		}
		val, err := v.src.Scalar(h, f)
		if err != nil {
			return "", err
		}
		if s := pickAlternative(val, ws); s != "" {
			return s, nil
		}
	}
	return "", nil
}

// pickAlternative returns the ws alternative, or the first non-empty
// alternative in writing-system order when ws is empty.
func pickAlternative(val lexicon.Value, ws string) string {
	if val.Kind != lexicon.KindMultiString {
		return val.Str
	}
	if ws != "" {
		return val.Multi[ws]
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

func (v *View) morphMarkers(h lexicon.Handle) (string, string, error) {
	mt, err := v.morphTypeOf(h)
	if err != nil || mt == lexicon.NoHandle {
		return "", "", err
	}
	var prefix, postfix string
	if v.f.prefix != 0 {
		val, err := v.src.Scalar(mt, v.f.prefix)
		if err != nil {
			return "", "", err
		}
		prefix = val.Str
	}
	if v.f.postfix != 0 {
		val, err := v.src.Scalar(mt, v.f.postfix)
		if err != nil {
			return "", "", err
		}
		postfix = val.Str
	}
	return prefix, postfix, nil
}

func (v *View) morphTypeOf(h lexicon.Handle) (lexicon.Handle, error) {
	if v.f.morphType == 0 {
		return lexicon.NoHandle, nil
	}
	val, err := v.src.Scalar(h, v.f.morphType)
	if err != nil {
		return lexicon.NoHandle, err
	}
	return val.Obj, nil
}

// ClassOf implements lexicon.Source.
func (v *View) ClassOf(h lexicon.Handle) (lexicon.ClassID, error) { return v.src.ClassOf(h) }

// Owner implements lexicon.Source.
func (v *View) Owner(h lexicon.Handle) (lexicon.Handle, error) { return v.src.Owner(h) }

// FieldID implements lexicon.Source.
func (v *View) FieldID(class lexicon.ClassID, name string) (lexicon.FieldID, error) {
	return v.src.FieldID(class, name)
}

// Field implements lexicon.Source.
func (v *View) Field(id lexicon.FieldID) (lexicon.FieldInfo, error) { return v.src.Field(id) }

// Fields implements lexicon.Source.
func (v *View) Fields() []lexicon.FieldInfo { return v.src.Fields() }

// Instances implements lexicon.Source. Excluded objects are omitted.
func (v *View) Instances(class lexicon.ClassID) ([]lexicon.Handle, error) {
	all, err := v.src.Instances(class)
	if err != nil {
		return nil, err
	}
	return v.visibleOnly(all), nil
}

// Scalar implements lexicon.Source. Homograph numbers come from the
// publication's table.
func (v *View) Scalar(h lexicon.Handle, f lexicon.FieldID) (lexicon.Value, error) {
	if f == v.f.homograph {
		return lexicon.Value{Kind: lexicon.KindInt, Int: v.HomographNumber(h)}, nil
	}
	return v.src.Scalar(h, f)
}

func sortedHandles(set map[lexicon.Handle]struct{}) []lexicon.Handle {
	out := make([]lexicon.Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var _ lexicon.Source = (*View)(nil)
