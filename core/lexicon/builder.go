package lexicon

// Builder assembles small lexicons on top of a Memory graph. It backs the
// test fixtures of the publication and render packages and the sample
// database written by the CLI.
type Builder struct {
	M  *Memory
	DB Handle
}

// NewBuilder returns a builder over a fresh graph with a LexDb root.
func NewBuilder() *Builder {
	m := NewLexiconMemory()
	return &Builder{M: m, DB: m.NewObject(ClassLexDb, NoHandle)}
}

func (b *Builder) f(class ClassID, name string) FieldID {
	return b.M.MustField(class, name)
}

// Publication creates a publication possibility.
func (b *Builder) Publication(name string) Handle {
	h := b.M.NewObject(ClassPublication, b.DB)
	_ = b.M.SetMulti(h, b.f(ClassPublication, FieldName), "en", name)
	return h
}

// MorphType creates a morph type with the given ordering and markers.
func (b *Builder) MorphType(name, prefix, postfix string, order int) Handle {
	h := b.M.NewObject(ClassMorphType, b.DB)
	_ = b.M.SetMulti(h, b.f(ClassMorphType, FieldName), "en", name)
	_ = b.M.SetString(h, b.f(ClassMorphType, FieldPrefix), prefix)
	_ = b.M.SetString(h, b.f(ClassMorphType, FieldPostfix), postfix)
	_ = b.M.SetInt(h, b.f(ClassMorphType, FieldSecondaryOrder), order)
	return h
}

// Entry creates an entry with a lexeme form and raw homograph number and
// appends it to the all-entries vector.
func (b *Builder) Entry(ws, form string, homograph int) Handle {
	h := b.M.NewObject(ClassEntry, b.DB)
	_ = b.M.SetMulti(h, b.f(ClassEntry, FieldLexemeForm), ws, form)
	_ = b.M.SetInt(h, b.f(ClassEntry, FieldHomographNumber), homograph)
	b.M.Append(b.DB, b.f(ClassLexDb, FieldEntries), h)
	return h
}

// SetMorphType assigns a morph type to an entry.
func (b *Builder) SetMorphType(entry, mt Handle) {
	_ = b.M.SetObject(entry, b.f(ClassEntry, FieldMorphType), mt)
}

// Sense creates a sense under an entry or, for subsenses, under a sense.
func (b *Builder) Sense(owner Handle, ws, gloss string) Handle {
	ownerClass, _ := b.M.ClassOf(owner)
	h := b.M.NewObject(ClassSense, owner)
	_ = b.M.SetMulti(h, b.f(ClassSense, "Gloss"), ws, gloss)
	b.M.Append(owner, b.f(ownerClass, FieldSenses), h)
	return h
}

// Example creates an example sentence under a sense.
func (b *Builder) Example(sense Handle, ws, text string) Handle {
	h := b.M.NewObject(ClassExample, sense)
	_ = b.M.SetMulti(h, b.f(ClassExample, "Example"), ws, text)
	b.M.Append(sense, b.f(ClassSense, FieldExamples), h)
	return h
}

// RefType creates a lexical relation type.
func (b *Builder) RefType(name string, mapping MappingType) Handle {
	h := b.M.NewObject(ClassRefType, b.DB)
	_ = b.M.SetMulti(h, b.f(ClassRefType, FieldName), "en", name)
	_ = b.M.SetMulti(h, b.f(ClassRefType, FieldAbbreviation), "en", abbreviate(name))
	_ = b.M.SetInt(h, b.f(ClassRefType, FieldMappingType), int(mapping))
	return h
}

// Reference creates a lexical reference owned by refType and records it
// on every target's back-reference vector.
func (b *Builder) Reference(refType Handle, targets ...Handle) Handle {
	h := b.M.NewObject(ClassReference, refType)
	b.M.Append(h, b.f(ClassReference, FieldTargets), targets...)
	for _, t := range targets {
		class, _ := b.M.ClassOf(t)
		switch class {
		case ClassEntry:
			b.M.Append(t, b.f(ClassEntry, FieldLexEntryReferences), h)
		case ClassSense:
			b.M.Append(t, b.f(ClassSense, FieldLexSenseReferences), h)
		}
	}
	return h
}

// EntryRef creates a complex-form or variant reference owned by owner
// pointing at components. Each component entry gets a back reference.
func (b *Builder) EntryRef(owner Handle, refType int, components ...Handle) Handle {
	h := b.M.NewObject(ClassEntryRef, owner)
	_ = b.M.SetInt(h, b.f(ClassEntryRef, "RefType"), refType)
	b.M.Append(h, b.f(ClassEntryRef, FieldComponentLexemes), components...)
	b.M.Append(owner, b.f(ClassEntry, FieldEntryRefs), h)
	back := "ComplexFormEntryRefs"
	if refType == 0 {
		back = "VariantFormEntryRefs"
	}
	for _, c := range components {
		if entry, err := OwningEntry(b.M, c); err == nil && entry != NoHandle {
			b.M.Append(entry, b.f(ClassEntry, back), h)
		}
	}
	return h
}

// ExcludeFrom marks an entry, sense or example as not published in pub.
func (b *Builder) ExcludeFrom(obj, pub Handle) {
	class, _ := b.M.ClassOf(obj)
	b.M.Append(obj, b.f(class, FieldDoNotPublishIn), pub)
}

// IncludeIn reverses ExcludeFrom.
func (b *Builder) IncludeIn(obj, pub Handle) {
	class, _ := b.M.ClassOf(obj)
	b.M.Remove(obj, b.f(class, FieldDoNotPublishIn), pub)
}

// HideHeadwordIn keeps entry out of the main entry list of pub.
func (b *Builder) HideHeadwordIn(entry, pub Handle) {
	b.M.Append(entry, b.f(ClassEntry, FieldDoNotShowMainEntryIn), pub)
}

func abbreviate(name string) string {
	r := []rune(name)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r) + "."
}
