package lexicon

// StandardFields is the field set of the lexical model. Stores seed their
// field tables from it; custom fields may be added on top.
var StandardFields = []FieldInfo{
	{Class: ClassLexDb, Name: FieldEntries, Kind: KindVector, Dest: ClassEntry},

	{Class: ClassEntry, Name: FieldLexemeForm, Kind: KindMultiString},
	{Class: ClassEntry, Name: FieldCitationForm, Kind: KindMultiString},
	{Class: ClassEntry, Name: FieldHomographNumber, Kind: KindInt},
	{Class: ClassEntry, Name: FieldHomographForm, Kind: KindString},
	{Class: ClassEntry, Name: FieldMorphType, Kind: KindObject, Dest: ClassMorphType},
	{Class: ClassEntry, Name: FieldSenses, Kind: KindVector, Dest: ClassSense},
	{Class: ClassEntry, Name: FieldEntryRefs, Kind: KindVector, Dest: ClassEntryRef},
	{Class: ClassEntry, Name: "ComplexFormEntryRefs", Kind: KindVector, Dest: ClassEntryRef},
	{Class: ClassEntry, Name: "VariantFormEntryRefs", Kind: KindVector, Dest: ClassEntryRef},
	{Class: ClassEntry, Name: FieldLexEntryReferences, Kind: KindVector, Dest: ClassReference},
	{Class: ClassEntry, Name: FieldDoNotPublishIn, Kind: KindVector, Dest: ClassPublication},
	{Class: ClassEntry, Name: FieldDoNotShowMainEntryIn, Kind: KindVector, Dest: ClassPublication},
	{Class: ClassEntry, Name: "Pronunciations", Kind: KindVector, Dest: ClassPronunciation},
	{Class: ClassEntry, Name: "Etymology", Kind: KindMultiString},
	{Class: ClassEntry, Name: "Bibliography", Kind: KindMultiString},

	{Class: ClassSense, Name: "Gloss", Kind: KindMultiString},
	{Class: ClassSense, Name: "Definition", Kind: KindMultiString},
	{Class: ClassSense, Name: "GrammaticalInfo", Kind: KindString},
	{Class: ClassSense, Name: FieldSenses, Kind: KindVector, Dest: ClassSense},
	{Class: ClassSense, Name: FieldExamples, Kind: KindVector, Dest: ClassExample},
	{Class: ClassSense, Name: FieldLexSenseReferences, Kind: KindVector, Dest: ClassReference},
	{Class: ClassSense, Name: "Pictures", Kind: KindVector, Dest: ClassPicture},
	{Class: ClassSense, Name: FieldDoNotPublishIn, Kind: KindVector, Dest: ClassPublication},

	{Class: ClassExample, Name: "Example", Kind: KindMultiString},
	{Class: ClassExample, Name: "Translation", Kind: KindMultiString},
	{Class: ClassExample, Name: "Reference", Kind: KindString},
	{Class: ClassExample, Name: FieldDoNotPublishIn, Kind: KindVector, Dest: ClassPublication},

	{Class: ClassReference, Name: FieldTargets, Kind: KindVector, Dest: ClassEntryOrSense},
	{Class: ClassRefType, Name: FieldMappingType, Kind: KindInt},
	{Class: ClassRefType, Name: FieldName, Kind: KindMultiString},
	{Class: ClassRefType, Name: FieldAbbreviation, Kind: KindMultiString},
	{Class: ClassRefType, Name: "ReverseName", Kind: KindMultiString},

	{Class: ClassEntryRef, Name: FieldComponentLexemes, Kind: KindVector, Dest: ClassEntryOrSense},
	{Class: ClassEntryRef, Name: "RefType", Kind: KindInt},
	{Class: ClassEntryRef, Name: "Summary", Kind: KindMultiString},

	{Class: ClassMorphType, Name: FieldSecondaryOrder, Kind: KindInt},
	{Class: ClassMorphType, Name: FieldPrefix, Kind: KindString},
	{Class: ClassMorphType, Name: FieldPostfix, Kind: KindString},
	{Class: ClassMorphType, Name: FieldName, Kind: KindMultiString},

	{Class: ClassPicture, Name: "PictureFile", Kind: KindMedia, Media: MediaImage},
	{Class: ClassPicture, Name: "Caption", Kind: KindMultiString},

	{Class: ClassPronunciation, Name: "Form", Kind: KindMultiString},
	{Class: ClassPronunciation, Name: "MediaFile", Kind: KindMedia, Media: MediaAudio},

	{Class: ClassPublication, Name: FieldName, Kind: KindMultiString},
}

// NewLexiconMemory returns a Memory graph with StandardFields defined.
func NewLexiconMemory() *Memory {
	m := NewMemory()
	for _, f := range StandardFields {
		m.mu.Lock()
		m.defineLocked(f)
		m.mu.Unlock()
	}
	return m
}

// MustField resolves a field on m, panicking if it is missing. Intended for
// fixtures and tests.
func (m *Memory) MustField(class ClassID, name string) FieldID {
	id, err := m.FieldID(class, name)
	if err != nil {
		panic(err)
	}
	return id
}
