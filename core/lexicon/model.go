package lexicon

// Classes of the lexical model.
const (
	ClassLexDb         ClassID = "LexDb"
	ClassEntry         ClassID = "LexEntry"
	ClassSense         ClassID = "LexSense"
	ClassExample       ClassID = "LexExampleSentence"
	ClassReference     ClassID = "LexReference"
	ClassRefType       ClassID = "LexRefType"
	ClassEntryRef      ClassID = "LexEntryRef"
	ClassMorphType     ClassID = "MoMorphType"
	ClassPicture       ClassID = "CmPicture"
	ClassPronunciation ClassID = "LexPronunciation"
	ClassPublication   ClassID = "CmPossibility"
	// ClassEntryOrSense is the destination class of fields that may hold
	// either entries or senses, such as reference targets.
	ClassEntryOrSense ClassID = "LexEntryOrSense"
)

// Field names of the lexical model.
const (
	FieldEntries = "Entries" // LexDb: all entries

	FieldLexemeForm           = "LexemeForm"
	FieldCitationForm         = "CitationForm"
	FieldHomographNumber      = "HomographNumber"
	FieldHomographForm        = "HomographForm"
	FieldMorphType            = "MorphType"
	FieldSenses               = "Senses"
	FieldEntryRefs            = "EntryRefs"
	FieldLexEntryReferences   = "LexEntryReferences"
	FieldDoNotPublishIn       = "DoNotPublishIn"
	FieldDoNotShowMainEntryIn = "DoNotShowMainEntryIn"

	FieldExamples           = "Examples"
	FieldLexSenseReferences = "LexSenseReferences"

	FieldTargets      = "Targets"
	FieldMappingType  = "MappingType"
	FieldName         = "Name"
	FieldAbbreviation = "Abbreviation"

	FieldComponentLexemes = "ComponentLexemes"

	FieldSecondaryOrder = "SecondaryOrder"
	FieldPrefix         = "Prefix"
	FieldPostfix        = "Postfix"

	// Virtual fields answered by the publication view rather than storage.
	FieldHeadWord   = "HeadWord"
	FieldMLHeadWord = "MLHeadWord"
)

// MappingType is the shape of a lexical relation.
type MappingType int

const (
	MappingSenseCollection MappingType = iota
	MappingSensePair
	MappingSenseAsymmetricPair
	MappingSenseTree
	MappingSenseSequence
	MappingEntryCollection
	MappingEntryPair
	MappingEntryAsymmetricPair
	MappingEntryTree
	MappingEntrySequence
	MappingEntryOrSenseCollection
	MappingEntryOrSensePair
	MappingEntryOrSenseAsymmetricPair
	MappingEntryOrSenseTree
	MappingEntryOrSenseSequence
	MappingSenseUnidirectional
	MappingEntryUnidirectional
	MappingEntryOrSenseUnidirectional
)

// IsTree reports whether the first target of a relation of this type is
// its root, which makes target order significant.
func (m MappingType) IsTree() bool {
	switch m {
	case MappingSenseTree, MappingEntryTree, MappingEntryOrSenseTree:
		return true
	}
	return false
}
