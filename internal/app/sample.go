package app

import (
	"context"

	"github.com/FocuswithJustin/lexpub/core/lexdb"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
)

// SamplePublication is the publication defined by the sample lexicon.
const SamplePublication = "Main Dictionary"

// SampleWritingSystem is the vernacular writing system of the sample.
const SampleWritingSystem = "seh"

// SampleLexicon builds a small lexicon that exercises homographs,
// exclusions, lexical relations and complex forms.
func SampleLexicon() *lexicon.Builder {
	b := lexicon.NewBuilder()
	main := b.Publication(SamplePublication)
	b.Publication("School")
	stem := b.MorphType("stem", "", "", 1)
	suffix := b.MorphType("suffix", "-", "", 2)

	ba1 := b.Entry(SampleWritingSystem, "ba", 1)
	b.SetMorphType(ba1, stem)
	father := b.Sense(ba1, "en", "father")
	b.Example(father, SampleWritingSystem, "ba wanga")
	b.Sense(father, "en", "paternal uncle")
	slang := b.Sense(ba1, "en", "old man")
	b.ExcludeFrom(slang, main)

	ba2 := b.Entry(SampleWritingSystem, "ba", 2)
	b.SetMorphType(ba2, stem)
	give := b.Sense(ba2, "en", "to give")

	ba3 := b.Entry(SampleWritingSystem, "ba", 3)
	b.SetMorphType(ba3, stem)
	b.Sense(ba3, "en", "to steal")
	b.ExcludeFrom(ba3, main)

	b.SetMorphType(b.Entry(SampleWritingSystem, "ba", 0), suffix)

	baba := b.Entry(SampleWritingSystem, "baba", 0)
	b.Sense(baba, "en", "grandfather")
	b.EntryRef(baba, 1, ba1)

	chala := b.Entry(SampleWritingSystem, "chala", 0)
	b.Sense(chala, "en", "finger")
	dzina := b.Entry(SampleWritingSystem, "dzina", 0)
	b.Sense(dzina, "en", "name")
	kupasa := b.Entry(SampleWritingSystem, "kupasa", 0)
	donate := b.Sense(kupasa, "en", "to donate")
	b.Reference(b.RefType("Synonym", lexicon.MappingSenseCollection), give, donate)

	mbuzi := b.Entry(SampleWritingSystem, "mbuzi", 0)
	b.Sense(mbuzi, "en", "goat")
	b.HideHeadwordIn(b.Entry(SampleWritingSystem, "mbudzi", 0), main)

	return b
}

// WriteSample saves the sample lexicon as a database at path.
func WriteSample(ctx context.Context, path string) error {
	return lexdb.Save(ctx, path, SampleLexicon().M)
}
