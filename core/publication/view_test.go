package publication

import (
	"reflect"
	"testing"

	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
)

const vern = "seh"

func newView(t *testing.T, b *lexicon.Builder, pub lexicon.Handle) *View {
	t.Helper()
	v, err := New(b.M, pub, WithWritingSystem(vern))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return v
}

func field(b *lexicon.Builder, class lexicon.ClassID, name string) lexicon.FieldID {
	return b.M.MustField(class, name)
}

func TestExcludedSetsAreDisjoint(t *testing.T) {
	b := lexicon.NewBuilder()
	pub := b.Publication("Main")
	both := b.Entry(vern, "both", 0)
	b.ExcludeFrom(both, pub)
	b.HideHeadwordIn(both, pub)
	minor := b.Entry(vern, "minor", 0)
	b.HideHeadwordIn(minor, pub)

	v := newView(t, b, pub)

	if got, want := v.Excluded(), []lexicon.Handle{both}; !reflect.DeepEqual(got, want) {
		t.Errorf("Excluded() = %v, want %v", got, want)
	}
	if got, want := v.ExcludedAsHeadword(), []lexicon.Handle{minor}; !reflect.DeepEqual(got, want) {
		t.Errorf("ExcludedAsHeadword() = %v, want %v", got, want)
	}
	for _, h := range v.ExcludedAsHeadword() {
		if !v.IsVisible(h) {
			t.Errorf("entry %d is in both sets", h)
		}
	}
	if v.IsHeadwordVisible(minor) {
		t.Error("minor entry should not be visible as headword")
	}
}

func TestCheckDisjointRejectsOverlap(t *testing.T) {
	st := &state{
		excluded:           map[lexicon.Handle]struct{}{4: {}, 9: {}},
		excludedAsHeadword: map[lexicon.Handle]struct{}{9: {}, 2: {}},
	}
	err := checkDisjoint(st)
	var inv *errors.InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("checkDisjoint() = %v, want InvariantError", err)
	}
	if !reflect.DeepEqual(inv.Handles, []int64{9}) {
		t.Errorf("Handles = %v, want [9]", inv.Handles)
	}
}

func TestExclusionCoversDescendants(t *testing.T) {
	b := lexicon.NewBuilder()
	pub := b.Publication("Main")
	e := b.Entry(vern, "nyumba", 0)
	s1 := b.Sense(e, "en", "house")
	s2 := b.Sense(e, "en", "home")
	sub := b.Sense(s2, "en", "homestead")
	ex := b.Example(sub, vern, "nyumba yanga")
	b.ExcludeFrom(s2, pub)

	v := newView(t, b, pub)

	for _, h := range []lexicon.Handle{s2, sub, ex} {
		if v.IsVisible(h) {
			t.Errorf("descendant %d of excluded sense should be hidden", h)
		}
	}
	if !v.IsVisible(e) || !v.IsVisible(s1) {
		t.Error("entry and first sense should stay visible")
	}

	senses, err := v.Vector(e, field(b, lexicon.ClassEntry, lexicon.FieldSenses))
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	if !reflect.DeepEqual(senses, []lexicon.Handle{s1}) {
		t.Errorf("Senses = %v, want [%d]", senses, s1)
	}
}

func TestExcludedExampleOnly(t *testing.T) {
	b := lexicon.NewBuilder()
	pub := b.Publication("Main")
	e := b.Entry(vern, "ba", 0)
	s := b.Sense(e, "en", "father")
	keep := b.Example(s, vern, "keep")
	drop := b.Example(s, vern, "drop")
	b.ExcludeFrom(drop, pub)

	v := newView(t, b, pub)
	got, _ := v.Vector(s, field(b, lexicon.ClassSense, lexicon.FieldExamples))
	if !reflect.DeepEqual(got, []lexicon.Handle{keep}) {
		t.Errorf("Examples = %v, want [%d]", got, keep)
	}
}

func TestAllEntriesVectorFiltersBothSets(t *testing.T) {
	b := lexicon.NewBuilder()
	pub := b.Publication("Main")
	a := b.Entry(vern, "a", 0)
	hidden := b.Entry(vern, "b", 0)
	minor := b.Entry(vern, "c", 0)
	d := b.Entry(vern, "d", 0)
	b.ExcludeFrom(hidden, pub)
	b.HideHeadwordIn(minor, pub)

	v := newView(t, b, pub)
	got, err := v.Vector(b.DB, field(b, lexicon.ClassLexDb, lexicon.FieldEntries))
	if err != nil {
		t.Fatalf("Vector failed: %v", err)
	}
	if want := []lexicon.Handle{a, d}; !reflect.DeepEqual(got, want) {
		t.Errorf("Entries = %v, want %v", got, want)
	}

	// Other entry-typed vectors only drop fully excluded entries.
	er := b.EntryRef(d, 1, minor, hidden)
	comps, _ := v.Vector(er, field(b, lexicon.ClassEntryRef, lexicon.FieldComponentLexemes))
	if want := []lexicon.Handle{minor}; !reflect.DeepEqual(comps, want) {
		t.Errorf("ComponentLexemes = %v, want %v", comps, want)
	}
}

func TestNoPublicationShowsEverything(t *testing.T) {
	b := lexicon.NewBuilder()
	pub := b.Publication("Main")
	e := b.Entry(vern, "a", 0)
	b.ExcludeFrom(e, pub)

	v := newView(t, b, lexicon.NoHandle)
	if !v.IsVisible(e) || len(v.Excluded()) != 0 {
		t.Error("NoHandle publication should not exclude anything")
	}
}

func TestHomographScenarioBa(t *testing.T) {
	b := lexicon.NewBuilder()
	pub := b.Publication("Main")
	ba1 := b.Entry(vern, "ba", 1)
	ba2 := b.Entry(vern, "ba", 2)

	v := newView(t, b, pub)
	for h, want := range map[lexicon.Handle]string{ba1: "ba1", ba2: "ba2"} {
		got, err := v.HeadwordText(h, vern)
		if err != nil {
			t.Fatalf("HeadwordText failed: %v", err)
		}
		if got != want {
			t.Errorf("HeadwordText(%d) = %q, want %q", h, got, want)
		}
	}

	b.ExcludeFrom(ba2, pub)
	if err := v.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n := v.HomographNumber(ba1); n != 0 {
		t.Errorf("HomographNumber(ba1) = %d, want 0", n)
	}
	if got, _ := v.HeadwordText(ba1, vern); got != "ba" {
		t.Errorf("HeadwordText(ba1) = %q, want %q", got, "ba")
	}
}

func TestHomographNumbering(t *testing.T) {
	b := lexicon.NewBuilder()
	pub := b.Publication("Main")
	e1 := b.Entry(vern, "ka", 1)
	e2 := b.Entry(vern, "ka", 2)
	e3 := b.Entry(vern, "ka", 3)
	e4 := b.Entry(vern, "ka", 4)
	b.HideHeadwordIn(e2, pub)
	b.ExcludeFrom(e3, pub)

	v := newView(t, b, pub)
	want := map[lexicon.Handle]int{e1: 1, e2: 0, e4: 2}
	for h, n := range want {
		if got := v.HomographNumber(h); got != n {
			t.Errorf("HomographNumber(%d) = %d, want %d", h, got, n)
		}
	}
	if _, ok := v.Homographs()[e3]; ok {
		t.Error("excluded entry should not be in the homograph table")
	}
	// Unknown to the table: falls back to the stored number.
	if got := v.HomographNumber(e3); got != 3 {
		t.Errorf("HomographNumber(excluded) = %d, want stored 3", got)
	}
}

func TestHomographSingleHeadwordGroup(t *testing.T) {
	b := lexicon.NewBuilder()
	pub := b.Publication("Main")
	e1 := b.Entry(vern, "la", 1)
	e2 := b.Entry(vern, "la", 2)
	e3 := b.Entry(vern, "la", 3)
	b.HideHeadwordIn(e1, pub)
	b.HideHeadwordIn(e3, pub)

	v := newView(t, b, pub)
	for _, h := range []lexicon.Handle{e1, e2, e3} {
		if got := v.HomographNumber(h); got != 0 {
			t.Errorf("HomographNumber(%d) = %d, want 0", h, got)
		}
	}
}

func TestHomographTieShifting(t *testing.T) {
	b := lexicon.NewBuilder()
	e1 := b.Entry(vern, "ma", 1)
	e2 := b.Entry(vern, "ma", 1)
	e3 := b.Entry(vern, "ma", 2)

	// e2 collides with e1 at 1, pushing e1 to 2; e3 then collides with e1
	// at 2, pushing e1 to 3.
	v := newView(t, b, lexicon.NoHandle)
	want := map[lexicon.Handle]int{e2: 1, e3: 2, e1: 3}
	if got := v.Homographs(); !reflect.DeepEqual(got, want) {
		t.Errorf("Homographs() = %v, want %v", got, want)
	}
}

func TestInsertShifting(t *testing.T) {
	var g []homographMember
	g = insertShifting(g, 10, 1)
	g = insertShifting(g, 11, 3)
	g = insertShifting(g, 12, 1)
	want := []homographMember{{10, 2}, {11, 4}, {12, 1}}
	if !reflect.DeepEqual(g, want) {
		t.Errorf("insertShifting = %v, want %v", g, want)
	}
}

func TestHomographGroupsByMorphType(t *testing.T) {
	b := lexicon.NewBuilder()
	stem := b.MorphType("stem", "", "", 1)
	suffix := b.MorphType("suffix", "-", "", 2)
	e1 := b.Entry(vern, "na", 1)
	e2 := b.Entry(vern, "na", 2)
	b.SetMorphType(e1, stem)
	b.SetMorphType(e2, suffix)

	v := newView(t, b, lexicon.NoHandle)
	if n := v.HomographNumber(e1); n != 0 {
		t.Errorf("stem homograph = %d, want 0", n)
	}
	if got, _ := v.HeadwordText(e2, vern); got != "-na" {
		t.Errorf("suffix headword = %q, want %q", got, "-na")
	}
}

func TestHomographGroupsNumberedSequentially(t *testing.T) {
	b := lexicon.NewBuilder()
	pub := b.Publication("Main")
	var group []lexicon.Handle
	for i := 1; i <= 6; i++ {
		group = append(group, b.Entry(vern, "si", i))
	}
	b.HideHeadwordIn(group[0], pub)
	b.HideHeadwordIn(group[3], pub)

	v := newView(t, b, pub)
	var got []int
	for _, h := range group {
		got = append(got, v.HomographNumber(h))
	}
	if want := []int{0, 1, 2, 0, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("numbers = %v, want %v", got, want)
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	b := lexicon.NewBuilder()
	pub := b.Publication("Main")
	e1 := b.Entry(vern, "ba", 1)
	b.Entry(vern, "ba", 2)
	b.HideHeadwordIn(b.Entry(vern, "ba", 3), pub)
	b.ExcludeFrom(b.Sense(e1, "en", "x"), pub)

	v := newView(t, b, pub)
	ex, hw, hn := v.Excluded(), v.ExcludedAsHeadword(), v.Homographs()
	if err := v.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if err := v.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !reflect.DeepEqual(ex, v.Excluded()) || !reflect.DeepEqual(hw, v.ExcludedAsHeadword()) ||
		!reflect.DeepEqual(hn, v.Homographs()) {
		t.Error("Refresh changed derived state without edits")
	}
}

func TestScalarOverridesHomographNumber(t *testing.T) {
	b := lexicon.NewBuilder()
	pub := b.Publication("Main")
	e1 := b.Entry(vern, "ta", 1)
	e2 := b.Entry(vern, "ta", 2)
	b.ExcludeFrom(e1, pub)

	v := newView(t, b, pub)
	val, err := v.Scalar(e2, field(b, lexicon.ClassEntry, lexicon.FieldHomographNumber))
	if err != nil {
		t.Fatalf("Scalar failed: %v", err)
	}
	if val.Int != 0 {
		t.Errorf("Scalar(HomographNumber) = %d, want 0", val.Int)
	}
	inst, _ := v.Instances(lexicon.ClassEntry)
	if !reflect.DeepEqual(inst, []lexicon.Handle{e2}) {
		t.Errorf("Instances = %v, want [%d]", inst, e2)
	}
}

func TestCitationFormPreferred(t *testing.T) {
	b := lexicon.NewBuilder()
	e := b.Entry(vern, "lexeme", 0)
	_ = b.M.SetMulti(e, field(b, lexicon.ClassEntry, lexicon.FieldCitationForm), vern, "citation")

	v := newView(t, b, lexicon.NoHandle)
	if got, _ := v.HeadwordText(e, ""); got != "citation" {
		t.Errorf("HeadwordText = %q, want %q", got, "citation")
	}
}

func TestLexRefPublishability(t *testing.T) {
	tests := []struct {
		name     string
		mapping  lexicon.MappingType
		targets  int
		excluded []int
		visible  int
		want     bool
	}{
		{"collection keeps two", lexicon.MappingEntryCollection, 3, []int{1}, 2, true},
		{"collection down to one", lexicon.MappingEntryCollection, 2, []int{0}, 1, false},
		{"untouched pair", lexicon.MappingEntryPair, 2, nil, 2, true},
		{"pair loses a side", lexicon.MappingEntryPair, 2, []int{1}, 1, false},
		{"tree keeps root", lexicon.MappingEntryTree, 3, []int{2}, 2, true},
		{"tree loses root", lexicon.MappingEntryTree, 3, []int{0}, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := lexicon.NewBuilder()
			pub := b.Publication("Main")
			targets := make([]lexicon.Handle, tt.targets)
			for i := range targets {
				targets[i] = b.Entry(vern, string(rune('a'+i)), 0)
			}
			for _, i := range tt.excluded {
				b.ExcludeFrom(targets[i], pub)
			}
			ref := b.Reference(b.RefType("Related", tt.mapping), targets...)

			v := newView(t, b, pub)
			got, err := v.Vector(ref, field(b, lexicon.ClassReference, lexicon.FieldTargets))
			if err != nil {
				t.Fatalf("Vector failed: %v", err)
			}
			if len(got) != tt.visible {
				t.Errorf("Targets = %v, want %d handles", got, tt.visible)
			}
			ok, err := v.IsPublishableLexRef(ref)
			if err != nil {
				t.Fatalf("IsPublishableLexRef failed: %v", err)
			}
			if ok != tt.want {
				t.Errorf("IsPublishableLexRef = %v, want %v", ok, tt.want)
			}

			// The back reference on a surviving target follows the same rule.
			back, _ := v.Vector(got[len(got)-1], field(b, lexicon.ClassEntry, lexicon.FieldLexEntryReferences))
			if kept := len(back) == 1; kept != tt.want {
				t.Errorf("LexEntryReferences kept = %v, want %v", kept, tt.want)
			}
		})
	}
}

func TestEntryRefPublishability(t *testing.T) {
	tests := []struct {
		name          string
		excludeOwner  bool
		excludeComps  int
		fromOwner     bool
		fromComponent bool
	}{
		{"all visible", false, 0, true, true},
		{"owner excluded", true, 0, true, false},
		{"owner excluded with one component left", true, 1, true, false},
		{"owner and components excluded", true, 2, false, false},
		{"components excluded", false, 2, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := lexicon.NewBuilder()
			pub := b.Publication("Main")
			owner := b.Entry(vern, "complex", 0)
			c1 := b.Entry(vern, "first", 0)
			c2 := b.Entry(vern, "second", 0)
			comps := []lexicon.Handle{c1, c2}
			ref := b.EntryRef(owner, 1, comps...)
			if tt.excludeOwner {
				b.ExcludeFrom(owner, pub)
			}
			for _, c := range comps[:tt.excludeComps] {
				b.ExcludeFrom(c, pub)
			}

			v := newView(t, b, pub)
			ok, err := v.IsPublishableEntryRef(owner, ref)
			if err != nil {
				t.Fatalf("IsPublishableEntryRef failed: %v", err)
			}
			if ok != tt.fromOwner {
				t.Errorf("from owner = %v, want %v", ok, tt.fromOwner)
			}
			ok, err = v.IsPublishableEntryRef(c2, ref)
			if err != nil {
				t.Fatalf("IsPublishableEntryRef failed: %v", err)
			}
			if ok != tt.fromComponent {
				t.Errorf("from component = %v, want %v", ok, tt.fromComponent)
			}

			back, err := v.Vector(c2, field(b, lexicon.ClassEntry, "ComplexFormEntryRefs"))
			if err != nil {
				t.Fatalf("Vector failed: %v", err)
			}
			if kept := len(back) == 1; kept != tt.fromComponent {
				t.Errorf("ComplexFormEntryRefs = %v, kept want %v", back, tt.fromComponent)
			}
			own, _ := v.Vector(owner, field(b, lexicon.ClassEntry, lexicon.FieldEntryRefs))
			if kept := len(own) == 1; kept != tt.fromOwner {
				t.Errorf("EntryRefs = %v, kept want %v", own, tt.fromOwner)
			}
		})
	}
}
