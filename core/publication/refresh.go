package publication

import (
	"sort"

	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
)

// Refresh rebuilds the excluded sets and the homograph table from the
// current contents of the source. Call it after any edit to publication
// membership; views and fragments rendered earlier are stale afterwards.
//
// The new state replaces the old one only when the rebuild succeeds.
func (v *View) Refresh() error {
	st, err := v.build()
	if err != nil {
		return err
	}
	v.state.Store(st)
	return nil
}

func (v *View) build() (*state, error) {
	st := &state{
		excluded:           make(map[lexicon.Handle]struct{}),
		excludedAsHeadword: make(map[lexicon.Handle]struct{}),
		homographs:         make(map[lexicon.Handle]int),
	}

	entries, err := v.src.Instances(lexicon.ClassEntry)
	if err != nil {
		return nil, errors.Wrap(err, "listing entries")
	}

	if v.pub != lexicon.NoHandle {
		for _, e := range entries {
			if err := v.collectExcluded(st, e); err != nil {
				return nil, err
			}
		}
		if v.f.doNotShowMain != 0 {
			for _, e := range entries {
				if _, gone := st.excluded[e]; gone {
					continue
				}
				hidden, err := v.listsPublication(e, v.f.doNotShowMain)
				if err != nil {
					return nil, err
				}
				if hidden {
					st.excludedAsHeadword[e] = struct{}{}
				}
			}
		}
	}

	if err := checkDisjoint(st); err != nil {
		return nil, err
	}
	if err := v.buildHomographs(st, entries); err != nil {
		return nil, err
	}
	return st, nil
}

// checkDisjoint enforces excludedAsHeadword ∩ excluded = ∅.
func checkDisjoint(st *state) error {
	var both []int64
	for h := range st.excludedAsHeadword {
		if _, ok := st.excluded[h]; ok {
			both = append(both, int64(h))
		}
	}
	if len(both) == 0 {
		return nil
	}
	sort.Slice(both, func(i, j int) bool { return both[i] < both[j] })
	return &errors.InvariantError{
		Invariant: "excludedAsHeadword must be disjoint from excluded",
		Handles:   both,
	}
}

// collectExcluded walks an entry's senses, subsenses and examples. An
// object whose DoNotPublishIn lists the publication is excluded together
// with everything it owns.
func (v *View) collectExcluded(st *state, h lexicon.Handle) error {
	class, err := v.src.ClassOf(h)
	if err != nil {
		return err
	}
	if f, ok := v.f.doNotPublishIn[class]; ok {
		hidden, err := v.listsPublication(h, f)
		if err != nil {
			return err
		}
		if hidden {
			return v.excludeTree(st, h, class)
		}
	}
	for _, child := range v.childFields(class) {
		kids, err := v.src.Vector(h, child)
		if err != nil {
			return err
		}
		for _, k := range kids {
			if err := v.collectExcluded(st, k); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *View) excludeTree(st *state, h lexicon.Handle, class lexicon.ClassID) error {
	st.excluded[h] = struct{}{}
	for _, child := range v.childFields(class) {
		kids, err := v.src.Vector(h, child)
		if err != nil {
			return err
		}
		for _, k := range kids {
			kc, err := v.src.ClassOf(k)
			if err != nil {
				return err
			}
			if err := v.excludeTree(st, k, kc); err != nil {
				return err
			}
		}
	}
	return nil
}

// childFields lists the owning vectors that carry publishable descendants.
func (v *View) childFields(class lexicon.ClassID) []lexicon.FieldID {
	var out []lexicon.FieldID
	switch class {
	case lexicon.ClassEntry:
		out = append(out, v.f.entrySenses)
	case lexicon.ClassSense:
		if v.f.subsenses != 0 {
			out = append(out, v.f.subsenses)
		}
		if v.f.examples != 0 {
			out = append(out, v.f.examples)
		}
	}
	return out
}

func (v *View) listsPublication(h lexicon.Handle, f lexicon.FieldID) (bool, error) {
	pubs, err := v.src.Vector(h, f)
	if err != nil {
		return false, err
	}
	for _, p := range pubs {
		if p == v.pub {
			return true, nil
		}
	}
	return false, nil
}

type homographKey struct {
	form  string
	order int
}

type homographMember struct {
	entry  lexicon.Handle
	number int
}

// buildHomographs groups visible entries by homograph form and morph type
// order and renumbers each group within the publication.
func (v *View) buildHomographs(st *state, entries []lexicon.Handle) error {
	groups := make(map[homographKey][]homographMember)
	var keys []homographKey

	for _, e := range entries {
		if _, gone := st.excluded[e]; gone {
			continue
		}
		key, err := v.homographKeyOf(e)
		if err != nil {
			return err
		}
		raw, err := v.src.Scalar(e, v.f.homograph)
		if err != nil {
			return err
		}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = insertShifting(groups[key], e, raw.Int)
	}

	for _, key := range keys {
		members := groups[key]
		sort.SliceStable(members, func(i, j int) bool { return members[i].number < members[j].number })
		numberGroup(st, members)
	}
	return nil
}

// insertShifting adds entry at its original homograph number. When the
// number is taken, every member at or above it moves up by one first.
func insertShifting(group []homographMember, entry lexicon.Handle, number int) []homographMember {
	for occupied(group, number) {
		for i := range group {
			if group[i].number >= number {
				group[i].number++
			}
		}
	}
	return append(group, homographMember{entry: entry, number: number})
}

func occupied(group []homographMember, number int) bool {
	for _, m := range group {
		if m.number == number {
			return true
		}
	}
	return false
}

// numberGroup assigns 0 to every member when at most one can be a
// headword; otherwise headword members count up from 1 in order and
// members hidden as headwords get 0.
func numberGroup(st *state, members []homographMember) {
	headwords := 0
	for _, m := range members {
		if _, hidden := st.excludedAsHeadword[m.entry]; !hidden {
			headwords++
		}
	}
	if headwords <= 1 {
		for _, m := range members {
			st.homographs[m.entry] = 0
		}
		return
	}
	next := 1
	for _, m := range members {
		if _, hidden := st.excludedAsHeadword[m.entry]; hidden {
			st.homographs[m.entry] = 0
			continue
		}
		st.homographs[m.entry] = next
		next++
	}
}

func (v *View) homographKeyOf(e lexicon.Handle) (homographKey, error) {
	var key homographKey
	if v.f.homographForm != 0 {
		val, err := v.src.Scalar(e, v.f.homographForm)
		if err != nil {
			return key, err
		}
		key.form = val.Str
	}
	if key.form == "" {
		form, err := v.headwordForm(e, "")
		if err != nil {
			return key, err
		}
		key.form = form
	}
	mt, err := v.morphTypeOf(e)
	if err != nil {
		return key, err
	}
	if mt != lexicon.NoHandle && v.f.secondaryOrder != 0 {
		val, err := v.src.Scalar(mt, v.f.secondaryOrder)
		if err != nil {
			return key, err
		}
		key.order = val.Int
	}
	return key, nil
}
