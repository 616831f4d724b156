package app

import (
	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
)

// Problem is a configuration node that cannot be applied.
type Problem struct {
	Path    string
	Class   string
	Field   string
	Message string
}

// CheckReport describes a publication and its configuration tree.
type CheckReport struct {
	Publication        string
	Entries            int
	Excluded           int
	ExcludedAsHeadword int
	Problems           []Problem
}

// Check resolves every enabled node of the configuration tree against
// the classes it will be applied to and counts the publication's
// entries and exclusions.
func (a *App) Check() (*CheckReport, error) {
	entries, err := a.Entries()
	if err != nil {
		return nil, err
	}
	rep := &CheckReport{
		Publication:        a.pubName,
		Entries:            len(entries),
		Excluded:           len(a.view.Excluded()),
		ExcludedAsHeadword: len(a.view.ExcludedAsHeadword()),
	}
	a.checkChildren(rep, a.root, []lexicon.ClassID{lexicon.ClassEntry})
	return rep, nil
}

func (a *App) checkChildren(rep *CheckReport, node *config.Node, classes []lexicon.ClassID) {
	for _, child := range node.Children {
		a.checkNode(rep, child, classes)
	}
}

func (a *App) checkNode(rep *CheckReport, node *config.Node, classes []lexicon.ClassID) {
	if !node.Enabled() {
		return
	}
	if node.IsGroup() {
		a.checkChildren(rep, node, classes)
		return
	}
	switch node.Field {
	case lexicon.FieldHeadWord, lexicon.FieldMLHeadWord, config.FieldOwnerType:
		return
	}

	var info lexicon.FieldInfo
	found := false
	for _, class := range classes {
		fid, err := a.view.FieldID(class, node.Field)
		if err != nil {
			continue
		}
		if info, err = a.view.Field(fid); err == nil {
			found = true
			break
		}
	}
	if !found {
		rep.Problems = append(rep.Problems, Problem{
			Path:    node.Path(),
			Class:   classList(classes),
			Field:   node.Field,
			Message: "no such field",
		})
		return
	}

	if info.Kind != lexicon.KindVector && info.Kind != lexicon.KindObject {
		return
	}
	dest := destClasses(info.Dest)
	if node.SubField != "" {
		a.checkNode(rep, &config.Node{Label: node.Path() + " > " + node.SubField, Field: node.SubField}, dest)
		return
	}
	a.checkChildren(rep, node, dest)
}

func destClasses(dest lexicon.ClassID) []lexicon.ClassID {
	if dest == lexicon.ClassEntryOrSense {
		return []lexicon.ClassID{lexicon.ClassEntry, lexicon.ClassSense}
	}
	return []lexicon.ClassID{dest}
}

func classList(classes []lexicon.ClassID) string {
	out := ""
	for i, c := range classes {
		if i > 0 {
			out += "|"
		}
		out += string(c)
	}
	return out
}
