package config

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/FocuswithJustin/lexpub/core/errors"
)

const sample = `
label: Main Entry
field: LexEntry
cssClass: entry
children:
  - label: Headword
    field: MLHeadWord
    writingSystems:
      options:
        - id: seh
        - id: seh-fonipa
          disabled: true
      displayAbbreviation: true
  - label: Senses
    field: Senses
    senses:
      numberStyle: "%I"
    children:
      - label: Gloss
        field: Gloss
  - label: Etymology Group
    children:
      - label: Source Language
        field: Etymology
        disabled: true
`

func TestLoad(t *testing.T) {
	root, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if root.ClassName() != "entry" || len(root.Children) != 3 {
		t.Fatalf("root = %+v", root)
	}

	hw := root.Children[0]
	if got := hw.WritingSystems.Enabled(); !reflect.DeepEqual(got, []string{"seh"}) {
		t.Errorf("Enabled() = %v, want [seh]", got)
	}
	if !hw.WritingSystems.DisplayAbbreviation {
		t.Error("displayAbbreviation not decoded")
	}

	gloss := root.Find("Gloss")
	if gloss == nil || gloss.Parent() != root.Children[1] {
		t.Fatalf("Find(Gloss) = %+v", gloss)
	}
	if got := gloss.Path(); got != "Main Entry > Senses > Gloss" {
		t.Errorf("Path() = %q", got)
	}

	group := root.Children[2]
	if !group.IsGroup() {
		t.Error("node without field and with children should be a group")
	}
	if group.Children[0].Enabled() {
		t.Error("disabled flag not decoded")
	}
	if root.Children[1].IsGroup() {
		t.Error("node with field is not a group")
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", errors.ErrInvalidInput},
		{"unknown key", "label: x\nbogus: 1\n", errors.ErrInvalidInput},
		{"bad number style", "label: x\nfield: Senses\nsenses:\n  numberStyle: \"%q\"\n", errors.ErrInvalidInput},
		{"unlabelled child", "label: x\nchildren:\n  - before: \"(\"\n", errors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClassName(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{Node{Label: "Lexical Relations"}, "lexicalrelations"},
		{Node{Label: "Gloss", CSSClass: "gl"}, "gl"},
		{Node{Field: "MLHeadWord"}, "mlheadword"},
		{Node{Label: "Référence 2"}, "référence2"},
	}
	for _, tt := range tests {
		if got := tt.node.ClassName(); got != tt.want {
			t.Errorf("ClassName(%+v) = %q, want %q", tt.node, got, tt.want)
		}
	}
}

func TestListOptionsAllows(t *testing.T) {
	var none *ListOptions
	if !none.Allows("Synonym") {
		t.Error("nil list should allow everything")
	}
	l := &ListOptions{Options: []Option{{ID: "Synonym"}, {ID: "Antonym", Disabled: true}}}
	for name, want := range map[string]bool{"Synonym": true, "Antonym": false, "Part": false} {
		if got := l.Allows(name); got != want {
			t.Errorf("Allows(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDefaultRoundTripsThroughYAML(t *testing.T) {
	def := Default("seh", "en")
	if err := Validate(def); err != nil {
		t.Fatalf("default tree invalid: %v", err)
	}
	data, err := Marshal(def)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back, err := Load(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Load(Marshal(Default)) failed: %v", err)
	}
	var a, b []string
	def.Walk(func(n *Node) bool { a = append(a, n.Path()); return true })
	back.Walk(func(n *Node) bool { b = append(b, n.Path()); return true })
	if !reflect.DeepEqual(a, b) {
		t.Errorf("paths differ after round trip:\n%v\n%v", a, b)
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	root := Default("seh", "en")
	var visited int
	root.Walk(func(n *Node) bool {
		visited++
		return n == root
	})
	if visited != 1+len(root.Children) {
		t.Errorf("visited %d nodes, want %d", visited, 1+len(root.Children))
	}
}
