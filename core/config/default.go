package config

// Virtual field names understood by the render pipeline in addition to
// the fields of the lexical model.
const (
	// FieldOwnerType renders the relation type that owns a lexical
	// reference; SubField selects Name or Abbreviation.
	FieldOwnerType = "OwnerType"
)

func ws(ids ...string) *WritingSystemOptions {
	o := &WritingSystemOptions{}
	for _, id := range ids {
		o.Options = append(o.Options, Option{ID: id})
	}
	return o
}

// Default returns the stock main-entry tree for a vernacular writing
// system vern and analysis writing system anal.
func Default(vern, anal string) *Node {
	root := &Node{
		Label:    "Main Entry",
		Field:    "LexEntry",
		CSSClass: "entry",
		Children: []*Node{
			{Label: "Headword", Field: "MLHeadWord", CSSClass: "mainheadword", Style: "Dictionary-Headword", WritingSystems: ws(vern)},
			{
				Label: "Pronunciations", Field: "Pronunciations", Between: ", ", Before: " [", After: "]",
				Children: []*Node{
					{Label: "Form", Field: "Form", WritingSystems: ws(vern)},
					{Label: "Audio", Field: "MediaFile"},
				},
			},
			{
				Label: "Senses", Field: "Senses", Between: " ", Before: " ",
				Senses: &SenseOptions{NumberStyle: "%d", NumberAfter: ") ", ShowParentNumber: true, ParentSeparator: "."},
				Children: []*Node{
					{Label: "Grammatical Info", Field: "GrammaticalInfo", After: " ", Style: "Dictionary-Contrasting"},
					{Label: "Gloss", Field: "Gloss", WritingSystems: ws(anal), Between: "; "},
					{Label: "Definition", Field: "Definition", Before: " ", WritingSystems: ws(anal)},
					{
						Label: "Examples", Field: "Examples", Before: " ", Between: " ",
						Children: []*Node{
							{Label: "Example", Field: "Example", WritingSystems: ws(vern), Style: "Dictionary-Vernacular"},
							{Label: "Translation", Field: "Translation", Before: " ", WritingSystems: ws(anal)},
						},
					},
					{
						Label: "Lexical Relations", Field: "LexSenseReferences", Before: " ", Between: "; ",
						Children: []*Node{
							{Label: "Relation Abbreviation", Field: FieldOwnerType, SubField: "Abbreviation", After: " ", WritingSystems: ws(anal)},
							{
								Label: "Targets", Field: "Targets", Between: ", ",
								Children: []*Node{{Label: "Referenced Headword", Field: "HeadWord", CSSClass: "headword"}},
							},
						},
					},
					{
						Label: "Pictures", Field: "Pictures",
						Children: []*Node{
							{Label: "Thumbnail", Field: "PictureFile"},
							{Label: "Caption", Field: "Caption", WritingSystems: ws(anal)},
						},
					},
					{Label: "Subsenses", Field: "Senses", Before: " ", Between: " ", CSSClass: "subsenses",
						Senses: &SenseOptions{NumberStyle: "%a", NumberAfter: ") ", ShowParentNumber: true, ParentSeparator: "."},
						Children: []*Node{
							{Label: "Gloss", Field: "Gloss", WritingSystems: ws(anal)},
						},
					},
				},
			},
			{
				Label: "Components", Field: "EntryRefs", Before: " (", After: ")",
				Children: []*Node{
					{
						Label: "Component Lexemes", Field: "ComponentLexemes", Between: " + ",
						Children: []*Node{{Label: "Referenced Headword", Field: "HeadWord", CSSClass: "headword"}},
					},
				},
			},
			{
				Label: "Lexical Relations", Field: "LexEntryReferences", Before: " ", Between: "; ",
				Children: []*Node{
					{Label: "Relation Name", Field: FieldOwnerType, SubField: "Name", After: ": ", WritingSystems: ws(anal)},
					{
						Label: "Targets", Field: "Targets", Between: ", ",
						Children: []*Node{{Label: "Referenced Headword", Field: "HeadWord", CSSClass: "headword"}},
					},
				},
			},
		},
	}
	return root.Link()
}
