// Package style resolves named styles into concrete declarations.
//
// Backends ask a Resolver for the declarations of a style in a writing
// system and translate them into their own formatting: CSS rules for
// XHTML and JSON output, text properties for ODF.
package style

import (
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/lexpub/core/errors"
)

// Declaration is one property: value pair.
type Declaration struct {
	Property string
	Value    string
}

// Declarations is an ordered declaration set.
type Declarations []Declaration

// Get returns the value of property, or "".
func (d Declarations) Get(property string) string {
	for _, decl := range d {
		if decl.Property == property {
			return decl.Value
		}
	}
	return ""
}

// CSS formats the set as a CSS declaration block body.
func (d Declarations) CSS() string {
	var b strings.Builder
	for i, decl := range d {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(decl.Property)
		b.WriteString(": ")
		b.WriteString(decl.Value)
		b.WriteByte(';')
	}
	return b.String()
}

// Resolver translates a style name into declarations for a writing system.
type Resolver interface {
	ResolveStyle(name, ws string) (Declarations, error)
}

// Sheet is a static Resolver. Each style has base properties and optional
// per-writing-system overrides; a style may inherit from another.
type Sheet struct {
	Styles map[string]*Style `yaml:"styles"`
}

// Style is one named style of a Sheet.
type Style struct {
	BasedOn        string                       `yaml:"basedOn,omitempty"`
	Properties     map[string]string            `yaml:"properties,omitempty"`
	WritingSystems map[string]map[string]string `yaml:"writingSystems,omitempty"`
}

// maxDepth bounds basedOn chains so cycles fail instead of looping.
const maxDepth = 16

// ResolveStyle implements Resolver. Properties are merged from the base
// style up, writing-system overrides last, and returned sorted by name.
func (s *Sheet) ResolveStyle(name, ws string) (Declarations, error) {
	merged := make(map[string]string)
	if err := s.merge(merged, name, ws, 0); err != nil {
		return nil, err
	}
	props := make([]string, 0, len(merged))
	for p := range merged {
		props = append(props, p)
	}
	sort.Strings(props)
	out := make(Declarations, len(props))
	for i, p := range props {
		out[i] = Declaration{Property: p, Value: merged[p]}
	}
	return out, nil
}

func (s *Sheet) merge(into map[string]string, name, ws string, depth int) error {
	if depth > maxDepth {
		return errors.NewValidation("basedOn", "style inheritance too deep at "+name)
	}
	st, ok := s.Styles[name]
	if !ok {
		return errors.NewNotFound("style", name)
	}
	if st.BasedOn != "" {
		if err := s.merge(into, st.BasedOn, ws, depth+1); err != nil {
			return err
		}
	}
	for k, v := range st.Properties {
		into[k] = v
	}
	for k, v := range st.WritingSystems[ws] {
		into[k] = v
	}
	return nil
}

// Names returns the style names in sorted order.
func (s *Sheet) Names() []string {
	names := make([]string, 0, len(s.Styles))
	for n := range s.Styles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadSheet decodes a YAML style sheet.
func LoadSheet(r io.Reader) (*Sheet, error) {
	var sheet Sheet
	if err := yaml.NewDecoder(r).Decode(&sheet); err != nil {
		if err == io.EOF {
			return &Sheet{Styles: map[string]*Style{}}, nil
		}
		return nil, errors.NewParse("style sheet", "", err.Error())
	}
	if sheet.Styles == nil {
		sheet.Styles = map[string]*Style{}
	}
	return &sheet, nil
}

// LoadSheetFile reads a YAML style sheet from path.
func LoadSheetFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	return LoadSheet(f)
}

// Default returns the stock dictionary styles.
func Default() *Sheet {
	return &Sheet{Styles: map[string]*Style{
		"Dictionary-Normal":      {Properties: map[string]string{"font-size": "10pt"}},
		"Dictionary-Headword":    {BasedOn: "Dictionary-Normal", Properties: map[string]string{"font-weight": "bold"}},
		"Dictionary-Vernacular":  {BasedOn: "Dictionary-Normal", Properties: map[string]string{"font-style": "italic"}},
		"Dictionary-Contrasting": {BasedOn: "Dictionary-Normal", Properties: map[string]string{"font-style": "italic", "color": "#444444"}},
		"Dictionary-SenseNumber": {BasedOn: "Dictionary-Normal", Properties: map[string]string{"font-weight": "bold"}},
		"Dictionary-Letter":      {Properties: map[string]string{"font-size": "16pt", "font-weight": "bold", "text-align": "center"}},
		"Dictionary-Error":       {Properties: map[string]string{"color": "#cc0000"}},
	}}
}

// Nop resolves every style to no declarations.
type Nop struct{}

// ResolveStyle implements Resolver.
func (Nop) ResolveStyle(string, string) (Declarations, error) { return nil, nil }
