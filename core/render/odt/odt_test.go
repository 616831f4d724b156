package odt

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
	"github.com/FocuswithJustin/lexpub/core/publication"
	"github.com/FocuswithJustin/lexpub/core/render"
	"github.com/FocuswithJustin/lexpub/core/style"
	"github.com/FocuswithJustin/lexpub/core/xml"
)

func TestRunText(t *testing.T) {
	b := New()
	tests := []struct {
		name string
		run  render.Run
		want string
	}{
		{"plain", render.Run{Text: "house"}, "house"},
		{"styled", render.Run{Text: "ba", Style: "Dictionary-Headword"}, `<text:span text:style-name="Dictionary-Headword">ba</text:span>`},
		{"line break", render.Run{Text: "a\nb"}, "a<text:line-break/>b"},
		{"spaces", render.Run{Text: "a   b"}, "a <text:s/><text:s/>b"},
		{"escaped", render.Run{Text: "x<y"}, "x&lt;y"},
		{"abbreviation", render.Run{Abbrev: "En", Text: "dog"}, "En dog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Run(tt.run).String(); got != tt.want {
				t.Errorf("Run() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStyleName(t *testing.T) {
	tests := map[string]string{
		"Dictionary-Headword": "Dictionary-Headword",
		"Sense Number":        "Sense_20_Number",
		"1st":                 "_1st",
		"a/b":                 "a_b",
	}
	for in, want := range tests {
		if got := StyleName(in); got != want {
			t.Errorf("StyleName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecorationsAreLiteral(t *testing.T) {
	b := New()
	node := (&config.Node{Label: "Gloss", Field: "Gloss", Before: "[", Between: ", ", After: "]"}).Link()
	got := b.Property(node, []render.Fragment{b.Run(render.Run{Text: "a"}), b.Run(render.Run{Text: "b"})}).String()
	if got != "[a, b]" {
		t.Errorf("Property() = %q, want %q", got, "[a, b]")
	}
	if f := b.Collection(node, []render.Fragment{b.Empty()}); !f.IsEmpty() {
		t.Errorf("Collection(empty) = %q", f.String())
	}
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("not a zip: %v", err)
	}
	if len(zr.File) == 0 || zr.File[0].Name != "mimetype" || zr.File[0].Method != zip.Store {
		t.Fatalf("first member must be a stored mimetype, got %+v", zr.File[0].FileHeader)
	}
	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		out[f.Name], _ = io.ReadAll(rc)
		rc.Close()
	}
	return out
}

func TestWritePackage(t *testing.T) {
	lb := lexicon.NewBuilder()
	e := lb.Entry("seh", "ba", 0)
	lb.Sense(e, "en", "father")
	lb.Sense(e, "en", "mother")
	view, err := publication.New(lb.M, lexicon.NoHandle, publication.WithWritingSystem("seh"))
	if err != nil {
		t.Fatalf("publication.New failed: %v", err)
	}
	root := config.Default("seh", "en")
	entry, err := render.NewPipeline(view, New()).RenderEntry(e, root)
	if err != nil {
		t.Fatalf("RenderEntry failed: %v", err)
	}

	var buf bytes.Buffer
	err = WritePackage(&buf, []render.Fragment{New().LetterHeader("B b"), entry}, PackageOptions{
		Title: "Sena", Root: root, Styles: style.Default(), WritingSystem: "seh", Check: true,
	})
	if err != nil {
		t.Fatalf("WritePackage failed: %v", err)
	}
	files := readZip(t, buf.Bytes())
	if string(files["mimetype"]) != mimeType {
		t.Errorf("mimetype = %q", files["mimetype"])
	}
	for _, name := range []string{"META-INF/manifest.xml", "meta.xml", "styles.xml", "content.xml"} {
		if _, ok := files[name]; !ok {
			t.Errorf("missing %s", name)
		}
	}

	content, err := xml.Parse(files["content.xml"])
	if err != nil {
		t.Fatalf("content.xml: %v", err)
	}
	if n := content.Count("//*[local-name()='p']"); n != 2 {
		t.Errorf("paragraphs = %d, want 2", n)
	}
	if n := content.Count("//*[local-name()='bookmark']"); n != 1 {
		t.Errorf("bookmarks = %d, want 1", n)
	}

	styles := string(files["styles.xml"])
	if !strings.Contains(styles, `style:name="Letter"`) || !strings.Contains(styles, `fo:text-align="center"`) {
		t.Errorf("letter paragraph style missing:\n%s", styles)
	}
	if !strings.Contains(styles, `style:name="Dictionary-Headword"`) {
		t.Errorf("headword text style missing:\n%s", styles)
	}
}
