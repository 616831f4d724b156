package odt

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/encoding"
	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/render"
	"github.com/FocuswithJustin/lexpub/core/style"
	"github.com/FocuswithJustin/lexpub/core/xml"
)

const mimeType = "application/vnd.oasis.opendocument.text"

const namespaces = ` xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:style="urn:oasis:names:tc:opendocument:xmlns:style:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"
  xmlns:draw="urn:oasis:names:tc:opendocument:xmlns:drawing:1.0"
  xmlns:fo="urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0"
  xmlns:svg="urn:oasis:names:tc:opendocument:xmlns:svg-compatible:1.0"
  xmlns:xlink="http://www.w3.org/1999/xlink"
  xmlns:dc="http://purl.org/dc/elements/1.1/"
  xmlns:meta="urn:oasis:names:tc:opendocument:xmlns:meta:1.0"
  office:version="1.2"`

// PackageOptions controls WritePackage.
type PackageOptions struct {
	Title string
	// Root is the configuration tree; its node styles are defined in
	// styles.xml.
	Root *config.Node
	// Styles resolves style names. Nil defines every style empty.
	Styles        style.Resolver
	WritingSystem string
	// Check verifies that content.xml and styles.xml are well formed.
	Check bool
}

// WritePackage writes an OpenDocument text package holding fragments.
// The mimetype member comes first and is stored uncompressed.
func WritePackage(w io.Writer, fragments []render.Fragment, opts PackageOptions) error {
	resolver := opts.Styles
	if resolver == nil {
		resolver = style.Nop{}
	}
	styles, err := stylesXML(opts, resolver)
	if err != nil {
		return err
	}
	content := contentXML(fragments)
	if opts.Check {
		for name, data := range map[string][]byte{"styles.xml": styles, "content.xml": content} {
			if err := xml.WellFormed(data); err != nil {
				return errors.Wrapf(err, "%s is not well formed", name)
			}
		}
	}

	zw := zip.NewWriter(w)
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return errors.NewIO("write", "mimetype", err)
	}
	if _, err := io.WriteString(mw, mimeType); err != nil {
		return errors.NewIO("write", "mimetype", err)
	}

	members := []struct {
		name string
		data []byte
	}{
		{"META-INF/manifest.xml", []byte(manifestXML)},
		{"meta.xml", metaXML(opts.Title)},
		{"styles.xml", styles},
		{"content.xml", content},
	}
	for _, m := range members {
		fw, err := zw.Create(m.name)
		if err != nil {
			return errors.NewIO("write", m.name, err)
		}
		if _, err := fw.Write(m.data); err != nil {
			return errors.NewIO("write", m.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return errors.NewIO("close", "odt package", err)
	}
	return nil
}

const manifestXML = `<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.2">
  <manifest:file-entry manifest:full-path="/" manifest:media-type="` + mimeType + `"/>
  <manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>
  <manifest:file-entry manifest:full-path="styles.xml" manifest:media-type="text/xml"/>
  <manifest:file-entry manifest:full-path="meta.xml" manifest:media-type="text/xml"/>
</manifest:manifest>
`

func metaXML(title string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<office:document-meta" + namespaces + ">\n<office:meta>\n")
	buf.WriteString("  <meta:generator>lexpub</meta:generator>\n")
	if title != "" {
		fmt.Fprintf(&buf, "  <dc:title>%s</dc:title>\n", encoding.EscapeXMLText(title))
	}
	buf.WriteString("</office:meta>\n</office:document-meta>\n")
	return buf.Bytes()
}

func contentXML(fragments []render.Fragment) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<office:document-content" + namespaces + ">\n<office:body>\n<office:text>\n")
	for _, f := range fragments {
		if f == nil || f.IsEmpty() {
			continue
		}
		buf.WriteString(f.String())
		buf.WriteByte('\n')
	}
	buf.WriteString("</office:text>\n</office:body>\n</office:document-content>\n")
	return buf.Bytes()
}

// textStyles lists the character styles the tree and the backend use.
func textStyles(root *config.Node) []string {
	set := map[string]struct{}{SenseNumberStyle: {}, ErrorStyle: {}}
	if root != nil {
		root.Walk(func(n *config.Node) bool {
			if !n.Enabled() {
				return false
			}
			if n.Style != "" {
				set[n.Style] = struct{}{}
			}
			if n.Senses != nil && n.Senses.NumberStyleName != "" {
				set[n.Senses.NumberStyleName] = struct{}{}
			}
			return true
		})
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func stylesXML(opts PackageOptions, r style.Resolver) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<office:document-styles" + namespaces + ">\n<office:styles>\n")

	paragraphs := []struct{ name, from string }{
		{EntryStyle, "Dictionary-Normal"},
		{LetterStyle, "Dictionary-Letter"},
	}
	for _, p := range paragraphs {
		decls, err := resolve(r, p.from, opts.WritingSystem)
		if err != nil {
			return nil, err
		}
		writeStyle(&buf, p.name, "paragraph", decls)
	}
	for _, name := range textStyles(opts.Root) {
		decls, err := resolve(r, name, opts.WritingSystem)
		if err != nil {
			return nil, err
		}
		writeStyle(&buf, name, "text", decls)
	}
	buf.WriteString("</office:styles>\n</office:document-styles>\n")
	return buf.Bytes(), nil
}

func resolve(r style.Resolver, name, ws string) (style.Declarations, error) {
	decls, err := r.ResolveStyle(name, ws)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "resolving style %s", name)
	}
	return decls, nil
}

var textProperties = map[string]string{
	"font-size":        "fo:font-size",
	"font-weight":      "fo:font-weight",
	"font-style":       "fo:font-style",
	"font-family":      "fo:font-family",
	"font-variant":     "fo:font-variant",
	"color":            "fo:color",
	"background-color": "fo:background-color",
}

var paragraphProperties = map[string]string{
	"text-align":    "fo:text-align",
	"text-indent":   "fo:text-indent",
	"line-height":   "fo:line-height",
	"margin-left":   "fo:margin-left",
	"margin-right":  "fo:margin-right",
	"margin-top":    "fo:margin-top",
	"margin-bottom": "fo:margin-bottom",
}

// writeStyle maps CSS declarations onto ODF formatting properties.
// Declarations with no ODF counterpart are dropped.
func writeStyle(buf *bytes.Buffer, name, family string, decls style.Declarations) {
	var textAttrs, para []string
	for _, d := range decls {
		if attr, ok := textProperties[d.Property]; ok {
			textAttrs = append(textAttrs, attrPair(attr, d.Value))
			continue
		}
		switch d.Property {
		case "text-decoration":
			if strings.Contains(d.Value, "underline") {
				textAttrs = append(textAttrs, `style:text-underline-style="solid"`, `style:text-underline-width="auto"`, `style:text-underline-color="font-color"`)
			}
			if strings.Contains(d.Value, "line-through") {
				textAttrs = append(textAttrs, `style:text-line-through-style="solid"`)
			}
			continue
		}
		if attr, ok := paragraphProperties[d.Property]; ok && family == "paragraph" {
			value := d.Value
			if d.Property == "text-align" {
				value = alignment(value)
			}
			para = append(para, attrPair(attr, value))
		}
	}

	fmt.Fprintf(buf, "  <style:style style:name=\"%s\" style:display-name=\"%s\" style:family=\"%s\">\n",
		encoding.EscapeXMLAttr(StyleName(name)), encoding.EscapeXMLAttr(name), family)
	if len(para) > 0 {
		fmt.Fprintf(buf, "    <style:paragraph-properties %s/>\n", strings.Join(para, " "))
	}
	if len(textAttrs) > 0 {
		fmt.Fprintf(buf, "    <style:text-properties %s/>\n", strings.Join(textAttrs, " "))
	}
	buf.WriteString("  </style:style>\n")
}

func attrPair(attr, value string) string {
	return attr + `="` + encoding.EscapeXMLAttr(value) + `"`
}

func alignment(css string) string {
	switch css {
	case "left":
		return "start"
	case "right":
		return "end"
	}
	return css
}
