package xhtml

import (
	"bytes"
	"fmt"
	"io"

	"github.com/FocuswithJustin/lexpub/core/encoding"
	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/render"
	"github.com/FocuswithJustin/lexpub/core/xml"
)

// DocumentOptions controls WriteDocument.
type DocumentOptions struct {
	Title string
	Lang  string
	// StylesheetHref links an external stylesheet; InlineCSS embeds one.
	StylesheetHref string
	InlineCSS      string
	// Check verifies that the assembled document is well formed before
	// anything is written.
	Check bool
}

// WriteDocument assembles fragments into one XHTML document.
func WriteDocument(w io.Writer, fragments []render.Fragment, opts DocumentOptions) error {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml"`)
	if opts.Lang != "" {
		fmt.Fprintf(&buf, ` lang="%s"`, encoding.EscapeXMLAttr(opts.Lang))
	}
	buf.WriteString(">\n<head>\n  <meta charset=\"UTF-8\"/>\n")
	fmt.Fprintf(&buf, "  <title>%s</title>\n", encoding.EscapeXMLText(opts.Title))
	if opts.StylesheetHref != "" {
		fmt.Fprintf(&buf, "  <link rel=\"stylesheet\" type=\"text/css\" href=\"%s\"/>\n", encoding.EscapeXMLAttr(opts.StylesheetHref))
	}
	if opts.InlineCSS != "" {
		fmt.Fprintf(&buf, "  <style type=\"text/css\">\n%s</style>\n", encoding.EscapeXMLText(opts.InlineCSS))
	}
	buf.WriteString("</head>\n<body class=\"dicBody\">\n")
	for _, f := range fragments {
		if f == nil || f.IsEmpty() {
			continue
		}
		buf.WriteString(f.String())
		buf.WriteByte('\n')
	}
	buf.WriteString("</body>\n</html>\n")

	if opts.Check {
		if err := xml.WellFormed(buf.Bytes()); err != nil {
			return errors.Wrap(err, "assembled document is not well formed")
		}
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.NewIO("write", "xhtml document", err)
	}
	return nil
}
