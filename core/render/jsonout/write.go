package jsonout

import (
	"bufio"
	"io"

	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/render"
	"github.com/FocuswithJustin/lexpub/core/style"
)

// WriteRecords writes entry records as a JSON array, one record per line.
func WriteRecords(w io.Writer, fragments []render.Fragment) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("[")
	n := 0
	for _, f := range fragments {
		if f == nil || f.IsEmpty() {
			continue
		}
		data, err := marshal(as(f).Value())
		if err != nil {
			return errors.Wrap(err, "encoding record")
		}
		if n > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n")
		bw.Write(data)
		n++
	}
	bw.WriteString("\n]\n")
	if err := bw.Flush(); err != nil {
		return errors.NewIO("write", "json records", err)
	}
	return nil
}

// WriteStylesheet writes the CSS that restores decorations and styles
// when the records are displayed.
func WriteStylesheet(w io.Writer, root *config.Node, r style.Resolver, ws string) error {
	css, err := style.Stylesheet(root, r, style.StylesheetOptions{WritingSystem: ws, Decorations: true})
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, css); err != nil {
		return errors.NewIO("write", "json stylesheet", err)
	}
	return nil
}
