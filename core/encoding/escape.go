// Package encoding provides text escaping for the output formats and
// sanitizing of diagnostics embedded in rendered output.
package encoding

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LineSeparator is the Unicode line separator. Runs use it and '\n' as
// their line-break escapes.
const LineSeparator = '\u2028'

var (
	textReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;")
	cssReplacer  = strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\A ", "\u2028", "\\A ")
)

// EscapeXMLText escapes the basic XML entities for text content.
func EscapeXMLText(s string) string {
	return textReplacer.Replace(s)
}

// EscapeXMLAttr escapes text for use in double-quoted XML attributes.
func EscapeXMLAttr(s string) string {
	return attrReplacer.Replace(s)
}

// EscapeCSSString escapes s for a double-quoted CSS string such as a
// content declaration. Line breaks become the CSS \A escape.
func EscapeCSSString(s string) string {
	return cssReplacer.Replace(s)
}

// SplitLines splits s at '\n' and U+2028.
func SplitLines(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == LineSeparator }) // drops empty lines
}

// ValidText reports whether s can be rendered: valid UTF-8 made of XML
// characters, without control characters other than tab and the
// line-break escapes, and without Unicode noncharacters.
func ValidText(s string) error {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size <= 1 {
				return fmt.Errorf("invalid UTF-8 at byte %d", i)
			}
		}
		switch {
		case unicode.IsControl(r) && r != '\t' && r != '\n':
			return fmt.Errorf("control character U+%04X at byte %d", r, i)
		case !isXMLChar(r):
			return fmt.Errorf("character U+%04X not allowed in XML at byte %d", r, i)
		case isNonCharacter(r):
			return fmt.Errorf("noncharacter U+%04X at byte %d", r, i)
		}
	}
	return nil
}

// isXMLChar reports whether r matches the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	switch {
	case r == 0x9 || r == 0xA || r == 0xD:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// isNonCharacter reports U+FDD0..U+FDEF and the last two code points of
// every plane.
func isNonCharacter(r rune) bool {
	return (r >= 0xFDD0 && r <= 0xFDEF) || r&0xFFFE == 0xFFFE
}

// maxDiagnostic bounds diagnostic payloads embedded in output.
const maxDiagnostic = 200

// SanitizeDiagnostic makes an error message safe to embed in any output
// format: invalid bytes are shown as \xNN, control characters
// become spaces, and the result is truncated to a fixed number of runes.
func SanitizeDiagnostic(msg string) string {
	var b strings.Builder
	n := 0
	for i := 0; i < len(msg) && n < maxDiagnostic; {
		r, size := utf8.DecodeRuneInString(msg[i:])
		switch {
		case r == utf8.RuneError && size <= 1:
			fmt.Fprintf(&b, "\\x%02X", msg[i])
		case unicode.IsControl(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
		i += size
		n++
		if n == maxDiagnostic && i < len(msg) {
			b.WriteString("...")
		}
	}
	return b.String()
}
