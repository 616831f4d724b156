package render

import (
	"strconv"
	"strings"
)

// FormatNumber formats a 1-based sense number in one of the styles %d
// (1, 2), %a (a, b ... z, aa), %A (A, B), %i (i, ii) and %I (I, II).
// Unknown styles fall back to %d.
func FormatNumber(style string, n int) string {
	switch style {
	case "%a":
		return alpha(n)
	case "%A":
		return strings.ToUpper(alpha(n))
	case "%i":
		return strings.ToLower(roman(n))
	case "%I":
		return roman(n)
	}
	return strconv.Itoa(n)
}

func alpha(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('a' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func roman(n int) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	var b strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}
