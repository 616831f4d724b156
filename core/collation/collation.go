// Package collation computes the index letters that head each alphabetic
// section of a dictionary and orders headwords for a writing system.
//
// A Collation is built once per writing system and is read-only, so
// render workers may share it. The only mutable state, the last letter
// seen, lives in a Sequencer created fresh for every batch.
package collation

import (
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Collation holds the digraph and ignorable-character maps of one writing
// system.
type Collation struct {
	ws        string
	tag       language.Tag
	heads     map[string]string // lower-cased member -> group head
	maxRunes  int               // longest member, in runes
	ignorable map[string]bool
	maxIgnore int

	mu       sync.Mutex // guards collator
	collator *collate.Collator
}

// New builds the collation for writing system ws from rules. Nil rules
// behave like empty rules.
func New(ws string, rules *Rules) *Collation {
	tag, err := language.Parse(ws)
	if err != nil {
		tag = language.Und
	}
	c := &Collation{
		ws:        ws,
		tag:       tag,
		heads:     make(map[string]string),
		ignorable: make(map[string]bool),
		collator:  collate.New(tag),
	}
	if rules == nil {
		return c
	}
	for _, g := range rules.Groups {
		if len(g) == 0 {
			continue
		}
		head := c.toLower(g[0])
		for _, m := range g {
			key := c.toLower(m)
			if _, dup := c.heads[key]; !dup {
				c.heads[key] = head
			}
			if n := utf8.RuneCountInString(key); n > c.maxRunes {
				c.maxRunes = n
			}
		}
	}
	for _, ch := range rules.Ignorable {
		c.ignorable[ch] = true
		if n := utf8.RuneCountInString(ch); n > c.maxIgnore {
			c.maxIgnore = n
		}
	}
	return c
}

// toLower uses a fresh Caser per call; Casers are stateful.
func (c *Collation) toLower(s string) string {
	return cases.Lower(c.tag).String(s)
}

// WritingSystem returns the writing system the collation was built for.
func (c *Collation) WritingSystem() string { return c.ws }

// LeadLetter returns the letter a headword is filed under: ignorable
// characters are skipped, the longest matching rule member (so "ch" wins
// over "c") is mapped to its group head, and without a match the first
// grapheme is used. The result is lower case; "" means no letter.
func (c *Collation) LeadLetter(headword string) string {
	s := c.toLower(norm.NFC.String(headword))
	s = c.skipIgnorable(s)
	if s == "" {
		return ""
	}
	if c.maxRunes > 0 {
		runes := []rune(s)
		for n := min(c.maxRunes, len(runes)); n > 0; n-- {
			if head, ok := c.heads[string(runes[:n])]; ok {
				return head
			}
		}
	}
	return firstGrapheme(s)
}

func (c *Collation) skipIgnorable(s string) string {
	for s != "" {
		if n := c.matchIgnorable(s); n > 0 {
			s = s[n:]
			continue
		}
		if len(c.ignorable) == 0 {
			r, size := utf8.DecodeRuneInString(s)
			if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) || unicode.Is(unicode.Mn, r) {
				s = s[size:]
				continue
			}
		}
		return s
	}
	return s
}

// matchIgnorable returns the byte length of the longest ignorable prefix.
func (c *Collation) matchIgnorable(s string) int {
	if c.maxIgnore == 0 {
		return 0
	}
	runes := []rune(s)
	for n := min(c.maxIgnore, len(runes)); n > 0; n-- {
		prefix := string(runes[:n])
		if c.ignorable[prefix] {
			return len(prefix)
		}
	}
	return 0
}

// firstGrapheme returns the first rune of s with any combining marks that
// follow it.
func firstGrapheme(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	end := size
	for end < len(s) {
		r, n := utf8.DecodeRuneInString(s[end:])
		if !unicode.In(r, unicode.Mn, unicode.Me) {
			break
		}
		end += n
	}
	return norm.NFC.String(s[:end])
}

// HeaderText returns the display form of a letter header: the title-cased
// letter followed by the lower-case one ("B b", "Ch ch"), or the letter
// alone for scripts without case.
func (c *Collation) HeaderText(letter string) string {
	if letter == "" {
		return ""
	}
	upper := cases.Title(c.tag).String(letter)
	lower := c.toLower(letter)
	if upper == lower {
		return lower
	}
	return upper + " " + lower
}

// Compare orders two headwords by the writing system's locale collation.
func (c *Collation) Compare(a, b string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collator.CompareString(a, b)
}

// SortKey returns a binary key that sorts like Compare.
func (c *Collation) SortKey(headword string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf collate.Buffer
	key := c.collator.KeyFromString(&buf, headword)
	return append([]byte(nil), key...)
}

// NewSequencer returns a fresh letter-header accumulator.
func (c *Collation) NewSequencer() *Sequencer {
	return &Sequencer{c: c}
}

// Sequencer tracks the last letter produced during one ordered pass over
// a batch. It is not safe for concurrent use.
type Sequencer struct {
	c    *Collation
	last string
}

// Next reports whether letter starts a new section and, if so, the header
// text to insert before the entry.
func (s *Sequencer) Next(letter string) (header string, changed bool) {
	if letter == "" || letter == s.last {
		return "", false
	}
	s.last = letter
	return s.c.HeaderText(letter), true
}

// Last returns the last letter produced.
func (s *Sequencer) Last() string { return s.last }
