package collation

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"golang.org/x/text/unicode/norm"

	"github.com/FocuswithJustin/lexpub/core/errors"
)

// Rules is the parsed form of a writing system's sort rules: ordered
// letter groups plus characters that are skipped when finding the lead
// letter of a headword.
type Rules struct {
	// Groups lists letter groups in alphabetical order. The first member
	// of each group is its head and names the letter header.
	Groups [][]string
	// Ignorable characters are skipped at the start of a headword.
	Ignorable []string
}

// Two notations are accepted and may be mixed:
//
//	a A          simple: one letter group per line
//	ch Ch CH
//	&[ignore] - * =
//	&c < ch <<< Ch < d     ICU style: < starts a group, <<, <<< and = add to it
//
//nolint:govet // participle grammar tags are not standard struct tags
type ruleFile struct {
	Lines []*ruleLine `( @@ | EOL )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type ruleLine struct {
	Ignore *ignoreLine `  @@`
	Reset  *resetLine  `| @@`
	Group  *groupLine  `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type ignoreLine struct {
	Chars []string `"&" "[ignore]" @( Item | Rel )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type resetLine struct {
	Anchor string      `"&" @Item`
	Steps  []*ruleStep `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type ruleStep struct {
	Rel  string `@Rel`
	Item string `@Item`
}

//nolint:govet // participle grammar tags are not standard struct tags
type groupLine struct {
	Members []string `@Item+`
}

var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "EOL", Pattern: `\r?\n`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
	{Name: "Option", Pattern: `\[[a-z ]+\]`},
	{Name: "Rel", Pattern: `<<<|<<|<|=`},
	{Name: "Reset", Pattern: `&`},
	{Name: "Item", Pattern: `[^\s&<=\[\]#]+`},
})

var ruleParser = participle.MustBuild[ruleFile](
	participle.Lexer(ruleLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses sort rules. Empty input yields empty Rules, which makes
// every lead letter fall back to the first grapheme of the headword.
func Parse(text string) (*Rules, error) {
	rules := &Rules{}
	if strings.TrimSpace(text) == "" {
		return rules, nil
	}
	parsed, err := ruleParser.ParseString("", text)
	if err != nil {
		return nil, errors.NewParse("collation rules", "", err.Error())
	}

	index := make(map[string]int) // member -> group
	addGroup := func(at int, members ...string) int {
		g := make([]string, 0, len(members))
		for _, m := range members {
			g = append(g, norm.NFC.String(m))
		}
		rules.Groups = append(rules.Groups, nil)
		copy(rules.Groups[at+1:], rules.Groups[at:])
		rules.Groups[at] = g
		for m, i := range index {
			if i >= at {
				index[m] = i + 1
			}
		}
		for _, m := range g {
			index[m] = at
		}
		return at
	}

	for _, line := range parsed.Lines {
		switch {
		case line.Ignore != nil:
			for _, c := range line.Ignore.Chars {
				rules.Ignorable = append(rules.Ignorable, norm.NFC.String(c))
			}
		case line.Group != nil:
			addGroup(len(rules.Groups), line.Group.Members...)
		case line.Reset != nil:
			anchor := norm.NFC.String(line.Reset.Anchor)
			cur, ok := index[anchor]
			if !ok {
				cur = addGroup(len(rules.Groups), anchor)
			}
			for _, st := range line.Reset.Steps {
				item := norm.NFC.String(st.Item)
				if st.Rel == "<" {
					cur = addGroup(cur+1, item)
					continue
				}
				rules.Groups[cur] = append(rules.Groups[cur], item)
				index[item] = cur
			}
		}
	}
	return rules, nil
}
