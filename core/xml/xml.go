// Package xml checks and queries the markup produced by the XHTML and ODF
// backends.
//
// Parsing goes through xmlquery, which uses encoding/xml and never fetches
// external entities.
package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Document represents a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Node represents an element of a parsed document.
type Node struct {
	node *xmlquery.Node
}

// SyntaxError reports where a document stopped being well formed.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Parse parses XML data and returns a Document.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseFragment parses markup that may have several top-level elements by
// wrapping it in a synthetic root named fragment.
func ParseFragment(markup string) (*Document, error) {
	return Parse([]byte("<fragment>" + markup + "</fragment>"))
}

// WellFormed returns a *SyntaxError when data is not well-formed XML.
// Entity expansion is disabled.
func WellFormed(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Entity = map[string]string{}
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			line := 0
			if se, ok := err.(*xml.SyntaxError); ok {
				line = se.Line
			}
			return &SyntaxError{Line: line, Message: err.Error()}
		}
	}
}

// Root returns the first element of the document.
func (d *Document) Root() *Node {
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

// XPath executes an XPath query and returns matching elements.
func (d *Document) XPath(expr string) ([]*Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}
	nodes := xmlquery.QuerySelectorAll(d.root, compiled)
	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = &Node{node: n}
	}
	return result, nil
}

// XPathFirst returns the first match of expr, or nil.
func (d *Document) XPathFirst(expr string) (*Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}
	n := xmlquery.QuerySelector(d.root, compiled)
	if n == nil {
		return nil, nil
	}
	return &Node{node: n}, nil
}

// Count returns the number of matches of expr. Invalid expressions count 0.
func (d *Document) Count(expr string) int {
	nodes, err := d.XPath(expr)
	if err != nil {
		return 0
	}
	return len(nodes)
}

// Name returns the element name including any prefix.
func (n *Node) Name() string {
	if n.node.Prefix != "" {
		return n.node.Prefix + ":" + n.node.Data
	}
	return n.node.Data
}

// Text returns the text content of the node and its descendants.
func (n *Node) Text() string {
	return n.node.InnerText()
}

// InnerXML returns the serialized children of the node.
func (n *Node) InnerXML() string {
	var b strings.Builder
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(child.OutputXML(true))
	}
	return b.String()
}

// Children returns the child elements.
func (n *Node) Children() []*Node {
	var children []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			children = append(children, &Node{node: child})
		}
	}
	return children
}

// Attr returns the value of an attribute, matched by local name or by
// prefix:local.
func (n *Node) Attr(name string) string {
	for _, a := range n.node.Attr {
		if a.Name.Local == name || a.Name.Space+":"+a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
