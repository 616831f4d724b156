package config

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/lexpub/core/errors"
)

var numberStyles = map[string]bool{"": true, "%d": true, "%a": true, "%A": true, "%i": true, "%I": true}

// Load decodes a configuration tree from YAML and links it.
func Load(r io.Reader) (*Node, error) {
	var root Node
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&root); err != nil {
		if err == io.EOF {
			return nil, errors.NewParse("yaml", "", "empty configuration")
		}
		return nil, errors.NewParse("yaml", "", err.Error())
	}
	root.Link()
	if err := Validate(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// LoadFile reads a configuration tree from path.
func LoadFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	root, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return root, nil
}

// Marshal encodes a tree as YAML.
func Marshal(root *Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, errors.Wrap(err, "encoding configuration")
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks structural rules that the render pipeline relies on:
// every node has a label, and sense number styles are known.
func Validate(root *Node) error {
	var err error
	root.Walk(func(n *Node) bool {
		if err != nil {
			return false
		}
		if n.Label == "" && n.Field == "" {
			err = errors.NewValidation("label", "node without label or field under "+parentPath(n))
			return false
		}
		if n.Senses != nil && !numberStyles[n.Senses.NumberStyle] {
			err = errors.NewValidation("numberStyle", "unknown sense number style "+n.Senses.NumberStyle+" at "+n.Path())
			return false
		}
		return true
	})
	return err
}

func parentPath(n *Node) string {
	if n.parent == nil {
		return "root"
	}
	return n.parent.Path()
}
