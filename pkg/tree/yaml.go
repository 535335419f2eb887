/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: yaml.go
Description: YAML documents describing a derivation tree and its merge relation, the hand-off
format between grammar inference and the fuzzer. Nodes are listed flat and refer to each
other by id:

	root: r
	nodes:
	  - {id: r, kind: repetition, start: open, rep: body, end: close}
	  - {id: open, kind: constant, text: "("}
	  - {id: body, kind: multiconstant, text: "a", options: ["abc"], checks: ["a"]}
	  - {id: close, kind: constant, text: ")"}
	merges:
	  - [body, r]
*/

package tree

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is a derivation tree with its merge relation.
type Document struct {
	Root   Node
	Merges *Merges
}

type yamlNode struct {
	ID       string   `yaml:"id"`
	Kind     string   `yaml:"kind"`
	Text     string   `yaml:"text,omitempty"`
	Options  []string `yaml:"options,omitempty"`
	Checks   []string `yaml:"checks,omitempty"`
	Start    string   `yaml:"start,omitempty"`
	Rep      string   `yaml:"rep,omitempty"`
	End      string   `yaml:"end,omitempty"`
	First    string   `yaml:"first,omitempty"`
	Second   string   `yaml:"second,omitempty"`
	Children []string `yaml:"children,omitempty"`
}

type yamlDocument struct {
	Root   string     `yaml:"root"`
	Nodes  []yamlNode `yaml:"nodes"`
	Merges [][]string `yaml:"merges,omitempty"`
}

// LoadYAMLFile reads a tree document from disk.
func LoadYAMLFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tree document: %w", err)
	}
	defer f.Close()

	doc, err := LoadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadYAML decodes a tree document. Unknown ids, duplicate ids, cycles and malformed
// nodes are reported as ErrInvalidNode.
func LoadYAML(r io.Reader) (*Document, error) {
	var raw yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode tree document: %w", err)
	}

	b := &docBuilder{
		raw:      make(map[string]yamlNode, len(raw.Nodes)),
		built:    make(map[string]Node, len(raw.Nodes)),
		visiting: make(map[string]bool),
	}
	for _, n := range raw.Nodes {
		if _, dup := b.raw[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrInvalidNode, n.ID)
		}
		b.raw[n.ID] = n
	}

	root, err := b.build(raw.Root)
	if err != nil {
		return nil, err
	}
	merges := NewMerges()
	for _, pair := range raw.Merges {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: merge entry %v is not a pair", ErrInvalidNode, pair)
		}
		a, err := b.build(pair[0])
		if err != nil {
			return nil, err
		}
		c, err := b.build(pair[1])
		if err != nil {
			return nil, err
		}
		merges.Add(a, c)
	}
	return &Document{Root: root, Merges: merges}, nil
}

type docBuilder struct {
	raw      map[string]yamlNode
	built    map[string]Node
	visiting map[string]bool
}

func (b *docBuilder) build(id string) (Node, error) {
	if n, ok := b.built[id]; ok {
		return n, nil
	}
	raw, ok := b.raw[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown node id %q", ErrInvalidNode, id)
	}
	if b.visiting[id] {
		return nil, fmt.Errorf("%w: cycle through node %q", ErrInvalidNode, id)
	}
	b.visiting[id] = true
	defer delete(b.visiting, id)

	n, err := b.buildNode(raw)
	if err != nil {
		return nil, err
	}
	b.built[id] = n
	return n, nil
}

func (b *docBuilder) buildAll(ids ...string) ([]Node, error) {
	nodes := make([]Node, len(ids))
	for i, id := range ids {
		n, err := b.build(id)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

func (b *docBuilder) buildNode(raw yamlNode) (Node, error) {
	switch raw.Kind {
	case "constant":
		return NewConstant(raw.Text), nil
	case "multiconstant":
		return NewMultiConstant(raw.Text, toRunes(raw.Options), toRunes(raw.Checks))
	case "repetition":
		parts, err := b.buildAll(raw.Start, raw.Rep, raw.End)
		if err != nil {
			return nil, err
		}
		n := NewRepetition(parts[0], parts[1], parts[2])
		if raw.Text != "" {
			n.Text = raw.Text
		}
		return n, nil
	case "alternation":
		parts, err := b.buildAll(raw.First, raw.Second)
		if err != nil {
			return nil, err
		}
		n := NewAlternation(parts[0], parts[1])
		if raw.Text != "" {
			n.Text = raw.Text
		}
		return n, nil
	case "multialternation":
		children, err := b.buildAll(raw.Children...)
		if err != nil {
			return nil, err
		}
		n, err := NewMultiAlternation(children...)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", raw.ID, err)
		}
		if raw.Text != "" {
			n.Text = raw.Text
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%w: node %q has unknown kind %q", ErrInvalidNode, raw.ID, raw.Kind)
	}
}

func toRunes(slots []string) [][]rune {
	out := make([][]rune, len(slots))
	for i, s := range slots {
		out[i] = []rune(s)
	}
	return out
}

func fromRunes(slots [][]rune) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = string(s)
	}
	return out
}

// EncodeYAML writes doc in the format LoadYAML reads. Ids are assigned in preorder.
func EncodeYAML(w io.Writer, doc *Document) error {
	ids := make(map[Node]string)
	var raw yamlDocument
	for _, n := range Descendants(doc.Root) {
		if _, seen := ids[n]; seen {
			continue
		}
		ids[n] = fmt.Sprintf("n%d", len(ids))
	}
	for _, n := range Descendants(doc.Root) {
		id := ids[n]
		if containsID(raw.Nodes, id) {
			continue
		}
		yn := yamlNode{ID: id, Kind: Kind(n), Text: n.Example()}
		switch n := n.(type) {
		case *MultiConstant:
			yn.Options = fromRunes(n.Options)
			yn.Checks = fromRunes(n.Checks)
		case *Repetition:
			yn.Start, yn.Rep, yn.End = ids[n.Start], ids[n.Rep], ids[n.End]
		case *Alternation:
			yn.First, yn.Second = ids[n.First], ids[n.Second]
		case *MultiAlternation:
			for _, c := range n.Children {
				yn.Children = append(yn.Children, ids[c])
			}
		}
		raw.Nodes = append(raw.Nodes, yn)
	}
	raw.Root = ids[doc.Root]

	seen := make(map[[2]string]bool)
	for _, a := range doc.Merges.Keys() {
		for _, b := range doc.Merges.Get(a) {
			ia, okA := ids[a]
			ib, okB := ids[b]
			if !okA || !okB {
				return fmt.Errorf("%w: merge between %s and %s outside the tree", ErrInvalidNode, Describe(a), Describe(b))
			}
			if seen[[2]string{ib, ia}] {
				continue
			}
			seen[[2]string{ia, ib}] = true
			raw.Merges = append(raw.Merges, []string{ia, ib})
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&raw); err != nil {
		return fmt.Errorf("failed to encode tree document: %w", err)
	}
	return enc.Close()
}

func containsID(nodes []yamlNode, id string) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
