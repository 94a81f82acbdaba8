// Package svgdoc loads SVG sources into a generic element tree.
//
// It covers the acquisition half of the pipeline: reading bytes, sniffing
// and inflating gzip (svgz), validating UTF-8, and tokenizing the markup
// into Nodes. It knows nothing about rendering; the render and geom
// packages walk the tree it produces.
//
//	data, err := svgdoc.ReadFile("logo.svgz")
//	text, err := svgdoc.Decode(data)
//	doc, err := svgdoc.Parse(text)
//	if svgdoc.HasText(doc) {
//	    // build a font catalog
//	}
package svgdoc

import (
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/matzehuels/svgpng/pkg/errors"
)

// Kind distinguishes element nodes from character data.
type Kind int

const (
	ElementNode Kind = iota
	TextNode
)

// Attr is a single attribute in document order.
type Attr struct {
	Name  string
	Value string
}

// Node is an element or a run of character data.
type Node struct {
	Kind     Kind
	Name     string // local element name; empty for text nodes
	Attrs    []Attr
	Children []*Node
	Parent   *Node
	Text     string // character data of a TextNode

	style map[string]string
}

// Document is a parsed SVG document.
type Document struct {
	Root *Node

	ids map[string]*Node
}

// Attr returns the value of a raw attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// ID returns the element id, or "" when absent.
func (n *Node) ID() string {
	id, _ := n.Attr("id")
	return strings.TrimSpace(id)
}

// Elements returns the element children of n, skipping character data.
func (n *Node) Elements() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Lookup returns the element with the given id.
func (d *Document) Lookup(id string) (*Node, bool) {
	n, ok := d.ids[id]
	return n, ok
}

// Walk visits every element in document order. Returning false from fn
// skips the element's subtree.
func (d *Document) Walk(fn func(*Node) bool) {
	walk(d.Root, fn)
}

func walk(n *Node, fn func(*Node) bool) {
	if n.Kind != ElementNode {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		walk(c, fn)
	}
}

// entityDecl matches <!ENTITY name "value"> declarations in a DOCTYPE subset.
var entityDecl = regexp.MustCompile(`<!ENTITY\s+([A-Za-z_][\w.-]*)\s+(?:"([^"]*)"|'([^']*)')\s*>`)

// Parse tokenizes text into a Document. DOCTYPE declarations are accepted
// and their internal entity declarations become available to the rest of
// the document. The root element must be <svg>.
func Parse(text string) (*Document, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = true
	dec.Entity = make(map[string]string, len(xml.HTMLEntity))
	for k, v := range xml.HTMLEntity {
		dec.Entity[k] = v
	}

	var (
		root  *Node
		stack []*Node
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFormatParse, err, "failed to parse SVG")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Kind: ElementNode, Name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if s, ok := n.Attr("style"); ok {
				n.style = ParseStyle(s)
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New(errors.ErrCodeFormatParse, "failed to parse SVG: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				n.Parent = parent
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &Node{
				Kind:   TextNode,
				Text:   string(t),
				Parent: parent,
			})

		case xml.Directive:
			for _, m := range entityDecl.FindAllStringSubmatch(string(t), -1) {
				value := m[2]
				if value == "" {
					value = m[3]
				}
				dec.Entity[m[1]] = value
			}
		}
	}

	if root == nil {
		return nil, errors.New(errors.ErrCodeFormatParse, "failed to parse SVG: document has no root element")
	}
	if root.Name != "svg" {
		return nil, errors.New(errors.ErrCodeFormatParse, "failed to parse SVG: root element is <%s>, want <svg>", root.Name)
	}

	doc := &Document{Root: root, ids: make(map[string]*Node)}
	doc.Walk(func(n *Node) bool {
		if id := n.ID(); id != "" {
			if _, dup := doc.ids[id]; !dup {
				doc.ids[id] = n
			}
		}
		return true
	})
	return doc, nil
}
