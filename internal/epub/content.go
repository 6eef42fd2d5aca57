package epub

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Link is an anchor found inside a block
type Link struct {
	Text string
	Href string
}

// Block is a paragraph-level run of text
type Block struct {
	Text    string
	Heading bool
	Links   []Link
}

// Document is the readable text of one content document
type Document struct {
	Blocks []Block
	// Anchors maps element ids to the block that contains them
	Anchors map[string]int
}

// Anchor returns the block index for a fragment id
func (d *Document) Anchor(id string) (int, bool) {
	i, ok := d.Anchors[id]
	if !ok {
		return 0, false
	}
	if i >= len(d.Blocks) {
		i = len(d.Blocks) - 1
	}
	if i < 0 {
		i = 0
	}
	return i, true
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Blockquote: true, atom.Pre: true, atom.Dt: true, atom.Dd: true,
	atom.Figcaption: true, atom.Tr: true, atom.Hr: true, atom.Header: true, atom.Footer: true,
}

var headings = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
}

type builder struct {
	doc     Document
	text    strings.Builder
	heading bool
	links   []Link
}

// ParseContent extracts blocks of text from an XHTML content document
func ParseContent(data []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("epub: parse content: %w", err)
	}
	b := &builder{doc: Document{Anchors: make(map[string]int)}}
	body := findBody(root)
	if body == nil {
		body = root
	}
	b.walk(body)
	b.flush()
	return &b.doc, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func getAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func (b *builder) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.appendText(n.Data)
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			b.walk(c)
		}
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head:
		return
	case atom.Br:
		b.text.WriteString("\n")
		return
	}

	isBlock := blockElements[n.DataAtom]
	if isBlock {
		b.flush()
		b.heading = headings[n.DataAtom]
	}
	if id := getAttr(n, "id"); id != "" {
		if _, dup := b.doc.Anchors[id]; !dup {
			b.doc.Anchors[id] = len(b.doc.Blocks)
		}
	}

	if n.DataAtom == atom.A {
		if href := getAttr(n, "href"); href != "" {
			start := b.text.Len()
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				b.walk(c)
			}
			text := ""
			if b.text.Len() >= start {
				text = collapseSpace(b.text.String()[start:])
			}
			b.links = append(b.links, Link{Text: text, Href: href})
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
	if isBlock {
		b.flush()
	}
}

func (b *builder) appendText(s string) {
	if strings.TrimSpace(s) == "" {
		if b.text.Len() > 0 {
			b.text.WriteString(" ")
		}
		return
	}
	b.text.WriteString(s)
}

// flush closes the current block. Whitespace collapses within each line.
func (b *builder) flush() {
	lines := strings.Split(b.text.String(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = collapseSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) > 0 {
		b.doc.Blocks = append(b.doc.Blocks, Block{
			Text:    strings.Join(kept, "\n"),
			Heading: b.heading,
			Links:   b.links,
		})
	} else if len(b.links) > 0 && len(b.doc.Blocks) > 0 {
		last := &b.doc.Blocks[len(b.doc.Blocks)-1]
		last.Links = append(last.Links, b.links...)
	}
	b.text.Reset()
	b.heading = false
	b.links = nil
}
