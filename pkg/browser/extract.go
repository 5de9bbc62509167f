package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gobwas/glob"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TextExtractor turns body markup into the text handed to downstream
// consumers. It is the pluggable content-extraction policy.
type TextExtractor interface {
	CleanText(bodyHTML string) (string, error)
}

// TextExtractorFunc adapts a function to TextExtractor.
type TextExtractorFunc func(bodyHTML string) (string, error)

func (f TextExtractorFunc) CleanText(bodyHTML string) (string, error) {
	return f(bodyHTML)
}

// structuralNoise lists elements that never carry readable body text.
const structuralNoise = "script, style, img, form, header, footer, noscript"

// DenylistExtractor strips structural noise and any subtree whose id or
// class matches a denylist token, then flattens what remains to text.
type DenylistExtractor struct {
	patterns []glob.Glob
}

// NewDenylistExtractor compiles tokens into case-insensitive patterns.
// A plain token matches as a substring; tokens containing glob syntax
// match as written.
func NewDenylistExtractor(tokens []string) (*DenylistExtractor, error) {
	e := &DenylistExtractor{}
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		pattern := token
		if !strings.ContainsAny(token, "*?[{") {
			pattern = "*" + token + "*"
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denylist token %q: %w", token, err)
		}
		e.patterns = append(e.patterns, g)
	}
	return e, nil
}

// CleanText implements TextExtractor.
func (e *DenylistExtractor) CleanText(bodyHTML string) (string, error) {
	doc, err := parseBody(bodyHTML)
	if err != nil {
		return "", err
	}

	doc.Find(structuralNoise).Remove()
	doc.Find("[id], [class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return e.denied(s)
	}).Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		writeText(&b, n)
	}
	return collapseWhitespace(b.String()), nil
}

// blockElements break the text flow the way a rendered page would.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true, atom.Hr: true,
	atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Table: true, atom.Td: true,
	atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// writeText appends the text under n, separating block-level elements.
func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}

// denied reports whether the element's id or any of its classes matches.
func (e *DenylistExtractor) denied(s *goquery.Selection) bool {
	var names []string
	if id, ok := s.Attr("id"); ok {
		names = append(names, id)
	}
	if class, ok := s.Attr("class"); ok {
		names = append(names, strings.Fields(class)...)
	}

	for _, name := range names {
		name = strings.ToLower(name)
		for _, g := range e.patterns {
			if g.Match(name) {
				return true
			}
		}
	}
	return false
}

// parseBody parses markup in a <body> context so fragments such as a
// leading <script> stay in place instead of moving into <head>.
func parseBody(bodyHTML string) (*goquery.Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(bodyHTML), body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return goquery.NewDocumentFromNode(root), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
