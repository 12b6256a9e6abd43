// Package extract turns raw source material (page markup, PDF bytes,
// markdown) into a title, a flat main text, and an ordered list of titled
// sections ready for record assembly.
package extract

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Section is one titled region of a page, in document order.
type Section struct {
	Title   string
	Content string
}

// Content is the extraction result for one source.
type Content struct {
	Title    string
	MainText string
	Sections []Section
}

// Empty reports whether extraction produced nothing usable. Sources with
// empty content are skipped by the pipeline without touching the index.
func (c *Content) Empty() bool {
	return strings.TrimSpace(c.MainText) == "" && len(c.Sections) == 0
}

// HTMLExtractor pulls content out of page markup. ContainerID names the
// main-content element; SectionClass is the class substring marking
// subsection wrapper elements inside it.
type HTMLExtractor struct {
	ContainerID  string
	SectionClass string
}

// NewHTMLExtractor returns an extractor with the documented defaults.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{ContainerID: "_content", SectionClass: "h2-container"}
}

// Elements whose text never belongs in the index.
var skipTags = map[atom.Atom]bool{
	atom.Nav:    true,
	atom.Header: true,
	atom.Footer: true,
	atom.Aside:  true,
	atom.Script: true,
	atom.Style:  true,
}

var headingTags = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true,
}

// Extract parses markup and produces title, main text, and sections.
// The parser is tolerant; a parse error only occurs on reader failure, so
// malformed markup degrades to whatever text the tree still holds.
func (e *HTMLExtractor) Extract(raw string) (*Content, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}

	out := &Content{Title: pageTitle(doc)}

	container := findByID(doc, e.ContainerID)
	out.MainText = e.mainText(doc, container)
	out.Sections = e.sections(doc, container)
	return out, nil
}

func (e *HTMLExtractor) mainText(doc, container *html.Node) string {
	if container != nil {
		return strings.TrimSpace(flatten(container, "\n", true))
	}

	var parts []string
	for _, p := range findAll(doc, func(n *html.Node) bool { return n.DataAtom == atom.P }) {
		if t := strings.TrimSpace(flatten(p, " ", true)); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}
	return strings.TrimSpace(flatten(doc, "\n", true))
}

// sections segments the page. Tiers, first success wins: designated wrapper
// elements, then heading splits, then the whole container as one untitled
// section. Without a container every paragraph stands alone.
func (e *HTMLExtractor) sections(doc, container *html.Node) []Section {
	if container == nil {
		return e.paragraphSections(doc)
	}

	if secs := e.wrapperSections(container); len(secs) > 0 {
		return secs
	}
	if secs := e.headingSections(container); len(secs) > 0 {
		return secs
	}

	full := strings.TrimSpace(flatten(container, "\n", true))
	if full == "" {
		return nil
	}
	return []Section{{Title: "Untitled Section", Content: full}}
}

func (e *HTMLExtractor) wrapperSections(container *html.Node) []Section {
	wrappers := findAll(container, func(n *html.Node) bool {
		return n.DataAtom == atom.Div && strings.Contains(attr(n, "class"), e.SectionClass)
	})

	var secs []Section
	for i, w := range wrappers {
		heading := findFirst(w, func(n *html.Node) bool { return headingTags[n.DataAtom] })

		title := "Section " + strconv.Itoa(i+1)
		if heading != nil {
			if t := strings.TrimSpace(flatten(heading, " ", false)); t != "" {
				title = t
			}
		}

		content := strings.TrimSpace(flattenExcept(w, heading, "\n"))
		if content == "" {
			continue
		}
		secs = append(secs, Section{Title: title, Content: content})
	}
	return secs
}

func (e *HTMLExtractor) headingSections(container *html.Node) []Section {
	headings := findAll(container, func(n *html.Node) bool { return headingTags[n.DataAtom] })
	if len(headings) == 0 {
		return nil
	}

	var secs []Section
	for i, h := range headings {
		title := strings.TrimSpace(flatten(h, " ", false))
		if title == "" {
			title = "Section " + strconv.Itoa(i+1)
		}

		// Content is everything between this heading and the next one at
		// the same level of the tree.
		var parts []string
		for sib := h.NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.ElementNode && headingTags[sib.DataAtom] {
				break
			}
			if t := strings.TrimSpace(flatten(sib, " ", true)); t != "" {
				parts = append(parts, t)
			}
		}

		content := strings.TrimSpace(strings.Join(parts, "\n"))
		if content == "" {
			continue
		}
		secs = append(secs, Section{Title: title, Content: content})
	}
	return secs
}

func (e *HTMLExtractor) paragraphSections(doc *html.Node) []Section {
	var secs []Section
	paragraphs := findAll(doc, func(n *html.Node) bool { return n.DataAtom == atom.P })
	for _, p := range paragraphs {
		t := strings.TrimSpace(flatten(p, " ", true))
		if t == "" {
			continue
		}
		secs = append(secs, Section{Title: "Section " + strconv.Itoa(len(secs)+1), Content: t})
	}
	if len(secs) > 0 {
		return secs
	}

	full := strings.TrimSpace(flatten(doc, "\n", true))
	if full == "" {
		return nil
	}
	return []Section{{Title: "Untitled Section", Content: full}}
}

func pageTitle(doc *html.Node) string {
	title := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if title == nil {
		return ""
	}
	return strings.TrimSpace(flatten(title, " ", false))
}

// flatten joins the non-empty text nodes under n with sep. With skip set,
// navigation/script subtrees are ignored.
func flatten(n *html.Node, sep string, skip bool) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && skip && skipTags[node.DataAtom] {
			return
		}
		if node.Type == html.TextNode {
			if t := strings.TrimSpace(node.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, sep)
}

// flattenExcept flattens n while skipping one excluded subtree (the section
// heading, which becomes the title instead of part of the content).
func flattenExcept(n, excluded *html.Node, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node == excluded {
			return
		}
		if node.Type == html.ElementNode && skipTags[node.DataAtom] {
			return
		}
		if node.Type == html.TextNode {
			if t := strings.TrimSpace(node.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, sep)
}

func findByID(root *html.Node, id string) *html.Node {
	if id == "" {
		return nil
	}
	return findFirst(root, func(n *html.Node) bool { return attr(n, "id") == id })
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root.Type == html.ElementNode && match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
			// Matched subtrees are not searched for nested matches.
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
