package tools

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipElements are HTML elements whose content is excluded.
var skipElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// breakAfter are elements followed by a line break in the extracted text.
var breakAfter = map[atom.Atom]bool{
	atom.P:   true,
	atom.Br:  true,
	atom.Div: true,
}

var lineBreaks = regexp.MustCompile(`(\s*\n\s*)+`)

// ExtractText returns the readable text of the page's <body>. Paragraph
// boundaries become newlines and blank lines are collapsed.
func ExtractText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return CleanText(raw)
	}

	body := findElement(doc, atom.Body)
	if body == nil {
		return ""
	}

	var b strings.Builder
	extractText(body, &b)
	return CleanText(b.String())
}

// CleanText collapses every run of whitespace containing a newline into a
// single newline and trims the result.
func CleanText(s string) string {
	return strings.TrimSpace(lineBreaks.ReplaceAllString(s, "\n"))
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// extractText writes visible text nodes followed by a space, and a newline
// after each block child.
func extractText(n *html.Node, w *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			w.WriteString(text)
			w.WriteString(" ")
		}
		return
	case html.ElementNode:
		if skipElements[n.DataAtom] {
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, w)
		if c.Type == html.ElementNode && breakAfter[c.DataAtom] {
			w.WriteString("\n")
		}
	}
}
