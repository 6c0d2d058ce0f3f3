// Package extract turns raw job-page markup into readable text, a structural
// best-effort JobPosting and a size-bounded condensed representation for the
// prompt-based extractor.
package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Document is a simplified representation of extracted page content.
type Document struct {
	Title string
	Text  string
}

// FromHTML extracts readable text from the page body. It keeps headings,
// paragraphs and list items (rendered as "- item" lines) and skips scripts,
// navigation, footers, asides and cookie banners.
func FromHTML(input []byte) Document {
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return Document{}
	}
	title := ""
	if head := findFirst(node, "head"); head != nil {
		if t := findFirst(head, "title"); t != nil {
			title = collapseSpaces(nodeText(t, true))
		}
	}
	content := findFirst(node, "body")
	if content == nil {
		content = node
	}
	return Document{Title: title, Text: NodeText(content)}
}

// NodeText renders n the same way FromHTML renders the body.
func NodeText(n *html.Node) string {
	return normalizeWhitespace(nodeText(n, false))
}

func nodeText(n *html.Node, raw bool) string {
	var b strings.Builder
	collectText(&b, n, false, raw)
	return norm.NFC.String(b.String())
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

// collectText appends the text of n. With raw set every text node is kept,
// which is what <title> needs.
func collectText(b *strings.Builder, n *html.Node, inPre, raw bool) {
	if n.Type == html.ElementNode && !raw {
		if isBoilerplateContainer(n) {
			return
		}
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "nav", "footer", "aside", "iframe", "svg", "template":
			return
		case "pre", "code":
			inPre = true
		case "br", "hr":
			b.WriteString("\n")
		case "li":
			b.WriteString("\n- ")
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "div", "section", "tr", "dt", "dd":
			b.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.ReplaceAll(data, "\t", " ")
			data = strings.ReplaceAll(data, "\r", " ")
			data = strings.ReplaceAll(data, "\n", " ")
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, inPre, raw)
	}

	if n.Type == html.ElementNode && !raw {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n\n")
		case "li", "div", "section", "tr", "dd":
			b.WriteString("\n")
		case "pre", "code":
			b.WriteString("\n")
		}
	}
}

// isBoilerplateContainer returns true if the element looks like a cookie/consent banner.
func isBoilerplateContainer(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" && !strings.HasPrefix(key, "data-") && key != "aria-label" && key != "role" {
			continue
		}
		val := strings.ToLower(attr.Val)
		if containsAny(val, []string{"cookie", "consent", "gdpr", "didomi", "tarteaucitron"}) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := collapseSpaces(line)
		if trimmed == "" || trimmed == "-" {
			// Keep at most one consecutive blank
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, trimmed)
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// collapseSpaces trims s and folds whitespace runs, including non-breaking
// spaces, into single spaces.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
