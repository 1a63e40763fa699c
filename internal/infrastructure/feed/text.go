package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var policy = bluemonday.UGCPolicy()

// PlainText strips markup from feed HTML and collapses whitespace. Text nodes are
// separated by spaces so adjacent block elements do not run words together.
func PlainText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if !strings.ContainsAny(raw, "<&") {
		return collapse(raw)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(policy.Sanitize(raw)))
	if err != nil {
		return collapse(raw)
	}

	var parts []string
	for _, node := range doc.Nodes {
		collectText(node, &parts)
	}
	return collapse(strings.Join(parts, " "))
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		*parts = append(*parts, n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
