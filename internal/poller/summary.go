package poller

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxSummaryLength = 280

// htmlToSummary reduces feed HTML to a short markdown excerpt for post cards
func htmlToSummary(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return truncateSummary(content)
	}

	var sb strings.Builder
	for _, n := range nodes {
		writeMarkdown(n, &sb, 0)
	}
	return truncateSummary(cleanMarkdown(sb.String()))
}

func writeMarkdown(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 50 {
		return
	}

	var closing string
	switch n.Type {
	case html.TextNode:
		sb.WriteString(collapseSpace(n.Data))
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "object", "embed":
			return
		case "img":
			if alt := strings.TrimSpace(getAttr(n, "alt")); alt != "" {
				sb.WriteString(alt)
			}
			return
		case "p", "div", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "pre":
			sb.WriteString("\n\n")
			closing = "\n\n"
		case "br":
			sb.WriteString("\n")
			return
		case "li":
			sb.WriteString("\n- ")
		case "strong", "b":
			sb.WriteString("**")
			closing = "**"
		case "em", "i":
			sb.WriteString("_")
			closing = "_"
		case "code":
			sb.WriteString("`")
			closing = "`"
		case "a":
			href := strings.TrimSpace(getAttr(n, "href"))
			if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
				sb.WriteString("[")
				closing = "](" + href + ")"
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeMarkdown(c, sb, depth+1)
	}
	sb.WriteString(closing)
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// collapseSpace folds whitespace runs into single spaces without trimming the ends
func collapseSpace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) && r != ' ' {
			if !space {
				sb.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// cleanMarkdown trims each line and keeps at most one blank line between blocks
func cleanMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func truncateSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= maxSummaryLength {
		return s
	}
	cut := string(runes[:maxSummaryLength])
	if idx := strings.LastIndexAny(cut, " \n"); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}
