package lyrics

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// lyricsContainerAttr marks the divs holding lyrics on a Genius song page.
const lyricsContainerAttr = "data-lyrics-container"

// extractLyrics pulls the lyrics text out of a Genius song page. Every
// lyrics container contributes its text, <br> elements become line breaks
// and containers are separated by a newline.
func extractLyrics(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing song page: %w", err)
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && attr(n, lyricsContainerAttr) == "true" {
			var b strings.Builder
			writeText(&b, n)
			if text := strings.TrimSpace(b.String()); text != "" {
				parts = append(parts, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, "\n"), nil
}

func writeText(b *strings.Builder, n *html.Node) {
	switch {
	case n.Type == html.TextNode:
		b.WriteString(n.Data)
		return
	case n.Type == html.ElementNode && n.Data == "br":
		b.WriteByte('\n')
		return
	case n.Type == html.ElementNode && attr(n, "data-exclude-from-selection") == "true":
		// page chrome embedded in the container (header, share buttons)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
