package show

import (
	"strings"

	"golang.org/x/net/html"
)

// StripMarkup removes every HTML tag from s and unescapes entities,
// returning the trimmed plain text. "<p>Monica &amp; Ross</p>" becomes
// "Monica & Ross".
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF is the normal end; on malformed input keep what was read.
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Block-level boundaries would otherwise glue words together.
			if b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
				if name, _ := z.TagName(); isBlock(string(name)) {
					b.WriteByte(' ')
				}
			}
		}
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "br", "div", "li", "ul", "ol":
		return true
	}
	return false
}
