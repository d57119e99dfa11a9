package chat

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// markupTags are the elements that make an answer count as HTML.
var markupTags = map[atom.Atom]bool{
	atom.P: true, atom.Br: true, atom.Div: true, atom.Span: true,
	atom.B: true, atom.I: true, atom.Strong: true, atom.Em: true,
	atom.A: true, atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.Blockquote: true, atom.Table: true, atom.Code: true, atom.Pre: true,
}

// containsHTML reports whether s has at least one known markup tag.
// A stray "<" in plain text does not count.
func containsHTML(s string) bool {
	if !strings.Contains(s, "<") {
		return false
	}
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if markupTags[atom.Lookup(name)] {
				return true
			}
		}
	}
}

// ToMarkdown converts an HTML answer to Markdown. Anything else is returned
// unchanged, as is input the converter rejects.
func ToMarkdown(s string) string {
	if !containsHTML(s) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}
