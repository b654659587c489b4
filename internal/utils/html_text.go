package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText returns the visible text of a prompt that may contain markup
// from the rich text editor, e.g. "<p><br></p>" is blank.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// IsBlank reports whether s has no visible text.
func IsBlank(s string) bool {
	return PlainText(s) == ""
}
