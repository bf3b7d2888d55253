package orchestrator

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var emphasisTag = regexp.MustCompile(`(?i)</?(b|strong|i|em)\s*>`)

// NormalizeAnswer strips bold/emphasis markup from a completion and trims
// surrounding whitespace. Models emit both markdown bold and, depending on
// the provider, HTML emphasis tags.
func NormalizeAnswer(text string) string {
	text = strings.ReplaceAll(text, "**", "")

	if emphasisTag.MatchString(text) {
		text = stripHTMLEmphasis(text)
	}

	return strings.TrimSpace(text)
}

func stripHTMLEmphasis(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return emphasisTag.ReplaceAllString(text, "")
	}

	doc.Find("b, strong, i, em").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml(s.Text())
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return emphasisTag.ReplaceAllString(text, "")
	}

	return html.UnescapeString(out)
}

// SplitChunks splits text into pieces of at most max characters, breaking
// only at whitespace. A single run of non-whitespace longer than max is
// hard-split as a last resort.
func SplitChunks(text string, max int) []string {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	runes := []rune(text)
	var chunks []string

	for len(runes) > 0 {
		if len(runes) <= max {
			chunks = append(chunks, string(runes))
			break
		}

		cut := -1
		for i := max; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if cut <= 0 {
			cut = max
		}

		chunk := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		rest := runes[cut:]
		for len(rest) > 0 && unicode.IsSpace(rest[0]) {
			rest = rest[1:]
		}
		runes = rest
	}

	return chunks
}
