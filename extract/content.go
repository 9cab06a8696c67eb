// Package extract converts raw article HTML into readable plain text and
// structured descriptive metadata for enrichment.
package extract

import (
	"strings"
	"unicode/utf8"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

const (
	// MaxRawHTMLChars caps the HTML handed to extraction.
	MaxRawHTMLChars = 2_000_000
	// MaxPlainTextChars caps the extracted plain text.
	MaxPlainTextChars = 500_000
	// TruncationMarker is appended whenever a cap truncates input, so
	// truncation is visible downstream rather than silent.
	TruncationMarker = " [truncated]"

	wordsPerMinute = 225
)

// Content is the result of readable-text extraction.
type Content struct {
	PlainText          string
	WordCount          int
	ReadingTimeMinutes int
	Truncated          bool
}

// ExtractContent produces readable plain text from raw article HTML. Empty
// input returns nil without error. When readability cannot locate an article
// body the full page text is used instead, so enrichment still gets content
// for embedding.
func ExtractContent(rawHTML string) *Content {
	trimmed := strings.TrimSpace(rawHTML)
	if trimmed == "" {
		return nil
	}

	trimmed, truncated := Truncate(trimmed, MaxRawHTMLChars)

	var text string

	// Payloads without markup are already plain text.
	if !strings.Contains(trimmed, "<") {
		text = normalizeWhitespace(trimmed)
	} else {
		text = readableText(trimmed)
		if text == "" {
			text = fullPageText(trimmed)
		}
	}

	if text == "" {
		return nil
	}

	var cut bool
	text, cut = Truncate(text, MaxPlainTextChars)
	truncated = truncated || cut

	words := len(strings.Fields(text))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}

	return &Content{
		PlainText:          text,
		WordCount:          words,
		ReadingTimeMinutes: minutes,
		Truncated:          truncated,
	}
}

// Truncate caps text at max bytes and appends the truncation marker. The cut
// backs up to a rune boundary so a multi-byte character is never split.
func Truncate(text string, max int) (string, bool) {
	if len(text) <= max {
		return text, false
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	return text[:cut] + TruncationMarker, true
}

// readableText runs readability over the document and returns the extracted
// article body, or "" when no usable body is found.
func readableText(html string) string {
	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err != nil {
		return ""
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return ""
	}

	return normalizeWhitespace(buf.String())
}

// fullPageText is the fallback path: strip boilerplate elements and collect
// block-level text from the whole page.
func fullPageText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return normalizeWhitespace(bluemonday.StrictPolicy().Sanitize(html))
	}

	doc.Find("head, script, style, noscript, nav, header, footer, aside, iframe").Remove()

	var paragraphs []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		return normalizeWhitespace(doc.Text())
	}

	return strings.Join(paragraphs, "\n\n")
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
