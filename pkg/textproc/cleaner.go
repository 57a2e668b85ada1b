// Input cleaning for text arriving from web surfaces (chat boxes, textareas,
// pasted rich content). Strips markup, emoji, and control characters and
// normalises whitespace before the text reaches the tokenizer.

package textproc

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var stripPolicy = bluemonday.StripTagsPolicy()

// CleanText runs the full cleaning pipeline on raw input:
//  1. Strip HTML/XML tags, joining text nodes with spaces
//  2. Drop emoji, control characters, and private-use code points
//  3. Collapse whitespace runs and trim
func CleanText(text string) string {
	if !strings.ContainsAny(text, "<>") && isPlainASCII(text) {
		return collapseWhitespace(text)
	}
	text = stripMarkup(text)
	text = dropNonPrintable(text)
	return collapseWhitespace(text)
}

// isPlainASCII reports whether s contains only printable ASCII and common
// whitespace, letting the cleaner skip the HTML and rune passes for the
// typical keystroke-by-keystroke payload.
func isPlainASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' || c == '\r' || c == '\t' {
			continue
		}
		if c < 0x20 || c > 0x7E {
			return false
		}
	}
	return true
}

// skipContent lists tags whose text content is discarded entirely.
var skipContent = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
}

// stripMarkup tokenizes HTML and joins text nodes with spaces so adjacent
// block-level elements do not produce run-together words. bluemonday's strip
// policy is kept as a second pass for anything the tokenizer lets through.
func stripMarkup(text string) string {
	tok := html.NewTokenizer(strings.NewReader(text))
	var b strings.Builder
	b.Grow(len(text))
	depth := 0 // nesting inside a skipped tag
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tok.TagName()
			if skipContent[string(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			if skipContent[string(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth > 0 {
				continue
			}
			t := string(tok.Text())
			if strings.TrimSpace(t) != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
	}
	// Second pass through bluemonday, un-escaping the entity
	// encoding Sanitize applies so plain text comes back out unchanged.
	return html.UnescapeString(stripPolicy.Sanitize(b.String()))
}

// dropNonPrintable removes control characters (Cc), surrogates, private-use
// code points, variation selectors, and the common emoji/pictograph blocks.
// Letters, digits, punctuation, and ordinary symbols pass through.
func dropNonPrintable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if keepRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func keepRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	if unicode.Is(unicode.Cc, r) {
		return false
	}
	// Variation selectors
	if r >= 0xFE00 && r <= 0xFE1F {
		return false
	}
	// Surrogates and private use
	if r >= 0xD800 && r <= 0xDFFF {
		return false
	}
	if r >= 0xE000 && r <= 0xF8FF {
		return false
	}
	if r >= 0xF0000 {
		return false
	}
	// Emoji and pictograph blocks:
	//   Misc Symbols & Pictographs / Emoticons / Transport:  1F300–1F6FF
	//   Supplemental + Extended pictographs:                 1F900–1FAFF
	//   Enclosed Alphanumeric Supplement:                    1F100–1F1FF
	//   Misc Symbols / Dingbats:                             2600–27B0
	if (r >= 0x1F300 && r <= 0x1F6FF) ||
		(r >= 0x1F900 && r <= 0x1FAFF) ||
		(r >= 0x1F100 && r <= 0x1F1FF) ||
		(r >= 0x2600 && r <= 0x27B0) {
		return false
	}
	return true
}

// collapseWhitespace replaces whitespace runs with a single space and trims.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		b.WriteRune(r)
		inSpace = false
	}
	return strings.TrimSpace(b.String())
}
