package textproc

import "strings"

// The tokenizer feeds the lexical scorer: it reduces arbitrary text to an
// ordered sequence of lowercase word tokens, then normalises each token so
// that inflected forms collapse onto the stems used as lexicon keys.
//
// Normalisation is a deliberately crude suffix stripper, not a morphological
// analyzer. Every rule is guarded by a minimum word length so short words
// ("was", "less", "sing") are never mangled, and the stripped result is
// discarded when it would collapse below two characters.

const curlyApostrophe = '’'

// contractions maps a fixed set of common contractions to their
// no-apostrophe spelling. Both the apostrophe and bare forms of these words
// appear in real input; canonicalising them keeps lexicon keys simple.
var contractions = map[string]string{
	"i'm":    "im",
	"can't":  "cant",
	"won't":  "wont",
	"don't":  "dont",
	"didn't": "didnt",
	"isn't":  "isnt",
	"aren't": "arent",
}

// Tokenize splits text into maximal runs of ASCII letters and apostrophes.
// Text is lowercased first and curly apostrophes are mapped to straight ones,
// so "Don’t" and "don't" produce the same token. Everything else — digits,
// punctuation, unicode — separates tokens. Empty input yields a nil slice.
func Tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		if r == curlyApostrophe {
			r = '\''
		}
		if (r >= 'a' && r <= 'z') || r == '\'' {
			cur.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// NormalizeToken canonicalises a single token:
//
//  1. Lowercase, curly apostrophe → straight apostrophe.
//  2. Contraction canonicalisation (i'm → im, can't → cant, ...).
//  3. One guarded pass of suffix stripping (see stem).
//  4. If stripping collapses the token below two characters, the
//     post-contraction form is returned instead.
//
// The function is pure and total: any string, including empty, yields a
// defined output. The suffix rules run once per call, so a second pass can
// strip further on some inputs ("finest" → "fines" → "fine"); the pipeline
// normalises each token exactly once, and the emotion/modifier vocabulary
// it is used with is stable under repeated application.
func NormalizeToken(tok string) string {
	tok = strings.ToLower(strings.ReplaceAll(tok, string(curlyApostrophe), "'"))
	if canon, ok := contractions[tok]; ok {
		tok = canon
	}
	return stem(tok)
}

// NormalizeAll tokenizes text and normalises every token, dropping any that
// normalise to the empty string.
func NormalizeAll(text string) []string {
	raw := Tokenize(text)
	if len(raw) == 0 {
		return nil
	}
	words := make([]string, 0, len(raw))
	for _, t := range raw {
		if n := NormalizeToken(t); n != "" {
			words = append(words, n)
		}
	}
	return words
}

// stem applies the suffix rules in a fixed order. Each rule is evaluated
// exactly once — rules are not re-applied after an earlier strip changes the
// ending. Length guards check the pre-stripping length n, except the final
// -e rule which guards on the current length so already-short results are
// left alone.
func stem(word string) string {
	n := len(word)
	w := word

	if n >= 5 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		w = w[:len(w)-1]
	}
	if n >= 6 && strings.HasSuffix(w, "ly") {
		w = w[:len(w)-2]
	}
	if n >= 7 && strings.HasSuffix(w, "ness") {
		w = w[:len(w)-4]
	}
	if n >= 7 && strings.HasSuffix(w, "ing") {
		w = w[:len(w)-3]
	}
	if n >= 6 && strings.HasSuffix(w, "ed") {
		w = w[:len(w)-2]
	}
	if n >= 6 && strings.HasSuffix(w, "est") {
		w = w[:len(w)-3]
	} else if n >= 6 && strings.HasSuffix(w, "er") {
		w = w[:len(w)-2]
	}
	// Collapse e-final bases with their inflections (excite/excited → excit).
	if len(w) >= 6 && strings.HasSuffix(w, "e") {
		w = w[:len(w)-1]
	}

	if len(w) < 2 {
		return word
	}
	return w
}
