package score

import (
	"strings"

	"github.com/sentencizer/sentencizer"

	"github.com/moodlens/moodlens/pkg/lexicon"
)

// segmenterEn is a package-level English sentence segmenter (thread-safe).
var segmenterEn = sentencizer.NewSegmenter("en")

// SentenceResult pairs one sentence with its score.
type SentenceResult struct {
	Text string `json:"text"`
	Result
}

// ScoreSentences segments a text into sentences and scores each one
// independently, so a negation or contrast marker in one sentence cannot
// leak into the next. The aggregate is the whole text scored in one pass,
// which is NOT the sum of the per-sentence results: modifiers near sentence
// boundaries read across them in the single-pass view.
func (s *Scorer) ScoreSentences(text string, lex *lexicon.Lexicon) ([]SentenceResult, Result) {
	aggregate := s.Score(text, lex)

	raw := segmenterEn.Segment(text)
	if len(raw) == 0 {
		return nil, aggregate
	}

	results := make([]SentenceResult, 0, len(raw))
	for _, sentence := range raw {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		results = append(results, SentenceResult{
			Text:   sentence,
			Result: s.Score(sentence, lex),
		})
	}
	return results, aggregate
}
