package score

import (
	"strings"

	"github.com/moodlens/moodlens/pkg/lexicon"
	"github.com/moodlens/moodlens/pkg/textproc"
)

// Tuning holds the heuristic constants of the scorer. They are presentation
// tuning knobs with documented defaults, not algorithmic invariants.
type Tuning struct {
	// ContrastBoost multiplies matches that occur after the first contrast
	// marker ("but", "however", "though") in a text.
	ContrastBoost float64 `json:"contrast_boost"`

	// NegationFactor multiplies a negated match. It is negative: negation
	// flips a signal into a small counter-signal instead of zeroing it.
	NegationFactor float64 `json:"negation_factor"`
}

// DefaultTuning returns the stock constants.
func DefaultTuning() Tuning {
	return Tuning{
		ContrastBoost:  1.6,
		NegationFactor: -0.8,
	}
}

// Result is one scoring outcome. Per-emotion totals are raw and unclamped
// (negation can drive them negative); clamping and percentage normalization
// belong to the signal mapper, not the scorer.
type Result struct {
	Anger float64 `json:"anger"`
	Joy   float64 `json:"joy"`
	Sad   float64 `json:"sad"`

	// Hits counts matches: a phrase is one hit regardless of word count, and
	// a word present in two emotion tables counts twice.
	Hits int `json:"hits"`

	// TotalWords is the normalized token count of the input.
	TotalWords int `json:"total_words"`
}

func (r *Result) add(e lexicon.Emotion, contribution float64) {
	switch e {
	case lexicon.Anger:
		r.Anger += contribution
	case lexicon.Joy:
		r.Joy += contribution
	case lexicon.Sad:
		r.Sad += contribution
	}
}

// Value returns the total for one emotion.
func (r Result) Value(e lexicon.Emotion) float64 {
	switch e {
	case lexicon.Anger:
		return r.Anger
	case lexicon.Joy:
		return r.Joy
	case lexicon.Sad:
		return r.Sad
	}
	return 0
}

// Scorer matches normalized tokens and phrases against a lexicon and applies
// the negation/intensifier/diminisher/contrast rules. It holds no per-call
// state; one Scorer is safe for concurrent use.
type Scorer struct {
	tuning Tuning
}

// NewScorer builds a scorer. Zero-valued tuning fields fall back to the
// defaults so a partially filled config cannot disable a rule by accident.
func NewScorer(t Tuning) *Scorer {
	def := DefaultTuning()
	if t.ContrastBoost == 0 {
		t.ContrastBoost = def.ContrastBoost
	}
	if t.NegationFactor == 0 {
		t.NegationFactor = def.NegationFactor
	}
	return &Scorer{tuning: t}
}

// Tuning returns the constants this scorer runs with.
func (s *Scorer) Tuning() Tuning {
	return s.tuning
}

// Score computes per-emotion totals for a text. It is a pure function of
// (text, lexicon, tuning): no I/O, no retained state, no error path. A nil
// lexicon (load still in flight) or empty input yields the zero result.
func (s *Scorer) Score(text string, lex *lexicon.Lexicon) Result {
	if lex == nil {
		return Result{}
	}
	words := textproc.NormalizeAll(text)
	res := Result{TotalWords: len(words)}
	if len(words) == 0 {
		return res
	}

	pivot := contrastPivot(words)
	phrases := lex.Phrases()
	consumed := make([]bool, len(words))

	for i := range words {
		if consumed[i] {
			continue
		}

		// Phrases win over single words: the list is sorted longest-first,
		// and the first entry that matches here takes all its positions.
		if p := matchPhraseAt(words, i, phrases); p != nil {
			for j := range p.Words {
				consumed[i+j] = true
			}
			res.add(p.Emotion, s.contribution(words, i, pivot, p.Weight))
			res.Hits++
			continue
		}

		for _, e := range lexicon.Emotions {
			if w, ok := lex.Weight(e, words[i]); ok {
				res.add(e, s.contribution(words, i, pivot, w))
				res.Hits++
			}
		}
	}
	return res
}

// contrastPivot returns the index of the first contrast marker, or -1.
func contrastPivot(words []string) int {
	for i, w := range words {
		if contrastMarkers[w] {
			return i
		}
	}
	return -1
}

// matchPhraseAt returns the first phrase that matches the token sequence
// starting at index i, or nil. Entry order encodes the tie-break: longer
// phrases first, earlier-registered among equal lengths.
func matchPhraseAt(words []string, i int, phrases []lexicon.Phrase) *lexicon.Phrase {
	for pi := range phrases {
		p := &phrases[pi]
		if i+len(p.Words) > len(words) {
			continue
		}
		matched := true
		for j, pw := range p.Words {
			if words[i+j] != pw {
				matched = false
				break
			}
		}
		if matched {
			return p
		}
	}
	return nil
}

// contribution applies the modifier rules to one match starting at index
// start. The two tokens immediately before the match drive negation and
// intensity; the nearer token wins when both carry a factor.
func (s *Scorer) contribution(words []string, start, pivot int, weight float64) float64 {
	var prev1, prev2 string
	if start >= 1 {
		prev1 = words[start-1]
	}
	if start >= 2 {
		prev2 = words[start-2]
	}

	intensity := 1.0
	if f, ok := intensifiers[prev1]; ok {
		intensity = f
	} else if f, ok := intensifiers[prev2]; ok {
		intensity = f
	}
	soften := 1.0
	if f, ok := diminishers[prev1]; ok {
		soften = f
	} else if f, ok := diminishers[prev2]; ok {
		soften = f
	}

	c := weight * intensity * soften
	if pivot >= 0 && start > pivot {
		c *= s.tuning.ContrastBoost
	}
	if negations[prev1] || negations[prev2] {
		c *= s.tuning.NegationFactor
	}
	return c
}

// PostDiminisher checks the tokens after position pos against the diminisher
// table, widest window first: four words down to one, the first hit wins.
// This is the only path that can reach the table's multi-word entries.
//
// The aggregation loop in Score does not call it; scoring currently softens
// matches through the two-token lookback only. The lookup is kept exported
// for callers that want the trailing-modifier reading of a match.
func PostDiminisher(words []string, pos int) float64 {
	for n := 4; n >= 1; n-- {
		end := pos + 1 + n
		if end > len(words) {
			continue
		}
		if f, ok := diminishers[strings.Join(words[pos+1:end], " ")]; ok {
			return f
		}
	}
	return 1.0
}
