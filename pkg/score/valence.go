package score

import (
	"sync"

	"github.com/jonreiter/govader"
)

// Lean is the overall polarity of a text, independent of the three emotion
// channels. It is derived from VADER, not from the emotion lexicon, so it
// stays meaningful when a text scores zero lexical hits.
type Lean string

const (
	LeanPositive Lean = "positive"
	LeanNegative Lean = "negative"
	LeanNeutral  Lean = "neutral"
)

// Valence holds the VADER polarity reading for a text.
type Valence struct {
	Lean     Lean    `json:"lean"`
	Compound float64 `json:"compound"` // [-1, 1]
	Positive float64 `json:"positive"` // [0, 1]
	Negative float64 `json:"negative"` // [0, 1]
	Neutral  float64 `json:"neutral"`  // [0, 1]
}

// ValenceAnalyzer wraps govader's SentimentIntensityAnalyzer as a secondary
// polarity channel next to the lexical scorer. It is safe for concurrent use.
type ValenceAnalyzer struct {
	sia *govader.SentimentIntensityAnalyzer
	mu  sync.Mutex
}

var (
	defaultValence *ValenceAnalyzer
	valenceOnce    sync.Once
)

// DefaultValence returns the package-level singleton analyzer
// (lazy-initialized; govader builds a sizable lexicon on construction).
func DefaultValence() *ValenceAnalyzer {
	valenceOnce.Do(func() {
		defaultValence = NewValenceAnalyzer()
	})
	return defaultValence
}

// NewValenceAnalyzer creates a fresh analyzer. Prefer DefaultValence for
// shared use.
func NewValenceAnalyzer() *ValenceAnalyzer {
	return &ValenceAnalyzer{
		sia: govader.NewSentimentIntensityAnalyzer(),
	}
}

// Analyze returns the polarity reading for a text. The lean thresholds
// follow the conventional VADER bands: compound >= 0.05 positive,
// <= -0.05 negative, otherwise neutral.
func (a *ValenceAnalyzer) Analyze(text string) Valence {
	a.mu.Lock()
	scores := a.sia.PolarityScores(text)
	a.mu.Unlock()

	v := Valence{
		Compound: scores.Compound,
		Positive: scores.Positive,
		Negative: scores.Negative,
		Neutral:  scores.Neutral,
	}
	switch {
	case v.Compound >= 0.05:
		v.Lean = LeanPositive
	case v.Compound <= -0.05:
		v.Lean = LeanNegative
	default:
		v.Lean = LeanNeutral
	}
	return v
}
