package score

import (
	"strings"

	"github.com/moodlens/moodlens/pkg/textproc"
)

// The modifier tables are process-wide constants, read-only after init.
// Every key is passed through the token normalizer at construction time so
// lookups against normalized input tokens hit ("really" is stored under its
// stem "real", "however" under "howev", and so on). Multi-word keys are
// normalized word by word and rejoined with single spaces.

// intensifiers scale a match up. Factors are tuning values, not measurements;
// "very" at 1.6 is the reference point the other entries are set around.
var intensifiers = normalizeFactors(map[string]float64{
	"very":       1.6,
	"really":     1.5,
	"so":         1.4,
	"extremely":  1.8,
	"absolutely": 1.7,
	"incredibly": 1.7,
	"totally":    1.5,
	"deeply":     1.5,
	"super":      1.5,
	"quite":      1.3,
}, keepStronger)

// diminishers scale a match down. Multi-word entries are only reachable
// through the forward window lookup in PostDiminisher; the scorer's two-token
// lookback compares single tokens and can only hit the one-word keys.
var diminishers = normalizeFactors(map[string]float64{
	"slightly":     0.5,
	"somewhat":     0.6,
	"mildly":       0.6,
	"barely":       0.4,
	"hardly":       0.4,
	"a bit":        0.6,
	"a little":     0.5,
	"a little bit": 0.4,
	"kind of":      0.6,
	"sort of":      0.6,
}, keepWeaker)

// negations flip a match into a small counter-signal rather than scoring it.
var negations = normalizeSet(
	"not", "no", "never", "cannot",
	"dont", "cant", "wont", "isnt", "arent", "didnt",
	"nothing", "neither", "nor",
)

// contrastMarkers pivot a text: matches after the first marker are boosted.
var contrastMarkers = normalizeSet("but", "however", "though")

func keepStronger(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}

func keepWeaker(a, b float64) float64 {
	if b < a {
		return b
	}
	return a
}

// normalizeFactors rewrites table keys into normalized token form. When two
// raw keys collapse onto the same normalized key, pick resolves the factor so
// the stronger modifier is never silently lost.
func normalizeFactors(raw map[string]float64, pick func(a, b float64) float64) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for key, factor := range raw {
		words := strings.Fields(key)
		for i, w := range words {
			words[i] = textproc.NormalizeToken(w)
		}
		norm := strings.Join(words, " ")
		if prev, ok := out[norm]; ok {
			factor = pick(prev, factor)
		}
		out[norm] = factor
	}
	return out
}

func normalizeSet(words ...string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[textproc.NormalizeToken(w)] = true
	}
	return out
}
