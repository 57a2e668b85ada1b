package lexicon

import (
	"sort"
	"strings"

	"github.com/moodlens/moodlens/pkg/textproc"
)

// NormalizeTable canonicalises a raw lexicon document:
//
//   - Multi-word keys (containing a space) pass through unchanged into the
//     emotion's table.
//   - Single-word keys are inserted twice: raw-lowercased and token-normalised
//     (stemmed). When two raw keys collide after normalisation the larger
//     weight wins — normalisation must never silently lose a stronger signal.
//
// Every emotion key is present in the output even when its table is empty.
// Unknown top-level keys in the raw document are ignored.
func NormalizeTable(raw RawTable) map[Emotion]map[string]float64 {
	out := make(map[Emotion]map[string]float64, len(Emotions))
	for _, e := range Emotions {
		table := make(map[string]float64, len(raw[string(e)]))
		for key, weight := range raw[string(e)] {
			key = strings.TrimSpace(key)
			if key == "" || weight < 0 {
				continue
			}
			if strings.Contains(key, " ") {
				insertMax(table, key, weight)
				continue
			}
			k1 := strings.ToLower(key)
			insertMax(table, k1, weight)
			if k2 := textproc.NormalizeToken(k1); k2 != "" && k2 != k1 {
				insertMax(table, k2, weight)
			}
		}
		out[e] = table
	}
	return out
}

// insertMax sets table[key] to weight, keeping the existing value when it is
// already larger.
func insertMax(table map[string]float64, key string, weight float64) {
	if cur, ok := table[key]; ok && cur >= weight {
		return
	}
	table[key] = weight
}

// ExtractPhrases collects every multi-word key across the emotion tables into
// phrase entries, normalising each constituent word so phrase matching is
// robust to inflection. The result is sorted by descending word count so
// longer phrases are attempted before shorter, overlapping ones; ties keep
// discovery order (emotion order, then lexicographic key order within an
// emotion, which makes extraction deterministic despite map iteration).
func ExtractPhrases(tables map[Emotion]map[string]float64) []Phrase {
	var phrases []Phrase
	for _, e := range Emotions {
		keys := make([]string, 0, len(tables[e]))
		for key := range tables[e] {
			if strings.Contains(key, " ") {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			words := textproc.NormalizeAll(key)
			if len(words) < 2 {
				continue
			}
			phrases = append(phrases, Phrase{
				Words:   words,
				Emotion: e,
				Weight:  tables[e][key],
			})
		}
	}
	sort.SliceStable(phrases, func(i, j int) bool {
		return len(phrases[i].Words) > len(phrases[j].Words)
	})
	return phrases
}
