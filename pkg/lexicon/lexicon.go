// Package lexicon holds the emotion→token weight tables that drive the
// lexical scorer, plus the loading pipeline that obtains them: remote fetch,
// on-disk cache, and a built-in fallback.
package lexicon

import (
	"github.com/google/uuid"
)

// Emotion names one of the fixed emotion channels.
type Emotion string

const (
	Anger Emotion = "anger"
	Joy   Emotion = "joy"
	Sad   Emotion = "sad"
)

// Emotions lists the emotion channels in canonical order. The order matters:
// phrase discovery iterates it, which keeps phrase tie-breaking deterministic.
var Emotions = []Emotion{Anger, Joy, Sad}

// RawTable is the wire shape of a lexicon document: emotion name → token or
// phrase → non-negative weight.
type RawTable map[string]map[string]float64

// Phrase is a multi-word lexicon entry treated as a single matchable unit.
// Words are token-normalised so phrase matching is robust to inflection.
type Phrase struct {
	Words   []string
	Emotion Emotion
	Weight  float64
}

// Source records where the active lexicon came from.
type Source int

const (
	SourceNone Source = iota
	SourceRemote
	SourceFile
	SourceCache
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceFile:
		return "file"
	case SourceCache:
		return "cache"
	case SourceFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Lexicon is an immutable, normalised emotion lexicon. It is built once by
// New and shared read-only across all scoring calls; there are no mutators,
// so no locking is needed.
type Lexicon struct {
	tables  map[Emotion]map[string]float64
	phrases []Phrase
	source  Source
	hash    string
}

// New normalises a raw table into a Lexicon. Every emotion key is present in
// the result even when its table is empty. The phrase list is extracted and
// sorted longest-first (see ExtractPhrases).
func New(raw RawTable, source Source) *Lexicon {
	normalized := NormalizeTable(raw)
	return &Lexicon{
		tables:  normalized,
		phrases: ExtractPhrases(normalized),
		source:  source,
	}
}

// NewWithHash is New with the originating document hash attached.
func NewWithHash(raw RawTable, source Source, hash string) *Lexicon {
	l := New(raw, source)
	l.hash = hash
	return l
}

// Weight returns the weight for a token under the given emotion.
func (l *Lexicon) Weight(e Emotion, token string) (float64, bool) {
	if l == nil {
		return 0, false
	}
	w, ok := l.tables[e][token]
	return w, ok
}

// Table returns the token→weight mapping for one emotion. The returned map
// is shared; callers must not mutate it.
func (l *Lexicon) Table(e Emotion) map[string]float64 {
	if l == nil {
		return nil
	}
	return l.tables[e]
}

// Phrases returns the multi-word entries sorted by descending word count.
// The returned slice is shared; callers must not mutate it.
func (l *Lexicon) Phrases() []Phrase {
	if l == nil {
		return nil
	}
	return l.phrases
}

// Source reports where this lexicon was loaded from.
func (l *Lexicon) Source() Source {
	if l == nil {
		return SourceNone
	}
	return l.source
}

// Hash returns the content hash of the document this lexicon was built from
// (empty for the built-in fallback).
func (l *Lexicon) Hash() string {
	if l == nil {
		return ""
	}
	return l.hash
}

// Stats summarises the lexicon contents for diagnostics endpoints.
type Stats struct {
	Source  string         `json:"source"`
	Hash    string         `json:"hash,omitempty"`
	Entries map[string]int `json:"entries"`
	Phrases int            `json:"phrases"`
}

// Stats returns entry counts per emotion plus phrase count and provenance.
func (l *Lexicon) Stats() Stats {
	st := Stats{
		Source:  l.Source().String(),
		Hash:    l.Hash(),
		Entries: make(map[string]int, len(Emotions)),
	}
	if l == nil {
		for _, e := range Emotions {
			st.Entries[string(e)] = 0
		}
		return st
	}
	for _, e := range Emotions {
		st.Entries[string(e)] = len(l.tables[e])
	}
	st.Phrases = len(l.phrases)
	return st
}

// HashDocument produces a stable content hash for a raw lexicon document,
// used to detect cache staleness and surfaced in diagnostics.
func HashDocument(body []byte) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, body).String()
}
