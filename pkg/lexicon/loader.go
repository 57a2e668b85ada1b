package lexicon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/moodlens/moodlens/pkg/core"
	"github.com/moodlens/moodlens/pkg/persistence"
)

// LoaderConfig controls where the lexicon document comes from and where the
// disk cache lives.
type LoaderConfig struct {
	// BaseURL and Filename together form the remote document URL.
	BaseURL  string
	Filename string

	// Path points at a local document file. When set it takes precedence
	// over the remote URL.
	Path string

	Timeout   time.Duration
	CachePath string
	Compress  bool
}

// Loader resolves a usable Lexicon from, in order of preference: a local
// file, the remote URL, the disk cache, and finally the built-in fallback.
// Load never returns an error; a degraded source is logged, not fatal.
type Loader struct {
	cfg    LoaderConfig
	client *http.Client
	store  *persistence.Store
}

// NewLoader builds a loader. A cache store failure (e.g. unwritable
// directory) disables caching but does not prevent loading.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	l := &Loader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.CachePath != "" {
		store, err := persistence.NewStore(cfg.CachePath, cfg.Compress)
		if err != nil {
			log.Printf("⚠ WARNING: lexicon cache disabled: %v", err)
		} else {
			l.store = store
		}
	}
	return l
}

// Load resolves the lexicon. The result is never nil.
func (l *Loader) Load(ctx context.Context) *Lexicon {
	if l.cfg.Path != "" {
		if lex, err := l.loadFile(l.cfg.Path); err == nil {
			log.Printf("Lexicon loaded from file %s (%s)", l.cfg.Path, summarize(lex))
			return lex
		} else {
			log.Printf("⚠ WARNING: lexicon file %s unusable: %v", l.cfg.Path, err)
		}
	}

	if l.cfg.BaseURL != "" {
		if lex, err := l.loadRemote(ctx); err == nil {
			log.Printf("Lexicon fetched from %s (%s)", l.remoteURL(), summarize(lex))
			return lex
		} else {
			log.Printf("⚠ WARNING: lexicon fetch failed: %v", err)
		}
	}

	if l.store != nil {
		if lex, err := l.loadCache(); err == nil {
			log.Printf("Lexicon restored from cache %s (%s)", l.store.Path(), summarize(lex))
			return lex
		} else if !errors.Is(err, core.ErrCacheMiss) {
			log.Printf("⚠ WARNING: lexicon cache unusable: %v", err)
		}
	}

	lex := New(Fallback(), SourceFallback)
	log.Printf("Lexicon using built-in fallback (%s)", summarize(lex))
	return lex
}

func (l *Loader) remoteURL() string {
	base := strings.TrimRight(l.cfg.BaseURL, "/")
	name := url.PathEscape(l.cfg.Filename)
	return base + "/" + name
}

func (l *Loader) loadFile(path string) (*Lexicon, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	hash := HashDocument(body)
	l.refreshCache(raw, hash)
	return NewWithHash(raw, SourceFile, hash), nil
}

func (l *Loader) loadRemote(ctx context.Context) (*Lexicon, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.remoteURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned %s", core.ErrLexiconUnavailable, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxDocumentBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", core.ErrMalformedLexicon, maxDocumentBytes)
	}

	raw, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	hash := HashDocument(body)
	l.refreshCache(raw, hash)
	return NewWithHash(raw, SourceRemote, hash), nil
}

func (l *Loader) loadCache() (*Lexicon, error) {
	doc, err := l.store.Load()
	if err != nil {
		return nil, err
	}
	raw := RawTable(doc.Table)
	if countEntries(raw) == 0 {
		return nil, core.ErrEmptyLexicon
	}
	return NewWithHash(raw, SourceCache, doc.Hash), nil
}

func (l *Loader) refreshCache(raw RawTable, hash string) {
	if l.store == nil {
		return
	}
	doc := persistence.Document{
		Table:     raw,
		Hash:      hash,
		FetchedAt: time.Now().Unix(),
	}
	if err := l.store.Save(doc); err != nil {
		log.Printf("⚠ WARNING: lexicon cache write failed: %v", err)
	}
}

// maxDocumentBytes caps remote lexicon documents at 8 MiB.
const maxDocumentBytes = 8 << 20

// parseDocument decodes a lexicon JSON document. The document must be an
// object of emotion→{word: weight} maps. Individual bad entries (negative,
// NaN, or non-numeric weights, unknown emotions) are skipped with a log line;
// only a structurally wrong or effectively empty document is rejected.
func parseDocument(body []byte) (RawTable, error) {
	var doc map[string]map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedLexicon, err)
	}

	known := make(map[string]bool, len(Emotions))
	for _, e := range Emotions {
		known[string(e)] = true
	}

	raw := make(RawTable, len(Emotions))
	for emotion, entries := range doc {
		key := strings.ToLower(strings.TrimSpace(emotion))
		if !known[key] {
			log.Printf("⚠ WARNING: lexicon: skipping unknown emotion %q", emotion)
			continue
		}
		table := make(map[string]float64, len(entries))
		for word, v := range entries {
			weight, ok := coerceWeight(v)
			if !ok {
				log.Printf("⚠ WARNING: lexicon: skipping %s/%q: bad weight %v", key, word, v)
				continue
			}
			table[word] = weight
		}
		raw[key] = table
	}

	if countEntries(raw) == 0 {
		return nil, core.ErrEmptyLexicon
	}
	return raw, nil
}

// coerceWeight accepts JSON numbers and numeric strings. Negative, NaN and
// infinite weights are rejected.
func coerceWeight(v any) (float64, bool) {
	var w float64
	switch t := v.(type) {
	case float64:
		w = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		w = parsed
	default:
		return 0, false
	}
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0, false
	}
	return w, true
}

func countEntries(raw RawTable) int {
	n := 0
	for _, table := range raw {
		n += len(table)
	}
	return n
}

func summarize(l *Lexicon) string {
	st := l.Stats()
	total := 0
	for _, n := range st.Entries {
		total += n
	}
	return fmt.Sprintf("%d entries, %d phrases, source=%s", total, st.Phrases, st.Source)
}
