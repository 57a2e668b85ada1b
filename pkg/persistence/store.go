package persistence

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moodlens/moodlens/pkg/core"
)

// Store reads and writes the lexicon cache file. Writes are atomic: the
// document is written to a temp file in the same directory and renamed over
// the target, so a crash mid-write never corrupts an existing cache.
type Store struct {
	path  string
	codec *Codec
}

// NewStore creates a cache store at the given file path, creating parent
// directories as needed.
func NewStore(path string, compress bool) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}
	return &Store{
		path:  path,
		codec: NewCodec(compress),
	}, nil
}

// Path returns the cache file location.
func (s *Store) Path() string {
	return s.path
}

// Save encodes and atomically persists a document.
func (s *Store) Save(doc Document) error {
	raw, err := s.codec.Encode(doc)
	if err != nil {
		return fmt.Errorf("encoding lexicon cache: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing lexicon cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing lexicon cache: %w", err)
	}
	return nil
}

// Load reads and decodes the cached document. An absent file reports
// core.ErrCacheMiss; a file that fails validation (magic, checksum, version,
// payload decode) reports core.ErrCacheCorrupt.
func (s *Store) Load() (Document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, fmt.Errorf("%w: %s", core.ErrCacheMiss, s.path)
		}
		return Document{}, err
	}
	doc, err := s.codec.Decode(raw)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", core.ErrCacheCorrupt, s.path, err)
	}
	return doc, nil
}

// Exists reports whether a cache file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
