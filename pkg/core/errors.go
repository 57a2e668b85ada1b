package core

import "errors"

var (
	ErrLexiconUnavailable = errors.New("lexicon source unavailable")
	ErrMalformedLexicon   = errors.New("lexicon document is malformed")
	ErrEmptyLexicon       = errors.New("lexicon document contains no usable entries")
	ErrTextTooLarge       = errors.New("text exceeds maximum allowed size")
	ErrCacheMiss          = errors.New("no cached lexicon available")
	ErrCacheCorrupt       = errors.New("cached lexicon failed validation")
)
