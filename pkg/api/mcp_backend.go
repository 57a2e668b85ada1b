package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/moodlens/moodlens/pkg/core"
	"github.com/moodlens/moodlens/pkg/signal"
	"github.com/moodlens/moodlens/pkg/textproc"
)

// mcpBackend adapts the server to the MCP tool contract. MCP tools share the
// HTTP handlers' scorer, lexicon, and limits but skip the HTTP envelope.
type mcpBackend struct {
	server *Server
}

func newMCPBackend(s *Server) *mcpBackend {
	return &mcpBackend{server: s}
}

func (b *mcpBackend) checkText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text is required")
	}
	if max := b.server.security.Load().MaxTextBytes; max > 0 && int64(len(text)) > max {
		return "", fmt.Errorf("%w (%d bytes max)", core.ErrTextTooLarge, max)
	}
	return textproc.CleanText(text), nil
}

func (b *mcpBackend) Score(_ context.Context, text string) (map[string]any, error) {
	cleaned, err := b.checkText(text)
	if err != nil {
		return nil, err
	}

	lex := b.server.Lexicon()
	result := b.server.scorer.Load().Score(cleaned, lex)
	anger, joy, sad := signal.Percentages(result)

	return map[string]any{
		"result": result,
		"percentages": map[string]float64{
			"anger": anger,
			"joy":   joy,
			"sad":   sad,
		},
		"valence":       b.server.valence.Analyze(cleaned),
		"lexiconSource": lex.Source().String(),
	}, nil
}

func (b *mcpBackend) ScoreSentences(_ context.Context, text string) (map[string]any, error) {
	cleaned, err := b.checkText(text)
	if err != nil {
		return nil, err
	}

	lex := b.server.Lexicon()
	sentences, aggregate := b.server.scorer.Load().ScoreSentences(cleaned, lex)

	return map[string]any{
		"sentences": sentences,
		"aggregate": aggregate,
		"count":     len(sentences),
	}, nil
}

func (b *mcpBackend) LexiconStats(_ context.Context) (map[string]any, error) {
	lex := b.server.Lexicon()
	return map[string]any{
		"loaded": lex != nil,
		"stats":  lex.Stats(),
	}, nil
}
