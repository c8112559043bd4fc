package explain

import (
	"context"
	"fmt"
	"strings"
)

type SummarizerOptions struct {
	Provider string
	APIKey   string
	Model    string
}

// NewSummarizer picks a summarizer by provider name. An empty provider with
// no API key falls back to the deterministic heuristic.
func NewSummarizer(ctx context.Context, opts SummarizerOptions) (Summarizer, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		if opts.APIKey == "" {
			provider = "heuristic"
		} else {
			provider = "gemini"
		}
	}

	switch provider {
	case "gemini":
		return NewGeminiSummarizer(ctx, opts.APIKey, opts.Model)
	case "heuristic":
		return NewHeuristicSummarizer(), nil
	default:
		return nil, fmt.Errorf("unsupported summarizer provider: %s", opts.Provider)
	}
}
