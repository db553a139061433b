// Package llm defines the generative text and embedding capability used by
// every stage of the catalog pipeline and by online search.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Provider is the interface all model backends must implement.
type Provider interface {
	// Complete sends a prompt and returns a completion.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Embed returns one embedding vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name returns the provider identifier (e.g. "gemini", "openai").
	Name() string
}

// RequestOptions tunes a single completion call. Nil fields use the
// backend's defaults.
type RequestOptions struct {
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	StopSeqs    []string
}

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("empty completion")

// Generate sends a single user message and returns the trimmed completion
// text with thinking tags removed.
func Generate(ctx context.Context, p Provider, text string, opts *RequestOptions) (string, error) {
	resp, err := p.Complete(ctx, UserPrompt(text), opts)
	if err != nil {
		return "", err
	}
	out := StripThinkingTags(resp.Content)
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, p Provider, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, errors.New("embedding backend returned no vector")
	}
	return vecs[0], nil
}
