// Package llmutil wires the built-in backends into an llm.ProviderFactory.
package llmutil

import (
	"github.com/efebarandurmaz/anzen/internal/llm"
	"github.com/efebarandurmaz/anzen/internal/llm/gemini"
	"github.com/efebarandurmaz/anzen/internal/llm/openai"
)

// RegisterDefaultProviders registers gemini, openai and every
// OpenAI-compatible preset into factory. Both cmd/anzen and cmd/worker call
// this so the binaries share one registration table.
func RegisterDefaultProviders(factory *llm.ProviderFactory) {
	factory.Register("gemini", func(c llm.ProviderConfig) (llm.Provider, error) {
		return gemini.New(gemini.Config{
			APIKey:     c.APIKey,
			Model:      c.Model,
			BaseURL:    c.BaseURL,
			EmbedModel: c.EmbedModel,
			EmbedDims:  c.EmbedDims,
		}), nil
	})
	factory.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel, c.EmbedDims), nil
	})
	for _, p := range []struct{ name, url string }{
		{"groq", llm.KnownProviders["groq"]},
		{"ollama", llm.KnownProviders["ollama"]},
		{"together", llm.KnownProviders["together"]},
		{"deepseek", llm.KnownProviders["deepseek"]},
		{"custom", ""},
	} {
		factory.Register(p.name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = p.url
			}
			return openai.New(c.APIKey, c.Model, base, c.EmbedModel, c.EmbedDims), nil
		})
	}
}
