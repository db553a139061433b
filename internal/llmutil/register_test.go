package llmutil

import (
	"testing"

	"github.com/efebarandurmaz/anzen/internal/llm"
)

func TestRegisterDefaultProviders(t *testing.T) {
	f := llm.NewFactory()
	RegisterDefaultProviders(f)

	want := []string{"custom", "deepseek", "gemini", "groq", "ollama", "openai", "together"}
	got := f.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}

	for _, name := range want {
		p, err := f.Create(llm.ProviderConfig{Provider: name, Model: "m"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if p == nil {
			t.Fatalf("%s: expected provider", name)
		}
	}
}
