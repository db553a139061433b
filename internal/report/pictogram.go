package report

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/anzen/internal/blob"
	"github.com/efebarandurmaz/anzen/internal/llm"
)

// PictogramSource returns a public image URL illustrating text.
type PictogramSource interface {
	Pictogram(ctx context.Context, text, name string) (string, error)
}

// GeneratedPictograms renders pictograms with an image model and stores
// them under pictograms/<name>.png.
type GeneratedPictograms struct {
	gen   llm.ImageGenerator
	blobs blob.ObjectStore
}

// NewGeneratedPictograms creates a PictogramSource.
func NewGeneratedPictograms(gen llm.ImageGenerator, blobs blob.ObjectStore) *GeneratedPictograms {
	return &GeneratedPictograms{gen: gen, blobs: blobs}
}

func (g *GeneratedPictograms) Pictogram(ctx context.Context, text, name string) (string, error) {
	img, err := g.gen.GenerateImage(ctx, pictogramPrompt(text))
	if err != nil {
		return "", fmt.Errorf("pictogram %s: %w", name, err)
	}
	return g.blobs.Put(ctx, "pictograms/"+name+".png", img, "image/png")
}

func pictogramPrompt(text string) string {
	return fmt.Sprintf(`Create a single, clear, universally understandable safety pictogram.

**Scene to depict:**
Visually represent the core concept of the following safety rule: %q
Simple and clear flat illustration for a safety manual. No text and no characters in this illustration. Vector style. White background. Limited color palette based on blue, yellow, and gray. The characters are simple and gender-neutral.
`, text)
}
