package temporal

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/media"
	"github.com/efebarandurmaz/anzen/internal/precompute"
	"github.com/efebarandurmaz/anzen/internal/translation"
)

// ErrTypeQualityGate marks a build rejected by the name quality gates.
// Retrying cannot fix it, so the workflow stops.
const ErrTypeQualityGate = "QualityGate"

// CatalogBuilder runs a full catalog build.
type CatalogBuilder interface {
	Build(ctx context.Context) (*catalog.BuildReport, error)
}

// EmbeddingStage attaches category embeddings.
type EmbeddingStage interface {
	Run(ctx context.Context) (precompute.Stats, error)
}

// TranslationStage expands categories into every target language.
type TranslationStage interface {
	Run(ctx context.Context) (translation.Stats, error)
}

// VideoStage renders measure videos.
type VideoStage interface {
	Run(ctx context.Context) (media.VideoStats, error)
}

// BuildSummary is the serializable outcome of a catalog build.
type BuildSummary struct {
	Cases         int
	Categories    int
	Unclassified  int
	FailedDetails []string
	DurationMS    int64
}

// Activities are the pipeline stages registered with the worker. A nil
// stage fails its activity when scheduled.
type Activities struct {
	Builder    CatalogBuilder
	Embeddings EmbeddingStage
	Translator TranslationStage
	Videos     VideoStage
}

// BuildCatalog clusters cases into categories.
func (a *Activities) BuildCatalog(ctx context.Context) (BuildSummary, error) {
	if a.Builder == nil {
		return BuildSummary{}, errors.New("catalog builder not configured")
	}
	activity.GetLogger(ctx).Info("building catalog")

	rep, err := a.Builder.Build(ctx)
	if errors.Is(err, catalog.ErrQualityGate) || errors.Is(err, catalog.ErrNoCases) {
		return BuildSummary{}, sdktemporal.NewNonRetryableApplicationError(err.Error(), ErrTypeQualityGate, err)
	}
	if err != nil {
		return BuildSummary{}, fmt.Errorf("build catalog: %w", err)
	}
	return BuildSummary{
		Cases:         rep.Cases,
		Categories:    len(rep.CategoryIDs),
		Unclassified:  rep.Unclassified,
		FailedDetails: rep.FailedDetails,
		DurationMS:    rep.Duration.Milliseconds(),
	}, nil
}

// EmbedCategories precomputes missing embeddings.
func (a *Activities) EmbedCategories(ctx context.Context) (precompute.Stats, error) {
	if a.Embeddings == nil {
		return precompute.Stats{}, errors.New("embedding stage not configured")
	}
	return a.Embeddings.Run(ctx)
}

// TranslateCategories translates single-language categories.
func (a *Activities) TranslateCategories(ctx context.Context) (translation.Stats, error) {
	if a.Translator == nil {
		return translation.Stats{}, errors.New("translation stage not configured")
	}
	return a.Translator.Run(ctx)
}

// GenerateVideos renders missing measure videos.
func (a *Activities) GenerateVideos(ctx context.Context) (media.VideoStats, error) {
	if a.Videos == nil {
		return media.VideoStats{}, errors.New("video stage not configured")
	}
	return a.Videos.Run(ctx)
}
