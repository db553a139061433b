// Package temporal runs the offline catalog pipeline as a Temporal
// workflow: build, embed, translate, then render videos.
package temporal

import (
	"fmt"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/efebarandurmaz/anzen/internal/media"
	"github.com/efebarandurmaz/anzen/internal/precompute"
	"github.com/efebarandurmaz/anzen/internal/translation"
)

// PipelineInput selects which stages run. Embed, translate and videos are
// idempotent and retried. Build creates a fresh category set on every run,
// so it gets a single attempt; a failed build removes what it created and
// the pipeline can be restarted with the completed stages skipped.
type PipelineInput struct {
	SkipBuild     bool
	SkipEmbed     bool
	SkipTranslate bool
	SkipVideos    bool
}

// PipelineOutput collects the stats of every stage that ran.
type PipelineOutput struct {
	Build     *BuildSummary
	Embed     *precompute.Stats
	Translate *translation.Stats
	Videos    *media.VideoStats
}

var stageRetry = &sdktemporal.RetryPolicy{
	InitialInterval:        10 * time.Second,
	BackoffCoefficient:     2,
	MaximumAttempts:        3,
	NonRetryableErrorTypes: []string{ErrTypeQualityGate},
}

var buildRetry = &sdktemporal.RetryPolicy{MaximumAttempts: 1}

// PipelineWorkflow orchestrates the offline stages in order. Embedding
// runs before translation so the vector always reflects the base
// description.
func PipelineWorkflow(ctx workflow.Context, input PipelineInput) (*PipelineOutput, error) {
	var a *Activities
	logger := workflow.GetLogger(ctx)
	out := &PipelineOutput{}

	stageCtx := func(timeout time.Duration, retry *sdktemporal.RetryPolicy) workflow.Context {
		return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: timeout,
			RetryPolicy:         retry,
		})
	}

	if !input.SkipBuild {
		var summary BuildSummary
		if err := workflow.ExecuteActivity(stageCtx(2*time.Hour, buildRetry), a.BuildCatalog).Get(ctx, &summary); err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
		logger.Info("catalog built", "categories", summary.Categories, "cases", summary.Cases)
		out.Build = &summary
	}

	if !input.SkipEmbed {
		var stats precompute.Stats
		if err := workflow.ExecuteActivity(stageCtx(time.Hour, stageRetry), a.EmbedCategories).Get(ctx, &stats); err != nil {
			return out, fmt.Errorf("embed: %w", err)
		}
		out.Embed = &stats
	}

	if !input.SkipTranslate {
		var stats translation.Stats
		if err := workflow.ExecuteActivity(stageCtx(time.Hour, stageRetry), a.TranslateCategories).Get(ctx, &stats); err != nil {
			return out, fmt.Errorf("translate: %w", err)
		}
		out.Translate = &stats
	}

	if !input.SkipVideos {
		var stats media.VideoStats
		if err := workflow.ExecuteActivity(stageCtx(12*time.Hour, stageRetry), a.GenerateVideos).Get(ctx, &stats); err != nil {
			return out, fmt.Errorf("videos: %w", err)
		}
		out.Videos = &stats
	}

	return out, nil
}
