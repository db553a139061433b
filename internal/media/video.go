package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efebarandurmaz/anzen/internal/blob"
	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/llm"
	"github.com/efebarandurmaz/anzen/internal/observability"
	"github.com/efebarandurmaz/anzen/internal/poll"
	"github.com/efebarandurmaz/anzen/internal/store"
)

// VideoMeasure1 is the videoUrls key of the first-measure video.
const VideoMeasure1 = "measure_1"

// ErrNoMeasure is returned when a category has no usable first measure.
var ErrNoMeasure = errors.New("no valid first measure")

// VideoStats counts what a video run did.
type VideoStats struct {
	Total     int
	Generated int
	Skipped   int
	Failed    int
}

// VideoJob renders a pictogram video of each category's first measure and
// records its URL on the category.
type VideoJob struct {
	store  store.Store
	gen    llm.VideoGenerator
	blobs  blob.ObjectStore
	poller *poll.Poller
	force  bool
	logger *slog.Logger
}

// NewVideoJob creates a job polling every 20 seconds for up to an hour.
func NewVideoJob(s store.Store, gen llm.VideoGenerator, blobs blob.ObjectStore, logger *slog.Logger) *VideoJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoJob{
		store:  s,
		gen:    gen,
		blobs:  blobs,
		poller: poll.Fixed(20*time.Second, 180),
		logger: logger,
	}
}

// WithPoller replaces the polling policy.
func (j *VideoJob) WithPoller(p *poll.Poller) *VideoJob {
	j.poller = p
	return j
}

// WithForce regenerates videos that already exist.
func (j *VideoJob) WithForce(force bool) *VideoJob {
	j.force = force
	return j
}

// FirstMeasure returns the first base-language measure when it is real
// content.
func FirstMeasure(c *catalog.Category) (string, bool) {
	m := c.Measures[catalog.BaseLang]
	if len(m) == 0 {
		return "", false
	}
	first := strings.TrimSpace(m[0])
	if first == "" || first == catalog.FailedText {
		return "", false
	}
	return first, true
}

// Run processes every category sequentially. Per-category failures are
// counted and logged.
func (j *VideoJob) Run(ctx context.Context) (VideoStats, error) {
	start := time.Now()
	ctx, span := observability.StartStageSpan(ctx, "videos")
	defer span.End()

	docs, err := j.store.All(ctx, store.CollectionCategories)
	if err != nil {
		observability.RecordError(span, err)
		return VideoStats{}, fmt.Errorf("listing categories: %w", err)
	}

	var st VideoStats
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Total++
		cat, err := catalog.CategoryFromDocument(d)
		if err != nil {
			st.Failed++
			continue
		}
		if _, ok := FirstMeasure(cat); !ok || (cat.VideoURLs[VideoMeasure1] != "" && !j.force) {
			st.Skipped++
			continue
		}
		if _, err := j.GenerateForCategory(ctx, cat); err != nil {
			st.Failed++
			j.logger.Warn("video generation failed", "category_id", cat.ID, "err", err)
			continue
		}
		st.Generated++
	}

	j.logger.Info("video generation finished",
		"total", st.Total, "generated", st.Generated, "skipped", st.Skipped, "failed", st.Failed)
	observability.RecordStageResult(span, st.Generated, st.Failed, st.Skipped)
	observability.Metrics().RecordStage(time.Since(start), st.Generated, st.Failed)
	return st, nil
}

// GenerateForCategory renders, stores and records the first-measure video
// of cat, returning its public URL. Existing video URLs of other kinds are
// kept.
func (j *VideoJob) GenerateForCategory(ctx context.Context, cat *catalog.Category) (string, error) {
	measure, ok := FirstMeasure(cat)
	if !ok {
		return "", ErrNoMeasure
	}
	ctx, span := observability.StartMediaSpan(ctx, "video", 1)
	defer span.End()

	url, err := j.render(ctx, cat.ID, measure, VideoMeasure1)
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}

	urls := make(map[string]any, len(cat.VideoURLs)+1)
	for k, v := range cat.VideoURLs {
		urls[k] = v
	}
	urls[VideoMeasure1] = url
	if err := j.store.Merge(ctx, store.CollectionCategories, cat.ID, map[string]any{catalog.FieldVideoURLs: urls}); err != nil {
		return "", fmt.Errorf("recording video url: %w", err)
	}
	return url, nil
}

func (j *VideoJob) render(ctx context.Context, categoryID, text, kind string) (string, error) {
	op, err := j.gen.StartVideo(ctx, videoPrompt(text))
	if err != nil {
		return "", fmt.Errorf("starting video: %w", err)
	}
	j.logger.Info("video generation started", "category_id", categoryID, "operation", op)

	var uri string
	out := j.poller.Run(ctx, func(ctx context.Context) (bool, error) {
		st, err := j.gen.CheckVideo(ctx, op)
		if err != nil {
			return false, err
		}
		uri = st.URI
		return st.Done, nil
	})
	if out.State != poll.Succeeded {
		return "", fmt.Errorf("video operation %s %s after %d checks: %w", op, out.State, out.Attempts, out.Err)
	}

	data, err := j.gen.DownloadVideo(ctx, uri)
	if err != nil {
		return "", fmt.Errorf("downloading video: %w", err)
	}
	return j.blobs.Put(ctx, fmt.Sprintf("videos/%s/%s.mp4", categoryID, kind), data, "video/mp4")
}

func videoPrompt(text string) string {
	return fmt.Sprintf(`A simple, clear pictogram animation explaining a safety instruction.

**Action to animate:**
%q

**Subject:**
A white pictogram of a worker.

**Style:**
Minimalist vector art, flat design, clean lines, no facial features, no text, no voiceover.

**Background:**
Simple light blue gradient background.

**Composition:**
Front view, eye-level shot, full body.
`, text)
}
