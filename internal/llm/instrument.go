package llm

import (
	"context"
	"time"

	"github.com/efebarandurmaz/anzen/internal/observability"
)

// InstrumentedProvider records a span and request metrics for every call.
type InstrumentedProvider struct {
	inner   Provider
	metrics *observability.AnzenMetrics
}

// Instrument wraps p. A nil metrics set records spans only.
func Instrument(p Provider, m *observability.AnzenMetrics) *InstrumentedProvider {
	return &InstrumentedProvider{inner: p, metrics: m}
}

func (p *InstrumentedProvider) Name() string { return p.inner.Name() }

func (p *InstrumentedProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	ctx, span := observability.StartLLMSpan(ctx, p.inner.Name(), "generate")
	defer span.End()

	start := time.Now()
	resp, err := p.inner.Complete(ctx, prompt, opts)
	elapsed := time.Since(start)

	tokens := 0
	if resp != nil {
		tokens = resp.InputTokens + resp.OutputTokens
		observability.RecordLLMMetrics(span, resp.InputTokens, resp.OutputTokens, elapsed)
	}
	observability.RecordError(span, err)
	if p.metrics != nil {
		p.metrics.RecordLLMRequest(elapsed, tokens, err)
	}
	return resp, err
}

func (p *InstrumentedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := observability.StartLLMSpan(ctx, p.inner.Name(), "embed")
	defer span.End()

	start := time.Now()
	vecs, err := p.inner.Embed(ctx, texts)
	observability.RecordError(span, err)
	if p.metrics != nil {
		p.metrics.RecordLLMRequest(time.Since(start), 0, err)
	}
	return vecs, err
}
