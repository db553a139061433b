// Package media filters category media URLs by probing them and produces
// measure videos through a long-running generator.
package media

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/anzen/internal/observability"
)

// MinSize is the default minimum Content-Length for a usable media file.
// Smaller files are placeholders or error pages.
const MinSize = 51200

// Prober checks media URLs with HEAD requests.
type Prober struct {
	client      *http.Client
	minSize     int64
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithHTTPClient replaces the default traced client. The client is used as
// is; WithTimeout does not apply to it.
func WithHTTPClient(c *http.Client) ProberOption { return func(p *Prober) { p.client = c } }

// WithMinSize overrides MinSize.
func WithMinSize(n int64) ProberOption { return func(p *Prober) { p.minSize = n } }

// WithConcurrency bounds the number of in-flight probes.
func WithConcurrency(n int) ProberOption { return func(p *Prober) { p.concurrency = n } }

// WithTimeout sets the per-probe timeout of the default client.
func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewProber creates a Prober with a 5 second per-probe timeout.
func NewProber(logger *slog.Logger, opts ...ProberOption) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Prober{
		minSize:     MinSize,
		concurrency: 8,
		timeout:     5 * time.Second,
		logger:      logger,
	}
	for _, o := range opts {
		o(p)
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: p.timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return p
}

// Usable reports whether url answers a HEAD request with a 2xx status and a
// Content-Length strictly greater than the minimum size.
func (p *Prober) Usable(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("media probe failed", "url", url, "err", err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300 && resp.ContentLength > p.minSize
}

// Filter probes every url concurrently and returns the usable ones in input
// order. It returns only after all probes finished.
func (p *Prober) Filter(ctx context.Context, urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	ctx, span := observability.StartMediaSpan(ctx, "probe", len(urls))
	defer span.End()

	ok := make([]bool, len(urls))
	var g errgroup.Group
	g.SetLimit(max(p.concurrency, 1))
	for i, u := range urls {
		g.Go(func() error {
			ok[i] = p.Usable(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for i, u := range urls {
		if ok[i] {
			out = append(out, u)
		}
	}
	observability.Metrics().RecordProbes(len(urls), len(urls)-len(out))
	return out
}

// FilterMap applies Filter to the values of m, keeping keys whose URL
// survived.
func (p *Prober) FilterMap(ctx context.Context, m map[string]string) map[string]string {
	keys := make([]string, 0, len(m))
	urls := make([]string, 0, len(m))
	for k, u := range m {
		if u == "" {
			continue
		}
		keys = append(keys, k)
		urls = append(urls, u)
	}
	keep := make(map[string]bool)
	for _, u := range p.Filter(ctx, urls) {
		keep[u] = true
	}
	out := make(map[string]string)
	for i, k := range keys {
		if keep[urls[i]] {
			out[k] = urls[i]
		}
	}
	return out
}
