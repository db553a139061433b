package observability

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricsRegistry holds all registered metrics.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
	histos   map[string]*Histogram
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name   string
	help   string
	labels map[string]string
	value  float64
	mu     sync.Mutex
}

// Gauge is a metric that can go up or down.
type Gauge struct {
	name   string
	help   string
	labels map[string]string
	value  float64
	mu     sync.Mutex
}

// Histogram tracks distribution of values.
type Histogram struct {
	name    string
	help    string
	labels  map[string]string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
	mu      sync.Mutex
}

// NewMetricsRegistry creates a new metrics registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counter),
		gauges:   make(map[string]*Gauge),
		histos:   make(map[string]*Histogram),
	}
}

// NewCounter creates and registers a counter.
func (r *MetricsRegistry) NewCounter(name, help string, labels map[string]string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Counter{name: name, help: help, labels: labels}
	r.counters[name] = c
	return c
}

// NewGauge creates and registers a gauge.
func (r *MetricsRegistry) NewGauge(name, help string, labels map[string]string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &Gauge{name: name, help: help, labels: labels}
	r.gauges[name] = g
	return g
}

// NewHistogram creates and registers a histogram.
func (r *MetricsRegistry) NewHistogram(name, help string, labels map[string]string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	if buckets == nil {
		buckets = DefaultBuckets()
	}

	h := &Histogram{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
	r.histos[name] = h
	return h
}

// DefaultBuckets returns default histogram buckets for latency.
func DefaultBuckets() []float64 {
	return []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
}

// Inc increments a counter by 1.
func (c *Counter) Inc() {
	c.Add(1)
}

// Add adds a value to the counter.
func (c *Counter) Add(v float64) {
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

// Value returns the counter value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set sets the gauge value.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	g.Add(1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	g.Add(-1)
}

// Add adds a value to the gauge.
func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

// Value returns the gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Observe records a value in the histogram. counts holds per-bucket hits;
// the exposition sums them into cumulative buckets.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += v
	h.count++

	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
			break
		}
	}
}

// ObserveDuration records a duration in the histogram.
func (h *Histogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler returns an HTTP handler serving the Prometheus text format.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WritePrometheus(w)
	})
}

// WritePrometheus writes every metric in Prometheus text format, sorted by
// name within each kind.
func (r *MetricsRegistry) WritePrometheus(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		c.mu.Lock()
		writeMetric(w, c.name, "counter", c.help, c.labels, c.value)
		c.mu.Unlock()
	}
	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		g.mu.Lock()
		writeMetric(w, g.name, "gauge", g.help, g.labels, g.value)
		g.mu.Unlock()
	}
	for _, name := range sortedKeys(r.histos) {
		h := r.histos[name]
		h.mu.Lock()
		writeHistogram(w, h)
		h.mu.Unlock()
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeMetric(w io.Writer, name, metricType, help string, labels map[string]string, value float64) {
	io.WriteString(w, "# HELP "+name+" "+help+"\n")
	io.WriteString(w, "# TYPE "+name+" "+metricType+"\n")
	io.WriteString(w, name+formatLabels(labels)+" "+formatFloat(value)+"\n")
}

func writeHistogram(w io.Writer, h *Histogram) {
	io.WriteString(w, "# HELP "+h.name+" "+h.help+"\n")
	io.WriteString(w, "# TYPE "+h.name+" histogram\n")

	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += h.counts[i]
		labels := copyLabels(h.labels)
		labels["le"] = formatFloat(bound)
		io.WriteString(w, h.name+"_bucket"+formatLabels(labels)+" "+formatUint(cumulative)+"\n")
	}

	labels := copyLabels(h.labels)
	labels["le"] = "+Inf"
	io.WriteString(w, h.name+"_bucket"+formatLabels(labels)+" "+formatUint(h.count)+"\n")
	io.WriteString(w, h.name+"_sum"+formatLabels(h.labels)+" "+formatFloat(h.sum)+"\n")
	io.WriteString(w, h.name+"_count"+formatLabels(h.labels)+" "+formatUint(h.count)+"\n")
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, k := range sortedKeys(labels) {
		parts = append(parts, k+"="+strconv.Quote(labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func copyLabels(labels map[string]string) map[string]string {
	result := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		result[k] = v
	}
	return result
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

// AnzenMetrics holds the metrics exported on /metrics.
type AnzenMetrics struct {
	Registry *MetricsRegistry

	LLMRequestsTotal   *Counter
	LLMRequestDuration *Histogram
	LLMTokensTotal     *Counter
	LLMErrorsTotal     *Counter

	SearchRequestsTotal *Counter
	SearchNotFoundTotal *Counter
	SearchErrorsTotal   *Counter
	SearchDuration      *Histogram

	StageItemsTotal  *Counter
	StageFailedTotal *Counter
	StageDuration    *Histogram

	SnapshotCategories *Gauge
	MediaProbesTotal   *Counter
	MediaRejectedTotal *Counter
}

// NewAnzenMetrics creates the metric set on a fresh registry.
func NewAnzenMetrics() *AnzenMetrics {
	r := NewMetricsRegistry()

	return &AnzenMetrics{
		Registry: r,

		LLMRequestsTotal:   r.NewCounter("anzen_llm_requests_total", "Total model requests", nil),
		LLMRequestDuration: r.NewHistogram("anzen_llm_request_duration_seconds", "Model request duration", nil, nil),
		LLMTokensTotal:     r.NewCounter("anzen_llm_tokens_total", "Total tokens used", nil),
		LLMErrorsTotal:     r.NewCounter("anzen_llm_errors_total", "Total model errors", nil),

		SearchRequestsTotal: r.NewCounter("anzen_search_requests_total", "Total search requests", nil),
		SearchNotFoundTotal: r.NewCounter("anzen_search_not_found_total", "Searches with no matching category", nil),
		SearchErrorsTotal:   r.NewCounter("anzen_search_errors_total", "Searches failed with an internal error", nil),
		SearchDuration:      r.NewHistogram("anzen_search_duration_seconds", "Search latency", nil, nil),

		StageItemsTotal:  r.NewCounter("anzen_stage_items_total", "Items processed by offline stages", nil),
		StageFailedTotal: r.NewCounter("anzen_stage_failed_total", "Items that failed in offline stages", nil),
		StageDuration:    r.NewHistogram("anzen_stage_duration_seconds", "Offline stage duration", nil, []float64{1, 5, 30, 60, 300, 900, 3600}),

		SnapshotCategories: r.NewGauge("anzen_snapshot_categories", "Categories in the loaded search snapshot", nil),
		MediaProbesTotal:   r.NewCounter("anzen_media_probes_total", "Media URL probes issued", nil),
		MediaRejectedTotal: r.NewCounter("anzen_media_rejected_total", "Media URLs excluded by probing", nil),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *AnzenMetrics) Handler() http.Handler {
	return m.Registry.Handler()
}

// RecordLLMRequest records one model call.
func (m *AnzenMetrics) RecordLLMRequest(duration time.Duration, tokens int, err error) {
	m.LLMRequestsTotal.Inc()
	m.LLMRequestDuration.Observe(duration.Seconds())
	m.LLMTokensTotal.Add(float64(tokens))
	if err != nil {
		m.LLMErrorsTotal.Inc()
	}
}

// RecordSearch records one search outcome.
func (m *AnzenMetrics) RecordSearch(duration time.Duration, notFound bool, err error) {
	m.SearchRequestsTotal.Inc()
	m.SearchDuration.Observe(duration.Seconds())
	switch {
	case notFound:
		m.SearchNotFoundTotal.Inc()
	case err != nil:
		m.SearchErrorsTotal.Inc()
	}
}

// RecordStage records an offline stage run.
func (m *AnzenMetrics) RecordStage(duration time.Duration, processed, failed int) {
	m.StageDuration.Observe(duration.Seconds())
	m.StageItemsTotal.Add(float64(processed))
	m.StageFailedTotal.Add(float64(failed))
}

// RecordProbes records a media filter pass.
func (m *AnzenMetrics) RecordProbes(probed, rejected int) {
	m.MediaProbesTotal.Add(float64(probed))
	m.MediaRejectedTotal.Add(float64(rejected))
}

var (
	globalMetrics *AnzenMetrics
	metricsOnce   sync.Once
)

// Metrics returns the process-wide metric set.
func Metrics() *AnzenMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewAnzenMetrics()
	})
	return globalMetrics
}
