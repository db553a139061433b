package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewMetricsRegistry(t *testing.T) {
	r := NewMetricsRegistry()
	if r == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestCounter_Inc(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("test_counter", "Test counter", nil)

	c.Inc()
	c.Inc()
	c.Inc()

	if c.Value() != 3 {
		t.Fatalf("expected 3, got %f", c.Value())
	}
}

func TestCounter_Add(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("test_counter", "Test counter", nil)

	c.Add(5)
	c.Add(3.5)

	if c.Value() != 8.5 {
		t.Fatalf("expected 8.5, got %f", c.Value())
	}
}

func TestGauge_Set(t *testing.T) {
	r := NewMetricsRegistry()
	g := r.NewGauge("test_gauge", "Test gauge", nil)

	g.Set(42)
	if g.Value() != 42 {
		t.Fatalf("expected 42, got %f", g.Value())
	}

	g.Set(10)
	if g.Value() != 10 {
		t.Fatalf("expected 10, got %f", g.Value())
	}
}

func TestGauge_IncDec(t *testing.T) {
	r := NewMetricsRegistry()
	g := r.NewGauge("test_gauge", "Test gauge", nil)

	g.Inc()
	g.Inc()
	g.Dec()

	if g.Value() != 1 {
		t.Fatalf("expected 1, got %f", g.Value())
	}
}

func TestGauge_Add(t *testing.T) {
	r := NewMetricsRegistry()
	g := r.NewGauge("test_gauge", "Test gauge", nil)

	g.Add(10)
	g.Add(-3)

	if g.Value() != 7 {
		t.Fatalf("expected 7, got %f", g.Value())
	}
}

func TestHistogram_Observe(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("test_histogram", "Test histogram", nil, []float64{1, 5, 10})

	h.Observe(0.5)
	h.Observe(3)
	h.Observe(7)
	h.Observe(15)

	if h.count != 4 {
		t.Fatalf("expected count 4, got %d", h.count)
	}
	if h.sum != 25.5 {
		t.Fatalf("expected sum 25.5, got %f", h.sum)
	}
}

func TestHistogram_ObserveDuration(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("test_histogram", "Test histogram", nil, nil)

	start := time.Now().Add(-100 * time.Millisecond)
	h.ObserveDuration(start)

	if h.count != 1 {
		t.Fatalf("expected count 1, got %d", h.count)
	}
	if h.sum < 0.1 {
		t.Fatalf("expected sum >= 0.1, got %f", h.sum)
	}
}

func TestDefaultBuckets(t *testing.T) {
	buckets := DefaultBuckets()
	if len(buckets) == 0 {
		t.Fatal("expected non-empty buckets")
	}
	// Should be in ascending order
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			t.Fatal("buckets should be in ascending order")
		}
	}
}

func TestMetricsRegistry_Handler(t *testing.T) {
	r := NewMetricsRegistry()
	r.NewCounter("test_counter", "A test counter", nil).Inc()
	r.NewGauge("test_gauge", "A test gauge", nil).Set(42)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	r.Handler().ServeHTTP(w, req)

	body := w.Body.String()

	if !strings.Contains(body, "test_counter") {
		t.Fatal("expected test_counter in output")
	}
	if !strings.Contains(body, "test_gauge") {
		t.Fatal("expected test_gauge in output")
	}
	if !strings.Contains(body, "# HELP") {
		t.Fatal("expected HELP comments")
	}
	if !strings.Contains(body, "# TYPE") {
		t.Fatal("expected TYPE comments")
	}
}

func TestMetricsRegistry_Handler_ContentType(t *testing.T) {
	r := NewMetricsRegistry()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	r.Handler().ServeHTTP(w, req)

	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "text/plain") {
		t.Fatalf("expected text/plain content type, got %s", ct)
	}
}

func TestMetricsWithLabels(t *testing.T) {
	r := NewMetricsRegistry()
	labels := map[string]string{"method": "POST", "path": "/api"}
	c := r.NewCounter("http_requests", "HTTP requests", labels)
	c.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	r.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, `method="POST"`) {
		t.Fatal("expected method label in output")
	}
	if !strings.Contains(body, `path="/api"`) {
		t.Fatal("expected path label in output")
	}
}

func TestHistogramOutput(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("request_duration", "Request duration", nil, []float64{0.1, 0.5, 1.0})
	h.Observe(0.05)
	h.Observe(0.3)
	h.Observe(0.8)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	r.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "request_duration_bucket") {
		t.Fatal("expected bucket metrics")
	}
	if !strings.Contains(body, "request_duration_sum") {
		t.Fatal("expected sum metric")
	}
	if !strings.Contains(body, "request_duration_count") {
		t.Fatal("expected count metric")
	}
	if !strings.Contains(body, `le="+Inf"`) {
		t.Fatal("expected +Inf bucket")
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("latency", "Latency", nil, []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)

	var sb strings.Builder
	r.WritePrometheus(&sb)
	body := sb.String()

	for _, want := range []string{
		`latency_bucket{le="0.1"} 1`,
		`latency_bucket{le="1"} 2`,
		`latency_bucket{le="+Inf"} 3`,
		`latency_count 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}

func TestWritePrometheus_SortedOutput(t *testing.T) {
	r := NewMetricsRegistry()
	r.NewCounter("b_total", "B", nil)
	r.NewCounter("a_total", "A", nil)

	var sb strings.Builder
	r.WritePrometheus(&sb)
	body := sb.String()
	if strings.Index(body, "a_total") > strings.Index(body, "b_total") {
		t.Errorf("counters not sorted:\n%s", body)
	}
}

func TestAnzenMetrics_RecordLLMRequest(t *testing.T) {
	m := NewAnzenMetrics()

	m.RecordLLMRequest(100*time.Millisecond, 500, nil)
	m.RecordLLMRequest(200*time.Millisecond, 300, errTest)

	if m.LLMRequestsTotal.Value() != 2 {
		t.Fatalf("expected 2 requests, got %f", m.LLMRequestsTotal.Value())
	}
	if m.LLMTokensTotal.Value() != 800 {
		t.Fatalf("expected 800 tokens, got %f", m.LLMTokensTotal.Value())
	}
	if m.LLMErrorsTotal.Value() != 1 {
		t.Fatalf("expected 1 error, got %f", m.LLMErrorsTotal.Value())
	}
}

func TestAnzenMetrics_RecordSearch(t *testing.T) {
	m := NewAnzenMetrics()

	m.RecordSearch(10*time.Millisecond, false, nil)
	m.RecordSearch(10*time.Millisecond, true, errTest)
	m.RecordSearch(10*time.Millisecond, false, errTest)

	if m.SearchRequestsTotal.Value() != 3 {
		t.Errorf("requests = %f", m.SearchRequestsTotal.Value())
	}
	if m.SearchNotFoundTotal.Value() != 1 {
		t.Errorf("not found = %f", m.SearchNotFoundTotal.Value())
	}
	if m.SearchErrorsTotal.Value() != 1 {
		t.Errorf("errors = %f", m.SearchErrorsTotal.Value())
	}
}

func TestAnzenMetrics_StageAndProbes(t *testing.T) {
	m := NewAnzenMetrics()

	m.RecordStage(2*time.Second, 10, 3)
	m.RecordProbes(4, 1)
	m.SnapshotCategories.Set(48)

	if m.StageItemsTotal.Value() != 10 || m.StageFailedTotal.Value() != 3 {
		t.Errorf("stage counters = %f/%f", m.StageItemsTotal.Value(), m.StageFailedTotal.Value())
	}
	if m.MediaProbesTotal.Value() != 4 || m.MediaRejectedTotal.Value() != 1 {
		t.Errorf("probe counters = %f/%f", m.MediaProbesTotal.Value(), m.MediaRejectedTotal.Value())
	}
}

func TestAnzenMetrics_Handler(t *testing.T) {
	m := NewAnzenMetrics()
	m.LLMRequestsTotal.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), "anzen_llm_requests_total 1") {
		t.Fatalf("expected anzen metrics in output:\n%s", w.Body.String())
	}
}

func TestGlobalMetrics(t *testing.T) {
	if Metrics() != Metrics() {
		t.Fatal("expected same instance")
	}
}

func TestFormatLabels(t *testing.T) {
	if got := formatLabels(nil); got != "" {
		t.Fatalf("expected empty string, got %s", got)
	}
	got := formatLabels(map[string]string{"path": "/search", "method": "POST"})
	if got != `{method="POST",path="/search"}` {
		t.Fatalf("unexpected labels %s", got)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0"},
		{42, "42"},
		{1.5, "1.5"},
		{-0.25, "-0.25"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.input); got != tt.expected {
			t.Errorf("formatFloat(%v) = %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

var errTest = errors.New("test error")
