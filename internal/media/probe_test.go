package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func sizeServer(t *testing.T, heads *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected method %s", r.Method)
		}
		if heads != nil {
			heads.Add(1)
		}
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			return
		case "/big", "/big2":
			w.Header().Set("Content-Length", strconv.Itoa(MinSize+1))
		case "/exact":
			w.Header().Set("Content-Length", strconv.Itoa(MinSize))
		case "/small":
			w.Header().Set("Content-Length", "1024")
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFilter_KeepsOnlyLargeOK(t *testing.T) {
	var heads atomic.Int32
	srv := sizeServer(t, &heads)
	p := NewProber(nil, WithHTTPClient(srv.Client()), WithConcurrency(2))

	urls := []string{srv.URL + "/big", srv.URL + "/small", srv.URL + "/exact", srv.URL + "/missing", "http://127.0.0.1:1/unreachable", srv.URL + "/big2"}
	got := p.Filter(context.Background(), urls)

	want := []string{srv.URL + "/big", srv.URL + "/big2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if heads.Load() != 5 {
		t.Errorf("HEAD requests = %d, want 5", heads.Load())
	}
}

func TestFilter_Empty(t *testing.T) {
	if got := NewProber(nil).Filter(context.Background(), nil); got != nil {
		t.Errorf("got %v", got)
	}
}

func TestFilterMap(t *testing.T) {
	srv := sizeServer(t, nil)
	p := NewProber(nil, WithHTTPClient(srv.Client()))
	got := p.FilterMap(context.Background(), map[string]string{
		"description": srv.URL + "/small",
		"measure_1":   srv.URL + "/big",
		"measure_2":   "",
	})
	if len(got) != 1 || got["measure_1"] != srv.URL+"/big" {
		t.Errorf("got %v", got)
	}
}

func TestWithMinSize(t *testing.T) {
	srv := sizeServer(t, nil)
	p := NewProber(nil, WithHTTPClient(srv.Client()), WithMinSize(100))
	if !p.Usable(context.Background(), srv.URL+"/small") {
		t.Error("1024 bytes should pass a 100 byte minimum")
	}
}

func TestWithTimeout(t *testing.T) {
	before := NewProber(nil, WithTimeout(2*time.Second), WithConcurrency(1))
	if before.client.Timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", before.client.Timeout)
	}
	if def := NewProber(nil); def.client.Timeout != 5*time.Second {
		t.Errorf("default timeout = %v, want 5s", def.client.Timeout)
	}

	own := &http.Client{Timeout: time.Minute}
	for _, opts := range [][]ProberOption{
		{WithHTTPClient(own), WithTimeout(time.Second)},
		{WithTimeout(time.Second), WithHTTPClient(own)},
	} {
		p := NewProber(nil, opts...)
		if p.client != own || own.Timeout != time.Minute {
			t.Errorf("caller client changed: timeout = %v", own.Timeout)
		}
	}
}
