package similarity

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{0.3, 0.4, 0.5}, []float32{0.3, 0.4, 0.5}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 2}, []float32{-1, -2}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"length mismatch", []float32{1, 0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.IsNaN(got) {
				t.Fatal("got NaN")
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

type item struct {
	id  string
	vec []float32
}

func vecOf(i item) []float32 { return i.vec }

func TestBest_PicksClosest(t *testing.T) {
	items := []item{
		{"a", []float32{1, 0}},
		{"b", []float32{0, 1}},
	}
	m, ok := Best([]float32{0.9, 0.1}, items, vecOf)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Item.id != "a" || m.Index != 0 {
		t.Errorf("matched %s at %d, want a at 0", m.Item.id, m.Index)
	}
}

func TestBest_FirstWinsTies(t *testing.T) {
	items := []item{
		{"first", []float32{1, 1}},
		{"second", []float32{2, 2}},
	}
	m, ok := Best([]float32{1, 1}, items, vecOf)
	if !ok || m.Item.id != "first" {
		t.Errorf("got %+v, want first", m)
	}
}

func TestBest_NegativeScoresStillMatch(t *testing.T) {
	items := []item{{"only", []float32{-1, 0}}}
	m, ok := Best([]float32{1, 0}, items, vecOf)
	if !ok || m.Item.id != "only" {
		t.Fatalf("got %+v ok=%v", m, ok)
	}
	if m.Score != -1 {
		t.Errorf("score = %v", m.Score)
	}
}

func TestBest_NoUsableCandidates(t *testing.T) {
	items := []item{{"short", []float32{1}}, {"none", nil}}
	if _, ok := Best([]float32{1, 0}, items, vecOf); ok {
		t.Error("expected no match")
	}
	if _, ok := Best[item]([]float32{1, 0}, nil, vecOf); ok {
		t.Error("expected no match on empty slice")
	}
}
