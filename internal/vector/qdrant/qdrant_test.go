package qdrant

import (
	"testing"

	"github.com/efebarandurmaz/anzen/internal/vector"
)

func TestToPoints(t *testing.T) {
	pts := toPoints([]vector.CategoryPoint{{CategoryID: "c1", Name: "墜落", Vector: []float32{0.1, 0.2}}})
	if len(pts) != 1 {
		t.Fatalf("got %d points", len(pts))
	}
	p := pts[0]
	if p.Id.GetUuid() != vector.PointID("c1") {
		t.Errorf("id = %s", p.Id.GetUuid())
	}
	if p.Payload["category_id"].GetStringValue() != "c1" || p.Payload["name"].GetStringValue() != "墜落" {
		t.Errorf("payload = %v", p.Payload)
	}
	if got := p.Vectors.GetVector().GetData(); len(got) != 2 {
		t.Errorf("vector = %v", got)
	}
}
