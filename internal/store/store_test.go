package store

import "testing"

func TestMatches(t *testing.T) {
	doc := map[string]any{"title": "転落", "cause": "", "count": float64(3)}

	tests := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{"no filters", nil, true},
		{"equal string", []Filter{{"title", OpEqual, "転落"}}, true},
		{"not equal empty", []Filter{{"title", OpNotEqual, ""}}, true},
		{"empty cause excluded", []Filter{{"cause", OpNotEqual, ""}}, false},
		{"missing field not equal", []Filter{{"measures", OpNotEqual, ""}}, true},
		{"missing field never greater", []Filter{{"measures", OpGreater, ""}}, false},
		{"number greater", []Filter{{"count", OpGreater, 2}}, true},
		{"number less", []Filter{{"count", OpLess, 3}}, false},
		{"kind mismatch", []Filter{{"count", OpEqual, "3"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(doc, tt.filters); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateQuery(t *testing.T) {
	if err := ValidateQuery(Query{Filters: []Filter{{"createdAt", OpGreater, ""}}, OrderBy: "createdAt"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateQuery(Query{Filters: []Filter{{"a'; drop", OpEqual, ""}}}); err == nil {
		t.Error("expected error for unsafe field name")
	}
	if err := ValidateQuery(Query{Filters: []Filter{{"原因", OpNotEqual, ""}, {"対策2", OpNotEqual, ""}}}); err != nil {
		t.Errorf("japanese field names rejected: %v", err)
	}
	if err := ValidateQuery(Query{Filters: []Filter{{"原因 OR 1", OpEqual, ""}}}); err == nil {
		t.Error("expected error for field name with spaces")
	}
	if err := ValidateQuery(Query{Filters: []Filter{{"a", "like", ""}}}); err == nil {
		t.Error("expected error for unknown operator")
	}
	if err := ValidateQuery(Query{Limit: -1}); err == nil {
		t.Error("expected error for negative limit")
	}
}

func TestNormalize(t *testing.T) {
	out, err := Normalize(map[string]any{"embedding": []float32{1, 0.5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vec, ok := out["embedding"].([]any)
	if !ok || len(vec) != 2 || vec[1] != 0.5 {
		t.Errorf("unexpected normalized value %#v", out["embedding"])
	}
}
