package catalog

import (
	"testing"

	"github.com/efebarandurmaz/anzen/internal/store"
)

func TestCategoryFromDocument_LegacyShape(t *testing.T) {
	doc := store.Document{ID: "c1", Data: map[string]any{
		"name":        "墜落・転落",
		"description": "高所からの墜落",
		"measures":    []any{"a", "b", "c"},
		"embedding":   []any{0.5, 1.0},
		"videoUrls":   map[string]any{"measure_1": "https://x/v.mp4"},
	}}
	c, err := CategoryFromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if c.Multilingual {
		t.Error("legacy shape should not be multilingual")
	}
	if c.Name.Get(LangEN) != "墜落・転落" {
		t.Errorf("en name should fall back to base, got %q", c.Name.Get(LangEN))
	}
	if len(c.Measures[BaseLang]) != 3 || len(c.Embedding) != 2 {
		t.Errorf("unexpected %+v", c)
	}
	if c.VideoURLs["measure_1"] == "" {
		t.Error("video url lost")
	}
}

func TestCategoryFromDocument_MultilingualShape(t *testing.T) {
	doc := store.Document{ID: "c2", Data: map[string]any{
		"name":        map[string]any{"ja": "感電", "en": "Electric shock"},
		"description": map[string]any{"ja": "説明", "en": "desc"},
		"measures":    map[string]any{"ja": []any{"一"}, "en": []any{"one"}},
	}}
	c, err := CategoryFromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Multilingual || c.Name.Get(LangEN) != "Electric shock" || c.Measures.Get(LangZH)[0] != "一" {
		t.Errorf("unexpected %+v", c)
	}
}

func TestCategoryFromDocument_BadName(t *testing.T) {
	_, err := CategoryFromDocument(store.Document{ID: "x", Data: map[string]any{"name": 3.0}})
	if err == nil {
		t.Fatal("expected error for numeric name")
	}
}

func TestCategoryDocument_RoundTrip(t *testing.T) {
	c := &Category{
		Multilingual: true,
		Name:         Localized{LangJA: "火災", LangEN: "Fire"},
		Description:  Localized{LangJA: "d"},
		Measures:     LocalizedList{LangJA: {"m"}},
		Embedding:    []float32{1, 2},
	}
	data, err := store.Normalize(c.Document())
	if err != nil {
		t.Fatal(err)
	}
	back, err := CategoryFromDocument(store.Document{ID: "id", Data: data})
	if err != nil {
		t.Fatal(err)
	}
	if !back.Multilingual || back.Name[LangEN] != "Fire" || len(back.Embedding) != 2 {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func TestHasValidDescription(t *testing.T) {
	tests := []struct {
		desc string
		want bool
	}{
		{"説明", true},
		{"", false},
		{"  ", false},
		{FailedText, false},
	}
	for _, tt := range tests {
		c := &Category{Description: Localized{BaseLang: tt.desc}}
		if got := c.HasValidDescription(); got != tt.want {
			t.Errorf("HasValidDescription(%q) = %v", tt.desc, got)
		}
	}
}

func TestNormalizeLang(t *testing.T) {
	for in, want := range map[string]Lang{"EN": LangEN, "bn": LangBN, "": LangJA, "fr": LangJA, " zh ": LangZH} {
		if got := NormalizeLang(in); got != want {
			t.Errorf("NormalizeLang(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCaseFromDocument(t *testing.T) {
	c := CaseFromDocument(store.Document{ID: "k", Data: map[string]any{
		"title": "t", "原因": "c", "対策": "m", "url": "https://site/1",
	}})
	if !c.Eligible() || c.Extra["url"] != "https://site/1" {
		t.Errorf("unexpected %+v", c)
	}
	if (Case{Title: "t", Cause: " ", Measures: "m"}).Eligible() {
		t.Error("blank cause should not be eligible")
	}
}
