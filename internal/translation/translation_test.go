package translation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/llm"
	"github.com/efebarandurmaz/anzen/internal/store"
	"github.com/efebarandurmaz/anzen/internal/store/memory"
)

const goodJSON = "```json\n" + `{
  "en": {"name": "Falls", "description": "Falls from height", "measures": ["a", "b", "c"]},
  "bn": {"name": "পতন", "description": "উচ্চতা থেকে পতন", "measures": ["a", "b", "c"]},
  "zh": {"name": "坠落", "description": "高处坠落", "measures": ["a", "b", "c"]}
}` + "\n```"

type fakeProvider struct {
	reply string
	err   error
	calls int
}

func (f *fakeProvider) Complete(context.Context, *llm.Prompt, *llm.RequestOptions) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply}, nil
}
func (f *fakeProvider) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (f *fakeProvider) Name() string                                         { return "fake" }

func seed(t *testing.T, s store.Store, desc string) string {
	t.Helper()
	c := catalog.NewCategory("墜落・転落", catalog.Details{Description: desc, Measures: []string{"一", "二", "三"}})
	c.Embedding = []float32{0.25, 0.5}
	c.VideoURLs = map[string]string{"measure_1": "https://cdn/v.mp4"}
	id, err := s.Create(context.Background(), store.CollectionCategories, c.Document())
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestRun_TranslatesAndKeepsEmbedding(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	id := seed(t, s, "高所からの墜落")

	st, err := New(s, &fakeProvider{reply: goodJSON}, nil).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Translated != 1 {
		t.Fatalf("stats = %+v", st)
	}

	doc, _ := s.Get(ctx, store.CollectionCategories, id)
	cat, err := catalog.CategoryFromDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !cat.Multilingual {
		t.Fatal("category not multilingual after translation")
	}
	if cat.Name[catalog.LangJA] != "墜落・転落" || cat.Name[catalog.LangZH] != "坠落" {
		t.Errorf("names = %v", cat.Name)
	}
	if len(cat.Embedding) != 2 || cat.VideoURLs["measure_1"] == "" {
		t.Errorf("embedding or videos lost: %+v", cat)
	}
}

func TestRun_SkipsTranslatedAndFailed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s, catalog.FailedText)
	p := &fakeProvider{reply: goodJSON}
	tr := New(s, p, nil)
	id := seed(t, s, "説明")

	if _, err := tr.Run(ctx); err != nil {
		t.Fatal(err)
	}
	before, _ := s.Get(ctx, store.CollectionCategories, id)

	st, err := tr.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Skipped != 2 || st.Translated != 0 {
		t.Errorf("second run stats = %+v", st)
	}
	if p.calls != 1 {
		t.Errorf("model called %d times, want 1", p.calls)
	}
	after, _ := s.Get(ctx, store.CollectionCategories, id)
	if after.Data["name"].(map[string]any)["en"] != before.Data["name"].(map[string]any)["en"] {
		t.Error("translated category changed on re-run")
	}
}

func TestTranslateCategory_Rejects(t *testing.T) {
	cat := catalog.NewCategory("墜落", catalog.Details{Description: "d", Measures: []string{"一", "二", "三"}})
	tests := map[string]string{
		"missing language": `{"en": {"name": "n", "description": "d", "measures": ["a","b","c"]}}`,
		"measure count":    strings.Replace(goodJSON, `["a", "b", "c"]}`, `["a"]}`, 1),
		"empty name":       strings.Replace(goodJSON, `"Falls"`, `""`, 1),
		"no json":          "sorry, I cannot",
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(nil, &fakeProvider{reply: reply}, nil).TranslateCategory(context.Background(), cat)
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRun_BadReplyLeavesDocument(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	id := seed(t, s, "説明")
	writes := s.Writes()

	st, err := New(s, &fakeProvider{reply: "no json here"}, nil).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Failed != 1 || s.Writes() != writes {
		t.Errorf("stats = %+v, writes = %d", st, s.Writes()-writes)
	}
	doc, _ := s.Get(ctx, store.CollectionCategories, id)
	if _, ok := doc.Data["name"].(string); !ok {
		t.Error("document shape changed")
	}
}

func TestTranslateQuery(t *testing.T) {
	ctx := context.Background()

	p := &fakeProvider{reply: "「足場の組立作業」"}
	got, err := New(nil, p, nil).TranslateQuery(ctx, "scaffold assembly", catalog.LangEN)
	if err != nil || got != "足場の組立作業" {
		t.Errorf("got %q, %v", got, err)
	}

	p = &fakeProvider{}
	got, _ = New(nil, p, nil).TranslateQuery(ctx, "足場", catalog.LangJA)
	if got != "足場" || p.calls != 0 {
		t.Errorf("base language should pass through, got %q calls=%d", got, p.calls)
	}

	p = &fakeProvider{err: errors.New("down")}
	got, err = New(nil, p, nil).TranslateQuery(ctx, "scaffold", catalog.LangEN)
	if err == nil || got != "scaffold" {
		t.Errorf("failure should return original text with error, got %q, %v", got, err)
	}
}
