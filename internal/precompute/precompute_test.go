package precompute

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/llm"
	"github.com/efebarandurmaz/anzen/internal/store"
	"github.com/efebarandurmaz/anzen/internal/store/memory"
	"github.com/efebarandurmaz/anzen/internal/vector"
)

const testDim = 4

type fakeEmbedder struct {
	calls int
	fail  string
	dims  int
}

func (f *fakeEmbedder) Complete(context.Context, *llm.Prompt, *llm.RequestOptions) (*llm.Response, error) {
	return nil, errors.New("not used")
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail != "" && strings.Contains(texts[0], f.fail) {
		return nil, errors.New("quota exceeded")
	}
	d := f.dims
	if d == 0 {
		d = testDim
	}
	return [][]float32{make([]float32, d)}, nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

type fakeMirror struct {
	points []vector.CategoryPoint
}

func (m *fakeMirror) Upsert(_ context.Context, pts []vector.CategoryPoint) error {
	m.points = append(m.points, pts...)
	return nil
}
func (m *fakeMirror) Close() error { return nil }

func seed(t *testing.T, s store.Store, name, desc string, emb []float32) string {
	t.Helper()
	c := catalog.NewCategory(name, catalog.Details{Description: desc, Measures: []string{"a", "b", "c"}})
	c.Embedding = emb
	id, err := s.Create(context.Background(), store.CollectionCategories, c.Document())
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestRun_EmbedsOnlyWhatIsMissing(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	missing := seed(t, s, "墜落", "高所作業", nil)
	wrongDim := seed(t, s, "感電", "電気", []float32{1})
	seed(t, s, "火災", "火", []float32{1, 2, 3, 4})
	seed(t, s, "その他", catalog.FailedText, nil)
	failing := seed(t, s, "熱中症", "暑熱 失敗", nil)

	emb := &fakeEmbedder{fail: "失敗"}
	mirror := &fakeMirror{}
	st, err := New(s, emb, testDim, nil).WithMirror(mirror, false).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 5 || st.Embedded != 2 || st.Skipped != 2 || st.Failed != 1 {
		t.Errorf("stats = %+v", st)
	}
	if len(mirror.points) != 2 {
		t.Errorf("mirrored %d points, want 2", len(mirror.points))
	}

	for _, id := range []string{missing, wrongDim} {
		doc, _ := s.Get(ctx, store.CollectionCategories, id)
		cat, _ := catalog.CategoryFromDocument(doc)
		if !cat.HasValidEmbedding(testDim) {
			t.Errorf("category %s not embedded", id)
		}
	}
	doc, _ := s.Get(ctx, store.CollectionCategories, failing)
	if cat, _ := catalog.CategoryFromDocument(doc); cat.HasValidEmbedding(testDim) {
		t.Error("failed category should stay unembedded")
	}
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s, "墜落", "高所作業", nil)

	p := New(s, &fakeEmbedder{}, testDim, nil)
	if _, err := p.Run(ctx); err != nil {
		t.Fatal(err)
	}
	writes := s.Writes()
	emb := &fakeEmbedder{}
	st, err := New(s, emb, testDim, nil).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Writes() != writes || emb.calls != 0 || st.Embedded != 0 {
		t.Errorf("second run did work: writes=%d calls=%d stats=%+v", s.Writes()-writes, emb.calls, st)
	}
}

func TestRun_WrongDimensionFromBackend(t *testing.T) {
	s := memory.New()
	seed(t, s, "墜落", "高所作業", nil)
	st, err := New(s, &fakeEmbedder{dims: 3}, testDim, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Failed != 1 || st.Embedded != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRun_ReindexMirrorsExisting(t *testing.T) {
	s := memory.New()
	id := seed(t, s, "火災", "火", []float32{1, 2, 3, 4})
	mirror := &fakeMirror{}
	if _, err := New(s, &fakeEmbedder{}, testDim, nil).WithMirror(mirror, true).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(mirror.points) != 1 || mirror.points[0].CategoryID != id || mirror.points[0].Name != "火災" {
		t.Errorf("points = %+v", mirror.points)
	}
}
