package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/catalogcache"
	"github.com/efebarandurmaz/anzen/internal/incident"
	"github.com/efebarandurmaz/anzen/internal/llm"
	"github.com/efebarandurmaz/anzen/internal/parse"
)

type fakeProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeProvider) Complete(_ context.Context, p *llm.Prompt, _ *llm.RequestOptions) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p.Messages[0].Content)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply}, nil
}
func (f *fakeProvider) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (f *fakeProvider) Name() string                                         { return "fake" }

type mapEmbedder struct {
	vectors map[string][]float32
	seen    []string
	err     error
}

func (m *mapEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	m.seen = append(m.seen, text)
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

type fakeTranslator struct {
	out string
	err error
}

func (f fakeTranslator) TranslateQuery(_ context.Context, text string, _ catalog.Lang) (string, error) {
	if f.err != nil {
		return text, f.err
	}
	return f.out, nil
}

type fakeCases struct {
	cases []incident.Case
	err   error
	n     int
}

func (f *fakeCases) Recent(_ context.Context, n int) ([]incident.Case, error) {
	f.n = n
	return f.cases, f.err
}

type keepMedia struct{ key string }

func (k keepMedia) FilterMap(_ context.Context, m map[string]string) map[string]string {
	out := map[string]string{}
	if v, ok := m[k.key]; ok {
		out[k.key] = v
	}
	return out
}

func testSnapshot() *catalogcache.Snapshot {
	return catalogcache.New([]*catalog.Category{
		{
			ID:          "fall",
			Name:        catalog.Localized{catalog.LangJA: "墜落・転落", catalog.LangEN: "Falls"},
			Description: catalog.Localized{catalog.LangJA: "高所からの墜落"},
			Measures:    catalog.LocalizedList{catalog.LangJA: {"手すり"}, catalog.LangEN: {"Guard rails"}},
			Embedding:   []float32{1, 0, 0},
			VideoURLs:   map[string]string{"measure_1": "https://cdn/ok.mp4", "description": "https://cdn/tiny.mp4"},
		},
		{
			ID:          "shock",
			Name:        catalog.Localized{catalog.LangJA: "感電"},
			Description: catalog.Localized{catalog.LangJA: "電気"},
			Measures:    catalog.LocalizedList{catalog.LangJA: {"絶縁"}},
			Embedding:   []float32{0, 1, 0},
		},
	})
}

const suggestionReply = "- 安全帯を使用する icon: person-falling\n- 足場を点検する\n\n- 作業前に声掛け icon: tools"

func TestSearch_MatchesAndSuggests(t *testing.T) {
	p := &fakeProvider{reply: suggestionReply}
	cases := &fakeCases{cases: []incident.Case{{Title: "脚立転落", Description: "d", Cause: "c", Measures: "m"}}}
	svc := NewService(testSnapshot(), Deps{
		Provider: p,
		Embedder: &mapEmbedder{},
		Cases:    cases,
		Media:    keepMedia{key: "measure_1"},
	}, Config{})

	resp, err := svc.Search(context.Background(), Request{Query: "足場の組立", Lang: "ja"})
	require.NoError(t, err)

	assert.Equal(t, "fall", resp.ID)
	assert.Equal(t, "墜落・転落", resp.Name)
	assert.Equal(t, []string{"手すり"}, resp.Measures)
	assert.Equal(t, map[string]string{"measure_1": "https://cdn/ok.mp4"}, resp.VideoURLs)
	assert.Equal(t, []parse.Suggestion{
		{Text: "安全帯を使用する", Icon: parse.IconPersonFalling},
		{Text: "足場を点検する", Icon: parse.DefaultIcon},
		{Text: "作業前に声掛け", Icon: parse.IconTools},
	}, resp.AdditionalSuggestions)
	assert.Equal(t, 50, cases.n)

	require.Len(t, p.prompts, 1)
	assert.Contains(t, p.prompts[0], "- タイトル: 脚立転落")
	assert.Contains(t, p.prompts[0], "安全対策を10個")
	assert.Contains(t, p.prompts[0], "名前: 墜落・転落")
}

func TestSearch_TranslatesNonBaseQuery(t *testing.T) {
	emb := &mapEmbedder{vectors: map[string][]float32{"感電作業": {0, 1, 0}}}
	svc := NewService(testSnapshot(), Deps{
		Provider:   &fakeProvider{reply: suggestionReply},
		Embedder:   emb,
		Translator: fakeTranslator{out: "感電作業"},
	}, Config{})

	resp, err := svc.Search(context.Background(), Request{Query: "electrical work", Lang: "en"})
	require.NoError(t, err)
	assert.Equal(t, "shock", resp.ID)
	assert.Equal(t, "感電", resp.Name, "missing translation falls back to base language")
	assert.Equal(t, []string{"感電作業"}, emb.seen)
}

func TestSearch_TranslationFailureUsesOriginal(t *testing.T) {
	emb := &mapEmbedder{}
	svc := NewService(testSnapshot(), Deps{
		Provider:   &fakeProvider{reply: suggestionReply},
		Embedder:   emb,
		Translator: fakeTranslator{err: errors.New("down")},
	}, Config{})

	resp, err := svc.Search(context.Background(), Request{Query: "scaffold", Lang: "en"})
	require.NoError(t, err)
	assert.Equal(t, []string{"scaffold"}, emb.seen)
	assert.Equal(t, "Falls", resp.Name)
	assert.Equal(t, []string{"Guard rails"}, resp.Measures)
}

func TestSearch_EmptyQueryMakesNoCalls(t *testing.T) {
	p := &fakeProvider{}
	emb := &mapEmbedder{}
	svc := NewService(testSnapshot(), Deps{Provider: p, Embedder: emb}, Config{})

	_, err := svc.Search(context.Background(), Request{Query: "  \n "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, p.prompts)
	assert.Empty(t, emb.seen)
}

func TestSearch_NotFound(t *testing.T) {
	deps := Deps{Provider: &fakeProvider{reply: "x"}, Embedder: &mapEmbedder{}}

	_, err := NewService(catalogcache.New(nil), deps, Config{}).Search(context.Background(), Request{Query: "q"})
	assert.ErrorIs(t, err, ErrNotFound)

	deps.Embedder = &mapEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	_, err = NewService(testSnapshot(), deps, Config{}).Search(context.Background(), Request{Query: "q"})
	assert.ErrorIs(t, err, ErrNotFound, "dimension mismatch leaves no usable candidate")
}

func TestSearch_BackendErrors(t *testing.T) {
	_, err := NewService(testSnapshot(), Deps{
		Provider: &fakeProvider{},
		Embedder: &mapEmbedder{err: errors.New("quota")},
	}, Config{}).Search(context.Background(), Request{Query: "q"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = NewService(testSnapshot(), Deps{
		Provider: &fakeProvider{err: errors.New("boom")},
		Embedder: &mapEmbedder{},
	}, Config{}).Search(context.Background(), Request{Query: "q"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "generating suggestions"))
}

func TestSearch_CaseLoadFailureUsesPlaceholder(t *testing.T) {
	p := &fakeProvider{reply: suggestionReply}
	svc := NewService(testSnapshot(), Deps{
		Provider: p,
		Embedder: &mapEmbedder{},
		Cases:    &fakeCases{err: errors.New("store down")},
	}, Config{})

	_, err := svc.Search(context.Background(), Request{Query: "q"})
	require.NoError(t, err)
	assert.Contains(t, p.prompts[0], noRecentCases)
}

func TestSearch_UnknownLangFallsBack(t *testing.T) {
	p := &fakeProvider{reply: suggestionReply}
	svc := NewService(testSnapshot(), Deps{Provider: p, Embedder: &mapEmbedder{}, Translator: fakeTranslator{out: "unused"}}, Config{})

	resp, err := svc.Search(context.Background(), Request{Query: "q", Lang: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "墜落・転落", resp.Name)
	assert.Contains(t, p.prompts[0], "（ja）")
}
