// Package translation adds the target languages to single-language
// categories and translates search queries into the base language.
package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/llm"
	"github.com/efebarandurmaz/anzen/internal/observability"
	"github.com/efebarandurmaz/anzen/internal/parse"
	"github.com/efebarandurmaz/anzen/internal/store"
)

// Stats counts what a run did.
type Stats struct {
	Total      int
	Translated int
	Skipped    int
	Failed     int
}

// Translator rewrites categories into the per-language document shape.
type Translator struct {
	store    store.Store
	provider llm.Provider
	logger   *slog.Logger
}

// New creates a Translator. s may be nil when only TranslateQuery is used.
func New(s store.Store, p llm.Provider, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{store: s, provider: p, logger: logger}
}

type entry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Measures    []string `json:"measures"`
}

// Run translates every category still in the single-language shape.
// Categories already translated or carrying the failed placeholder are
// skipped; a bad model answer leaves the category untouched.
func (t *Translator) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	ctx, span := observability.StartStageSpan(ctx, "translate")
	defer span.End()

	docs, err := t.store.All(ctx, store.CollectionCategories)
	if err != nil {
		observability.RecordError(span, err)
		return Stats{}, fmt.Errorf("listing categories: %w", err)
	}

	var st Stats
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Total++
		cat, err := catalog.CategoryFromDocument(d)
		if err != nil {
			st.Failed++
			t.logger.Warn("undecodable category", "category_id", d.ID, "err", err)
			continue
		}
		if cat.Multilingual || !cat.HasValidDescription() {
			st.Skipped++
			continue
		}

		translated, err := t.TranslateCategory(ctx, cat)
		if err != nil {
			st.Failed++
			t.logger.Warn("translation failed", "category_id", cat.ID, "err", err)
			continue
		}
		if err := t.store.Set(ctx, store.CollectionCategories, cat.ID, translated.Document()); err != nil {
			st.Failed++
			t.logger.Warn("translation write failed", "category_id", cat.ID, "err", err)
			continue
		}
		st.Translated++
	}

	t.logger.Info("translation finished",
		"total", st.Total, "translated", st.Translated, "skipped", st.Skipped, "failed", st.Failed)
	observability.RecordStageResult(span, st.Translated, st.Failed, st.Skipped)
	observability.Metrics().RecordStage(time.Since(start), st.Translated, st.Failed)
	return st, nil
}

// TranslateCategory returns a multilingual copy of cat. The embedding and
// video URLs are carried over unchanged.
func (t *Translator) TranslateCategory(ctx context.Context, cat *catalog.Category) (*catalog.Category, error) {
	prompt, err := categoryPrompt(cat)
	if err != nil {
		return nil, err
	}
	text, err := llm.Generate(ctx, t.provider, prompt, nil)
	if err != nil {
		return nil, err
	}
	var byLang map[string]entry
	if err := parse.JSONObject(text, &byLang); err != nil {
		return nil, err
	}

	baseMeasures := cat.Measures[catalog.BaseLang]
	out := &catalog.Category{
		ID:           cat.ID,
		Multilingual: true,
		Name:         catalog.Localized{catalog.BaseLang: cat.Name[catalog.BaseLang]},
		Description:  catalog.Localized{catalog.BaseLang: cat.Description[catalog.BaseLang]},
		Measures:     catalog.LocalizedList{catalog.BaseLang: baseMeasures},
		Embedding:    cat.Embedding,
		VideoURLs:    cat.VideoURLs,
	}
	for _, lang := range catalog.TargetLangs {
		e, ok := byLang[string(lang)]
		if !ok {
			return nil, fmt.Errorf("missing language %q", lang)
		}
		if strings.TrimSpace(e.Name) == "" || strings.TrimSpace(e.Description) == "" {
			return nil, fmt.Errorf("language %q: empty name or description", lang)
		}
		if len(e.Measures) != len(baseMeasures) {
			return nil, fmt.Errorf("language %q: %d measures, want %d", lang, len(e.Measures), len(baseMeasures))
		}
		out.Name[lang] = strings.TrimSpace(e.Name)
		out.Description[lang] = strings.TrimSpace(e.Description)
		out.Measures[lang] = e.Measures
	}
	return out, nil
}

// TranslateQuery translates text from the given language into the base
// language. Base-language text is returned as is. On failure the original
// text is returned along with the error so callers can continue with it.
func (t *Translator) TranslateQuery(ctx context.Context, text string, from catalog.Lang) (string, error) {
	if from == catalog.BaseLang || strings.TrimSpace(text) == "" {
		return text, nil
	}
	out, err := llm.Generate(ctx, t.provider, queryPrompt(text), nil)
	if err != nil {
		return text, fmt.Errorf("translating query: %w", err)
	}
	out = strings.Trim(parse.StripFences(out), "\"「」 ")
	if out == "" {
		return text, llm.ErrEmptyResponse
	}
	return out, nil
}

func categoryPrompt(cat *catalog.Category) (string, error) {
	src, err := json.MarshalIndent(map[string]any{
		"name":        cat.Name[catalog.BaseLang],
		"description": cat.Description[catalog.BaseLang],
		"measures":    cat.Measures[catalog.BaseLang],
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding category: %w", err)
	}
	return fmt.Sprintf(`あなたはプロの翻訳家です。以下の日本語のJSONオブジェクトの各値を、英語(en)、ベンガル語(bn)、簡体字中国語(zh)に正確に翻訳してください。回答は指定されたJSON形式のみで、他の言葉は一切含めないでください。

【翻訳対象のJSON】
%s

【出力形式のJSON】
{
  "en": { "name": "...", "description": "...", "measures": ["...", "...", "..."] },
  "bn": { "name": "...", "description": "...", "measures": ["...", "...", "..."] },
  "zh": { "name": "...", "description": "...", "measures": ["...", "...", "..."] }
}
`, src), nil
}

func queryPrompt(text string) string {
	return fmt.Sprintf("以下のテキストを日本語に翻訳してください。翻訳結果のテキストだけを返してください。専門用語はできるだけ正確に翻訳してください。\n\nテキスト：\n%q\n\n日本語訳:", text)
}
