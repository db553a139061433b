package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/efebarandurmaz/anzen/internal/llm"
)

// Embedder embeds query texts through a provider, memoizing vectors in a
// Client. Cache failures never fail a call.
type Embedder struct {
	provider llm.Provider
	client   Client
	model    string
	ttl      time.Duration
	logger   *slog.Logger
}

// NewEmbedder creates an Embedder. model scopes cache keys so a model change
// does not serve stale vectors.
func NewEmbedder(p llm.Provider, c Client, model string, ttl time.Duration, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{provider: p, client: c, model: model, ttl: ttl, logger: logger}
}

// EmbeddingKey is the cache key for text under model.
func EmbeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}

// EmbedQuery returns the embedding of text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := EmbeddingKey(e.model, text)
	if raw, err := e.client.Get(ctx, key); err == nil {
		if vec, err := decodeVector(raw); err == nil {
			return vec, nil
		}
	} else if !errors.Is(err, ErrCacheMiss) {
		e.logger.Warn("embedding cache read failed", "err", err)
	}

	vec, err := llm.EmbedOne(ctx, e.provider, text)
	if err != nil {
		return nil, err
	}
	if err := e.client.Set(ctx, key, encodeVector(vec), e.ttl); err != nil {
		e.logger.Warn("embedding cache write failed", "err", err)
	}
	return vec, nil
}

func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
