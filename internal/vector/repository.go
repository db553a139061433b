// Package vector mirrors category embeddings into an external vector index.
package vector

import (
	"context"

	"github.com/google/uuid"
)

// CategoryPoint is one category embedding in the index.
type CategoryPoint struct {
	CategoryID string
	Name       string
	Vector     []float32
}

// Repository stores category vectors.
type Repository interface {
	// Upsert inserts or replaces points, keyed by PointID(CategoryID).
	Upsert(ctx context.Context, points []CategoryPoint) error
	// Close releases resources.
	Close() error
}

var pointNamespace = uuid.MustParse("6f1c3a52-7d0e-4c5b-9a8e-2b4f7c1d0e93")

// PointID maps a category id to a stable UUID so re-indexing replaces the
// existing point.
func PointID(categoryID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(categoryID)).String()
}
