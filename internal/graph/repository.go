// Package graph exports case classifications to a graph database for
// exploration outside the search path.
package graph

import "context"

// Assignment links one case to the category it was classified into.
type Assignment struct {
	CaseID       string
	CaseTitle    string
	CategoryID   string
	CategoryName string
}

// Repository stores the (:Case)-[:CLASSIFIED_AS]->(:Category) graph.
type Repository interface {
	// ExportAssignments upserts case and category nodes and replaces each
	// case's classification edge.
	ExportAssignments(ctx context.Context, assignments []Assignment) error
	// CategoryCases returns the ids of cases classified into categoryID.
	CategoryCases(ctx context.Context, categoryID string) ([]string, error)
	// Close releases resources.
	Close(ctx context.Context) error
}
