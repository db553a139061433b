// Package neo4j implements graph.Repository on Neo4j.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/anzen/internal/graph"
)

const exportBatch = 500

const exportCypher = `
UNWIND $rows AS row
MERGE (c:Case {id: row.case_id})
  SET c.title = row.case_title
MERGE (k:Category {id: row.category_id})
  SET k.name = row.category_name
WITH c, k
OPTIONAL MATCH (c)-[old:CLASSIFIED_AS]->(prev:Category)
WHERE prev.id <> k.id
DELETE old
MERGE (c)-[:CLASSIFIED_AS]->(k)`

// Repository implements graph.Repository using Neo4j.
type Repository struct {
	driver neo4j.DriverWithContext
}

// New connects to uri and verifies connectivity.
func New(ctx context.Context, uri, username, password string) (*Repository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Repository{driver: driver}, nil
}

func (r *Repository) ExportAssignments(ctx context.Context, assignments []graph.Assignment) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, rows := range batches(assignments, exportBatch) {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, exportCypher, map[string]any{"rows": rows})
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("export assignments: %w", err)
		}
	}
	return nil
}

func (r *Repository) CategoryCases(ctx context.Context, categoryID string) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (c:Case)-[:CLASSIFIED_AS]->(:Category {id: $id}) RETURN c.id AS id ORDER BY id",
			map[string]any{"id": categoryID})
		if err != nil {
			return nil, err
		}
		var ids []string
		for records.Next(ctx) {
			v, _ := records.Record().Get("id")
			if s, ok := v.(string); ok {
				ids = append(ids, s)
			}
		}
		return ids, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("category cases %s: %w", categoryID, err)
	}
	ids, _ := result.([]string)
	return ids, nil
}

func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// batches converts assignments into Cypher parameter rows, size at a time.
func batches(assignments []graph.Assignment, size int) [][]map[string]any {
	var out [][]map[string]any
	for start := 0; start < len(assignments); start += size {
		end := min(start+size, len(assignments))
		rows := make([]map[string]any, 0, end-start)
		for _, a := range assignments[start:end] {
			rows = append(rows, map[string]any{
				"case_id":       a.CaseID,
				"case_title":    a.CaseTitle,
				"category_id":   a.CategoryID,
				"category_name": a.CategoryName,
			})
		}
		out = append(out, rows)
	}
	return out
}

var _ graph.Repository = (*Repository)(nil)
