package graph

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/newsgraph/model"
)

// Traverser is the part of the graph store needed for traversal.
type Traverser interface {
	SelectEntitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Entity, error)
	SelectRelationships(ctx context.Context, entityIDs []uuid.UUID) ([]*model.Relationship, error)
}

// TraversalResult contains an entity reached from the sources.
// Strength counts the distinct edges through which the entity was reached.
type TraversalResult struct {
	Entity   *model.Entity
	Distance int
	Strength int
}

// BFS performs a level-by-level breadth-first search over undirected
// relationships from the source entities, up to maxHops.
// Sources are not part of the result. An edge counts towards the strength of
// an endpoint if it is traversed from the previous or the same level,
// edges pointing back to an earlier level are ignored.
// Entities that can no longer be loaded are skipped.
func BFS(ctx context.Context, db Traverser, sourceIDs []uuid.UUID, maxHops int) ([]*TraversalResult, error) {
	depth := make(map[uuid.UUID]int, len(sourceIDs))
	for _, id := range sourceIDs {
		depth[id] = 0
	}

	strength := make(map[uuid.UUID]int)
	var order []uuid.UUID
	frontier := sourceIDs

	for level := 0; level < maxHops && len(frontier) > 0; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		relationships, err := db.SelectRelationships(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var next []uuid.UUID
		seenEdges := make(map[uuid.UUID]bool, len(relationships))
		for _, r := range relationships {
			if seenEdges[r.ID] {
				continue
			}
			seenEdges[r.ID] = true

			for _, from := range []uuid.UUID{r.SourceEntityID, r.TargetEntityID} {
				if d, ok := depth[from]; !ok || d != level {
					continue
				}

				to := r.Other(from)
				d, visited := depth[to]
				switch {
				case !visited:
					depth[to] = level + 1
					next = append(next, to)
					order = append(order, to)
				case d == 0:
					continue // source
				case d < level:
					continue // back edge
				}
				strength[to]++
			}
		}

		frontier = next
	}

	if len(order) == 0 {
		return []*TraversalResult{}, nil
	}

	entities, err := db.SelectEntitiesByIDs(ctx, order)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}

	results := make([]*TraversalResult, 0, len(order))
	for _, id := range order {
		entity, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, &TraversalResult{
			Entity:   entity,
			Distance: depth[id],
			Strength: strength[id],
		})
	}

	return results, nil
}
