package database

import (
	"errors"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/newsgraph/model"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("not found")

// vectorArg converts an embedding to a query argument.
// Empty embeddings are stored as NULL.
func vectorArg(embedding []float32) interface{} {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// entityTypeArg maps an optional type filter to a nullable argument.
func entityTypeArg(entityType *model.EntityType) interface{} {
	if entityType == nil {
		return nil
	}
	return string(*entityType)
}
