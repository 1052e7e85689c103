package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType is the closed set of entity kinds in the knowledge graph.
type EntityType string

const (
	EntityTypePerson       EntityType = "PERSON"
	EntityTypeOrganization EntityType = "ORGANIZATION"
	EntityTypeLocation     EntityType = "LOCATION"
	EntityTypeEvent        EntityType = "EVENT"
)

var ErrInvalidEntityType = errors.New("invalid entity type")

// EntityTypes lists all valid entity types.
var EntityTypes = []EntityType{
	EntityTypePerson,
	EntityTypeOrganization,
	EntityTypeLocation,
	EntityTypeEvent,
}

func (t EntityType) Valid() bool {
	switch t {
	case EntityTypePerson, EntityTypeOrganization, EntityTypeLocation, EntityTypeEvent:
		return true
	}
	return false
}

// ParseEntityType parses a type name case-insensitively.
// Common NER labels (PER, ORG, LOC) are accepted as aliases.
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PERSON", "PER":
		return EntityTypePerson, nil
	case "ORGANIZATION", "ORGANISATION", "ORG":
		return EntityTypeOrganization, nil
	case "LOCATION", "LOC", "GPE":
		return EntityTypeLocation, nil
	case "EVENT":
		return EntityTypeEvent, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, s)
}

// Entity is a named entity, unique per (name, type).
type Entity struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Type      EntityType `json:"entity_type"`
	Metadata  Metadata   `json:"metadata,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// EntitySearchResult is an entity name match with its mention count.
type EntitySearchResult struct {
	Name         string     `json:"name"`
	Type         EntityType `json:"type"`
	MentionCount int        `json:"mention_count"`
}
