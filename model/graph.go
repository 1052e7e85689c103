package model

import (
	"time"

	"github.com/google/uuid"
)

// Mention is the directed Article -> Entity edge.
// Confidence is kept in [0,1].
type Mention struct {
	ArticleID  int       `json:"article_id"`
	EntityID   uuid.UUID `json:"entity_id"`
	Context    string    `json:"context"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClampConfidence limits c to [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Relationship is an undirected, typed edge between two entities.
type Relationship struct {
	ID             uuid.UUID `json:"id"`
	SourceEntityID uuid.UUID `json:"source_entity_id"`
	TargetEntityID uuid.UUID `json:"target_entity_id"`
	Type           string    `json:"relationship_type"`
	CreatedAt      time.Time `json:"created_at"`
}

// Other returns the endpoint of r that is not id.
func (r *Relationship) Other(id uuid.UUID) uuid.UUID {
	if r.SourceEntityID == id {
		return r.TargetEntityID
	}
	return r.SourceEntityID
}

// ArticleNode is the graph-side representation of an article.
type ArticleNode struct {
	ArticleID   int        `json:"article_id"`
	Title       string     `json:"title"`
	PublishedAt *time.Time `json:"published_date,omitempty"`
	Source      *string    `json:"source,omitempty"`
}

// TimelineEvent is one article mentioning an entity.
type TimelineEvent struct {
	Title       string     `json:"title"`
	PublishedAt *time.Time `json:"published_date,omitempty"`
	ArticleID   int        `json:"article_id"`
	Source      *string    `json:"source,omitempty"`
}

// Activity trends of a timeline summary.
const (
	TrendNoData           = "no_data"
	TrendInsufficientData = "insufficient_data"
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
)

// TimelineSummary aggregates the dated timeline events of an entity within
// [StartDate, EndDate].
type TimelineSummary struct {
	Entity              string        `json:"entity"`
	StartDate           time.Time     `json:"start_date"`
	EndDate             time.Time     `json:"end_date"`
	TotalEvents         int           `json:"total_events"`
	TimeSpanDays        int           `json:"time_span_days"`
	AverageEventsPerDay float64       `json:"average_events_per_day"`
	MostActivePeriod    *ActivePeriod `json:"most_active_period"`
	TopSources          []SourceCount `json:"top_sources"`
	ActivityTrend       string        `json:"activity_trend"`
}

// ActivePeriod is the week with the most events. WeekStart is the Monday
// of that week as YYYY-MM-DD, Week its ISO week as YYYY-Www.
type ActivePeriod struct {
	WeekStart  string `json:"week_start"`
	Week       string `json:"week"`
	EventCount int    `json:"event_count"`
}

// SourceCount is the number of events published by one source.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// RelatedEntity is an entity reached by bounded traversal.
type RelatedEntity struct {
	Name               string     `json:"name"`
	Type               EntityType `json:"type"`
	Distance           int        `json:"distance"`
	ConnectionStrength int        `json:"connection_strength"`
}

type TypeCount struct {
	Type  EntityType `json:"type"`
	Count int        `json:"count"`
}

// GraphStatistics are whole-graph aggregate counts.
type GraphStatistics struct {
	TotalEntities          int         `json:"total_entities"`
	TotalArticles          int         `json:"total_articles"`
	TotalRelationships     int         `json:"total_relationships"`
	EntityTypeDistribution []TypeCount `json:"entity_types"`
}
