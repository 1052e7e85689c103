package model

import "fmt"

// SearchType selects the branches of a hybrid search.
type SearchType string

const (
	SearchTypeVector SearchType = "vector"
	SearchTypeGraph  SearchType = "graph"
	SearchTypeHybrid SearchType = "hybrid"
)

func ParseSearchType(s string) (SearchType, error) {
	switch SearchType(s) {
	case SearchTypeVector, SearchTypeGraph, SearchTypeHybrid:
		return SearchType(s), nil
	case "":
		return SearchTypeHybrid, nil
	}
	return "", fmt.Errorf("invalid search type %q", s)
}

func (s SearchType) IncludesVector() bool {
	return s == SearchTypeVector || s == SearchTypeHybrid
}

func (s SearchType) IncludesGraph() bool {
	return s == SearchTypeGraph || s == SearchTypeHybrid
}

// GraphResult holds the graph search output for one query entity.
type GraphResult struct {
	Entity          string          `json:"entity"`
	Timeline        []TimelineEvent `json:"timeline"`
	RelatedEntities []RelatedEntity `json:"related_entities"`
}

// HybridResult is the fused output of a hybrid search.
type HybridResult struct {
	Articles      []RetrievedArticle `json:"articles"`
	QueryEntities []string           `json:"query_entities"`
	GraphResults  []GraphResult      `json:"graph_results"`
}
