package model

import "time"

// Flashcard is a short digest of one news theme or a single article.
type Flashcard struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Summary        string            `json:"summary"`
	KeyPoints      []string          `json:"key_points"`
	Entities       []FlashcardEntity `json:"entities"`
	SourceArticles []FlashcardSource `json:"source_articles"`
	CreatedAt      time.Time         `json:"created_at"`
	Category       string            `json:"category"`
}

// FlashcardEntity is an entity named on a flashcard.
type FlashcardEntity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FlashcardSource is an article a flashcard was built from.
type FlashcardSource struct {
	ID     int     `json:"id"`
	Title  string  `json:"title"`
	URL    *string `json:"url,omitempty"`
	Source *string `json:"source,omitempty"`
}

// FlashcardRequest selects the articles of a flashcard digest.
// Without topics a general news query is used. StartDate and EndDate
// bound the publication date; undated articles are dropped when either is set.
type FlashcardRequest struct {
	Topics    []string   `json:"topics"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Limit     int        `json:"limit"`
}
