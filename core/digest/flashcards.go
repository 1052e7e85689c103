// Package digest condenses retrieved news into themed flashcards.
package digest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/newsgraph/ai"
	"github.com/siherrmann/newsgraph/core/retrieval"
	"github.com/siherrmann/newsgraph/model"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultFlashcards = 10
	MaxFlashcards     = 20

	// GeneralTheme collects articles matching no other theme.
	GeneralTheme = "General News"
	// SingleCategory is the category of flashcards built from one article.
	SingleCategory = "General"

	defaultQuery     = "latest news trends technology politics climate"
	articlesPerTheme = 3
	contentPreview   = 500
	titleLength      = 60
	summaryLength    = 200
	parallelCards    = 4

	systemPrompt = "You are a news analyst creating concise, informative flashcards."
)

// Searcher is the hybrid retriever.
type Searcher interface {
	HybridSearch(ctx context.Context, query string, searchType model.SearchType, limit int, includeEntities bool) model.HybridResult
}

type theme struct {
	name    string
	pattern *regexp.Regexp
}

// themes are tried in order, the first match wins.
var themes = []theme{
	{"Technology & AI", keywords("technology", "ai", "artificial intelligence", "tech", "software", "digital")},
	{"Politics & Government", keywords("politics", "government", "election", "policy", "congress", "senate")},
	{"Climate & Environment", keywords("climate", "environment", "green", "sustainability", "carbon")},
	{"Economy & Business", keywords("economy", "business", "market", "trade", "financial", "economic")},
	{"Health & Science", keywords("health", "medical", "medicine", "research", "study", "science")},
}

func keywords(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// Generator builds flashcards from the articles the searcher finds.
// The chat model is optional: without it, or when its reply cannot be
// parsed, theme cards are assembled from the articles themselves.
type Generator struct {
	searcher Searcher
	model    ai.ChatModel
	logger   *slog.Logger
}

// NewGenerator creates a flashcard generator.
func NewGenerator(searcher Searcher, chatModel ai.ChatModel, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		searcher: searcher,
		model:    chatModel,
		logger:   logger,
	}
}

type themeGroup struct {
	theme    string
	articles []model.RetrievedArticle
}

// GenerateFlashcards returns at most request.Limit flashcards (default 10,
// capped at 20): one per theme with up to three articles each, followed by
// single article cards for the articles that did not fit their theme.
// It returns an empty list if no article matches the request.
func (g *Generator) GenerateFlashcards(ctx context.Context, request model.FlashcardRequest) []model.Flashcard {
	limit := request.Limit
	if limit <= 0 {
		limit = DefaultFlashcards
	}
	limit = min(limit, MaxFlashcards)

	articles := g.gatherArticles(ctx, request, limit*2)
	if len(articles) == 0 {
		return []model.Flashcard{}
	}

	groups, rest := groupByTheme(articles)
	if len(groups) > limit {
		groups = groups[:limit]
	}

	cards := make([]model.Flashcard, len(groups))
	var eg errgroup.Group
	eg.SetLimit(parallelCards)
	for i, group := range groups {
		eg.Go(func() error {
			cards[i] = g.themeCard(ctx, group)
			return nil
		})
	}
	_ = eg.Wait()

	for _, article := range rest {
		if len(cards) >= limit {
			break
		}
		cards = append(cards, singleCard(article))
	}

	g.logger.Debug(
		"Generated flashcards",
		slog.Int("articles", len(articles)),
		slog.Int("themes", len(groups)),
		slog.Int("flashcards", len(cards)),
	)

	return cards
}

// gatherArticles runs one vector search per topic and returns the
// deduplicated articles in topic order, filtered by publication date.
func (g *Generator) gatherArticles(ctx context.Context, request model.FlashcardRequest, limit int) []model.RetrievedArticle {
	topics := []string{}
	for _, topic := range request.Topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}
	perTopic := limit
	if len(topics) == 0 {
		topics = []string{defaultQuery}
	} else {
		perTopic = limit/len(topics) + 1
	}

	found := make([][]model.RetrievedArticle, len(topics))
	var eg errgroup.Group
	for i, topic := range topics {
		eg.Go(func() error {
			found[i] = g.searcher.HybridSearch(ctx, topic, model.SearchTypeVector, perTopic, false).Articles
			return nil
		})
	}
	_ = eg.Wait()

	seen := make(map[int]bool)
	articles := []model.RetrievedArticle{}
	for _, results := range found {
		for _, article := range results {
			if seen[article.ID] || !published(article.PublishedAt, request.StartDate, request.EndDate) {
				continue
			}
			seen[article.ID] = true
			articles = append(articles, article)
		}
	}
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles
}

func published(at *time.Time, start *time.Time, end *time.Time) bool {
	if start == nil && end == nil {
		return true
	}
	if at == nil {
		return false
	}
	return (start == nil || !at.Before(*start)) && (end == nil || !at.After(*end))
}

// groupByTheme assigns every article to its first matching theme. Themes
// keep their order and hold at most three articles, the overflow is
// returned in article order.
func groupByTheme(articles []model.RetrievedArticle) ([]themeGroup, []model.RetrievedArticle) {
	buckets := make([][]model.RetrievedArticle, len(themes)+1)
	rest := []model.RetrievedArticle{}
	for _, article := range articles {
		i := themeIndex(article.Title + " " + article.Content)
		if len(buckets[i]) >= articlesPerTheme {
			rest = append(rest, article)
			continue
		}
		buckets[i] = append(buckets[i], article)
	}

	groups := []themeGroup{}
	for i, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		name := GeneralTheme
		if i < len(themes) {
			name = themes[i].name
		}
		groups = append(groups, themeGroup{theme: name, articles: bucket})
	}
	return groups, rest
}

func themeIndex(text string) int {
	for i, t := range themes {
		if t.pattern.MatchString(text) {
			return i
		}
	}
	return len(themes)
}

type generatedCard struct {
	Title     string                  `json:"title"`
	Summary   string                  `json:"summary"`
	KeyPoints []string                `json:"key_points"`
	Entities  []model.FlashcardEntity `json:"entities"`
}

func (g *Generator) themeCard(ctx context.Context, group themeGroup) model.Flashcard {
	if g.model == nil {
		return assembledCard(group)
	}

	reply, err := g.model.GenerateChat(
		ctx,
		[]ai.ChatMessage{{Role: string(model.RoleUser), Message: themePrompt(group)}},
		ai.WithSystemPrompts(systemPrompt),
		ai.WithMaxTokens(800),
		ai.WithTemperature(0.7),
	)
	if err != nil {
		g.logger.Warn("Error generating flashcard", slog.String("theme", group.theme), slog.String("error", err.Error()))
		return assembledCard(group)
	}

	var generated generatedCard
	if err := ai.UnmarshalJSONReply(reply, &generated); err != nil {
		g.logger.Warn("Error parsing flashcard", slog.String("theme", group.theme), slog.String("error", err.Error()))
		return assembledCard(group)
	}

	card := newCard(group.theme, group.articles)
	card.Title = strings.TrimSpace(generated.Title)
	if card.Title == "" {
		card.Title = group.theme
	}
	card.Summary = strings.TrimSpace(generated.Summary)
	if card.Summary == "" {
		card.Summary = assembledCard(group).Summary
	}
	for _, point := range generated.KeyPoints {
		if point = strings.TrimSpace(point); point != "" {
			card.KeyPoints = append(card.KeyPoints, point)
		}
	}
	for _, entity := range generated.Entities {
		if strings.TrimSpace(entity.Name) == "" {
			continue
		}
		entity.Type = strings.ToUpper(strings.TrimSpace(entity.Type))
		card.Entities = append(card.Entities, entity)
	}
	return card
}

func themePrompt(group themeGroup) string {
	var articles strings.Builder
	for _, article := range group.articles {
		fmt.Fprintf(&articles, "Title: %s\nContent: %s\n\n", article.Title, preview(article.Content, contentPreview))
	}

	return fmt.Sprintf(`Create a news flashcard for the theme "%s" based on the following articles:

%s
Generate a flashcard with:
1. A compelling title (max 60 characters)
2. A brief summary (2-3 sentences)
3. 3-5 key points
4. The mentioned entities (people, organizations, locations)

Answer with JSON only:
{
    "title": "...",
    "summary": "...",
    "key_points": ["...", "...", "..."],
    "entities": [{"name": "...", "type": "PERSON|ORGANIZATION|LOCATION"}]
}`, group.theme, articles.String())
}

// assembledCard summarizes a theme without a model: the lead of its first
// article and the titles of all its articles.
func assembledCard(group themeGroup) model.Flashcard {
	card := newCard(group.theme, group.articles)
	card.Title = group.theme + " Update"
	card.Summary = retrieval.Truncate(strings.TrimSpace(group.articles[0].Content), summaryLength)
	for _, article := range group.articles {
		card.KeyPoints = append(card.KeyPoints, article.Title)
	}
	return card
}

func singleCard(article model.RetrievedArticle) model.Flashcard {
	card := newCard(SingleCategory, []model.RetrievedArticle{article})
	card.Title = retrieval.Truncate(article.Title, titleLength)
	if strings.TrimSpace(card.Title) == "" {
		card.Title = "News Update"
	}
	card.Summary = retrieval.Truncate(strings.TrimSpace(article.Content), summaryLength)
	return card
}

func newCard(category string, articles []model.RetrievedArticle) model.Flashcard {
	card := model.Flashcard{
		ID:             uuid.NewString(),
		KeyPoints:      []string{},
		Entities:       []model.FlashcardEntity{},
		SourceArticles: []model.FlashcardSource{},
		CreatedAt:      time.Now().UTC(),
		Category:       category,
	}
	for _, article := range articles {
		card.SourceArticles = append(card.SourceArticles, model.FlashcardSource{
			ID:     article.ID,
			Title:  article.Title,
			URL:    article.URL,
			Source: article.Source,
		})
	}
	return card
}

// preview cuts text to n runes without an ellipsis.
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
