// Package citation resolves the citation markers of generated answers to
// the retrieved articles and rates how well an answer is grounded.
package citation

import (
	"fmt"
	"html"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/siherrmann/newsgraph/core/retrieval"
	"github.com/siherrmann/newsgraph/model"
)

const (
	// SnippetLength is the number of runes kept of a cited article's content.
	SnippetLength = 200
	// IDPrefix prefixes every generated citation id.
	IDPrefix = "cite_"

	idAlphabet       = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength         = 8
	shortTitleLength = 30
	unknownSource    = "Unknown"
)

// markerPattern matches [Source: a] and [Sources: a, b].
var markerPattern = regexp.MustCompile(`(?i)\[sources?:\s*([^\]]+)\]`)

var bracketEscaper = strings.NewReplacer("[", "&#91;", "]", "&#93;")

// VerificationURL returns the verification link of the article with id.
func VerificationURL(articleID int) string {
	return fmt.Sprintf("/api/v1/articles/%d/verify", articleID)
}

// Processor rewrites citation markers into annotated references.
type Processor struct {
	logger *slog.Logger
	newID  func() string
}

// NewProcessor creates a new citation processor.
func NewProcessor(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Processor{
		logger: logger,
		newID: func() string {
			return IDPrefix + gonanoid.MustGenerate(idAlphabet, idLength)
		},
	}
}

// marker is a citation marker. start and end are byte offsets used for
// rewriting, span is the same range in characters.
type marker struct {
	start int
	end   int
	span  model.Span
	names string
}

// Process replaces every citation marker in text with an annotated span and
// returns the citations resolved against articles. Text outside of markers
// is kept byte for byte. Citations are ordered by marker position, names
// that resolve to no article are dropped. The annotated span never matches
// the marker pattern again, so processing is idempotent.
func (p *Processor) Process(text string, articles []model.RetrievedArticle) (string, []model.Citation) {
	var markers []marker
	runes, offset := 0, 0
	for _, loc := range markerPattern.FindAllStringSubmatchIndex(text, -1) {
		runes += utf8.RuneCountInString(text[offset:loc[0]])
		start := runes
		runes += utf8.RuneCountInString(text[loc[0]:loc[1]])
		offset = loc[1]

		markers = append(markers, marker{
			start: loc[0],
			end:   loc[1],
			span:  model.Span{Start: start, End: runes},
			names: text[loc[2]:loc[3]],
		})
	}
	if len(markers) == 0 {
		return text, []model.Citation{}
	}

	index := newArticleIndex(articles)
	groups := make([][]model.Citation, len(markers))

	// Back to front, earlier offsets stay valid while later spans are replaced.
	processed := text
	for i := len(markers) - 1; i >= 0; i-- {
		m := markers[i]

		var ids []string
		for _, name := range splitNames(m.names) {
			article, ok := index.resolve(name)
			if !ok {
				p.logger.Debug("Unresolved citation", slog.String("source_name", name))
				continue
			}
			c := p.newCitation(name, article, m.span)
			groups[i] = append(groups[i], c)
			ids = append(ids, c.ID)
		}

		processed = processed[:m.start] + annotate(text[m.start:m.end], m.names, ids) + processed[m.end:]
	}

	citations := []model.Citation{}
	for _, group := range groups {
		citations = append(citations, group...)
	}

	return processed, citations
}

func (p *Processor) newCitation(name string, article *model.RetrievedArticle, position model.Span) model.Citation {
	c := model.Citation{
		ID:              p.newID(),
		SourceName:      name,
		Title:           article.Title,
		URL:             article.URL,
		Publication:     article.SourceName(unknownSource),
		PublishedAt:     article.PublishedAt,
		SimilarityScore: article.SimilarityScore,
		Position:        position,
	}
	if c.Title == "" {
		c.Title = name
	}

	content := article.Content
	if content == "" {
		content = article.Snippet
	}
	if content != "" {
		snippet := retrieval.Truncate(content, SnippetLength)
		c.Snippet = &snippet
	}

	if article.ID > 0 {
		url := VerificationURL(article.ID)
		c.VerificationURL = &url
	}

	return c
}

// annotate renders the replacement of one marker. Brackets are encoded so
// that the result cannot be matched as a marker again.
func annotate(original string, names string, ids []string) string {
	return fmt.Sprintf(
		`<span class="citation-link" data-citation-ids="%s" data-original="%s">(%s)</span>`,
		strings.Join(ids, ","),
		bracketEscaper.Replace(html.EscapeString(original)),
		bracketEscaper.Replace(html.EscapeString(strings.TrimSpace(names))),
	)
}

// ExtractCitations returns all source names cited in text in order of appearance.
func ExtractCitations(text string) []string {
	names := []string{}
	for _, match := range markerPattern.FindAllStringSubmatch(text, -1) {
		names = append(names, splitNames(match[1])...)
	}
	return names
}

func splitNames(names string) []string {
	var out []string
	for _, name := range strings.Split(names, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
