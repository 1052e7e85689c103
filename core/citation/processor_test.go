package citation

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func newTestProcessor() *Processor {
	p := NewProcessor(nil)
	n := 0
	p.newID = func() string {
		n++
		return fmt.Sprintf("%s%08d", IDPrefix, n)
	}
	return p
}

func testArticles() []model.RetrievedArticle {
	return []model.RetrievedArticle{
		{Article: model.Article{ID: 11, Title: "TechNews Report", Content: "Revenue rose by ten percent.", Source: ptr("TechNews"), URL: ptr("https://technews.example/report")}, SimilarityScore: ptr(0.82)},
		{Article: model.Article{ID: 12, Title: "Climate Summit Ends Without Agreement", Content: strings.Repeat("c", 250)}},
		{Article: model.Article{ID: 13, Title: "Climate Summit Opens", Content: "Delegates arrived."}},
	}
}

var spanPattern = regexp.MustCompile(`<span class="citation-link" data-citation-ids="[^"]*" data-original="[^"]*">\([^)]*\)</span>`)

func TestProcessResolvesKnownSources(t *testing.T) {
	p := newTestProcessor()
	text := "Revenue rose [Source: TechNews Report]. Costs fell [Sources: A, B]."

	processed, citations := p.Process(text, testArticles())

	require.Len(t, citations, 1, "Expected only TechNews Report to resolve")
	c := citations[0]
	assert.Equal(t, "cite_00000001", c.ID)
	assert.Equal(t, "TechNews Report", c.SourceName)
	assert.Equal(t, "TechNews Report", c.Title)
	assert.Equal(t, "TechNews", c.Publication)
	assert.Equal(t, "https://technews.example/report", *c.URL)
	assert.Equal(t, 0.82, *c.SimilarityScore)
	assert.Equal(t, "Revenue rose by ten percent.", *c.Snippet)
	assert.Equal(t, "/api/v1/articles/11/verify", *c.VerificationURL)
	assert.Equal(t, model.Span{Start: 13, End: 38}, c.Position)
	assert.Equal(t, "[Source: TechNews Report]", text[c.Position.Start:c.Position.End])

	expected := `Revenue rose <span class="citation-link" data-citation-ids="cite_00000001" data-original="&#91;Source: TechNews Report&#93;">(TechNews Report)</span>.` +
		` Costs fell <span class="citation-link" data-citation-ids="" data-original="&#91;Sources: A, B&#93;">(A, B)</span>.`
	assert.Equal(t, expected, processed)
	assert.Len(t, spanPattern.FindAllString(processed, -1), 2)
}

func TestProcessCharacterPositions(t *testing.T) {
	p := newTestProcessor()
	text := "Café prices rose [Source: TechNews Report]. Grüße [Source: Climate Summit Opens]."

	_, citations := p.Process(text, testArticles())
	require.Len(t, citations, 2)

	runes := []rune(text)
	assert.Equal(t, model.Span{Start: 17, End: 42}, citations[0].Position)
	assert.Equal(t, "[Source: TechNews Report]", string(runes[citations[0].Position.Start:citations[0].Position.End]))
	assert.Equal(t, "[Source: Climate Summit Opens]", string(runes[citations[1].Position.Start:citations[1].Position.End]),
		"Expected offsets after multiple multibyte characters to count characters")
}

func TestProcessPreservesText(t *testing.T) {
	p := newTestProcessor()
	texts := []string{
		"No citations at all.",
		"[Source: TechNews Report] at the start.",
		"Grüße [source: climate summit opens] und [SOURCES: TechNews Report, Climate Summit Opens] — Ende",
		"Adjacent[Source: A][Source: TechNews Report][Sources: B,C]",
		"Broken [Source: TechNews Report and [Source: Climate Summit Opens] markers.",
	}

	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			processed, _ := p.Process(text, testArticles())

			original := markerPattern.ReplaceAllString(text, "\x00")
			rewritten := spanPattern.ReplaceAllString(processed, "\x00")
			assert.Equal(t, original, rewritten, "Expected text outside of markers to be unchanged")
		})
	}
}

func TestProcessIdempotent(t *testing.T) {
	p := newTestProcessor()
	text := "Revenue rose [Source: TechNews Report]. Talks failed [Sources: Climate Summit Ends Without Agreement, x]. Odd [Source: a]b]"

	once, citations := p.Process(text, testArticles())
	require.NotEmpty(t, citations)

	twice, again := p.Process(once, testArticles())
	assert.Equal(t, once, twice)
	assert.Empty(t, again)
	assert.Empty(t, ExtractCitations(once))
}

func TestProcessOrder(t *testing.T) {
	p := newTestProcessor()
	text := "First [Source: Climate Summit Opens]. Second [Sources: TechNews Report, Climate Summit Ends Without Agreement]."

	_, citations := p.Process(text, testArticles())
	require.Len(t, citations, 3)
	assert.Equal(t, "Climate Summit Opens", citations[0].SourceName)
	assert.Equal(t, "TechNews Report", citations[1].SourceName)
	assert.Equal(t, "Climate Summit Ends Without Agreement", citations[2].SourceName)
	assert.Less(t, citations[0].Position.Start, citations[1].Position.Start)
	assert.Equal(t, citations[1].Position, citations[2].Position, "Expected names of one marker to share its span")
}

func TestProcessResolution(t *testing.T) {
	articles := testArticles()

	tests := []struct {
		name     string
		cited    string
		expected int
	}{
		{"Exact title", "Climate Summit Opens", 13},
		{"Case-insensitive title", "climate summit OPENS", 13},
		{"Shortened title", "Climate Summit Ends Without Ag...", 12},
		{"Cited name contains title", "The TechNews Report on revenue", 11},
		{"Title contains cited name, best rank wins", "Climate Summit", 12},
		{"Untitled article by generated name", "Reuters Article 4", 14},
	}

	untitled := model.RetrievedArticle{Article: model.Article{ID: 14, Content: "untitled", Source: ptr("Reuters")}}
	articles = append(articles, untitled)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, citations := newTestProcessor().Process("Claim [Source: "+tt.cited+"].", articles)
			require.Len(t, citations, 1)
			assert.Equal(t, fmt.Sprintf("/api/v1/articles/%d/verify", tt.expected), *citations[0].VerificationURL)
		})
	}

	t.Run("Unknown names are dropped", func(t *testing.T) {
		_, citations := newTestProcessor().Process("Claim [Source: Bloomberg].", articles)
		assert.Empty(t, citations)
	})
}

func TestProcessCitationFields(t *testing.T) {
	t.Run("Snippet is truncated with ellipsis", func(t *testing.T) {
		_, citations := newTestProcessor().Process("[Source: Climate Summit Ends Without Agreement]", testArticles())
		require.Len(t, citations, 1)
		assert.Equal(t, strings.Repeat("c", SnippetLength)+"...", *citations[0].Snippet)
		assert.Equal(t, "Unknown", citations[0].Publication)
	})

	t.Run("No verification link without article id", func(t *testing.T) {
		articles := []model.RetrievedArticle{{Article: model.Article{Title: "Loose Article"}}}
		_, citations := newTestProcessor().Process("[Source: Loose Article]", articles)
		require.Len(t, citations, 1)
		assert.Nil(t, citations[0].VerificationURL)
		assert.Nil(t, citations[0].Snippet)
	})

	t.Run("Generated ids are unique", func(t *testing.T) {
		p := NewProcessor(nil)
		_, citations := p.Process("[Sources: TechNews Report, Climate Summit Opens] [Source: TechNews Report]", testArticles())
		require.Len(t, citations, 3)
		seen := make(map[string]bool)
		for _, c := range citations {
			assert.Regexp(t, `^cite_[0-9a-z]{8}$`, c.ID)
			assert.False(t, seen[c.ID])
			seen[c.ID] = true
		}
	})

	t.Run("Markup in names is escaped", func(t *testing.T) {
		processed, _ := newTestProcessor().Process(`[Source: "quoted" <b>]`, nil)
		assert.NotContains(t, processed, "<b>")
		assert.Contains(t, processed, "&lt;b&gt;")
	})
}

func TestExtractCitations(t *testing.T) {
	text := "One [Source: A]. Two [Sources: B,  C ]. Three [sources: D]. None [Src: E]."
	assert.Equal(t, []string{"A", "B", "C", "D"}, ExtractCitations(text))
	assert.Empty(t, ExtractCitations("plain text"))
}
