// Package prompt builds the grounded prompts sent to the language model.
// All functions are pure and deterministic.
package prompt

import (
	"fmt"
	"strings"

	"github.com/siherrmann/newsgraph/model"
)

// InsufficientInformation is the exact sentence the model has to answer with
// when the provided articles do not cover the question. It is also returned
// without a model call when nothing was retrieved.
const InsufficientInformation = "Based on the provided articles, there is insufficient information to answer this question."

// MaxContextArticles is the number of articles put into a prompt.
const MaxContextArticles = 5

const (
	unknownSource = "Unknown Source"
	noArticles    = "No relevant articles found in the knowledge base."
)

// SourceName returns the name the model has to cite article with.
// index is the 1-based position of the article in the context.
func SourceName(article model.RetrievedArticle, index int) string {
	if title := strings.TrimSpace(article.Title); title != "" {
		return title
	}
	return fmt.Sprintf("%s Article %d", article.SourceName(unknownSource), index)
}

// SourceNames returns the citable names of articles in context order.
func SourceNames(articles []model.RetrievedArticle) []string {
	names := make([]string, 0, len(articles))
	for i, article := range articles {
		names = append(names, SourceName(article, i+1))
	}
	return names
}

// FormatContext renders up to maxArticles articles as numbered reference blocks.
func FormatContext(articles []model.RetrievedArticle, maxArticles int) string {
	if maxArticles > 0 && len(articles) > maxArticles {
		articles = articles[:maxArticles]
	}
	if len(articles) == 0 {
		return noArticles
	}

	var b strings.Builder
	for i, article := range articles {
		fmt.Fprintf(&b, "**Article %d:**\n", i+1)
		fmt.Fprintf(&b, "Content: %s\n", article.Text())
		b.WriteString("Metadata: {\n")
		fmt.Fprintf(&b, "  'source_name': '%s',\n", SourceName(article, i+1))
		fmt.Fprintf(&b, "  'publication_source': '%s',\n", article.SourceName(unknownSource))
		if article.PublishedAt != nil {
			fmt.Fprintf(&b, "  'published_date': '%s',\n", article.PublishedAt.Format("2006-01-02"))
		}
		if article.SimilarityScore != nil {
			fmt.Fprintf(&b, "  'relevance_score': %.3f\n", *article.SimilarityScore)
		}
		b.WriteString("}\n\n")
	}

	return b.String()
}

// IntentInstructions returns the instruction block appended for intent.
// Intents without special framing get an empty block.
func IntentInstructions(intent model.Intent) string {
	switch intent {
	case model.IntentTimeline:
		return "**TIMELINE FOCUS**: The user is asking for chronological information. Focus on dates, sequence of events, and story evolution. Present information in temporal order when possible."
	case model.IntentSummary:
		return "**SUMMARY FOCUS**: The user wants a concise overview. Provide structured key points while maintaining citation requirements. Use bullet points or numbered lists for clarity."
	case model.IntentRelationship:
		return "**RELATIONSHIP FOCUS**: The user is interested in connections between entities, events, or topics. Highlight relationships and connections found in the sources."
	}
	return ""
}

// Build returns the complete grounded prompt for question.
func Build(articles []model.RetrievedArticle, question string, intent model.Intent) string {
	var b strings.Builder

	b.WriteString(rules)
	if instructions := IntentInstructions(intent); instructions != "" {
		b.WriteString("\n")
		b.WriteString(instructions)
		b.WriteString("\n")
	}
	b.WriteString(structure)

	b.WriteString("\n---\n\n**RETRIEVED CONTEXT:**\n")
	b.WriteString(FormatContext(articles, MaxContextArticles))
	b.WriteString("\n---\n\n**USER QUESTION:**\n")
	b.WriteString(question)
	b.WriteString("\n\n---\n\n")
	b.WriteString(analysis)

	return b.String()
}

// SystemPrompt returns the system message for a conversation turn.
func SystemPrompt(intent model.Intent, articleCount int) string {
	var b strings.Builder
	b.WriteString(system)

	switch intent {
	case model.IntentTimeline:
		b.WriteString("\n\nThe user is asking about timeline or chronological information. Focus on dates, sequence of events, and story evolution from the retrieved sources.")
	case model.IntentSummary:
		b.WriteString("\n\nThe user wants a summary. Provide concise, structured key points based on the retrieved information.")
	case model.IntentRelationship:
		b.WriteString("\n\nThe user is interested in relationships and connections. Highlight how entities, events, or topics are related in the retrieved sources.")
	}

	if articleCount > 0 {
		fmt.Fprintf(&b, "\n\nYou have been provided with %d relevant articles. Use only this information to answer.", articleCount)
	}

	return b.String()
}

// GraphContext returns the system message carrying the knowledge graph
// digest of a turn, or an empty string if there is no digest.
func GraphContext(digest string) string {
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return ""
	}
	return "**KNOWLEDGE GRAPH CONTEXT:**\n" + digest + "\n\nUse these relationships to connect the provided articles. Cite the articles, the graph is not a source."
}

const rules = `# Newsgraph Grounded Answer Prompt

## 1. Role
You are a news analyst who answers strictly from the provided sources. Every claim must be traceable to a specific source.

## 2. Citation Rules
You MUST cite every fact using this exact format:
- **Format**: ` + "`[Source: source_name]`" + ` at the end of each sentence containing sourced information
- **Multiple Sources**: ` + "`[Sources: source1, source2]`" + `
- **Example**: "The policy was announced Tuesday [Source: Reuters Report] and affects 50,000 workers [Source: Bloomberg Analysis]."
- Use the 'source_name' of the articles below verbatim.

## 3. Requirements

### 3.1 Source Grounding
- Your response MUST be entirely based on the provided context
- Do NOT add information from your training data, even if it is correct
- Every factual statement requires a source citation

### 3.2 Insufficient Information
If the provided articles do not contain enough information to answer the question:
- Answer exactly: "` + InsufficientInformation + `"
- Do NOT apologize or add explanatory text
- Do NOT attempt to answer with partial information

### 3.3 Conflicting Information
When sources disagree:
- Present both viewpoints, each with its own citation
- Do NOT reconcile them or judge which source is correct

### 3.4 Synthesis
- Write a coherent answer to the question instead of listing what each source says
`

const structure = `
## 4. Response Structure
1. **Direct Answer**: Start with a clear, direct response to the question
2. **Supporting Details**: Provide details with citations
3. **Context**: Include relevant background from the sources when available
`

const analysis = `**INSTRUCTIONS:**
1. Read all provided sources
2. Identify the information relevant to the question
3. Answer using ONLY the provided information
4. Cite every factual claim
5. If the information is insufficient, answer with the insufficient information sentence only

**YOUR RESPONSE:**`

const system = `You are Newsgraph, an assistant specialized in news analysis. You have access to a knowledge base of articles and the relationships between the entities they mention.

Guidelines:
- Use only the retrieved context, never your training data
- Cite the source articles for every statement
- If no relevant context is provided, say that you do not have the information
- Present conflicting sources side by side`
