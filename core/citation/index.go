package citation

import (
	"strings"

	"github.com/siherrmann/newsgraph/core/prompt"
	"github.com/siherrmann/newsgraph/model"
)

type indexEntry struct {
	key     string
	article *model.RetrievedArticle
}

// articleIndex resolves cited source names to articles. Every lookup stage
// walks the entries in retrieval rank order, so the best ranked article wins
// among several candidates.
type articleIndex struct {
	entries []indexEntry
}

func newArticleIndex(articles []model.RetrievedArticle) *articleIndex {
	index := &articleIndex{}
	for i := range articles {
		article := &articles[i]
		for _, key := range citableNames(article, i+1) {
			index.entries = append(index.entries, indexEntry{key: key, article: article})
		}
	}
	return index
}

// citableNames lists the names the model may cite article with: its title,
// a shortened title and the generated name of an untitled article.
func citableNames(article *model.RetrievedArticle, rank int) []string {
	var names []string
	if title := strings.TrimSpace(article.Title); title != "" {
		names = append(names, title)
		if runes := []rune(title); len(runes) > shortTitleLength {
			names = append(names, string(runes[:shortTitleLength])+"...")
		}
	} else {
		names = append(names, prompt.SourceName(*article, rank))
	}
	return names
}

// resolve matches name exactly, then case-insensitively, then by substring
// containment in either direction.
func (x *articleIndex) resolve(name string) (*model.RetrievedArticle, bool) {
	for _, e := range x.entries {
		if e.key == name {
			return e.article, true
		}
	}
	for _, e := range x.entries {
		if strings.EqualFold(e.key, name) {
			return e.article, true
		}
	}

	lower := strings.ToLower(name)
	for _, e := range x.entries {
		key := strings.ToLower(e.key)
		if strings.Contains(key, lower) || strings.Contains(lower, key) {
			return e.article, true
		}
	}

	return nil, false
}
