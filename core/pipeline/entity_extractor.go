package pipeline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// DefaultNERModel detects PER, ORG, LOC and MISC entities.
const DefaultNERModel = "KnightsAnalytics/distilbert-NER"

// minEntityConfidence drops low confidence NER results.
const minEntityConfidence = 0.5

// contextRadius is the number of bytes kept on each side of a mention.
const contextRadius = 100

// DefaultEntityExtractor creates an entity extractor using a NER model.
// MISC entities have no counterpart in the graph and are dropped.
func DefaultEntityExtractor() (EntityExtractFunc, error) {
	modelPath, err := helper.PrepareModel(DefaultNERModel, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	var mu sync.Mutex
	return func(text string) ([]ExtractedEntity, error) {
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}

		mu.Lock()
		result, err := nerPipeline.RunPipeline([]string{text})
		mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}
		if len(result.Entities) == 0 {
			return nil, nil
		}

		var entities []ExtractedEntity
		for _, entity := range result.Entities[0] {
			entityType, err := model.ParseEntityType(normalizeEntityType(entity.Entity))
			if err != nil || float64(entity.Score) < minEntityConfidence {
				continue
			}
			name := strings.TrimSpace(entity.Word)
			if name == "" {
				continue
			}

			entities = append(entities, ExtractedEntity{
				Name:       name,
				Type:       entityType,
				Confidence: model.ClampConfidence(float64(entity.Score)),
				Start:      int(entity.Start),
				End:        int(entity.End),
				Context:    mentionContext(text, int(entity.Start), int(entity.End)),
			})
		}

		return entities, nil
	}, nil
}

// normalizeEntityType removes B- and I- prefixes from NER labels
func normalizeEntityType(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}

// mentionContext returns the text around [start, end), cut at whitespace
// so that no word is split.
func mentionContext(text string, start int, end int) string {
	start = max(0, min(start, len(text)))
	end = max(start, min(end, len(text)))

	from := max(0, start-contextRadius)
	if from > 0 {
		if i := strings.IndexByte(text[from:start], ' '); i >= 0 {
			from += i + 1
		} else {
			from = start
		}
	}
	to := min(len(text), end+contextRadius)
	if to < len(text) {
		if i := strings.LastIndexByte(text[end:to], ' '); i >= 0 {
			to = end + i
		} else {
			to = end
		}
	}

	return strings.TrimSpace(text[from:to])
}
