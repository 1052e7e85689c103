package citation

import (
	"strings"

	"github.com/siherrmann/newsgraph/model"
)

// insufficientInfoMaxLength bounds the length of a pure refusal answer.
const insufficientInfoMaxLength = 200

// Validate rates how well text cites the provided source names. The result
// is an observability signal only.
func Validate(text string, sourceNames []string) model.QualityMetrics {
	citations := ExtractCitations(text)

	valid := 0
	for _, citation := range citations {
		for _, source := range sourceNames {
			if source != "" && strings.Contains(citation, source) {
				valid++
				break
			}
		}
	}
	invalid := len(citations) - valid

	// Sentences are approximated by splitting on periods.
	sentences := max(len(strings.Split(text, ".")), 1)
	coverage := float64(len(citations)) / float64(sentences)
	precision := float64(valid) / float64(max(len(citations), 1))

	return model.QualityMetrics{
		HasCitations:            len(citations) > 0,
		CitationCount:           len(citations),
		CitationCoverage:        coverage,
		ValidCitations:          valid,
		InvalidCitations:        invalid,
		InsufficientInfoHandled: strings.Contains(strings.ToLower(text), "insufficient information") && len(text) < insufficientInfoMaxLength,
		FollowsFormat:           len(citations) > 0 && invalid == 0,
		QualityScore:            min(1.0, precision*coverage),
	}
}

// QualityLabel describes a quality score.
func QualityLabel(score float64) string {
	switch {
	case score >= 0.9:
		return "Excellent Sources"
	case score >= 0.7:
		return "Good Sources"
	case score >= 0.5:
		return "Moderate Sources"
	}
	return "Limited Sources"
}

// QualityColor is the UI color of a quality score.
func QualityColor(score float64) string {
	switch {
	case score >= 0.9:
		return "green"
	case score >= 0.7:
		return "blue"
	case score >= 0.5:
		return "yellow"
	}
	return "orange"
}
