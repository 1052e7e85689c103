package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveChat(t *testing.T) {
	m := New()
	m.ObserveChat(model.IntentTimeline, OutcomeAnswered, 200*time.Millisecond)
	m.ObserveChat(model.IntentTimeline, OutcomeAnswered, time.Second)
	m.ObserveChat(model.IntentGeneral, OutcomeRefused, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chatRequests.WithLabelValues("timeline", OutcomeAnswered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatRequests.WithLabelValues("general", OutcomeRefused)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.chatDuration))
}

func TestObserveQuality(t *testing.T) {
	m := New()
	m.ObserveQuality(model.QualityMetrics{ValidCitations: 3, InvalidCitations: 1, QualityScore: 0.75})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.citations.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.citations.WithLabelValues("invalid")))

	expected := `
# HELP newsgraph_citations_total Citations in generated answers by validity.
# TYPE newsgraph_citations_total counter
newsgraph_citations_total{status="invalid"} 1
newsgraph_citations_total{status="valid"} 3
`
	assert.NoError(t, testutil.CollectAndCompare(m.citations, strings.NewReader(expected)))
}

func TestObserveRetrieval(t *testing.T) {
	m := New()
	m.ObserveRetrieval(model.SearchTypeHybrid, 4)
	assert.Equal(t, 1, testutil.CollectAndCount(m.retrievedArticles))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveChat(model.IntentGeneral, OutcomeFallback, time.Second)
		m.ObserveRetrieval(model.SearchTypeVector, 1)
		m.ObserveQuality(model.QualityMetrics{})
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveChat(model.IntentSearch, OutcomeAnswered, time.Second)

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `newsgraph_chat_requests_total{intent="search",outcome="answered"} 1`)
	assert.Contains(t, recorder.Body.String(), "go_goroutines")
}
