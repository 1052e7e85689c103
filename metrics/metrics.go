// Package metrics exposes prometheus collectors for retrieval and answer quality.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/siherrmann/newsgraph/model"
)

// Outcomes of a chat turn.
const (
	OutcomeAnswered = "answered"
	OutcomeRefused  = "refused"
	OutcomeFallback = "fallback"
)

// Metrics holds the collectors of one registry. All methods are safe on a
// nil receiver, which disables recording.
type Metrics struct {
	Registry *prometheus.Registry

	chatRequests      *prometheus.CounterVec
	chatDuration      *prometheus.HistogramVec
	retrievedArticles *prometheus.HistogramVec
	citations         *prometheus.CounterVec
	qualityScore      prometheus.Histogram
}

// New creates the collectors and registers them on a fresh registry
// together with the go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgraph",
			Name:      "chat_requests_total",
			Help:      "Chat turns by intent and outcome.",
		}, []string{"intent", "outcome"}),
		chatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsgraph",
			Name:      "chat_duration_seconds",
			Help:      "Duration of chat turns.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		retrievedArticles: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsgraph",
			Name:      "retrieved_articles",
			Help:      "Number of articles returned by a search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 20},
		}, []string{"search_type"}),
		citations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsgraph",
			Name:      "citations_total",
			Help:      "Citations in generated answers by validity.",
		}, []string{"status"}),
		qualityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "newsgraph",
			Name:      "citation_quality_score",
			Help:      "Citation quality score of generated answers.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.chatRequests,
		m.chatDuration,
		m.retrievedArticles,
		m.citations,
		m.qualityScore,
	)

	return m
}

// ObserveChat records a finished chat turn.
func (m *Metrics) ObserveChat(intent model.Intent, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.chatRequests.WithLabelValues(string(intent), outcome).Inc()
	m.chatDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveRetrieval records the result size of a search.
func (m *Metrics) ObserveRetrieval(searchType model.SearchType, articles int) {
	if m == nil {
		return
	}
	m.retrievedArticles.WithLabelValues(string(searchType)).Observe(float64(articles))
}

// ObserveQuality records the citation metrics of a generated answer.
func (m *Metrics) ObserveQuality(quality model.QualityMetrics) {
	if m == nil {
		return
	}
	m.citations.WithLabelValues("valid").Add(float64(quality.ValidCitations))
	m.citations.WithLabelValues("invalid").Add(float64(quality.InvalidCitations))
	m.qualityScore.Observe(quality.QualityScore)
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
