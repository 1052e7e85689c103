package graph

import (
	"context"
	"testing"
	"time"

	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayerTimelineSummary(t *testing.T) {
	ctx := context.Background()
	reuters, bloomberg := "Reuters", "Bloomberg"

	store := NewMockGraphStore()
	tesla := store.addEntity("Tesla", model.EntityTypeOrganization)
	store.addArticle(1, "Monday", date(2024, 3, 4), tesla)
	store.addArticle(2, "Wednesday", date(2024, 3, 6), tesla)
	store.addArticle(3, "Sunday", date(2024, 3, 10), tesla)
	store.addArticle(4, "Later", date(2024, 3, 20), tesla)
	store.addArticle(5, "Before window", date(2024, 2, 1), tesla)
	store.addArticle(6, "Undated", nil, tesla)
	store.articles[1].Source = &reuters
	store.articles[2].Source = &reuters
	store.articles[3].Source = &bloomberg

	layer := NewLayer(store, nil, time.Second)
	start, end := *date(2024, 3, 1), *date(2024, 3, 31)

	t.Run("Summary of dated events in the window", func(t *testing.T) {
		summary := layer.TimelineSummary(ctx, "Tesla", start, end)
		assert.Equal(t, "Tesla", summary.Entity)
		assert.Equal(t, 4, summary.TotalEvents)
		assert.Equal(t, 30, summary.TimeSpanDays)
		assert.Equal(t, 0.13, summary.AverageEventsPerDay)

		require.NotNil(t, summary.MostActivePeriod)
		assert.Equal(t, model.ActivePeriod{WeekStart: "2024-03-04", Week: "2024-W10", EventCount: 3}, *summary.MostActivePeriod)

		assert.Equal(t, []model.SourceCount{
			{Source: "Reuters", Count: 2},
			{Source: "Unknown", Count: 1},
			{Source: "Bloomberg", Count: 1},
		}, summary.TopSources)
		assert.Equal(t, model.TrendDecreasing, summary.ActivityTrend)
	})

	t.Run("Unknown entity has no data", func(t *testing.T) {
		summary := layer.TimelineSummary(ctx, "Rivian", start, end)
		assert.Zero(t, summary.TotalEvents)
		assert.Equal(t, 30, summary.TimeSpanDays)
		assert.Nil(t, summary.MostActivePeriod)
		assert.NotNil(t, summary.TopSources)
		assert.Empty(t, summary.TopSources)
		assert.Equal(t, model.TrendNoData, summary.ActivityTrend)
	})

	t.Run("End before start has no data", func(t *testing.T) {
		summary := layer.TimelineSummary(ctx, "Tesla", end, start)
		assert.Zero(t, summary.TotalEvents)
		assert.Zero(t, summary.TimeSpanDays)
		assert.Equal(t, model.TrendNoData, summary.ActivityTrend)
	})

	t.Run("Zero start defaults to the default window", func(t *testing.T) {
		summary := layer.TimelineSummary(ctx, "Tesla", time.Time{}, end)
		assert.Equal(t, end.AddDate(0, 0, -DefaultSummaryDays), summary.StartDate)
		assert.Equal(t, DefaultSummaryDays, summary.TimeSpanDays)
	})

	t.Run("Failing store has no data", func(t *testing.T) {
		failing := NewLayer(FailingGraphStore{}, nil, time.Second)
		summary := failing.TimelineSummary(ctx, "Tesla", start, end)
		assert.Zero(t, summary.TotalEvents)
		assert.Equal(t, model.TrendNoData, summary.ActivityTrend)
	})
}

func TestActivityTrend(t *testing.T) {
	tests := []struct {
		name  string
		dates []*time.Time
		trend string
	}{
		{
			name:  "Fewer than four events",
			dates: []*time.Time{date(2024, 1, 1), date(2024, 1, 2), date(2024, 1, 3)},
			trend: model.TrendInsufficientData,
		},
		{
			name:  "Newer half is denser",
			dates: []*time.Time{date(2024, 1, 1), date(2024, 1, 21), date(2024, 2, 1), date(2024, 2, 2)},
			trend: model.TrendIncreasing,
		},
		{
			name:  "Newer half is sparser",
			dates: []*time.Time{date(2024, 1, 1), date(2024, 1, 2), date(2024, 1, 10), date(2024, 1, 30)},
			trend: model.TrendDecreasing,
		},
		{
			name:  "Equal rates are stable",
			dates: []*time.Time{date(2024, 1, 1), date(2024, 1, 11), date(2024, 1, 21), date(2024, 1, 31)},
			trend: model.TrendStable,
		},
		{
			name:  "Same day halves count as one day",
			dates: []*time.Time{date(2024, 1, 1), date(2024, 1, 1), date(2024, 1, 5), date(2024, 1, 5)},
			trend: model.TrendStable,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			events := make([]model.TimelineEvent, len(test.dates))
			for i, d := range test.dates {
				// newest first, like a sorted timeline
				events[len(events)-1-i] = model.TimelineEvent{ArticleID: i + 1, PublishedAt: d}
			}
			assert.Equal(t, test.trend, activityTrend(events))
		})
	}
}

func TestMostActiveWeekTie(t *testing.T) {
	events := []model.TimelineEvent{
		{ArticleID: 2, PublishedAt: date(2024, 3, 13)},
		{ArticleID: 1, PublishedAt: date(2024, 3, 5)},
	}
	period := mostActiveWeek(events)
	require.NotNil(t, period)
	assert.Equal(t, "2024-03-11", period.WeekStart, "Expected the newest week to win a tie")
	assert.Equal(t, 1, period.EventCount)
}
