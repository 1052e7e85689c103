package graph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/siherrmann/newsgraph/model"
)

const (
	// DefaultSummaryDays is the window of a timeline summary without a start date.
	DefaultSummaryDays = 30
	summaryEventLimit  = 1000
	topSourceCount     = 5
	unknownSource      = "Unknown"
)

// TimelineSummary aggregates the dated events of the entity's timeline
// within [start, end]. A zero end means now, a zero start means
// DefaultSummaryDays before end. Like all reads it never fails: an
// unknown entity, an empty window or a failing store yield a summary
// without events and the trend no_data.
func (l *Layer) TimelineSummary(ctx context.Context, name string, start time.Time, end time.Time) model.TimelineSummary {
	name = strings.TrimSpace(name)
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -DefaultSummaryDays)
	}

	summary := model.TimelineSummary{
		Entity:        name,
		StartDate:     start,
		EndDate:       end,
		TimeSpanDays:  wholeDays(end.Sub(start)),
		TopSources:    []model.SourceCount{},
		ActivityTrend: model.TrendNoData,
	}
	if end.Before(start) {
		summary.TimeSpanDays = 0
		return summary
	}

	events := []model.TimelineEvent{}
	for _, event := range l.EntityTimeline(ctx, name, summaryEventLimit) {
		if event.PublishedAt == nil || event.PublishedAt.Before(start) || event.PublishedAt.After(end) {
			continue
		}
		events = append(events, event)
	}
	if len(events) == 0 {
		return summary
	}

	summary.TotalEvents = len(events)
	summary.AverageEventsPerDay = math.Round(float64(len(events))/float64(max(summary.TimeSpanDays, 1))*100) / 100
	summary.MostActivePeriod = mostActiveWeek(events)
	summary.TopSources = topSources(events)
	summary.ActivityTrend = activityTrend(events)

	return summary
}

// mostActiveWeek groups the events by their Monday to Sunday week in UTC.
// Ties go to the week seen first, the newest for a sorted timeline.
func mostActiveWeek(events []model.TimelineEvent) *model.ActivePeriod {
	var best *model.ActivePeriod
	counts := map[string]*model.ActivePeriod{}
	order := []*model.ActivePeriod{}
	for _, event := range events {
		day := event.PublishedAt.UTC()
		monday := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
		key := monday.Format("2006-01-02")
		period, ok := counts[key]
		if !ok {
			year, week := monday.ISOWeek()
			period = &model.ActivePeriod{WeekStart: key, Week: fmt.Sprintf("%d-W%02d", year, week)}
			counts[key] = period
			order = append(order, period)
		}
		period.EventCount++
	}
	for _, period := range order {
		if best == nil || period.EventCount > best.EventCount {
			best = period
		}
	}
	return best
}

// topSources counts events per source, most frequent first. Equal counts
// keep the order in which the sources were first seen.
func topSources(events []model.TimelineEvent) []model.SourceCount {
	index := map[string]int{}
	sources := []model.SourceCount{}
	for _, event := range events {
		source := unknownSource
		if event.Source != nil && strings.TrimSpace(*event.Source) != "" {
			source = *event.Source
		}
		i, ok := index[source]
		if !ok {
			i = len(sources)
			index[source] = i
			sources = append(sources, model.SourceCount{Source: source})
		}
		sources[i].Count++
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Count > sources[j].Count
	})
	if len(sources) > topSourceCount {
		sources = sources[:topSourceCount]
	}
	return sources
}

// activityTrend compares the event rate of the older half of the events
// with the newer half. A rate change beyond 20% counts as a trend.
func activityTrend(events []model.TimelineEvent) string {
	if len(events) < 4 {
		return model.TrendInsufficientData
	}

	dates := make([]time.Time, len(events))
	for i, event := range events {
		dates[i] = *event.PublishedAt
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	mid := len(dates) / 2
	firstRate := halfRate(dates[:mid])
	secondRate := halfRate(dates[mid:])

	switch {
	case secondRate > firstRate*1.2:
		return model.TrendIncreasing
	case secondRate < firstRate*0.8:
		return model.TrendDecreasing
	}
	return model.TrendStable
}

// halfRate is the number of events per day of ascending dates, counting
// a span of less than a day as one day.
func halfRate(dates []time.Time) float64 {
	days := wholeDays(dates[len(dates)-1].Sub(dates[0]))
	return float64(len(dates)) / float64(max(days, 1))
}

func wholeDays(d time.Duration) int {
	return int(d / (24 * time.Hour))
}
