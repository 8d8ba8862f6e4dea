// Package forecast schedules recurring events by extrapolating from their
// recent history. Events that happened on a weekday in at least half of the
// past weeks are predicted to happen on that weekday again, at their most
// common start and end times.
package forecast

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kurtvoice/kurt-core/core/calendar"
)

// historyDays is how far back event history is collected.
const historyDays = 62

// recentDays bounds the window used to vote on start and end times.
const recentDays = 30

type Forecaster struct {
	now func() time.Time
}

type Option func(*Forecaster)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Forecaster) { f.now = now }
}

func NewForecaster(opts ...Option) *Forecaster {
	forecaster := &Forecaster{now: time.Now}
	for _, opt := range opts {
		opt(forecaster)
	}
	return forecaster
}

type occurrence struct {
	day   time.Time
	start clockTime
	end   clockTime
}

// clockTime is a time of day in minutes since midnight.
type clockTime int

func clockOf(t time.Time) clockTime {
	return clockTime(t.Hour()*60 + t.Minute())
}

func (c clockTime) on(day time.Time) time.Time {
	return calendar.Midnight(day).Add(time.Duration(c) * time.Minute)
}

// PredictAndSchedule forecasts occurrences of the named event over the week
// resolved from query and creates the predicted events. It reports false
// when the calendar holds no history to predict from.
func (f *Forecaster) PredictAndSchedule(ctx context.Context, capability calendar.Capability, eventName, query string) (bool, error) {
	ctx, span := tracer.Start(ctx, "predict and schedule")
	defer span.End()

	today := calendar.Midnight(f.now())
	history, err := f.history(ctx, capability, eventName, today)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if len(history) == 0 {
		return false, nil
	}

	weekStart, weekEnd := calendar.GetWeek(query, f.now())
	scheduled := 0
	for day := calendar.Midnight(weekStart); !day.After(calendar.Midnight(weekEnd)); day = day.AddDate(0, 0, 1) {
		weekday := calendar.WeekdayIndex(day)
		if !predictedOn(history, weekday, today) {
			continue
		}

		start, end := modalTimes(history, weekday, today)
		draft := calendar.EventDraft{
			Title: eventName,
			Start: start.on(day),
			End:   end.on(day),
		}
		if !draft.End.After(draft.Start) {
			draft.End = draft.End.AddDate(0, 0, 1)
		}

		if err := capability.CreateEvent(ctx, draft); err != nil {
			span.RecordError(err)
			return false, fmt.Errorf("failed to schedule predicted event: %w", err)
		}
		scheduled++
	}

	logger.InfoContext(ctx, "scheduled predicted events",
		"event", eventName,
		"count", scheduled,
	)
	return true, nil
}

// history collects the past occurrences of the named event, matched by
// case-insensitive substring on the title.
func (f *Forecaster) history(ctx context.Context, capability calendar.Capability, eventName string, today time.Time) ([]occurrence, error) {
	events, err := capability.EventsBetween(ctx, today.AddDate(0, 0, -historyDays), today)
	if err != nil {
		return nil, fmt.Errorf("failed to collect event history: %w", err)
	}

	needle := strings.ToLower(eventName)
	occurrences := []occurrence{}
	for _, event := range events {
		if !strings.Contains(strings.ToLower(event.Title), needle) {
			continue
		}

		entry := occurrence{day: calendar.Midnight(event.Start)}
		if !event.AllDay {
			entry.start = clockOf(event.Start)
			entry.end = clockOf(event.End)
		}
		occurrences = append(occurrences, entry)
	}
	return occurrences, nil
}

// predictedOn reports whether the event is expected on the given weekday:
// it must have occurred on that weekday in at least half of the weeks in
// the history window.
func predictedOn(history []occurrence, weekday int, today time.Time) bool {
	hits := map[time.Time]bool{}
	for _, entry := range history {
		if calendar.WeekdayIndex(entry.day) == weekday {
			hits[entry.day] = true
		}
	}

	chances := 0
	for day := today.AddDate(0, 0, -historyDays); day.Before(today); day = day.AddDate(0, 0, 1) {
		if calendar.WeekdayIndex(day) == weekday {
			chances++
		}
	}
	return chances > 0 && len(hits)*2 >= chances
}

// modalTimes votes on the start and end times for a weekday using the most
// recent history, falling back to the overall modal times when that weekday
// has no recent occurrences.
func modalTimes(history []occurrence, weekday int, today time.Time) (clockTime, clockTime) {
	recentCutoff := today.AddDate(0, 0, -recentDays)
	weekdayStarts, weekdayEnds := []clockTime{}, []clockTime{}
	allStarts, allEnds := []clockTime{}, []clockTime{}

	for _, entry := range history {
		allStarts = append(allStarts, entry.start)
		allEnds = append(allEnds, entry.end)
		if calendar.WeekdayIndex(entry.day) == weekday && !entry.day.Before(recentCutoff) {
			weekdayStarts = append(weekdayStarts, entry.start)
			weekdayEnds = append(weekdayEnds, entry.end)
		}
	}

	start, ok := mode(weekdayStarts)
	if !ok {
		start, _ = mode(allStarts)
	}
	end, ok := mode(weekdayEnds)
	if !ok {
		end, _ = mode(allEnds)
	}
	return start, end
}

// mode returns the most frequent value, breaking ties by the earlier time.
func mode(values []clockTime) (clockTime, bool) {
	if len(values) == 0 {
		return 0, false
	}

	counts := map[clockTime]int{}
	for _, value := range values {
		counts[value]++
	}

	candidates := make([]clockTime, 0, len(counts))
	for value := range counts {
		candidates = append(candidates, value)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if counts[candidate] > counts[best] {
			best = candidate
		}
	}
	return best, true
}
