// Package calendar defines the schedule capability the skill layer runs
// against, plus the natural-language date resolution shared by the
// schedule skills.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrNoCredentials is returned by a service that has no client credentials
// to run an authorization flow with.
var ErrNoCredentials = errors.New("calendar credentials not available")

// Event is one scheduled calendar entry.
type Event struct {
	Title  string
	Start  time.Time
	End    time.Time
	AllDay bool
}

// EventDraft is a to-be-created entry.
type EventDraft struct {
	Title       string
	Start       time.Time
	End         time.Time
	Description string
}

// Capability is an authorized handle onto one user's calendars. It exists
// only for known users; the Unknown speaker never holds one.
type Capability interface {
	EventsOn(ctx context.Context, day time.Time) ([]Event, error)
	EventsBetween(ctx context.Context, start, end time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, draft EventDraft) error
}

// Service authorizes calendar access for a named user.
type Service interface {
	Authorize(ctx context.Context, name string) (Capability, error)
}

// SortEvents orders events by start time, earliest first.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}

// FormatStartTime renders an event start the way it is spoken: morning
// times keep their minutes ("09:30am"), afternoon times are reduced to the
// bare 12-hour hour ("2pm").
func FormatStartTime(t time.Time) string {
	if t.Hour() < 12 {
		return fmt.Sprintf("%02d:%02dam", t.Hour(), t.Minute())
	}
	return fmt.Sprintf("%dpm", t.Hour()-12)
}
