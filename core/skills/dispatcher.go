// Package skills classifies engagement queries into commands and executes
// them. Handlers never fail the engagement loop: every failure degrades to
// a spoken response.
package skills

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kurtvoice/kurt-core/core/calendar"
	"github.com/pkg/browser"
)

const (
	unknownSkillResponse   = "Sorry I do not possess that skill at this time"
	accessDeniedResponse   = "As an Unknown user, I don't have access to your calendar. Please register first"
	scheduleFailedResponse = "Failed to schedule the event."
	noResultResponse       = "No result received"
	farewellResponse       = "goodbye"

	searchBaseUrl = "http://www.google.com/search?q="
)

// Forecaster schedules future occurrences of a recurring event, reporting
// false when it has no history to extrapolate from.
type Forecaster interface {
	PredictAndSchedule(ctx context.Context, capability calendar.Capability, eventName, query string) (bool, error)
}

// Encyclopedia looks up a short summary for a subject.
type Encyclopedia interface {
	Summary(ctx context.Context, subject string) (string, error)
}

// Outcome carries a handler's spoken response, the resolved command for
// corpus records, and whether the engagement loop should terminate.
type Outcome struct {
	Command  Command
	Response string
	Exit     bool
}

type Dispatcher struct {
	forecaster   Forecaster
	encyclopedia Encyclopedia
	pickJoke     func() string
	openUrl      func(url string) error
	now          func() time.Time
}

type Option func(*Dispatcher)

// WithForecaster sets the forecaster behind the predict command.
func WithForecaster(forecaster Forecaster) Option {
	return func(d *Dispatcher) { d.forecaster = forecaster }
}

// WithEncyclopedia sets the lookup service behind the wikipedia command.
func WithEncyclopedia(encyclopedia Encyclopedia) Option {
	return func(d *Dispatcher) { d.encyclopedia = encyclopedia }
}

// WithJokePicker overrides the joke source, for tests.
func WithJokePicker(pick func() string) Option {
	return func(d *Dispatcher) { d.pickJoke = pick }
}

// WithUrlOpener overrides how web searches open, for tests.
func WithUrlOpener(open func(url string) error) Option {
	return func(d *Dispatcher) { d.openUrl = open }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(opts ...Option) *Dispatcher {
	dispatcher := &Dispatcher{
		pickJoke: PickJoke,
		openUrl:  browser.OpenURL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	return dispatcher
}

// Dispatch classifies the query and runs the matching handler. capability
// is nil for Unknown users; calendar-backed handlers respond with an
// access-denied message in that case.
func (d *Dispatcher) Dispatch(ctx context.Context, query []string, name string, capability calendar.Capability) Outcome {
	ctx, span := tracer.Start(ctx, "dispatch skill")
	defer span.End()

	command, remaining := Classify(query)
	logger.DebugContext(ctx, "classified query", "command", string(command))

	outcome := Outcome{Command: command}
	switch command {
	case CommandSay:
		outcome.Response = d.greetOrRepeat(remaining, name)
	case CommandSearch:
		outcome.Response = d.webSearch(ctx, remaining)
	case CommandTime:
		outcome.Response = d.tellTime(name)
	case CommandWikipedia:
		outcome.Response = d.lookUp(ctx, remaining)
	case CommandJoke:
		outcome.Response = d.tellJoke(name)
	case CommandReadSchedule:
		outcome.Response = d.readSchedule(ctx, remaining, capability)
	case CommandScheduleEvent:
		outcome.Response = d.scheduleEvent(ctx, remaining, capability)
	case CommandPredict:
		outcome.Response = d.predictEvent(ctx, remaining, name, capability)
	case CommandExit:
		outcome.Response = farewellResponse
		outcome.Exit = true
	default:
		outcome.Response = unknownSkillResponse
	}
	return outcome
}

// greetOrRepeat greets by name when the query contains "hello"; otherwise
// it drops the leading word and echoes the rest back.
func (d *Dispatcher) greetOrRepeat(query []string, name string) string {
	for _, word := range query {
		if word == "hello" {
			return "hello " + name
		}
	}
	if len(query) < 2 {
		return ""
	}
	return strings.Join(query[1:], " ")
}

func (d *Dispatcher) webSearch(ctx context.Context, query []string) string {
	subject := strings.Join(query, " ")
	if err := d.openUrl(searchBaseUrl + url.QueryEscape(subject)); err != nil {
		logger.WarnContext(ctx, "failed to open browser", "error", err)
	}
	return "Searching for " + subject
}

func (d *Dispatcher) tellTime(name string) string {
	return name + " the current time is " + d.now().Format("03:04 PM")
}

func (d *Dispatcher) lookUp(ctx context.Context, query []string) string {
	if d.encyclopedia == nil {
		return noResultResponse
	}

	summary, err := d.encyclopedia.Summary(ctx, strings.Join(query, " "))
	if err != nil {
		if !errors.Is(err, ErrNoResult) {
			logger.WarnContext(ctx, "encyclopedia lookup failed", "error", err)
		}
		return noResultResponse
	}
	return summary
}

func (d *Dispatcher) tellJoke(name string) string {
	return name + " I have a joke for you.. " + d.pickJoke()
}

func (d *Dispatcher) readSchedule(ctx context.Context, query []string, capability calendar.Capability) string {
	if capability == nil {
		return accessDeniedResponse
	}

	text := strings.Join(query, " ")
	if strings.Contains(text, "week") && !calendar.ContainsWeekday(text) {
		start, end := calendar.GetWeek(text, d.now())
		return d.readWeekSchedule(ctx, capability, start, end)
	}
	return d.readDaySchedule(ctx, capability, calendar.GetDate(text, d.now()))
}

func (d *Dispatcher) readDaySchedule(ctx context.Context, capability calendar.Capability, day time.Time) string {
	events, err := capability.EventsOn(ctx, day)
	if err != nil {
		logger.WarnContext(ctx, "failed to read day schedule", "error", err)
		return "No upcoming events found for this day."
	}
	if len(events) == 0 {
		return "No upcoming events found for this day."
	}

	response := fmt.Sprintf("You have %d events on this day.", len(events))
	for _, event := range events {
		response += " " + event.Title + " at " + calendar.FormatStartTime(event.Start) + "."
	}
	return response
}

func (d *Dispatcher) readWeekSchedule(ctx context.Context, capability calendar.Capability, start, end time.Time) string {
	events, err := capability.EventsBetween(ctx, start, end)
	if err != nil {
		logger.WarnContext(ctx, "failed to read week schedule", "error", err)
		return "No upcoming events found for the week."
	}
	if len(events) == 0 {
		return "No upcoming events found for the week."
	}

	response := fmt.Sprintf("You have %d events on that week.", len(events))
	previousDay := calendar.WeekdayIndex(start)
	response += "On " + calendar.Days[previousDay]
	for _, event := range events {
		day := calendar.WeekdayIndex(event.Start)
		if day != previousDay {
			previousDay = day
			response += "On " + calendar.Days[day]
		}
		response += " " + event.Title + " at " + calendar.FormatStartTime(event.Start) + "."
	}
	return response
}

func (d *Dispatcher) scheduleEvent(ctx context.Context, query []string, capability calendar.Capability) string {
	if capability == nil {
		return accessDeniedResponse
	}
	if len(query) < 2 {
		return scheduleFailedResponse
	}

	day := calendar.GetDate(strings.Join(query, " "), d.now())
	title := query[1]

	start, ok := parseEventTime(query, "from")
	if !ok {
		return scheduleFailedResponse
	}
	end, ok := parseEventTime(query, "to")
	if !ok {
		return scheduleFailedResponse
	}

	draft := calendar.EventDraft{
		Title: title,
		Start: calendar.Midnight(day).Add(start),
		End:   calendar.Midnight(day).Add(end),
	}
	if err := capability.CreateEvent(ctx, draft); err != nil {
		logger.WarnContext(ctx, "failed to create event", "error", err)
		return scheduleFailedResponse
	}
	return "The event is now in your schedule."
}

// parseEventTime extracts the clock time following marker ("from"/"to"):
// an hour with an optional :minutes part, then an "a.m." or "p.m." token.
// Anything other than "a.m." counts as afternoon.
func parseEventTime(query []string, marker string) (time.Duration, bool) {
	index := -1
	for i, word := range query {
		if word == marker {
			index = i
			break
		}
	}
	if index < 0 || index+2 >= len(query) {
		return 0, false
	}

	parts := strings.Split(query[index+1], ":")
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minutes := 0
	if len(parts) > 1 {
		if minutes, err = strconv.Atoi(parts[1]); err != nil {
			return 0, false
		}
	}

	if query[index+2] != "a.m." {
		hour += 12
	}
	return time.Duration(hour)*time.Hour + time.Duration(minutes)*time.Minute, true
}

func (d *Dispatcher) predictEvent(ctx context.Context, query []string, name string, capability calendar.Capability) string {
	notEnoughData := "Unfortunately there is not enough available data to make that prediction " + name

	if capability == nil {
		return accessDeniedResponse
	}
	if d.forecaster == nil {
		return notEnoughData
	}

	// The command takes the form "predict <event name> for <time frame>".
	eventName := ""
	for i, word := range query {
		if word == "predict" && i+1 < len(query) {
			eventName = query[i+1]
			break
		}
	}
	if eventName == "" {
		return notEnoughData
	}

	scheduled, err := d.forecaster.PredictAndSchedule(ctx, capability, eventName, strings.Join(query, " "))
	if err != nil {
		logger.WarnContext(ctx, "forecast failed", "error", err)
		return notEnoughData
	}
	if !scheduled {
		return notEnoughData
	}
	return "The event has been scheduled for you " + name
}
