// Package google backs the calendar capability with the Google Calendar
// API. Authorization follows the installed-app oauth2 flow: a shared
// credentials.json plus one cached token file per registered user.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kurtvoice/kurt-core/core/calendar"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const eventDescription = "This is an event scheduled by Kurt"

type Service struct {
	// credentialsDir holds credentials.json and the per-user token files.
	credentialsDir string
}

func NewService(credentialsDir string) *Service {
	return &Service{credentialsDir: credentialsDir}
}

// Authorize builds an authorized capability for name. The first
// authorization for a user walks the oauth2 consent flow and caches the
// resulting token as token_<name>.json; later calls reuse the cache.
func (s *Service) Authorize(ctx context.Context, name string) (calendar.Capability, error) {
	credentialsPath := filepath.Join(s.credentialsDir, "credentials.json")
	credentialsBytes, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", calendar.ErrNoCredentials, credentialsPath)
	}

	config, err := google.ConfigFromJSON(credentialsBytes, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client credentials: %w", err)
	}

	tokenPath := filepath.Join(s.credentialsDir, "token_"+name+".json")
	token, err := tokenFromFile(tokenPath)
	if err != nil {
		if token, err = tokenFromConsentFlow(ctx, config); err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, token); err != nil {
			logger.WarnContext(ctx, "failed to cache oauth token", "error", err)
		}
	}

	client, err := gcal.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar client: %w", err)
	}

	return &capability{service: client}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

func tokenFromConsentFlow(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authUrl := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n", authUrl)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

type capability struct {
	service *gcal.Service
}

func (c *capability) EventsOn(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	start := calendar.Midnight(day)
	if start.Equal(calendar.Midnight(time.Now())) {
		// Only upcoming events matter when reading today's schedule.
		start = time.Now()
	}
	end := calendar.Midnight(day).AddDate(0, 0, 1).Add(-time.Millisecond)
	return c.listEvents(ctx, start, end)
}

func (c *capability) EventsBetween(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	startAt := calendar.Midnight(start)
	if startAt.Equal(calendar.Midnight(time.Now())) {
		startAt = time.Now()
	}
	endAt := calendar.Midnight(end).AddDate(0, 0, 1).Add(-time.Millisecond)
	return c.listEvents(ctx, startAt, endAt)
}

func (c *capability) CreateEvent(ctx context.Context, draft calendar.EventDraft) error {
	ctx, span := tracer.Start(ctx, "create event")
	defer span.End()

	event := &gcal.Event{
		Summary:     draft.Title,
		Description: eventDescription,
		Start:       &gcal.EventDateTime{DateTime: draft.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: draft.End.Format(time.RFC3339)},
	}
	if draft.Description != "" {
		event.Description = draft.Description
	}

	if _, err := c.service.Events.Insert("primary", event).Context(ctx).Do(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// listEvents queries every calendar on the account and returns the merged,
// start-sorted events in the window.
func (c *capability) listEvents(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	ctx, span := tracer.Start(ctx, "list events")
	defer span.End()

	calendarIds, err := c.listCalendarIds(ctx)
	if err != nil {
		return nil, err
	}

	events := []calendar.Event{}
	for _, calendarId := range calendarIds {
		result, err := c.service.Events.List(calendarId).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx).
			Do()
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to list events for calendar %s: %w", calendarId, err)
		}

		for _, item := range result.Items {
			events = append(events, convertEvent(item))
		}
	}

	calendar.SortEvents(events)
	return events, nil
}

func (c *capability) listCalendarIds(ctx context.Context) ([]string, error) {
	calendarIds := []string{}
	pageToken := ""
	for {
		call := c.service.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list calendars: %w", err)
		}

		for _, entry := range list.Items {
			calendarIds = append(calendarIds, entry.Id)
		}

		pageToken = list.NextPageToken
		if pageToken == "" {
			return calendarIds, nil
		}
	}
}

func convertEvent(item *gcal.Event) calendar.Event {
	event := calendar.Event{Title: item.Summary}

	if item.Start != nil && item.Start.DateTime != "" {
		event.Start, _ = time.Parse(time.RFC3339, item.Start.DateTime)
	} else if item.Start != nil {
		event.Start, _ = time.Parse("2006-01-02", item.Start.Date)
		event.AllDay = true
	}

	if item.End != nil && item.End.DateTime != "" {
		event.End, _ = time.Parse(time.RFC3339, item.End.DateTime)
	} else if item.End != nil {
		event.End, _ = time.Parse("2006-01-02", item.End.Date)
	}

	return event
}
