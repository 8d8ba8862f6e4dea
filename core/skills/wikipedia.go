package skills

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrNoResult signals a lookup that matched no articles.
var ErrNoResult = errors.New("no result received")

const (
	wikipediaSearchUrl  = "https://en.wikipedia.org/w/api.php"
	wikipediaSummaryUrl = "https://en.wikipedia.org/api/rest_v1/page/summary/"
)

// Wikipedia resolves subjects to article summaries through the public
// MediaWiki APIs. Ambiguous subjects resolve to the first alternative
// title from the search results.
type Wikipedia struct {
	client *http.Client
}

func NewWikipedia() *Wikipedia {
	return &Wikipedia{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return fmt.Sprintf("%s %s", r.Method, r.URL.Host)
				}),
			),
		},
	}
}

func (w *Wikipedia) Summary(ctx context.Context, subject string) (string, error) {
	titles, err := w.search(ctx, subject)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return "", ErrNoResult
	}

	summary, ambiguous, err := w.pageSummary(ctx, titles[0])
	if err != nil {
		return "", err
	}
	if ambiguous {
		if len(titles) < 2 {
			return "", ErrNoResult
		}
		summary, _, err = w.pageSummary(ctx, titles[1])
		if err != nil {
			return "", err
		}
	}
	return summary, nil
}

func (w *Wikipedia) search(ctx context.Context, subject string) ([]string, error) {
	query := url.Values{
		"action": {"opensearch"},
		"search": {subject},
		"limit":  {"5"},
		"format": {"json"},
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, wikipediaSearchUrl+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	response, err := w.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", response.StatusCode)
	}

	// Opensearch responds with [query, titles, descriptions, urls].
	result := []json.RawMessage{}
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	titles := []string{}
	if err := json.Unmarshal(result[1], &titles); err != nil {
		return nil, fmt.Errorf("failed to decode search titles: %w", err)
	}
	return titles, nil
}

func (w *Wikipedia) pageSummary(ctx context.Context, title string) (summary string, ambiguous bool, err error) {
	endpoint := wikipediaSummaryUrl + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to create summary request: %w", err)
	}

	response, err := w.client.Do(request)
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch summary: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode == http.StatusNotFound {
		return "", false, ErrNoResult
	}
	if response.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("summary returned status %d", response.StatusCode)
	}

	page := struct {
		Type    string `json:"type"`
		Extract string `json:"extract"`
	}{}
	if err := json.NewDecoder(response.Body).Decode(&page); err != nil {
		return "", false, fmt.Errorf("failed to decode summary response: %w", err)
	}
	return page.Extract, page.Type == "disambiguation", nil
}
