// Package serving is a voice-classifier client for an HTTP model server.
// The server owns the model; this client maps its label indices back onto
// registry names so labels never leak out of the derived mapping.
package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kurtvoice/kurt-core/core/audio"
	"github.com/kurtvoice/kurt-core/core/voice"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

// Roster exposes the registry names the label mapping is derived from.
type Roster interface {
	Names(ctx context.Context) ([]string, error)
}

type Client struct {
	baseUrl string
	roster  Roster

	httpClient *http.Client
}

func NewClient(baseUrl string, roster Roster) (*Client, error) {
	if baseUrl == "" {
		return nil, fmt.Errorf("classifier base url is required")
	}
	if roster == nil {
		return nil, fmt.Errorf("registry roster is required")
	}

	return &Client{
		baseUrl: baseUrl,
		roster:  roster,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}, nil
}

type predictResponse struct {
	Label int     `json:"label"`
	Score float64 `json:"score"`
}

// Predict posts the raw recording and maps the returned label index onto a
// name through a fresh registry snapshot.
func (c *Client) Predict(ctx context.Context, rec *audio.Recording) (voice.Prediction, error) {
	ctx, span := tracer.Start(ctx, "predict speaker")
	defer span.End()

	if rec.IsEmpty() {
		return voice.Prediction{Name: voice.Unknown}, nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseUrl+"/predict", bytes.NewReader(rec.PCM))
	if err != nil {
		return voice.Prediction{}, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Sample-Rate", fmt.Sprintf("%d", rec.Encoding.SampleRate))
	req.Header.Set("X-Encoding", rec.Encoding.Format.Name())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return voice.Prediction{}, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, string(errorBody))
		span.RecordError(err)
		return voice.Prediction{}, err
	}

	var respBody predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		span.RecordError(err)
		return voice.Prediction{}, fmt.Errorf("error unmarshalling response: %w", err)
	}

	names, err := c.roster.Names(ctx)
	if err != nil {
		return voice.Prediction{}, fmt.Errorf("failed to snapshot registry: %w", err)
	}

	prediction := voice.Prediction{
		Name:  voice.NameAt(names, respBody.Label),
		Score: respBody.Score,
	}
	span.SetAttributes(
		attribute.String("prediction.name", prediction.Name),
		attribute.Float64("prediction.score", prediction.Score),
	)
	return prediction, nil
}

// Retrain asks the model server for a full rebuild against the current
// roster and blocks until the replacement model is live.
func (c *Client) Retrain(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "retrain classifier")
	defer span.End()

	names, err := c.roster.Names(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot registry: %w", err)
	}

	requestBodyBytes, err := json.Marshal(struct {
		Users []string `json:"users"`
	}{Users: names})
	if err != nil {
		return fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseUrl+"/retrain", bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, string(errorBody))
		span.RecordError(err)
		return err
	}

	logger.InfoContext(ctx, "voice classifier retrained", "users", len(names))
	return nil
}
