package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/kurtvoice/kurt-core/core/nlp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultEndpoint = "https://api-inference.huggingface.co/models"
	defaultModel    = "distilbert-base-cased-distilled-squad"
)

// Client answers extractive QA questions through the Hugging Face
// inference API.
type Client struct {
	endpoint string
	model    string
	apiKey   string

	httpClient *http.Client
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpoint = endpoint }
}

func NewClient(opts ...ClientOption) (*Client, error) {
	apiKey, ok := os.LookupEnv("HF_API_KEY")
	if !ok {
		return nil, fmt.Errorf("hugging face api key not found")
	}

	client := &Client{
		endpoint: defaultEndpoint,
		model:    defaultModel,
		apiKey:   apiKey,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

type requestBody struct {
	Inputs struct {
		Question string `json:"question"`
		Context  string `json:"context"`
	} `json:"inputs"`
}

type responseBody struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

// Answer runs the question against the passage and returns the extracted
// span with the model's confidence.
func (c *Client) Answer(ctx context.Context, question, passage string) (nlp.Extraction, error) {
	ctx, span := tracer.Start(ctx, "extract answer")
	defer span.End()

	reqBody := requestBody{}
	reqBody.Inputs.Question = question
	reqBody.Inputs.Context = passage

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nlp.Extraction{}, fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/"+c.model, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nlp.Extraction{}, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	span.SetAttributes(attribute.String("request.model", c.model))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nlp.Extraction{}, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, string(errorBody))
		span.RecordError(err)
		return nlp.Extraction{}, err
	}

	var respBody responseBody
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		span.RecordError(err)
		return nlp.Extraction{}, fmt.Errorf("error unmarshalling response: %w", err)
	}

	return nlp.Extraction{Answer: respBody.Answer, Score: respBody.Score}, nil
}
