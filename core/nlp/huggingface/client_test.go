package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestAnswerExtractsNameFromPassage(t *testing.T) {
	t.Setenv("HF_API_KEY", "test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}

		var body requestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Inputs.Question != "What is the user's name?" {
			t.Errorf("question = %q", body.Inputs.Question)
		}

		json.NewEncoder(w).Encode(responseBody{Answer: "Alice", Score: 0.93})
	}))
	defer server.Close()

	client, err := NewClient(WithEndpoint(server.URL), WithModel("qa-model"))
	if err != nil {
		t.Fatal(err)
	}

	extraction, err := client.Answer(context.Background(), "What is the user's name?", "my name is Alice")
	if err != nil {
		t.Fatal(err)
	}
	if extraction.Answer != "Alice" {
		t.Errorf("Answer = %q, want Alice", extraction.Answer)
	}
	if extraction.Score != 0.93 {
		t.Errorf("Score = %v, want 0.93", extraction.Score)
	}
}

func TestAnswerSurfacesApiError(t *testing.T) {
	t.Setenv("HF_API_KEY", "test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(WithEndpoint(server.URL))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Answer(context.Background(), "q", "passage"); err == nil {
		t.Error("expected an error for a non-OK response")
	}
}

func TestNewClientRequiresApiKey(t *testing.T) {
	t.Setenv("HF_API_KEY", "restored-after-test")
	os.Unsetenv("HF_API_KEY")

	if _, err := NewClient(); err == nil {
		t.Error("expected an error without an api key")
	}
}
