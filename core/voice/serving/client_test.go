package serving

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kurtvoice/kurt-core/core/audio"
	"github.com/kurtvoice/kurt-core/core/voice"
)

type rosterStub struct {
	names []string
}

func (r *rosterStub) Names(ctx context.Context) ([]string, error) {
	return r.names, nil
}

func testRecording(t *testing.T) *audio.Recording {
	t.Helper()
	rec := audio.NewRecording(audio.GetDefaultEncodingInfo())
	rec.Append([]byte{0x01, 0x00, 0x02, 0x00})
	return rec
}

func TestPredictMapsLabelThroughRoster(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("path = %q, want /predict", r.URL.Path)
		}
		if r.Header.Get("X-Encoding") != "linear16" {
			t.Errorf("X-Encoding = %q", r.Header.Get("X-Encoding"))
		}
		json.NewEncoder(w).Encode(predictResponse{Label: 1, Score: 0.88})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, &rosterStub{names: []string{"Paul", "Alice", "Mira"}})
	if err != nil {
		t.Fatal(err)
	}

	prediction, err := client.Predict(context.Background(), testRecording(t))
	if err != nil {
		t.Fatal(err)
	}

	// Label 1 is the second name in alphabetical order.
	if prediction.Name != "Mira" {
		t.Errorf("Name = %q, want Mira", prediction.Name)
	}
	if prediction.Score != 0.88 {
		t.Errorf("Score = %v, want 0.88", prediction.Score)
	}
}

func TestPredictOutOfRangeLabelIsUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{Label: 7, Score: 0.99})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, &rosterStub{names: []string{"Alice"}})
	if err != nil {
		t.Fatal(err)
	}

	prediction, err := client.Predict(context.Background(), testRecording(t))
	if err != nil {
		t.Fatal(err)
	}
	if prediction.Name != voice.Unknown {
		t.Errorf("Name = %q, want %q", prediction.Name, voice.Unknown)
	}
}

func TestPredictEmptyRecordingSkipsServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called for an empty recording")
	}))
	defer server.Close()

	client, err := NewClient(server.URL, &rosterStub{})
	if err != nil {
		t.Fatal(err)
	}

	prediction, err := client.Predict(context.Background(), audio.NewRecording(audio.GetDefaultEncodingInfo()))
	if err != nil {
		t.Fatal(err)
	}
	if prediction.Name != voice.Unknown {
		t.Errorf("Name = %q, want %q", prediction.Name, voice.Unknown)
	}
}

func TestRetrainPostsRoster(t *testing.T) {
	var received struct {
		Users []string `json:"users"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/retrain" {
			t.Errorf("path = %q, want /retrain", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL, &rosterStub{names: []string{"Alice", "Paul"}})
	if err != nil {
		t.Fatal(err)
	}

	if err := client.Retrain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(received.Users) != 2 {
		t.Errorf("Users = %v, want 2 names", received.Users)
	}
}

func TestRetrainSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rebuild failed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, &rosterStub{})
	if err != nil {
		t.Fatal(err)
	}

	if err := client.Retrain(context.Background()); err == nil {
		t.Error("expected an error for a failed rebuild")
	}
}
