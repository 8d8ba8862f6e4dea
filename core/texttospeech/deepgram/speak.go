package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"

	"github.com/kurtvoice/kurt-core/core/audio"
	"github.com/kurtvoice/kurt-core/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const speakUrl = "https://api.deepgram.com/v1/speak"

// AudioPlayback is the speaker backend synthesized audio is played through.
type AudioPlayback interface {
	StartPlayback() error
	SendAudio(audio []byte) error
	Drain() error
}

type deepgramVoice string

const (
	VoiceAsteria   deepgramVoice = "aura-2-asteria-en"
	VoiceOrion     deepgramVoice = "aura-2-orion-en"
	VoiceLuna      deepgramVoice = "aura-2-luna-en"
	VoiceArcas     deepgramVoice = "aura-2-arcas-en"
	VoiceAndromeda deepgramVoice = "aura-2-andromeda-en"

	defaultVoice = VoiceOrion
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{VoiceAsteria, VoiceOrion, VoiceLuna, VoiceArcas, VoiceAndromeda}
}

// VoiceFromName maps a configured voice name onto a known voice, falling
// back to the default when the name is empty.
func VoiceFromName(name string) (deepgramVoice, error) {
	if name == "" {
		return defaultVoice, nil
	}

	voice := deepgramVoice(name)
	if !slices.Contains(GetAvailableVoices(), voice) {
		return "", fmt.Errorf("unknown voice %q", name)
	}
	return voice, nil
}

// SpeakClient synthesizes speech through Deepgram's REST endpoint and plays
// it back synchronously.
type SpeakClient struct {
	playback AudioPlayback
	voice    deepgramVoice
}

func NewSpeakClient(playback AudioPlayback, voice deepgramVoice) (*SpeakClient, error) {
	if playback == nil {
		return nil, fmt.Errorf("audio playback backend is required")
	}

	client := &SpeakClient{playback: playback, voice: defaultVoice}
	if voice != "" {
		if !slices.Contains(GetAvailableVoices(), voice) {
			return nil, fmt.Errorf("invalid voice")
		}
		client.voice = voice
	}

	return client, nil
}

// Speak synthesizes text and blocks until playback has finished.
func (c *SpeakClient) Speak(ctx context.Context, text string, opts ...texttospeech.SpeakOption) error {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()

	options := &texttospeech.SpeakOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(options)
	}

	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return fmt.Errorf("deepgram api key not found")
	}

	requestBodyBytes, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return fmt.Errorf("error marshalling JSON: %w", err)
	}

	requestUrl, _ := url.Parse(speakUrl)
	queryParams := requestUrl.Query()
	queryParams.Set("model", string(c.voice))
	queryParams.Set("encoding", options.EncodingInfo.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(options.EncodingInfo.SampleRate))
	queryParams.Set("container", "none")
	requestUrl.RawQuery = queryParams.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", requestUrl.String(), bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+apiKey)

	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
			return operationName + " " + request.URL.Path
		}),
	)}
	resp, err := client.Do(req)
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

	if err := c.playback.StartPlayback(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	buffer := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			if options.SpeechAudioCallback != nil {
				options.SpeechAudioCallback(chunk)
			}
			if err := c.playback.SendAudio(chunk); err != nil {
				return fmt.Errorf("failed to buffer playback audio: %w", err)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("error reading response body: %w", err)
		}
	}

	if err := c.playback.Drain(); err != nil {
		return fmt.Errorf("failed to drain playback: %w", err)
	}
	return nil
}
