package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/kurtvoice/kurt-core/core/audio"
	"github.com/kurtvoice/kurt-core/core/speechtotext"
)

const defaultMaxSilence = 30 * time.Second

// AudioCapture is the microphone backend a listen client records through.
type AudioCapture interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() audio.EncodingInfo
}

// ListenClient captures one utterance at a time: it streams microphone
// audio to Deepgram over a websocket and blocks until the service reports
// the utterance has ended.
type ListenClient struct {
	capture AudioCapture

	conn   *websocket.Conn
	connMu sync.Mutex
}

func NewListenClient(capture AudioCapture) (*ListenClient, error) {
	if capture == nil {
		return nil, fmt.Errorf("audio capture backend is required")
	}
	return &ListenClient{capture: capture}, nil
}

// Listen records until the end of the next utterance and returns its
// transcript together with the captured audio. It returns
// [speechtotext.ErrNoSpeech] when the utterance window closed without a
// usable transcript.
func (c *ListenClient) Listen(ctx context.Context, opts ...speechtotext.ListenOption) (*speechtotext.Utterance, error) {
	ctx, span := tracer.Start(ctx, "listen for utterance")
	defer span.End()

	options := &speechtotext.ListenOptions{
		EncodingInfo: c.capture.EncodingInfo(),
		MaxSilence:   defaultMaxSilence,
	}
	for _, opt := range opts {
		opt(options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}

	conn, err := connectWebsocket(connectionOptions{
		sampleRate: encoding.SampleRate,
		encoding:   encoding.Format.Name(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	recording := audio.NewRecording(options.EncodingInfo)
	var recordingMu sync.Mutex

	if err := c.capture.StartCapture(ctx, func(chunk []byte) {
		recordingMu.Lock()
		recording.Append(chunk)
		recordingMu.Unlock()

		if err := c.sendAudio(chunk); err != nil {
			logger.Warn("failed to forward audio to deepgram", "error", err)
		}
	}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to start audio capture: %w", err)
	}
	defer func() {
		if err := c.capture.StopCapture(); err != nil {
			logger.Warn("failed to stop audio capture", "error", err)
		}
		c.closeStream()
	}()

	transcript, err := c.awaitTranscript(ctx, conn, *options)
	if err != nil {
		return nil, err
	}

	recordingMu.Lock()
	defer recordingMu.Unlock()
	if transcript == "" {
		return nil, speechtotext.ErrNoSpeech
	}
	return &speechtotext.Utterance{Transcript: transcript, Audio: recording}, nil
}

type connectionOptions struct {
	sampleRate int
	encoding   string
}

func connectWebsocket(options connectionOptions) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	listenUrl, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", "nova-3")
	queryParams.Set("language", "en-US")
	queryParams.Set("smart_format", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("interim_results", "true")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")

	listenUrl.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(listenUrl.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, err
}

func (c *ListenClient) sendAudio(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return nil
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (c *ListenClient) closeStream() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return
	}
	if err := c.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		logger.Warn("failed to close deepgram stream", "error", err)
	}
	_ = c.conn.Close()
	c.conn = nil
}

// awaitTranscript drains websocket messages until the utterance ends, the
// silence window expires, or the context is cancelled.
func (c *ListenClient) awaitTranscript(ctx context.Context, conn *websocket.Conn, options speechtotext.ListenOptions) (string, error) {
	type result struct {
		transcript string
		err        error
	}
	resultC := make(chan result, 1)

	go func() {
		var accumulated string
		unendedSegment := false

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				if !strings.Contains(err.Error(), "normal") {
					logger.Warn("failed to read deepgram websocket message", "error", err)
				}
				resultC <- result{transcript: strings.TrimSpace(accumulated)}
				return
			}
			if msgType == websocket.BinaryMessage {
				continue
			}

			var parsedMsg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Warn("failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch api.TypeResponse(parsedMsg.Type) {
			case api.TypeMessageResponse:
				var msgResp api.MessageResponse
				if err := json.Unmarshal(msg, &msgResp); err != nil {
					logger.Warn("failed to unmarshal deepgram message", "error", err)
					continue
				}
				if len(msgResp.Channel.Alternatives) == 0 {
					continue
				}

				transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
				if msgResp.IsFinal {
					if len(transcript) > 0 {
						accumulated = strings.TrimSpace(accumulated + " " + transcript)
					}
					if msgResp.SpeechFinal && len(accumulated) > 0 {
						resultC <- result{transcript: accumulated}
						return
					}
				} else if len(transcript) > 0 && options.InterimTranscriptionCallback != nil {
					options.InterimTranscriptionCallback(strings.TrimSpace(accumulated + " " + transcript))
				}

			case api.TypeUtteranceEndResponse:
				if unendedSegment || len(accumulated) > 0 {
					resultC <- result{transcript: accumulated}
					return
				}

			case api.TypeSpeechStartedResponse:
				unendedSegment = true
				if options.SpeechStartedCallback != nil {
					options.SpeechStartedCallback()
				}
			}
		}
	}()

	maxSilence := options.MaxSilence
	if maxSilence <= 0 {
		maxSilence = defaultMaxSilence
	}

	select {
	case res := <-resultC:
		return res.transcript, res.err
	case <-time.After(maxSilence):
		return "", speechtotext.ErrNoSpeech
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
