package speechtotext

import (
	"errors"
	"time"

	"github.com/kurtvoice/kurt-core/core/audio"
)

// ErrNoSpeech is returned by a listen client when the microphone produced
// audio but nothing could be transcribed from it.
var ErrNoSpeech = errors.New("no speech understood")

// Utterance is one captured user turn: the transcript plus the raw audio it
// was produced from. The audio is kept so the interaction can be stored as
// classifier training data.
type Utterance struct {
	Transcript string
	Audio      *audio.Recording
}

type ListenOptions struct {
	// SpeechStartedCallback fires when voice activity is first detected.
	SpeechStartedCallback func()
	// InterimTranscriptionCallback fires with in-progress transcripts.
	InterimTranscriptionCallback func(transcript string)

	// MaxSilence bounds how long the client waits for speech to start
	// before giving up on the utterance.
	MaxSilence time.Duration

	EncodingInfo audio.EncodingInfo
}

type ListenOption func(*ListenOptions)

func WithSpeechStartedCallback(callback func()) ListenOption {
	return func(o *ListenOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) ListenOption {
	return func(o *ListenOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithMaxSilence(maxSilence time.Duration) ListenOption {
	return func(o *ListenOptions) {
		o.MaxSilence = maxSilence
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) ListenOption {
	return func(o *ListenOptions) {
		o.EncodingInfo = encodingInfo
	}
}
