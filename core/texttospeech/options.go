package texttospeech

import "github.com/kurtvoice/kurt-core/core/audio"

type SpeakOptions struct {
	// SpeechAudioCallback is called with synthesized audio as it arrives,
	// before it is handed to the playback device.
	SpeechAudioCallback func(audio []byte)

	EncodingInfo audio.EncodingInfo
}

type SpeakOption func(*SpeakOptions)

func WithSpeechAudioCallback(callback func([]byte)) SpeakOption {
	return func(o *SpeakOptions) {
		o.SpeechAudioCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SpeakOption {
	return func(o *SpeakOptions) {
		o.EncodingInfo = encodingInfo
	}
}
