package audio

import (
	"encoding/binary"
	"time"
)

// Recording is a captured stretch of raw audio together with the encoding
// it was captured under. One recording backs one utterance; it is written
// once by the capture path and read by the training-corpus store.
type Recording struct {
	PCM      []byte
	Encoding EncodingInfo
}

func NewRecording(encoding EncodingInfo) *Recording {
	if encoding.IsZero() {
		encoding = GetDefaultEncodingInfo()
	}
	return &Recording{Encoding: encoding}
}

func (r *Recording) Append(chunk []byte) {
	r.PCM = append(r.PCM, chunk...)
}

func (r *Recording) IsEmpty() bool {
	return r == nil || len(r.PCM) == 0
}

func (r *Recording) Duration() time.Duration {
	if r == nil {
		return 0
	}
	return r.Encoding.DurationOf(r.PCM)
}

// Samples decodes the payload into 16-bit samples. Only meaningful for
// linear16 recordings; other encodings return nil.
func (r *Recording) Samples() []int16 {
	if r == nil || r.Encoding.Format != EncodingLinear16 {
		return nil
	}

	samples := make([]int16, len(r.PCM)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(r.PCM[i*2:]))
	}
	return samples
}
