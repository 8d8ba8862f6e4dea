package orchestration

import (
	"context"
	"errors"
	"log"

	"github.com/kurtvoice/kurt-core/core/speechtotext"
	"github.com/kurtvoice/kurt-core/core/texttospeech"
)

type speechCaptureFacade struct {
	client SpeechCapture
}

func (f *speechCaptureFacade) set(client SpeechCapture) {
	f.client = client
}

func (f *speechCaptureFacade) isConfigured() bool {
	return f.client != nil
}

func (f *speechCaptureFacade) Listen(ctx context.Context, opts ...speechtotext.ListenOption) (*speechtotext.Utterance, error) {
	return f.client.Listen(ctx, opts...)
}

type speechOutputFacade struct {
	client SpeechOutput
}

func (f *speechOutputFacade) set(client SpeechOutput) {
	f.client = client
}

func (f *speechOutputFacade) isConfigured() bool {
	return f.client != nil
}

func (f *speechOutputFacade) Speak(ctx context.Context, text string, opts ...texttospeech.SpeakOption) error {
	return f.client.Speak(ctx, text, opts...)
}

// captureUtterance records one utterance, retrying until a transcription
// comes through. Failed attempts apologize out loud and try again; they
// are invisible to callers and never consume protocol attempts.
func (o *Orchestrator) captureUtterance(ctx context.Context) (*speechtotext.Utterance, error) {
	ctx, span := tracer.Start(ctx, "capture utterance")
	defer span.End()

	if !o.speechCapture.isConfigured() {
		err := errors.New("no speech capture configured")
		recordSpanError(span, err)
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log.Println("Listening for a command")
		utterance, err := o.speechCapture.Listen(ctx)
		if err == nil && utterance.Transcript != "" {
			return utterance, nil
		}
		if err != nil && !errors.Is(err, speechtotext.ErrNoSpeech) {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			log.Println("Failed to capture utterance:", err)
		}

		o.say(ctx, "Pardon me, I did not quite catch that")
	}
}
