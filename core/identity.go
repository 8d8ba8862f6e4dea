package orchestration

import (
	"context"
	"fmt"
	"log"

	"github.com/kurtvoice/kurt-core/core/audio"
	"github.com/kurtvoice/kurt-core/core/voice"
)

// nameQuestion is what the question-answering model is asked to extract a
// name from a free-form reply like "my name is Kurt".
const nameQuestion = "What is the user's name?"

// resolveIdentity names the speaker of rec. The classifier's verdict is
// accepted at or above the identity threshold; below it, the
// uncertain-identity protocol negotiates the name directly with the user.
// Exhaustion degrades to Unknown, never to a failed engagement.
func (o *Orchestrator) resolveIdentity(ctx context.Context, rec *audio.Recording) (string, error) {
	ctx, span := tracer.Start(ctx, "resolve identity")
	defer span.End()

	if o.classifier == nil {
		return voice.Unknown, nil
	}

	prediction, err := o.classifier.Predict(ctx, rec)
	if err != nil {
		recordSpanError(span, err)
		return "", fmt.Errorf("failed to predict speaker: %w", err)
	}
	span.SetAttributes(scoreAttr.Float64(prediction.Score))

	name := prediction.Name
	if prediction.Score < o.identityThreshold {
		if name, err = o.uncertainIdentityProtocol(ctx); err != nil {
			recordSpanError(span, err)
			return "", err
		}
	}

	if name == voice.Unknown {
		o.say(ctx, "You are not a registered user, please go through the registration process first.")
	}
	return name, nil
}

// uncertainIdentityProtocol asks the speaker for their name and accepts it
// only when the extraction is confident and the name is registered. The
// protocol is bounded: after identityAttempts captured replies the speaker
// degrades to Unknown.
func (o *Orchestrator) uncertainIdentityProtocol(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "uncertain identity protocol")
	defer span.End()

	o.say(ctx, "Sorry, I'm not certain who is speaking, what is your name?")

	for attempt := 1; attempt <= o.identityAttempts; attempt++ {
		utterance, err := o.captureUtterance(ctx)
		if err != nil {
			return "", err
		}

		extraction, err := o.extractor.Answer(ctx, nameQuestion, utterance.Transcript)
		if err != nil {
			recordSpanError(span, err)
			return "", fmt.Errorf("failed to extract name: %w", err)
		}
		log.Println("Extracted name:", extraction.Answer, "score:", extraction.Score)

		if extraction.Score > o.extractionThreshold {
			registered, err := o.registry.Exists(ctx, extraction.Answer)
			if err != nil {
				recordSpanError(span, err)
				return "", fmt.Errorf("failed to look up user: %w", err)
			}
			if registered {
				o.say(ctx, "Thank you, I will recognize you next time")
				return extraction.Answer, nil
			}
		}

		if attempt < o.identityAttempts {
			o.say(ctx, "I couldn't find you. Please repeat your name.")
		}
	}

	log.Println("Uncertainty tries exceeded")
	return voice.Unknown, nil
}
