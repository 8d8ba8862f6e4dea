package orchestration

import (
	"context"
	"fmt"
	"log"

	"github.com/kurtvoice/kurt-core/core/speechtotext"
)

// registerNewUser walks the full registration protocol: negotiate a unique
// name, authorize calendar access, bootstrap voice samples, and retrain
// the classifier so the new user is predictable before the next
// engagement.
func (o *Orchestrator) registerNewUser(ctx context.Context, utterance *speechtotext.Utterance) error {
	ctx, span := tracer.Start(ctx, "register new user")
	defer span.End()

	name, err := o.negotiateName(ctx)
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	span.SetAttributes(identityAttr.String(name))

	o.say(ctx, "Please give me calendar access so I can begin helping you with your schedule.")
	if o.calendarService != nil {
		if _, err := o.calendarService.Authorize(ctx, name); err != nil {
			// Registration carries on; the user can reauthorize later.
			log.Println("Calendar authorization failed:", err)
		} else if err := o.registry.AddToken(ctx, name); err != nil {
			recordSpanError(span, err)
			return fmt.Errorf("failed to store calendar token: %w", err)
		}
	}

	if err := o.bootstrapVoiceSamples(ctx, name, utterance); err != nil {
		recordSpanError(span, err)
		return err
	}

	if o.classifier != nil {
		if err := o.classifier.Retrain(ctx); err != nil {
			recordSpanError(span, err)
			return fmt.Errorf("failed to retrain voice model: %w", err)
		}
	}
	return nil
}

// negotiateName loops until the user provides a confidently extracted name
// that is not yet registered. Unlike the uncertain-identity protocol this
// loop has no attempt bound; low-confidence extractions reprompt silently.
func (o *Orchestrator) negotiateName(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "negotiate name")
	defer span.End()

	o.say(ctx, "What is your name?")

	for {
		utterance, err := o.captureUtterance(ctx)
		if err != nil {
			return "", err
		}

		extraction, err := o.extractor.Answer(ctx, nameQuestion, utterance.Transcript)
		if err != nil {
			return "", fmt.Errorf("failed to extract name: %w", err)
		}
		if extraction.Score <= o.extractionThreshold {
			continue
		}

		taken, err := o.registry.Exists(ctx, extraction.Answer)
		if err != nil {
			return "", fmt.Errorf("failed to look up user: %w", err)
		}
		if taken {
			o.say(ctx, "That username is already taken, please choose another")
			continue
		}

		if err := o.registry.Add(ctx, extraction.Answer); err != nil {
			return "", fmt.Errorf("failed to register user: %w", err)
		}
		o.say(ctx, "Nice to meet you, your username is "+extraction.Answer)
		return extraction.Answer, nil
	}
}

// bootstrapVoiceSamples collects the initial training data for a new user:
// the registration utterance itself plus bootstrapSamples read-aloud
// scripts.
func (o *Orchestrator) bootstrapVoiceSamples(ctx context.Context, name string, utterance *speechtotext.Utterance) error {
	ctx, span := tracer.Start(ctx, "bootstrap voice samples")
	defer span.End()

	o.recordEngagement(ctx, utterance.Transcript, utterance.Audio, name, EngagementBootstrap, nil)

	o.say(ctx, "For voice recognition purposes please follow the next instructions.")
	for sample := 0; sample < o.bootstrapSamples; sample++ {
		o.say(ctx, "Please read out loud the displayed script")
		if o.teleprompter != nil {
			o.teleprompter.DisplayScript()
		}

		reading, err := o.captureUtterance(ctx)
		if err != nil {
			return err
		}
		o.recordEngagement(ctx, reading.Transcript, reading.Audio, name, EngagementBootstrap, nil)
	}

	o.say(ctx, "Thank you "+name+" you are successfully registered")
	return nil
}
