// Package orchestration runs the engagement loop: capture an utterance,
// resolve who spoke it, and either dispatch a skill (active engagement) or
// silently record the utterance as training data (passive engagement).
package orchestration

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/kurtvoice/kurt-core/core/calendar"
	"github.com/kurtvoice/kurt-core/core/nlp"
	"github.com/kurtvoice/kurt-core/core/speechtotext"
	"github.com/kurtvoice/kurt-core/core/voice"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultActivationPhrase    = "hi kurt"
	defaultIdentityThreshold   = 0.7
	defaultExtractionThreshold = 0.7
	defaultIdentityAttempts    = 2
	defaultBootstrapSamples    = 5
)

// registrationKeywords trigger the new-user registration protocol. The
// match is a plain substring search over the query.
var registrationKeywords = []string{"new", "user", "register", "registration"}

// ErrLoopTerminated reports that the engagement loop ended through the
// exit skill rather than through context cancellation.
var ErrLoopTerminated = errors.New("engagement loop terminated")

type Orchestrator struct {
	speechCapture speechCaptureFacade
	speechOutput  speechOutputFacade

	classifier      voice.Classifier
	extractor       nlp.Extractor
	calendarService calendar.Service
	registry        Registry
	corpus          Corpus
	skills          SkillRunner
	teleprompter    Teleprompter

	activationPhrase    string
	identityThreshold   float64
	extractionThreshold float64
	identityAttempts    int
	bootstrapSamples    int
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	orchestrator := &Orchestrator{
		activationPhrase:    defaultActivationPhrase,
		identityThreshold:   defaultIdentityThreshold,
		extractionThreshold: defaultExtractionThreshold,
		identityAttempts:    defaultIdentityAttempts,
		bootstrapSamples:    defaultBootstrapSamples,
	}

	for _, opt := range opts {
		opt(orchestrator)
	}

	return orchestrator
}

// Run drives the engagement loop until the exit skill fires or ctx is
// cancelled. Iterations are strictly sequential: capture, identify,
// engage and record never overlap.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "engagement loop")
	defer span.End()

	o.say(ctx, "Hello, I'm Kurt")

	for {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Ok, "cancelled")
			return err
		}

		if err := o.engageOnce(ctx); err != nil {
			if errors.Is(err, ErrLoopTerminated) {
				span.SetStatus(codes.Ok, "terminated")
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			// Nothing inside an engagement is fatal to the loop.
			log.Println("Engagement failed:", err)
		}
	}
}

func (o *Orchestrator) engageOnce(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "engagement")
	defer span.End()

	o.say(ctx, "How can I help you?")
	utterance, err := o.captureUtterance(ctx)
	if err != nil {
		return err
	}

	name, err := o.resolveIdentity(ctx, utterance.Audio)
	if err != nil {
		return err
	}
	span.SetAttributes(identityAttr.String(name))

	if strings.Contains(strings.ToLower(utterance.Transcript), o.activationPhrase) {
		return o.activeEngagement(ctx, utterance, name)
	}

	o.recordEngagement(ctx, utterance.Transcript, utterance.Audio, name, EngagementPassive, nil)
	return nil
}

// activeEngagement either starts new-user registration or strips the
// activation phrase and runs the requested skill.
func (o *Orchestrator) activeEngagement(ctx context.Context, utterance *speechtotext.Utterance, name string) error {
	if isRegistrationQuery(utterance.Transcript) {
		return o.registerNewUser(ctx, utterance)
	}

	var capability calendar.Capability
	if name != "" && name != voice.Unknown && o.calendarService != nil {
		authorized, err := o.calendarService.Authorize(ctx, name)
		if err != nil {
			log.Println("Calendar authorization failed:", err)
		} else {
			capability = authorized
		}
	}

	query := strings.Fields(strings.ReplaceAll(strings.ToLower(utterance.Transcript), o.activationPhrase, ""))

	// The Unknown speaker gets skill responses without personalization.
	spokenName := name
	if spokenName == voice.Unknown {
		spokenName = ""
	}

	outcome := o.skills.Dispatch(ctx, query, spokenName, capability)
	o.say(ctx, outcome.Response)
	o.recordEngagement(ctx, strings.Join(query, " "), utterance.Audio, name, EngagementActive, &outcome.Command)

	if outcome.Exit {
		return ErrLoopTerminated
	}
	return nil
}

func isRegistrationQuery(transcript string) bool {
	lowered := strings.ToLower(transcript)
	for _, keyword := range registrationKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// say speaks the response, degrading to a log line when synthesis fails.
// A failed response never fails the engagement.
func (o *Orchestrator) say(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if !o.speechOutput.isConfigured() {
		log.Println("Kurt:", text)
		return
	}
	if err := o.speechOutput.Speak(ctx, text); err != nil {
		log.Println("Failed to speak response:", err)
		log.Println("Kurt:", text)
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
