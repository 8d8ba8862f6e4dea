package orchestration

import (
	"context"

	"github.com/kurtvoice/kurt-core/core/calendar"
	"github.com/kurtvoice/kurt-core/core/nlp"
	"github.com/kurtvoice/kurt-core/core/skills"
	"github.com/kurtvoice/kurt-core/core/speechtotext"
	"github.com/kurtvoice/kurt-core/core/texttospeech"
	"github.com/kurtvoice/kurt-core/core/voice"
)

type OrchestratorOption func(*Orchestrator)

// SpeechCapture records one utterance and blocks until it completes.
type SpeechCapture interface {
	Listen(ctx context.Context, opts ...speechtotext.ListenOption) (*speechtotext.Utterance, error)
}

func WithSpeechCapture(client SpeechCapture) OrchestratorOption {
	return func(o *Orchestrator) { o.speechCapture.set(client) }
}

// SpeechOutput synthesizes text and blocks until playback finishes.
type SpeechOutput interface {
	Speak(ctx context.Context, text string, opts ...texttospeech.SpeakOption) error
}

func WithSpeechOutput(client SpeechOutput) OrchestratorOption {
	return func(o *Orchestrator) { o.speechOutput.set(client) }
}

func WithVoiceClassifier(classifier voice.Classifier) OrchestratorOption {
	return func(o *Orchestrator) { o.classifier = classifier }
}

func WithNameExtractor(extractor nlp.Extractor) OrchestratorOption {
	return func(o *Orchestrator) { o.extractor = extractor }
}

func WithCalendarService(service calendar.Service) OrchestratorOption {
	return func(o *Orchestrator) { o.calendarService = service }
}

// Registry is the user store. Names returns a point-in-time snapshot;
// voice labels must be derived from a single snapshot at a time.
type Registry interface {
	Exists(ctx context.Context, name string) (bool, error)
	Add(ctx context.Context, name string) error
	AddToken(ctx context.Context, name string) error
	Names(ctx context.Context) ([]string, error)
}

func WithRegistry(registry Registry) OrchestratorOption {
	return func(o *Orchestrator) { o.registry = registry }
}

// Corpus holds the append-only engagement records used as classifier
// training data.
type Corpus interface {
	Append(ctx context.Context, record EngagementRecord) error
}

func WithCorpus(corpus Corpus) OrchestratorOption {
	return func(o *Orchestrator) { o.corpus = corpus }
}

// SkillRunner classifies a query and executes the matching skill.
type SkillRunner interface {
	Dispatch(ctx context.Context, query []string, name string, capability calendar.Capability) skills.Outcome
}

func WithSkillDispatcher(dispatcher SkillRunner) OrchestratorOption {
	return func(o *Orchestrator) { o.skills = dispatcher }
}

// Teleprompter displays a bootstrap reading script and returns its text.
type Teleprompter interface {
	DisplayScript() string
}

func WithTeleprompter(teleprompter Teleprompter) OrchestratorOption {
	return func(o *Orchestrator) { o.teleprompter = teleprompter }
}

func WithActivationPhrase(phrase string) OrchestratorOption {
	return func(o *Orchestrator) { o.activationPhrase = phrase }
}

// WithIdentityThreshold sets the minimum classifier confidence under which
// the uncertain-identity protocol starts.
func WithIdentityThreshold(threshold float64) OrchestratorOption {
	return func(o *Orchestrator) { o.identityThreshold = threshold }
}

// WithExtractionThreshold sets the minimum name-extraction confidence for
// accepting an answer from the question-answering model.
func WithExtractionThreshold(threshold float64) OrchestratorOption {
	return func(o *Orchestrator) { o.extractionThreshold = threshold }
}

func WithIdentityAttempts(attempts int) OrchestratorOption {
	return func(o *Orchestrator) { o.identityAttempts = attempts }
}

func WithBootstrapSamples(samples int) OrchestratorOption {
	return func(o *Orchestrator) { o.bootstrapSamples = samples }
}
