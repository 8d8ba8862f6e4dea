package orchestration

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/kurtvoice/kurt-core/core/audio"
	"github.com/kurtvoice/kurt-core/core/calendar"
	"github.com/kurtvoice/kurt-core/core/nlp"
	"github.com/kurtvoice/kurt-core/core/skills"
	"github.com/kurtvoice/kurt-core/core/speechtotext"
	"github.com/kurtvoice/kurt-core/core/texttospeech"
	"github.com/kurtvoice/kurt-core/core/voice"
)

type captureStub struct {
	transcripts []string
}

func (c *captureStub) Listen(ctx context.Context, opts ...speechtotext.ListenOption) (*speechtotext.Utterance, error) {
	if len(c.transcripts) == 0 {
		return nil, context.Canceled
	}
	transcript := c.transcripts[0]
	c.transcripts = c.transcripts[1:]
	if transcript == "" {
		return nil, speechtotext.ErrNoSpeech
	}
	return &speechtotext.Utterance{
		Transcript: transcript,
		Audio:      audio.NewRecording(audio.GetDefaultEncodingInfo()),
	}, nil
}

type speakerStub struct {
	spoken []string
}

func (s *speakerStub) Speak(ctx context.Context, text string, opts ...texttospeech.SpeakOption) error {
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *speakerStub) said(text string) bool {
	return slices.Contains(s.spoken, text)
}

func (s *speakerStub) saidPrefix(prefix string) bool {
	for _, line := range s.spoken {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

type classifierStub struct {
	predictions []voice.Prediction
	retrained   int
}

func (c *classifierStub) Predict(ctx context.Context, rec *audio.Recording) (voice.Prediction, error) {
	if len(c.predictions) == 0 {
		return voice.Prediction{Name: voice.Unknown, Score: 1}, nil
	}
	prediction := c.predictions[0]
	if len(c.predictions) > 1 {
		c.predictions = c.predictions[1:]
	}
	return prediction, nil
}

func (c *classifierStub) Retrain(ctx context.Context) error {
	c.retrained++
	return nil
}

type extractorStub struct {
	extractions []nlp.Extraction
}

func (e *extractorStub) Answer(ctx context.Context, question, passage string) (nlp.Extraction, error) {
	if len(e.extractions) == 0 {
		return nlp.Extraction{}, nil
	}
	extraction := e.extractions[0]
	e.extractions = e.extractions[1:]
	return extraction, nil
}

type registryStub struct {
	names  []string
	tokens []string
}

func (r *registryStub) Exists(ctx context.Context, name string) (bool, error) {
	return slices.Contains(r.names, name), nil
}

func (r *registryStub) Add(ctx context.Context, name string) error {
	r.names = append(r.names, name)
	return nil
}

func (r *registryStub) AddToken(ctx context.Context, name string) error {
	r.tokens = append(r.tokens, name)
	return nil
}

func (r *registryStub) Names(ctx context.Context) ([]string, error) {
	return slices.Clone(r.names), nil
}

type corpusStub struct {
	records []EngagementRecord
}

func (c *corpusStub) Append(ctx context.Context, record EngagementRecord) error {
	c.records = append(c.records, record)
	return nil
}

type calendarServiceStub struct {
	authorized []string
}

func (s *calendarServiceStub) Authorize(ctx context.Context, name string) (calendar.Capability, error) {
	s.authorized = append(s.authorized, name)
	return &capabilityStub{}, nil
}

type capabilityStub struct{}

func (c *capabilityStub) EventsOn(ctx context.Context, day time.Time) ([]calendar.Event, error) {
	return nil, nil
}

func (c *capabilityStub) EventsBetween(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	return nil, nil
}

func (c *capabilityStub) CreateEvent(ctx context.Context, draft calendar.EventDraft) error {
	return nil
}

type teleprompterStub struct {
	displayed int
}

func (t *teleprompterStub) DisplayScript() string {
	t.displayed++
	return "a script"
}

type fixture struct {
	capture      *captureStub
	speaker      *speakerStub
	classifier   *classifierStub
	extractor    *extractorStub
	registry     *registryStub
	corpus       *corpusStub
	calendars    *calendarServiceStub
	teleprompter *teleprompterStub
}

func newFixture(transcripts ...string) *fixture {
	return &fixture{
		capture:      &captureStub{transcripts: transcripts},
		speaker:      &speakerStub{},
		classifier:   &classifierStub{},
		extractor:    &extractorStub{},
		registry:     &registryStub{},
		corpus:       &corpusStub{},
		calendars:    &calendarServiceStub{},
		teleprompter: &teleprompterStub{},
	}
}

func (f *fixture) orchestrator(opts ...OrchestratorOption) *Orchestrator {
	clock := func() time.Time {
		return time.Date(2026, time.August, 12, 14, 30, 0, 0, time.UTC)
	}
	dispatcher := skills.NewDispatcher(
		skills.WithClock(clock),
		skills.WithJokePicker(func() string { return "a joke" }),
		skills.WithUrlOpener(func(string) error { return nil }),
	)

	base := []OrchestratorOption{
		WithSpeechCapture(f.capture),
		WithSpeechOutput(f.speaker),
		WithVoiceClassifier(f.classifier),
		WithNameExtractor(f.extractor),
		WithCalendarService(f.calendars),
		WithRegistry(f.registry),
		WithCorpus(f.corpus),
		WithSkillDispatcher(dispatcher),
		WithTeleprompter(f.teleprompter),
	}
	return NewOrchestrator(append(base, opts...)...)
}

func TestRunTerminatesOnExitSkill(t *testing.T) {
	f := newFixture("hi kurt goodbye")
	f.classifier.predictions = []voice.Prediction{{Name: "Alice", Score: 0.95}}
	f.registry.names = []string{"Alice"}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if !f.speaker.said("Hello, I'm Kurt") {
		t.Error("greeting was not spoken")
	}
	if !f.speaker.said("goodbye") {
		t.Error("farewell was not spoken")
	}
}

func TestKnownUserTimeQuery(t *testing.T) {
	f := newFixture("hi kurt what time is it", "hi kurt goodbye")
	f.classifier.predictions = []voice.Prediction{{Name: "Alice", Score: 0.95}}
	f.registry.names = []string{"Alice"}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if !f.speaker.said("Alice the current time is 02:30 PM") {
		t.Errorf("time response missing, spoken: %q", f.speaker.spoken)
	}

	if len(f.corpus.records) == 0 {
		t.Fatal("no engagement records")
	}
	record := f.corpus.records[0]
	if record.Kind != EngagementActive {
		t.Errorf("Kind = %v, want %v", record.Kind, EngagementActive)
	}
	if record.UserName != "Alice" {
		t.Errorf("UserName = %q, want Alice", record.UserName)
	}
	if record.Command == nil || *record.Command != skills.CommandTime {
		t.Errorf("Command = %v, want TIME", record.Command)
	}
	if record.Transcript != "what time is it" {
		t.Errorf("Transcript = %q, want activation phrase stripped", record.Transcript)
	}
}

func TestPassiveEngagementRecordsWithoutResponse(t *testing.T) {
	f := newFixture("just chatting with a friend", "hi kurt goodbye")
	f.classifier.predictions = []voice.Prediction{{Name: "Alice", Score: 0.95}}
	f.registry.names = []string{"Alice"}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if len(f.corpus.records) != 2 {
		t.Fatalf("got %d records, want 2", len(f.corpus.records))
	}
	if f.corpus.records[0].Kind != EngagementPassive {
		t.Errorf("Kind = %v, want %v", f.corpus.records[0].Kind, EngagementPassive)
	}
	if f.corpus.records[0].Command != nil {
		t.Error("passive record should carry no command")
	}
}

func TestUnknownUserIsDeniedCalendarAccess(t *testing.T) {
	f := newFixture("hi kurt read my schedule", "hi kurt goodbye")
	f.classifier.predictions = []voice.Prediction{{Name: voice.Unknown, Score: 0.9}}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if !f.speaker.said("You are not a registered user, please go through the registration process first.") {
		t.Error("unregistered-user notice was not spoken")
	}
	if !f.speaker.saidPrefix("As an Unknown user") {
		t.Errorf("access-denied response missing, spoken: %q", f.speaker.spoken)
	}
	if len(f.calendars.authorized) != 0 {
		t.Errorf("calendar was authorized for %v, want no authorization", f.calendars.authorized)
	}

	// Unknown is a valid training label; the record is kept.
	if len(f.corpus.records) == 0 || f.corpus.records[0].UserName != voice.Unknown {
		t.Error("engagement was not recorded under the Unknown label")
	}
}

func TestRecordingSkippedForBlankName(t *testing.T) {
	f := newFixture("just chatting with a friend", "hi kurt goodbye")
	f.classifier.predictions = []voice.Prediction{
		{Name: "", Score: 0.95},
		{Name: "Alice", Score: 0.95},
	}
	f.registry.names = []string{"Alice"}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	for _, record := range f.corpus.records {
		if record.Kind == EngagementPassive {
			t.Error("blank-name engagement should not be recorded")
		}
	}
}

func TestUncertainIdentityAcceptsRegisteredName(t *testing.T) {
	f := newFixture("hi kurt what time is it", "my name is Alice", "hi kurt goodbye")
	f.classifier.predictions = []voice.Prediction{
		{Name: voice.Unknown, Score: 0.4},
		{Name: "Alice", Score: 0.95},
	}
	f.extractor.extractions = []nlp.Extraction{{Answer: "Alice", Score: 0.9}}
	f.registry.names = []string{"Alice"}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if !f.speaker.said("Sorry, I'm not certain who is speaking, what is your name?") {
		t.Error("uncertainty prompt was not spoken")
	}
	if !f.speaker.said("Thank you, I will recognize you next time") {
		t.Error("acknowledgement was not spoken")
	}
	if !f.speaker.said("Alice the current time is 02:30 PM") {
		t.Errorf("personalized response missing, spoken: %q", f.speaker.spoken)
	}
}

func TestUncertainIdentityExhaustionDegradesToUnknown(t *testing.T) {
	f := newFixture("hi kurt what time is it", "mumble", "mumble again", "hi kurt goodbye")
	f.classifier.predictions = []voice.Prediction{
		{Name: "Alice", Score: 0.4},
		{Name: "Alice", Score: 0.95},
	}
	f.extractor.extractions = []nlp.Extraction{
		{Answer: "mumble", Score: 0.1},
		{Answer: "mumble", Score: 0.1},
	}
	f.registry.names = []string{"Alice"}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	// The reprompt is spoken after the first failed attempt only.
	reprompts := 0
	for _, line := range f.speaker.spoken {
		if line == "I couldn't find you. Please repeat your name." {
			reprompts++
		}
	}
	if reprompts != 1 {
		t.Errorf("reprompts = %d, want 1", reprompts)
	}
	if !f.speaker.said("You are not a registered user, please go through the registration process first.") {
		t.Error("exhaustion did not degrade to Unknown")
	}
}

func TestCaptureFailuresDoNotConsumeIdentityAttempts(t *testing.T) {
	// Two failed captures between the protocol replies must be invisible.
	f := newFixture("hi kurt what time is it", "", "", "my name is Alice", "hi kurt goodbye")
	f.classifier.predictions = []voice.Prediction{
		{Name: voice.Unknown, Score: 0.4},
		{Name: "Alice", Score: 0.95},
	}
	f.extractor.extractions = []nlp.Extraction{{Answer: "Alice", Score: 0.9}}
	f.registry.names = []string{"Alice"}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if !f.speaker.said("Thank you, I will recognize you next time") {
		t.Error("name was not accepted after capture failures")
	}
}

func TestRegistrationProtocol(t *testing.T) {
	f := newFixture(
		"hi kurt I am a new user",
		"my name is Dana",
		"reading one", "reading two", "reading three", "reading four", "reading five",
		"hi kurt goodbye",
	)
	f.classifier.predictions = []voice.Prediction{{Name: voice.Unknown, Score: 0.9}}
	f.extractor.extractions = []nlp.Extraction{{Answer: "Dana", Score: 0.95}}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if !slices.Contains(f.registry.names, "Dana") {
		t.Error("Dana was not registered")
	}
	if !slices.Contains(f.registry.tokens, "Dana") {
		t.Error("calendar token was not stored")
	}
	if !slices.Contains(f.calendars.authorized, "Dana") {
		t.Error("calendar was not authorized")
	}
	if f.teleprompter.displayed != 5 {
		t.Errorf("displayed %d scripts, want 5", f.teleprompter.displayed)
	}
	if f.classifier.retrained != 1 {
		t.Errorf("retrained %d times, want 1", f.classifier.retrained)
	}
	if !f.speaker.said("Nice to meet you, your username is Dana") {
		t.Error("registration confirmation was not spoken")
	}
	if !f.speaker.said("Thank you Dana you are successfully registered") {
		t.Error("bootstrap completion was not spoken")
	}

	bootstraps := 0
	for _, record := range f.corpus.records {
		if record.Kind == EngagementBootstrap && record.UserName == "Dana" {
			bootstraps++
		}
	}
	// The registration utterance plus five read-aloud samples.
	if bootstraps != 6 {
		t.Errorf("bootstrap records = %d, want 6", bootstraps)
	}
}

func TestRegistrationRejectsTakenName(t *testing.T) {
	f := newFixture(
		"hi kurt register me please",
		"my name is Alice",
		"my name is Dana",
		"reading one", "reading two", "reading three", "reading four", "reading five",
		"hi kurt goodbye",
	)
	f.classifier.predictions = []voice.Prediction{{Name: voice.Unknown, Score: 0.9}}
	f.extractor.extractions = []nlp.Extraction{
		{Answer: "Alice", Score: 0.95},
		{Answer: "Dana", Score: 0.95},
	}
	f.registry.names = []string{"Alice"}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if !f.speaker.said("That username is already taken, please choose another") {
		t.Error("collision notice was not spoken")
	}
	if !slices.Contains(f.registry.names, "Dana") {
		t.Error("Dana was not registered after the collision")
	}
}

func TestRegistrationRepromptsSilentlyOnLowConfidence(t *testing.T) {
	f := newFixture(
		"hi kurt register me please",
		"mumble",
		"my name is Dana",
		"reading one", "reading two", "reading three", "reading four", "reading five",
		"hi kurt goodbye",
	)
	f.classifier.predictions = []voice.Prediction{{Name: voice.Unknown, Score: 0.9}}
	f.extractor.extractions = []nlp.Extraction{
		{Answer: "mumble", Score: 0.2},
		{Answer: "Dana", Score: 0.95},
	}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	// The low-confidence pass reprompts without speaking.
	for _, line := range f.speaker.spoken {
		if line == "That username is already taken, please choose another" {
			t.Error("collision notice spoken for a low-confidence extraction")
		}
	}
	if !slices.Contains(f.registry.names, "Dana") {
		t.Error("Dana was not registered")
	}
}

func TestCaptureRetriesUntilTranscription(t *testing.T) {
	f := newFixture("", "", "hi kurt goodbye")
	f.classifier.predictions = []voice.Prediction{{Name: "Alice", Score: 0.95}}
	f.registry.names = []string{"Alice"}

	if err := f.orchestrator().Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	pardons := 0
	for _, line := range f.speaker.spoken {
		if line == "Pardon me, I did not quite catch that" {
			pardons++
		}
	}
	if pardons != 2 {
		t.Errorf("pardons = %d, want 2", pardons)
	}
}
