package orchestration

import (
	"context"
	"log"

	"github.com/kurtvoice/kurt-core/core/audio"
	"github.com/kurtvoice/kurt-core/core/skills"
)

type EngagementKind string

const (
	EngagementPassive   EngagementKind = "Passive"
	EngagementActive    EngagementKind = "Active"
	EngagementBootstrap EngagementKind = "Bootstrap"
)

// EngagementRecord is one training-corpus entry: the transcript and audio
// of a completed interaction labeled with the resolved speaker.
type EngagementRecord struct {
	Transcript string
	Audio      *audio.Recording
	UserName   string
	Kind       EngagementKind
	// Command is set for active engagements only.
	Command *skills.Command
}

// recordEngagement appends a corpus entry. Recording is skipped only for a
// blank name; Unknown is a valid training label. Storage failures are
// logged, never surfaced to the engagement.
func (o *Orchestrator) recordEngagement(ctx context.Context, transcript string, rec *audio.Recording, name string, kind EngagementKind, command *skills.Command) {
	if name == "" || o.corpus == nil {
		return
	}

	record := EngagementRecord{
		Transcript: transcript,
		Audio:      rec,
		UserName:   name,
		Kind:       kind,
		Command:    command,
	}
	if err := o.corpus.Append(ctx, record); err != nil {
		log.Println("Failed to record engagement:", err)
	}
}
