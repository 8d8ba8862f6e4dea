package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orchestration "github.com/kurtvoice/kurt-core/core"
	"github.com/kurtvoice/kurt-core/core/audio"
	"github.com/kurtvoice/kurt-core/core/skills"
)

func TestOpenMigratesSchema(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	defer db.Close()

	version, err := userVersion(db)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	// Reopening runs no further migrations and keeps the data usable.
	require.NoError(t, db.Close())
	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	registry := NewRegistry(db)
	require.NoError(t, registry.Add(context.Background(), "Alice"))
}

func TestRegistryAddAndExists(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	registry := NewRegistry(db)

	exists, err := registry.Exists(ctx, "Alice")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, registry.Add(ctx, "Alice"))

	exists, err = registry.Exists(ctx, "Alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	registry := NewRegistry(db)

	require.NoError(t, registry.Add(ctx, "Alice"))
	assert.ErrorIs(t, registry.Add(ctx, "Alice"), ErrNameTaken)
}

func TestRegistryNamesSnapshot(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	registry := NewRegistry(db)

	for _, name := range []string{"Paul", "Alice", "Mira"} {
		require.NoError(t, registry.Add(ctx, name))
	}

	names, err := registry.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Mira", "Paul"}, names)
}

func TestRegistryAddToken(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	registry := NewRegistry(db)

	require.NoError(t, registry.Add(ctx, "Alice"))
	require.NoError(t, registry.AddToken(ctx, "Alice"))
	assert.Error(t, registry.AddToken(ctx, "Nobody"))

	users, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].Name)
	assert.True(t, users[0].HasToken)
}

func TestCorpusAppendAndList(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	fs := afero.NewMemMapFs()
	corpus, err := NewCorpus(db, fs, filepath.Join("data", "recordings"))
	require.NoError(t, err)

	ctx := context.Background()
	rec := audio.NewRecording(audio.GetDefaultEncodingInfo())
	rec.Append([]byte{0x01, 0x00, 0x02, 0x00})

	command := skills.CommandTime
	require.NoError(t, corpus.Append(ctx, orchestration.EngagementRecord{
		Transcript: "what time is it",
		Audio:      rec,
		UserName:   "Alice",
		Kind:       orchestration.EngagementActive,
		Command:    &command,
	}))
	require.NoError(t, corpus.Append(ctx, orchestration.EngagementRecord{
		Transcript: "just chatting",
		Audio:      rec,
		UserName:   "Alice",
		Kind:       orchestration.EngagementPassive,
	}))

	entries, err := corpus.EntriesFor(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// ULID ids keep append order.
	assert.Less(t, entries[0].Id, entries[1].Id)
	assert.Equal(t, "what time is it", entries[0].Transcript)
	assert.Equal(t, "TIME", entries[0].Command)
	assert.Equal(t, "Passive", entries[1].Kind)
	assert.Empty(t, entries[1].Command)

	// The audio landed as a wav file.
	exists, err := afero.Exists(fs, entries[0].AudioPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCorpusAppendWithoutAudio(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	corpus, err := NewCorpus(db, afero.NewMemMapFs(), "recordings")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, corpus.Append(ctx, orchestration.EngagementRecord{
		Transcript: "no audio captured",
		UserName:   "Unknown",
		Kind:       orchestration.EngagementPassive,
	}))

	entries, err := corpus.EntriesFor(ctx, "Unknown")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].AudioPath)
}
