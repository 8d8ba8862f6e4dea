package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"
	"github.com/zenwerk/go-wave"

	orchestration "github.com/kurtvoice/kurt-core/core"
	"github.com/kurtvoice/kurt-core/core/audio"
)

// Corpus is the append-only engagement store backing classifier training.
// Rows go to SQLite; the audio itself is written as wav files under
// recordingsDir.
type Corpus struct {
	db            *sql.DB
	fs            afero.Fs
	recordingsDir string
}

func NewCorpus(db *sql.DB, fs afero.Fs, recordingsDir string) (*Corpus, error) {
	if err := fs.MkdirAll(recordingsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}
	return &Corpus{db: db, fs: fs, recordingsDir: recordingsDir}, nil
}

// Append stores one engagement record. The id is a monotonic
// timestamp-derived ULID, so corpus order follows engagement order.
func (c *Corpus) Append(ctx context.Context, record orchestration.EngagementRecord) error {
	audioPath, err := c.writeRecording(record.Audio)
	if err != nil {
		return err
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()

	var command sql.NullString
	if record.Command != nil {
		command = sql.NullString{String: string(*record.Command), Valid: true}
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO engagements (id, transcript, user_name, kind, command, audio_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, record.Transcript, record.UserName, string(record.Kind), command, audioPath, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append engagement: %w", err)
	}
	return nil
}

// Entry is one stored engagement row.
type Entry struct {
	Id         string
	Transcript string
	UserName   string
	Kind       string
	Command    string
	AudioPath  string
	CreatedAt  time.Time
}

// EntriesFor returns the stored engagements for a user in append order.
func (c *Corpus) EntriesFor(ctx context.Context, name string) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, transcript, user_name, kind, COALESCE(command, ''), audio_path, created_at
		 FROM engagements WHERE user_name = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list engagements: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var entry Entry
		var createdAt int64
		if err := rows.Scan(&entry.Id, &entry.Transcript, &entry.UserName,
			&entry.Kind, &entry.Command, &entry.AudioPath, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan engagement: %w", err)
		}
		entry.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// writeRecording persists the audio as a wav file and returns its path.
// Records without audio store an empty path.
func (c *Corpus) writeRecording(rec *audio.Recording) (string, error) {
	if rec == nil || rec.IsEmpty() {
		return "", nil
	}

	path := filepath.Join(c.recordingsDir, uuid.NewString()+".wav")
	file, err := c.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create wav file: %w", err)
	}

	writer, err := wave.NewWriter(wave.WriterParam{
		Out:           file,
		Channel:       1,
		SampleRate:    rec.Encoding.SampleRate,
		BitsPerSample: rec.Encoding.Format.ByteSize() * 8,
	})
	if err != nil {
		file.Close()
		return "", fmt.Errorf("failed to create wav writer: %w", err)
	}

	if _, err := writer.WriteSample16(rec.Samples()); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to write wav samples: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize wav file: %w", err)
	}
	return path, nil
}
