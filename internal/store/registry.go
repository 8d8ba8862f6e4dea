package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNameTaken reports a registration attempt with an existing username.
var ErrNameTaken = errors.New("username already taken")

// User is a registry entry.
type User struct {
	Name      string
	HasToken  bool
	CreatedAt time.Time
}

type userRow struct {
	Name      string
	HasToken  bool
	CreatedAt time.Time
}

// Registry is the persistent user store. Registration is the only mutation
// path; names are unique.
type Registry struct {
	db *sql.DB
}

func NewRegistry(db *sql.DB) *Registry {
	return &Registry{db: db}
}

func (r *Registry) Exists(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	return count > 0, nil
}

func (r *Registry) Add(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, has_token, created_at) VALUES (?, 0, ?)",
		name, time.Now().Unix(),
	)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return ErrNameTaken
		}
		return fmt.Errorf("failed to add user: %w", err)
	}
	return nil
}

// AddToken marks that a calendar token is cached for the user.
func (r *Registry) AddToken(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE users SET has_token = 1 WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to store token flag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to store token flag: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("unknown user %q", name)
	}
	return nil
}

// Names returns a point-in-time snapshot of all registered names. Voice
// labels must always be derived from a single snapshot.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// List returns the full registry entries, ordered by name.
func (r *Registry) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name, has_token, created_at FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	entries := []userRow{}
	for rows.Next() {
		var entry userRow
		var createdAt int64
		if err := rows.Scan(&entry.Name, &entry.HasToken, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		entry.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := []User{}
	if err := copier.Copy(&users, &entries); err != nil {
		return nil, fmt.Errorf("failed to copy user entries: %w", err)
	}
	return users, nil
}
