// Package store keeps conversations metadata and router state in SQLite.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

const (
	// IDShort is the length of a conversation id when displayed.
	IDShort = 7
	// IDMinLen is the minimum prefix length used to look up a conversation.
	IDMinLen = 4
)

// IDPattern matches a full conversation id.
var IDPattern = regexp.MustCompile(`\b[0-9a-f]{40}\b`)

// NewID returns a new random conversation id.
func NewID() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%x", b)
}

var (
	// ErrNoMatches is returned when no conversation matched.
	ErrNoMatches = errors.New("no conversations found")
	// ErrManyMatches is returned when more than one conversation matched.
	ErrManyMatches = errors.New("multiple conversations matched the input")
)

// Open opens the database at ds and creates the tables if needed.
func Open(ds string) (*DB, error) {
	db, err := sqlx.Open("sqlite", ds)
	if err != nil {
		return nil, fmt.Errorf(
			"could not create db: %w",
			err,
		)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf(
			"could not ping db: %w",
			err,
		)
	}
	// a single connection keeps ":memory:" databases alive and writes serialized.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id text NOT NULL PRIMARY KEY,
			title text NOT NULL,
			model text NOT NULL DEFAULT '',
			updated_at datetime NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now')),
			CHECK (id <> ''),
			CHECK (title <> '')
		)
	`); err != nil {
		return nil, fmt.Errorf("could not migrate db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_conv_id ON conversations(id)
	`); err != nil {
		return nil, fmt.Errorf("could not migrate db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_conv_title ON conversations(title)
	`); err != nil {
		return nil, fmt.Errorf("could not migrate db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key text NOT NULL PRIMARY KEY,
			value text NOT NULL,
			updated_at datetime NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
		)
	`); err != nil {
		return nil, fmt.Errorf("could not migrate db: %w", err)
	}

	return &DB{db: db}, nil
}

// DB is the state database.
type DB struct {
	db *sqlx.DB
}

// Conversation is a stored conversation.
type Conversation struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Model     string    `db:"model"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Close closes the database.
func (c *DB) Close() error {
	return c.db.Close() //nolint: wrapcheck
}

// Save creates or updates a conversation.
func (c *DB) Save(id, title, model string) error {
	res, err := c.db.Exec(c.db.Rebind(`
		UPDATE conversations
		SET
		  title = ?,
		  model = ?,
		  updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')
		WHERE
		  id = ?
	`), title, model, id)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	if rows > 0 {
		return nil
	}

	if _, err := c.db.Exec(c.db.Rebind(`
		INSERT INTO
		  conversations (id, title, model)
		VALUES
		  (?, ?, ?)
	`), id, title, model); err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	return nil
}

// Delete removes a conversation.
func (c *DB) Delete(id string) error {
	if _, err := c.db.Exec(c.db.Rebind(`
		DELETE FROM conversations
		WHERE
		  id = ?
	`), id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// ListOlderThan returns the conversations not updated for t.
func (c *DB) ListOlderThan(t time.Duration) ([]Conversation, error) {
	var convos []Conversation
	if err := c.db.Select(&convos, c.db.Rebind(`
		SELECT
		  *
		FROM
		  conversations
		WHERE
		  updated_at < ?
		`), time.Now().Add(-t).UTC().Format("2006-01-02 15:04:05.000")); err != nil {
		return nil, fmt.Errorf("ListOlderThan: %w", err)
	}
	return convos, nil
}

// FindHEAD returns the most recently updated conversation.
func (c *DB) FindHEAD() (*Conversation, error) {
	var convo Conversation
	if err := c.db.Get(&convo, `
		SELECT
		  *
		FROM
		  conversations
		ORDER BY
		  updated_at DESC
		LIMIT
		  1
	`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoMatches
		}
		return nil, fmt.Errorf("FindHead: %w", err)
	}
	return &convo, nil
}

func (c *DB) findByExactTitle(result *[]Conversation, in string) error {
	if err := c.db.Select(result, c.db.Rebind(`
		SELECT
		  *
		FROM
		  conversations
		WHERE
		  title = ?
	`), in); err != nil {
		return fmt.Errorf("findByExactTitle: %w", err)
	}
	return nil
}

func (c *DB) findByIDOrTitle(result *[]Conversation, in string) error {
	if err := c.db.Select(result, c.db.Rebind(`
		SELECT
		  *
		FROM
		  conversations
		WHERE
		  id glob ?
		  OR title = ?
	`), in+"*", in); err != nil {
		return fmt.Errorf("findByIDOrTitle: %w", err)
	}
	return nil
}

// Find finds a conversation by id prefix or exact title.
func (c *DB) Find(in string) (*Conversation, error) {
	var conversations []Conversation
	var err error

	if len(in) < IDMinLen {
		err = c.findByExactTitle(&conversations, in)
	} else {
		err = c.findByIDOrTitle(&conversations, in)
	}
	if err != nil {
		return nil, fmt.Errorf("Find %q: %w", in, err)
	}

	if len(conversations) > 1 {
		return nil, fmt.Errorf("%w: %s", ErrManyMatches, in)
	}
	if len(conversations) == 1 {
		return &conversations[0], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoMatches, in)
}

// List returns every conversation, most recent first.
func (c *DB) List() ([]Conversation, error) {
	var convos []Conversation
	if err := c.db.Select(&convos, `
		SELECT
		  *
		FROM
		  conversations
		ORDER BY
		  updated_at DESC
	`); err != nil {
		return convos, fmt.Errorf("List: %w", err)
	}
	return convos, nil
}

// GetSetting returns the value stored under key, or "" and false.
func (c *DB) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	if err := c.db.GetContext(ctx, &value, c.db.Rebind(`
		SELECT value FROM settings WHERE key = ?
	`), key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("GetSetting %q: %w", key, err)
	}
	return value, true, nil
}

// SetSetting stores value under key.
func (c *DB) SetSetting(ctx context.Context, key, value string) error {
	if _, err := c.db.ExecContext(ctx, c.db.Rebind(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
		  value = excluded.value,
		  updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')
	`), key, value); err != nil {
		return fmt.Errorf("SetSetting %q: %w", key, err)
	}
	return nil
}

// DeleteSetting removes key.
func (c *DB) DeleteSetting(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, c.db.Rebind(`
		DELETE FROM settings WHERE key = ?
	`), key); err != nil {
		return fmt.Errorf("DeleteSetting %q: %w", key, err)
	}
	return nil
}

// Setting keys.
const (
	KeyActiveModel     = "active_model"
	KeyValidatedModels = "validated_models"
	KeyLocalHash       = "local_hash"
)

// DefaultLocalHash is the version marker before the first update check.
const DefaultLocalHash = "init_v5.2"

// State is what the router and the update check remember between runs.
type State struct {
	ActiveModel     string   `json:"active_model"`
	ValidatedModels []string `json:"validated_models"`
	LocalHash       string   `json:"local_hash"`
}

// State loads the persisted state.
func (c *DB) State(ctx context.Context) (State, error) {
	var state State
	active, _, err := c.GetSetting(ctx, KeyActiveModel)
	if err != nil {
		return state, err
	}
	state.ActiveModel = active

	validated, ok, err := c.GetSetting(ctx, KeyValidatedModels)
	if err != nil {
		return state, err
	}
	if ok && validated != "" {
		if err := json.Unmarshal([]byte(validated), &state.ValidatedModels); err != nil {
			return state, fmt.Errorf("State: invalid %s: %w", KeyValidatedModels, err)
		}
	}

	hash, ok, err := c.GetSetting(ctx, KeyLocalHash)
	if err != nil {
		return state, err
	}
	if !ok || hash == "" {
		hash = DefaultLocalHash
	}
	state.LocalHash = hash
	return state, nil
}

// SaveState persists state. Empty fields are removed.
func (c *DB) SaveState(ctx context.Context, state State) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveState: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	put := func(key, value string) error {
		if value == "" {
			_, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM settings WHERE key = ?`), key)
			return err //nolint:wrapcheck
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET
			  value = excluded.value,
			  updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')
		`), key, value)
		return err //nolint:wrapcheck
	}

	validated := ""
	if len(state.ValidatedModels) > 0 {
		bts, err := json.Marshal(state.ValidatedModels)
		if err != nil {
			return fmt.Errorf("SaveState: %w", err)
		}
		validated = string(bts)
	}

	for key, value := range map[string]string{
		KeyActiveModel:     state.ActiveModel,
		KeyValidatedModels: validated,
		KeyLocalHash:       state.LocalHash,
	} {
		if err := put(key, value); err != nil {
			return fmt.Errorf("SaveState %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SaveState: %w", err)
	}
	return nil
}
