package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // postgres driver
)

const schema = `
CREATE TABLE IF NOT EXISTS coin_users (
	user_id    TEXT PRIMARY KEY,
	doc        JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresClient keeps user documents in a JSONB column.
type PostgresClient struct {
	db *sql.DB
}

var _ DocumentClient = (*PostgresClient)(nil)

// NewPostgresClient wraps an open database handle.
func NewPostgresClient(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

// Open connects to dsn, checks the connection and creates the table if needed.
func Open(ctx context.Context, dsn string) (*PostgresClient, error) {
	if dsn == "" {
		return nil, errors.New("remote store: empty DSN")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	c := NewPostgresClient(db)
	if err := c.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// EnsureSchema creates the documents table.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (c *PostgresClient) Close() error {
	return c.db.Close()
}

func (c *PostgresClient) Get(ctx context.Context, userID string) (UserDocument, bool, error) {
	const query = `SELECT doc FROM coin_users WHERE user_id = $1`

	var raw []byte
	err := c.db.QueryRowContext(ctx, query, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return UserDocument{}, false, nil
	}
	if err != nil {
		return UserDocument{}, false, fmt.Errorf("querying user document: %w", err)
	}
	var doc UserDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return UserDocument{}, false, fmt.Errorf("decoding user document: %w", err)
	}
	return doc, true, nil
}

// Update locks the user's row for the duration of fn, so concurrent writers
// to sibling profiles serialize instead of overwriting each other.
func (c *PostgresClient) Update(ctx context.Context, userID string, fn func(doc *UserDocument) error) (err error) {
	const (
		selectQuery = `SELECT doc FROM coin_users WHERE user_id = $1 FOR UPDATE`
		upsertQuery = `INSERT INTO coin_users (user_id, doc, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (user_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`
	)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var doc UserDocument
	var raw []byte
	switch scanErr := tx.QueryRowContext(ctx, selectQuery, userID).Scan(&raw); {
	case errors.Is(scanErr, sql.ErrNoRows):
	case scanErr != nil:
		return fmt.Errorf("locking user document: %w", scanErr)
	default:
		if err = json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decoding user document: %w", err)
		}
	}

	if err = fn(&doc); err != nil {
		return err
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding user document: %w", err)
	}
	if _, err = tx.ExecContext(ctx, upsertQuery, userID, string(encoded)); err != nil {
		return fmt.Errorf("writing user document: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing user document: %w", err)
	}
	return nil
}
