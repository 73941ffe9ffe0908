package sqlx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/kazeca/holyfit-sub000/core"
)

// Driver names the supported SQL backends.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// DefaultConfig returns sensible defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		DSN:             "",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store implements the engine.Store interface on a SQL database via sqlx.
// Schema:
//
//	CREATE TABLE progression (
//	    user_id    VARCHAR(128) PRIMARY KEY,
//	    doc        TEXT NOT NULL,           -- JSON UserProgression
//	    updated_at TIMESTAMP NOT NULL
//	);
//	CREATE TABLE xp_history (
//	    id      VARCHAR(64) PRIMARY KEY,
//	    user_id VARCHAR(128) NOT NULL,
//	    source  VARCHAR(64) NOT NULL,
//	    amount  BIGINT NOT NULL,
//	    ts      TIMESTAMP NOT NULL
//	);
//	CREATE INDEX idx_xp_history_user ON xp_history (user_id, ts);
//
// The document is stored as one JSON blob and mutated under
// SELECT ... FOR UPDATE, which serializes writers per user while leaving
// other users' rows untouched.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New opens a connection pool and pings it.
func New(config Config) (*Store, error) {
	db, err := sqlx.Open(string(config.Driver), config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db, driver: config.Driver}, nil
}

// NewWithDB wraps an existing sqlx handle (useful for testing).
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func decodeDoc(data []byte) (core.UserProgression, error) {
	var doc core.UserProgression
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.UserProgression{}, fmt.Errorf("corrupt progression document: %w", err)
	}
	if doc.Badges == nil {
		doc.Badges = map[core.BadgeID]time.Time{}
	}
	return doc, nil
}

// GetProgression retrieves the user's document.
func (s *Store) GetProgression(ctx context.Context, user core.UserID) (core.UserProgression, error) {
	var data []byte
	query := s.db.Rebind(`SELECT doc FROM progression WHERE user_id = ?`)
	err := s.db.QueryRowxContext(ctx, query, user).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProgression{}, core.ErrNotFound
	}
	if err != nil {
		return core.UserProgression{}, fmt.Errorf("failed to get progression: %w", err)
	}
	return decodeDoc(data)
}

// CreateProgression inserts the zeroed document unless one already exists.
func (s *Store) CreateProgression(ctx context.Context, user core.UserID) (core.UserProgression, error) {
	existing, err := s.GetProgression(ctx, user)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.UserProgression{}, err
	}
	doc := core.NewProgression(user)
	data, err := json.Marshal(doc)
	if err != nil {
		return core.UserProgression{}, err
	}
	query := s.db.Rebind(`INSERT INTO progression (user_id, doc, updated_at) VALUES (?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, user, data, doc.Updated); err != nil {
		return core.UserProgression{}, fmt.Errorf("failed to create progression: %w", err)
	}
	return doc, nil
}

// RunTransaction locks the user's row with SELECT ... FOR UPDATE, applies
// fn, and writes the result back in the same database transaction.
func (s *Store) RunTransaction(ctx context.Context, user core.UserID, fn func(core.UserProgression) (core.UserProgression, error)) (core.UserProgression, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.UserProgression{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var data []byte
	query := tx.Rebind(`SELECT doc FROM progression WHERE user_id = ? FOR UPDATE`)
	err = tx.QueryRowxContext(ctx, query, user).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProgression{}, core.ErrNotFound
	}
	if err != nil {
		return core.UserProgression{}, fmt.Errorf("failed to lock progression: %w", err)
	}
	doc, err := decodeDoc(data)
	if err != nil {
		return core.UserProgression{}, err
	}

	next, err := fn(doc)
	if err != nil {
		return core.UserProgression{}, err
	}
	if next.Updated.IsZero() {
		next.Updated = time.Now().UTC()
	}
	out, err := json.Marshal(next)
	if err != nil {
		return core.UserProgression{}, err
	}
	update := tx.Rebind(`UPDATE progression SET doc = ?, updated_at = ? WHERE user_id = ?`)
	if _, err := tx.ExecContext(ctx, update, out, next.Updated, user); err != nil {
		return core.UserProgression{}, fmt.Errorf("failed to update progression: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.UserProgression{}, fmt.Errorf("failed to commit: %w", err)
	}
	return next, nil
}

// AppendHistory inserts one audit row.
func (s *Store) AppendHistory(ctx context.Context, user core.UserID, entry core.XPHistoryEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	query := s.db.Rebind(`INSERT INTO xp_history (id, user_id, source, amount, ts) VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, entry.ID, user, entry.Source, entry.Amount, entry.Timestamp); err != nil {
		return "", fmt.Errorf("failed to append history: %w", err)
	}
	return entry.ID, nil
}

// History returns up to limit rows, newest first. limit <= 0 means all.
func (s *Store) History(ctx context.Context, user core.UserID, limit int) ([]core.XPHistoryEntry, error) {
	q := `SELECT id, user_id, source, amount, ts FROM xp_history WHERE user_id = ? ORDER BY ts DESC`
	args := []any{user}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var out []core.XPHistoryEntry
	for rows.Next() {
		var entry core.XPHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Source, &entry.Amount, &entry.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
