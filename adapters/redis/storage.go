package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kazeca/holyfit-sub000/core"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// TxRetries bounds optimistic transaction retries before
	// core.ErrConflictExhausted is returned.
	TxRetries int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		TxRetries:    8,
	}
}

// Store implements the engine.Store interface using Redis as the backend.
// Data structure:
// - prog:{user_id} -> JSON blob of the UserProgression document
// - prog:{user_id}:history -> list of JSON XPHistoryEntry rows (append-only)
//
// Mutations go through WATCH-based optimistic transactions on the document
// key, so concurrent writers for the same user retry instead of losing
// updates; different users touch different keys and never conflict.
type Store struct {
	client    *redis.Client
	txRetries int
}

// New creates a new Redis-backed store with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	retries := config.TxRetries
	if retries <= 0 {
		retries = 8
	}
	return &Store{client: client, txRetries: retries}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, txRetries: 8}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func docKey(user core.UserID) string {
	return fmt.Sprintf("prog:%s", user)
}

func historyKey(user core.UserID) string {
	return fmt.Sprintf("prog:%s:history", user)
}

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
	data, err := s.client.Get(ctx, docKey(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.UserProgression{}, core.ErrNotFound
	}
	if err != nil {
		return core.UserProgression{}, fmt.Errorf("failed to get progression: %w", err)
	}
	return decodeDoc(data)
}

// CreateProgression stores the zeroed document unless one already exists.
func (s *Store) CreateProgression(ctx context.Context, user core.UserID) (core.UserProgression, error) {
	doc := core.NewProgression(user)
	data, err := json.Marshal(doc)
	if err != nil {
		return core.UserProgression{}, err
	}
	set, err := s.client.SetNX(ctx, docKey(user), data, 0).Result()
	if err != nil {
		return core.UserProgression{}, fmt.Errorf("failed to create progression: %w", err)
	}
	if !set {
		return s.GetProgression(ctx, user)
	}
	return doc, nil
}

// RunTransaction runs fn inside a WATCH/MULTI/EXEC cycle on the document
// key. Conflicting concurrent writes re-run fn; after the retry budget is
// spent core.ErrConflictExhausted is returned.
func (s *Store) RunTransaction(ctx context.Context, user core.UserID, fn func(core.UserProgression) (core.UserProgression, error)) (core.UserProgression, error) {
	key := docKey(user)
	var committed core.UserProgression

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return core.ErrNotFound
		}
		if err != nil {
			return err
		}
		doc, err := decodeDoc(data)
		if err != nil {
			return err
		}
		next, err := fn(doc)
		if err != nil {
			return err
		}
		if next.Updated.IsZero() {
			next.Updated = time.Now().UTC()
		}
		out, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err == nil {
			committed = next
		}
		return err
	}

	for i := 0; i < s.txRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return committed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // another writer won the race, retry
		}
		return core.UserProgression{}, err
	}
	return core.UserProgression{}, core.ErrConflictExhausted
}

// AppendHistory pushes one audit entry onto the user's history list.
func (s *Store) AppendHistory(ctx context.Context, user core.UserID, entry core.XPHistoryEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.UserID = user
	data, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}
	if err := s.client.RPush(ctx, historyKey(user), data).Err(); err != nil {
		return "", fmt.Errorf("failed to append history: %w", err)
	}
	return entry.ID, nil
}

// History returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) History(ctx context.Context, user core.UserID, limit int) ([]core.XPHistoryEntry, error) {
	var start int64
	if limit > 0 {
		start = int64(-limit)
	}
	rows, err := s.client.LRange(ctx, historyKey(user), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	out := make([]core.XPHistoryEntry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		var entry core.XPHistoryEntry
		if err := json.Unmarshal([]byte(rows[i]), &entry); err != nil {
			continue // skip corrupt rows
		}
		out = append(out, entry)
	}
	return out, nil
}
