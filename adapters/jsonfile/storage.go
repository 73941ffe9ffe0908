package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/kazeca/holyfit-sub000/core"
)

// Store persists all progression documents and history logs to a single JSON
// file. Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	docs    map[core.UserID]core.UserProgression
	history map[core.UserID][]core.XPHistoryEntry
	nextID  int
}

type fileFormat struct {
	Docs    map[string]core.UserProgression  `json:"docs"`
	History map[string][]core.XPHistoryEntry `json:"history"`
}

func New(path string) (*Store, error) {
	s := &Store{
		path:    path,
		docs:    map[core.UserID]core.UserProgression{},
		history: map[core.UserID][]core.XPHistoryEntry{},
	}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw fileFormat
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw.Docs {
		if v.Badges == nil {
			v.Badges = map[core.BadgeID]time.Time{}
		}
		s.docs[core.UserID(k)] = v
	}
	for k, v := range raw.History {
		s.history[core.UserID(k)] = v
	}
	return nil
}

func (s *Store) persist() error {
	raw := fileFormat{
		Docs:    make(map[string]core.UserProgression, len(s.docs)),
		History: make(map[string][]core.XPHistoryEntry, len(s.history)),
	}
	for k, v := range s.docs {
		raw.Docs[string(k)] = v
	}
	for k, v := range s.history {
		raw.History[string(k)] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) GetProgression(_ context.Context, user core.UserID) (core.UserProgression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[user]
	if !ok {
		return core.UserProgression{}, core.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *Store) CreateProgression(_ context.Context, user core.UserID) (core.UserProgression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[user]; ok {
		return doc.Clone(), nil
	}
	doc := core.NewProgression(user)
	s.docs[user] = doc
	if err := s.persist(); err != nil {
		delete(s.docs, user)
		return core.UserProgression{}, err
	}
	return doc.Clone(), nil
}

// RunTransaction holds the store lock for the whole read-modify-write, so
// the rename-based persist keeps the file consistent with memory.
func (s *Store) RunTransaction(_ context.Context, user core.UserID, fn func(core.UserProgression) (core.UserProgression, error)) (core.UserProgression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[user]
	if !ok {
		return core.UserProgression{}, core.ErrNotFound
	}
	next, err := fn(doc.Clone())
	if err != nil {
		return core.UserProgression{}, err
	}
	if next.Updated.IsZero() {
		next.Updated = time.Now().UTC()
	}
	prev := s.docs[user]
	s.docs[user] = next.Clone()
	if err := s.persist(); err != nil {
		s.docs[user] = prev
		return core.UserProgression{}, err
	}
	return next.Clone(), nil
}

func (s *Store) AppendHistory(_ context.Context, user core.UserID, entry core.XPHistoryEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if entry.ID == "" {
		entry.ID = strconv.Itoa(s.nextID)
	}
	entry.UserID = user
	s.history[user] = append(s.history[user], entry)
	if err := s.persist(); err != nil {
		s.history[user] = s.history[user][:len(s.history[user])-1]
		return "", err
	}
	return entry.ID, nil
}

func (s *Store) History(_ context.Context, user core.UserID, limit int) ([]core.XPHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.history[user]
	n := len(log)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]core.XPHistoryEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, log[i])
	}
	return out, nil
}
