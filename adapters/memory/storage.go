package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kazeca/holyfit-sub000/core"
)

// Store is a concurrent in-memory progression store. Each user has an
// independent record guarded by its own mutex, so transactions for different
// users never serialize against each other.
type Store struct {
	users sync.Map // map[core.UserID]*userRecord
}

type userRecord struct {
	mu      sync.Mutex
	doc     core.UserProgression
	created bool
	history []core.XPHistoryEntry
	nextID  int
}

func New() *Store { return &Store{} }

// record returns the user's record, creating one on first use. Write paths
// only; read paths go through lookup so probing an unknown user leaves no
// trace in the map.
func (s *Store) record(user core.UserID) *userRecord {
	if v, ok := s.users.Load(user); ok {
		return v.(*userRecord)
	}
	rec := &userRecord{doc: core.NewProgression(user)}
	actual, _ := s.users.LoadOrStore(user, rec)
	return actual.(*userRecord)
}

// lookup returns the user's record without creating one.
func (s *Store) lookup(user core.UserID) (*userRecord, bool) {
	v, ok := s.users.Load(user)
	if !ok {
		return nil, false
	}
	return v.(*userRecord), true
}

// GetProgression returns a copy of the user's document, or core.ErrNotFound
// when it was never created.
func (s *Store) GetProgression(_ context.Context, user core.UserID) (core.UserProgression, error) {
	rec, ok := s.lookup(user)
	if !ok {
		return core.UserProgression{}, core.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.created {
		return core.UserProgression{}, core.ErrNotFound
	}
	return rec.doc.Clone(), nil
}

// CreateProgression materializes the zeroed document. Creating an existing
// document is a no-op returning the current one.
func (s *Store) CreateProgression(_ context.Context, user core.UserID) (core.UserProgression, error) {
	rec := s.record(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.created = true
	return rec.doc.Clone(), nil
}

// RunTransaction applies fn to the current document under the user's lock.
// fn sees a deep copy; an error from fn leaves the stored document untouched.
// Documents are created at account creation, so a missing one is
// core.ErrNotFound.
func (s *Store) RunTransaction(_ context.Context, user core.UserID, fn func(core.UserProgression) (core.UserProgression, error)) (core.UserProgression, error) {
	rec, ok := s.lookup(user)
	if !ok {
		return core.UserProgression{}, core.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.created {
		return core.UserProgression{}, core.ErrNotFound
	}
	next, err := fn(rec.doc.Clone())
	if err != nil {
		return core.UserProgression{}, err
	}
	rec.doc = next.Clone()
	if rec.doc.Updated.IsZero() {
		rec.doc.Updated = time.Now().UTC()
	}
	return rec.doc.Clone(), nil
}

// AppendHistory appends one audit log entry, assigning an id when missing.
func (s *Store) AppendHistory(_ context.Context, user core.UserID, entry core.XPHistoryEntry) (string, error) {
	rec := s.record(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.nextID++
	if entry.ID == "" {
		entry.ID = strconv.Itoa(rec.nextID)
	}
	entry.UserID = user
	rec.history = append(rec.history, entry)
	return entry.ID, nil
}

// History returns up to limit entries, newest first. limit <= 0 means all.
// An unknown user has an empty history.
func (s *Store) History(_ context.Context, user core.UserID, limit int) ([]core.XPHistoryEntry, error) {
	rec, ok := s.lookup(user)
	if !ok {
		return nil, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	n := len(rec.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]core.XPHistoryEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, rec.history[i])
	}
	return out, nil
}
