// Package session owns the association between a user and their currently
// active batch, including idle-timeout expiry.
package session

import (
	"sync"
	"time"

	"invoicedrop/internal/quota"
	"invoicedrop/pkg/faults"
)

// Session is the live association between a user and an active batch.
type Session struct {
	UserID       string
	BatchID      string
	LastActivity time.Time
}

type entry struct {
	mu           sync.Mutex
	batchID      string
	hasBatch     bool
	lastActivity time.Time
	hasActivity  bool
}

// Store maps a user id to their session. Entries carry their own locks so
// concurrent handlers for different users do not serialize on each other.
// Expiry is evaluated lazily by callers via IsExpired; there is no sweeper.
type Store struct {
	tracker *quota.Tracker

	mu    sync.RWMutex
	users map[string]*entry

	now func() time.Time
}

func NewStore(tracker *quota.Tracker) *Store {
	return &Store{
		tracker: tracker,
		users:   make(map[string]*entry),
		now:     time.Now,
	}
}

func (s *Store) get(userID string) *entry {
	s.mu.RLock()
	e, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.users[userID]; !ok {
		e = &entry{}
		s.users[userID] = e
	}
	return e
}

// Touch records the current time as the user's last activity. Callers invoke
// it on every inbound event, after the expiry check.
func (s *Store) Touch(userID string) {
	e := s.get(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastActivity = s.now()
	e.hasActivity = true
}

// IsExpired reports whether the user's last activity is older than timeout.
// A user with no recorded activity is never considered expired.
func (s *Store) IsExpired(userID string, timeout time.Duration) bool {
	s.mu.RLock()
	e, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasActivity {
		return false
	}
	return s.now().Sub(e.lastActivity) > timeout
}

// BeginBatch creates a session for userID with batchID and zeroed counters.
// It fails with ErrBatchAlreadyActive if a session already exists; the caller
// must end the previous batch first.
func (s *Store) BeginBatch(userID, batchID string) error {
	e := s.get(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hasBatch {
		return faults.ErrBatchAlreadyActive
	}
	e.batchID = batchID
	e.hasBatch = true
	e.lastActivity = s.now()
	e.hasActivity = true
	s.tracker.Init(batchID)
	return nil
}

// CurrentBatch returns the user's active batch id, if any.
func (s *Store) CurrentBatch(userID string) (string, bool) {
	s.mu.RLock()
	e, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasBatch {
		return "", false
	}
	return e.batchID, true
}

// EndBatch removes the user's session and its batch counters in one step.
// Both explicit reset and automatic expiry route through here. The previous
// batch id and final counts are returned for display.
func (s *Store) EndBatch(userID string) (string, quota.Counts, bool) {
	s.mu.Lock()
	e, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return "", quota.Counts{}, false
	}
	delete(s.users, userID)
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasBatch {
		return "", quota.Counts{}, false
	}
	counts := s.tracker.Drop(e.batchID)
	return e.batchID, counts, true
}
