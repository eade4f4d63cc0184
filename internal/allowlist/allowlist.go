// Package allowlist manages the set of users authorized to talk to the bot.
package allowlist

import (
	"context"
	"sort"
	"sync"

	"invoicedrop/pkg/faults"
)

// Allowlist is the authorized-user capability. Implementations are safe for
// concurrent use.
type Allowlist interface {
	IsAllowed(ctx context.Context, userID string) (bool, error)
	Add(ctx context.Context, userID string) error
	Remove(ctx context.Context, userID string) error
	List(ctx context.Context) ([]string, error)
}

// Memory is a non-persistent implementation used by tests and single-run
// deployments seeded from configuration.
type Memory struct {
	mu    sync.Mutex
	users map[string]bool
}

var _ Allowlist = (*Memory)(nil)

func NewMemory(seed []string) *Memory {
	users := make(map[string]bool, len(seed))
	for _, u := range seed {
		users[u] = true
	}
	return &Memory{users: users}
}

func (m *Memory) IsAllowed(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID], nil
}

func (m *Memory) Add(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users[userID] {
		return faults.ErrAlreadyExists
	}
	m.users[userID] = true
	return nil
}

func (m *Memory) Remove(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.users[userID] {
		return faults.ErrNotFound
	}
	delete(m.users, userID)
	return nil
}

func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.users))
	for u := range m.users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}
