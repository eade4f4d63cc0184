// Package quota tracks per-batch upload counters against configured ceilings.
package quota

import (
	"sync"

	"invoicedrop/pkg/faults"
)

// Category is one of the media kinds with an independent quota.
type Category string

const (
	CategoryPhoto    Category = "photo"
	CategoryVideo    Category = "video"
	CategoryDocument Category = "document"
)

// Ceilings holds the per-category count limits for a batch.
type Ceilings struct {
	Photos    uint
	Videos    uint
	Documents uint
}

func (c Ceilings) limit(cat Category) uint {
	switch cat {
	case CategoryPhoto:
		return c.Photos
	case CategoryVideo:
		return c.Videos
	case CategoryDocument:
		return c.Documents
	}
	return 0
}

// Counts is a snapshot of a batch's counters.
type Counts struct {
	Photos    uint
	Videos    uint
	Documents uint
}

func (c Counts) Total() uint {
	return c.Photos + c.Videos + c.Documents
}

func (c Counts) Of(cat Category) uint {
	switch cat {
	case CategoryPhoto:
		return c.Photos
	case CategoryVideo:
		return c.Videos
	case CategoryDocument:
		return c.Documents
	}
	return 0
}

type counters struct {
	mu     sync.Mutex
	counts Counts
}

// Tracker keeps counters keyed by batch id. Each batch carries its own lock
// so concurrent users on different batches do not contend.
type Tracker struct {
	ceilings Ceilings

	mu      sync.RWMutex
	batches map[string]*counters
}

func NewTracker(ceilings Ceilings) *Tracker {
	return &Tracker{
		ceilings: ceilings,
		batches:  make(map[string]*counters),
	}
}

// Init creates a zeroed counter set for batchID. Existing counters are kept:
// a batch re-opened after a session teardown elsewhere must not lose counts.
func (t *Tracker) Init(batchID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.batches[batchID]; !ok {
		t.batches[batchID] = &counters{}
	}
}

func (t *Tracker) get(batchID string) *counters {
	t.mu.RLock()
	c, ok := t.batches[batchID]
	t.mu.RUnlock()
	if ok {
		return c
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok = t.batches[batchID]; !ok {
		c = &counters{}
		t.batches[batchID] = c
	}
	return c
}

// Increment bumps the counter for (batchID, category). The call that would
// exceed the ceiling returns ErrQuotaExceeded and leaves the stored count
// unchanged.
func (t *Tracker) Increment(batchID string, cat Category) (uint, error) {
	c := t.get(batchID)
	c.mu.Lock()
	defer c.mu.Unlock()

	limit := t.ceilings.limit(cat)
	current := c.counts.Of(cat)
	if current+1 > limit {
		return current, faults.ErrQuotaExceeded
	}
	switch cat {
	case CategoryPhoto:
		c.counts.Photos++
	case CategoryVideo:
		c.counts.Videos++
	case CategoryDocument:
		c.counts.Documents++
	}
	return c.counts.Of(cat), nil
}

// Remaining reports how many more items of cat the batch accepts.
// Non-negative by construction.
func (t *Tracker) Remaining(batchID string, cat Category) uint {
	c := t.get(batchID)
	c.mu.Lock()
	defer c.mu.Unlock()

	limit := t.ceilings.limit(cat)
	current := c.counts.Of(cat)
	if current >= limit {
		return 0
	}
	return limit - current
}

// Limit exposes the configured ceiling for cat.
func (t *Tracker) Limit(cat Category) uint {
	return t.ceilings.limit(cat)
}

// Snapshot returns the current counts for batchID.
func (t *Tracker) Snapshot(batchID string) Counts {
	t.mu.RLock()
	c, ok := t.batches[batchID]
	t.mu.RUnlock()
	if !ok {
		return Counts{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

// Drop removes the counters for batchID and returns the final snapshot.
// Called when the owning session ends so no orphaned counters remain.
func (t *Tracker) Drop(batchID string) Counts {
	t.mu.Lock()
	c, ok := t.batches[batchID]
	delete(t.batches, batchID)
	t.mu.Unlock()
	if !ok {
		return Counts{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}
