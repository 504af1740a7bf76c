package repositories

import (
	"sync"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
)

// AttemptStateRepository holds throttle state per username in memory.
// All reads and writes for one username go through Update, which runs
// under that username's own lock, so concurrent failures can't lose
// increments. Different usernames never block each other.
type AttemptStateRepository struct {
	mu      sync.Mutex
	entries map[string]*attemptEntry
}

type attemptEntry struct {
	mu      sync.Mutex
	state   models.AttemptState
	present bool // false until the first write, and after a delete
	refs    int  // callers holding or waiting for mu
}

// NewAttemptStateRepository creates an empty repository
func NewAttemptStateRepository() *AttemptStateRepository {
	return &AttemptStateRepository{
		entries: make(map[string]*attemptEntry),
	}
}

// UpdateFunc receives a copy of the current state and returns what to do with it.
// keep=false deletes the entry. A non-nil error discards every change.
type UpdateFunc func(state *models.AttemptState) (keep bool, err error)

// Update runs fn in the username's critical section. A missing entry is
// passed in as a zero state and only stored if fn keeps it.
func (r *AttemptStateRepository) Update(username string, fn UpdateFunc) error {
	entry := r.acquire(username)
	defer r.release(username, entry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := cloneState(entry.state)
	keep, err := fn(&working)
	if err != nil {
		return err
	}

	if keep {
		entry.state = working
		entry.present = true
	} else {
		entry.state = models.AttemptState{}
		entry.present = false
	}
	return nil
}

// Get returns a copy of the state for username
func (r *AttemptStateRepository) Get(username string) (models.AttemptState, bool) {
	r.mu.Lock()
	entry, ok := r.entries[username]
	if ok {
		entry.refs++
	}
	r.mu.Unlock()
	if !ok {
		return models.AttemptState{}, false
	}
	defer r.release(username, entry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.present {
		return models.AttemptState{}, false
	}
	return cloneState(entry.state), true
}

// Len returns the number of stored entries, counting entries that
// in-flight attempts are still creating
func (r *AttemptStateRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, entry := range r.entries {
		if entry.refs > 0 || entry.present {
			count++
		}
	}
	return count
}

// DeleteIdle removes entries with no active penalty whose last failure is
// older than ttl. Entries currently in use are skipped.
func (r *AttemptStateRepository) DeleteIdle(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for username, entry := range r.entries {
		if entry.refs > 0 {
			continue
		}
		// refs == 0 under r.mu means nobody else can touch entry
		if !entry.present || entry.state.Idle(now, ttl) {
			delete(r.entries, username)
			removed++
		}
	}
	return removed
}

func (r *AttemptStateRepository) acquire(username string) *attemptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[username]
	if !ok {
		entry = &attemptEntry{}
		r.entries[username] = entry
	}
	entry.refs++
	return entry
}

func (r *AttemptStateRepository) release(username string, entry *attemptEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.refs--
	if entry.refs > 0 {
		return
	}
	// Safe to read without entry.mu: no one else holds a reference
	if !entry.present {
		if current, ok := r.entries[username]; ok && current == entry {
			delete(r.entries, username)
		}
	}
}

func cloneState(s models.AttemptState) models.AttemptState {
	clone := s
	if s.LockedUntil != nil {
		t := *s.LockedUntil
		clone.LockedUntil = &t
	}
	if s.CooldownUntil != nil {
		t := *s.CooldownUntil
		clone.CooldownUntil = &t
	}
	if s.LastFailureAt != nil {
		t := *s.LastFailureAt
		clone.LastFailureAt = &t
	}
	return clone
}
