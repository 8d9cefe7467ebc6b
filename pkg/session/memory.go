package session

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// MemoryStore is an in-memory Store suitable for tests and single-node
// deployments. With a non-zero TTL, StartSweeper evicts sessions whose last
// update is older than the TTL on a cron schedule.
type MemoryStore struct {
	mu      sync.RWMutex
	states  map[string]*State
	ttl     time.Duration
	sweeper *cron.Cron
	closed  bool
}

// NewMemoryStore creates an in-memory store. ttl of 0 means sessions never
// expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*State),
		ttl:    ttl,
	}
}

// Save creates or replaces a state record.
func (s *MemoryStore) Save(ctx context.Context, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.states[state.ThreadID] = state.Clone()
	return nil
}

// Load retrieves a state record by thread id.
func (s *MemoryStore) Load(ctx context.Context, threadID string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	state, ok := s.states[threadID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state.Clone(), nil
}

// Delete removes a state record.
func (s *MemoryStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.states, threadID)
	return nil
}

// List returns stored thread ids, sorted for deterministic pagination.
func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return paginate(ids, opts), nil
}

// StartSweeper schedules TTL eviction on the given cron spec (e.g.
// "@every 10m"). It is a no-op when the store has no TTL.
func (s *MemoryStore) StartSweeper(spec string) error {
	if s.ttl <= 0 {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, s.sweep); err != nil {
		return err
	}
	c.Start()

	s.mu.Lock()
	s.sweeper = c
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) sweep() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for id, state := range s.states {
		if state.UpdatedAt.Before(cutoff) {
			delete(s.states, id)
			log.Printf("[session] swept expired thread %s", id)
		}
	}
}

// Close stops the sweeper and releases the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	s.states = nil
	return nil
}

func paginate(ids []string, opts ListOptions) []string {
	start := opts.Offset
	if start >= len(ids) {
		return []string{}
	}
	end := len(ids)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	return ids[start:end]
}
