package spamtrack

import (
	"context"
	"sync"
	"time"
)

// WindowStore records members under a key and counts the distinct members
// seen within the trailing window. Re-observing a member refreshes its time.
type WindowStore interface {
	Observe(ctx context.Context, key, member string, window time.Duration, now time.Time) (int, error)
}

type memoryWindow struct {
	window  time.Duration
	members map[string]time.Time
	last    time.Time
}

// MemoryStore keeps windows in process. Entries are pruned whenever their key is
// observed and idle keys are dropped by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*memoryWindow)}
}

func (s *MemoryStore) Observe(_ context.Context, key, member string, window time.Duration, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.windows[key]
	if w == nil {
		w = &memoryWindow{members: make(map[string]time.Time)}
		s.windows[key] = w
	}
	w.window = window
	w.last = now
	w.members[member] = now
	prune(w, now)
	return len(w.members), nil
}

func prune(w *memoryWindow, now time.Time) {
	cutoff := now.Add(-w.window)
	for member, seen := range w.members {
		if !seen.After(cutoff) {
			delete(w.members, member)
		}
	}
}

// Sweep drops every key whose newest entry has left its window and returns how
// many keys were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if !w.last.After(now.Add(-w.window)) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration, now func() time.Time) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(now())
		}
	}
}
