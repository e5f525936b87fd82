package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/campushub/auth-service/pkg/logger"
	"github.com/campushub/auth-service/pkg/metrics"
)

// Store holds pending handoffs. Put overwrites, Consume is idempotent, and
// Take removes and returns an entry in one step so that at most one caller
// ever receives a given assertion.
type Store interface {
	Put(sessionID, assertion string)
	Peek(sessionID string) (string, bool)
	Consume(sessionID string)
	Take(sessionID string) (string, bool)
}

// MemoryStore is a process-local Store. Entries older than ttl are invisible
// to Peek and Take and are removed by Sweep. A ttl <= 0 disables expiry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Handoff
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]Handoff), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Put(sessionID, assertion string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	h := Handoff{SessionID: sessionID, Assertion: assertion, CreatedAt: now}
	if s.ttl > 0 {
		h.ExpiresAt = now.Add(s.ttl)
	}
	s.entries[sessionID] = h
	s.report()
}

func (s *MemoryStore) Peek(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.lookup(sessionID)
	if !ok {
		return "", false
	}
	return h.Assertion, true
}

func (s *MemoryStore) Consume(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	s.report()
}

func (s *MemoryStore) Take(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.lookup(sessionID)
	if !ok {
		return "", false
	}
	delete(s.entries, sessionID)
	s.report()
	return h.Assertion, true
}

// lookup returns a live entry, dropping it if it has expired. Caller holds mu.
func (s *MemoryStore) lookup(sessionID string) (Handoff, bool) {
	h, ok := s.entries[sessionID]
	if !ok {
		return Handoff{}, false
	}
	if h.expired(s.now()) {
		delete(s.entries, sessionID)
		s.report()
		return Handoff{}, false
	}
	return h, true
}

// Sweep removes expired entries and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, h := range s.entries {
		if h.expired(now) {
			delete(s.entries, id)
			n++
		}
	}
	if n > 0 {
		s.report()
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run sweeps every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				logger.Debugf("handoff sweep dropped %d expired sessions", n)
			}
		}
	}
}

func (s *MemoryStore) report() {
	metrics.HandoffPending.Set(float64(len(s.entries)))
}
