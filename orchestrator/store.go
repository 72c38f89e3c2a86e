package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/KBesada24/ai-code-sentinel/services"
	"github.com/KBesada24/ai-code-sentinel/utils"
	"github.com/google/uuid"
)

// Store keeps one orchestrator per browser session
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Orchestrator
	service  services.ReviewService
	notifier Notifier
	opts     Options
	logger   *utils.Logger
}

// NewStore creates an empty session store
func NewStore(service services.ReviewService, notifier Notifier, opts Options, logger *utils.Logger) *Store {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Store{
		sessions: make(map[string]*Orchestrator),
		service:  service,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

// Create registers a new session seeded with code and language
func (s *Store) Create(code, language string) *Orchestrator {
	id := uuid.New().String()
	o := New(id, InitialState(code, language), s.service, s.notifier, s.opts, s.logger)

	s.mu.Lock()
	s.sessions[id] = o
	s.mu.Unlock()

	s.logger.WithSource("session_store").Debug("Session created", map[string]interface{}{
		"session_id": id,
	})
	return o
}

// Get looks up a session
func (s *Store) Get(id string) (*Orchestrator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.sessions[id]
	return o, ok
}

// Delete drops a session; a pending review still settles on the detached orchestrator
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune removes sessions idle for longer than ttl that are not loading
func (s *Store) Prune(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, o := range s.sessions {
		if o.LastActive().After(cutoff) || o.Snapshot().Loading {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// StartJanitor prunes idle sessions every interval until ctx is done
func (s *Store) StartJanitor(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.Prune(ttl); removed > 0 {
					s.logger.WithSource("session_store").Info("Pruned idle sessions", map[string]interface{}{
						"removed":   removed,
						"remaining": s.Len(),
					})
				}
			}
		}
	}()
}
