// Package session keeps mounted views in memory between HTTP requests.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rkm/terratales/internal/view"
)

// Store holds mounted sessions by id.
type Store interface {
	// Add mounts a session.
	Add(s view.Session) error

	// Get returns a live session and extends its lifetime.
	Get(id string) (view.Session, error)

	// Delete tears a session down.
	Delete(id string) error
}

// entry holds a session with its expiration time
type entry struct {
	session   view.Session
	expiresAt time.Time
	createdAt time.Time
}

// MemoryStore implements Store in memory. Sessions expire after ttl without a
// request and are torn down by a background cleanup loop.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]entry
	ttl         time.Duration
	maxSessions int
	stopChan    chan struct{}
	stopOnce    sync.Once
	logger      *slog.Logger
	now         func() time.Time
}

// NewMemoryStore creates a store. maxSessions <= 0 means unlimited.
func NewMemoryStore(ttl, cleanupInterval time.Duration, maxSessions int) *MemoryStore {
	store := &MemoryStore{
		sessions:    make(map[string]entry),
		ttl:         ttl,
		maxSessions: maxSessions,
		stopChan:    make(chan struct{}),
		logger:      slog.Default(),
		now:         time.Now,
	}

	go store.cleanupLoop(cleanupInterval)

	return store
}

// WithLogger sets a custom logger for the store
func (s *MemoryStore) WithLogger(logger *slog.Logger) *MemoryStore {
	s.logger = logger
	return s
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Add implements Store.
func (s *MemoryStore) Add(sess view.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return ErrStoreFull
	}
	if _, exists := s.sessions[sess.ID()]; exists {
		return ErrDuplicateSession
	}

	now := s.now()
	s.sessions[sess.ID()] = entry{
		session:   sess,
		expiresAt: now.Add(s.ttl),
		createdAt: now,
	}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(id string) (view.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}

	now := s.now()
	if now.After(e.expiresAt) {
		return nil, ErrSessionExpired
	}

	e.expiresAt = now.Add(s.ttl)
	s.sessions[id] = e
	return e.session, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	e, exists := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}
	e.session.Close()
	return nil
}

// Stop stops the cleanup loop and tears down every session.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]entry)
	s.mu.Unlock()

	for _, e := range sessions {
		e.session.Close()
	}
}

// cleanupLoop periodically tears down expired sessions.
func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

// cleanup removes and closes all expired sessions.
func (s *MemoryStore) cleanup() int {
	s.mu.Lock()
	now := s.now()
	var expired []view.Session
	for id, e := range s.sessions {
		if now.After(e.expiresAt) {
			expired = append(expired, e.session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		s.logger.Debug("session expired",
			slog.String("session_id", sess.ID()),
			slog.String("view", string(sess.Kind())),
		)
		sess.Close()
	}
	return len(expired)
}

// Stats returns statistics about the session store.
func (s *MemoryStore) Stats() (count int, oldestAge time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count = len(s.sessions)
	if count == 0 {
		return 0, 0
	}

	var oldest time.Time
	for _, e := range s.sessions {
		if oldest.IsZero() || e.createdAt.Before(oldest) {
			oldest = e.createdAt
		}
	}

	return count, s.now().Sub(oldest)
}

// Sentinel errors for session store operations
var (
	ErrSessionNotFound  = storeError("session not found")
	ErrSessionExpired   = storeError("session expired")
	ErrStoreFull        = storeError("too many sessions")
	ErrDuplicateSession = storeError("session id already in use")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
