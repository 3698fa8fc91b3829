package stylist

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"closetapi/models"
)

const DefaultSessionTTL = 2 * time.Hour

// Store keeps live sessions in memory, scoped to their owner. Sessions idle
// for longer than the TTL expire on access.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *Store) Create(ownerID uint, closet []models.ClosetItem) *Session {
	session := newSession(uuid.NewString(), ownerID, closet, s.now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.sessions[session.ID] = session
	return session
}

func (s *Store) Get(ownerID uint, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	if s.expired(session) {
		s.dropLocked(session)
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close ends a session. A reply still in flight for it is discarded.
func (s *Store) Close(ownerID uint, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.OwnerID != ownerID {
		return ErrSessionNotFound
	}
	s.dropLocked(session)
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) expired(session *Session) bool {
	activeAt, inFlight := session.idleSince()
	return !inFlight && s.now().Sub(activeAt) > s.ttl
}

func (s *Store) dropLocked(session *Session) {
	session.close()
	delete(s.sessions, session.ID)
}

func (s *Store) sweepLocked() {
	for _, session := range s.sessions {
		if s.expired(session) {
			s.dropLocked(session)
		}
	}
}
