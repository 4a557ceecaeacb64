package conversation

import (
	"sort"
	"sync"
	"time"
)

// SessionStore owns every live session of the process
type SessionStore struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	maxHistory int
}

// NewSessionStore creates a store whose sessions keep at most maxHistory turns
func NewSessionStore(maxHistory int) *SessionStore {
	return &SessionStore{
		sessions:   make(map[string]*Session),
		maxHistory: maxHistory,
	}
}

// GetOrCreate returns the session for id, creating it at now if absent
func (s *SessionStore) GetOrCreate(id string, now time.Time) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, false
	}
	sess = newSession(id, s.maxHistory, now)
	s.sessions[id] = sess
	return sess, true
}

func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Remove deletes the session and reports whether it existed
func (s *SessionStore) Remove(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		sess.mu.Lock()
		sess.state = StateEnded
		sess.mu.Unlock()
	}
	return ok
}

// SweepIdle removes sessions with no activity since cutoff and returns their ids
func (s *SessionStore) SweepIdle(cutoff time.Time) []string {
	s.mu.Lock()
	var removed []*Session
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			delete(s.sessions, id)
			removed = append(removed, sess)
		}
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(removed))
	for _, sess := range removed {
		sess.mu.Lock()
		sess.state = StateEnded
		sess.mu.Unlock()
		ids = append(ids, sess.ID)
	}
	sort.Strings(ids)
	return ids
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot returns stats for every live session, ordered by id
func (s *SessionStore) Snapshot(now time.Time) []Stats {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	out := make([]Stats, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.stats(now))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}
