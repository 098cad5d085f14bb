package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultMaxHistory caps the entries kept per session.
const DefaultMaxHistory = 100

// ConversationEntry records one processed task.
type ConversationEntry struct {
	User               string    `json:"user"`
	Source             string    `json:"source"`
	Translated         string    `json:"translated"`
	Assistant          string    `json:"assistant"`
	CulturalNotes      *string   `json:"cultural_notes"`
	ReverseTranslation *string   `json:"reverse_translation,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// SessionInfo describes a live session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
	Entries   int       `json:"entries"`
}

type session struct {
	info    SessionInfo
	history []ConversationEntry
}

// SessionStore keeps conversation history in memory. Nothing survives a
// restart; idle sessions are dropped by CleanupExpiredSessions.
type SessionStore struct {
	sessions   map[string]*session
	mu         sync.RWMutex
	maxHistory int
	logger     *logrus.Logger
}

// NewSessionStore creates an empty store.
func NewSessionStore(maxHistory int, logger *logrus.Logger) *SessionStore {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SessionStore{
		sessions:   make(map[string]*session),
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// Create starts a new session and returns its ID.
func (s *SessionStore) Create() string {
	id := uuid.New().String()
	now := time.Now()

	s.mu.Lock()
	s.sessions[id] = &session{info: SessionInfo{ID: id, CreatedAt: now, LastSeen: now}}
	total := len(s.sessions)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"session_id":     id,
		"total_sessions": total,
	}).Debug("Session created")
	return id
}

// Append adds an entry to the session, creating the session if the caller
// brought its own ID. The oldest entries are dropped past the history cap.
func (s *SessionStore) Append(id string, entry ConversationEntry) {
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{info: SessionInfo{ID: id, CreatedAt: now}}
		s.sessions[id] = sess
	}
	sess.history = append(sess.history, entry)
	if over := len(sess.history) - s.maxHistory; over > 0 {
		sess.history = append([]ConversationEntry(nil), sess.history[over:]...)
	}
	sess.info.LastSeen = now
	sess.info.Entries = len(sess.history)
}

// History returns a copy of the session's entries, oldest first.
func (s *SessionStore) History(id string) ([]ConversationEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.info.LastSeen = time.Now()
	return append([]ConversationEntry{}, sess.history...), true
}

// Clear empties the session's history, keeping the session itself.
func (s *SessionStore) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	sess.history = nil
	sess.info.Entries = 0
	sess.info.LastSeen = time.Now()
	return true
}

// Sessions returns a snapshot of every live session.
func (s *SessionStore) Sessions() []SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.info)
	}
	return out
}

// CleanupExpiredSessions removes sessions idle for longer than maxIdle and
// returns how many were removed.
func (s *SessionStore) CleanupExpiredSessions(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.info.LastSeen) > maxIdle {
			s.logger.WithFields(logrus.Fields{
				"session_id": id,
				"last_seen":  sess.info.LastSeen,
			}).Debug("Removing idle session")
			delete(s.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(s.sessions),
		}).Info("Cleaned up idle sessions")
	}
	return removed
}
