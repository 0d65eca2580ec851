package state

import (
	"sync"
	"time"
)

// Session is a snapshot of one user's review state.
type Session struct {
	Awaiting     bool
	LastReviewAt time.Time
}

// HasReviewed reports whether a review was ever accepted for this user.
func (s Session) HasReviewed() bool {
	return !s.LastReviewAt.IsZero()
}

// Store is the in-memory session table. The zero value is not usable; call NewStore.
//
// Map access is guarded by mu. Handlers that read, decide and write for one user
// must hold Lock(userID) so that two updates from the same user cannot interleave.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	userLocksMu sync.Mutex
	userLocks   map[int64]*sync.Mutex
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		sessions:  make(map[int64]*Session),
		userLocks: make(map[int64]*sync.Mutex),
	}
}

// Lock serialises handlers for userID and returns the matching unlock func.
func (s *Store) Lock(userID int64) func() {
	s.userLocksMu.Lock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	s.userLocksMu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns a copy of the user's session, or an idle zero session.
func (s *Store) Get(userID int64) Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		return *sess
	}
	return Session{}
}

// LastReviewTime returns the time of the user's last accepted review, if any.
func (s *Store) LastReviewTime(userID int64) (time.Time, bool) {
	sess := s.Get(userID)
	return sess.LastReviewAt, sess.HasReviewed()
}

// SetLastReviewTime records when the user's review was accepted for delivery.
func (s *Store) SetLastReviewTime(userID int64, at time.Time) {
	s.mutate(userID, func(sess *Session) { sess.LastReviewAt = at })
}

// SetAwaiting toggles whether the next plain-text message is review content.
func (s *Store) SetAwaiting(userID int64, awaiting bool) {
	s.mutate(userID, func(sess *Session) { sess.Awaiting = awaiting })
}

// Awaiting reports whether the user is in the middle of writing a review.
func (s *Store) Awaiting(userID int64) bool {
	return s.Get(userID).Awaiting
}

// InProgress is Awaiting under the name the text router expects.
func (s *Store) InProgress(userID int64) bool {
	return s.Awaiting(userID)
}

// Len returns the number of sessions created so far.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) mutate(userID int64, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{}
		s.sessions[userID] = sess
	}
	fn(sess)
}
