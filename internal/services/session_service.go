package services

import (
	"strconv"
	"time"

	cache "github.com/patrickmn/go-cache"

	"fieldreport/internal/models"
)

// Abandoned mid-flow sessions expire; the user just starts from the top
// menu again.
const sessionTTL = 12 * time.Hour

// SessionService holds the per-user menu position. State lives only in
// process memory; a restart resets every user to Idle, which is the
// documented behavior.
type SessionService struct {
	states *cache.Cache
}

// NewSessionService creates a new session service
func NewSessionService() *SessionService {
	return &SessionService{
		states: cache.New(sessionTTL, time.Hour),
	}
}

// Get returns the user's current state; a user without one is Idle
func (s *SessionService) Get(userID int64) models.SessionState {
	if v, ok := s.states.Get(sessionKey(userID)); ok {
		return v.(models.SessionState)
	}
	return models.Idle{}
}

// Set stores the user's state
func (s *SessionService) Set(userID int64, state models.SessionState) {
	s.states.Set(sessionKey(userID), state, cache.DefaultExpiration)
}

// Clear resets the user to Idle
func (s *SessionService) Clear(userID int64) {
	s.states.Delete(sessionKey(userID))
}

func sessionKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
