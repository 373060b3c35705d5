package client

import "sync"

// Session holds the bearer token for an authenticated user. OnExpired is
// invoked once when the server rejects the token, letting the UI bounce the
// user back to login.
type Session struct {
	mu        sync.Mutex
	token     string
	expired   bool
	OnExpired func()
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expired = false
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Expire clears the token and fires OnExpired. Repeated 401s from in-flight
// requests only notify once.
func (s *Session) Expire() {
	s.mu.Lock()
	alreadyExpired := s.expired
	s.token = ""
	s.expired = true
	handler := s.OnExpired
	s.mu.Unlock()

	if !alreadyExpired && handler != nil {
		handler()
	}
}
