package auth

import (
	"sync"
)

// Signal reports whether a session is authenticated and notifies
// subscribers on every transition.
type Signal interface {
	IsAuthenticated() bool
	Subscribe(fn func(authenticated bool)) (unsubscribe func())
}

// CredentialSource supplies the bearer token for outgoing requests.
type CredentialSource interface {
	Token() (string, bool)
}

// Session holds the credential of the current user. It implements both
// Signal and CredentialSource.
type Session struct {
	mu    sync.RWMutex
	token string

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(bool)
}

func NewSession() *Session {
	return &Session{subs: make(map[int]func(bool))}
}

func (s *Session) IsAuthenticated() bool {
	_, ok := s.Token()
	return ok
}

func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Login stores the token. Subscribers are notified only when the session
// goes from unauthenticated to authenticated; swapping one token for
// another is silent.
func (s *Session) Login(token string) {
	if token == "" {
		s.Logout()
		return
	}
	s.mu.Lock()
	wasAuthenticated := s.token != ""
	s.token = token
	s.mu.Unlock()

	if !wasAuthenticated {
		s.notify(true)
	}
}

func (s *Session) Logout() {
	s.mu.Lock()
	wasAuthenticated := s.token != ""
	s.token = ""
	s.mu.Unlock()

	if wasAuthenticated {
		s.notify(false)
	}
}

func (s *Session) Subscribe(fn func(authenticated bool)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// notify copies the subscriber list before calling out so callbacks may
// subscribe or unsubscribe.
func (s *Session) notify(authenticated bool) {
	s.subMu.Lock()
	subs := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(authenticated)
	}
}
