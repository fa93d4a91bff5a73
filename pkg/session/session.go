package session

import "time"

// Session is the server-side state behind the session cookie.
type Session struct {
	ID string `json:"-"`

	UserID       string    `json:"user_id,omitempty"`
	Username     string    `json:"username,omitempty"`
	Role         string    `json:"role,omitempty"`
	LoggedIn     bool      `json:"logged_in"`
	LoginTime    time.Time `json:"login_time,omitempty"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	// Scope keys the records kept beside the session (CSRF tokens, named
	// locks). It survives id rotation and dies with the session.
	Scope string `json:"scope"`

	Values map[string]string `json:"values,omitempty"`

	fresh     bool
	modified  bool
	destroyed bool
}

func (s *Session) IsLoggedIn() bool {
	return s != nil && s.LoggedIn
}

// IsNew reports whether the session was created during this request.
func (s *Session) IsNew() bool {
	return s.fresh
}

func (s *Session) Modified() bool {
	return s.modified
}

func (s *Session) Destroyed() bool {
	return s.destroyed
}

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.Values[key]
	return v, ok
}

func (s *Session) Set(key, value string) {
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	s.Values[key] = value
	s.modified = true
}

func (s *Session) Delete(key string) {
	if _, ok := s.Values[key]; ok {
		delete(s.Values, key)
		s.modified = true
	}
}

// ScopeID identifies the session's CSRF tokens and locks in the cache.
func (s *Session) ScopeID() string {
	return s.Scope
}

// Retain marks the session for saving so records keyed by its scope stay
// reachable from the cookie.
func (s *Session) Retain() {
	s.modified = true
}

func (s *Session) clear() {
	s.UserID = ""
	s.Username = ""
	s.Role = ""
	s.LoggedIn = false
	s.LoginTime = time.Time{}
	s.Fingerprint = ""
	s.Values = nil
}
