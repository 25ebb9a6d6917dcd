package dashboard

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const loginMissingFieldsMessage = "Please enter both email and password"

// TokenMinter issues opaque session tokens for a freshly logged in profile.
type TokenMinter interface {
	Mint(profile Profile) (string, error)
}

// JWTMinter signs HS256 tokens with a per-process random key. The tokens are
// opaque to the rest of the system; nothing verifies them.
type JWTMinter struct {
	key []byte
	now func() time.Time
}

// NewJWTMinter builds a minter with a random signing key.
func NewJWTMinter() *JWTMinter {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return &JWTMinter{key: key, now: time.Now}
}

// Mint signs a token whose subject is the contact address.
func (m *JWTMinter) Mint(profile Profile) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:       uuid.NewString(),
		Subject:  profile.Contact,
		IssuedAt: jwt.NewNumericDate(m.now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("dashboard: sign session token: %w", err)
	}
	return token, nil
}

// SessionStore holds the token and profile for a single browser client.
type SessionStore struct {
	mu         sync.RWMutex
	minter     TokenMinter
	token      string
	profile    *Profile
	lastSeenAt time.Time
}

// NewSessionStore creates an empty store. A nil minter falls back to JWTMinter.
func NewSessionStore(minter TokenMinter) *SessionStore {
	if minter == nil {
		minter = NewJWTMinter()
	}
	return &SessionStore{minter: minter, lastSeenAt: time.Now()}
}

// Login authenticates locally: both inputs must be non-empty. No network call is made.
func (s *SessionStore) Login(contact, secret string) LoginResult {
	if contact == "" || secret == "" {
		return LoginResult{ErrorMessage: loginMissingFieldsMessage}
	}
	profile := Profile{
		DisplayName: displayNameFromContact(contact),
		Contact:     contact,
	}
	token, err := s.minter.Mint(profile)
	if err != nil || token == "" {
		return LoginResult{ErrorMessage: "Unable to start a session, please try again"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.profile = &profile
	s.lastSeenAt = time.Now()
	return LoginResult{Success: true}
}

// Logout clears token and profile unconditionally.
func (s *SessionStore) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.profile = nil
}

// Snapshot copies the current session.
func (s *SessionStore) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return Session{}
	}
	profile := *s.profile
	return Session{Token: s.token, Profile: &profile}
}

// Authenticated reports whether a token is present.
func (s *SessionStore) Authenticated() bool {
	return s.Snapshot().Authenticated()
}

// Token returns the current token or an empty string.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *SessionStore) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeenAt = now
	s.mu.Unlock()
}

func (s *SessionStore) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeenAt
}

func displayNameFromContact(contact string) string {
	if idx := strings.Index(contact, "@"); idx >= 0 {
		if local := contact[:idx]; local != "" {
			return local
		}
	}
	return contact
}
