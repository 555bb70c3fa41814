package server

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

// User is a signed-in account of the mock backend.
type User struct {
	ID    int    `json:"userId"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// accessClaims are carried by the access cookie.
type accessClaims struct {
	UID  int    `json:"uid"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type grant struct {
	user    *User
	expires time.Time
}

func (g grant) valid(now time.Time) bool {
	return now.Before(g.expires)
}

// sessionStore issues signed access tokens and opaque refresh tokens.
//
// Access tokens are HS256 JWTs, but they are also tracked in memory so they can be revoked or expired early.
type sessionStore struct {
	mu         sync.Mutex
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	access     map[string]grant
	refresh    map[string]grant
	users      map[string]*User
}

func newSessionStore(accessTTL, refreshTTL time.Duration) *sessionStore {
	key := make([]byte, 32)
	_, _ = rand.Read(key)

	return &sessionStore{
		key:        key,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		access:     make(map[string]grant),
		refresh:    make(map[string]grant),
		users:      make(map[string]*User),
	}
}

// user returns the account for email, creating it on first login.
func (s *sessionStore) user(email, name, role string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[email]; ok {
		return u
	}
	u := &User{ID: len(s.users) + 1, Email: email, Name: name, Role: role}
	s.users[email] = u
	return u
}

func (s *sessionStore) issue(u *User) (access, refresh string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(u)
}

func (s *sessionStore) issueLocked(u *User) (access, refresh string, err error) {
	now := s.now()
	if access, err = s.sign(u, now); err != nil {
		return "", "", err
	}
	refresh = shared.GenerateID()
	s.access[access] = grant{user: u, expires: now.Add(s.accessTTL)}
	s.refresh[refresh] = grant{user: u, expires: now.Add(s.refreshTTL)}
	return access, refresh, nil
}

// rotate trades a valid refresh token for a new token pair. The old refresh token is spent.
func (s *sessionStore) rotate(refresh string) (*User, string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.refresh[refresh]
	delete(s.refresh, refresh)
	if !ok || !g.valid(s.now()) {
		return nil, "", "", false
	}

	access, next, err := s.issueLocked(g.user)
	if err != nil {
		return nil, "", "", false
	}
	return g.user, access, next, true
}

func (s *sessionStore) sign(u *User, now time.Time) (string, error) {
	claims := accessClaims{
		UID:  u.ID,
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        shared.GenerateID(),
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

func (s *sessionStore) parse(access string) (*accessClaims, bool) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(access, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, false
	}
	return claims, true
}

func (s *sessionStore) authenticate(access string) (*User, bool) {
	if access == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	claims, ok := s.parse(access)
	if !ok {
		return nil, false
	}

	g, ok := s.access[access]
	if !ok || !g.valid(s.now()) || g.user.Email != claims.Subject {
		return nil, false
	}
	return g.user, true
}

func (s *sessionStore) revoke(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.access, access)
	delete(s.refresh, refresh)
}

// expireAccess ends every access token, leaving refresh tokens usable.
func (s *sessionStore) expireAccess() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.access)
	clear(s.access)
	return n
}

// revokeAll ends every token so the next refresh fails.
func (s *sessionStore) revokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.access)
	clear(s.refresh)
}
