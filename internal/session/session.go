// Package session holds the active account identity and announces account
// switches to the components that reload on them.
package session

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// changeBuffer bounds how many unconsumed switches a subscriber can lag behind
const changeBuffer = 8

// Identity is the active account on an instance. Token is opaque to
// everything except the remote API client.
type Identity struct {
	Instance  string `json:"instance"`
	AccountID int64  `json:"account_id"`
	Username  string `json:"username"`
	Token     string `json:"-"`
}

// Key identifies the account independently of its current token.
func (i Identity) Key() string {
	if i.AccountID != 0 {
		return fmt.Sprintf("%s#%d", i.Instance, i.AccountID)
	}
	return i.Instance + "/" + i.Username
}

// Anonymous reports whether the identity carries no credential.
func (i Identity) Anonymous() bool { return i.Token == "" }

// Watcher announces identity changes. The first value delivered is the
// identity current at subscription time.
type Watcher interface {
	Subscribe() (<-chan Identity, func())
}

// Store owns the current identity. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	current Identity
	subs    map[int]chan Identity
	nextID  int
}

// NewStore creates a store holding the given initial identity.
func NewStore(initial Identity) *Store {
	return &Store{current: initial, subs: make(map[int]chan Identity)}
}

// Current returns the active identity.
func (s *Store) Current() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Switch makes id the active identity. Subscribers are notified only when
// the account changed; a token refresh for the same account is silent.
func (s *Store) Switch(id Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := id.Key() != s.current.Key()
	s.current = id
	if !changed {
		return false
	}

	log.Info().
		Str("instance", id.Instance).
		Str("username", id.Username).
		Int64("account_id", id.AccountID).
		Msg("Active account switched")

	for _, ch := range s.subs {
		push(ch, id)
	}
	return true
}

// Subscribe registers for identity changes. The returned cancel func
// unregisters and closes the channel.
func (s *Store) Subscribe() (<-chan Identity, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Identity, changeBuffer)
	ch <- s.current
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// push delivers id without blocking. When the subscriber lags a full buffer
// behind, the oldest pending change is dropped; the newest always lands.
func push(ch chan Identity, id Identity) {
	for {
		select {
		case ch <- id:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// TokenClaims are the fields read from an instance-issued JWT
type TokenClaims struct {
	AccountID int64
	Issuer    string
}

// ParseToken reads the claims of an instance JWT without verifying its
// signature; the instance is the only party that can verify it.
func ParseToken(token string) (TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenClaims{}, fmt.Errorf("failed to parse token: %w", err)
	}

	var out TokenClaims
	switch sub := claims["sub"].(type) {
	case float64:
		out.AccountID = int64(sub)
	case string:
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return TokenClaims{}, fmt.Errorf("invalid token subject %q: %w", sub, err)
		}
		out.AccountID = id
	default:
		return TokenClaims{}, fmt.Errorf("token has no subject")
	}

	if iss, err := claims.GetIssuer(); err == nil {
		out.Issuer = iss
	}
	return out, nil
}

// IdentityFromToken builds an identity from a JWT issued by instance.
func IdentityFromToken(instance, username, token string) (Identity, error) {
	if token == "" {
		return Identity{Instance: instance, Username: username}, nil
	}
	claims, err := ParseToken(token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		Instance:  instance,
		AccountID: claims.AccountID,
		Username:  username,
		Token:     token,
	}, nil
}
