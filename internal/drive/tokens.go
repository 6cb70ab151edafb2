package drive

import (
	"sync"
	"time"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/util"
)

const tokenLength = 32

// ScanToken is the short-lived credential a student shows as a QR code.
type ScanToken struct {
	Value     string
	UserID    uint
	JobID     uint
	RoundID   uint
	SessionID uint
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenState uint8

const (
	tokenLive tokenState = iota
	tokenConsumed
	tokenRevoked
)

type storedToken struct {
	ScanToken
	state      tokenState
	superseded bool
}

type bindingKey struct {
	userID    uint
	roundID   uint
	sessionID uint
}

// TokenStore keeps scan tokens in memory, keyed by value. Tokens are
// meaningless after expiry or redemption, so nothing is persisted.
type TokenStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	byValue  map[string]*storedToken
	current  map[bindingKey]string
	newValue func() (string, error)
}

// NewTokenStore returns a store minting tokens valid for ttl.
func NewTokenStore(ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &TokenStore{
		ttl:     ttl,
		byValue: make(map[string]*storedToken),
		current: make(map[bindingKey]string),
		newValue: func() (string, error) {
			return util.RandomString(tokenLength)
		},
	}
}

// TTL returns the lifetime of freshly minted tokens.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

// Issue mints a token for the binding and supersedes the previous token of
// the same (user, round, session).
func (s *TokenStore) Issue(b ScanToken, now time.Time) (ScanToken, error) {
	value, err := s.newValue()
	if err != nil {
		return ScanToken{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := bindingKey{userID: b.UserID, roundID: b.RoundID, sessionID: b.SessionID}
	if prev, ok := s.byValue[s.current[key]]; ok && prev.state == tokenLive {
		// archive the old one the moment its replacement exists
		prev.superseded = true
		if prev.ExpiresAt.After(now) {
			prev.ExpiresAt = now
		}
	}

	tok := b
	tok.Value = value
	tok.IssuedAt = now
	tok.ExpiresAt = now.Add(s.ttl)
	s.byValue[value] = &storedToken{ScanToken: tok}
	s.current[key] = value
	return tok, nil
}

// Lookup returns the binding of a token without touching its state.
func (s *TokenStore) Lookup(value string) (ScanToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byValue[value]
	if !ok {
		return ScanToken{}, false
	}
	return t.ScanToken, true
}

// Claim marks a live token consumed. Exactly one of any number of concurrent
// claims on the same value succeeds.
func (s *TokenStore) Claim(value string, now time.Time) (ScanToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byValue[value]
	switch {
	case !ok:
		return ScanToken{}, ErrTokenNotFound
	case t.state == tokenConsumed:
		return ScanToken{}, ErrTokenConsumed
	case t.state == tokenRevoked:
		return ScanToken{}, ErrNotActive
	case t.superseded || now.After(t.ExpiresAt):
		return ScanToken{}, ErrTokenExpired
	}
	t.state = tokenConsumed
	return t.ScanToken, nil
}

// Release undoes a Claim whose ledger write failed for reasons unrelated to
// the scan itself.
func (s *TokenStore) Release(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byValue[value]; ok && t.state == tokenConsumed {
		t.state = tokenLive
	}
}

// RevokeSession invalidates every outstanding token of a session and
// returns how many were live.
func (s *TokenStore) RevokeSession(sessionID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.byValue {
		if t.SessionID == sessionID && t.state == tokenLive {
			t.state = tokenRevoked
			n++
		}
	}
	return n
}

// Sweep drops tokens that have been dead for at least one TTL. Until then
// they are kept so a late scan gets a precise error instead of not-found.
func (s *TokenStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for value, t := range s.byValue {
		if now.Before(t.ExpiresAt.Add(s.ttl)) {
			continue
		}
		delete(s.byValue, value)
		key := bindingKey{userID: t.UserID, roundID: t.RoundID, sessionID: t.SessionID}
		if s.current[key] == value {
			delete(s.current, key)
		}
		n++
	}
	return n
}

// Len returns the number of tokens held, dead or alive.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byValue)
}
