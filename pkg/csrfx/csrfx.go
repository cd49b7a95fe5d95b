// Package csrfx implements the session-held double-submit CSRF check used by
// all mutating endpoints. A token is issued when a form/detail page is served
// and must be echoed back on the mutation; tokens are single-use per session.
package csrfx

import (
	"sync"
	"time"

	"github.com/OpenConext/OpenConext-teams/pkg/cryptox"
)

const defaultTTL = 30 * time.Minute

type entry struct {
	token     string
	expiresAt time.Time
}

// Registry holds the per-session CSRF tokens. The session key is the
// authenticated person urn. State is process-local, mirroring the session
// scope of the tokens it protects.
type Registry struct {
	mu  sync.Mutex
	ttl time.Duration

	tokens map[string]entry
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Registry{
		ttl:    ttl,
		tokens: make(map[string]entry),
	}
}

// Issue generates a fresh token for the session, replacing any prior one.
func (r *Registry) Issue(session string) (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune()
	r.tokens[session] = entry{token: token, expiresAt: time.Now().Add(r.ttl)}
	return token, nil
}

// Check consumes the session's token and reports whether the submitted value
// matches it. The token is cleared regardless of the outcome, so a failed
// check also invalidates the held token.
func (r *Registry) Check(session, submitted string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	held, ok := r.tokens[session]
	if !ok {
		return false
	}
	delete(r.tokens, session)

	if time.Now().After(held.expiresAt) {
		return false
	}
	return cryptox.TokensEqual(held.token, submitted)
}

// prune drops expired entries. Caller must hold the lock.
func (r *Registry) prune() {
	now := time.Now()
	for session, e := range r.tokens {
		if now.After(e.expiresAt) {
			delete(r.tokens, session)
		}
	}
}
