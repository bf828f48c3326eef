// Package session owns the console's authentication token and its expiry.
//
// The store is the only writer of the session. Expiry is enforced lazily: every read
// checks the deadline and evicts an expired session before answering, so an expired
// session looks exactly like "never logged in".
package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/infra/tokenstore"
	"github.com/aalvaropc/doclane/internal/ports"
)

const storageTimeout = 5 * time.Second

// Store is a process-wide, mutex-guarded session holder backed by a TokenStorage.
type Store struct {
	mu      sync.Mutex
	cur     domain.Session
	storage ports.TokenStorage
	nav     ports.Navigator
	log     *slog.Logger
	ttl     time.Duration
	now     func() time.Time

	onEnd []func(reason string)
}

type Option func(*Store)

// WithTTL overrides how long a token is trusted after SetSession.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithNow is useful for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithNavigator sets the login redirect performed by Logout.
func WithNavigator(n ports.Navigator) Option {
	return func(s *Store) { s.nav = n }
}

// Open creates a store and loads any persisted session from storage.
// A nil storage keeps the session in memory only.
func Open(ctx context.Context, storage ports.TokenStorage, opts ...Option) (*Store, error) {
	if storage == nil {
		storage = tokenstore.NewMemoryStore()
	}
	s := &Store{
		storage: storage,
		log:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
		ttl:     domain.DefaultSessionTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	cur, err := storage.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.cur = cur
	return s, nil
}

var _ ports.SessionSource = (*Store)(nil)

// OnSessionEnd registers fn to run after every logout or expiry-driven eviction.
func (s *Store) OnSessionEnd(fn func(reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = append(s.onEnd, fn)
}

// SetSession stores token with ExpiresAt = now + TTL.
func (s *Store) SetSession(token string) {
	s.mu.Lock()
	s.cur = domain.Session{Token: token, ExpiresAt: s.now().Add(s.ttl)}
	cur := s.cur
	s.mu.Unlock()

	s.persist(func(ctx context.Context) error { return s.storage.Save(ctx, cur) }, "session.save")
	s.log.Info("session.set", "expires_at", cur.ExpiresAt)
}

// Session returns the current session if it is still valid.
func (s *Store) Session() (domain.Session, bool) {
	s.mu.Lock()
	cur, evicted := s.readLocked()
	s.mu.Unlock()

	if evicted {
		s.afterEviction("expired")
	}
	return cur, cur.Token != ""
}

// Token returns the token if present and unexpired, else "".
func (s *Store) Token() string {
	cur, _ := s.Session()
	return cur.Token
}

// IsAuthenticated reports whether Token would return a token.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// AuthHeader returns an empty header set when unauthenticated, else a bearer credential.
func (s *Store) AuthHeader() http.Header {
	h := http.Header{}
	if tok := s.Token(); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	return h
}

// ClearSession removes token and expiry unconditionally.
func (s *Store) ClearSession() {
	s.mu.Lock()
	s.cur = domain.Session{}
	s.mu.Unlock()

	s.persist(s.storage.Delete, "session.delete")
}

// Logout clears the session and navigates to the login entry point.
// Running sync loops are not cancelled here; they stop on their next authentication failure.
func (s *Store) Logout(reason string) {
	s.ClearSession()
	s.log.Info("session.logout", "reason", reason)
	s.endSession(reason)
}

// Expire is the authentication-failure path used by the dispatcher. It logs out only if
// token is still the active session, so simultaneous failures of requests that carried the
// same token yield a single logout.
func (s *Store) Expire(token string) bool {
	s.mu.Lock()
	if token == "" || s.cur.Token != token {
		s.mu.Unlock()
		return false
	}
	s.cur = domain.Session{}
	s.mu.Unlock()

	s.persist(s.storage.Delete, "session.delete")
	s.log.Warn("session.rejected", "reason", "authentication failure")
	s.endSession("session rejected by server")
	return true
}

// Claims decodes the current token without verifying its signature. The server is the
// only party that can verify it; the console uses the claims for display only.
func (s *Store) Claims() (domain.Claims, error) {
	tok := s.Token()
	if tok == "" {
		return domain.Claims{}, &domain.OpError{
			Op:   "session.claims",
			Kind: domain.KindAuthentication,
			Err:  domain.ErrNotAuthenticated,
		}
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, mc); err != nil {
		return domain.Claims{}, &domain.OpError{
			Op:   "session.claims",
			Kind: domain.KindParse,
			Err:  err,
		}
	}

	out := domain.Claims{Extra: map[string]any{}}
	if sub, err := mc.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	for k, v := range mc {
		switch k {
		case "sub", "exp", "iat":
			continue
		}
		out.Extra[k] = v
	}
	return out, nil
}

// readLocked applies lazy eviction. Caller holds s.mu.
func (s *Store) readLocked() (domain.Session, bool) {
	if s.cur.Token == "" {
		return domain.Session{}, false
	}
	if s.cur.Valid(s.now()) {
		return s.cur, false
	}
	s.cur = domain.Session{}
	return domain.Session{}, true
}

func (s *Store) afterEviction(reason string) {
	s.persist(s.storage.Delete, "session.delete")
	s.log.Info("session.expired")
	s.notifyEnd(reason)
}

func (s *Store) endSession(reason string) {
	if s.nav != nil {
		s.nav.ToLogin(reason)
	}
	s.notifyEnd(reason)
}

func (s *Store) notifyEnd(reason string) {
	s.mu.Lock()
	hooks := make([]func(string), len(s.onEnd))
	copy(hooks, s.onEnd)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(reason)
	}
}

func (s *Store) persist(op func(context.Context) error, event string) {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := op(ctx); err != nil {
		s.log.Error(event+".failed", "err", err)
	}
}
