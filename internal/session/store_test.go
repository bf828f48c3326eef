package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/infra/tokenstore"
)

type countingNav struct {
	calls atomic.Int32
}

func (n *countingNav) ToLogin(string) { n.calls.Add(1) }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newStore(t *testing.T, opts ...Option) (*Store, *tokenstore.MemoryStore) {
	t.Helper()
	mem := tokenstore.NewMemoryStore()
	s, err := Open(context.Background(), mem, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, mem
}

func TestStore_SetSessionAndExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s, mem := newStore(t, WithNow(clock.Now), WithTTL(time.Hour))

	if s.IsAuthenticated() {
		t.Fatalf("expected fresh store to be unauthenticated")
	}

	s.SetSession("tok-1")
	if got := s.Token(); got != "tok-1" {
		t.Fatalf("expected tok-1, got %q", got)
	}
	persisted, _ := mem.Load(context.Background())
	if !persisted.ExpiresAt.Equal(clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected persisted expiry: %v", persisted.ExpiresAt)
	}

	clock.Advance(59 * time.Minute)
	if !s.IsAuthenticated() {
		t.Fatalf("expected session still valid before ttl")
	}

	clock.Advance(2 * time.Minute)
	if got := s.Token(); got != "" {
		t.Fatalf("expected expired token to be evicted, got %q", got)
	}
	// Reading twice after expiry stays empty.
	if got := s.Token(); got != "" {
		t.Fatalf("expected empty token on second read, got %q", got)
	}
	persisted, _ = mem.Load(context.Background())
	if persisted.Token != "" {
		t.Fatalf("expected eviction to clear storage, got %+v", persisted)
	}
}

func TestStore_LoadsPersistedSession(t *testing.T) {
	mem := tokenstore.NewMemoryStore()
	_ = mem.Save(context.Background(), domain.Session{Token: "saved", ExpiresAt: time.Now().Add(time.Hour)})

	s, err := Open(context.Background(), mem)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Token() != "saved" {
		t.Fatalf("expected persisted token to be restored")
	}
}

func TestStore_AuthHeader(t *testing.T) {
	s, _ := newStore(t)

	if h := s.AuthHeader(); len(h) != 0 {
		t.Fatalf("expected empty header set, got %v", h)
	}

	s.SetSession("abc")
	if got := s.AuthHeader().Get("Authorization"); got != "Bearer abc" {
		t.Fatalf("unexpected Authorization header: %q", got)
	}
}

func TestStore_LogoutNavigates(t *testing.T) {
	nav := &countingNav{}
	s, _ := newStore(t, WithNavigator(nav))

	var reasons []string
	s.OnSessionEnd(func(reason string) { reasons = append(reasons, reason) })

	s.SetSession("abc")
	s.Logout("user request")

	if s.IsAuthenticated() {
		t.Fatalf("expected logout to clear session")
	}
	if nav.calls.Load() != 1 {
		t.Fatalf("expected one navigation, got %d", nav.calls.Load())
	}
	if len(reasons) != 1 || reasons[0] != "user request" {
		t.Fatalf("unexpected session end hooks: %v", reasons)
	}
}

func TestStore_ExpireOnlyOncePerToken(t *testing.T) {
	nav := &countingNav{}
	s, _ := newStore(t, WithNavigator(nav))
	s.SetSession("shared")

	var wg sync.WaitGroup
	var won atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Expire("shared") {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	if won.Load() != 1 {
		t.Fatalf("expected exactly one Expire to win, got %d", won.Load())
	}
	if nav.calls.Load() != 1 {
		t.Fatalf("expected exactly one logout navigation, got %d", nav.calls.Load())
	}
}

func TestStore_ExpireIgnoresStaleToken(t *testing.T) {
	nav := &countingNav{}
	s, _ := newStore(t, WithNavigator(nav))

	s.SetSession("old")
	s.SetSession("new")

	if s.Expire("old") {
		t.Fatalf("expected stale token expiry to be ignored")
	}
	if s.Token() != "new" {
		t.Fatalf("expected newer session to survive")
	}
	if nav.calls.Load() != 0 {
		t.Fatalf("expected no navigation")
	}
}

func TestStore_Claims(t *testing.T) {
	s, _ := newStore(t)

	if _, err := s.Claims(); !domain.IsAuthentication(err) {
		t.Fatalf("expected authentication error without session, got %v", err)
	}

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "alice",
		"exp":  exp.Unix(),
		"role": "reviewer",
	})
	signed, err := tok.SignedString([]byte("whatever"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	s.SetSession(signed)

	c, err := s.Claims()
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if c.Subject != "alice" {
		t.Fatalf("unexpected subject %q", c.Subject)
	}
	if !c.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected exp %v, want %v", c.ExpiresAt, exp)
	}
	if c.Extra["role"] != "reviewer" {
		t.Fatalf("expected extra role claim, got %v", c.Extra)
	}
}

func TestStore_ClaimsMalformedToken(t *testing.T) {
	s, _ := newStore(t)
	s.SetSession("not-a-jwt")

	if _, err := s.Claims(); !domain.IsKind(err, domain.KindParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
