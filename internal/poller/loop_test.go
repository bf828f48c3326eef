package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aalvaropc/doclane/internal/domain"
)

// gatedFetch hands out one gate per call so tests control completion order.
type gatedFetch struct {
	entered chan int
	mu      sync.Mutex
	gates   map[int]chan struct{}
	n       int
}

func newGatedFetch() *gatedFetch {
	return &gatedFetch{entered: make(chan int, 16), gates: map[int]chan struct{}{}}
}

func (g *gatedFetch) fetch(ctx context.Context) (int, error) {
	g.mu.Lock()
	g.n++
	id := g.n
	gate := make(chan struct{})
	g.gates[id] = gate
	g.mu.Unlock()

	g.entered <- id
	<-gate
	return id, nil
}

func (g *gatedFetch) release(id int) {
	g.mu.Lock()
	gate := g.gates[id]
	g.mu.Unlock()
	close(gate)
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting")
	}
	var zero T
	return zero
}

func TestLoop_StartFetchesImmediately(t *testing.T) {
	applied := make(chan string, 1)
	l := New(Config[string]{
		Name:     "queue",
		Interval: time.Hour,
		Fetch:    func(context.Context) (string, error) { return "snapshot", nil },
		Apply:    func(v string) { applied <- v },
	})

	l.Start(context.Background())
	defer l.Stop()

	if got := waitFor(t, applied); got != "snapshot" {
		t.Fatalf("unexpected value %q", got)
	}
	if !l.Active() {
		t.Fatalf("expected loop active")
	}
}

func TestLoop_LastCompletedWins(t *testing.T) {
	g := newGatedFetch()
	applied := make(chan int, 4)
	var mu sync.Mutex
	var state int

	l := New(Config[int]{
		Name:     "queue",
		Interval: time.Hour,
		Fetch:    g.fetch,
		Apply: func(v int) {
			mu.Lock()
			state = v
			mu.Unlock()
			applied <- v
		},
	})

	l.Start(context.Background())
	first := waitFor(t, g.entered)
	l.Refresh()
	second := waitFor(t, g.entered)

	// The later-issued fetch resolves first, the earlier one last.
	g.release(second)
	if got := waitFor(t, applied); got != second {
		t.Fatalf("expected %d applied first, got %d", second, got)
	}
	g.release(first)
	if got := waitFor(t, applied); got != first {
		t.Fatalf("expected %d applied last, got %d", first, got)
	}

	l.Stop()
	l.Wait()

	mu.Lock()
	defer mu.Unlock()
	if state != first {
		t.Fatalf("expected state from last completed fetch (%d), got %d", first, state)
	}
}

func TestLoop_DiscardsResultsAfterStop(t *testing.T) {
	g := newGatedFetch()
	var applies atomic.Int32

	l := New(Config[int]{
		Name:     "dashboard",
		Interval: time.Hour,
		Fetch:    g.fetch,
		Apply:    func(int) { applies.Add(1) },
	})

	l.Start(context.Background())
	id := waitFor(t, g.entered)
	l.Stop()
	g.release(id)
	l.Wait()

	if applies.Load() != 0 {
		t.Fatalf("expected in-flight result to be discarded, got %d applies", applies.Load())
	}
}

func TestLoop_DiscardsResultsFromPreviousActivation(t *testing.T) {
	g := newGatedFetch()
	applied := make(chan int, 4)

	l := New(Config[int]{
		Name:     "queue",
		Interval: time.Hour,
		Fetch:    g.fetch,
		Apply:    func(v int) { applied <- v },
	})

	l.Start(context.Background())
	stale := waitFor(t, g.entered)
	l.Stop()

	l.Start(context.Background())
	fresh := waitFor(t, g.entered)

	g.release(stale)
	g.release(fresh)
	if got := waitFor(t, applied); got != fresh {
		t.Fatalf("expected only fresh result %d, got %d", fresh, got)
	}

	l.Stop()
	l.Wait()
	select {
	case v := <-applied:
		t.Fatalf("unexpected stale apply %d", v)
	default:
	}
}

func TestLoop_ErrorKeepsTimerAlive(t *testing.T) {
	errs := make(chan error, 64)
	var fetches atomic.Int32

	l := New(Config[int]{
		Name:     "queue",
		Interval: 5 * time.Millisecond,
		Fetch: func(context.Context) (int, error) {
			fetches.Add(1)
			return 0, &domain.OpError{Op: "test", Kind: domain.KindNetwork, Err: errors.New("down")}
		},
		OnError: func(err error) { errs <- err },
	})

	l.Start(context.Background())
	for i := 0; i < 3; i++ {
		if err := waitFor(t, errs); !domain.IsKind(err, domain.KindNetwork) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if !l.Active() {
		t.Fatalf("expected loop to survive transient errors")
	}
	l.Stop()
	l.Wait()

	if fetches.Load() < 3 {
		t.Fatalf("expected repeated fetches, got %d", fetches.Load())
	}
}

func TestLoop_AuthFailureStopsLoop(t *testing.T) {
	authFailures := make(chan error, 4)
	var fetches atomic.Int32

	l := New(Config[int]{
		Name:     "queue",
		Interval: 5 * time.Millisecond,
		Fetch: func(context.Context) (int, error) {
			fetches.Add(1)
			return 0, &domain.OpError{Op: "test", Kind: domain.KindAuthentication, Err: domain.ErrSessionExpired}
		},
		OnError:       func(err error) { t.Errorf("auth failure must not reach OnError: %v", err) },
		OnAuthFailure: func(err error) { authFailures <- err },
	})

	l.Start(context.Background())
	waitFor(t, authFailures)

	if l.Active() {
		t.Fatalf("expected loop stopped after authentication failure")
	}
	l.Wait()
	n := fetches.Load()

	time.Sleep(30 * time.Millisecond)
	if fetches.Load() != n {
		t.Fatalf("expected no fetches after stop, got %d more", fetches.Load()-n)
	}
	if len(authFailures) != 0 {
		t.Fatalf("expected a single auth failure report")
	}
}

func TestLoop_StartIsIdempotent(t *testing.T) {
	var fetches atomic.Int32
	done := make(chan struct{}, 4)

	l := New(Config[int]{
		Name:     "queue",
		Interval: time.Hour,
		Fetch: func(context.Context) (int, error) {
			fetches.Add(1)
			return 1, nil
		},
		Apply: func(int) { done <- struct{}{} },
	})

	l.Start(context.Background())
	l.Start(context.Background())
	waitFor(t, done)
	l.Stop()
	l.Wait()

	if fetches.Load() != 1 {
		t.Fatalf("expected one initial fetch, got %d", fetches.Load())
	}
}

func TestLoop_RefreshWhenInactiveIsNoop(t *testing.T) {
	var fetches atomic.Int32
	l := New(Config[int]{
		Name: "queue",
		Fetch: func(context.Context) (int, error) {
			fetches.Add(1)
			return 0, nil
		},
	})

	l.Refresh()
	l.Wait()
	if fetches.Load() != 0 {
		t.Fatalf("expected no fetch while inactive")
	}
}

func TestLoop_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(Config[int]{
		Name:     "queue",
		Interval: 5 * time.Millisecond,
		Fetch:    func(context.Context) (int, error) { return 0, nil },
	})

	l.Start(ctx)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for l.Active() {
		if time.Now().After(deadline) {
			t.Fatalf("expected loop to stop after context cancel")
		}
		time.Sleep(time.Millisecond)
	}
	l.Wait()
}

func TestGroup_StopAll(t *testing.T) {
	var g Group
	a := New(Config[int]{Name: "a", Interval: time.Hour, Fetch: func(context.Context) (int, error) { return 0, nil }})
	b := New(Config[string]{Name: "b", Interval: time.Hour, Fetch: func(context.Context) (string, error) { return "", nil }})
	g.Add(a)
	g.Add(b)

	a.Start(context.Background())
	b.Start(context.Background())
	g.StopAll()

	if a.Active() || b.Active() {
		t.Fatalf("expected all loops stopped")
	}
	a.Wait()
	b.Wait()
}
