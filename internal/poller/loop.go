// Package poller re-fetches view state on a fixed interval while the view is active.
//
// Cycles are not serialized: a tick starts a fetch even when the previous one has not
// returned. Results are applied in completion order, so the most recently resolved
// fetch is what the view shows. Results that resolve after Stop are discarded.
package poller

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aalvaropc/doclane/internal/domain"
)

// Config describes one loop.
type Config[T any] struct {
	Name     string
	Interval time.Duration
	Fetch    func(ctx context.Context) (T, error)

	// Apply receives every result that resolves while the loop is active.
	Apply func(T)
	// OnError receives non-authentication failures. The loop keeps running.
	OnError func(error)
	// OnAuthFailure runs once when a cycle fails with an authentication error,
	// after the loop has stopped itself.
	OnAuthFailure func(error)

	Logger *slog.Logger
}

// Loop is a polling controller. The zero value is not usable; use New.
type Loop[T any] struct {
	cfg Config[T]
	log *slog.Logger

	mu     sync.Mutex
	active bool
	epoch  uint64
	ctx    context.Context
	stop   chan struct{}

	// applyMu orders Apply/OnError calls by completion.
	applyMu sync.Mutex
	cycles  sync.WaitGroup
}

func New[T any](cfg Config[T]) *Loop[T] {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Loop[T]{cfg: cfg, log: log.With("loop", cfg.Name)}
}

// Start performs an immediate fetch and then one fetch per interval. In-flight fetches
// run with ctx and are not cancelled by Stop. Starting an active loop is a no-op.
func (l *Loop[T]) Start(ctx context.Context) {
	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		return
	}
	l.active = true
	l.epoch++
	l.ctx = ctx
	l.stop = make(chan struct{})
	epoch, stop := l.epoch, l.stop
	l.mu.Unlock()

	l.log.Debug("poller.start", "interval", l.cfg.Interval.String())
	l.spawn(ctx, epoch)

	if l.cfg.Interval > 0 {
		go l.tick(ctx, epoch, stop)
	}
}

// Stop cancels the timer. Results of fetches still in flight are dropped.
func (l *Loop[T]) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

// Refresh starts an out-of-band cycle if the loop is active.
func (l *Loop[T]) Refresh() {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return
	}
	ctx, epoch := l.ctx, l.epoch
	l.mu.Unlock()

	l.spawn(ctx, epoch)
}

// Active reports whether the loop is running.
func (l *Loop[T]) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Wait blocks until every started cycle has resolved. Call it after Stop.
func (l *Loop[T]) Wait() {
	l.cycles.Wait()
}

func (l *Loop[T]) stopLocked() {
	if !l.active {
		return
	}
	l.active = false
	l.epoch++
	close(l.stop)
	l.log.Debug("poller.stop")
}

func (l *Loop[T]) tick(ctx context.Context, epoch uint64, stop <-chan struct{}) {
	t := time.NewTicker(l.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			l.mu.Lock()
			if l.epoch == epoch {
				l.stopLocked()
			}
			l.mu.Unlock()
			return
		case <-t.C:
			l.spawn(ctx, epoch)
		}
	}
}

func (l *Loop[T]) spawn(ctx context.Context, epoch uint64) {
	l.mu.Lock()
	if !l.active || l.epoch != epoch {
		l.mu.Unlock()
		return
	}
	l.cycles.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.cycles.Done()
		l.cycle(ctx, epoch)
	}()
}

func (l *Loop[T]) cycle(ctx context.Context, epoch uint64) {
	v, err := l.cfg.Fetch(ctx)

	l.applyMu.Lock()
	defer l.applyMu.Unlock()

	if !l.current(epoch) {
		l.log.Debug("poller.discarded", "err", err)
		return
	}

	if err != nil {
		if domain.IsAuthentication(err) {
			l.mu.Lock()
			stopped := l.epoch == epoch && l.active
			if stopped {
				l.stopLocked()
			}
			l.mu.Unlock()

			if stopped {
				l.log.Warn("poller.auth_failure", "err", err)
				if l.cfg.OnAuthFailure != nil {
					l.cfg.OnAuthFailure(err)
				}
			}
			return
		}

		l.log.Warn("poller.fetch_failed", "err", err)
		if l.cfg.OnError != nil {
			l.cfg.OnError(err)
		}
		return
	}

	if l.cfg.Apply != nil {
		l.cfg.Apply(v)
	}
}

func (l *Loop[T]) current(epoch uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active && l.epoch == epoch
}
