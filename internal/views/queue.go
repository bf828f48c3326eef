package views

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/eventbus"
	"github.com/aalvaropc/doclane/internal/poller"
	"github.com/aalvaropc/doclane/internal/ports"
)

// QueueState is what the queue screen renders.
type QueueState struct {
	Documents []domain.Document
	Counts    domain.QueueCounts
	UpdatedAt time.Time
	// Err is the last fetch failure; it is cleared by the next successful fetch.
	Err error
	// SessionEnded is set when polling stopped on an authentication failure.
	SessionEnded bool
}

// QueueView polls the recent documents list.
type QueueView struct {
	bus  Subscriber
	loop *poller.Loop[[]domain.Document]
	log  *slog.Logger

	mu       sync.Mutex
	state    QueueState
	subs     subscriptions
	onChange func(QueueState)
}

func NewQueueView(docs ports.DocumentService, bus Subscriber, cfg domain.PollingConfig, opts ...Option) *QueueView {
	o := buildOptions(opts)
	v := &QueueView{bus: bus, log: o.log.With("view", "queue")}

	limit := cfg.QueuePageSize
	v.loop = poller.New(poller.Config[[]domain.Document]{
		Name:     "queue",
		Interval: cfg.QueueInterval,
		Fetch: func(ctx context.Context) ([]domain.Document, error) {
			return docs.List(ctx, 0, limit)
		},
		Apply:         v.apply,
		OnError:       v.fail,
		OnAuthFailure: v.authFailed,
		Logger:        o.log,
	})
	if o.group != nil {
		o.group.Add(v.loop)
	}
	return v
}

// OnChange registers the single state listener. It runs on the polling goroutine.
func (v *QueueView) OnChange(fn func(QueueState)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

// Mount starts polling and listens for upload and document change events.
func (v *QueueView) Mount(ctx context.Context) {
	v.mu.Lock()
	if len(v.subs) == 0 && v.bus != nil {
		refresh := func(eventbus.Event) { v.loop.Refresh() }
		v.subs = append(v.subs,
			v.bus.Subscribe(eventbus.TopicDocumentUploaded, refresh),
			v.bus.Subscribe(eventbus.TopicDocumentsChanged, refresh),
		)
	}
	v.state.SessionEnded = false
	v.mu.Unlock()

	v.loop.Start(ctx)
}

// Unmount stops polling; results still in flight are dropped.
func (v *QueueView) Unmount() {
	v.mu.Lock()
	v.subs.cancel()
	v.mu.Unlock()
	v.loop.Stop()
}

// Refresh fetches now instead of waiting for the timer.
func (v *QueueView) Refresh() { v.loop.Refresh() }

// Wait blocks until in-flight fetches resolve. Call after Unmount.
func (v *QueueView) Wait() { v.loop.Wait() }

func (v *QueueView) State() QueueState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *QueueView) apply(docs []domain.Document) {
	v.mu.Lock()
	prev := make(map[int64]domain.DocumentStatus, len(v.state.Documents))
	for _, d := range v.state.Documents {
		prev[d.ID] = d.Status
	}
	for _, d := range docs {
		if !domain.ValidObservation(prev[d.ID], d.Status) {
			v.log.Warn("queue.unexpected_transition", "document_id", d.ID, "from", prev[d.ID], "to", d.Status)
		}
	}

	v.state.Documents = docs
	v.state.Counts = domain.CountByStatus(docs)
	v.state.UpdatedAt = time.Now()
	v.state.Err = nil
	st, fn := v.state, v.onChange
	v.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

func (v *QueueView) fail(err error) {
	v.mu.Lock()
	v.state.Err = err
	st, fn := v.state, v.onChange
	v.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

func (v *QueueView) authFailed(err error) {
	v.mu.Lock()
	v.state.Err = err
	v.state.SessionEnded = true
	st, fn := v.state, v.onChange
	v.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}
