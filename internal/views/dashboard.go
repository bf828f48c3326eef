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

// DashboardSnapshot is one dashboard cycle: aggregate stats, the most recent documents
// and the chart metrics.
type DashboardSnapshot struct {
	Stats   domain.Stats
	Recent  []domain.Document
	Metrics domain.ProcessingMetrics
}

type DashboardState struct {
	DashboardSnapshot
	UpdatedAt    time.Time
	Err          error
	SessionEnded bool
}

// DashboardView polls the dashboard aggregates.
type DashboardView struct {
	bus  Subscriber
	loop *poller.Loop[DashboardSnapshot]
	log  *slog.Logger

	mu       sync.Mutex
	state    DashboardState
	subs     subscriptions
	onChange func(DashboardState)
}

func NewDashboardView(dash ports.DashboardService, docs ports.DocumentService, bus Subscriber, cfg domain.PollingConfig, opts ...Option) *DashboardView {
	o := buildOptions(opts)
	v := &DashboardView{bus: bus, log: o.log.With("view", "dashboard")}

	recent := cfg.RecentLimit
	v.loop = poller.New(poller.Config[DashboardSnapshot]{
		Name:     "dashboard",
		Interval: cfg.DashboardInterval,
		Fetch: func(ctx context.Context) (DashboardSnapshot, error) {
			return fetchDashboard(ctx, dash, docs, recent)
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

// fetchDashboard issues the three calls of one cycle in order; the first failure fails
// the cycle.
func fetchDashboard(ctx context.Context, dash ports.DashboardService, docs ports.DocumentService, recent int) (DashboardSnapshot, error) {
	var snap DashboardSnapshot
	var err error

	if snap.Stats, err = dash.Stats(ctx); err != nil {
		return DashboardSnapshot{}, err
	}
	if snap.Recent, err = docs.List(ctx, 0, recent); err != nil {
		return DashboardSnapshot{}, err
	}
	if snap.Metrics, err = dash.ProcessingMetrics(ctx); err != nil {
		return DashboardSnapshot{}, err
	}
	return snap, nil
}

func (v *DashboardView) OnChange(fn func(DashboardState)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

// Mount starts polling and refreshes on uploads, document changes and validations.
func (v *DashboardView) Mount(ctx context.Context) {
	v.mu.Lock()
	if len(v.subs) == 0 && v.bus != nil {
		refresh := func(eventbus.Event) { v.loop.Refresh() }
		v.subs = append(v.subs,
			v.bus.Subscribe(eventbus.TopicDocumentUploaded, refresh),
			v.bus.Subscribe(eventbus.TopicDocumentsChanged, refresh),
			v.bus.Subscribe(eventbus.TopicResultValidated, refresh),
		)
	}
	v.state.SessionEnded = false
	v.mu.Unlock()

	v.loop.Start(ctx)
}

func (v *DashboardView) Unmount() {
	v.mu.Lock()
	v.subs.cancel()
	v.mu.Unlock()
	v.loop.Stop()
}

func (v *DashboardView) Refresh() { v.loop.Refresh() }

func (v *DashboardView) Wait() { v.loop.Wait() }

func (v *DashboardView) State() DashboardState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *DashboardView) apply(snap DashboardSnapshot) {
	v.mu.Lock()
	v.state.DashboardSnapshot = snap
	v.state.UpdatedAt = time.Now()
	v.state.Err = nil
	st, fn := v.state, v.onChange
	v.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

func (v *DashboardView) fail(err error) {
	v.mu.Lock()
	v.state.Err = err
	st, fn := v.state, v.onChange
	v.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

func (v *DashboardView) authFailed(err error) {
	v.mu.Lock()
	v.state.Err = err
	v.state.SessionEnded = true
	st, fn := v.state, v.onChange
	v.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}
