package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/eventbus"
	"github.com/aalvaropc/doclane/internal/ports"
)

// DocumentsChanged is the payload of eventbus.TopicDocumentsChanged.
type DocumentsChanged struct {
	Action    domain.Action
	Count     int
	Timestamp time.Time
}

// BatchDocuments applies one action to every eligible document of a snapshot.
// Items are issued sequentially; one event is published per batch.
type BatchDocuments struct {
	docs     ports.DocumentService
	bus      ports.Publisher
	log      *slog.Logger
	priority int
	now      func() time.Time
}

type BatchOption func(*BatchDocuments)

func WithBatchLogger(l *slog.Logger) BatchOption {
	return func(b *BatchDocuments) {
		if l != nil {
			b.log = l
		}
	}
}

// WithPriority sets the priority sent with process and reprocess calls.
func WithPriority(p int) BatchOption {
	return func(b *BatchDocuments) { b.priority = domain.ClampPriority(p) }
}

func NewBatchDocuments(docs ports.DocumentService, bus ports.Publisher, opts ...BatchOption) *BatchDocuments {
	b := &BatchDocuments{
		docs:     docs,
		bus:      bus,
		log:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
		priority: domain.MinPriority,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProcessPending asks the service to process every pending document of snapshot.
func (uc *BatchDocuments) ProcessPending(ctx context.Context, snapshot []domain.Document) (domain.BatchReport, error) {
	return uc.run(ctx, domain.ActionProcess, snapshot, allowed(domain.ActionProcess), func(ctx context.Context, id int64) error {
		_, err := uc.docs.Process(ctx, id, uc.priority)
		return err
	})
}

// ReprocessFailed re-submits every failed document of snapshot.
func (uc *BatchDocuments) ReprocessFailed(ctx context.Context, snapshot []domain.Document) (domain.BatchReport, error) {
	isFailed := func(d domain.Document) bool { return d.Status == domain.StatusFailed }
	return uc.run(ctx, domain.ActionReprocess, snapshot, isFailed, func(ctx context.Context, id int64) error {
		_, err := uc.docs.Reprocess(ctx, id, uc.priority)
		return err
	})
}

// DeleteAll deletes every document of snapshot that is not being processed.
func (uc *BatchDocuments) DeleteAll(ctx context.Context, snapshot []domain.Document) (domain.BatchReport, error) {
	return uc.run(ctx, domain.ActionDelete, snapshot, allowed(domain.ActionDelete), func(ctx context.Context, id int64) error {
		_, err := uc.docs.Delete(ctx, id)
		return err
	})
}

// run issues fn for every document of snapshot accepted by eligible. An authentication failure aborts
// the batch: the remaining items are reported as skipped and the error is returned.
// Other failures are recorded and the batch continues.
func (uc *BatchDocuments) run(
	ctx context.Context,
	action domain.Action,
	snapshot []domain.Document,
	eligible func(domain.Document) bool,
	fn func(context.Context, int64) error,
) (domain.BatchReport, error) {
	rep := domain.BatchReport{Action: string(action)}

	targets := make([]int64, 0, len(snapshot))
	for _, d := range snapshot {
		if !eligible(d) {
			rep.Ineligible = append(rep.Ineligible, d.ID)
			continue
		}
		targets = append(targets, d.ID)
	}

	var abortErr error
	for i, id := range targets {
		if err := ctx.Err(); err != nil {
			rep.Skipped = append(rep.Skipped, targets[i:]...)
			abortErr = err
			break
		}

		err := fn(ctx, id)
		if err == nil {
			rep.Succeeded = append(rep.Succeeded, id)
			continue
		}

		rep.Failed = append(rep.Failed, domain.BatchFailure{ID: id, Err: err})
		uc.log.Warn("batch.item_failed", "action", action, "document_id", id, "err", err)

		if domain.IsAuthentication(err) {
			rep.Skipped = append(rep.Skipped, targets[i+1:]...)
			abortErr = err
			break
		}
	}

	uc.log.Info("batch.done",
		"action", action,
		"succeeded", len(rep.Succeeded),
		"failed", len(rep.Failed),
		"skipped", len(rep.Skipped),
		"outcome", rep.Outcome(),
	)

	if len(rep.Succeeded) > 0 && uc.bus != nil {
		uc.bus.Publish(eventbus.TopicDocumentsChanged, DocumentsChanged{
			Action:    action,
			Count:     len(rep.Succeeded),
			Timestamp: uc.now(),
		})
	}

	return rep, abortErr
}

func allowed(a domain.Action) func(domain.Document) bool {
	return func(d domain.Document) bool { return domain.CanRequest(d.Status, a) == nil }
}
