package usecase

import (
	"context"
	"time"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/eventbus"
	"github.com/aalvaropc/doclane/internal/ports"
)

// DocumentActions issues single-document transitions. The caller passes the status it
// last observed; requests the lifecycle does not allow are refused without a call.
type DocumentActions struct {
	docs ports.DocumentService
	bus  ports.Publisher
	now  func() time.Time
}

func NewDocumentActions(docs ports.DocumentService, bus ports.Publisher) *DocumentActions {
	return &DocumentActions{docs: docs, bus: bus, now: time.Now}
}

func (uc *DocumentActions) Process(ctx context.Context, doc domain.Document, priority int) (domain.Document, error) {
	return uc.do(doc, domain.ActionProcess, func() (domain.Document, error) {
		return uc.docs.Process(ctx, doc.ID, priority)
	})
}

func (uc *DocumentActions) Reprocess(ctx context.Context, doc domain.Document, priority int) (domain.Document, error) {
	return uc.do(doc, domain.ActionReprocess, func() (domain.Document, error) {
		return uc.docs.Reprocess(ctx, doc.ID, priority)
	})
}

func (uc *DocumentActions) Delete(ctx context.Context, doc domain.Document) (domain.Document, error) {
	return uc.do(doc, domain.ActionDelete, func() (domain.Document, error) {
		return uc.docs.Delete(ctx, doc.ID)
	})
}

func (uc *DocumentActions) do(doc domain.Document, action domain.Action, call func() (domain.Document, error)) (domain.Document, error) {
	if err := domain.CanRequest(doc.Status, action); err != nil {
		return domain.Document{}, err
	}
	out, err := call()
	if err != nil {
		return domain.Document{}, err
	}
	if uc.bus != nil {
		uc.bus.Publish(eventbus.TopicDocumentsChanged, DocumentsChanged{
			Action:    action,
			Count:     1,
			Timestamp: uc.now(),
		})
	}
	return out, nil
}
