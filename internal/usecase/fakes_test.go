package usecase

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/eventbus"
)

// fakeDocs fails the ids listed in failWith and records every call.
type fakeDocs struct {
	mu       sync.Mutex
	calls    []string
	failWith map[int64]error
	uploadFn func(name string, content []byte) (domain.Document, error)
}

func (f *fakeDocs) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeDocs) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeDocs) result(id int64, status domain.DocumentStatus) (domain.Document, error) {
	if err, ok := f.failWith[id]; ok {
		return domain.Document{}, err
	}
	return domain.Document{ID: id, Status: status}, nil
}

func (f *fakeDocs) List(context.Context, int, int) ([]domain.Document, error) {
	return nil, nil
}

func (f *fakeDocs) Upload(_ context.Context, name string, content io.Reader) (domain.Document, error) {
	f.record("upload " + name)
	b, _ := io.ReadAll(content)
	if f.uploadFn != nil {
		return f.uploadFn(name, b)
	}
	return domain.Document{Filename: name, Status: domain.StatusPending}, nil
}

func (f *fakeDocs) Delete(_ context.Context, id int64) (domain.Document, error) {
	f.record("delete")
	return f.result(id, domain.StatusPending)
}

func (f *fakeDocs) Process(_ context.Context, id int64, _ int) (domain.Document, error) {
	f.record("process")
	return f.result(id, domain.StatusProcessing)
}

func (f *fakeDocs) Reprocess(_ context.Context, id int64, _ int) (domain.Document, error) {
	f.record("reprocess")
	return f.result(id, domain.StatusProcessing)
}

func recordTopic(bus *eventbus.Bus, topic string) *[]eventbus.Event {
	var got []eventbus.Event
	bus.Subscribe(topic, func(e eventbus.Event) { got = append(got, e) })
	return &got
}

func apiErr(detail string) error {
	return &domain.OpError{Op: "test", Kind: domain.KindAPI, Status: 400, Detail: detail, Err: errors.New(detail)}
}

func authErr() error {
	return &domain.OpError{Op: "test", Kind: domain.KindAuthentication, Status: 401, Err: domain.ErrSessionExpired}
}

func docs(statuses ...domain.DocumentStatus) []domain.Document {
	out := make([]domain.Document, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, domain.Document{ID: int64(i + 1), Status: s})
	}
	return out
}
