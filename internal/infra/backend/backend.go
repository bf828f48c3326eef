// Package backend is the typed facade over the processing service API. Each method is
// one dispatcher call; errors are returned unchanged.
package backend

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/aalvaropc/doclane/internal/infra/dispatch"
	"github.com/aalvaropc/doclane/internal/ports"
)

const apiPrefix = "/api/v1"

// Caller is the subset of the dispatcher the facade needs.
type Caller interface {
	Get(ctx context.Context, path string, q url.Values, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Put(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string, out any) error
	PostForm(ctx context.Context, path string, form url.Values, out any) error
	Upload(ctx context.Context, path, filename string, content io.Reader, out any) error
	Download(ctx context.Context, path string) (dispatch.Response, error)
}

var _ Caller = (*dispatch.Dispatcher)(nil)

// Client groups the per-resource services.
type Client struct {
	Auth      *Auth
	Documents *Documents
	Results   *Results
	Queue     *Queue
	Dashboard *Dashboard
}

type Option func(*options)

type options struct {
	fields ports.FieldExtractor
}

// WithFieldExtractor populates ExtractionResult.Fields from the raw payload.
func WithFieldExtractor(fe ports.FieldExtractor) Option {
	return func(o *options) { o.fields = fe }
}

func New(c Caller, opts ...Option) *Client {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		Auth:      &Auth{c: c},
		Documents: &Documents{c: c},
		Results:   &Results{c: c, fields: o.fields},
		Queue:     &Queue{c: c},
		Dashboard: &Dashboard{c: c},
	}
}

func page(skip, limit int) url.Values {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	} else {
		q.Set("skip", "0")
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func idPath(base string, id int64, suffix ...string) string {
	p := base + "/" + strconv.FormatInt(id, 10)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}
