package backend

import (
	"context"
	"io"
	"mime"
	"path"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/ports"
)

const documentsPath = apiPrefix + "/documents"

type Documents struct {
	c Caller
}

var _ ports.DocumentService = (*Documents)(nil)

func (d *Documents) List(ctx context.Context, skip, limit int) ([]domain.Document, error) {
	var out []domain.Document
	if err := d.c.Get(ctx, documentsPath, page(skip, limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Documents) Get(ctx context.Context, id int64) (domain.Document, error) {
	var out domain.Document
	err := d.c.Get(ctx, idPath(documentsPath, id), nil, &out)
	return out, err
}

func (d *Documents) Upload(ctx context.Context, filename string, content io.Reader) (domain.Document, error) {
	var out domain.Document
	err := d.c.Upload(ctx, documentsPath, filename, content, &out)
	return out, err
}

// Download is a downloaded document body.
type Download struct {
	Filename    string
	ContentType string
	Content     []byte
}

func (d *Documents) Download(ctx context.Context, id int64) (Download, error) {
	resp, err := d.c.Download(ctx, idPath(documentsPath, id, "download"))
	if err != nil {
		return Download{}, err
	}
	out := Download{
		ContentType: resp.Header.Get("Content-Type"),
		Content:     resp.Body,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		out.Filename = path.Base(params["filename"])
	}
	return out, nil
}

func (d *Documents) Delete(ctx context.Context, id int64) (domain.Document, error) {
	var out domain.Document
	err := d.c.Delete(ctx, idPath(documentsPath, id), &out)
	return out, err
}

func (d *Documents) Update(ctx context.Context, id int64, patch domain.DocumentPatch) (domain.Document, error) {
	var out domain.Document
	err := d.c.Put(ctx, idPath(documentsPath, id), patch, &out)
	return out, err
}

type priorityBody struct {
	Priority int `json:"priority"`
}

// Process asks the service to start processing a pending document.
func (d *Documents) Process(ctx context.Context, id int64, priority int) (domain.Document, error) {
	var out domain.Document
	err := d.c.Post(ctx, idPath(documentsPath, id, "process"), priorityBody{domain.ClampPriority(priority)}, &out)
	return out, err
}

func (d *Documents) Reprocess(ctx context.Context, id int64, priority int) (domain.Document, error) {
	var out domain.Document
	err := d.c.Post(ctx, idPath(documentsPath, id, "reprocess"), priorityBody{domain.ClampPriority(priority)}, &out)
	return out, err
}

// Status returns the composite document, queue and result report.
func (d *Documents) Status(ctx context.Context, id int64) (domain.DocumentStatusReport, error) {
	var out domain.DocumentStatusReport
	err := d.c.Get(ctx, idPath(apiPrefix+"/status/document", id), nil, &out)
	return out, err
}
