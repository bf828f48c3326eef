package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/eventbus"
	"github.com/aalvaropc/doclane/internal/ports"
)

// UploadFile is one file selected for upload. Open is called once, right before sending.
type UploadFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileFromPath reads the upload from disk.
func FileFromPath(path string) UploadFile {
	return UploadFile{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// DocumentUploaded is the payload of eventbus.TopicDocumentUploaded.
type DocumentUploaded struct {
	Count     int
	Timestamp time.Time
}

// UploadFailure records one file that was not uploaded.
type UploadFailure struct {
	Name string
	Err  error
}

// UploadReport aggregates a multi-file upload.
type UploadReport struct {
	Uploaded []domain.Document
	Failed   []UploadFailure
	// Skipped files were never sent because an authentication failure aborted the upload.
	Skipped []string
	// Rejected files are not PDFs and were never sent.
	Rejected []string
}

// Outcome classifies the files that were accepted for upload.
func (r UploadReport) Outcome() domain.BatchOutcome {
	ok := len(r.Uploaded)
	bad := len(r.Failed) + len(r.Skipped)
	switch {
	case ok == 0 && bad == 0:
		return domain.OutcomeNone
	case bad == 0:
		return domain.OutcomeAllSucceeded
	case ok == 0:
		return domain.OutcomeAllFailed
	default:
		return domain.OutcomePartial
	}
}

// Summary is the user-facing result line.
func (r UploadReport) Summary() string {
	total := len(r.Uploaded) + len(r.Failed) + len(r.Skipped)
	switch r.Outcome() {
	case domain.OutcomeNone:
		if len(r.Rejected) > 0 {
			return "Please upload PDF files only"
		}
		return "No files to upload"
	case domain.OutcomeAllFailed:
		return "Failed to upload all files"
	case domain.OutcomePartial:
		return fmt.Sprintf("Failed to upload %d of %d files", total-len(r.Uploaded), total)
	default:
		return fmt.Sprintf("Uploaded %d file(s)", len(r.Uploaded))
	}
}

// UploadFiles sends PDFs with bounded concurrency.
type UploadFiles struct {
	docs        ports.DocumentService
	bus         ports.Publisher
	log         *slog.Logger
	concurrency int
	now         func() time.Time
}

func NewUploadFiles(docs ports.DocumentService, bus ports.Publisher, concurrency int, log *slog.Logger) *UploadFiles {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &UploadFiles{docs: docs, bus: bus, log: log, concurrency: concurrency, now: time.Now}
}

// IsPDF reports whether name is accepted for upload.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Execute uploads every PDF in files and publishes one event if any upload succeeded.
// Uploads already in flight when an authentication failure occurs are allowed to finish;
// files not yet started are skipped and the authentication error is returned.
func (uc *UploadFiles) Execute(ctx context.Context, files []UploadFile) (UploadReport, error) {
	var rep UploadReport

	accepted := make([]UploadFile, 0, len(files))
	for _, f := range files {
		if !IsPDF(f.Name) {
			rep.Rejected = append(rep.Rejected, f.Name)
			continue
		}
		accepted = append(accepted, f)
	}

	type outcome struct {
		doc     domain.Document
		err     error
		skipped bool
	}
	outcomes := make([]outcome, len(accepted))

	var aborted atomic.Pointer[error]
	var g errgroup.Group
	g.SetLimit(uc.concurrency)

	for i, f := range accepted {
		if aborted.Load() != nil {
			outcomes[i].skipped = true
			continue
		}
		g.Go(func() error {
			if aborted.Load() != nil {
				outcomes[i].skipped = true
				return nil
			}
			doc, err := uc.uploadOne(ctx, f)
			outcomes[i] = outcome{doc: doc, err: err}
			if domain.IsAuthentication(err) {
				aborted.CompareAndSwap(nil, &err)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range outcomes {
		name := accepted[i].Name
		switch {
		case o.skipped:
			rep.Skipped = append(rep.Skipped, name)
		case o.err != nil:
			rep.Failed = append(rep.Failed, UploadFailure{Name: name, Err: o.err})
			uc.log.Warn("upload.failed", "file", name, "err", o.err)
		default:
			rep.Uploaded = append(rep.Uploaded, o.doc)
		}
	}

	uc.log.Info("upload.done",
		"uploaded", len(rep.Uploaded),
		"failed", len(rep.Failed),
		"skipped", len(rep.Skipped),
		"rejected", len(rep.Rejected),
	)

	if len(rep.Uploaded) > 0 && uc.bus != nil {
		uc.bus.Publish(eventbus.TopicDocumentUploaded, DocumentUploaded{
			Count:     len(rep.Uploaded),
			Timestamp: uc.now(),
		})
	}

	if p := aborted.Load(); p != nil {
		return rep, *p
	}
	return rep, nil
}

func (uc *UploadFiles) uploadOne(ctx context.Context, f UploadFile) (domain.Document, error) {
	rc, err := f.Open()
	if err != nil {
		return domain.Document{}, &domain.OpError{
			Op:   "usecase.upload",
			Kind: domain.KindNotFound,
			Path: f.Name,
			Err:  err,
		}
	}
	defer rc.Close()

	return uc.docs.Upload(ctx, f.Name, rc)
}
