package ports

import (
	"context"
	"io"

	"github.com/aalvaropc/doclane/internal/domain"
)

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (domain.Token, error)
}

// SessionWriter is the login side of the session store.
type SessionWriter interface {
	SetSession(token string)
	Logout(reason string)
}

// DocumentService is the subset of the documents facade used by batch operations and views.
type DocumentService interface {
	List(ctx context.Context, skip, limit int) ([]domain.Document, error)
	Upload(ctx context.Context, filename string, content io.Reader) (domain.Document, error)
	Delete(ctx context.Context, id int64) (domain.Document, error)
	Process(ctx context.Context, id int64, priority int) (domain.Document, error)
	Reprocess(ctx context.Context, id int64, priority int) (domain.Document, error)
}

// DashboardService is the subset of the dashboard facade used by the dashboard view.
type DashboardService interface {
	Stats(ctx context.Context) (domain.Stats, error)
	ProcessingMetrics(ctx context.Context) (domain.ProcessingMetrics, error)
}

// ResultService is the subset of the results facade used by the review flow.
type ResultService interface {
	ByDocument(ctx context.Context, documentID int64) (domain.ExtractionResult, error)
	Validate(ctx context.Context, id int64, status domain.ValidationStatus, notes string) (domain.ExtractionResult, error)
}

// Publisher publishes notification events.
type Publisher interface {
	Publish(topic string, payload any)
}

// FieldExtractor maps a raw result payload to display fields.
type FieldExtractor interface {
	Extract(doc map[string]any) map[string]string
}
