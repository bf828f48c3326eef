package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/infra/dispatch"
	"github.com/aalvaropc/doclane/internal/usecase/extract"
)

type staticSession struct{ token string }

func (s staticSession) Token() string           { return s.token }
func (s staticSession) AuthHeader() http.Header { return http.Header{} }
func (s staticSession) Expire(string) bool      { return false }

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) add(c recorded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.calls...)
}

// newClient serves fixed JSON replies keyed by "METHOD /path" and records requests.
func newClient(t *testing.T, replies map[string]string, opts ...Option) (*Client, *recorder) {
	t.Helper()
	got := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.add(recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})

		reply, ok := replies[r.Method+" "+r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)

	d := dispatch.New(srv.URL, staticSession{token: "tok"})
	return New(d, opts...), got
}

func TestAuth_Login(t *testing.T) {
	c, got := newClient(t, map[string]string{
		"POST /api/v1/auth/login": `{"access_token":"jwt","token_type":"bearer"}`,
	})

	tok, err := c.Auth.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.AccessToken != "jwt" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected token %+v", tok)
	}
	if !strings.Contains(string(got.all()[0].Body), "username=alice") {
		t.Fatalf("expected form credentials, got %q", got.all()[0].Body)
	}
}

func TestAuth_LoginWithoutToken(t *testing.T) {
	c, _ := newClient(t, map[string]string{
		"POST /api/v1/auth/login": `{"token_type":"bearer"}`,
	})

	if _, err := c.Auth.Login(context.Background(), "alice", "pw"); !domain.IsKind(err, domain.KindParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestDocuments_Endpoints(t *testing.T) {
	doc := `{"id":3,"filename":"a.pdf","content_type":"application/pdf","status":"pending","uploaded_by":1,"uploaded_date":"2024-03-01T10:00:00"}`
	c, got := newClient(t, map[string]string{
		"GET /api/v1/documents":              `[` + doc + `]`,
		"GET /api/v1/documents/3":            doc,
		"POST /api/v1/documents/3/process":   strings.Replace(doc, "pending", "processing", 1),
		"POST /api/v1/documents/3/reprocess": strings.Replace(doc, "pending", "processing", 1),
		"DELETE /api/v1/documents/3":         doc,
		"PUT /api/v1/documents/3":            strings.Replace(doc, "pending", "failed", 1),
		"GET /api/v1/status/document/3":      `{"document_id":3,"filename":"a.pdf","status":"processed","queue_status":"completed","confidence_score":0.91,"extracted_fields":{"vendor_name":"ACME"}}`,
	})
	ctx := context.Background()

	docs, err := c.Documents.List(ctx, 0, 10)
	if err != nil || len(docs) != 1 {
		t.Fatalf("List: %v %+v", err, docs)
	}
	if docs[0].UploadedAt.IsZero() {
		t.Fatalf("expected naive upload date to decode")
	}
	if got.all()[0].Query != "limit=10&skip=0" {
		t.Fatalf("unexpected list query %q", got.all()[0].Query)
	}

	if _, err := c.Documents.Get(ctx, 3); err != nil {
		t.Fatalf("Get: %v", err)
	}

	d, err := c.Documents.Process(ctx, 3, 9)
	if err != nil || d.Status != domain.StatusProcessing {
		t.Fatalf("Process: %v %+v", err, d)
	}
	var body map[string]int
	_ = json.Unmarshal(got.all()[2].Body, &body)
	if body["priority"] != domain.MaxPriority {
		t.Fatalf("expected clamped priority, got %v", body)
	}

	if _, err := c.Documents.Reprocess(ctx, 3, 1); err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if _, err := c.Documents.Delete(ctx, 3); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	failed := domain.StatusFailed
	d, err = c.Documents.Update(ctx, 3, domain.DocumentPatch{Status: &failed})
	if err != nil || d.Status != domain.StatusFailed {
		t.Fatalf("Update: %v %+v", err, d)
	}

	rep, err := c.Documents.Status(ctx, 3)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if rep.QueueStatus == nil || *rep.QueueStatus != "completed" || rep.ExtractedFields["vendor_name"] != "ACME" {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestDocuments_ErrorsAreNotSwallowed(t *testing.T) {
	c, _ := newClient(t, nil)

	_, err := c.Documents.Get(context.Background(), 99)
	var oe *domain.OpError
	if !errors.As(err, &oe) || oe.Kind != domain.KindAPI || oe.Status != http.StatusNotFound {
		t.Fatalf("expected api 404, got %v", err)
	}
}

func TestDocuments_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/documents/4/download" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="invoice.pdf"`)
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	c := New(dispatch.New(srv.URL, staticSession{token: "tok"}))
	dl, err := c.Documents.Download(context.Background(), 4)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if dl.Filename != "invoice.pdf" || string(dl.Content) != "%PDF" || dl.ContentType != "application/pdf" {
		t.Fatalf("unexpected download %+v", dl)
	}
}

func TestResults_ExtractsFieldsAndValidates(t *testing.T) {
	res := `{"id":5,"document_id":3,"invoice_number":"INV-9","vendor_name":"ACME","total_amount":120.5,"confidence_score":0.87,"status":"pending_validation","created_date":"2024-03-01T10:00:00"}`
	c, got := newClient(t, map[string]string{
		"GET /api/v1/results":            `[` + res + `]`,
		"GET /api/v1/results/document/3": res,
		"PUT /api/v1/results/5/validate": strings.Replace(res, "pending_validation", "validated", 1),
	}, WithFieldExtractor(extract.New(domain.DefaultResultFields())))
	ctx := context.Background()

	r, err := c.Results.ByDocument(ctx, 3)
	if err != nil {
		t.Fatalf("ByDocument: %v", err)
	}
	if r.Fields["invoice_number"] != "INV-9" || r.Fields["total_amount"] != "120.5" {
		t.Fatalf("unexpected fields %v", r.Fields)
	}
	if r.Raw["vendor_name"] != "ACME" {
		t.Fatalf("expected raw payload kept")
	}

	list, err := c.Results.List(ctx, 0, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %v %+v", err, list)
	}

	v, err := c.Results.Validate(ctx, 5, domain.ValidationValidated, "looks right")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if v.ValidationStatus != domain.ValidationValidated {
		t.Fatalf("unexpected status %s", v.ValidationStatus)
	}
	last := got.all()[len(got.all())-1]
	var req domain.ValidationRequest
	if err := json.Unmarshal(last.Body, &req); err != nil || req.Status != domain.ValidationValidated || req.Notes != "looks right" {
		t.Fatalf("unexpected validate body %q", last.Body)
	}
}

func TestResults_ValidateRejectsPending(t *testing.T) {
	c, got := newClient(t, nil)

	_, err := c.Results.Validate(context.Background(), 5, domain.ValidationPending, "")
	if !domain.IsKind(err, domain.KindInvalidConfig) {
		t.Fatalf("expected invalid status error, got %v", err)
	}
	if len(got.all()) != 0 {
		t.Fatalf("expected no request for invalid status")
	}
}

func TestQueue_Endpoints(t *testing.T) {
	item := `{"id":2,"document_id":3,"status":"pending","priority":1,"created_date":"2024-03-01T10:00:00"}`
	c, got := newClient(t, map[string]string{
		"GET /api/v1/queue":              `[` + item + `]`,
		"GET /api/v1/queue/2":            item,
		"POST /api/v1/queue":             item,
		"PUT /api/v1/queue/2":            item,
		"DELETE /api/v1/queue/2":         item,
		"POST /api/v1/queue/2/reprocess": item,
	})
	ctx := context.Background()

	if items, err := c.Queue.List(ctx, 0, 50); err != nil || len(items) != 1 {
		t.Fatalf("List: %v %+v", err, items)
	}
	if _, err := c.Queue.Get(ctx, 2); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := c.Queue.Create(ctx, domain.QueueItemCreate{DocumentID: 3, Priority: 0}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	prio := 3
	if _, err := c.Queue.Update(ctx, 2, domain.QueueItemPatch{Priority: &prio}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := c.Queue.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Queue.Reprocess(ctx, 2); err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if len(got.all()) != 6 {
		t.Fatalf("expected 6 calls, got %d", len(got.all()))
	}
}

func TestDashboard_Stats(t *testing.T) {
	c, _ := newClient(t, map[string]string{
		"GET /api/v1/status/stats": `{
			"document_counts":{"pending":1,"processing":2,"processed":3,"failed":0,"total":6},
			"queue_counts":{"pending":1,"processing":2,"completed":3,"failed":0,"total":6},
			"processing_metrics":{"avg_confidence":0.9,"avg_processing_time":2.5},
			"recent_activity":{"documents":["a.pdf"],"results":[{"document_id":1,"status":"validated","confidence":0.9}]}
		}`,
	})

	st, err := c.Dashboard.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.DocumentCounts.Total != 6 || st.QueueCounts.Completed != 3 || len(st.RecentActivity.Results) != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestDashboard_ProcessingMetricsFillsMissingFields(t *testing.T) {
	c, _ := newClient(t, map[string]string{
		"GET /api/v1/status/processing_metrics": `{"processing_time":{"ocr_time":0.7,"total_time":2.0},"accuracy":{"avg_confidence":0.81}}`,
	})

	m, err := c.Dashboard.ProcessingMetrics(context.Background())
	if err != nil {
		t.Fatalf("ProcessingMetrics: %v", err)
	}
	def := domain.DefaultProcessingMetrics()
	if m.ProcessingTime.TextRecognition != 0.7 || m.ProcessingTime.Total != 2.0 {
		t.Fatalf("expected server values kept, got %+v", m.ProcessingTime)
	}
	if m.ProcessingTime.EntityExtraction != def.ProcessingTime.EntityExtraction {
		t.Fatalf("expected default for missing stage, got %v", m.ProcessingTime.EntityExtraction)
	}
	if m.AvgConfidence != 0.81 {
		t.Fatalf("unexpected confidence %v", m.AvgConfidence)
	}
	if len(m.Volume) != len(def.Volume) || len(m.ErrorDistribution) != len(def.ErrorDistribution) {
		t.Fatalf("expected default chart series")
	}
}

func TestDashboard_ProcessingMetricsErrorIsReturned(t *testing.T) {
	c, _ := newClient(t, nil)

	if _, err := c.Dashboard.ProcessingMetrics(context.Background()); !domain.IsKind(err, domain.KindAPI) {
		t.Fatalf("expected api error instead of fallback data, got %v", err)
	}
}
