package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	s := New(cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func login(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.PostForm(ts.URL+"/api/v1/auth/login", url.Values{"username": {"admin"}, "password": {"admin"}})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if resp.StatusCode != http.StatusOK || tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected login reply: %d %+v", resp.StatusCode, tok)
	}
	return tok.AccessToken
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func upload(t *testing.T, ts *httptest.Server, token, filename, contentType string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write([]byte("%PDF-1.4 test"))
	_ = mw.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp, err := http.PostForm(ts.URL+"/api/v1/auth/login", url.Values{"username": {"admin"}, "password": {"nope"}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusUnauthorized || body["detail"] != "Incorrect username or password" {
		t.Fatalf("unexpected reply: %d %v", resp.StatusCode, body)
	}
}

func TestLogin_MissingFieldsIsValidationError(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp, err := http.PostForm(ts.URL+"/api/v1/auth/login", url.Values{"username": {"admin"}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Detail []fieldError `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusUnprocessableEntity || len(body.Detail) != 1 || body.Detail[0].Loc[1] != "password" {
		t.Fatalf("unexpected reply: %d %+v", resp.StatusCode, body)
	}
}

func TestAuth_RequiresValidBearer(t *testing.T) {
	s, ts := newTestServer(t, Config{})

	if code, body := call(t, ts, http.MethodGet, "/api/v1/documents", "", nil); code != http.StatusUnauthorized || body["detail"] != "Not authenticated" {
		t.Fatalf("expected 401 without token, got %d %v", code, body)
	}

	tok := login(t, ts)
	if code, _ := call(t, ts, http.MethodGet, "/api/v1/documents", tok, nil); code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", code)
	}

	s.RotateSecret()
	if code, body := call(t, ts, http.MethodGet, "/api/v1/documents", tok, nil); code != http.StatusUnauthorized || body["detail"] != "Could not validate credentials" {
		t.Fatalf("expected 401 after rotation, got %d %v", code, body)
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := New(Config{TokenTTL: time.Minute}, WithNow(clock.Now))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer s.Close()

	tok := login(t, ts)
	clock.Advance(2 * time.Minute)
	if code, _ := call(t, ts, http.MethodGet, "/api/v1/documents", tok, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", code)
	}
}

func TestUpload_OnlyPDF(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	tok := login(t, ts)

	code, body := upload(t, ts, tok, "notes.txt", "text/plain")
	if code != http.StatusBadRequest || body["detail"] != "Only PDF files are supported" {
		t.Fatalf("expected 400 for text upload, got %d %v", code, body)
	}

	code, body = upload(t, ts, tok, "invoice.pdf", "application/pdf")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", code, body)
	}
	if body["status"] != "pending" || body["filename"] != "invoice.pdf" {
		t.Fatalf("unexpected document: %v", body)
	}
	if at, _ := body["uploaded_date"].(string); strings.HasSuffix(at, "Z") || len(at) != len(pyLayout) {
		t.Fatalf("expected naive timestamp, got %q", at)
	}

	_, stats := call(t, ts, http.MethodGet, "/api/v1/status/stats", tok, nil)
	queue := stats["queue_counts"].(map[string]any)
	if queue["pending"] != float64(1) {
		t.Fatalf("expected one pending queue item, got %v", queue)
	}
}

func TestProcess_CompletesAndCreatesResult(t *testing.T) {
	_, ts := newTestServer(t, Config{ProcessDelay: time.Millisecond})
	tok := login(t, ts)
	_, doc := upload(t, ts, tok, "invoice.pdf", "application/pdf")
	id := int64(doc["id"].(float64))
	path := "/api/v1/documents/" + itoa(id)

	code, body := call(t, ts, http.MethodPost, path+"/process", tok, map[string]int{"priority": 3})
	if code != http.StatusOK || body["status"] != "processing" {
		t.Fatalf("expected processing, got %d %v", code, body)
	}
	if code, _ := call(t, ts, http.MethodPost, path+"/process", tok, nil); code != http.StatusConflict && code != http.StatusOK {
		t.Fatalf("unexpected status for repeated process: %d", code)
	}

	waitFor(t, "processed", func() bool {
		_, d := call(t, ts, http.MethodGet, path, tok, nil)
		return d["status"] == "processed"
	})

	code, res := call(t, ts, http.MethodGet, "/api/v1/results/document/"+itoa(id), tok, nil)
	if code != http.StatusOK || res["status"] != "pending_validation" || res["invoice_number"] == nil {
		t.Fatalf("unexpected result: %d %v", code, res)
	}

	_, report := call(t, ts, http.MethodGet, "/api/v1/status/document/"+itoa(id), tok, nil)
	if report["queue_status"] != "completed" || report["result_id"] == nil {
		t.Fatalf("unexpected status report: %v", report)
	}
	fields := report["extracted_fields"].(map[string]any)
	if fields["vendor_name"] != "Acme Supplies Ltd" {
		t.Fatalf("unexpected extracted fields: %v", fields)
	}
}

func TestProcess_FailingDocument(t *testing.T) {
	_, ts := newTestServer(t, Config{ProcessDelay: time.Millisecond})
	tok := login(t, ts)
	_, doc := upload(t, ts, tok, "fail-scan.pdf", "application/pdf")
	id := itoa(int64(doc["id"].(float64)))

	call(t, ts, http.MethodPost, "/api/v1/documents/"+id+"/process", tok, nil)
	waitFor(t, "failed", func() bool {
		_, d := call(t, ts, http.MethodGet, "/api/v1/documents/"+id, tok, nil)
		return d["status"] == "failed"
	})

	_, report := call(t, ts, http.MethodGet, "/api/v1/status/document/"+id, tok, nil)
	if report["error_message"] == nil || report["queue_status"] != "failed" {
		t.Fatalf("unexpected failure report: %v", report)
	}
	if code, _ := call(t, ts, http.MethodGet, "/api/v1/results/document/"+id, tok, nil); code != http.StatusNotFound {
		t.Fatalf("expected no result for failed document, got %d", code)
	}

	code, body := call(t, ts, http.MethodPost, "/api/v1/documents/"+id+"/reprocess", tok, nil)
	if code != http.StatusOK || body["status"] != "processing" {
		t.Fatalf("expected reprocess to start, got %d %v", code, body)
	}
}

func TestValidate_JSONAndQuery(t *testing.T) {
	_, ts := newTestServer(t, Config{ProcessDelay: time.Millisecond})
	tok := login(t, ts)
	_, doc := upload(t, ts, tok, "a.pdf", "application/pdf")
	id := itoa(int64(doc["id"].(float64)))
	call(t, ts, http.MethodPost, "/api/v1/documents/"+id+"/process", tok, nil)

	var rid string
	waitFor(t, "result", func() bool {
		code, r := call(t, ts, http.MethodGet, "/api/v1/results/document/"+id, tok, nil)
		if code != http.StatusOK {
			return false
		}
		rid = itoa(int64(r["id"].(float64)))
		return true
	})

	code, r := call(t, ts, http.MethodPut, "/api/v1/results/"+rid+"/validate", tok, map[string]string{"status": "validated", "notes": "ok"})
	if code != http.StatusOK || r["status"] != "validated" || r["validation_notes"] != "ok" || r["validated_by"] != float64(1) {
		t.Fatalf("unexpected validate reply: %d %v", code, r)
	}

	code, r = call(t, ts, http.MethodPut, "/api/v1/results/"+rid+"/validate?status=rejected", tok, nil)
	if code != http.StatusOK || r["status"] != "rejected" {
		t.Fatalf("unexpected query validate reply: %d %v", code, r)
	}

	code, r = call(t, ts, http.MethodPut, "/api/v1/results/"+rid+"/validate", tok, map[string]string{"status": "maybe"})
	if code != http.StatusBadRequest || r["detail"] != "Invalid status value" {
		t.Fatalf("expected 400 for invalid status, got %d %v", code, r)
	}
}

func TestPathID_NotAnInteger(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	tok := login(t, ts)

	code, body := call(t, ts, http.MethodGet, "/api/v1/documents/abc", tok, nil)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	list, ok := body["detail"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("expected a detail list, got %v", body)
	}
}

func TestQueue_CRUD(t *testing.T) {
	_, ts := newTestServer(t, Config{ProcessDelay: time.Hour})
	tok := login(t, ts)
	_, doc := upload(t, ts, tok, "a.pdf", "application/pdf")

	code, q := call(t, ts, http.MethodPost, "/api/v1/queue", tok, map[string]any{"document_id": doc["id"], "priority": 4})
	if code != http.StatusOK || q["priority"] != float64(4) || q["status"] != "pending" {
		t.Fatalf("unexpected create reply: %d %v", code, q)
	}
	qid := itoa(int64(q["id"].(float64)))

	code, q = call(t, ts, http.MethodPut, "/api/v1/queue/"+qid, tok, map[string]any{"priority": 2})
	if code != http.StatusOK || q["priority"] != float64(2) {
		t.Fatalf("unexpected update reply: %d %v", code, q)
	}

	code, q = call(t, ts, http.MethodPost, "/api/v1/queue/"+qid+"/reprocess", tok, nil)
	if code != http.StatusOK || q["status"] != "processing" {
		t.Fatalf("unexpected reprocess reply: %d %v", code, q)
	}

	if code, _ := call(t, ts, http.MethodDelete, "/api/v1/queue/"+qid, tok, nil); code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	if code, _ := call(t, ts, http.MethodGet, "/api/v1/queue/"+qid, tok, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", code)
	}
}

func TestProcessingMetrics_OmitsTimingsWithoutResults(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	tok := login(t, ts)

	code, body := call(t, ts, http.MethodGet, "/api/v1/status/processing_metrics", tok, nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if _, ok := body["processing_time"]; ok {
		t.Fatalf("expected no processing_time without results: %v", body)
	}
	if hist, _ := body["historical_data"].([]any); len(hist) != 7 {
		t.Fatalf("expected 7 days of history, got %v", body["historical_data"])
	}
}

func TestDownload_ReturnsContent(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	tok := login(t, ts)
	_, doc := upload(t, ts, tok, "scan 1.pdf", "application/pdf")

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/documents/"+itoa(int64(doc["id"].(float64)))+"/download", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if string(b) != "%PDF-1.4 test" || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected download: %q %s", b, resp.Header.Get("Content-Type"))
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "scan 1.pdf") {
		t.Fatalf("unexpected disposition %q", cd)
	}
}
