package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/mockapi"
	"github.com/aalvaropc/doclane/internal/ui/tui"
)

func TestPrintOut_Formats(t *testing.T) {
	docs := []domain.Document{{ID: 7, Filename: "invoice.pdf", Status: domain.StatusPending, FileSizeBytes: 2048}}

	var pretty bytes.Buffer
	if err := printOut(&pretty, formatPretty, docs, func(w io.Writer) { printDocuments(w, docs) }); err != nil {
		t.Fatalf("pretty: %v", err)
	}
	for _, want := range []string{"invoice.pdf", "pending", "2.0 KB"} {
		if !strings.Contains(pretty.String(), want) {
			t.Fatalf("pretty output missing %q:\n%s", want, pretty.String())
		}
	}

	var js bytes.Buffer
	if err := printOut(&js, formatJSON, docs, nil); err != nil {
		t.Fatalf("json: %v", err)
	}
	var back []domain.Document
	if err := json.Unmarshal(js.Bytes(), &back); err != nil || len(back) != 1 || back[0].ID != 7 {
		t.Fatalf("unexpected json output %q (err=%v)", js.String(), err)
	}

	if err := printOut(&js, "yaml", docs, nil); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestRenderTable_Empty(t *testing.T) {
	var b bytes.Buffer
	printQueueItems(&b, nil)
	if strings.TrimSpace(b.String()) != "(none)" {
		t.Fatalf("unexpected output %q", b.String())
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID(" 42 "); err != nil || id != 42 {
		t.Fatalf("parseID: %d, %v", id, err)
	}
	for _, in := range []string{"", "abc", "0", "-3"} {
		_, err := parseID(in)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Fatalf("parseID(%q): expected invalid request, got %v", in, err)
		}
	}
}

func TestNewBatchOutput_FailureDetails(t *testing.T) {
	rep := domain.BatchReport{
		Action:    "process",
		Succeeded: []int64{1},
		Failed: []domain.BatchFailure{{ID: 2, Err: &domain.OpError{
			Op: "dispatch", Kind: domain.KindAPI, Status: 409, Detail: "Document is already being processed",
		}}},
	}
	out := newBatchOutput(rep)
	if out.Outcome != string(domain.OutcomePartial) || out.Failed[2] != "Document is already being processed" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.Summary != "Failed to process 1 of 2 document(s)" {
		t.Fatalf("unexpected summary %q", out.Summary)
	}
}

func TestHumanSize(t *testing.T) {
	cases := map[int64]string{0: "-", 512: "512 B", 1536: "1.5 KB", 3 << 20: "3.0 MB"}
	for in, want := range cases {
		if got := humanSize(in); got != want {
			t.Errorf("humanSize(%d) = %q, want %q", in, got, want)
		}
	}
}

// --- end to end against the in-memory service ---

type env struct {
	t   *testing.T
	dir string
	cfg string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	mcfg := mockapi.DefaultConfig()
	mcfg.ProcessDelay = 0
	srv := mockapi.New(mcfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("DOCLANE_API_URL", "")

	cfg := filepath.Join(dir, "doclane.yaml")
	body := "api:\n" +
		"  base_url: " + ts.URL + "\n" +
		"  timeout: 5s\n" +
		"session:\n" +
		"  storage: file\n" +
		"  path: " + filepath.Join(dir, "session.json") + "\n"
	if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &env{t: t, dir: dir, cfg: cfg}
}

func (e *env) run(stdin string, args ...string) (string, string, error) {
	e.t.Helper()

	cmd := newRootCmd()
	var out, errb bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errb)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.cfg}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errb.String(), err
}

func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	out, stderr, err := e.run("", args...)
	if err != nil {
		e.t.Fatalf("doclane %s: %v\nstdout:\n%s\nstderr:\n%s", strings.Join(args, " "), err, out, stderr)
	}
	return out
}

func (e *env) login() {
	e.t.Helper()
	if _, _, err := e.run("admin\n", "login", "-u", "admin", "--password-stdin"); err != nil {
		e.t.Fatalf("login: %v", err)
	}
}

func (e *env) writePDF(name string) string {
	e.t.Helper()
	p := filepath.Join(e.dir, name)
	if err := os.WriteFile(p, []byte("%PDF-1.4 "+name), 0o644); err != nil {
		e.t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestCLI_RequiresLogin(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.run("", "docs", "list")
	if err == nil {
		t.Fatalf("expected error without session")
	}
	if got := tui.UserMessage(err); got != "Not logged in. Run `doclane login`" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestCLI_LoginWrongPasswordShowsServerDetail(t *testing.T) {
	e := newEnv(t)

	_, _, err := e.run("", "login", "-u", "admin", "-p", "nope")
	if err == nil {
		t.Fatalf("expected login failure")
	}
	if got := tui.UserMessage(err); got != "Incorrect username or password" {
		t.Fatalf("unexpected message %q", got)
	}
	if _, err := os.Stat(filepath.Join(e.dir, "session.json")); !os.IsNotExist(err) {
		t.Fatalf("expected no session file, stat err=%v", err)
	}
}

func TestCLI_LoginPersistsSessionAcrossInvocations(t *testing.T) {
	e := newEnv(t)
	e.login()

	out := e.mustRun("--format", "json", "whoami")
	var who whoami
	if err := json.Unmarshal([]byte(out), &who); err != nil {
		t.Fatalf("decode whoami: %v\n%s", err, out)
	}
	if who.Subject != "admin" || who.Session.Before(time.Now()) {
		t.Fatalf("unexpected whoami: %+v", who)
	}

	_, stderr, err := e.run("", "logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !strings.Contains(stderr, "doclane login") {
		t.Fatalf("expected login hint on logout, got %q", stderr)
	}
	if _, _, err := e.run("", "whoami"); !domain.IsAuthentication(err) {
		t.Fatalf("expected authentication error after logout, got %v", err)
	}
}

func TestCLI_DocumentLifecycle(t *testing.T) {
	e := newEnv(t)
	e.login()

	pdf := e.writePDF("march.pdf")
	txt := filepath.Join(e.dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("x"), 0o644); err != nil {
		t.Fatalf("write txt: %v", err)
	}

	out, _, err := e.run("", "docs", "upload", pdf, txt)
	if err == nil {
		t.Fatalf("expected error for rejected non-PDF")
	}
	if !strings.Contains(out, "+ march.pdf") || !strings.Contains(out, "notes.txt: not a PDF") {
		t.Fatalf("unexpected upload output:\n%s", out)
	}

	var docs []domain.Document
	if err := json.Unmarshal([]byte(e.mustRun("--format", "json", "docs", "list")), &docs); err != nil {
		t.Fatalf("decode docs: %v", err)
	}
	if len(docs) != 1 || docs[0].Status != domain.StatusPending {
		t.Fatalf("unexpected documents: %+v", docs)
	}
	id := docs[0].ID
	ids := itoa(id)

	out = e.mustRun("docs", "process-all")
	if !strings.Contains(out, "process: 1 document(s) done") {
		t.Fatalf("unexpected batch output:\n%s", out)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var rep domain.DocumentStatusReport
		if err := json.Unmarshal([]byte(e.mustRun("--format", "json", "docs", "status", ids)), &rep); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if rep.Status == domain.StatusProcessed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("document never processed: %+v", rep)
		}
		time.Sleep(20 * time.Millisecond)
	}

	_, _, err = e.run("", "docs", "process", ids)
	if !domain.IsKind(err, domain.KindInvalidTransition) {
		t.Fatalf("expected processed document to refuse process, got %v", err)
	}

	var res domain.ExtractionResult
	if err := json.Unmarshal([]byte(e.mustRun("--format", "json", "results", "for-document", ids)), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Fields["invoice_number"] == "" || res.ValidationStatus != domain.ValidationPending {
		t.Fatalf("unexpected result: %+v", res)
	}

	out = e.mustRun("results", "validate", itoa(res.ID), "--status", "rejected", "--notes", "wrong vendor")
	if !strings.Contains(out, "is now rejected") {
		t.Fatalf("unexpected validate output:\n%s", out)
	}
	if _, _, err := e.run("", "results", "validate", itoa(res.ID), "--status", "maybe"); err == nil {
		t.Fatalf("expected invalid status to be refused")
	}

	dst := filepath.Join(e.dir, "copy.pdf")
	e.mustRun("docs", "download", ids, "-o", dst)
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "%PDF-1.4 march.pdf" {
		t.Fatalf("unexpected download %q (err=%v)", got, err)
	}

	if _, _, err := e.run("", "docs", "delete-all"); err == nil {
		t.Fatalf("expected delete-all to require --yes")
	}
	out = e.mustRun("docs", "delete-all", "--yes")
	if !strings.Contains(out, "delete: 1 document(s) done") {
		t.Fatalf("unexpected delete-all output:\n%s", out)
	}
	if out := e.mustRun("docs", "list"); !strings.Contains(out, "(none)") {
		t.Fatalf("expected empty list, got:\n%s", out)
	}
}

func TestCLI_QueueAndStats(t *testing.T) {
	e := newEnv(t)
	e.login()
	e.mustRun("docs", "upload", e.writePDF("a.pdf"))

	var items []domain.QueueItem
	if err := json.Unmarshal([]byte(e.mustRun("--format", "json", "queue", "list")), &items); err != nil {
		t.Fatalf("decode queue: %v", err)
	}
	if len(items) != 1 || items[0].Status != "pending" {
		t.Fatalf("unexpected queue: %+v", items)
	}

	out := e.mustRun("queue", "update", itoa(items[0].ID), "--priority", "9")
	if !strings.Contains(out, "Priority:    5") {
		t.Fatalf("expected clamped priority, got:\n%s", out)
	}
	if _, _, err := e.run("", "queue", "update", itoa(items[0].ID)); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected empty update to be refused, got %v", err)
	}

	var stats domain.Stats
	if err := json.Unmarshal([]byte(e.mustRun("--format", "json", "stats")), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.DocumentCounts.Total != 1 || stats.QueueCounts.Pending != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	out = e.mustRun("metrics")
	if !strings.Contains(out, "Text recognition") || !strings.Contains(out, "Volume:") {
		t.Fatalf("unexpected metrics output:\n%s", out)
	}
}

func TestCLI_InitAndVersion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init", dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out.String(), "wrote   doclane.yaml") {
		t.Fatalf("unexpected init output %q", out.String())
	}

	cmd = newRootCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "doclane ") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestCLI_RejectsUnknownFormat(t *testing.T) {
	e := newEnv(t)
	if _, _, err := e.run("", "--format", "xml", "stats"); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
