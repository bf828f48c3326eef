// Package dispatch performs every call against the processing service. It attaches the
// session credential, classifies failures into the domain error taxonomy and turns a
// server-side rejection of the credential into a single logout.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/infra/httpclient"
	"github.com/aalvaropc/doclane/internal/ports"
)

// Downloads carry whole documents, so the bound is generous.
const defaultMaxBodyBytes = 64 << 20

// Call is a single request relative to the service base URL.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   httpclient.Body

	// Public calls never carry the bearer header and never expire the session.
	Public bool
}

// Response is a successful (2xx) reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// IsJSON reports whether the server declared a JSON body.
func (r Response) IsJSON() bool { return isJSON(r.Header) }

type Dispatcher struct {
	baseURL      string
	client       *http.Client
	session      ports.SessionSource
	log          *slog.Logger
	maxBodyBytes int64
	newID        func() string
	userAgent    string
}

type Option func(*Dispatcher)

func WithClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(d *Dispatcher) { d.maxBodyBytes = n }
}

func WithUserAgent(ua string) Option {
	return func(d *Dispatcher) { d.userAgent = ua }
}

// WithRequestID replaces the X-Request-ID generator.
func WithRequestID(fn func() string) Option {
	return func(d *Dispatcher) { d.newID = fn }
}

func New(baseURL string, session ports.SessionSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       httpclient.New(httpclient.DefaultConfig()),
		session:      session,
		log:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		maxBodyBytes: defaultMaxBodyBytes,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BaseURL returns the service root every path is resolved against.
func (d *Dispatcher) BaseURL() string { return d.baseURL }

// Do performs c and returns the reply only for 2xx statuses. Every failure is a
// *domain.OpError with one of KindNetwork, KindAuthentication, KindAPI or KindParse.
// Calls are never retried.
func (d *Dispatcher) Do(ctx context.Context, c Call) (Response, error) {
	method := c.Method
	if method == "" {
		method = http.MethodGet
	}
	op := "dispatch." + strings.ToLower(method)

	token := ""
	if !c.Public {
		token = d.session.Token()
		if token == "" {
			return Response{}, &domain.OpError{
				Op:   op,
				Kind: domain.KindAuthentication,
				Path: c.Path,
				Err:  domain.ErrNotAuthenticated,
			}
		}
	}

	reqID := d.newID()
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("X-Request-ID", reqID)
	if d.userAgent != "" {
		h.Set("User-Agent", d.userAgent)
	}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}

	req, err := httpclient.BuildRequest(ctx, httpclient.Spec{
		Method: method,
		URL:    d.resolve(c.Path, c.Query),
		Header: h,
		Body:   c.Body,
	})
	if err != nil {
		return Response{}, err
	}

	d.log.Debug("http.request",
		"method", method,
		"path", c.Path,
		"request_id", reqID,
		"headers", maskHeaders(req.Header),
	)

	start := time.Now()
	resp, err := d.client.Do(req)
	lat := time.Since(start)
	if err != nil {
		cause := classifyNetwork(err)
		d.log.Warn("http.failed", "method", method, "path", c.Path, "request_id", reqID, "cause", cause, "err", err)
		return Response{}, &domain.OpError{
			Op:    op,
			Kind:  domain.KindNetwork,
			Path:  c.Path,
			Cause: cause,
			Err:   err,
		}
	}
	defer resp.Body.Close()

	body, err := readBounded(resp.Body, d.maxBodyBytes)
	if err != nil {
		return Response{}, &domain.OpError{
			Op:     op,
			Kind:   domain.KindNetwork,
			Path:   c.Path,
			Status: resp.StatusCode,
			Cause:  classifyNetwork(err),
			Err:    err,
		}
	}

	d.log.Debug("http.response",
		"method", method,
		"path", c.Path,
		"request_id", reqID,
		"status", resp.StatusCode,
		"latency_ms", lat.Milliseconds(),
		"bytes", len(body),
	)

	if resp.StatusCode == http.StatusUnauthorized && !c.Public {
		if d.session.Expire(token) {
			d.log.Warn("http.session_expired", "path", c.Path, "request_id", reqID)
		}
		return Response{}, &domain.OpError{
			Op:     op,
			Kind:   domain.KindAuthentication,
			Path:   c.Path,
			Status: resp.StatusCode,
			Err:    domain.ErrSessionExpired,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, apiError(op, c.Path, resp.StatusCode, resp.Header, body)
	}

	if isJSON(resp.Header) && len(body) > 0 && !json.Valid(body) {
		return Response{}, &domain.OpError{
			Op:     op,
			Kind:   domain.KindParse,
			Path:   c.Path,
			Status: resp.StatusCode,
			Err:    errors.New("malformed JSON response"),
		}
	}

	return Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

func (d *Dispatcher) Get(ctx context.Context, path string, q url.Values, out any) error {
	return d.doJSON(ctx, Call{Method: http.MethodGet, Path: path, Query: q}, out)
}

func (d *Dispatcher) Post(ctx context.Context, path string, in, out any) error {
	return d.doJSON(ctx, Call{Method: http.MethodPost, Path: path, Body: httpclient.JSONBody(in)}, out)
}

func (d *Dispatcher) Put(ctx context.Context, path string, in, out any) error {
	return d.doJSON(ctx, Call{Method: http.MethodPut, Path: path, Body: httpclient.JSONBody(in)}, out)
}

func (d *Dispatcher) Delete(ctx context.Context, path string, out any) error {
	return d.doJSON(ctx, Call{Method: http.MethodDelete, Path: path}, out)
}

// PostForm sends a form-encoded body without credentials. It is the login entry point.
func (d *Dispatcher) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	return d.doJSON(ctx, Call{Method: http.MethodPost, Path: path, Body: httpclient.FormBody(form), Public: true}, out)
}

// Upload sends content as the multipart field "file".
func (d *Dispatcher) Upload(ctx context.Context, path, filename string, content io.Reader, out any) error {
	return d.doJSON(ctx, Call{
		Method: http.MethodPost,
		Path:   path,
		Body:   httpclient.FileBody("file", filename, content),
	}, out)
}

// Download fetches a binary body.
func (d *Dispatcher) Download(ctx context.Context, path string) (Response, error) {
	return d.Do(ctx, Call{Method: http.MethodGet, Path: path})
}

func (d *Dispatcher) doJSON(ctx context.Context, c Call, out any) error {
	resp, err := d.Do(ctx, c)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if len(resp.Body) == 0 {
		return &domain.OpError{
			Op:     "dispatch.decode",
			Kind:   domain.KindParse,
			Path:   c.Path,
			Status: resp.Status,
			Err:    errors.New("empty response body"),
		}
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &domain.OpError{
			Op:     "dispatch.decode",
			Kind:   domain.KindParse,
			Path:   c.Path,
			Status: resp.Status,
			Err:    err,
		}
	}
	return nil
}

func (d *Dispatcher) resolve(path string, q url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := d.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func apiError(op, path string, status int, h http.Header, body []byte) error {
	oe := &domain.OpError{
		Op:     op,
		Kind:   domain.KindAPI,
		Path:   path,
		Status: status,
	}

	if !isJSON(h) {
		oe.Detail = fmt.Sprintf("server returned %d: %s", status, http.StatusText(status))
		oe.Err = errors.New(oe.Detail)
		return oe
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		oe.Detail = statusText(status)
		oe.Err = err
		return oe
	}

	oe.Detail = detailOf(v)
	if oe.Detail == "" {
		oe.Detail = statusText(status)
	}
	oe.Err = errors.New(oe.Detail)
	return oe
}

// detailOf reads the service error message: either a plain "detail" string or a
// validation list whose entries carry "msg".
func detailOf(v any) string {
	raw, err := jsonpath.Get("$.detail", v)
	if err != nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}

	msgs, err := jsonpath.Get("$.detail[*].msg", v)
	if err != nil {
		return ""
	}
	list, ok := msgs.([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(list))
	for _, m := range list {
		if s, ok := m.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "; ")
}

func statusText(status int) string {
	if t := http.StatusText(status); t != "" {
		return t
	}
	return fmt.Sprintf("HTTP %d", status)
}

func isJSON(h http.Header) bool {
	mt, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func classifyNetwork(err error) domain.NetworkCause {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return domain.CauseTimeout
		}
		return domain.CauseDNS
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return domain.CauseTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.CauseTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return domain.CauseConn
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.CauseConn
	}
	return domain.CauseUnknown
}

func readBounded(r io.Reader, maxBytes int64) ([]byte, error) {
	lim := io.LimitReader(r, maxBytes+1)
	b, err := io.ReadAll(lim)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxBytes)
	}
	return b, nil
}
