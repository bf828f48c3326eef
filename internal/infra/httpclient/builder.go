package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/aalvaropc/doclane/internal/domain"
)

// BodyKind selects how a request body is encoded.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyJSON
	BodyForm
	BodyMultipart
)

// Body is an outgoing request payload.
type Body struct {
	Kind BodyKind

	JSON any
	Form url.Values

	// Multipart file part.
	Field    string
	FileName string
	File     io.Reader
}

func JSONBody(v any) Body { return Body{Kind: BodyJSON, JSON: v} }

func FormBody(v url.Values) Body { return Body{Kind: BodyForm, Form: v} }

// FileBody sends r as a single multipart file part named field.
func FileBody(field, filename string, r io.Reader) Body {
	return Body{Kind: BodyMultipart, Field: field, FileName: filename, File: r}
}

// Spec describes a fully resolved request.
type Spec struct {
	Method string
	URL    string
	Header http.Header
	Body   Body
}

// BuildRequest builds an HTTP request from spec.
func BuildRequest(ctx context.Context, spec Spec) (*http.Request, error) {
	if strings.TrimSpace(spec.URL) == "" {
		return nil, &domain.OpError{
			Op:   "httpclient.build",
			Kind: domain.KindInvalidConfig,
			Err:  domain.ErrInvalidRequest,
		}
	}

	payload, contentType, err := encodeBody(spec.Body)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "httpclient.build",
			Kind: domain.KindInvalidConfig,
			Path: spec.URL,
			Err:  err,
		}
	}

	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, spec.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.OpError{
			Op:   "httpclient.build",
			Kind: domain.KindInvalidConfig,
			Err:  err,
		}
	}

	for k, vs := range spec.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

func encodeBody(b Body) ([]byte, string, error) {
	switch b.Kind {
	case BodyNone:
		return nil, "", nil
	case BodyJSON:
		if b.JSON == nil {
			return nil, "", nil
		}
		payload, err := json.Marshal(b.JSON)
		if err != nil {
			return nil, "", err
		}
		return payload, "application/json", nil
	case BodyForm:
		return []byte(b.Form.Encode()), "application/x-www-form-urlencoded", nil
	case BodyMultipart:
		return encodeMultipart(b)
	default:
		return nil, "", fmt.Errorf("unknown body kind %d: %w", b.Kind, domain.ErrInvalidRequest)
	}
}

func encodeMultipart(b Body) ([]byte, string, error) {
	if b.File == nil {
		return nil, "", fmt.Errorf("multipart body without file: %w", domain.ErrInvalidRequest)
	}
	field := b.Field
	if field == "" {
		field = "file"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filepath.Base(b.FileName)))
	h.Set("Content-Type", partContentType(b.FileName))

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, b.File); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func partContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
