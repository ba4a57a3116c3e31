// Package gateway is the typed client of the recipe REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"recipe-planner/internal/config"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/session"
)

const maxErrorBody = 64 << 10

// ErrNotSignedIn is wrapped by errors of authenticated calls made without a session.
var ErrNotSignedIn = errors.New("not signed in")

// RequestInfo describes one completed API call.
type RequestInfo struct {
	Operation string
	Method    string
	Path      string
	RequestID string
	Status    int
	Latency   time.Duration
	Err       error
}

// Observer is notified after every API call.
type Observer func(RequestInfo)

// Client calls the recipe API on behalf of one session. The zero session
// can only use the public endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    *session.Session
	observer   Observer
	log        *logger.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for cfg.APIBaseURL.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithSession returns a copy of c that authenticates as s.
func (c *Client) WithSession(s *session.Session) *Client {
	cp := *c
	cp.session = s
	return &cp
}

func (c *Client) Session() *session.Session { return c.session }

// request describes one API call. At most one of body and form is set.
type request struct {
	op     string
	method string
	path   string
	body   interface{}
	form   *form
	auth   bool
}

type form struct {
	fields []formField
	files  []formFile
}

type formField struct{ name, value string }

type formFile struct {
	field    string
	filename string
	data     []byte
}

func (f *form) add(name, value string) {
	f.fields = append(f.fields, formField{name, value})
}

func (f *form) addFile(field, filename string, data []byte) {
	f.files = append(f.files, formFile{field, filename, data})
}

func (f *form) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, fld := range f.fields {
		if err := w.WriteField(fld.name, fld.value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.files {
		part, err := w.CreateFormFile(file.field, file.filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// do executes r and decodes a JSON response into out. An empty body or a
// JSON null leaves out untouched.
func (c *Client) do(ctx context.Context, r request, out interface{}) (err error) {
	requestID := uuid.NewString()
	start := time.Now()
	status := 0
	defer func() {
		info := RequestInfo{
			Operation: r.op,
			Method:    r.method,
			Path:      r.path,
			RequestID: requestID,
			Status:    status,
			Latency:   time.Since(start),
			Err:       err,
		}
		if err != nil {
			c.log.Debug("api request failed", "op", r.op, "status", status, "request_id", requestID, "error", err)
		} else {
			c.log.Debug("api request", "op", r.op, "status", status, "latency", info.Latency, "request_id", requestID)
		}
		if c.observer != nil {
			c.observer(info)
		}
	}()

	if r.auth && (c.session == nil || c.session.Token == "") {
		return &Error{Type: ErrValidation, Op: r.op, Status: http.StatusUnauthorized, Message: "please sign in first", Err: ErrNotSignedIn}
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.form != nil:
		body, contentType, err = r.form.encode()
		if err != nil {
			return transportError(r.op, fmt.Errorf("failed to encode form: %w", err))
		}
	case r.body != nil:
		data, err := json.Marshal(r.body)
		if err != nil {
			return transportError(r.op, fmt.Errorf("failed to encode request: %w", err))
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return transportError(r.op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.session != nil && c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(r.op, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(r.op, resp.StatusCode, serverMessage(data))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(r.op, fmt.Errorf("failed to read response: %w", err))
	}
	if out == nil {
		return nil
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return transportError(r.op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// serverMessage pulls the human readable message out of an error body.
func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "<") || len(text) > 200 {
		return ""
	}
	return text
}
