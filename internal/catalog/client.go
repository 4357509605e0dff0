package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds every request so a hung backend cannot leave a
	// control loading forever.
	DefaultTimeout = 10 * time.Second

	// maxBody caps JSON responses.
	maxBody = 4 << 20

	userAgent = "stucon/1.0"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration // per request; DefaultTimeout when zero
	RateEvery  time.Duration // minimum spacing between requests; zero disables pacing
	HTTPClient *http.Client
}

// Client talks to the catalog backend. Safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

// New creates a Client for the backend at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limit := rate.Inf
	if opts.RateEvery > 0 {
		limit = rate.Every(opts.RateEvery)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		base:    base,
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
		timeout: timeout,
	}, nil
}

// SetToken sets the session token sent as a bearer credential.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ListSchemes returns the scheme options in backend order.
func (c *Client) ListSchemes(ctx context.Context) ([]Option, error) {
	const op = "list schemes"
	body, err := c.getJSON(ctx, op, "/api/explore/schemes", nil)
	if err != nil {
		return nil, err
	}
	opts, err := decodeOptions(body, "scheme")
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return opts, nil
}

// ListBranches returns branch options, scoped to scheme when non-empty.
func (c *Client) ListBranches(ctx context.Context, scheme string) ([]Option, error) {
	const op = "list branches"
	q := url.Values{}
	if scheme != "" {
		q.Set("scheme", scheme)
	}
	body, err := c.getJSON(ctx, op, "/api/explore/branches", q)
	if err != nil {
		return nil, err
	}
	opts, err := decodeOptions(body, "branch")
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return opts, nil
}

// ListSubjects returns subject options for a scheme, branch and semester.
// All three are required; a missing one yields a *ValidationError without
// contacting the backend.
func (c *Client) ListSubjects(ctx context.Context, scheme, branch string, sem int) ([]Option, error) {
	const op = "list subjects"
	var missing []string
	if scheme == "" {
		missing = append(missing, "scheme")
	}
	if branch == "" {
		missing = append(missing, "branch")
	}
	if sem < 1 || sem > 8 {
		missing = append(missing, "semester")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Op: op, Missing: missing}
	}

	q := url.Values{}
	q.Set("scheme", scheme)
	q.Set("branch", branch)
	q.Set("sem", strconv.Itoa(sem))

	body, err := c.getJSON(ctx, op, "/api/explore/subjects", q)
	if err != nil {
		return nil, err
	}
	opts, err := decodeOptions(body, "subject")
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return opts, nil
}

// SearchDocuments returns one server-side page of documents matching q.
func (c *Client) SearchDocuments(ctx context.Context, q Query) (Page, error) {
	const op = "search documents"
	body, err := c.getJSON(ctx, op, "/api/explore/documents", q.Values())
	if err != nil {
		return Page{}, err
	}
	page, err := decodePage(body, q.Offset)
	if err != nil {
		return Page{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return page, nil
}

// GetDocument fetches metadata for one document. Returns ErrNotFound when the
// backend does not know id.
func (c *Client) GetDocument(ctx context.Context, id string) (Document, error) {
	const op = "get document"
	q := url.Values{}
	q.Set("material-id", id)
	body, err := c.getJSON(ctx, op, "/api/file/metadata", q)
	if err != nil {
		return Document{}, err
	}
	doc, err := decodeDocument(body)
	if errors.Is(err, ErrNotFound) {
		return Document{}, fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return doc, nil
}

// Download streams the content of one document. The per-request timeout
// covers only the response headers; the caller bounds the body copy with ctx.
// The caller must close the returned reader.
func (c *Client) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	const op = "download"
	q := url.Values{}
	q.Set("material-id", id)

	resp, cancel, err := c.do(ctx, op, http.MethodGet, "/api/download", q, nil, "", true)
	if err != nil {
		return nil, err
	}
	return &cancelBody{ReadCloser: resp.Body, cancel: cancel}, nil
}

// cancelBody releases the request context once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// getJSON performs a GET and returns the (size-capped) body of a 2xx answer.
func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values) ([]byte, error) {
	resp, cancel, err := c.do(ctx, op, http.MethodGet, path, q, nil, "", false)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	return body, nil
}

// sendJSON marshals in, sends it with method, and decodes a 2xx answer into out.
func (c *Client) sendJSON(ctx context.Context, op, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}

	resp, cancel, err := c.do(ctx, op, method, path, nil, bytes.NewReader(payload), "application/json", false)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// do sends one request and returns a 2xx response. The returned cancel must
// be called once the body is consumed. With stream set, the timeout applies
// to obtaining the response only.
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body io.Reader, contentType string, stream bool) (*http.Response, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, &NetworkError{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	u := *c.base
	u.Path = c.base.Path + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var (
		reqCtx context.Context
		cancel context.CancelFunc
		timer  *time.Timer
	)
	if stream {
		reqCtx, cancel = context.WithCancel(ctx)
		timer = time.AfterFunc(c.timeout, cancel)
	} else {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, u.String(), body)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	timedOut := errors.Is(reqCtx.Err(), context.DeadlineExceeded)
	if timer != nil && !timer.Stop() && ctx.Err() == nil {
		// The header timer fired before Stop.
		timedOut = true
	}
	if err != nil {
		cancel()
		if timedOut {
			err = fmt.Errorf("%w after %s", context.DeadlineExceeded, c.timeout)
		}
		return nil, nil, &NetworkError{Op: op, Err: err}
	}
	if timedOut {
		resp.Body.Close()
		cancel()
		return nil, nil, &NetworkError{Op: op, Err: fmt.Errorf("%w after %s", context.DeadlineExceeded, c.timeout)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, cancel, nil
	}

	defer cancel()
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, nil, &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
}
