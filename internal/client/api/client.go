package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/autoservice/internal/client/config"
	"github.com/dmitrijs2005/autoservice/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Base selects the path prefix a request is issued under.
type Base int

const (
	// BaseV1 prefixes paths with the configured version prefix.
	BaseV1 Base = iota
	// BaseRoot issues paths as given.
	BaseRoot
)

func (b Base) String() string {
	if b == BaseRoot {
		return "root"
	}
	return "v1"
}

const RequestIDHeader = "X-Request-ID"

// TokenSource yields the current bearer token, "" when logged out.
type TokenSource interface {
	Token() string
}

// UnauthorizedHandler is invoked when a response reports an expired or
// invalid session.
type UnauthorizedHandler func(ctx context.Context)

type Request struct {
	Method string
	Base   Base
	Path   string
	Query  url.Values
	Body   any

	// Anonymous requests carry no bearer token and do not trigger the
	// unauthorized handlers (login and register).
	Anonymous bool
}

type Response struct {
	Status int
	Data   []byte
}

type Client struct {
	baseURL string
	prefix  string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	log     logging.Logger

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized []UnauthorizedHandler
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func New(cfg config.APIConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		prefix:  "/" + strings.Trim(cfg.VersionPrefix, "/"),
		timeout: cfg.Timeout,
		http:    &http.Client{},
		log:     logging.Nop(),
	}
	if c.prefix == "/" {
		c.prefix = ""
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource replaces the token source; used when the session store
// is built after the client.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// OnUnauthorized registers h to run on every 401 response.
func (c *Client) OnUnauthorized(h UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = append(c.onUnauthorized, h)
}

// URL returns the absolute URL for path under base.
func (c *Client) URL(base Base, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if base == BaseV1 {
		return c.baseURL + c.prefix + path
	}
	return c.baseURL + path
}

func (c *Client) Get(ctx context.Context, base Base, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Base: base, Path: path})
}

func (c *Client) Post(ctx context.Context, base Base, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Base: base, Path: path, Body: body})
}

func (c *Client) Put(ctx context.Context, base Base, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Base: base, Path: path, Body: body})
}

func (c *Client) Patch(ctx context.Context, base Base, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, Base: base, Path: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, base Base, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Base: base, Path: path})
}

// Do sends r through the request pipeline. A non-2xx status is returned
// as *Error together with a nil Response.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	requestID := req.Header.Get(RequestIDHeader)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "api request failed",
			"method", r.Method, "url", req.URL.String(), "request_id", requestID, "error", err)
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(fmt.Errorf("read body: %w", err))
	}

	c.log.Debug(ctx, "api request",
		"method", r.Method, "url", req.URL.String(), "status", resp.StatusCode,
		"duration", time.Since(started), "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && !r.Anonymous {
			c.unauthorized(ctx)
		}
		return nil, statusError(resp.StatusCode, data)
	}

	return &Response{Status: resp.StatusCode, Data: data}, nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	target := c.URL(r.Base, r.Path)
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		raw, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())

	if !r.Anonymous {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) token() string {
	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()
	if ts == nil {
		return ""
	}
	return ts.Token()
}

func (c *Client) unauthorized(ctx context.Context) {
	c.mu.RLock()
	handlers := append([]UnauthorizedHandler(nil), c.onUnauthorized...)
	c.mu.RUnlock()

	// the request context may already be past its deadline
	ctx = context.WithoutCancel(ctx)
	for _, h := range handlers {
		h(ctx)
	}
}
