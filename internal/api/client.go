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
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultUploadTimeout = 2 * time.Minute
	maxErrorBody         = 4 << 10
)

// TokenSource yields the bearer credential owned by the auth collaborator.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Client talks to the messaging and upload endpoints. Every call is bounded
// by a timeout; an expired call is reported like any other failure.
type Client struct {
	baseURL       *url.URL
	http          *http.Client
	tokens        TokenSource
	timeout       time.Duration
	uploadTimeout time.Duration
	log           *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeouts(request, upload time.Duration) Option {
	return func(c *Client) {
		if request > 0 {
			c.timeout = request
		}
		if upload > 0 {
			c.uploadTimeout = upload
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:       u,
		http:          &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		tokens:        tokens,
		timeout:       defaultTimeout,
		uploadTimeout: defaultUploadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = observability.OrNop(c.log)
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// sameOrigin reports whether target is served by the API host; the bearer
// credential is only attached to such requests.
func (c *Client) sameOrigin(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == c.baseURL.Scheme && u.Host == c.baseURL.Host
}

func (c *Client) doJSON(ctx context.Context, op, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, op, req, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op string, req *http.Request, auth bool) (*http.Response, error) {
	if auth && c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: credential: %w", op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.APIRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.APIRequestDuration.WithLabelValues(op, "status").Observe(time.Since(start).Seconds())
		defer resp.Body.Close()
		return nil, newStatusError(op, resp)
	}

	observability.APIRequestDuration.WithLabelValues(op, "ok").Observe(time.Since(start).Seconds())
	return resp, nil
}
