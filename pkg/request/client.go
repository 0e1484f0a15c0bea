package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/openverse/toolkit/pkg/config"
	"github.com/openverse/toolkit/pkg/response"
	"github.com/openverse/toolkit/pkg/types"
)

// defaultTimeout bounds each outbound call unless overridden.
const defaultTimeout = 10 * time.Second

// RemoteCallError describes a transport or decoding failure talking to
// a collaborating service. The client captures it into the envelope's
// error field instead of returning it, so callers branch on the
// envelope uniformly.
type RemoteCallError struct {
	Service Service
	URL     string
	Err     error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("remote call to %s (%s) failed: %v", e.Service, e.URL, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// Client issues typed requests against collaborating services. A single
// Client is safe for concurrent use; requests issued sequentially by
// one caller are sent in that order. The client never retries — retry
// policy belongs to the caller.
type Client struct {
	settings *config.Settings
	http     *http.Client
	log      *slog.Logger

	// authToken, when set, is attached as a Bearer Authorization
	// header on every request.
	authToken string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying transport entirely.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the structured logger used for request tracing.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithAuthToken attaches a bearer token to every outbound request.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// New builds a client bound to the shared settings. The base URL and
// service ports come from Settings; construction fails if the base URL
// does not parse.
func New(settings *config.Settings, opts ...Option) (*Client, error) {
	if settings == nil {
		return nil, errors.New("request: settings must not be nil")
	}
	if _, err := url.Parse(settings.NormalizedBaseURL()); err != nil {
		return nil, fmt.Errorf("request: invalid base URL %q: %w", settings.BaseURL, err)
	}

	c := &Client{
		settings: settings,
		http:     &http.Client{Timeout: defaultTimeout},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do sends one request to the named service route and returns the
// normalized envelope.
//
// Failures split three ways:
//   - invalid input (unknown route, missing params, body failing its
//     model validation) is returned as an error before anything is sent;
//   - context cancellation or deadline is returned as the context error,
//     with the underlying connection released either way;
//   - transport failures, non-success statuses and unparsable bodies
//     are captured into the envelope's error field with a nil error.
func (c *Client) Do(ctx context.Context, service Service, route Route, params map[string]string, body any) (response.Envelope, error) {
	if err := lookup(service, route); err != nil {
		return response.Envelope{}, err
	}
	if body != nil {
		if !acceptsBody(route.Method) {
			return response.Envelope{}, fmt.Errorf("request: route %q (%s) does not accept a body", route.Name, route.Method)
		}
		if err := types.Validate(body); err != nil {
			return response.Envelope{}, err
		}
	}

	target, err := c.buildURL(service, route, params)
	if err != nil {
		return response.Envelope{}, err
	}

	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return response.Envelope{}, fmt.Errorf("request: encode body: %w", err)
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, route.Method, target, payload)
	if err != nil {
		return response.Envelope{}, fmt.Errorf("request: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	c.log.Debug("sending request",
		slog.String("service", string(service)),
		slog.String("route", route.Name),
		slog.String("method", route.Method),
		slog.String("url", target),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// The caller abandoned the request; report their own
			// cancellation rather than a remote failure.
			return response.Envelope{}, ctx.Err()
		}
		rce := &RemoteCallError{Service: service, URL: target, Err: err}
		c.log.Error("request failed", slog.String("route", route.Name), slog.String("error", err.Error()))
		return response.Err(rce.Error()), nil
	}
	defer resp.Body.Close()

	env := response.Decode(resp)
	if env.IsOK() {
		c.log.Debug("request completed",
			slog.String("route", route.Name),
			slog.Int("status_code", env.StatusCode),
		)
	} else {
		c.log.Warn("request returned error envelope",
			slog.String("route", route.Name),
			slog.Int("status_code", env.StatusCode),
			slog.String("error", env.Error),
		)
	}
	return env, nil
}

// URL resolves the absolute URL for a service route without sending
// anything. Useful for health checks and logging.
func (c *Client) URL(service Service, route Route, params map[string]string) (string, error) {
	if err := lookup(service, route); err != nil {
		return "", err
	}
	return c.buildURL(service, route, params)
}

func (c *Client) buildURL(service Service, route Route, params map[string]string) (string, error) {
	path, err := Resolve(route, params)
	if err != nil {
		return "", err
	}
	port, err := c.settings.ServicePort(string(service))
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	return fmt.Sprintf("%s:%d%s", c.settings.NormalizedBaseURL(), port, path), nil
}

func acceptsBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
