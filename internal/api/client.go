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

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultUploadTimeout = 5 * time.Minute
)

// Client is a typed wrapper around the OTA server's REST API. A bearer token,
// when present, is attached to every request.
type Client struct {
	BaseURL string

	httpClient   *http.Client
	uploadClient *http.Client
	logger       *zap.Logger
}

type options struct {
	transport     http.RoundTripper
	logger        *zap.Logger
	timeout       time.Duration
	uploadTimeout time.Duration
}

// Option configures a Client.
type Option func(*options)

// WithTransport sets the base transport used beneath auth and logging.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeout sets the timeout for regular JSON requests.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithUploadTimeout sets the timeout for publish uploads.
func WithUploadTimeout(d time.Duration) Option {
	return func(o *options) { o.uploadTimeout = d }
}

// New creates a client for the API at baseURL (e.g. http://localhost:3000/api).
func New(baseURL, token string, opts ...Option) *Client {
	o := options{
		transport:     http.DefaultTransport,
		logger:        zap.NewNop(),
		timeout:       defaultTimeout,
		uploadTimeout: defaultUploadTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var rt http.RoundTripper = &loggingTransport{Base: o.transport, Logger: o.logger}
	if token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   rt,
		}
	}

	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Transport: rt, Timeout: o.timeout},
		uploadClient: &http.Client{Transport: rt, Timeout: o.uploadTimeout},
		logger:       o.logger,
	}
}

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// do sends a JSON request and decodes a 2xx JSON response into out.
// Non-2xx responses are returned as *Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CheckToken probes /auth/me. It returns true only for a 2xx response. A 401
// or 403 yields false silently; any other failure is logged and also yields
// false, so an unreachable server reads as "not logged in".
func (c *Client) CheckToken(ctx context.Context) bool {
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil)
	if err == nil {
		return true
	}
	if !IsUnauthorized(err) {
		c.logger.Warn("error checking token validity", zap.Error(err))
	}
	return false
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		if StatusCode(err) == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return nil, err
	}
	return &u, nil
}

// LoginURL returns the GitHub OAuth entry point that redirects back to redirect
// with a ?token= parameter once the user has authorized.
func (c *Client) LoginURL(redirect string) string {
	return c.url("/auth/github") + "?redirect=" + url.QueryEscape(redirect)
}

// ListApps returns every app the user can access.
func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	var apps []App
	if err := c.do(ctx, http.MethodGet, "/apps", nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// AppBySlug returns the app whose slug equals slug, or nil when there is none.
// The server has no slug lookup, so this filters ListApps.
func (c *Client) AppBySlug(ctx context.Context, slug string) (*App, error) {
	apps, err := c.ListApps(ctx)
	if err != nil {
		return nil, err
	}
	return FindApp(apps, slug), nil
}

// FindApp returns the app with the given slug from apps, or nil.
func FindApp(apps []App, slug string) *App {
	for i := range apps {
		if apps[i].Slug == slug {
			return &apps[i]
		}
	}
	return nil
}

// CreateApp registers a new app.
func (c *Client) CreateApp(ctx context.Context, req CreateAppRequest) (*App, error) {
	var app App
	if err := c.do(ctx, http.MethodPost, "/apps", req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// ListUpdates returns the updates published for an app.
func (c *Client) ListUpdates(ctx context.Context, appID int64) ([]Update, error) {
	var updates []Update
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/apps/%d/updates", appID), nil, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// InviteUser grants username a role on an app. A 404 means the user has never
// logged in to the server and is reported as ErrUserNotFound.
func (c *Client) InviteUser(ctx context.Context, appID int64, username string, role Role) (*InviteResult, error) {
	body := map[string]string{"username": username, "role": string(role)}
	var res InviteResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/apps/%d/invite", appID), body, &res); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %w", ErrUserNotFound, err)
		}
		return nil, err
	}
	return &res, nil
}

// PromoteUpdate copies an update onto another channel. The server creates a new
// update record; the original is left untouched.
func (c *Client) PromoteUpdate(ctx context.Context, appID, updateID int64, channel Channel) (*PromoteResult, error) {
	body := map[string]Channel{"channel": channel}
	var res PromoteResult
	path := fmt.Sprintf("/apps/%d/updates/%d/promote", appID, updateID)
	if err := c.do(ctx, http.MethodPost, path, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RollbackUpdate asks the server to republish a previous update on its channel.
func (c *Client) RollbackUpdate(ctx context.Context, appID, updateID int64) (*PromoteResult, error) {
	var res PromoteResult
	path := fmt.Sprintf("/apps/%d/updates/%d/rollback", appID, updateID)
	if err := c.do(ctx, http.MethodPost, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Health probes the server's liveness endpoint, which lives beside the API
// root rather than under it.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	root := strings.TrimSuffix(c.BaseURL, "/api")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	var hs HealthStatus
	if err := decodeResponse(resp, &hs); err != nil {
		return nil, err
	}
	return &hs, nil
}
