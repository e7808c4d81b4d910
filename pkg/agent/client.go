// Package agent is the HTTP client for the remote agent backend: account and
// workspace auth, chat management, and the streaming message endpoint.
//
// Every workspace-scoped request carries the workspace's bearer token from the
// injected tokenstore.Store. A 401 is recovered by exchanging the refresh
// token and retrying exactly once; if that fails the workspace tokens are
// cleared and ErrAuthFailed is returned.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/agentchat/pkg/logger"
	"github.com/papercomputeco/agentchat/pkg/tokenstore"
)

// DefaultTimeout bounds non-streaming requests. Streams are bounded only by
// the caller's context.
const DefaultTimeout = 30 * time.Second

// Client talks to one backend on behalf of one workspace.
type Client struct {
	baseURL    string
	workspace  string
	timeout    time.Duration
	httpClient *http.Client
	tokens     tokenstore.Store
	logger     *slog.Logger

	onAuthFailure func(workspace string)
}

// Option configures a Client.
type Option func(*Client)

// WithWorkspace scopes the client to a workspace ID.
func WithWorkspace(id string) Option {
	return func(c *Client) {
		c.workspace = id
	}
}

// WithHTTPClient replaces the underlying http.Client. Its Timeout should be
// zero, or long streams will be cut off.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the deadline applied to non-streaming requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithAuthFailureHook registers fn to run after a workspace's credentials were
// rejected and cleared. The CLI uses it to prompt for a new login.
func WithAuthFailureHook(fn func(workspace string)) Option {
	return func(c *Client) {
		c.onAuthFailure = fn
	}
}

// NewClient creates a Client for the backend at baseURL.
func NewClient(baseURL string, tokens tokenstore.Store, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if tokens == nil {
		return nil, errors.New("token store is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		tokens:     tokens,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Workspace returns the workspace the client is scoped to.
func (c *Client) Workspace() string {
	return c.workspace
}

// requestBuilder builds a fresh request carrying the given bearer token. It is
// called once per attempt so the body can be replayed on retry.
type requestBuilder func(ctx context.Context, token string) (*http.Request, error)

// jsonRequest returns a requestBuilder for a JSON request against path.
func (c *Client) jsonRequest(method, path string, body any) (requestBuilder, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
	}

	target := c.baseURL + path

	return func(ctx context.Context, token string) (*http.Request, error) {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, r)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req, nil
	}, nil
}

// send issues one attempt.
func (c *Client) send(ctx context.Context, build requestBuilder, token string) (*http.Response, error) {
	req, err := build(ctx, token)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sending request",
		"method", req.Method,
		"url", req.URL.String(),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	return resp, nil
}

// doAuthed sends a workspace-scoped request, refreshing the access token and
// retrying exactly once on 401. The returned response is never a 401.
func (c *Client) doAuthed(ctx context.Context, build requestBuilder) (*http.Response, error) {
	if c.workspace == "" {
		return nil, ErrNoWorkspace
	}

	token, err := c.tokens.AccessToken(c.workspace)
	if err != nil {
		return nil, fmt.Errorf("reading access token: %w", err)
	}

	resp, err := c.send(ctx, build, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	discard(resp)

	c.logger.Debug("access token rejected, refreshing", "workspace", c.workspace)

	token, err = c.refreshAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err = c.send(ctx, build, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		discard(resp)
		return nil, c.authFailed("refreshed token was rejected")
	}

	return resp, nil
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token and persists it.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	refresh, err := c.tokens.RefreshToken(c.workspace)
	if err != nil {
		return "", fmt.Errorf("reading refresh token: %w", err)
	}
	if refresh == "" {
		return "", c.authFailed("no refresh token")
	}

	tokens, err := c.Refresh(ctx, refresh)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
			return "", c.authFailed("refresh rejected")
		}
		return "", fmt.Errorf("refreshing access token: %w", err)
	}

	if err := c.tokens.SetAccessToken(c.workspace, tokens.AccessToken); err != nil {
		return "", fmt.Errorf("storing access token: %w", err)
	}
	if tokens.RefreshToken != "" && tokens.RefreshToken != refresh {
		if err := c.tokens.SetRefreshToken(c.workspace, tokens.RefreshToken); err != nil {
			return "", fmt.Errorf("storing refresh token: %w", err)
		}
	}

	return tokens.AccessToken, nil
}

// authFailed clears the workspace credentials, runs the failure hook and
// returns an error wrapping ErrAuthFailed.
func (c *Client) authFailed(reason string) error {
	if err := c.tokens.Clear(c.workspace); err != nil {
		c.logger.Error("clearing workspace tokens",
			"workspace", c.workspace,
			"error", err,
		)
	}

	c.logger.Warn("workspace authentication failed",
		"workspace", c.workspace,
		"reason", reason,
	)

	if c.onAuthFailure != nil {
		c.onAuthFailure(c.workspace)
	}

	return fmt.Errorf("%w: %s", ErrAuthFailed, reason)
}

// withTimeout derives the deadline for a non-streaming request.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// doJSON runs a non-streaming call and decodes a 2xx JSON response into out.
// out may be nil for calls without a response body.
func (c *Client) doJSON(ctx context.Context, authed bool, method, path string, in, out any) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	build, err := c.jsonRequest(method, path, in)
	if err != nil {
		return err
	}

	var resp *http.Response
	if authed {
		resp, err = c.doAuthed(ctx, build)
	} else {
		resp, err = c.send(ctx, build, "")
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return newStatusError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// workspacePath returns the API path for a workspace-scoped resource.
func (c *Client) workspacePath(elem ...string) string {
	parts := []string{"/api/workspaces", url.PathEscape(c.workspace)}
	for _, e := range elem {
		parts = append(parts, url.PathEscape(e))
	}
	return strings.Join(parts, "/")
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func newStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

// discard drains and closes a response body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
