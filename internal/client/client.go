package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/worktable/internal/auth"
	"github.com/wolfeidau/worktable/internal/models"
	"github.com/wolfeidau/worktable/internal/tablesync"
	"github.com/wolfeidau/worktable/internal/workspace"
)

var _ tablesync.Remote = (*Client)(nil)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration

	// FetchAttempts bounds how many times a document fetch is tried when the
	// server or network fails transiently.
	// Default: 3
	FetchAttempts uint

	// RetryInterval is the first wait between fetch attempts; later waits grow exponentially.
	// Default: 250ms
	RetryInterval time.Duration

	// Transport overrides the HTTP transport, for example to trust a private CA.
	// Default: http.DefaultTransport
	Transport http.RoundTripper
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL:     "http://localhost:8080",
		Timeout:       30 * time.Second,
		FetchAttempts: 3,
		RetryInterval: 250 * time.Millisecond,
	}
}

// Client talks to the worktable API. It keeps the session cookie in a jar,
// so a login or signup authenticates every later call.
type Client struct {
	baseURL       *url.URL
	http          *http.Client
	fetchAttempts uint
	retryInterval time.Duration
}

// New creates a Client for cfg.ServerURL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server url must be absolute: %q", cfg.ServerURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if cfg.FetchAttempts == 0 {
		cfg.FetchAttempts = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 250 * time.Millisecond
	}

	return &Client{
		baseURL:       base,
		http:          &http.Client{Timeout: cfg.Timeout, Jar: jar, Transport: cfg.Transport},
		fetchAttempts: cfg.FetchAttempts,
		retryInterval: cfg.RetryInterval,
	}, nil
}

// SessionToken returns the current session cookie value, or "".
func (c *Client) SessionToken() string {
	for _, cookie := range c.http.Jar.Cookies(c.baseURL) {
		if cookie.Name == auth.DefaultCookieName {
			return cookie.Value
		}
	}
	return ""
}

// SetSessionToken restores a session saved from an earlier SessionToken call.
func (c *Client) SetSessionToken(token string) {
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:  auth.DefaultCookieName,
		Value: token,
		Path:  "/",
	}})
}

type accountResponse struct {
	User         *models.User         `json:"user"`
	Organization *models.Organization `json:"organization"`
}

// Signup creates an account and its first organization, and logs in.
func (c *Client) Signup(ctx context.Context, email, password, orgName string) (*models.User, *models.Organization, error) {
	var out accountResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/accounts", map[string]string{
		"email":            email,
		"password":         password,
		"organisationName": orgName,
	}, &out)
	if err != nil {
		return nil, nil, err
	}
	return out.User, out.Organization, nil
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var out accountResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/sessions", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/sessions/current", nil, nil)
}

// LogoutEverywhere ends every session of the logged in user and returns how
// many were ended.
func (c *Client) LogoutEverywhere(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/v1/sessions", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// CurrentUser returns the logged in user with memberships and active organization.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var out accountResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// CreateOrganization creates an organization owned by the caller and switches to it.
func (c *Client) CreateOrganization(ctx context.Context, name string) (*models.Organization, *models.User, error) {
	var out accountResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/organizations", map[string]string{"name": name}, &out); err != nil {
		return nil, nil, err
	}
	return out.Organization, out.User, nil
}

// AddMember adds the user with email to orgID and switches them to it.
func (c *Client) AddMember(ctx context.Context, orgID uuid.UUID, email string) (*models.User, error) {
	var out accountResponse
	path := "/api/v1/organizations/" + orgID.String() + "/members"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// SwitchOrganization changes the caller's active organization.
func (c *Client) SwitchOrganization(ctx context.Context, orgID uuid.UUID) (*models.User, error) {
	var out accountResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/users/me/active-organization", map[string]string{"orgId": orgID.String()}, &out)
	if err != nil {
		return nil, err
	}
	return out.User, nil
}

// FetchDocument loads the document of orgID, retrying transient failures.
func (c *Client) FetchDocument(ctx context.Context, orgID uuid.UUID) (*models.TableDocument, error) {
	path := "/api/v1/workspace/document?org_id=" + url.QueryEscape(orgID.String())

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval

	op := func() (*models.TableDocument, error) {
		var out models.DocumentPayload
		if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
			if workspace.KindOf(err) != workspace.KindTransient {
				return nil, backoff.Permanent(err)
			}
			log.Debug().Err(err).Str("org_id", orgID.String()).Msg("Fetch failed, retrying")
			return nil, err
		}
		return &models.TableDocument{
			OrgID:   orgID,
			Title:   out.Title,
			Content: out.Content,
			Columns: models.CloneColumns(out.Columns),
			Rows:    models.CloneRows(out.Rows),
		}, nil
	}

	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(c.fetchAttempts))
}

// UpsertDocument replaces the organization's document with payload.
func (c *Client) UpsertDocument(ctx context.Context, payload models.DocumentPayload) (*models.TableDocument, error) {
	var out struct {
		Data *models.TableDocument `json:"data"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/v1/workspace/document", payload, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

type errorEnvelope struct {
	Message string `json:"message"`
	Field   string `json:"field"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return workspace.Transient("Request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError rebuilds the server's error from the envelope. Every 5xx is
// transient; other statuses keep the kind the server reported.
func decodeError(resp *http.Response) error {
	var env errorEnvelope
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&env)

	if env.Message == "" {
		env.Message = http.StatusText(resp.StatusCode)
	}

	kind := kindForStatus(resp.StatusCode)
	if resp.StatusCode < http.StatusInternalServerError && knownKind(workspace.Kind(env.Error)) {
		kind = workspace.Kind(env.Error)
	}

	return &workspace.Error{
		Kind:    kind,
		Field:   env.Field,
		Message: env.Message,
		Err:     &StatusError{Code: resp.StatusCode},
	}
}

// StatusError records the HTTP status behind a classified error.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}

// StatusCode returns the HTTP status recorded on err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func kindForStatus(status int) workspace.Kind {
	switch {
	case status >= http.StatusInternalServerError:
		return workspace.KindTransient
	case status == http.StatusUnauthorized:
		return workspace.KindNotAuthenticated
	case status == http.StatusForbidden:
		return workspace.KindForbidden
	case status == http.StatusNotFound:
		return workspace.KindNotFound
	case status == http.StatusTooManyRequests:
		return workspace.KindTransient
	default:
		return workspace.KindValidation
	}
}

func knownKind(kind workspace.Kind) bool {
	switch kind {
	case workspace.KindValidation, workspace.KindInvalidIdentifier, workspace.KindNotAuthenticated,
		workspace.KindForbidden, workspace.KindNotFound, workspace.KindTransient:
		return true
	}
	return false
}
