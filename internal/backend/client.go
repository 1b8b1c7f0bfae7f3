// Package backend is the typed client for the hosted auth/database service
// (Supabase GoTrue, PostgREST and Storage).
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	storage "github.com/supabase-community/storage-go"

	"github.com/selams/selams-web/internal/models"
)

var (
	ErrMissingConfig      = errors.New("backend: service URL and anon key are required")
	ErrNotFound           = errors.New("backend: record not found")
	ErrUnauthorized       = errors.New("backend: unauthorized")
	ErrInvalidCredentials = errors.New("backend: invalid credentials")
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend: %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// errorBody covers both GoTrue and PostgREST error shapes.
type errorBody struct {
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type Client struct {
	baseURL      string
	anonKey      string
	http         *resty.Client
	storage      *storage.Client
	avatarBucket string
	timeout      time.Duration
}

type Option func(*Client)

// WithHTTPClient swaps the underlying transport, mostly for tests. The
// request timeout still applies, whatever the option order.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

func WithAvatarBucket(bucket string) Option {
	return func(c *Client) { c.avatarBucket = bucket }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New builds a client for the service at baseURL. Both values are required;
// an empty one fails immediately with ErrMissingConfig.
//
// Failed calls are retried once on transport errors and 5xx answers.
func New(baseURL, anonKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	anonKey = strings.TrimSpace(anonKey)
	if baseURL == "" || anonKey == "" {
		return nil, ErrMissingConfig
	}
	c := &Client{
		baseURL:      baseURL,
		anonKey:      anonKey,
		http:         resty.New(),
		avatarBucket: "avatars",
		timeout:      10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	c.http.
		SetTimeout(c.timeout).
		SetBaseURL(baseURL).
		SetHeader("apikey", anonKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(1).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})
	c.storage = storage.NewClient(baseURL+"/storage/v1", anonKey, nil)
	return c, nil
}

func (c *Client) URL() string { return c.baseURL }

// request starts a call authorised as the user when accessToken is set and
// as the anonymous role otherwise.
func (c *Client) request(ctx context.Context, accessToken string) *resty.Request {
	token := accessToken
	if token == "" {
		token = c.anonKey
	}
	return c.http.R().SetContext(ctx).SetAuthToken(token).SetError(&errorBody{})
}

func toAPIError(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		apiErr.Code = firstNonEmpty(body.ErrorCode, body.Error)
		apiErr.Message = firstNonEmpty(body.Msg, body.ErrorDescription, body.Message)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(apiErr.Status)
	}
	return apiErr
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetProfile loads one row of the profiles table by id.
func (c *Client) GetProfile(ctx context.Context, accessToken, id string) (*models.Profile, error) {
	var rows []models.Profile
	resp, err := c.request(ctx, accessToken).
		SetQueryParams(map[string]string{
			"select": "*",
			"id":     "eq." + id,
		}).
		SetResult(&rows).
		Get("/rest/v1/profiles")
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", id, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch profile %s: %w", id, toAPIError(resp))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("fetch profile %s: %w", id, ErrNotFound)
	}
	return &rows[0], nil
}

// GetUser validates accessToken with the auth service and returns its user.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}
	var u User
	resp, err := c.request(ctx, accessToken).SetResult(&u).Get("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch user: %w", toAPIError(resp))
	}
	return &u, nil
}

func (c *Client) token(ctx context.Context, grant string, body interface{}) (*Session, error) {
	var s Session
	resp, err := c.request(ctx, "").
		SetQueryParam("grant_type", grant).
		SetBody(body).
		SetResult(&s).
		Post("/auth/v1/token")
	if err != nil {
		return nil, fmt.Errorf("token (%s): %w", grant, err)
	}
	if resp.IsError() {
		apiErr := toAPIError(resp)
		if resp.StatusCode() == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, apiErr)
		}
		return nil, fmt.Errorf("token (%s): %w", grant, apiErr)
	}
	return &s, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.token(ctx, "password", map[string]string{"email": email, "password": password})
}

// SignInWithIDToken exchanges an OpenID Connect id token issued by provider
// (e.g. "google") for a session.
func (c *Client) SignInWithIDToken(ctx context.Context, provider, idToken string) (*Session, error) {
	return c.token(ctx, "id_token", map[string]string{"provider": provider, "id_token": idToken})
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	return c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

// SignOut revokes the refresh tokens of the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.request(ctx, accessToken).Post("/auth/v1/logout")
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sign out: %w", toAPIError(resp))
	}
	return nil
}

// Health pings the auth service.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.request(ctx, "").Get("/auth/v1/health")
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("health: %w", toAPIError(resp))
	}
	return nil
}

// AvatarURL resolves a profile avatar reference. Absolute URLs are returned
// unchanged; bare object paths point into the public avatar bucket.
func (c *Client) AvatarURL(ref *string) string {
	if ref == nil || *ref == "" {
		return ""
	}
	if strings.HasPrefix(*ref, "http://") || strings.HasPrefix(*ref, "https://") {
		return *ref
	}
	return c.storage.GetPublicUrl(c.avatarBucket, strings.TrimPrefix(*ref, "/")).SignedURL
}
