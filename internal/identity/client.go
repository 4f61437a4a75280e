// Package identity talks to the hosted identity service that owns
// credentials. The HTTP client speaks the GoTrue signup and admin API.
package identity

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

	"signup/internal/registration/models"
	id "signup/pkg/domain"
	"signup/pkg/platform/sentinel"
)

const (
	signupPath    = "/auth/v1/signup"
	adminUserPath = "/auth/v1/admin/users/"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Client creates accounts through the identity service's public signup
// endpoint and, with a service key, deletes them through the admin API.
type Client struct {
	baseURL    string
	apiKey     string
	serviceKey string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithServiceKey enables DeleteAccount. The key must carry the service role.
func WithServiceKey(key string) Option {
	return func(cl *Client) {
		cl.serviceKey = key
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// WithTimeout sets a per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient = &http.Client{Timeout: d}
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type signupBody struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     models.AccountMetadata `json:"data"`
}

type userJSON struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// signupResponse covers both shapes the service returns: a bare user when
// email confirmation is pending, or a session wrapping the user.
type signupResponse struct {
	userJSON
	User        *userJSON `json:"user"`
	AccessToken string    `json:"access_token"`
}

// errorResponse covers the error shapes seen across service versions.
type errorResponse struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// CreateAccount registers a new credentialed account.
func (c *Client) CreateAccount(ctx context.Context, req models.CreateAccountRequest) (*models.Account, error) {
	endpoint := c.baseURL + signupPath
	if req.RedirectTarget != "" {
		endpoint += "?" + url.Values{"redirect_to": {req.RedirectTarget}}.Encode()
	}

	payload, err := json.Marshal(signupBody{Email: req.Email, Password: req.Password, Data: req.Metadata})
	if err != nil {
		return nil, fmt.Errorf("encode signup request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build signup request: %w", err)
	}
	c.authorize(httpReq, c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, models.NewAuthError(models.AuthUnavailable, "", errors.Join(sentinel.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, c.signupError(ctx, resp)
	}

	var body signupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, models.NewAuthError(models.AuthUnavailable, "", fmt.Errorf("decode signup response: %w", err))
	}
	user := body.userJSON
	if body.User != nil {
		user = *body.User
	}

	account := &models.Account{Email: user.Email}
	if user.ID != "" {
		userID, err := id.ParseUserID(user.ID)
		if err != nil {
			return nil, models.NewAuthError(models.AuthUnavailable, "", fmt.Errorf("signup response user id: %w", err))
		}
		account.UserID = userID
	}
	return account, nil
}

func (c *Client) signupError(ctx context.Context, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorResponse
	_ = json.Unmarshal(raw, &body)

	kind := classify(resp.StatusCode, body)
	c.logger.DebugContext(ctx, "identity service signup error",
		"status", resp.StatusCode,
		"error_code", body.ErrorCode,
		"kind", string(kind),
	)
	return models.NewAuthError(kind, body.text(), fmt.Errorf("identity service returned %d", resp.StatusCode))
}

// classify maps an error response onto an AuthErrorKind. error_code is
// authoritative when present; older deployments only send a message.
func classify(status int, body errorResponse) models.AuthErrorKind {
	switch body.ErrorCode {
	case "user_already_exists", "email_exists":
		return models.AuthDuplicate
	case "weak_password":
		return models.AuthWeakPassword
	case "over_request_rate_limit", "over_email_send_rate_limit":
		return models.AuthRateLimited
	}

	switch {
	case status == http.StatusTooManyRequests:
		return models.AuthRateLimited
	case status >= 500:
		return models.AuthUnavailable
	case strings.Contains(strings.ToLower(body.text()), "already registered"):
		return models.AuthDuplicate
	}
	return models.AuthRejected
}

// DeleteAccount removes an account through the admin API.
func (c *Client) DeleteAccount(ctx context.Context, userID id.UserID) error {
	if c.serviceKey == "" {
		return errors.New("identity service key not configured")
	}

	endpoint := c.baseURL + adminUserPath + url.PathEscape(userID.String())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	c.authorize(httpReq, c.serviceKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Join(sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("delete account %s: %w", userID, sentinel.ErrNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("delete account %s: status %d: %w", userID, resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode >= 300:
		return fmt.Errorf("delete account %s: status %d", userID, resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request, key string) {
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
}
