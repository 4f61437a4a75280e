// Package profile writes profile rows for newly registered accounts.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"signup/internal/registration/models"
	"signup/pkg/platform/sentinel"
)

const maxErrorBody = 64 << 10

// RESTStore inserts rows through a PostgREST-compatible data API.
type RESTStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type RESTOption func(*RESTStore)

func WithHTTPClient(c *http.Client) RESTOption {
	return func(s *RESTStore) {
		s.httpClient = c
	}
}

func WithTimeout(d time.Duration) RESTOption {
	return func(s *RESTStore) {
		if d > 0 {
			s.httpClient = &http.Client{Timeout: d}
		}
	}
}

func NewRESTStore(baseURL, apiKey string, opts ...RESTOption) *RESTStore {
	s := &RESTStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// restError is the PostgREST error body.
type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// Insert writes one row and asks for no representation back.
func (s *RESTStore) Insert(ctx context.Context, table string, record models.ProfileRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	endpoint := s.baseURL + "/rest/v1/" + url.PathEscape(table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.NewProfileWriteError(record.ID, "", errors.Join(sentinel.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body restError
	_ = json.Unmarshal(raw, &body)

	cause := fmt.Errorf("profile store returned %d (code %q, details %q, hint %q)",
		resp.StatusCode, body.Code, body.Details, body.Hint)
	switch {
	case body.Code == uniqueViolation || resp.StatusCode == http.StatusConflict:
		cause = errors.Join(sentinel.ErrConflict, cause)
	case resp.StatusCode >= 500:
		cause = errors.Join(sentinel.ErrUnavailable, cause)
	}
	return models.NewProfileWriteError(record.ID, body.Message, cause)
}
