package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signup/internal/registration/models"
	id "signup/pkg/domain"
	"signup/pkg/platform/sentinel"
)

const (
	anonKey    = "anon-key"
	serviceKey = "service-key"
	userIDText = "5f0c8f4e-2b8a-4c3e-9d1a-7b6e5c4d3a21"
)

func anaRequest() models.CreateAccountRequest {
	return models.CreateAccountRequest{
		Email:          "ana@example.com",
		Password:       "secret1",
		Metadata:       models.AccountMetadata{Name: "Ana"},
		RedirectTarget: "https://app.example.com/login",
	}
}

func TestClient_CreateAccountSendsSignupRequest(t *testing.T) {
	var got struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Data     struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		assert.Equal(t, "https://app.example.com/login", r.URL.Query().Get("redirect_to"))
		assert.Equal(t, anonKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer "+anonKey, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"` + userIDText + `","email":"ana@example.com","identities":[{}]}`))
	}))
	defer server.Close()

	account, err := NewClient(server.URL+"/", anonKey).CreateAccount(context.Background(), anaRequest())
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "secret1", got.Password)
	assert.Equal(t, "Ana", got.Data.Name)
	assert.Equal(t, userIDText, account.UserID.String())
	assert.Equal(t, "ana@example.com", account.Email)
}

func TestClient_CreateAccountSessionShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery, "no redirect_to without a target")
		_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":"` + userIDText + `","email":"ana@example.com"}}`))
	}))
	defer server.Close()

	req := anaRequest()
	req.RedirectTarget = ""
	account, err := NewClient(server.URL, anonKey).CreateAccount(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, userIDText, account.UserID.String())
}

func TestClient_CreateAccountWithoutUserID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"user":null,"session":null}`))
	}))
	defer server.Close()

	account, err := NewClient(server.URL, anonKey).CreateAccount(context.Background(), anaRequest())
	require.NoError(t, err)
	assert.True(t, account.UserID.IsNil())
}

func TestClient_CreateAccountErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   models.AuthErrorKind
		msg    string
	}{
		{
			name:   "duplicate by error code",
			status: http.StatusUnprocessableEntity,
			body:   `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`,
			kind:   models.AuthDuplicate,
			msg:    "User already registered",
		},
		{
			name:   "duplicate by message only",
			status: http.StatusBadRequest,
			body:   `{"code":400,"msg":"User already registered"}`,
			kind:   models.AuthDuplicate,
			msg:    "User already registered",
		},
		{
			name:   "weak password",
			status: http.StatusUnprocessableEntity,
			body:   `{"error_code":"weak_password","msg":"Password should contain at least one character of each"}`,
			kind:   models.AuthWeakPassword,
			msg:    "Password should contain at least one character of each",
		},
		{
			name:   "rate limited by status",
			status: http.StatusTooManyRequests,
			body:   `{"message":"For security purposes, you can only request this after 60 seconds."}`,
			kind:   models.AuthRateLimited,
			msg:    "For security purposes, you can only request this after 60 seconds.",
		},
		{
			name:   "server error without body uses fallback",
			status: http.StatusBadGateway,
			body:   ``,
			kind:   models.AuthUnavailable,
			msg:    models.FallbackAuthMessage,
		},
		{
			name:   "oauth style error",
			status: http.StatusBadRequest,
			body:   `{"error":"invalid_request","error_description":"Signups not allowed for this instance"}`,
			kind:   models.AuthRejected,
			msg:    "Signups not allowed for this instance",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, anonKey).CreateAccount(context.Background(), anaRequest())

			var authErr *models.AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.kind, authErr.Kind)
			assert.Equal(t, tt.msg, authErr.Error())
		})
	}
}

func TestClient_CreateAccountUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, anonKey).CreateAccount(context.Background(), anaRequest())

	var authErr *models.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, models.AuthUnavailable, authErr.Kind)
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))
}

func TestClient_DeleteAccount(t *testing.T) {
	userID, err := id.ParseUserID(userIDText)
	require.NoError(t, err)

	t.Run("uses the service key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/auth/v1/admin/users/"+userIDText, r.URL.Path)
			assert.Equal(t, serviceKey, r.Header.Get("apikey"))
			assert.Equal(t, "Bearer "+serviceKey, r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(server.URL, anonKey, WithServiceKey(serviceKey))
		assert.NoError(t, client.DeleteAccount(context.Background(), userID))
	})

	t.Run("missing account", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(server.URL, anonKey, WithServiceKey(serviceKey))
		assert.ErrorIs(t, client.DeleteAccount(context.Background(), userID), sentinel.ErrNotFound)
	})

	t.Run("requires a service key", func(t *testing.T) {
		client := NewClient("http://identity.invalid", anonKey)
		assert.Error(t, client.DeleteAccount(context.Background(), userID))
	})
}
