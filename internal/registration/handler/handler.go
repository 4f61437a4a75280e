package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"signup/internal/platform/metrics"
	"signup/internal/platform/middleware"
	"signup/internal/registration"
	"signup/internal/registration/models"
	dErrors "signup/pkg/domain-errors"
	"signup/pkg/email"
	"signup/pkg/platform/httputil"
	"signup/pkg/platform/middleware/metadata"
	"signup/pkg/platform/middleware/requesttime"
	"signup/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

const maxBodyBytes = 1 << 20

// Service runs one registration submission.
type Service interface {
	Submit(ctx context.Context, in models.RegistrationInput) (*models.Account, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handler serves the registration endpoints.
type Handler struct {
	logger   *slog.Logger
	svc      Service
	metrics  *metrics.Metrics
	loginURL string
	checks   map[string]HealthCheck
}

type Option func(*Handler)

// WithHealthCheck adds a named dependency check to GET /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

// New creates a registration Handler. An empty loginURL falls back to
// the default login route.
func New(svc Service, logger *slog.Logger, metrics *metrics.Metrics, loginURL string, opts ...Option) *Handler {
	if loginURL == "" {
		loginURL = registration.DefaultLoginTarget
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:   logger,
		svc:      svc,
		metrics:  metrics,
		loginURL: loginURL,
		checks:   map[string]HealthCheck{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the registration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(metadata.ClientMetadata)
	router.Use(requesttime.Middleware)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))
	router.Post("/auth/register", h.handleRegister)
	router.Post("/auth/register/validate", h.handleValidate)
	router.Get("/login", h.handleLogin)
	router.Get("/healthz", h.handleHealth)

	r.Mount("/", router)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req models.RegistrationInput
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.svc.Submit(ctx, req)
	if err != nil {
		h.logSubmitError(ctx, err, req.Email)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration accepted",
		"request_id", requestID,
		"email", email.Mask(account.Email),
	)
	resp := RegisterResponse{
		Email:              account.Email,
		Message:            registration.MsgSuccess,
		VerificationNotice: registration.VerificationNotice(account.Email),
		LoginURL:           h.loginURL,
	}
	if !account.UserID.IsNil() {
		resp.UserID = account.UserID.String()
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) logSubmitError(ctx context.Context, err error, address string) {
	requestID := requestcontext.RequestID(ctx)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeConflict, dErrors.CodeUnprocessable, dErrors.CodeRateLimited, dErrors.CodeBadRequest:
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", requestID,
			"email", email.Mask(address),
			"error", err.Error(),
		)
	default:
		h.logger.ErrorContext(ctx, "registration failed",
			"request_id", requestID,
			"email", email.Mask(address),
			"error", err.Error(),
		)
	}
}

// handleValidate returns the inline messages for a partially filled form so
// thin clients can render them without duplicating the rules.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp := ValidateResponse{
		Valid:       true,
		FieldErrors: map[string]string{},
	}
	for field, msg := range registration.FieldErrors(req.RegistrationInput, req.Touched) {
		resp.FieldErrors[string(field)] = msg
	}
	if verr := registration.Validate(req.RegistrationInput); verr != nil {
		resp.Valid = false
		resp.Error = verr.Message
		resp.Field = string(verr.Field)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.loginURL, http.StatusSeeOther)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := HealthResponse{Status: "ok"}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed",
				"request_id", requestcontext.RequestID(ctx),
				"check", name,
				"error", err.Error(),
			)
			if resp.Checks == nil {
				resp.Checks = map[string]string{}
			}
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(ctx, "invalid registration request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}
