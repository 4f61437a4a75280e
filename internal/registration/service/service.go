// Package service submits validated registrations to the identity service and
// the profile store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"signup/internal/platform/device"
	"signup/internal/registration"
	"signup/internal/registration/metrics"
	"signup/internal/registration/models"
	"signup/pkg/attrs"
	id "signup/pkg/domain"
	"signup/pkg/email"
	audit "signup/pkg/platform/audit"
	"signup/pkg/platform/sentinel"
	"signup/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks IdentityService,ProfileStore,AccountRemover,SubmissionGuard,AuditPublisher

// DefaultProfileTable is the table profile rows go to.
const DefaultProfileTable = "profiles"

type IdentityService interface {
	CreateAccount(ctx context.Context, req models.CreateAccountRequest) (*models.Account, error)
}

type ProfileStore interface {
	Insert(ctx context.Context, table string, record models.ProfileRecord) error
}

// AccountRemover deletes an identity account. Used only for compensation.
type AccountRemover interface {
	DeleteAccount(ctx context.Context, userID id.UserID) error
}

// SubmissionGuard serialises submissions per key. Acquire returns
// sentinel.ErrInFlight when another holder exists.
type SubmissionGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service creates the identity account and then the profile row.
// It implements registration.Submitter.
type Service struct {
	identity       IdentityService
	profiles       ProfileStore
	redirectTarget string
	profileTable   string

	remover        AccountRemover
	guard          SubmissionGuard
	timeout        time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithCompensation deletes the identity account when its profile row cannot
// be written. Without it the orphaned account is left in place.
func WithCompensation(remover AccountRemover) Option {
	return func(s *Service) {
		s.remover = remover
	}
}

// WithGuard rejects overlapping submissions for the same email.
func WithGuard(guard SubmissionGuard) Option {
	return func(s *Service) {
		s.guard = guard
	}
}

// WithTimeout bounds the whole remote sequence. Zero means no local limit.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

func WithProfileTable(table string) Option {
	return func(s *Service) {
		if table != "" {
			s.profileTable = table
		}
	}
}

// New constructs a Service. redirectTarget is the URL the verification email
// links back to.
func New(identity IdentityService, profiles ProfileStore, redirectTarget string, opts ...Option) *Service {
	s := &Service{
		identity:       identity,
		profiles:       profiles,
		redirectTarget: redirectTarget,
		profileTable:   DefaultProfileTable,
		logger:         slog.Default(),
		tracer:         otel.Tracer("signup/registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ registration.Submitter = (*Service)(nil)

// Submit runs create-account then insert-profile. Once started the sequence
// is not cancelled by the caller; only the configured timeout bounds it.
func (s *Service) Submit(ctx context.Context, in models.RegistrationInput) (*models.Account, error) {
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "registration.Submit")
	defer span.End()

	if verr := registration.Validate(in); verr != nil {
		s.incrementOutcome(metrics.OutcomeInvalidInput)
		span.SetStatus(codes.Error, verr.Message)
		return nil, verr
	}

	if s.guard != nil {
		release, err := s.guard.Acquire(ctx, strings.ToLower(in.Email))
		switch {
		case errors.Is(err, sentinel.ErrInFlight):
			s.incrementOutcome(metrics.OutcomeInFlight)
			span.SetStatus(codes.Error, "submission in flight")
			return nil, registration.ErrSubmissionInFlight
		case err != nil:
			s.logger.WarnContext(ctx, "submission guard unavailable, continuing without it",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		default:
			defer release()
		}
	}

	start := time.Now()
	defer s.observeSubmit(start)

	account, err := s.createAccount(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if account.UserID.IsNil() {
		span.SetAttributes(attribute.Bool("profile.skipped", true))
		s.logger.InfoContext(ctx, "identity service returned no user id, profile insert skipped",
			"email", email.Mask(in.Email),
			"request_id", requestcontext.RequestID(ctx),
		)
		s.incrementOutcome(metrics.OutcomeSuccess)
		s.logAudit(ctx, audit.EventRegistrationSucceeded,
			"email", in.Email,
			"decision", "created",
			"reason", "profile_skipped",
		)
		return account, nil
	}
	span.SetAttributes(attribute.String("user.id", account.UserID.String()))

	if err := s.insertProfile(ctx, account.UserID, in); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.incrementOutcome(metrics.OutcomeSuccess)
	s.logAudit(ctx, audit.EventRegistrationSucceeded,
		"user_id", account.UserID.String(),
		"email", in.Email,
		"decision", "created",
	)
	return account, nil
}

func (s *Service) createAccount(ctx context.Context, in models.RegistrationInput) (*models.Account, error) {
	account, err := s.identity.CreateAccount(ctx, models.CreateAccountRequest{
		Email:          in.Email,
		Password:       in.Password,
		Metadata:       models.AccountMetadata{Name: strings.TrimSpace(in.Name)},
		RedirectTarget: s.redirectTarget,
	})
	if err != nil {
		authErr := asAuthError(err)
		s.incrementOutcome(metrics.OutcomeAuthFailed)
		s.logger.WarnContext(ctx, "identity service rejected registration",
			"kind", string(authErr.Kind),
			"error", err,
			"email", email.Mask(in.Email),
			"request_id", requestcontext.RequestID(ctx),
		)
		s.logAudit(ctx, audit.EventRegistrationFailed,
			"email", in.Email,
			"decision", "rejected",
			"reason", string(authErr.Kind),
		)
		return nil, authErr
	}
	if account == nil {
		account = &models.Account{}
	}
	if account.Email == "" {
		account.Email = in.Email
	}
	return account, nil
}

func (s *Service) insertProfile(ctx context.Context, userID id.UserID, in models.RegistrationInput) error {
	record := models.ProfileRecord{
		ID:        userID,
		FullName:  strings.TrimSpace(in.Name),
		Email:     in.Email,
		CreatedAt: requestcontext.Now(ctx).UTC(),
	}
	err := s.profiles.Insert(ctx, s.profileTable, record)
	if err == nil {
		return nil
	}

	perr := asProfileWriteError(userID, err)
	s.incrementOutcome(metrics.OutcomeProfileFail)
	s.incrementOrphaned()
	s.logger.ErrorContext(ctx, "partial registration: identity account has no profile",
		"user_id", userID.String(),
		"table", s.profileTable,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.logAudit(ctx, audit.EventProfileOrphaned,
		"user_id", userID.String(),
		"email", in.Email,
		"decision", "orphaned",
		"reason", perr.Message,
	)
	s.compensate(ctx, userID, in.Email)
	return perr
}

// compensate removes the orphaned account when a remover is configured. A
// failed rollback is reported but does not change the error the caller sees.
func (s *Service) compensate(ctx context.Context, userID id.UserID, address string) {
	if s.remover == nil {
		return
	}
	if err := s.remover.DeleteAccount(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to roll back orphaned account",
			"user_id", userID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.logAudit(ctx, audit.EventAccountRollbackErr,
			"user_id", userID.String(),
			"email", address,
			"decision", "kept",
			"reason", err.Error(),
		)
		return
	}
	s.incrementRolledBack()
	s.logAudit(ctx, audit.EventAccountRolledBack,
		"user_id", userID.String(),
		"email", address,
		"decision", "deleted",
	)
}

func asAuthError(err error) *models.AuthError {
	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	if errors.Is(err, sentinel.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return models.NewAuthError(models.AuthUnavailable, "", err)
	}
	return models.NewAuthError(models.AuthRejected, "", err)
}

func asProfileWriteError(userID id.UserID, err error) *models.ProfileWriteError {
	var perr *models.ProfileWriteError
	if errors.As(err, &perr) {
		if perr.UserID.IsNil() {
			perr.UserID = userID
		}
		return perr
	}
	return models.NewProfileWriteError(userID, "", err)
}

// logAudit writes the event to the log and, when configured, to the audit
// publisher. Raw emails never leave this function unmasked.
func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	masked := email.Mask(attrs.ExtractString(attributes, "email"))
	logged := attrs.Without(attributes, "email")
	if masked != "" {
		logged = append(logged, "email", masked)
	}
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		logged = append(logged, "request_id", requestID)
	}
	args := append(logged, "event", string(event), "log_type", "audit")
	s.logger.InfoContext(ctx, string(event), args...)

	if s.auditPublisher == nil {
		return
	}
	var userID id.UserID
	if raw := attrs.ExtractString(attributes, "user_id"); raw != "" {
		userID, _ = id.ParseUserID(raw)
	}
	var deviceLabel string
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		deviceLabel = device.ParseUserAgent(ua)
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Category:  event.Category(),
		UserID:    userID,
		Action:    string(event),
		Decision:  attrs.ExtractString(attributes, "decision"),
		Reason:    attrs.ExtractString(attributes, "reason"),
		Email:     masked,
		RequestID: requestID,
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    deviceLabel,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"error", err,
			"request_id", requestID,
		)
	}
}

func (s *Service) incrementOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementOutcome(outcome)
	}
}

func (s *Service) incrementOrphaned() {
	if s.metrics != nil {
		s.metrics.IncrementOrphaned()
	}
}

func (s *Service) incrementRolledBack() {
	if s.metrics != nil {
		s.metrics.IncrementRolledBack()
	}
}

func (s *Service) observeSubmit(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSubmit(start)
	}
}
