package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"signup/internal/registration/models"
	dErrors "signup/pkg/domain-errors"
)

const (
	MsgSuccess         = "registration successful, check your email for verification"
	MsgUnexpected      = "an error occurred during registration"
	DefaultLoginTarget = "/login"

	SubmitLabel     = "Register"
	SubmittingLabel = "Processing..."
)

var (
	// ErrSubmissionInFlight rejects a submit while another one for the same
	// form (or, through a guard, the same email) has not finished.
	ErrSubmissionInFlight = dErrors.New(dErrors.CodeConflict, "a registration is already in progress")
	// ErrAlreadyRegistered rejects a submit after the form has succeeded.
	ErrAlreadyRegistered = errors.New("registration already completed")
)

//go:generate mockgen -source=form.go -destination=mocks/mocks.go -package=mocks Submitter

// Submitter performs the remote part of a registration.
type Submitter interface {
	Submit(ctx context.Context, in models.RegistrationInput) (*models.Account, error)
}

// View is a point-in-time copy of the form for rendering.
type View struct {
	Input       models.RegistrationInput
	Touched     models.TouchedFlags
	Phase       models.Phase
	Banner      string
	FieldErrors map[models.Field]string
	// VerificationNotice names the address the verification mail went to.
	VerificationNotice string
	SubmitDisabled     bool
	SubmitLabel        string
}

// Form holds one user's registration attempt. It is safe for concurrent use;
// the Submitting phase doubles as the lock against duplicate submits.
type Form struct {
	submitter   Submitter
	loginTarget string

	mu             sync.Mutex
	input          models.RegistrationInput
	touched        models.TouchedFlags
	phase          models.Phase
	banner         string
	submittedEmail string
}

type FormOption func(*Form)

// WithLoginTarget overrides the route offered to users who already have an
// account.
func WithLoginTarget(target string) FormOption {
	return func(f *Form) {
		if target != "" {
			f.loginTarget = target
		}
	}
}

func NewForm(submitter Submitter, opts ...FormOption) *Form {
	f := &Form{submitter: submitter, loginTarget: DefaultLoginTarget}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Change sets one field and leaves the others alone.
func (f *Form) Change(field models.Field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = f.input.With(field, value)
}

// Blur marks a field as touched so its required message may show.
func (f *Form) Blur(field models.Field) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = f.touched.With(field)
}

// LoginTarget is where the "already have an account" link points.
func (f *Form) LoginTarget() string {
	return f.loginTarget
}

// Submit validates the current input and, when it passes, hands it to the
// Submitter. The returned error is reserved for submits that were refused
// outright; remote failures come back as a Failure result.
func (f *Form) Submit(ctx context.Context) (models.SubmissionResult, error) {
	f.mu.Lock()
	switch f.phase {
	case models.PhaseSubmitting:
		f.mu.Unlock()
		return models.SubmissionResult{}, ErrSubmissionInFlight
	case models.PhaseSucceeded:
		f.mu.Unlock()
		return models.SubmissionResult{}, ErrAlreadyRegistered
	}

	f.banner = ""
	if verr := Validate(f.input); verr != nil {
		f.banner = verr.Message
		f.touched = models.AllTouched()
		f.mu.Unlock()
		return models.Failure(verr.Message), nil
	}

	in := f.input
	f.phase = models.PhaseSubmitting
	f.mu.Unlock()

	_, err := f.submitter.Submit(ctx, in)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		msg := failureMessage(err)
		f.phase = models.PhaseFailed
		f.banner = msg
		return models.Failure(msg), nil
	}

	f.phase = models.PhaseSucceeded
	f.banner = MsgSuccess
	f.submittedEmail = in.Email
	f.input = models.RegistrationInput{}
	f.touched = models.TouchedFlags{}
	return models.Success(), nil
}

// View returns a snapshot for rendering.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := View{
		Input:       f.input,
		Touched:     f.touched,
		Phase:       f.phase,
		Banner:      f.banner,
		FieldErrors: FieldErrors(f.input, f.touched),
		SubmitLabel: SubmitLabel,
	}
	if f.phase == models.PhaseSubmitting {
		v.SubmitDisabled = true
		v.SubmitLabel = SubmittingLabel
	}
	if f.phase == models.PhaseSucceeded {
		v.SubmitDisabled = true
		v.VerificationNotice = VerificationNotice(f.submittedEmail)
	}
	return v
}

// VerificationNotice is the post-success hint naming the inbox to check.
func VerificationNotice(address string) string {
	return fmt.Sprintf("we sent a verification email to %s, verify your email before logging in", address)
}

func failureMessage(err error) string {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		return MsgUnexpected
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgUnexpected
}
