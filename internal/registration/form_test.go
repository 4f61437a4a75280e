package registration

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"signup/internal/registration/mocks"
	"signup/internal/registration/models"
	id "signup/pkg/domain"
	"signup/pkg/testutil"
)

type FormSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	submitter *mocks.MockSubmitter
	form      *Form
}

func TestFormSuite(t *testing.T) {
	suite.Run(t, new(FormSuite))
}

func (s *FormSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.submitter = mocks.NewMockSubmitter(s.ctrl)
	s.form = NewForm(s.submitter)
}

func (s *FormSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *FormSuite) fill(in models.RegistrationInput) {
	for _, f := range models.Fields {
		s.form.Change(f, in.Value(f))
	}
}

func (s *FormSuite) TestChangeUpdatesOnlyThatField() {
	s.form.Change(models.FieldName, "Ana")
	s.form.Change(models.FieldEmail, "ana@example.com")
	s.form.Change(models.FieldName, "Ana Maria")

	v := s.form.View()
	s.Equal(models.RegistrationInput{Name: "Ana Maria", Email: "ana@example.com"}, v.Input)
	s.Equal(models.PhaseIdle, v.Phase)
	s.Equal(SubmitLabel, v.SubmitLabel)
	s.False(v.SubmitDisabled)
}

func (s *FormSuite) TestBlurRevealsRequiredMessage() {
	s.Empty(s.form.View().FieldErrors)

	s.form.Blur(models.FieldEmail)

	want := map[models.Field]string{models.FieldEmail: MsgEmailRequired}
	if diff := cmp.Diff(want, s.form.View().FieldErrors); diff != "" {
		s.Failf("inline errors mismatch", "(-want +got):\n%s", diff)
	}
}

func (s *FormSuite) TestSubmit_AnaSucceeds() {
	in := validInput()
	s.fill(in)
	s.form.Blur(models.FieldName)

	s.submitter.EXPECT().
		Submit(gomock.Any(), in).
		Return(&models.Account{UserID: id.NewUserID(), Email: in.Email}, nil)

	result, err := s.form.Submit(context.Background())
	s.Require().NoError(err)
	s.True(result.Succeeded())

	v := s.form.View()
	s.Equal(models.PhaseSucceeded, v.Phase)
	s.Equal(MsgSuccess, v.Banner)
	s.Contains(v.VerificationNotice, "ana@example.com")
	s.Equal(models.RegistrationInput{}, v.Input, "fields are cleared")
	s.Equal(models.TouchedFlags{}, v.Touched)
	s.True(v.SubmitDisabled)
}

func (s *FormSuite) TestSubmit_ValidationFailureStaysLocal() {
	s.fill(models.RegistrationInput{Name: "Ana", Email: "ana@example"})

	result, err := s.form.Submit(context.Background())
	s.Require().NoError(err)
	s.False(result.Succeeded())
	s.Equal(MsgEmailFormat, result.Message())

	v := s.form.View()
	s.Equal(models.PhaseIdle, v.Phase, "validation failure never enters Submitting")
	s.Equal(MsgEmailFormat, v.Banner)
	s.Equal(models.AllTouched(), v.Touched)
	s.Equal(MsgPasswordRequired, v.FieldErrors[models.FieldPassword])
}

func (s *FormSuite) TestSubmit_DuplicateEmailKeepsFields() {
	in := validInput()
	s.fill(in)

	s.submitter.EXPECT().
		Submit(gomock.Any(), in).
		Return(nil, models.NewAuthError(models.AuthDuplicate, "User already registered", nil))

	result, err := s.form.Submit(context.Background())
	s.Require().NoError(err)
	s.Equal("User already registered", result.Message())

	v := s.form.View()
	s.Equal(models.PhaseFailed, v.Phase)
	s.Equal("User already registered", v.Banner)
	s.Equal(in, v.Input, "field values are retained")
	s.Empty(v.VerificationNotice)
}

func (s *FormSuite) TestSubmit_ProfileFailureSurfacesMessage() {
	s.fill(validInput())

	s.submitter.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		Return(nil, models.NewProfileWriteError(id.NewUserID(), "", nil))

	result, err := s.form.Submit(context.Background())
	s.Require().NoError(err)
	s.Equal(models.FallbackProfileMessage, result.Message())
	s.Equal(models.PhaseFailed, s.form.View().Phase)
}

func (s *FormSuite) TestSubmit_UnexpectedErrorUsesGenericMessage() {
	s.fill(validInput())

	s.submitter.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		Return(nil, context.DeadlineExceeded)

	result, err := s.form.Submit(context.Background())
	s.Require().NoError(err)
	s.Equal(MsgUnexpected, result.Message())
}

func (s *FormSuite) TestSubmit_ResubmitAfterFailureClearsBanner() {
	s.fill(validInput())

	gomock.InOrder(
		s.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).
			Return(nil, models.NewAuthError(models.AuthUnavailable, "", nil)),
		s.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).
			Return(&models.Account{Email: "ana@example.com"}, nil),
	)

	first, err := s.form.Submit(context.Background())
	s.Require().NoError(err)
	s.Equal(models.FallbackAuthMessage, first.Message())

	second, err := s.form.Submit(context.Background())
	s.Require().NoError(err)
	s.True(second.Succeeded())
	s.Equal(MsgSuccess, s.form.View().Banner)
}

func (s *FormSuite) TestSubmit_RejectedAfterSuccess() {
	s.fill(validInput())
	s.submitter.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(&models.Account{Email: "ana@example.com"}, nil)

	_, err := s.form.Submit(context.Background())
	s.Require().NoError(err)

	_, err = s.form.Submit(context.Background())
	s.ErrorIs(err, ErrAlreadyRegistered)
}

func (s *FormSuite) TestSubmit_SecondSubmitWhileInFlight() {
	s.fill(validInput())

	entered := make(chan struct{})
	release := make(chan struct{})
	s.submitter.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.RegistrationInput) (*models.Account, error) {
			close(entered)
			<-release
			return &models.Account{Email: "ana@example.com"}, nil
		}).
		Times(1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.form.Submit(context.Background())
	}()
	<-entered

	v := s.form.View()
	s.Equal(models.PhaseSubmitting, v.Phase)
	s.True(v.SubmitDisabled)
	s.Equal(SubmittingLabel, v.SubmitLabel)

	_, err := s.form.Submit(context.Background())
	s.ErrorIs(err, ErrSubmissionInFlight)

	close(release)
	wg.Wait()
	s.Equal(models.PhaseSucceeded, s.form.View().Phase)
}

func TestForm_LoginTarget(t *testing.T) {
	testutil.Given(t, "a default form", func(t *testing.T) {
		testutil.Then(t, "it links to /login", func(t *testing.T) {
			if got := NewForm(nil).LoginTarget(); got != DefaultLoginTarget {
				t.Fatalf("expected %q, got %q", DefaultLoginTarget, got)
			}
		})
	})
	testutil.Given(t, "a configured login route", func(t *testing.T) {
		testutil.Then(t, "it links there", func(t *testing.T) {
			form := NewForm(nil, WithLoginTarget("https://app.example.com/login"))
			if got := form.LoginTarget(); got != "https://app.example.com/login" {
				t.Fatalf("unexpected login target %q", got)
			}
		})
	})
}
