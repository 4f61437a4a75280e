package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	POSTRaw(path, contentType, body string) error
	SetVar(name, value string)
	Expand(s string) string
}

// RegisterSteps registers registration-specific step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrationSteps{tc: tc}

	ctx.Step(`^a fresh email address$`, steps.freshEmail)
	ctx.Step(`^I register as "([^"]*)" with email "([^"]*)" and password "([^"]*)"$`, steps.register)
	ctx.Step(`^I register as "([^"]*)" with email "([^"]*)", password "([^"]*)" and confirmation "([^"]*)"$`, steps.registerWithConfirmation)
	ctx.Step(`^I validate the form with password "([^"]*)" and confirmation "([^"]*)"$`, steps.validatePasswords)
	ctx.Step(`^I send a plain text registration$`, steps.plainText)
}

type registrationSteps struct {
	tc TestContext
}

func (s *registrationSteps) freshEmail(ctx context.Context) error {
	s.tc.SetVar("email", fmt.Sprintf("e2e-%d@example.com", time.Now().UnixNano()))
	return nil
}

func (s *registrationSteps) register(ctx context.Context, name, email, password string) error {
	return s.registerWithConfirmation(ctx, name, email, password, password)
}

func (s *registrationSteps) registerWithConfirmation(ctx context.Context, name, email, password, confirm string) error {
	return s.tc.POST("/auth/register", map[string]any{
		"name":             name,
		"email":            s.tc.Expand(email),
		"password":         password,
		"confirm_password": confirm,
	})
}

func (s *registrationSteps) validatePasswords(ctx context.Context, password, confirm string) error {
	return s.tc.POST("/auth/register/validate", map[string]any{
		"password":         password,
		"confirm_password": confirm,
		"touched":          map[string]bool{"password": true, "confirm_password": true},
	})
}

func (s *registrationSteps) plainText(ctx context.Context) error {
	return s.tc.POSTRaw("/auth/register", "text/plain", "name=Ana")
}
