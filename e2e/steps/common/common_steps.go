package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetLastStatus() int
	GetLastHeader(name string) string
	GetLastBody() []byte
	GetResponseField(field string) (any, error)
	Expand(s string) string
}

// RegisterSteps registers generic request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should contain "([^"]*)"$`, steps.fieldShouldContain)
	ctx.Step(`^the response field "([^"]*)" should be present$`, steps.fieldShouldBePresent)
	ctx.Step(`^the response header "([^"]*)" should equal "([^"]*)"$`, steps.headerShouldEqual)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.GetLastStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.GetLastBody())
	}
	return nil
}

func (s *commonSteps) fieldString(field string) (string, error) {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, want string) error {
	got, err := s.fieldString(field)
	if err != nil {
		return err
	}
	if want = s.tc.Expand(want); got != want {
		return fmt.Errorf("field %q: expected %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldContain(ctx context.Context, field, want string) error {
	got, err := s.fieldString(field)
	if err != nil {
		return err
	}
	if want = s.tc.Expand(want); !strings.Contains(got, want) {
		return fmt.Errorf("field %q: expected %q to contain %q", field, got, want)
	}
	return nil
}

func (s *commonSteps) fieldShouldBePresent(ctx context.Context, field string) error {
	_, err := s.tc.GetResponseField(field)
	return err
}

func (s *commonSteps) headerShouldEqual(ctx context.Context, name, want string) error {
	if got := s.tc.GetLastHeader(name); got != want {
		return fmt.Errorf("header %q: expected %q, got %q", name, want, got)
	}
	return nil
}
