package auth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Credentials(role string) (string, string)
	SetIdentity(name, token string)
	Act(name string)
	Remember(key, value string)
	Recall(key string) string
}

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I am logged in as the (admin|qa|trainee)$`, steps.loggedInAs)
	ctx.Step(`^I act as the (admin|qa|trainee)$`, steps.actAs)
	ctx.Step(`^I request a token with email "([^"]*)" and password "([^"]*)"$`, steps.requestToken)
	ctx.Step(`^I request a token for the (admin|qa|trainee) with password "([^"]*)"$`, steps.requestTokenForRole)
	ctx.Step(`^I remember the error message$`, steps.rememberErrorMessage)
	ctx.Step(`^the error message should match the remembered one$`, steps.errorMessageShouldMatch)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) loggedInAs(ctx context.Context, role string) error {
	email, password := s.tc.Credentials(role)
	if err := s.requestToken(ctx, email, password); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("login as %s returned %d: %s", role, status, s.tc.GetLastResponseBody())
	}
	token, err := s.tc.GetResponseField("access_token")
	if err != nil {
		return err
	}
	userID, err := s.tc.GetResponseField("user_id")
	if err != nil {
		return err
	}
	s.tc.Remember(role+"_id", userID.(string))
	s.tc.SetIdentity(role, token.(string))
	return nil
}

func (s *authSteps) actAs(ctx context.Context, role string) error {
	if s.tc.Recall(role+"_id") == "" {
		return s.loggedInAs(ctx, role)
	}
	s.tc.Act(role)
	return nil
}

func (s *authSteps) requestToken(ctx context.Context, email, password string) error {
	return s.tc.POST("/auth/token", map[string]interface{}{
		"email":    email,
		"password": password,
	})
}

func (s *authSteps) requestTokenForRole(ctx context.Context, role, password string) error {
	email, _ := s.tc.Credentials(role)
	return s.requestToken(ctx, email, password)
}

func (s *authSteps) rememberErrorMessage(ctx context.Context) error {
	msg, err := s.tc.GetResponseField("error_description")
	if err != nil {
		return err
	}
	s.tc.Remember("error_description", fmt.Sprint(msg))
	return nil
}

func (s *authSteps) errorMessageShouldMatch(ctx context.Context) error {
	msg, err := s.tc.GetResponseField("error_description")
	if err != nil {
		return err
	}
	if want := s.tc.Recall("error_description"); fmt.Sprint(msg) != want {
		return fmt.Errorf("expected error message %q, got %q", want, msg)
	}
	return nil
}
