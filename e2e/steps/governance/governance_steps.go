package governance

import (
	"context"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	Credentials(role string) (string, string)
}

// RegisterSteps registers governance configuration step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &governanceSteps{tc: tc}

	ctx.Step(`^I update the default due days to (\d+) signing with password "([^"]*)" because "([^"]*)"$`, steps.updateWithPassword)
	ctx.Step(`^I update the default due days to (\d+) signing with my password because "([^"]*)"$`, steps.updateSigned)
	ctx.Step(`^I read the active governance configuration$`, steps.readActive)
	ctx.Step(`^I read the governance history$`, steps.readHistory)
}

type governanceSteps struct {
	tc TestContext
}

func (s *governanceSteps) updateWithPassword(ctx context.Context, days int, password, justification string) error {
	return s.tc.POST("/admin/governance/update", map[string]interface{}{
		"default_due_days": days,
		"password":         password,
		"justification":    justification,
	})
}

func (s *governanceSteps) updateSigned(ctx context.Context, days int, justification string) error {
	_, password := s.tc.Credentials("admin")
	return s.updateWithPassword(ctx, days, password, justification)
}

func (s *governanceSteps) readActive(ctx context.Context) error {
	return s.tc.GET("/admin/governance", nil)
}

func (s *governanceSteps) readHistory(ctx context.Context) error {
	return s.tc.GET("/admin/governance/history", nil)
}
