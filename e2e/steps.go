package e2e

import (
	"github.com/cucumber/godog"

	"qualify/e2e/steps/auth"
	"qualify/e2e/steps/common"
	"qualify/e2e/steps/governance"
	"qualify/e2e/steps/ratelimit"
	"qualify/e2e/steps/training"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (status and field assertions)
	common.RegisterSteps(ctx, tc)

	// Register authentication-specific steps
	auth.RegisterSteps(ctx, tc)

	ratelimit.RegisterSteps(ctx, tc)
	training.RegisterSteps(ctx, tc)
	governance.RegisterSteps(ctx, tc)
}
