package ratelimit

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path string, body interface{}, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
	RunID() string
}

// RegisterSteps registers login throttling step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I am attempting login for "([^"]*)" from IP "([^"]*)"$`, steps.attemptingLoginFromIP)
	ctx.Step(`^I fail authentication (\d+) times$`, steps.failAuthNTimes)
	ctx.Step(`^the (\d+)(?:st|nd|rd|th) attempt should return (\d+)$`, steps.nthAttemptShouldReturn)
	ctx.Step(`^the last attempt should carry rate limit headers$`, steps.lastAttemptHasHeaders)
}

type ratelimitSteps struct {
	tc TestContext
	// State for tracking across steps
	currentEmail string
	currentIP    string
	statuses     []int
	retryAfter   string
	limitHeader  string
}

// attemptingLoginFromIP pins the client address through X-Forwarded-For. The
// last octet is salted per run so reruns start with a fresh window.
func (s *ratelimitSteps) attemptingLoginFromIP(ctx context.Context, email, ip string) error {
	s.currentEmail = email
	s.currentIP = ip + "." + strconv.Itoa(int(hash(s.tc.RunID())%250)+1)
	s.statuses = nil
	return nil
}

func (s *ratelimitSteps) failAuthNTimes(ctx context.Context, times int) error {
	for range times {
		err := s.tc.Do("POST", "/auth/token", map[string]interface{}{
			"email":    s.currentEmail,
			"password": "definitely-not-the-password",
		}, map[string]string{"X-Forwarded-For": s.currentIP})
		if err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	s.retryAfter = s.tc.GetLastResponseHeader("Retry-After")
	s.limitHeader = s.tc.GetLastResponseHeader("X-RateLimit-Limit")
	return nil
}

func (s *ratelimitSteps) nthAttemptShouldReturn(ctx context.Context, n, expectedStatus int) error {
	if n < 1 || n > len(s.statuses) {
		return fmt.Errorf("only %d attempts were made", len(s.statuses))
	}
	if got := s.statuses[n-1]; got != expectedStatus {
		return fmt.Errorf("attempt %d: expected %d, got %d", n, expectedStatus, got)
	}
	return nil
}

func (s *ratelimitSteps) lastAttemptHasHeaders(ctx context.Context) error {
	if s.retryAfter == "" {
		return fmt.Errorf("Retry-After header missing")
	}
	if s.limitHeader == "" {
		return fmt.Errorf("X-RateLimit-Limit header missing")
	}
	return nil
}

func hash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
