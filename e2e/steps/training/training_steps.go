package training

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Remember(key, value string)
	Recall(key string) string
	RunID() string
}

// RegisterSteps registers training lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &trainingSteps{tc: tc}

	// Catalog
	ctx.Step(`^a training "([^"]*)" valid for (\d+) (days|months|years) exists$`, steps.trainingExists)
	ctx.Step(`^it has an assessment passing at (\d+)% with the question "([^"]*)" answered "([^"]*)"$`, steps.assessmentExists)
	ctx.Step(`^I assign the training to the trainee$`, steps.assignToTrainee)

	// Trainee workflow
	ctx.Step(`^I (view|acknowledge|start) the training$`, steps.recordAction)
	ctx.Step(`^I submit the answer "([^"]*)"$`, steps.submitAnswer)
	ctx.Step(`^I open my record for the training$`, steps.openMyRecord)

	// Audit
	ctx.Step(`^I read the audit trail of the record$`, steps.readAuditTrail)
	ctx.Step(`^the audit trail should include "([^"]*)"$`, steps.auditTrailIncludes)
}

type trainingSteps struct {
	tc TestContext
}

func (s *trainingSteps) expect(status int) error {
	if got := s.tc.GetLastResponseStatus(); got != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *trainingSteps) remember(key, field string) error {
	val, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Remember(key, fmt.Sprint(val))
	return nil
}

func (s *trainingSteps) trainingExists(ctx context.Context, code string, period int, unit string) error {
	err := s.tc.POST("/trainings", map[string]interface{}{
		"code":            code + "-" + s.tc.RunID(),
		"title":           code + " end-to-end",
		"document_url":    "https://docs.qualify.test/" + code + ".pdf",
		"validity_period": period,
		"validity_unit":   unit,
	})
	if err != nil {
		return err
	}
	if err := s.expect(201); err != nil {
		return err
	}
	return s.remember("training_id", "id")
}

func (s *trainingSteps) assessmentExists(ctx context.Context, pass int, prompt, answer string) error {
	err := s.tc.POST("/assessments", map[string]interface{}{
		"training_id":     s.tc.Recall("training_id"),
		"pass_percentage": pass,
		"max_attempts":    3,
		"questions": []map[string]interface{}{{
			"prompt":         prompt,
			"options":        []string{answer, "Nobody", "Anyone on shift", "The supplier"},
			"correct_answer": answer,
		}},
	})
	if err != nil {
		return err
	}
	return s.expect(201)
}

func (s *trainingSteps) assignToTrainee(ctx context.Context) error {
	traineeID := s.tc.Recall("trainee_id")
	if traineeID == "" {
		return fmt.Errorf("the trainee has not logged in yet")
	}
	err := s.tc.POST("/admin/records", map[string]interface{}{
		"user_id":     traineeID,
		"training_id": s.tc.Recall("training_id"),
	})
	if err != nil {
		return err
	}
	if err := s.expect(201); err != nil {
		return err
	}
	return s.remember("record_id", "id")
}

func (s *trainingSteps) recordAction(ctx context.Context, action string) error {
	if err := s.tc.POST("/me/records/"+s.tc.Recall("training_id")+"/"+action, nil); err != nil {
		return err
	}
	if action != "start" || s.tc.GetLastResponseStatus() != 200 {
		return nil
	}
	questions, err := s.tc.GetResponseField("assessment.questions")
	if err != nil {
		return err
	}
	list, ok := questions.([]interface{})
	if !ok || len(list) == 0 {
		return fmt.Errorf("start returned no questions")
	}
	first, _ := list[0].(map[string]interface{})
	s.tc.Remember("question_id", fmt.Sprint(first["id"]))
	return nil
}

func (s *trainingSteps) submitAnswer(ctx context.Context, answer string) error {
	return s.tc.POST("/me/records/"+s.tc.Recall("training_id")+"/submit", map[string]interface{}{
		"answers": map[string]string{s.tc.Recall("question_id"): answer},
	})
}

func (s *trainingSteps) openMyRecord(ctx context.Context) error {
	return s.tc.GET("/me/records/"+s.tc.Recall("training_id"), nil)
}

func (s *trainingSteps) readAuditTrail(ctx context.Context) error {
	return s.tc.GET("/admin/audit?record_id="+s.tc.Recall("record_id"), nil)
}

func (s *trainingSteps) auditTrailIncludes(ctx context.Context, eventType string) error {
	entries, err := s.tc.GetResponseField("entries")
	if err != nil {
		return err
	}
	list, _ := entries.([]interface{})
	for _, e := range list {
		if entry, ok := e.(map[string]interface{}); ok && entry["event_type"] == eventType {
			return nil
		}
	}
	return fmt.Errorf("audit trail has no %s entry: %s", eventType, s.tc.GetLastResponseBody())
}
