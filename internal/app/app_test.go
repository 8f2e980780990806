package app_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"qualify/internal/app"
	"qualify/internal/platform/config"
	"qualify/internal/users"
	id "qualify/pkg/domain"
	"qualify/pkg/platform/audit"
	"qualify/pkg/testutil"
)

const adminPassword = "correct horse battery staple"

// AppSuite drives the fully wired in-memory service graph over HTTP.
type AppSuite struct {
	suite.Suite
	app    *app.App
	router http.Handler

	adminToken   string
	traineeID    id.UserID
	traineeToken string
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) SetupTest() {
	cfg, err := config.LoadFrom(map[string]string{})
	s.Require().NoError(err)

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.app = a
	s.router = a.Router()

	_, err = a.Users.Create(ctx, users.CreateRequest{Email: "admin@plant.example", Role: id.RoleAdmin, Password: adminPassword})
	s.Require().NoError(err)
	trainee, err := a.Users.Create(ctx, users.CreateRequest{Email: "operator@plant.example", Role: id.RoleTrainee, Password: "operator long password"})
	s.Require().NoError(err)
	s.traineeID = trainee.ID

	s.adminToken = s.login("admin@plant.example", adminPassword)
	s.traineeToken = s.login("operator@plant.example", "operator long password")
}

func (s *AppSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

func (s *AppSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *AppSuite) login(email, password string) string {
	rr := s.do(http.MethodPost, "/auth/token", "", map[string]any{"email": email, "password": password})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	body := testutil.UnmarshalResponse[struct {
		AccessToken string `json:"access_token"`
	}](s.T(), rr)
	return body.AccessToken
}

// =============================================================================
// Trainee lifecycle
// =============================================================================

func (s *AppSuite) TestTrainingLifecycle() {
	rr := s.do(http.MethodPost, "/trainings", s.adminToken, map[string]any{
		"code":            "SOP-014",
		"title":           "Line clearance",
		"document_url":    "https://docs.plant.example/sop-014.pdf",
		"validity_period": 12,
		"validity_unit":   "months",
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	trainingID := testutil.UnmarshalResponse[struct {
		ID string `json:"id"`
	}](s.T(), rr).ID

	rr = s.do(http.MethodPost, "/assessments", s.adminToken, map[string]any{
		"training_id":     trainingID,
		"pass_percentage": 80,
		"max_attempts":    3,
		"questions": []map[string]any{{
			"prompt":         "Who signs off line clearance?",
			"options":        []string{"QA", "Operator", "Engineer", "Nobody"},
			"correct_answer": "QA",
		}},
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/admin/records", s.adminToken, map[string]any{
		"user_id":     s.traineeID.String(),
		"training_id": trainingID,
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	recordID := testutil.UnmarshalResponse[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](s.T(), rr)
	s.Equal("PENDING", recordID.Status)

	s.Run("start is refused before the document is acknowledged", func() {
		rr := s.do(http.MethodPost, "/me/records/"+trainingID+"/start", s.traineeToken, nil)
		s.Equal(http.StatusForbidden, rr.Code)
	})

	rr = s.do(http.MethodPost, "/me/records/"+trainingID+"/view", s.traineeToken, nil)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	rr = s.do(http.MethodPost, "/me/records/"+trainingID+"/acknowledge", s.traineeToken, nil)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/me/records/"+trainingID+"/start", s.traineeToken, nil)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.NotContains(rr.Body.String(), "correct_answer")
	started := testutil.UnmarshalResponse[struct {
		Record struct {
			Status string `json:"status"`
		} `json:"record"`
		Assessment struct {
			Questions []struct {
				ID string `json:"id"`
			} `json:"questions"`
		} `json:"assessment"`
	}](s.T(), rr)
	s.Equal("IN_PROGRESS", started.Record.Status)
	s.Require().Len(started.Assessment.Questions, 1)

	rr = s.do(http.MethodPost, "/me/records/"+trainingID+"/submit", s.traineeToken, map[string]any{
		"answers": map[string]string{started.Assessment.Questions[0].ID: "QA"},
	})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	submitted := testutil.UnmarshalResponse[struct {
		Passed bool   `json:"passed"`
		Score  int    `json:"score"`
		Grade  string `json:"grade"`
		Record struct {
			Status         string `json:"status"`
			CertificateURL string `json:"certificate_url"`
			ExpiryDate     string `json:"expiry_date"`
		} `json:"record"`
	}](s.T(), rr)
	s.True(submitted.Passed)
	s.Equal(100, submitted.Score)
	s.Equal("COMPLETED", submitted.Record.Status)
	s.True(strings.HasPrefix(submitted.Record.CertificateURL, "http://localhost:8080/certificates/"))
	s.NotEmpty(submitted.Record.ExpiryDate)

	s.Run("completed records refuse another attempt", func() {
		rr := s.do(http.MethodPost, "/me/records/"+trainingID+"/start", s.traineeToken, nil)
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("the trail tells the whole story", func() {
		rr := s.do(http.MethodGet, "/admin/audit?record_id="+recordID.ID, s.adminToken, nil)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		body := testutil.UnmarshalResponse[struct {
			Entries []audit.Envelope `json:"entries"`
		}](s.T(), rr)
		seen := map[audit.EventType]bool{}
		for _, e := range body.Entries {
			seen[e.Type] = true
		}
		for _, want := range []audit.EventType{
			audit.EventAssignTraining,
			audit.EventDocumentViewed,
			audit.EventDocumentAcknowledged,
			audit.EventAssessmentStarted,
			audit.EventAssessmentPassed,
			audit.EventCertificateGenerated,
		} {
			s.True(seen[want], "missing %s", want)
		}
	})

	s.Run("trainees cannot read the trail", func() {
		rr := s.do(http.MethodGet, "/admin/audit?record_id="+recordID.ID, s.traineeToken, nil)
		s.Equal(http.StatusForbidden, rr.Code)
	})
}

// =============================================================================
// Governance
// =============================================================================

func (s *AppSuite) TestGovernanceUpdateIsSigned() {
	s.Run("wrong password is refused", func() {
		rr := s.do(http.MethodPost, "/admin/governance/update", s.adminToken, map[string]any{
			"default_due_days": 14,
			"password":         "not my password",
			"justification":    "CAPA-201",
		})
		s.Equal(http.StatusPreconditionRequired, rr.Code)
	})

	s.Run("signed update becomes the active version", func() {
		rr := s.do(http.MethodPost, "/admin/governance/update", s.adminToken, map[string]any{
			"default_due_days": 14,
			"password":         adminPassword,
			"justification":    "CAPA-201",
		})
		s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

		rr = s.do(http.MethodGet, "/admin/governance", s.adminToken, nil)
		s.Require().Equal(http.StatusOK, rr.Code)
		active := testutil.UnmarshalResponse[struct {
			DefaultDueDays int    `json:"default_due_days"`
			SignatureID    string `json:"signature_id"`
		}](s.T(), rr)
		s.Equal(14, active.DefaultDueDays)
		s.NotEmpty(active.SignatureID)
	})
}

func (s *AppSuite) TestUnauthenticated() {
	rr := s.do(http.MethodGet, "/me/records", "", nil)
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, rr.Code)
}

func TestLoginIsThrottledPerClient(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"QUALIFY_LOGIN_RATE_LIMIT": "3"})
	if err != nil {
		t.Fatal(err)
	}
	a, err := app.Build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	router := a.Router()

	attempt := func() *httptest.ResponseRecorder {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token", map[string]any{"email": "nobody@plant.example", "password": "guess"})
		return testutil.DoRequest(router, req)
	}
	for i := 0; i < 3; i++ {
		if rr := attempt(); rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rr.Code)
		}
	}
	rr := attempt()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the budget, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header")
	}
}
