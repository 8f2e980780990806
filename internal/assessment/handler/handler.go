package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"qualify/internal/assessment"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/httputil"
	"qualify/pkg/platform/middleware/auth"
	"qualify/pkg/requestcontext"
)

// Service is the assessment authoring and read surface.
type Service interface {
	Create(ctx context.Context, req assessment.CreateRequest) (*assessment.Assessment, error)
	UpdateConfig(ctx context.Context, trainingID id.TrainingID, patch assessment.ConfigPatch) (*assessment.Assessment, error)
	ReplaceQuestions(ctx context.Context, trainingID id.TrainingID, inputs []assessment.QuestionInput, generatedByAI bool) (*assessment.Assessment, error)
	GetForTaker(ctx context.Context, trainingID id.TrainingID) (*assessment.TakerView, error)
	GetForReviewer(ctx context.Context, trainingID id.TrainingID) (*assessment.Assessment, error)
	Attempts(ctx context.Context, recordID id.RecordID) ([]*assessment.Attempt, error)
}

// Handler serves /assessments.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the assessment routes. Reading returns the answer key to
// privileged callers and the taker view to everyone else.
func (h *Handler) Register(r chi.Router) {
	r.Route("/assessments", func(r chi.Router) {
		r.Get("/{trainingID}", h.handleGet)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(h.logger, id.RoleAdmin, id.RoleQA))
			r.Post("/", h.handleCreate)
			r.Put("/{trainingID}/config", h.handleUpdateConfig)
			r.Put("/{trainingID}/questions", h.handleReplaceQuestions)
			r.Get("/attempts/{recordID}", h.handleAttempts)
		})
	})
}

// CreateRequest is the body of POST /assessments.
type CreateRequest struct {
	TrainingID     string                     `json:"training_id"`
	PassPercentage int                        `json:"pass_percentage"`
	MaxAttempts    int                        `json:"max_attempts"`
	GeneratedByAI  bool                       `json:"generated_by_ai,omitempty"`
	Questions      []assessment.QuestionInput `json:"questions"`

	parsedTrainingID id.TrainingID
}

func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Questions) > 200 {
		return dErrors.New(dErrors.CodeValidation, "an assessment holds at most 200 questions")
	}
	trainingID, err := id.ParseTrainingID(r.TrainingID)
	if err != nil {
		return err
	}
	r.parsedTrainingID = trainingID
	return nil
}

// QuestionsRequest is the body of PUT /assessments/{trainingID}/questions.
type QuestionsRequest struct {
	GeneratedByAI bool                       `json:"generated_by_ai,omitempty"`
	Questions     []assessment.QuestionInput `json:"questions"`
}

func (r *QuestionsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Questions) > 200 {
		return dErrors.New(dErrors.CodeValidation, "an assessment holds at most 200 questions")
	}
	return nil
}

// ConfigRequest is the body of PUT /assessments/{trainingID}/config.
type ConfigRequest struct {
	assessment.ConfigPatch
}

func (r *ConfigRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.PassPercentage == nil && r.MaxAttempts == nil {
		return dErrors.New(dErrors.CodeValidation, "pass_percentage or max_attempts is required")
	}
	return nil
}

// ReviewerQuestion includes the correct answer.
type ReviewerQuestion struct {
	ID            id.QuestionID `json:"id"`
	Prompt        string        `json:"prompt"`
	Options       []string      `json:"options"`
	CorrectAnswer string        `json:"correct_answer"`
}

// ReviewerResponse is the full assessment as seen by admins and QA.
type ReviewerResponse struct {
	ID             id.AssessmentID    `json:"id"`
	TrainingID     id.TrainingID      `json:"training_id"`
	PassPercentage int                `json:"pass_percentage"`
	MaxAttempts    int                `json:"max_attempts"`
	GeneratedByAI  bool               `json:"generated_by_ai"`
	Questions      []ReviewerQuestion `json:"questions"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func fromAssessment(a *assessment.Assessment) *ReviewerResponse {
	resp := &ReviewerResponse{
		ID:             a.ID,
		TrainingID:     a.TrainingID,
		PassPercentage: a.PassPercentage,
		MaxAttempts:    a.MaxAttempts,
		GeneratedByAI:  a.GeneratedByAI,
		Questions:      make([]ReviewerQuestion, 0, len(a.Questions)),
		UpdatedAt:      a.UpdatedAt,
	}
	for _, q := range a.Questions {
		resp.Questions = append(resp.Questions, ReviewerQuestion{
			ID:            q.ID,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	return resp
}

// AttemptResponse summarizes one graded submission.
type AttemptResponse struct {
	Number         int       `json:"number"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	Score          int       `json:"score"`
	Passed         bool      `json:"passed"`
	Grade          string    `json:"grade"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trainingID, err := id.ParseTrainingID(chi.URLParam(r, "trainingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if requestcontext.Role(ctx).IsPrivileged() {
		a, err := h.service.GetForReviewer(ctx, trainingID)
		if err != nil {
			h.fail(ctx, w, "load assessment", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, fromAssessment(a))
		return
	}
	view, err := h.service.GetForTaker(ctx, trainingID)
	if err != nil {
		h.fail(ctx, w, "load assessment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger)
	if !ok {
		return
	}
	a, err := h.service.Create(ctx, assessment.CreateRequest{
		TrainingID:     req.parsedTrainingID,
		PassPercentage: req.PassPercentage,
		MaxAttempts:    req.MaxAttempts,
		GeneratedByAI:  req.GeneratedByAI,
		Questions:      req.Questions,
	})
	if err != nil {
		h.fail(ctx, w, "create assessment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromAssessment(a))
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trainingID, err := id.ParseTrainingID(chi.URLParam(r, "trainingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConfigRequest](w, r, h.logger)
	if !ok {
		return
	}
	a, err := h.service.UpdateConfig(ctx, trainingID, req.ConfigPatch)
	if err != nil {
		h.fail(ctx, w, "update assessment config", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromAssessment(a))
}

func (h *Handler) handleReplaceQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trainingID, err := id.ParseTrainingID(chi.URLParam(r, "trainingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[QuestionsRequest](w, r, h.logger)
	if !ok {
		return
	}
	a, err := h.service.ReplaceQuestions(ctx, trainingID, req.Questions, req.GeneratedByAI)
	if err != nil {
		h.fail(ctx, w, "replace assessment questions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromAssessment(a))
}

func (h *Handler) handleAttempts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	attempts, err := h.service.Attempts(ctx, recordID)
	if err != nil {
		h.fail(ctx, w, "list attempts", err)
		return
	}
	out := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, AttemptResponse{
			Number:         a.Number,
			CorrectCount:   a.CorrectCount,
			TotalQuestions: a.TotalQuestions,
			Score:          a.Score,
			Passed:         a.Passed,
			Grade:          string(a.Grade),
			SubmittedAt:    a.SubmittedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"attempts": out})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, action+" rejected", "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
