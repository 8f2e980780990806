package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qualify/internal/assessment"
	"qualify/internal/records"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/httputil"
	"qualify/pkg/platform/middleware/auth"
	"qualify/pkg/requestcontext"
)

// Service is the record lifecycle as seen by HTTP callers.
type Service interface {
	ListForUser(ctx context.Context, userID id.UserID) ([]*records.Record, error)
	List(ctx context.Context) ([]*records.Record, error)
	Get(ctx context.Context, userID id.UserID, trainingID id.TrainingID) (*records.Record, error)
	GetByID(ctx context.Context, recordID id.RecordID) (*records.Record, error)
	Assign(ctx context.Context, req records.AssignRequest) (*records.Record, error)
	AdminUpdate(ctx context.Context, recordID id.RecordID, patch records.Patch) (*records.Record, error)
	Delete(ctx context.Context, recordID id.RecordID) error
	ViewDocument(ctx context.Context, trainingID id.TrainingID) (*records.DocumentView, error)
	Acknowledge(ctx context.Context, trainingID id.TrainingID) (*records.Record, error)
	StartAssessment(ctx context.Context, trainingID id.TrainingID) (*records.StartResult, error)
	SubmitAssessment(ctx context.Context, trainingID id.TrainingID, answers assessment.Answers) (*records.SubmitResult, error)
}

// Handler serves the trainee and administrative record endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a records Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the record routes. The router must already authenticate.
func (h *Handler) Register(r chi.Router) {
	r.Route("/me/records", func(r chi.Router) {
		r.Get("/", h.handleListMine)
		r.Post("/", h.handleSelfAssign)
		r.Get("/{trainingID}", h.handleGetMine)
		r.Post("/{trainingID}/view", h.handleView)
		r.Post("/{trainingID}/acknowledge", h.handleAcknowledge)
		r.Post("/{trainingID}/start", h.handleStart)
		r.Post("/{trainingID}/submit", h.handleSubmit)
	})

	r.Route("/admin/records", func(r chi.Router) {
		r.Use(auth.RequireRole(h.logger, id.RoleAdmin, id.RoleQA))
		r.Get("/", h.handleList)
		r.Post("/", h.handleAssign)
		r.Get("/{recordID}", h.handleGet)
		r.Patch("/{recordID}", h.handleUpdate)
		r.Delete("/{recordID}", h.handleDelete)
	})
}

// -----------------------------------------------------------------------------
// Trainee endpoints
// -----------------------------------------------------------------------------

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	all, err := h.service.ListForUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "list records", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRecords(all))
}

func (h *Handler) handleSelfAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SelfAssignRequest](w, r, h.logger)
	if !ok {
		return
	}
	rec, err := h.service.Assign(ctx, records.AssignRequest{
		UserID:     requestcontext.UserID(ctx),
		TrainingID: req.parsedTrainingID,
		Source:     records.SourceSelf,
	})
	if err != nil {
		h.fail(ctx, w, "self-assign training", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec))
}

func (h *Handler) handleGetMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trainingID, err := id.ParseTrainingID(chi.URLParam(r, "trainingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.Get(ctx, requestcontext.UserID(ctx), trainingID)
	if err != nil {
		h.fail(ctx, w, "get record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trainingID, err := id.ParseTrainingID(chi.URLParam(r, "trainingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.service.ViewDocument(ctx, trainingID)
	if err != nil {
		h.fail(ctx, w, "view document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &DocumentViewResponse{
		Record:      FromRecord(view.Record),
		DocumentURL: view.DocumentURL,
	})
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trainingID, err := id.ParseTrainingID(chi.URLParam(r, "trainingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.Acknowledge(ctx, trainingID)
	if err != nil {
		h.fail(ctx, w, "acknowledge document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trainingID, err := id.ParseTrainingID(chi.URLParam(r, "trainingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.StartAssessment(ctx, trainingID)
	if err != nil {
		h.fail(ctx, w, "start assessment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &StartResponse{
		Record:     FromRecord(res.Record),
		Assessment: res.Assessment,
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trainingID, err := id.ParseTrainingID(chi.URLParam(r, "trainingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger)
	if !ok {
		return
	}
	res, err := h.service.SubmitAssessment(ctx, trainingID, req.ParsedAnswers())
	if err != nil {
		h.fail(ctx, w, "submit assessment", err)
		return
	}
	h.logger.InfoContext(ctx, "assessment submitted",
		"request_id", requestcontext.RequestID(ctx),
		"record_id", res.Record.ID.String(),
		"passed", res.Result.Passed,
		"status", res.Record.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, fromSubmit(res))
}

// -----------------------------------------------------------------------------
// Administrative endpoints
// -----------------------------------------------------------------------------

// handleList lists every record, or one user's when ?user_id= is given.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		all []*records.Record
		err error
	)
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, perr := id.ParseUserID(raw)
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		all, err = h.service.ListForUser(ctx, userID)
	} else {
		all, err = h.service.List(ctx)
	}
	if err != nil {
		h.fail(ctx, w, "list records", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRecords(all))
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AssignRequest](w, r, h.logger)
	if !ok {
		return
	}
	rec, err := h.service.Assign(ctx, records.AssignRequest{
		UserID:     req.parsedUserID,
		TrainingID: req.parsedTrainingID,
		DueDate:    req.DueDate,
		Source:     records.SourceManual,
	})
	if err != nil {
		h.fail(ctx, w, "assign training", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.GetByID(ctx, recordID)
	if err != nil {
		h.fail(ctx, w, "get record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[PatchRequest](w, r, h.logger)
	if !ok {
		return
	}
	rec, err := h.service.AdminUpdate(ctx, recordID, req.Patch())
	if err != nil {
		h.fail(ctx, w, "update record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, recordID); err != nil {
		h.fail(ctx, w, "delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail logs err at a level matching its code and writes the response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requestcontext.UserID(ctx).String(),
		"error", err,
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action, attrs...)
	} else {
		h.logger.WarnContext(ctx, "rejected: "+action, attrs...)
	}
	httputil.WriteError(w, err)
}
