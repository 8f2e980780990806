package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"qualify/internal/training"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/httputil"
	"qualify/pkg/platform/middleware/auth"
	"qualify/pkg/requestcontext"
)

// Service is the training catalog.
type Service interface {
	CreateMaster(ctx context.Context, req training.CreateMasterRequest) (*training.Master, error)
	Create(ctx context.Context, req training.CreateRequest) (*training.Training, error)
	Get(ctx context.Context, trainingID id.TrainingID) (*training.Training, error)
	List(ctx context.Context) ([]*training.Training, error)
}

// Handler serves /trainings.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the catalog routes. Any authenticated caller may read;
// authoring needs a privileged role.
func (h *Handler) Register(r chi.Router) {
	r.Route("/trainings", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{trainingID}", h.handleGet)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(h.logger, id.RoleAdmin, id.RoleQA))
			r.Post("/", h.handleCreate)
			r.Post("/masters", h.handleCreateMaster)
		})
	})
}

// CreateMasterRequest is the body of POST /trainings/masters.
type CreateMasterRequest struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

func (r *CreateMasterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Code) > 64 || len(r.Title) > 256 {
		return dErrors.New(dErrors.CodeValidation, "code or title is too long")
	}
	return nil
}

// CreateRequest is the body of POST /trainings.
type CreateRequest struct {
	Code           string `json:"code"`
	Title          string `json:"title"`
	MasterID       string `json:"master_id,omitempty"`
	Revision       int    `json:"revision,omitempty"`
	DocumentURL    string `json:"document_url"`
	ValidityPeriod int    `json:"validity_period,omitempty"`
	ValidityUnit   string `json:"validity_unit,omitempty"`

	parsedMasterID id.MasterID
}

func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Code) > 64 || len(r.Title) > 256 || len(r.DocumentURL) > 2048 {
		return dErrors.New(dErrors.CodeValidation, "code, title or document_url is too long")
	}
	if r.Revision < 0 || r.ValidityPeriod < 0 {
		return dErrors.New(dErrors.CodeValidation, "revision and validity_period cannot be negative")
	}
	r.ValidityUnit = strings.ToLower(strings.TrimSpace(r.ValidityUnit))
	if master := strings.TrimSpace(r.MasterID); master != "" {
		masterID, err := id.ParseMasterID(master)
		if err != nil {
			return err
		}
		r.parsedMasterID = masterID
	}
	return nil
}

// TrainingResponse is the JSON form of a training revision.
type TrainingResponse struct {
	ID             id.TrainingID `json:"id"`
	Code           string        `json:"code"`
	Title          string        `json:"title"`
	MasterID       string        `json:"master_id,omitempty"`
	Revision       int           `json:"revision"`
	DocumentURL    string        `json:"document_url"`
	ValidityPeriod int           `json:"validity_period,omitempty"`
	ValidityUnit   string        `json:"validity_unit,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

func fromTraining(t *training.Training) *TrainingResponse {
	resp := &TrainingResponse{
		ID:             t.ID,
		Code:           t.Code,
		Title:          t.Title,
		Revision:       t.Revision,
		DocumentURL:    t.DocumentURL,
		ValidityPeriod: t.ValidityPeriod,
		ValidityUnit:   string(t.ValidityUnit),
		CreatedAt:      t.CreatedAt,
	}
	if t.HasMaster() {
		resp.MasterID = t.MasterID.String()
	}
	return resp
}

// MasterResponse is the JSON form of a training master.
type MasterResponse struct {
	ID        id.MasterID `json:"id"`
	Code      string      `json:"code"`
	Title     string      `json:"title"`
	CreatedAt time.Time   `json:"created_at"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "list trainings", err)
		return
	}
	out := make([]*TrainingResponse, 0, len(all))
	for _, t := range all {
		out = append(out, fromTraining(t))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"trainings": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	trainingID, err := id.ParseTrainingID(chi.URLParam(r, "trainingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.service.Get(r.Context(), trainingID)
	if err != nil {
		h.fail(r.Context(), w, "get training", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromTraining(t))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger)
	if !ok {
		return
	}
	t, err := h.service.Create(ctx, training.CreateRequest{
		Code:           req.Code,
		Title:          req.Title,
		MasterID:       req.parsedMasterID,
		Revision:       req.Revision,
		DocumentURL:    req.DocumentURL,
		ValidityPeriod: req.ValidityPeriod,
		ValidityUnit:   training.ValidityUnit(req.ValidityUnit),
	})
	if err != nil {
		h.fail(ctx, w, "create training", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromTraining(t))
}

func (h *Handler) handleCreateMaster(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateMasterRequest](w, r, h.logger)
	if !ok {
		return
	}
	m, err := h.service.CreateMaster(ctx, training.CreateMasterRequest{Code: req.Code, Title: req.Title})
	if err != nil {
		h.fail(ctx, w, "create training master", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &MasterResponse{
		ID:        m.ID,
		Code:      m.Code,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
	})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, action+" rejected", "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
