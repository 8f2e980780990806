package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"qualify/internal/governance"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/httputil"
	"qualify/pkg/platform/middleware/auth"
	"qualify/pkg/requestcontext"
)

// Service is the governance configuration store.
type Service interface {
	Active(ctx context.Context) (*governance.Config, error)
	History(ctx context.Context) ([]*governance.Config, error)
	Version(ctx context.Context, version int) (*governance.Config, error)
	Update(ctx context.Context, req governance.UpdateRequest) (*governance.Config, error)
	Rollback(ctx context.Context, req governance.RollbackRequest) (*governance.Config, error)
}

// Handler serves /admin/governance.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the governance routes. Reads are open to QA; writes are
// restricted to admins.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin/governance", func(r chi.Router) {
		r.Use(auth.RequireRole(h.logger, id.RoleAdmin, id.RoleQA))
		r.Get("/", h.handleActive)
		r.Get("/history", h.handleHistory)
		r.Get("/history/{version}", h.handleVersion)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(h.logger, id.RoleAdmin))
			r.Post("/update", h.handleUpdate)
			r.Post("/rollback", h.handleRollback)
		})
	})
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Active(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "load active governance config", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConfig(cfg))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.History(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "list governance history", err)
		return
	}
	resp := &HistoryResponse{Versions: make([]*ConfigResponse, 0, len(all))}
	for _, c := range all {
		resp.Versions = append(resp.Versions, FromConfig(c))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "version must be a positive integer"))
		return
	}
	cfg, err := h.service.Version(r.Context(), version)
	if err != nil {
		h.fail(r.Context(), w, "load governance version", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConfig(cfg))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger)
	if !ok {
		return
	}
	cfg, err := h.service.Update(ctx, governance.UpdateRequest{
		Settings: governance.Settings{
			DefaultDueDays:    req.DefaultDueDays,
			EscalationContact: req.EscalationContact,
		},
		Password:      req.Password,
		Justification: req.Justification,
	})
	if err != nil {
		h.fail(ctx, w, "update governance config", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromConfig(cfg))
}

func (h *Handler) handleRollback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RollbackRequest](w, r, h.logger)
	if !ok {
		return
	}
	cfg, err := h.service.Rollback(ctx, governance.RollbackRequest{
		TargetVersion: req.TargetVersion,
		Password:      req.Password,
		Justification: req.Justification,
	})
	if err != nil {
		h.fail(ctx, w, "roll back governance config", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromConfig(cfg))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, action+" rejected",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", requestcontext.UserID(ctx).String(),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
