package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"qualify/internal/matrix"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/httputil"
	"qualify/pkg/platform/middleware/auth"
	"qualify/pkg/requestcontext"
)

// Service builds the training matrix.
type Service interface {
	Grid(ctx context.Context, f matrix.Filter) (*matrix.Matrix, error)
	ExportCSV(ctx context.Context, w io.Writer, f matrix.Filter) (int, error)
}

// Handler serves /admin/matrix.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/admin/matrix", func(r chi.Router) {
		r.Use(auth.RequireRole(h.logger, id.RoleAdmin, id.RoleQA))
		r.Get("/", h.handleGrid)
		r.Get("/export", h.handleExport)
	})
}

func (h *Handler) handleGrid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := h.service.Grid(ctx, f)
	if err != nil {
		h.fail(ctx, w, "build training matrix", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

// handleExport buffers the CSV so a failure midway still yields a JSON error
// instead of a truncated file.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var buf bytes.Buffer
	rows, err := h.service.ExportCSV(ctx, &buf, f)
	if err != nil {
		h.fail(ctx, w, "export training matrix", err)
		return
	}
	name := "training-matrix-" + requestcontext.Now(ctx).Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(ctx, "matrix export write failed", "request_id", requestcontext.RequestID(ctx), "error", err)
		return
	}
	h.logger.InfoContext(ctx, "training matrix exported",
		"request_id", requestcontext.RequestID(ctx),
		"rows", rows,
	)
}

// parseFilter reads repeated or comma-separated user_id and training_id
// query parameters.
func parseFilter(r *http.Request) (matrix.Filter, error) {
	var f matrix.Filter
	q := r.URL.Query()
	for _, raw := range splitValues(q["user_id"]) {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return matrix.Filter{}, err
		}
		f.UserIDs = append(f.UserIDs, userID)
	}
	for _, raw := range splitValues(q["training_id"]) {
		trainingID, err := id.ParseTrainingID(raw)
		if err != nil {
			return matrix.Filter{}, err
		}
		f.TrainingIDs = append(f.TrainingIDs, trainingID)
	}
	return f, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, action+" rejected", "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
