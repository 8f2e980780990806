package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/audit"
	"qualify/pkg/platform/httputil"
	"qualify/pkg/platform/middleware/auth"
	"qualify/pkg/requestcontext"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditReader is the read side of the audit store.
type AuditReader interface {
	ListByRecord(ctx context.Context, recordID id.RecordID) ([]audit.Entry, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]audit.Entry, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// AuditHandler lets admin and QA read the trail. There is no write route.
type AuditHandler struct {
	reader AuditReader
	logger *slog.Logger
}

func NewAuditHandler(reader AuditReader, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{reader: reader, logger: logger}
}

func (h *AuditHandler) Register(r chi.Router) {
	r.With(auth.RequireRole(h.logger, id.RoleAdmin, id.RoleQA)).Get("/admin/audit", h.handleList)
}

type AuditResponse struct {
	Entries []audit.Envelope `json:"entries"`
}

// handleList filters by record_id or user_id; with neither it returns the
// most recent entries. record_id wins when both are given.
func (h *AuditHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	limit := defaultAuditLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxAuditLimit)
	}

	var (
		entries []audit.Entry
		err     error
	)
	switch {
	case q.Get("record_id") != "":
		recordID, perr := id.ParseRecordID(q.Get("record_id"))
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		entries, err = h.reader.ListByRecord(ctx, recordID)
	case q.Get("user_id") != "":
		userID, perr := id.ParseUserID(q.Get("user_id"))
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		entries, err = h.reader.ListByUser(ctx, userID)
	default:
		entries, err = h.reader.ListRecent(ctx, limit)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read audit trail",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail"))
		return
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]audit.Envelope, 0, len(entries))
	for _, e := range entries {
		env, err := audit.ToEnvelope(e)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to encode audit entry",
				"request_id", requestcontext.RequestID(ctx),
				"entry_id", e.ID.String(),
				"error", err,
			)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit entry"))
			return
		}
		out = append(out, env)
	}
	httputil.WriteJSON(w, http.StatusOK, &AuditResponse{Entries: out})
}
