// Package retraining reassigns a training when a new revision supersedes
// one that users have already finished, failed out of, or let expire.
package retraining

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"qualify/internal/records"
	"qualify/internal/training"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/requestcontext"
)

// DueIn is how long a retrained user has to complete the new revision.
const DueIn = 14 * 24 * time.Hour

// Catalog resolves the revisions a new training supersedes.
type Catalog interface {
	PriorRevisions(ctx context.Context, t *training.Training) ([]*training.Training, error)
}

// Records reads existing records and creates retraining assignments.
type Records interface {
	ListByTrainings(ctx context.Context, trainingIDs []id.TrainingID) ([]*records.Record, error)
	Assign(ctx context.Context, req records.AssignRequest) (*records.Record, error)
}

// Outcome summarises one propagation.
type Outcome struct {
	Assigned []id.UserID
	Skipped  int
}

type Trigger struct {
	catalog Catalog
	records Records
	logger  *slog.Logger
}

type Option func(*Trigger)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Trigger) { t.logger = logger }
}

func New(catalog Catalog, recs Records, opts ...Option) (*Trigger, error) {
	if catalog == nil {
		return nil, errors.New("training catalog is required")
	}
	if recs == nil {
		return nil, errors.New("records service is required")
	}
	t := &Trigger{catalog: catalog, records: recs, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// RevisionCreated implements training.RevisionListener.
func (t *Trigger) RevisionCreated(ctx context.Context, revision *training.Training) error {
	_, err := t.Propagate(ctx, revision)
	return err
}

// Propagate assigns revision to every user holding a COMPLETED, EXPIRED or
// LOCKED record on a prior revision who has no record on revision yet.
// Running it twice assigns nobody the second time.
func (t *Trigger) Propagate(ctx context.Context, revision *training.Training) (*Outcome, error) {
	priors, err := t.catalog.PriorRevisions(ctx, revision)
	if err != nil {
		return nil, err
	}
	out := &Outcome{}
	if len(priors) == 0 {
		return out, nil
	}

	priorIDs := make([]id.TrainingID, len(priors))
	for i, p := range priors {
		priorIDs[i] = p.ID
	}
	held, err := t.records.ListByTrainings(ctx, priorIDs)
	if err != nil {
		return nil, err
	}
	current, err := t.records.ListByTrainings(ctx, []id.TrainingID{revision.ID})
	if err != nil {
		return nil, err
	}
	assigned := make(map[id.UserID]struct{}, len(current))
	for _, rec := range current {
		assigned[rec.UserID] = struct{}{}
	}

	due := requestcontext.Now(ctx).Add(DueIn)
	var errs []error
	for _, rec := range held {
		if !qualifies(rec.Status) {
			continue
		}
		if _, ok := assigned[rec.UserID]; ok {
			out.Skipped++
			continue
		}
		assigned[rec.UserID] = struct{}{}

		_, err := t.records.Assign(ctx, records.AssignRequest{
			UserID:          rec.UserID,
			TrainingID:      revision.ID,
			DueDate:         &due,
			Source:          records.SourceRetraining,
			PriorTrainingID: rec.TrainingID,
		})
		switch {
		case err == nil:
			out.Assigned = append(out.Assigned, rec.UserID)
		case dErrors.HasCode(err, dErrors.CodeConflict):
			out.Skipped++
		case dErrors.HasCode(err, dErrors.CodeValidation):
			out.Skipped++
			t.logger.WarnContext(ctx, "retraining skipped",
				"user_id", rec.UserID.String(),
				"training_id", revision.ID.String(),
				"error", err,
			)
		default:
			errs = append(errs, err)
		}
	}

	t.logger.InfoContext(ctx, "retraining propagated",
		"training_id", revision.ID.String(),
		"code", revision.Code,
		"prior_revisions", len(priors),
		"assigned", len(out.Assigned),
		"skipped", out.Skipped,
	)
	return out, errors.Join(errs...)
}

func qualifies(s records.Status) bool {
	return s == records.StatusCompleted || s == records.StatusExpired || s == records.StatusLocked
}
