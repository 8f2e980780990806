package retraining_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"qualify/internal/assessment"
	assessmentstore "qualify/internal/assessment/store"
	"qualify/internal/certificate"
	certificatestore "qualify/internal/certificate/store"
	"qualify/internal/records"
	recordstore "qualify/internal/records/store"
	"qualify/internal/retraining"
	"qualify/internal/training"
	trainingstore "qualify/internal/training/store"
	id "qualify/pkg/domain"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/platform/audit/store/memory"
	"qualify/pkg/requestcontext"
	"qualify/pkg/testutil"
)

func TestRetrainingScenario(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(
		requestcontext.WithIdentity(context.Background(), id.NewUserID(), id.RoleAdmin), now)

	catalog, err := training.New(trainingstore.NewInMemoryStore())
	require.NoError(t, err)
	aStore := assessmentstore.NewInMemoryStore()
	assessments, err := assessment.New(aStore, aStore)
	require.NoError(t, err)
	certs, err := certificate.New(certificatestore.NewInMemoryStore(), certificate.LinkRenderer{BaseURL: "https://certs.example"})
	require.NoError(t, err)
	recStore := recordstore.NewInMemoryStore()
	auditLog := memory.NewInMemoryStore()
	recs, err := records.New(recStore, records.NewShardedTx(), assessments, certs, catalog, audit.NewTrail(auditLog))
	require.NoError(t, err)
	trigger, err := retraining.New(catalog, recs)
	require.NoError(t, err)
	catalog.AddRevisionListener(trigger)

	master, err := catalog.CreateMaster(ctx, training.CreateMasterRequest{Code: "SOP-020", Title: "Line Clearance"})
	require.NoError(t, err)
	rev1, err := catalog.Create(ctx, training.CreateRequest{Code: "SOP-020-R1", Title: "Line Clearance", MasterID: master.ID})
	require.NoError(t, err)

	trainee := id.NewUserID()
	completedAt := now.AddDate(0, -2, 0)
	require.NoError(t, recStore.Create(ctx, &records.Record{
		ID:               id.NewRecordID(),
		UserID:           trainee,
		TrainingID:       rev1.ID,
		Status:           records.StatusCompleted,
		AssignedAt:       completedAt.AddDate(0, 0, -10),
		DueDate:          completedAt.AddDate(0, 0, 20),
		CompletedAt:      &completedAt,
		AssignmentSource: records.SourceManual,
		Version:          1,
	}))

	testutil.Given(t, "a trainee who completed revision 1", func(t *testing.T) {
		var rev2 *training.Training

		testutil.When(t, "revision 2 is published under the same master", func(t *testing.T) {
			rev2, err = catalog.Create(ctx, training.CreateRequest{Code: "SOP-020-R2", Title: "Line Clearance", MasterID: master.ID})
			require.NoError(t, err)
			require.Equal(t, 2, rev2.Revision)
		})

		testutil.Then(t, "the trainee gets a retraining record due in 14 days", func(t *testing.T) {
			rec, err := recStore.FindByUserTraining(ctx, trainee, rev2.ID)
			require.NoError(t, err)
			require.Equal(t, records.StatusPending, rec.Status)
			require.Equal(t, records.SourceRetraining, rec.AssignmentSource)
			require.Equal(t, now.Add(retraining.DueIn), rec.DueDate)

			assigned, err := auditLog.ListByType(ctx, audit.EventAssignTraining)
			require.NoError(t, err)
			require.Len(t, assigned, 1)
			require.Equal(t, audit.SourceSystem, assigned[0].Source)
			require.Equal(t, rev1.ID.String(), assigned[0].Metadata.(audit.AssignMetadata).PriorTrainingID)
		})

		testutil.And(t, "propagating again assigns nobody", func(t *testing.T) {
			out, err := trigger.Propagate(ctx, rev2)
			require.NoError(t, err)
			require.Empty(t, out.Assigned)
			require.Equal(t, 1, out.Skipped)

			assigned, err := auditLog.ListByType(ctx, audit.EventAssignTraining)
			require.NoError(t, err)
			require.Len(t, assigned, 1)
		})
	})
}
