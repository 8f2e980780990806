package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"qualify/internal/matrix"
	"qualify/internal/matrix/handler/mocks"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type MatrixHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  http.Handler
}

func TestMatrixHandlerSuite(t *testing.T) {
	suite.Run(t, new(MatrixHandlerSuite))
}

func (s *MatrixHandlerSuite) SetupTest() {
	s.service = mocks.NewMockService(gomock.NewController(s.T()))
	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	s.router = r
}

func (s *MatrixHandlerSuite) TestGrid() {
	userA, userB := id.NewUserID(), id.NewUserID()
	trainingID := id.NewTrainingID()

	s.Run("filters accept repeated and comma-separated ids", func() {
		s.service.EXPECT().Grid(gomock.Any(), matrix.Filter{
			UserIDs:     []id.UserID{userA, userB},
			TrainingIDs: []id.TrainingID{trainingID},
		}).Return(&matrix.Matrix{
			Columns: []matrix.Column{{TrainingID: trainingID, Code: "SOP-001", Revision: 1}},
			Rows: []matrix.Row{
				{UserID: userA, Email: "a@example.com", Cells: []matrix.Cell{{Status: "COMPLETED"}}},
				{UserID: userB, Email: "b@example.com", Cells: []matrix.Cell{{Status: "NOT_ASSIGNED"}}},
			},
		}, nil)

		path := "/admin/matrix?user_id=" + userA.String() + "," + userB.String() + "&training_id=" + trainingID.String()
		req := testutil.AsAdmin(testutil.NewJSONRequest(s.T(), http.MethodGet, path, nil), id.NewUserID())
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[matrix.Matrix](s.T(), rr)
		s.Require().Len(body.Rows, 2)
		s.Equal("NOT_ASSIGNED", body.Rows[1].Cells[0].Status)
	})

	s.Run("malformed filter id", func() {
		req := testutil.AsAdmin(testutil.NewJSONRequest(s.T(), http.MethodGet, "/admin/matrix?user_id=bad", nil), id.NewUserID())
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput), "")
	})

	s.Run("trainees are refused", func() {
		req := testutil.AsTrainee(testutil.NewJSONRequest(s.T(), http.MethodGet, "/admin/matrix", nil), id.NewUserID())
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden), "")
	})
}

func (s *MatrixHandlerSuite) TestExport() {
	s.Run("streams csv as an attachment", func() {
		s.service.EXPECT().ExportCSV(gomock.Any(), gomock.Any(), matrix.Filter{}).
			DoAndReturn(func(_ any, w io.Writer, _ matrix.Filter) (int, error) {
				_, err := io.WriteString(w, "user_id,email,display_name,SOP-001 r1\n")
				return 0, err
			})

		req := testutil.AsAdmin(testutil.NewJSONRequest(s.T(), http.MethodGet, "/admin/matrix/export", nil), id.NewUserID())
		req = testutil.AtTime(req, time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC))
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
		s.Equal("text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
		s.Contains(rr.Header().Get("Content-Disposition"), "training-matrix-20260630.csv")
		s.Equal("user_id,email,display_name,SOP-001 r1\n", rr.Body.String())
	})

	s.Run("failure yields a json error", func() {
		s.service.EXPECT().ExportCSV(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, w io.Writer, _ matrix.Filter) (int, error) {
				_, _ = io.WriteString(w, "user_id,")
				return 0, dErrors.New(dErrors.CodeInternal, "failed to list records")
			})

		req := testutil.AsAdmin(testutil.NewJSONRequest(s.T(), http.MethodGet, "/admin/matrix/export", nil), id.NewUserID())
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeInternal), "")
	})
}
