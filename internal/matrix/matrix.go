// Package matrix builds the compliance matrix: one row per active user, one
// column per training, each cell the record's current status.
package matrix

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"qualify/internal/records"
	"qualify/internal/training"
	"qualify/internal/users"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	audit "qualify/pkg/platform/audit"
	"qualify/pkg/requestcontext"
)

// NotAssigned marks a cell with no record.
const NotAssigned = "NOT_ASSIGNED"

type Directory interface {
	ListActive(ctx context.Context) ([]*users.User, error)
}

type Catalog interface {
	List(ctx context.Context) ([]*training.Training, error)
}

type Records interface {
	List(ctx context.Context) ([]*records.Record, error)
}

// Filter narrows the matrix. Empty slices mean everything.
type Filter struct {
	UserIDs     []id.UserID
	TrainingIDs []id.TrainingID
}

type Column struct {
	TrainingID id.TrainingID `json:"training_id"`
	Code       string        `json:"code"`
	Title      string        `json:"title"`
	Revision   int           `json:"revision"`
}

type Cell struct {
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	Score       *int       `json:"score,omitempty"`
}

type Row struct {
	UserID      id.UserID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Cells       []Cell    `json:"cells"`
}

type Matrix struct {
	Columns     []Column  `json:"columns"`
	Rows        []Row     `json:"rows"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Service struct {
	directory Directory
	catalog   Catalog
	records   Records
	auditor   audit.Recorder
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(directory Directory, catalog Catalog, recs Records, auditor audit.Recorder, opts ...Option) (*Service, error) {
	if directory == nil {
		return nil, errors.New("user directory is required")
	}
	if catalog == nil {
		return nil, errors.New("training catalog is required")
	}
	if recs == nil {
		return nil, errors.New("records service is required")
	}
	if auditor == nil {
		return nil, errors.New("audit recorder is required")
	}
	s := &Service{directory: directory, catalog: catalog, records: recs, auditor: auditor, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Grid returns the matrix and records MATRIX_ACCESSED.
func (s *Service) Grid(ctx context.Context, f Filter) (*Matrix, error) {
	m, err := s.build(ctx, f)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, s.entry(ctx, audit.MatrixAccessedMetadata{Users: len(m.Rows), Trainings: len(m.Columns)}))
	return m, nil
}

// ExportCSV writes the matrix as CSV, one status column per training, and
// records MATRIX_EXPORTED.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, f Filter) (int, error) {
	m, err := s.build(ctx, f)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	header := []string{"user_id", "email", "display_name"}
	for _, c := range m.Columns {
		header = append(header, c.Code+" r"+strconv.Itoa(c.Revision))
	}
	if err := cw.Write(header); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write matrix export")
	}
	for _, row := range m.Rows {
		line := []string{row.UserID.String(), row.Email, row.DisplayName}
		for _, cell := range row.Cells {
			line = append(line, cell.Status)
		}
		if err := cw.Write(line); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write matrix export")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write matrix export")
	}

	s.auditor.Record(ctx, s.entry(ctx, audit.MatrixExportedMetadata{Format: "csv", Rows: len(m.Rows)}))
	s.logger.InfoContext(ctx, "compliance matrix exported", "rows", len(m.Rows), "columns", len(m.Columns))
	return len(m.Rows), nil
}

func (s *Service) build(ctx context.Context, f Filter) (*Matrix, error) {
	if !requestcontext.Role(ctx).IsPrivileged() {
		return nil, dErrors.New(dErrors.CodeForbidden, "the compliance matrix requires a privileged role")
	}
	people, err := s.directory.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	trainings, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}

	people = filterUsers(people, f.UserIDs)
	trainings = filterTrainings(trainings, f.TrainingIDs)
	sort.Slice(people, func(i, j int) bool { return people[i].Email < people[j].Email })
	sort.Slice(trainings, func(i, j int) bool {
		if trainings[i].Code != trainings[j].Code {
			return trainings[i].Code < trainings[j].Code
		}
		return trainings[i].Revision < trainings[j].Revision
	})

	type key struct {
		user     id.UserID
		training id.TrainingID
	}
	byPair := make(map[key]*records.Record, len(all))
	for _, rec := range all {
		byPair[key{rec.UserID, rec.TrainingID}] = rec
	}

	m := &Matrix{
		Columns:     make([]Column, len(trainings)),
		Rows:        make([]Row, len(people)),
		GeneratedAt: requestcontext.Now(ctx),
	}
	for i, t := range trainings {
		m.Columns[i] = Column{TrainingID: t.ID, Code: t.Code, Title: t.Title, Revision: t.Revision}
	}
	for i, u := range people {
		row := Row{UserID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Cells: make([]Cell, len(trainings))}
		for j, t := range trainings {
			rec, ok := byPair[key{u.ID, t.ID}]
			if !ok {
				row.Cells[j] = Cell{Status: NotAssigned}
				continue
			}
			due := rec.DueDate
			row.Cells[j] = Cell{
				Status:      string(rec.Status),
				DueDate:     &due,
				CompletedAt: rec.CompletedAt,
				ExpiryDate:  rec.ExpiryDate,
				Score:       rec.Score,
			}
		}
		m.Rows[i] = row
	}
	return m, nil
}

func (s *Service) entry(ctx context.Context, meta audit.Metadata) audit.Entry {
	return audit.Entry{
		Type:     meta.EventType(),
		Source:   audit.SourceAdmin,
		ActorID:  requestcontext.UserID(ctx),
		Metadata: meta,
	}
}

func filterUsers(in []*users.User, ids []id.UserID) []*users.User {
	if len(ids) == 0 {
		return in
	}
	want := make(map[id.UserID]struct{}, len(ids))
	for _, u := range ids {
		want[u] = struct{}{}
	}
	out := in[:0]
	for _, u := range in {
		if _, ok := want[u.ID]; ok {
			out = append(out, u)
		}
	}
	return out
}

func filterTrainings(in []*training.Training, ids []id.TrainingID) []*training.Training {
	if len(ids) == 0 {
		return in
	}
	want := make(map[id.TrainingID]struct{}, len(ids))
	for _, t := range ids {
		want[t] = struct{}{}
	}
	out := in[:0]
	for _, t := range in {
		if _, ok := want[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out
}
