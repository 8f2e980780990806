package handler

import (
	"time"

	"qualify/internal/assessment"
	"qualify/internal/records"
	id "qualify/pkg/domain"
)

// RecordResponse is the JSON form of a training record.
type RecordResponse struct {
	ID                     id.RecordID   `json:"id"`
	UserID                 id.UserID     `json:"user_id"`
	TrainingID             id.TrainingID `json:"training_id"`
	Status                 string        `json:"status"`
	AssignedAt             time.Time     `json:"assigned_at"`
	DueDate                time.Time     `json:"due_date"`
	StartedAt              *time.Time    `json:"started_at,omitempty"`
	CompletedAt            *time.Time    `json:"completed_at,omitempty"`
	DocumentViewed         bool          `json:"document_viewed"`
	DocumentViewedAt       *time.Time    `json:"document_viewed_at,omitempty"`
	DocumentAcknowledged   bool          `json:"document_acknowledged"`
	DocumentAcknowledgedAt *time.Time    `json:"document_acknowledged_at,omitempty"`
	AssessmentAttempts     int           `json:"assessment_attempts"`
	LastAttemptAt          *time.Time    `json:"last_attempt_at,omitempty"`
	Score                  *int          `json:"score,omitempty"`
	Passed                 *bool         `json:"passed,omitempty"`
	ResultGrade            string        `json:"result_grade,omitempty"`
	CompletedLate          bool          `json:"completed_late"`
	ExpiryDate             *time.Time    `json:"expiry_date,omitempty"`
	CertificateID          string        `json:"certificate_id,omitempty"`
	CertificateURL         string        `json:"certificate_url,omitempty"`
	AssignmentSource       string        `json:"assignment_source"`
}

// FromRecord converts a domain record to its response form.
func FromRecord(r *records.Record) *RecordResponse {
	return &RecordResponse{
		ID:                     r.ID,
		UserID:                 r.UserID,
		TrainingID:             r.TrainingID,
		Status:                 string(r.Status),
		AssignedAt:             r.AssignedAt,
		DueDate:                r.DueDate,
		StartedAt:              r.StartedAt,
		CompletedAt:            r.CompletedAt,
		DocumentViewed:         r.DocumentViewed,
		DocumentViewedAt:       r.DocumentViewedAt,
		DocumentAcknowledged:   r.DocumentAcknowledged,
		DocumentAcknowledgedAt: r.DocumentAcknowledgedAt,
		AssessmentAttempts:     r.AssessmentAttempts,
		LastAttemptAt:          r.LastAttemptAt,
		Score:                  r.Score,
		Passed:                 r.Passed,
		ResultGrade:            r.ResultGrade,
		CompletedLate:          r.CompletedLate,
		ExpiryDate:             r.ExpiryDate,
		CertificateID:          r.CertificateID,
		CertificateURL:         r.CertificateURL,
		AssignmentSource:       string(r.AssignmentSource),
	}
}

// RecordListResponse wraps a list of records.
type RecordListResponse struct {
	Records []*RecordResponse `json:"records"`
}

func fromRecords(all []*records.Record) *RecordListResponse {
	out := make([]*RecordResponse, 0, len(all))
	for _, r := range all {
		out = append(out, FromRecord(r))
	}
	return &RecordListResponse{Records: out}
}

// DocumentViewResponse is returned by POST .../view.
type DocumentViewResponse struct {
	Record      *RecordResponse `json:"record"`
	DocumentURL string          `json:"document_url"`
}

// StartResponse is returned by POST .../start.
type StartResponse struct {
	Record     *RecordResponse       `json:"record"`
	Assessment *assessment.TakerView `json:"assessment"`
}

// SubmitResponse is returned by POST .../submit.
type SubmitResponse struct {
	Record            *RecordResponse `json:"record"`
	AttemptNumber     int             `json:"attempt_number"`
	CorrectCount      int             `json:"correct_count"`
	TotalQuestions    int             `json:"total_questions"`
	Score             int             `json:"score"`
	Passed            bool            `json:"passed"`
	Grade             string          `json:"grade"`
	AttemptsRemaining int             `json:"attempts_remaining"`
}

func fromSubmit(res *records.SubmitResult) *SubmitResponse {
	resp := &SubmitResponse{
		Record:            FromRecord(res.Record),
		CorrectCount:      res.Result.CorrectCount,
		TotalQuestions:    res.Result.TotalQuestions,
		Score:             res.Result.Score,
		Passed:            res.Result.Passed,
		Grade:             string(res.Result.Grade),
		AttemptsRemaining: res.AttemptsRemaining,
	}
	if res.Attempt != nil {
		resp.AttemptNumber = res.Attempt.Number
	}
	return resp
}
