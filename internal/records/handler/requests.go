package handler

import (
	"strings"
	"time"

	"qualify/internal/assessment"
	"qualify/internal/records"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
)

// AssignRequest is the body of POST /admin/records.
type AssignRequest struct {
	UserID     string     `json:"user_id"`
	TrainingID string     `json:"training_id"`
	DueDate    *time.Time `json:"due_date,omitempty"`

	parsedUserID     id.UserID
	parsedTrainingID id.TrainingID
}

func (r *AssignRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	userID, err := id.ParseUserID(strings.TrimSpace(r.UserID))
	if err != nil {
		return err
	}
	trainingID, err := id.ParseTrainingID(strings.TrimSpace(r.TrainingID))
	if err != nil {
		return err
	}
	r.parsedUserID = userID
	r.parsedTrainingID = trainingID
	return nil
}

// SelfAssignRequest is the body of POST /me/records.
type SelfAssignRequest struct {
	TrainingID string `json:"training_id"`

	parsedTrainingID id.TrainingID
}

func (r *SelfAssignRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	trainingID, err := id.ParseTrainingID(strings.TrimSpace(r.TrainingID))
	if err != nil {
		return err
	}
	r.parsedTrainingID = trainingID
	return nil
}

// PatchRequest is the body of PATCH /admin/records/{recordID}. The
// system-derived fields are accepted so the service can refuse them with a
// reason instead of the decoder rejecting them as unknown.
type PatchRequest struct {
	Status         *string    `json:"status,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	CertificateID  *string    `json:"certificate_id,omitempty"`
	CertificateURL *string    `json:"certificate_url,omitempty"`
}

func (r *PatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Status != nil {
		status := records.Status(strings.ToUpper(strings.TrimSpace(*r.Status)))
		if !status.Valid() {
			return dErrors.New(dErrors.CodeValidation, "unknown status: "+*r.Status)
		}
		normalized := string(status)
		r.Status = &normalized
	}
	return nil
}

// Patch converts the request to the service patch.
func (r *PatchRequest) Patch() records.Patch {
	p := records.Patch{
		DueDate:        r.DueDate,
		ExpiryDate:     r.ExpiryDate,
		CertificateID:  r.CertificateID,
		CertificateURL: r.CertificateURL,
	}
	if r.Status != nil {
		status := records.Status(*r.Status)
		p.Status = &status
	}
	return p
}

// SubmitRequest is the body of POST /me/records/{trainingID}/submit.
type SubmitRequest struct {
	Answers map[string]string `json:"answers"`

	parsed assessment.Answers
}

// Validate parses the answer keys. Keys that are not question ids are
// dropped; they could never match a question and grade as unanswered.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Answers) > 200 {
		return dErrors.New(dErrors.CodeValidation, "too many answers")
	}
	r.parsed = make(assessment.Answers, len(r.Answers))
	for key, choice := range r.Answers {
		questionID, err := id.ParseQuestionID(key)
		if err != nil {
			continue
		}
		r.parsed[questionID] = choice
	}
	return nil
}

// ParsedAnswers returns the answers keyed by question id.
func (r *SubmitRequest) ParsedAnswers() assessment.Answers {
	return r.parsed
}
