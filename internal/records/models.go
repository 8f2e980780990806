package records

import (
	"time"

	id "qualify/pkg/domain"
)

// Status is a training record's lifecycle state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusOverdue    Status = "OVERDUE"
	StatusLocked     Status = "LOCKED"
	StatusExpired    Status = "EXPIRED"
)

func (s Status) String() string { return string(s) }

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed,
		StatusOverdue, StatusLocked, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether the record can no longer be deleted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusLocked || s == StatusExpired
}

// Source records how a training was assigned.
type Source string

const (
	SourceManual     Source = "manual"
	SourceRetraining Source = "retraining"
	SourceSelf       Source = "self"
)

func (s Source) Valid() bool {
	return s == SourceManual || s == SourceRetraining || s == SourceSelf
}

// Denial reasons carried by access-denied errors and REJECTED_TRANSITION.
const (
	ReasonRecordNotFound          = "RECORD_NOT_FOUND"
	ReasonDocumentNotViewed       = "DOCUMENT_NOT_VIEWED"
	ReasonDocumentNotAcknowledged = "DOCUMENT_NOT_ACKNOWLEDGED"
	ReasonAssessmentNotStarted    = "ASSESSMENT_NOT_STARTED"
	ReasonAttemptsExhausted       = "ATTEMPTS_EXHAUSTED"
	ReasonRecordTerminal          = "RECORD_TERMINAL"
	ReasonSystemDerivedField      = "SYSTEM_DERIVED_FIELD"
	ReasonSystemDerivedStatus     = "SYSTEM_DERIVED_STATUS"
	ReasonIllegalTransition       = "ILLEGAL_TRANSITION"
	ReasonRoleRequired            = "ROLE_REQUIRED"
	ReasonNotOwner                = "NOT_OWNER"
)

// StatusReason is the denial reason for an action blocked by status s.
func StatusReason(s Status) string {
	return "STATUS_" + string(s)
}

// Record is one user's assignment to one training.
type Record struct {
	ID                     id.RecordID
	UserID                 id.UserID
	TrainingID             id.TrainingID
	Status                 Status
	AssignedAt             time.Time
	DueDate                time.Time
	StartedAt              *time.Time
	CompletedAt            *time.Time
	DocumentViewed         bool
	DocumentViewedAt       *time.Time
	DocumentAcknowledged   bool
	DocumentAcknowledgedAt *time.Time
	AssessmentAttempts     int
	LastAttemptAt          *time.Time
	Score                  *int
	Passed                 *bool
	ResultGrade            string
	CompletedLate          bool
	ExpiryDate             *time.Time
	CertificateID          string
	CertificateURL         string
	AssignmentSource       Source
	Version                int64
	UpdatedAt              time.Time
}

// AssignRequest assigns a training to a user. A nil DueDate uses the
// active governance default.
type AssignRequest struct {
	UserID          id.UserID
	TrainingID      id.TrainingID
	DueDate         *time.Time
	Source          Source
	PriorTrainingID id.TrainingID
}

// Patch is an administrative edit. Only DueDate and a reopening Status are
// ever applied; the remaining fields exist so that attempts to write
// system-derived values are detected and refused.
type Patch struct {
	Status         *Status    `json:"status,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	CertificateID  *string    `json:"certificate_id,omitempty"`
	CertificateURL *string    `json:"certificate_url,omitempty"`
}
