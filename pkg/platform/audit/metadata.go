package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metadata is the per-event payload. Each event type has exactly one
// concrete variant; Entry.Validate rejects mismatches.
type Metadata interface {
	EventType() EventType
}

type AssignMetadata struct {
	AssignmentSource string    `json:"assignment_source"`
	DueDate          time.Time `json:"due_date"`
	PriorTrainingID  string    `json:"prior_training_id,omitempty"`
}

type DocumentViewedMetadata struct {
	DocumentURL string `json:"document_url,omitempty"`
}

type DocumentAcknowledgedMetadata struct {
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}

type AssessmentStartedMetadata struct {
	AttemptNumber int `json:"attempt_number"`
}

type AssessmentSubmittedMetadata struct {
	AttemptID      string `json:"attempt_id"`
	AttemptNumber  int    `json:"attempt_number"`
	CorrectCount   int    `json:"correct_count"`
	TotalQuestions int    `json:"total_questions"`
	Score          int    `json:"score"`
}

type AssessmentPassedMetadata struct {
	AttemptNumber int    `json:"attempt_number"`
	Score         int    `json:"score"`
	Grade         string `json:"grade"`
}

type AssessmentFailedMetadata struct {
	AttemptNumber     int  `json:"attempt_number"`
	Score             int  `json:"score"`
	AttemptsRemaining int  `json:"attempts_remaining"`
	Locked            bool `json:"locked"`
}

type OverdueMetadata struct {
	DueDate time.Time `json:"due_date"`
	// Trigger is "read" for lazy evaluation and "sweep" for the scheduler.
	Trigger string `json:"trigger"`
}

type LateCompletionMetadata struct {
	DueDate     time.Time `json:"due_date"`
	CompletedAt time.Time `json:"completed_at"`
}

type CertificateGeneratedMetadata struct {
	CertificateID string     `json:"certificate_id"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	RenderFailed  bool       `json:"render_failed,omitempty"`
}

type ExpiredMetadata struct {
	ExpiryDate    time.Time `json:"expiry_date"`
	CertificateID string    `json:"certificate_id,omitempty"`
}

type MatrixAccessedMetadata struct {
	Users     int `json:"users"`
	Trainings int `json:"trainings"`
}

type MatrixExportedMetadata struct {
	Format string `json:"format"`
	Rows   int    `json:"rows"`
}

type AIUsedMetadata struct {
	Purpose       string `json:"purpose"`
	QuestionCount int    `json:"question_count"`
}

type StatusChangedMetadata struct {
	Reason string   `json:"reason"`
	Fields []string `json:"fields,omitempty"`
}

type RejectedTransitionMetadata struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type SignatureCapturedMetadata struct {
	SignatureID string `json:"signature_id"`
	Action      string `json:"action"`
}

type SignatureFailedMetadata struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type GovernanceUpdatedMetadata struct {
	Version     int    `json:"version"`
	SignatureID string `json:"signature_id"`
}

type GovernanceRolledBackMetadata struct {
	Version      int    `json:"version"`
	RestoredFrom int    `json:"restored_from"`
	SignatureID  string `json:"signature_id"`
}

func (AssignMetadata) EventType() EventType               { return EventAssignTraining }
func (DocumentViewedMetadata) EventType() EventType       { return EventDocumentViewed }
func (DocumentAcknowledgedMetadata) EventType() EventType { return EventDocumentAcknowledged }
func (AssessmentStartedMetadata) EventType() EventType    { return EventAssessmentStarted }
func (AssessmentSubmittedMetadata) EventType() EventType  { return EventAssessmentSubmitted }
func (AssessmentPassedMetadata) EventType() EventType     { return EventAssessmentPassed }
func (AssessmentFailedMetadata) EventType() EventType     { return EventAssessmentFailed }
func (OverdueMetadata) EventType() EventType              { return EventTrainingOverdue }
func (LateCompletionMetadata) EventType() EventType       { return EventLateCompletion }
func (CertificateGeneratedMetadata) EventType() EventType { return EventCertificateGenerated }
func (ExpiredMetadata) EventType() EventType              { return EventTrainingExpired }
func (MatrixAccessedMetadata) EventType() EventType       { return EventMatrixAccessed }
func (MatrixExportedMetadata) EventType() EventType       { return EventMatrixExported }
func (AIUsedMetadata) EventType() EventType               { return EventAIUsed }
func (StatusChangedMetadata) EventType() EventType        { return EventStatusChanged }
func (RejectedTransitionMetadata) EventType() EventType   { return EventRejectedTransition }
func (SignatureCapturedMetadata) EventType() EventType    { return EventSignatureCaptured }
func (SignatureFailedMetadata) EventType() EventType      { return EventSignatureFailed }
func (GovernanceUpdatedMetadata) EventType() EventType    { return EventGovernanceUpdated }
func (GovernanceRolledBackMetadata) EventType() EventType { return EventGovernanceRolledBack }

// metadataFactories is the source of truth for the event taxonomy.
var metadataFactories = map[EventType]func() Metadata{
	EventAssignTraining:       func() Metadata { return &AssignMetadata{} },
	EventDocumentViewed:       func() Metadata { return &DocumentViewedMetadata{} },
	EventDocumentAcknowledged: func() Metadata { return &DocumentAcknowledgedMetadata{} },
	EventAssessmentStarted:    func() Metadata { return &AssessmentStartedMetadata{} },
	EventAssessmentSubmitted:  func() Metadata { return &AssessmentSubmittedMetadata{} },
	EventAssessmentPassed:     func() Metadata { return &AssessmentPassedMetadata{} },
	EventAssessmentFailed:     func() Metadata { return &AssessmentFailedMetadata{} },
	EventTrainingOverdue:      func() Metadata { return &OverdueMetadata{} },
	EventLateCompletion:       func() Metadata { return &LateCompletionMetadata{} },
	EventCertificateGenerated: func() Metadata { return &CertificateGeneratedMetadata{} },
	EventTrainingExpired:      func() Metadata { return &ExpiredMetadata{} },
	EventMatrixAccessed:       func() Metadata { return &MatrixAccessedMetadata{} },
	EventMatrixExported:       func() Metadata { return &MatrixExportedMetadata{} },
	EventAIUsed:               func() Metadata { return &AIUsedMetadata{} },
	EventStatusChanged:        func() Metadata { return &StatusChangedMetadata{} },
	EventRejectedTransition:   func() Metadata { return &RejectedTransitionMetadata{} },
	EventSignatureCaptured:    func() Metadata { return &SignatureCapturedMetadata{} },
	EventSignatureFailed:      func() Metadata { return &SignatureFailedMetadata{} },
	EventGovernanceUpdated:    func() Metadata { return &GovernanceUpdatedMetadata{} },
	EventGovernanceRolledBack: func() Metadata { return &GovernanceRolledBackMetadata{} },
}

// EventTypes returns the full taxonomy.
func EventTypes() []EventType {
	out := make([]EventType, 0, len(metadataFactories))
	for t := range metadataFactories {
		out = append(out, t)
	}
	return out
}

// EncodeMetadata serializes a metadata variant for storage.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return nil, errMissingMetadata
	}
	return json.Marshal(m)
}

// DecodeMetadata rebuilds the variant for t from its stored JSON. The value
// returned is the non-pointer variant so it compares equal to what was recorded.
func DecodeMetadata(t EventType, raw []byte) (Metadata, error) {
	factory, ok := metadataFactories[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownType, t)
	}
	ptr := factory()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, ptr); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", t, err)
		}
	}
	return deref(ptr), nil
}

func deref(m Metadata) Metadata {
	switch v := m.(type) {
	case *AssignMetadata:
		return *v
	case *DocumentViewedMetadata:
		return *v
	case *DocumentAcknowledgedMetadata:
		return *v
	case *AssessmentStartedMetadata:
		return *v
	case *AssessmentSubmittedMetadata:
		return *v
	case *AssessmentPassedMetadata:
		return *v
	case *AssessmentFailedMetadata:
		return *v
	case *OverdueMetadata:
		return *v
	case *LateCompletionMetadata:
		return *v
	case *CertificateGeneratedMetadata:
		return *v
	case *ExpiredMetadata:
		return *v
	case *MatrixAccessedMetadata:
		return *v
	case *MatrixExportedMetadata:
		return *v
	case *AIUsedMetadata:
		return *v
	case *StatusChangedMetadata:
		return *v
	case *RejectedTransitionMetadata:
		return *v
	case *SignatureCapturedMetadata:
		return *v
	case *SignatureFailedMetadata:
		return *v
	case *GovernanceUpdatedMetadata:
		return *v
	case *GovernanceRolledBackMetadata:
		return *v
	default:
		return m
	}
}
