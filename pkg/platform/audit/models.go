package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	id "qualify/pkg/domain"
)

// EventType enumerates every auditable transition. Values are persisted and
// must never be renamed.
type EventType string

const (
	EventAssignTraining       EventType = "ASSIGN_TRAINING"
	EventDocumentViewed       EventType = "DOCUMENT_VIEWED"
	EventDocumentAcknowledged EventType = "DOCUMENT_ACKNOWLEDGED"
	EventAssessmentStarted    EventType = "ASSESSMENT_STARTED"
	EventAssessmentSubmitted  EventType = "ASSESSMENT_SUBMITTED"
	EventAssessmentPassed     EventType = "ASSESSMENT_PASSED"
	EventAssessmentFailed     EventType = "ASSESSMENT_FAILED"
	EventTrainingOverdue      EventType = "TRAINING_OVERDUE"
	EventLateCompletion       EventType = "LATE_COMPLETION"
	EventCertificateGenerated EventType = "CERTIFICATE_GENERATED"
	EventTrainingExpired      EventType = "TRAINING_EXPIRED"
	EventMatrixAccessed       EventType = "MATRIX_ACCESSED"
	EventMatrixExported       EventType = "MATRIX_EXPORTED"
	EventAIUsed               EventType = "AI_USED"
	EventStatusChanged        EventType = "STATUS_CHANGED"
	EventRejectedTransition   EventType = "REJECTED_TRANSITION"
	EventSignatureCaptured    EventType = "SIGNATURE_CAPTURED"
	EventSignatureFailed      EventType = "SIGNATURE_FAILED"
	EventGovernanceUpdated    EventType = "GOVERNANCE_CONFIG_UPDATED"
	EventGovernanceRolledBack EventType = "GOVERNANCE_CONFIG_ROLLED_BACK"
)

// Valid reports whether t is part of the taxonomy.
func (t EventType) Valid() bool {
	_, ok := metadataFactories[t]
	return ok
}

func (t EventType) String() string { return string(t) }

// Source identifies who initiated the audited action.
type Source string

const (
	SourceUser   Source = "user"
	SourceAdmin  Source = "admin"
	SourceSystem Source = "system"
)

func (s Source) Valid() bool {
	return s == SourceUser || s == SourceAdmin || s == SourceSystem
}

// Subject references the entities an entry is about. Zero IDs are absent.
type Subject struct {
	UserID       id.UserID
	TrainingID   id.TrainingID
	RecordID     id.RecordID
	AssessmentID id.AssessmentID
}

// Entry is one immutable audit log row.
type Entry struct {
	ID             id.EntryID
	Type           EventType
	ActorID        id.UserID
	Source         Source
	Subject        Subject
	PreviousStatus string
	NewStatus      string
	Metadata       Metadata
	Timestamp      time.Time
	RequestID      string
}

var (
	errUnknownType      = errors.New("unknown audit event type")
	errUnknownSource    = errors.New("unknown audit source")
	errMissingMetadata  = errors.New("audit metadata is required")
	errMissingTimestamp = errors.New("audit timestamp is required")
)

// Validate checks the entry is well formed, including that the metadata
// variant belongs to the entry's event type.
func (e Entry) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", errUnknownType, e.Type)
	}
	if !e.Source.Valid() {
		return fmt.Errorf("%w: %q", errUnknownSource, e.Source)
	}
	if e.Metadata == nil {
		return errMissingMetadata
	}
	if e.Metadata.EventType() != e.Type {
		return fmt.Errorf("metadata %s does not match event type %s", e.Metadata.EventType(), e.Type)
	}
	if e.Timestamp.IsZero() {
		return errMissingTimestamp
	}
	return nil
}

// Store persists audit entries. Implementations must reject Update and
// Delete before touching storage.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByRecord(ctx context.Context, recordID id.RecordID) ([]Entry, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
	Update(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, entryID id.EntryID) error
}

// Recorder is the write side services depend on. Record never fails the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}
