package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "qualify/pkg/domain"
)

// Envelope is the wire form of an Entry, used for the outbox payload and
// the Kafka stream.
type Envelope struct {
	ID             string          `json:"id"`
	Type           EventType       `json:"event_type"`
	ActorID        string          `json:"actor_id,omitempty"`
	Source         Source          `json:"source"`
	UserID         string          `json:"user_id,omitempty"`
	TrainingID     string          `json:"training_id,omitempty"`
	RecordID       string          `json:"record_id,omitempty"`
	AssessmentID   string          `json:"assessment_id,omitempty"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	NewStatus      string          `json:"new_status,omitempty"`
	Metadata       json.RawMessage `json:"metadata"`
	Timestamp      time.Time       `json:"timestamp"`
	RequestID      string          `json:"request_id,omitempty"`
}

// OutboxMessage is one unpublished outbox row carrying an Envelope payload.
type OutboxMessage struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// ToEnvelope converts an entry to its wire form.
func ToEnvelope(e Entry) (Envelope, error) {
	meta, err := EncodeMetadata(e.Metadata)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:             e.ID.String(),
		Type:           e.Type,
		ActorID:        optional(uuid.UUID(e.ActorID)),
		Source:         e.Source,
		UserID:         optional(uuid.UUID(e.Subject.UserID)),
		TrainingID:     optional(uuid.UUID(e.Subject.TrainingID)),
		RecordID:       optional(uuid.UUID(e.Subject.RecordID)),
		AssessmentID:   optional(uuid.UUID(e.Subject.AssessmentID)),
		PreviousStatus: e.PreviousStatus,
		NewStatus:      e.NewStatus,
		Metadata:       meta,
		Timestamp:      e.Timestamp.UTC(),
		RequestID:      e.RequestID,
	}, nil
}

// Entry rebuilds the typed entry from its wire form.
func (env Envelope) Entry() (Entry, error) {
	meta, err := DecodeMetadata(env.Type, env.Metadata)
	if err != nil {
		return Entry{}, err
	}
	entryID, err := uuid.Parse(env.ID)
	if err != nil {
		return Entry{}, fmt.Errorf("parse entry id: %w", err)
	}
	return Entry{
		ID:      id.EntryID(entryID),
		Type:    env.Type,
		ActorID: id.UserID(parseOptional(env.ActorID)),
		Source:  env.Source,
		Subject: Subject{
			UserID:       id.UserID(parseOptional(env.UserID)),
			TrainingID:   id.TrainingID(parseOptional(env.TrainingID)),
			RecordID:     id.RecordID(parseOptional(env.RecordID)),
			AssessmentID: id.AssessmentID(parseOptional(env.AssessmentID)),
		},
		PreviousStatus: env.PreviousStatus,
		NewStatus:      env.NewStatus,
		Metadata:       meta,
		Timestamp:      env.Timestamp,
		RequestID:      env.RequestID,
	}, nil
}

func optional(u uuid.UUID) string {
	if u == uuid.Nil {
		return ""
	}
	return u.String()
}

func parseOptional(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return u
}
