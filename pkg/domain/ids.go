// Package domain holds the typed identifiers shared across qualify modules.
//
// Every identifier is a distinct named UUID type so a RecordID can never be
// passed where a TrainingID is expected. Parse functions are the trust
// boundary: they reject empty, malformed, and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "qualify/pkg/domain-errors"
)

type (
	UserID       uuid.UUID
	TrainingID   uuid.UUID
	MasterID     uuid.UUID
	RecordID     uuid.UUID
	AssessmentID uuid.UUID
	QuestionID   uuid.UUID
	AttemptID    uuid.UUID
	SignatureID  uuid.UUID
	EntryID      uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" format")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return parsed, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

func ParseTrainingID(s string) (TrainingID, error) {
	u, err := parseUUID(s, "training ID")
	return TrainingID(u), err
}

func ParseMasterID(s string) (MasterID, error) {
	u, err := parseUUID(s, "training master ID")
	return MasterID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record ID")
	return RecordID(u), err
}

func ParseAssessmentID(s string) (AssessmentID, error) {
	u, err := parseUUID(s, "assessment ID")
	return AssessmentID(u), err
}

func ParseSignatureID(s string) (SignatureID, error) {
	u, err := parseUUID(s, "signature ID")
	return SignatureID(u), err
}

// ParseQuestionID parses a submitted answer key.
func ParseQuestionID(s string) (QuestionID, error) {
	u, err := parseUUID(s, "question id")
	return QuestionID(u), err
}

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id TrainingID) String() string   { return uuid.UUID(id).String() }
func (id MasterID) String() string     { return uuid.UUID(id).String() }
func (id RecordID) String() string     { return uuid.UUID(id).String() }
func (id AssessmentID) String() string { return uuid.UUID(id).String() }
func (id QuestionID) String() string   { return uuid.UUID(id).String() }
func (id AttemptID) String() string    { return uuid.UUID(id).String() }
func (id SignatureID) String() string  { return uuid.UUID(id).String() }
func (id EntryID) String() string      { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id TrainingID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id MasterID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AssessmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SignatureID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs appear as plain strings in JSON payloads.
func (id UserID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id TrainingID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id MasterID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id RecordID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id AssessmentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id QuestionID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id AttemptID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id SignatureID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id EntryID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TrainingID) UnmarshalText(b []byte) error {
	parsed, err := ParseTrainingID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *MasterID) UnmarshalText(b []byte) error {
	parsed, err := ParseMasterID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *QuestionID) UnmarshalText(b []byte) error {
	parsed, err := ParseQuestionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RecordID) UnmarshalText(b []byte) error {
	parsed, err := ParseRecordID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AssessmentID) UnmarshalText(b []byte) error {
	parsed, err := ParseAssessmentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SignatureID) UnmarshalText(b []byte) error {
	parsed, err := ParseSignatureID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func NewUserID() UserID             { return UserID(uuid.New()) }
func NewTrainingID() TrainingID     { return TrainingID(uuid.New()) }
func NewMasterID() MasterID         { return MasterID(uuid.New()) }
func NewRecordID() RecordID         { return RecordID(uuid.New()) }
func NewAssessmentID() AssessmentID { return AssessmentID(uuid.New()) }
func NewQuestionID() QuestionID     { return QuestionID(uuid.New()) }
func NewAttemptID() AttemptID       { return AttemptID(uuid.New()) }
func NewSignatureID() SignatureID   { return SignatureID(uuid.New()) }
func NewEntryID() EntryID           { return EntryID(uuid.New()) }
