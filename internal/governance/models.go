package governance

import (
	"strings"
	"time"

	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
)

const maxDueDays = 365

// Settings are the organisation-wide knobs a governance version carries.
type Settings struct {
	DefaultDueDays    int    `json:"default_due_days"`
	EscalationContact string `json:"escalation_contact"`
}

// DefaultSettings apply until the first version is written.
func DefaultSettings() Settings {
	return Settings{DefaultDueDays: 30}
}

func (s Settings) Validate() error {
	if s.DefaultDueDays < 1 || s.DefaultDueDays > maxDueDays {
		return dErrors.New(dErrors.CodeValidation, "default_due_days must be between 1 and 365")
	}
	if len(s.EscalationContact) > 320 {
		return dErrors.New(dErrors.CodeValidation, "escalation_contact is too long")
	}
	return nil
}

func (s Settings) normalized() Settings {
	s.EscalationContact = strings.TrimSpace(s.EscalationContact)
	return s
}

// Config is one immutable governance version. Exactly one version is
// active; an update or rollback appends a new version instead of editing
// or reactivating an old one.
type Config struct {
	Version        int
	Settings       Settings
	IsActive       bool
	CreatedBy      id.UserID
	SignatureID    id.SignatureID
	RolledBackFrom int
	CreatedAt      time.Time
}

// UpdateRequest carries new settings plus the signer's credentials.
type UpdateRequest struct {
	Settings      Settings
	Password      string
	Justification string
}

// RollbackRequest restores the settings of TargetVersion as a new version.
type RollbackRequest struct {
	TargetVersion int
	Password      string
	Justification string
}
