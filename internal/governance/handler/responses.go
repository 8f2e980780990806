package handler

import (
	"time"

	"qualify/internal/governance"
)

// ConfigResponse is one governance version.
type ConfigResponse struct {
	Version           int       `json:"version"`
	DefaultDueDays    int       `json:"default_due_days"`
	EscalationContact string    `json:"escalation_contact,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedBy         string    `json:"created_by,omitempty"`
	SignatureID       string    `json:"signature_id,omitempty"`
	RolledBackFrom    int       `json:"rolled_back_from,omitempty"`
	CreatedAt         time.Time `json:"created_at,omitzero"`
}

// FromConfig converts a governance version. Version 0 is the built-in
// default and carries no author or signature.
func FromConfig(c *governance.Config) *ConfigResponse {
	resp := &ConfigResponse{
		Version:           c.Version,
		DefaultDueDays:    c.Settings.DefaultDueDays,
		EscalationContact: c.Settings.EscalationContact,
		IsActive:          c.IsActive,
		RolledBackFrom:    c.RolledBackFrom,
		CreatedAt:         c.CreatedAt,
	}
	if !c.CreatedBy.IsNil() {
		resp.CreatedBy = c.CreatedBy.String()
	}
	if !c.SignatureID.IsNil() {
		resp.SignatureID = c.SignatureID.String()
	}
	return resp
}

// HistoryResponse lists versions newest first.
type HistoryResponse struct {
	Versions []*ConfigResponse `json:"versions"`
}
