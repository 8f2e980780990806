package handler

import (
	dErrors "qualify/pkg/domain-errors"
)

// UpdateRequest is the body of POST /admin/governance/update. Password and
// justification are the signer's e-signature credentials.
type UpdateRequest struct {
	DefaultDueDays    int    `json:"default_due_days"`
	EscalationContact string `json:"escalation_contact"`
	Password          string `json:"password"`
	Justification     string `json:"justification"`
}

func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Password) > 256 || len(r.Justification) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "signature fields are too long")
	}
	return nil
}

// RollbackRequest is the body of POST /admin/governance/rollback.
type RollbackRequest struct {
	TargetVersion int    `json:"target_version"`
	Password      string `json:"password"`
	Justification string `json:"justification"`
}

func (r *RollbackRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.TargetVersion < 1 {
		return dErrors.New(dErrors.CodeValidation, "target_version must be a positive version number")
	}
	if len(r.Password) > 256 || len(r.Justification) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "signature fields are too long")
	}
	return nil
}
