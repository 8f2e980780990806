package signature

import (
	"time"

	id "qualify/pkg/domain"
)

// Action names the governance-sensitive operation being signed.
type Action string

const (
	ActionGovernanceUpdate   Action = "GOVERNANCE_UPDATE"
	ActionGovernanceRollback Action = "GOVERNANCE_ROLLBACK"
)

// Signature is the immutable proof that a user re-entered their password
// and stated a justification for an action.
type Signature struct {
	ID            id.SignatureID
	ActorID       id.UserID
	Action        Action
	Justification string
	IP            string
	UserAgent     string
	SignedAt      time.Time
}

// Request carries the credentials presented for one signature.
type Request struct {
	Action        Action
	Password      string
	Justification string
}

// Lockout tracks failed signature attempts for one signer.
type Lockout struct {
	UserID       id.UserID
	FailureCount int
	WindowStart  time.Time
	LockedUntil  *time.Time
}

// IsLocked reports whether the signer is locked out at now.
func (l *Lockout) IsLocked(now time.Time) bool {
	return l != nil && l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// Policy bounds failed attempts: MaxFailures within Window locks the signer
// out for Lockout.
type Policy struct {
	MaxFailures int
	Window      time.Duration
	Lockout     time.Duration
}

// DefaultPolicy allows five failures in fifteen minutes.
func DefaultPolicy() Policy {
	return Policy{MaxFailures: 5, Window: 15 * time.Minute, Lockout: 30 * time.Minute}
}
