package records

import "time"

// Derive returns the status rec should have at now. It is the single rule
// shared by the read path and the scheduler: past-due PENDING and
// IN_PROGRESS records are OVERDUE, and COMPLETED records past their expiry
// are EXPIRED. Only the scheduler persists EXPIRED.
func Derive(rec *Record, now time.Time) Status {
	switch rec.Status {
	case StatusPending, StatusInProgress:
		if now.After(rec.DueDate) {
			return StatusOverdue
		}
	case StatusCompleted:
		if rec.ExpiryDate != nil && now.After(*rec.ExpiryDate) {
			return StatusExpired
		}
	}
	return rec.Status
}

// blockingReason returns the denial reason when rec's status forbids
// starting or submitting an assessment, or "" when it does not.
func blockingReason(rec *Record) string {
	switch rec.Status {
	case StatusOverdue, StatusLocked, StatusCompleted, StatusExpired:
		return StatusReason(rec.Status)
	}
	return ""
}
