package training

import (
	"regexp"
	"strings"
	"time"

	id "qualify/pkg/domain"
)

// ValidityUnit scales a certificate validity period.
type ValidityUnit string

const (
	UnitDays   ValidityUnit = "days"
	UnitMonths ValidityUnit = "months"
	UnitYears  ValidityUnit = "years"
)

// Days returns the day factor for the unit: days 1, months 30, years 365.
func (u ValidityUnit) Days() (int, bool) {
	switch u {
	case UnitDays:
		return 1, true
	case UnitMonths:
		return 30, true
	case UnitYears:
		return 365, true
	default:
		return 0, false
	}
}

// Master groups the revisions of one training.
type Master struct {
	ID        id.MasterID
	Code      string
	Title     string
	CreatedAt time.Time
}

// Training is one revision of a training document plus its certificate validity.
type Training struct {
	ID             id.TrainingID
	Code           string
	Title          string
	MasterID       id.MasterID // zero for legacy trainings without a master
	Revision       int
	DocumentURL    string
	ValidityPeriod int // zero means certificates never expire
	ValidityUnit   ValidityUnit
	CreatedAt      time.Time
}

// HasMaster reports whether the training belongs to a master.
func (t *Training) HasMaster() bool {
	return !t.MasterID.IsNil()
}

// ExpiryFrom returns the certificate expiry for an issuance instant, or nil
// when the training has no validity period.
func (t *Training) ExpiryFrom(issuedAt time.Time) *time.Time {
	factor, ok := t.ValidityUnit.Days()
	if t.ValidityPeriod <= 0 || !ok {
		return nil
	}
	expiry := issuedAt.Add(time.Duration(t.ValidityPeriod*factor) * 24 * time.Hour)
	return &expiry
}

var revisionSuffix = regexp.MustCompile(`(?i)[-_.](v|r|rev)\d+$`)

// BaseCode strips a trailing revision marker ("-v2", "-r3", "_rev4") so
// legacy trainings without a master can still be matched across revisions.
// The marker stays when the remainder carries no document number: "SOP-V2"
// is its own code, not revision 2 of "SOP".
func BaseCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	base := revisionSuffix.ReplaceAllString(code, "")
	if !strings.ContainsAny(base, "0123456789") {
		return code
	}
	return base
}

// CreateMasterRequest describes a new training master.
type CreateMasterRequest struct {
	Code  string
	Title string
}

// CreateRequest describes a new training or revision.
type CreateRequest struct {
	Code           string
	Title          string
	MasterID       id.MasterID
	Revision       int // zero picks the next revision under the master
	DocumentURL    string
	ValidityPeriod int
	ValidityUnit   ValidityUnit
}
