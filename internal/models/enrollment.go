package models

import "time"

// EnrollmentStatus enumerates the enrollment lifecycle.
type EnrollmentStatus string

const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"
	EnrollmentStatusApproved  EnrollmentStatus = "approved"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
)

// Live reports whether the status counts toward the one-live-enrollment
// invariant for a (member, class) pair.
func (s EnrollmentStatus) Live() bool {
	return s == EnrollmentStatusPending || s == EnrollmentStatusApproved
}

// Enrollment is a member's claim on a class offering.
type Enrollment struct {
	ID        int64            `json:"id"`
	MemberID  int64            `json:"member"`
	ClassID   int64            `json:"class"`
	Status    EnrollmentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_date"`
}

// EnrollmentDetail joins an enrollment with its class offering. Class is nil
// when the detail lookup failed; the raw enrollment is still usable.
type EnrollmentDetail struct {
	Enrollment Enrollment     `json:"enrollment"`
	Class      *ClassOffering `json:"class,omitempty"`
}
