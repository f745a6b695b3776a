package models

import (
	"math"
	"time"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
	// EnrollmentStatusUnknown marks an unrecognised backend status. It allows no transition.
	EnrollmentStatusUnknown EnrollmentStatus = "UNKNOWN"
)

// Valid returns true when the status is a supported value.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusActive, EnrollmentStatusCompleted, EnrollmentStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is an allowed forward transition from s.
func (s EnrollmentStatus) CanTransitionTo(next EnrollmentStatus) bool {
	return s == EnrollmentStatusActive && (next == EnrollmentStatusCompleted || next == EnrollmentStatusCancelled)
}

// Terminal reports whether the enrollment can no longer change status.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusCompleted || s == EnrollmentStatusCancelled
}

// CourseSummary is the nested course returned with student enrollments.
type CourseSummary struct {
	ID           string `json:"course_id"`
	Title        string `json:"title"`
	InstructorID string `json:"instructor_id,omitempty"`
}

// Enrollment is the confirmed relationship between a student and a course.
type Enrollment struct {
	ID                     string           `json:"enrollment_id"`
	RequestID              string           `json:"request_id,omitempty"`
	StudentID              string           `json:"student_id,omitempty"`
	Status                 EnrollmentStatus `json:"status"`
	StartDate              time.Time        `json:"start_date"`
	EndDate                *time.Time       `json:"end_date,omitempty"`
	TargetSessions         int              `json:"target_sessions_to_complete"`
	MaxSessions            int              `json:"max_sessions_allowed"`
	ActualSessionsAttended int              `json:"actual_sessions_attended"`
	Notes                  *string          `json:"notes,omitempty"`
	Course                 *CourseSummary   `json:"course,omitempty"`
}

// Completion is the derived completion percentage of an enrollment.
// Misconfigured is set when the session target is not positive.
type Completion struct {
	Percent       int  `json:"percent"`
	Misconfigured bool `json:"misconfigured,omitempty"`
}

// ComputeCompletion returns min(100, round(100*actual/target)), never negative.
// A non-positive target yields 0 and the misconfiguration flag instead of dividing by zero.
func ComputeCompletion(e Enrollment) Completion {
	if e.TargetSessions <= 0 {
		return Completion{Percent: 0, Misconfigured: true}
	}
	if e.ActualSessionsAttended <= 0 {
		return Completion{Percent: 0}
	}
	pct := int(math.Round(100 * float64(e.ActualSessionsAttended) / float64(e.TargetSessions)))
	if pct > 100 {
		pct = 100
	}
	return Completion{Percent: pct}
}

// ClampSessions bounds a sessions-attended value to [0, max].
func ClampSessions(value, max int) int {
	if max < 0 {
		max = 0
	}
	switch {
	case value < 0:
		return 0
	case value > max:
		return max
	default:
		return value
	}
}

// EnrollmentPatch carries the fields accepted by PATCH /enrollments/{id}.
type EnrollmentPatch struct {
	Status  *EnrollmentStatus `json:"status,omitempty"`
	EndDate *time.Time        `json:"end_date,omitempty"`
	Notes   *string           `json:"notes,omitempty"`
}
