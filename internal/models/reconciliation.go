package models

import "time"

// DriftKind classifies a disagreement between the attendance and progress ledgers.
type DriftKind string

const (
	DriftAttendedWithoutNotes   DriftKind = "attended_without_notes"
	DriftNotesWithoutAttendance DriftKind = "notes_without_attendance"
	DriftBeforeEnrollmentStart  DriftKind = "before_enrollment_start"
	DriftAggregateMismatch      DriftKind = "aggregate_mismatch"
	DriftDuplicateSession       DriftKind = "duplicate_session"
)

// DriftItem is a single reconciliation finding.
type DriftItem struct {
	Kind          DriftKind `json:"kind"`
	SessionNumber int       `json:"session_number,omitempty"`
	Detail        string    `json:"detail"`
}

// DriftReport is the outcome of reconciling one enrollment's ledgers.
type DriftReport struct {
	EnrollmentID string      `json:"enrollment_id"`
	Items        []DriftItem `json:"items"`
	GeneratedAt  time.Time   `json:"generated_at"`
	// Partial is set when a ledger could not be fetched and was treated as empty.
	Partial bool `json:"partial,omitempty"`
}

// Clean reports whether no drift was found.
func (r DriftReport) Clean() bool {
	return len(r.Items) == 0
}
