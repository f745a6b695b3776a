package models

import "time"

// AttendanceStatus represents the presence status for a numbered session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// RequiresReason reports whether a reason for absence must accompany the status.
func (s AttendanceStatus) RequiresReason() bool {
	return s == AttendanceAbsent || s == AttendanceLate || s == AttendanceExcused
}

// Attended reports whether the student was at the session.
func (s AttendanceStatus) Attended() bool {
	return s == AttendancePresent || s == AttendanceLate
}

// AttendanceRecord is the presence status of one numbered session.
type AttendanceRecord struct {
	ID               string           `json:"attendance_id"`
	EnrollmentID     string           `json:"enrollment_id"`
	SessionNumber    int              `json:"session_number"`
	Status           AttendanceStatus `json:"status"`
	ReasonForAbsence string           `json:"reason_for_absence,omitempty"`
	DateAttendance   time.Time        `json:"date_attendance"`
}

// SessionProgress holds instructor notes for one numbered session.
type SessionProgress struct {
	ID               string    `json:"session_progress_id"`
	EnrollmentID     string    `json:"enrollment_id"`
	SessionNumber    int       `json:"session_number"`
	TopicCovered     string    `json:"topic_covered"`
	PerformanceNotes string    `json:"performance_notes"`
	DateSession      time.Time `json:"date_session"`
}

// SessionEntry joins attendance and progress for the same session number.
// Either side may be missing.
type SessionEntry struct {
	SessionNumber int               `json:"session_number"`
	Attendance    *AttendanceRecord `json:"attendance,omitempty"`
	Progress      *SessionProgress  `json:"progress,omitempty"`
}
