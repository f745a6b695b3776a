package models

import "time"

// CourseRequestStatus represents the lifecycle of a student's request to join a course.
type CourseRequestStatus string

// Possible course request statuses.
const (
	CourseRequestPending   CourseRequestStatus = "pending"
	CourseRequestApproved  CourseRequestStatus = "approved"
	CourseRequestRejected  CourseRequestStatus = "rejected"
	CourseRequestCancelled CourseRequestStatus = "cancelled"
	// CourseRequestUnknown marks a status the backend sent that this service does not recognise.
	// No action is offered on it.
	CourseRequestUnknown CourseRequestStatus = "unknown"
)

// Valid returns true when the status is a supported value.
func (s CourseRequestStatus) Valid() bool {
	switch s {
	case CourseRequestPending, CourseRequestApproved, CourseRequestRejected, CourseRequestCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s CourseRequestStatus) Terminal() bool {
	return s != CourseRequestPending
}

// CourseRequest is a point-in-time proposal; price and schedule never change after creation.
type CourseRequest struct {
	ID                 string              `json:"request_id"`
	StudentID          string              `json:"student_id"`
	CourseID           string              `json:"course_id"`
	CourseTitle        string              `json:"course_title,omitempty"`
	StudentName        string              `json:"student_name,omitempty"`
	Status             CourseRequestStatus `json:"status"`
	RequestDate        time.Time           `json:"request_date"`
	RequestedDayOfWeek string              `json:"requested_day_of_week"`
	RequestedTimeSlot  string              `json:"requested_time_slot"`
	Location           RequestLocation     `json:"request_location"`
	Price              float64             `json:"request_price"`
	RejectionReason    *string             `json:"rejection_reason,omitempty"`
}

// IsPending reports whether instructor or student actions are still allowed.
func (r *CourseRequest) IsPending() bool {
	return r.Status == CourseRequestPending
}
