package dto

import "github.com/noah-isme/swimcoach/internal/models"

// EnrollmentProgress pairs an enrollment with its derived completion and ledgers.
type EnrollmentProgress struct {
	Enrollment models.Enrollment          `json:"enrollment"`
	Completion models.Completion          `json:"completion"`
	Sessions   []models.SessionEntry      `json:"sessions"`
	Milestones []models.ProgressMilestone `json:"milestones"`
	Skills     []models.SkillAssessment   `json:"skills"`
}

// StudentDashboardResponse is the student landing page payload.
type StudentDashboardResponse struct {
	Enrollments []EnrollmentProgress   `json:"enrollments"`
	Requests    []models.CourseRequest `json:"requests"`
	// Degraded names the widgets whose data could not be loaded.
	Degraded []string `json:"degraded,omitempty"`
}

// InstructorEnrollment is an enrollment row on the instructor dashboard.
type InstructorEnrollment struct {
	Enrollment models.Enrollment `json:"enrollment"`
	Completion models.Completion `json:"completion"`
}

// InstructorDashboardResponse is the instructor landing page payload.
type InstructorDashboardResponse struct {
	PendingRequests []models.CourseRequest `json:"pendingRequests"`
	Enrollments     []InstructorEnrollment `json:"enrollments"`
	ActiveCount     int                    `json:"activeCount"`
	CompletedCount  int                    `json:"completedCount"`
	Degraded        []string               `json:"degraded,omitempty"`
}

// CompletionResponse is returned by the completion endpoint.
type CompletionResponse struct {
	EnrollmentID string            `json:"enrollmentId"`
	Completion   models.Completion `json:"completion"`
}
