package dto

import (
	"strings"

	"github.com/noah-isme/swimcoach/internal/models"
)

type wireEnrollmentRequest struct {
	ID        flexString     `json:"request_id"`
	IDPlain   flexString     `json:"id"`
	StudentID flexString     `json:"student_id"`
	Course    *wireCourseRef `json:"Course"`
	CourseLow *wireCourseRef `json:"course"`
}

type wireEnrollment struct {
	ID             flexString             `json:"enrollment_id"`
	IDCamel        flexString             `json:"enrollmentId"`
	IDPlain        flexString             `json:"id"`
	RequestID      flexString             `json:"request_id"`
	RequestIDCamel flexString             `json:"requestId"`
	StudentID      flexString             `json:"student_id"`
	StudentIDCamel flexString             `json:"studentId"`
	Status         flexString             `json:"status"`
	StartDate      flexTime               `json:"start_date"`
	StartDateCamel flexTime               `json:"startDate"`
	EndDate        flexTime               `json:"end_date"`
	EndDateCamel   flexTime               `json:"endDate"`
	Target         flexInt                `json:"target_sessions_to_complete"`
	TargetCamel    flexInt                `json:"targetSessionsToComplete"`
	Max            flexInt                `json:"max_sessions_allowed"`
	MaxCamel       flexInt                `json:"maxSessionsAllowed"`
	Actual         flexInt                `json:"actual_sessions_attended"`
	ActualCamel    flexInt                `json:"actualSessionsAttended"`
	Notes          flexString             `json:"notes"`
	Request        *wireEnrollmentRequest `json:"request"`
	RequestUpper   *wireEnrollmentRequest `json:"Request"`
	Course         *wireCourseRef         `json:"Course"`
	CourseLower    *wireCourseRef         `json:"course"`
}

// normalize maps a wire enrollment to the canonical model.
// Fallbacks: a missing status becomes ACTIVE and an unrecognised one UNKNOWN, a missing max falls back to the target,
// and attended sessions are clamped into [0, max].
func (w wireEnrollment) normalize() models.Enrollment {
	e := models.Enrollment{
		ID:             firstString(w.ID, w.IDCamel, w.IDPlain),
		RequestID:      firstString(w.RequestID, w.RequestIDCamel),
		StudentID:      firstString(w.StudentID, w.StudentIDCamel),
		Status:         normalizeEnrollmentStatus(firstString(w.Status)),
		TargetSessions: firstInt(0, w.Target, w.TargetCamel),
		Notes:          optionalString(w.Notes),
	}
	e.MaxSessions = firstInt(e.TargetSessions, w.Max, w.MaxCamel)
	if e.MaxSessions < e.TargetSessions {
		e.MaxSessions = e.TargetSessions
	}
	e.ActualSessionsAttended = models.ClampSessions(firstInt(0, w.Actual, w.ActualCamel), e.MaxSessions)
	if t, ok := firstTime(w.StartDate, w.StartDateCamel); ok {
		e.StartDate = t
	}
	if t, ok := firstTime(w.EndDate, w.EndDateCamel); ok {
		e.EndDate = &t
	}

	req := w.Request
	if req == nil {
		req = w.RequestUpper
	}
	course := w.Course
	if course == nil {
		course = w.CourseLower
	}
	if req != nil {
		if e.RequestID == "" {
			e.RequestID = firstString(req.ID, req.IDPlain)
		}
		if e.StudentID == "" {
			e.StudentID = firstString(req.StudentID)
		}
		if course == nil {
			course = req.Course
			if course == nil {
				course = req.CourseLow
			}
		}
	}
	if course != nil {
		e.Course = &models.CourseSummary{
			ID:           firstString(course.ID, course.IDCamel, course.IDPlain),
			Title:        firstString(course.Title, course.Name),
			InstructorID: firstString(course.Instructor, course.InstrCamel),
		}
	}
	return e
}

func normalizeEnrollmentStatus(raw string) models.EnrollmentStatus {
	status := models.EnrollmentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if status == "CANCELED" {
		return models.EnrollmentStatusCancelled
	}
	switch {
	case status == "":
		return models.EnrollmentStatusActive
	case !status.Valid():
		return models.EnrollmentStatusUnknown
	}
	return status
}

// DecodeEnrollments decodes a list response of enrollments.
func DecodeEnrollments(body []byte) ([]models.Enrollment, error) {
	wire, err := decodeList[wireEnrollment](body, "enrollments")
	if err != nil {
		return nil, err
	}
	out := make([]models.Enrollment, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.normalize())
	}
	return out, nil
}

// DecodeEnrollment decodes a single enrollment response.
func DecodeEnrollment(body []byte) (models.Enrollment, error) {
	w, err := decodeOne[wireEnrollment](body, "enrollment")
	if err != nil {
		return models.Enrollment{}, err
	}
	return w.normalize(), nil
}
