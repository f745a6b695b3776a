package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/swimcoach/internal/models"
)

func TestDecodeEnrollmentsWithNestedCourse(t *testing.T) {
	body := `{"enrollments":[{
		"enrollment_id": "e1",
		"status": "active",
		"start_date": "2024-02-01T09:00:00Z",
		"target_sessions_to_complete": 10,
		"actual_sessions_attended": "4",
		"request": {"request_id": "r1", "student_id": "s1", "Course": {"course_id": "c1", "title": "Breaststroke"}}
	}]}`
	items, err := DecodeEnrollments([]byte(body))
	require.NoError(t, err)
	require.Len(t, items, 1)

	e := items[0]
	assert.Equal(t, "e1", e.ID)
	assert.Equal(t, "r1", e.RequestID)
	assert.Equal(t, "s1", e.StudentID)
	assert.Equal(t, models.EnrollmentStatusActive, e.Status)
	assert.Equal(t, 10, e.TargetSessions)
	assert.Equal(t, 10, e.MaxSessions)
	assert.Equal(t, 4, e.ActualSessionsAttended)
	require.NotNil(t, e.Course)
	assert.Equal(t, "Breaststroke", e.Course.Title)
}

func TestDecodeEnrollmentFallbacks(t *testing.T) {
	e, err := DecodeEnrollment([]byte(`{"data":{"enrollmentId":"e2","status":"PAUSED","targetSessionsToComplete":8,"maxSessionsAllowed":5,"actualSessionsAttended":12}}`))
	require.NoError(t, err)

	assert.Equal(t, "e2", e.ID)
	assert.Equal(t, models.EnrollmentStatusUnknown, e.Status)
	assert.False(t, e.Status.CanTransitionTo(models.EnrollmentStatusCompleted))
	assert.Equal(t, 8, e.MaxSessions, "max is raised to the target")
	assert.Equal(t, 8, e.ActualSessionsAttended, "attended is clamped to max")
}

func TestDecodeEnrollmentCanceledSpelling(t *testing.T) {
	e, err := DecodeEnrollment([]byte(`{"enrollment_id":"e3","status":"CANCELED","end_date":"2024-05-01"}`))
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, e.Status)
	require.NotNil(t, e.EndDate)
	assert.Equal(t, 5, int(e.EndDate.Month()))
}

func TestDecodeEnrollmentRejectsArray(t *testing.T) {
	_, err := DecodeEnrollment([]byte(`[]`))
	assert.Error(t, err)
}
