package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/swimcoach/internal/models"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
)

func newDashboardFixture(requests *mockCourseRequestRepo, enrollments *mockEnrollmentRepo, ledger *mockLedgerRepo, metrics degradeRecorder) *DashboardService {
	return NewDashboardService(DashboardServiceParams{
		Requests:    NewCourseRequestService(requests, nil, nil, nil),
		Enrollments: NewEnrollmentService(enrollments, nil, nil, nil),
		Ledger:      NewLedgerService(ledger, nil, nil, nil),
		Metrics:     metrics,
	})
}

func TestDashboardStudentDegradesFailingWidget(t *testing.T) {
	e := activeEnrollment()
	e.ActualSessionsAttended = 5
	requests := &mockCourseRequestRepo{listErr: appErrors.FromUpstream(503, "")}
	enrollments := &mockEnrollmentRepo{student: []models.Enrollment{e}}
	ledger := &mockLedgerRepo{
		attendance: []models.AttendanceRecord{{SessionNumber: 1, Status: models.AttendancePresent, DateAttendance: day(2)}},
		skills:     []models.SkillAssessment{{ID: "s1", Name: "Freestyle", Progress: 40}},
	}
	metrics := &fakeDegradeRecorder{}
	svc := newDashboardFixture(requests, enrollments, ledger, metrics)

	resp, err := svc.Student(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"requests"}, resp.Degraded)
	assert.Equal(t, []string{"requests"}, metrics.resources)
	assert.NotNil(t, resp.Requests)
	assert.Empty(t, resp.Requests)

	require.Len(t, resp.Enrollments, 1)
	progress := resp.Enrollments[0]
	assert.Equal(t, 50, progress.Completion.Percent)
	require.Len(t, progress.Sessions, 1)
	assert.Len(t, progress.Skills, 1)
	assert.Empty(t, progress.Milestones)
}

func TestDashboardInstructorCounts(t *testing.T) {
	active := activeEnrollment()
	other := activeEnrollment()
	other.ID = "e2"
	done := activeEnrollment()
	done.ID = "e3"
	done.Status = models.EnrollmentStatusCompleted
	done.ActualSessionsAttended = 10

	requests := &mockCourseRequestRepo{pending: []models.CourseRequest{{ID: "r1", Status: models.CourseRequestPending}}}
	enrollments := &mockEnrollmentRepo{instructor: []models.Enrollment{active, other, done}}
	svc := newDashboardFixture(requests, enrollments, &mockLedgerRepo{}, nil)

	resp, err := svc.Instructor(context.Background())
	require.NoError(t, err)
	assert.Empty(t, resp.Degraded)
	assert.Len(t, resp.PendingRequests, 1)
	assert.Equal(t, 2, resp.ActiveCount)
	assert.Equal(t, 1, resp.CompletedCount)
	require.Len(t, resp.Enrollments, 3)
	assert.Equal(t, 100, resp.Enrollments[2].Completion.Percent)
}

func TestDashboardInstructorAllWidgetsFailing(t *testing.T) {
	requests := &mockCourseRequestRepo{listErr: appErrors.FromUpstream(500, "")}
	enrollments := &mockEnrollmentRepo{listErr: appErrors.FromUpstream(500, "")}
	svc := newDashboardFixture(requests, enrollments, &mockLedgerRepo{}, nil)

	resp, err := svc.Instructor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"enrollments", "pending_requests"}, resp.Degraded)
	assert.NotNil(t, resp.PendingRequests)
	assert.NotNil(t, resp.Enrollments)
}
