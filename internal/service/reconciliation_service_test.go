package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/session"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
	"github.com/noah-isme/swimcoach/pkg/jobs"
)

type fakeDriftRecorder struct {
	reports  []models.DriftReport
	failures int
}

func (f *fakeDriftRecorder) RecordDrift(report models.DriftReport) {
	f.reports = append(f.reports, report)
}

func (f *fakeDriftRecorder) RecordReconcileFailure() {
	f.failures++
}

type fakeQueue struct {
	jobs []jobs.Job
	err  error
}

func (f *fakeQueue) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func driftKinds(items []models.DriftItem) []models.DriftKind {
	kinds := make([]models.DriftKind, 0, len(items))
	for _, item := range items {
		kinds = append(kinds, item.Kind)
	}
	return kinds
}

func TestDetectDrift(t *testing.T) {
	enrollment := models.Enrollment{ID: "e1", StartDate: day(5), ActualSessionsAttended: 3}
	attendance := []models.AttendanceRecord{
		{SessionNumber: 1, Status: models.AttendancePresent, DateAttendance: day(6)},
		{SessionNumber: 2, Status: models.AttendanceLate, DateAttendance: day(4)},
		{SessionNumber: 3, Status: models.AttendanceAbsent, DateAttendance: day(8), ReasonForAbsence: "sick"},
	}
	progress := []models.SessionProgress{
		{SessionNumber: 1, DateSession: day(6)},
		{SessionNumber: 1, DateSession: day(6)},
		{SessionNumber: 4, DateSession: day(10)},
	}

	report := DetectDrift(enrollment, attendance, progress)
	assert.Equal(t, "e1", report.EnrollmentID)
	assert.Equal(t, []models.DriftKind{
		models.DriftBeforeEnrollmentStart,
		models.DriftAttendedWithoutNotes,
		models.DriftDuplicateSession,
		models.DriftNotesWithoutAttendance,
		models.DriftAggregateMismatch,
	}, driftKinds(report.Items))
	assert.Equal(t, 2, report.Items[0].SessionNumber)
	assert.Equal(t, 4, report.Items[3].SessionNumber)
}

func TestDetectDriftCleanLedger(t *testing.T) {
	enrollment := models.Enrollment{ID: "e1", StartDate: day(1), ActualSessionsAttended: 1}
	report := DetectDrift(enrollment,
		[]models.AttendanceRecord{
			{SessionNumber: 1, Status: models.AttendancePresent, DateAttendance: day(1)},
			{SessionNumber: 2, Status: models.AttendanceExcused, DateAttendance: day(2), ReasonForAbsence: "holiday"},
		},
		[]models.SessionProgress{{SessionNumber: 1, DateSession: day(1)}},
	)
	assert.True(t, report.Clean())
	assert.NotNil(t, report.Items)
}

func TestReconciliationRunInlineStoresReport(t *testing.T) {
	enrollments := &mockEnrollmentRepo{byID: map[string]models.Enrollment{"e1": {ID: "e1", ActualSessionsAttended: 1}}}
	ledger := &mockLedgerRepo{attendance: []models.AttendanceRecord{{SessionNumber: 1, Status: models.AttendancePresent}}}
	metrics := &fakeDriftRecorder{}
	svc := NewReconciliationService(enrollments, ledger, metrics, 0, nil)
	generated := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return generated }

	ticket, report, err := svc.Reconcile(context.Background(), " e1 ")
	require.NoError(t, err)
	assert.Nil(t, ticket)
	require.NotNil(t, report)
	assert.Equal(t, []models.DriftKind{models.DriftAttendedWithoutNotes}, driftKinds(report.Items))
	assert.Equal(t, generated, report.GeneratedAt)
	require.Len(t, metrics.reports, 1)

	latest, err := svc.Latest(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, report.Items, latest.Items)
}

func TestReconciliationRunPartialWhenLedgerUnavailable(t *testing.T) {
	enrollments := &mockEnrollmentRepo{byID: map[string]models.Enrollment{"e1": {ID: "e1", ActualSessionsAttended: 3}}}
	ledger := &mockLedgerRepo{
		attendanceErr: appErrors.FromUpstream(502, ""),
		progress:      []models.SessionProgress{{SessionNumber: 1}},
	}
	svc := NewReconciliationService(enrollments, ledger, nil, 0, nil)

	report, err := svc.Run(context.Background(), "e1")
	require.NoError(t, err)
	assert.True(t, report.Partial)
	assert.Empty(t, report.Items)
}

func TestReconciliationRunUnknownEnrollment(t *testing.T) {
	svc := NewReconciliationService(&mockEnrollmentRepo{}, &mockLedgerRepo{}, nil, 0, nil)

	_, err := svc.Run(context.Background(), "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	_, err = svc.Latest(context.Background(), "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestReconciliationQueuedRunsWithCaller(t *testing.T) {
	enrollments := &mockEnrollmentRepo{byID: map[string]models.Enrollment{"e1": {ID: "e1"}}}
	svc := NewReconciliationService(enrollments, &mockLedgerRepo{}, nil, 0, nil)
	queue := &fakeQueue{}
	svc.UseQueue(queue)

	caller := session.Caller{Token: "tok", Subject: "inst-1", Role: "instructor"}
	ticket, report, err := svc.Reconcile(session.WithCaller(context.Background(), caller), "e1")
	require.NoError(t, err)
	assert.Nil(t, report)
	require.NotNil(t, ticket)
	assert.True(t, ticket.Queued)
	require.Len(t, queue.jobs, 1)

	job := queue.jobs[0]
	assert.Equal(t, ticket.JobID, job.ID)
	assert.Equal(t, "reconcile:e1", job.Key)
	payload, ok := job.Payload.(reconcilePayload)
	require.True(t, ok)
	assert.Equal(t, caller, payload.Caller)

	_, err = svc.Latest(context.Background(), "e1")
	require.Error(t, err)
	require.NoError(t, svc.HandleJob(context.Background(), job))
	latest, err := svc.Latest(context.Background(), "e1")
	require.NoError(t, err)
	assert.True(t, latest.Clean())
}

func TestReconciliationQueuedDuplicateIsInFlight(t *testing.T) {
	svc := NewReconciliationService(&mockEnrollmentRepo{}, &mockLedgerRepo{}, nil, 0, nil)
	svc.UseQueue(&fakeQueue{err: jobs.ErrDuplicate})

	_, _, err := svc.Reconcile(context.Background(), "e1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInFlight.Code))

	svc.UseQueue(&fakeQueue{err: errors.New("queue stopped")})
	_, _, err = svc.Reconcile(context.Background(), "e1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
}

func TestReconciliationGiveUpRecordsFailure(t *testing.T) {
	metrics := &fakeDriftRecorder{}
	svc := NewReconciliationService(&mockEnrollmentRepo{}, &mockLedgerRepo{}, metrics, 0, nil)

	svc.HandleGiveUp(jobs.Job{ID: "j1"}, errors.New("backend down"))
	assert.Equal(t, 1, metrics.failures)

	err := svc.HandleJob(context.Background(), jobs.Job{Type: reconcileJobType, Payload: "bogus"})
	assert.Error(t, err)
}

func TestReconciliationLatestChecksCallerAccess(t *testing.T) {
	enrollments := &mockEnrollmentRepo{
		byID:   map[string]models.Enrollment{"e1": {ID: "e1"}},
		hidden: map[string]bool{"mallory": true},
	}
	svc := NewReconciliationService(enrollments, &mockLedgerRepo{}, nil, 0, nil)

	_, err := svc.Run(studentCtx("alice"), "e1")
	require.NoError(t, err)

	_, err = svc.Latest(studentCtx("mallory"), "e1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	latest, err := svc.Latest(studentCtx("alice"), "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", latest.EnrollmentID)
}

func TestReconciliationReportsExpire(t *testing.T) {
	enrollments := &mockEnrollmentRepo{byID: map[string]models.Enrollment{"e1": {ID: "e1"}, "e2": {ID: "e2"}}}
	svc := NewReconciliationService(enrollments, &mockLedgerRepo{}, nil, time.Hour, nil)
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	_, err := svc.Run(context.Background(), "e1")
	require.NoError(t, err)
	clock = clock.Add(40 * time.Minute)
	_, err = svc.Run(context.Background(), "e2")
	require.NoError(t, err)

	clock = clock.Add(30 * time.Minute)
	_, err = svc.Latest(context.Background(), "e1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	_, err = svc.Latest(context.Background(), "e2")
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	assert.Equal(t, 1, svc.Prune())
	assert.Zero(t, svc.Prune())
}
