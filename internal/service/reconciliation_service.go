package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/session"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
	"github.com/noah-isme/swimcoach/pkg/jobs"
)

const (
	reconcileJobType = "ledger_reconcile"
	defaultReportTTL = 24 * time.Hour
)

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type ledgerReader interface {
	ListAttendance(ctx context.Context, enrollmentID string) ([]models.AttendanceRecord, error)
	ListSessionProgress(ctx context.Context, enrollmentID string) ([]models.SessionProgress, error)
}

type driftRecorder interface {
	RecordDrift(report models.DriftReport)
	RecordReconcileFailure()
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

type reconcilePayload struct {
	EnrollmentID string
	Caller       session.Caller
}

// ReconcileTicket acknowledges a queued reconciliation.
type ReconcileTicket struct {
	JobID        string `json:"jobId"`
	EnrollmentID string `json:"enrollmentId"`
	Queued       bool   `json:"queued"`
}

// ReconciliationService compares the attendance and progress ledgers of an enrollment and
// keeps the latest drift report until it is older than reportTTL. It reads only; it never
// corrects either ledger.
type ReconciliationService struct {
	enrollments enrollmentReader
	ledger      ledgerReader
	metrics     driftRecorder
	queue       jobQueue
	logger      *zap.Logger
	now         func() time.Time
	reportTTL   time.Duration

	mu      sync.Mutex
	reports map[string]models.DriftReport
}

// NewReconciliationService constructs the service. Attach a queue with UseQueue to run in the background.
func NewReconciliationService(enrollments enrollmentReader, ledger ledgerReader, metrics driftRecorder, reportTTL time.Duration, logger *zap.Logger) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reportTTL <= 0 {
		reportTTL = defaultReportTTL
	}
	return &ReconciliationService{
		enrollments: enrollments,
		ledger:      ledger,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		reportTTL:   reportTTL,
		reports:     make(map[string]models.DriftReport),
	}
}

// UseQueue routes Reconcile through a background queue.
func (s *ReconciliationService) UseQueue(queue jobQueue) {
	s.queue = queue
}

// Reconcile queues a reconciliation, or runs it inline when no queue is attached.
func (s *ReconciliationService) Reconcile(ctx context.Context, enrollmentID string) (*ReconcileTicket, *models.DriftReport, error) {
	enrollmentID = strings.TrimSpace(enrollmentID)
	if enrollmentID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id is required")
	}
	if s.queue == nil {
		report, err := s.Run(ctx, enrollmentID)
		if err != nil {
			return nil, nil, err
		}
		return nil, &report, nil
	}

	caller, _ := session.FromContext(ctx)
	job := jobs.Job{
		ID:      uuid.NewString(),
		Key:     "reconcile:" + enrollmentID,
		Type:    reconcileJobType,
		Payload: reconcilePayload{EnrollmentID: enrollmentID, Caller: caller},
	}
	if err := s.queue.Enqueue(job); err != nil {
		if errors.Is(err, jobs.ErrDuplicate) {
			return nil, nil, appErrors.Clone(appErrors.ErrInFlight, "reconciliation already queued for enrollment")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue reconciliation")
	}
	return &ReconcileTicket{JobID: job.ID, EnrollmentID: enrollmentID, Queued: true}, nil, nil
}

// HandleJob is the queue handler.
func (s *ReconciliationService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(reconcilePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	_, err := s.Run(session.WithCaller(ctx, payload.Caller), payload.EnrollmentID)
	return err
}

// HandleGiveUp records a job that exhausted its retries.
func (s *ReconciliationService) HandleGiveUp(job jobs.Job, err error) {
	if s.metrics != nil {
		s.metrics.RecordReconcileFailure()
	}
	s.logger.Error("reconciliation abandoned", zap.String("job_id", job.ID), zap.Error(err))
}

// Run fetches both ledgers and stores the resulting report. A ledger that cannot be fetched is
// treated as empty and the report is marked partial.
func (s *ReconciliationService) Run(ctx context.Context, enrollmentID string) (models.DriftReport, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return models.DriftReport{}, err
	}
	if enrollment == nil {
		return models.DriftReport{}, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}

	attendance, attendanceErr := s.ledger.ListAttendance(ctx, enrollmentID)
	if attendanceErr != nil {
		s.logger.Warn("attendance unavailable for reconciliation", zap.String("enrollment_id", enrollmentID), zap.Error(attendanceErr))
	}
	progress, progressErr := s.ledger.ListSessionProgress(ctx, enrollmentID)
	if progressErr != nil {
		s.logger.Warn("session progress unavailable for reconciliation", zap.String("enrollment_id", enrollmentID), zap.Error(progressErr))
	}

	report := DetectDrift(*enrollment, attendance, progress)
	// findings that compare against a missing ledger would be noise
	if attendanceErr != nil {
		report.Items = dropKinds(report.Items, models.DriftNotesWithoutAttendance, models.DriftAggregateMismatch)
	}
	if progressErr != nil {
		report.Items = dropKinds(report.Items, models.DriftAttendedWithoutNotes)
	}
	report.Partial = attendanceErr != nil || progressErr != nil
	report.GeneratedAt = s.now().UTC()

	s.mu.Lock()
	s.pruneLocked(report.GeneratedAt)
	s.reports[enrollmentID] = report
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordDrift(report)
	}
	s.logger.Info("reconciliation finished",
		zap.String("enrollment_id", enrollmentID),
		zap.Int("drift_items", len(report.Items)),
		zap.Bool("partial", report.Partial))
	return report, nil
}

// Latest returns the most recent report for an enrollment the caller can still read upstream.
func (s *ReconciliationService) Latest(ctx context.Context, enrollmentID string) (*models.DriftReport, error) {
	enrollmentID = strings.TrimSpace(enrollmentID)
	if enrollmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id is required")
	}
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[enrollmentID]
	if !ok || s.now().Sub(report.GeneratedAt) > s.reportTTL {
		delete(s.reports, enrollmentID)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no reconciliation has run for enrollment")
	}
	return &report, nil
}

// Prune drops reports older than the retention window and returns how many were removed.
func (s *ReconciliationService) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(s.now())
}

func (s *ReconciliationService) pruneLocked(now time.Time) int {
	removed := 0
	for id, report := range s.reports {
		if now.Sub(report.GeneratedAt) > s.reportTTL {
			delete(s.reports, id)
			removed++
		}
	}
	return removed
}

// DetectDrift lists every disagreement between the two ledgers and the enrollment aggregate.
func DetectDrift(enrollment models.Enrollment, attendance []models.AttendanceRecord, progress []models.SessionProgress) models.DriftReport {
	report := models.DriftReport{EnrollmentID: enrollment.ID, Items: []models.DriftItem{}}

	attendanceBySession := make(map[int][]models.AttendanceRecord)
	for _, rec := range attendance {
		attendanceBySession[rec.SessionNumber] = append(attendanceBySession[rec.SessionNumber], rec)
	}
	progressBySession := make(map[int][]models.SessionProgress)
	for _, p := range progress {
		progressBySession[p.SessionNumber] = append(progressBySession[p.SessionNumber], p)
	}

	attended := 0
	for _, n := range sortedKeys(attendanceBySession) {
		records := attendanceBySession[n]
		if len(records) > 1 {
			report.Items = append(report.Items, models.DriftItem{
				Kind: models.DriftDuplicateSession, SessionNumber: n,
				Detail: fmt.Sprintf("%d attendance records share session %d", len(records), n),
			})
		}
		wasThere := false
		for _, rec := range records {
			if rec.Status.Attended() {
				wasThere = true
			}
			if !enrollment.StartDate.IsZero() && !rec.DateAttendance.IsZero() && startOfDay(rec.DateAttendance).Before(startOfDay(enrollment.StartDate)) {
				report.Items = append(report.Items, models.DriftItem{
					Kind: models.DriftBeforeEnrollmentStart, SessionNumber: n,
					Detail: "attendance dated " + rec.DateAttendance.Format("2006-01-02") + " precedes enrollment start " + enrollment.StartDate.Format("2006-01-02"),
				})
			}
		}
		if wasThere {
			attended++
			if len(progressBySession[n]) == 0 {
				report.Items = append(report.Items, models.DriftItem{
					Kind: models.DriftAttendedWithoutNotes, SessionNumber: n,
					Detail: fmt.Sprintf("session %d attended but has no progress notes", n),
				})
			}
		}
	}

	for _, n := range sortedKeys(progressBySession) {
		entries := progressBySession[n]
		if len(entries) > 1 {
			report.Items = append(report.Items, models.DriftItem{
				Kind: models.DriftDuplicateSession, SessionNumber: n,
				Detail: fmt.Sprintf("%d progress entries share session %d", len(entries), n),
			})
		}
		if len(attendanceBySession[n]) == 0 {
			report.Items = append(report.Items, models.DriftItem{
				Kind: models.DriftNotesWithoutAttendance, SessionNumber: n,
				Detail: fmt.Sprintf("session %d has progress notes but no attendance record", n),
			})
		}
	}

	if attended != enrollment.ActualSessionsAttended {
		report.Items = append(report.Items, models.DriftItem{
			Kind:   models.DriftAggregateMismatch,
			Detail: fmt.Sprintf("enrollment reports %d sessions attended, ledger shows %d", enrollment.ActualSessionsAttended, attended),
		})
	}
	return report
}

func dropKinds(items []models.DriftItem, kinds ...models.DriftKind) []models.DriftItem {
	out := items[:0]
	for _, item := range items {
		drop := false
		for _, k := range kinds {
			if item.Kind == k {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, item)
		}
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
