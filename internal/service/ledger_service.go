package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/swimcoach/internal/dto"
	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/repository"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
)

type ledgerRepository interface {
	ListAttendance(ctx context.Context, enrollmentID string) ([]models.AttendanceRecord, error)
	CreateAttendance(ctx context.Context, enrollmentID string, payload repository.AttendancePayload) (*models.AttendanceRecord, error)
	UpdateAttendance(ctx context.Context, enrollmentID, attendanceID string, payload repository.AttendancePayload) (*models.AttendanceRecord, error)
	DeleteAttendance(ctx context.Context, enrollmentID, attendanceID string) error
	ListSessionProgress(ctx context.Context, enrollmentID string) ([]models.SessionProgress, error)
	CreateSessionProgress(ctx context.Context, enrollmentID string, payload repository.SessionProgressPayload) (*models.SessionProgress, error)
	UpdateSessionProgress(ctx context.Context, progressID string, payload repository.SessionProgressPayload) (*models.SessionProgress, error)
	DeleteSessionProgress(ctx context.Context, progressID string) error
	ListMilestones(ctx context.Context, enrollmentID string) ([]models.ProgressMilestone, error)
	ListSkills(ctx context.Context, enrollmentID string) ([]models.SkillAssessment, error)
}

type degradeRecorder interface {
	RecordDegradedFetch(resource string)
}

// AttendanceInput is the editable form of an attendance record.
type AttendanceInput struct {
	SessionNumber    int    `json:"sessionNumber" validate:"min=1"`
	Status           string `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EXCUSED"`
	ReasonForAbsence string `json:"reasonForAbsence"`
	DateAttendance   string `json:"dateAttendance" validate:"required"`
}

// SessionProgressInput is the editable form of a session progress entry.
type SessionProgressInput struct {
	SessionNumber    int    `json:"sessionNumber" validate:"min=1"`
	TopicCovered     string `json:"topicCovered" validate:"required"`
	PerformanceNotes string `json:"performanceNotes"`
	DateSession      string `json:"dateSession" validate:"required"`
}

// LedgerService manages per-session attendance and progress notes of enrollments.
// List reads degrade to an empty result; mutations propagate their errors.
type LedgerService struct {
	repo      ledgerRepository
	metrics   degradeRecorder
	guard     *inflightGuard
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLedgerService constructs LedgerService.
func NewLedgerService(repo ledgerRepository, metrics degradeRecorder, validate *validator.Validate, logger *zap.Logger) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{repo: repo, metrics: metrics, guard: newInflightGuard(), validator: validate, logger: logger}
}

func (s *LedgerService) degraded(resource, enrollmentID string, err error) {
	s.logger.Warn("list fetch failed, using empty result",
		zap.String("resource", resource),
		zap.String("enrollment_id", enrollmentID),
		zap.String("code", appErrors.FromError(err).Code),
		zap.Error(err))
	if s.metrics != nil {
		s.metrics.RecordDegradedFetch(resource)
	}
}

// ListAttendance returns an enrollment's attendance, or an empty list when the fetch fails.
func (s *LedgerService) ListAttendance(ctx context.Context, enrollmentID string) []models.AttendanceRecord {
	items, err := s.repo.ListAttendance(ctx, enrollmentID)
	if err != nil {
		s.degraded("attendance", enrollmentID, err)
		return []models.AttendanceRecord{}
	}
	return items
}

// ListSessionProgress returns an enrollment's progress notes, or an empty list when the fetch fails.
func (s *LedgerService) ListSessionProgress(ctx context.Context, enrollmentID string) []models.SessionProgress {
	items, err := s.repo.ListSessionProgress(ctx, enrollmentID)
	if err != nil {
		s.degraded("session_progress", enrollmentID, err)
		return []models.SessionProgress{}
	}
	return items
}

// ListMilestones returns milestone progress, or an empty list when the fetch fails.
func (s *LedgerService) ListMilestones(ctx context.Context, enrollmentID string) []models.ProgressMilestone {
	items, err := s.repo.ListMilestones(ctx, enrollmentID)
	if err != nil {
		s.degraded("milestones", enrollmentID, err)
		return []models.ProgressMilestone{}
	}
	return items
}

// ListSkills returns skill assessments, or an empty list when the fetch fails.
func (s *LedgerService) ListSkills(ctx context.Context, enrollmentID string) []models.SkillAssessment {
	items, err := s.repo.ListSkills(ctx, enrollmentID)
	if err != nil {
		s.degraded("skills", enrollmentID, err)
		return []models.SkillAssessment{}
	}
	return items
}

func (s *LedgerService) validateAttendance(in *AttendanceInput) error {
	in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
	in.ReasonForAbsence = strings.TrimSpace(in.ReasonForAbsence)
	in.DateAttendance = strings.TrimSpace(in.DateAttendance)
	if err := s.validator.Struct(in); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if models.AttendanceStatus(in.Status).RequiresReason() && in.ReasonForAbsence == "" {
		return appErrors.Clone(appErrors.ErrValidation, "reasonForAbsence is required when status is "+in.Status)
	}
	if _, ok := dto.ParseTime(in.DateAttendance); !ok {
		return appErrors.Clone(appErrors.ErrValidation, "dateAttendance is not a valid date")
	}
	return nil
}

func (s *LedgerService) validateProgress(in *SessionProgressInput) error {
	in.TopicCovered = strings.TrimSpace(in.TopicCovered)
	in.PerformanceNotes = strings.TrimSpace(in.PerformanceNotes)
	in.DateSession = strings.TrimSpace(in.DateSession)
	if err := s.validator.Struct(in); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session progress payload")
	}
	if _, ok := dto.ParseTime(in.DateSession); !ok {
		return appErrors.Clone(appErrors.ErrValidation, "dateSession is not a valid date")
	}
	return nil
}

func attendancePayload(in AttendanceInput) repository.AttendancePayload {
	payload := repository.AttendancePayload{
		SessionNumber:  in.SessionNumber,
		Status:         in.Status,
		DateAttendance: in.DateAttendance,
	}
	if models.AttendanceStatus(in.Status).RequiresReason() {
		payload.ReasonForAbsence = in.ReasonForAbsence
	}
	return payload
}

func (s *LedgerService) lock(key string) (func(), error) {
	release, ok := s.guard.acquire(key)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInFlight, "record is already being updated")
	}
	return release, nil
}

func requireID(id, name string) error {
	if strings.TrimSpace(id) == "" {
		return appErrors.Clone(appErrors.ErrValidation, name+" is required")
	}
	return nil
}

// CreateAttendance validates and records attendance for a session.
func (s *LedgerService) CreateAttendance(ctx context.Context, enrollmentID string, in AttendanceInput) (*models.AttendanceRecord, error) {
	if err := requireID(enrollmentID, "enrollment id"); err != nil {
		return nil, err
	}
	if err := s.validateAttendance(&in); err != nil {
		return nil, err
	}
	release, err := s.lock("attendance:create:" + enrollmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := s.repo.CreateAttendance(ctx, enrollmentID, attendancePayload(in))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, appErrors.Clone(appErrors.ErrUnknownServer, "backend returned no attendance record")
	}
	return rec, nil
}

// UpdateAttendance validates and replaces an attendance record.
func (s *LedgerService) UpdateAttendance(ctx context.Context, enrollmentID, attendanceID string, in AttendanceInput) (*models.AttendanceRecord, error) {
	if err := requireID(enrollmentID, "enrollment id"); err != nil {
		return nil, err
	}
	if err := requireID(attendanceID, "attendance id"); err != nil {
		return nil, err
	}
	if err := s.validateAttendance(&in); err != nil {
		return nil, err
	}
	release, err := s.lock("attendance:" + attendanceID)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := s.repo.UpdateAttendance(ctx, enrollmentID, attendanceID, attendancePayload(in))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		date, _ := dto.ParseTime(in.DateAttendance)
		rec = &models.AttendanceRecord{
			ID:               attendanceID,
			EnrollmentID:     enrollmentID,
			SessionNumber:    in.SessionNumber,
			Status:           models.AttendanceStatus(in.Status),
			ReasonForAbsence: attendancePayload(in).ReasonForAbsence,
			DateAttendance:   date,
		}
	}
	return rec, nil
}

// DeleteAttendance removes an attendance record.
func (s *LedgerService) DeleteAttendance(ctx context.Context, enrollmentID, attendanceID string) error {
	if err := requireID(enrollmentID, "enrollment id"); err != nil {
		return err
	}
	if err := requireID(attendanceID, "attendance id"); err != nil {
		return err
	}
	release, err := s.lock("attendance:" + attendanceID)
	if err != nil {
		return err
	}
	defer release()
	return s.repo.DeleteAttendance(ctx, enrollmentID, attendanceID)
}

// CreateSessionProgress validates and records notes for a session.
func (s *LedgerService) CreateSessionProgress(ctx context.Context, enrollmentID string, in SessionProgressInput) (*models.SessionProgress, error) {
	if err := requireID(enrollmentID, "enrollment id"); err != nil {
		return nil, err
	}
	if err := s.validateProgress(&in); err != nil {
		return nil, err
	}
	release, err := s.lock("progress:create:" + enrollmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	entry, err := s.repo.CreateSessionProgress(ctx, enrollmentID, repository.SessionProgressPayload(in))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, appErrors.Clone(appErrors.ErrUnknownServer, "backend returned no session progress")
	}
	return entry, nil
}

// UpdateSessionProgress validates and replaces a progress entry.
func (s *LedgerService) UpdateSessionProgress(ctx context.Context, progressID string, in SessionProgressInput) (*models.SessionProgress, error) {
	if err := requireID(progressID, "session progress id"); err != nil {
		return nil, err
	}
	if err := s.validateProgress(&in); err != nil {
		return nil, err
	}
	release, err := s.lock("progress:" + progressID)
	if err != nil {
		return nil, err
	}
	defer release()

	entry, err := s.repo.UpdateSessionProgress(ctx, progressID, repository.SessionProgressPayload(in))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		date, _ := dto.ParseTime(in.DateSession)
		entry = &models.SessionProgress{
			ID:               progressID,
			SessionNumber:    in.SessionNumber,
			TopicCovered:     in.TopicCovered,
			PerformanceNotes: in.PerformanceNotes,
			DateSession:      date,
		}
	}
	return entry, nil
}

// DeleteSessionProgress removes a progress entry.
func (s *LedgerService) DeleteSessionProgress(ctx context.Context, progressID string) error {
	if err := requireID(progressID, "session progress id"); err != nil {
		return err
	}
	release, err := s.lock("progress:" + progressID)
	if err != nil {
		return err
	}
	defer release()
	return s.repo.DeleteSessionProgress(ctx, progressID)
}

// Timeline joins attendance and progress on session number, sorted ascending.
func (s *LedgerService) Timeline(ctx context.Context, enrollmentID string) []models.SessionEntry {
	return JoinSessions(s.ListAttendance(ctx, enrollmentID), s.ListSessionProgress(ctx, enrollmentID))
}

// JoinSessions pairs records sharing a session number. Either side may be missing; when a
// session has several records on one side the latest dated one wins.
func JoinSessions(attendance []models.AttendanceRecord, progress []models.SessionProgress) []models.SessionEntry {
	bySession := make(map[int]*models.SessionEntry)
	entry := func(n int) *models.SessionEntry {
		if e, ok := bySession[n]; ok {
			return e
		}
		e := &models.SessionEntry{SessionNumber: n}
		bySession[n] = e
		return e
	}
	for i := range attendance {
		rec := attendance[i]
		e := entry(rec.SessionNumber)
		if e.Attendance == nil || rec.DateAttendance.After(e.Attendance.DateAttendance) {
			e.Attendance = &rec
		}
	}
	for i := range progress {
		p := progress[i]
		e := entry(p.SessionNumber)
		if e.Progress == nil || p.DateSession.After(e.Progress.DateSession) {
			e.Progress = &p
		}
	}

	out := make([]models.SessionEntry, 0, len(bySession))
	for _, e := range bySession {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionNumber < out[j].SessionNumber })
	return out
}
