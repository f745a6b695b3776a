package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/session"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
)

type enrollmentRepository interface {
	ListInstructor(ctx context.Context) ([]models.Enrollment, error)
	ListStudent(ctx context.Context) ([]models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Patch(ctx context.Context, id string, patch models.EnrollmentPatch) (*models.Enrollment, error)
	PatchAttendance(ctx context.Context, id string, attended int) (*models.Enrollment, error)
}

// PatchEnrollmentStatusRequest describes a status change.
type PatchEnrollmentStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=ACTIVE COMPLETED CANCELLED"`
	Notes  *string `json:"notes"`
}

// RecordAttendanceRequest sets the aggregate attended session count.
type RecordAttendanceRequest struct {
	SessionsAttended *int `json:"sessionsAttended" validate:"required"`
}

// EnrollmentService owns enrollment status transitions and session accounting.
// Mutations are confirmed by the backend before the local book changes.
type EnrollmentService struct {
	repo      enrollmentRepository
	book      *LocalView[models.Enrollment]
	guard     *inflightGuard
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, book *LocalView[models.Enrollment], validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if book == nil {
		book = NewEnrollmentBook(0)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, book: book, guard: newInflightGuard(), validator: validate, logger: logger, now: time.Now}
}

const (
	enrollmentListInstructor = "instructor"
	enrollmentListStudent    = "student"
)

// LoadInstructor fetches the instructor's enrollments.
func (s *EnrollmentService) LoadInstructor(ctx context.Context) ([]models.Enrollment, error) {
	return s.load(ctx, enrollmentListInstructor, s.repo.ListInstructor)
}

// LoadStudent fetches the student's enrollments with their courses.
func (s *EnrollmentService) LoadStudent(ctx context.Context) ([]models.Enrollment, error) {
	return s.load(ctx, enrollmentListStudent, s.repo.ListStudent)
}

func (s *EnrollmentService) load(ctx context.Context, list string, fetch func(context.Context) ([]models.Enrollment, error)) ([]models.Enrollment, error) {
	ticket := s.book.BeginLoad(session.Subject(ctx), list)
	items, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if !s.book.Commit(ticket, items) {
		s.logger.Debug("superseded enrollment load not stored", zap.String("list", list))
	}
	return items, nil
}

// Get reads an enrollment from the server with the caller's credentials.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id is required")
	}
	scope := session.Subject(ctx)
	ticket := s.book.BeginRead(scope)
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
			s.book.Forget(scope, id)
		}
		return nil, err
	}
	if e == nil {
		s.book.Forget(scope, id)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	s.book.Refresh(ticket, *e)
	return e, nil
}

// current is the state a mutation is checked against: what this caller last confirmed or
// loaded, otherwise a fresh read.
func (s *EnrollmentService) current(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := s.book.Get(session.Subject(ctx), strings.TrimSpace(id)); ok {
		return &e, nil
	}
	return s.Get(ctx, id)
}

// PatchStatus moves an enrollment forward. Only ACTIVE→COMPLETED and ACTIVE→CANCELLED are allowed.
func (s *EnrollmentService) PatchStatus(ctx context.Context, id string, req PatchEnrollmentStatusRequest) (*models.Enrollment, error) {
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment status")
	}
	next := models.EnrollmentStatus(req.Status)

	release, ok := s.guard.acquire("enrollment:" + id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInFlight, "enrollment is already being updated")
	}
	defer release()

	current, err := s.current(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move enrollment from "+string(current.Status)+" to "+string(next))
	}

	patch := models.EnrollmentPatch{Status: &next, Notes: req.Notes}
	if next.Terminal() && current.EndDate == nil {
		end := s.now().UTC().Truncate(24 * time.Hour)
		patch.EndDate = &end
	}
	updated, err := s.repo.Patch(ctx, current.ID, patch)
	if err != nil {
		return nil, err
	}

	result := *current
	if updated != nil {
		result = *updated
	} else {
		result.EndDate = patch.EndDate
		if req.Notes != nil {
			result.Notes = req.Notes
		}
	}
	result.Status = next
	s.book.Apply(session.Subject(ctx), result)
	s.logger.Info("enrollment status changed", zap.String("enrollment_id", id), zap.String("status", string(next)))
	return &result, nil
}

// RecordSessionAttendance sets actual_sessions_attended, clamped to [0, max_sessions_allowed].
func (s *EnrollmentService) RecordSessionAttendance(ctx context.Context, id string, sessionsAttended int) (*models.Enrollment, error) {
	release, ok := s.guard.acquire("enrollment:" + id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInFlight, "enrollment is already being updated")
	}
	defer release()

	current, err := s.current(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment is "+string(current.Status))
	}

	clamped := models.ClampSessions(sessionsAttended, current.MaxSessions)
	if clamped != sessionsAttended {
		s.logger.Debug("clamped sessions attended",
			zap.String("enrollment_id", id),
			zap.Int("requested", sessionsAttended),
			zap.Int("sent", clamped))
	}
	updated, err := s.repo.PatchAttendance(ctx, current.ID, clamped)
	if err != nil {
		return nil, err
	}

	result := *current
	result.ActualSessionsAttended = clamped
	if updated != nil {
		result = *updated
	}
	s.book.Apply(session.Subject(ctx), result)
	return &result, nil
}

// ComputeCompletion derives the completion percentage of an enrollment.
func (s *EnrollmentService) ComputeCompletion(e models.Enrollment) models.Completion {
	completion := models.ComputeCompletion(e)
	if completion.Misconfigured {
		s.logger.Warn("enrollment has no session target", zap.String("enrollment_id", e.ID))
	}
	return completion
}

// Completion loads an enrollment and derives its completion.
func (s *EnrollmentService) Completion(ctx context.Context, id string) (*models.Enrollment, models.Completion, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, models.Completion{}, err
	}
	return e, s.ComputeCompletion(*e), nil
}
