package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/swimcoach/internal/dto"
	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/repository"
	"github.com/noah-isme/swimcoach/internal/session"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
	"github.com/noah-isme/swimcoach/pkg/geo"
)

type courseRequestRepository interface {
	ListPending(ctx context.Context) ([]models.CourseRequest, error)
	ListMine(ctx context.Context) ([]models.CourseRequest, error)
	FindByID(ctx context.Context, id string) (*models.CourseRequest, error)
	Create(ctx context.Context, draft repository.CourseRequestDraft) (*models.CourseRequest, error)
	Approve(ctx context.Context, id string) (*models.CourseRequest, error)
	Reject(ctx context.Context, id, reason string) (*models.CourseRequest, error)
	Cancel(ctx context.Context, id string) (*models.CourseRequest, error)
}

// LocationInput is a requested lesson location: free text, coordinates, or both.
type LocationInput struct {
	Text    string   `json:"text"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Address string   `json:"address"`
}

// SubmitCourseRequest describes a student's request to join a course.
type SubmitCourseRequest struct {
	CourseID  string         `json:"courseId" validate:"required"`
	StudentID string         `json:"studentId"`
	DayOfWeek string         `json:"dayOfWeek" validate:"required"`
	TimeSlot  string         `json:"timeSlot" validate:"required"`
	Price     float64        `json:"price" validate:"gte=0"`
	Location  *LocationInput `json:"location"`
}

// RejectCourseRequest carries the instructor's reason.
type RejectCourseRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CourseRequestService drives the pending → approved/rejected/cancelled state machine.
type CourseRequestService struct {
	repo      courseRequestRepository
	board     *LocalView[models.CourseRequest]
	guard     *inflightGuard
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseRequestService constructs CourseRequestService.
func NewCourseRequestService(repo courseRequestRepository, board *LocalView[models.CourseRequest], validate *validator.Validate, logger *zap.Logger) *CourseRequestService {
	if board == nil {
		board = NewRequestBoard(0)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseRequestService{repo: repo, board: board, guard: newInflightGuard(), validator: validate, logger: logger}
}

const (
	requestListPending = "pending"
	requestListMine    = "mine"
)

// LoadPending fetches the instructor's pending requests and refreshes the board.
func (s *CourseRequestService) LoadPending(ctx context.Context) ([]models.CourseRequest, error) {
	return s.load(ctx, requestListPending, s.repo.ListPending)
}

// LoadMine fetches the student's own requests and refreshes the board.
func (s *CourseRequestService) LoadMine(ctx context.Context) ([]models.CourseRequest, error) {
	return s.load(ctx, requestListMine, s.repo.ListMine)
}

// load always answers with what the server returned; a superseded result is just not stored.
func (s *CourseRequestService) load(ctx context.Context, list string, fetch func(context.Context) ([]models.CourseRequest, error)) ([]models.CourseRequest, error) {
	ticket := s.board.BeginLoad(session.Subject(ctx), list)
	items, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if !s.board.Commit(ticket, items) {
		s.logger.Debug("superseded course request load not stored", zap.String("list", list))
	}
	return items, nil
}

// Get reads a request from the server with the caller's credentials.
func (s *CourseRequestService) Get(ctx context.Context, id string) (*models.CourseRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course request id is required")
	}
	scope := session.Subject(ctx)
	ticket := s.board.BeginRead(scope)
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
			s.board.Forget(scope, id)
		}
		return nil, err
	}
	if req == nil {
		s.board.Forget(scope, id)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course request not found")
	}
	s.board.Refresh(ticket, *req)
	return req, nil
}

// Submit creates a pending request.
func (s *CourseRequestService) Submit(ctx context.Context, req SubmitCourseRequest) (*models.CourseRequest, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	req.DayOfWeek = strings.TrimSpace(req.DayOfWeek)
	req.TimeSlot = strings.TrimSpace(req.TimeSlot)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course request payload")
	}
	location, err := buildRequestLocation(req.Location)
	if err != nil {
		return nil, err
	}

	studentID := strings.TrimSpace(req.StudentID)
	if studentID == "" {
		studentID = session.Subject(ctx)
		if studentID == "anonymous" {
			studentID = ""
		}
	}
	created, err := s.repo.Create(ctx, repository.CourseRequestDraft{
		CourseID:           req.CourseID,
		StudentID:          studentID,
		RequestedDayOfWeek: req.DayOfWeek,
		RequestedTimeSlot:  req.TimeSlot,
		RequestPrice:       req.Price,
		RequestLocation:    dto.EncodeRequestLocation(location),
	})
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, appErrors.Clone(appErrors.ErrUnknownServer, "backend returned no course request")
	}
	if created.Location.Kind == models.RequestLocationNone {
		created.Location = location
	}
	s.board.Append(session.Subject(ctx), requestListMine, *created)
	s.logger.Info("course request submitted", zap.String("request_id", created.ID), zap.String("course_id", created.CourseID))
	return created, nil
}

func buildRequestLocation(in *LocationInput) (models.RequestLocation, error) {
	if in == nil {
		return models.RequestLocation{}, nil
	}
	if in.Lat != nil || in.Lng != nil {
		if in.Lat == nil || in.Lng == nil {
			return models.RequestLocation{}, appErrors.Clone(appErrors.ErrValidation, "location needs both lat and lng")
		}
		point := geo.Point{Lat: *in.Lat, Lng: *in.Lng}
		if err := point.Validate(); err != nil {
			return models.RequestLocation{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid location")
		}
		address := strings.TrimSpace(in.Address)
		if address == "" {
			address = strings.TrimSpace(in.Text)
		}
		return models.RequestLocation{
			Kind:     models.RequestLocationCoordinates,
			Location: &models.Location{Lat: point.Lat, Lng: point.Lng, Address: address},
		}, nil
	}
	if text := strings.TrimSpace(in.Text); text != "" {
		return models.RequestLocation{Kind: models.RequestLocationText, Text: text}, nil
	}
	return models.RequestLocation{}, nil
}

// Approve transitions a pending request to approved. The backend creates the enrollment.
func (s *CourseRequestService) Approve(ctx context.Context, id string) (*models.CourseRequest, error) {
	return s.transition(ctx, id, models.CourseRequestApproved, func(ctx context.Context) (*models.CourseRequest, error) {
		return s.repo.Approve(ctx, id)
	}, nil)
}

// Reject transitions a pending request to rejected with a non-empty reason.
func (s *CourseRequestService) Reject(ctx context.Context, id, reason string) (*models.CourseRequest, error) {
	reason = strings.TrimSpace(reason)
	if err := s.validator.Struct(RejectCourseRequest{Reason: reason}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}
	return s.transition(ctx, id, models.CourseRequestRejected, func(ctx context.Context) (*models.CourseRequest, error) {
		return s.repo.Reject(ctx, id, reason)
	}, &reason)
}

// Cancel withdraws a pending request on behalf of the student.
func (s *CourseRequestService) Cancel(ctx context.Context, id string) (*models.CourseRequest, error) {
	return s.transition(ctx, id, models.CourseRequestCancelled, func(ctx context.Context) (*models.CourseRequest, error) {
		return s.repo.Cancel(ctx, id)
	}, nil)
}

// transition guards and performs one state change. Requests the caller already saw leave
// pending are refused without a network call; a backend conflict maps to the same error.
func (s *CourseRequestService) transition(ctx context.Context, id string, target models.CourseRequestStatus, call func(context.Context) (*models.CourseRequest, error), reason *string) (*models.CourseRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request id is required")
	}
	release, ok := s.guard.acquire("request:" + id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInFlight, "course request is already being updated")
	}
	defer release()

	scope := session.Subject(ctx)
	known, isKnown := s.board.Get(scope, id)
	if isKnown && !known.IsPending() {
		return nil, appErrors.Clone(appErrors.ErrNotPending, "course request is "+string(known.Status))
	}

	updated, err := call(ctx)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrConflict.Code) {
			e := appErrors.Wrap(err, appErrors.ErrNotPending.Code, appErrors.ErrNotPending.Status, appErrors.ErrNotPending.Message)
			if upstream := appErrors.FromError(err); upstream != nil {
				e.UpstreamStatus = upstream.UpstreamStatus
				e.UpstreamBody = upstream.UpstreamBody
			}
			return nil, e
		}
		return nil, err
	}

	result := known
	if updated != nil {
		result = *updated
	}
	if result.ID == "" {
		result.ID = id
	}
	result.Status = target
	result.RejectionReason = nil
	if target == models.CourseRequestRejected {
		r := *reason
		result.RejectionReason = &r
	}
	s.board.Apply(scope, result)
	s.logger.Info("course request transitioned", zap.String("request_id", id), zap.String("status", string(target)))
	return &result, nil
}
