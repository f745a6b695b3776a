package repository

import (
	"context"
	"net/http"

	"github.com/noah-isme/swimcoach/internal/dto"
	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/pkg/gateway"
)

// CourseRequestDraft is the upstream create payload for a course request.
type CourseRequestDraft struct {
	CourseID           string  `json:"course_id"`
	StudentID          string  `json:"student_id,omitempty"`
	RequestedDayOfWeek string  `json:"requested_day_of_week"`
	RequestedTimeSlot  string  `json:"requested_time_slot"`
	RequestPrice       float64 `json:"request_price"`
	RequestLocation    string  `json:"request_location,omitempty"`
}

// CourseRequestRepository reads and mutates course requests on the backend.
type CourseRequestRepository struct {
	sender Sender
}

// NewCourseRequestRepository constructs the repository.
func NewCourseRequestRepository(sender Sender) *CourseRequestRepository {
	return &CourseRequestRepository{sender: sender}
}

// ListPending returns the instructor's pending requests.
func (r *CourseRequestRepository) ListPending(ctx context.Context) ([]models.CourseRequest, error) {
	return r.list(ctx, "/course-requests/instructor/pending")
}

// ListMine returns the signed-in student's requests.
func (r *CourseRequestRepository) ListMine(ctx context.Context) ([]models.CourseRequest, error) {
	return r.list(ctx, "/course-requests/my-requests")
}

func (r *CourseRequestRepository) list(ctx context.Context, path string) ([]models.CourseRequest, error) {
	resp, err := r.sender.Send(ctx, gateway.Request{Method: http.MethodGet, Path: path, Route: path})
	if err != nil {
		return nil, err
	}
	items, err := dto.DecodeCourseRequests(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable course request list")
	}
	return items, nil
}

// FindByID fetches a single request.
func (r *CourseRequestRepository) FindByID(ctx context.Context, id string) (*models.CourseRequest, error) {
	return r.one(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/course-requests/" + escape(id),
		Route:  "/course-requests/{id}",
	})
}

// Create submits a new request. The call carries an idempotency key.
func (r *CourseRequestRepository) Create(ctx context.Context, draft CourseRequestDraft) (*models.CourseRequest, error) {
	return r.one(ctx, gateway.Request{
		Method:         http.MethodPost,
		Path:           "/course-requests",
		Route:          "/course-requests",
		Body:           draft,
		IdempotencyKey: newIdempotencyKey(),
	})
}

// Approve transitions a pending request to approved.
func (r *CourseRequestRepository) Approve(ctx context.Context, id string) (*models.CourseRequest, error) {
	return r.one(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   "/course-requests/" + escape(id) + "/approve",
		Route:  "/course-requests/{id}/approve",
	})
}

// Reject transitions a pending request to rejected with a reason.
func (r *CourseRequestRepository) Reject(ctx context.Context, id, reason string) (*models.CourseRequest, error) {
	return r.one(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   "/course-requests/" + escape(id) + "/reject",
		Route:  "/course-requests/{id}/reject",
		Body:   map[string]string{"reason": reason},
	})
}

// Cancel withdraws a pending request.
func (r *CourseRequestRepository) Cancel(ctx context.Context, id string) (*models.CourseRequest, error) {
	return r.one(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   "/course-requests/" + escape(id) + "/cancel",
		Route:  "/course-requests/{id}/cancel",
	})
}

func (r *CourseRequestRepository) one(ctx context.Context, req gateway.Request) (*models.CourseRequest, error) {
	resp, err := r.sender.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		// some mutations answer 204; callers fill in the known state
		return nil, nil
	}
	item, err := dto.DecodeCourseRequest(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable course request")
	}
	return &item, nil
}
