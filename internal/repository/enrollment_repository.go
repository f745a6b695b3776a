package repository

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/swimcoach/internal/dto"
	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/pkg/gateway"
)

// EnrollmentRepository reads and patches enrollments on the backend.
type EnrollmentRepository struct {
	sender Sender
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(sender Sender) *EnrollmentRepository {
	return &EnrollmentRepository{sender: sender}
}

// ListInstructor returns enrollments for the signed-in instructor.
func (r *EnrollmentRepository) ListInstructor(ctx context.Context) ([]models.Enrollment, error) {
	return r.list(ctx, gateway.Request{Method: http.MethodGet, Path: "/enrollments/instructor", Route: "/enrollments/instructor"})
}

// ListStudent returns the signed-in student's enrollments with the nested course.
func (r *EnrollmentRepository) ListStudent(ctx context.Context) ([]models.Enrollment, error) {
	return r.list(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/enrollments/my",
		Route:  "/enrollments/my",
		Query:  url.Values{"include": []string{"request.Course"}},
	})
}

func (r *EnrollmentRepository) list(ctx context.Context, req gateway.Request) ([]models.Enrollment, error) {
	resp, err := r.sender.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	items, err := dto.DecodeEnrollments(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable enrollment list")
	}
	return items, nil
}

// FindByID fetches one enrollment.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return r.one(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/enrollments/" + escape(id),
		Route:  "/enrollments/{id}",
	})
}

// Patch sends partial enrollment fields.
func (r *EnrollmentRepository) Patch(ctx context.Context, id string, patch models.EnrollmentPatch) (*models.Enrollment, error) {
	return r.one(ctx, gateway.Request{
		Method: http.MethodPatch,
		Path:   "/enrollments/" + escape(id),
		Route:  "/enrollments/{id}",
		Body:   patch,
	})
}

// PatchAttendance sets actual_sessions_attended. Callers clamp the value first.
func (r *EnrollmentRepository) PatchAttendance(ctx context.Context, id string, attended int) (*models.Enrollment, error) {
	return r.one(ctx, gateway.Request{
		Method: http.MethodPatch,
		Path:   "/enrollments/" + escape(id) + "/attendance",
		Route:  "/enrollments/{id}/attendance",
		Body:   map[string]int{"actual_sessions_attended": attended},
	})
}

func (r *EnrollmentRepository) one(ctx context.Context, req gateway.Request) (*models.Enrollment, error) {
	resp, err := r.sender.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, nil
	}
	item, err := dto.DecodeEnrollment(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable enrollment")
	}
	return &item, nil
}
