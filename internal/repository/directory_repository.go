package repository

import (
	"context"
	"net/http"

	"github.com/noah-isme/swimcoach/internal/dto"
	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/pkg/gateway"
)

// DirectoryRepository lists instructors and courses for search.
type DirectoryRepository struct {
	sender Sender
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(sender Sender) *DirectoryRepository {
	return &DirectoryRepository{sender: sender}
}

// ListInstructors returns the instructor directory.
func (r *DirectoryRepository) ListInstructors(ctx context.Context) ([]models.Instructor, error) {
	resp, err := r.sender.Send(ctx, gateway.Request{Method: http.MethodGet, Path: "/instructors", Route: "/instructors"})
	if err != nil {
		return nil, err
	}
	items, err := dto.DecodeInstructors(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable instructor list")
	}
	return items, nil
}

// ListCourses returns the course directory.
func (r *DirectoryRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	resp, err := r.sender.Send(ctx, gateway.Request{Method: http.MethodGet, Path: "/courses", Route: "/courses"})
	if err != nil {
		return nil, err
	}
	items, err := dto.DecodeCourses(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable course list")
	}
	return items, nil
}
