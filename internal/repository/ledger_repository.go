package repository

import (
	"context"
	"net/http"

	"github.com/noah-isme/swimcoach/internal/dto"
	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/pkg/gateway"
)

// AttendancePayload is the upstream create/update body for an attendance record.
type AttendancePayload struct {
	SessionNumber    int    `json:"sessionNumber,omitempty"`
	Status           string `json:"status,omitempty"`
	ReasonForAbsence string `json:"reasonForAbsence,omitempty"`
	DateAttendance   string `json:"dateAttendance,omitempty"`
}

// SessionProgressPayload is the upstream create/update body for a session progress entry.
type SessionProgressPayload struct {
	SessionNumber    int    `json:"sessionNumber,omitempty"`
	TopicCovered     string `json:"topicCovered,omitempty"`
	PerformanceNotes string `json:"performanceNotes,omitempty"`
	DateSession      string `json:"dateSession,omitempty"`
}

// LedgerRepository covers attendance, session progress, milestones and skills of an enrollment.
type LedgerRepository struct {
	sender Sender
}

// NewLedgerRepository constructs the repository.
func NewLedgerRepository(sender Sender) *LedgerRepository {
	return &LedgerRepository{sender: sender}
}

func enrollmentPath(enrollmentID, suffix string) string {
	return "/enrollments/" + escape(enrollmentID) + suffix
}

// ListAttendance returns the attendance records of an enrollment.
func (r *LedgerRepository) ListAttendance(ctx context.Context, enrollmentID string) ([]models.AttendanceRecord, error) {
	resp, err := r.sender.Send(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   enrollmentPath(enrollmentID, "/attendances"),
		Route:  "/enrollments/{id}/attendances",
	})
	if err != nil {
		return nil, err
	}
	items, err := dto.DecodeAttendance(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable attendance list")
	}
	return items, nil
}

// CreateAttendance records attendance for a session.
func (r *LedgerRepository) CreateAttendance(ctx context.Context, enrollmentID string, payload AttendancePayload) (*models.AttendanceRecord, error) {
	return r.attendance(ctx, gateway.Request{
		Method:         http.MethodPost,
		Path:           enrollmentPath(enrollmentID, "/attendances"),
		Route:          "/enrollments/{id}/attendances",
		Body:           payload,
		IdempotencyKey: newIdempotencyKey(),
	})
}

// UpdateAttendance replaces fields of an attendance record.
func (r *LedgerRepository) UpdateAttendance(ctx context.Context, enrollmentID, attendanceID string, payload AttendancePayload) (*models.AttendanceRecord, error) {
	return r.attendance(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   enrollmentPath(enrollmentID, "/attendances/"+escape(attendanceID)),
		Route:  "/enrollments/{id}/attendances/{attendance_id}",
		Body:   payload,
	})
}

// DeleteAttendance removes an attendance record.
func (r *LedgerRepository) DeleteAttendance(ctx context.Context, enrollmentID, attendanceID string) error {
	_, err := r.sender.Send(ctx, gateway.Request{
		Method: http.MethodDelete,
		Path:   enrollmentPath(enrollmentID, "/attendances/"+escape(attendanceID)),
		Route:  "/enrollments/{id}/attendances/{attendance_id}",
	})
	return err
}

func (r *LedgerRepository) attendance(ctx context.Context, req gateway.Request) (*models.AttendanceRecord, error) {
	resp, err := r.sender.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, nil
	}
	item, err := dto.DecodeAttendanceRecord(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable attendance record")
	}
	return &item, nil
}

// ListSessionProgress returns the progress notes of an enrollment.
func (r *LedgerRepository) ListSessionProgress(ctx context.Context, enrollmentID string) ([]models.SessionProgress, error) {
	resp, err := r.sender.Send(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   enrollmentPath(enrollmentID, "/session-progress"),
		Route:  "/enrollments/{id}/session-progress",
	})
	if err != nil {
		return nil, err
	}
	items, err := dto.DecodeSessionProgress(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable session progress list")
	}
	return items, nil
}

// CreateSessionProgress adds notes for a session.
func (r *LedgerRepository) CreateSessionProgress(ctx context.Context, enrollmentID string, payload SessionProgressPayload) (*models.SessionProgress, error) {
	return r.progress(ctx, gateway.Request{
		Method:         http.MethodPost,
		Path:           enrollmentPath(enrollmentID, "/session-progress"),
		Route:          "/enrollments/{id}/session-progress",
		Body:           payload,
		IdempotencyKey: newIdempotencyKey(),
	})
}

// UpdateSessionProgress replaces fields of a progress entry.
func (r *LedgerRepository) UpdateSessionProgress(ctx context.Context, progressID string, payload SessionProgressPayload) (*models.SessionProgress, error) {
	return r.progress(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   "/session-progress/" + escape(progressID),
		Route:  "/session-progress/{id}",
		Body:   payload,
	})
}

// DeleteSessionProgress removes a progress entry.
func (r *LedgerRepository) DeleteSessionProgress(ctx context.Context, progressID string) error {
	_, err := r.sender.Send(ctx, gateway.Request{
		Method: http.MethodDelete,
		Path:   "/session-progress/" + escape(progressID),
		Route:  "/session-progress/{id}",
	})
	return err
}

func (r *LedgerRepository) progress(ctx context.Context, req gateway.Request) (*models.SessionProgress, error) {
	resp, err := r.sender.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, nil
	}
	item, err := dto.DecodeSessionProgressEntry(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable session progress")
	}
	return &item, nil
}

// ListMilestones returns milestone progress of an enrollment.
func (r *LedgerRepository) ListMilestones(ctx context.Context, enrollmentID string) ([]models.ProgressMilestone, error) {
	resp, err := r.sender.Send(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   enrollmentPath(enrollmentID, "/milestones"),
		Route:  "/enrollments/{id}/milestones",
	})
	if err != nil {
		return nil, err
	}
	items, err := dto.DecodeMilestones(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable milestone list")
	}
	return items, nil
}

// ListSkills returns skill assessments of an enrollment.
func (r *LedgerRepository) ListSkills(ctx context.Context, enrollmentID string) ([]models.SkillAssessment, error) {
	resp, err := r.sender.Send(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   enrollmentPath(enrollmentID, "/skills"),
		Route:  "/enrollments/{id}/skills",
	})
	if err != nil {
		return nil, err
	}
	items, err := dto.DecodeSkills(resp.Body)
	if err != nil {
		return nil, decodeFailure(resp, err, "unparseable skill list")
	}
	return items, nil
}
