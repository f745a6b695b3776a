package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/swimcoach/internal/dto"
	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/service"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
	"github.com/noah-isme/swimcoach/pkg/response"
)

type enrollmentService interface {
	LoadInstructor(ctx context.Context) ([]models.Enrollment, error)
	LoadStudent(ctx context.Context) ([]models.Enrollment, error)
	Get(ctx context.Context, id string) (*models.Enrollment, error)
	PatchStatus(ctx context.Context, id string, req service.PatchEnrollmentStatusRequest) (*models.Enrollment, error)
	RecordSessionAttendance(ctx context.Context, id string, sessionsAttended int) (*models.Enrollment, error)
	Completion(ctx context.Context, id string) (*models.Enrollment, models.Completion, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Instructor godoc
// @Summary List the instructor's enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/instructor [get]
func (h *EnrollmentHandler) Instructor(c *gin.Context) {
	items, err := h.enrollments.LoadInstructor(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Mine godoc
// @Summary List the student's enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/mine [get]
func (h *EnrollmentHandler) Mine(c *gin.Context) {
	items, err := h.enrollments.LoadStudent(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// PatchStatus godoc
// @Summary Complete or cancel an enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.PatchEnrollmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/status [patch]
func (h *EnrollmentHandler) PatchStatus(c *gin.Context) {
	var req service.PatchEnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.enrollments.PatchStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// RecordAttendance godoc
// @Summary Set the number of sessions attended
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.RecordAttendanceRequest true "Attendance count"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/attendance [patch]
func (h *EnrollmentHandler) RecordAttendance(c *gin.Context) {
	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.SessionsAttended == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sessionsAttended is required"))
		return
	}
	updated, err := h.enrollments.RecordSessionAttendance(c.Request.Context(), c.Param("id"), *req.SessionsAttended)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Completion godoc
// @Summary Completion percentage of an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/completion [get]
func (h *EnrollmentHandler) Completion(c *gin.Context) {
	enrollment, completion, err := h.enrollments.Completion(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.CompletionResponse{EnrollmentID: enrollment.ID, Completion: completion})
}

// Get godoc
// @Summary Show one enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	item, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}
