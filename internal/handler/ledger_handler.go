package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/service"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
	"github.com/noah-isme/swimcoach/pkg/response"
)

type ledgerService interface {
	ListAttendance(ctx context.Context, enrollmentID string) []models.AttendanceRecord
	CreateAttendance(ctx context.Context, enrollmentID string, in service.AttendanceInput) (*models.AttendanceRecord, error)
	UpdateAttendance(ctx context.Context, enrollmentID, attendanceID string, in service.AttendanceInput) (*models.AttendanceRecord, error)
	DeleteAttendance(ctx context.Context, enrollmentID, attendanceID string) error
	ListSessionProgress(ctx context.Context, enrollmentID string) []models.SessionProgress
	CreateSessionProgress(ctx context.Context, enrollmentID string, in service.SessionProgressInput) (*models.SessionProgress, error)
	UpdateSessionProgress(ctx context.Context, progressID string, in service.SessionProgressInput) (*models.SessionProgress, error)
	DeleteSessionProgress(ctx context.Context, progressID string) error
	Timeline(ctx context.Context, enrollmentID string) []models.SessionEntry
	ListMilestones(ctx context.Context, enrollmentID string) []models.ProgressMilestone
	ListSkills(ctx context.Context, enrollmentID string) []models.SkillAssessment
}

// LedgerHandler exposes per-session attendance and progress notes.
type LedgerHandler struct {
	ledger ledgerService
}

// NewLedgerHandler constructs LedgerHandler.
func NewLedgerHandler(ledger ledgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// ListAttendance godoc
// @Summary List attendance records of an enrollment
// @Tags Ledger
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/attendances [get]
func (h *LedgerHandler) ListAttendance(c *gin.Context) {
	items := h.ledger.ListAttendance(c.Request.Context(), c.Param("id"))
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// CreateAttendance godoc
// @Summary Record attendance for a session
// @Tags Ledger
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.AttendanceInput true "Attendance record"
// @Success 201 {object} response.Envelope
// @Router /enrollments/{id}/attendances [post]
func (h *LedgerHandler) CreateAttendance(c *gin.Context) {
	var in service.AttendanceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.ledger.CreateAttendance(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateAttendance godoc
// @Summary Edit an attendance record
// @Tags Ledger
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param attendanceId path string true "Attendance ID"
// @Param payload body service.AttendanceInput true "Attendance record"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/attendances/{attendanceId} [put]
func (h *LedgerHandler) UpdateAttendance(c *gin.Context) {
	var in service.AttendanceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.ledger.UpdateAttendance(c.Request.Context(), c.Param("id"), c.Param("attendanceId"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// DeleteAttendance godoc
// @Summary Delete an attendance record
// @Tags Ledger
// @Param id path string true "Enrollment ID"
// @Param attendanceId path string true "Attendance ID"
// @Success 204
// @Router /enrollments/{id}/attendances/{attendanceId} [delete]
func (h *LedgerHandler) DeleteAttendance(c *gin.Context) {
	if err := h.ledger.DeleteAttendance(c.Request.Context(), c.Param("id"), c.Param("attendanceId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSessionProgress godoc
// @Summary List session progress notes of an enrollment
// @Tags Ledger
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/session-progress [get]
func (h *LedgerHandler) ListSessionProgress(c *gin.Context) {
	items := h.ledger.ListSessionProgress(c.Request.Context(), c.Param("id"))
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// CreateSessionProgress godoc
// @Summary Write progress notes for a session
// @Tags Ledger
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.SessionProgressInput true "Progress notes"
// @Success 201 {object} response.Envelope
// @Router /enrollments/{id}/session-progress [post]
func (h *LedgerHandler) CreateSessionProgress(c *gin.Context) {
	var in service.SessionProgressInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.ledger.CreateSessionProgress(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateSessionProgress godoc
// @Summary Edit session progress notes
// @Tags Ledger
// @Accept json
// @Produce json
// @Param progressId path string true "Progress entry ID"
// @Param payload body service.SessionProgressInput true "Progress notes"
// @Success 200 {object} response.Envelope
// @Router /session-progress/{progressId} [put]
func (h *LedgerHandler) UpdateSessionProgress(c *gin.Context) {
	var in service.SessionProgressInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.ledger.UpdateSessionProgress(c.Request.Context(), c.Param("progressId"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// DeleteSessionProgress godoc
// @Summary Delete session progress notes
// @Tags Ledger
// @Param progressId path string true "Progress entry ID"
// @Success 204
// @Router /session-progress/{progressId} [delete]
func (h *LedgerHandler) DeleteSessionProgress(c *gin.Context) {
	if err := h.ledger.DeleteSessionProgress(c.Request.Context(), c.Param("progressId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Timeline godoc
// @Summary Attendance and notes joined per session
// @Tags Ledger
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/timeline [get]
func (h *LedgerHandler) Timeline(c *gin.Context) {
	response.OK(c, h.ledger.Timeline(c.Request.Context(), c.Param("id")))
}

// Milestones godoc
// @Summary List progress milestones of an enrollment
// @Tags Ledger
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/milestones [get]
func (h *LedgerHandler) Milestones(c *gin.Context) {
	items := h.ledger.ListMilestones(c.Request.Context(), c.Param("id"))
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Skills godoc
// @Summary List skill assessments of an enrollment
// @Tags Ledger
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/skills [get]
func (h *LedgerHandler) Skills(c *gin.Context) {
	items := h.ledger.ListSkills(c.Request.Context(), c.Param("id"))
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}
