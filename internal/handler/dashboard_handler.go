package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/swimcoach/internal/dto"
	"github.com/noah-isme/swimcoach/pkg/response"
)

type dashboardService interface {
	Student(ctx context.Context) (*dto.StudentDashboardResponse, error)
	Instructor(ctx context.Context) (*dto.InstructorDashboardResponse, error)
}

// DashboardHandler serves dashboard endpoints.
type DashboardHandler struct {
	dashboard dashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard dashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Student godoc
// @Summary Student dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/student [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	resp, err := h.dashboard.Student(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// Instructor godoc
// @Summary Instructor dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/instructor [get]
func (h *DashboardHandler) Instructor(c *gin.Context) {
	resp, err := h.dashboard.Instructor(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}
