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

type courseRequestService interface {
	LoadPending(ctx context.Context) ([]models.CourseRequest, error)
	LoadMine(ctx context.Context) ([]models.CourseRequest, error)
	Get(ctx context.Context, id string) (*models.CourseRequest, error)
	Submit(ctx context.Context, req service.SubmitCourseRequest) (*models.CourseRequest, error)
	Approve(ctx context.Context, id string) (*models.CourseRequest, error)
	Reject(ctx context.Context, id, reason string) (*models.CourseRequest, error)
	Cancel(ctx context.Context, id string) (*models.CourseRequest, error)
}

// CourseRequestHandler exposes the course request workflow.
type CourseRequestHandler struct {
	requests courseRequestService
}

// NewCourseRequestHandler constructs CourseRequestHandler.
func NewCourseRequestHandler(requests courseRequestService) *CourseRequestHandler {
	return &CourseRequestHandler{requests: requests}
}

// Pending godoc
// @Summary List pending course requests for the instructor
// @Tags CourseRequests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /course-requests/pending [get]
func (h *CourseRequestHandler) Pending(c *gin.Context) {
	items, err := h.requests.LoadPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Mine godoc
// @Summary List the student's own course requests
// @Tags CourseRequests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /course-requests/mine [get]
func (h *CourseRequestHandler) Mine(c *gin.Context) {
	items, err := h.requests.LoadMine(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Submit godoc
// @Summary Request a place in a course
// @Tags CourseRequests
// @Accept json
// @Produce json
// @Param payload body service.SubmitCourseRequest true "Course request"
// @Success 201 {object} response.Envelope
// @Router /course-requests [post]
func (h *CourseRequestHandler) Submit(c *gin.Context) {
	var req service.SubmitCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.requests.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Approve godoc
// @Summary Approve a pending course request
// @Tags CourseRequests
// @Produce json
// @Param id path string true "Course request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /course-requests/{id}/approve [put]
func (h *CourseRequestHandler) Approve(c *gin.Context) {
	updated, err := h.requests.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Reject godoc
// @Summary Reject a pending course request
// @Tags CourseRequests
// @Accept json
// @Produce json
// @Param id path string true "Course request ID"
// @Param payload body service.RejectCourseRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /course-requests/{id}/reject [put]
func (h *CourseRequestHandler) Reject(c *gin.Context) {
	var req service.RejectCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.requests.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Cancel godoc
// @Summary Withdraw a pending course request
// @Tags CourseRequests
// @Produce json
// @Param id path string true "Course request ID"
// @Success 200 {object} response.Envelope
// @Router /course-requests/{id}/cancel [put]
func (h *CourseRequestHandler) Cancel(c *gin.Context) {
	updated, err := h.requests.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Get godoc
// @Summary Show one course request
// @Tags CourseRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /course-requests/{id} [get]
func (h *CourseRequestHandler) Get(c *gin.Context) {
	item, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}
