package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/service"
	"github.com/noah-isme/swimcoach/pkg/response"
)

type reconciliationService interface {
	Reconcile(ctx context.Context, enrollmentID string) (*service.ReconcileTicket, *models.DriftReport, error)
	Latest(ctx context.Context, enrollmentID string) (*models.DriftReport, error)
}

// ReconciliationHandler exposes ledger drift checks.
type ReconciliationHandler struct {
	reconciler reconciliationService
}

// NewReconciliationHandler constructs ReconciliationHandler.
func NewReconciliationHandler(reconciler reconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciler: reconciler}
}

// Reconcile godoc
// @Summary Compare the attendance and progress ledgers of an enrollment
// @Tags Reconciliation
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/reconcile [post]
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	ticket, report, err := h.reconciler.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if ticket != nil {
		response.Accepted(c, ticket)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Latest godoc
// @Summary Latest drift report of an enrollment
// @Tags Reconciliation
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id}/reconciliation [get]
func (h *ReconciliationHandler) Latest(c *gin.Context) {
	report, err := h.reconciler.Latest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
