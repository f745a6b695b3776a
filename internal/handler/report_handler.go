package handler

import (
	"context"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/swimcoach/internal/service"
	"github.com/noah-isme/swimcoach/pkg/response"
)

type reportService interface {
	Generate(ctx context.Context, enrollmentID string, format service.ReportFormat) (*service.ReportFile, error)
	Share(ctx context.Context, enrollmentID string, format service.ReportFormat) (*service.ReportLink, error)
	OpenLink(token string) (*service.ReportFile, error)
}

// ReportHandler serves downloadable progress reports.
type ReportHandler struct {
	reports      reportService
	downloadPath string
}

// NewReportHandler constructs handler. downloadPath is the public route serving shared links.
func NewReportHandler(reports reportService, downloadPath string) *ReportHandler {
	return &ReportHandler{reports: reports, downloadPath: downloadPath}
}

type shareResponse struct {
	service.ReportLink
	URL string `json:"url"`
}

// Progress godoc
// @Summary Download an enrollment progress report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Enrollment ID"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Router /enrollments/{id}/report [get]
func (h *ReportHandler) Progress(c *gin.Context) {
	format, err := service.ParseReportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.reports.Generate(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}

// Share godoc
// @Summary Create a time-limited download link for a progress report
// @Tags Reports
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param format query string false "csv, pdf or xlsx"
// @Success 201 {object} response.Envelope
// @Router /enrollments/{id}/report/share [post]
func (h *ReportHandler) Share(c *gin.Context) {
	format, err := service.ParseReportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	link, err := h.reports.Share(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, shareResponse{
		ReportLink: *link,
		URL:        h.downloadPath + "?token=" + url.QueryEscape(link.Token),
	})
}

// Download godoc
// @Summary Download a shared progress report
// @Tags Reports
// @Produce application/octet-stream
// @Param token query string true "Signed link token"
// @Success 200 {file} file
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	file, err := h.reports.OpenLink(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}
