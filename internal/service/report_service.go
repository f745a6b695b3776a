package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/swimcoach/internal/models"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
	"github.com/noah-isme/swimcoach/pkg/export"
	"github.com/noah-isme/swimcoach/pkg/storage"
)

// ReportFormat selects the rendered file type.
type ReportFormat string

// Supported report formats.
const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatXLSX ReportFormat = "xlsx"
)

var reportContentTypes = map[ReportFormat]string{
	ReportFormatCSV:  "text/csv",
	ReportFormatPDF:  "application/pdf",
	ReportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type enrollmentGetter interface {
	Get(ctx context.Context, id string) (*models.Enrollment, error)
}

type timelineProvider interface {
	Timeline(ctx context.Context, enrollmentID string) []models.SessionEntry
}

type reportStore interface {
	Save(name string, data []byte) error
	Read(name string) ([]byte, error)
	Prune(maxAge time.Duration) ([]string, error)
}

type linkSigner interface {
	Sign(reportID, relPath string) (string, time.Time, error)
	Verify(token string) (string, string, time.Time, error)
	TTL() time.Duration
}

// ReportLink is a time-limited handle to a stored report.
type ReportLink struct {
	Token     string    `json:"token"`
	Filename  string    `json:"filename"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ReportFile is a rendered progress report.
type ReportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService renders an enrollment's session timeline and completion as a downloadable file.
type ReportService struct {
	enrollments enrollmentGetter
	ledger      timelineProvider
	renderers   map[ReportFormat]renderer
	title       string
	logger      *zap.Logger
	now         func() time.Time

	store  reportStore
	signer linkSigner
}

// NewReportService constructs ReportService with the CSV, PDF and XLSX renderers.
func NewReportService(enrollments enrollmentGetter, ledger timelineProvider, title string, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if title == "" {
		title = "Swim Progress Report"
	}
	return &ReportService{
		enrollments: enrollments,
		ledger:      ledger,
		renderers: map[ReportFormat]renderer{
			ReportFormatCSV:  export.NewCSVExporter(),
			ReportFormatPDF:  export.NewPDFExporter(),
			ReportFormatXLSX: export.NewXLSXExporter(),
		},
		title:  title,
		logger: logger,
		now:    time.Now,
	}
}

// UseLinks enables shareable download links backed by store.
func (s *ReportService) UseLinks(store reportStore, signer linkSigner) {
	s.store = store
	s.signer = signer
}

// LinksEnabled reports whether Share can be used.
func (s *ReportService) LinksEnabled() bool {
	return s.store != nil && s.signer != nil
}

// ParseReportFormat validates a format name; empty means CSV.
func ParseReportFormat(raw string) (ReportFormat, error) {
	format := ReportFormat(strings.ToLower(strings.TrimSpace(raw)))
	if format == "" {
		return ReportFormatCSV, nil
	}
	if _, ok := reportContentTypes[format]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be one of csv, pdf, xlsx")
	}
	return format, nil
}

// Generate renders the progress report of one enrollment.
func (s *ReportService) Generate(ctx context.Context, enrollmentID string, format ReportFormat) (*ReportFile, error) {
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	enrollment, err := s.enrollments.Get(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	timeline := s.ledger.Timeline(ctx, enrollment.ID)

	data, err := r.Render(s.dataset(*enrollment, timeline))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	s.logger.Info("progress report generated",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("format", string(format)),
		zap.Int("sessions", len(timeline)))
	return &ReportFile{
		Filename:    fmt.Sprintf("progress-%s-%s.%s", enrollment.ID, s.now().UTC().Format("20060102"), format),
		ContentType: reportContentTypes[format],
		Data:        data,
	}, nil
}

// Share renders a report, stores it and returns a signed link to it.
func (s *ReportService) Share(ctx context.Context, enrollmentID string, format ReportFormat) (*ReportLink, error) {
	if !s.LinksEnabled() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report links are disabled")
	}
	file, err := s.Generate(ctx, enrollmentID, format)
	if err != nil {
		return nil, err
	}
	reportID := uuid.NewString()
	relPath := path.Join(reportID, file.Filename)
	if err := s.store.Save(relPath, file.Data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}
	token, expiresAt, err := s.signer.Sign(reportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign report link")
	}
	s.logger.Info("progress report shared",
		zap.String("report_id", reportID),
		zap.String("enrollment_id", enrollmentID),
		zap.Time("expires_at", expiresAt))
	return &ReportLink{Token: token, Filename: file.Filename, ExpiresAt: expiresAt}, nil
}

// OpenLink resolves a signed token to the stored report.
func (s *ReportService) OpenLink(token string) (*ReportFile, error) {
	if !s.LinksEnabled() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report links are disabled")
	}
	_, relPath, _, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrLinkExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	data, err := s.store.Read(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report no longer available")
	}
	filename := path.Base(relPath)
	format := ReportFormat(strings.TrimPrefix(path.Ext(filename), "."))
	contentType, ok := reportContentTypes[format]
	if !ok {
		contentType = "application/octet-stream"
	}
	return &ReportFile{Filename: filename, ContentType: contentType, Data: data}, nil
}

// PruneLinks deletes stored reports whose links can no longer be valid.
func (s *ReportService) PruneLinks() int {
	if !s.LinksEnabled() {
		return 0
	}
	deleted, err := s.store.Prune(s.signer.TTL())
	if err != nil {
		s.logger.Warn("report prune failed", zap.Error(err))
	}
	if len(deleted) > 0 {
		s.logger.Info("expired reports pruned", zap.Int("count", len(deleted)))
	}
	return len(deleted)
}

func (s *ReportService) dataset(e models.Enrollment, timeline []models.SessionEntry) export.Dataset {
	completion := models.ComputeCompletion(e)
	completionText := strconv.Itoa(completion.Percent) + "%"
	if completion.Misconfigured {
		completionText += " (no session target set)"
	}
	course := "-"
	if e.Course != nil && e.Course.Title != "" {
		course = e.Course.Title
	}

	summary := []export.SummaryLine{
		{Label: "Enrollment", Value: e.ID},
		{Label: "Course", Value: course},
		{Label: "Status", Value: string(e.Status)},
		{Label: "Started", Value: formatDate(e.StartDate)},
		{Label: "Sessions attended", Value: fmt.Sprintf("%d of %d (max %d)", e.ActualSessionsAttended, e.TargetSessions, e.MaxSessions)},
		{Label: "Completion", Value: completionText},
	}

	headers := []string{"Session", "Date", "Attendance", "Reason", "Topic", "Notes"}
	rows := make([]map[string]string, 0, len(timeline))
	for _, entry := range timeline {
		row := map[string]string{"Session": strconv.Itoa(entry.SessionNumber)}
		if a := entry.Attendance; a != nil {
			row["Date"] = formatDate(a.DateAttendance)
			row["Attendance"] = string(a.Status)
			row["Reason"] = a.ReasonForAbsence
		}
		if p := entry.Progress; p != nil {
			if row["Date"] == "" {
				row["Date"] = formatDate(p.DateSession)
			}
			row["Topic"] = p.TopicCovered
			row["Notes"] = p.PerformanceNotes
		}
		rows = append(rows, row)
	}
	return export.Dataset{Title: s.title, Summary: summary, Headers: headers, Rows: rows}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
