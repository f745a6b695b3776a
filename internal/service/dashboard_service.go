package service

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/swimcoach/internal/dto"
	"github.com/noah-isme/swimcoach/internal/models"
)

type requestLoader interface {
	LoadPending(ctx context.Context) ([]models.CourseRequest, error)
	LoadMine(ctx context.Context) ([]models.CourseRequest, error)
}

type enrollmentLoader interface {
	LoadInstructor(ctx context.Context) ([]models.Enrollment, error)
	LoadStudent(ctx context.Context) ([]models.Enrollment, error)
}

type ledgerLister interface {
	ListAttendance(ctx context.Context, enrollmentID string) []models.AttendanceRecord
	ListSessionProgress(ctx context.Context, enrollmentID string) []models.SessionProgress
	ListMilestones(ctx context.Context, enrollmentID string) []models.ProgressMilestone
	ListSkills(ctx context.Context, enrollmentID string) []models.SkillAssessment
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	// Concurrency bounds parallel per-enrollment fetches.
	Concurrency int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Requests    requestLoader
	Enrollments enrollmentLoader
	Ledger      ledgerLister
	Metrics     degradeRecorder
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// DashboardService composes dashboard payloads from independent widgets fetched concurrently.
// A failing widget is reported as degraded and rendered empty; it never fails the page.
type DashboardService struct {
	requests    requestLoader
	enrollments enrollmentLoader
	ledger      ledgerLister
	metrics     degradeRecorder
	logger      *zap.Logger
	cfg         DashboardServiceConfig
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &DashboardService{
		requests:    params.Requests,
		enrollments: params.Enrollments,
		ledger:      params.Ledger,
		metrics:     params.Metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

type degradedSet struct {
	mu    sync.Mutex
	names []string
}

func (d *degradedSet) add(name string) {
	d.mu.Lock()
	d.names = append(d.names, name)
	d.mu.Unlock()
}

func (d *degradedSet) list() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	sort.Strings(d.names)
	return d.names
}

func (s *DashboardService) widgetFailed(name string, err error, degraded *degradedSet) {
	s.logger.Warn("dashboard widget failed", zap.String("widget", name), zap.Error(err))
	if s.metrics != nil {
		s.metrics.RecordDegradedFetch(name)
	}
	degraded.add(name)
}

// Student builds the student dashboard.
func (s *DashboardService) Student(ctx context.Context) (*dto.StudentDashboardResponse, error) {
	resp := &dto.StudentDashboardResponse{Enrollments: []dto.EnrollmentProgress{}, Requests: []models.CourseRequest{}}
	degraded := &degradedSet{}

	var enrollments []models.Enrollment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.enrollments.LoadStudent(gctx)
		if err != nil {
			s.widgetFailed("enrollments", err, degraded)
			return nil
		}
		enrollments = items
		return nil
	})
	g.Go(func() error {
		items, err := s.requests.LoadMine(gctx)
		if err != nil {
			s.widgetFailed("requests", err, degraded)
			return nil
		}
		resp.Requests = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	progress := make([]dto.EnrollmentProgress, len(enrollments))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(s.cfg.Concurrency)
	for i, e := range enrollments {
		i, e := i, e
		eg.Go(func() error {
			progress[i] = s.enrollmentProgress(ectx, e)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	resp.Enrollments = progress
	resp.Degraded = degraded.list()
	return resp, nil
}

// enrollmentProgress fetches the four ledgers of one enrollment in parallel. Each list call
// already degrades to empty on failure.
func (s *DashboardService) enrollmentProgress(ctx context.Context, e models.Enrollment) dto.EnrollmentProgress {
	var (
		attendance []models.AttendanceRecord
		notes      []models.SessionProgress
		milestones []models.ProgressMilestone
		skills     []models.SkillAssessment
	)
	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); attendance = s.ledger.ListAttendance(ctx, e.ID) }()
	go func() { defer wg.Done(); notes = s.ledger.ListSessionProgress(ctx, e.ID) }()
	go func() { defer wg.Done(); milestones = s.ledger.ListMilestones(ctx, e.ID) }()
	go func() { defer wg.Done(); skills = s.ledger.ListSkills(ctx, e.ID) }()
	wg.Wait()

	return dto.EnrollmentProgress{
		Enrollment: e,
		Completion: models.ComputeCompletion(e),
		Sessions:   JoinSessions(attendance, notes),
		Milestones: milestones,
		Skills:     skills,
	}
}

// Instructor builds the instructor dashboard.
func (s *DashboardService) Instructor(ctx context.Context) (*dto.InstructorDashboardResponse, error) {
	resp := &dto.InstructorDashboardResponse{PendingRequests: []models.CourseRequest{}, Enrollments: []dto.InstructorEnrollment{}}
	degraded := &degradedSet{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.requests.LoadPending(gctx)
		if err != nil {
			s.widgetFailed("pending_requests", err, degraded)
			return nil
		}
		resp.PendingRequests = items
		return nil
	})
	g.Go(func() error {
		items, err := s.enrollments.LoadInstructor(gctx)
		if err != nil {
			s.widgetFailed("enrollments", err, degraded)
			return nil
		}
		rows := make([]dto.InstructorEnrollment, 0, len(items))
		for _, e := range items {
			rows = append(rows, dto.InstructorEnrollment{Enrollment: e, Completion: models.ComputeCompletion(e)})
		}
		resp.Enrollments = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, row := range resp.Enrollments {
		switch row.Enrollment.Status {
		case models.EnrollmentStatusActive:
			resp.ActiveCount++
		case models.EnrollmentStatusCompleted:
			resp.CompletedCount++
		}
	}
	resp.Degraded = degraded.list()
	return resp, nil
}
