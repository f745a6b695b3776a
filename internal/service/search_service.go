package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/swimcoach/internal/models"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
	"github.com/noah-isme/swimcoach/pkg/geo"
)

type directoryRepository interface {
	ListInstructors(ctx context.Context) ([]models.Instructor, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
}

type directoryCache interface {
	Instructors(ctx context.Context) ([]models.Instructor, bool)
	StoreInstructors(ctx context.Context, items []models.Instructor)
	Courses(ctx context.Context) ([]models.Course, bool)
	StoreCourses(ctx context.Context, items []models.Course)
	Flush(ctx context.Context) error
}

// SearchQuery locates directory entries around an origin.
type SearchQuery struct {
	Lat *float64
	Lng *float64
	// MaxDistanceKm of nil uses the configured default; zero disables filtering.
	MaxDistanceKm *float64
	Sort          bool
}

// SearchService matches instructors and courses against a search origin.
type SearchService struct {
	directory          directoryRepository
	cache              directoryCache
	defaultMaxDistance float64
	logger             *zap.Logger
}

// NewSearchService constructs SearchService. cache may be nil.
func NewSearchService(directory directoryRepository, cache directoryCache, defaultMaxDistanceKm float64, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultMaxDistanceKm < 0 {
		defaultMaxDistanceKm = 0
	}
	return &SearchService{directory: directory, cache: cache, defaultMaxDistance: defaultMaxDistanceKm, logger: logger}
}

func (s *SearchService) options(q SearchQuery) (geo.Point, geo.Options, error) {
	if q.Lat == nil || q.Lng == nil {
		return geo.Point{}, geo.Options{}, appErrors.Clone(appErrors.ErrValidation, "lat and lng are required")
	}
	origin := geo.Point{Lat: *q.Lat, Lng: *q.Lng}
	if err := origin.Validate(); err != nil {
		return geo.Point{}, geo.Options{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid search origin")
	}
	opts := geo.Options{MaxDistanceKm: s.defaultMaxDistance, Sort: q.Sort}
	if q.MaxDistanceKm != nil {
		opts.MaxDistanceKm = *q.MaxDistanceKm
	}
	return origin, opts, nil
}

// Instructors returns instructors annotated with their distance from the origin.
func (s *SearchService) Instructors(ctx context.Context, q SearchQuery) ([]geo.Result[models.Instructor], error) {
	origin, opts, err := s.options(q)
	if err != nil {
		return nil, err
	}
	instructors, err := s.instructors(ctx)
	if err != nil {
		return nil, err
	}
	results, err := geo.Match(origin, instructors, opts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid search parameters")
	}
	return results, nil
}

// Courses returns courses annotated with their distance from the origin.
func (s *SearchService) Courses(ctx context.Context, q SearchQuery) ([]geo.Result[models.Course], error) {
	origin, opts, err := s.options(q)
	if err != nil {
		return nil, err
	}
	courses, err := s.courses(ctx)
	if err != nil {
		return nil, err
	}
	results, err := geo.Match(origin, courses, opts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid search parameters")
	}
	return results, nil
}

// InvalidateDirectory drops cached directory snapshots.
func (s *SearchService) InvalidateDirectory(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Flush(ctx)
}

func (s *SearchService) instructors(ctx context.Context) ([]models.Instructor, error) {
	if s.cache != nil {
		if items, ok := s.cache.Instructors(ctx); ok {
			return items, nil
		}
	}
	items, err := s.directory.ListInstructors(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.StoreInstructors(ctx, items)
	}
	return items, nil
}

func (s *SearchService) courses(ctx context.Context) ([]models.Course, error) {
	if s.cache != nil {
		if items, ok := s.cache.Courses(ctx); ok {
			return items, nil
		}
	}
	items, err := s.directory.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.StoreCourses(ctx, items)
	}
	return items, nil
}
