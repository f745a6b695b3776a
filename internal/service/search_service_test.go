package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/swimcoach/internal/models"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
)

type mockDirectoryRepo struct {
	instructors     []models.Instructor
	courses         []models.Course
	instructorCalls int
	courseCalls     int
}

func (m *mockDirectoryRepo) ListInstructors(ctx context.Context) ([]models.Instructor, error) {
	m.instructorCalls++
	return m.instructors, nil
}

func (m *mockDirectoryRepo) ListCourses(ctx context.Context) ([]models.Course, error) {
	m.courseCalls++
	return m.courses, nil
}

func floatPtr(v float64) *float64 { return &v }

func directoryFixture() *mockDirectoryRepo {
	return &mockDirectoryRepo{
		instructors: []models.Instructor{
			{ID: "far", Name: "Bandung", Location: &models.Location{Lat: -6.9175, Lng: 107.6191}},
			{ID: "unknown", Name: "Nowhere"},
			{ID: "near", Name: "Senayan", Location: &models.Location{Lat: -6.2186, Lng: 106.8022}},
		},
		courses: []models.Course{
			{ID: "c1", Title: "Beginner", Location: &models.Location{Lat: -6.2, Lng: 106.8}},
		},
	}
}

func TestSearchInstructorsFiltersAndSorts(t *testing.T) {
	svc := NewSearchService(directoryFixture(), nil, 50, nil)

	results, err := svc.Instructors(context.Background(), SearchQuery{Lat: floatPtr(-6.2), Lng: floatPtr(106.8), Sort: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].Item.ID)
	require.True(t, results[0].Known())
	assert.Less(t, *results[0].DistanceKm, 5.0)
	assert.Equal(t, "unknown", results[1].Item.ID)
	assert.False(t, results[1].Known())
}

func TestSearchZeroMaxDistanceDisablesFilter(t *testing.T) {
	svc := NewSearchService(directoryFixture(), nil, 50, nil)

	results, err := svc.Instructors(context.Background(), SearchQuery{Lat: floatPtr(-6.2), Lng: floatPtr(106.8), MaxDistanceKm: floatPtr(0)})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "far", results[0].Item.ID)
	assert.Greater(t, *results[0].DistanceKm, 100.0)
}

func TestSearchUsesCache(t *testing.T) {
	repo := directoryFixture()
	store := newMemorySnapshotStore()
	svc := NewSearchService(repo, NewDirectoryCache(store, nil, time.Minute, nil, true), 0, nil)
	q := SearchQuery{Lat: floatPtr(-6.2), Lng: floatPtr(106.8)}

	_, err := svc.Courses(context.Background(), q)
	require.NoError(t, err)
	results, err := svc.Courses(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Item.ID)
	assert.Equal(t, 1, repo.courseCalls)
	assert.Contains(t, store.entries, courseDirectoryKey)

	require.NoError(t, svc.InvalidateDirectory(context.Background()))
	assert.Equal(t, []string{"directory:*"}, store.patterns)
	_, err = svc.Courses(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.courseCalls)
}

func TestSearchValidatesOrigin(t *testing.T) {
	repo := directoryFixture()
	svc := NewSearchService(repo, nil, 50, nil)

	_, err := svc.Instructors(context.Background(), SearchQuery{Lng: floatPtr(106.8)})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	_, err = svc.Instructors(context.Background(), SearchQuery{Lat: floatPtr(91), Lng: floatPtr(106.8)})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	_, err = svc.Courses(context.Background(), SearchQuery{Lat: floatPtr(0), Lng: floatPtr(0), MaxDistanceKm: floatPtr(-1)})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Zero(t, repo.instructorCalls)
}
