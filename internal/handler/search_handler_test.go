package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/service"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
	"github.com/noah-isme/swimcoach/pkg/geo"
)

type searchServiceMock struct {
	query *service.SearchQuery
}

func (m *searchServiceMock) Instructors(ctx context.Context, q service.SearchQuery) ([]geo.Result[models.Instructor], error) {
	m.query = &q
	d := 1.5
	return []geo.Result[models.Instructor]{{Item: models.Instructor{ID: "i1"}, DistanceKm: &d}}, nil
}

func (m *searchServiceMock) Courses(ctx context.Context, q service.SearchQuery) ([]geo.Result[models.Course], error) {
	m.query = &q
	return []geo.Result[models.Course]{}, nil
}

func TestSearchHandlerParsesQuery(t *testing.T) {
	svc := &searchServiceMock{}
	h := NewSearchHandler(svc)

	c, w := newGinContext(http.MethodGet, "/search/instructors?lat=-6.2&lng=106.8&maxDistanceKm=10&sort=distance", nil)
	h.Instructors(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.query)
	require.NotNil(t, svc.query.Lat)
	assert.Equal(t, -6.2, *svc.query.Lat)
	assert.Equal(t, 106.8, *svc.query.Lng)
	assert.Equal(t, 10.0, *svc.query.MaxDistanceKm)
	assert.True(t, svc.query.Sort)

	env := decodeEnvelope(t, w)
	assert.Equal(t, float64(1), env.Meta["total"])
	assert.Contains(t, string(env.Data), `"distance_km":1.5`)
}

func TestSearchHandlerOptionalRadius(t *testing.T) {
	svc := &searchServiceMock{}
	h := NewSearchHandler(svc)

	c, w := newGinContext(http.MethodGet, "/search/courses?lat=1&lng=2", nil)
	h.Courses(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.query.MaxDistanceKm)
	assert.False(t, svc.query.Sort)
}

func TestSearchHandlerRejectsNonNumeric(t *testing.T) {
	svc := &searchServiceMock{}
	h := NewSearchHandler(svc)

	c, w := newGinContext(http.MethodGet, "/search/courses?lat=north&lng=2", nil)
	h.Courses(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
	assert.Nil(t, svc.query)
}
