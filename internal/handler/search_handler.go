package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/service"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
	"github.com/noah-isme/swimcoach/pkg/geo"
	"github.com/noah-isme/swimcoach/pkg/response"
)

type searchService interface {
	Instructors(ctx context.Context, q service.SearchQuery) ([]geo.Result[models.Instructor], error)
	Courses(ctx context.Context, q service.SearchQuery) ([]geo.Result[models.Course], error)
}

// SearchHandler exposes location search over the directory.
type SearchHandler struct {
	search searchService
}

// NewSearchHandler constructs SearchHandler.
func NewSearchHandler(search searchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func parseSearchQuery(c *gin.Context) (service.SearchQuery, error) {
	var q service.SearchQuery
	for _, f := range []struct {
		name string
		dst  **float64
	}{{"lat", &q.Lat}, {"lng", &q.Lng}, {"maxDistanceKm", &q.MaxDistanceKm}} {
		raw := c.Query(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, appErrors.Clone(appErrors.ErrValidation, f.name+" must be a number")
		}
		*f.dst = &v
	}
	q.Sort = c.Query("sort") == "distance"
	return q, nil
}

// Instructors godoc
// @Summary Instructors near a location
// @Tags Search
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param maxDistanceKm query number false "Radius in km, 0 for no limit"
// @Param sort query string false "distance to order nearest first"
// @Success 200 {object} response.Envelope
// @Router /search/instructors [get]
func (h *SearchHandler) Instructors(c *gin.Context) {
	q, err := parseSearchQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	results, err := h.search.Instructors(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, map[string]interface{}{"total": len(results)})
}

// Courses godoc
// @Summary Courses near a location
// @Tags Search
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param maxDistanceKm query number false "Radius in km, 0 for no limit"
// @Param sort query string false "distance to order nearest first"
// @Success 200 {object} response.Envelope
// @Router /search/courses [get]
func (h *SearchHandler) Courses(c *gin.Context) {
	q, err := parseSearchQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	results, err := h.search.Courses(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, map[string]interface{}{"total": len(results)})
}
