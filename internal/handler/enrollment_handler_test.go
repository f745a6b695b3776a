package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/swimcoach/internal/dto"
	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/service"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
)

type enrollmentServiceMock struct {
	patch    *service.PatchEnrollmentStatusRequest
	attended *int
	err      error
}

func (m *enrollmentServiceMock) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Enrollment{ID: id, Status: models.EnrollmentStatusActive}, nil
}

func (m *enrollmentServiceMock) LoadInstructor(ctx context.Context) ([]models.Enrollment, error) {
	return []models.Enrollment{{ID: "e1"}}, m.err
}

func (m *enrollmentServiceMock) LoadStudent(ctx context.Context) ([]models.Enrollment, error) {
	return nil, m.err
}

func (m *enrollmentServiceMock) PatchStatus(ctx context.Context, id string, req service.PatchEnrollmentStatusRequest) (*models.Enrollment, error) {
	m.patch = &req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Enrollment{ID: id, Status: models.EnrollmentStatus(req.Status)}, nil
}

func (m *enrollmentServiceMock) RecordSessionAttendance(ctx context.Context, id string, sessionsAttended int) (*models.Enrollment, error) {
	m.attended = &sessionsAttended
	return &models.Enrollment{ID: id, ActualSessionsAttended: sessionsAttended}, m.err
}

func (m *enrollmentServiceMock) Completion(ctx context.Context, id string) (*models.Enrollment, models.Completion, error) {
	if m.err != nil {
		return nil, models.Completion{}, m.err
	}
	return &models.Enrollment{ID: id}, models.Completion{Percent: 50}, nil
}

func TestEnrollmentHandlerPatchStatus(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc)

	c, w := newGinContext(http.MethodPatch, "/enrollments/e1/status", []byte(`{"status":"COMPLETED","notes":"done"}`))
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	h.PatchStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.patch)
	assert.Equal(t, "COMPLETED", svc.patch.Status)
	require.NotNil(t, svc.patch.Notes)
	assert.Equal(t, "done", *svc.patch.Notes)
}

func TestEnrollmentHandlerInvalidTransition(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{err: appErrors.Clone(appErrors.ErrInvalidTransition, "")})

	c, w := newGinContext(http.MethodPatch, "/enrollments/e1/status", []byte(`{"status":"ACTIVE"}`))
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	h.PatchStatus(c)

	assert.Equal(t, appErrors.ErrInvalidTransition.Status, w.Code)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, decodeEnvelope(t, w).Error.Code)
}

func TestEnrollmentHandlerRecordAttendance(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc)

	c, w := newGinContext(http.MethodPatch, "/enrollments/e1/attendance", []byte(`{"sessionsAttended":0}`))
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	h.RecordAttendance(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.attended)
	assert.Equal(t, 0, *svc.attended)
}

func TestEnrollmentHandlerRecordAttendanceRequiresCount(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc)

	c, w := newGinContext(http.MethodPatch, "/enrollments/e1/attendance", []byte(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	h.RecordAttendance(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.attended)
}

func TestEnrollmentHandlerCompletion(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{})

	c, w := newGinContext(http.MethodGet, "/enrollments/e1/completion", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	h.Completion(c)

	require.Equal(t, http.StatusOK, w.Code)
	var got dto.CompletionResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	assert.Equal(t, "e1", got.EnrollmentID)
	assert.Equal(t, 50, got.Completion.Percent)
}

func TestEnrollmentHandlerGet(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{})
	c, w := newGinContext(http.MethodGet, "/enrollments/e7", nil)
	c.Params = gin.Params{{Key: "id", Value: "e7"}}
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"e7"`)
}
