package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/service"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
)

type courseRequestServiceMock struct {
	pending   []models.CourseRequest
	submitted *service.SubmitCourseRequest
	rejectID  string
	reason    string
	err       error
}

func (m *courseRequestServiceMock) Get(ctx context.Context, id string) (*models.CourseRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.CourseRequest{ID: id, Status: models.CourseRequestPending}, nil
}

func (m *courseRequestServiceMock) LoadPending(ctx context.Context) ([]models.CourseRequest, error) {
	return m.pending, m.err
}

func (m *courseRequestServiceMock) LoadMine(ctx context.Context) ([]models.CourseRequest, error) {
	return nil, m.err
}

func (m *courseRequestServiceMock) Submit(ctx context.Context, req service.SubmitCourseRequest) (*models.CourseRequest, error) {
	m.submitted = &req
	if m.err != nil {
		return nil, m.err
	}
	return &models.CourseRequest{ID: "r1", CourseID: req.CourseID, Status: models.CourseRequestPending}, nil
}

func (m *courseRequestServiceMock) Approve(ctx context.Context, id string) (*models.CourseRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.CourseRequest{ID: id, Status: models.CourseRequestApproved}, nil
}

func (m *courseRequestServiceMock) Reject(ctx context.Context, id, reason string) (*models.CourseRequest, error) {
	m.rejectID, m.reason = id, reason
	if m.err != nil {
		return nil, m.err
	}
	return &models.CourseRequest{ID: id, Status: models.CourseRequestRejected, RejectionReason: &reason}, nil
}

func (m *courseRequestServiceMock) Cancel(ctx context.Context, id string) (*models.CourseRequest, error) {
	return &models.CourseRequest{ID: id, Status: models.CourseRequestCancelled}, m.err
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestCourseRequestHandlerPending(t *testing.T) {
	svc := &courseRequestServiceMock{pending: []models.CourseRequest{{ID: "r1"}, {ID: "r2"}}}
	h := NewCourseRequestHandler(svc)

	c, w := newGinContext(http.MethodGet, "/course-requests/pending", nil)
	h.Pending(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, float64(2), env.Meta["total"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestCourseRequestHandlerSubmit(t *testing.T) {
	svc := &courseRequestServiceMock{}
	h := NewCourseRequestHandler(svc)

	body := []byte(`{"courseId":"c1","dayOfWeek":"Monday","timeSlot":"08:00","price":150000,"location":{"text":"Senayan"}}`)
	c, w := newGinContext(http.MethodPost, "/course-requests", body)
	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.submitted)
	assert.Equal(t, "c1", svc.submitted.CourseID)
	require.NotNil(t, svc.submitted.Location)
	assert.Equal(t, "Senayan", svc.submitted.Location.Text)
}

func TestCourseRequestHandlerSubmitMalformedBody(t *testing.T) {
	svc := &courseRequestServiceMock{}
	h := NewCourseRequestHandler(svc)

	c, w := newGinContext(http.MethodPost, "/course-requests", []byte(`{"courseId":`))
	h.Submit(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
	assert.Nil(t, svc.submitted)
}

func TestCourseRequestHandlerReject(t *testing.T) {
	svc := &courseRequestServiceMock{}
	h := NewCourseRequestHandler(svc)

	c, w := newGinContext(http.MethodPut, "/course-requests/r9/reject", []byte(`{"reason":"schedule full"}`))
	c.Params = gin.Params{{Key: "id", Value: "r9"}}
	h.Reject(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r9", svc.rejectID)
	assert.Equal(t, "schedule full", svc.reason)
}

func TestCourseRequestHandlerNotPendingIsConflict(t *testing.T) {
	upstream := appErrors.FromUpstream(http.StatusConflict, `{"secret":"internal detail"}`)
	notPending := appErrors.Wrap(upstream, appErrors.ErrNotPending.Code, appErrors.ErrNotPending.Status, appErrors.ErrNotPending.Message)
	notPending.UpstreamBody = upstream.UpstreamBody
	h := NewCourseRequestHandler(&courseRequestServiceMock{err: notPending})

	c, w := newGinContext(http.MethodPut, "/course-requests/r1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	h.Approve(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrNotPending.Code, decodeEnvelope(t, w).Error.Code)
	assert.NotContains(t, w.Body.String(), "internal detail")
}

func TestCourseRequestHandlerGet(t *testing.T) {
	h := NewCourseRequestHandler(&courseRequestServiceMock{})
	c, w := newGinContext(http.MethodGet, "/course-requests/r9", nil)
	c.Params = gin.Params{{Key: "id", Value: "r9"}}
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"r9"`)

	h = NewCourseRequestHandler(&courseRequestServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "course request not found")})
	c, w = newGinContext(http.MethodGet, "/course-requests/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
