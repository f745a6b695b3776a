package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
)

func TestCourseRequestRepositoryListPending(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/course-requests/instructor/pending", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"request_id":"r1","status":"pending","request_price":100}]}`))
	})
	repo := NewCourseRequestRepository(gw)

	items, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "r1", items[0].ID)
	assert.Equal(t, 100.0, items[0].Price)
}

func TestCourseRequestRepositoryCreateSendsIdempotencyKey(t *testing.T) {
	var calls int32
	var keys []string
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		body, _ := io.ReadAll(r.Body)
		var draft map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &draft))
		assert.Equal(t, "c1", draft["course_id"])
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"request_id":"r9","course_id":"c1","status":"pending"}`))
	})
	repo := NewCourseRequestRepository(gw)

	created, err := repo.Create(context.Background(), CourseRequestDraft{CourseID: "c1", RequestedDayOfWeek: "Tuesday", RequestedTimeSlot: "07:00"})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "r9", created.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1], "retries reuse the same key")
}

func TestCourseRequestRepositoryRejectBody(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/course-requests/r%2F1/reject", r.URL.EscapedPath())
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "schedule full", body["reason"])
		w.WriteHeader(http.StatusNoContent)
	})
	repo := NewCourseRequestRepository(gw)

	updated, err := repo.Reject(context.Background(), "r/1", "schedule full")
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestCourseRequestRepositoryConflict(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"already approved"}`))
	})
	repo := NewCourseRequestRepository(gw)

	_, err := repo.Approve(context.Background(), "r1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.UpstreamStatus)
}

func TestCourseRequestRepositoryUnparseable(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"ok"`))
	})
	repo := NewCourseRequestRepository(gw)

	_, err := repo.FindByID(context.Background(), "r1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnknownServer.Code, appErr.Code)
	assert.Equal(t, http.StatusOK, appErr.UpstreamStatus)
	assert.Equal(t, `"ok"`, appErr.UpstreamBody)
}
