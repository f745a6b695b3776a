package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/swimcoach/internal/models"
	"github.com/noah-isme/swimcoach/internal/repository"
	"github.com/noah-isme/swimcoach/internal/session"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
)

type mockCourseRequestRepo struct {
	mu       sync.Mutex
	pending  []models.CourseRequest
	mine     []models.CourseRequest
	listErr  error
	found    *models.CourseRequest
	created  *models.CourseRequest
	drafts   []repository.CourseRequestDraft
	mutation func(action, id string) (*models.CourseRequest, error)
	calls    []string
	hidden   map[string]bool
	onList   func()
}

func (m *mockCourseRequestRepo) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockCourseRequestRepo) ListPending(ctx context.Context) ([]models.CourseRequest, error) {
	m.record("list_pending")
	if m.onList != nil {
		m.onList()
	}
	return m.pending, m.listErr
}

func (m *mockCourseRequestRepo) ListMine(ctx context.Context) ([]models.CourseRequest, error) {
	m.record("list_mine")
	return m.mine, m.listErr
}

func (m *mockCourseRequestRepo) FindByID(ctx context.Context, id string) (*models.CourseRequest, error) {
	m.record("find:" + id)
	if m.hidden[session.Subject(ctx)] {
		return nil, appErrors.FromUpstream(404, `{"message":"course request not found"}`)
	}
	return m.found, nil
}

func (m *mockCourseRequestRepo) Create(ctx context.Context, draft repository.CourseRequestDraft) (*models.CourseRequest, error) {
	m.record("create")
	m.drafts = append(m.drafts, draft)
	return m.created, nil
}

func (m *mockCourseRequestRepo) mutate(action, id string) (*models.CourseRequest, error) {
	m.record(action + ":" + id)
	if m.mutation != nil {
		return m.mutation(action, id)
	}
	return nil, nil
}

func (m *mockCourseRequestRepo) Approve(ctx context.Context, id string) (*models.CourseRequest, error) {
	return m.mutate("approve", id)
}

func (m *mockCourseRequestRepo) Reject(ctx context.Context, id, reason string) (*models.CourseRequest, error) {
	return m.mutate("reject", id)
}

func (m *mockCourseRequestRepo) Cancel(ctx context.Context, id string) (*models.CourseRequest, error) {
	return m.mutate("cancel", id)
}

func instructorCtx() context.Context {
	return session.WithCaller(context.Background(), session.Caller{Token: "t", Subject: "inst-1", Role: "instructor"})
}

func TestCourseRequestServiceRejectThenApproveIsNotPending(t *testing.T) {
	repo := &mockCourseRequestRepo{pending: []models.CourseRequest{{ID: "r1", Status: models.CourseRequestPending}}}
	svc := NewCourseRequestService(repo, nil, nil, nil)
	ctx := instructorCtx()

	_, err := svc.LoadPending(ctx)
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, "r1", "  fully booked ")
	require.NoError(t, err)
	assert.Equal(t, models.CourseRequestRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "fully booked", *rejected.RejectionReason)

	_, err = svc.Approve(ctx, "r1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotPending.Code))
	assert.Equal(t, []string{"list_pending", "reject:r1"}, repo.calls)
}

func TestCourseRequestServiceRejectRequiresReason(t *testing.T) {
	repo := &mockCourseRequestRepo{}
	svc := NewCourseRequestService(repo, nil, nil, nil)

	_, err := svc.Reject(instructorCtx(), "r1", "   ")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Empty(t, repo.calls)
}

func TestCourseRequestServiceUpstreamConflictMapsToNotPending(t *testing.T) {
	repo := &mockCourseRequestRepo{mutation: func(string, string) (*models.CourseRequest, error) {
		return nil, appErrors.FromUpstream(409, `{"message":"already handled"}`)
	}}
	svc := NewCourseRequestService(repo, nil, nil, nil)

	_, err := svc.Approve(instructorCtx(), "r1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotPending.Code, appErr.Code)
	assert.Equal(t, 409, appErr.UpstreamStatus)
}

func TestCourseRequestServiceApproveUsesServerResponse(t *testing.T) {
	repo := &mockCourseRequestRepo{mutation: func(action, id string) (*models.CourseRequest, error) {
		return &models.CourseRequest{ID: id, CourseID: "c1", Status: models.CourseRequestPending}, nil
	}}
	svc := NewCourseRequestService(repo, nil, nil, nil)

	approved, err := svc.Approve(instructorCtx(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.CourseRequestApproved, approved.Status)
	assert.Equal(t, "c1", approved.CourseID)
	assert.Nil(t, approved.RejectionReason)

	known, ok := svc.board.Get("inst-1", "r1")
	require.True(t, ok)
	assert.Equal(t, models.CourseRequestApproved, known.Status)
}

func TestCourseRequestServiceConcurrentMutationIsInFlight(t *testing.T) {
	entered := make(chan struct{})
	proceed := make(chan struct{})
	repo := &mockCourseRequestRepo{mutation: func(action, id string) (*models.CourseRequest, error) {
		if action == "approve" {
			close(entered)
			<-proceed
		}
		return nil, nil
	}}
	svc := NewCourseRequestService(repo, nil, nil, nil)
	ctx := instructorCtx()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Approve(ctx, "r1")
		done <- err
	}()
	<-entered

	_, err := svc.Reject(ctx, "r1", "changed my mind")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInFlight.Code))

	close(proceed)
	require.NoError(t, <-done)
}

func TestCourseRequestServiceSubmit(t *testing.T) {
	repo := &mockCourseRequestRepo{created: &models.CourseRequest{ID: "r5", CourseID: "c1", Status: models.CourseRequestPending}}
	svc := NewCourseRequestService(repo, nil, nil, nil)
	ctx := session.WithCaller(context.Background(), session.Caller{Token: "t", Subject: "stu-1"})

	_, err := svc.LoadMine(ctx)
	require.NoError(t, err)

	lat, lng := -6.2, 106.8
	created, err := svc.Submit(ctx, SubmitCourseRequest{
		CourseID:  " c1 ",
		DayOfWeek: "Saturday",
		TimeSlot:  "09:00",
		Price:     200000,
		Location:  &LocationInput{Lat: &lat, Lng: &lng, Text: "Gelora pool"},
	})
	require.NoError(t, err)
	assert.Equal(t, "r5", created.ID)
	assert.Equal(t, models.RequestLocationCoordinates, created.Location.Kind)
	assert.Equal(t, "Gelora pool", created.Location.Location.Address)

	require.Len(t, repo.drafts, 1)
	draft := repo.drafts[0]
	assert.Equal(t, "c1", draft.CourseID)
	assert.Equal(t, "stu-1", draft.StudentID)
	assert.Contains(t, draft.RequestLocation, `"lat":-6.2`)

	mine, ok := svc.board.List("stu-1", requestListMine)
	require.True(t, ok)
	require.Len(t, mine, 1)
	assert.Equal(t, "r5", mine[0].ID)
}

func TestCourseRequestServiceSubmitValidation(t *testing.T) {
	repo := &mockCourseRequestRepo{}
	svc := NewCourseRequestService(repo, nil, nil, nil)
	lat := 10.0

	cases := map[string]SubmitCourseRequest{
		"missing course":   {DayOfWeek: "Monday", TimeSlot: "08:00"},
		"negative price":   {CourseID: "c1", DayOfWeek: "Monday", TimeSlot: "08:00", Price: -1},
		"half coordinates": {CourseID: "c1", DayOfWeek: "Monday", TimeSlot: "08:00", Location: &LocationInput{Lat: &lat}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), req)
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
		})
	}
	assert.Empty(t, repo.calls)
}

func TestCourseRequestServiceLoadPropagatesErrors(t *testing.T) {
	repo := &mockCourseRequestRepo{listErr: appErrors.Clone(appErrors.ErrTransient, "")}
	svc := NewCourseRequestService(repo, nil, nil, nil)

	_, err := svc.LoadPending(instructorCtx())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrTransient.Code))
}

func TestCourseRequestServiceGetNotFound(t *testing.T) {
	svc := NewCourseRequestService(&mockCourseRequestRepo{}, nil, nil, nil)
	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	_, err = svc.Get(context.Background(), "  ")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func otherInstructorCtx() context.Context {
	return session.WithCaller(context.Background(), session.Caller{Token: "t2", Subject: "inst-2", Role: "instructor"})
}

func TestCourseRequestServiceStateIsNotSharedAcrossCallers(t *testing.T) {
	repo := &mockCourseRequestRepo{
		pending: []models.CourseRequest{{ID: "r1", Status: models.CourseRequestPending}},
		hidden:  map[string]bool{"inst-2": true},
	}
	svc := NewCourseRequestService(repo, nil, nil, nil)

	_, err := svc.LoadPending(instructorCtx())
	require.NoError(t, err)
	_, err = svc.Reject(instructorCtx(), "r1", "fully booked")
	require.NoError(t, err)

	_, err = svc.Get(otherInstructorCtx(), "r1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	// the other instructor has seen nothing locally, so the backend decides
	repo.mutation = func(string, string) (*models.CourseRequest, error) {
		return nil, appErrors.FromUpstream(404, "")
	}
	_, err = svc.Approve(otherInstructorCtx(), "r1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Equal(t, []string{"list_pending", "reject:r1", "find:r1", "approve:r1"}, repo.calls)
}

func TestCourseRequestServiceGetReadsThrough(t *testing.T) {
	repo := &mockCourseRequestRepo{
		pending: []models.CourseRequest{{ID: "r1", Status: models.CourseRequestPending}},
		found:   &models.CourseRequest{ID: "r1", Status: models.CourseRequestCancelled},
	}
	svc := NewCourseRequestService(repo, nil, nil, nil)

	_, err := svc.LoadPending(instructorCtx())
	require.NoError(t, err)

	got, err := svc.Get(instructorCtx(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.CourseRequestCancelled, got.Status)

	_, err = svc.Approve(instructorCtx(), "r1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotPending.Code))
	assert.Equal(t, []string{"list_pending", "find:r1"}, repo.calls)
}

func TestCourseRequestServiceSupersededLoadReturnsFreshData(t *testing.T) {
	repo := &mockCourseRequestRepo{pending: []models.CourseRequest{
		{ID: "r1", Status: models.CourseRequestPending},
		{ID: "r2", Status: models.CourseRequestPending},
	}}
	svc := NewCourseRequestService(repo, nil, nil, nil)
	require.True(t, svc.board.Commit(svc.board.BeginLoad("inst-1", requestListPending), []models.CourseRequest{
		{ID: "r1", Status: models.CourseRequestPending},
	}))
	repo.onList = func() {
		svc.board.Apply("inst-1", models.CourseRequest{ID: "r0", Status: models.CourseRequestApproved})
	}

	items, err := svc.LoadPending(instructorCtx())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "r1", items[0].ID)
	assert.Equal(t, "r2", items[1].ID)

	// another caller's confirmed mutation does not supersede this caller's load
	repo.onList = func() {
		svc.board.Apply("inst-2", models.CourseRequest{ID: "r9", Status: models.CourseRequestApproved})
	}
	_, err = svc.LoadPending(instructorCtx())
	require.NoError(t, err)
	stored, ok := svc.board.List("inst-1", requestListPending)
	require.True(t, ok)
	assert.Len(t, stored, 2)
}

func TestCourseRequestServiceUnknownStatusRefusesActions(t *testing.T) {
	repo := &mockCourseRequestRepo{pending: []models.CourseRequest{{ID: "r1", Status: models.CourseRequestUnknown}}}
	svc := NewCourseRequestService(repo, nil, nil, nil)

	_, err := svc.LoadPending(instructorCtx())
	require.NoError(t, err)

	_, err = svc.Approve(instructorCtx(), "r1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotPending.Code))
	assert.Equal(t, []string{"list_pending"}, repo.calls)
}
