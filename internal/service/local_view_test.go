package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/swimcoach/internal/models"
)

func TestLocalViewDiscardsLoadOverlappingMutation(t *testing.T) {
	board := NewRequestBoard(0)
	ticket := board.BeginLoad("i1", "pending")

	board.Apply("i1", models.CourseRequest{ID: "r1", Status: models.CourseRequestApproved})

	committed := board.Commit(ticket, []models.CourseRequest{{ID: "r1", Status: models.CourseRequestPending}})
	assert.False(t, committed)
	got, ok := board.Get("i1", "r1")
	require.True(t, ok)
	assert.Equal(t, models.CourseRequestApproved, got.Status)
}

func TestLocalViewScopesAreIsolated(t *testing.T) {
	board := NewRequestBoard(0)
	ticket := board.BeginLoad("i1", "pending")

	board.Apply("i2", models.CourseRequest{ID: "r1", Status: models.CourseRequestRejected})

	assert.True(t, board.Commit(ticket, []models.CourseRequest{{ID: "r1", Status: models.CourseRequestPending}}))
	mine, _ := board.Get("i1", "r1")
	assert.Equal(t, models.CourseRequestPending, mine.Status)
	theirs, _ := board.Get("i2", "r1")
	assert.Equal(t, models.CourseRequestRejected, theirs.Status)
	_, ok := board.Get("i3", "r1")
	assert.False(t, ok)
}

func TestLocalViewNewerLoadSupersedesOlder(t *testing.T) {
	book := NewEnrollmentBook(0)
	first := book.BeginLoad("s1", "student")
	second := book.BeginLoad("s1", "student")

	assert.True(t, book.Commit(second, []models.Enrollment{{ID: "e2"}}))
	assert.False(t, book.Commit(first, []models.Enrollment{{ID: "e1"}}))

	items, ok := book.List("s1", "student")
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "e2", items[0].ID)
}

func TestLocalViewInvalidateDropsList(t *testing.T) {
	book := NewEnrollmentBook(0)
	ticket := book.BeginLoad("i1", "instructor")
	book.Invalidate("i1", "instructor")

	assert.False(t, book.Commit(ticket, []models.Enrollment{{ID: "e1"}}))
	_, ok := book.List("i1", "instructor")
	assert.False(t, ok)
}

func TestLocalViewRefreshYieldsToConfirmedMutation(t *testing.T) {
	book := NewEnrollmentBook(0)
	read := book.BeginRead("s1")
	book.Apply("s1", models.Enrollment{ID: "e1", Status: models.EnrollmentStatusCompleted})

	assert.False(t, book.Refresh(read, models.Enrollment{ID: "e1", Status: models.EnrollmentStatusActive}))
	got, _ := book.Get("s1", "e1")
	assert.Equal(t, models.EnrollmentStatusCompleted, got.Status)

	assert.True(t, book.Refresh(book.BeginRead("s1"), models.Enrollment{ID: "e1", Status: models.EnrollmentStatusCancelled}))
	got, _ = book.Get("s1", "e1")
	assert.Equal(t, models.EnrollmentStatusCancelled, got.Status)

	book.Forget("s1", "e1")
	_, ok := book.Get("s1", "e1")
	assert.False(t, ok)
}

func TestLocalViewAppendExtendsLoadedList(t *testing.T) {
	board := NewRequestBoard(0)
	require.True(t, board.Commit(board.BeginLoad("s1", "mine"), []models.CourseRequest{{ID: "r1"}}))

	board.Append("s1", "mine", models.CourseRequest{ID: "r2"})
	board.Append("s2", "mine", models.CourseRequest{ID: "r3"})

	items, _ := board.List("s1", "mine")
	require.Len(t, items, 2)
	assert.Equal(t, "r2", items[1].ID)
	_, loaded := board.List("s2", "mine")
	assert.False(t, loaded)
	_, known := board.Get("s2", "r3")
	assert.True(t, known)
}

func TestLocalViewEvictsIdleScopes(t *testing.T) {
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	board := NewRequestBoard(time.Minute)
	board.now = func() time.Time { return clock }

	for i := 0; i < 100; i++ {
		board.Apply(fmt.Sprintf("caller-%d", i), models.CourseRequest{ID: fmt.Sprintf("r%d", i)})
	}
	assert.Equal(t, 100, board.Scopes())

	clock = clock.Add(30 * time.Second)
	board.Apply("caller-0", models.CourseRequest{ID: "r0", Status: models.CourseRequestApproved})
	assert.Zero(t, board.Sweep())

	clock = clock.Add(45 * time.Second)
	assert.Equal(t, 99, board.Sweep())
	assert.Equal(t, 1, board.Scopes())
	got, ok := board.Get("caller-0", "r0")
	require.True(t, ok)
	assert.Equal(t, models.CourseRequestApproved, got.Status)

	// writes sweep on their own once a ttl has passed
	clock = clock.Add(2 * time.Minute)
	board.Apply("caller-new", models.CourseRequest{ID: "r1"})
	assert.Equal(t, 1, board.Scopes())
}

func TestInflightGuard(t *testing.T) {
	guard := newInflightGuard()
	release, ok := guard.acquire("request:r1")
	require.True(t, ok)

	_, again := guard.acquire("request:r1")
	assert.False(t, again)
	_, other := guard.acquire("request:r2")
	assert.True(t, other)

	release()
	_, afterRelease := guard.acquire("request:r1")
	assert.True(t, afterRelease)
}
