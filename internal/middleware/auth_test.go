package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/swimcoach/internal/session"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, claims callerClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func newAuthRouter(seen *session.Caller, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{Bearer(func() time.Time { return fixedNow })}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		if caller, ok := session.FromContext(c.Request.Context()); ok && seen != nil {
			*seen = caller
		}
		c.Status(http.StatusOK)
	})
	r.GET("/protected", handlers...)
	return r
}

func doGet(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestBearerRejectsMissingOrMalformedHeader(t *testing.T) {
	r := newAuthRouter(nil)

	w := doGet(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_MISSING")

	w = doGet(r, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doGet(r, "Bearer   ")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerRejectsExpiredJWT(t *testing.T) {
	r := newAuthRouter(nil)
	token := signToken(t, callerClaims{
		Role:             "student",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "stu-1", ExpiresAt: jwt.NewNumericDate(fixedNow.Add(-time.Minute))},
	})

	w := doGet(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token expired")
}

func TestBearerReadsClaims(t *testing.T) {
	var seen session.Caller
	r := newAuthRouter(&seen)
	token := signToken(t, callerClaims{
		Role:             "Instructor",
		UserID:           "inst-7",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour))},
	})

	w := doGet(r, "bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, token, seen.Token)
	assert.Equal(t, "inst-7", seen.Subject)
	assert.Equal(t, "instructor", seen.Role)
}

func TestBearerOpaqueTokenGetsStableSubject(t *testing.T) {
	var first, second session.Caller
	w := doGet(newAuthRouter(&first), "Bearer opaque-session-token")
	require.Equal(t, http.StatusOK, w.Code)
	doGet(newAuthRouter(&second), "Bearer opaque-session-token")

	assert.True(t, strings.HasPrefix(first.Subject, "token:"))
	assert.Len(t, first.Subject, len("token:")+16)
	assert.Equal(t, first.Subject, second.Subject)
	assert.Empty(t, first.Role)
	assert.Equal(t, "opaque-session-token", first.Token)
}

func TestRequireRoles(t *testing.T) {
	r := newAuthRouter(nil, "instructor", "admin")

	student := signToken(t, callerClaims{Role: "student", RegisteredClaims: jwt.RegisteredClaims{Subject: "s1"}})
	w := doGet(r, "Bearer "+student)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	admin := signToken(t, callerClaims{Role: "ADMIN", RegisteredClaims: jwt.RegisteredClaims{Subject: "a1"}})
	assert.Equal(t, http.StatusOK, doGet(r, "Bearer "+admin).Code)

	assert.Equal(t, http.StatusOK, doGet(r, "Bearer opaque").Code)
}

func TestRequireRolesWithoutCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireRoles("instructor"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
