package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-assignments-api/internal/models"
	"github.com/noah-isme/sma-assignments-api/internal/service"
)

type userLookupStub struct {
	users map[string]*models.User
}

func (s *userLookupStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := s.users[strings.ToLower(email)]; ok {
		return user, nil
	}
	return nil, models.ErrRecordNotFound
}

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

func buildRouter(t *testing.T, checks map[string]Pinger) (*gin.Engine, *fakeAssignmentSrv) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &userLookupStub{users: map[string]*models.User{
		"teacher@school.test": {ID: "t-1", Email: "teacher@school.test", PasswordHash: string(hash), Role: models.RoleTeacher, Active: true},
		"s1@school.test":      {ID: "S1", Email: "s1@school.test", PasswordHash: string(hash), Role: models.RoleStudent, Active: true},
	}}
	auth := service.NewAuthService(users, nil, nil, service.AuthConfig{AccessTokenSecret: "test-secret", Issuer: "test"})
	assignments := &fakeAssignmentSrv{}

	r := gin.New()
	RegisterRoutes(r, "/api", Handlers{
		Auth:        NewAuthHandler(auth),
		Assignments: NewAssignmentHandler(assignments, 1024),
		Metrics:     NewMetricsHandler(service.NewMetricsService(), checks),
	}, auth, zap.NewNop())
	return r, assignments
}

func login(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"email":"`+email+`","password":"secret123"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AccessToken)
	return body.Data.AccessToken
}

func do(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(rec, req)
	return rec
}

func TestRoutesRequireAuthentication(t *testing.T) {
	r, _ := buildRouter(t, nil)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/assignments", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/assignments", "garbage").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
}

func TestRoutesEnforceCapabilities(t *testing.T) {
	r, _ := buildRouter(t, nil)
	studentToken := login(t, r, "s1@school.test")
	teacherToken := login(t, r, "teacher@school.test")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/assignments", studentToken).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/api/assignments/asg-1", studentToken).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/assignments/asg-1/report", studentToken).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/assignments/asg-1/grade", studentToken).Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/api/assignments/asg-1", teacherToken).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/assignments/asg-1/report", teacherToken).Code)

	me := do(r, http.MethodGet, "/api/auth/me", studentToken)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"role":"STUDENT"`)
}

func TestRoutesLoginRejectsBadPassword(t *testing.T) {
	r, _ := buildRouter(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"email":"s1@school.test","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	r, _ := buildRouter(t, map[string]Pinger{"store": pingStub{}, "cache": pingStub{err: errors.New("connection refused")}})

	rec := do(r, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	r, _ = buildRouter(t, map[string]Pinger{"store": pingStub{}})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", "").Code)
}

func TestMetricsEndpointExposesSubmissionCounter(t *testing.T) {
	r, _ := buildRouter(t, nil)
	rec := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines_total")
}
