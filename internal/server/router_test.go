package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/task-manager/backend/internal/auth"
	"github.com/ayush/task-manager/backend/internal/httpx"
	"github.com/ayush/task-manager/backend/internal/models"
	"github.com/ayush/task-manager/backend/internal/store"
	"github.com/ayush/task-manager/backend/internal/tasks"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testServer struct {
	t    *testing.T
	h    http.Handler
	logs *bytes.Buffer
}

func newTestServer(t *testing.T, pinger Pinger) *testServer {
	t.Helper()
	logs := &bytes.Buffer{}
	log := slog.New(slog.NewJSONHandler(logs, nil))
	st := store.NewMemoryStore()
	if pinger == nil {
		pinger = st
	}

	authSvc := auth.NewService(st, auth.NewTokenIssuer("test-secret", time.Hour),
		auth.WithHashCost(bcrypt.MinCost), auth.WithLogger(log))
	resp := &httpx.Responder{Log: log}

	h := NewRouter(Deps{
		Auth:      auth.NewHandler(authSvc, resp),
		Tasks:     tasks.NewHandler(tasks.NewService(st, tasks.WithLogger(log)), resp),
		Verifier:  authSvc,
		Store:     pinger,
		ClientURL: "https://app.example.com/",
		Log:       log,
	})
	return &testServer{t: t, h: h, logs: logs}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) register(name, email string) models.AuthResponse {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"name": name, "email": email, "password": "secret"})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.AuthResponse](s.t, rec)
}

func TestRouter_RootAndHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "API is running...", rec.Body.String())

	rec = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	down := newTestServer(t, fakePinger{err: errors.New("no servers")})
	rec = down.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_TaskLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	ann := s.register("Ann", "ann@example.com")

	rec := s.do(http.MethodGet, "/api/v1/auth/me", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ann@example.com", decode[models.User](t, rec).Email)

	rec = s.do(http.MethodPost, "/api/v1/tasks", ann.Token, map[string]string{"title": "Buy milk"})
	require.Equal(t, http.StatusOK, rec.Code)
	task := decode[models.Task](t, rec)
	assert.Equal(t, ann.User.ID, task.UserID)

	rec = s.do(http.MethodGet, "/api/v1/tasks", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[models.TaskPage](t, rec)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "Buy milk", page.Tasks[0].Title)

	rec = s.do(http.MethodPut, "/api/v1/tasks/"+task.ID, ann.Token, map[string]bool{"isCompleted": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.Task](t, rec).IsCompleted)

	rec = s.do(http.MethodGet, "/api/v1/tasks?filter=pending", ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.TaskPage](t, rec).Tasks)

	rec = s.do(http.MethodDelete, "/api/v1/tasks/"+task.ID, ann.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Task removed"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/tasks", ann.Token, nil)
	assert.Contains(t, rec.Body.String(), `"tasks":[]`)

	rec = s.do(http.MethodPut, "/api/v1/tasks/"+task.ID, ann.Token, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodDelete, "/api/v1/tasks/"+task.ID, ann.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CrossUserAccess(t *testing.T) {
	s := newTestServer(t, nil)
	ann := s.register("Ann", "ann@example.com")
	bob := s.register("Bob", "bob@example.com")

	task := decode[models.Task](t, s.do(http.MethodPost, "/api/v1/tasks", ann.Token, map[string]string{"title": "ann's"}))

	rec := s.do(http.MethodGet, "/api/v1/tasks", bob.Token, nil)
	assert.EqualValues(t, 0, decode[models.TaskPage](t, rec).TotalTasks)

	rec = s.do(http.MethodPut, "/api/v1/tasks/"+task.ID, bob.Token, map[string]string{"title": "bob's"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized", decode[httpx.ErrorResponse](t, rec).Message)

	rec = s.do(http.MethodDelete, "/api/v1/tasks/"+task.ID, bob.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AuthErrors(t *testing.T) {
	s := newTestServer(t, nil)
	s.register("Ann", "ann@example.com")

	rec := s.do(http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"name": "Ann", "email": "ann@example.com", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", decode[httpx.ErrorResponse](t, rec).Message)

	rec = s.do(http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token, authorization denied", decode[models.MessageResponse](t, rec).Message)

	rec = s.do(http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is not valid", decode[models.MessageResponse](t, rec).Message)
}

func TestRouter_CORS(t *testing.T) {
	s := newTestServer(t, nil)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/tasks", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
		rec := httptest.NewRecorder()
		s.h.ServeHTTP(rec, req)
		return rec
	}

	for _, origin := range []string{
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://localhost:8081",
		"https://app.example.com",
		"https://preview-123.vercel.app",
	} {
		rec := preflight(origin)
		assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"), origin)
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"), origin)
	}

	for _, origin := range []string{
		"https://evil.example.com",
		"https://localhost:3000",
		"http://localhost",
		"https://vercel.app.evil.com",
	} {
		rec := preflight(origin)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), origin)
	}
	assert.True(t, strings.Contains(s.logs.String(), "CORS blocked origin"))
}
