package tasks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/task-manager/backend/internal/httpx"
	"github.com/ayush/task-manager/backend/internal/middleware"
	"github.com/ayush/task-manager/backend/internal/models"
	"github.com/ayush/task-manager/backend/internal/store"
)

// asUser stands in for RequireAuth by injecting a fixed user id.
func asUser(r *http.Request) *http.Request {
	id := r.Header.Get("X-Test-User")
	if id == "" {
		return r
	}
	return r.WithContext(middleware.WithUserID(r.Context(), id))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	h := NewHandler(NewService(store.NewMemoryStore()), &httpx.Responder{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, asUser(r))
		})
	})
	r.Get("/tasks", h.List)
	r.Post("/tasks", h.Create)
	r.Put("/tasks/{id}", h.Update)
	r.Delete("/tasks/{id}", h.Delete)
	return r
}

func do(t *testing.T, h http.Handler, user, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandler_CreateAndList(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, "u1", http.MethodPost, "/tasks", `{"title":"Buy milk","description":"2 liters"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	for _, key := range []string{"_id", "title", "description", "isCompleted", "user", "createdAt", "updatedAt"} {
		assert.Contains(t, created, key)
	}
	assert.Equal(t, "u1", created["user"])
	assert.Equal(t, false, created["isCompleted"])

	rec = do(t, h, "u1", http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeInto[models.TaskPage](t, rec)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 1, page.TotalPages)
	assert.EqualValues(t, 1, page.TotalTasks)

	rec = do(t, h, "u2", http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tasks":[]`)
}

func TestHandler_ListQueryParams(t *testing.T) {
	h := newTestRouter(t)
	for _, title := range []string{"alpha", "beta", "gamma"} {
		require.Equal(t, http.StatusOK, do(t, h, "u1", http.MethodPost, "/tasks", `{"title":"`+title+`"}`).Code)
	}

	rec := do(t, h, "u1", http.MethodGet, "/tasks?page=2&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeInto[models.TaskPage](t, rec)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "alpha", page.Tasks[0].Title)
	assert.Equal(t, 2, page.TotalPages)

	rec = do(t, h, "u1", http.MethodGet, "/tasks?search=AL", "")
	page = decodeInto[models.TaskPage](t, rec)
	assert.EqualValues(t, 1, page.TotalTasks)

	bad := map[string]string{
		"/tasks?page=abc":  "page must be a number",
		"/tasks?limit=1.5": "limit must be a number",
		"/tasks?page=0":    "page must be at least 1",
		"/tasks?limit=-3":  "limit must be at least 1",

		"/tasks?page=4611686018427387905&limit=4": "page is too large",
	}
	for target, msg := range bad {
		rec := do(t, h, "u1", http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, msg, decodeInto[httpx.ErrorResponse](t, rec).Message, target)
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	h := newTestRouter(t)
	task := decodeInto[models.Task](t, do(t, h, "u1", http.MethodPost, "/tasks", `{"title":"Draft","description":"notes"}`))

	rec := do(t, h, "u1", http.MethodPut, "/tasks/"+task.ID, `{"isCompleted":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeInto[models.Task](t, rec)
	assert.True(t, updated.IsCompleted)
	assert.Equal(t, "Draft", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "notes", *updated.Description)

	rec = do(t, h, "u1", http.MethodPut, "/tasks/"+task.ID, `{"description":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"description":null`)

	rec = do(t, h, "u2", http.MethodPut, "/tasks/"+task.ID, `{"title":"stolen"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized", decodeInto[httpx.ErrorResponse](t, rec).Message)

	rec = do(t, h, "u2", http.MethodDelete, "/tasks/"+task.ID, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, "u1", http.MethodDelete, "/tasks/"+task.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Task removed", decodeInto[models.MessageResponse](t, rec).Message)

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		body := ""
		if method == http.MethodPut {
			body = `{"title":"x"}`
		}
		rec := do(t, h, "u1", method, "/tasks/"+task.ID, body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Task not found", decodeInto[httpx.ErrorResponse](t, rec).Message)
	}
}

func TestHandler_BadBodies(t *testing.T) {
	h := newTestRouter(t)
	task := decodeInto[models.Task](t, do(t, h, "u1", http.MethodPost, "/tasks", `{"title":"x"}`))

	tests := []struct {
		method, target, body, want string
	}{
		{http.MethodPost, "/tasks", `{"title":`, "Invalid request body"},
		{http.MethodPut, "/tasks/" + task.ID, `{"isCompleted":"yes"}`, "Invalid request body"},
		{http.MethodPut, "/tasks/" + task.ID, `{"title":null}`, "title cannot be null"},
	}
	for _, tt := range tests {
		rec := do(t, h, "u1", tt.method, tt.target, tt.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		assert.Equal(t, tt.want, decodeInto[httpx.ErrorResponse](t, rec).Message, tt.body)
	}
}

func TestHandler_RequiresUser(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, "", http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
