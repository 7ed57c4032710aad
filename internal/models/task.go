package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Task filter values accepted by the list endpoint.
const (
	FilterCompleted = "completed"
	FilterPending   = "pending"
)

// Task is a single to-do item owned by exactly one user.
type Task struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsCompleted bool      `json:"isCompleted"`
	UserID      string    `json:"user"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskQuery describes one page of a user's task list.
// Filter values other than FilterCompleted and FilterPending are ignored.
type TaskQuery struct {
	UserID string `json:"-"`
	Search string `json:"search"`
	Filter string `json:"filter"`
	Page   int    `json:"page"  validate:"min=1"`
	Limit  int    `json:"limit" validate:"min=1"`
}

// Skip is the number of matching tasks before the requested page.
func (q TaskQuery) Skip() int {
	return (q.Page - 1) * q.Limit
}

// Completed reports the completion flag the filter selects, if any.
func (q TaskQuery) Completed() (bool, bool) {
	switch q.Filter {
	case FilterCompleted:
		return true, true
	case FilterPending:
		return false, true
	}
	return false, false
}

// TaskPage is the JSON body for GET /api/v1/tasks.
type TaskPage struct {
	Tasks       []Task `json:"tasks"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	TotalTasks  int64  `json:"totalTasks"`
}

// CreateTaskRequest is the JSON body for POST /api/v1/tasks.
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// TaskPatch is the JSON body for PUT /api/v1/tasks/{id}. Only fields present
// in the body are applied; an explicit null is kept apart from an absent key.
type TaskPatch struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	IsCompleted Optional[bool]   `json:"isCompleted"`
}

// MessageResponse is a bare {"message": ...} body.
type MessageResponse struct {
	Message string `json:"message"`
}

// Optional is a JSON field that remembers whether it was present and
// whether it was null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a present Optional holding JSON null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Ptr returns nil for null, otherwise a pointer to the value.
func (o Optional[T]) Ptr() *T {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}
