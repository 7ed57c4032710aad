// Package tasks implements the per-user task list: listing with search,
// filter and pagination, plus create, partial update and delete guarded by
// an ownership check.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/ayush/task-manager/backend/internal/models"
)

const (
	DefaultPage     = 1
	DefaultLimit    = 10
	DefaultMaxLimit = 100
)

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	InsertTask(ctx context.Context, t *models.Task) error
	ListTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, int64, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// Service applies ownership rules on top of a TaskStore.
type Service struct {
	store    TaskStore
	maxLimit int
	log      *slog.Logger
}

type Option func(*Service)

// WithMaxLimit caps the page size. Zero or negative disables the cap.
func WithMaxLimit(n int) Option {
	return func(s *Service) { s.maxLimit = n }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(store TaskStore, opts ...Option) *Service {
	s := &Service{store: store, maxLimit: DefaultMaxLimit, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTasks returns one page of the user's tasks, newest first.
func (s *Service) ListTasks(ctx context.Context, userID string, q models.TaskQuery) (*models.TaskPage, error) {
	if q.Page < 1 {
		return nil, models.NewValidationError("page must be at least 1")
	}
	if q.Limit < 1 {
		return nil, models.NewValidationError("limit must be at least 1")
	}
	if s.maxLimit > 0 && q.Limit > s.maxLimit {
		q.Limit = s.maxLimit
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return nil, models.NewValidationError("page is too large")
	}
	q.UserID = userID

	tasks, total, err := s.store.ListTasks(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return &models.TaskPage{
		Tasks:       tasks,
		CurrentPage: q.Page,
		TotalPages:  int((total + int64(q.Limit) - 1) / int64(q.Limit)),
		TotalTasks:  total,
	}, nil
}

// CreateTask stores a new, incomplete task owned by userID.
func (s *Service) CreateTask(ctx context.Context, userID, title string, description *string) (*models.Task, error) {
	t := &models.Task{
		Title:       title,
		Description: description,
		UserID:      userID,
	}
	if err := s.store.InsertTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.log.DebugContext(ctx, "task created", "user_id", userID, "task_id", t.ID)
	return t, nil
}

// UpdateTask applies the fields present in patch to the user's task.
func (s *Service) UpdateTask(ctx context.Context, userID, id string, patch models.TaskPatch) (*models.Task, error) {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.Title.Set {
		if patch.Title.Null {
			return nil, models.NewValidationError("title cannot be null")
		}
		t.Title = patch.Title.Value
	}
	if patch.Description.Set {
		t.Description = patch.Description.Ptr()
	}
	if patch.IsCompleted.Set {
		if patch.IsCompleted.Null {
			return nil, models.NewValidationError("isCompleted cannot be null")
		}
		t.IsCompleted = patch.IsCompleted.Value
	}

	if err := s.store.UpdateTask(ctx, t); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// DeleteTask removes the user's task.
func (s *Service) DeleteTask(ctx context.Context, userID, id string) (*models.MessageResponse, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTaskNotFound
		}
		return nil, fmt.Errorf("delete task: %w", err)
	}
	s.log.DebugContext(ctx, "task deleted", "user_id", userID, "task_id", id)
	return &models.MessageResponse{Message: "Task removed"}, nil
}

// owned loads a task and checks that userID owns it.
func (s *Service) owned(ctx context.Context, userID, id string) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	if t.UserID != userID {
		s.log.WarnContext(ctx, "task ownership mismatch", "user_id", userID, "task_id", id)
		return nil, models.ErrNotOwner
	}
	return t, nil
}
