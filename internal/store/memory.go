package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayush/task-manager/backend/internal/models"
)

type memTask struct {
	models.Task
	seq int64
}

// MemoryStore is a process-local Store used when no database is configured
// and in tests. Each call is atomic; nothing spans calls.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
	tasks   map[string]*memTask
	seq     int64
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		tasks:   make(map[string]*memTask),
		now:     time.Now,
	}
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return models.ErrDuplicateUser
	}
	now := s.now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) InsertTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	s.seq++
	s.tasks[t.ID] = &memTask{Task: cloneTask(*t), seq: s.seq}
	return nil
}

func (s *MemoryStore) matches(t *memTask, q models.TaskQuery) bool {
	if t.UserID != q.UserID {
		return false
	}
	if q.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(q.Search)) {
		return false
	}
	if done, ok := q.Completed(); ok && t.IsCompleted != done {
		return false
	}
	return true
}

func (s *MemoryStore) ListTasks(_ context.Context, q models.TaskQuery) ([]models.Task, int64, error) {
	s.mu.RLock()
	var hits []*memTask
	for _, t := range s.tasks {
		if s.matches(t, q) {
			hits = append(hits, t)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].seq > hits[j].seq
	})
	tasks := []models.Task{}
	for i := q.Skip(); i >= 0 && i < len(hits) && len(tasks) < q.Limit; i++ {
		tasks = append(tasks, cloneTask(hits[i].Task))
	}
	s.mu.RUnlock()
	return tasks, int64(len(hits)), nil
}

func (s *MemoryStore) GetTask(_ context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := cloneTask(t.Task)
	return &out, nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[t.ID]
	if !ok {
		return models.ErrNotFound
	}
	cur.Title = t.Title
	cur.Description = cloneString(t.Description)
	cur.IsCompleted = t.IsCompleted
	cur.UpdatedAt = s.now().UTC()
	t.UpdatedAt = cur.UpdatedAt
	return nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func cloneTask(t models.Task) models.Task {
	t.Description = cloneString(t.Description)
	return t
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
