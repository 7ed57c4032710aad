// Package store holds the persistence drivers for users and tasks. Every
// driver satisfies Store; Open picks one from Options and returns a handle
// that lives for the whole process.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayush/task-manager/backend/internal/models"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Store is the persistence surface shared by all drivers.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	InsertTask(ctx context.Context, t *models.Task) error
	ListTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, int64, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	_ Store = (*MongoStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// Options selects and configures a driver.
type Options struct {
	Driver       string
	MongoURI     string
	MongoDB      string
	MongoTimeout time.Duration
	PostgresDSN  string
}

// Open connects the configured driver and prepares its schema or indexes.
func Open(ctx context.Context, opts Options, log *slog.Logger) (Store, error) {
	switch opts.Driver {
	case DriverMongo:
		client, err := ConnectMongo(ctx, opts.MongoURI, opts.MongoTimeout)
		if err != nil {
			return nil, err
		}
		s := NewMongoStore(client.Database(opts.MongoDB))
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info("store ready", "driver", DriverMongo, "database", opts.MongoDB)
		return s, nil

	case DriverPostgres:
		if err := Migrate(ctx, opts.PostgresDSN); err != nil {
			return nil, err
		}
		pool, err := ConnectPostgres(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		log.Info("store ready", "driver", DriverPostgres)
		return NewPostgresStore(pool), nil

	case DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
}
