package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/task-manager/backend/internal/models"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *userDoc) model() *models.User {
	return &models.User{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Password:  d.Password,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type taskDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description *string            `bson:"description"`
	IsCompleted bool               `bson:"isCompleted"`
	User        primitive.ObjectID `bson:"user"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *taskDoc) model() models.Task {
	return models.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		IsCompleted: d.IsCompleted,
		UserID:      d.User.Hex(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoStore keeps users and tasks in two MongoDB collections.
type MongoStore struct {
	db    *mongo.Database
	users *mongo.Collection
	tasks *mongo.Collection
	now   func() time.Time
}

// ConnectMongo dials uri and pings the primary before returning.
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:    db,
		users: db.Collection("users"),
		tasks: db.Collection("tasks"),
		now:   time.Now,
	}
}

// EnsureIndexes creates the unique email index and the per-owner listing index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongo users index: %w", err)
	}
	_, err = s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo tasks index: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// stamp is the current time at the millisecond precision BSON dates keep.
func (s *MongoStore) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	now := s.stamp()
	doc := userDoc{
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.Password,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateUser
		}
		return fmt.Errorf("mongo insert user: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID).Hex()
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) InsertTask(ctx context.Context, t *models.Task) error {
	owner, err := primitive.ObjectIDFromHex(t.UserID)
	if err != nil {
		return fmt.Errorf("mongo insert task: invalid owner %q: %w", t.UserID, err)
	}
	now := s.stamp()
	doc := taskDoc{
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		User:        owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := s.tasks.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("mongo insert task: %w", err)
	}
	t.ID = res.InsertedID.(primitive.ObjectID).Hex()
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

// taskFilter builds the owner/search/status filter for a list query.
// Search is matched as a literal, case-insensitive substring of the title.
func taskFilter(owner primitive.ObjectID, q models.TaskQuery) bson.M {
	filter := bson.M{"user": owner}
	if q.Search != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
	}
	if done, ok := q.Completed(); ok {
		filter["isCompleted"] = done
	}
	return filter
}

func (s *MongoStore) ListTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, int64, error) {
	owner, err := primitive.ObjectIDFromHex(q.UserID)
	if err != nil {
		return []models.Task{}, 0, nil
	}
	filter := taskFilter(owner, q)

	total, err := s.tasks.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo count tasks: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))
	cur, err := s.tasks.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo find tasks: %w", err)
	}
	defer cur.Close(ctx)

	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("mongo decode tasks: %w", err)
	}
	tasks := make([]models.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, docs[i].model())
	}
	return tasks, total, nil
}

func (s *MongoStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	var doc taskDoc
	if err := s.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("mongo find task: %w", err)
	}
	t := doc.model()
	return &t, nil
}

// UpdateTask overwrites the mutable fields of t. The owner is never written.
func (s *MongoStore) UpdateTask(ctx context.Context, t *models.Task) error {
	oid, err := primitive.ObjectIDFromHex(t.ID)
	if err != nil {
		return models.ErrNotFound
	}
	now := s.stamp()
	res, err := s.tasks.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":       t.Title,
		"description": t.Description,
		"isCompleted": t.IsCompleted,
		"updatedAt":   now,
	}})
	if err != nil {
		return fmt.Errorf("mongo update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	t.UpdatedAt = now
	return nil
}

func (s *MongoStore) DeleteTask(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
