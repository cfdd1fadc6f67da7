package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"prism-dashboard/domain"
)

const (
	projectsCollection = "projects"
	tasksCollection    = "tasks"
)

type projectDoc struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	OwnerID    string    `bson:"owner_id"`
	Members    []string  `bson:"members"`
	Visibility string    `bson:"visibility"`
	Status     string    `bson:"status"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (d projectDoc) project() domain.Project {
	return domain.Project{
		ID:         d.ID,
		Name:       d.Name,
		OwnerID:    d.OwnerID,
		Members:    d.Members,
		Visibility: domain.Visibility(d.Visibility),
		Status:     domain.ProjectStatus(d.Status),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type taskDoc struct {
	ID         string     `bson:"_id"`
	ProjectID  string     `bson:"project_id"`
	Status     string     `bson:"status"`
	Priority   string     `bson:"priority"`
	AssigneeID string     `bson:"assignee_id,omitempty"`
	DueDate    *time.Time `bson:"due_date,omitempty"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
}

func (d taskDoc) task() domain.Task {
	return domain.Task{
		ID:         d.ID,
		ProjectID:  d.ProjectID,
		Status:     domain.TaskStatus(d.Status),
		Priority:   domain.TaskPriority(d.Priority),
		AssigneeID: d.AssigneeID,
		DueDate:    d.DueDate,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// MongoStore serves project and task reads from MongoDB.
type MongoStore struct {
	client   *mongo.Client
	projects *mongo.Collection
	tasks    *mongo.Collection
}

// NewMongoStore connects to uri and uses database db.
func NewMongoStore(ctx context.Context, uri, db string) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetRetryReads(true)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	database := client.Database(db)
	return &MongoStore{
		client:   client,
		projects: database.Collection(projectsCollection),
		tasks:    database.Collection(tasksCollection),
	}, nil
}

func projectQuery(filter domain.ProjectFilter) bson.M {
	if filter.All {
		return bson.M{}
	}
	public := bson.M{"visibility": string(domain.VisibilityPublic)}
	if filter.VisibleTo == "" {
		return public
	}
	return bson.M{"$or": bson.A{
		bson.M{"owner_id": filter.VisibleTo},
		bson.M{"members": filter.VisibleTo},
		public,
	}}
}

func taskQuery(filter domain.TaskFilter) bson.M {
	q := bson.M{"project_id": bson.M{"$in": filter.ProjectIDs}}
	if !filter.TouchedSince.IsZero() {
		since := filter.TouchedSince.UTC()
		q["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$gte": since}},
			bson.M{"updated_at": bson.M{"$gte": since}},
		}
	}
	return q
}

func statusCountPipeline(projectIDs []string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"project_id": bson.M{"$in": projectIDs}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// FindProjects returns the projects matching filter sorted by ID.
func (s *MongoStore) FindProjects(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	cur, err := s.projects.Find(ctx, projectQuery(filter), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find projects: %w", err)
	}
	var docs []projectDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read projects: %w", err)
	}
	out := make([]domain.Project, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.project())
	}
	return out, nil
}

// FindTasks returns the tasks matching filter.
func (s *MongoStore) FindTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	if len(filter.ProjectIDs) == 0 {
		return nil, nil
	}
	cur, err := s.tasks.Find(ctx, taskQuery(filter))
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	out := make([]domain.Task, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.task())
	}
	return out, nil
}

// StatusCounts groups the tasks of projectIDs by status on the server.
func (s *MongoStore) StatusCounts(ctx context.Context, projectIDs []string) ([]domain.StatusCount, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	cur, err := s.tasks.Aggregate(ctx, statusCountPipeline(projectIDs))
	if err != nil {
		return nil, fmt.Errorf("aggregate status counts: %w", err)
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int    `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("read status counts: %w", err)
	}
	out := make([]domain.StatusCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.StatusCount{Status: domain.TaskStatus(r.Status), Count: r.Count})
	}
	return out, nil
}

// Ping checks the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
