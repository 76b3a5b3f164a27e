package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type subtaskDocument struct {
	ID        string `bson:"id"`
	Title     string `bson:"title"`
	Completed bool   `bson:"completed"`
}

type taskDocument struct {
	ID              string            `bson:"_id"`
	OwnerID         string            `bson:"owner_id"`
	OwnerName       string            `bson:"owner_name"`
	ProjectID       string            `bson:"project_id"`
	ProjectName     string            `bson:"project_name"`
	Name            string            `bson:"name"`
	Description     string            `bson:"description"`
	Status          string            `bson:"status"`
	Priority        string            `bson:"priority"`
	StartDate       time.Time         `bson:"start_date"`
	EndDate         time.Time         `bson:"end_date"`
	Subtasks        []subtaskDocument `bson:"subtasks"`
	CustomReminders []int             `bson:"custom_reminders"`
	CreatedAt       time.Time         `bson:"created_at"`
	UpdatedAt       time.Time         `bson:"updated_at"`
}

func newTaskDocument(task *models.Task) taskDocument {
	doc := taskDocument{
		ID:              task.ID.String(),
		OwnerID:         task.Owner.ID.String(),
		OwnerName:       task.Owner.Name,
		ProjectID:       task.Project.ID.String(),
		ProjectName:     task.Project.Name,
		Name:            task.Name,
		Description:     task.Description,
		Status:          string(task.Status),
		Priority:        string(task.Priority),
		StartDate:       task.StartDate.UTC(),
		EndDate:         task.EndDate.UTC(),
		Subtasks:        make([]subtaskDocument, len(task.Subtasks)),
		CustomReminders: task.CustomReminders,
		CreatedAt:       task.CreatedAt.UTC(),
		UpdatedAt:       task.UpdatedAt.UTC(),
	}
	if doc.CustomReminders == nil {
		doc.CustomReminders = []int{}
	}
	for i, st := range task.Subtasks {
		doc.Subtasks[i] = subtaskDocument(st)
	}
	return doc
}

func (d taskDocument) toModel() (*models.Task, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", d.ID, err)
	}
	ownerID, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", d.OwnerID, err)
	}
	projectID, err := uuid.Parse(d.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("invalid project id %q: %w", d.ProjectID, err)
	}

	task := &models.Task{
		ID:              id,
		Name:            d.Name,
		Description:     d.Description,
		Project:         models.ProjectRef{ID: projectID, Name: d.ProjectName},
		Owner:           models.OwnerRef{ID: ownerID, Name: d.OwnerName},
		Status:          models.TaskStatus(d.Status),
		Priority:        models.TaskPriority(d.Priority),
		StartDate:       d.StartDate,
		EndDate:         d.EndDate,
		Subtasks:        make([]models.Subtask, len(d.Subtasks)),
		CustomReminders: d.CustomReminders,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if task.CustomReminders == nil {
		task.CustomReminders = []int{}
	}
	for i, st := range d.Subtasks {
		task.Subtasks[i] = models.Subtask(st)
	}
	return task, nil
}

// TaskStore keeps tasks as documents with embedded subtasks
type TaskStore struct {
	collection *mongo.Collection
}

// NewTaskStore creates a task store on db
func NewTaskStore(db *mongo.Database) *TaskStore {
	return &TaskStore{collection: db.Collection(TasksCollection)}
}

// Create inserts a new task with its subtasks embedded
func (s *TaskStore) Create(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	if _, err := s.collection.InsertOne(ctx, newTaskDocument(task)); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID returns the task with the given id
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var doc taskDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return doc.toModel()
}

// ListByOwner returns every task a user owns
func (s *TaskStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID.String()})
}

// ListByProject returns a user's tasks in one project
func (s *TaskStore) ListByProject(ctx context.Context, ownerID, projectID uuid.UUID) ([]*models.Task, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID.String(), "project_id": projectID.String()})
}

func (s *TaskStore) find(ctx context.Context, filter bson.M) ([]*models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "end_date", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer cur.Close(ctx)

	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	tasks := make([]*models.Task, 0, len(docs))
	for _, doc := range docs {
		task, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Update replaces the stored task document
func (s *TaskStore) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	doc := newTaskDocument(task)

	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": bson.M{
		"project_id":       doc.ProjectID,
		"project_name":     doc.ProjectName,
		"name":             doc.Name,
		"description":      doc.Description,
		"status":           doc.Status,
		"priority":         doc.Priority,
		"start_date":       doc.StartDate,
		"end_date":         doc.EndDate,
		"subtasks":         doc.Subtasks,
		"custom_reminders": doc.CustomReminders,
		"updated_at":       doc.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Delete removes a task
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteByProject removes every task filed under a project
func (s *TaskStore) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{"project_id": projectID.String()})
	if err != nil {
		return 0, fmt.Errorf("failed to delete project tasks: %w", err)
	}
	return res.DeletedCount, nil
}

// SyncProjectName rewrites the copied project name on the project's tasks
func (s *TaskStore) SyncProjectName(ctx context.Context, projectID uuid.UUID, name string) (int64, error) {
	res, err := s.collection.UpdateMany(ctx,
		bson.M{"project_id": projectID.String(), "project_name": bson.M{"$ne": name}},
		bson.M{"$set": bson.M{"project_name": name, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sync project name: %w", err)
	}
	return res.ModifiedCount, nil
}

var _ database.TaskStore = (*TaskStore)(nil)
