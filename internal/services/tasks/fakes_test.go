package tasks

import (
	"context"
	"sync"

	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/models"
	"github.com/google/uuid"
)

type fakeTaskStore struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*models.Task
	createErr error
}

var _ database.TaskStore = (*fakeTaskStore)(nil)

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*models.Task)}
}

func clone(t *models.Task) *models.Task {
	c := *t
	c.Subtasks = append([]models.Subtask(nil), t.Subtasks...)
	c.CustomReminders = append([]int(nil), t.CustomReminders...)
	return &c
}

func (f *fakeTaskStore) Create(_ context.Context, task *models.Task) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = clone(task)
	return nil
}

func (f *fakeTaskStore) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return clone(t), nil
}

func (f *fakeTaskStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Task
	for _, t := range f.tasks {
		if t.Owner.ID == ownerID {
			out = append(out, clone(t))
		}
	}
	return out, nil
}

func (f *fakeTaskStore) ListByProject(_ context.Context, ownerID, projectID uuid.UUID) ([]*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Task
	for _, t := range f.tasks {
		if t.Owner.ID == ownerID && t.Project.ID == projectID {
			out = append(out, clone(t))
		}
	}
	return out, nil
}

func (f *fakeTaskStore) Update(_ context.Context, task *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[task.ID]; !ok {
		return database.ErrNotFound
	}
	f.tasks[task.ID] = clone(task)
	return nil
}

func (f *fakeTaskStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskStore) DeleteByProject(_ context.Context, projectID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.tasks {
		if t.Project.ID == projectID {
			delete(f.tasks, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTaskStore) SyncProjectName(_ context.Context, projectID uuid.UUID, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tasks {
		if t.Project.ID == projectID && t.Project.Name != name {
			t.Project.Name = name
			n++
		}
	}
	return n, nil
}

type fakeProjectStore struct {
	projects map[uuid.UUID]*models.Project
}

var _ database.ProjectStore = (*fakeProjectStore)(nil)

func newFakeProjectStore(projects ...*models.Project) *fakeProjectStore {
	f := &fakeProjectStore{projects: make(map[uuid.UUID]*models.Project)}
	for _, p := range projects {
		f.projects[p.ID] = p
	}
	return f
}

func (f *fakeProjectStore) Create(_ context.Context, p *models.Project) error {
	f.projects[p.ID] = p
	return nil
}

func (f *fakeProjectStore) GetByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeProjectStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range f.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjectStore) Update(_ context.Context, p *models.Project) error {
	f.projects[p.ID] = p
	return nil
}

func (f *fakeProjectStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.projects, id)
	return nil
}
