package projects

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/models"
	"github.com/google/uuid"
)

type mockProjectStore struct {
	projects map[uuid.UUID]*models.Project
}

var _ database.ProjectStore = (*mockProjectStore)(nil)

func (m *mockProjectStore) Create(_ context.Context, p *models.Project) error {
	m.projects[p.ID] = p
	return nil
}

func (m *mockProjectStore) GetByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m *mockProjectStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProjectStore) Update(_ context.Context, p *models.Project) error {
	m.projects[p.ID] = p
	return nil
}

func (m *mockProjectStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.projects, id)
	return nil
}

type mockTaskStore struct {
	database.TaskStore
	DeleteByProjectFunc func(ctx context.Context, projectID uuid.UUID) (int64, error)
	SyncProjectNameFunc func(ctx context.Context, projectID uuid.UUID, name string) (int64, error)
}

func (m *mockTaskStore) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	return m.DeleteByProjectFunc(ctx, projectID)
}

func (m *mockTaskStore) SyncProjectName(ctx context.Context, projectID uuid.UUID, name string) (int64, error) {
	return m.SyncProjectNameFunc(ctx, projectID, name)
}

func newService(tasks *mockTaskStore) (*Service, *mockProjectStore) {
	store := &mockProjectStore{projects: make(map[uuid.UUID]*models.Project)}
	if tasks == nil {
		tasks = &mockTaskStore{}
	}
	return NewService(store, tasks, nil), store
}

func TestCreateAndList(t *testing.T) {
	t.Parallel()
	svc, _ := newService(nil)
	ctx := context.Background()
	user := &models.User{ID: uuid.New()}
	other := &models.User{ID: uuid.New()}

	p, err := svc.Create(ctx, user, Input{Name: "  Garden  ", Description: "veg"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Name != "Garden" {
		t.Errorf("Expected trimmed name Garden, got %q", p.Name)
	}
	if p.OwnerID != user.ID {
		t.Errorf("Expected owner %s, got %s", user.ID, p.OwnerID)
	}

	list, err := svc.List(ctx, user)
	if err != nil || len(list) != 1 {
		t.Errorf("Expected 1 project, got %d (%v)", len(list), err)
	}
	list, err = svc.List(ctx, other)
	if err != nil || list == nil || len(list) != 0 {
		t.Errorf("Expected empty list for other user, got %v (%v)", list, err)
	}
	if _, err := svc.Get(ctx, other, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	svc, _ := newService(nil)
	user := &models.User{ID: uuid.New()}

	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"empty name", Input{Name: " "}, ErrInvalidName},
		{"long name", Input{Name: strings.Repeat("x", MaxNameLength+1)}, ErrInvalidName},
		{"long description", Input{Name: "ok", Description: strings.Repeat("x", MaxDescriptionLength+1)}, ErrInvalidDescription},
	}

	for _, tt := range tests {
		if _, err := svc.Create(context.Background(), user, tt.in); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestDeleteRemovesTasks(t *testing.T) {
	t.Parallel()
	var deletedFor uuid.UUID
	tasks := &mockTaskStore{
		DeleteByProjectFunc: func(_ context.Context, projectID uuid.UUID) (int64, error) {
			deletedFor = projectID
			return 3, nil
		},
	}
	svc, store := newService(tasks)
	ctx := context.Background()
	user := &models.User{ID: uuid.New()}

	p, err := svc.Create(ctx, user, Input{Name: "Work"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := svc.Delete(ctx, &models.User{ID: uuid.New()}, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for foreign delete, got %v", err)
	}
	if err := svc.Delete(ctx, user, p.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if deletedFor != p.ID {
		t.Errorf("Expected tasks deleted for %s, got %s", p.ID, deletedFor)
	}
	if _, ok := store.projects[p.ID]; ok {
		t.Error("Expected project to be removed")
	}
}

func TestDeleteStopsOnTaskError(t *testing.T) {
	t.Parallel()
	tasks := &mockTaskStore{
		DeleteByProjectFunc: func(context.Context, uuid.UUID) (int64, error) {
			return 0, errors.New("boom")
		},
	}
	svc, store := newService(tasks)
	ctx := context.Background()
	user := &models.User{ID: uuid.New()}

	p, _ := svc.Create(ctx, user, Input{Name: "Work"})
	if err := svc.Delete(ctx, user, p.ID); err == nil {
		t.Fatal("Expected error")
	}
	if _, ok := store.projects[p.ID]; !ok {
		t.Error("Expected project to be kept when task deletion fails")
	}
}

func TestUpdateDoesNotTouchTasks(t *testing.T) {
	t.Parallel()
	tasks := &mockTaskStore{
		SyncProjectNameFunc: func(context.Context, uuid.UUID, string) (int64, error) {
			t.Error("Expected no task sync on rename")
			return 0, nil
		},
	}
	svc, _ := newService(tasks)
	ctx := context.Background()
	user := &models.User{ID: uuid.New()}

	p, _ := svc.Create(ctx, user, Input{Name: "Old"})
	updated, err := svc.Update(ctx, user, p.ID, Input{Name: "New"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Name != "New" {
		t.Errorf("Expected New, got %s", updated.Name)
	}
}

func TestResyncNames(t *testing.T) {
	t.Parallel()
	var gotName string
	tasks := &mockTaskStore{
		SyncProjectNameFunc: func(_ context.Context, _ uuid.UUID, name string) (int64, error) {
			gotName = name
			return 2, nil
		},
	}
	svc, _ := newService(tasks)
	ctx := context.Background()
	user := &models.User{ID: uuid.New()}

	p, _ := svc.Create(ctx, user, Input{Name: "Renamed"})
	n, err := svc.ResyncNames(ctx, p.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n != 2 || gotName != "Renamed" {
		t.Errorf("Expected 2 tasks synced to Renamed, got %d %q", n, gotName)
	}
	if _, err := svc.ResyncNames(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
