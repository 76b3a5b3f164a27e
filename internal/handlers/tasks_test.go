package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/benvon/smart-tasks/internal/lifecycle"
	"github.com/benvon/smart-tasks/internal/models"
	"github.com/benvon/smart-tasks/internal/services/tasks"
	"github.com/google/uuid"
)

var taskID = uuid.MustParse("22222222-2222-2222-2222-222222222222")

func sampleTask(owner *models.User) *models.Task {
	return &models.Task{
		ID:       taskID,
		Name:     "Write report",
		Owner:    owner.Ref(),
		Status:   models.TaskStatusTodo,
		Priority: models.TaskPriorityMedium,
		EndDate:  time.Date(2026, 3, 12, 17, 0, 0, 0, time.UTC),
	}
}

func TestTaskHandler_RequiresUser(t *testing.T) {
	t.Parallel()

	h := NewTaskHandler(&mockTaskService{}, nil)
	w := serve(h.RegisterRoutes, "/api/tasks", nil, http.MethodGet, "/api/tasks", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestTaskHandler_ListTasks(t *testing.T) {
	t.Parallel()

	user := testUser()
	svc := &mockTaskService{
		listFunc: func(ctx context.Context, u *models.User) (*tasks.ListResult, error) {
			list := []*models.Task{sampleTask(u)}
			return &tasks.ListResult{Tasks: list, Counts: models.CountTasks(list)}, nil
		},
	}

	w := serve(NewTaskHandler(svc, nil).RegisterRoutes, "/api/tasks", user, http.MethodGet, "/api/tasks", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := decodeEnvelope(t, w)
	data, _ := body["data"].(map[string]any)
	counts, _ := data["counts"].(map[string]any)
	if counts["todo"] != float64(1) {
		t.Errorf("Expected todo count 1, got %v", counts["todo"])
	}
}

func TestTaskHandler_GetTask_InvalidID(t *testing.T) {
	t.Parallel()

	w := serve(NewTaskHandler(&mockTaskService{}, nil).RegisterRoutes, "/api/tasks", testUser(), http.MethodGet, "/api/tasks/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestTaskHandler_GetTask_NotFound(t *testing.T) {
	t.Parallel()

	svc := &mockTaskService{
		getFunc: func(ctx context.Context, u *models.User, id uuid.UUID) (*models.Task, error) {
			return nil, tasks.ErrNotFound
		},
	}

	w := serve(NewTaskHandler(svc, nil).RegisterRoutes, "/api/tasks", testUser(), http.MethodGet, "/api/tasks/"+taskID.String(), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestTaskHandler_CreateTask(t *testing.T) {
	t.Parallel()

	user := testUser()
	var got tasks.CreateInput
	svc := &mockTaskService{
		createFunc: func(ctx context.Context, u *models.User, in tasks.CreateInput) (*models.Task, error) {
			got = in
			return sampleTask(u), nil
		},
	}

	body := `{"name":"Write report","project_id":"33333333-3333-3333-3333-333333333333",` +
		`"start_date":"2026-03-10T09:00:00Z","end_date":"2026-03-12T17:00:00Z","custom_reminders":[24,2]}`
	w := serve(NewTaskHandler(svc, nil).RegisterRoutes, "/api/tasks", user, http.MethodPost, "/api/tasks", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if got.Name != "Write report" {
		t.Errorf("Expected name 'Write report', got '%s'", got.Name)
	}
	if got.EndDate == nil || !got.EndDate.Equal(time.Date(2026, 3, 12, 17, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected end date to be decoded, got %v", got.EndDate)
	}
	if len(got.CustomReminders) != 2 {
		t.Errorf("Expected 2 reminders, got %d", len(got.CustomReminders))
	}
}

func TestTaskHandler_CreateTask_BadBody(t *testing.T) {
	t.Parallel()

	w := serve(NewTaskHandler(&mockTaskService{}, nil).RegisterRoutes, "/api/tasks", testUser(), http.MethodPost, "/api/tasks", `{"name":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestTaskHandler_UpdateTask_StatusRuleRejected(t *testing.T) {
	t.Parallel()

	var got tasks.UpdateInput
	svc := &mockTaskService{
		updateFunc: func(ctx context.Context, u *models.User, id uuid.UUID, in tasks.UpdateInput) (*models.Task, error) {
			got = in
			return nil, &lifecycle.TransitionError{Target: models.TaskStatusCompleted, Reason: lifecycle.ReasonSubtasksUnfinished}
		},
	}

	w := serve(NewTaskHandler(svc, nil).RegisterRoutes, "/api/tasks", testUser(), http.MethodPatch, "/api/tasks/"+taskID.String(), `{"status":"completed"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", w.Code)
	}
	if got.Status == nil || *got.Status != models.TaskStatusCompleted {
		t.Errorf("Expected status to be passed through, got %v", got.Status)
	}
	if got.Name != nil {
		t.Error("Expected omitted name to stay nil")
	}
}

func TestTaskHandler_DeleteTask(t *testing.T) {
	t.Parallel()

	var deleted uuid.UUID
	svc := &mockTaskService{
		deleteFunc: func(ctx context.Context, u *models.User, id uuid.UUID) error {
			deleted = id
			return nil
		},
	}

	w := serve(NewTaskHandler(svc, nil).RegisterRoutes, "/api/tasks", testUser(), http.MethodDelete, "/api/tasks/"+taskID.String(), "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if deleted != taskID {
		t.Errorf("Expected %s to be deleted, got %s", taskID, deleted)
	}
}

func TestTaskHandler_ListProjectTasks(t *testing.T) {
	t.Parallel()

	projectID := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	var got uuid.UUID
	svc := &mockTaskService{
		listByProjectFunc: func(ctx context.Context, u *models.User, id uuid.UUID) ([]*models.Task, error) {
			got = id
			return []*models.Task{}, nil
		},
	}

	w := serve(NewTaskHandler(svc, nil).RegisterRoutes, "/api/tasks", testUser(), http.MethodGet, "/api/tasks/project/"+projectID.String(), "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if got != projectID {
		t.Errorf("Expected project %s, got %s", projectID, got)
	}
}
