package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benvon/smart-tasks/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mockTaskLister is a mock implementation of TaskLister
type mockTaskLister struct {
	listByOwnerFunc func(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error)
}

func (m *mockTaskLister) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error) {
	if m.listByOwnerFunc != nil {
		return m.listByOwnerFunc(ctx, ownerID)
	}
	return nil, nil
}

// recordingDispatcher records every notice and can be told to fail
type recordingDispatcher struct {
	mu          sync.Mutex
	notices     []Notice
	displayFunc func(ctx context.Context, notice Notice) error
}

func (d *recordingDispatcher) Display(ctx context.Context, notice Notice) error {
	if d.displayFunc != nil {
		if err := d.displayFunc(ctx, notice); err != nil {
			return err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, notice)
	return nil
}

func (d *recordingDispatcher) bodies() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.notices))
	for i, n := range d.notices {
		out[i] = n.Body
	}
	return out
}

var (
	_ TaskLister = (*mockTaskLister)(nil)
	_ Dispatcher = (*recordingDispatcher)(nil)
)

func newTestEngine(dispatcher Dispatcher) (*Engine, *MemoryLedger, *MemoryFeed) {
	ledger := NewMemoryLedger()
	feed := NewMemoryFeed()
	engine := NewEngine(&mockTaskLister{}, ledger, feed, dispatcher, zap.NewNop())
	return engine, ledger, feed
}

func newTestUser() *models.User {
	return &models.User{ID: uuid.New(), Name: "Test User", NotificationsEnabled: true}
}

var baseTime = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func TestEngine_IdempotentFiring(t *testing.T) {
	t.Parallel()

	dispatcher := &recordingDispatcher{}
	engine, _, _ := newTestEngine(dispatcher)
	user := newTestUser()
	task := &models.Task{
		ID:              uuid.New(),
		Name:            "Ship release",
		Status:          models.TaskStatusTodo,
		EndDate:         baseTime.Add(2 * time.Hour),
		CustomReminders: []int{2},
	}

	engine.EvaluateTasks(context.Background(), user, []*models.Task{task}, baseTime)
	engine.EvaluateTasks(context.Background(), user, []*models.Task{task}, baseTime)

	if got := len(dispatcher.bodies()); got != 1 {
		t.Errorf("Expected 1 notification across two runs, got %d", got)
	}
}

func TestEngine_CustomReminderWindow(t *testing.T) {
	t.Parallel()

	// endDate = T+24h, reminder 3h before => trigger at T+21h
	endDate := baseTime.Add(24 * time.Hour)
	trigger := baseTime.Add(21 * time.Hour)

	tests := []struct {
		name      string
		now       time.Time
		expectHit bool
	}{
		{"one minute early", trigger.Add(-time.Minute), false},
		{"long before", baseTime, false},
		{"exactly at trigger", trigger, true},
		{"inside window", trigger.Add(4*time.Minute + 59*time.Second), true},
		{"window boundary", trigger.Add(5 * time.Minute), false},
		{"outside window", trigger.Add(6 * time.Minute), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dispatcher := &recordingDispatcher{}
			engine, _, _ := newTestEngine(dispatcher)
			task := &models.Task{
				ID:              uuid.New(),
				Name:            "Prepare slides",
				Status:          models.TaskStatusTodo,
				EndDate:         endDate,
				CustomReminders: []int{3},
			}

			result := engine.EvaluateTasks(context.Background(), newTestUser(), []*models.Task{task}, tt.now)

			hit := len(result.Fired) == 1
			if hit != tt.expectHit {
				t.Errorf("Expected fired=%v at %s, got %v", tt.expectHit, tt.now, hit)
			}
			if hit && result.Fired[0] != CustomKey(task.ID, 3) {
				t.Errorf("Expected key %s, got %s", CustomKey(task.ID, 3), result.Fired[0])
			}
		})
	}
}

func TestEngine_MultipleCustomReminders(t *testing.T) {
	t.Parallel()

	dispatcher := &recordingDispatcher{}
	engine, ledger, _ := newTestEngine(dispatcher)
	user := newTestUser()
	task := &models.Task{
		ID:              uuid.New(),
		Name:            "Renew passport",
		Status:          models.TaskStatusTodo,
		EndDate:         baseTime.Add(48 * time.Hour),
		CustomReminders: []int{24, 1, 24},
	}

	engine.EvaluateTasks(context.Background(), user, []*models.Task{task}, baseTime.Add(24*time.Hour))
	engine.EvaluateTasks(context.Background(), user, []*models.Task{task}, baseTime.Add(47*time.Hour+time.Minute))

	bodies := dispatcher.bodies()
	if len(bodies) != 2 {
		t.Fatalf("Expected 2 notifications, got %d: %v", len(bodies), bodies)
	}
	if bodies[0] != "Task 'Renew passport' is due in 24 hour(s)" {
		t.Errorf("Unexpected first body: %q", bodies[0])
	}
	if bodies[1] != "Task 'Renew passport' is due in 1 hour(s)" {
		t.Errorf("Unexpected second body: %q", bodies[1])
	}

	keys, err := ledger.List(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Expected 2 ledger keys, got %d", len(keys))
	}
}

func TestEngine_DefaultReminder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 4, 22, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		endDate         time.Time
		customReminders []int
		expectDefault   bool
	}{
		{"due tomorrow morning", time.Date(2026, 5, 5, 8, 0, 0, 0, time.UTC), nil, true},
		{"due tomorrow night", time.Date(2026, 5, 5, 23, 0, 0, 0, time.UTC), nil, true},
		{"due today", time.Date(2026, 5, 4, 23, 30, 0, 0, time.UTC), nil, false},
		{"due in two days", time.Date(2026, 5, 6, 1, 0, 0, 0, time.UTC), nil, false},
		{"custom reminders suppress default", time.Date(2026, 5, 5, 8, 0, 0, 0, time.UTC), []int{48}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dispatcher := &recordingDispatcher{}
			engine, _, _ := newTestEngine(dispatcher)
			task := &models.Task{
				ID:              uuid.New(),
				Name:            "Call plumber",
				Status:          models.TaskStatusTodo,
				EndDate:         tt.endDate,
				CustomReminders: tt.customReminders,
			}

			result := engine.EvaluateTasks(context.Background(), newTestUser(), []*models.Task{task}, now)

			gotDefault := false
			for _, key := range result.Fired {
				if key == DueTomorrowKey(task.ID) {
					gotDefault = true
				}
			}
			if gotDefault != tt.expectDefault {
				t.Errorf("Expected default reminder=%v, got %v", tt.expectDefault, gotDefault)
			}
			if gotDefault && dispatcher.bodies()[0] != "Task 'Call plumber' is due tomorrow" {
				t.Errorf("Unexpected body: %q", dispatcher.bodies()[0])
			}
		})
	}
}

func TestEngine_DefaultReminderUsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-8", -8*60*60)
	// 2026-05-05 03:00 UTC is still 2026-05-04 in UTC-8
	now := time.Date(2026, 5, 5, 3, 0, 0, 0, time.UTC)
	endDate := time.Date(2026, 5, 5, 20, 0, 0, 0, time.UTC)

	dispatcher := &recordingDispatcher{}
	engine := NewEngine(&mockTaskLister{}, NewMemoryLedger(), NewMemoryFeed(), dispatcher, zap.NewNop(), WithLocation(loc))
	task := &models.Task{ID: uuid.New(), Name: "Pay rent", Status: models.TaskStatusTodo, EndDate: endDate}

	result := engine.EvaluateTasks(context.Background(), newTestUser(), []*models.Task{task}, now)

	if len(result.Fired) != 1 || result.Fired[0] != DueTomorrowKey(task.ID) {
		t.Errorf("Expected due-tomorrow reminder in UTC-8, got %v", result.Fired)
	}
}

func TestEngine_OverdueFiresOnce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   models.TaskStatus
		expected int
	}{
		{"todo", models.TaskStatusTodo, 1},
		{"ongoing", models.TaskStatusOngoing, 1},
		{"already overdue", models.TaskStatusOverdue, 1},
		{"completed", models.TaskStatusCompleted, 0},
		{"cancelled", models.TaskStatusCancelled, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dispatcher := &recordingDispatcher{}
			engine, _, _ := newTestEngine(dispatcher)
			user := newTestUser()
			task := &models.Task{
				ID:      uuid.New(),
				Name:    "File taxes",
				Status:  tt.status,
				EndDate: baseTime.AddDate(0, 0, -1),
			}

			for i := 0; i < 3; i++ {
				engine.EvaluateTasks(context.Background(), user, []*models.Task{task}, baseTime.Add(time.Duration(i)*DefaultInterval))
			}

			bodies := dispatcher.bodies()
			if len(bodies) != tt.expected {
				t.Fatalf("Expected %d overdue notifications, got %d", tt.expected, len(bodies))
			}
			if tt.expected == 1 && bodies[0] != "Task 'File taxes' is overdue" {
				t.Errorf("Unexpected body: %q", bodies[0])
			}
		})
	}
}

func TestEngine_CustomAndOverdueAreIndependent(t *testing.T) {
	t.Parallel()

	dispatcher := &recordingDispatcher{}
	engine, _, _ := newTestEngine(dispatcher)
	user := newTestUser()
	task := &models.Task{
		ID:              uuid.New(),
		Name:            "Submit form",
		Status:          models.TaskStatusTodo,
		EndDate:         baseTime.Add(time.Hour),
		CustomReminders: []int{1},
	}

	engine.EvaluateTasks(context.Background(), user, []*models.Task{task}, baseTime)
	engine.EvaluateTasks(context.Background(), user, []*models.Task{task}, baseTime.Add(2*time.Hour))

	bodies := dispatcher.bodies()
	if len(bodies) != 2 {
		t.Fatalf("Expected custom reminder then overdue alert, got %v", bodies)
	}
	if bodies[1] != "Task 'Submit form' is overdue" {
		t.Errorf("Expected overdue alert second, got %q", bodies[1])
	}
}

func TestEngine_Scenario(t *testing.T) {
	t.Parallel()

	dispatcher := &recordingDispatcher{}
	engine, ledger, feed := newTestEngine(dispatcher)
	user := newTestUser()
	projectID := uuid.New()
	task := &models.Task{
		ID:              uuid.New(),
		Name:            "Write report",
		Project:         models.ProjectRef{ID: projectID, Name: "Quarterly"},
		Status:          models.TaskStatusTodo,
		EndDate:         baseTime.Add(26 * time.Hour),
		CustomReminders: []int{3},
	}
	ctx := context.Background()

	engine.EvaluateTasks(ctx, user, []*models.Task{task}, baseTime.Add(23*time.Hour))

	bodies := dispatcher.bodies()
	if len(bodies) != 1 || bodies[0] != "Task 'Write report' is due in 3 hour(s)" {
		t.Fatalf("Expected the 3 hour reminder, got %v", bodies)
	}
	fired, err := ledger.HasFired(ctx, CustomKey(task.ID, 3))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !fired {
		t.Error("Expected ledger to contain the custom key")
	}

	engine.EvaluateTasks(ctx, user, []*models.Task{task}, baseTime.Add(23*time.Hour+30*time.Minute))
	if got := len(dispatcher.bodies()); got != 1 {
		t.Errorf("Expected no further notifications, got %d total", got)
	}

	entries, err := feed.List(ctx, user.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 feed entry, got %d", len(entries))
	}
	if entries[0].Type != models.NotificationTypeReminder {
		t.Errorf("Expected reminder type, got %s", entries[0].Type)
	}
	if entries[0].TaskID == nil || *entries[0].TaskID != task.ID {
		t.Error("Expected feed entry to reference the task")
	}
	if entries[0].ProjectID == nil || *entries[0].ProjectID != projectID {
		t.Error("Expected feed entry to reference the project")
	}
	unread, err := feed.Unread(ctx, user.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if unread != 1 {
		t.Errorf("Expected unread count 1, got %d", unread)
	}
}

func TestEngine_DispatchFailureIsNotRecorded(t *testing.T) {
	t.Parallel()

	failing := true
	dispatcher := &recordingDispatcher{
		displayFunc: func(ctx context.Context, notice Notice) error {
			if failing {
				return errors.New("push provider unavailable")
			}
			return nil
		},
	}
	engine, ledger, feed := newTestEngine(dispatcher)
	user := newTestUser()
	task := &models.Task{
		ID:      uuid.New(),
		Name:    "Book flights",
		Status:  models.TaskStatusTodo,
		EndDate: baseTime.Add(-time.Hour),
	}
	ctx := context.Background()

	result := engine.EvaluateTasks(ctx, user, []*models.Task{task}, baseTime)
	if result.Failed != 1 || len(result.Fired) != 0 {
		t.Fatalf("Expected one failure and nothing fired, got %+v", result)
	}
	if fired, _ := ledger.HasFired(ctx, OverdueKey(task.ID)); fired {
		t.Error("Expected ledger to stay empty after failed dispatch")
	}
	if unread, _ := feed.Unread(ctx, user.ID); unread != 0 {
		t.Errorf("Expected unread count 0, got %d", unread)
	}

	failing = false
	result = engine.EvaluateTasks(ctx, user, []*models.Task{task}, baseTime.Add(DefaultInterval))
	if len(result.Fired) != 1 {
		t.Errorf("Expected retry on the next tick to fire, got %+v", result)
	}
}

func TestEngine_UndeliverableIsRecorded(t *testing.T) {
	t.Parallel()

	calls := 0
	dispatcher := &recordingDispatcher{
		displayFunc: func(ctx context.Context, notice Notice) error {
			calls++
			return fmt.Errorf("no subscribed devices: %w", ErrUndeliverable)
		},
	}
	engine, ledger, feed := newTestEngine(dispatcher)
	user := newTestUser()
	task := &models.Task{
		ID:      uuid.New(),
		Name:    "Renew passport",
		Status:  models.TaskStatusTodo,
		EndDate: baseTime.Add(-time.Hour),
	}
	ctx := context.Background()

	result := engine.EvaluateTasks(ctx, user, []*models.Task{task}, baseTime)
	if len(result.Fired) != 1 || result.Undelivered != 1 || result.Failed != 0 {
		t.Fatalf("Expected one undelivered key, got %+v", result)
	}
	for i := 1; i < 12; i++ {
		engine.EvaluateTasks(ctx, user, []*models.Task{task}, baseTime.Add(time.Duration(i)*DefaultInterval))
	}

	if calls != 1 {
		t.Errorf("Expected one dispatch attempt over 12 ticks, got %d", calls)
	}
	if fired, _ := ledger.HasFired(ctx, OverdueKey(task.ID)); !fired {
		t.Error("Expected overdue key to be recorded")
	}
	entries, _ := feed.List(ctx, user.ID)
	if len(entries) != 1 || entries[0].Type != models.NotificationTypeOverdue {
		t.Errorf("Expected one overdue feed entry, got %+v", entries)
	}
}

func TestEngine_ClaimHeldElsewhere(t *testing.T) {
	t.Parallel()

	dispatcher := &recordingDispatcher{}
	engine, ledger, _ := newTestEngine(dispatcher)
	user := newTestUser()
	task := &models.Task{
		ID:      uuid.New(),
		Name:    "File taxes",
		Status:  models.TaskStatusOngoing,
		EndDate: baseTime.Add(-time.Hour),
	}
	ctx := context.Background()

	if claimed, _ := ledger.Claim(ctx, OverdueKey(task.ID), time.Minute); !claimed {
		t.Fatal("Expected claim to succeed")
	}
	result := engine.EvaluateTasks(ctx, user, []*models.Task{task}, baseTime)
	if len(result.Fired) != 0 || result.Failed != 0 || len(dispatcher.bodies()) != 0 {
		t.Fatalf("Expected nothing dispatched while claimed, got %+v", result)
	}

	if err := ledger.Release(ctx, OverdueKey(task.ID)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	result = engine.EvaluateTasks(ctx, user, []*models.Task{task}, baseTime)
	if len(result.Fired) != 1 {
		t.Errorf("Expected key to fire after release, got %+v", result)
	}
	if claimed, _ := ledger.Claim(ctx, OverdueKey(task.ID), time.Minute); !claimed {
		t.Error("Expected engine to release its own claim")
	}
}

func TestEngine_FailureIsolation(t *testing.T) {
	t.Parallel()

	failingTask := uuid.New()
	dispatcher := &recordingDispatcher{
		displayFunc: func(ctx context.Context, notice Notice) error {
			if notice.TaskID == failingTask {
				return errors.New("permission revoked")
			}
			return nil
		},
	}
	engine, _, _ := newTestEngine(dispatcher)
	tasks := []*models.Task{
		{ID: failingTask, Name: "First", Status: models.TaskStatusTodo, EndDate: baseTime.Add(-time.Hour)},
		{ID: uuid.New(), Name: "Second", Status: models.TaskStatusTodo, EndDate: baseTime.Add(-time.Hour)},
		{ID: uuid.New(), Name: "No due date", Status: models.TaskStatusTodo},
	}

	result := engine.EvaluateTasks(context.Background(), newTestUser(), tasks, baseTime)

	if result.Failed != 1 {
		t.Errorf("Expected 1 failure, got %d", result.Failed)
	}
	if len(result.Fired) != 1 || result.Fired[0] != OverdueKey(tasks[1].ID) {
		t.Errorf("Expected the second task to fire, got %v", result.Fired)
	}
}

func TestEngine_EvaluateUser(t *testing.T) {
	t.Parallel()

	t.Run("lists tasks for the user", func(t *testing.T) {
		t.Parallel()

		user := newTestUser()
		var requested uuid.UUID
		lister := &mockTaskLister{
			listByOwnerFunc: func(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error) {
				requested = ownerID
				return []*models.Task{
					{ID: uuid.New(), Name: "Late", Status: models.TaskStatusTodo, EndDate: baseTime.Add(-time.Hour)},
				}, nil
			},
		}
		dispatcher := &recordingDispatcher{}
		engine := NewEngine(lister, NewMemoryLedger(), NewMemoryFeed(), dispatcher, zap.NewNop())

		result, err := engine.EvaluateUser(context.Background(), user, baseTime)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if requested != user.ID {
			t.Errorf("Expected tasks listed for %s, got %s", user.ID, requested)
		}
		if len(result.Fired) != 1 {
			t.Errorf("Expected 1 fired, got %d", len(result.Fired))
		}
	})

	t.Run("list failure is returned", func(t *testing.T) {
		t.Parallel()

		lister := &mockTaskLister{
			listByOwnerFunc: func(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error) {
				return nil, errors.New("connection refused")
			},
		}
		engine := NewEngine(lister, NewMemoryLedger(), NewMemoryFeed(), &recordingDispatcher{}, zap.NewNop())

		if _, err := engine.EvaluateUser(context.Background(), newTestUser(), baseTime); err == nil {
			t.Error("Expected error when task listing fails")
		}
	})

	t.Run("notifications disabled", func(t *testing.T) {
		t.Parallel()

		called := false
		lister := &mockTaskLister{
			listByOwnerFunc: func(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error) {
				called = true
				return nil, nil
			},
		}
		engine := NewEngine(lister, NewMemoryLedger(), NewMemoryFeed(), &recordingDispatcher{}, zap.NewNop())
		user := newTestUser()
		user.NotificationsEnabled = false

		if _, err := engine.EvaluateUser(context.Background(), user, baseTime); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if called {
			t.Error("Expected tasks not to be listed for a user without permission")
		}
	})
}

func TestEngine_SubscriptionIDPassedToDispatcher(t *testing.T) {
	t.Parallel()

	dispatcher := &recordingDispatcher{}
	engine, _, _ := newTestEngine(dispatcher)
	subscription := "player-123"
	user := newTestUser()
	user.PushSubscriptionID = &subscription
	task := &models.Task{ID: uuid.New(), Name: "Late", Status: models.TaskStatusTodo, EndDate: baseTime.Add(-time.Hour)}

	engine.EvaluateTasks(context.Background(), user, []*models.Task{task}, baseTime)

	if len(dispatcher.notices) != 1 {
		t.Fatalf("Expected 1 notice, got %d", len(dispatcher.notices))
	}
	if dispatcher.notices[0].SubscriptionID != subscription {
		t.Errorf("Expected subscription %q, got %q", subscription, dispatcher.notices[0].SubscriptionID)
	}
	if dispatcher.notices[0].Title != "Task overdue" {
		t.Errorf("Expected title 'Task overdue', got %q", dispatcher.notices[0].Title)
	}
}

func TestReminderOffsets(t *testing.T) {
	t.Parallel()

	got := reminderOffsets([]int{1, 24, 0, -3, 24, 6})
	expected := []int{24, 6, 1}
	if len(got) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, got)
			break
		}
	}
}
