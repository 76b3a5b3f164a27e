package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/benvon/smart-tasks/internal/models"
	"github.com/benvon/smart-tasks/internal/reminders"
	"github.com/benvon/smart-tasks/internal/request"
	"github.com/benvon/smart-tasks/internal/services/identity"
	"github.com/benvon/smart-tasks/internal/services/projects"
	"github.com/benvon/smart-tasks/internal/services/tasks"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type mockTaskService struct {
	listFunc          func(ctx context.Context, user *models.User) (*tasks.ListResult, error)
	listByProjectFunc func(ctx context.Context, user *models.User, projectID uuid.UUID) ([]*models.Task, error)
	getFunc           func(ctx context.Context, user *models.User, id uuid.UUID) (*models.Task, error)
	createFunc        func(ctx context.Context, user *models.User, in tasks.CreateInput) (*models.Task, error)
	updateFunc        func(ctx context.Context, user *models.User, id uuid.UUID, in tasks.UpdateInput) (*models.Task, error)
	deleteFunc        func(ctx context.Context, user *models.User, id uuid.UUID) error
}

var _ TaskService = (*mockTaskService)(nil)

func (m *mockTaskService) List(ctx context.Context, user *models.User) (*tasks.ListResult, error) {
	return m.listFunc(ctx, user)
}

func (m *mockTaskService) ListByProject(ctx context.Context, user *models.User, projectID uuid.UUID) ([]*models.Task, error) {
	return m.listByProjectFunc(ctx, user, projectID)
}

func (m *mockTaskService) Get(ctx context.Context, user *models.User, id uuid.UUID) (*models.Task, error) {
	return m.getFunc(ctx, user, id)
}

func (m *mockTaskService) Create(ctx context.Context, user *models.User, in tasks.CreateInput) (*models.Task, error) {
	return m.createFunc(ctx, user, in)
}

func (m *mockTaskService) Update(ctx context.Context, user *models.User, id uuid.UUID, in tasks.UpdateInput) (*models.Task, error) {
	return m.updateFunc(ctx, user, id, in)
}

func (m *mockTaskService) Delete(ctx context.Context, user *models.User, id uuid.UUID) error {
	return m.deleteFunc(ctx, user, id)
}

type mockProjectService struct {
	listFunc   func(ctx context.Context, user *models.User) ([]*models.Project, error)
	getFunc    func(ctx context.Context, user *models.User, id uuid.UUID) (*models.Project, error)
	createFunc func(ctx context.Context, user *models.User, in projects.Input) (*models.Project, error)
	updateFunc func(ctx context.Context, user *models.User, id uuid.UUID, in projects.Input) (*models.Project, error)
	deleteFunc func(ctx context.Context, user *models.User, id uuid.UUID) error
}

var _ ProjectService = (*mockProjectService)(nil)

func (m *mockProjectService) List(ctx context.Context, user *models.User) ([]*models.Project, error) {
	return m.listFunc(ctx, user)
}

func (m *mockProjectService) Get(ctx context.Context, user *models.User, id uuid.UUID) (*models.Project, error) {
	return m.getFunc(ctx, user, id)
}

func (m *mockProjectService) Create(ctx context.Context, user *models.User, in projects.Input) (*models.Project, error) {
	return m.createFunc(ctx, user, in)
}

func (m *mockProjectService) Update(ctx context.Context, user *models.User, id uuid.UUID, in projects.Input) (*models.Project, error) {
	return m.updateFunc(ctx, user, id, in)
}

func (m *mockProjectService) Delete(ctx context.Context, user *models.User, id uuid.UUID) error {
	return m.deleteFunc(ctx, user, id)
}

type mockIdentityService struct {
	registerFunc           func(ctx context.Context, in identity.RegisterInput) (*models.User, error)
	resendVerificationFunc func(ctx context.Context, email string) error
	verifyEmailFunc        func(ctx context.Context, email, code string) (*models.User, error)
	loginFunc              func(ctx context.Context, email, password string) (*identity.LoginResult, error)
	forgotPasswordFunc     func(ctx context.Context, email string) error
	verifyResetCodeFunc    func(ctx context.Context, email, code string) error
	resetPasswordFunc      func(ctx context.Context, email, code, newPassword string) error
	setPreferencesFunc     func(ctx context.Context, user *models.User, enabled bool, subscriptionID *string) (*models.User, error)
}

var (
	_ IdentityService   = (*mockIdentityService)(nil)
	_ PreferenceService = (*mockIdentityService)(nil)
)

func (m *mockIdentityService) Register(ctx context.Context, in identity.RegisterInput) (*models.User, error) {
	return m.registerFunc(ctx, in)
}

func (m *mockIdentityService) ResendVerification(ctx context.Context, email string) error {
	return m.resendVerificationFunc(ctx, email)
}

func (m *mockIdentityService) VerifyEmail(ctx context.Context, email, code string) (*models.User, error) {
	return m.verifyEmailFunc(ctx, email, code)
}

func (m *mockIdentityService) Login(ctx context.Context, email, password string) (*identity.LoginResult, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockIdentityService) ForgotPassword(ctx context.Context, email string) error {
	return m.forgotPasswordFunc(ctx, email)
}

func (m *mockIdentityService) VerifyResetCode(ctx context.Context, email, code string) error {
	return m.verifyResetCodeFunc(ctx, email, code)
}

func (m *mockIdentityService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return m.resetPasswordFunc(ctx, email, code, newPassword)
}

func (m *mockIdentityService) SetNotificationPreferences(ctx context.Context, user *models.User, enabled bool, subscriptionID *string) (*models.User, error) {
	return m.setPreferencesFunc(ctx, user, enabled, subscriptionID)
}

type failingFeed struct {
	reminders.Feed
	err error
}

func (f *failingFeed) List(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	return nil, f.err
}

func testUser() *models.User {
	return &models.User{
		ID:            uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Email:         "ada@example.com",
		Name:          "Ada",
		EmailVerified: true,
	}
}

// serve routes req through a subrouter mounted at prefix, authenticated as user when non-nil
func serve(register func(*mux.Router), prefix string, user *models.User, method, target, body string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	register(r.PathPrefix(prefix).Subrouter())

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(request.WithUser(req.Context(), user))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
