package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/task-tracker/internal/api/http/handlers"
	"github.com/spec-kit/task-tracker/internal/auth"
	"github.com/spec-kit/task-tracker/internal/display"
	"github.com/spec-kit/task-tracker/internal/domain"
	"github.com/spec-kit/task-tracker/internal/observability"
	"github.com/spec-kit/task-tracker/internal/service"
	apperrors "github.com/spec-kit/task-tracker/pkg/util/errorutil"
)

var routerNow = time.Date(2025, 3, 10, 3, 30, 0, 0, time.UTC)

type stubUsers struct {
	users map[string]*domain.User
}

func (s *stubUsers) Create(context.Context, *domain.User) error { return nil }
func (s *stubUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubUsers) Delete(context.Context, string) error { return nil }
func (s *stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

type stubTasks struct {
	created  []service.TaskCreateInput
	toggle   func(taskID string) (*domain.Task, error)
	clearErr error
	tasks    []domain.Task
}

func (s *stubTasks) Now() time.Time { return routerNow }
func (s *stubTasks) List(context.Context, string) ([]domain.Task, error) {
	return s.tasks, nil
}
func (s *stubTasks) Create(_ context.Context, userID string, input service.TaskCreateInput) (*domain.Task, []domain.Task, error) {
	s.created = append(s.created, input)
	task := domain.Task{ID: "t-new", UserID: userID, Title: input.Title, Status: domain.TaskStatusPending, CreatedAt: routerNow}
	s.tasks = append([]domain.Task{task}, s.tasks...)
	return &task, s.tasks, nil
}
func (s *stubTasks) UpdateDescription(_ context.Context, _, taskID, description string) (*domain.Task, error) {
	return &domain.Task{ID: taskID, Description: description}, nil
}
func (s *stubTasks) UpdateDeadline(_ context.Context, _, taskID, raw string) (*domain.Task, error) {
	if raw == "" {
		return &domain.Task{ID: taskID}, nil
	}
	deadline := routerNow.Add(2 * time.Hour)
	return &domain.Task{ID: taskID, Deadline: &deadline}, nil
}
func (s *stubTasks) Toggle(_ context.Context, _, taskID string) (*domain.Task, error) {
	return s.toggle(taskID)
}
func (s *stubTasks) Delete(context.Context, string, string) error { return nil }
func (s *stubTasks) Clear(context.Context, string) (int64, error) {
	if s.clearErr != nil {
		return 0, apperrors.NewClearFailed(s.clearErr)
	}
	return int64(len(s.tasks)), nil
}

type stubReminders struct {
	scans   int
	scanErr error
}

func (s *stubReminders) Scan(context.Context) (service.ScanReport, error) {
	s.scans++
	return service.ScanReport{Scanned: 3, Urgent: 1, Sent: 1}, s.scanErr
}
func (s *stubReminders) SendNow(context.Context, string, string) error { return nil }

type stubAccounts struct {
	tokens *auth.TokenManager
	user   *domain.User
}

func (s *stubAccounts) Register(context.Context, service.RegisterInput) (*service.Session, error) {
	return nil, apperrors.Wrap(apperrors.CodeConflict, http.StatusConflict, domain.ErrEmailTaken)
}
func (s *stubAccounts) Login(_ context.Context, input service.LoginInput) (*service.Session, error) {
	if input.Password != "right" {
		return nil, apperrors.Wrap(apperrors.CodeUnauthorized, http.StatusUnauthorized, domain.ErrInvalidCredentials)
	}
	token, err := s.tokens.GenerateToken(s.user.ID)
	if err != nil {
		return nil, err
	}
	return &service.Session{User: s.user, Token: token}, nil
}
func (s *stubAccounts) Logout(context.Context, *auth.Claims) error { return nil }
func (s *stubAccounts) DeleteAccount(context.Context, string) error { return nil }

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app       *fiber.App
	tasks     *stubTasks
	reminders *stubReminders
	token     string
}

func newTestServer(t *testing.T, dbErr error) *testServer {
	t.Helper()
	tokens := auth.NewTokenManager("secret", time.Hour)
	user := &domain.User{ID: "user-1", Name: "Asha", Email: "asha@example.com"}
	users := &stubUsers{users: map[string]*domain.User{user.ID: user}}
	token, err := tokens.GenerateToken(user.ID)
	require.NoError(t, err)

	tasks := &stubTasks{}
	reminders := &stubReminders{}
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("task-tracker", "test", map[string]handlers.Pinger{
			"postgres": stubPinger{err: dbErr},
			"redis":    stubPinger{},
		}),
		Users:          handlers.NewUsersHandler(&stubAccounts{tokens: tokens, user: user}, handlers.CookieOptions{Name: "access_token"}),
		Tasks:          handlers.NewTasksHandler(tasks, display.NewFormatter(time.UTC)),
		Reminders:      handlers.NewRemindersHandler(reminders),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users, nil, "access_token").Handle,
		Metrics:        metrics,
		ReminderKey:    "cron-key",
	})
	return &testServer{app: app, tasks: tasks, reminders: reminders, token: token.Token}
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func (s *testServer) authed(req *http.Request) *http.Request {
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+s.token)
	return req
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestRouter_RequiresLogin(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "User not logged in.", body["message"])
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(body))
}

func TestRouter_UnknownPathIsNotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(body))
}

func TestRouter_AddTaskFromForm(t *testing.T) {
	srv := newTestServer(t, nil)
	form := url.Values{"title": {"Buy milk"}, "description": {"2L"}, "deadline": {"2025-03-11T10:00"}}
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	status, body := srv.do(t, srv.authed(req))

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Task added successfully!", body["message"])
	assert.Equal(t, "2025-03-10", body["today"])
	require.Len(t, srv.tasks.created, 1)
	assert.Equal(t, service.TaskCreateInput{Title: "Buy milk", Description: "2L", Deadline: "2025-03-11T10:00"}, srv.tasks.created[0])

	tasks, ok := body["tasks"].([]any)
	require.True(t, ok)
	require.Len(t, tasks, 1)
	first := tasks[0].(map[string]any)
	assert.Equal(t, "Buy milk", first["title"])
	assert.Equal(t, "03:30 AM", first["created_at_time"])
	assert.Equal(t, "no_deadline", first["bucket"])
}

func TestRouter_SessionCookieAuthenticates(t *testing.T) {
	srv := newTestServer(t, nil)

	login := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"asha@example.com","password":"right"}`))
	login.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := srv.app.Test(login, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "access_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	me := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	me.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	status, body := srv.do(t, me)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "asha@example.com", body["user"].(map[string]any)["email"])
}

func TestRouter_LoginFailure(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"asha@example.com","password":"wrong"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	status, body := srv.do(t, req)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password.", body["message"])
}

func TestRouter_TaskMutations(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.tasks.toggle = func(taskID string) (*domain.Task, error) {
		if taskID == "late" {
			return nil, apperrors.Wrap(apperrors.CodeOverdueLocked, http.StatusBadRequest, domain.ErrOverdueLocked)
		}
		return &domain.Task{ID: taskID, Status: domain.TaskStatusWorking}, nil
	}

	form := func(path string, values url.Values) *http.Request {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
		return srv.authed(req)
	}

	status, body := srv.do(t, form("/toggle/t1", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Status updated", body["message"])
	assert.Equal(t, "Working", body["new_status"])

	status, body = srv.do(t, form("/toggle/late", nil))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Cannot update status of overdue tasks.", body["message"])
	assert.Equal(t, apperrors.CodeOverdueLocked, errorCode(body))

	status, body = srv.do(t, form("/update_description/t1", url.Values{"new_description": {"new text"}}))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "new text", body["new_description"])

	status, body = srv.do(t, form("/update_deadline/t1", url.Values{"new_deadline": {"2025-03-10T11:00"}}))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Deadline updated.", body["message"])
	assert.Equal(t, "05:30 AM", body["deadline_time"])
	assert.Equal(t, "10 Mar 2025", body["deadline_date"])

	status, body = srv.do(t, form("/update_deadline/t1", url.Values{"new_deadline": {""}}))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Deadline removed.", body["message"])

	status, body = srv.do(t, form("/delete/t1", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Task deleted", body["message"])
}

func TestRouter_ClearFailureIsGeneric(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.tasks.clearErr = errors.New("deadlock detected")

	status, body := srv.do(t, srv.authed(httptest.NewRequest(http.MethodPost, "/clear", nil)))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "An error occurred.", body["message"])
	assert.Equal(t, apperrors.CodeClearFailed, errorCode(body))
}

func TestRouter_RunRemindersKey(t *testing.T) {
	srv := newTestServer(t, nil)

	status, _ := srv.do(t, httptest.NewRequest(http.MethodGet, "/run-reminders", nil))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Zero(t, srv.reminders.scans)

	req := httptest.NewRequest(http.MethodGet, "/run-reminders", nil)
	req.Header.Set(ReminderKeyHeader, "cron-key")
	status, body := srv.do(t, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, srv.reminders.scans)
	report := body["report"].(map[string]any)
	assert.EqualValues(t, 1, report["sent"])
}

func TestRouter_RunRemindersInterruptedKeepsPartialReport(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.reminders.scanErr = context.DeadlineExceeded

	req := httptest.NewRequest(http.MethodGet, "/run-reminders", nil)
	req.Header.Set(ReminderKeyHeader, "cron-key")
	status, body := srv.do(t, req)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Reminder scan interrupted.", body["message"])
	assert.Equal(t, apperrors.CodeInternal, errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	report := details["report"].(map[string]any)
	assert.EqualValues(t, 1, report["sent"])
	assert.EqualValues(t, 3, report["scanned"])
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)
	status, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	down := newTestServer(t, errors.New("connection refused"))
	status, body = down.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(body))

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "http_requests_total")
}
