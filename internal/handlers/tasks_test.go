package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/services"
	"github.com/teccUI/inteliTASK/internal/testutil"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// Mock implementations for testing

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendTaskCreated(ctx context.Context, user *models.User, task *models.Task) error {
	args := m.Called(ctx, user, task)
	return args.Error(0)
}

func (m *MockMailer) SendTaskCompleted(ctx context.Context, user *models.User, task *models.Task) error {
	args := m.Called(ctx, user, task)
	return args.Error(0)
}

func (m *MockMailer) SendTaskOverdue(ctx context.Context, user *models.User, task *models.Task) error {
	args := m.Called(ctx, user, task)
	return args.Error(0)
}

func (m *MockMailer) SendTaskDueSoon(ctx context.Context, user *models.User, task *models.Task) error {
	args := m.Called(ctx, user, task)
	return args.Error(0)
}

type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) SendToUser(ctx context.Context, uid, title, body string, data map[string]string) (*services.PushResult, error) {
	args := m.Called(ctx, uid, title, body, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PushResult), args.Error(1)
}

// Test helpers

func taskRouter(h *TaskHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/tasks", h.List)
	r.Post("/tasks", h.Create)
	r.Get("/tasks/{id}", h.Get)
	r.Put("/tasks/{id}", h.Update)
	r.Delete("/tasks/{id}", h.Delete)
	r.Post("/tasks/reminders", h.Reminders)
	return r
}

func serve(t *testing.T, router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// Tests

func TestTaskCreate(t *testing.T) {
	t.Run("creates a task and normalizes the due date", func(t *testing.T) {
		db := testutil.NewMemStore()
		db.SeedUser(testutil.TestUserWithUID("u1"))

		mailer := new(MockMailer)
		mailer.On("SendTaskCreated", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		h := NewTaskHandler(db, mailer, nil, nil)
		router := taskRouter(h)

		req := testutil.MakeRequest(t, http.MethodPost, "/tasks", map[string]interface{}{
			"title":   "Book flights",
			"listId":  "l1",
			"userId":  "u1",
			"dueDate": "2026-09-10T15:30:00Z",
		})
		rec := serve(t, router, req)

		testutil.AssertStatusCode(t, rec, http.StatusCreated)

		var created models.Task
		testutil.ParseJSONResponse(t, rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "2026-09-10", created.DueDate)
		assert.Equal(t, "Book flights", created.Title)

		mailer.AssertExpectations(t)
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		h := NewTaskHandler(testutil.NewMemStore(), nil, nil, nil)
		router := taskRouter(h)

		req := testutil.MakeRequest(t, http.MethodPost, "/tasks", map[string]interface{}{
			"title": "No list or user",
		})
		rec := serve(t, router, req)

		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
	})

	t.Run("rejects an unparseable due date", func(t *testing.T) {
		h := NewTaskHandler(testutil.NewMemStore(), nil, nil, nil)
		router := taskRouter(h)

		req := testutil.MakeRequest(t, http.MethodPost, "/tasks", map[string]interface{}{
			"title":   "Bad date",
			"listId":  "l1",
			"userId":  "u1",
			"dueDate": "sometime next week",
		})
		rec := serve(t, router, req)

		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
	})
}

func TestTaskList(t *testing.T) {
	db := testutil.NewMemStore()
	db.SeedUser(testutil.TestUserWithUID("u1"))
	for i := 0; i < 25; i++ {
		task := testutil.TestTask("u1", "l1")
		task.Completed = i%2 == 0
		db.SeedTask(task)
	}
	db.SeedTask(testutil.TestTask("u2", "l2"))

	h := NewTaskHandler(db, nil, nil, nil)
	router := taskRouter(h)

	t.Run("requires userId", func(t *testing.T) {
		rec := serve(t, router, testutil.MakeRequest(t, http.MethodGet, "/tasks", nil))
		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
	})

	t.Run("paginates the user's tasks", func(t *testing.T) {
		rec := serve(t, router, testutil.MakeRequest(t, http.MethodGet, "/tasks?userId=u1&page=2&page_size=10", nil))
		testutil.AssertStatusCode(t, rec, http.StatusOK)

		var resp struct {
			Data []models.Task  `json:"data"`
			Meta utils.PageMeta `json:"meta"`
		}
		testutil.ParseJSONResponse(t, rec, &resp)
		assert.Len(t, resp.Data, 10)
		assert.Equal(t, int64(25), resp.Meta.TotalItems)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.True(t, resp.Meta.HasNext)
	})

	t.Run("filters by completed", func(t *testing.T) {
		rec := serve(t, router, testutil.MakeRequest(t, http.MethodGet, "/tasks?userId=u1&completed=false&page_size=100", nil))
		testutil.AssertStatusCode(t, rec, http.StatusOK)

		var resp struct {
			Data []models.Task `json:"data"`
		}
		testutil.ParseJSONResponse(t, rec, &resp)
		require.Len(t, resp.Data, 12)
		for _, task := range resp.Data {
			assert.False(t, task.Completed)
		}
	})
}

func TestTaskUpdate(t *testing.T) {
	t.Run("completing a task sends the completion email", func(t *testing.T) {
		db := testutil.NewMemStore()
		db.SeedUser(testutil.TestUserWithUID("u1"))
		task := testutil.TestTask("u1", "l1")
		db.SeedTask(task)

		mailer := new(MockMailer)
		mailer.On("SendTaskCompleted", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		h := NewTaskHandler(db, mailer, nil, nil)
		router := taskRouter(h)

		req := testutil.MakeRequest(t, http.MethodPut, "/tasks/"+task.ID, map[string]interface{}{
			"completed": true,
		})
		rec := serve(t, router, req)

		testutil.AssertStatusCode(t, rec, http.StatusOK)

		var updated models.Task
		testutil.ParseJSONResponse(t, rec, &updated)
		assert.True(t, updated.Completed)

		mailer.AssertExpectations(t)
	})

	t.Run("updating an already-completed task does not re-send", func(t *testing.T) {
		db := testutil.NewMemStore()
		db.SeedUser(testutil.TestUserWithUID("u1"))
		task := testutil.TestTask("u1", "l1")
		task.Completed = true
		db.SeedTask(task)

		mailer := new(MockMailer)

		h := NewTaskHandler(db, mailer, nil, nil)
		router := taskRouter(h)

		req := testutil.MakeRequest(t, http.MethodPut, "/tasks/"+task.ID, map[string]interface{}{
			"title": "Renamed",
		})
		rec := serve(t, router, req)

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		mailer.AssertNotCalled(t, "SendTaskCompleted", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown task is 404", func(t *testing.T) {
		h := NewTaskHandler(testutil.NewMemStore(), nil, nil, nil)
		router := taskRouter(h)

		req := testutil.MakeRequest(t, http.MethodPut, "/tasks/missing", map[string]interface{}{
			"title": "x",
		})
		rec := serve(t, router, req)

		testutil.AssertStatusCode(t, rec, http.StatusNotFound)
	})
}

func TestTaskDelete(t *testing.T) {
	db := testutil.NewMemStore()
	db.SeedUser(testutil.TestUserWithUID("u1"))
	task := testutil.TestTask("u1", "l1")
	db.SeedTask(task)

	h := NewTaskHandler(db, nil, nil, nil)
	router := taskRouter(h)

	rec := serve(t, router, testutil.MakeRequest(t, http.MethodDelete, "/tasks/"+task.ID, nil))
	testutil.AssertStatusCode(t, rec, http.StatusOK)

	rec = serve(t, router, testutil.MakeRequest(t, http.MethodGet, "/tasks/"+task.ID, nil))
	testutil.AssertStatusCode(t, rec, http.StatusNotFound)
}

func TestTaskReminders(t *testing.T) {
	db := testutil.NewMemStore()
	db.SeedUser(testutil.TestUserWithUID("u1"))

	dueSoon := testutil.TestTaskDue("u1", "l1", time.Now().UTC().Format(models.DateLayout))
	db.SeedTask(dueSoon)
	db.SeedTask(testutil.TestTaskDue("u1", "l1", "2030-01-01"))

	push := new(MockPushSender)
	push.On("SendToUser", mock.Anything, "u1", "Task due soon", mock.Anything, mock.Anything).
		Return(&services.PushResult{Sent: 1}, nil)

	h := NewTaskHandler(db, nil, push, nil)
	router := taskRouter(h)

	req := testutil.MakeRequest(t, http.MethodPost, "/tasks/reminders", map[string]interface{}{
		"userId": "u1",
	})
	rec := serve(t, router, req)

	testutil.AssertStatusCode(t, rec, http.StatusOK)

	var resp map[string]int
	testutil.ParseJSONResponse(t, rec, &resp)
	assert.Equal(t, 1, resp["remindersSent"])

	push.AssertNumberOfCalls(t, "SendToUser", 1)
}
