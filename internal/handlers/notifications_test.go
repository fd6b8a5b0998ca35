package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/teccUI/inteliTASK/internal/services"
	"github.com/teccUI/inteliTASK/internal/testutil"
)

type MockScheduledRunner struct {
	mock.Mock
}

func (m *MockScheduledRunner) RunOverdueScan(ctx context.Context, now time.Time) (*services.NotifyRunResult, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.NotifyRunResult), args.Error(1)
}

func (m *MockScheduledRunner) RunDueSoonScan(ctx context.Context, now time.Time) (*services.NotifyRunResult, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.NotifyRunResult), args.Error(1)
}

func (m *MockScheduledRunner) RunWeeklyDigest(ctx context.Context, now time.Time) (*services.NotifyRunResult, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.NotifyRunResult), args.Error(1)
}

func notificationRouter(h *NotificationHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/notifications/register", h.Register)
	r.Post("/notifications/send", h.Send)
	r.Post("/notifications/scheduled", h.Scheduled)
	r.Post("/notifications/email", h.Email)
	return r
}

func TestNotificationRegister(t *testing.T) {
	db := testutil.NewMemStore()
	db.SeedUser(testutil.TestUserWithUID("u1"))

	h := NewNotificationHandler(db, nil, nil, nil)
	router := notificationRouter(h)

	t.Run("stores the token on the user", func(t *testing.T) {
		req := testutil.MakeRequest(t, http.MethodPost, "/notifications/register", map[string]interface{}{
			"userId": "u1",
			"token":  "fcm-token-1",
		})
		req.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 14) Chrome/120.0")
		rec := serve(t, router, req)
		testutil.AssertStatusCode(t, rec, http.StatusOK)

		user, err := db.GetUser(req.Context(), "u1")
		assert.NoError(t, err)
		assert.Contains(t, user.FCMTokens, "fcm-token-1")
	})

	t.Run("unknown user is 404", func(t *testing.T) {
		req := testutil.MakeRequest(t, http.MethodPost, "/notifications/register", map[string]interface{}{
			"userId": "ghost",
			"token":  "fcm-token-1",
		})
		rec := serve(t, router, req)
		testutil.AssertStatusCode(t, rec, http.StatusNotFound)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		req := testutil.MakeRequest(t, http.MethodPost, "/notifications/register", map[string]interface{}{
			"userId": "u1",
		})
		rec := serve(t, router, req)
		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
	})
}

func TestNotificationSend(t *testing.T) {
	t.Run("dispatches to registered devices", func(t *testing.T) {
		db := testutil.NewMemStore()
		user := testutil.TestUserWithUID("u1")
		user.FCMTokens = []string{"tok-a"}
		db.SeedUser(user)

		push := new(MockPushSender)
		push.On("SendToUser", mock.Anything, "u1", "Hello", "World", mock.Anything).
			Return(&services.PushResult{Sent: 1}, nil)

		h := NewNotificationHandler(db, push, nil, nil)
		router := notificationRouter(h)

		req := testutil.MakeRequest(t, http.MethodPost, "/notifications/send", map[string]interface{}{
			"userId": "u1",
			"title":  "Hello",
			"body":   "World",
		})
		rec := serve(t, router, req)
		testutil.AssertStatusCode(t, rec, http.StatusOK)

		var result services.PushResult
		testutil.ParseJSONResponse(t, rec, &result)
		assert.Equal(t, 1, result.Sent)
		push.AssertExpectations(t)
	})

	t.Run("no devices is 404", func(t *testing.T) {
		db := testutil.NewMemStore()
		db.SeedUser(testutil.TestUserWithUID("u1"))

		h := NewNotificationHandler(db, new(MockPushSender), nil, nil)
		router := notificationRouter(h)

		req := testutil.MakeRequest(t, http.MethodPost, "/notifications/send", map[string]interface{}{
			"userId": "u1",
			"title":  "Hello",
			"body":   "World",
		})
		rec := serve(t, router, req)
		testutil.AssertStatusCode(t, rec, http.StatusNotFound)
	})
}

func TestNotificationScheduled(t *testing.T) {
	db := testutil.NewMemStore()

	t.Run("dispatches by job type", func(t *testing.T) {
		for _, jobType := range []string{"overdue_check", "due_soon_check", "weekly_digest"} {
			runner := new(MockScheduledRunner)
			method := map[string]string{
				"overdue_check":  "RunOverdueScan",
				"due_soon_check": "RunDueSoonScan",
				"weekly_digest":  "RunWeeklyDigest",
			}[jobType]
			runner.On(method, mock.Anything, mock.Anything).
				Return(&services.NotifyRunResult{Scanned: 5, Notified: 2}, nil)

			h := NewNotificationHandler(db, nil, nil, runner)
			router := notificationRouter(h)

			req := testutil.MakeRequest(t, http.MethodPost, "/notifications/scheduled", map[string]interface{}{
				"type": jobType,
			})
			rec := serve(t, router, req)
			testutil.AssertStatusCode(t, rec, http.StatusOK)
			runner.AssertExpectations(t)
		}
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		h := NewNotificationHandler(db, nil, nil, new(MockScheduledRunner))
		router := notificationRouter(h)

		req := testutil.MakeRequest(t, http.MethodPost, "/notifications/scheduled", map[string]interface{}{
			"type": "midnight_check",
		})
		rec := serve(t, router, req)
		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
	})
}

func TestNotificationEmail(t *testing.T) {
	db := testutil.NewMemStore()
	db.SeedUser(testutil.TestUserWithUID("u1"))
	task := testutil.TestTask("u1", "l1")
	db.SeedTask(task)

	t.Run("sends the selected template", func(t *testing.T) {
		mailer := new(MockMailer)
		mailer.On("SendTaskOverdue", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		h := NewNotificationHandler(db, nil, mailer, nil)
		router := notificationRouter(h)

		req := testutil.MakeRequest(t, http.MethodPost, "/notifications/email", map[string]interface{}{
			"userId":   "u1",
			"taskId":   task.ID,
			"template": "task_overdue",
		})
		rec := serve(t, router, req)
		testutil.AssertStatusCode(t, rec, http.StatusOK)
		mailer.AssertExpectations(t)
	})

	t.Run("unknown template is rejected", func(t *testing.T) {
		h := NewNotificationHandler(db, nil, new(MockMailer), nil)
		router := notificationRouter(h)

		req := testutil.MakeRequest(t, http.MethodPost, "/notifications/email", map[string]interface{}{
			"userId":   "u1",
			"taskId":   task.ID,
			"template": "task_festive",
		})
		rec := serve(t, router, req)
		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
	})

	t.Run("unknown task is 404", func(t *testing.T) {
		mailer := new(MockMailer)
		h := NewNotificationHandler(db, nil, mailer, nil)
		router := notificationRouter(h)

		req := testutil.MakeRequest(t, http.MethodPost, "/notifications/email", map[string]interface{}{
			"userId":   "u1",
			"taskId":   "missing",
			"template": "task_created",
		})
		rec := serve(t, router, req)
		testutil.AssertStatusCode(t, rec, http.StatusNotFound)
	})
}
