package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/services"
	"github.com/teccUI/inteliTASK/internal/store"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// NotificationDB defines the store operations the notification endpoints
// need.
type NotificationDB interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	AddFCMToken(ctx context.Context, uid, token string) error
}

// EmailSender sends the templated transactional emails exposed by the
// notifications/email endpoint.
type EmailSender interface {
	SendTaskCreated(ctx context.Context, user *models.User, task *models.Task) error
	SendTaskCompleted(ctx context.Context, user *models.User, task *models.Task) error
	SendTaskOverdue(ctx context.Context, user *models.User, task *models.Task) error
	SendTaskDueSoon(ctx context.Context, user *models.User, task *models.Task) error
}

// ScheduledRunner runs the batch notifier jobs.
type ScheduledRunner interface {
	RunOverdueScan(ctx context.Context, now time.Time) (*services.NotifyRunResult, error)
	RunDueSoonScan(ctx context.Context, now time.Time) (*services.NotifyRunResult, error)
	RunWeeklyDigest(ctx context.Context, now time.Time) (*services.NotifyRunResult, error)
}

// NotificationHandler handles device registration, on-demand push and
// email sends, and the scheduled batch jobs that an external cron trigger
// invokes over HTTP.
type NotificationHandler struct {
	db       NotificationDB
	push     TaskPushSender
	mailer   EmailSender
	notifier ScheduledRunner
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(db NotificationDB, push TaskPushSender, mailer EmailSender, notifier ScheduledRunner) *NotificationHandler {
	return &NotificationHandler{
		db:       db,
		push:     push,
		mailer:   mailer,
		notifier: notifier,
	}
}

// Register stores an FCM device token on the user document.
//
// POST /api/v1/notifications/register with {userId, token}. The device
// description is parsed from the User-Agent header for the registration
// log; duplicate tokens are deduplicated by the store's array union.
func (h *NotificationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.Token == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing required fields: userId, token")
		return
	}

	if err := h.db.AddFCMToken(r.Context(), req.UserID, req.Token); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to register fcm token")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to register device")
		return
	}

	log.Info().
		Str("user_id", req.UserID).
		Str("device", services.ExtractDeviceInfo(r.UserAgent())).
		Str("ip", utils.ExtractClientIP(r)).
		Msg("Device registered for push notifications")

	utils.RespondWithMessage(w, r, http.StatusOK, "Device registered successfully")
}

// Send dispatches a push notification to all of a user's devices.
//
// POST /api/v1/notifications/send with {userId, title, body, data?}.
// Responds 404 when the user has no registered devices.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string            `json:"userId"`
		Title  string            `json:"title"`
		Body   string            `json:"body"`
		Data   map[string]string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.Title == "" || req.Body == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing required fields: userId, title, body")
		return
	}

	user, err := h.db.GetUser(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to fetch user")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to send notification")
		return
	}
	if len(user.FCMTokens) == 0 {
		utils.RespondWithError(w, r, http.StatusNotFound, "No registered devices for user")
		return
	}

	result, err := h.push.SendToUser(r.Context(), req.UserID, req.Title, req.Body, req.Data)
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to send push notification")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to send notification")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, result)
}

// Scheduled runs one of the batch notifier jobs. Invoked by an external
// cron trigger, not by end users.
//
// POST /api/v1/notifications/scheduled with {type} where type is
// "overdue_check", "due_soon_check", or "weekly_digest". Re-running a job
// on the same day is safe: per-task notified markers prevent duplicate
// sends.
func (h *NotificationHandler) Scheduled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := time.Now().UTC()

	var result *services.NotifyRunResult
	var err error
	switch req.Type {
	case "overdue_check":
		result, err = h.notifier.RunOverdueScan(r.Context(), now)
	case "due_soon_check":
		result, err = h.notifier.RunDueSoonScan(r.Context(), now)
	case "weekly_digest":
		result, err = h.notifier.RunWeeklyDigest(r.Context(), now)
	default:
		utils.RespondWithError(w, r, http.StatusBadRequest,
			"Invalid type: expected overdue_check, due_soon_check, or weekly_digest")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("type", req.Type).Msg("Scheduled notification job failed")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Scheduled job failed")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"type":   req.Type,
		"result": result,
	})
}

// Email sends a single templated transactional email about a task.
//
// POST /api/v1/notifications/email with {userId, taskId, template} where
// template is one of "task_created", "task_completed", "task_overdue",
// "task_due_soon". The user's email notification preference is honored by
// the mailer; a disabled preference is a silent success.
func (h *NotificationHandler) Email(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"userId"`
		TaskID   string `json:"taskId"`
		Template string `json:"template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.TaskID == "" || req.Template == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing required fields: userId, taskId, template")
		return
	}

	var send func(context.Context, *models.User, *models.Task) error
	switch req.Template {
	case "task_created":
		send = h.mailer.SendTaskCreated
	case "task_completed":
		send = h.mailer.SendTaskCompleted
	case "task_overdue":
		send = h.mailer.SendTaskOverdue
	case "task_due_soon":
		send = h.mailer.SendTaskDueSoon
	default:
		utils.RespondWithError(w, r, http.StatusBadRequest,
			"Invalid template: expected task_created, task_completed, task_overdue, or task_due_soon")
		return
	}

	user, err := h.db.GetUser(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to fetch user")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to send email")
		return
	}

	task, err := h.db.GetTask(r.Context(), req.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		log.Error().Err(err).Str("task_id", req.TaskID).Msg("Failed to fetch task")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to send email")
		return
	}

	if err := send(r.Context(), user, task); err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Str("template", req.Template).Msg("Failed to send email")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to send email")
		return
	}

	utils.RespondWithMessage(w, r, http.StatusOK, "Email sent successfully")
}
