package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/services"
	"github.com/teccUI/inteliTASK/internal/store"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// TaskDB defines the store operations the task endpoints need.
// Abstracts database access for testing and dependency injection.
type TaskDB interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasksByUser(ctx context.Context, uid string, filter store.TaskFilter) ([]*models.Task, error)
	UpdateTask(ctx context.Context, id string, upd store.TaskUpdate) error
	DeleteTask(ctx context.Context, id string) error
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

// TaskMailSender sends the transactional emails tied to task lifecycle
// events. Sends are best-effort: a failed email never fails the request.
type TaskMailSender interface {
	SendTaskCreated(ctx context.Context, user *models.User, task *models.Task) error
	SendTaskCompleted(ctx context.Context, user *models.User, task *models.Task) error
}

// TaskPushSender delivers push notifications for due-date reminders.
type TaskPushSender interface {
	SendToUser(ctx context.Context, uid, title, body string, data map[string]string) (*services.PushResult, error)
}

// ReportInvalidator drops cached analytics for a user after task writes.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, uid string)
}

// TaskHandler handles the task CRUD endpoints plus the due-date reminder
// dispatch. Task writes invalidate the owner's cached analytics and
// trigger transactional emails where the user's preferences allow.
type TaskHandler struct {
	db        TaskDB
	mailer    TaskMailSender
	push      TaskPushSender
	analytics ReportInvalidator
}

// NewTaskHandler creates a task handler with its dependencies. The mailer,
// push sender, and analytics invalidator may each be nil, which disables
// the corresponding side effect (used in tests and degraded deployments).
func NewTaskHandler(db TaskDB, mailer TaskMailSender, push TaskPushSender, analytics ReportInvalidator) *TaskHandler {
	return &TaskHandler{
		db:        db,
		mailer:    mailer,
		push:      push,
		analytics: analytics,
	}
}

// taskRequest is the JSON body accepted by task create and update.
// Pointer fields distinguish "absent" from "set to the zero value" on
// update; create reads the dereferenced values directly.
type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Completed   *bool   `json:"completed"`
	ListID      *string `json:"listId"`
	UserID      string  `json:"userId"`
}

// List returns a page of the user's tasks, newest page parameters style:
// GET /api/v1/tasks?userId=...&listId=...&completed=...&page=...&page_size=...
//
// listId and completed are optional filters; pagination is offset-based
// over the filtered result.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("userId")
	if uid == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing userId")
		return
	}

	filter := store.TaskFilter{ListID: r.URL.Query().Get("listId")}
	if completed := r.URL.Query().Get("completed"); completed != "" {
		value := completed == "true"
		filter.Completed = &value
	}

	tasks, err := h.db.ListTasksByUser(r.Context(), uid, filter)
	if err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to list tasks")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	params := utils.ParsePageParams(r)
	offset := (params.Page - 1) * params.PageSize
	end := offset + params.PageSize
	if offset > len(tasks) {
		offset = len(tasks)
	}
	if end > len(tasks) {
		end = len(tasks)
	}

	utils.RespondWithJSON(w, r, http.StatusOK,
		utils.NewPaginatedResponse(tasks[offset:end], params, int64(len(tasks))))
}

// Create stores a new task.
//
// POST /api/v1/tasks with {title, description?, dueDate?, completed?,
// listId, userId}. The due date accepts both "2006-01-02" and RFC 3339
// input and is normalized to a UTC civil date before storage.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title == nil || *req.Title == "" || req.UserID == "" || req.ListID == nil || *req.ListID == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing required fields: title, listId, userId")
		return
	}

	task := &models.Task{
		Title:  *req.Title,
		ListID: *req.ListID,
		UserID: req.UserID,
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	if req.DueDate != nil {
		due, err := models.NormalizeDueDate(*req.DueDate)
		if err != nil {
			utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid dueDate")
			return
		}
		task.DueDate = due
	}

	if err := h.db.CreateTask(r.Context(), task); err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to create task")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create task")
		return
	}

	h.invalidateAnalytics(r.Context(), task.UserID)
	h.notifyTaskEvent(r.Context(), task, func(ctx context.Context, user *models.User) error {
		return h.mailer.SendTaskCreated(ctx, user, task)
	})

	utils.RespondWithJSON(w, r, http.StatusCreated, task)
}

// Get fetches a single task by ID.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := h.db.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		log.Error().Err(err).Str("task_id", id).Msg("Failed to fetch task")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to fetch task")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, task)
}

// Update applies a partial update to a task.
//
// PUT /api/v1/tasks/{id}. Absent fields are left untouched. Flipping
// completed to true triggers the completion email.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	before, err := h.db.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		log.Error().Err(err).Str("task_id", id).Msg("Failed to fetch task")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to update task")
		return
	}

	upd := store.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		ListID:      req.ListID,
	}
	if req.DueDate != nil {
		due, err := models.NormalizeDueDate(*req.DueDate)
		if err != nil {
			utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid dueDate")
			return
		}
		upd.DueDate = &due
	}

	if err := h.db.UpdateTask(r.Context(), id, upd); err != nil {
		log.Error().Err(err).Str("task_id", id).Msg("Failed to update task")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to update task")
		return
	}

	task, err := h.db.GetTask(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("task_id", id).Msg("Failed to re-fetch task after update")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to update task")
		return
	}

	h.invalidateAnalytics(r.Context(), task.UserID)

	if !before.Completed && task.Completed {
		h.notifyTaskEvent(r.Context(), task, func(ctx context.Context, user *models.User) error {
			return h.mailer.SendTaskCompleted(ctx, user, task)
		})
	}

	utils.RespondWithJSON(w, r, http.StatusOK, task)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := h.db.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		log.Error().Err(err).Str("task_id", id).Msg("Failed to fetch task")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	if err := h.db.DeleteTask(r.Context(), id); err != nil {
		log.Error().Err(err).Str("task_id", id).Msg("Failed to delete task")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	h.invalidateAnalytics(r.Context(), task.UserID)

	utils.RespondWithMessage(w, r, http.StatusOK, "Task deleted successfully")
}

// Reminders pushes a reminder to the user for every incomplete task due
// within the next 24 hours.
//
// POST /api/v1/tasks/reminders with {userId}.
func (h *TaskHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing userId")
		return
	}

	if h.push == nil {
		utils.RespondWithError(w, r, http.StatusServiceUnavailable, "Push notifications are not configured")
		return
	}

	incomplete := false
	tasks, err := h.db.ListTasksByUser(r.Context(), req.UserID, store.TaskFilter{Completed: &incomplete})
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to list tasks for reminders")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to send reminders")
		return
	}

	now := time.Now().UTC()
	sent := 0
	failed := 0
	for _, task := range tasks {
		if !models.IsDueWithin(task.DueDate, task.Completed, now, 24*time.Hour) {
			continue
		}
		_, err := h.push.SendToUser(r.Context(), req.UserID,
			"Task due soon", task.Title+" is due on "+task.DueDate,
			map[string]string{"taskId": task.ID, "listId": task.ListID})
		if err != nil {
			log.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to push reminder")
			failed++
			continue
		}
		sent++
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]int{
		"remindersSent":   sent,
		"remindersFailed": failed,
	})
}

func (h *TaskHandler) invalidateAnalytics(ctx context.Context, uid string) {
	if h.analytics != nil {
		h.analytics.Invalidate(ctx, uid)
	}
}

// notifyTaskEvent loads the task owner and fires a lifecycle email.
// Failures are logged and swallowed; the write already succeeded.
func (h *TaskHandler) notifyTaskEvent(ctx context.Context, task *models.Task, send func(context.Context, *models.User) error) {
	if h.mailer == nil {
		return
	}

	user, err := h.db.GetUser(ctx, task.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", task.UserID).Msg("Failed to load user for task email")
		return
	}
	if err := send(ctx, user); err != nil {
		log.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to send task email")
	}
}
