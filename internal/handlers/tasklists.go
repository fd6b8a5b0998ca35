package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/store"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// TaskListDB defines the store operations the task-list endpoints need.
type TaskListDB interface {
	CreateTaskList(ctx context.Context, list *models.TaskList) error
	GetTaskList(ctx context.Context, id string) (*models.TaskList, error)
	ListTaskListsByUser(ctx context.Context, uid string) ([]*models.TaskList, error)
	UpdateTaskList(ctx context.Context, id string, upd store.TaskListUpdate) error
	DeleteTaskList(ctx context.Context, id string) error
}

// TaskListHandler handles the task-list CRUD endpoints. Deleting a list
// also deletes its tasks (the store performs the cascade in one batch).
type TaskListHandler struct {
	db TaskListDB
}

// NewTaskListHandler creates a task-list handler.
func NewTaskListHandler(db TaskListDB) *TaskListHandler {
	return &TaskListHandler{db: db}
}

type taskListRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	UserID      string  `json:"userId"`
}

// List returns all task lists owned by a user.
//
// GET /api/v1/task-lists?userId=...
func (h *TaskListHandler) List(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("userId")
	if uid == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing userId")
		return
	}

	lists, err := h.db.ListTaskListsByUser(r.Context(), uid)
	if err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to list task lists")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to list task lists")
		return
	}
	if lists == nil {
		lists = []*models.TaskList{}
	}

	utils.RespondWithJSON(w, r, http.StatusOK, lists)
}

// Create stores a new task list.
//
// POST /api/v1/task-lists with {name, description?, color?, userId}.
func (h *TaskListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == nil || *req.Name == "" || req.UserID == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing required fields: name, userId")
		return
	}

	list := &models.TaskList{
		Name:   *req.Name,
		UserID: req.UserID,
	}
	if req.Description != nil {
		list.Description = *req.Description
	}
	if req.Color != nil {
		list.Color = *req.Color
	}

	if err := h.db.CreateTaskList(r.Context(), list); err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to create task list")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create task list")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusCreated, list)
}

// Get fetches a task list by ID.
func (h *TaskListHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	list, err := h.db.GetTaskList(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "Task list not found")
			return
		}
		log.Error().Err(err).Str("list_id", id).Msg("Failed to fetch task list")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to fetch task list")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, list)
}

// Update applies a partial update to a task list. Absent fields are left
// untouched.
//
// PUT /api/v1/task-lists/{id}.
func (h *TaskListHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req taskListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.db.UpdateTaskList(r.Context(), id, store.TaskListUpdate{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "Task list not found")
			return
		}
		log.Error().Err(err).Str("list_id", id).Msg("Failed to update task list")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to update task list")
		return
	}

	list, err := h.db.GetTaskList(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("list_id", id).Msg("Failed to re-fetch task list after update")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to update task list")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, list)
}

// Delete removes a task list and every task in it.
func (h *TaskListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.db.GetTaskList(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "Task list not found")
			return
		}
		log.Error().Err(err).Str("list_id", id).Msg("Failed to fetch task list")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to delete task list")
		return
	}

	if err := h.db.DeleteTaskList(r.Context(), id); err != nil {
		log.Error().Err(err).Str("list_id", id).Msg("Failed to delete task list")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to delete task list")
		return
	}

	utils.RespondWithMessage(w, r, http.StatusOK, "Task list and its tasks deleted successfully")
}
