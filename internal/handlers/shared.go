package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/store"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// SharedDB defines the store operations the read-only shared view needs.
type SharedDB interface {
	GetTaskList(ctx context.Context, id string) (*models.TaskList, error)
	ListTasksByList(ctx context.Context, listID string) ([]*models.Task, error)
}

// SharedHandler serves the read-only shared list view. Responses are
// sanitized: neither the list nor its tasks carry the owner's userId.
type SharedHandler struct {
	db SharedDB
}

// NewSharedHandler creates a shared-view handler.
func NewSharedHandler(db SharedDB) *SharedHandler {
	return &SharedHandler{db: db}
}

// sharedListInfo is the sanitized list shape for the shared view.
type sharedListInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Tasks returns a list's tasks for anonymous read-only access.
//
// GET /api/v1/shared/tasks?listId=... Every task is returned through the
// sanitized shared shape, so the owner's userId never appears anywhere in
// the response body.
func (h *SharedHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	listID := r.URL.Query().Get("listId")
	if listID == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing listId")
		return
	}

	list, err := h.db.GetTaskList(r.Context(), listID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "Task list not found")
			return
		}
		log.Error().Err(err).Str("list_id", listID).Msg("Failed to fetch shared list")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to fetch shared list")
		return
	}

	tasks, err := h.db.ListTasksByList(r.Context(), listID)
	if err != nil {
		log.Error().Err(err).Str("list_id", listID).Msg("Failed to list shared tasks")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to fetch shared tasks")
		return
	}

	shared := make([]models.SharedTask, 0, len(tasks))
	for _, task := range tasks {
		shared = append(shared, task.Shared())
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"list": sharedListInfo{
			ID:    list.ID,
			Name:  list.Name,
			Color: list.Color,
		},
		"tasks": shared,
	})
}
