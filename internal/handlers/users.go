package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/store"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// UserDB defines the store operations the user endpoints need.
type UserDB interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, uid string) (*models.User, error)
	UpdateUserSettings(ctx context.Context, uid string, settings *models.UserSettings) error
	ListTasksByUser(ctx context.Context, uid string, filter store.TaskFilter) ([]*models.Task, error)
}

// UserCacheInvalidator drops a cached user entry after profile or
// settings writes.
type UserCacheInvalidator interface {
	Invalidate(ctx context.Context, uid string)
}

// UserHandler handles user profile and settings endpoints, plus the
// on-demand weekly progress push.
type UserHandler struct {
	db        UserDB
	push      TaskPushSender
	userCache UserCacheInvalidator
}

// NewUserHandler creates a user handler. The push sender and cache
// invalidator may be nil, disabling the corresponding behavior.
func NewUserHandler(db UserDB, push TaskPushSender, userCache UserCacheInvalidator) *UserHandler {
	return &UserHandler{
		db:        db,
		push:      push,
		userCache: userCache,
	}
}

// Upsert creates or refreshes a user profile on sign-in.
//
// POST /api/v1/users with {uid, email, name, avatar?}. Existing users keep
// their settings, tokens, and creation time; only the profile fields are
// refreshed. First-time users get default settings.
func (h *UserHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID    string `json:"uid"`
		Email  string `json:"email"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UID == "" || req.Email == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing required fields: uid, email")
		return
	}

	user := &models.User{
		UID:    req.UID,
		Email:  req.Email,
		Name:   req.Name,
		Avatar: req.Avatar,
	}
	if err := h.db.UpsertUser(r.Context(), user); err != nil {
		log.Error().Err(err).Str("user_id", req.UID).Msg("Failed to upsert user")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to save user")
		return
	}

	h.invalidate(r.Context(), req.UID)

	utils.RespondWithJSON(w, r, http.StatusOK, user)
}

// Get fetches a user profile.
//
// GET /api/v1/users?uid=...
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing uid")
		return
	}

	user, err := h.db.GetUser(r.Context(), uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to fetch user")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	if user.Settings == nil {
		user.Settings = models.DefaultSettings()
	}
	utils.RespondWithJSON(w, r, http.StatusOK, user)
}

// GetSettings returns the user's preference toggles, defaulted when the
// user has never saved any.
//
// GET /api/v1/users/settings?uid=...
func (h *UserHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	if uid == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing uid")
		return
	}

	user, err := h.db.GetUser(r.Context(), uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to fetch user settings")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to fetch settings")
		return
	}

	settings := user.Settings
	if settings == nil {
		settings = models.DefaultSettings()
	}
	utils.RespondWithJSON(w, r, http.StatusOK, settings)
}

// UpdateSettings replaces the user's preference toggles.
//
// PUT /api/v1/users/settings with {uid, settings}.
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID      string               `json:"uid"`
		Settings *models.UserSettings `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UID == "" || req.Settings == nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing required fields: uid, settings")
		return
	}

	if err := h.db.UpdateUserSettings(r.Context(), req.UID, req.Settings); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", req.UID).Msg("Failed to update settings")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to update settings")
		return
	}

	h.invalidate(r.Context(), req.UID)

	utils.RespondWithJSON(w, r, http.StatusOK, req.Settings)
}

// Digest pushes the user's weekly progress to their devices on demand.
//
// POST /api/v1/users/digest with {userId}. Counts tasks completed in the
// trailing seven days against what is still pending and sends a single
// push notification summarizing both.
func (h *UserHandler) Digest(w http.ResponseWriter, r *http.Request) {
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

	tasks, err := h.db.ListTasksByUser(r.Context(), req.UserID, store.TaskFilter{})
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to list tasks for digest")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to build digest")
		return
	}

	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	completed := 0
	pending := 0
	for _, task := range tasks {
		if task.Completed {
			if task.UpdatedAt.After(weekAgo) {
				completed++
			}
		} else {
			pending++
		}
	}

	body := fmtDigestBody(completed, pending)
	result, err := h.push.SendToUser(r.Context(), req.UserID, "Your weekly progress", body, map[string]string{
		"type": "weekly_digest",
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondWithError(w, r, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to push weekly digest")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to send digest")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"completedThisWeek": completed,
		"pending":           pending,
		"push":              result,
	})
}

func (h *UserHandler) invalidate(ctx context.Context, uid string) {
	if h.userCache != nil {
		h.userCache.Invalidate(ctx, uid)
	}
}

func fmtDigestBody(completed, pending int) string {
	switch {
	case completed == 0 && pending == 0:
		return "No tasks this week. Add one to get started!"
	case pending == 0:
		return fmt.Sprintf("You completed %d task(s) this week and your list is clear. 🎉", completed)
	default:
		return fmt.Sprintf("You completed %d task(s) this week. %d still pending.", completed, pending)
	}
}
