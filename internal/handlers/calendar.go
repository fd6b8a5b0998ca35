package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/internal/services"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// CalendarConnector drives the Google Calendar OAuth flow and the
// calendar-side push.
type CalendarConnector interface {
	BeginAuth(ctx context.Context, uid string) (string, error)
	CompleteAuth(ctx context.Context, state, code string) (string, error)
	Status(ctx context.Context, uid string) (bool, error)
	PushToCalendar(ctx context.Context, uid string) (*services.SyncResult, error)
}

// TaskPuller imports the user's Google Tasks into a local list.
type TaskPuller interface {
	PullFromGoogle(ctx context.Context, uid, listID string) (*services.SyncResult, error)
}

// CalendarHandler handles the Google Calendar integration endpoints:
// connect, OAuth callback, connection status, and the bidirectional sync.
type CalendarHandler struct {
	calendar    CalendarConnector
	tasksync    TaskPuller
	frontendURL string
}

// NewCalendarHandler creates a calendar handler. frontendURL is where the
// OAuth callback redirects the browser after the exchange.
func NewCalendarHandler(calendar CalendarConnector, tasksync TaskPuller, frontendURL string) *CalendarHandler {
	return &CalendarHandler{
		calendar:    calendar,
		tasksync:    tasksync,
		frontendURL: frontendURL,
	}
}

// Auth starts the Google OAuth connect flow for a user and returns the
// consent URL to redirect to.
//
// GET /api/v1/calendar/auth?userId=...
func (h *CalendarHandler) Auth(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("userId")
	if uid == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing userId")
		return
	}

	authURL, err := h.calendar.BeginAuth(r.Context(), uid)
	if err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to start calendar auth")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to start calendar connection")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]string{"authUrl": authURL})
}

// Callback completes the OAuth flow when Google redirects back.
//
// GET /api/v1/calendar/callback?state=...&code=... On success the browser
// is redirected to the frontend with ?calendar=connected; on failure with
// ?calendar=error so the UI can surface it.
func (h *CalendarHandler) Callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		log.Warn().Msg("Calendar callback missing state or code")
		http.Redirect(w, r, h.frontendURL+"?calendar=error", http.StatusSeeOther)
		return
	}

	uid, err := h.calendar.CompleteAuth(r.Context(), state, code)
	if err != nil {
		log.Error().Err(err).Msg("Failed to complete calendar auth")
		http.Redirect(w, r, h.frontendURL+"?calendar=error", http.StatusSeeOther)
		return
	}

	log.Info().Str("user_id", uid).Msg("Calendar connected via callback")
	http.Redirect(w, r, h.frontendURL+"?calendar=connected", http.StatusSeeOther)
}

// Status reports whether the user's Google connection is usable.
//
// GET /api/v1/calendar/status?userId=...
func (h *CalendarHandler) Status(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("userId")
	if uid == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing userId")
		return
	}

	connected, err := h.calendar.Status(r.Context(), uid)
	if err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to check calendar status")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to check calendar status")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]bool{"connected": connected})
}

// Sync runs the bidirectional sync: pull Google Tasks into the given
// local list, then push dated local tasks to Google Calendar.
//
// POST /api/v1/calendar/sync with {userId, listId}. Responds 400 when the
// user has never connected Google. Partial failures are reported in the
// per-direction counters, not as an error status.
func (h *CalendarHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		ListID string `json:"listId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.ListID == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing required fields: userId, listId")
		return
	}

	pull, err := h.tasksync.PullFromGoogle(r.Context(), req.UserID, req.ListID)
	if err != nil {
		h.respondSyncError(w, r, req.UserID, "pull", err)
		return
	}

	push, err := h.calendar.PushToCalendar(r.Context(), req.UserID)
	if err != nil {
		h.respondSyncError(w, r, req.UserID, "push", err)
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]*services.SyncResult{
		"pull": pull,
		"push": push,
	})
}

func (h *CalendarHandler) respondSyncError(w http.ResponseWriter, r *http.Request, uid, direction string, err error) {
	if errors.Is(err, services.ErrCalendarNotConnected) {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Google Calendar is not connected")
		return
	}
	log.Error().Err(err).Str("user_id", uid).Str("direction", direction).Msg("Calendar sync failed")
	utils.RespondWithError(w, r, http.StatusInternalServerError, "Calendar sync failed")
}
