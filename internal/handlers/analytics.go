package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/services"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// ReportSource computes (or serves from cache) a user's analytics report.
type ReportSource interface {
	Report(ctx context.Context, uid, period string) (*models.AnalyticsReport, error)
}

// AnalyticsHandler handles the analytics read endpoint.
type AnalyticsHandler struct {
	analytics ReportSource
}

// NewAnalyticsHandler creates an analytics handler.
func NewAnalyticsHandler(analytics ReportSource) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Get returns the analytics report for a user and period.
//
// GET /api/v1/analytics?userId=...&period=week|month|year. The period
// defaults to "week" when absent.
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("userId")
	if uid == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing userId")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}

	report, err := h.analytics.Report(r.Context(), uid, period)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPeriod) {
			utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid period: expected week, month, or year")
			return
		}
		log.Error().Err(err).Str("user_id", uid).Str("period", period).Msg("Failed to compute analytics")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, report)
}
