package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/services"
	"github.com/teccUI/inteliTASK/internal/testutil"
)

func TestAnalyticsGet(t *testing.T) {
	db := testutil.NewMemStore()
	for i := 0; i < 10; i++ {
		task := testutil.TestTask("u1", "l1")
		task.Completed = i < 4
		db.SeedTask(task)
	}

	h := NewAnalyticsHandler(services.NewAnalyticsService(db, nil, 0))
	router := chi.NewRouter()
	router.Get("/analytics", h.Get)

	t.Run("returns the full report", func(t *testing.T) {
		rec := serve(t, router, testutil.MakeRequest(t, http.MethodGet, "/analytics?userId=u1&period=week", nil))
		testutil.AssertStatusCode(t, rec, http.StatusOK)

		var report models.AnalyticsReport
		testutil.ParseJSONResponse(t, rec, &report)
		assert.Equal(t, 10, report.Overview.TotalTasks)
		assert.Equal(t, 4, report.Overview.CompletedTasks)
		assert.Equal(t, 6, report.Overview.PendingTasks)
		assert.Equal(t, 40, report.Overview.CompletionRate)
		assert.Len(t, report.Trend, 7)
	})

	t.Run("period defaults to week", func(t *testing.T) {
		rec := serve(t, router, testutil.MakeRequest(t, http.MethodGet, "/analytics?userId=u1", nil))
		testutil.AssertStatusCode(t, rec, http.StatusOK)

		var report models.AnalyticsReport
		testutil.ParseJSONResponse(t, rec, &report)
		assert.Equal(t, "week", report.Period.Period)
	})

	t.Run("missing userId is rejected", func(t *testing.T) {
		rec := serve(t, router, testutil.MakeRequest(t, http.MethodGet, "/analytics", nil))
		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
	})

	t.Run("invalid period is rejected", func(t *testing.T) {
		rec := serve(t, router, testutil.MakeRequest(t, http.MethodGet, "/analytics?userId=u1&period=century", nil))
		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
	})
}
