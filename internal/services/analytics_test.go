package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/testutil"
	"github.com/teccUI/inteliTASK/pkg/cache"
)

func TestAnalyticsReport(t *testing.T) {
	ctx := context.Background()

	t.Run("completion rate is a rounded percentage", func(t *testing.T) {
		db := testutil.NewMemStore()
		for i := 0; i < 10; i++ {
			task := testutil.TestTask("u1", "l1")
			task.Completed = i < 4
			db.SeedTask(task)
		}

		svc := NewAnalyticsService(db, nil, 0)
		report, err := svc.Report(ctx, "u1", "week")
		require.NoError(t, err)

		assert.Equal(t, 10, report.Overview.TotalTasks)
		assert.Equal(t, 4, report.Overview.CompletedTasks)
		assert.Equal(t, 6, report.Overview.PendingTasks)
		assert.Equal(t, 40, report.Overview.CompletionRate)
	})

	t.Run("empty user has zero rate", func(t *testing.T) {
		db := testutil.NewMemStore()
		svc := NewAnalyticsService(db, nil, 0)

		report, err := svc.Report(ctx, "nobody", "month")
		require.NoError(t, err)
		assert.Equal(t, 0, report.Overview.TotalTasks)
		assert.Equal(t, 0, report.Overview.CompletionRate)
	})

	t.Run("rejects unknown period", func(t *testing.T) {
		svc := NewAnalyticsService(testutil.NewMemStore(), nil, 0)
		_, err := svc.Report(ctx, "u1", "decade")
		assert.Error(t, err)
	})

	t.Run("overdue tasks counted against pending only", func(t *testing.T) {
		db := testutil.NewMemStore()
		overdue := testutil.TestTaskDue("u1", "l1", "2000-01-01")
		db.SeedTask(overdue)
		done := testutil.TestTaskDue("u1", "l1", "2000-01-01")
		done.Completed = true
		db.SeedTask(done)

		svc := NewAnalyticsService(db, nil, 0)
		report, err := svc.Report(ctx, "u1", "week")
		require.NoError(t, err)
		assert.Equal(t, 1, report.Overview.OverdueTasks)
	})
}

func TestAnalyticsTrend(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	completedOn := func(day time.Time) *models.Task {
		task := testutil.TestTask("u1", "l1")
		task.Completed = true
		task.UpdatedAt = day
		return task
	}

	tasks := []*models.Task{
		completedOn(now),                     // today
		completedOn(now),                     // today
		completedOn(now.AddDate(0, 0, -2)),   // two days ago
		completedOn(now.AddDate(0, 0, -30)),  // outside the window
		testutil.TestTask("u1", "l1"),        // pending, never counted
	}

	trend := computeTrend(tasks, now)
	require.Len(t, trend, 7)

	assert.Equal(t, "2026-08-26", trend[0].Date)
	assert.Equal(t, "2026-09-01", trend[6].Date)
	assert.Equal(t, 2, trend[6].Count)
	assert.Equal(t, 1, trend[4].Count)
	assert.Equal(t, 0, trend[5].Count)
}

func TestAnalyticsPeriodWindow(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	recent := testutil.TestTask("u1", "l1")
	recent.CreatedAt = now.AddDate(0, 0, -3)
	recent.Completed = true
	recent.UpdatedAt = now.AddDate(0, 0, -1)

	old := testutil.TestTask("u1", "l1")
	old.CreatedAt = now.AddDate(0, 0, -60)
	old.Completed = true
	old.UpdatedAt = now.AddDate(0, 0, -60)

	p := computePeriod([]*models.Task{recent, old}, "week", now)
	assert.Equal(t, 1, p.TasksCreated)
	assert.Equal(t, 1, p.TasksCompleted)

	p = computePeriod([]*models.Task{recent, old}, "year", now)
	assert.Equal(t, 2, p.TasksCreated)
	assert.Equal(t, 2, p.TasksCompleted)
}

func TestAnalyticsCaching(t *testing.T) {
	ctx := context.Background()

	db := testutil.NewMemStore()
	task := testutil.TestTask("u1", "l1")
	task.Completed = true
	db.SeedTask(task)

	mr, cleanup := testutil.SetupMiniRedis(t)
	defer cleanup()
	c := cache.NewCache(testutil.NewTestRedisClient(t, mr))

	svc := NewAnalyticsService(db, c, time.Minute)

	first, err := svc.Report(ctx, "u1", "week")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Overview.CompletedTasks)

	// A new task does not show up until the cache is invalidated.
	db.SeedTask(testutil.TestTask("u1", "l1"))

	cached, err := svc.Report(ctx, "u1", "week")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Overview.TotalTasks)

	svc.Invalidate(ctx, "u1")

	fresh, err := svc.Report(ctx, "u1", "week")
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Overview.TotalTasks)
}
