package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/store"
	"github.com/teccUI/inteliTASK/pkg/cache"
)

// AnalyticsStore is the store surface analytics computation needs.
type AnalyticsStore interface {
	ListTasksByUser(ctx context.Context, uid string, filter store.TaskFilter) ([]*models.Task, error)
}

// AnalyticsService computes per-user task analytics: the overview
// counters, period activity, and the completion trend. Reports are
// cached per (user, period) and invalidated whenever the user's tasks
// change.
type AnalyticsService struct {
	db    AnalyticsStore
	cache *cache.Cache
	ttl   time.Duration
}

// NewAnalyticsService creates an analytics service. A nil cache disables
// caching; every request recomputes from the store.
func NewAnalyticsService(db AnalyticsStore, c *cache.Cache, ttl time.Duration) *AnalyticsService {
	return &AnalyticsService{
		db:    db,
		cache: c,
		ttl:   ttl,
	}
}

// ErrInvalidPeriod indicates an unsupported analytics period was requested.
var ErrInvalidPeriod = errors.New("invalid analytics period: expected week, month, or year")

// periodDays maps the supported analytics periods to their length.
var periodDays = map[string]int{
	"week":  7,
	"month": 30,
	"year":  365,
}

// Report returns the analytics report for a user and period ("week",
// "month", or "year"), computing it on cache miss.
func (s *AnalyticsService) Report(ctx context.Context, uid, period string) (*models.AnalyticsReport, error) {
	if _, ok := periodDays[period]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	if s.cache == nil {
		return s.compute(ctx, uid, period, time.Now().UTC())
	}

	var report models.AnalyticsReport
	err := s.cache.GetOrSet(ctx, cache.AnalyticsKey(uid, period), s.ttl, &report, func() (interface{}, error) {
		return s.compute(ctx, uid, period, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Invalidate drops every cached period for a user. Called from the task
// handlers after any write.
func (s *AnalyticsService) Invalidate(ctx context.Context, uid string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, cache.UserAnalyticsPattern(uid)); err != nil {
		log.Warn().Err(err).Str("user_id", uid).Msg("Failed to invalidate analytics cache")
	}
}

func (s *AnalyticsService) compute(ctx context.Context, uid, period string, now time.Time) (*models.AnalyticsReport, error) {
	tasks, err := s.db.ListTasksByUser(ctx, uid, store.TaskFilter{})
	if err != nil {
		return nil, err
	}

	report := &models.AnalyticsReport{
		Overview: computeOverview(tasks, now),
		Period:   computePeriod(tasks, period, now),
		Trend:    computeTrend(tasks, now),
	}
	return report, nil
}

// computeOverview tallies the headline counters. The completion rate is
// a rounded percentage; a user with no tasks has rate 0, not NaN.
func computeOverview(tasks []*models.Task, now time.Time) models.AnalyticsOverview {
	o := models.AnalyticsOverview{TotalTasks: len(tasks)}

	for _, task := range tasks {
		if task.Completed {
			o.CompletedTasks++
		} else {
			o.PendingTasks++
			if models.IsOverdue(task.DueDate, task.Completed, now) {
				o.OverdueTasks++
			}
		}
	}

	if o.TotalTasks > 0 {
		o.CompletionRate = int(math.Round(float64(o.CompletedTasks) / float64(o.TotalTasks) * 100))
	}
	return o
}

// computePeriod tallies activity inside the trailing period window.
// Completions are attributed by the task's last update time, which is
// when the completed flag flipped.
func computePeriod(tasks []*models.Task, period string, now time.Time) models.AnalyticsPeriod {
	cutoff := now.AddDate(0, 0, -periodDays[period])

	p := models.AnalyticsPeriod{Period: period}
	for _, task := range tasks {
		if task.CreatedAt.After(cutoff) {
			p.TasksCreated++
		}
		if task.Completed && task.UpdatedAt.After(cutoff) {
			p.TasksCompleted++
		}
	}
	return p
}

// computeTrend builds the last seven days of completion counts, oldest
// first, with zero-filled days so the client can chart it directly.
func computeTrend(tasks []*models.Task, now time.Time) []models.TrendPoint {
	const days = 7

	counts := make(map[string]int)
	for _, task := range tasks {
		if task.Completed {
			counts[task.UpdatedAt.UTC().Format(models.DateLayout)]++
		}
	}

	trend := make([]models.TrendPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).UTC().Format(models.DateLayout)
		trend = append(trend, models.TrendPoint{Date: day, Count: counts[day]})
	}
	return trend
}
