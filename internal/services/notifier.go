package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/store"
	"github.com/teccUI/inteliTASK/pkg/config"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// NotifierStore is the store surface the scheduled notifiers need.
type NotifierStore interface {
	ListIncompleteTasksWithDueDate(ctx context.Context) ([]*models.Task, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListTasksByUser(ctx context.Context, uid string, filter store.TaskFilter) ([]*models.Task, error)
	GetUser(ctx context.Context, uid string) (*models.User, error)
	MarkOverdueNotified(ctx context.Context, id string, when time.Time) error
	MarkDueSoonNotified(ctx context.Context, id string, when time.Time) error
}

// TaskMailer is the mailer surface the notifiers need.
type TaskMailer interface {
	SendTaskOverdue(ctx context.Context, user *models.User, task *models.Task) error
	SendTaskDueSoon(ctx context.Context, user *models.User, task *models.Task) error
	SendWeeklyDigest(ctx context.Context, user *models.User, completed, pending, overdue int) error
}

// Notifier runs the scheduled notification scans: overdue tasks,
// tasks due within the configured window, and the weekly digest.
//
// Each scan walks the global set of candidate tasks once, fans deliveries
// out over a bounded worker pool, and records a per-task notified marker
// after each successful send so repeated runs never re-notify.
type Notifier struct {
	db     NotifierStore
	mailer TaskMailer
	cfg    config.NotifyConfig
}

// NewNotifier creates a notifier over the given store and mailer.
func NewNotifier(db NotifierStore, mailer TaskMailer, cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		db:     db,
		mailer: mailer,
		cfg:    cfg,
	}
}

// NotifyRunResult summarizes one notifier run.
type NotifyRunResult struct {
	Scanned  int `json:"scanned"`
	Notified int `json:"notified"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// userLoader caches user lookups for the duration of one run, so a user
// with many due tasks costs a single Firestore read.
type userLoader struct {
	db    NotifierStore
	mu    sync.Mutex
	users map[string]*models.User
}

func newUserLoader(db NotifierStore) *userLoader {
	return &userLoader{
		db:    db,
		users: make(map[string]*models.User),
	}
}

func (l *userLoader) get(ctx context.Context, uid string) (*models.User, error) {
	l.mu.Lock()
	if user, ok := l.users[uid]; ok {
		l.mu.Unlock()
		return user, nil
	}
	l.mu.Unlock()

	user, err := l.db.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.users[uid] = user
	l.mu.Unlock()
	return user, nil
}

// RunOverdueScan emails users about incomplete tasks whose due date has
// passed. Tasks already notified are skipped, as are users who disabled
// task reminder emails.
func (n *Notifier) RunOverdueScan(ctx context.Context, now time.Time) (*NotifyRunResult, error) {
	return n.runTaskScan(ctx, now, "overdue",
		func(task *models.Task) bool {
			return task.OverdueNotified.IsZero() && models.IsOverdue(task.DueDate, task.Completed, now)
		},
		n.mailer.SendTaskOverdue,
		n.db.MarkOverdueNotified,
	)
}

// RunDueSoonScan emails users about incomplete tasks due within the
// configured window. Overdue tasks are excluded; the overdue scan owns
// those.
func (n *Notifier) RunDueSoonScan(ctx context.Context, now time.Time) (*NotifyRunResult, error) {
	return n.runTaskScan(ctx, now, "due_soon",
		func(task *models.Task) bool {
			return task.DueSoonNotified.IsZero() && models.IsDueWithin(task.DueDate, task.Completed, now, n.cfg.DueSoonWindow)
		},
		n.mailer.SendTaskDueSoon,
		n.db.MarkDueSoonNotified,
	)
}

func (n *Notifier) runTaskScan(
	ctx context.Context,
	now time.Time,
	scan string,
	match func(*models.Task) bool,
	send func(context.Context, *models.User, *models.Task) error,
	mark func(context.Context, string, time.Time) error,
) (*NotifyRunResult, error) {
	tasks, err := n.db.ListIncompleteTasksWithDueDate(ctx)
	if err != nil {
		return nil, err
	}

	result := &NotifyRunResult{Scanned: len(tasks)}
	loader := newUserLoader(n.db)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.cfg.FanoutWorkers)

	for _, task := range tasks {
		if !match(task) {
			mu.Lock()
			result.Skipped++
			mu.Unlock()
			continue
		}

		task := task
		g.Go(func() error {
			user, err := loader.get(gctx, task.UserID)
			if err != nil {
				log.Warn().Err(err).Str("task_id", task.ID).Str("user_id", task.UserID).Msg("Failed to load task owner")
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return nil
			}

			if user.Settings != nil && !user.Settings.Notifications.TaskReminders {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}

			retryCfg := utils.DefaultRetryConfig()
			retryCfg.MaxAttempts = n.cfg.SendRetries
			err = utils.Retry(gctx, retryCfg, func() error {
				return send(gctx, user, task)
			})
			if err != nil {
				log.Warn().Err(err).Str("task_id", task.ID).Str("scan", scan).Msg("Failed to send notification")
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return nil
			}

			// Mark only after a confirmed send; an unmarked failure is
			// retried on the next run.
			if err := mark(gctx, task.ID, now); err != nil {
				log.Warn().Err(err).Str("task_id", task.ID).Str("scan", scan).Msg("Failed to persist notified marker")
			}

			mu.Lock()
			result.Notified++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	log.Info().
		Str("scan", scan).
		Int("scanned", result.Scanned).
		Int("notified", result.Notified).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Notifier scan completed")

	return result, nil
}

// RunWeeklyDigest sends every opted-in user a summary of their last
// seven days: tasks completed, still pending, and overdue.
func (n *Notifier) RunWeeklyDigest(ctx context.Context, now time.Time) (*NotifyRunResult, error) {
	users, err := n.db.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	result := &NotifyRunResult{Scanned: len(users)}
	weekAgo := now.Add(-7 * 24 * time.Hour)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.cfg.FanoutWorkers)

	for _, user := range users {
		if user.Settings != nil && !user.Settings.Notifications.WeeklyDigest {
			result.Skipped++
			continue
		}

		user := user
		g.Go(func() error {
			tasks, err := n.db.ListTasksByUser(gctx, user.UID, store.TaskFilter{})
			if err != nil {
				log.Warn().Err(err).Str("user_id", user.UID).Msg("Failed to load tasks for digest")
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return nil
			}

			completed, pending, overdue := 0, 0, 0
			for _, task := range tasks {
				switch {
				case task.Completed && task.UpdatedAt.After(weekAgo):
					completed++
				case !task.Completed && models.IsOverdue(task.DueDate, task.Completed, now):
					overdue++
				case !task.Completed:
					pending++
				}
			}

			retryCfg := utils.DefaultRetryConfig()
			retryCfg.MaxAttempts = n.cfg.SendRetries
			err = utils.Retry(gctx, retryCfg, func() error {
				return n.mailer.SendWeeklyDigest(gctx, user, completed, pending, overdue)
			})
			if err != nil {
				log.Warn().Err(err).Str("user_id", user.UID).Msg("Failed to send weekly digest")
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			result.Notified++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	log.Info().
		Int("scanned", result.Scanned).
		Int("notified", result.Notified).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Weekly digest run completed")

	return result, nil
}
