package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/teccUI/inteliTASK/internal/middleware"
	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/store"
)

// TaskSyncStore is the store surface the Google Tasks import needs.
type TaskSyncStore interface {
	CreateSyncedTask(ctx context.Context, task *models.Task) error
}

// TaskSyncService imports the user's Google Tasks into a local task list.
//
// Each remote task is keyed by its Google Tasks ID; the store's
// conditional insert makes the import idempotent, so running sync twice
// imports nothing new the second time.
type TaskSyncService struct {
	calendar *CalendarService
	db       TaskSyncStore
}

// NewTaskSyncService creates the Google Tasks import service. It shares
// the calendar service's OAuth credentials, since both integrations hang
// off the same Google connection.
func NewTaskSyncService(calendar *CalendarService, db TaskSyncStore) *TaskSyncService {
	return &TaskSyncService{
		calendar: calendar,
		db:       db,
	}
}

// PullFromGoogle imports every task from every Google Tasks list the user
// owns into the local list identified by listID. Tasks seen in a previous
// run are counted as skipped; individual failures do not abort the run.
func (s *TaskSyncService) PullFromGoogle(ctx context.Context, uid, listID string) (*SyncResult, error) {
	ts, err := s.calendar.TokenSource(ctx, uid)
	if err != nil {
		return nil, err
	}

	svc, err := tasksapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to build tasks client: %w", err)
	}

	start := time.Now()
	taskLists, err := svc.Tasklists.List().Context(ctx).Do()
	if err != nil {
		middleware.RecordExternalCall("google", "error", time.Since(start))
		middleware.IncrementCalendarSync("pull", "failure")
		return nil, fmt.Errorf("failed to list google task lists: %w", err)
	}
	middleware.RecordExternalCall("google", "success", time.Since(start))

	result := &SyncResult{}
	for _, remoteList := range taskLists.Items {
		if err := s.importList(ctx, svc, uid, listID, remoteList.Id, result); err != nil {
			log.Warn().
				Err(err).
				Str("user_id", uid).
				Str("google_list_id", remoteList.Id).
				Msg("Failed to import google task list")
			result.Failed++
		}
	}

	outcome := "success"
	if result.Failed > 0 {
		outcome = "failure"
	}
	middleware.IncrementCalendarSync("pull", outcome)

	log.Info().
		Str("user_id", uid).
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Google Tasks import completed")

	return result, nil
}

func (s *TaskSyncService) importList(ctx context.Context, svc *tasksapi.Service, uid, listID, remoteListID string, result *SyncResult) error {
	call := svc.Tasks.List(remoteListID).ShowCompleted(true).MaxResults(100)
	pageToken := ""

	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		start := time.Now()
		page, err := call.Context(ctx).Do()
		if err != nil {
			middleware.RecordExternalCall("google", "error", time.Since(start))
			return fmt.Errorf("failed to list google tasks: %w", err)
		}
		middleware.RecordExternalCall("google", "success", time.Since(start))

		for _, remote := range page.Items {
			if remote.Title == "" {
				// Google Tasks allows empty placeholder entries.
				result.Skipped++
				continue
			}

			task, err := s.convert(remote, uid, listID)
			if err != nil {
				log.Warn().Err(err).Str("google_task_id", remote.Id).Msg("Skipping unconvertible google task")
				result.Failed++
				continue
			}

			err = s.db.CreateSyncedTask(ctx, task)
			switch {
			case errors.Is(err, store.ErrAlreadyExists):
				result.Skipped++
			case err != nil:
				log.Warn().Err(err).Str("google_task_id", remote.Id).Msg("Failed to insert synced task")
				result.Failed++
			default:
				result.Inserted++
			}
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			return nil
		}
	}
}

// convert maps a Google Tasks entry onto the local task shape. Google
// sends the due date as an RFC 3339 timestamp with the time portion
// zeroed; it normalizes to the canonical civil date.
func (s *TaskSyncService) convert(remote *tasksapi.Task, uid, listID string) (*models.Task, error) {
	due := ""
	if remote.Due != "" {
		normalized, err := models.NormalizeDueDate(remote.Due)
		if err != nil {
			return nil, err
		}
		due = normalized
	}

	return &models.Task{
		Title:        remote.Title,
		Description:  remote.Notes,
		DueDate:      due,
		Completed:    remote.Status == "completed",
		ListID:       listID,
		UserID:       uid,
		GoogleTaskID: remote.Id,
	}, nil
}
