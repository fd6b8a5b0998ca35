// Package store packages up all Firestore access behind typed methods.
//
// Every method takes an injected context and returns wrapped errors;
// callers distinguish "missing document" from infrastructure failures
// via the ErrNotFound and ErrAlreadyExists sentinels.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/teccUI/inteliTASK/internal/models"
)

const (
	usersCollection     = "users"
	taskListsCollection = "taskLists"
	tasksCollection     = "tasks"
)

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists indicates a conditional insert lost to an
	// existing document with the same identity.
	ErrAlreadyExists = errors.New("document already exists")
)

// Store provides typed access to the application's Firestore collections.
type Store struct {
	client *firestore.Client
}

// New creates a Store backed by the given Firestore client.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Close releases the underlying Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping verifies connectivity by issuing a cheap read against the users
// collection. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	iter := s.client.Collection(usersCollection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

// --- Users ---

// UpsertUser creates the user document on first sign-in, or refreshes the
// profile fields (email, name, avatar) on subsequent sign-ins. Existing
// tokens and settings are never clobbered.
func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	if user.UID == "" {
		return errors.New("user uid must not be empty")
	}

	ref := s.client.Collection(usersCollection).Doc(user.UID)
	now := time.Now().UTC()

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("while looking up user %q: %w", user.UID, err)
		}

		if snap != nil && snap.Exists() {
			return tx.Update(ref, []firestore.Update{
				{Path: "email", Value: user.Email},
				{Path: "name", Value: user.Name},
				{Path: "avatar", Value: user.Avatar},
				{Path: "updatedAt", Value: now},
			})
		}

		user.CreatedAt = now
		user.UpdatedAt = now
		if user.FCMTokens == nil {
			user.FCMTokens = []string{}
		}
		return tx.Set(ref, user)
	})
}

// GetUser fetches a user document by UID.
func (s *Store) GetUser(ctx context.Context, uid string) (*models.User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("while fetching user %q: %w", uid, err)
	}

	user := &models.User{}
	if err := snap.DataTo(user); err != nil {
		return nil, fmt.Errorf("while unmarshaling user %q: %w", uid, err)
	}
	user.UID = snap.Ref.ID
	return user, nil
}

// UpdateUserSettings replaces the user's settings subtree.
func (s *Store) UpdateUserSettings(ctx context.Context, uid string, settings *models.UserSettings) error {
	_, err := s.client.Collection(usersCollection).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "settings", Value: settings},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("while updating settings for user %q: %w", uid, err)
	}
	return nil
}

// SaveGoogleTokens stores OAuth credentials after a successful Google
// Calendar connection, and flips the integration flag on.
func (s *Store) SaveGoogleTokens(ctx context.Context, uid string, tokens *models.GoogleTokens) error {
	_, err := s.client.Collection(usersCollection).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "googleCalendarTokens", Value: tokens},
		{Path: "settings.integrations.googleCalendar", Value: true},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("while saving google tokens for user %q: %w", uid, err)
	}
	return nil
}

// AddFCMToken registers a device token for push notifications. Adding a
// token that is already registered is a no-op.
func (s *Store) AddFCMToken(ctx context.Context, uid, token string) error {
	_, err := s.client.Collection(usersCollection).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "fcmTokens", Value: firestore.ArrayUnion(token)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("while registering fcm token for user %q: %w", uid, err)
	}
	return nil
}

// RemoveFCMTokens deletes device tokens that the push service found to be
// invalid or unregistered.
func (s *Store) RemoveFCMTokens(ctx context.Context, uid string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	values := make([]interface{}, len(tokens))
	for i, t := range tokens {
		values[i] = t
	}
	_, err := s.client.Collection(usersCollection).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "fcmTokens", Value: firestore.ArrayRemove(values...)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("while pruning fcm tokens for user %q: %w", uid, err)
	}
	return nil
}

// ListUsers returns every user document. The weekly digest notifier
// iterates this set once per run.
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	iter := s.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var users []*models.User
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while listing users: %w", err)
		}

		user := &models.User{}
		if err := snap.DataTo(user); err != nil {
			return nil, fmt.Errorf("while unmarshaling user %q: %w", snap.Ref.ID, err)
		}
		user.UID = snap.Ref.ID
		users = append(users, user)
	}
	return users, nil
}

// --- Task lists ---

// CreateTaskList stores a new task list and returns it with its
// generated ID and timestamps populated.
func (s *Store) CreateTaskList(ctx context.Context, list *models.TaskList) error {
	now := time.Now().UTC()
	list.CreatedAt = now
	list.UpdatedAt = now

	ref, _, err := s.client.Collection(taskListsCollection).Add(ctx, list)
	if err != nil {
		return fmt.Errorf("while creating task list: %w", err)
	}
	list.ID = ref.ID
	return nil
}

// GetTaskList fetches a task list by document ID.
func (s *Store) GetTaskList(ctx context.Context, id string) (*models.TaskList, error) {
	snap, err := s.client.Collection(taskListsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("while fetching task list %q: %w", id, err)
	}

	list := &models.TaskList{}
	if err := snap.DataTo(list); err != nil {
		return nil, fmt.Errorf("while unmarshaling task list %q: %w", id, err)
	}
	list.ID = snap.Ref.ID
	return list, nil
}

// ListTaskListsByUser returns all task lists owned by a user.
func (s *Store) ListTaskListsByUser(ctx context.Context, uid string) ([]*models.TaskList, error) {
	iter := s.client.Collection(taskListsCollection).Where("userId", "==", uid).Documents(ctx)
	defer iter.Stop()

	var lists []*models.TaskList
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while listing task lists for user %q: %w", uid, err)
		}

		list := &models.TaskList{}
		if err := snap.DataTo(list); err != nil {
			return nil, fmt.Errorf("while unmarshaling task list %q: %w", snap.Ref.ID, err)
		}
		list.ID = snap.Ref.ID
		lists = append(lists, list)
	}
	return lists, nil
}

// TaskListUpdate carries the optional fields a task list PUT may change.
// Nil fields are left untouched.
type TaskListUpdate struct {
	Name        *string
	Description *string
	Color       *string
}

// UpdateTaskList applies the given field updates and bumps updatedAt.
func (s *Store) UpdateTaskList(ctx context.Context, id string, upd TaskListUpdate) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: time.Now().UTC()}}
	if upd.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *upd.Name})
	}
	if upd.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *upd.Description})
	}
	if upd.Color != nil {
		updates = append(updates, firestore.Update{Path: "color", Value: *upd.Color})
	}

	_, err := s.client.Collection(taskListsCollection).Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("while updating task list %q: %w", id, err)
	}
	return nil
}

// DeleteTaskList removes a task list and every task that belongs to it.
func (s *Store) DeleteTaskList(ctx context.Context, id string) error {
	taskIter := s.client.Collection(tasksCollection).Where("listId", "==", id).Documents(ctx)
	defer taskIter.Stop()

	batch := s.client.Batch()
	count := 0
	for {
		snap, err := taskIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("while collecting tasks of list %q: %w", id, err)
		}
		batch.Delete(snap.Ref)
		count++
	}

	batch.Delete(s.client.Collection(taskListsCollection).Doc(id))
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("while deleting task list %q and %d tasks: %w", id, count, err)
	}
	return nil
}

// --- Tasks ---

// CreateTask stores a new task and returns it with its generated ID and
// timestamps populated.
func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	ref, _, err := s.client.Collection(tasksCollection).Add(ctx, task)
	if err != nil {
		return fmt.Errorf("while creating task: %w", err)
	}
	task.ID = ref.ID
	return nil
}

// syncedTaskDocID derives a stable document ID from the owning user and
// the Google Tasks ID, so that re-importing the same remote task targets
// the same document and the conditional insert below can reject it.
func syncedTaskDocID(uid, googleTaskID string) string {
	sum := sha256.Sum256([]byte(uid + "\x00" + googleTaskID))
	return "gt-" + hex.EncodeToString(sum[:16])
}

// CreateSyncedTask inserts a task imported from Google Tasks. The insert
// is conditional on the derived document ID being free, which makes the
// import idempotent even when two sync runs race: the loser gets
// ErrAlreadyExists and counts the task as skipped.
func (s *Store) CreateSyncedTask(ctx context.Context, task *models.Task) error {
	if task.GoogleTaskID == "" {
		return errors.New("synced task must carry a google task id")
	}

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	id := syncedTaskDocID(task.UserID, task.GoogleTaskID)
	_, err := s.client.Collection(tasksCollection).Doc(id).Create(ctx, task)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrAlreadyExists
		}
		return fmt.Errorf("while inserting synced task %q: %w", task.GoogleTaskID, err)
	}
	task.ID = id
	return nil
}

// GetTask fetches a task by document ID.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	snap, err := s.client.Collection(tasksCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("while fetching task %q: %w", id, err)
	}

	task := &models.Task{}
	if err := snap.DataTo(task); err != nil {
		return nil, fmt.Errorf("while unmarshaling task %q: %w", id, err)
	}
	task.ID = snap.Ref.ID
	return task, nil
}

// TaskFilter narrows ListTasksByUser. Nil fields are ignored.
type TaskFilter struct {
	ListID    string
	Completed *bool
}

// ListTasksByUser returns a user's tasks, optionally filtered by list
// and completion state.
func (s *Store) ListTasksByUser(ctx context.Context, uid string, filter TaskFilter) ([]*models.Task, error) {
	q := s.client.Collection(tasksCollection).Where("userId", "==", uid)
	if filter.ListID != "" {
		q = q.Where("listId", "==", filter.ListID)
	}
	if filter.Completed != nil {
		q = q.Where("completed", "==", *filter.Completed)
	}
	return s.collectTasks(ctx, q.Documents(ctx), "user "+uid)
}

// ListTasksByList returns every task in a list regardless of owner. Used
// by the read-only shared-list view.
func (s *Store) ListTasksByList(ctx context.Context, listID string) ([]*models.Task, error) {
	q := s.client.Collection(tasksCollection).Where("listId", "==", listID)
	return s.collectTasks(ctx, q.Documents(ctx), "list "+listID)
}

// ListIncompleteTasksWithDueDate returns every incomplete task across all
// users that has a due date set. The batch notifiers scan this set once
// per run and apply their time-window checks in memory.
func (s *Store) ListIncompleteTasksWithDueDate(ctx context.Context) ([]*models.Task, error) {
	q := s.client.Collection(tasksCollection).
		Where("completed", "==", false).
		Where("dueDate", "!=", "")
	return s.collectTasks(ctx, q.Documents(ctx), "incomplete scan")
}

func (s *Store) collectTasks(ctx context.Context, iter *firestore.DocumentIterator, scope string) ([]*models.Task, error) {
	defer iter.Stop()

	var tasks []*models.Task
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while listing tasks (%s): %w", scope, err)
		}

		task := &models.Task{}
		if err := snap.DataTo(task); err != nil {
			return nil, fmt.Errorf("while unmarshaling task %q: %w", snap.Ref.ID, err)
		}
		task.ID = snap.Ref.ID
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// TaskUpdate carries the optional fields a task PUT may change.
// Nil fields are left untouched. DueDate must already be normalized to
// the canonical civil date; an empty string clears it.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *string
	Completed   *bool
	ListID      *string
}

// UpdateTask applies the given field updates and bumps updatedAt.
func (s *Store) UpdateTask(ctx context.Context, id string, upd TaskUpdate) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: time.Now().UTC()}}
	if upd.Title != nil {
		updates = append(updates, firestore.Update{Path: "title", Value: *upd.Title})
	}
	if upd.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *upd.Description})
	}
	if upd.DueDate != nil {
		updates = append(updates, firestore.Update{Path: "dueDate", Value: *upd.DueDate})
	}
	if upd.Completed != nil {
		updates = append(updates, firestore.Update{Path: "completed", Value: *upd.Completed})
	}
	if upd.ListID != nil {
		updates = append(updates, firestore.Update{Path: "listId", Value: *upd.ListID})
	}

	return s.updateTaskFields(ctx, id, updates)
}

func (s *Store) updateTaskFields(ctx context.Context, id string, updates []firestore.Update) error {
	_, err := s.client.Collection(tasksCollection).Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("while updating task %q: %w", id, err)
	}
	return nil
}

// DeleteTask removes a task document.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	_, err := s.client.Collection(tasksCollection).Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("while deleting task %q: %w", id, err)
	}
	return nil
}

// MarkOverdueNotified records that the overdue notifier has emailed about
// this task, so subsequent runs skip it.
func (s *Store) MarkOverdueNotified(ctx context.Context, id string, when time.Time) error {
	return s.updateTaskFields(ctx, id, []firestore.Update{
		{Path: "overdueNotifiedAt", Value: when.UTC()},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
}

// MarkDueSoonNotified records that the due-soon notifier has emailed about
// this task.
func (s *Store) MarkDueSoonNotified(ctx context.Context, id string, when time.Time) error {
	return s.updateTaskFields(ctx, id, []firestore.Update{
		{Path: "dueSoonNotifiedAt", Value: when.UTC()},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
}

// SetTaskCalendarEvent links a task to the Google Calendar event created
// for it during a calendar push.
func (s *Store) SetTaskCalendarEvent(ctx context.Context, id, eventID string) error {
	return s.updateTaskFields(ctx, id, []firestore.Update{
		{Path: "calendarEventId", Value: eventID},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
}
