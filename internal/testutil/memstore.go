package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/store"
)

// MemStore is an in-memory stand-in for the Firestore store. It
// implements the same method set with the same sentinel errors, so
// handler and service tests can run without an emulator.
type MemStore struct {
	mu        sync.Mutex
	users     map[string]*models.User
	lists     map[string]*models.TaskList
	tasks     map[string]*models.Task
	syncedIDs map[string]string // (uid+googleTaskId) -> task doc ID
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:     make(map[string]*models.User),
		lists:     make(map[string]*models.TaskList),
		tasks:     make(map[string]*models.Task),
		syncedIDs: make(map[string]string),
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.Settings != nil {
		s := *u.Settings
		c.Settings = &s
	}
	if u.GoogleTokens != nil {
		t := *u.GoogleTokens
		c.GoogleTokens = &t
	}
	c.FCMTokens = append([]string(nil), u.FCMTokens...)
	return &c
}

func cloneTask(t *models.Task) *models.Task {
	c := *t
	return &c
}

// SeedUser inserts a user directly, bypassing upsert semantics.
func (m *MemStore) SeedUser(user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UID] = cloneUser(user)
}

// SeedList inserts a task list directly.
func (m *MemStore) SeedList(list *models.TaskList) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *list
	m.lists[list.ID] = &c
}

// SeedTask inserts a task directly.
func (m *MemStore) SeedTask(task *models.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = cloneTask(task)
}

func (m *MemStore) UpsertUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.users[user.UID]; ok {
		existing.Email = user.Email
		existing.Name = user.Name
		existing.Avatar = user.Avatar
		existing.UpdatedAt = now
		return nil
	}

	c := cloneUser(user)
	c.CreatedAt = now
	c.UpdatedAt = now
	m.users[user.UID] = c
	return nil
}

func (m *MemStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneUser(user), nil
}

func (m *MemStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UID < users[j].UID })
	return users, nil
}

func (m *MemStore) UpdateUserSettings(ctx context.Context, uid string, settings *models.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[uid]
	if !ok {
		return store.ErrNotFound
	}
	s := *settings
	user.Settings = &s
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStore) SaveGoogleTokens(ctx context.Context, uid string, tokens *models.GoogleTokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[uid]
	if !ok {
		return store.ErrNotFound
	}
	t := *tokens
	user.GoogleTokens = &t
	if user.Settings != nil {
		user.Settings.Integrations.GoogleCalendar = true
	}
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStore) AddFCMToken(ctx context.Context, uid, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[uid]
	if !ok {
		return store.ErrNotFound
	}
	for _, existing := range user.FCMTokens {
		if existing == token {
			return nil
		}
	}
	user.FCMTokens = append(user.FCMTokens, token)
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStore) RemoveFCMTokens(ctx context.Context, uid string, tokens []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[uid]
	if !ok {
		return store.ErrNotFound
	}

	remove := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		remove[t] = true
	}

	kept := user.FCMTokens[:0]
	for _, t := range user.FCMTokens {
		if !remove[t] {
			kept = append(kept, t)
		}
	}
	user.FCMTokens = kept
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStore) CreateTaskList(ctx context.Context, list *models.TaskList) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	list.ID = uuid.New().String()
	list.CreatedAt = now
	list.UpdatedAt = now

	c := *list
	m.lists[list.ID] = &c
	return nil
}

func (m *MemStore) GetTaskList(ctx context.Context, id string) (*models.TaskList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, ok := m.lists[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *list
	return &c, nil
}

func (m *MemStore) ListTaskListsByUser(ctx context.Context, uid string) ([]*models.TaskList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lists []*models.TaskList
	for _, list := range m.lists {
		if list.UserID == uid {
			c := *list
			lists = append(lists, &c)
		}
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].ID < lists[j].ID })
	return lists, nil
}

func (m *MemStore) UpdateTaskList(ctx context.Context, id string, upd store.TaskListUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, ok := m.lists[id]
	if !ok {
		return store.ErrNotFound
	}
	if upd.Name != nil {
		list.Name = *upd.Name
	}
	if upd.Description != nil {
		list.Description = *upd.Description
	}
	if upd.Color != nil {
		list.Color = *upd.Color
	}
	list.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStore) DeleteTaskList(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.lists, id)
	for taskID, task := range m.tasks {
		if task.ListID == id {
			delete(m.tasks, taskID)
		}
	}
	return nil
}

func (m *MemStore) CreateTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	task.ID = uuid.New().String()
	task.CreatedAt = now
	task.UpdatedAt = now

	m.tasks[task.ID] = cloneTask(task)
	return nil
}

func (m *MemStore) CreateSyncedTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := task.UserID + "\x00" + task.GoogleTaskID
	if _, ok := m.syncedIDs[key]; ok {
		return store.ErrAlreadyExists
	}

	now := time.Now().UTC()
	task.ID = uuid.New().String()
	task.CreatedAt = now
	task.UpdatedAt = now

	m.tasks[task.ID] = cloneTask(task)
	m.syncedIDs[key] = task.ID
	return nil
}

func (m *MemStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTask(task), nil
}

func (m *MemStore) ListTasksByUser(ctx context.Context, uid string, filter store.TaskFilter) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tasks []*models.Task
	for _, task := range m.tasks {
		if task.UserID != uid {
			continue
		}
		if filter.ListID != "" && task.ListID != filter.ListID {
			continue
		}
		if filter.Completed != nil && task.Completed != *filter.Completed {
			continue
		}
		tasks = append(tasks, cloneTask(task))
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (m *MemStore) ListTasksByList(ctx context.Context, listID string) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tasks []*models.Task
	for _, task := range m.tasks {
		if task.ListID == listID {
			tasks = append(tasks, cloneTask(task))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (m *MemStore) ListIncompleteTasksWithDueDate(ctx context.Context) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tasks []*models.Task
	for _, task := range m.tasks {
		if !task.Completed && task.DueDate != "" {
			tasks = append(tasks, cloneTask(task))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (m *MemStore) UpdateTask(ctx context.Context, id string, upd store.TaskUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	if upd.Title != nil {
		task.Title = *upd.Title
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.DueDate != nil {
		task.DueDate = *upd.DueDate
	}
	if upd.Completed != nil {
		task.Completed = *upd.Completed
	}
	if upd.ListID != nil {
		task.ListID = *upd.ListID
	}
	task.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStore) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tasks, id)
	return nil
}

func (m *MemStore) MarkOverdueNotified(ctx context.Context, id string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	task.OverdueNotified = when.UTC()
	return nil
}

func (m *MemStore) MarkDueSoonNotified(ctx context.Context, id string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	task.DueSoonNotified = when.UTC()
	return nil
}

func (m *MemStore) SetTaskCalendarEvent(ctx context.Context, id, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	task.CalendarEventID = eventID
	return nil
}
