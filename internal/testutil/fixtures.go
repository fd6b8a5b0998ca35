// Package testutil provides common testing utilities, fixtures, and
// helpers for use across all test files in the project.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/teccUI/inteliTASK/internal/models"
)

// TestUser creates a test user with default values and default settings.
func TestUser() *models.User {
	return &models.User{
		UID:       "test-uid-" + uuid.New().String()[:8],
		Email:     "test@example.com",
		Name:      "Test User",
		Avatar:    "https://example.com/avatar.jpg",
		FCMTokens: []string{},
		Settings:  models.DefaultSettings(),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

// TestUserWithUID creates a test user with a specific UID.
func TestUserWithUID(uid string) *models.User {
	user := TestUser()
	user.UID = uid
	return user
}

// TestTaskList creates a test task list owned by the given user.
func TestTaskList(uid string) *models.TaskList {
	return &models.TaskList{
		ID:        uuid.New().String(),
		Name:      "Test List",
		Color:     "#4A90D9",
		UserID:    uid,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

// TestTask creates an incomplete test task in the given list.
func TestTask(uid, listID string) *models.Task {
	return &models.Task{
		ID:        uuid.New().String(),
		Title:     "Test Task",
		ListID:    listID,
		UserID:    uid,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

// TestTaskDue creates an incomplete test task with a due date.
func TestTaskDue(uid, listID, dueDate string) *models.Task {
	task := TestTask(uid, listID)
	task.DueDate = dueDate
	return task
}

// BoolPtr returns a pointer to the given bool.
func BoolPtr(b bool) *bool {
	return &b
}
