// Package models defines the core domain models for the application.
// These models represent the document shapes stored in Firestore for
// users, task lists, and tasks, plus the derived analytics types.
//
// All models carry both JSON and Firestore struct tags. Fields that must
// never leak into API responses (OAuth tokens, FCM tokens) are marked with
// `json:"-"`.
package models

import "time"

// User represents a registered user document in the "users" collection.
// Users are keyed by their external identity UID (Firebase Authentication)
// and created on first sign-in.
//
// GoogleTokens is only present once the user has connected Google Calendar;
// FCMTokens accumulates one entry per registered device.
type User struct {
	UID          string         `json:"uid" firestore:"uid"`
	Email        string         `json:"email" firestore:"email"`
	Name         string         `json:"name" firestore:"name"`
	Avatar       string         `json:"avatar,omitempty" firestore:"avatar"`
	FCMTokens    []string       `json:"-" firestore:"fcmTokens"`
	GoogleTokens *GoogleTokens  `json:"-" firestore:"googleCalendarTokens"`
	Settings     *UserSettings  `json:"settings,omitempty" firestore:"settings"`
	CreatedAt    time.Time      `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt" firestore:"updatedAt"`
}

// GoogleTokens holds the stored OAuth 2.0 credentials for the Google
// Calendar/Tasks integration. Never exposed in API responses.
type GoogleTokens struct {
	AccessToken  string    `json:"-" firestore:"accessToken"`
	RefreshToken string    `json:"-" firestore:"refreshToken"`
	Expiry       time.Time `json:"-" firestore:"expiryDate"`
}

// UserSettings groups the per-user preference toggles.
type UserSettings struct {
	Notifications NotificationSettings `json:"notifications" firestore:"notifications"`
	Appearance    AppearanceSettings   `json:"appearance" firestore:"appearance"`
	Privacy       PrivacySettings      `json:"privacy" firestore:"privacy"`
	Integrations  IntegrationSettings  `json:"integrations" firestore:"integrations"`
}

// NotificationSettings controls which notification channels are active
// for a user. Batch notifiers consult Email before sending.
type NotificationSettings struct {
	Email         bool `json:"email" firestore:"email"`
	Push          bool `json:"push" firestore:"push"`
	TaskReminders bool `json:"taskReminders" firestore:"taskReminders"`
	WeeklyDigest  bool `json:"weeklyDigest" firestore:"weeklyDigest"`
}

// AppearanceSettings holds UI preferences persisted for the client.
type AppearanceSettings struct {
	Theme    string `json:"theme" firestore:"theme"`
	Language string `json:"language" firestore:"language"`
}

// PrivacySettings holds privacy-related toggles.
type PrivacySettings struct {
	ShareAnalytics bool `json:"shareAnalytics" firestore:"shareAnalytics"`
	PublicProfile  bool `json:"publicProfile" firestore:"publicProfile"`
}

// IntegrationSettings records which third-party integrations are enabled.
type IntegrationSettings struct {
	GoogleCalendar bool `json:"googleCalendar" firestore:"googleCalendar"`
	EmailSync      bool `json:"emailSync" firestore:"emailSync"`
}

// DefaultSettings returns the settings applied to users who have never
// saved preferences. Matches the defaults the web client assumes.
func DefaultSettings() *UserSettings {
	return &UserSettings{
		Notifications: NotificationSettings{
			Email:         true,
			Push:          false,
			TaskReminders: true,
			WeeklyDigest:  true,
		},
		Appearance: AppearanceSettings{
			Theme:    "light",
			Language: "en",
		},
		Privacy: PrivacySettings{
			ShareAnalytics: false,
			PublicProfile:  false,
		},
		Integrations: IntegrationSettings{
			GoogleCalendar: false,
			EmailSync:      false,
		},
	}
}

// TaskList represents a named list of tasks in the "taskLists" collection.
type TaskList struct {
	ID          string    `json:"id" firestore:"-"`
	Name        string    `json:"name" firestore:"name"`
	Description string    `json:"description,omitempty" firestore:"description"`
	Color       string    `json:"color,omitempty" firestore:"color"`
	UserID      string    `json:"userId" firestore:"userId"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Task represents a single task document in the "tasks" collection.
//
// DueDate is a canonical UTC civil date string ("2006-01-02"); it is
// normalized at the API boundary by NormalizeDueDate so that date
// comparisons are reliable regardless of the client's input format.
//
// GoogleTaskID is set only for tasks pulled from Google Tasks;
// CalendarEventID only for tasks pushed to Google Calendar. The
// notified-at markers record when a batch notifier last emailed about
// this task, preventing duplicate sends on repeated runs.
type Task struct {
	ID               string    `json:"id" firestore:"-"`
	Title            string    `json:"title" firestore:"title"`
	Description      string    `json:"description,omitempty" firestore:"description"`
	DueDate          string    `json:"dueDate,omitempty" firestore:"dueDate"`
	Completed        bool      `json:"completed" firestore:"completed"`
	ListID           string    `json:"listId" firestore:"listId"`
	UserID           string    `json:"userId,omitempty" firestore:"userId"`
	GoogleTaskID     string    `json:"googleTaskId,omitempty" firestore:"googleTaskId"`
	CalendarEventID  string    `json:"calendarEventId,omitempty" firestore:"calendarEventId"`
	OverdueNotified  time.Time `json:"-" firestore:"overdueNotifiedAt"`
	DueSoonNotified  time.Time `json:"-" firestore:"dueSoonNotifiedAt"`
	CreatedAt        time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// SharedTask is the sanitized task shape returned by the shared-list view.
// It mirrors Task but omits the owner, so the document never carries a
// userId into a publicly shareable response.
type SharedTask struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     string    `json:"dueDate,omitempty"`
	Completed   bool      `json:"completed"`
	ListID      string    `json:"listId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Shared returns the sanitized view of t for the read-only shared-list
// endpoint.
func (t *Task) Shared() SharedTask {
	return SharedTask{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Completed:   t.Completed,
		ListID:      t.ListID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// AnalyticsOverview summarizes a user's tasks at a point in time.
// The invariant CompletedTasks + PendingTasks == TotalTasks always holds;
// CompletionRate is a rounded percentage, 0 when the user has no tasks.
type AnalyticsOverview struct {
	TotalTasks     int `json:"totalTasks"`
	CompletedTasks int `json:"completedTasks"`
	PendingTasks   int `json:"pendingTasks"`
	OverdueTasks   int `json:"overdueTasks"`
	CompletionRate int `json:"completionRate"`
}

// AnalyticsPeriod summarizes activity within the requested period.
type AnalyticsPeriod struct {
	TasksCreated   int    `json:"tasksCreated"`
	TasksCompleted int    `json:"tasksCompleted"`
	Period         string `json:"period"`
}

// TrendPoint is one day's completion count in the analytics trend.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AnalyticsReport is the full analytics response for a user and period.
type AnalyticsReport struct {
	Overview AnalyticsOverview `json:"overview"`
	Period   AnalyticsPeriod   `json:"period"`
	Trend    []TrendPoint      `json:"trend"`
}
