// Package services provides the business logic between handlers and the
// store: Google Calendar/Tasks synchronization, push and email
// notification delivery, scheduled notifiers, and analytics computation.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teccUI/inteliTASK/internal/middleware"
	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/store"
	"github.com/teccUI/inteliTASK/pkg/config"
)

// ErrCalendarNotConnected indicates the user has no stored Google
// credentials, so sync operations cannot run.
var ErrCalendarNotConnected = errors.New("google calendar is not connected")

// CalendarStore is the store surface the calendar service needs.
type CalendarStore interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	SaveGoogleTokens(ctx context.Context, uid string, tokens *models.GoogleTokens) error
	ListTasksByUser(ctx context.Context, uid string, filter store.TaskFilter) ([]*models.Task, error)
	SetTaskCalendarEvent(ctx context.Context, id, eventID string) error
}

// StateStore holds short-lived OAuth state nonces between the connect
// redirect and the callback.
type StateStore interface {
	SetOAuthState(ctx context.Context, state, userID string, expiry time.Duration) error
	ConsumeOAuthState(ctx context.Context, state string) (string, error)
}

// CalendarService handles the Google Calendar integration: the OAuth 2.0
// connect flow, token persistence and refresh, and pushing tasks with due
// dates into the user's primary calendar as all-day events.
type CalendarService struct {
	config *oauth2.Config
	db     CalendarStore
	states StateStore
}

// NewCalendarService creates a calendar service configured for Google.
// Offline access is requested so that a refresh token is issued; without
// it the integration would break as soon as the first access token
// expired.
func NewCalendarService(cfg *config.OAuthConfig, db CalendarStore, states StateStore) *CalendarService {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			calendar.CalendarEventsScope,
			"https://www.googleapis.com/auth/tasks.readonly",
		},
		Endpoint: google.Endpoint,
	}

	return &CalendarService{
		config: oauthConfig,
		db:     db,
		states: states,
	}
}

// BeginAuth starts the connect flow for a user. It stores a single-use
// state nonce bound to the user and returns the Google consent URL to
// redirect to.
func (s *CalendarService) BeginAuth(ctx context.Context, uid string) (string, error) {
	state := uuid.New().String()
	if err := s.states.SetOAuthState(ctx, state, uid, 10*time.Minute); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	// ApprovalForce guarantees a refresh token even on re-consent.
	url := s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return url, nil
}

// CompleteAuth finishes the connect flow: it validates and consumes the
// state nonce, exchanges the authorization code, and persists the
// resulting credentials on the user document.
//
// Returns the user ID the flow belongs to.
func (s *CalendarService) CompleteAuth(ctx context.Context, state, code string) (string, error) {
	uid, err := s.states.ConsumeOAuthState(ctx, state)
	if err != nil {
		return "", fmt.Errorf("invalid oauth state: %w", err)
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("Failed to exchange authorization code")
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}

	tokens := &models.GoogleTokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if err := s.db.SaveGoogleTokens(ctx, uid, tokens); err != nil {
		return "", fmt.Errorf("failed to save google tokens: %w", err)
	}

	log.Info().Str("user_id", uid).Msg("Google Calendar connected")
	return uid, nil
}

// Status reports whether the user has a working Google connection.
func (s *CalendarService) Status(ctx context.Context, uid string) (bool, error) {
	user, err := s.db.GetUser(ctx, uid)
	if err != nil {
		return false, err
	}
	return user.GoogleTokens != nil && user.GoogleTokens.RefreshToken != "", nil
}

// TokenSource builds a self-refreshing token source from the user's
// stored credentials. Refreshed access tokens are written back to
// Firestore so the stored expiry stays accurate.
func (s *CalendarService) TokenSource(ctx context.Context, uid string) (oauth2.TokenSource, error) {
	user, err := s.db.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user.GoogleTokens == nil || user.GoogleTokens.RefreshToken == "" {
		return nil, ErrCalendarNotConnected
	}

	stored := &oauth2.Token{
		AccessToken:  user.GoogleTokens.AccessToken,
		RefreshToken: user.GoogleTokens.RefreshToken,
		Expiry:       user.GoogleTokens.Expiry,
	}

	return &persistingTokenSource{
		uid:      uid,
		db:       s.db,
		delegate: s.config.TokenSource(ctx, stored),
		last:     stored,
	}, nil
}

// persistingTokenSource wraps an oauth2.TokenSource and writes refreshed
// tokens back to the user document.
type persistingTokenSource struct {
	uid      string
	db       CalendarStore
	delegate oauth2.TokenSource
	last     *oauth2.Token
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.delegate.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != p.last.AccessToken {
		refresh := token.RefreshToken
		if refresh == "" {
			refresh = p.last.RefreshToken
		}
		tokens := &models.GoogleTokens{
			AccessToken:  token.AccessToken,
			RefreshToken: refresh,
			Expiry:       token.Expiry,
		}
		if err := p.db.SaveGoogleTokens(context.Background(), p.uid, tokens); err != nil {
			log.Warn().Err(err).Str("user_id", p.uid).Msg("Failed to persist refreshed token")
		}
		p.last = token
	}

	return token, nil
}

// SyncResult summarizes one sync run in either direction.
type SyncResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// PushToCalendar exports the user's incomplete tasks with due dates to
// their primary Google Calendar as all-day events. Tasks already linked
// to an event are skipped, so repeated pushes do not duplicate events.
func (s *CalendarService) PushToCalendar(ctx context.Context, uid string) (*SyncResult, error) {
	ts, err := s.TokenSource(ctx, uid)
	if err != nil {
		return nil, err
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar client: %w", err)
	}

	incomplete := false
	tasks, err := s.db.ListTasksByUser(ctx, uid, store.TaskFilter{Completed: &incomplete})
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	for _, task := range tasks {
		if task.DueDate == "" {
			continue
		}
		if task.CalendarEventID != "" {
			result.Skipped++
			continue
		}

		event := &calendar.Event{
			Summary:     task.Title,
			Description: task.Description,
			Start:       &calendar.EventDateTime{Date: task.DueDate},
			End:         &calendar.EventDateTime{Date: task.DueDate},
		}

		start := time.Now()
		created, err := svc.Events.Insert("primary", event).Context(ctx).Do()
		if err != nil {
			middleware.RecordExternalCall("google", "error", time.Since(start))
			log.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to create calendar event")
			result.Failed++
			continue
		}
		middleware.RecordExternalCall("google", "success", time.Since(start))

		if err := s.db.SetTaskCalendarEvent(ctx, task.ID, created.Id); err != nil {
			log.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to link calendar event")
			result.Failed++
			continue
		}
		result.Inserted++
	}

	outcome := "success"
	if result.Failed > 0 {
		outcome = "failure"
	}
	middleware.IncrementCalendarSync("push", outcome)

	log.Info().
		Str("user_id", uid).
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Calendar push completed")

	return result, nil
}
