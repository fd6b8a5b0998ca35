package services

import (
	"context"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/internal/middleware"
	"github.com/teccUI/inteliTASK/internal/models"
)

// FCMClient is the slice of the Firebase messaging client the push
// service uses. Narrowed to an interface so tests can substitute a fake.
type FCMClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// PushStore is the store surface the push service needs.
type PushStore interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	RemoveFCMTokens(ctx context.Context, uid string, tokens []string) error
}

// PushService delivers push notifications to all of a user's registered
// devices through Firebase Cloud Messaging. Tokens that FCM reports as
// unregistered are pruned from the user document so they are never
// retried.
type PushService struct {
	fcm FCMClient
	db  PushStore
}

// NewPushService creates a push service over the given FCM client.
func NewPushService(fcm FCMClient, db PushStore) *PushService {
	return &PushService{
		fcm: fcm,
		db:  db,
	}
}

// staleToken reports whether an FCM send error means the device token is
// dead and should be removed. Swappable in tests because the messaging
// package's error types cannot be constructed outside Firebase.
var staleToken = func(err error) bool {
	return messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err)
}

// PushResult summarizes one multicast delivery.
type PushResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Pruned int `json:"pruned"`
}

// SendToUser sends a notification to every device the user has
// registered. Respects the user's push preference: if push is disabled
// or no devices are registered, nothing is sent and the result is empty.
func (s *PushService) SendToUser(ctx context.Context, uid, title, body string, data map[string]string) (*PushResult, error) {
	user, err := s.db.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	result := &PushResult{}

	if user.Settings != nil && !user.Settings.Notifications.Push {
		middleware.IncrementNotificationSent("push", "skipped")
		return result, nil
	}
	if len(user.FCMTokens) == 0 {
		middleware.IncrementNotificationSent("push", "skipped")
		return result, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: user.FCMTokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	start := time.Now()
	batch, err := s.fcm.SendEachForMulticast(ctx, message)
	if err != nil {
		middleware.RecordExternalCall("fcm", "error", time.Since(start))
		middleware.IncrementNotificationSent("push", "failure")
		return nil, err
	}
	middleware.RecordExternalCall("fcm", "success", time.Since(start))

	result.Sent = batch.SuccessCount
	result.Failed = batch.FailureCount

	var stale []string
	for i, resp := range batch.Responses {
		if resp.Success || resp.Error == nil {
			continue
		}
		if staleToken(resp.Error) {
			stale = append(stale, user.FCMTokens[i])
		}
	}

	if len(stale) > 0 {
		if err := s.db.RemoveFCMTokens(ctx, uid, stale); err != nil {
			log.Warn().Err(err).Str("user_id", uid).Msg("Failed to prune stale fcm tokens")
		} else {
			result.Pruned = len(stale)
			log.Info().Str("user_id", uid).Int("pruned", len(stale)).Msg("Pruned stale fcm tokens")
		}
	}

	if result.Sent > 0 {
		middleware.IncrementNotificationSent("push", "success")
	} else if result.Failed > 0 {
		middleware.IncrementNotificationSent("push", "failure")
	}

	return result, nil
}
