package services

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/testutil"
	"github.com/teccUI/inteliTASK/pkg/config"
)

func testCalendarService(t *testing.T, db CalendarStore, states StateStore) *CalendarService {
	t.Helper()
	return NewCalendarService(&config.OAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/api/v1/calendar/callback",
	}, db, states)
}

func TestCalendarBeginAuth(t *testing.T) {
	ctx := context.Background()

	mr, cleanup := testutil.SetupMiniRedis(t)
	defer cleanup()
	redisDB := testutil.NewTestRedisDB(t, mr)
	defer redisDB.Close()

	svc := testCalendarService(t, testutil.NewMemStore(), redisDB)

	authURL, err := svc.BeginAuth(ctx, "u1")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(authURL, "https://accounts.google.com/"))
	assert.Equal(t, "test-client-id", parsed.Query().Get("client_id"))
	assert.Equal(t, "offline", parsed.Query().Get("access_type"))
	assert.Contains(t, parsed.Query().Get("scope"), "calendar.events")

	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	// The state nonce maps back to the user and is single-use.
	uid, err := redisDB.ConsumeOAuthState(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	_, err = redisDB.ConsumeOAuthState(ctx, state)
	assert.Error(t, err)
}

func TestCalendarStatus(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemStore()

	disconnected := testutil.TestUserWithUID("u1")
	db.SeedUser(disconnected)

	connected := testutil.TestUserWithUID("u2")
	connected.GoogleTokens = &models.GoogleTokens{
		AccessToken:  "at",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(time.Hour),
	}
	db.SeedUser(connected)

	svc := testCalendarService(t, db, nil)

	ok, err := svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Status(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCalendarTokenSource(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewMemStore()

	db.SeedUser(testutil.TestUserWithUID("u1"))

	connected := testutil.TestUserWithUID("u2")
	connected.GoogleTokens = &models.GoogleTokens{
		AccessToken:  "stored-access-token",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(time.Hour),
	}
	db.SeedUser(connected)

	svc := testCalendarService(t, db, nil)

	t.Run("not connected", func(t *testing.T) {
		_, err := svc.TokenSource(ctx, "u1")
		assert.ErrorIs(t, err, ErrCalendarNotConnected)
	})

	t.Run("valid stored token is reused without refresh", func(t *testing.T) {
		ts, err := svc.TokenSource(ctx, "u2")
		require.NoError(t, err)

		token, err := ts.Token()
		require.NoError(t, err)
		assert.Equal(t, "stored-access-token", token.AccessToken)
	})
}
