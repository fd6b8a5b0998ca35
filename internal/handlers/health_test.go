package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teccUI/inteliTASK/internal/testutil"
	"github.com/teccUI/inteliTASK/pkg/config"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	return f.err
}

func healthConfig() *config.Config {
	cfg := &config.Config{}
	cfg.OAuth.ClientID = "client-id"
	cfg.OAuth.ClientSecret = "secret"
	cfg.Firebase.ProjectID = "project"
	return cfg
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(&fakePinger{}, &fakePinger{}, healthConfig())

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	testutil.AssertStatusCode(t, rec, http.StatusOK)

	var resp HealthResponse
	testutil.ParseJSONResponse(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
}

func TestReady(t *testing.T) {
	t.Run("all dependencies healthy", func(t *testing.T) {
		h := NewHealthHandler(&fakePinger{}, &fakePinger{}, healthConfig())

		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)

		var resp HealthResponse
		testutil.ParseJSONResponse(t, rec, &resp)
		assert.Equal(t, "healthy", resp.Services["firestore"])
		assert.Equal(t, "healthy", resp.Services["redis"])
	})

	t.Run("degraded when redis is down", func(t *testing.T) {
		h := NewHealthHandler(&fakePinger{}, &fakePinger{err: errors.New("connection refused")}, healthConfig())

		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		testutil.AssertStatusCode(t, rec, http.StatusServiceUnavailable)

		var resp HealthResponse
		testutil.ParseJSONResponse(t, rec, &resp)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unhealthy", resp.Services["redis"])
	})
}

func TestIntegrationsTest(t *testing.T) {
	cfg := healthConfig()
	// SendGrid deliberately unconfigured.
	h := NewHealthHandler(&fakePinger{}, &fakePinger{}, cfg)

	rec := httptest.NewRecorder()
	h.IntegrationsTest(rec, httptest.NewRequest(http.MethodPost, "/api/v1/integrations/test", nil))

	testutil.AssertStatusCode(t, rec, http.StatusOK)

	var resp struct {
		Integrations map[string]string `json:"integrations"`
	}
	testutil.ParseJSONResponse(t, rec, &resp)
	assert.Equal(t, "ok", resp.Integrations["firestore"])
	assert.Equal(t, "configured", resp.Integrations["googleOAuth"])
	assert.Equal(t, "configured", resp.Integrations["firebaseMessaging"])
	assert.Equal(t, "not_configured", resp.Integrations["sendgrid"])
}
