package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Alwanly/detect-probe/internal/models"
	"github.com/Alwanly/detect-probe/internal/server/probe/repository"
	"github.com/Alwanly/detect-probe/pkg/logger"
	"github.com/Alwanly/detect-probe/pkg/middleware"
)

func newApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	h.RegisterRoutes(app)
	return app
}

func getJSON(t *testing.T, app *fiber.App, path string, out interface{}) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth_RegistrationLifecycle(t *testing.T) {
	h := NewHandler(repository.NewRepository(), "host-1", "linux-x86_64", "1.0.0", time.Now())
	app := newApp(h)

	var body map[string]interface{}
	assert.Equal(t, fiber.StatusAccepted, getJSON(t, app, "/health", &body))
	assert.Equal(t, string(StatusRegistering), body["status"])

	h.IncrementAttempts()
	h.SetRegistrationFailed(errors.New("denied"))
	assert.Equal(t, fiber.StatusServiceUnavailable, getJSON(t, app, "/health", &body))
	assert.Equal(t, "denied", body["registration_error"])
	assert.Equal(t, float64(1), body["registration_attempts"])

	h.SetRegistered()
	assert.Equal(t, fiber.StatusOK, getJSON(t, app, "/health", &body))
	assert.Equal(t, "linux-x86_64", body["dos"])
}

func TestStatus_ReflectsRepository(t *testing.T) {
	repo := repository.NewRepository()
	repo.RecordPoll(time.Now(), models.NoTask(http.StatusOK, models.NoTaskEmpty), nil)
	repo.RecordTask(time.Now(), "abc", models.NewReportedStatus("abc", 100, 101), time.Second)

	app := newApp(NewHandler(repo, "host-1", "linux-x86_64", "1.0.0", time.Now()))

	var body struct {
		Success bool             `json:"success"`
		Data    repository.State `json:"data"`
	}
	assert.Equal(t, fiber.StatusOK, getJSON(t, app, "/status", &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(1), body.Data.Polls)
	require.NotNil(t, body.Data.LastReported)
	assert.Equal(t, "abc:101", body.Data.LastReported.Encode())
}

func TestStatus_CountersReachRequestLine(t *testing.T) {
	repo := repository.NewRepository()
	repo.RecordPoll(time.Now(), models.NoTask(http.StatusOK, models.NoTaskEmpty), nil)
	repo.RecordPoll(time.Now(), models.PollResult{}, errors.New("timeout"))

	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.New(zap.New(core))

	app := fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: middleware.ErrorHandler(log)})
	app.Use(middleware.CanonicalLoggerMiddleware(log))
	NewHandler(repo, "host-1", "linux-x86_64", "1.0.0", time.Now()).RegisterRoutes(app)

	var body map[string]interface{}
	assert.Equal(t, fiber.StatusOK, getJSON(t, app, "/status", &body))

	lines := logs.FilterMessage("http_request").All()
	require.Len(t, lines, 1)
	fields := lines[0].ContextMap()
	assert.Equal(t, "/status", fields["path"])
	assert.Equal(t, int64(2), fields["polls"])
	assert.Equal(t, int64(1), fields["poll_errors"])
	assert.Equal(t, int64(0), fields["tasks"])
}
