package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alwanly/detect-probe/pkg/logger"
	"github.com/Alwanly/detect-probe/pkg/wrapper"
)

func TestErrorHandler_UsesFiberCode(t *testing.T) {
	log := logger.NewNop()
	app := fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: ErrorHandler(log)})
	app.Use(CanonicalLoggerMiddleware(log))
	app.Get("/missing", func(c *fiber.Ctx) error {
		logger.AddToContext(c.UserContext(), logger.String("probe", "test"))
		return fiber.NewError(fiber.StatusNotFound, "nothing here")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body wrapper.JSONResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "nothing here", body.Message)
}
