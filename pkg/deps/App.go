package deps

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Alwanly/detect-probe/pkg/logger"
	"github.com/Alwanly/detect-probe/pkg/poll"
)

// App groups the long-lived pieces a command starts and stops together.
// Fiber is nil when the local status server is disabled.
type App struct {
	Fiber  *fiber.App
	Logger *logger.CanonicalLogger
	Poller poll.Poller
}
