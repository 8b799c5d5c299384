package handler

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Alwanly/detect-probe/internal/server/probe/repository"
	"github.com/Alwanly/detect-probe/pkg/logger"
	"github.com/Alwanly/detect-probe/pkg/wrapper"
)

type RegistrationStatus string

const (
	StatusRegistering        RegistrationStatus = "registering"
	StatusRegistered         RegistrationStatus = "registered"
	StatusRegistrationFailed RegistrationStatus = "registration_failed"
)

type HealthStatus struct {
	mu sync.RWMutex

	Status               RegistrationStatus `json:"status"`
	Name                 string             `json:"name,omitempty"`
	Platform             string             `json:"dos,omitempty"`
	Version              string             `json:"version,omitempty"`
	StartTime            time.Time          `json:"start_time"`
	RegistrationTime     *time.Time         `json:"registration_time,omitempty"`
	Uptime               string             `json:"uptime"`
	RegistrationError    string             `json:"registration_error,omitempty"`
	RegistrationAttempts int                `json:"registration_attempts"`
}

type Handler struct {
	health *HealthStatus
	repo   repository.IRepository
}

func NewHandler(repo repository.IRepository, name, platform, version string, startTime time.Time) *Handler {
	return &Handler{
		health: &HealthStatus{
			Status:    StatusRegistering,
			Name:      name,
			Platform:  platform,
			Version:   version,
			StartTime: startTime,
		},
		repo: repo,
	}
}

func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/status", h.Status)
}

func (h *Handler) SetRegistered() {
	h.health.mu.Lock()
	defer h.health.mu.Unlock()

	now := time.Now()
	h.health.Status = StatusRegistered
	h.health.RegistrationTime = &now
	h.health.RegistrationError = ""
}

func (h *Handler) SetRegistrationFailed(err error) {
	h.health.mu.Lock()
	defer h.health.mu.Unlock()

	h.health.Status = StatusRegistrationFailed
	if err != nil {
		h.health.RegistrationError = err.Error()
	}
}

func (h *Handler) IncrementAttempts() {
	h.health.mu.Lock()
	defer h.health.mu.Unlock()

	h.health.RegistrationAttempts++
}

func (h *Handler) Health(c *fiber.Ctx) error {
	h.health.mu.RLock()
	response := HealthStatus{
		Status:               h.health.Status,
		Name:                 h.health.Name,
		Platform:             h.health.Platform,
		Version:              h.health.Version,
		StartTime:            h.health.StartTime,
		RegistrationTime:     h.health.RegistrationTime,
		RegistrationError:    h.health.RegistrationError,
		RegistrationAttempts: h.health.RegistrationAttempts,
	}
	h.health.mu.RUnlock()
	response.Uptime = time.Since(response.StartTime).Truncate(time.Second).String()

	statusCode := fiber.StatusOK
	switch response.Status {
	case StatusRegistrationFailed:
		statusCode = fiber.StatusServiceUnavailable
	case StatusRegistering:
		statusCode = fiber.StatusAccepted
	}

	return c.Status(statusCode).JSON(&response)
}

func (h *Handler) Status(c *fiber.Ctx) error {
	state := h.repo.Snapshot()
	logger.AddToContext(c.UserContext(),
		logger.Int64("polls", state.Polls),
		logger.Int64("tasks", state.Tasks),
		logger.Int64("poll_errors", state.PollErrors),
	)
	return wrapper.ResponseSuccess(fiber.StatusOK, state).Send(c)
}
