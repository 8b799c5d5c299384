package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Alwanly/detect-probe/internal/config"
	"github.com/Alwanly/detect-probe/internal/server/probe/executor"
	probehandler "github.com/Alwanly/detect-probe/internal/server/probe/handler"
	"github.com/Alwanly/detect-probe/internal/server/probe/repository"
	"github.com/Alwanly/detect-probe/internal/server/probe/usecase"
	"github.com/Alwanly/detect-probe/pkg/deps"
	"github.com/Alwanly/detect-probe/pkg/logger"
	"github.com/Alwanly/detect-probe/pkg/middleware"
	"github.com/Alwanly/detect-probe/pkg/poll"
	"github.com/Alwanly/detect-probe/pkg/retry"
)

func loadConfig(log *logger.CanonicalLogger) (*config.ProbeConfig, error) {
	cfg, err := config.LoadProbeConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	log.Info("configuration loaded",
		logger.String(logger.FieldServiceURL, cfg.ServiceURL),
		logger.String(logger.FieldPlatform, cfg.Platform),
		logger.String(logger.FieldAuthority, cfg.TrustedAuthority),
		logger.String(logger.FieldPath, cfg.WorkDir),
		logger.Duration("poll_interval", cfg.PollInterval),
		logger.Duration("execution_timeout", cfg.ExecutionTimeout),
	)
	return cfg, nil
}

// enroll exchanges account credentials for a probe token, retrying with backoff.
func enroll(ctx context.Context, cfg *config.ProbeConfig, log *logger.CanonicalLogger, h *probehandler.Handler) (string, error) {
	client := repository.NewServiceClient(cfg.Identity(), cfg.RequestTimeout, log.Component("registration"))
	uc := usecase.NewUseCase(client, nil, nil, nil, cfg.WorkDir, log)

	var token string
	err := retry.WithExponentialBackoff(ctx, cfg.RetryConfig(), func(c context.Context) error {
		if h != nil {
			h.IncrementAttempts()
		}
		t, err := uc.Register(c, cfg.AccountID, cfg.AccountSecret, cfg.Name)
		if err != nil {
			log.WithError(err).Warn("registration attempt failed")
			return err
		}
		token = t
		return nil
	})
	if err != nil {
		if h != nil {
			h.SetRegistrationFailed(err)
		}
		return "", err
	}

	if h != nil {
		h.SetRegistered()
	}
	log.Info("probe registered", logger.String("name", cfg.Name))
	return token, nil
}

func registerProbe(ctx context.Context, out io.Writer) error {
	log, err := logger.NewLoggerFromEnv("probe")
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.LoadProbeConfig()
	if err != nil {
		return err
	}
	if !cfg.CanRegister() {
		return config.ErrMissingCredentials
	}

	token, err := enroll(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func runProbe(parent context.Context) error {
	log, err := logger.NewLoggerFromEnv("probe")
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting probe", logger.String("version", version))

	cfg, err := loadConfig(log)
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		return err
	}

	workDir, err := executor.ResolveWorkDir(cfg.WorkDir)
	if err != nil {
		log.WithError(err).Error("working directory unusable")
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	repo := repository.NewRepository()
	h := probehandler.NewHandler(repo, cfg.Name, cfg.Platform, version, time.Now())
	if cfg.Token != "" {
		h.SetRegistered()
	}

	app := &deps.App{
		Logger: log,
		Poller: poll.NewPoller(log.Component("poller"), poll.Config{Interval: cfg.PollInterval}),
	}

	// Bind before any goroutine starts so shutdown always has a listener to close.
	var ln net.Listener
	if cfg.StatusAddr != "" {
		app.Fiber = newStatusApp(h, log)
		if ln, err = net.Listen("tcp", cfg.StatusAddr); err != nil {
			log.WithError(err).Error("failed to bind status server")
			return fmt.Errorf("failed to bind status server: %w", err)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	if app.Fiber != nil {
		g.Go(func() error {
			log.Info("starting status server", logger.String("address", ln.Addr().String()))
			return serveStatus(app.Fiber, ln)
		})
	}

	g.Go(func() error {
		defer cancel()
		return runLoop(gCtx, cfg, app, h, repo, workDir)
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			log.Info("received shutdown signal", logger.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		cancel()
		if err := app.Poller.Stop(); err != nil {
			log.WithError(err).Error("error stopping poller")
		}

		if app.Fiber != nil {
			if err := stopStatus(app.Fiber, ln, 10*time.Second); err != nil {
				log.WithError(err).Error("error during status server shutdown")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("probe stopped with error")
		return err
	}

	log.Info("probe stopped gracefully")
	return nil
}

func newStatusApp(h *probehandler.Handler, log *logger.CanonicalLogger) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: middleware.ErrorHandler(log)})
	app.Use(middleware.CanonicalLoggerMiddleware(log.Component("status")))
	h.RegisterRoutes(app)
	return app
}

// runLoop registers when needed and then polls until ctx ends. When registration
// fails and the status server is up, it keeps serving the failed health state
// until shutdown and then reports the registration error.
func runLoop(ctx context.Context, cfg *config.ProbeConfig, app *deps.App, h *probehandler.Handler, repo repository.IRepository, workDir string) error {
	log := app.Logger

	if cfg.Token == "" {
		token, err := enroll(ctx, cfg, log, h)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if app.Fiber == nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			log.WithError(err).Error("registration failed, serving degraded health until shutdown")
			<-ctx.Done()
			return fmt.Errorf("registration failed: %w", err)
		}
		cfg.Token = token
	}

	client := repository.NewServiceClient(cfg.Identity(), cfg.RequestTimeout, log.Component("transport"))
	preparer := executor.NewPreparer()
	runner := executor.NewRunner(cfg.ExecutionTimeout, log.Component("executor"))
	uc := usecase.NewUseCase(client, repo, preparer, runner, workDir, log.Component("loop"))

	if err := uc.Run(ctx, app.Poller); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func serveStatus(app *fiber.App, ln net.Listener) error {
	if err := app.Listener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

// stopStatus drains a running server and closes ln, so a Listener call that
// has not reached Serve yet returns instead of blocking.
func stopStatus(app *fiber.App, ln net.Listener, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := app.ShutdownWithContext(ctx)
	if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
		err = cerr
	}
	return err
}
