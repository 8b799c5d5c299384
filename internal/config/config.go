package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/Alwanly/detect-probe/internal/models"
	"github.com/Alwanly/detect-probe/pkg/retry"
	"github.com/Alwanly/detect-probe/pkg/validator"
)

const (
	DefaultServiceURL = "https://api.preludesecurity.com"
	DefaultEnvFile    = ".env"
)

type ProbeConfig struct {
	ServiceURL       string `validate:"required,url"`
	Token            string
	TrustedAuthority string `validate:"omitempty,hostname_rfc1123"`
	AccountID        string
	AccountSecret    string
	Name             string `validate:"required"`
	Platform         string `validate:"required"`

	PollInterval     time.Duration `validate:"gt=0"`
	ExecutionTimeout time.Duration `validate:"gt=0"`
	RequestTimeout   time.Duration `validate:"gt=0"`
	WorkDir          string        `validate:"required"`
	StatusAddr       string

	// Registration retry configuration
	RegistrationMaxRetries        int           `validate:"gte=-1"`
	RegistrationInitialBackoff    time.Duration `validate:"gt=0"`
	RegistrationMaxBackoff        time.Duration `validate:"gt=0"`
	RegistrationBackoffMultiplier float64       `validate:"gte=1"`
}

var ErrMissingCredentials = errors.New("PRELUDE_TOKEN or PRELUDE_ACCOUNT_ID and PRELUDE_ACCOUNT_SECRET must be set")

// LoadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadProbeConfig reads probe config from environment or returns defaults
func LoadProbeConfig() (*ProbeConfig, error) {
	var err error
	cfg := &ProbeConfig{
		ServiceURL:       strings.TrimSuffix(envOrDefault("PRELUDE_API", DefaultServiceURL), "/"),
		Token:            os.Getenv("PRELUDE_TOKEN"),
		TrustedAuthority: os.Getenv("PRELUDE_CA"),
		AccountID:        os.Getenv("PRELUDE_ACCOUNT_ID"),
		AccountSecret:    os.Getenv("PRELUDE_ACCOUNT_SECRET"),
		Name:             envOrDefault("PROBE_NAME", defaultName()),
		Platform:         envOrDefault("PROBE_DOS", models.Platform(runtime.GOOS, runtime.GOARCH)),
		StatusAddr:       os.Getenv("PROBE_STATUS_ADDR"),
	}

	if cfg.WorkDir, err = defaultWorkDir(); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = envSeconds("POLL_INTERVAL", 43200*time.Second); err != nil {
		return nil, err
	}
	if cfg.ExecutionTimeout, err = envSeconds("EXECUTION_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = envSeconds("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RegistrationMaxRetries, err = envInt("REGISTRATION_MAX_RETRIES", 5); err != nil {
		return nil, err
	}
	if cfg.RegistrationInitialBackoff, err = envSeconds("REGISTRATION_INITIAL_BACKOFF", 1*time.Second); err != nil {
		return nil, err
	}
	if cfg.RegistrationMaxBackoff, err = envSeconds("REGISTRATION_MAX_BACKOFF", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RegistrationBackoffMultiplier, err = envFloat("REGISTRATION_BACKOFF_MULTIPLIER", 2.0); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ProbeConfig) Validate() error {
	if err := validator.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %s", validator.Describe(err))
	}
	return nil
}

// CanRegister reports whether account credentials are available for enrollment.
func (c *ProbeConfig) CanRegister() bool {
	return c.AccountID != "" && c.AccountSecret != ""
}

// RequireCredentials fails when the probe has neither a token nor a way to get one.
func (c *ProbeConfig) RequireCredentials() error {
	if c.Token == "" && !c.CanRegister() {
		return ErrMissingCredentials
	}
	return nil
}

// Identity snapshots the fields the transport needs. Call after registration.
func (c *ProbeConfig) Identity() models.AgentIdentity {
	return models.AgentIdentity{
		ServiceURL:       c.ServiceURL,
		Token:            c.Token,
		TrustedAuthority: c.TrustedAuthority,
		Platform:         c.Platform,
	}
}

func (c *ProbeConfig) RetryConfig() retry.Config {
	return retry.Config{
		MaxRetries:     c.RegistrationMaxRetries,
		InitialBackoff: c.RegistrationInitialBackoff,
		MaxBackoff:     c.RegistrationMaxBackoff,
		Multiplier:     c.RegistrationBackoffMultiplier,
		Jitter:         true,
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envSeconds(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: expected seconds, got %q: %w", key, v, err)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: expected integer, got %q: %w", key, v, err)
	}
	return i, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: expected number, got %q: %w", key, v, err)
	}
	return f, nil
}

func defaultName() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "probe-" + uuid.NewString()
}

func defaultWorkDir() (string, error) {
	if v := os.Getenv("PROBE_WORK_DIR"); v != "" {
		return v, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return wd, nil
}
