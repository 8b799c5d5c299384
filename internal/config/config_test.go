package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProbeConfig_Defaults(t *testing.T) {
	t.Setenv("PRELUDE_API", "")
	t.Setenv("PRELUDE_TOKEN", "tok")
	t.Setenv("PRELUDE_CA", "")
	t.Setenv("PROBE_DOS", "")
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("EXECUTION_TIMEOUT", "")
	t.Setenv("PROBE_WORK_DIR", t.TempDir())

	cfg, err := LoadProbeConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultServiceURL, cfg.ServiceURL)
	assert.Equal(t, 12*time.Hour, cfg.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.ExecutionTimeout)
	assert.NotEmpty(t, cfg.Platform)
	assert.NotEmpty(t, cfg.Name)
	assert.NoError(t, cfg.RequireCredentials())
}

func TestLoadProbeConfig_FromEnv(t *testing.T) {
	t.Setenv("PRELUDE_API", "https://detect.example.com/")
	t.Setenv("PRELUDE_TOKEN", "tok")
	t.Setenv("PRELUDE_CA", "prelude-account-us1-us-east-2.s3.amazonaws.com")
	t.Setenv("PROBE_DOS", "darwin-arm64")
	t.Setenv("POLL_INTERVAL", "60")
	t.Setenv("EXECUTION_TIMEOUT", "0.5")
	t.Setenv("PROBE_WORK_DIR", t.TempDir())

	cfg, err := LoadProbeConfig()
	require.NoError(t, err)

	id := cfg.Identity()
	assert.Equal(t, "https://detect.example.com", id.ServiceURL)
	assert.Equal(t, "tok", id.Token)
	assert.Equal(t, "prelude-account-us1-us-east-2.s3.amazonaws.com", id.TrustedAuthority)
	assert.Equal(t, "darwin-arm64", id.Platform)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.ExecutionTimeout)
}

func TestLoadProbeConfig_Invalid(t *testing.T) {
	t.Setenv("PROBE_WORK_DIR", t.TempDir())

	t.Setenv("PRELUDE_API", "not a url")
	_, err := LoadProbeConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ServiceURL")

	t.Setenv("PRELUDE_API", "https://detect.example.com")
	t.Setenv("POLL_INTERVAL", "soon")
	_, err = LoadProbeConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLL_INTERVAL")

	t.Setenv("POLL_INTERVAL", "0")
	_, err = LoadProbeConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PollInterval")
}

func TestRequireCredentials(t *testing.T) {
	cfg := &ProbeConfig{}
	assert.ErrorIs(t, cfg.RequireCredentials(), ErrMissingCredentials)

	cfg.AccountID, cfg.AccountSecret = "acct", "secret"
	assert.True(t, cfg.CanRegister())
	assert.NoError(t, cfg.RequireCredentials())
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PROBE_TEST_ONLY_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("PROBE_TEST_ONLY_KEY") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("PROBE_TEST_ONLY_KEY"))
}

func TestRetryConfig(t *testing.T) {
	cfg := &ProbeConfig{
		RegistrationMaxRetries:        3,
		RegistrationInitialBackoff:    time.Second,
		RegistrationMaxBackoff:        10 * time.Second,
		RegistrationBackoffMultiplier: 2,
	}
	rc := cfg.RetryConfig()
	assert.Equal(t, 3, rc.MaxRetries)
	assert.True(t, rc.Jitter)
}
