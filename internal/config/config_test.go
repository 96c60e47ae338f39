package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	cfg.Application.AllowUnsafe = true
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsEmptySecretWithoutUnsafe(t *testing.T) {
	cfg := Default()
	cfg.Application.HMACSecret = ""
	cfg.Application.AllowUnsafe = false
	assert.Error(t, cfg.Validate())
}

func TestValidate_AcceptsEmptySecretWhenUnsafeAllowed(t *testing.T) {
	cfg := Default()
	cfg.Application.HMACSecret = ""
	cfg.Application.AllowUnsafe = true
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Application.AllowUnsafe = true
	cfg.Storage.Backend = "ftp"
	assert.Error(t, cfg.Validate())
}

func TestLoad_LayersYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
application:
  host: 127.0.0.1
  port: 9090
  allow_unsafe: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Application.Host)
	assert.Equal(t, 9090, cfg.Application.Port)
	assert.Equal(t, "ffmpeg", cfg.Processor.ToolPath, "unspecified sections retain defaults")
}

func TestLoad_AppliesEnvOverrides(t *testing.T) {
	t.Setenv("APP_APPLICATION__PORT", "7070")
	t.Setenv("APP_APPLICATION__ALLOW_UNSAFE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Application.Port)
	assert.True(t, cfg.Application.AllowUnsafe)
}
