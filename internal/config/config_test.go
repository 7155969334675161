package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", cfg.BackendURL())
	assert.Equal(t, "file", cfg.StateBackend)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, "multipart", cfg.SubmitEncoding)
	assert.Equal(t, "type", cfg.DraftKeying)
	assert.True(t, cfg.SurfaceFetchErrors)
	assert.False(t, cfg.LegacyDecorUpdatePath)
	assert.Zero(t, cfg.RequestTimeout)
}

func TestLoad_EnvOverridesFileAndSelectsProdBackend(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	file := filepath.Join(dir, "rentadmin.yaml")
	require.NoError(t, os.WriteFile(file, []byte("backend_prod: https://file.example\npage_size: 5\nrequest_timeout: 3s\n"), 0o600))
	t.Setenv("RENTADMIN_APP_ENV", "production")
	t.Setenv("RENTADMIN_PAGE_SIZE", "20")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://file.example", cfg.BackendURL())
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("RENTADMIN_STATE_BACKEND", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RENTADMIN_STATE_BACKEND=memory\n"), 0o600))
	os.Unsetenv("RENTADMIN_STATE_BACKEND")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StateBackend)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	chdirTemp(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	for key, value := range map[string]string{
		"RENTADMIN_STATE_BACKEND":   "sqlite",
		"RENTADMIN_SUBMIT_ENCODING": "xml",
		"RENTADMIN_DRAFT_KEYING":    "user",
		"RENTADMIN_PAGE_SIZE":       "0",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	chdirTemp(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
