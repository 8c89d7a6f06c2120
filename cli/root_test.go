package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/compozy/triggers/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestSetupGlobalConfig(t *testing.T) {
	t.Run("Should load YAML and inject the config into the context", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "triggers.yaml")
		writeFile(t, cfgPath, "server:\n  port: 6100\nruntime:\n  log_level: warn\n")
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set("env-file", ""))
		require.NoError(t, cmd.PersistentFlags().Set("config", cfgPath))

		require.NoError(t, SetupGlobalConfig(cmd))

		cfg := config.FromContext(cmd.Context())
		assert.Equal(t, 6100, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Runtime.LogLevel)
	})
	t.Run("Should let logging flags override the file", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "triggers.yaml")
		writeFile(t, cfgPath, "runtime:\n  log_level: warn\n")
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set("env-file", ""))
		require.NoError(t, cmd.PersistentFlags().Set("config", cfgPath))
		require.NoError(t, cmd.PersistentFlags().Set("log-level", "debug"))
		require.NoError(t, cmd.PersistentFlags().Set("log-json", "true"))

		require.NoError(t, SetupGlobalConfig(cmd))

		cfg := config.FromContext(cmd.Context())
		assert.Equal(t, "debug", cfg.Runtime.LogLevel)
		assert.True(t, cfg.Runtime.LogJSON)
		assert.False(t, cfg.Runtime.LogSource)
	})
	t.Run("Should reject an unknown log level", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set("env-file", ""))
		require.NoError(t, cmd.PersistentFlags().Set("log-level", "verbose"))

		err := SetupGlobalConfig(cmd)

		assert.ErrorContains(t, err, "invalid logging flags")
	})
	t.Run("Should fall back to defaults when the default file is absent", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set("env-file", ""))

		require.NoError(t, SetupGlobalConfig(cmd))

		assert.Equal(t, config.Default().Server.Port, config.FromContext(cmd.Context()).Server.Port)
	})
	t.Run("Should fail when an explicit config file is missing", func(t *testing.T) {
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set("env-file", ""))
		require.NoError(t, cmd.PersistentFlags().Set("config", filepath.Join(t.TempDir(), "nope.yaml")))

		err := SetupGlobalConfig(cmd)

		assert.ErrorContains(t, err, "nope.yaml")
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("Should load variables from a file inside the working directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		t.Setenv("TRIGGERS_CLI_TEST_VALUE", "")
		require.NoError(t, os.Unsetenv("TRIGGERS_CLI_TEST_VALUE"))
		writeFile(t, filepath.Join(dir, ".env"), "TRIGGERS_CLI_TEST_VALUE=42\n")
		cmd := RootCmd()

		path, err := loadEnvFile(cmd)

		require.NoError(t, err)
		assert.Equal(t, "42", os.Getenv("TRIGGERS_CLI_TEST_VALUE"))
		assert.Equal(t, ".env", filepath.Base(path))
	})
	t.Run("Should ignore a missing file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cmd := RootCmd()

		_, err := loadEnvFile(cmd)

		assert.NoError(t, err)
	})
	t.Run("Should reject files outside the working directory", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set("env-file", "../outside.env"))

		_, err := loadEnvFile(cmd)

		assert.ErrorContains(t, err, "outside the working directory")
	})
	t.Run("Should reject directories", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		require.NoError(t, os.Mkdir(filepath.Join(dir, "envdir"), 0o700))
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set("env-file", "envdir"))

		_, err := loadEnvFile(cmd)

		assert.ErrorContains(t, err, "not a regular file")
	})
}

func TestIsPathWithinDirectory(t *testing.T) {
	t.Run("Should accept nested paths and the directory itself", func(t *testing.T) {
		assert.True(t, isPathWithinDirectory("/srv/app/.env", "/srv/app"))
		assert.True(t, isPathWithinDirectory("/srv/app", "/srv/app"))
	})
	t.Run("Should reject siblings sharing a prefix", func(t *testing.T) {
		assert.False(t, isPathWithinDirectory("/srv/application/.env", "/srv/app"))
		assert.False(t, isPathWithinDirectory("/srv/app/../other/.env", "/srv/app"))
	})
}
