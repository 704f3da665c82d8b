package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReadConfiguration(t *testing.T) {
	viper.Reset()
	path := writeConfigFile(t, t.TempDir(), "config.toml", `
log_level = "DEBUG"

[history]
history_size = 10

[persistence]
type = "sqlite"
dsn = "chat.db"

[[oidc]]
name = "assoc"
client_id = "member-portal"
provider_url = "https://id.example.org"
`)

	cfg, err := ReadConfiguration(path, GetFlagSet())
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 10, cfg.HistoryConfig.HistorySize)
	assert.Equal(t, "sqlite", cfg.PersistenceConfig.Type)
	assert.Equal(t, "chat.db", cfg.PersistenceConfig.DSN)
	require.Len(t, cfg.OIDCConfigs, 1)
	assert.Equal(t, "assoc", cfg.OIDCConfigs[0].Name)
	assert.Equal(t, "member-portal", cfg.OIDCConfigs[0].ClientId)

	// defaults fill what the file does not set
	assert.Equal(t, "admin", cfg.AdminUser)
	assert.Equal(t, 3, cfg.TypingConfig.TimeoutSeconds)
	assert.Equal(t, 1, cfg.TypingConfig.SweepSeconds)
}

func TestReadConfigurationDefaults(t *testing.T) {
	viper.Reset()
	cfg, err := ReadConfiguration("", GetFlagSet())
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.AdminUser)
	assert.Equal(t, 50, cfg.HistoryConfig.HistorySize)
	assert.Equal(t, 3, cfg.TypingConfig.TimeoutSeconds)
	assert.Empty(t, cfg.PersistenceConfig.Type)
}

func TestReadConfigurationDirectory(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	writeConfigFile(t, dir, "10-base.toml", "log_level = \"WARN\"\n")
	writeConfigFile(t, dir, "20-persistence.toml", "[persistence]\ntype = \"buntdb\"\ndsn = \":memory:\"\n")

	cfg, err := ReadConfiguration(dir, GetFlagSet())
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.Equal(t, "buntdb", cfg.PersistenceConfig.Type)
}

func TestReadConfigurationMissingPath(t *testing.T) {
	viper.Reset()
	_, err := ReadConfiguration(filepath.Join(t.TempDir(), "nope.toml"), GetFlagSet())
	assert.Error(t, err)
}
