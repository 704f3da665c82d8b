package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/assocworks/member-chat/globals"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultAdminUser        = "admin"
	defaultHistorySize      = 50
	defaultTypingTimeoutSec = 3
	defaultTypingSweepSec   = 1
)

// Config is the global configuration object, filled from the configuration
// file(s), environment and command-line flags.
type Config struct {
	HistoryConfig     HistoryConfig     `mapstructure:"history"`
	TypingConfig      TypingConfig      `mapstructure:"typing"`
	OIDCConfigs       []OIDCConfig      `mapstructure:"oidc"`
	PersistenceConfig PersistenceConfig `mapstructure:"persistence"`
	LogLevel          string            `mapstructure:"log_level"`
	AdminUser         string            `mapstructure:"admin_user"`
}

// HistoryConfig configures how many persisted messages are delivered to a
// connection when it joins a room.
type HistoryConfig struct {
	HistorySize int `mapstructure:"history_size"`
}

// TypingConfig configures the typing-indicator expiry. TimeoutSeconds is the
// window within which a typing signal must be renewed, SweepSeconds the
// interval of the periodic eviction sweep.
type TypingConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	SweepSeconds   int `mapstructure:"sweep_seconds"`
}

// An OIDCConfig object configures an OpenID Connect provider used to
// authenticate members. Clients provide an ID token and the provider name,
// authentication is performed via verification of the token.
type OIDCConfig struct {
	Name        string `mapstructure:"name"`
	ClientId    string `mapstructure:"client_id"`
	ProviderUrl string `mapstructure:"provider_url"`
}

// PersistenceConfig selects the persistence backend. Type is one of
// "sqlite", "postgres" or "buntdb"; DSN is the database DSN, or the file
// name for buntdb.
type PersistenceConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.StringP("admin-user", "a", "", "id of the admin user")
	flagSet.String("log-level", "", "log level (TRACE/DEBUG/INFO/WARN/ERROR)")
	return flagSet
}

// wordSepNormalizeFunc maps the flag names (which use - as a separator) to
// the viper key format.
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.Replace(name, "-", "_", -1))
}

// ReadConfiguration reads and parses the configuration located at
// configPath, which can either point to a single TOML file or to a
// directory, in which case all *.toml files in this directory are
// concatenated. Environment variables with the MCHAT prefix override file
// values.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
	viper.SetDefault("admin_user", defaultAdminUser)
	viper.SetDefault("history.history_size", defaultHistorySize)
	viper.SetDefault("typing.timeout_seconds", defaultTypingTimeoutSec)
	viper.SetDefault("typing.sweep_seconds", defaultTypingSweepSec)
	if err := viper.BindPFlags(flagSet); err != nil {
		globals.AppLogger.Error("could not bind flags (ignored)", "error", err)
	}
	viper.SetEnvPrefix("MCHAT")
	viper.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := os.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		viper.SetConfigType("toml")
		if err := viper.ReadConfig(bytes.NewBuffer(contents)); err != nil {
			globals.AppLogger.Error("could not read config", "error", err)
		}
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		globals.AppLogger.Error("could not unmarshal config", "error", err)
	}

	return &cfg, nil
}
