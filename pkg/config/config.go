// Package config loads prmerge settings from flags, environment variables and
// an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys understood in the config file, as PRMERGE_* environment variables, and
// as flags of the same name.
const (
	KeyToken       = "token"
	KeyAPIURL      = "api-url"
	KeyHost        = "host"
	KeyRemote      = "remote"
	KeyCloneDepth  = "clone-depth"
	KeyVersionFile = "version-file"
	KeyLogLevel    = "log-level"
	KeyWorkDir     = "work-dir"

	EnvPrefix       = "PRMERGE"
	defaultFileName = ".prmerge"
)

// Config holds the resolved settings for a run.
type Config struct {
	Token       string
	APIURL      string
	Host        string
	Remote      string
	CloneDepth  int
	VersionFile string
	LogLevel    slog.Level
	WorkDir     string
	// File is the config file that was read, if any.
	File string
}

// Defaults registers the default value of every key on v.
func Defaults(v *viper.Viper) {
	v.SetDefault(KeyAPIURL, "https://api.github.com")
	v.SetDefault(KeyHost, "github.com")
	v.SetDefault(KeyRemote, "upstream")
	v.SetDefault(KeyCloneDepth, 50)
	v.SetDefault(KeyVersionFile, "version.sbt")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyWorkDir, "")
}

// Load resolves settings with precedence flags > environment > config file >
// defaults. cfgFile names an explicit config file; when empty,
// $HOME/.prmerge.yaml is read if present. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	Defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range []string{KeyRemote, KeyLogLevel, KeyCloneDepth, KeyVersionFile, KeyAPIURL, KeyHost, KeyWorkDir} {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("binding flag --%s: %w", key, err)
				}
			}
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(defaultFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := Config{
		Token:       v.GetString(KeyToken),
		APIURL:      v.GetString(KeyAPIURL),
		Host:        v.GetString(KeyHost),
		Remote:      v.GetString(KeyRemote),
		CloneDepth:  v.GetInt(KeyCloneDepth),
		VersionFile: v.GetString(KeyVersionFile),
		WorkDir:     v.GetString(KeyWorkDir),
		File:        v.ConfigFileUsed(),
	}

	// The token is commonly exported for other GitHub tooling already.
	if cfg.Token == "" {
		cfg.Token = os.Getenv("GITHUB_TOKEN")
	}

	level, err := ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if cfg.CloneDepth < 1 {
		return Config{}, fmt.Errorf("%s must be at least 1, got %d", KeyCloneDepth, cfg.CloneDepth)
	}
	if cfg.VersionFile == "" || filepath.IsAbs(cfg.VersionFile) {
		return Config{}, fmt.Errorf("%s must be a path relative to the repository root", KeyVersionFile)
	}

	return cfg, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown %s %q (want debug, info, warn or error)", KeyLogLevel, s)
}

// NewLogger returns a text logger on stderr at cfg's level.
func (c Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}
