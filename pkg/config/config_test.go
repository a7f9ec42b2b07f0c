package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GITHUB_TOKEN", "")
	for _, key := range []string{"TOKEN", "API_URL", "HOST", "REMOTE", "CLONE_DEPTH", "VERSION_FILE", "LOG_LEVEL", "WORK_DIR"} {
		t.Setenv(EnvPrefix+"_"+key, "")
		os.Unsetenv(EnvPrefix + "_" + key)
	}
	return home
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.github.com", cfg.APIURL)
	assert.Equal(t, "github.com", cfg.Host)
	assert.Equal(t, "upstream", cfg.Remote)
	assert.Equal(t, 50, cfg.CloneDepth)
	assert.Equal(t, "version.sbt", cfg.VersionFile)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Empty(t, cfg.Token)
	assert.Empty(t, cfg.File)
}

func TestLoad_HomeConfigFile(t *testing.T) {
	home := isolate(t)
	yaml := "remote: origin\nclone-depth: 10\ntoken: from-file\nlog-level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".prmerge.yaml"), []byte(yaml), 0o600))

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "origin", cfg.Remote)
	assert.Equal(t, 10, cfg.CloneDepth)
	assert.Equal(t, "from-file", cfg.Token)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, filepath.Join(home, ".prmerge.yaml"), cfg.File)
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("remote: from-file\nhost: git.example.com\nclone-depth: 5\n"), 0o600))

	t.Setenv("PRMERGE_REMOTE", "from-env")
	t.Setenv("PRMERGE_CLONE_DEPTH", "7")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(KeyRemote, "", "")
	flags.String(KeyLogLevel, "", "")
	require.NoError(t, flags.Parse([]string{"--remote", "from-flag"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Remote, "flag beats env and file")
	assert.Equal(t, 7, cfg.CloneDepth, "env beats file")
	assert.Equal(t, "git.example.com", cfg.Host, "file beats default")
}

func TestLoad_GitHubTokenFallback(t *testing.T) {
	isolate(t)
	t.Setenv("GITHUB_TOKEN", "gh-token")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "gh-token", cfg.Token)

	t.Setenv("PRMERGE_TOKEN", "own-token")
	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "own-token", cfg.Token)
}

func TestLoad_Errors(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err, "explicit config file must exist")

	t.Setenv("PRMERGE_CLONE_DEPTH", "0")
	_, err = Load("", nil)
	assert.ErrorContains(t, err, "clone-depth")

	t.Setenv("PRMERGE_CLONE_DEPTH", "")
	os.Unsetenv("PRMERGE_CLONE_DEPTH")
	t.Setenv("PRMERGE_LOG_LEVEL", "loud")
	_, err = Load("", nil)
	assert.ErrorContains(t, err, "log-level")

	t.Setenv("PRMERGE_LOG_LEVEL", "info")
	t.Setenv("PRMERGE_VERSION_FILE", "/abs/version.sbt")
	_, err = Load("", nil)
	assert.ErrorContains(t, err, "version-file")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
