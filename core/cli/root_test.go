package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (MergeOptions, bool, string, error) {
	t.Helper()
	var got MergeOptions
	var called bool

	cmd := NewRootCmd("test", func(_ context.Context, opts MergeOptions) error {
		got, called = opts, true
		return nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return got, called, out.String(), err
}

func TestRootCmd_PRNumberOnly(t *testing.T) {
	opts, called, _, err := execute(t, "42")
	require.NoError(t, err)
	require.True(t, called)
	assert.Empty(t, opts.Repo)
	assert.Equal(t, 42, opts.Number)
	assert.False(t, opts.DryRun)
	assert.NotNil(t, opts.Flags)
}

func TestRootCmd_RepoAndNumber(t *testing.T) {
	opts, called, _, err := execute(t, "--dry-run", "--config", "/tmp/c.yaml", "acme/widgets", "7")
	require.NoError(t, err)
	require.True(t, called)
	assert.Equal(t, "acme/widgets", opts.Repo)
	assert.Equal(t, 7, opts.Number)
	assert.True(t, opts.DryRun)
	assert.Equal(t, "/tmp/c.yaml", opts.ConfigFile)

	remote, err := opts.Flags.GetString("remote")
	require.NoError(t, err)
	assert.Empty(t, remote)
}

func TestRootCmd_UsageErrors(t *testing.T) {
	tests := [][]string{
		{},
		{"abc"},
		{"0"},
		{"-3"},
		{"widgets", "7"},
		{"acme/widgets", "seven"},
		{"acme/widgets", "7", "extra"},
		{"--no-such-flag", "7"},
	}

	for _, args := range tests {
		_, called, _, err := execute(t, args...)
		require.Error(t, err, "args %q", args)
		assert.True(t, IsUsageError(err), "args %q: %v", args, err)
		assert.False(t, called, "args %q", args)
	}
}

func TestRootCmd_Help(t *testing.T) {
	_, called, out, err := execute(t, "-h")
	require.NoError(t, err)
	assert.False(t, called)
	assert.Contains(t, out, "prmerge [-h] [REPO-NAME] PR-NUMBER")
}

func TestRootCmd_RunErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	cmd := NewRootCmd("test", func(context.Context, MergeOptions) error { return boom })
	cmd.SetArgs([]string{"1"})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsUsageError(err))
}

func TestParseArgs(t *testing.T) {
	repo, n, err := ParseArgs([]string{"acme/widgets", "12"})
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets", repo)
	assert.Equal(t, 12, n)

	repo, n, err = ParseArgs([]string{"5"})
	require.NoError(t, err)
	assert.Empty(t, repo)
	assert.Equal(t, 5, n)
}
