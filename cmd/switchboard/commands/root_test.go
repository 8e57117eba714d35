package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/switchboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRootCommand_ShowsHelpWhenNoSubcommand tests that the root command
// shows help instead of silently succeeding when invoked without a subcommand
func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, err := run(t)

	assert.NoError(t, err)
	assert.Contains(t, out, "Usage:", "Help should be displayed")
	assert.Contains(t, out, "switchboard", "Help should show command name")
}

// TestRootCommand_RejectsUnknownFlags tests that unknown flags
// passed to the root command cause an error instead of being silently ignored
func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, err := run(t, "--unknown-flag", "value")

	assert.Error(t, err, "Unknown flag should cause an error")
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing explicit config is an error", func(t *testing.T) {
		_, err := run(t, "ping", "--config", filepath.Join(t.TempDir(), "nope.yml"))
		require.Error(t, err)
		assert.Equal(t, "config file not found", err.Error())
	})

	t.Run("invalid config is reported", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "switchboard.yml")
		require.NoError(t, os.WriteFile(path, []byte("version: \"2.0\"\n"), 0600))

		out, err := run(t, "ping", "--config", path)
		require.Error(t, err)
		assert.Equal(t, "invalid configuration", err.Error())
		assert.Contains(t, out, "unsupported version")
	})

	t.Run("flags override the file", func(t *testing.T) {
		m := testutil.StartMockManager(t)
		host, port := m.HostPort()
		path := filepath.Join(t.TempDir(), "switchboard.yml")
		require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\nmanager:\n  host: 192.0.2.1\n  port: 1\n"), 0600))

		out, err := run(t, "ping", "--config", path, "--host", host, "--port", port, "--username", "ops", "--secret", "pw")
		require.NoError(t, err)
		assert.Contains(t, out, "Pong from "+m.Addr())

		login := m.Actions()[0]
		assert.Equal(t, "Login", login.Value("Action"))
		assert.Equal(t, "ops", login.Value("Username"))
		assert.Equal(t, "pw", login.Value("Secret"))
	})
}

type runKey struct{}

// TestStart_SubcommandsSeeEachRunsContext tests that a subcommand executed
// a second time gets the new run's context, not the cancelled one from the
// run before
func TestStart_SubcommandsSeeEachRunsContext(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.db")
	wait := func(done <-chan error) {
		t.Helper()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("command did not finish")
		}
	}

	first, cancel := context.WithCancel(context.WithValue(context.Background(), runKey{}, "first"))
	cancel()
	_, done := start(first, "history", "sessions", "--db", missing)
	wait(done)

	second := context.WithValue(context.Background(), runKey{}, "second")
	_, done = start(second, "history", "sessions", "--db", missing)
	wait(done)

	ctx := historySessionsCmd.Context()
	require.NotNil(t, ctx)
	assert.Equal(t, "second", ctx.Value(runKey{}))
	assert.NoError(t, ctx.Err())
}
