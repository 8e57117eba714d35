package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/switchboard/internal/testutil"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// syncBuffer is written by running commands while tests read it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// resetFlags restores every flag to its default so one test's flags do not
// leak into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// setContext hands ctx to every command. cobra only copies the root
// context into subcommands whose context is still unset, so without this a
// later run would see the first run's context.
func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContext(c, ctx)
	}
}

// start runs the CLI in the background and returns its combined output and
// result.
func start(ctx context.Context, args ...string) (*syncBuffer, <-chan error) {
	resetFlags(rootCmd)
	setContext(rootCmd, ctx)
	if args == nil {
		// nil makes cobra fall back to os.Args
		args = []string{}
	}
	out := &syncBuffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()
	return out, done
}

// run executes the CLI and waits for it to finish.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, done := start(context.Background(), args...)
	select {
	case err := <-done:
		return out.String(), err
	case <-time.After(10 * time.Second):
		t.Fatalf("command %v did not finish", args)
		return "", nil
	}
}

// writeConfig writes a switchboard.yml pointing at m and returns its path.
// extra is appended verbatim.
func writeConfig(t *testing.T, m *testutil.MockManager, extra string) string {
	t.Helper()
	host, port := m.HostPort()
	content := fmt.Sprintf(`version: "1.0"
manager:
  host: %s
  port: %s
  username: admin
  secret: s3cret
  default_context: internal
  dial_timeout: 2s
%s`, host, port, extra)

	path := filepath.Join(t.TempDir(), "switchboard.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
