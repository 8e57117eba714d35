package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dyluth/switchboard/internal/config"
	"github.com/dyluth/switchboard/internal/printer"
	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/spf13/cobra"
)

const (
	defaultConfigPath = "switchboard.yml"

	// logoffTimeout bounds the wait for the Goodbye reply on shutdown
	logoffTimeout = 2 * time.Second
)

// loadConfig reads the config file and applies flag overrides. A missing
// default config file falls back to built-in defaults; a missing file
// named with --config is an error.
func loadConfig(cmd *cobra.Command) (*config.SwitchboardConfig, error) {
	var cfg *config.SwitchboardConfig
	_, statErr := os.Stat(configPath)
	switch {
	case statErr == nil:
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, printer.ErrorWithContext(
				"invalid configuration",
				err.Error(),
				map[string]string{"Config": configPath},
				[]string{"Regenerate a template with:\n  switchboard init --force"},
			)
		}
		cfg = loaded
	case errors.Is(statErr, os.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
	default:
		return nil, printer.Error(
			"config file not found",
			fmt.Sprintf("Could not read %s: %v", configPath, statErr),
			[]string{"Create one with:\n  switchboard init"},
		)
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Manager.Host = hostFlag
	}
	if flags.Changed("port") {
		cfg.Manager.Port = portFlag
	}
	if flags.Changed("username") {
		cfg.Manager.Username = usernameFlag
	}
	if flags.Changed("secret") {
		cfg.Manager.Secret = secretFlag
	}
	if flags.Changed("debug") {
		cfg.Debug = debugFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, printer.Error("invalid configuration", err.Error(), nil)
	}
	return cfg, nil
}

// connect dials the manager and logs in when a username is configured.
func connect(ctx context.Context, cmd *cobra.Command, cfg *config.SwitchboardConfig, opts ...ami.Option) (*ami.Client, error) {
	addr := cfg.Manager.Addr()
	opts = append([]ami.Option{
		ami.WithDefaultContext(cfg.Manager.DefaultContext),
		ami.WithDialTimeout(cfg.Manager.Timeout()),
		ami.WithDebugWriter(cmd.ErrOrStderr()),
	}, opts...)

	client, err := ami.Dial(ctx, addr, opts...)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"manager connection failed",
			fmt.Sprintf("Could not connect to the manager at %s", addr),
			map[string]string{"Error": err.Error()},
			[]string{
				"Check the switch is running and manager.conf has enabled = yes",
				"Check host and port in switchboard.yml or pass --host/--port",
			},
		)
	}
	client.SetDebug(cfg.Debug)

	if cfg.Manager.Username != "" {
		loginCtx, cancel := context.WithTimeout(ctx, cfg.Manager.Timeout())
		defer cancel()
		creds := ami.NewRecord("Username", cfg.Manager.Username, "Secret", cfg.Manager.Secret)
		if _, err := client.Request(loginCtx, "Login", creds); err != nil {
			client.Close()
			var failure *ami.ActionFailureError
			if errors.As(err, &failure) {
				return nil, printer.ErrorWithContext(
					"authentication failed",
					failure.Message,
					map[string]string{"Manager": addr, "Username": cfg.Manager.Username},
					[]string{"Check manager.username and manager.secret against manager.conf"},
				)
			}
			return nil, printer.ManagerError("Login", addr, err)
		}
	}

	return client, nil
}

// disconnect logs off, unless the switch already hung up, and closes the
// client.
func disconnect(client *ami.Client) {
	select {
	case <-client.Done():
	default:
		ctx, cancel := context.WithTimeout(context.Background(), logoffTimeout)
		defer cancel()
		_, _ = client.Request(ctx, "Logoff", ami.Record{})
	}
	client.Close()
}

// withTimeout derives a context bounded by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
