package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/switchboard/internal/config"
	"github.com/dyluth/switchboard/internal/eventsink"
	"github.com/dyluth/switchboard/internal/filter"
	"github.com/dyluth/switchboard/internal/keepalive"
	"github.com/dyluth/switchboard/internal/printer"
	"github.com/dyluth/switchboard/internal/watch"
	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	watchOutputFormat string
	watchEvent        string
	watchHeaders      []string
	watchSource       string
	watchSession      string
)

// errManagerHungUp ends the watch when the switch closes the session.
var errManagerHungUp = errors.New("manager closed the connection")

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live manager events",
	Long: `Stream events and responses as the switch sends them.

Every record is also written to the sinks configured in switchboard.yml, and
the session is kept alive with Ping actions when keepalive is configured.

Sources:
  switch - Connect to the manager directly (default)
  redis  - Follow a session another switchboard mirrors to Redis

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch everything
  switchboard watch

  # Only hangups on one peer
  switchboard watch --event=Hangup --header Channel=SIP/100-00000001

  # Follow a mirrored session
  switchboard watch --source=redis --session=front-desk

  # Export events as JSON
  switchboard watch --output=json > events.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().StringVar(&watchEvent, "event", "", "Filter by record name (glob pattern)")
	watchCmd.Flags().StringArrayVar(&watchHeaders, "header", nil, "Filter by header (KEY=VALUE, repeatable)")
	watchCmd.Flags().StringVar(&watchSource, "source", "switch", "Where records come from: switch or redis")
	watchCmd.Flags().StringVar(&watchSession, "session", "", "Session to record under or follow (default from config, else generated)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "json":
		outputFormat = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	if err := filter.ValidateGlob(watchEvent); err != nil {
		return printer.Error("invalid --event pattern", err.Error(), nil)
	}
	headers, err := filter.ParseHeaders(watchHeaders)
	if err != nil {
		return printer.Error("invalid --header filter", err.Error(), []string{"Headers look like: Channel=SIP/100"})
	}
	filters := &filter.Criteria{NameGlob: watchEvent, Headers: headers}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	session := watchSession
	if session == "" && cfg.Sinks != nil && cfg.Sinks.Redis != nil {
		session = cfg.Sinks.Redis.Session
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch watchSource {
	case "switch":
		if session == "" {
			session = eventsink.NewSessionID()
		}
		if err := eventsink.ValidateSessionID(session); err != nil {
			return printer.Error("invalid --session", err.Error(), nil)
		}
		stream, err := watch.NewStream(cmd.OutOrStdout(), outputFormat, session, filters)
		if err != nil {
			return err
		}
		return watchSwitch(ctx, cmd, cfg, session, stream)
	case "redis":
		if session == "" {
			return printer.Error(
				"no session to follow",
				"Following Redis needs the session the recording switchboard uses.",
				[]string{"Pass it with --session", "Set sinks.redis.session in switchboard.yml"},
			)
		}
		stream, err := watch.NewStream(cmd.OutOrStdout(), outputFormat, session, filters)
		if err != nil {
			return err
		}
		return watchRedis(ctx, cfg, session, stream)
	default:
		return printer.Error(
			"invalid source",
			fmt.Sprintf("Unknown source: %s", watchSource),
			[]string{"Valid sources: switch, redis"},
		)
	}
}

// openSinks opens the configured sinks under session. The returned close
// function closes whatever was opened.
func openSinks(ctx context.Context, cfg *config.SwitchboardConfig, session string) ([]ami.Sink, func(), error) {
	var sinks []ami.Sink
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}
	if cfg.Sinks == nil {
		return nil, closeAll, nil
	}

	if cfg.Sinks.SQLite != nil {
		s, err := eventsink.OpenSQLite(cfg.Sinks.SQLite.Path, session)
		if err != nil {
			return nil, closeAll, printer.ErrorWithContext(
				"history database unavailable",
				err.Error(),
				map[string]string{"Database": cfg.Sinks.SQLite.Path},
				nil,
			)
		}
		sinks = append(sinks, s)
		closers = append(closers, s.Close)
	}

	if cfg.Sinks.Redis != nil {
		s, err := eventsink.NewRedisSinkFromURL(cfg.Sinks.Redis.URL, session)
		if err == nil {
			err = s.Ping(ctx)
			if err != nil {
				s.Close()
			}
		}
		if err != nil {
			closeAll()
			return nil, func() {}, printer.ErrorWithContext(
				"Redis mirror unavailable",
				err.Error(),
				map[string]string{"URL": cfg.Sinks.Redis.URL},
				[]string{"Check Redis is running, or remove sinks.redis from switchboard.yml"},
			)
		}
		sinks = append(sinks, s)
		closers = append(closers, s.Close)
	}

	return sinks, closeAll, nil
}

func watchSwitch(ctx context.Context, cmd *cobra.Command, cfg *config.SwitchboardConfig, session string, stream *watch.Stream) error {
	sinks, closeSinks, err := openSinks(ctx, cfg, session)
	if err != nil {
		return err
	}
	defer closeSinks()

	opts := []ami.Option{ami.WithSink(stream)}
	for _, s := range sinks {
		opts = append(opts, ami.WithSink(s))
	}

	client, err := connect(ctx, cmd, cfg, opts...)
	if err != nil {
		return err
	}
	defer disconnect(client)

	printer.Step("Watching %s (session %s)\n", cfg.Manager.Addr(), session)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-client.Done():
			if err := client.Err(); err != nil {
				return fmt.Errorf("connection lost: %w", err)
			}
			return errManagerHungUp
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case err := <-client.Errors():
				var decodeErr *ami.DecodeError
				if errors.As(err, &decodeErr) {
					continue
				}
				printer.Warning("%v\n", err)
			}
		}
	})

	if cfg.Keepalive != nil {
		pinger, err := keepalive.New(client, cfg.Keepalive.Schedule)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return pinger.Run(gctx)
		})
	}

	err = g.Wait()
	switch {
	case err == nil:
		printer.Info("\n%d records shown\n", stream.Count())
		return nil
	case errors.Is(err, errManagerHungUp):
		printer.Warning("%v after %d records\n", err, stream.Count())
		return nil
	default:
		return printer.ManagerError("Watch", cfg.Manager.Addr(), err)
	}
}

func watchRedis(ctx context.Context, cfg *config.SwitchboardConfig, session string, stream *watch.Stream) error {
	if cfg.Sinks == nil || cfg.Sinks.Redis == nil {
		return printer.Error(
			"no Redis configured",
			"switchboard.yml has no sinks.redis section.",
			[]string{"Add sinks.redis.url to switchboard.yml"},
		)
	}

	// The mirror is only read here, never written
	mirror, err := eventsink.NewRedisSinkFromURL(cfg.Sinks.Redis.URL, session)
	if err != nil {
		return fmt.Errorf("failed to create Redis client: %w", err)
	}
	defer mirror.Close()

	if err := mirror.Ping(ctx); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Sinks.Redis.URL),
			map[string]string{"Error": err.Error()},
			[]string{"Check Redis is running and sinks.redis.url is correct"},
		)
	}

	sub, err := mirror.Subscribe(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to subscribe to session %s: %w", session, err)
	}
	defer sub.Close()

	printer.Step("Following session %s via %s\n", session, cfg.Sinks.Redis.URL)
	return stream.Consume(ctx, sub, printerWarnings{})
}

// printerWarnings adapts printer.Warning to an io.Writer.
type printerWarnings struct{}

func (printerWarnings) Write(p []byte) (int, error) {
	printer.Warning("%s", p)
	return len(p), nil
}
