package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dyluth/switchboard/internal/eventsink"
	"github.com/dyluth/switchboard/internal/filter"
	"github.com/dyluth/switchboard/internal/history"
	"github.com/dyluth/switchboard/internal/printer"
	"github.com/dyluth/switchboard/internal/resolver"
	"github.com/dyluth/switchboard/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	historyDB      string
	historyOutput  string
	historySince   string
	historyUntil   string
	historyEvent   string
	historyHeaders []string
	historySession string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query recorded manager traffic",
	Long: `Query the records stored by the sqlite sink.

Output Formats:
  default - Human-readable table with session, sequence, name and headers
  jsonl   - Line-delimited JSON, one record per line

Time Filters:
  --since  - Show records received after this time
  --until  - Show records received before this time

Content Filters:
  --event   - Filter by event or response name (glob pattern: "Hang*", "*Status")
  --header  - Filter by header value (KEY=VALUE, repeatable)
  --session - Only records from one session

Examples:
  # Everything from the last hour
  switchboard history --since=1h

  # Hangups on one channel as JSONL for jq
  switchboard history --event=Hangup --header Channel=SIP/100-00000001 --output=jsonl

  # One record in full (a unique session prefix is enough)
  switchboard history get 0f8fad5b 42`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyGetCmd = &cobra.Command{
	Use:   "get SESSION SEQ",
	Short: "Print one stored record as JSON",
	Long: `Print one stored record as JSON.

SESSION is a full session ID or a unique prefix of at least 4 characters,
as shown in the SESSION column of "switchboard history".`,
	Args: cobra.ExactArgs(2),
	RunE: runHistoryGet,
}

var historySessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runHistorySessions,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDB, "db", "", "SQLite database (default sinks.sqlite.path from config)")

	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "default", "Output format: default or jsonl")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Show records after time (duration, 2d, or RFC3339)")
	historyCmd.Flags().StringVar(&historyUntil, "until", "", "Show records before time (duration, 2d, or RFC3339)")
	historyCmd.Flags().StringVar(&historyEvent, "event", "", "Filter by record name (glob pattern)")
	historyCmd.Flags().StringArrayVar(&historyHeaders, "header", nil, "Filter by header (KEY=VALUE, repeatable)")
	historyCmd.Flags().StringVar(&historySession, "session", "", "Only records from this session")

	historyCmd.AddCommand(historyGetCmd, historySessionsCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the sqlite store for reading. It refuses to create a
// database that does not exist yet.
func openHistory(cmd *cobra.Command) (*eventsink.SQLiteSink, error) {
	path := historyDB
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		if cfg.Sinks == nil || cfg.Sinks.SQLite == nil {
			return nil, printer.Error(
				"no history database configured",
				"switchboard.yml has no sinks.sqlite section.",
				[]string{
					"Add sinks.sqlite.path to switchboard.yml",
					"Pass the database explicitly:\n  switchboard history --db path/to/events.db",
				},
			)
		}
		path = cfg.Sinks.SQLite.Path
	}

	if _, err := os.Stat(path); err != nil {
		return nil, printer.ErrorWithContext(
			"no history recorded",
			"The history database does not exist yet.",
			map[string]string{"Database": path},
			[]string{"Record some traffic first:\n  switchboard watch"},
		)
	}

	store, err := eventsink.OpenSQLite(path, "")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return store, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	var outputFormat history.OutputFormat
	switch historyOutput {
	case "default":
		outputFormat = history.OutputFormatDefault
	case "jsonl":
		outputFormat = history.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", historyOutput),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	sinceMs, untilMs, err := timespec.ParseRange(historySince, historyUntil)
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use a duration (1h30m), days (2d), 'now', or RFC3339 (2026-03-01T13:00:00Z)"},
		)
	}

	if err := filter.ValidateGlob(historyEvent); err != nil {
		return printer.Error("invalid --event pattern", err.Error(), nil)
	}

	headers, err := filter.ParseHeaders(historyHeaders)
	if err != nil {
		return printer.Error("invalid --header filter", err.Error(), []string{"Headers look like: Channel=SIP/100"})
	}

	if historySession != "" {
		if err := eventsink.ValidateSessionID(historySession); err != nil {
			return printer.Error("invalid --session", err.Error(), nil)
		}
	}

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	filters := &filter.Criteria{
		SinceTimestampMs: sinceMs,
		UntilTimestampMs: untilMs,
		NameGlob:         historyEvent,
		Headers:          headers,
	}
	return history.ListRecords(cmd.Context(), store, historySession, outputFormat, filters, cmd.OutOrStdout())
}

func runHistoryGet(cmd *cobra.Command, args []string) error {
	session := args[0]
	seq, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return printer.Error("invalid sequence number", fmt.Sprintf("%q is not a positive integer", args[1]), nil)
	}

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	session, err = resolver.ResolveSession(cmd.Context(), store, session)
	if err != nil {
		switch {
		case resolver.IsAmbiguousError(err):
			return printer.Error("ambiguous session", resolver.FormatAmbiguousError(err.(*resolver.AmbiguousError)), nil)
		case resolver.IsNotFoundError(err):
			return printer.Error(
				"session not found",
				err.Error(),
				[]string{"List recorded sessions:\n  switchboard history sessions"},
			)
		default:
			return printer.Error("invalid session", err.Error(), nil)
		}
	}

	if err := history.GetRecord(cmd.Context(), store, session, seq, cmd.OutOrStdout()); err != nil {
		if history.IsNotFound(err) {
			return printer.Error(
				"record not found",
				err.Error(),
				[]string{fmt.Sprintf("List the session's records:\n  switchboard history --session %s", session)},
			)
		}
		return err
	}
	return nil
}

func runHistorySessions(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		printer.Info("No sessions recorded\n")
		return nil
	}
	for _, s := range sessions {
		printer.Println(s)
	}
	return nil
}
