package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dyluth/switchboard/internal/printer"
	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/dyluth/switchboard/pkg/views"
	"github.com/spf13/cobra"
)

var conferenceTimeout time.Duration

var conferencesCmd = &cobra.Command{
	Use:   "conferences",
	Short: "List active conference rooms",
	Args:  cobra.NoArgs,
	RunE:  runConferences,
}

var conferenceCmd = &cobra.Command{
	Use:   "conference",
	Short: "Inspect and moderate a conference room",
	Long: `Inspect and moderate a conference room.

Examples:
  switchboard conference participants 600
  switchboard conference lock 600
  switchboard conference kick 600 2
  switchboard conference kick 600 all
  switchboard conference mute 600 1`,
}

func init() {
	conferencesCmd.Flags().DurationVar(&conferenceTimeout, "timeout", 10*time.Second, "How long to wait for the switch")
	rootCmd.AddCommand(conferencesCmd)

	conferenceCmd.PersistentFlags().DurationVar(&conferenceTimeout, "timeout", 10*time.Second, "How long to wait for the switch")
	conferenceCmd.AddCommand(
		&cobra.Command{
			Use:   "participants ROOM",
			Short: "List the users in a room",
			Args:  cobra.ExactArgs(1),
			RunE:  runParticipants,
		},
		moderationCommand("lock ROOM", "Stop new users joining a room", 1, func(ctx context.Context, c *views.Conference, _ []string) (string, error) {
			return c.Lock(ctx)
		}),
		moderationCommand("unlock ROOM", "Let new users join a room", 1, func(ctx context.Context, c *views.Conference, _ []string) (string, error) {
			return c.Unlock(ctx)
		}),
		moderationCommand("kick ROOM USER|all", "Remove a user, or everyone, from a room", 2, func(ctx context.Context, c *views.Conference, args []string) (string, error) {
			if args[0] == "all" {
				return c.KickAll(ctx)
			}
			return c.Kick(ctx, args[0])
		}),
		moderationCommand("mute ROOM USER", "Mute a user", 2, func(ctx context.Context, c *views.Conference, args []string) (string, error) {
			return c.Mute(ctx, args[0])
		}),
		moderationCommand("unmute ROOM USER", "Unmute a user", 2, func(ctx context.Context, c *views.Conference, args []string) (string, error) {
			return c.Unmute(ctx, args[0])
		}),
	)
	rootCmd.AddCommand(conferenceCmd)
}

// withManager loads config, connects and runs fn with a bounded context.
func withManager(cmd *cobra.Command, timeout time.Duration, fn func(ctx context.Context, client *ami.Client, addr string) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := connect(cmd.Context(), cmd, cfg)
	if err != nil {
		return err
	}
	defer disconnect(client)

	ctx, cancel := withTimeout(cmd.Context(), timeout)
	defer cancel()
	return fn(ctx, client, cfg.Manager.Addr())
}

func runConferences(cmd *cobra.Command, args []string) error {
	return withManager(cmd, conferenceTimeout, func(ctx context.Context, client *ami.Client, addr string) error {
		rooms, err := views.ListConferences(ctx, client)
		if err != nil {
			return printer.ManagerError("Conference listing", addr, err)
		}
		if len(rooms) == 0 {
			printer.Info("No active conferences\n")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ROOM\tPARTIES\tMARKED\tACTIVITY\tCREATION\tLOCKED")
		for _, room := range rooms {
			s, err := room.Snapshot(ctx)
			if err != nil {
				return printer.ManagerError("Conference listing", addr, err)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				room.Number,
				s.String("parties"),
				dash(s.String("marked")),
				dash(s.String("activity")),
				dash(s.String("creation")),
				dash(s.String("locked")),
			)
		}
		return w.Flush()
	})
}

func runParticipants(cmd *cobra.Command, args []string) error {
	room := args[0]
	return withManager(cmd, conferenceTimeout, func(ctx context.Context, client *ami.Client, addr string) error {
		rows, err := views.NewConference(client, room).Participants(ctx)
		if err != nil {
			return printer.ManagerError("Participant listing", addr, err)
		}
		if len(rows) == 0 {
			printer.Info("No participants in room %s\n", room)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USER\tEXTEN\tNAME\tCHANNEL\tSTATUS\tDURATION")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				row.Value("user"),
				row.Value("exten"),
				row.Value("name"),
				row.Value("channel"),
				row.Value("status"),
				row.Value("duration"),
			)
		}
		return w.Flush()
	})
}

// moderationCommand builds a room subcommand that runs one console command.
// nargs counts the room argument.
func moderationCommand(use, short string, nargs int, fn func(context.Context, *views.Conference, []string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			room := args[0]
			return withManager(cmd, conferenceTimeout, func(ctx context.Context, client *ami.Client, addr string) error {
				out, err := fn(ctx, views.NewConference(client, room), args[1:])
				if err != nil {
					return printer.ManagerError(fmt.Sprintf("Conference %s %s", cmd.Name(), room), addr, err)
				}
				printer.Success("%s %s\n", cmd.Name(), room)
				if out != "" {
					printer.Println(out)
				}
				return nil
			})
		},
	}
}
