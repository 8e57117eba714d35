package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dyluth/switchboard/internal/printer"
	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/dyluth/switchboard/pkg/views"
	"github.com/spf13/cobra"
)

var (
	channelsOutput   string
	channelsTimeout  time.Duration
	redirectContext  string
	redirectPriority string
	dtmfInterval     time.Duration
)

var channelsCmd = &cobra.Command{
	Use:   "channels [NAME]",
	Short: "List active channels",
	Long: `List active channels, or show one channel in detail.

Output Formats:
  default - Table of channels, or all fields of a single channel
  json    - Array of channel snapshots

Examples:
  switchboard channels
  switchboard channels SIP/100-00000001
  switchboard channels --output=json | jq '.[].name'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChannels,
}

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Act on a single channel",
}

var channelHangupCmd = &cobra.Command{
	Use:   "hangup NAME",
	Short: "Hang up a channel",
	Args:  cobra.ExactArgs(1),
	RunE:  runChannelHangup,
}

var channelRedirectCmd = &cobra.Command{
	Use:   "redirect NAME EXTEN",
	Short: "Transfer a channel to an extension",
	Long: `Transfer a channel to an extension. The dialplan context defaults to
manager.default_context from switchboard.yml.`,
	Args: cobra.ExactArgs(2),
	RunE: runChannelRedirect,
}

var channelDTMFCmd = &cobra.Command{
	Use:   "dtmf NAME DIGITS",
	Short: "Play DTMF digits on a channel",
	Args:  cobra.ExactArgs(2),
	RunE:  runChannelDTMF,
}

func init() {
	channelsCmd.Flags().StringVarP(&channelsOutput, "output", "o", "default", "Output format: default or json")
	channelsCmd.Flags().DurationVar(&channelsTimeout, "timeout", 10*time.Second, "How long to wait for the listing")
	rootCmd.AddCommand(channelsCmd)

	channelRedirectCmd.Flags().StringVar(&redirectContext, "context", "", "Dialplan context (default from config)")
	channelRedirectCmd.Flags().StringVar(&redirectPriority, "priority", "1", "Dialplan priority")
	channelDTMFCmd.Flags().DurationVar(&dtmfInterval, "interval", ami.DefaultDTMFInterval, "Pause between digits")
	channelCmd.AddCommand(channelHangupCmd, channelRedirectCmd, channelDTMFCmd)
	rootCmd.AddCommand(channelCmd)
}

func runChannels(cmd *cobra.Command, args []string) error {
	if channelsOutput != "default" && channelsOutput != "json" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", channelsOutput),
			[]string{"Valid formats: default, json"},
		)
	}
	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := connect(cmd.Context(), cmd, cfg)
	if err != nil {
		return err
	}
	defer disconnect(client)

	ctx, cancel := withTimeout(cmd.Context(), channelsTimeout)
	defer cancel()

	snaps, err := views.FetchChannels(ctx, client, name)
	if err != nil {
		return printer.ManagerError("Channel status", cfg.Manager.Addr(), err)
	}

	if channelsOutput == "json" {
		if snaps == nil {
			snaps = []views.Snapshot{}
		}
		data, err := json.MarshalIndent(snaps, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal channels: %w", err)
		}
		printer.Println(string(data))
		return nil
	}

	if name != "" {
		printer.Fields(snaps[0].Keys(), snaps[0].String)
		return nil
	}
	printChannelTable(cmd, snaps)
	return nil
}

func printChannelTable(cmd *cobra.Command, snaps []views.Snapshot) {
	if len(snaps) == 0 {
		printer.Info("No active channels\n")
		return
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tCALLER ID\tCONTEXT\tEXTEN\tSECONDS")
	for _, s := range snaps {
		callerID := strings.TrimSpace(fmt.Sprintf("%s %s", s.String("caller_id_name"), bracket(s.String("caller_id_num"))))
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.String("name"),
			dash(s.String("state")),
			dash(callerID),
			dash(s.String("context")),
			dash(s.String("extension")),
			dash(s.String("seconds")),
		)
	}
	w.Flush()

	countMsg := "channel"
	if len(snaps) != 1 {
		countMsg = "channels"
	}
	printer.Info("\n%d %s\n", len(snaps), countMsg)
}

func runChannelHangup(cmd *cobra.Command, args []string) error {
	return withChannel(cmd, args[0], "Hangup", func(ch *views.Channel) (string, error) {
		return ch.Hangup()
	})
}

func runChannelRedirect(cmd *cobra.Command, args []string) error {
	exten := args[1]
	return withChannel(cmd, args[0], "Redirect", func(ch *views.Channel) (string, error) {
		opts := ami.NewRecord("Priority", redirectPriority)
		if redirectContext != "" {
			opts.Set("Context", redirectContext)
		}
		return ch.Redirect(exten, opts)
	})
}

func runChannelDTMF(cmd *cobra.Command, args []string) error {
	digits := args[1]
	return withChannel(cmd, args[0], "PlayDTMF", func(ch *views.Channel) (string, error) {
		return "", ch.PlayDTMF(cmd.Context(), digits, dtmfInterval)
	})
}

// withChannel connects and runs one send-only channel action.
func withChannel(cmd *cobra.Command, name, operation string, fn func(*views.Channel) (string, error)) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := connect(cmd.Context(), cmd, cfg)
	if err != nil {
		return err
	}
	defer disconnect(client)

	id, err := fn(views.NewChannel(client, name))
	if err != nil {
		return printer.ManagerError(operation, cfg.Manager.Addr(), err)
	}
	if id != "" {
		printer.Success("%s sent for %s (%s)\n", operation, name, id)
	} else {
		printer.Success("%s sent for %s\n", operation, name)
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func bracket(s string) string {
	if s == "" {
		return ""
	}
	return "<" + s + ">"
}
