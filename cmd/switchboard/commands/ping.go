package commands

import (
	"time"

	"github.com/dyluth/switchboard/internal/printer"
	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/spf13/cobra"
)

var pingTimeout time.Duration

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the manager is reachable and answering",
	Long: `Connect, log in, send a Ping action and wait for the reply.

Examples:
  switchboard ping
  switchboard ping --host pbx.example.com --username admin --secret s3cret`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 5*time.Second, "How long to wait for the reply")
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd.Context(), pingTimeout)
	defer cancel()

	client, err := connect(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer disconnect(client)

	start := time.Now()
	reply, err := client.Request(ctx, "Ping", ami.Record{})
	if err != nil {
		return printer.ManagerError("Ping", cfg.Manager.Addr(), err)
	}

	answer := reply.Value("Ping")
	if answer == "" {
		answer = reply.Name()
	}
	printer.Success("%s from %s in %s\n", answer, cfg.Manager.Addr(), time.Since(start).Round(time.Millisecond))
	printer.Info("  %s\n", client.Banner())
	return nil
}
