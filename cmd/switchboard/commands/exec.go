package commands

import (
	"strings"
	"time"

	"github.com/dyluth/switchboard/internal/printer"
	"github.com/spf13/cobra"
)

var execTimeout time.Duration

var execCmd = &cobra.Command{
	Use:   "exec COMMAND...",
	Short: "Run a console command and print its output",
	Long: `Run a console command through the manager and print its output.

Arguments are joined with spaces, so quoting is optional.

Examples:
  switchboard exec core show channels
  switchboard exec "sip show peers"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().DurationVar(&execTimeout, "timeout", 10*time.Second, "How long to wait for the output (0 waits forever)")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	client, err := connect(cmd.Context(), cmd, cfg)
	if err != nil {
		return err
	}
	defer disconnect(client)

	ctx, cancel := withTimeout(cmd.Context(), execTimeout)
	defer cancel()

	out, err := client.ExecuteCommand(ctx, text)
	if err != nil {
		return printer.ManagerError("Command", cfg.Manager.Addr(), err)
	}

	printer.Println(out)
	return nil
}
