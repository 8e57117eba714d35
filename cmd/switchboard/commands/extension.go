package commands

import (
	"context"
	"time"

	"github.com/dyluth/switchboard/internal/printer"
	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/dyluth/switchboard/pkg/views"
	"github.com/spf13/cobra"
)

var (
	extensionContext string
	extensionTimeout time.Duration
)

var extensionCmd = &cobra.Command{
	Use:   "extension EXTEN",
	Short: "Show the state of an extension",
	Long: `Query the hint state of an extension: Idle, InUse, Busy, Unavailable,
Ringing or OnHold.

Examples:
  switchboard extension 100
  switchboard extension 100 --context internal`,
	Args: cobra.ExactArgs(1),
	RunE: runExtension,
}

func init() {
	extensionCmd.Flags().StringVar(&extensionContext, "context", "", "Dialplan context (default from config)")
	extensionCmd.Flags().DurationVar(&extensionTimeout, "timeout", 10*time.Second, "How long to wait for the switch")
	rootCmd.AddCommand(extensionCmd)
}

func runExtension(cmd *cobra.Command, args []string) error {
	return withManager(cmd, extensionTimeout, func(ctx context.Context, client *ami.Client, addr string) error {
		ext := views.NewExtension(client, args[0], extensionContext)
		status, err := ext.Status(ctx)
		if err != nil {
			return printer.ManagerError("Extension state", addr, err)
		}
		printer.Printf("%s: %s (%d)\n", ext, status, int(status))
		return nil
	})
}
