package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/switchboard/internal/printer"
	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/spf13/cobra"
)

var (
	actionWait    bool
	actionTimeout time.Duration
)

var actionCmd = &cobra.Command{
	Use:   "action NAME [KEY=VALUE ...]",
	Short: "Send a manager action",
	Long: `Send an action with optional headers and print its ActionID.

With --wait, block until the Response carrying that ActionID arrives and
print it. An Error response exits non-zero.

Examples:
  # Fire and forget
  switchboard action Hangup Channel=SIP/100-00000001

  # Wait for the response
  switchboard action --wait CoreStatus

  # Supply your own correlation id
  switchboard action --wait Ping ActionID=probe-1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAction,
}

func init() {
	actionCmd.Flags().BoolVarP(&actionWait, "wait", "w", false, "Wait for the response and print it")
	actionCmd.Flags().DurationVar(&actionTimeout, "timeout", 10*time.Second, "How long --wait waits (0 waits forever)")
	rootCmd.AddCommand(actionCmd)
}

// parseHeaders turns KEY=VALUE arguments into an action's options.
func parseHeaders(args []string) (ami.Record, error) {
	opts := ami.NewRecord()
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return ami.Record{}, fmt.Errorf("invalid header %q (expected KEY=VALUE)", arg)
		}
		opts.Set(strings.TrimSpace(key), value)
	}
	return opts, nil
}

func runAction(cmd *cobra.Command, args []string) error {
	name := args[0]
	opts, err := parseHeaders(args[1:])
	if err != nil {
		return printer.Error("invalid action header", err.Error(), []string{"Headers look like: Channel=SIP/100"})
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

	if !actionWait {
		id, err := client.SendAction(name, opts)
		if err != nil {
			return printer.ManagerError(name, cfg.Manager.Addr(), err)
		}
		printer.Println(id)
		return nil
	}

	ctx, cancel := withTimeout(cmd.Context(), actionTimeout)
	defer cancel()

	reply, err := client.Request(ctx, name, opts)
	if err != nil && !reply.Has(ami.HeaderResponse) {
		return printer.ManagerError(name, cfg.Manager.Addr(), err)
	}

	printer.Fields(reply.Keys(), reply.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
