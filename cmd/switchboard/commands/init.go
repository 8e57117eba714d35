package commands

import (
	"fmt"

	"github.com/dyluth/switchboard/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a switchboard.yml in the current directory",
	Long: `Create a switchboard configuration in the current directory.

Creates:
  • switchboard.yml - Manager connection, keepalive and sink settings
  • .switchboard/   - Local event history

Use --force to reinitialize (WARNING: destroys existing configuration and history).`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Force reinitialization (removes existing switchboard.yml and .switchboard/)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	// Check for existing files (unless --force)
	if !forceInit {
		if err := scaffold.CheckExisting("."); err != nil {
			return err
		}
	}

	if err := scaffold.Initialize(".", forceInit, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(cmd.OutOrStdout())

	return nil
}
