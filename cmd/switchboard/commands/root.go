package commands

import (
	"fmt"
	"io"
	"log"

	"github.com/dyluth/switchboard/internal/printer"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// Global flags
var (
	configPath   string
	hostFlag     string
	portFlag     int
	usernameFlag string
	secretFlag   string
	debugFlag    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Switchboard - manager interface client for telephony switches",
	Long: `Switchboard talks to a telephony switch over its manager interface.

It sends actions and console commands, follows live events, inspects
channels, conferences and extensions, and keeps a queryable history of
everything a session receives.

Connection settings come from switchboard.yml (see 'switchboard init') and
can be overridden with --host, --port, --username and --secret.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		printer.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
		// Client lifecycle logs are only interesting when debugging
		if debugFlag {
			log.SetOutput(cmd.ErrOrStderr())
		} else {
			log.SetOutput(io.Discard)
		}
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "f", defaultConfigPath, "Path to switchboard.yml")
	flags.StringVar(&hostFlag, "host", "", "Manager host (overrides config)")
	flags.IntVar(&portFlag, "port", 0, "Manager port (overrides config)")
	flags.StringVarP(&usernameFlag, "username", "u", "", "Manager username (overrides config)")
	flags.StringVar(&secretFlag, "secret", "", "Manager secret (overrides config)")
	flags.BoolVar(&debugFlag, "debug", false, "Print every record received and client logs to stderr")
}
