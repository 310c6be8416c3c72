package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/labdash/internal/errors"
	"github.com/spf13/cobra"
)

// Global flags
var (
	configFlag  string
	noColorFlag bool
)

// rootCmd runs the dashboard when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "labdash",
	Short: "Full-screen GPU and host telemetry dashboard for the lab",
	Long: `labdash shows live GPU usage and temperature, CPU and RAM load, and the
busiest processes of every lab machine on one screen.

Machines push their readings as small UDP datagrams ('labdash send'), or the
dashboard queries the machine it runs on directly.

Examples:
  labdash
  labdash --config ~/lab.yaml
  labdash send --kind gpu --to kiosk:12345`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag || os.Getenv("NO_COLOR") != "" {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardCommand(configFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default: ./labdash.yaml, then ~/.config/labdash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if isUnknownCommandError(err) {
			fmt.Fprintln(os.Stderr, "\nRun 'labdash --help' for a list of commands.")
		}
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for command-line and configuration mistakes, 1 otherwise.
func exitCode(err error) int {
	if isUnknownCommandError(err) || errors.IsCode(err, errors.ErrConfig) {
		return 2
	}
	return 1
}

// isUnknownCommandError reports whether cobra rejected the command line itself.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}
