// Package cli wires the held command tree.
package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heldhq/held/internal/app"
	"github.com/heldhq/held/internal/infrastructure/cli/commands"
)

// EnvDebug turns on debug logging when set to 1 or true.
const EnvDebug = "HELD_DEBUG"

// NewRootCmd wires the cobra root command. The returned func releases the
// container if any command built it.
func NewRootCmd() (*cobra.Command, func() error) {
	opts := &app.Options{Verbose: isVerbose()}
	lazy := app.NewLazy(opts)

	root := &cobra.Command{
		Use:   "held",
		Short: "held - ask questions about your shell history",
		Long: "held stores captured shell commands and answers natural-language questions about them\n" +
			"through a chat endpoint grounded on your own history.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Config file (default $HELD_CONFIG or ~/.held/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", opts.Verbose, "Enable debug logging")

	root.AddCommand(
		commands.NewServeCommand(lazy),
		commands.NewAskCommand(lazy),
		commands.NewImportCommand(lazy),
		commands.NewUsageCommand(lazy),
		commands.NewQuotaCommand(lazy),
		commands.NewTokenCommand(lazy),
		commands.NewMemoryCommand(lazy),
		commands.NewConfigCommand(lazy),
		commands.NewDoctorCommand(lazy),
		commands.NewVersionCommand(),
	)
	return root, lazy.Close
}

func isVerbose() bool {
	v := os.Getenv(EnvDebug)
	return v == "1" || strings.EqualFold(v, "true")
}
