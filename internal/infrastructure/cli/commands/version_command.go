package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heldhq/held/internal/version"
)

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show held version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), versionLine())
			return err
		},
	}
}

// versionLine renders e.g. "held version 1.2.0 (commit abc123, built 2026-01-02, go1.25.3)".
func versionLine() string {
	details := []string{}
	if version.Commit != "" {
		details = append(details, "commit "+version.Commit)
	}
	if version.BuildDate != "" {
		details = append(details, "built "+version.BuildDate)
	}
	details = append(details, runtime.Version())
	return fmt.Sprintf("held version %s (%s)", version.Version, strings.Join(details, ", "))
}
