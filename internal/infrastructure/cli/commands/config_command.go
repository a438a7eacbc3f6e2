package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/heldhq/held/internal/app"
	configapp "github.com/heldhq/held/internal/application/config"
	configinfra "github.com/heldhq/held/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with all subcommands. None of
// them open the database.
func NewConfigCommand(lazy *app.Lazy) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect held configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd, lazy)
		},
	}

	configCmd.AddCommand(
		newConfigInitCommand(lazy),
		newConfigShowCommand(lazy),
		newConfigPathCommand(lazy),
		newConfigValidateCommand(lazy),
	)
	return configCmd
}

// newConfigInitCommand creates the 'config init' subcommand
func newConfigInitCommand(lazy *app.Lazy) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := loaderFor(lazy).Path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("stat config: %w", err)
			}

			if err := configinfra.WriteFile(path, configinfra.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

// newConfigShowCommand creates the 'config show' subcommand
func newConfigShowCommand(lazy *app.Lazy) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration without secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd, lazy)
		},
	}
}

// newConfigPathCommand creates the 'config path' subcommand
func newConfigPathCommand(lazy *app.Lazy) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), loaderFor(lazy).Path())
			return nil
		},
	}
}

// newConfigValidateCommand creates the 'config validate' subcommand
func newConfigValidateCommand(lazy *app.Lazy) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loaderFor(lazy).Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			if err := configapp.Validate(cfg); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgConfigurationValid)
			return nil
		},
	}
}

// showConfiguration prints the merged configuration as YAML
func showConfiguration(cmd *cobra.Command, lazy *app.Lazy) error {
	cfg, err := loaderFor(lazy).Load(cmd.Context())
	if err != nil {
		return err
	}
	raw, err := configinfra.Marshal(configinfra.Redacted(cfg))
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(raw)
	return err
}

func loaderFor(lazy *app.Lazy) *configinfra.FileLoader {
	return configinfra.NewFileLoader(lazy.Options().ConfigPath)
}
