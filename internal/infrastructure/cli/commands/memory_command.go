package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heldhq/held/internal/app"
	"github.com/heldhq/held/internal/domain"
)

// NewMemoryCommand creates the memory command with its subcommands
func NewMemoryCommand(lazy *app.Lazy) *cobra.Command {
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect or forget conversation memory",
	}
	memoryCmd.AddCommand(newMemoryShowCommand(lazy), newMemoryPurgeCommand(lazy))
	return memoryCmd
}

// newMemoryShowCommand creates the 'memory show' subcommand
func newMemoryShowCommand(lazy *app.Lazy) *cobra.Command {
	var user, session string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the remembered turns of a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if strings.TrimSpace(session) == "" {
				return errors.New(ErrSessionRequired)
			}
			container, err := lazy.Get(ctx)
			if err != nil {
				return err
			}
			caller, err := container.Caller(ctx, user)
			if err != nil {
				return err
			}

			turns := container.Memory.Load(ctx, caller.UserID, strings.TrimSpace(session))
			out := cmd.OutOrStdout()
			if len(turns) == 0 {
				fmt.Fprintln(out, MsgNoMemory)
				return nil
			}
			for _, turn := range turns {
				fmt.Fprintf(out, "%s: %s\n", turn.Role, turn.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, flagUser, "u", "", "Session owner")
	cmd.Flags().StringVarP(&session, flagSession, "s", "", "Session id")
	return cmd
}

// newMemoryPurgeCommand creates the 'memory purge' subcommand
func newMemoryPurgeCommand(lazy *app.Lazy) *cobra.Command {
	var user, session string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Forget a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := lazy.Get(ctx)
			if err != nil {
				return err
			}
			caller, err := container.Caller(ctx, user)
			if err != nil {
				return err
			}

			purged, err := container.Recall.Purge(ctx, caller, domain.PurgeRequest{SessionID: session})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %s\n", purged)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, flagUser, "u", "", "Session owner")
	cmd.Flags().StringVarP(&session, flagSession, "s", "", "Session id")
	return cmd
}
