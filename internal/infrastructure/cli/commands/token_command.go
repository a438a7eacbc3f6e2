package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/heldhq/held/internal/app"
	"github.com/heldhq/held/internal/domain"
)

// NewTokenCommand creates the token command with its subcommands
func NewTokenCommand(lazy *app.Lazy) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage local API tokens",
	}
	tokenCmd.AddCommand(newTokenIssueCommand(lazy))
	return tokenCmd
}

// newTokenIssueCommand creates the 'token issue' subcommand. It also creates
// or updates the user's profile so the token resolves to a team.
func newTokenIssueCommand(lazy *app.Lazy) *cobra.Command {
	var user, email, team, timezone string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user = strings.TrimSpace(user)
			if user == "" {
				return errors.New(ErrUserRequired)
			}
			if timezone != "" {
				if _, err := time.LoadLocation(timezone); err != nil {
					return fmt.Errorf("invalid --timezone: %w", err)
				}
			}

			container, err := lazy.Get(ctx)
			if err != nil {
				return err
			}
			profiles := container.Store.Profiles()

			profile, err := profiles.Get(ctx, user)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("load profile: %w", err)
			}
			profile.UserID = user
			if cmd.Flags().Changed("email") {
				profile.Email = email
			}
			if cmd.Flags().Changed(flagTeam) {
				profile.DefaultTeamID = strings.TrimSpace(team)
			}
			if cmd.Flags().Changed("timezone") {
				profile.Timezone = timezone
			}
			if err := profiles.Upsert(ctx, profile); err != nil {
				return fmt.Errorf("save profile: %w", err)
			}

			token, err := container.Store.Tokens().Issue(ctx, domain.Identity{UserID: user, Email: profile.Email})
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, flagUser, "u", "", "User id")
	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().StringVarP(&team, flagTeam, "t", "", "Default team (billing group)")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone used for daily usage, e.g. Europe/Berlin")
	return cmd
}
