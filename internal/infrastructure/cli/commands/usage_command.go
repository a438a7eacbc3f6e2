package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heldhq/held/internal/app"
	"github.com/heldhq/held/internal/domain"
)

// NewUsageCommand creates the usage command
func NewUsageCommand(lazy *app.Lazy) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show today's team usage against its quota",
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
			if !caller.HasTeam() {
				fmt.Fprintln(cmd.OutOrStdout(), MsgNoTeam)
				return nil
			}

			day, total, quota, err := container.Gate.Today(ctx, caller.UserID, caller.TeamID)
			if err != nil {
				return fmt.Errorf("load usage: %w", err)
			}
			displayUsage(cmd.OutOrStdout(), caller.TeamID, day, total, quota)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, flagUser, "u", "", "Team member whose day is reported")
	return cmd
}

// NewQuotaCommand creates the quota command with its subcommands
func NewQuotaCommand(lazy *app.Lazy) *cobra.Command {
	quotaCmd := &cobra.Command{
		Use:   "quota",
		Short: "Manage team quotas",
	}
	quotaCmd.AddCommand(newQuotaSetCommand(lazy), newQuotaShowCommand(lazy))
	return quotaCmd
}

// newQuotaSetCommand creates the 'quota set' subcommand
func newQuotaSetCommand(lazy *app.Lazy) *cobra.Command {
	var (
		team    string
		calls   int64
		tokens  int64
		storage string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Record a new quota for a team, effective now",
		RunE: func(cmd *cobra.Command, args []string) error {
			team = strings.TrimSpace(team)
			if team == "" {
				return errors.New(ErrTeamRequired)
			}

			quota := domain.Quota{TeamID: team, EffectiveAt: time.Now().UTC()}
			if cmd.Flags().Changed("calls") {
				quota.APICallsPerDay = &calls
			}
			if cmd.Flags().Changed("tokens") {
				quota.TokensPerDay = &tokens
			}
			if cmd.Flags().Changed("storage") {
				n, err := humanize.ParseBytes(storage)
				if err != nil {
					return fmt.Errorf("invalid --storage: %w", err)
				}
				bytes := int64(n)
				quota.StorageBytes = &bytes
			}
			if quota.APICallsPerDay == nil && quota.TokensPerDay == nil && quota.StorageBytes == nil {
				return errors.New(ErrQuotaEmpty)
			}

			container, err := lazy.Get(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.Store.Quotas().Insert(cmd.Context(), quota); err != nil {
				return fmt.Errorf("save quota: %w", err)
			}
			displayQuota(cmd.OutOrStdout(), &quota)
			return nil
		},
	}

	cmd.Flags().StringVarP(&team, flagTeam, "t", "", "Team id")
	cmd.Flags().Int64Var(&calls, "calls", 0, "API calls per day")
	cmd.Flags().Int64Var(&tokens, "tokens", 0, "Estimated tokens per day")
	cmd.Flags().StringVar(&storage, "storage", "", "Storage limit, e.g. 50MB")
	return cmd
}

// newQuotaShowCommand creates the 'quota show' subcommand
func newQuotaShowCommand(lazy *app.Lazy) *cobra.Command {
	var team string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the quota in effect for a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(team) == "" {
				return errors.New(ErrTeamRequired)
			}
			container, err := lazy.Get(cmd.Context())
			if err != nil {
				return err
			}
			quota, err := container.Store.Quotas().Latest(cmd.Context(), strings.TrimSpace(team))
			if errors.Is(err, domain.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), MsgNoQuota)
				return nil
			}
			if err != nil {
				return fmt.Errorf("load quota: %w", err)
			}
			displayQuota(cmd.OutOrStdout(), &quota)
			return nil
		},
	}

	cmd.Flags().StringVarP(&team, flagTeam, "t", "", "Team id")
	return cmd
}

func displayUsage(out io.Writer, team, day string, total domain.UsageTotals, quota *domain.Quota) {
	var calls, tokens, storage *int64
	if quota != nil {
		calls, tokens, storage = quota.APICallsPerDay, quota.TokensPerDay, quota.StorageBytes
	}
	fmt.Fprintf(out, "Team:    %s\n", team)
	fmt.Fprintf(out, "Day:     %s\n", day)
	fmt.Fprintf(out, "Calls:   %s / %s\n", humanize.Comma(total.APICalls), countLimit(calls))
	fmt.Fprintf(out, "Tokens:  %s / %s\n", humanize.Comma(total.TokenCount), countLimit(tokens))
	fmt.Fprintf(out, "Storage: %s / %s\n", humanize.Bytes(uint64(total.StorageBytes)), byteLimit(storage))
}

func displayQuota(out io.Writer, quota *domain.Quota) {
	fmt.Fprintf(out, "Team:      %s\n", quota.TeamID)
	fmt.Fprintf(out, "Calls:     %s per day\n", countLimit(quota.APICallsPerDay))
	fmt.Fprintf(out, "Tokens:    %s per day\n", countLimit(quota.TokensPerDay))
	fmt.Fprintf(out, "Storage:   %s\n", byteLimit(quota.StorageBytes))
	fmt.Fprintf(out, "Effective: %s (%s)\n", quota.EffectiveAt.Format(domain.TimestampFormat), humanize.Time(quota.EffectiveAt))
}

func countLimit(v *int64) string {
	if v == nil {
		return "unlimited"
	}
	return humanize.Comma(*v)
}

func byteLimit(v *int64) string {
	if v == nil {
		return "unlimited"
	}
	return humanize.Bytes(uint64(*v))
}
