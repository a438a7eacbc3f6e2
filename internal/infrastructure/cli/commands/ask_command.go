package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/heldhq/held/internal/app"
	"github.com/heldhq/held/internal/domain"
)

// NewAskCommand creates the ask command
func NewAskCommand(lazy *app.Lazy) *cobra.Command {
	var (
		user        string
		session     string
		model       string
		mode        string
		maxTokens   int
		temperature float64
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask about your command history without going through HTTP",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			container, err := lazy.Get(ctx)
			if err != nil {
				return err
			}
			caller, err := container.Caller(ctx, user)
			if err != nil {
				return err
			}

			req := domain.QueryRequest{
				Q:         strings.Join(args, " "),
				Mode:      mode,
				Model:     model,
				SessionID: session,
			}
			if cmd.Flags().Changed("max-tokens") {
				req.MaxTokens = &maxTokens
			}
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &temperature
			}

			ans, err := container.Recall.Ask(ctx, caller, req, ttyCLI)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ans.Text)
			fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", ans.SessionID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, flagUser, "u", "", "User whose history is searched")
	cmd.Flags().StringVarP(&session, flagSession, "s", "", "Session id for conversation memory (default: new session)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name (default per provider)")
	cmd.Flags().StringVar(&mode, "mode", domain.ModeAI, "ai or search")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", domain.DefaultMaxTokens, "Completion token limit")
	cmd.Flags().Float64Var(&temperature, "temperature", domain.DefaultTemperature, "Sampling temperature")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Overall request timeout")
	return cmd
}
