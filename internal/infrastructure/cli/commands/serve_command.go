package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/heldhq/held/internal/app"
)

// NewServeCommand creates the serve command
func NewServeCommand(lazy *app.Lazy) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat endpoint over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := lazy.Get(cmd.Context())
			if err != nil {
				return err
			}
			if addr != "" {
				container.Config.Server.Addr = addr
			}

			server, err := container.NewServer()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "held listening on %s (providers: %v)\n",
				container.Config.Server.Addr, container.Dispatcher.Names())
			return server.Run(ctx, container.ShutdownTimeout())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
