package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/coinledger/internal/httpapi"
)

func newServeCommand(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.Config.HTTP.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return httpapi.NewServer(a).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
