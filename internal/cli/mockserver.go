package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/doclane/internal/infra/logger"
	"github.com/aalvaropc/doclane/internal/mockapi"
)

func mockServerCmd(g *globalOpts) *cobra.Command {
	cfg := mockapi.DefaultConfig()
	var addr string
	var secret string

	c := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory processing service for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret != "" {
				cfg.Secret = []byte(secret)
			}
			log := logger.Console(cmd.ErrOrStderr(), g.debug)
			srv := mockapi.New(cfg, mockapi.WithLogger(log))

			fmt.Fprintf(cmd.ErrOrStderr(), "mock service on http://%s (user %q), Ctrl+C to stop\n", displayAddr(addr), cfg.Username)
			return srv.Run(cmd.Context(), addr)
		},
	}

	f := c.Flags()
	f.StringVar(&addr, "addr", "127.0.0.1:8000", "Listen address")
	f.StringVar(&cfg.Username, "username", cfg.Username, "Accepted username")
	f.StringVar(&cfg.Password, "password", cfg.Password, "Accepted password")
	f.StringVar(&secret, "secret", "", "Token signing secret (default: built-in development secret)")
	f.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Lifetime of issued tokens")
	f.DurationVar(&cfg.ProcessDelay, "process-delay", cfg.ProcessDelay, "Simulated processing time per document")
	return c
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
