package cli

import (
	"github.com/spf13/cobra"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/infra/logger"
	"github.com/aalvaropc/doclane/internal/ui/tui"
)

func watchCmd(g *globalOpts) *cobra.Command {
	var dashboard bool

	c := &cobra.Command{
		Use:   "watch",
		Short: "Open the live queue and dashboard console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := tui.ScreenQueue
			if dashboard {
				start = tui.ScreenDashboard
			}
			return runWatch(cmd, g, start)
		},
	}

	c.Flags().BoolVar(&dashboard, "dashboard", false, "Start on the dashboard instead of the queue")
	return c
}

func runWatch(cmd *cobra.Command, g *globalOpts, start tui.Screen) error {
	nav := tui.NewSessionNotifier()
	a, err := openApp(cmd.Context(), g, nav)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !a.session.IsAuthenticated() {
		return &domain.OpError{
			Op:   "cli.watch",
			Kind: domain.KindAuthentication,
			Err:  domain.ErrNotAuthenticated,
		}
	}

	user := ""
	if claims, err := a.session.Claims(); err == nil {
		user = claims.Subject
	}

	a.log.Info("cli.watch.start", "screen", int(start))
	return tui.Run(cmd.Context(), tui.Deps{
		Documents: a.api.Documents,
		Dashboard: a.api.Dashboard,
		Bus:       a.bus,
		Polling:   a.cfg.Polling,
		Group:     a.polls,
		Session:   nav,
		BaseURL:   a.cfg.API.BaseURL,
		User:      user,
		Logger:    logger.L(),
		Debug:     g.debug,
	}, start)
}
