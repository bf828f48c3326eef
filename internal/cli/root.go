package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/ui/tui"
)

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		reportError(cmd.ErrOrStderr(), err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOpts{}

	cmd := &cobra.Command{
		Use:           "doclane",
		Short:         "doclane: console for the document processing service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return checkFormat(g.format)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, g, tui.ScreenMenu)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVar(&g.debug, "debug", false, "enable verbose logging to ~/.doclane/logs/doclane.log")
	pf.StringVar(&g.config, "config", "", "path to doclane.yaml (default: search upward, then ~/.doclane)")
	pf.StringVar(&g.apiURL, "api-url", "", "service base URL (overrides config and DOCLANE_API_URL)")
	pf.StringVar(&g.format, "format", formatPretty, "Output format: pretty|json")

	cmd.AddCommand(
		loginCmd(g),
		logoutCmd(g),
		whoamiCmd(g),
		docsCmd(g),
		resultsCmd(g),
		queueCmd(g),
		statsCmd(g),
		metricsCmd(g),
		watchCmd(g),
		mockServerCmd(g),
		initCmd(),
		versionCmd(),
	)
	return cmd
}

// reportError prints the user-facing message, plus the raw error when it adds detail.
func reportError(w io.Writer, err error) {
	msg := tui.UserMessage(err)
	fmt.Fprintln(w, "Error:", msg)
	if domain.IsKind(err, domain.KindExecution) || msg == tui.UnexpectedMessage {
		fmt.Fprintln(w, " ", err)
	}
}

// withApp opens the client stack for the duration of fn.
func withApp(cmd *cobra.Command, g *globalOpts, fn func(a *app) error) error {
	a, err := openApp(cmd.Context(), g, &loginPrompt{w: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}
