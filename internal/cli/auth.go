package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/usecase"
)

func loginCmd(g *globalOpts) *cobra.Command {
	var username string
	var password string
	var passwordStdin bool

	c := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the processing service and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				p, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = p
			}

			return withApp(cmd, g, func(a *app) error {
				uc := usecase.NewLogin(a.api.Auth, a.session)
				if err := uc.Execute(cmd.Context(), username, password); err != nil {
					return err
				}
				a.log.Info("cli.login", "username", username)

				sess, _ := a.session.Session()
				return printOut(cmd.OutOrStdout(), g.format, map[string]any{
					"username":   username,
					"expires_at": sess.ExpiresAt,
				}, func(w io.Writer) {
					fmt.Fprintf(w, "Logged in as %s (session valid until %s)\n",
						username, sess.ExpiresAt.Local().Format(time.DateTime))
				})
			})
		},
	}

	c.Flags().StringVarP(&username, "username", "u", "", "Username (required)")
	c.Flags().StringVarP(&password, "password", "p", "", "Password")
	c.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	c.MarkFlagsMutuallyExclusive("password", "password-stdin")
	_ = c.MarkFlagRequired("username")
	return c
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func logoutCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				if !a.session.IsAuthenticated() {
					fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
					return nil
				}
				a.session.Logout("logged out")
				return nil
			})
		},
	}
}

type whoami struct {
	Subject   string         `json:"subject"`
	IssuedAt  time.Time      `json:"issued_at,omitzero"`
	ExpiresAt time.Time      `json:"token_expires_at,omitzero"`
	Session   time.Time      `json:"session_expires_at"`
	Extra     map[string]any `json:"claims,omitempty"`
}

func whoamiCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity carried by the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				sess, ok := a.session.Session()
				if !ok {
					return &domain.OpError{
						Op:   "cli.whoami",
						Kind: domain.KindAuthentication,
						Err:  domain.ErrNotAuthenticated,
					}
				}
				claims, err := a.session.Claims()
				if err != nil {
					return err
				}

				out := whoami{
					Subject:   claims.Subject,
					IssuedAt:  claims.IssuedAt,
					ExpiresAt: claims.ExpiresAt,
					Session:   sess.ExpiresAt,
					Extra:     claims.Extra,
				}
				return printOut(cmd.OutOrStdout(), g.format, out, func(w io.Writer) {
					fmt.Fprintf(w, "Subject:  %s\n", out.Subject)
					if !out.ExpiresAt.IsZero() {
						fmt.Fprintf(w, "Token:    expires %s\n", out.ExpiresAt.Local().Format(time.DateTime))
					}
					fmt.Fprintf(w, "Session:  expires %s\n", out.Session.Local().Format(time.DateTime))
				})
			})
		},
	}
}
