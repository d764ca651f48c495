package cmd

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openexpoota/ota/internal/login"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		apiURL    string
		port      int
		noBrowser bool
		showQR    bool
		token     string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the OTA server with GitHub",
		Long: `Log in to the OTA server.

A local listener is started on --port and the browser is sent to the server's
GitHub OAuth page. Once you authorize, the server redirects back to the
listener with a token, which is verified and saved to the config directory.

Use --token to save an existing token without the browser flow.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if apiURL != "" {
				a.cfg.APIURL = apiURL
				a.v.Set("api-url", apiURL)
				if err := a.store.Save(a.cfg); err != nil {
					return err
				}
				a.out.Successf("API URL set to %s", apiURL)
			}

			if token != "" {
				return a.completeLogin(ctx, token)
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			if c.CheckToken(ctx) {
				user, err := c.Me(ctx)
				if err != nil {
					return err
				}
				a.out.Successf("You are already logged in as %s", user.Username)
				return nil
			}

			ln, err := login.Listen(net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), a.logger)
			if err != nil {
				return err
			}
			loginURL := c.LoginURL(ln.RedirectURL())

			a.out.Infof("Starting GitHub OAuth login...")
			if !noBrowser {
				a.out.Mutedf("Opening browser for authentication...")
				if err := a.openBrowser(loginURL); err != nil {
					a.logger.Warn("could not open browser", zap.Error(err))
				}
			}
			a.out.Mutedf("Waiting for authentication to complete...")
			a.out.Mutedf("If your browser does not open automatically, please visit:")
			a.out.Infof("%s", loginURL)
			if showQR {
				a.out.QR(loginURL)
			}

			res := ln.Wait(ctx, timeout)
			if res.Err != nil {
				return res.Err
			}
			return a.completeLogin(ctx, res.Token)
		}),
	}

	cmd.Flags().StringVarP(&apiURL, "url", "u", "", "API URL to use and save (e.g. http://localhost:3000/api)")
	cmd.Flags().IntVar(&port, "port", 8080, "Local port for the OAuth callback")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the login URL instead of opening a browser")
	cmd.Flags().BoolVar(&showQR, "qr", false, "Also show the login URL as a QR code")
	cmd.Flags().StringVar(&token, "token", "", "Save an existing API token instead of logging in with the browser")
	cmd.Flags().DurationVar(&timeout, "timeout", login.DefaultTimeout, "How long to wait for the browser callback")
	return cmd
}

// completeLogin verifies token against the server before saving it.
func (a *app) completeLogin(ctx context.Context, token string) error {
	user, err := a.newClient(token).Me(ctx)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	if err := a.store.SaveToken(token); err != nil {
		return err
	}
	a.out.Successf("Successfully logged in as %s", user.Username)
	return nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved token",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.store.ClearToken(); err != nil {
				return err
			}
			a.out.Successf("Logged out.")
			return nil
		}),
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			user, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			if ok, err := a.out.Data(user); ok {
				return err
			}
			a.out.Field("User", user.Username)
			if user.Email != "" {
				a.out.Field("Email", user.Email)
			}
			a.out.Field("Server", a.apiURL())
			if a.cfg.CurrentApp != "" {
				a.out.Field("Current app", a.cfg.CurrentApp)
			}
			return nil
		}),
	}
}
