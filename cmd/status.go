package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type statusReport struct {
	APIURL     string `json:"apiUrl" yaml:"apiUrl"`
	Server     string `json:"server" yaml:"server"`
	LoggedIn   bool   `json:"loggedIn" yaml:"loggedIn"`
	User       string `json:"user,omitempty" yaml:"user,omitempty"`
	CurrentApp string `json:"currentApp,omitempty" yaml:"currentApp,omitempty"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the connection to the server and the login state",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.client()
			if err != nil {
				return err
			}

			report := statusReport{APIURL: a.apiURL(), Server: "unreachable", CurrentApp: a.cfg.CurrentApp}
			health, healthErr := c.Health(ctx)
			if healthErr == nil {
				report.Server = health.Status
				if report.Server == "" {
					report.Server = "ok"
				}
				if report.LoggedIn = c.CheckToken(ctx); report.LoggedIn {
					if user, err := c.Me(ctx); err == nil {
						report.User = user.Username
					}
				}
			} else {
				a.logger.Debug("health check failed", zap.Error(healthErr))
			}

			if ok, err := a.out.Data(report); ok {
				if err != nil {
					return err
				}
			} else {
				a.out.Field("API URL", report.APIURL)
				if healthErr != nil {
					a.out.Errorf("Server unreachable: %v", healthErr)
				} else {
					a.out.Field("Server", report.Server)
				}
				switch {
				case report.User != "":
					a.out.Field("Logged in as", report.User)
				case healthErr == nil:
					a.out.Field("Logged in", "no (run `ota login`)")
				}
				if report.CurrentApp != "" {
					a.out.Field("Current app", report.CurrentApp)
				}
			}

			if healthErr != nil {
				return errReported
			}
			return nil
		}),
	}
}
