package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openexpoota/ota/internal/api"
)

func newInviteCmd(a *app) *cobra.Command {
	var (
		f        appFlags
		username string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite a GitHub user to collaborate on an app",
		Long: `Invite a GitHub user to collaborate on an app.

The user must have logged in to the server at least once before they can be
invited.`,
		Example: `  ota invite --username octocat --role developer`,
		Args:    cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.authedClient(ctx)
			if err != nil {
				return err
			}
			target, err := a.resolveApp(ctx, c, &f)
			if err != nil {
				return err
			}
			p, err := a.prompt()
			if err != nil {
				return err
			}

			if username == "" {
				if username, err = p.Input("Enter GitHub username to invite:", "", requireNonEmpty("username")); err != nil {
					return err
				}
			}

			r := api.Role(role)
			if !r.Valid() {
				labels := make([]string, len(api.Roles))
				def := 0
				for i, rr := range api.Roles {
					labels[i] = string(rr)
					if rr == api.RoleDeveloper {
						def = i
					}
				}
				i, err := p.Select("Select role for the invited user:", labels, def)
				if err != nil {
					return err
				}
				r = api.Roles[i]
			}

			ok, err := p.Confirm(fmt.Sprintf("Are you sure you want to invite GitHub user %q to %s (%s) as %s?", username, target.Name, target.Slug, r), true)
			if err != nil {
				return err
			}
			if !ok {
				a.out.Mutedf("Invitation cancelled.")
				return nil
			}

			a.out.Infof("Inviting %s to %s (%s) as %s...", username, target.Name, target.Slug, r)
			res, err := c.InviteUser(ctx, target.ID, username, r)
			if errors.Is(err, api.ErrUserNotFound) {
				a.out.Errorf("User not found.")
				a.out.Mutedf("The user must have logged in to the system at least once to be invited.")
				return errReported
			}
			if err != nil {
				return fmt.Errorf("invite user: %w", err)
			}
			if ok, err := a.out.Data(res); ok {
				return err
			}
			a.out.Successf("%s", res.Message)
			return nil
		}),
	}

	f.register(cmd, true)
	cmd.Flags().StringVarP(&username, "username", "u", "", "GitHub username to invite")
	cmd.Flags().StringVarP(&role, "role", "r", "", "Role: admin or developer")
	return cmd
}
