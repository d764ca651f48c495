package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openexpoota/ota/internal/api"
)

func newListAppsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list-apps",
		Aliases: []string{"apps"},
		Short:   "List your apps on the server",
		Args:    cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			apps, err := c.ListApps(cmd.Context())
			if err != nil {
				return fmt.Errorf("list apps: %w", err)
			}
			if err := a.out.Apps(apps); err != nil {
				return err
			}
			if a.out.Text() && a.cfg.CurrentApp != "" {
				if cur := api.FindApp(apps, a.cfg.CurrentApp); cur != nil {
					a.out.Infof("Current app: %s (%s)", cur.Name, cur.Slug)
				}
			}
			return nil
		}),
	}
}

func newListUpdatesCmd(a *app) *cobra.Command {
	var (
		f       appFlags
		channel string
	)

	cmd := &cobra.Command{
		Use:     "list-updates",
		Aliases: []string{"updates"},
		Short:   "List the updates published for an app",
		Args:    cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var filter api.Channel
			if channel != "" {
				ch, err := api.ParseChannel(channel)
				if err != nil {
					return err
				}
				filter = ch
			}

			c, err := a.authedClient(ctx)
			if err != nil {
				return err
			}
			target, err := a.resolveApp(ctx, c, &f)
			if err != nil {
				return err
			}
			updates, err := c.ListUpdates(ctx, target.ID)
			if err != nil {
				return fmt.Errorf("list updates: %w", err)
			}

			if filter != "" {
				kept := updates[:0]
				for _, u := range updates {
					if u.Channel == filter {
						kept = append(kept, u)
					}
				}
				updates = kept
			}
			return a.out.Updates(target, updates)
		}),
	}

	f.register(cmd, true)
	cmd.Flags().StringVarP(&channel, "channel", "c", "", "Only show updates on this channel")
	return cmd
}
