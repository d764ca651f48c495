package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openexpoota/ota/internal/api"
)

func newPromoteCmd(a *app) *cobra.Command {
	var (
		f        appFlags
		updateID int64
		channel  string
	)

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote an update to another release channel",
		Long: `Promote an update to another release channel.

The server copies the update onto the target channel as a new update; the
original stays where it is. Without --update-id or --channel you are asked to
pick them.`,
		Example: `  ota promote --update-id 42 --channel production`,
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

			if updateID == 0 {
				id, ok, err := a.selectUpdate(ctx, c, target, "Select an update to promote:")
				if err != nil || !ok {
					return err
				}
				updateID = id
			}

			ch, err := api.ParseChannel(channel)
			if err != nil {
				if ch, err = a.selectChannel(); err != nil {
					return err
				}
			}

			ok, err := a.confirm(fmt.Sprintf("Are you sure you want to promote update ID %d to the %s channel?", updateID, ch), false)
			if err != nil {
				return err
			}
			if !ok {
				a.out.Mutedf("Promotion cancelled.")
				return nil
			}

			a.out.Infof("Promoting update ID %d to %s channel...", updateID, ch)
			res, err := c.PromoteUpdate(ctx, target.ID, updateID, ch)
			if err != nil {
				return fmt.Errorf("promote update: %w", err)
			}

			if ok, err := a.out.Data(res.Update); ok {
				return err
			}
			a.out.Successf("Update promoted successfully!")
			a.out.Mutedf("New update ID: %d", res.Update.ID)
			a.out.Mutedf("Channel: %s", res.Update.Channel)
			a.out.Mutedf("Version: %s", res.Update.Version)
			return nil
		}),
	}

	f.register(cmd, true)
	cmd.Flags().Int64VarP(&updateID, "update-id", "u", 0, "ID of the update to promote")
	cmd.Flags().StringVarP(&channel, "channel", "c", "", "Target channel: production, staging or development")
	return cmd
}

func newRollbackCmd(a *app) *cobra.Command {
	var (
		f        appFlags
		updateID int64
	)

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Republish an earlier update on its channel",
		Long: `Republish an earlier update on its channel.

The server creates a new update flagged as a rollback that points at the
selected update's bundle. Clients on that channel receive it on their next
check.`,
		Args: cobra.NoArgs,
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

			if updateID == 0 {
				id, ok, err := a.selectUpdate(ctx, c, target, "Select an update to roll back to:")
				if err != nil || !ok {
					return err
				}
				updateID = id
			}

			ok, err := a.confirm(fmt.Sprintf("Are you sure you want to roll back to update ID %d?", updateID), false)
			if err != nil {
				return err
			}
			if !ok {
				a.out.Mutedf("Rollback cancelled.")
				return nil
			}

			res, err := c.RollbackUpdate(ctx, target.ID, updateID)
			if err != nil {
				return fmt.Errorf("roll back update: %w", err)
			}

			if ok, err := a.out.Data(res.Update); ok {
				return err
			}
			a.out.Successf("Rollback published successfully!")
			a.out.Mutedf("New update ID: %d", res.Update.ID)
			a.out.Mutedf("Channel: %s", res.Update.Channel)
			a.out.Mutedf("Version: %s", res.Update.Version)
			return nil
		}),
	}

	f.register(cmd, true)
	cmd.Flags().Int64VarP(&updateID, "update-id", "u", 0, "ID of the update to roll back to")
	return cmd
}

// selectUpdate asks the user to pick one of the app's updates. ok is false
// when the app has none.
func (a *app) selectUpdate(ctx context.Context, c *api.Client, target *api.App, label string) (id int64, ok bool, err error) {
	updates, err := c.ListUpdates(ctx, target.ID)
	if err != nil {
		return 0, false, fmt.Errorf("list updates: %w", err)
	}
	if len(updates) == 0 {
		a.out.Warnf("No updates found for %s (%s).", target.Name, target.Slug)
		a.out.Mutedf("Run `ota publish` to publish your first update.")
		return 0, false, nil
	}

	p, err := a.prompt()
	if err != nil {
		return 0, false, err
	}
	labels := make([]string, len(updates))
	for i, u := range updates {
		labels[i] = fmt.Sprintf("%s (%s) - ID: %d", u.Version, u.Channel, u.ID)
	}
	// No default: a non-interactive run must name the update.
	i, err := p.Select(label, labels, -1)
	if err != nil {
		return 0, false, err
	}
	return updates[i].ID, true, nil
}

func (a *app) selectChannel() (api.Channel, error) {
	p, err := a.prompt()
	if err != nil {
		return "", err
	}
	labels := make([]string, len(api.Channels))
	for i, ch := range api.Channels {
		labels[i] = string(ch)
	}
	i, err := p.Select("Select a target channel:", labels, -1)
	if err != nil {
		return "", err
	}
	return api.Channels[i], nil
}
