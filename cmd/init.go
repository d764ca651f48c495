package cmd

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openexpoota/ota/internal/api"
	"github.com/openexpoota/ota/internal/config"
	"github.com/openexpoota/ota/internal/project"
	"github.com/openexpoota/ota/internal/validate"
)

const defaultAppDescription = "An Expo app with self-hosted OTA updates"

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns an app name into a slug candidate.
func slugify(name string) string {
	return strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func requireNonEmpty(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func validateSlug(s string) error {
	if s == "" {
		return errors.New("slug is required")
	}
	if !validate.IsSlug(s) {
		return errors.New("slug must contain only lowercase letters, numbers, and hyphens")
	}
	return nil
}

func newInitCmd(a *app) *cobra.Command {
	var (
		f           appFlags
		name        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Link an Expo project to an app on the server",
		Long: `Link an Expo project to an app on the server.

Select one of your existing apps or create a new one. The choice is written to
ota.config.json in the project directory and becomes the current app.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.authedClient(ctx)
			if err != nil {
				return err
			}
			dir, err := f.projectDir()
			if err != nil {
				return err
			}
			p, err := a.prompt()
			if err != nil {
				return err
			}

			info, err := project.Inspect(dir)
			switch {
			case err == nil:
				a.out.Successf("Expo project detected!")
				a.out.Mutedf("Name: %s", info.Name)
				if info.Version != "" {
					a.out.Mutedf("Version: %s", info.Version)
				}
			case errors.Is(err, project.ErrNoProject):
				a.out.Warnf("Warning: Could not detect an Expo project. Are you in the right directory?")
				proceed, err := p.Confirm("Do you want to proceed anyway?", false)
				if err != nil {
					return err
				}
				if !proceed {
					a.out.Mutedf("Initialization cancelled.")
					return nil
				}
			default:
				return err
			}

			apps, err := c.ListApps(ctx)
			if err != nil {
				return fmt.Errorf("list apps: %w", err)
			}

			var chosen *api.App
			switch {
			case f.slug != "":
				chosen = api.FindApp(apps, f.slug)
			case len(apps) > 0:
				i, err := p.Select("What would you like to do?", []string{"Create a new app", "Select an existing app"}, 0)
				if err != nil {
					return err
				}
				if i == 1 {
					labels := make([]string, len(apps))
					for j, app := range apps {
						labels[j] = fmt.Sprintf("%s (%s)", app.Name, app.Slug)
					}
					k, err := p.Select("Select an app", labels, 0)
					if err != nil {
						return err
					}
					chosen = &apps[k]
				}
			}

			if chosen == nil {
				req := api.CreateAppRequest{Name: name, Slug: f.slug, Description: description}
				if req.Name == "" {
					def := ""
					if info != nil && info.Name != "Unknown" {
						def = info.Name
					}
					if req.Name, err = p.Input("App name:", def, requireNonEmpty("name")); err != nil {
						return err
					}
				}
				if req.Slug == "" {
					if req.Slug, err = p.Input("App slug (used in URLs, lowercase letters, numbers, and hyphens only):", slugify(req.Name), validateSlug); err != nil {
						return err
					}
				}
				if !cmd.Flags().Changed("description") {
					if req.Description, err = p.Input("App description:", defaultAppDescription, nil); err != nil {
						return err
					}
				}
				if err := validate.Struct(req); err != nil {
					return fmt.Errorf("invalid app: %w", err)
				}

				chosen, err = c.CreateApp(ctx, req)
				if err != nil {
					return fmt.Errorf("create app: %w", err)
				}
				a.out.Successf("App created: %s (%s)", chosen.Name, chosen.Slug)
			}

			a.cfg.CurrentApp = chosen.Slug
			if err := a.store.Save(a.cfg); err != nil {
				return err
			}
			a.out.Successf("Current app set to %s", chosen.Slug)

			if err := config.SaveProject(dir, &config.ProjectConfig{Slug: chosen.Slug, API: a.apiURL()}); err != nil {
				return err
			}
			a.out.Successf("Created configuration file: %s", config.ProjectPath(dir))
			a.out.Infof("Your project is now set up with OpenExpoOTA!")
			a.out.Mutedf("")
			a.out.Mutedf("Next steps:")
			a.out.Mutedf("1. Run `ota publish` to publish your first update")
			a.out.Mutedf("2. Install the client library in your Expo app")
			return nil
		}),
	}

	f.register(cmd, true)
	cmd.Flags().StringVar(&name, "name", "", "Name of the app to create")
	cmd.Flags().StringVar(&description, "description", defaultAppDescription, "Description of the app to create")
	cmd.Flag("slug").Usage = "Slug of the app to select or create"
	return cmd
}
