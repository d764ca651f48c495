package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openexpoota/ota/internal/api"
	"github.com/openexpoota/ota/internal/bundle"
	"github.com/openexpoota/ota/internal/project"
	"github.com/openexpoota/ota/internal/ui"
)

type publishOptions struct {
	appFlags
	channel        string
	version        string
	runtimeVersion string
	platform       string
	dryRun         bool
}

func newPublishCmd(a *app) *cobra.Command {
	var o publishOptions

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Bundle the project and publish it as an update",
		Long: `Bundle the project and publish it as an update.

The project is exported with the Expo CLI, the main JS bundle and its assets
are packed into a ZIP archive together with metadata.json, and the archive is
uploaded to the app's update list on the chosen channel.`,
		Example: `  ota publish --channel staging
  ota publish --platform ios,android --version 1.2.0 --runtime-version 1.0.0
  ota publish --dry-run`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			dir, err := o.projectDir()
			if err != nil {
				return err
			}

			var (
				c      *api.Client
				target *api.App
			)
			if o.dryRun {
				if slug, err := a.resolveSlug(&o.appFlags); err == nil {
					a.out.Infof("Dry run for app: %s", slug)
				}
			} else {
				if c, err = a.authedClient(ctx); err != nil {
					return err
				}
				if target, err = a.resolveApp(ctx, c, &o.appFlags); err != nil {
					return err
				}
				a.out.Infof("Publishing update for app: %s (%s)", target.Name, target.Slug)
			}

			info, err := project.Inspect(dir)
			if err != nil {
				return err
			}
			meta := a.updateMetadata(&o, info)

			a.out.Mutedf("Update details:")
			a.out.Mutedf("- Version: %s", meta.Version)
			a.out.Mutedf("- Runtime Version: %s", meta.RuntimeVersion)
			a.out.Mutedf("- Channel: %s", meta.Channel)
			a.out.Mutedf("- Platforms: %s", strings.Join(meta.Platforms, ", "))

			if !o.dryRun {
				ok, err := a.confirm("Do you want to publish this update?", true)
				if err != nil {
					return err
				}
				if !ok {
					a.out.Mutedf("Publishing cancelled.")
					return nil
				}
			}

			a.out.Infof("Creating bundle...")
			pkg, err := bundle.NewPackager(a.exporter(), a.logger).Package(ctx, dir, meta)
			if err != nil {
				return err
			}
			defer func() {
				if err := pkg.Cleanup(); err != nil {
					a.logger.Warn("could not remove temporary files", zap.Error(err))
				}
			}()
			a.out.Mutedf("Bundle created: %s", filepath.Base(pkg.BundlePath))
			a.out.Mutedf("Assets: %d files", len(pkg.AssetPaths))
			a.out.Mutedf("Archive size: %s", ui.Size(pkg.Size))

			if o.dryRun {
				if ok, err := a.out.Data(pkg.Metadata); ok {
					return err
				}
				a.out.Successf("Dry run complete. Nothing was uploaded.")
				return nil
			}

			a.out.Infof("Uploading to server...")
			update, err := c.PublishUpdate(ctx, target.ID, meta, pkg.ArchivePath)
			if err != nil {
				return fmt.Errorf("publish update: %w", err)
			}

			if ok, err := a.out.Data(update); ok {
				return err
			}
			a.out.Successf("Update published successfully!")
			a.out.Mutedf("Update ID: %d", update.ID)
			a.out.Mutedf("Channel: %s", update.Channel)
			a.out.Mutedf("Version: %s", update.Version)
			return nil
		}),
	}

	o.register(cmd, true)
	cmd.Flags().StringVarP(&o.channel, "channel", "c", "", "Release channel: production, staging or development (default from config)")
	cmd.Flags().StringVar(&o.version, "version", "", "Version of the update (defaults to the app version)")
	cmd.Flags().StringVarP(&o.runtimeVersion, "runtime-version", "r", "", "Runtime version (defaults to the app's runtimeVersion, then its version)")
	cmd.Flags().StringVarP(&o.platform, "platform", "p", "", "Comma-separated platforms: ios, android, web (default ios,android)")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Build the archive but do not upload it")
	return cmd
}

// defaultUpdateVersion is used when neither --version nor the project sets one.
const defaultUpdateVersion = "1.0.0"

// updateMetadata merges flags, project info and config defaults, warning
// about values that had to be replaced.
func (a *app) updateMetadata(o *publishOptions, info *project.Info) api.UpdateMetadata {
	meta := api.UpdateMetadata{
		Version:        firstNonEmpty(o.version, info.Version, defaultUpdateVersion),
		RuntimeVersion: firstNonEmpty(o.runtimeVersion, info.RuntimeVersion, info.Version, a.cfg.RuntimeVersion()),
		Channel:        a.cfg.Channel(),
	}

	if o.channel != "" {
		if ch, err := api.ParseChannel(o.channel); err == nil {
			meta.Channel = string(ch)
		} else {
			a.out.Warnf("Invalid channel: %s. Using default: %s", o.channel, meta.Channel)
		}
	}

	platforms := api.DefaultPlatforms
	if o.platform != "" {
		valid, invalid := api.ParsePlatforms(o.platform)
		if len(invalid) > 0 && len(valid) > 0 {
			a.out.Warnf("Ignoring unknown platforms: %s", strings.Join(invalid, ", "))
		}
		if len(valid) == 0 {
			a.out.Warnf("Invalid platforms: %s. Using default: ios,android", o.platform)
		} else {
			platforms = valid
		}
	}
	for _, p := range platforms {
		meta.Platforms = append(meta.Platforms, string(p))
	}
	return meta
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
