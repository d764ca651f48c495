package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openexpoota/ota/internal/api"
	"github.com/openexpoota/ota/internal/config"
)

// appFlags are shared by the commands that act on a single app.
type appFlags struct {
	dir  string
	slug string
}

func (f *appFlags) register(cmd *cobra.Command, withSlug bool) {
	cmd.Flags().StringVarP(&f.dir, "dir", "d", "", "Project directory (defaults to current directory)")
	if withSlug {
		cmd.Flags().StringVarP(&f.slug, "slug", "s", "", "App slug (overrides ota.config.json)")
	}
}

// projectDir returns the absolute project directory, which must exist.
func (f *appFlags) projectDir() (string, error) {
	dir := f.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	st, err := os.Stat(abs)
	if err != nil || !st.IsDir() {
		return "", fmt.Errorf("directory not found: %s", dir)
	}
	return abs, nil
}

// resolveSlug picks the app to act on: --slug, then the project's
// ota.config.json, then the current app from the user config.
func (a *app) resolveSlug(f *appFlags) (string, error) {
	if f.slug != "" {
		return f.slug, nil
	}

	dir, err := f.projectDir()
	if err != nil {
		return "", err
	}
	pc, err := config.LoadProject(dir)
	switch {
	case err == nil && pc.Slug != "":
		return pc.Slug, nil
	case err != nil && !errors.Is(err, config.ErrProjectNotInitialized):
		return "", err
	}

	if a.cfg.CurrentApp != "" {
		return a.cfg.CurrentApp, nil
	}
	return "", fmt.Errorf("no app specified: %w", config.ErrProjectNotInitialized)
}

// resolveApp looks up the app chosen by resolveSlug on the server.
func (a *app) resolveApp(ctx context.Context, c *api.Client, f *appFlags) (*api.App, error) {
	slug, err := a.resolveSlug(f)
	if err != nil {
		return nil, err
	}
	app, err := c.AppBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("look up app: %w", err)
	}
	if app == nil {
		return nil, fmt.Errorf("app with slug %q not found", slug)
	}
	return app, nil
}
