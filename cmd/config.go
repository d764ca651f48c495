package cmd

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openexpoota/ota/internal/api"
	"github.com/openexpoota/ota/internal/config"
	"github.com/openexpoota/ota/internal/validate"
)

// configKey maps a user-facing key onto a Config field.
type configKey struct {
	get   func(*config.Config) string
	set   func(*config.Config, string) error
	usage string
}

var configKeys = map[string]configKey{
	"apiUrl": {
		get: func(c *config.Config) string { return c.APIURL },
		set: func(c *config.Config, v string) error {
			u, err := url.Parse(v)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("invalid URL %q", v)
			}
			c.APIURL = strings.TrimRight(v, "/")
			return nil
		},
		usage: "API base URL",
	},
	"currentApp": {
		get: func(c *config.Config) string { return c.CurrentApp },
		set: func(c *config.Config, v string) error {
			if v != "" && !validate.IsSlug(v) {
				return fmt.Errorf("invalid app slug %q", v)
			}
			c.CurrentApp = v
			return nil
		},
		usage: "slug of the app used when no project config is found",
	},
	"defaultChannel": {
		get: func(c *config.Config) string { return c.DefaultChannel },
		set: func(c *config.Config, v string) error {
			ch, err := api.ParseChannel(v)
			if err != nil {
				return err
			}
			c.DefaultChannel = string(ch)
			return nil
		},
		usage: "channel used by publish when --channel is not given",
	},
	"defaultRuntimeVersion": {
		get:   func(c *config.Config) string { return c.DefaultRuntimeVersion },
		set:   func(c *config.Config, v string) error { c.DefaultRuntimeVersion = v; return nil },
		usage: "runtime version used when the project does not declare one",
	},
	"githubClientId": {
		get:   func(c *config.Config) string { return c.GithubClientID },
		set:   func(c *config.Config, v string) error { c.GithubClientID = v; return nil },
		usage: "GitHub OAuth client id",
	},
	"githubOauthRedirect": {
		get:   func(c *config.Config) string { return c.GithubOAuthRedirect },
		set:   func(c *config.Config, v string) error { c.GithubOAuthRedirect = v; return nil },
		usage: "GitHub OAuth redirect URL",
	},
}

func configKeyNames() []string {
	names := make([]string, 0, len(configKeys))
	for k := range configKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func lookupConfigKey(name string) (configKey, error) {
	k, ok := configKeys[name]
	if !ok {
		return configKey{}, fmt.Errorf("unknown config key %q (known keys: %s)", name, strings.Join(configKeyNames(), ", "))
	}
	return k, nil
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change CLI settings",
	}

	get := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				k, err := lookupConfigKey(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out.Out, k.get(a.cfg))
				return nil
			}
			if ok, err := a.out.Data(a.cfg); ok {
				return err
			}
			for _, name := range configKeyNames() {
				a.out.Field(name, configKeys[name].get(a.cfg))
			}
			a.out.Mutedf("(%s)", a.store.Dir)
			return nil
		}),
	}

	var keyHelp strings.Builder
	for _, name := range configKeyNames() {
		fmt.Fprintf(&keyHelp, "  %-22s %s\n", name, configKeys[name].usage)
	}
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting",
		Long:  "Change a setting. Known keys:\n\n" + keyHelp.String(),
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			k, err := lookupConfigKey(args[0])
			if err != nil {
				return err
			}
			if err := k.set(a.cfg, args[1]); err != nil {
				return err
			}
			if err := a.store.Save(a.cfg); err != nil {
				return err
			}
			a.out.Successf("%s set to %s", args[0], k.get(a.cfg))
			return nil
		}),
	}

	cmd.AddCommand(get, set)
	return cmd
}
