package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openexpoota/ota/internal/api"
	"github.com/openexpoota/ota/internal/bundle"
	"github.com/openexpoota/ota/internal/config"
	"github.com/openexpoota/ota/internal/logging"
	"github.com/openexpoota/ota/internal/login"
	"github.com/openexpoota/ota/internal/prompt"
	"github.com/openexpoota/ota/internal/ui"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// Env is the outside world a command tree talks to. Nil fields fall back to
// the real process resources.
type Env struct {
	In  io.ReadCloser
	Out io.Writer
	Err io.Writer

	Prompter    prompt.Prompter
	Exporter    bundle.Exporter
	OpenBrowser func(url string) error
	Transport   http.RoundTripper
}

// DefaultEnv wires the process's standard streams.
func DefaultEnv() *Env {
	return &Env{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// errReported marks a failure whose message the command already printed.
var errReported = errors.New("error already reported")

// errNotLoggedIn is returned by commands that need a valid token.
var errNotLoggedIn = errors.New("not logged in")

// NewRootCmd builds the full command tree.
func NewRootCmd(env *Env) *cobra.Command {
	if env == nil {
		env = DefaultEnv()
	}
	if env.Out == nil {
		env.Out = io.Discard
	}
	if env.Err == nil {
		env.Err = io.Discard
	}

	a := &app{env: env, v: viper.New()}

	root := &cobra.Command{
		Use:   "ota",
		Short: "Publish and manage over-the-air updates for Expo apps",
		Long: `ota is the command-line client for a self-hosted OTA update server.

It logs you in with GitHub, links an Expo project to an app on the server,
packages and publishes JS bundles, and manages published updates.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(env.Out)
	root.SetErr(env.Err)
	if env.In != nil {
		root.SetIn(env.In)
	}

	pf := root.PersistentFlags()
	pf.String("api-url", "", "API URL (default from config, e.g. http://localhost:3000/api)")
	pf.String("config-dir", "", "Config directory (default: ~/.openexpoota)")
	pf.BoolP("verbose", "v", false, "Log HTTP requests and other diagnostics to stderr")
	pf.StringP("output", "o", "text", "Output format: text, json or yaml")
	pf.BoolP("yes", "y", false, "Assume yes for confirmations and defaults for prompts")

	a.v.SetEnvPrefix("OTA")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	for _, name := range []string{"api-url", "config-dir", "verbose", "output", "yes"} {
		_ = a.v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newInitCmd(a),
		newPublishCmd(a),
		newListAppsCmd(a),
		newListUpdatesCmd(a),
		newPromoteCmd(a),
		newRollbackCmd(a),
		newInviteCmd(a),
		newStatusCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := NewRootCmd(DefaultEnv()).ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints err the way users should see it.
func reportError(w io.Writer, err error) {
	if errors.Is(err, errReported) {
		return
	}
	p := ui.NewPrinter(w, w, ui.FormatText)

	var apiErr *api.Error
	switch {
	case errors.Is(err, errNotLoggedIn):
		p.Errorf("You are not logged in. Please run `ota login` first.")
	case errors.Is(err, api.ErrAuthentication):
		p.Errorf("Authentication failed. Please run `ota login` again.")
	case errors.Is(err, config.ErrProjectNotInitialized):
		p.Errorf("Project is not initialized. Please run `ota init` first.")
	case errors.Is(err, login.ErrTimeout):
		p.Errorf("Login timed out after 5 minutes. Please try again.")
	case errors.Is(err, prompt.ErrAborted):
		p.Mutedf("Cancelled.")
	case errors.Is(err, context.Canceled):
		p.Mutedf("Interrupted.")
	case errors.As(err, &apiErr):
		p.Errorf("Error: %v", err)
		if apiErr.Body != "" && apiErr.Message != "" {
			p.Mutedf("%s", apiErr.Body)
		}
	default:
		p.Errorf("Error: %v", err)
	}
}

// app is the state shared by every command of one invocation.
type app struct {
	env *Env
	v   *viper.Viper

	logger   *zap.Logger
	store    *config.Store
	cfg      *config.Config
	out      *ui.Printer
	prompter prompt.Prompter
	terminal *prompt.Terminal
}

func (a *app) setup() error {
	format, err := ui.ParseFormat(a.v.GetString("output"))
	if err != nil {
		return err
	}
	a.logger = logging.NewWithWriter(a.env.Err, a.v.GetBool("verbose"))
	a.out = ui.NewPrinter(a.env.Out, a.env.Err, format)
	a.store = config.NewStore(a.v.GetString("config-dir"), a.logger)

	a.cfg, err = a.store.Load()
	if err != nil {
		return err
	}
	a.logger.Debug("config loaded", zap.String("dir", a.store.Dir), zap.String("api_url", a.apiURL()))
	return nil
}

// apiURL is --api-url or OTA_API_URL when set, else the configured URL.
func (a *app) apiURL() string {
	if u := a.v.GetString("api-url"); u != "" {
		return u
	}
	return a.cfg.APIURL
}

func (a *app) newClient(token string) *api.Client {
	opts := []api.Option{api.WithLogger(a.logger)}
	if a.env.Transport != nil {
		opts = append(opts, api.WithTransport(a.env.Transport))
	}
	return api.New(a.apiURL(), token, opts...)
}

// client returns an API client carrying the stored token, if any.
func (a *app) client() (*api.Client, error) {
	token, err := a.store.LoadToken()
	if err != nil {
		return nil, err
	}
	return a.newClient(token), nil
}

// authedClient returns a client whose token the server accepts.
func (a *app) authedClient(ctx context.Context) (*api.Client, error) {
	token, err := a.store.LoadToken()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, errNotLoggedIn
	}
	c := a.newClient(token)
	if !c.CheckToken(ctx) {
		return nil, errNotLoggedIn
	}
	return c, nil
}

func (a *app) prompt() (prompt.Prompter, error) {
	if a.v.GetBool("yes") {
		return prompt.Defaults{}, nil
	}
	if a.env.Prompter != nil {
		return a.env.Prompter, nil
	}
	if a.prompter == nil {
		if a.env.In == nil {
			return prompt.Defaults{}, nil
		}
		t, err := prompt.NewTerminal(a.env.In, a.env.Err)
		if err != nil {
			return nil, err
		}
		a.terminal, a.prompter = t, t
	}
	return a.prompter, nil
}

func (a *app) confirm(label string, def bool) (bool, error) {
	p, err := a.prompt()
	if err != nil {
		return false, err
	}
	return p.Confirm(label, def)
}

func (a *app) exporter() bundle.Exporter {
	if a.env.Exporter != nil {
		return a.env.Exporter
	}
	e := &bundle.ExpoExporter{}
	if a.v.GetBool("verbose") {
		e.Stdout, e.Stderr = a.env.Err, a.env.Err
	}
	return e
}

func (a *app) openBrowser(url string) error {
	if a.env.OpenBrowser != nil {
		return a.env.OpenBrowser(url)
	}
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}

// run wraps a command body so per-invocation resources are released.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		return fn(cmd, args)
	}
}

func (a *app) close() {
	if a.terminal != nil {
		if err := a.terminal.Close(); err != nil {
			a.logger.Debug("close terminal", zap.Error(err))
		}
		a.terminal, a.prompter = nil, nil
	}
	_ = a.logger.Sync()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ota %s\n", Version)
		},
	}
}
