// Package cli builds the command tree and dispatches to registered commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"phab/internal/commands"
	"phab/internal/config"
	"phab/internal/exitcode"
	"phab/internal/service"
)

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config) (service.Service, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
// A nil factory selects the Conduit backend.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	if factory == nil {
		factory = ConduitFactory
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// exitError carries a non-zero exit code out of cobra.
// The command has already reported the failure.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// commonFlags are accepted by every command.
type commonFlags struct {
	settingsPath string
	dataDir      string
	store        string
	quiet        bool
	debug        bool
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := d.newRoot(out, errOut)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitcode.Success
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(errOut, "error: %s\n", err)
	return exitcode.UserError
}

// newRoot builds a fresh cobra tree so flag values never leak between runs.
func (d *Dispatcher) newRoot(out, errOut io.Writer) *cobra.Command {
	flags := &commonFlags{}

	root := &cobra.Command{
		Use:               config.AppName,
		Short:             "Phabricator Conduit client",
		Long:              d.helpText(),
		Args:              cobra.ArbitraryArgs,
		RunE:              groupRunE,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.settingsPath, "config", "", "settings file (default $HOME/.phab)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory for token and watchlists")
	pf.StringVar(&flags.store, "store", config.StoreJSON, "watchlist store: json or sqlite")
	pf.BoolVar(&flags.quiet, "quiet", false, "suppress informational output")
	pf.BoolVar(&flags.debug, "debug", false, "print debug logs to stderr")

	groups := map[string]*cobra.Command{"": root}
	for _, path := range d.registry.Groups() {
		parent, use := splitPath(path)
		group := &cobra.Command{
			Use:   use,
			Short: "Manage " + use + "s",
			Args:  cobra.ArbitraryArgs,
			RunE:  groupRunE,
		}
		groups[parent].AddCommand(group)
		groups[path] = group
	}
	for _, cmd := range d.registry.All() {
		parent, use := splitPath(cmd.Name())
		groups[parent].AddCommand(d.leaf(cmd, use, flags, out, errOut))
	}

	return root
}

// splitPath splits "watchlist add" into "watchlist" and "add".
func splitPath(path string) (parent, last string) {
	if i := strings.LastIndex(path, " "); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

// groupRunE prints help for a bare group and rejects unknown subcommands.
func groupRunE(c *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown command: %s", strings.TrimSpace(strings.TrimPrefix(c.CommandPath()+" "+args[0], config.AppName)))
	}
	return c.Help()
}

func (d *Dispatcher) leaf(cmd commands.Command, use string, flags *commonFlags, out, errOut io.Writer) *cobra.Command {
	c := &cobra.Command{
		Use:     use,
		Aliases: cmd.Aliases(),
		Short:   cmd.Synopsis(),
		Example: "  " + cmd.Usage(),
		RunE: func(c *cobra.Command, args []string) error {
			code := d.dispatchCommand(c.Context(), cmd, flags, args, out, errOut)
			if code != exitcode.Success {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.RegisterFlags(c.Flags())
	return c
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, flags *commonFlags, args []string, out, errOut io.Writer) int {
	cfg, err := config.New(flags.dataDir, flags.settingsPath)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	if !config.ValidStore(flags.store) {
		fmt.Fprintf(errOut, "error: unknown store: %s\n", flags.store)
		return exitcode.UserError
	}
	cfg.Store = flags.store
	cfg.Quiet = flags.quiet
	cfg.Debug = flags.debug

	var svc service.Service
	if cmd.NeedsAuth() {
		svc, err = d.factory(ctx, cfg)
		if err != nil {
			if isAuthError(err) {
				fmt.Fprintf(errOut, "error: auth error: %s\n", err)
				return exitcode.AuthError
			}
			fmt.Fprintf(errOut, "error: backend error: %s\n", err)
			return exitcode.BackendError
		}
	}

	return cmd.Run(ctx, cfg, svc, args, out, errOut)
}

// helpText lists every registered command with its usage line.
func (d *Dispatcher) helpText() string {
	var b strings.Builder
	b.WriteString("Usage:\n")
	for _, cmd := range d.registry.All() {
		fmt.Fprintf(&b, "  %-52s %s\n", cmd.Usage(), cmd.Synopsis())
	}
	b.WriteString(`
Common flags:
  --config <file>    Override settings file (default $HOME/.phab)
  --data-dir <dir>   Override data directory (token, watchlists, .env)
  --store <kind>     Watchlist store: json (default) or sqlite
  --quiet            Suppress informational output
  --debug            Print debug logs to stderr`)
	return b.String()
}
