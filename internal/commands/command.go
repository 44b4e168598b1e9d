// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"phab/internal/config"
	"phab/internal/exitcode"
	"phab/internal/service"
	"phab/internal/storage"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the command path, e.g. "task detail".
	// Each space-separated word becomes one level of the command tree.
	Name() string

	// Aliases returns alternative names for the last word of the path.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a Conduit backend.
	// Commands like version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *pflag.FlagSet)

	// Run executes the command.
	// cfg is always provided (data dir, settings path).
	// svc is nil if NeedsAuth() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int
}

// backendFailure prints err and maps it to an exit code.
func backendFailure(errOut io.Writer, err error) int {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(errOut, "error: cancelled")
		return exitcode.BackendError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}

// openStore opens the watchlist database selected by cfg.Store.
// Callers must Close the returned store.
func openStore(cfg *config.Config, errOut io.Writer) (storage.Storage, int) {
	var (
		store storage.Storage
		err   error
	)
	switch cfg.Store {
	case config.StoreSQLite:
		store, err = storage.NewSQLite(cfg.WatchlistPath())
	default:
		store, err = storage.NewFilesystem(cfg.WatchlistPath())
	}
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, exitcode.UserError
	}
	return store, exitcode.Success
}
