package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"phab/internal/config"
	"phab/internal/exitcode"
	"phab/internal/output"
	"phab/internal/service"
	"phab/internal/storage"
)

func init() {
	Register(&WatchlistCreateCmd{})
	Register(&WatchlistAddCmd{})
	Register(&WatchlistListCmd{})
	Register(&WatchlistShowCmd{})
}

// WatchlistCreateCmd implements the watchlist create command.
type WatchlistCreateCmd struct{}

func (c *WatchlistCreateCmd) Name() string      { return "watchlist create" }
func (c *WatchlistCreateCmd) Aliases() []string { return nil }
func (c *WatchlistCreateCmd) Synopsis() string  { return "Create an empty watchlist" }
func (c *WatchlistCreateCmd) Usage() string     { return "phab watchlist create [common flags] <name...>" }
func (c *WatchlistCreateCmd) NeedsAuth() bool   { return false }

func (c *WatchlistCreateCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *WatchlistCreateCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fmt.Fprintln(errOut, "error: watchlist name required")
		return exitcode.UserError
	}

	store, code := openStore(cfg, errOut)
	if code != exitcode.Success {
		return code
	}
	defer store.Close()

	w, err := store.CreateWatchlist(service.Watchlist{Name: name})
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to create watchlist: %v\n", err)
		return exitcode.UserError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, *w.ID)
	}
	return exitcode.Success
}

// WatchlistAddCmd implements the watchlist add command.
// Tasks are fetched from Conduit and stored as snapshots.
type WatchlistAddCmd struct{}

func (c *WatchlistAddCmd) Name() string      { return "watchlist add" }
func (c *WatchlistAddCmd) Aliases() []string { return nil }
func (c *WatchlistAddCmd) Synopsis() string  { return "Add tasks to a watchlist" }
func (c *WatchlistAddCmd) Usage() string {
	return "phab watchlist add [common flags] <watchlist_id> <task_id...>"
}
func (c *WatchlistAddCmd) NeedsAuth() bool { return true }

func (c *WatchlistAddCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *WatchlistAddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(errOut, "error: watchlist id and at least one task id required")
		return exitcode.UserError
	}
	watchlistID, taskIDs := args[0], args[1:]

	store, code := openStore(cfg, errOut)
	if code != exitcode.Success {
		return code
	}
	defer store.Close()
	existing, err := store.GetWatchlistByID(watchlistID)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if existing == nil {
		fmt.Fprintf(errOut, "error: watchlist not found: %s\n", watchlistID)
		return exitcode.UserError
	}

	tasks, err := svc.GetTasksByIDs(ctx, taskIDs)
	if err != nil {
		return backendFailure(errOut, err)
	}

	found := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		found[t.ID] = true
	}
	for _, id := range taskIDs {
		if !found[service.CleanID(id)] {
			fmt.Fprintf(errOut, "error: could not find task %s\n", id)
			return exitcode.UserError
		}
	}

	for _, t := range tasks {
		if err := store.AddToWatchlist(watchlistID, t); err != nil {
			if errors.Is(err, storage.ErrWatchlistNotFound) {
				fmt.Fprintf(errOut, "error: watchlist not found: %s\n", watchlistID)
				return exitcode.UserError
			}
			fmt.Fprintf(errOut, "error: failed to update watchlist: %v\n", err)
			return exitcode.UserError
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// WatchlistListCmd implements the watchlist list command.
type WatchlistListCmd struct{}

func (c *WatchlistListCmd) Name() string      { return "watchlist list" }
func (c *WatchlistListCmd) Aliases() []string { return []string{"ls"} }
func (c *WatchlistListCmd) Synopsis() string  { return "List watchlists" }
func (c *WatchlistListCmd) Usage() string     { return "phab watchlist list [common flags]" }
func (c *WatchlistListCmd) NeedsAuth() bool   { return false }

func (c *WatchlistListCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *WatchlistListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	store, code := openStore(cfg, errOut)
	if code != exitcode.Success {
		return code
	}
	defer store.Close()

	watchlists, err := store.GetWatchlists()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if len(watchlists) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no watchlists found")
		}
		return exitcode.Success
	}
	for _, w := range watchlists {
		output.FormatWatchlistName(out, w)
	}
	return exitcode.Success
}

// WatchlistShowCmd implements the watchlist show command.
// It prints the stored task snapshots without calling Conduit.
type WatchlistShowCmd struct {
	printJSON bool
}

// SetPrintJSON sets JSON output (for testing).
func (c *WatchlistShowCmd) SetPrintJSON(v bool) {
	c.printJSON = v
}

func (c *WatchlistShowCmd) Name() string      { return "watchlist show" }
func (c *WatchlistShowCmd) Aliases() []string { return nil }
func (c *WatchlistShowCmd) Synopsis() string  { return "Print the tasks of a watchlist" }
func (c *WatchlistShowCmd) Usage() string {
	return "phab watchlist show [common flags] [--print-json] <watchlist_id>"
}
func (c *WatchlistShowCmd) NeedsAuth() bool { return false }

func (c *WatchlistShowCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.printJSON, "print-json", false, "print the watchlist as JSON")
}

func (c *WatchlistShowCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: watchlist id required")
		return exitcode.UserError
	}

	store, code := openStore(cfg, errOut)
	if code != exitcode.Success {
		return code
	}
	defer store.Close()

	w, err := store.GetWatchlistByID(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if w == nil {
		fmt.Fprintf(errOut, "error: watchlist not found: %s\n", args[0])
		return exitcode.UserError
	}

	if c.printJSON {
		if err := output.WriteJSON(out, w); err != nil {
			fmt.Fprintf(errOut, "error: failed to write output: %v\n", err)
			return exitcode.UserError
		}
		return exitcode.Success
	}

	output.FormatWatchlistName(out, *w)
	for _, t := range w.Tasks {
		fmt.Fprint(out, "  ")
		output.FormatTask(out, t)
	}
	return exitcode.Success
}
