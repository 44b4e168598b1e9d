package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"phab/internal/config"
	"phab/internal/exitcode"
	"phab/internal/output"
	"phab/internal/service"
)

func init() {
	Register(&UserDetailCmd{})
}

// UserDetailCmd implements the user detail command.
type UserDetailCmd struct {
	printJSON bool
}

// SetPrintJSON sets JSON output (for testing).
func (c *UserDetailCmd) SetPrintJSON(v bool) {
	c.printJSON = v
}

func (c *UserDetailCmd) Name() string      { return "user detail" }
func (c *UserDetailCmd) Aliases() []string { return nil }
func (c *UserDetailCmd) Synopsis() string  { return "Print a user" }
func (c *UserDetailCmd) Usage() string     { return "phab user detail [common flags] [--print-json] <user_phid>" }
func (c *UserDetailCmd) NeedsAuth() bool   { return true }

func (c *UserDetailCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.printJSON, "print-json", false, "print the user as JSON")
}

func (c *UserDetailCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: user phid required")
		return exitcode.UserError
	}

	phid := args[0]
	user, err := svc.GetUserByPHID(ctx, phid)
	if err != nil {
		return backendFailure(errOut, err)
	}
	if user == nil {
		fmt.Fprintf(errOut, "error: could not find user %s\n", phid)
		return exitcode.UserError
	}

	if c.printJSON {
		if err := output.WriteJSON(out, user); err != nil {
			fmt.Fprintf(errOut, "error: failed to write output: %v\n", err)
			return exitcode.UserError
		}
		return exitcode.Success
	}
	output.FormatUser(out, *user)
	return exitcode.Success
}
