// Package exitcode defines exit codes for the CLI.
package exitcode

// Exit codes shared by every command.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown task or watchlist).
	UserError = 1

	// AuthError indicates a settings, certificate or login error.
	AuthError = 2

	// BackendError indicates a Conduit/network error.
	BackendError = 3
)
