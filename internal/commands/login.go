package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sethvargo/go-password/password"
	"github.com/spf13/pflag"
	"golang.org/x/oauth2"

	"phab/internal/backend/conduit"
	"phab/internal/config"
	"phab/internal/exitcode"
	"phab/internal/service"
)

const (
	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct{}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Authenticate with Phabricator" }
func (c *LoginCmd) Usage() string     { return "phab login [common flags]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if !cfg.HasSettings() {
		fmt.Fprintf(errOut, "error: settings file not found: %s\n", cfg.SettingsPath)
		return exitcode.AuthError
	}

	settings, err := config.LoadSettings(cfg.SettingsPath, cfg.EnvPath())
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if settings.OAuthClient == nil {
		if settings.APIToken != "" {
			if !cfg.Quiet {
				fmt.Fprintln(out, "api_token configured, login not needed")
			}
			return exitcode.Success
		}
		printOAuthHelp(errOut, settings.Host, cfg.SettingsPath)
		return exitcode.AuthError
	}

	// Check if already logged in (token exists and is valid)
	if cfg.HasToken() && isTokenValid(cfg, settings) {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	oauthConfig := conduit.OAuthConfig(settings)

	port, listener, err := findAvailablePort()
	if err != nil {
		fmt.Fprintf(errOut, "error: could not bind to local port for OAuth callback\n")
		return exitcode.AuthError
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()
	state, err := newOAuthState()
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to generate oauth state: %v\n", err)
		return exitcode.AuthError
	}
	authURL := oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	server := &http.Server{Handler: callbackRouter(state, codeCh, errCh)}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			report(errCh, err)
		}
	}()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	case <-time.After(oauthCallbackTimeout):
		fmt.Fprintln(errOut, "error: oauth callback timed out")
		return exitcode.AuthError
	case <-ctx.Done():
		fmt.Fprintln(errOut, "error: cancelled")
		return exitcode.AuthError
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	exchangeCtx, cancelExchange := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancelExchange()

	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to exchange code for token: %v\n", err)
		return exitcode.AuthError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create data directory: %v\n", err)
		return exitcode.AuthError
	}

	if err := saveToken(cfg.TokenPath(), token); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// newOAuthState returns a random alphanumeric state for the authorize URL.
func newOAuthState() (string, error) {
	return password.Generate(32, 10, 0, false, true)
}

// callbackRouter serves the OAuth redirect. The authorization code is sent
// to codeCh when state matches, any failure to errCh.
func callbackRouter(state string, codeCh chan<- string, errCh chan<- error) http.Handler {
	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			report(errCh, fmt.Errorf("oauth state mismatch"))
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			report(errCh, fmt.Errorf("no code in callback"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})
	return r
}

// report sends err without blocking once a result is already pending.
func report(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
}

func printOAuthHelp(errOut io.Writer, host, settingsPath string) {
	fmt.Fprintln(errOut, "error: oauth_client missing in settings")
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "To log in with OAuth, register phab as an OAuth application:")
	fmt.Fprintln(errOut, "")
	fmt.Fprintf(errOut, "1. Open %s/oauthserver/\n", host)
	fmt.Fprintln(errOut, "2. Create an OAuth server application")
	fmt.Fprintf(errOut, "   with redirect URI http://localhost:%d/callback\n", oauthStartPort)
	fmt.Fprintf(errOut, "3. Add its credentials to %s:\n", settingsPath)
	fmt.Fprintln(errOut, "   oauth_client: {")
	fmt.Fprintln(errOut, "     client_id: PHID-OASC-...")
	fmt.Fprintln(errOut, "     client_secret: ...")
	fmt.Fprintln(errOut, "   }")
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "Or set api_token to a Conduit API token instead.")
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		addr := fmt.Sprintf("localhost:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}

// isTokenValid checks if the stored token can still be used.
// Valid means: parseable, and either unexpired or refreshable against the
// Phabricator OAuth server.
func isTokenValid(cfg *config.Config, settings *config.Settings) bool {
	token, err := conduit.LoadToken(cfg.TokenPath())
	if err != nil || token.AccessToken == "" {
		return false
	}
	if token.Valid() {
		return true
	}
	if token.RefreshToken == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = conduit.OAuthConfig(settings).TokenSource(ctx, token).Token()
	return err == nil
}

// saveToken saves an OAuth token to a file with mode 0600.
func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
