package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"phab/internal/backend/conduit"
	"phab/internal/config"
	"phab/internal/logging"
	"phab/internal/service"
)

// errSettings marks failures to read or validate the settings file.
var errSettings = errors.New("settings")

// ConduitFactory loads the settings file and builds a Conduit client.
// Debug logs go to stderr when cfg.Debug is set.
func ConduitFactory(ctx context.Context, cfg *config.Config) (service.Service, error) {
	if !cfg.HasSettings() {
		return nil, fmt.Errorf("%w: file not found: %s", errSettings, cfg.SettingsPath)
	}

	settings, err := config.LoadSettings(cfg.SettingsPath, cfg.EnvPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSettings, err)
	}

	return conduit.New(ctx, settings,
		conduit.WithLogger(logging.New(os.Stderr, cfg.Debug)),
		conduit.WithTokenPath(cfg.TokenPath()),
	)
}

// isAuthError reports whether a factory failure is a credential or config
// problem rather than a backend one.
func isAuthError(err error) bool {
	switch {
	case errors.Is(err, errSettings),
		errors.Is(err, conduit.ErrNotLoggedIn),
		errors.Is(err, conduit.ErrCertificateIdentity),
		errors.Is(err, conduit.ErrConfigureHTTPClient):
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "token") || strings.Contains(msg, "auth")
}
