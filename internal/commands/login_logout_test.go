package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"phab/internal/commands"
	"phab/internal/config"
	"phab/internal/exitcode"
)

const oauthSettings = `{
  "host": "http://127.0.0.1:1",
  "oauth_client": {"client_id": "PHID-OASC-test", "client_secret": "secret"}
}`

// loginConfig writes settings into a fresh directory and returns a Config
// pointing at it. PHAB_* variables are blanked so the file wins.
func loginConfig(t *testing.T, settings string) *config.Config {
	t.Helper()
	for _, k := range []string{"PHAB_HOST", "PHAB_API_TOKEN", "PHAB_TIMEOUT"} {
		t.Setenv(k, "")
	}

	tmpDir := t.TempDir()
	settingsPath := filepath.Join(tmpDir, ".phab")
	if settings != "" {
		if err := os.WriteFile(settingsPath, []byte(settings), 0600); err != nil {
			t.Fatalf("failed to write settings: %v", err)
		}
	}
	return &config.Config{Dir: tmpDir, SettingsPath: settingsPath}
}

// TestLoginCommand_NoSettings verifies login fails without a settings file
func TestLoginCommand_NoSettings(t *testing.T) {
	cmd := &commands.LoginCmd{}
	cfg := loginConfig(t, "")

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if outBuf.String() != "" {
		t.Errorf("expected no stdout, got %q", outBuf.String())
	}
	if !strings.Contains(errBuf.String(), "settings file not found") {
		t.Errorf("expected missing settings error, got %q", errBuf.String())
	}
}

// TestLoginCommand_APITokenOnly verifies login is a no-op with a static token
func TestLoginCommand_APITokenOnly(t *testing.T) {
	cmd := &commands.LoginCmd{}
	cfg := loginConfig(t, `{"host": "http://127.0.0.1:1", "api_token": "api-abc"}`)

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
	if outBuf.String() != "api_token configured, login not needed\n" {
		t.Errorf("unexpected stdout %q", outBuf.String())
	}
}

// TestLoginCommand_ValidToken verifies an unexpired token is accepted
func TestLoginCommand_ValidToken(t *testing.T) {
	cmd := &commands.LoginCmd{}
	cfg := loginConfig(t, oauthSettings)

	token := `{"access_token":"live","token_type":"Bearer","expiry":"2999-01-01T00:00:00Z"}`
	if err := os.WriteFile(cfg.TokenPath(), []byte(token), 0600); err != nil {
		t.Fatalf("failed to write token.json: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
	if outBuf.String() != "already logged in\n" {
		t.Errorf("expected 'already logged in', got %q", outBuf.String())
	}
}

// TestLoginCommand_ExpiredToken verifies login proceeds when the token expired
// and cannot be refreshed
func TestLoginCommand_ExpiredToken(t *testing.T) {
	cmd := &commands.LoginCmd{}
	cfg := loginConfig(t, oauthSettings)

	expired := `{"access_token":"old","token_type":"Bearer","expiry":"2020-01-01T00:00:00Z"}`
	if err := os.WriteFile(cfg.TokenPath(), []byte(expired), 0600); err != nil {
		t.Fatalf("failed to write token.json: %v", err)
	}

	// Cancel immediately so the command does not wait for the OAuth callback
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(ctx, cfg, nil, nil, &outBuf, &errBuf)

	if outBuf.String() == "already logged in\n" {
		t.Error("should not say 'already logged in' with an expired token")
	}
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
}

// TestLoginCommand_NoCredentials verifies settings without any credential are rejected
func TestLoginCommand_NoCredentials(t *testing.T) {
	cmd := &commands.LoginCmd{}
	cfg := loginConfig(t, `{"host": "http://127.0.0.1:1", "cert_identity_config": {"pkcs12_path": "/x"}}`)

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.Contains(errBuf.String(), "api_token or oauth_client") {
		t.Errorf("unexpected stderr %q", errBuf.String())
	}
}

// TestLogoutCommand_OnlyRemovesToken verifies logout keeps the watchlist database
func TestLogoutCommand_OnlyRemovesToken(t *testing.T) {
	cmd := &commands.LogoutCmd{}

	tmpDir := t.TempDir()

	dbPath := filepath.Join(tmpDir, "db.json")
	if err := os.WriteFile(dbPath, []byte(`{"watchlists":{}}`), 0600); err != nil {
		t.Fatalf("failed to write db.json: %v", err)
	}

	tokenPath := filepath.Join(tmpDir, "token.json")
	if err := os.WriteFile(tokenPath, []byte(`{"access_token":"test"}`), 0600); err != nil {
		t.Fatalf("failed to write token.json: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{Dir: tmpDir}

	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if errBuf.String() != "" {
		t.Errorf("expected no stderr, got %q", errBuf.String())
	}
	if outBuf.String() != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", outBuf.String())
	}

	if _, err := os.Stat(tokenPath); !os.IsNotExist(err) {
		t.Error("token.json should have been deleted")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Error("db.json should NOT have been deleted")
	}
}

// TestLogoutCommand_NotLoggedIn verifies logout handles not being logged in
func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	cmd := &commands.LogoutCmd{}

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{Dir: t.TempDir()}

	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if errBuf.String() != "" {
		t.Errorf("expected no stderr, got %q", errBuf.String())
	}
	if outBuf.String() != "not logged in\n" {
		t.Errorf("expected 'not logged in\\n', got %q", outBuf.String())
	}
}

// TestLogoutCommand_NotLoggedInQuiet verifies logout is quiet when not logged in
func TestLogoutCommand_NotLoggedInQuiet(t *testing.T) {
	cmd := &commands.LogoutCmd{}

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{Dir: t.TempDir(), Quiet: true}

	code := cmd.Run(context.Background(), cfg, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if outBuf.String() != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", outBuf.String())
	}
}
