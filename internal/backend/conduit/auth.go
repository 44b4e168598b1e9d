package conduit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"

	"phab/internal/config"
)

const (
	// apiTokenParam carries a Conduit API token (api-...).
	apiTokenParam = "api.token"

	// accessTokenParam carries an OAuth access token.
	accessTokenParam = "access_token"
)

// credential supplies the token sent with every Conduit call and the form
// field it travels in.
type credential struct {
	param  string
	source oauth2.TokenSource
}

// OAuthConfig returns the OAuth configuration for Phabricator's OAuth server.
func OAuthConfig(s *config.Settings) *oauth2.Config {
	cfg := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.Host + "/oauthserver/auth/",
			TokenURL:  s.Host + "/oauthserver/token/",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if s.OAuthClient != nil {
		cfg.ClientID = s.OAuthClient.ClientID
		cfg.ClientSecret = s.OAuthClient.ClientSecret
	}
	return cfg
}

// LoadToken reads an OAuth token saved by the login command.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}
	return &token, nil
}

// newCredential prefers the static API token from settings and falls back to
// the stored OAuth token, which refreshes itself when expired.
func newCredential(ctx context.Context, s *config.Settings, tokenPath string) (credential, error) {
	if s.APIToken != "" {
		return credential{
			param:  apiTokenParam,
			source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.APIToken}),
		}, nil
	}

	if s.OAuthClient == nil {
		return credential{}, fmt.Errorf("%w: no api_token or oauth_client configured", ErrConfigureHTTPClient)
	}
	if tokenPath == "" {
		return credential{}, fmt.Errorf("%w (run: phab login)", ErrNotLoggedIn)
	}
	token, err := LoadToken(tokenPath)
	if err != nil {
		return credential{}, fmt.Errorf("%w (run: phab login): %v", ErrNotLoggedIn, err)
	}
	return credential{
		param:  accessTokenParam,
		source: OAuthConfig(s).TokenSource(ctx, token),
	}, nil
}
