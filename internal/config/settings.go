package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hjson/hjson-go/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultTimeout bounds a single Conduit request.
const DefaultTimeout = 30 * time.Second

// CertIdentityConfig points at a PKCS12 client certificate bundle.
type CertIdentityConfig struct {
	PKCS12Path     string `mapstructure:"pkcs12_path"`
	PKCS12Password string `mapstructure:"pkcs12_password"`
}

// OAuthClientConfig holds the credentials of a Phabricator OAuth server application.
type OAuthClientConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// Settings is the content of the settings file.
type Settings struct {
	Host               string              `mapstructure:"host"`
	APIToken           string              `mapstructure:"api_token"`
	CertIdentityConfig *CertIdentityConfig `mapstructure:"cert_identity_config"`
	OAuthClient        *OAuthClientConfig  `mapstructure:"oauth_client"`
	Timeout            time.Duration       `mapstructure:"timeout"`
}

// LoadSettings reads the HJSON settings file at path.
// Values can be overridden by PHAB_HOST, PHAB_API_TOKEN and PHAB_TIMEOUT,
// either from the environment or from the dotenv file at envPath.
func LoadSettings(path, envPath string) (*Settings, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}

	v := viper.New()
	v.SetDefault("timeout", DefaultTimeout.String())
	v.SetEnvPrefix("phab")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"host", "api_token", "timeout"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	if err := v.MergeConfigMap(raw); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	s.Host = strings.TrimSuffix(s.Host, "/")

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	if s.Host == "" {
		return fmt.Errorf("host missing in settings")
	}
	if s.APIToken == "" && s.OAuthClient == nil {
		return fmt.Errorf("api_token or oauth_client required in settings")
	}
	if s.CertIdentityConfig != nil && s.CertIdentityConfig.PKCS12Path == "" {
		return fmt.Errorf("cert_identity_config.pkcs12_path missing in settings")
	}
	return nil
}
