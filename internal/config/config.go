package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blacktop/tgpost/internal/credential"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/viper"
)

const (
	appName   = "tgpost"
	envPrefix = "TGPOST"

	keyEndpoint        = "endpoint"
	keyTimeout         = "timeout"
	keyCredentialStore = "credential_store"
	keyEnvFile         = "env_file"
	keyConfigDir       = "config_dir"

	defaultTimeout = 30 * time.Second
)

// Settings control how tgpost reaches the Bot API and where it keeps secrets.
type Settings struct {
	Endpoint        string
	Timeout         time.Duration
	CredentialStore credential.Kind
	EnvFile         string
	ConfigDir       string
}

// CredentialOptions returns the locations used to open the credential store.
func (s Settings) CredentialOptions() credential.Options {
	return credential.Options{ConfigDir: s.ConfigDir, EnvFile: s.EnvFile}
}

// DefaultConfigDir returns the per-user tgpost config directory.
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "." + appName
		}
		return filepath.Join(home, "."+appName)
	}
	return filepath.Join(dir, appName)
}

// Load reads settings from TGPOST_* environment variables and an optional
// config.yaml in the config directory. A nil v uses a fresh viper instance.
func Load(v *viper.Viper) (Settings, error) {
	if v == nil {
		v = viper.New()
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyEndpoint, tgbotapi.APIEndpoint)
	v.SetDefault(keyTimeout, defaultTimeout)
	v.SetDefault(keyCredentialStore, string(credential.KindFile))
	v.SetDefault(keyEnvFile, ".env")
	v.SetDefault(keyConfigDir, DefaultConfigDir())

	configDir := v.GetString(keyConfigDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	kind, err := credential.ParseKind(v.GetString(keyCredentialStore))
	if err != nil {
		return Settings{}, err
	}

	timeout := v.GetDuration(keyTimeout)
	if timeout <= 0 {
		return Settings{}, fmt.Errorf("timeout must be positive, got %q", v.GetString(keyTimeout))
	}

	endpoint := strings.TrimSpace(v.GetString(keyEndpoint))
	if strings.Count(endpoint, "%s") != 2 {
		return Settings{}, fmt.Errorf("endpoint %q must contain two %%s verbs (token, method)", endpoint)
	}

	return Settings{
		Endpoint:        endpoint,
		Timeout:         timeout,
		CredentialStore: kind,
		EnvFile:         v.GetString(keyEnvFile),
		ConfigDir:       v.GetString(keyConfigDir),
	}, nil
}
