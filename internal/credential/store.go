// Package credential stores and resolves the secrets tgpost needs to talk to
// the Bot API.
package credential

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// BotTokenKey is the store key holding the Telegram bot token.
const BotTokenKey = "bot_token"

// ErrNotFound is returned by Store.Get when a key is absent.
var ErrNotFound = errors.New("credential not found")

// Store is a small key-value store for secrets.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(keys ...string) error
	// Describe names the backing medium for user-facing messages.
	Describe() string
}

// Kind selects a Store implementation.
type Kind string

const (
	KindFile    Kind = "file"
	KindKeyring Kind = "keyring"
	KindEnv     Kind = "env"
)

// ParseKind validates a store name.
func ParseKind(s string) (Kind, error) {
	switch kind := Kind(strings.ToLower(strings.TrimSpace(s))); kind {
	case KindFile, KindKeyring, KindEnv:
		return kind, nil
	case "":
		return KindFile, nil
	default:
		return "", fmt.Errorf("unsupported credential store %q (choose from file, keyring, env)", s)
	}
}

// Options locate the backing files of the file and env stores.
type Options struct {
	ConfigDir string
	EnvFile   string
}

// Open returns the Store for kind.
func Open(kind Kind, opts Options) (Store, error) {
	switch kind {
	case KindFile, "":
		if opts.ConfigDir == "" {
			return nil, errors.New("config directory is not set")
		}
		return NewFileStore(filepath.Join(opts.ConfigDir, credentialsFile)), nil
	case KindKeyring:
		return NewKeyringStore(keyringService), nil
	case KindEnv:
		return NewEnvStore(opts.EnvFile), nil
	default:
		return nil, fmt.Errorf("unsupported credential store %q", kind)
	}
}
