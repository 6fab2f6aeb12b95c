package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvStore reads credentials from the process environment and a dotenv file.
// Keys map to upper-case variable names, so bot_token is read from BOT_TOKEN.
// Values already in the environment take precedence over the file.
type EnvStore struct {
	path string
}

// NewEnvStore returns a store backed by the dotenv file at path.
func NewEnvStore(path string) *EnvStore {
	if path == "" {
		path = ".env"
	}
	return &EnvStore{path: path}
}

// Describe implements Store.
func (s *EnvStore) Describe() string { return "environment and " + s.path }

// Get implements Store.
func (s *EnvStore) Get(key string) (string, error) {
	name := envName(key)
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value, nil
	}

	values, err := s.read()
	if err != nil {
		return "", err
	}
	if value := strings.TrimSpace(values[name]); value != "" {
		return value, nil
	}
	return "", ErrNotFound
}

// Set implements Store by rewriting the dotenv file.
func (s *EnvStore) Set(key, value string) error {
	values, err := s.read()
	if err != nil {
		return err
	}
	values[envName(key)] = value
	return s.write(values)
}

// Remove implements Store. Only the dotenv file is changed; variables set in
// the process environment are left alone.
func (s *EnvStore) Remove(keys ...string) error {
	values, err := s.read()
	if err != nil {
		return err
	}
	changed := false
	for _, key := range keys {
		if _, ok := values[envName(key)]; ok {
			delete(values, envName(key))
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.write(values)
}

func (s *EnvStore) read() (map[string]string, error) {
	values, err := godotenv.Read(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return values, nil
}

func (s *EnvStore) write(values map[string]string) error {
	if err := godotenv.Write(values, s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", s.path, err)
	}
	return nil
}

func envName(key string) string {
	return strings.ToUpper(key)
}
