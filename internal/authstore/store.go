package authstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fbettag/sgpt/internal/config"
)

// FileName is the plain-text key file under the config directory.
const FileName = "api_key.txt"

// ErrCredentialUnavailable is returned when no key is stored and none was entered.
var ErrCredentialUnavailable = errors.New("API key unavailable: nothing stored and nothing entered")

// SecretPrompter asks the operator for a secret without echoing it.
type SecretPrompter interface {
	PromptSecret(ctx context.Context, title string) (string, error)
}

// SecretPrompterFunc adapts a function to SecretPrompter.
type SecretPrompterFunc func(ctx context.Context, title string) (string, error)

func (f SecretPrompterFunc) PromptSecret(ctx context.Context, title string) (string, error) {
	return f(ctx, title)
}

// Status describes the stored credential without revealing it.
type Status struct {
	Path    string
	Present bool
	Masked  string
}

// Store resolves and persists the API key file.
type Store struct {
	mu     sync.Mutex
	path   string
	prompt SecretPrompter
}

// New returns a Store backed by path. An empty path resolves to DefaultPath.
func New(path string, prompt SecretPrompter) (*Store, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return &Store{path: path, prompt: prompt}, nil
}

// DefaultPath resolves <config dir>/api_key.txt.
func DefaultPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Path returns the key file location.
func (s *Store) Path() string {
	return s.path
}

// Resolve returns the stored key, prompting for and persisting one on first use.
func (s *Store) Resolve(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok, err := s.read()
	if err != nil {
		return "", err
	}
	if ok {
		return key, nil
	}
	if s.prompt == nil {
		return "", ErrCredentialUnavailable
	}
	entered, err := s.prompt.PromptSecret(ctx, "Please enter your API secret key")
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	if strings.TrimSpace(entered) == "" {
		return "", ErrCredentialUnavailable
	}
	if err := s.write(entered); err != nil {
		return "", err
	}
	return strings.TrimSpace(entered), nil
}

// Status reports whether a key is stored.
func (s *Store) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok, err := s.read()
	if err != nil {
		return Status{}, err
	}
	st := Status{Path: s.path, Present: ok}
	if ok {
		st.Masked = MaskKey(key)
	}
	return st, nil
}

// Clear removes the stored key so the next run prompts again.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing API key: %w", err)
	}
	return nil
}

func (s *Store) read() (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading API key: %w", err)
	}
	key := strings.TrimSpace(string(data))
	return key, key != "", nil
}

func (s *Store) write(key string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensuring key dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(key), 0o600); err != nil {
		return fmt.Errorf("writing API key: %w", err)
	}
	return nil
}

// MaskKey hides all but the first and last four characters.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
