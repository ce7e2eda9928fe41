package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultFileName is the expected file name under the config directory.
	DefaultFileName = "config.toml"
	// DirName is the directory created under the user's configuration root.
	DirName = "shell-gpt"
	// HomeEnv overrides the whole config directory (tests, portable installs).
	HomeEnv = "SGPT_HOME"

	DefaultAPIURL         = "https://api.openai.com/v1/chat/completions"
	DefaultTimeoutSeconds = 180
	DefaultSystemPrompt   = "Bash Linux terminal assistant"
	DefaultEditor         = "vim"
	DefaultAnimationDelay = 15
	DefaultSpinnerLabel   = "Requesting OpenAI..."
)

// Config captures persisted user preferences.
type Config struct {
	API     APIConfig     `toml:"api"`
	Editor  EditorConfig  `toml:"editor"`
	Render  RenderConfig  `toml:"render"`
	Spinner SpinnerConfig `toml:"spinner"`
}

// APIConfig describes the completion endpoint.
type APIConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	SystemPrompt   string `toml:"system_prompt"`
}

// EditorConfig controls the --editor flow.
type EditorConfig struct {
	// Fallback is launched when $EDITOR is unset.
	Fallback string `toml:"fallback"`
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	AnimationDelayMS int  `toml:"animation_delay_ms"`
	Markdown         bool `toml:"markdown"`
}

// SpinnerConfig controls the request spinner.
type SpinnerConfig struct {
	Enabled bool   `toml:"enabled"`
	Label   string `toml:"label"`
}

// Default returns config populated with safe defaults.
func Default() Config {
	return Config{
		API: APIConfig{
			URL:            DefaultAPIURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
			SystemPrompt:   DefaultSystemPrompt,
		},
		Editor: EditorConfig{Fallback: DefaultEditor},
		Render: RenderConfig{AnimationDelayMS: DefaultAnimationDelay},
		Spinner: SpinnerConfig{
			Enabled: true,
			Label:   DefaultSpinnerLabel,
		},
	}
}

// Timeout returns the request timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// AnimationDelay returns the per-character delay of the typewriter animation.
func (c Config) AnimationDelay() time.Duration {
	return time.Duration(c.Render.AnimationDelayMS) * time.Millisecond
}

// Dir resolves the config directory: $SGPT_HOME, then $XDG_CONFIG_HOME/shell-gpt,
// then ~/.config/shell-gpt. The directory is not created.
func Dir() (string, error) {
	if custom := os.Getenv(HomeEnv); custom != "" {
		return custom, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, DirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	return filepath.Join(home, ".config", DirName), nil
}

// DefaultPath resolves <config dir>/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFileName), nil
}

// Load reads config from path; when missing, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return normalize(cfg), nil
}

// Save writes the provided config to path (defaulting to the config dir when empty).
func Save(path string, cfg Config) error {
	path, err := ensurePath(path)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(normalize(cfg))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SaveExample writes a commented example config.
func SaveExample(path string) error {
	path, err := ensurePath(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("writing example config: %w", err)
	}
	return nil
}

func ensurePath(path string) (string, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("ensuring config dir: %w", err)
	}
	return path, nil
}

func normalize(cfg Config) Config {
	def := Default()
	cfg.API.URL = strings.TrimSpace(cfg.API.URL)
	if cfg.API.URL == "" {
		cfg.API.URL = def.API.URL
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = def.API.TimeoutSeconds
	}
	if strings.TrimSpace(cfg.API.SystemPrompt) == "" {
		cfg.API.SystemPrompt = def.API.SystemPrompt
	}
	cfg.Editor.Fallback = strings.TrimSpace(cfg.Editor.Fallback)
	if cfg.Editor.Fallback == "" {
		cfg.Editor.Fallback = def.Editor.Fallback
	}
	if cfg.Render.AnimationDelayMS < 0 {
		cfg.Render.AnimationDelayMS = 0
	}
	if strings.TrimSpace(cfg.Spinner.Label) == "" {
		cfg.Spinner.Label = def.Spinner.Label
	}
	return cfg
}

const exampleConfig = `# sgpt configuration

# Completion endpoint. The request always targets the gpt-3.5-turbo model.
[api]
# url = "https://api.openai.com/v1/chat/completions"
# timeout_seconds = 180
# system_prompt = "Bash Linux terminal assistant"

# Editor launched by --editor when $EDITOR is unset.
[editor]
# fallback = "vim"

# Terminal output. markdown renders plain answers through glamour
# (ignored for --shell, --code and --animation).
[render]
# animation_delay_ms = 15
# markdown = false

# Loading spinner shown on stderr while waiting for the response.
# The --spinner flag overrides enabled.
[spinner]
# enabled = true
# label = "Requesting OpenAI..."
`
