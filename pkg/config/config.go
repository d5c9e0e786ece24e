package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/pkg/errors"
	"github.com/titanous/json5"
)

const (
	BackendJSON   = "json"
	BackendDuckDB = "duckdb"
)

type Browser struct {
	// Show runs the login browser with a visible window.
	Show     bool   `json:"show"`
	ExecPath string `json:"exec_path"`
	Timeout  int    `json:"timeout"`
}

type AI struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
}

// Config is loaded once at startup and passed by value to every component.
// Delays and timeouts are in seconds.
type Config struct {
	BaseURL   string `json:"base_url"`
	UserAgent string `json:"user_agent"`

	ConfigDir string `json:"config_dir"`
	DataDir   string `json:"data_dir"`
	LogsDir   string `json:"logs_dir"`
	OutputDir string `json:"output_dir"`

	RetryCount     int `json:"retry_count"`
	RetryDelay     int `json:"retry_delay"`
	ChapterDelay   int `json:"chapter_delay"`
	LoginDelay     int `json:"login_delay"`
	RequestTimeout int `json:"request_timeout"`

	ProgressBackend  string `json:"progress_backend"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`

	Browser Browser `json:"browser"`
	AI      AI      `json:"ai"`
}

func Default() Config {
	return Config{
		BaseURL:         "https://www.uaa001.com",
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		ConfigDir:       "config",
		DataDir:         "data",
		LogsDir:         "logs",
		OutputDir:       "output",
		RetryCount:      3,
		RetryDelay:      5,
		ChapterDelay:    5,
		LoginDelay:      3,
		RequestTimeout:  30,
		ProgressBackend: BackendJSON,
		Browser:         Browser{Timeout: 60},
		AI: AI{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
	}
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

func readFile(path string, out *Config) (bool, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.WithStack(err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json5.Unmarshal(raw, out); err != nil {
		return false, errors.Wrapf(err, "parse %s", path)
	}
	return true, nil
}

// Load decodes <name>.<ext> over the defaults and merges <name>.local.<ext>
// on top. Zero values in the local file do not override. The AI_* environment
// variables win over both files. Missing files are not an error.
func Load(path string) (Config, error) {
	out := Default()
	if _, err := readFile(path, &out); err != nil {
		return Config{}, err
	}

	prefix, ext := splitExt(filepath.Base(path))
	localPath := filepath.Join(filepath.Dir(path), fmt.Sprintf("%s.local.%s", prefix, ext))
	var local Config
	found, err := readFile(localPath, &local)
	if err != nil {
		return Config{}, err
	}
	if found {
		if err := mergo.Merge(&out, local, mergo.WithOverride); err != nil {
			return Config{}, errors.WithStack(err)
		}
		slog.Debug("merging config with local overrides", "local", localPath)
	}

	applyEnv(&out)
	out.BaseURL = strings.TrimRight(out.BaseURL, "/")

	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("AI_API_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		c.AI.Model = v
	}
}

func (c Config) Validate() error {
	if c.RetryCount < 0 {
		return errors.Errorf("retry_count must not be negative, got %d", c.RetryCount)
	}
	switch c.ProgressBackend {
	case BackendJSON, BackendDuckDB:
	default:
		return errors.Errorf("unknown progress_backend %q", c.ProgressBackend)
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c Config) RetryDelayDuration() time.Duration   { return seconds(c.RetryDelay) }
func (c Config) ChapterDelayDuration() time.Duration { return seconds(c.ChapterDelay) }
func (c Config) LoginDelayDuration() time.Duration   { return seconds(c.LoginDelay) }
func (c Config) TimeoutDuration() time.Duration      { return seconds(c.RequestTimeout) }
func (c Config) BrowserTimeout() time.Duration       { return seconds(c.Browser.Timeout) }

func (c Config) AccountsPath() string        { return filepath.Join(c.ConfigDir, "users.txt") }
func (c Config) CookiesPath() string         { return filepath.Join(c.DataDir, "cookies.json") }
func (c Config) ProgressPath() string        { return filepath.Join(c.DataDir, "progress.json") }
func (c Config) DuckDBPath() string          { return filepath.Join(c.DataDir, "novels.duckdb") }
func (c Config) CatalogURL(id string) string { return c.BaseURL + "/novel/intro?id=" + id }
