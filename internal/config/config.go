package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`

	// APIRateLimit caps HTTP requests per client per minute; 0 disables it.
	APIRateLimit int `toml:"api_rate_limit"`
}

// Admin contains the administrative status of this node.
type Admin struct {
	// Active controls whether queue mutations are accepted at startup.
	Active bool `toml:"active"`
}

// Locking contains configuration for the advisory lock coordinator.
type Locking struct {
	// Backend selects the coordinator: "file" (single host) or "redis".
	Backend       string `toml:"backend"`
	WaitMillis    int    `toml:"wait_ms"`
	LeaseSeconds  int    `toml:"lease_seconds"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	KeyPrefix     string `toml:"key_prefix"`
}

// Reaper contains configuration for the blacklisted item reaper.
type Reaper struct {
	Enabled          bool   `toml:"enabled"`
	Schedule         string `toml:"schedule"`
	RetentionSeconds int    `toml:"retention_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Queue describes one queue registered at startup.
type Queue struct {
	Name          string `toml:"name"`
	ContentType   string `toml:"content_type"`
	Persister     string `toml:"persister"`
	Processor     string `toml:"processor"`
	MaxExecutions int    `toml:"max_executions"`
}

// Config encapsulates all configuration values for nxqueue.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Admin: initial administrative status
//   - Locking: advisory lock coordinator backend and timings
//   - Reaper: blacklisted item purge schedule
//   - Logging: log format and level
//   - Queues: queue descriptors registered at startup
type Config struct {
	Paths   Paths   `toml:"paths"`
	Admin   Admin   `toml:"admin"`
	Locking Locking `toml:"locking"`
	Reaper  Reaper  `toml:"reaper"`
	Logging Logging `toml:"logging"`
	Queues  []Queue `toml:"queues"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/nxqueue/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Descriptors from the file replace the default queue list.
		cfg.Queues = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config %q: %w", expanded, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("nxqueue.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.LogDir}
	if c.Locking.Backend == LockBackendFile {
		dirs = append(dirs, c.Locking.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DocumentStorePath returns the SQLite file backing the document repository.
func (c *Config) DocumentStorePath() string {
	return filepath.Join(c.Paths.StateDir, "documents.db")
}

// SocketPath returns the Unix socket the daemon listens on for CLI requests.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "nxqueue.sock")
}

// DaemonLockPath returns the flock file enforcing a single daemon per state directory.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "nxqueued.lock")
}

// LockWait returns the bounded wait used when acquiring content locks.
func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Locking.WaitMillis) * time.Millisecond
}

// LockLease returns how long a distributed content lock survives without release.
func (c *Config) LockLease() time.Duration {
	return time.Duration(c.Locking.LeaseSeconds) * time.Second
}

// ReaperRetention returns how long blacklisted items are kept before purge.
func (c *Config) ReaperRetention() time.Duration {
	return time.Duration(c.Reaper.RetentionSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
