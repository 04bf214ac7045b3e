package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

var queueNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.APIRateLimit < 0 {
		return errors.New("paths.api_rate_limit must not be negative")
	}
	if err := c.validateLocking(); err != nil {
		return err
	}
	if err := c.validateReaper(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateQueues(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLocking() error {
	switch c.Locking.Backend {
	case LockBackendFile:
		if strings.TrimSpace(c.Locking.Dir) == "" {
			return errors.New("locking.dir must be set when locking.backend is file")
		}
	case LockBackendRedis:
		if strings.TrimSpace(c.Locking.RedisAddr) == "" {
			return errors.New("locking.redis_addr must be set when locking.backend is redis")
		}
		if c.Locking.RedisDB < 0 {
			return errors.New("locking.redis_db must not be negative")
		}
	default:
		return fmt.Errorf("locking.backend: unsupported value %q (expected file or redis)", c.Locking.Backend)
	}
	if c.Locking.WaitMillis < 0 {
		return errors.New("locking.wait_ms must not be negative")
	}
	if c.Locking.LeaseSeconds <= 0 {
		return errors.New("locking.lease_seconds must be positive")
	}
	return nil
}

func (c *Config) validateReaper() error {
	if c.Reaper.RetentionSeconds < 0 {
		return errors.New("reaper.retention_seconds must not be negative")
	}
	if !c.Reaper.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(c.Reaper.Schedule); err != nil {
		return fmt.Errorf("reaper.schedule: invalid cron spec %q: %w", c.Reaper.Schedule, err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateQueues() error {
	seen := make(map[string]struct{}, len(c.Queues))
	for i, q := range c.Queues {
		if q.Name == "" {
			return fmt.Errorf("queues[%d].name must be set", i)
		}
		if !queueNamePattern.MatchString(q.Name) {
			return fmt.Errorf("queues[%d].name: %q may only contain letters, digits, '.', '_' and '-'", i, q.Name)
		}
		if _, dup := seen[q.Name]; dup {
			return fmt.Errorf("queues[%d].name: queue %q declared twice", i, q.Name)
		}
		seen[q.Name] = struct{}{}
		if q.MaxExecutions < 0 {
			return fmt.Errorf("queues[%d].max_executions must not be negative", i)
		}
	}
	return nil
}
