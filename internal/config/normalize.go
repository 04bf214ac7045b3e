package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLocking(); err != nil {
		return err
	}
	c.normalizeReaper()
	c.normalizeLogging()
	c.normalizeQueues()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("NXQUEUE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeLocking() error {
	c.Locking.Backend = strings.ToLower(strings.TrimSpace(c.Locking.Backend))
	if c.Locking.Backend == "" {
		c.Locking.Backend = LockBackendFile
	}
	if strings.TrimSpace(c.Locking.Dir) == "" {
		c.Locking.Dir = filepath.Join(c.Paths.StateDir, "locks")
	}
	var err error
	if c.Locking.Dir, err = expandPath(c.Locking.Dir); err != nil {
		return fmt.Errorf("locking.dir: %w", err)
	}
	c.Locking.RedisAddr = strings.TrimSpace(c.Locking.RedisAddr)
	if c.Locking.RedisAddr == "" {
		if value, ok := os.LookupEnv("NXQUEUE_REDIS_ADDR"); ok {
			c.Locking.RedisAddr = strings.TrimSpace(value)
		}
	}
	if c.Locking.RedisAddr == "" {
		c.Locking.RedisAddr = defaultRedisAddr
	}
	if c.Locking.RedisPassword == "" {
		if value, ok := os.LookupEnv("NXQUEUE_REDIS_PASSWORD"); ok {
			c.Locking.RedisPassword = value
		}
	}
	if strings.TrimSpace(c.Locking.KeyPrefix) == "" {
		c.Locking.KeyPrefix = defaultLockKeyPrefix
	}
	return nil
}

func (c *Config) normalizeReaper() {
	c.Reaper.Schedule = strings.TrimSpace(c.Reaper.Schedule)
	if c.Reaper.Schedule == "" {
		c.Reaper.Schedule = defaultReaperSchedule
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeQueues() {
	for i := range c.Queues {
		q := &c.Queues[i]
		q.Name = strings.TrimSpace(q.Name)
		q.ContentType = strings.ToLower(strings.TrimSpace(q.ContentType))
		if q.ContentType == "" {
			q.ContentType = defaultContentType
		}
		q.Persister = strings.ToLower(strings.TrimSpace(q.Persister))
		if q.Persister == "" {
			q.Persister = defaultPersister
		}
		q.Processor = strings.ToLower(strings.TrimSpace(q.Processor))
		if q.Processor == "" {
			q.Processor = defaultProcessor
		}
	}
}
