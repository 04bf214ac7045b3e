package testsupport

import (
	"path/filepath"
	"testing"

	"nxqueue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Locking.Dir = filepath.Join(base, "state", "locks")
	cfgVal.Locking.WaitMillis = 200
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return builder.cfg
}

// WithQueues replaces the configured queue descriptors.
func WithQueues(queues ...config.Queue) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queues = append([]config.Queue(nil), queues...)
	}
}

// WithRedisLocking switches the lock backend to the Redis server at addr.
func WithRedisLocking(addr string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Locking.Backend = config.LockBackendRedis
		b.cfg.Locking.RedisAddr = addr
	}
}

// WithAdminActive sets the initial administrative status.
func WithAdminActive(active bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Admin.Active = active
	}
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
