package config

// Lock coordinator backends.
const (
	LockBackendFile  = "file"
	LockBackendRedis = "redis"
)

const (
	defaultStateDir         = "~/.local/share/nxqueue"
	defaultAPIBind          = "127.0.0.1:7491"
	defaultAPIRateLimit     = 600
	defaultLockWaitMillis   = 2000
	defaultLockLeaseSeconds = 300
	defaultLockKeyPrefix    = "nxqueue:lock:"
	defaultRedisAddr        = "127.0.0.1:6379"
	defaultReaperSchedule   = "@every 1h"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultContentType      = "string"
	defaultPersister        = "document"
	defaultProcessor        = "log"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:     defaultStateDir,
			APIBind:      defaultAPIBind,
			APIRateLimit: defaultAPIRateLimit,
		},
		Admin: Admin{
			Active: true,
		},
		Locking: Locking{
			Backend:      LockBackendFile,
			WaitMillis:   defaultLockWaitMillis,
			LeaseSeconds: defaultLockLeaseSeconds,
			RedisAddr:    defaultRedisAddr,
			KeyPrefix:    defaultLockKeyPrefix,
		},
		Reaper: Reaper{
			Enabled:  true,
			Schedule: defaultReaperSchedule,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Queues: []Queue{
			{
				Name:        "default",
				ContentType: defaultContentType,
				Persister:   defaultPersister,
				Processor:   defaultProcessor,
			},
		},
	}
}
