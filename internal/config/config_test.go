package config_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"nxqueue/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "nxqueue")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.LogDir != filepath.Join(wantState, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Locking.Dir != filepath.Join(wantState, "locks") {
		t.Fatalf("unexpected lock dir: %q", cfg.Locking.Dir)
	}
	if cfg.Locking.Backend != config.LockBackendFile {
		t.Fatalf("expected file lock backend by default, got %q", cfg.Locking.Backend)
	}
	if !cfg.Admin.Active {
		t.Fatal("expected node active by default")
	}
	if len(cfg.Queues) != 1 || cfg.Queues[0].Name != "default" {
		t.Fatalf("unexpected default queues: %+v", cfg.Queues)
	}
	if cfg.LockWait().Milliseconds() != int64(config.Default().Locking.WaitMillis) {
		t.Fatalf("unexpected lock wait: %s", cfg.LockWait())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Locking.Dir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nxqueue.toml")

	type payload struct {
		Paths struct {
			StateDir string `toml:"state_dir"`
		} `toml:"paths"`
		Locking struct {
			Backend    string `toml:"backend"`
			WaitMillis int    `toml:"wait_ms"`
		} `toml:"locking"`
		Queues []config.Queue `toml:"queues"`
	}
	custom := payload{}
	custom.Paths.StateDir = filepath.Join(tempDir, "state")
	custom.Locking.Backend = "Redis"
	custom.Locking.WaitMillis = 250
	custom.Queues = []config.Queue{
		{Name: "jobs", ContentType: "JSON", MaxExecutions: 3},
		{Name: "mail", Persister: "memory", Processor: "noop"},
	}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Locking.Backend != config.LockBackendRedis {
		t.Fatalf("expected backend normalized to redis, got %q", cfg.Locking.Backend)
	}
	if cfg.Paths.LogDir != filepath.Join(tempDir, "state", "logs") {
		t.Fatalf("expected log dir derived from state dir, got %q", cfg.Paths.LogDir)
	}
	if len(cfg.Queues) != 2 {
		t.Fatalf("expected file queues to replace defaults, got %+v", cfg.Queues)
	}
	jobs := cfg.Queues[0]
	if jobs.ContentType != "json" || jobs.Persister != "document" || jobs.Processor != "log" || jobs.MaxExecutions != 3 {
		t.Fatalf("unexpected jobs descriptor: %+v", jobs)
	}
	mail := cfg.Queues[1]
	if mail.ContentType != "string" || mail.Persister != "memory" || mail.Processor != "noop" {
		t.Fatalf("unexpected mail descriptor: %+v", mail)
	}
}

func TestLogDirFollowsStateDir(t *testing.T) {
	tempDir := t.TempDir()
	stateDir := filepath.Join(tempDir, "state")

	cases := []struct {
		name    string
		paths   string
		wantLog string
	}{
		{"derived", "state_dir = " + strconv.Quote(stateDir), filepath.Join(stateDir, "logs")},
		{"explicit", "state_dir = " + strconv.Quote(stateDir) + "\nlog_dir = " + strconv.Quote(filepath.Join(tempDir, "elsewhere")), filepath.Join(tempDir, "elsewhere")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "nxqueue.toml")
			if err := os.WriteFile(configPath, []byte("[paths]\n"+tc.paths+"\n"), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if cfg.Paths.LogDir != tc.wantLog {
				t.Fatalf("log dir = %q, want %q", cfg.Paths.LogDir, tc.wantLog)
			}
		})
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"backend", func(c *config.Config) { c.Locking.Backend = "zookeeper" }, "locking.backend"},
		{"lease", func(c *config.Config) { c.Locking.LeaseSeconds = 0 }, "locking.lease_seconds"},
		{"schedule", func(c *config.Config) { c.Reaper.Schedule = "every now and then" }, "reaper.schedule"},
		{"queue name", func(c *config.Config) { c.Queues[0].Name = "bad name" }, "queues[0].name"},
		{"duplicate queue", func(c *config.Config) { c.Queues = append(c.Queues, c.Queues[0]) }, "declared twice"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Locking.Dir = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "conf", "nxqueue.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if len(cfg.Queues) != 1 || cfg.Queues[0].Name != "default" {
		t.Fatalf("unexpected sample queues: %+v", cfg.Queues)
	}
	if cfg.Paths.LogDir != filepath.Join(cfg.Paths.StateDir, "logs") {
		t.Fatalf("sample log dir %q is not below state dir %q", cfg.Paths.LogDir, cfg.Paths.StateDir)
	}
}
