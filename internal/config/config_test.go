package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") = %v", err)
	}
	if cfg.Cache.Backend != CacheFile || cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[layout]
algorithm = "circular"
width = 900.0
seed = 7

[render]
formats = ["json", "svg"]
detailed = true

[cache]
backend = "redis"
ttl = "90m"

[cache.redis]
addr = "localhost:6379"
db = 2

[store]
backend = "sqlite"
path = "/tmp/layouts.db"

[server]
addr = "127.0.0.1:9000"
shutdown_timeout = "3s"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Layout.Algorithm != graph.AlgorithmCircular || cfg.Layout.Width != 900 || cfg.Layout.Seed != 7 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Layout.Height != Default().Layout.Height {
		t.Errorf("unset height = %v, want default", cfg.Layout.Height)
	}
	if cfg.Cache.TTL.Duration != 90*time.Minute {
		t.Errorf("ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Cache.Redis.Addr != "localhost:6379" || cfg.Cache.Redis.DB != 2 {
		t.Errorf("redis = %+v", cfg.Cache.Redis)
	}
	if cfg.Server.ShutdownTimeout.Duration != 3*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.Server.ShutdownTimeout)
	}
	if p, _ := cfg.StorePath(); p != "/tmp/layouts.db" {
		t.Errorf("StorePath = %q", p)
	}

	opts := cfg.PipelineOptions()
	if opts.Algorithm != graph.AlgorithmCircular || !opts.Detailed || len(opts.Formats) != 2 {
		t.Errorf("PipelineOptions = %+v", opts)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		code errs.Code
	}{
		{"syntax", "[layout\n", errs.ErrCodeInvalidFormat},
		{"unknown key", "[layout]\nsprings = 3\n", errs.ErrCodeInvalidInput},
		{"unknown cache backend", "[cache]\nbackend = \"memcached\"\n", errs.ErrCodeInvalidInput},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n", errs.ErrCodeInvalidInput},
		{"mongo without uri", "[store]\nbackend = \"mongo\"\n", errs.ErrCodeInvalidInput},
		{"bad algorithm", "[layout]\nalgorithm = \"spiral\"\n", errs.ErrCodeInvalidAlgorithm},
		{"bad format", "[render]\nformats = [\"gif\"]\n", errs.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestXDGPaths(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"config", DefaultPath, filepath.Join(base, "config", AppName, "config.toml")},
		{"cache", CacheDir, filepath.Join(base, "cache", AppName)},
		{"data", DataDir, filepath.Join(base, "data", AppName)},
		{"store", Default().StorePath, filepath.Join(base, "data", AppName, "layouts.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHomeFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")

	got, err := CacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".cache", AppName); got != want {
		t.Errorf("CacheDir = %q, want %q", got, want)
	}
}
