package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/chromascribe/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[trajectory]
alpha = 0.25
absence_frames = 10

[brush]
default = "smoke"
particle_lifetime = "3s"

[canvas]
width = 1024
height = 768
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Trajectory.Alpha != 0.25 || cfg.Trajectory.AbsenceFrames != 10 {
		t.Errorf("trajectory = %+v", cfg.Trajectory)
	}
	if cfg.Trajectory.Epsilon != 0.01 {
		t.Errorf("unset keys should keep defaults, epsilon = %g", cfg.Trajectory.Epsilon)
	}
	if cfg.Brush.Default != "smoke" {
		t.Errorf("brush.default = %q", cfg.Brush.Default)
	}
	if cfg.Brush.ParticleLifetime.D() != 3*time.Second {
		t.Errorf("particle_lifetime = %v", cfg.Brush.ParticleLifetime.D())
	}
	if cfg.Canvas.Width != 1024 || cfg.Canvas.Height != 768 {
		t.Errorf("canvas = %dx%d", cfg.Canvas.Width, cfg.Canvas.Height)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
color:
  palette: ["#000000", "#ffffff"]
evolve:
  backend: upstream
  upstream_url: http://upstream:9000/api/evolve
  timeout: 5s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{"#000000", "#ffffff"}, cfg.Color.Palette); diff != "" {
		t.Errorf("palette mismatch (-want +got):\n%s", diff)
	}
	if cfg.Evolve.Backend != BackendUpstream || cfg.Evolve.Timeout.D() != 5*time.Second {
		t.Errorf("evolve = %+v", cfg.Evolve)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad toml", "c.toml", "[trajectory\nalpha = 1"},
		{"bad duration", "c.toml", "[brush]\nparticle_lifetime = \"soon\""},
		{"unknown extension", "c.json", "{}"},
		{"invalid alpha", "c.toml", "[trajectory]\nalpha = 0"},
		{"unknown brush", "c.yaml", "brush:\n  default: chalk"},
		{"discarded buffer", "c.toml", "[canvas]\npreserve_buffer = false"},
		{"fft not power of two", "c.toml", "[audio]\nfft_size = 1000"},
		{"bad palette", "c.toml", "[color]\npalette = [\"teal\", \"#fff\"]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			writeFile(t, path, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidConfig)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvGeminiKey, "secret")
	t.Setenv(EnvUpstreamToken, "tok")
	t.Setenv(EnvEvolveEndpoint, "https://example.com/api/evolve")
	t.Setenv(EnvRedisAddr, "localhost:6379")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.Evolve.APIKey != "secret" || cfg.Evolve.UpstreamToken != "tok" {
		t.Errorf("secrets not applied: %+v", cfg.Evolve)
	}
	if cfg.Evolve.Endpoint != "https://example.com/api/evolve" || cfg.Evolve.RedisAddr != "localhost:6379" {
		t.Errorf("overrides not applied: %+v", cfg.Evolve)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "CHROMASCRIBE_TEST_DOTENV=from-file\n")
	t.Setenv("CHROMASCRIBE_TEST_DOTENV", "")
	os.Unsetenv("CHROMASCRIBE_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("CHROMASCRIBE_TEST_DOTENV"); got != "from-file" {
		t.Errorf("env = %q, want from-file", got)
	}
}

func TestSaveRoundTripsThroughLoad(t *testing.T) {
	clearEnv(t)
	for _, name := range []string{"config.toml", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			want := Default()
			want.Brush.Default = "string"
			want.Canvas.FPS = 30
			if err := want.Save(path); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[canvas]\nfps = 60\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	w := &Watcher{Path: path, Debounce: 20 * time.Millisecond, OnChange: func(c *Config) { got <- c }}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "[canvas]\nfps = 24\n")

	select {
	case cfg := <-got:
		if cfg.Canvas.FPS != 24 {
			t.Errorf("fps = %d, want 24", cfg.Canvas.FPS)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvGeminiKey, EnvUpstreamToken, EnvEvolveEndpoint, EnvRedisAddr} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
