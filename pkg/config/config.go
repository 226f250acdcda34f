// Package config holds every tuning constant of Chroma Scribe.
//
// Configuration is read from TOML (the default) or YAML, chosen by file
// extension. Missing files yield [Default]. Secrets never live in the file:
// they come from the environment, optionally seeded from a .env file with
// [LoadDotEnv].
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/chromascribe/pkg/errors"
)

// Environment variables consulted by [Config.ApplyEnv].
const (
	EnvGeminiKey      = "GEMINI_API_KEY"
	EnvUpstreamToken  = "UPSTREAM_TOKEN"
	EnvEvolveEndpoint = "CHROMASCRIBE_EVOLVE_ENDPOINT"
	EnvRedisAddr      = "CHROMASCRIBE_REDIS_ADDR"
)

// Config is the full tuning surface.
type Config struct {
	Trajectory TrajectoryConfig `toml:"trajectory" yaml:"trajectory"`
	Brush      BrushConfig      `toml:"brush" yaml:"brush"`
	Color      ColorConfig      `toml:"color" yaml:"color"`
	Canvas     CanvasConfig     `toml:"canvas" yaml:"canvas"`
	Audio      AudioConfig      `toml:"audio" yaml:"audio"`
	Evolve     EvolveConfig     `toml:"evolve" yaml:"evolve"`
}

// TrajectoryConfig tunes the mapping from tracker space to scene space.
type TrajectoryConfig struct {
	Alpha         float64 `toml:"alpha" yaml:"alpha"`
	Epsilon       float64 `toml:"epsilon" yaml:"epsilon"`
	ScaleX        float64 `toml:"scale_x" yaml:"scale_x"`
	ScaleY        float64 `toml:"scale_y" yaml:"scale_y"`
	Depth         float64 `toml:"depth" yaml:"depth"`
	AbsenceFrames int     `toml:"absence_frames" yaml:"absence_frames"`
}

// BrushConfig tunes stroke geometry.
type BrushConfig struct {
	Default              string   `toml:"default" yaml:"default"`
	InkWidth             float64  `toml:"ink_width" yaml:"ink_width"`
	StringWidth          float64  `toml:"string_width" yaml:"string_width"`
	SmokeSize            float64  `toml:"smoke_size" yaml:"smoke_size"`
	WorldScale           float64  `toml:"world_scale" yaml:"world_scale"`
	ParticleCount        int      `toml:"particle_count" yaml:"particle_count"`
	ParticleLifetime     Duration `toml:"particle_lifetime" yaml:"particle_lifetime"`
	ParticleLifetimeStep Duration `toml:"particle_lifetime_step" yaml:"particle_lifetime_step"`
	ParticleJitter       float64  `toml:"particle_jitter" yaml:"particle_jitter"`
	Seed                 int64    `toml:"seed" yaml:"seed"`
}

// ColorConfig tunes color derivation.
type ColorConfig struct {
	Palette             []string `toml:"palette" yaml:"palette"`
	SaturationBase      float64  `toml:"saturation_base" yaml:"saturation_base"`
	SaturationDepthGain float64  `toml:"saturation_depth_gain" yaml:"saturation_depth_gain"`
	Lightness           float64  `toml:"lightness" yaml:"lightness"`
}

// CanvasConfig tunes the renderer.
type CanvasConfig struct {
	Width          int        `toml:"width" yaml:"width"`
	Height         int        `toml:"height" yaml:"height"`
	FOV            float64    `toml:"fov" yaml:"fov"`
	CameraZ        float64    `toml:"camera_z" yaml:"camera_z"`
	Background     string     `toml:"background" yaml:"background"`
	Ambient        float64    `toml:"ambient" yaml:"ambient"`
	Light          [3]float64 `toml:"light" yaml:"light"`
	PreserveBuffer bool       `toml:"preserve_buffer" yaml:"preserve_buffer"`
	FPS            int        `toml:"fps" yaml:"fps"`
}

// AudioConfig tunes the audio analyzer.
type AudioConfig struct {
	FFTSize        int     `toml:"fft_size" yaml:"fft_size"`
	Smoothing      float64 `toml:"smoothing" yaml:"smoothing"`
	VolumeGain     float64 `toml:"volume_gain" yaml:"volume_gain"`
	PitchCeilingHz float64 `toml:"pitch_ceiling_hz" yaml:"pitch_ceiling_hz"`
}

// EvolveConfig configures both the evolve client and the proxy server.
type EvolveConfig struct {
	Endpoint    string   `toml:"endpoint" yaml:"endpoint"`
	Timeout     Duration `toml:"timeout" yaml:"timeout"`
	Backend     string   `toml:"backend" yaml:"backend"`
	Model       string   `toml:"model" yaml:"model"`
	UpstreamURL string   `toml:"upstream_url" yaml:"upstream_url"`
	CacheTTL    Duration `toml:"cache_ttl" yaml:"cache_ttl"`
	RedisAddr   string   `toml:"redis_addr" yaml:"redis_addr"`
	Listen      string   `toml:"listen" yaml:"listen"`

	APIKey        string `toml:"-" yaml:"-"`
	UpstreamToken string `toml:"-" yaml:"-"`
}

// Evolve backends.
const (
	BackendGenAI    = "genai"
	BackendUpstream = "upstream"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Trajectory: TrajectoryConfig{
			Alpha:         0.5,
			Epsilon:       0.01,
			ScaleX:        -15,
			ScaleY:        -10,
			Depth:         5,
			AbsenceFrames: 30,
		},
		Brush: BrushConfig{
			Default:              "ink",
			InkWidth:             25,
			StringWidth:          10,
			SmokeSize:            4,
			WorldScale:           0.08,
			ParticleCount:        3,
			ParticleLifetime:     Duration(2 * time.Second),
			ParticleLifetimeStep: Duration(500 * time.Millisecond),
			ParticleJitter:       0.15,
			Seed:                 42,
		},
		Color: ColorConfig{
			Palette:             []string{"#598280", "#C7A250", "#B86A4C"},
			SaturationBase:      0.7,
			SaturationDepthGain: 0.06,
			Lightness:           0.5,
		},
		Canvas: CanvasConfig{
			Width:          800,
			Height:         600,
			FOV:            75,
			CameraZ:        8,
			Background:     "#28282D",
			Ambient:        0.5,
			Light:          [3]float64{10, 10, 10},
			PreserveBuffer: true,
			FPS:            60,
		},
		Audio: AudioConfig{
			FFTSize:        2048,
			Smoothing:      0.8,
			VolumeGain:     5,
			PitchCeilingHz: 500,
		},
		Evolve: EvolveConfig{
			Endpoint: "http://localhost:3001/api/evolve",
			Timeout:  Duration(60 * time.Second),
			Backend:  BackendGenAI,
			Model:    "gemini-2.5-flash-image",
			CacheTTL: Duration(24 * time.Hour),
			Listen:   ":3001",
		},
	}
}

// Load reads the configuration at path on top of [Default].
// A missing file is not an error. Environment overrides are applied and the
// result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml", "":
		_, err = toml.Decode(string(data), cfg)
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q (use .toml or .yaml)", filepath.Ext(path))
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	return nil
}

// Save writes cfg to path in the format implied by its extension.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(c)
		data = []byte(sb.String())
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv copies secrets and endpoint overrides from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvGeminiKey); v != "" {
		c.Evolve.APIKey = v
	}
	if v := os.Getenv(EnvUpstreamToken); v != "" {
		c.Evolve.UpstreamToken = v
	}
	if v := os.Getenv(EnvEvolveEndpoint); v != "" {
		c.Evolve.Endpoint = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Evolve.RedisAddr = v
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; existing variables win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", p)
		}
	}
	return nil
}

// DefaultPath returns ~/.config/chromascribe/config.toml (XDG aware).
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, "chromascribe", "config.toml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chromascribe", "config.toml"), nil
}

// Duration is a time.Duration that reads and writes as a string ("2s").
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
