// Package config holds the typed configuration of the service and loads it
// through viper from defaults, a YAML file, MUDRA_* environment variables and
// bound flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/ingest"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/scene"
	"github.com/ayusman/mudra/internal/session"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. MUDRA_SERVER_ADDR.
const EnvPrefix = "MUDRA"

// ServerConfig configures the HTTP and WebSocket surface.
type ServerConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	StaticDir string `yaml:"static_dir" mapstructure:"static_dir"` // empty searches web/ and ~/.mudra/web
	// BroadcastRate limits scene broadcasts per second; BroadcastBurst is the
	// token bucket size.
	BroadcastRate  float64 `yaml:"broadcast_rate" mapstructure:"broadcast_rate"`
	BroadcastBurst int     `yaml:"broadcast_burst" mapstructure:"broadcast_burst"`
	// Encoding of WebSocket messages: json or cbor.
	Encoding      string `yaml:"encoding" mapstructure:"encoding"`
	StreamQuality int    `yaml:"stream_quality" mapstructure:"stream_quality"` // MJPEG quality 1-100
}

// StoreConfig locates the sqlite database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PipelineConfig controls frame pacing.
type PipelineConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"` // start with detection on
	IdleFPS     int           `yaml:"idle_fps" mapstructure:"idle_fps"`
	ActiveFPS   int           `yaml:"active_fps" mapstructure:"active_fps"`
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RenderHz    int           `yaml:"render_hz" mapstructure:"render_hz"`
}

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig         `yaml:"server" mapstructure:"server"`
	Store    StoreConfig          `yaml:"store" mapstructure:"store"`
	Camera   capture.Config       `yaml:"camera" mapstructure:"camera"`
	Motion   capture.MotionConfig `yaml:"motion" mapstructure:"motion"`
	Detector detector.Config      `yaml:"detector" mapstructure:"detector"`
	Ingest   ingest.Config        `yaml:"ingest" mapstructure:"ingest"`
	Pipeline PipelineConfig       `yaml:"pipeline" mapstructure:"pipeline"`
	Session  session.Config       `yaml:"session" mapstructure:"session"`
	Scene    scene.Config         `yaml:"scene" mapstructure:"scene"`
	Plugins  plugin.Config        `yaml:"plugins" mapstructure:"plugins"`
	Tray     bool                 `yaml:"tray" mapstructure:"tray"`
}

// Dir returns the per-user data directory, ~/.mudra.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".mudra"), nil
}

// Default returns the built-in configuration.
func Default() Config {
	dbPath := "mudra.db"
	plugins := plugin.DefaultConfig()
	plugins.Dir = "plugins"
	if dir, err := Dir(); err == nil {
		dbPath = filepath.Join(dir, "mudra.db")
		plugins.Dir = filepath.Join(dir, "plugins")
	}

	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			BroadcastRate:  30,
			BroadcastBurst: 5,
			Encoding:       "json",
			StreamQuality:  80,
		},
		Store:    StoreConfig{Path: dbPath},
		Camera:   capture.DefaultConfig(),
		Motion:   capture.DefaultMotionConfig(),
		Detector: detector.DefaultConfig(),
		Ingest:   ingest.DefaultConfig(),
		Pipeline: PipelineConfig{
			Enabled:     true,
			IdleFPS:     5,
			ActiveFPS:   15,
			IdleTimeout: 2 * time.Second,
			RenderHz:    60,
		},
		Session: session.DefaultConfig(),
		Scene:   scene.DefaultConfig(),
		Plugins: plugins,
		Tray:    false,
	}
}

// Validate checks the values the pipeline and server cannot run with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is empty")
	}
	switch c.Server.Encoding {
	case "json", "cbor":
	default:
		return fmt.Errorf("server.encoding must be json or cbor, got %q", c.Server.Encoding)
	}
	if c.Server.BroadcastRate <= 0 || c.Server.BroadcastBurst <= 0 {
		return fmt.Errorf("server broadcast rate and burst must be positive")
	}
	if c.Pipeline.IdleFPS <= 0 || c.Pipeline.ActiveFPS < c.Pipeline.IdleFPS {
		return fmt.Errorf("pipeline fps must satisfy 0 < idle_fps <= active_fps")
	}
	if c.Pipeline.RenderHz <= 0 {
		return fmt.Errorf("pipeline.render_hz must be positive")
	}
	if c.Plugins.Enabled && (c.Plugins.Dir == "" || c.Plugins.Timeout <= 0) {
		return fmt.Errorf("plugins need a dir and a positive timeout when enabled")
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

// SetDefaults registers every leaf of Default on v, so environment variables
// override keys that appear in no config file.
func SetDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setLeaves(v, "", tree)
	return nil
}

func setLeaves(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setLeaves(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Configure points v at file, or at ~/.mudra/config.yaml when file is empty,
// and enables MUDRA_* environment overrides.
func Configure(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the config file if there is one and decodes v into a Config.
// A missing default file is not an error; a missing explicit file is.
func Load(v *viper.Viper) (Config, error) {
	if err := SetDefaults(v); err != nil {
		return Config{}, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
