package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config captures the preview, export and editor settings of a project.
type Config struct {
	Version int           `yaml:"version" toml:"version"`
	Preview PreviewConfig `yaml:"preview" toml:"preview"`
	Export  ExportConfig  `yaml:"export" toml:"export"`
	Editor  EditorConfig  `yaml:"editor" toml:"editor"`
	Media   MediaConfig   `yaml:"media" toml:"media"`
	Audio   AudioConfig   `yaml:"audio" toml:"audio"`
	Text    TextConfig    `yaml:"text" toml:"text"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Tools   ToolsConfig   `yaml:"tools" toml:"tools"`
}

// PreviewConfig sizes the live preview surface.
type PreviewConfig struct {
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`
	// TickMS is the playback scheduling interval.
	TickMS int `yaml:"tick_ms" toml:"tick_ms"`
}

// ExportConfig controls the export pipeline.
type ExportConfig struct {
	Resolution  string   `yaml:"resolution" toml:"resolution"`
	FPS         int      `yaml:"fps" toml:"fps"`
	BitrateKbps int      `yaml:"bitrate_kbps" toml:"bitrate_kbps"`
	Profiles    []string `yaml:"profiles" toml:"profiles"`
	OutputDir   string   `yaml:"output_dir" toml:"output_dir"`
}

// EditorConfig holds timeline and history settings.
type EditorConfig struct {
	HistoryLimit      int `yaml:"history_limit" toml:"history_limit"`
	AutosaveIntervalS int `yaml:"autosave_interval_s" toml:"autosave_interval_s"`
}

// MediaConfig controls ingestion and the raster cache.
type MediaConfig struct {
	Dir           string `yaml:"dir" toml:"dir"`
	CacheEntries  int    `yaml:"cache_entries" toml:"cache_entries"`
	DecodeWorkers int    `yaml:"decode_workers" toml:"decode_workers"`
	Watch         *bool  `yaml:"watch,omitempty" toml:"watch,omitempty"`
}

// AudioConfig describes preview audio playback.
type AudioConfig struct {
	Volume float64 `yaml:"volume" toml:"volume"`
	Player string  `yaml:"player" toml:"player"`
}

// TextConfig holds text rendering settings.
type TextConfig struct {
	// BaselineWidth is the surface width at which font sizes apply unscaled.
	BaselineWidth int `yaml:"baseline_width" toml:"baseline_width"`
}

// ServerConfig configures `reelcut serve`.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// ToolsConfig overrides external tool locations.
type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg" toml:"ffmpeg"`
	FFplay  string `yaml:"ffplay" toml:"ffplay"`
	FFprobe string `yaml:"ffprobe" toml:"ffprobe"`
}

// WatchEnabled returns the effective media watch flag.
func (m MediaConfig) WatchEnabled() bool {
	if m.Watch == nil {
		return false
	}
	return *m.Watch
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Preview: PreviewConfig{
			Width:  960,
			Height: 540,
			TickMS: 16,
		},
		Export: ExportConfig{
			Resolution:  "1080p",
			FPS:         25,
			BitrateKbps: 8000,
			Profiles:    []string{"webm-vp9", "mp4-h264"},
			OutputDir:   "exports",
		},
		Editor: EditorConfig{
			HistoryLimit:      50,
			AutosaveIntervalS: 60,
		},
		Media: MediaConfig{
			Dir:           "media",
			CacheEntries:  64,
			DecodeWorkers: 4,
			Watch:         boolPtr(false),
		},
		Audio: AudioConfig{
			Volume: 0.7,
			Player: "ffplay",
		},
		Text: TextConfig{
			BaselineWidth: 1920,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Tools: ToolsConfig{
			FFmpeg:  "ffmpeg",
			FFplay:  "ffplay",
			FFprobe: "ffprobe",
		},
	}
}

// Load reads the configuration from disk if it exists, otherwise returns
// the default configuration. Files ending in .toml are decoded as TOML,
// everything else as YAML.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if isTOML(path) {
		if _, err := toml.Decode(string(contents), &cfg); err != nil {
			return Config{}, fmt.Errorf("decode toml config: %w", err)
		}
	} else if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// file omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Preview.Width <= 0 {
		c.Preview.Width = defaults.Preview.Width
	}
	if c.Preview.Height <= 0 {
		c.Preview.Height = defaults.Preview.Height
	}
	if c.Preview.TickMS <= 0 {
		c.Preview.TickMS = defaults.Preview.TickMS
	}
	if strings.TrimSpace(c.Export.Resolution) == "" {
		c.Export.Resolution = defaults.Export.Resolution
	}
	if c.Export.FPS <= 0 {
		c.Export.FPS = defaults.Export.FPS
	}
	if c.Export.BitrateKbps <= 0 {
		c.Export.BitrateKbps = defaults.Export.BitrateKbps
	}
	if len(c.Export.Profiles) == 0 {
		c.Export.Profiles = defaults.Export.Profiles
	}
	if strings.TrimSpace(c.Export.OutputDir) == "" {
		c.Export.OutputDir = defaults.Export.OutputDir
	}
	if c.Editor.HistoryLimit <= 0 {
		c.Editor.HistoryLimit = defaults.Editor.HistoryLimit
	}
	if c.Editor.AutosaveIntervalS == 0 {
		c.Editor.AutosaveIntervalS = defaults.Editor.AutosaveIntervalS
	}
	if strings.TrimSpace(c.Media.Dir) == "" {
		c.Media.Dir = defaults.Media.Dir
	}
	if c.Media.CacheEntries <= 0 {
		c.Media.CacheEntries = defaults.Media.CacheEntries
	}
	if c.Media.DecodeWorkers <= 0 {
		c.Media.DecodeWorkers = defaults.Media.DecodeWorkers
	}
	if c.Media.Watch == nil {
		c.Media.Watch = boolPtr(false)
	}
	if c.Audio.Volume == 0 {
		c.Audio.Volume = defaults.Audio.Volume
	}
	if strings.TrimSpace(c.Audio.Player) == "" {
		c.Audio.Player = defaults.Audio.Player
	}
	if c.Text.BaselineWidth <= 0 {
		c.Text.BaselineWidth = defaults.Text.BaselineWidth
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		c.Tools.FFmpeg = defaults.Tools.FFmpeg
	}
	if strings.TrimSpace(c.Tools.FFplay) == "" {
		c.Tools.FFplay = defaults.Tools.FFplay
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		c.Tools.FFprobe = defaults.Tools.FFprobe
	}
}

// AutosaveEnabled reports whether periodic autosave is on. A negative
// interval disables it.
func (c Config) AutosaveEnabled() bool {
	return c.Editor.AutosaveIntervalS > 0
}

// AutosaveInterval returns the autosave period, zero when disabled.
func (c Config) AutosaveInterval() time.Duration {
	if !c.AutosaveEnabled() {
		return 0
	}
	return time.Duration(c.Editor.AutosaveIntervalS) * time.Second
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func boolPtr(v bool) *bool {
	return &v
}
