// Package config loads the mindmap configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/mindmap/config.toml
// (~/.config/mindmap/config.toml when XDG_CONFIG_HOME is unset). Every field
// has a default, so the file is optional and may set only what differs:
//
//	[layout]
//	direction = "down"
//	level_gap = 80
//
//	[export]
//	style = "plain"
//	formats = ["svg", "png"]
//
//	[storage]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
// Unknown keys are rejected so typos do not go unnoticed.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/mindmap/pkg/cache"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/fonts"
	"github.com/matzehuels/mindmap/pkg/layout"
	"github.com/matzehuels/mindmap/pkg/pipeline"
	"github.com/matzehuels/mindmap/pkg/storage"
)

const appName = "mindmap"

// FileName is the name of the configuration file.
const FileName = "config.toml"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// DefaultAddr is the default listen address of `mindmap serve`.
const DefaultAddr = "127.0.0.1:8080"

// Config is the whole configuration file.
type Config struct {
	Layout  LayoutConfig  `toml:"layout"`
	Font    FontConfig    `toml:"font"`
	Export  ExportConfig  `toml:"export"`
	Storage StorageConfig `toml:"storage"`
	Cache   CacheConfig   `toml:"cache"`
	Server  ServerConfig  `toml:"server"`
}

// LayoutConfig mirrors layout.Config.
type LayoutConfig struct {
	Direction     string  `toml:"direction" validate:"oneof=right down left up"`
	LevelGap      float64 `toml:"level_gap" validate:"gte=0"`
	SiblingGap    float64 `toml:"sibling_gap" validate:"gte=0"`
	NodePadding   float64 `toml:"node_padding" validate:"gte=0"`
	ContentGap    float64 `toml:"content_gap" validate:"gte=0"`
	MinWidth      float64 `toml:"min_width" validate:"gte=0"`
	MinHeight     float64 `toml:"min_height" validate:"gte=0"`
	MaxImageWidth float64 `toml:"max_image_width" validate:"gte=0"`
}

// FontConfig sets the text metrics used for node sizes.
type FontConfig struct {
	Size float64 `toml:"size" validate:"gt=0,lte=200"`
	DPI  float64 `toml:"dpi" validate:"gt=0,lte=600"`
}

// ExportConfig holds the defaults of `mindmap export`.
type ExportConfig struct {
	Scale   float64  `toml:"scale" validate:"gte=0.1,lte=4"`
	Style   string   `toml:"style" validate:"oneof=classic plain"`
	Formats []string `toml:"formats" validate:"min=1,dive,oneof=svg png pdf dot yaml json"`
}

// StorageConfig selects the named-document backend.
type StorageConfig struct {
	Backend       string `toml:"backend" validate:"oneof=file redis mongo"`
	Dir           string `toml:"dir"`
	RedisURL      string `toml:"redis_url" validate:"required_if=Backend redis"`
	MongoURI      string `toml:"mongo_uri" validate:"required_if=Backend mongo"`
	MongoDatabase string `toml:"mongo_database"`
}

// CacheConfig selects the artifact cache.
type CacheConfig struct {
	Backend  string        `toml:"backend" validate:"oneof=file redis none"`
	Dir      string        `toml:"dir"`
	RedisURL string        `toml:"redis_url" validate:"required_if=Backend redis"`
	TTL      time.Duration `toml:"ttl" validate:"gte=0"`
}

// ServerConfig configures `mindmap serve`.
type ServerConfig struct {
	Addr           string   `toml:"addr" validate:"required"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	lc := layout.DefaultConfig()
	return &Config{
		Layout: LayoutConfig{
			Direction:     string(lc.Direction),
			LevelGap:      lc.LevelGap,
			SiblingGap:    lc.SiblingGap,
			NodePadding:   lc.NodePadding,
			ContentGap:    lc.ContentGap,
			MinWidth:      lc.MinWidth,
			MinHeight:     lc.MinHeight,
			MaxImageWidth: lc.MaxImageWidth,
		},
		Font: FontConfig{Size: fonts.DefaultSize, DPI: fonts.DefaultDPI},
		Export: ExportConfig{
			Scale:   pipeline.DefaultScale,
			Style:   pipeline.DefaultStyle,
			Formats: []string{pipeline.FormatSVG},
		},
		Storage: StorageConfig{Backend: storage.BackendFile, MongoDatabase: "mindmap"},
		Cache:   CacheConfig{Backend: CacheFile, TTL: pipeline.DefaultArtifactTTL},
		Server:  ServerConfig{Addr: DefaultAddr},
	}
}

// Dir returns the configuration directory.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// Path returns the default configuration file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// CacheDir returns the default artifact cache directory.
func CacheDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads the file at path over the defaults. With an empty path the
// default location is used, and a missing file there just means defaults.
// An explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidPath, err, "config file %s not found", path)
		}
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeParseFailure, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := pkgerrors.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.LayoutConfig().Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "layout")
	}
	return nil
}

// LayoutConfig converts the [layout] section.
func (c *Config) LayoutConfig() layout.Config {
	l := c.Layout
	return layout.Config{
		Direction:     layout.Direction(l.Direction),
		LevelGap:      l.LevelGap,
		SiblingGap:    l.SiblingGap,
		NodePadding:   l.NodePadding,
		ContentGap:    l.ContentGap,
		MinWidth:      l.MinWidth,
		MinHeight:     l.MinHeight,
		MaxImageWidth: l.MaxImageWidth,
	}
}

// Engine builds a layout engine measuring text with the embedded font.
func (c *Config) Engine() (*layout.Engine, error) {
	m, err := layout.NewFontMeasurer(c.Font.Size, c.Font.DPI)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	return layout.New(c.LayoutConfig(), m), nil
}

// StorageConfig converts the [storage] section.
func (c *Config) StorageConfig() storage.Config {
	s := c.Storage
	return storage.Config{
		Backend:       s.Backend,
		Dir:           s.Dir,
		RedisURL:      s.RedisURL,
		MongoURI:      s.MongoURI,
		MongoDatabase: s.MongoDatabase,
	}
}

// ExportOptions returns the configured export defaults.
func (c *Config) ExportOptions() pipeline.Options {
	return pipeline.Options{
		Formats:   append([]string(nil), c.Export.Formats...),
		Style:     c.Export.Style,
		Scale:     c.Export.Scale,
		Direction: layout.Direction(c.Layout.Direction),
	}
}

// CachePath returns the file cache directory: the configured one or the
// XDG default.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return CacheDir()
}

// OpenCache opens the configured artifact cache, instrumented for the
// observability hooks.
func (c *Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case CacheNone:
		return cache.NewNullCache(), nil
	case CacheRedis:
		rc, err := cache.NewRedisCache(ctx, c.Cache.RedisURL, appName+":")
		if err != nil {
			return nil, err
		}
		return cache.Instrument(rc, "artifact"), nil
	default:
		dir, err := c.CachePath()
		if err != nil {
			return nil, err
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		return cache.Instrument(fc, "artifact"), nil
	}
}
