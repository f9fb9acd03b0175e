package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/mindmap/pkg/cache"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/layout"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if got := cfg.LayoutConfig(); got != layout.DefaultConfig() {
		t.Errorf("LayoutConfig() = %+v, want layout defaults", got)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Export.Style != "classic" {
		t.Errorf("Style = %q", cfg.Export.Style)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidPath) {
		t.Errorf("err = %v, want INVALID_PATH", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[layout]
direction = "down"
level_gap = 80

[export]
style = "plain"
formats = ["svg", "png"]

[cache]
backend = "none"
ttl = "1h30m"

[server]
allowed_origins = ["http://localhost:5173"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Layout.Direction != "down" || cfg.Layout.LevelGap != 80 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Layout.SiblingGap != layout.DefaultSiblingGap {
		t.Errorf("unset sibling_gap = %v, want default", cfg.Layout.SiblingGap)
	}
	if cfg.Cache.TTL != 90*time.Minute {
		t.Errorf("ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Server.Addr != DefaultAddr || len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("server = %+v", cfg.Server)
	}

	opts := cfg.ExportOptions()
	if opts.Style != "plain" || len(opts.Formats) != 2 || opts.Direction != layout.DirectionDown {
		t.Errorf("ExportOptions() = %+v", opts)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    pkgerrors.Code
		msg     string
	}{
		{"syntax", "[layout\n", pkgerrors.ErrCodeParseFailure, ""},
		{"unknown key", "[layout]\nspacing = 3\n", pkgerrors.ErrCodeInvalidInput, "layout.spacing"},
		{"direction", "[layout]\ndirection = \"sideways\"\n", pkgerrors.ErrCodeInvalidInput, "direction"},
		{"negative gap", "[layout]\nlevel_gap = -1\n", pkgerrors.ErrCodeInvalidInput, "level_gap"},
		{"style", "[export]\nstyle = \"neon\"\n", pkgerrors.ErrCodeInvalidInput, "style"},
		{"format", "[export]\nformats = [\"gif\"]\n", pkgerrors.ErrCodeInvalidInput, "formats"},
		{"scale", "[export]\nscale = 9.0\n", pkgerrors.ErrCodeInvalidInput, "scale"},
		{"redis without url", "[storage]\nbackend = \"redis\"\n", pkgerrors.ErrCodeInvalidInput, "redis_url"},
		{"mongo without uri", "[storage]\nbackend = \"mongo\"\n", pkgerrors.ErrCodeInvalidInput, "mongo_uri"},
		{"cache backend", "[cache]\nbackend = \"memcached\"\n", pkgerrors.ErrCodeInvalidInput, "backend"},
		{"font size", "[font]\nsize = 0.0\n", pkgerrors.ErrCodeInvalidInput, "size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !pkgerrors.Is(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("err = %v, want mention of %q", err, tt.msg)
			}
		})
	}
}

func TestEngine(t *testing.T) {
	cfg := Default()
	cfg.Layout.Direction = "left"
	eng, err := cfg.Engine()
	if err != nil {
		t.Fatal(err)
	}
	if eng.Config().Direction != layout.DirectionLeft {
		t.Errorf("Direction = %s", eng.Config().Direction)
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()
	cfg := Default()
	cfg.Cache.Dir = t.TempDir()

	c, err := cfg.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "k"); !hit {
		t.Error("file cache lost the entry")
	}

	cfg.Cache.Backend = CacheNone
	n, err := cfg.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.(cache.NullCache); !ok {
		t.Errorf("none backend = %T, want NullCache", n)
	}
}

func TestCachePath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)
	cfg := Default()
	if got, _ := cfg.CachePath(); got != filepath.Join(xdg, "mindmap") {
		t.Errorf("CachePath() = %s", got)
	}
	cfg.Cache.Dir = "/tmp/elsewhere"
	if got, _ := cfg.CachePath(); got != "/tmp/elsewhere" {
		t.Errorf("CachePath() = %s", got)
	}
}
