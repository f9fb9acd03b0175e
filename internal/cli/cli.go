// Package cli implements the mindmap command-line interface.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/buildinfo"
	"github.com/matzehuels/mindmap/pkg/cache"
	"github.com/matzehuels/mindmap/pkg/config"
	"github.com/matzehuels/mindmap/pkg/editor"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/pipeline"
	"github.com/matzehuels/mindmap/pkg/session"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "mindmap"

	// rootAlias may be used instead of the root's identifier.
	rootAlias = "root"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel

	// logQuiet keeps everything but fatal errors off the terminal, for the
	// full-screen TUI.
	logQuiet = log.FatalLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Mindmap edits and renders mind maps stored as JSON",
		Long:         `Mindmap is a CLI tool for building mind maps: a tree of text, image and link nodes laid out automatically around a central root, exported to SVG, PNG, PDF, Graphviz and YAML.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/mindmap/config.toml)")

	// Register all subcommands
	root.AddCommand(c.newCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.addCommand())
	root.AddCommand(c.rmCommand())
	root.AddCommand(c.mvCommand())
	root.AddCommand(c.dragCommand())
	root.AddCommand(c.setCommand())
	root.AddCommand(c.organizeCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.tuiCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.recentCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config returns the loaded configuration, or the defaults when commands run
// without the root's pre-run hook (as in tests).
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg := c.config()
	eng, err := cfg.Engine()
	if err != nil {
		return nil, err
	}
	var ch cache.Cache = cache.NewNullCache()
	if !noCache {
		if ch, err = cfg.OpenCache(ctx); err != nil {
			c.Logger.Warn("cache unavailable; rendering without it", "error", err)
			ch = cache.NewNullCache()
		}
	}
	r := pipeline.NewRunner(ch, nil, c.Logger)
	r.Engine = eng
	r.TTL = cfg.Cache.TTL
	return r, nil
}

// =============================================================================
// Sessions
// =============================================================================

// recentStore returns the state store in the config directory. A store that
// cannot be created only disables the recent list.
func (c *CLI) recentStore() *session.FileStore {
	dir, err := config.Dir()
	if err != nil {
		return nil
	}
	store, err := session.NewFileStore(dir)
	if err != nil {
		c.Logger.Debug("recent list disabled", "error", err)
		return nil
	}
	return store
}

// openSession opens the document at path with the configured layout engine.
func (c *CLI) openSession(ctx context.Context, path string) (*session.Session, error) {
	eng, err := c.config().Engine()
	if err != nil {
		return nil, err
	}
	opts := []session.Option{
		session.WithLogger(c.Logger),
		session.WithEditorOptions(editor.WithLogger(c.Logger)),
	}
	if store := c.recentStore(); store != nil {
		opts = append(opts, session.WithRecent(store))
	}
	return session.Open(ctx, path, eng, opts...)
}

// edit opens path, applies fn and saves the result. Nothing is written if fn
// fails.
func (c *CLI) edit(ctx context.Context, path string, fn func(ed *editor.Editor) error) error {
	sess, err := c.openSession(ctx, path)
	if err != nil {
		return err
	}
	err = sess.Do(func(ed *editor.Editor) error {
		return ed.Batch(ctx, func() error { return fn(ed) })
	})
	if err != nil {
		return err
	}
	return sess.Save(ctx)
}

// resolveID accepts a full identifier, "root", or a unique prefix of an
// identifier.
func resolveID(s *tree.Store, arg string) (tree.NodeID, error) {
	if arg == rootAlias && s.Root() != "" {
		return s.Root(), nil
	}
	if s.Contains(tree.NodeID(arg)) {
		return tree.NodeID(arg), nil
	}
	var match tree.NodeID
	for _, id := range s.IDs() {
		if arg == "" || !strings.HasPrefix(string(id), arg) {
			continue
		}
		if match != "" {
			return "", pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "node prefix %q is ambiguous", arg)
		}
		match = id
	}
	if match == "" {
		return "", pkgerrors.New(pkgerrors.ErrCodeNotFound, "node %q not found", arg)
	}
	return match, nil
}

// =============================================================================
// Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
