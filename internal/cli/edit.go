package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/buildinfo"
	"github.com/matzehuels/mindmap/pkg/cache"
	"github.com/matzehuels/mindmap/pkg/document"
	"github.com/matzehuels/mindmap/pkg/editor"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/httputil"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/session"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// contentFlags are the flags shared by commands that set node content.
type contentFlags struct {
	link  string
	image string
}

func (f *contentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.link, "link", "", "URL or file path opened from the node")
	cmd.Flags().StringVar(&f.image, "image", "", "image file or http(s) URL shown in the node")
}

// content builds node content from text and the flags.
func (c *CLI) content(ctx context.Context, f contentFlags, text string) (tree.Content, error) {
	content := tree.Content{Text: text, Link: f.link}
	if f.image != "" {
		img, err := c.loadImage(ctx, f.image)
		if err != nil {
			return content, err
		}
		content.Image = img
	}
	return content, nil
}

// loadImage reads a local image file or downloads a remote one. Downloads go
// through the configured cache.
func (c *CLI) loadImage(ctx context.Context, ref string) (*tree.Image, error) {
	if !httputil.IsRemote(ref) {
		return pkgio.LoadImage(ref)
	}
	ch, err := c.config().OpenCache(ctx)
	if err != nil {
		c.Logger.Warn("cache unavailable; downloading without it", "error", err)
		ch = cache.NewNullCache()
	}
	defer ch.Close()

	sp := newSpinner(ctx, "Downloading "+ref)
	sp.Start()
	img, err := httputil.NewFetcher(ch, httputil.WithUserAgent(appName+"/"+buildinfo.Version)).FetchImage(ctx, ref)
	sp.Stop()
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("image downloaded", "url", ref, "format", img.Format, "bytes", len(img.Data))
	return img, nil
}

// newCommand creates "new", which starts a map with a single root.
func (c *CLI) newCommand() *cobra.Command {
	var (
		force bool
		cf    contentFlags
	)
	cmd := &cobra.Command{
		Use:   "new [file] [text]",
		Short: "Create a mind map with a root node",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if fileExists(path) && !force {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidPath, "%s already exists (use --force to overwrite)", path)
			}
			text := ""
			if len(args) > 1 {
				text = args[1]
			}
			content, err := c.content(cmd.Context(), cf, text)
			if err != nil {
				return err
			}
			return c.runNew(cmd.Context(), path, content)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cf.register(cmd)
	return cmd
}

func (c *CLI) runNew(ctx context.Context, path string, content tree.Content) error {
	eng, err := c.config().Engine()
	if err != nil {
		return err
	}
	ed := editor.New(document.Empty(), eng, editor.WithLogger(c.Logger))
	if _, err := ed.Init(ctx, content); err != nil {
		return err
	}
	opts := []session.Option{session.WithLogger(c.Logger)}
	if store := c.recentStore(); store != nil {
		opts = append(opts, session.WithRecent(store))
	}
	if err := session.New(ed, "", opts...).SaveAs(ctx, path); err != nil {
		return err
	}
	printSuccess("Created %s", path)
	printNextStep("Add a node", fmt.Sprintf("%s add %s root \"Idea\"", appName, path))
	return nil
}

// addCommand creates "add", which appends a child node.
func (c *CLI) addCommand() *cobra.Command {
	var cf contentFlags
	cmd := &cobra.Command{
		Use:   "add [file] [parent] [text]",
		Short: "Add a child node",
		Long: `Add a child node below parent and lay out the parent's subtree.

Nodes are addressed by identifier, by a unique identifier prefix, or as
"root". The new node's identifier is printed.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) > 2 {
				text = args[2]
			}
			content, err := c.content(cmd.Context(), cf, text)
			if err != nil {
				return err
			}
			var id tree.NodeID
			err = c.edit(cmd.Context(), args[0], func(ed *editor.Editor) error {
				parent, err := resolveID(ed.Document().Tree, args[1])
				if err != nil {
					return err
				}
				id, err = ed.AddChild(cmd.Context(), parent, content)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	cf.register(cmd)
	return cmd
}

// rmCommand creates "rm", which deletes a subtree.
func (c *CLI) rmCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm [file] [node]",
		Aliases: []string{"delete"},
		Short:   "Delete a node and its descendants",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var removed []tree.NodeID
			err := c.edit(cmd.Context(), args[0], func(ed *editor.Editor) error {
				id, err := resolveID(ed.Document().Tree, args[1])
				if err != nil {
					return err
				}
				removed, err = ed.Delete(cmd.Context(), id)
				return err
			})
			if err != nil {
				return err
			}
			printSuccess("Removed %d nodes", len(removed))
			return nil
		},
	}
}

// mvCommand creates "mv", which attaches a node to another parent.
func (c *CLI) mvCommand() *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "mv [file] [node] [new-parent]",
		Short: "Move a node under another parent",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd.Context(), args[0], func(ed *editor.Editor) error {
				s := ed.Document().Tree
				id, err := resolveID(s, args[1])
				if err != nil {
					return err
				}
				parent, err := resolveID(s, args[2])
				if err != nil {
					return err
				}
				if err := ed.Reparent(cmd.Context(), id, parent); err != nil {
					return err
				}
				if index < 0 {
					return nil
				}
				last := ed.Document().Tree.ChildCount(parent) - 1
				if delta := index - last; delta < 0 {
					return ed.MoveSibling(cmd.Context(), id, delta)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "position among the new siblings (default last)")
	return cmd
}

// dragCommand creates "drag", which places a node at a position.
func (c *CLI) dragCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drag [file] [node] [x] [y]",
		Short: "Place a node's top-left corner at x,y",
		Long: `Place a node's top-left corner at x,y. Only the node moves; its
descendants stay where they are until the next organize.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid x %q", args[2])
			}
			y, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid y %q", args[3])
			}
			return c.edit(cmd.Context(), args[0], func(ed *editor.Editor) error {
				id, err := resolveID(ed.Document().Tree, args[1])
				if err != nil {
					return err
				}
				return ed.Move(cmd.Context(), id, x, y)
			})
		},
	}
}

// setCommand creates "set", which changes a node's content or size.
func (c *CLI) setCommand() *cobra.Command {
	var (
		text    string
		size    string
		noImage bool
		noLink  bool
		cf      contentFlags
	)
	cmd := &cobra.Command{
		Use:   "set [file] [node]",
		Short: "Change a node's text, link, image or size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var w, h float64
			if size != "" {
				var err error
				if w, h, err = parseSize(size); err != nil {
					return err
				}
			}
			var img *tree.Image
			if cf.image != "" {
				var err error
				if img, err = c.loadImage(cmd.Context(), cf.image); err != nil {
					return err
				}
			}
			return c.edit(cmd.Context(), args[0], func(ed *editor.Editor) error {
				id, err := resolveID(ed.Document().Tree, args[1])
				if err != nil {
					return err
				}
				content, _ := ed.Document().Tree.Content(id)
				changed := false
				if flags.Changed("text") {
					content.Text, changed = text, true
				}
				if flags.Changed("link") || noLink {
					content.Link, changed = cf.link, true
				}
				if img != nil || noImage {
					content.Image, changed = img, true
				}
				if changed {
					if err := ed.SetContent(cmd.Context(), id, content); err != nil {
						return err
					}
				}
				if size != "" {
					return ed.Resize(cmd.Context(), id, w, h)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "node text")
	cmd.Flags().BoolVar(&noImage, "no-image", false, "remove the image")
	cmd.Flags().BoolVar(&noLink, "no-link", false, "remove the link")
	cmd.Flags().StringVar(&size, "size", "", `explicit size as WIDTHxHEIGHT, or "auto"`)
	cmd.MarkFlagsMutuallyExclusive("image", "no-image")
	cmd.MarkFlagsMutuallyExclusive("link", "no-link")
	cf.register(cmd)
	return cmd
}

// parseSize parses "WIDTHxHEIGHT"; "auto" is 0x0, which drops an explicit
// size.
func parseSize(s string) (w, h float64, err error) {
	if s == "auto" {
		return 0, 0, nil
	}
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if ok {
		w, err = strconv.ParseFloat(ws, 64)
		if err == nil {
			h, err = strconv.ParseFloat(hs, 64)
		}
	}
	if !ok || err != nil || w <= 0 || h <= 0 {
		return 0, 0, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "invalid size %q (want WIDTHxHEIGHT or auto)", s)
	}
	return w, h, nil
}

// organizeCommand creates "organize", which re-runs the automatic layout.
func (c *CLI) organizeCommand() *cobra.Command {
	var node string
	cmd := &cobra.Command{
		Use:   "organize [file]",
		Short: "Lay out the whole map, or one subtree with --node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog := newProgress(loggerFromContext(cmd.Context()))
			err := c.edit(cmd.Context(), args[0], func(ed *editor.Editor) error {
				if node == "" {
					return ed.Organize(cmd.Context())
				}
				id, err := resolveID(ed.Document().Tree, node)
				if err != nil {
					return err
				}
				return ed.OrganizeFrom(cmd.Context(), id)
			})
			if err != nil {
				return err
			}
			prog.done("Organized " + args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&node, "node", "", "only lay out the subtree below this node")
	return cmd
}
