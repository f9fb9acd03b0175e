package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
	"github.com/matzehuels/mindmap/pkg/storage"
)

// storeCommand creates "store", which manages named documents in the
// configured storage backend.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep named mind maps in the configured storage backend",
		Long: `Keep named mind maps in the storage backend selected by the [storage]
section of the config file: a directory, Redis or MongoDB.`,
	}
	cmd.AddCommand(c.storePushCommand())
	cmd.AddCommand(c.storePullCommand())
	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storeDeleteCommand())
	return cmd
}

// withStore opens the configured backend for the duration of fn.
func (c *CLI) withStore(ctx context.Context, fn func(storage.Store) error) error {
	st, err := storage.Open(ctx, c.config().StorageConfig())
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// documentName derives a stored name from a file path.
func documentName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (c *CLI) storePushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push [file] [name]",
		Short: "Store a document file under a name (default: the file name)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := pkgio.ImportJSON(args[0])
			if err != nil {
				return err
			}
			name := documentName(args[0])
			if len(args) > 1 {
				name = args[1]
			}
			return c.withStore(cmd.Context(), func(st storage.Store) error {
				if err := st.Save(cmd.Context(), name, doc); err != nil {
					return err
				}
				printSuccess("Stored %s as %s", args[0], name)
				return nil
			})
		},
	}
}

func (c *CLI) storePullCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "pull [name] [file]",
		Short: "Write a stored document to a file (default: name.json)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0] + ".json"
			if len(args) > 1 {
				path = args[1]
			}
			if fileExists(path) && !force {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidPath, "%s already exists (use --force to overwrite)", path)
			}
			return c.withStore(cmd.Context(), func(st storage.Store) error {
				doc, err := st.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := pkgio.ExportJSON(doc, path); err != nil {
					return err
				}
				printSuccess("Pulled %s", args[0])
				printFile(path)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (c *CLI) storeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st storage.Store) error {
				infos, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(infos) == 0 {
					printInfo("No stored documents")
					return nil
				}
				fmt.Println(renderInfos(infos))
				return nil
			})
		},
	}
}

// renderInfos draws stored documents as a table.
func renderInfos(infos []storage.Info) string {
	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = []string{info.Name, formatSize(info.Size), info.UpdatedAt.Local().Format("Jan 2 15:04")}
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Name", "Size", "Updated").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 0 {
				return StyleValue.Padding(0, 1)
			}
			return StyleDim.Padding(0, 1)
		}).
		String()
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func (c *CLI) storeDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [name...]",
		Aliases: []string{"rm"},
		Short:   "Delete stored documents",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st storage.Store) error {
				for _, name := range args {
					if err := st.Delete(cmd.Context(), name); err != nil {
						return err
					}
					printSuccess("Deleted %s", name)
				}
				return nil
			})
		},
	}
}
