package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/mindmap/pkg/io"
)

// showCommand creates "show", which prints the map as a tree.
func (c *CLI) showCommand() *cobra.Command {
	var showIDs bool
	cmd := &cobra.Command{
		Use:   "show [file]",
		Short: "Print a mind map as an outline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := pkgio.ImportJSON(args[0])
			if err != nil {
				return err
			}
			fmt.Println(renderOutline(doc, showIDs))
			fmt.Println(formatStats(doc.Stats(), false))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showIDs, "ids", false, "show node identifiers")
	return cmd
}

// validateCommand creates "validate", which checks a document file.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Check that document files load",
		Long: `Check that document files load: valid JSON, no duplicate or dangling
nodes, a rectangle for every node and decodable images.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				doc, err := pkgio.ImportJSON(path)
				if err != nil {
					failed++
					printError("%s: %v", path, err)
					continue
				}
				st := doc.Stats()
				printSuccess("%s", path)
				printDetail("%d nodes, depth %d", st.Nodes, st.Depth)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
}
