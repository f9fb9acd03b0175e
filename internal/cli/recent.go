package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// recentCommand creates "recent", which lists recently opened maps.
func (c *CLI) recentCommand() *cobra.Command {
	var forget bool
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened mind maps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := c.recentStore()
			if store == nil {
				return fmt.Errorf("recent list unavailable")
			}
			if forget {
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				printSuccess("Cleared recent list")
				return nil
			}
			paths, err := store.Recent(cmd.Context())
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				printInfo("No recently opened mind maps")
				return nil
			}
			for _, p := range paths {
				if fileExists(p) {
					fmt.Println(p)
				} else {
					fmt.Println(StyleDim.Render(p + " (missing)"))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&forget, "clear", false, "forget all recent files")
	return cmd
}
