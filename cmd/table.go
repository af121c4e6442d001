// cmd/table.go
package cmd

import (
	"fmt"
	"io"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the Morse code table",
	Long: `Print every character of the code table with its position and its
dot/dash sequence. With --all, unassigned nodes are listed too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}
		printTable(cmd.OutOrStdout(), cw.ITU, all)
		return nil
	},
}

func init() {
	tableCmd.Flags().BoolP("all", "a", false, "include unassigned nodes")
	rootCmd.AddCommand(tableCmd)
}

func printTable(w io.Writer, t *cw.CodeTable, all bool) {
	for i := 1; i < t.Len(); i++ {
		c := t.Lookup(i)
		if c == 0 || (c == cw.Wildcard && !all) {
			continue
		}
		fmt.Fprintf(w, "%3d  %c  %s\n", i, c, t.Path(i))
	}
}
