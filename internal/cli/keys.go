package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/txsweep/internal/experiment"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the experiment keys that identifiers may carry",
	Long: `Print every key of the experiment schema with the kind of value it takes,
in lexicographic order. Use it to write patterns and to check
a result name from an older sweep.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		for _, key := range experiment.Keys() {
			kind, ok := experiment.KindOf(key)
			if !ok {
				return fmt.Errorf("key %s has no kind", key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", key, kind)
		}
		return nil
	},
}
