package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/txsweep/internal/experiment"
	"github.com/wesleyorama2/txsweep/internal/reconcile"
)

var retagCmd = &cobra.Command{
	Use:   "retag <tag>",
	Short: "Rewrite the tag of every recorded result",
	Long: fmt.Sprintf(`Decode every result name, replace its tag and rename the file, keeping the
failure suffix. Any name that does not decode aborts the migration before
anything is renamed.

Tags: %v`, experiment.Tags),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		moves, err := reconcile.Retag(s.ctx, s.store, s.codec, experiment.Tag(args[0]), reconcile.Options{DryRun: dryRun})
		for _, m := range moves {
			s.console.Rename(m.From, m.To)
		}
		if err != nil {
			return err
		}

		verb := "retagged"
		if dryRun {
			verb = "would retag"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d results\n", verb, len(moves))
		return nil
	},
}

func init() {
	retagCmd.Flags().Bool("dry-run", false, "Only print the renames")
}
