package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/txsweep/internal/schedule"
)

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List scheduled experiments in run order with their recorded state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}

		plan, err := schedule.Build(s.experiments(), schedule.Options{
			Pattern:     pattern,
			PrepareOnly: true,
			Codec:       s.codec,
		})
		if err != nil {
			return err
		}
		for _, p := range plan.Points {
			state, err := s.store.State(p.ID)
			if err != nil {
				return err
			}
			s.console.ListEntry(p.ID, state)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d exps\n", len(plan.Points), plan.Total)
		return nil
	},
}
