package cli

import (
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/txsweep/internal/artifact"
	"github.com/wesleyorama2/txsweep/internal/journal"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show result counts by state and the run journal summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		artifacts, err := s.store.List()
		if err != nil {
			return err
		}
		counts := map[artifact.State]int{}
		for _, a := range artifacts {
			if a.State != artifact.Stale && !s.codec.Matches(a.ID) {
				continue
			}
			counts[a.State]++
		}

		// Pending is relative to the matrix, not the directory.
		pending := 0
		for _, e := range s.experiments() {
			done, err := s.store.Done(s.codec.Encode(e))
			if err != nil {
				return err
			}
			if !done {
				pending++
			}
		}
		counts[artifact.Pending] = pending

		sum, err := journal.Summarize(s.cfg.JournalPath())
		if err != nil {
			return err
		}
		s.console.Status(s.store.Dir(), counts, sum)
		return nil
	},
}
