package cli

import (
	"github.com/spf13/cobra"
)

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "Quarantine results whose identifier the matrix no longer produces",
	Long: `Rename every success or failure artifact that the current matrix does not
produce to <name>.old (or <name>.old-<n> when that name is taken). Nothing is
deleted. RUN and PREPARE do this automatically before scheduling.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		report, err := s.reconcile(s.experiments(), dryRun)
		if err != nil {
			return err
		}
		s.console.Stale(report, dryRun)
		return nil
	},
}

func init() {
	staleCmd.Flags().Bool("dry-run", false, "Only report what would be quarantined")
}
