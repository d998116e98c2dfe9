package cli

import (
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/txsweep/internal/ctxlog"
	"github.com/wesleyorama2/txsweep/internal/experiment"
	"github.com/wesleyorama2/txsweep/internal/schedule"
)

var runCmd = &cobra.Command{
	Use:   "run [pattern...]",
	Short: "Run every experiment that has no recorded result",
	Long: `Run the scheduled experiment matrix. Points whose identifier already has a
success or failure artifact are skipped. Each pattern is a substring of the
identifier and gets its own full pass, in the order given:

  txsweep RUN
  txsweep RUN tag@macrobench__thread_count@28 tag@gc

Stale artifacts left by an older matrix are quarantined first.`,
	RunE: runSweep,
}

var prepareCmd = &cobra.Command{
	Use:   "prepare <pattern>",
	Short: "Stage configuration and hugepages for matching experiments without running them",
	Long: `Write the configuration header and set hugepages for every experiment
matching pattern, without building or executing. Recorded results do not
exclude a point from preparation. Use it to reproduce one point by hand:

  txsweep PREPARE alg@SILO__bench@TPCC__seq@0__tag@gc`,
	Args: cobra.ExactArgs(1),
	RunE: prepareSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	exps := s.experiments()
	if err := s.reconcileBeforeSweep(exps); err != nil {
		return err
	}

	r, err := s.newRunner()
	if err != nil {
		return err
	}

	patterns := args
	if len(patterns) == 0 {
		patterns = []string{""}
	}
	for _, pattern := range patterns {
		plan, err := schedule.Build(exps, schedule.Options{
			Pattern: pattern,
			Codec:   s.codec,
			Tracker: s.store,
		})
		if err != nil {
			return err
		}
		s.console.Plan(plan.Total, len(plan.Points), pattern)
		res, err := r.Run(s.ctx, plan.Points, false)
		if err != nil {
			return err
		}
		ctxlog.FromContext(s.ctx).Info("pass finished",
			"pattern", pattern, "succeeded", res.Succeeded, "failed", res.Failed, "elapsed", res.Stats.Elapsed)
	}
	return nil
}

func prepareSweep(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	exps := s.experiments()
	if err := s.reconcileBeforeSweep(exps); err != nil {
		return err
	}

	r, err := s.newRunner()
	if err != nil {
		return err
	}

	plan, err := schedule.Build(exps, schedule.Options{
		Pattern:     args[0],
		PrepareOnly: true,
		Codec:       s.codec,
	})
	if err != nil {
		return err
	}
	s.console.Plan(plan.Total, len(plan.Points), args[0])
	res, err := r.Run(s.ctx, plan.Points, true)
	if err != nil {
		return err
	}
	ctxlog.FromContext(s.ctx).Info("prepare finished", "pattern", args[0], "prepared", res.Prepared)
	return nil
}

// reconcileBeforeSweep quarantines stale artifacts and reports them only
// when there were any.
func (s *session) reconcileBeforeSweep(exps []experiment.Experiment) error {
	report, err := s.reconcile(exps, false)
	if err != nil {
		return err
	}
	if report.HasStale() {
		s.console.Stale(report, false)
	}
	return nil
}
