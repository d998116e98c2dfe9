// Package runner drives the external engine through the scheduled points:
// stage the configuration header, rebuild, execute, and durably record the
// outcome of every point so an interrupted sweep resumes where it stopped.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wesleyorama2/txsweep/internal/ctxlog"
	"github.com/wesleyorama2/txsweep/internal/engineconf"
	"github.com/wesleyorama2/txsweep/internal/experiment"
	"github.com/wesleyorama2/txsweep/internal/journal"
	"github.com/wesleyorama2/txsweep/internal/metrics"
	"github.com/wesleyorama2/txsweep/internal/output"
	"github.com/wesleyorama2/txsweep/internal/schedule"
)

// Store records point outcomes.
type Store interface {
	WriteSuccess(id string, output []byte) error
	WriteFailure(id string, output []byte) error
}

// Journal receives one entry per recorded point.
type Journal interface {
	Append(e journal.Entry) error
}

// Config contains everything a Runner needs. Journal, Console, Now and
// Sleep are optional.
type Config struct {
	Toolchain Toolchain
	Store     Store
	Journal   Journal
	Console   *output.Console

	// Template is the parsed pristine header; ConfigPath is where the
	// rendered header is written for the build.
	Template   *engineconf.Document
	ConfigPath string

	// LargePages is the hugepage count MICA-family schemes need.
	LargePages    int
	SyncRepeat    int
	SettleDelay   time.Duration
	SuccessMarker string

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Result summarizes one Run.
type Result struct {
	Succeeded int
	Failed    int
	Prepared  int
	// Stats covers the executed points of this Run only.
	Stats *metrics.Snapshot
}

// Runner executes points one at a time. It is not safe for concurrent use:
// the engine tree and the hugepage reservation are machine-wide.
type Runner struct {
	cfg Config
	// pages is the last hugepage count successfully applied, -1 before the
	// first point.
	pages int
}

// New creates a runner.
func New(cfg Config) *Runner {
	if cfg.Console == nil {
		cfg.Console = output.Discard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	return &Runner{cfg: cfg, pages: -1}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// outcome is the recorded result of one executed point.
type outcome struct {
	success  bool
	reason   string
	exitCode int
}

// Run processes points in order. With prepareOnly each point is only staged
// (header written, build cleaned, hugepages set) and nothing is recorded.
//
// Run stops at the first fatal error: directive drift in the template, a
// failed build, an unwritable artifact, or cancellation of ctx. A point
// interrupted by cancellation records nothing and is retried by the next
// sweep.
func (r *Runner) Run(ctx context.Context, points []schedule.Point, prepareOnly bool) (*Result, error) {
	res := &Result{}
	n := len(points)
	tracker := metrics.NewTracker()
	tracker.Start(r.cfg.Now())

	for i, p := range points {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r.cfg.Console.PointStart(i, n, p.ID)
		start := r.cfg.Now()

		if prepareOnly {
			if err := r.stage(ctx, p.Experiment); err != nil {
				return res, err
			}
			res.Prepared++
			end := r.cfg.Now()
			r.cfg.Console.Prepared(p.ID, r.cfg.ConfigPath)
			r.cfg.Console.Timing(end.Sub(start), metrics.Remaining(tracker.Elapsed(end), i+1, n-i-1))
			continue
		}

		out, err := r.runPoint(ctx, p)
		if err != nil {
			return res, err
		}
		end := r.cfg.Now()
		elapsed := end.Sub(start)

		tracker.Observe(elapsed, out.success)
		if out.success {
			res.Succeeded++
		} else {
			res.Failed++
		}
		if r.cfg.Journal != nil {
			entry := journal.Entry{
				ID:        p.ID,
				Outcome:   journal.OutcomeSuccess,
				Started:   start,
				ElapsedMS: elapsed.Milliseconds(),
				ExitCode:  out.exitCode,
			}
			if !out.success {
				entry.Outcome = journal.OutcomeFailure
			}
			if err := r.cfg.Journal.Append(entry); err != nil {
				ctxlog.FromContext(ctx).Warn("journal append failed", "id", p.ID, "error", err)
			}
		}
		r.cfg.Console.PointDone(p.ID, out.success, out.reason, elapsed, metrics.Remaining(tracker.Elapsed(end), i+1, n-i-1))
	}

	res.Stats = tracker.Snapshot(r.cfg.Now())
	if !prepareOnly && n > 0 {
		r.cfg.Console.Summary(res.Stats)
	}
	return res, nil
}

// stage writes the configuration header, cleans the previous build and sets
// hugepages for e.
func (r *Runner) stage(ctx context.Context, e experiment.Experiment) error {
	logger := ctxlog.FromContext(ctx)

	text, err := engineconf.Render(r.cfg.Template, e)
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.cfg.ConfigPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write engine config: %w", err)
	}

	if err := r.cfg.Toolchain.Clean(ctx); err != nil {
		logger.Debug("clean reported an error", "error", err)
	}

	pages := 0
	if e.Alg.IsMICA() {
		pages = r.cfg.LargePages
	}
	if pages != r.pages {
		logger.Info("configuring hugepages", "pages", pages, "previous", r.pages)
		if err := r.cfg.Toolchain.Hugepages(ctx, pages); err != nil {
			// Leave the memo unknown so the next point retries.
			r.pages = -1
			logger.Warn("hugepage configuration failed", "pages", pages, "error", err)
		} else {
			r.pages = pages
		}
	}
	return ctx.Err()
}

// runPoint stages, builds and executes one point and records its outcome.
func (r *Runner) runPoint(ctx context.Context, p schedule.Point) (outcome, error) {
	logger := ctxlog.FromContext(ctx)

	if err := r.stage(ctx, p.Experiment); err != nil {
		return outcome{}, err
	}

	if err := r.cfg.Toolchain.Build(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome{}, ctxErr
		}
		var be *BuildError
		if !errors.As(err, &be) {
			err = &BuildError{Err: err}
		}
		return outcome{}, fmt.Errorf("%s: %w", p.ID, err)
	}

	for range r.cfg.SyncRepeat {
		if err := r.cfg.Toolchain.Sync(ctx); err != nil {
			logger.Warn("sync failed", "error", err)
		}
	}
	if err := r.cfg.Sleep(ctx, r.cfg.SettleDelay); err != nil {
		return outcome{}, err
	}

	out, code, err := r.cfg.Toolchain.Execute(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcome{}, ctxErr
	}

	result := outcome{exitCode: code}
	switch {
	case err != nil:
		result.reason = err.Error()
		out = append(out, []byte("\n"+err.Error()+"\n")...)
	case code != 0:
		result.reason = fmt.Sprintf("exit status %d", code)
	case !bytes.Contains(out, []byte(r.cfg.SuccessMarker)):
		result.reason = fmt.Sprintf("output lacks %q", r.cfg.SuccessMarker)
	default:
		result.success = true
	}

	if result.success {
		err = r.cfg.Store.WriteSuccess(p.ID, out)
	} else {
		logger.Warn("point failed", "id", p.ID, "reason", result.reason, "exit_code", code)
		err = r.cfg.Store.WriteFailure(p.ID, out)
	}
	if err != nil {
		return outcome{}, err
	}
	return result, nil
}
