// Package output prints human-facing sweep progress. Structured events go to
// the slog logger; this package only writes the lines an operator watches.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/wesleyorama2/txsweep/internal/artifact"
	"github.com/wesleyorama2/txsweep/internal/journal"
	"github.com/wesleyorama2/txsweep/internal/metrics"
	"github.com/wesleyorama2/txsweep/internal/reconcile"
)

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Writer      io.Writer
	NoColor     bool
	ForceColors bool
}

// Console writes progress lines. It is safe for concurrent use.
type Console struct {
	w      io.Writer
	scheme *ColorScheme
	mu     sync.Mutex
}

// NewConsole creates a console. Colors are used only when the writer is a
// terminal that supports them, unless forced or disabled.
func NewConsole(config ConsoleConfig) *Console {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}

	scheme := NoColorScheme()
	switch {
	case config.NoColor:
	case config.ForceColors, isTerminal(config.Writer) && supportsColors():
		scheme = forcedColorScheme()
	}
	return &Console{w: config.Writer, scheme: scheme}
}

// Discard returns a console that writes nothing.
func Discard() *Console {
	return NewConsole(ConsoleConfig{Writer: io.Discard, NoColor: true})
}

func (c *Console) writeln(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format+"\n", args...)
}

// Plan prints the counts produced by scheduling. Points dropped by the
// pattern count as skipped alongside the already attempted ones.
func (c *Console) Plan(total, toRun int, pattern string) {
	c.writeln("total %s exps", c.scheme.Highlight.Sprint(total))
	if pattern != "" {
		c.writeln("pattern %s", c.scheme.ID.Sprintf("%q", pattern))
	}
	c.writeln("%s exps skipped", c.scheme.Dim.Sprint(total-toRun))
	c.writeln("total %s exps to run", c.scheme.Highlight.Sprint(toRun))
}

// PointStart announces point i (0-based) of n.
func (c *Console) PointStart(i, n int, id string) {
	c.writeln("%s %s", c.scheme.Progress.Sprintf("exp %d/%d:", i+1, n), c.scheme.ID.Sprint(id))
}

// PointDone reports the outcome of a point together with the sweep's
// elapsed time and projected remaining time.
func (c *Console) PointDone(id string, success bool, reason string, elapsed, remaining time.Duration) {
	if success {
		c.writeln("%s %s", c.scheme.SuccessIcon(), id)
	} else {
		c.writeln("%s %s %s", c.scheme.FailureIcon(), c.scheme.Failure.Sprint(id), c.scheme.Dim.Sprintf("(%s)", reason))
	}
	c.Timing(elapsed, remaining)
}

// Timing prints how long the last point took and the projected time left.
func (c *Console) Timing(elapsed, remaining time.Duration) {
	c.writeln("elapsed = %.2f seconds", elapsed.Seconds())
	c.writeln("remaining = %.2f hours", remaining.Hours())
}

// Prepared reports a point staged without running.
func (c *Console) Prepared(id, configPath string) {
	c.writeln("%s prepared %s in %s", c.scheme.SuccessIcon(), c.scheme.ID.Sprint(id), configPath)
}

// Stale lists what a reconciliation quarantined.
func (c *Console) Stale(report *reconcile.Report, dryRun bool) {
	verb := "moved"
	if dryRun {
		verb = "would move"
	}
	for _, m := range report.Quarantined {
		if dryRun {
			c.writeln("%s stale %s", c.scheme.WarningIcon(), m.From)
			continue
		}
		c.writeln("%s stale %s -> %s", c.scheme.WarningIcon(), m.From, m.To)
	}
	c.writeln("%s %d stale, kept %d, ignored %d", verb, len(report.Quarantined), report.Kept, report.Ignored)
}

// Rename prints one retag mapping.
func (c *Console) Rename(from, to string) {
	c.writeln("%s\n  -> %s", from, c.scheme.ID.Sprint(to))
}

// ListEntry prints one scheduled point and its artifact state.
func (c *Console) ListEntry(id string, state artifact.State) {
	c.writeln("%-8s %s", c.stateColor(state).Sprint(state), id)
}

// Summary prints the end-of-sweep statistics.
func (c *Console) Summary(s *metrics.Snapshot) {
	line := strings.Repeat("━", 56)
	c.writeln("%s", c.scheme.Header.Sprint(line))
	c.writeln("%s %d points, %d succeeded, %s, elapsed %s",
		c.scheme.Header.Sprint("sweep finished:"),
		s.Total(),
		s.Succeeded,
		c.failures(s.Failed),
		s.Elapsed.Round(time.Second))
	if s.Durations.Count > 0 {
		d := s.Durations
		c.writeln("point duration p50=%s p95=%s max=%s",
			d.P50.Round(time.Second), d.P95.Round(time.Second), d.Max.Round(time.Second))
	}
	c.writeln("%s", c.scheme.Header.Sprint(line))
}

// Status prints artifact counts and the journal summary.
func (c *Console) Status(dir string, counts map[artifact.State]int, sum *journal.Summary) {
	c.writeln("%s %s", c.scheme.Header.Sprint("results:"), dir)
	states := make([]artifact.State, 0, len(counts))
	for st := range counts {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	for _, st := range states {
		c.writeln("  %-8s %d", c.stateColor(st).Sprint(st), counts[st])
	}

	if sum == nil || sum.Entries == 0 {
		c.writeln("%s no entries", c.scheme.Header.Sprint("journal:"))
		return
	}
	c.writeln("%s %d entries in %d runs, %d succeeded, %s",
		c.scheme.Header.Sprint("journal:"), sum.Entries, len(sum.Runs), sum.Success, c.failures(int64(sum.Failure)))
	if len(sum.Latest) > 0 {
		latest := map[journal.Outcome]int{}
		for _, o := range sum.Latest {
			latest[o]++
		}
		c.writeln("  latest attempt per point: %d succeeded, %s",
			latest[journal.OutcomeSuccess], c.failures(int64(latest[journal.OutcomeFailure])))
	}
	if sum.Malformed > 0 {
		c.writeln("  %s %d malformed lines", c.scheme.WarningIcon(), sum.Malformed)
	}
	if last := sum.LastRun(); last != nil {
		c.writeln("  last run %s started %s, %d points, %s executing",
			last.Run, last.Started.Format(time.RFC3339), last.Points(), last.Elapsed.Round(time.Second))
	}
}

func (c *Console) failures(n int64) string {
	text := fmt.Sprintf("%d failed", n)
	if n == 0 {
		return text
	}
	return c.scheme.Failure.Sprint(text)
}

func (c *Console) stateColor(st artifact.State) *color.Color {
	switch st {
	case artifact.Success:
		return c.scheme.Success
	case artifact.Failure:
		return c.scheme.Failure
	case artifact.Stale:
		return c.scheme.Warning
	default:
		return c.scheme.Dim
	}
}
