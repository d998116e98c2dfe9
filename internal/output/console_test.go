package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wesleyorama2/txsweep/internal/artifact"
	"github.com/wesleyorama2/txsweep/internal/journal"
	"github.com/wesleyorama2/txsweep/internal/metrics"
	"github.com/wesleyorama2/txsweep/internal/reconcile"
)

func plainConsole() (*Console, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewConsole(ConsoleConfig{Writer: &buf, NoColor: true}), &buf
}

func TestNewConsole_ColorSelection(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(ConsoleConfig{Writer: &buf}).PointStart(0, 1, "id")
	assert.NotContains(t, buf.String(), "\x1b[", "a buffer is not a terminal")

	buf.Reset()
	NewConsole(ConsoleConfig{Writer: &buf, ForceColors: true}).PointStart(0, 1, "id")
	assert.Contains(t, buf.String(), "\x1b[")

	buf.Reset()
	NewConsole(ConsoleConfig{Writer: &buf, ForceColors: true, NoColor: true}).PointStart(0, 1, "id")
	assert.NotContains(t, buf.String(), "\x1b[", "no-color wins")
}

func TestConsole_PlanAndProgress(t *testing.T) {
	c, buf := plainConsole()

	c.Plan(3025, 3000, "")
	c.PointStart(0, 3000, "alg@MICA")
	c.PointDone("alg@MICA", true, "", 90*time.Second, 150*time.Minute)
	c.PointDone("alg@SILO", false, "exit status 1", 3*time.Second, 0)

	assert.Equal(t, strings.Join([]string{
		"total 3025 exps",
		"25 exps skipped",
		"total 3000 exps to run",
		"exp 1/3000: alg@MICA",
		"✓ alg@MICA",
		"elapsed = 90.00 seconds",
		"remaining = 2.50 hours",
		"✗ alg@SILO (exit status 1)",
		"elapsed = 3.00 seconds",
		"remaining = 0.00 hours",
	}, "\n")+"\n", buf.String())
}

func TestConsole_Timing(t *testing.T) {
	c, buf := plainConsole()
	c.Prepared("alg@MICA", "config.h")
	c.Timing(30*time.Second, 90*time.Minute)
	assert.Equal(t, "✓ prepared alg@MICA in config.h\nelapsed = 30.00 seconds\nremaining = 1.50 hours\n", buf.String())
}

func TestConsole_Stale(t *testing.T) {
	c, buf := plainConsole()
	c.Stale(&reconcile.Report{
		Quarantined: []reconcile.Move{{From: "a", To: "a.old"}},
		Kept:        4,
	}, false)
	assert.Equal(t, "⚠ stale a -> a.old\nmoved 1 stale, kept 4, ignored 0\n", buf.String())

	buf.Reset()
	c.Stale(&reconcile.Report{Quarantined: []reconcile.Move{{From: "a"}}}, true)
	assert.Equal(t, "⚠ stale a\nwould move 1 stale, kept 0, ignored 0\n", buf.String())
}

func TestConsole_Summary(t *testing.T) {
	c, buf := plainConsole()
	c.Summary(&metrics.Snapshot{
		Succeeded: 9,
		Failed:    1,
		Elapsed:   time.Hour,
		Durations: metrics.DurationStats{Count: 10, P50: time.Minute, P95: 2 * time.Minute, Max: 3 * time.Minute},
	})
	out := buf.String()
	assert.Contains(t, out, "sweep finished: 10 points, 9 succeeded, 1 failed, elapsed 1h0m0s")
	assert.Contains(t, out, "point duration p50=1m0s p95=2m0s max=3m0s")
}

func TestConsole_Status(t *testing.T) {
	c, buf := plainConsole()
	c.Status("exp_data", map[artifact.State]int{artifact.Failure: 2, artifact.Success: 5}, nil)
	assert.Equal(t, "results: exp_data\n  success  5\n  failure  2\njournal: no entries\n", buf.String())

	buf.Reset()
	sum := &journal.Summary{
		Entries: 3, Success: 2, Failure: 1,
		Latest: map[string]journal.Outcome{"a": journal.OutcomeSuccess, "b": journal.OutcomeFailure},
		Runs: []*journal.RunSummary{{Run: "r1", Started: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Success: 2, Failure: 1, Elapsed: time.Minute}},
	}
	c.Status("exp_data", nil, sum)
	assert.Contains(t, buf.String(), "journal: 3 entries in 1 runs, 2 succeeded, 1 failed")
	assert.Contains(t, buf.String(), "latest attempt per point: 1 succeeded, 1 failed")
	assert.Contains(t, buf.String(), "last run r1 started 2024-01-01T00:00:00Z, 3 points, 1m0s executing")
}

func TestConsole_ListEntry(t *testing.T) {
	c, buf := plainConsole()
	c.ListEntry("alg@MICA", artifact.Pending)
	assert.Equal(t, "pending  alg@MICA\n", buf.String())
}
