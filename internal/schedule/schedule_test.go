package schedule

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/txsweep/internal/artifact"
	"github.com/wesleyorama2/txsweep/internal/experiment"
)

type doneSet map[string]bool

func (d doneSet) Done(id string) (bool, error) { return d[id], nil }

type brokenTracker struct{}

func (brokenTracker) Done(string) (bool, error) { return false, errors.New("disk on fire") }

func matrix(t *testing.T) []experiment.Experiment {
	t.Helper()
	m := experiment.DefaultMatrix()
	m.Seqs = 2
	exps := m.All()
	require.NotEmpty(t, exps)
	return exps
}

func TestPriority(t *testing.T) {
	ycsb := func(alg experiment.Alg, threads int, read, zipf float64) experiment.Experiment {
		return experiment.Experiment{
			Bench: experiment.BenchYCSB, Alg: alg, ThreadCount: threads,
			YCSB: experiment.YCSB{ReadRatio: read, ZipfTheta: zipf},
		}
	}
	tpcc := func(alg experiment.Alg, threads, wh int) experiment.Experiment {
		return experiment.Experiment{
			Bench: experiment.BenchTPCC, Alg: alg, ThreadCount: threads,
			TPCC: experiment.TPCC{WarehouseCount: wh},
		}
	}

	tests := []struct {
		name string
		exp  experiment.Experiment
		want int
	}{
		{"mica everything", ycsb(experiment.AlgMICA, 28, 0.50, 0.99), -5},
		{"mica variant", ycsb(experiment.AlgMICAFullIndex, 4, 0.95, 0.40), -2},
		{"silo", ycsb(experiment.AlgSilo, 8, 0.95, 0.60), -1},
		{"tictoc uniform", ycsb(experiment.AlgTicToc, 56, 0.95, 0.00), -3},
		{"hekaton nothing", ycsb(experiment.AlgHekaton, 16, 0.95, 0.80), 0},
		{"tpcc matching warehouses", tpcc(experiment.AlgNoWait, 4, 4), -2},
		{"tpcc odd warehouses", tpcc(experiment.AlgNoWait, 1, 8), 0},
		{"tpcc mica full", tpcc(experiment.AlgMICA, 28, 28), -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Priority(tt.exp))
		})
	}
}

func TestBuild_OrderedBySeqThenPriority(t *testing.T) {
	plan, err := Build(matrix(t), Options{})
	require.NoError(t, err)
	require.Equal(t, plan.Total, len(plan.Points))
	assert.Zero(t, plan.Skipped)

	for i := 1; i < len(plan.Points); i++ {
		prev, cur := plan.Points[i-1], plan.Points[i]
		require.LessOrEqual(t, prev.Experiment.Seq, cur.Experiment.Seq, "seq never decreases")
		if prev.Experiment.Seq == cur.Experiment.Seq {
			require.LessOrEqual(t, prev.Priority, cur.Priority)
		}
	}
	assert.Equal(t, experiment.AlgMICA, plan.Points[0].Experiment.Alg)
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := Build(matrix(t), Options{})
	require.NoError(t, err)
	b, err := Build(matrix(t), Options{})
	require.NoError(t, err)
	if diff := cmp.Diff(a.IDs(), b.IDs()); diff != "" {
		t.Fatalf("plans differ (-first +second):\n%s", diff)
	}
}

func TestBuild_Resumption(t *testing.T) {
	exps := matrix(t)
	full, err := Build(exps, Options{})
	require.NoError(t, err)

	done := doneSet{}
	for i, id := range full.IDs() {
		if i%3 == 0 {
			done[id] = true
		}
	}

	resumed, err := Build(exps, Options{Tracker: done})
	require.NoError(t, err)
	assert.Equal(t, len(done), resumed.Skipped)
	assert.Equal(t, full.Total-len(done), len(resumed.Points))

	var want []string
	for _, id := range full.IDs() {
		if !done[id] {
			want = append(want, id)
		}
	}
	assert.Equal(t, want, resumed.IDs(), "remaining points keep their relative order")

	prepared, err := Build(exps, Options{Tracker: done, PrepareOnly: true})
	require.NoError(t, err)
	assert.Zero(t, prepared.Skipped)
	assert.Len(t, prepared.Points, full.Total)
}

func TestBuild_FailureArtifactBlocksRetry(t *testing.T) {
	exps := matrix(t)
	store := artifact.NewStore(t.TempDir())
	codec := experiment.Codec{}

	failed := codec.Encode(exps[0])
	require.NoError(t, store.WriteFailure(failed, []byte("crashed")))

	plan, err := Build(exps, Options{Codec: codec, Tracker: store})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Skipped)
	assert.NotContains(t, plan.IDs(), failed)
}

func TestBuild_Pattern(t *testing.T) {
	plan, err := Build(matrix(t), Options{Pattern: "tag@gc"})
	require.NoError(t, err)
	require.NotEmpty(t, plan.Points)
	for _, p := range plan.Points {
		assert.Contains(t, p.ID, "tag@gc")
		assert.Equal(t, experiment.TagGC, p.Experiment.Tag)
	}

	none, err := Build(matrix(t), Options{Pattern: "no-such-thing"})
	require.NoError(t, err)
	assert.Empty(t, none.Points)
	assert.Equal(t, plan.Total, none.Total)
}

func TestBuild_TrackerError(t *testing.T) {
	_, err := Build(matrix(t), Options{Tracker: brokenTracker{}})
	assert.ErrorContains(t, err, "disk on fire")
}
