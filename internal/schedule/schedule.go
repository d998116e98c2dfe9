// Package schedule turns the deduplicated experiment matrix into the list of
// points a sweep will actually run: already attempted points are skipped,
// an optional pattern narrows the list, and the rest is ordered so that the
// most informative points of each repetition run first.
package schedule

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/wesleyorama2/txsweep/internal/experiment"
)

// Tracker answers whether an identifier has already been attempted.
type Tracker interface {
	Done(id string) (bool, error)
}

// Point is one scheduled experiment and its identifier.
type Point struct {
	Experiment experiment.Experiment
	ID         string
	Priority   int
}

// Options selects what Build keeps.
type Options struct {
	// Pattern keeps only points whose identifier contains it. Empty keeps
	// everything.
	Pattern string
	// PrepareOnly disables resumption: attempted points stay in the plan.
	PrepareOnly bool
	Codec       experiment.Codec
	// Tracker is consulted unless PrepareOnly is set. Nil means nothing
	// has been attempted.
	Tracker Tracker
}

// Plan is the outcome of scheduling.
type Plan struct {
	// Total is the number of distinct experiments before any filtering.
	Total int
	// Skipped is the number dropped because they were already attempted.
	Skipped int
	Points  []Point
}

// IDs returns the identifiers of the plan in run order.
func (p *Plan) IDs() []string {
	ids := make([]string, len(p.Points))
	for i, pt := range p.Points {
		ids[i] = pt.ID
	}
	return ids
}

// Build applies, in order, resumption, the pattern filter, and ordering to
// exps, which must already be deduplicated.
func Build(exps []experiment.Experiment, opts Options) (*Plan, error) {
	plan := &Plan{Total: len(exps)}

	points := make([]Point, 0, len(exps))
	for _, e := range exps {
		id := opts.Codec.Encode(e)
		if !opts.PrepareOnly && opts.Tracker != nil {
			done, err := opts.Tracker.Done(id)
			if err != nil {
				return nil, fmt.Errorf("schedule: checking %s: %w", id, err)
			}
			if done {
				plan.Skipped++
				continue
			}
		}
		points = append(points, Point{Experiment: e, ID: id})
	}

	if opts.Pattern != "" {
		points = slices.DeleteFunc(points, func(p Point) bool {
			return !strings.Contains(p.ID, opts.Pattern)
		})
	}

	for i := range points {
		points[i].Priority = Priority(points[i].Experiment)
	}
	Order(points)

	plan.Points = points
	return plan, nil
}

// Order sorts points by (seq, priority), keeping enumeration order among
// equal keys.
func Order(points []Point) {
	slices.SortStableFunc(points, func(a, b Point) int {
		return cmp.Or(
			cmp.Compare(a.Experiment.Seq, b.Experiment.Seq),
			cmp.Compare(a.Priority, b.Priority),
		)
	})
}

// Priority scores an experiment; lower runs sooner. Every matching rule
// subtracts its weight.
func Priority(e experiment.Experiment) int {
	pri := 0
	switch {
	case e.Alg.IsMICA():
		pri -= 2
	case e.Alg == experiment.AlgSilo, e.Alg == experiment.AlgTicToc:
		pri--
	}
	if e.ThreadCount == 28 || e.ThreadCount == 56 {
		pri--
	}

	switch e.Bench {
	case experiment.BenchYCSB:
		if e.YCSB.ReadRatio == 0.50 {
			pri--
		}
		if e.YCSB.ZipfTheta == 0.00 || e.YCSB.ZipfTheta == 0.99 {
			pri--
		}
	case experiment.BenchTPCC:
		wh := e.TPCC.WarehouseCount
		if wh == e.ThreadCount {
			pri--
		}
		switch wh {
		case 1, 4, 16, 28, 56:
			pri--
		}
	}
	return pri
}
