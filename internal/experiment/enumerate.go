package experiment

import (
	"iter"
	"slices"
)

// Matrix defines the sweep. DefaultMatrix returns the production sweep;
// callers may narrow it (fewer repetitions, fewer families) for a
// shorter run.
type Matrix struct {
	// Seqs is the number of repetitions; seq runs 0..Seqs-1.
	Seqs            int
	ThreadCounts    []int
	WarehouseCounts []int
	Algorithms      []Alg
	// WideSkewThreads are the thread counts at which the additional skew
	// levels are swept.
	WideSkewThreads []int
	// Families selects which sweep families are emitted, in Tags order.
	Families []Tag

	// FixedThreads and FixedAlg are used by the backoff, factor and gc
	// families.
	FixedThreads int
	FixedAlg     Alg
	// FixedWarehouses is the TPCC warehouse count of those families.
	FixedWarehouses int
	Backoffs        []float64
	SlowGCs         []int
}

// DefaultMatrix returns the full production sweep.
func DefaultMatrix() Matrix {
	backoffs := make([]float64, 0, 31)
	for v := 0; v <= 30; v++ {
		backoffs = append(backoffs, float64(v))
	}
	return Matrix{
		Seqs:            5,
		ThreadCounts:    []int{1, 4, 8, 16, 28},
		WarehouseCounts: []int{1, 4, 8, 16, 28},
		Algorithms:      slices.Clone(Algorithms),
		WideSkewThreads: []int{28, 56},
		Families:        slices.Clone(Tags),
		FixedThreads:    28,
		FixedAlg:        AlgMICA,
		FixedWarehouses: 4,
		Backoffs:        backoffs,
		SlowGCs:         []int{10, 20, 40, 100, 200, 400, 1000, 2000, 4000, 10000, 20000},
	}
}

const (
	tableSize = 10 * 1000 * 1000

	// Request-size regimes: long transactions with 16 requests and short
	// single-request transactions run ten times as often.
	longReqs  = 16
	longTxs   = 200000
	shortReqs = 1
	shortTxs  = 2000000

	tpccTxs = 200000
)

// factorFlags is the order in which the factor family switches flags on.
// Index 0 of the family is the baseline.
var factorFlags = []Flags{FlagNoWait, FlagNoNewest, FlagNoWSort, FlagNoPreval, FlagNoBackoff, FlagNoTSCBoost}

type workloadPoint struct {
	read, zipf float64
	skip       []Alg
}

var (
	standardSkews = []workloadPoint{
		{read: 0.95, zipf: 0.00},
		{read: 0.50, zipf: 0.00},
		{read: 0.95, zipf: 0.99, skip: []Alg{AlgNoWait}},
		{read: 0.50, zipf: 0.99, skip: []Alg{AlgNoWait, AlgHekaton}},
	}
	wideSkews = []workloadPoint{
		{read: 0.95, zipf: 0.40},
		{read: 0.50, zipf: 0.40},
		{read: 0.95, zipf: 0.60},
		{read: 0.50, zipf: 0.60},
		{read: 0.95, zipf: 0.80},
		{read: 0.50, zipf: 0.80},
		{read: 0.95, zipf: 0.90},
		{read: 0.50, zipf: 0.90},
		{read: 0.95, zipf: 0.95, skip: []Alg{AlgNoWait}},
		{read: 0.50, zipf: 0.95, skip: []Alg{AlgNoWait, AlgHekaton}},
	}
	shortSkews = []workloadPoint{
		{read: 0.95, zipf: 0.00},
		{read: 0.50, zipf: 0.00},
		{read: 0.95, zipf: 0.99},
		{read: 0.50, zipf: 0.99},
	}
)

// Enumerate yields every experiment of the matrix in a fixed order: all
// repetitions of one family before the next family. The sequence is
// deterministic and may contain duplicates; see Unique.
func (m Matrix) Enumerate() iter.Seq[Experiment] {
	return func(yield func(Experiment) bool) {
		for _, tag := range Tags {
			if !slices.Contains(m.Families, tag) {
				continue
			}
			for seq := 0; seq < m.Seqs; seq++ {
				var ok bool
				switch tag {
				case TagMacrobench:
					ok = m.macrobench(seq, yield)
				case TagBackoff:
					ok = m.backoff(seq, yield)
				case TagFactor:
					ok = m.factor(seq, yield)
				case TagGC:
					ok = m.gc(seq, yield)
				}
				if !ok {
					return
				}
			}
		}
	}
}

func ycsb(alg Alg, threads, seq int, tag Tag, reqs, txs int, read, zipf float64) Experiment {
	return Experiment{
		Bench: BenchYCSB, Alg: alg, Tag: tag, Seq: seq,
		ThreadCount: threads, TxCount: txs,
		YCSB: YCSB{TotalCount: tableSize, ReqPerQuery: reqs, ReadRatio: read, ZipfTheta: zipf},
	}
}

func tpcc(alg Alg, threads, seq int, tag Tag, warehouses int) Experiment {
	return Experiment{
		Bench: BenchTPCC, Alg: alg, Tag: tag, Seq: seq,
		ThreadCount: threads, TxCount: tpccTxs,
		TPCC: TPCC{WarehouseCount: warehouses},
	}
}

func (m Matrix) macrobench(seq int, yield func(Experiment) bool) bool {
	emit := func(alg Alg, threads, reqs, txs int, points []workloadPoint) bool {
		for _, p := range points {
			if slices.Contains(p.skip, alg) {
				continue
			}
			if !yield(ycsb(alg, threads, seq, TagMacrobench, reqs, txs, p.read, p.zipf)) {
				return false
			}
		}
		return true
	}

	for _, alg := range m.Algorithms {
		for _, threads := range m.ThreadCounts {
			if !emit(alg, threads, longReqs, longTxs, standardSkews) {
				return false
			}
			if slices.Contains(m.WideSkewThreads, threads) {
				if !emit(alg, threads, longReqs, longTxs, wideSkews) {
					return false
				}
			}
			if !emit(alg, threads, shortReqs, shortTxs, shortSkews) {
				return false
			}
			for _, wh := range m.WarehouseCounts {
				if !yield(tpcc(alg, threads, seq, TagMacrobench, wh)) {
					return false
				}
			}
		}
	}
	return true
}

func (m Matrix) backoff(seq int, yield func(Experiment) bool) bool {
	for _, b := range m.Backoffs {
		y := ycsb(m.FixedAlg, m.FixedThreads, seq, TagBackoff, shortReqs, shortTxs, 0.50, 0.99)
		y.FixedBackoff = Some(b)
		t := tpcc(m.FixedAlg, m.FixedThreads, seq, TagBackoff, m.FixedWarehouses)
		t.FixedBackoff = Some(b)
		if !yield(y) || !yield(t) {
			return false
		}
	}
	return true
}

// factor switches one more tuning flag on at each index. Flags accumulate:
// index i carries every flag switched on at indices 1..i. Whether the
// family was meant to toggle a single flag per index is still open with
// the product owner; the accumulated behaviour is the one recorded so far.
func (m Matrix) factor(seq int, yield func(Experiment) bool) bool {
	base := ycsb(m.FixedAlg, m.FixedThreads, seq, TagFactor, longReqs, longTxs, 0.50, 0.99)
	for i := 0; i <= len(factorFlags); i++ {
		if i > 0 {
			base.Flags |= factorFlags[i-1]
		}
		if !yield(base) {
			return false
		}
	}

	base = tpcc(m.FixedAlg, m.FixedThreads, seq, TagFactor, m.FixedWarehouses)
	for i := 0; i <= len(factorFlags); i++ {
		if i > 0 {
			base.Flags |= factorFlags[i-1]
		}
		if !yield(base) {
			return false
		}
	}
	return true
}

func (m Matrix) gc(seq int, yield func(Experiment) bool) bool {
	for _, v := range m.SlowGCs {
		y := ycsb(m.FixedAlg, m.FixedThreads, seq, TagGC, longReqs, longTxs, 0.50, 0.99)
		y.SlowGC = Some(v)
		t := tpcc(m.FixedAlg, m.FixedThreads, seq, TagGC, m.FixedWarehouses)
		t.SlowGC = Some(v)
		if !yield(y) || !yield(t) {
			return false
		}
	}
	return true
}

// Unique drops exact duplicates, keeping the first occurrence and the
// relative order of everything else.
func Unique(exps iter.Seq[Experiment]) iter.Seq[Experiment] {
	return func(yield func(Experiment) bool) {
		seen := make(map[Experiment]struct{})
		for e := range exps {
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			if !yield(e) {
				return
			}
		}
	}
}

// All returns the deduplicated matrix as a slice.
func (m Matrix) All() []Experiment {
	return slices.Collect(Unique(m.Enumerate()))
}
