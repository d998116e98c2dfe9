package engineconf

import (
	"fmt"
	"strconv"

	"github.com/wesleyorama2/txsweep/internal/experiment"
)

// Tuple sizes the engine needs for each workload's row layout.
const (
	ycsbTupleSize = 100
	tpccTupleSize = 704
)

// Translate derives the directive overrides for e: scheme selection,
// thread count, workload parameters and, for the MICA family only, the
// tuning knobs carried by the experiment's optional flags.
func Translate(e experiment.Experiment) ([]Override, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var ovs []Override
	set := func(name, value string) {
		ovs = append(ovs, Override{Name: name, Value: value})
	}

	algorithm(e.Alg, set)
	set("THREAD_CNT", strconv.Itoa(e.ThreadCount))

	switch e.Bench {
	case experiment.BenchYCSB:
		set("WORKLOAD", "YCSB")
		set("WARMUP", strconv.Itoa(e.TxCount))
		set("MAX_TXN_PER_PART", strconv.Itoa(e.TxCount))
		set("INIT_PARALLELISM", "2")
		set("MAX_TUPLE_SIZE", strconv.Itoa(ycsbTupleSize))
		set("SYNTH_TABLE_SIZE", strconv.Itoa(e.YCSB.TotalCount))
		set("REQ_PER_QUERY", strconv.Itoa(e.YCSB.ReqPerQuery))
		set("READ_PERC", experiment.FormatFloat(e.YCSB.ReadRatio))
		set("WRITE_PERC", experiment.FormatFloat(1-e.YCSB.ReadRatio))
		set("SCAN_PERC", "0")
		set("ZIPF_THETA", experiment.FormatFloat(e.YCSB.ZipfTheta))
	case experiment.BenchTPCC:
		set("WORKLOAD", "TPCC")
		set("WARMUP", strconv.Itoa(e.TxCount))
		set("MAX_TXN_PER_PART", strconv.Itoa(e.TxCount))
		set("MAX_TUPLE_SIZE", strconv.Itoa(tpccTupleSize))
		set("NUM_WH", strconv.Itoa(e.TPCC.WarehouseCount))
	default:
		return nil, fmt.Errorf("no workload overrides for bench %q", e.Bench)
	}

	if e.Alg.IsMICA() {
		micaTuning(e, set)
	}
	return ovs, nil
}

func algorithm(alg experiment.Alg, set func(name, value string)) {
	set("CC_ALG", alg.Base())
	set("ISOLATION_LEVEL", "SERIALIZABLE")

	if alg == experiment.AlgSilo {
		set("VALIDATION_LOCK", `"waiting"`)
		set("PRE_ABORT", `"false"`)
	} else {
		set("VALIDATION_LOCK", `"no-wait"`)
		set("PRE_ABORT", `"true"`)
	}

	switch alg {
	case experiment.AlgMICAIndex:
		set("INDEX_STRUCT", "IDX_MICA")
		set("MICA_FULLINDEX", "false")
	case experiment.AlgMICAFullIndex:
		set("INDEX_STRUCT", "IDX_MICA")
		set("MICA_FULLINDEX", "true")
	default:
		set("INDEX_STRUCT", "IDX_HASH")
		set("MICA_FULLINDEX", "false")
	}
}

var micaFlagDirectives = []struct {
	flag experiment.Flags
	name string
}{
	{experiment.FlagNoPreval, "MICA_NO_PRE_VALIDATION"},
	{experiment.FlagNoNewest, "MICA_NO_INSERT_NEWEST_VERSION_ONLY"},
	{experiment.FlagNoWSort, "MICA_NO_SORT_WRITE_SET_BY_CONTENTION"},
	{experiment.FlagNoTSCBoost, "MICA_NO_STRAGGLER_AVOIDANCE"},
	{experiment.FlagNoWait, "MICA_NO_WAIT_FOR_PENDING"},
	{experiment.FlagNoBackoff, "MICA_NO_BACKOFF"},
}

func micaTuning(e experiment.Experiment, set func(name, value string)) {
	for _, d := range micaFlagDirectives {
		if e.Flags.Has(d.flag) {
			set(d.name, "true")
		}
	}
	if e.FixedBackoff.Valid {
		set("MICA_USE_FIXED_BACKOFF", "true")
		set("MICA_FIXED_BACKOFF", experiment.FormatFloat(e.FixedBackoff.Value))
	}
	if e.SlowGC.Valid {
		set("MICA_USE_SLOW_GC", "true")
		set("MICA_SLOW_GC", strconv.Itoa(e.SlowGC.Value))
	}
}

// Render translates e and applies the result to the template.
func Render(tmpl *Document, e experiment.Experiment) (string, error) {
	ovs, err := Translate(e)
	if err != nil {
		return "", err
	}
	return tmpl.Apply(ovs)
}
