// Package experiment models one point of the benchmark sweep: the closed
// parameter schema, the canonical identifier codec, and the enumerator that
// produces the experiment matrix.
//
// An Experiment is a comparable value. Two experiments are equal exactly
// when their full key/value mappings are equal, so == and map keys can be
// used directly.
package experiment

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Bench selects the workload and, with it, the variant fields that apply.
type Bench string

const (
	BenchYCSB Bench = "YCSB"
	BenchTPCC Bench = "TPCC"
)

// Alg names a concurrency-control scheme. Compound names such as
// "MICA+INDEX" select a base scheme plus an index variant.
type Alg string

const (
	AlgMICA          Alg = "MICA"
	AlgMICAIndex     Alg = "MICA+INDEX"
	AlgMICAFullIndex Alg = "MICA+FULLINDEX"
	AlgSilo          Alg = "SILO"
	AlgTicToc        Alg = "TICTOC"
	AlgHekaton       Alg = "HEKATON"
	AlgNoWait        Alg = "NO_WAIT"
)

// Algorithms lists every known scheme in sweep order.
var Algorithms = []Alg{
	AlgMICA, AlgMICAIndex, AlgMICAFullIndex,
	AlgSilo, AlgTicToc, AlgHekaton, AlgNoWait,
}

// IsMICA reports whether the scheme belongs to the MICA family.
func (a Alg) IsMICA() bool {
	return strings.HasPrefix(string(a), "MICA")
}

// Base returns the engine-level scheme name with any variant stripped.
func (a Alg) Base() string {
	s, _, _ := strings.Cut(string(a), "-")
	s, _, _ = strings.Cut(s, "+")
	return s
}

// Tag names a sweep family.
type Tag string

const (
	TagMacrobench Tag = "macrobench"
	TagBackoff    Tag = "backoff"
	TagFactor     Tag = "factor"
	TagGC         Tag = "gc"
)

// Tags lists every sweep family in enumeration order.
var Tags = []Tag{TagMacrobench, TagBackoff, TagFactor, TagGC}

// Flags is the set of presence-only tuning flags.
type Flags uint8

const (
	FlagNoPreval Flags = 1 << iota
	FlagNoNewest
	FlagNoWSort
	FlagNoTSCBoost
	FlagNoWait
	FlagNoBackoff

	allFlags = FlagNoPreval | FlagNoNewest | FlagNoWSort | FlagNoTSCBoost | FlagNoWait | FlagNoBackoff
)

// Has reports whether every flag in x is set.
func (f Flags) Has(x Flags) bool { return f&x == x }

// Option is a numeric knob that is either absent or carries a value.
type Option[T int | float64] struct {
	Value T
	Valid bool
}

// Some returns a present option.
func Some[T int | float64](v T) Option[T] {
	return Option[T]{Value: v, Valid: true}
}

// YCSB holds the parameters that only apply to YCSB experiments.
type YCSB struct {
	TotalCount  int
	ReqPerQuery int
	ReadRatio   float64
	ZipfTheta   float64
}

// TPCC holds the parameters that only apply to TPCC experiments.
type TPCC struct {
	WarehouseCount int
}

// Experiment is one point of the sweep. Only the variant selected by Bench
// is populated; the other stays zero.
type Experiment struct {
	Bench       Bench
	Alg         Alg
	Tag         Tag
	Seq         int
	ThreadCount int
	TxCount     int

	YCSB YCSB
	TPCC TPCC

	Flags        Flags
	FixedBackoff Option[float64]
	SlowGC       Option[int]
}

// Kind is the declared value kind of a schema key.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindFlag
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindFlag:
		return "flag"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// field binds one schema key to its accessor pair. bench is empty for keys
// shared by both workloads.
type field struct {
	key      string
	kind     Kind
	bench    Bench
	optional bool
	get      func(e *Experiment) (string, bool)
	set      func(e *Experiment, raw string) error
}

var schema = []field{
	strField("alg", func(e *Experiment) *Alg { return &e.Alg }),
	strField("bench", func(e *Experiment) *Bench { return &e.Bench }),
	strField("tag", func(e *Experiment) *Tag { return &e.Tag }),
	intField("seq", "", func(e *Experiment) *int { return &e.Seq }),
	intField("thread_count", "", func(e *Experiment) *int { return &e.ThreadCount }),
	intField("tx_count", "", func(e *Experiment) *int { return &e.TxCount }),
	intField("total_count", BenchYCSB, func(e *Experiment) *int { return &e.YCSB.TotalCount }),
	intField("req_per_query", BenchYCSB, func(e *Experiment) *int { return &e.YCSB.ReqPerQuery }),
	floatField("read_ratio", BenchYCSB, func(e *Experiment) *float64 { return &e.YCSB.ReadRatio }),
	floatField("zipf_theta", BenchYCSB, func(e *Experiment) *float64 { return &e.YCSB.ZipfTheta }),
	intField("warehouse_count", BenchTPCC, func(e *Experiment) *int { return &e.TPCC.WarehouseCount }),
	flagField("no_preval", FlagNoPreval),
	flagField("no_newest", FlagNoNewest),
	flagField("no_wsort", FlagNoWSort),
	flagField("no_tscboost", FlagNoTSCBoost),
	flagField("no_wait", FlagNoWait),
	flagField("no_backoff", FlagNoBackoff),
	{
		key: "fixed_backoff", kind: KindFloat, optional: true,
		get: func(e *Experiment) (string, bool) {
			return FormatFloat(e.FixedBackoff.Value), e.FixedBackoff.Valid
		},
		set: func(e *Experiment, raw string) error {
			v, err := strconv.ParseFloat(raw, 64)
			e.FixedBackoff = Some(v)
			return err
		},
	},
	{
		key: "slow_gc", kind: KindInt, optional: true,
		get: func(e *Experiment) (string, bool) {
			return strconv.Itoa(e.SlowGC.Value), e.SlowGC.Valid
		},
		set: func(e *Experiment, raw string) error {
			v, err := strconv.Atoi(raw)
			e.SlowGC = Some(v)
			return err
		},
	},
}

var schemaByKey = func() map[string]*field {
	m := make(map[string]*field, len(schema))
	for i := range schema {
		m[schema[i].key] = &schema[i]
	}
	return m
}()

func strField[T ~string](key string, ptr func(*Experiment) *T) field {
	return field{
		key:  key,
		kind: KindString,
		get:  func(e *Experiment) (string, bool) { return string(*ptr(e)), true },
		set:  func(e *Experiment, raw string) error { *ptr(e) = T(raw); return nil },
	}
}

func intField(key string, bench Bench, ptr func(*Experiment) *int) field {
	return field{
		key:   key,
		kind:  KindInt,
		bench: bench,
		get:   func(e *Experiment) (string, bool) { return strconv.Itoa(*ptr(e)), true },
		set: func(e *Experiment, raw string) error {
			v, err := strconv.Atoi(raw)
			*ptr(e) = v
			return err
		},
	}
}

func floatField(key string, bench Bench, ptr func(*Experiment) *float64) field {
	return field{
		key:   key,
		kind:  KindFloat,
		bench: bench,
		get:   func(e *Experiment) (string, bool) { return FormatFloat(*ptr(e)), true },
		set: func(e *Experiment, raw string) error {
			v, err := strconv.ParseFloat(raw, 64)
			*ptr(e) = v
			return err
		},
	}
}

func flagField(key string, flag Flags) field {
	return field{
		key:      key,
		kind:     KindFlag,
		optional: true,
		get:      func(e *Experiment) (string, bool) { return "1", e.Flags.Has(flag) },
		set: func(e *Experiment, raw string) error {
			e.Flags |= flag
			if raw != "1" {
				return fmt.Errorf("flag value must be 1")
			}
			return nil
		},
	}
}

// applies reports whether the field belongs in an experiment of bench b.
func (f *field) applies(b Bench) bool {
	return f.bench == "" || f.bench == b
}

// Keys returns every schema key in lexicographic order.
func Keys() []string {
	keys := make([]string, 0, len(schema))
	for _, f := range schema {
		keys = append(keys, f.key)
	}
	slices.Sort(keys)
	return keys
}

// KindOf returns the declared kind of key.
func KindOf(key string) (Kind, bool) {
	f, ok := schemaByKey[key]
	if !ok {
		return 0, false
	}
	return f.kind, true
}

// Param is one rendered key/value pair.
type Param struct {
	Key   string
	Value string
}

// Params renders the experiment's present keys in lexicographic key order.
func (e Experiment) Params() []Param {
	params := make([]Param, 0, len(schema))
	for i := range schema {
		f := &schema[i]
		if !f.applies(e.Bench) {
			continue
		}
		v, ok := f.get(&e)
		if !ok {
			continue
		}
		params = append(params, Param{Key: f.key, Value: v})
	}
	slices.SortFunc(params, func(a, b Param) int { return strings.Compare(a.Key, b.Key) })
	return params
}

func (e Experiment) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, p := range e.Params() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Key)
		sb.WriteString(": ")
		sb.WriteString(p.Value)
	}
	sb.WriteByte('}')
	return sb.String()
}

// Validate checks enum membership, value ranges and that only the variant
// selected by Bench is populated.
func (e Experiment) Validate() error {
	switch e.Bench {
	case BenchYCSB:
		if e.TPCC != (TPCC{}) {
			return fmt.Errorf("%w: TPCC parameters set on a YCSB experiment", ErrSchema)
		}
		if e.YCSB.TotalCount <= 0 || e.YCSB.ReqPerQuery <= 0 {
			return fmt.Errorf("%w: total_count and req_per_query must be positive", ErrSchema)
		}
		if !finite(e.YCSB.ReadRatio) || e.YCSB.ReadRatio < 0 || e.YCSB.ReadRatio > 1 {
			return fmt.Errorf("%w: read_ratio %v outside [0, 1]", ErrSchema, e.YCSB.ReadRatio)
		}
		if !finite(e.YCSB.ZipfTheta) || e.YCSB.ZipfTheta < 0 {
			return fmt.Errorf("%w: zipf_theta %v must be non-negative", ErrSchema, e.YCSB.ZipfTheta)
		}
	case BenchTPCC:
		if e.YCSB != (YCSB{}) {
			return fmt.Errorf("%w: YCSB parameters set on a TPCC experiment", ErrSchema)
		}
		if e.TPCC.WarehouseCount <= 0 {
			return fmt.Errorf("%w: warehouse_count must be positive", ErrSchema)
		}
	default:
		return fmt.Errorf("%w: unknown bench %q", ErrSchema, e.Bench)
	}
	if !slices.Contains(Algorithms, e.Alg) {
		return fmt.Errorf("%w: unknown alg %q", ErrSchema, e.Alg)
	}
	if !slices.Contains(Tags, e.Tag) {
		return fmt.Errorf("%w: unknown tag %q", ErrSchema, e.Tag)
	}
	if e.ThreadCount <= 0 {
		return fmt.Errorf("%w: thread_count must be positive", ErrSchema)
	}
	if e.Seq < 0 {
		return fmt.Errorf("%w: seq must be non-negative", ErrSchema)
	}
	if e.TxCount <= 0 {
		return fmt.Errorf("%w: tx_count must be positive", ErrSchema)
	}
	if e.Flags&^allFlags != 0 {
		return fmt.Errorf("%w: unknown flag bits %#x", ErrSchema, uint8(e.Flags&^allFlags))
	}
	if e.FixedBackoff.Valid && !finite(e.FixedBackoff.Value) {
		return fmt.Errorf("%w: fixed_backoff must be finite", ErrSchema)
	}
	return nil
}

// FormatFloat renders the shortest decimal that round-trips, always with a
// fractional part: 0 -> "0.0", 0.5 -> "0.5", 3 -> "3.0".
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
