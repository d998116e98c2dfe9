package experiment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backoffExample() Experiment {
	return Experiment{
		Bench:       BenchYCSB,
		Alg:         AlgMICA,
		Tag:         TagBackoff,
		Seq:         0,
		ThreadCount: 28,
		TxCount:     2000000,
		YCSB: YCSB{
			TotalCount:  10000000,
			ReqPerQuery: 1,
			ReadRatio:   0.5,
			ZipfTheta:   0.99,
		},
		FixedBackoff: Some(3.0),
	}
}

func TestEncode_BackoffExample(t *testing.T) {
	id := Encode(backoffExample())

	want := "alg@MICA__bench@YCSB__fixed_backoff@3.0__read_ratio@0.5__req_per_query@1__seq@0" +
		"__tag@backoff__thread_count@28__total_count@10000000__tx_count@2000000__zipf_theta@0.99"
	assert.Equal(t, want, id)

	got, err := Decode(id)
	require.NoError(t, err)
	assert.Equal(t, backoffExample(), got)
	assert.True(t, got.FixedBackoff.Valid)
	assert.Equal(t, 3.0, got.FixedBackoff.Value)
	assert.Equal(t, 28, got.ThreadCount)
}

func TestEncode_TPCCWithFlags(t *testing.T) {
	e := Experiment{
		Bench: BenchTPCC, Alg: AlgMICA, Tag: TagFactor, Seq: 2,
		ThreadCount: 28, TxCount: 200000,
		TPCC:  TPCC{WarehouseCount: 4},
		Flags: FlagNoWait | FlagNoNewest,
	}

	id := Encode(e)
	assert.Equal(t,
		"alg@MICA__bench@TPCC__no_newest@1__no_wait@1__seq@2__tag@factor__thread_count@28__tx_count@200000__warehouse_count@4",
		id)

	got, err := Decode(id)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestCodec_PrefixSuffix(t *testing.T) {
	c := Codec{Prefix: "exp-", Suffix: ".txt"}
	e := backoffExample()

	id := c.Encode(e)
	assert.True(t, c.Matches(id))
	assert.Equal(t, "exp-alg@MICA", id[:12])

	got, err := c.Decode(id)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	_, err = c.Decode(Encode(e))
	assert.ErrorIs(t, err, ErrFraming)
}

func TestDecode_Errors(t *testing.T) {
	valid := Encode(backoffExample())

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{
			name:    "empty",
			id:      "",
			wantErr: ErrFraming,
		},
		{
			name:    "entry without delimiter",
			id:      "alg@MICA__bench",
			wantErr: ErrFraming,
		},
		{
			name:    "unknown key",
			id:      "alg@MICA__bench@YCSB__color@blue",
			wantErr: ErrUnknownKey,
		},
		{
			name:    "integer with float text",
			id:      "alg@MICA__bench@TPCC__seq@0__tag@gc__thread_count@28.0__tx_count@1__warehouse_count@4",
			wantErr: ErrValue,
		},
		{
			name:    "non-canonical float",
			id:      "alg@MICA__bench@YCSB__read_ratio@0.50__req_per_query@1__seq@0__tag@gc__thread_count@1__total_count@1__tx_count@1__zipf_theta@0.0",
			wantErr: ErrValue,
		},
		{
			name:    "flag with value other than 1",
			id:      "alg@MICA__bench@TPCC__no_wait@2__seq@0__tag@gc__thread_count@1__tx_count@1__warehouse_count@4",
			wantErr: ErrValue,
		},
		{
			name:    "keys out of order",
			id:      "bench@TPCC__alg@MICA__seq@0__tag@gc__thread_count@1__tx_count@1__warehouse_count@4",
			wantErr: ErrValue,
		},
		{
			name:    "missing required key",
			id:      "alg@MICA__bench@TPCC__seq@0__tag@gc__thread_count@1__tx_count@1",
			wantErr: ErrSchema,
		},
		{
			name:    "key from the other bench",
			id:      "alg@MICA__bench@TPCC__seq@0__tag@gc__thread_count@1__total_count@5__tx_count@1__warehouse_count@4",
			wantErr: ErrSchema,
		},
		{
			name:    "unknown alg",
			id:      "alg@2PL__bench@TPCC__seq@0__tag@gc__thread_count@1__tx_count@1__warehouse_count@4",
			wantErr: ErrSchema,
		},
		{
			name:    "trailing suffix from a failure artifact",
			id:      valid + ".failed",
			wantErr: ErrValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.id)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestRoundTrip_WholeMatrix(t *testing.T) {
	seen := make(map[string]Experiment)
	for e := range DefaultMatrix().Enumerate() {
		require.NoError(t, e.Validate(), e.String())

		id := Encode(e)
		got, err := Decode(id)
		require.NoError(t, err, id)
		require.Equal(t, e, got, id)
		require.Equal(t, id, Encode(got))

		if prev, ok := seen[id]; ok {
			require.Equal(t, prev, e, "two distinct experiments share identifier %s", id)
		}
		seen[id] = e
	}
	assert.Len(t, seen, len(DefaultMatrix().All()))
}

func TestEncode_DistinctExperimentsDiffer(t *testing.T) {
	a := backoffExample()

	variants := []func(e *Experiment){
		func(e *Experiment) { e.Seq = 1 },
		func(e *Experiment) { e.FixedBackoff = Option[float64]{} },
		func(e *Experiment) { e.FixedBackoff = Some(3.5) },
		func(e *Experiment) { e.Flags = FlagNoWait },
		func(e *Experiment) { e.SlowGC = Some(10) },
		func(e *Experiment) { e.Alg = AlgMICAIndex },
		func(e *Experiment) { e.YCSB.ZipfTheta = 0.9 },
	}
	for i, mutate := range variants {
		b := a
		mutate(&b)
		require.NotEqual(t, a, b)
		assert.NotEqual(t, Encode(a), Encode(b), "variant %d", i)
	}
}

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"thread_count":  KindInt,
		"slow_gc":       KindInt,
		"fixed_backoff": KindFloat,
		"zipf_theta":    KindFloat,
		"no_wait":       KindFlag,
		"alg":           KindString,
	}
	for key, want := range tests {
		got, ok := KindOf(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	_, ok := KindOf("nope")
	assert.False(t, ok)
	assert.Len(t, Keys(), 19)
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		0:    "0.0",
		0.5:  "0.5",
		0.99: "0.99",
		3:    "3.0",
		30:   "30.0",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatFloat(in))
	}

	read := 0.95
	assert.Equal(t, "0.050000000000000044", FormatFloat(1-read))
}

func TestAlg(t *testing.T) {
	assert.Equal(t, "MICA", AlgMICAFullIndex.Base())
	assert.Equal(t, "NO_WAIT", AlgNoWait.Base())
	assert.True(t, AlgMICAIndex.IsMICA())
	assert.False(t, AlgSilo.IsMICA())
}
