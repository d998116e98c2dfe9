package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleID = "alg@MICA__bench@YCSB__read_ratio@0.5__zipf_theta@0.99"

func TestParseName(t *testing.T) {
	tests := []struct {
		name   string
		want   Artifact
		wantOK bool
	}{
		{name: sampleID, want: Artifact{Name: sampleID, ID: sampleID, State: Success}, wantOK: true},
		{name: sampleID + ".failed", want: Artifact{Name: sampleID + ".failed", ID: sampleID, State: Failure}, wantOK: true},
		{name: sampleID + ".old", want: Artifact{Name: sampleID + ".old", ID: sampleID, State: Stale}, wantOK: true},
		{name: sampleID + ".failed.old", want: Artifact{Name: sampleID + ".failed.old", ID: sampleID + ".failed", State: Stale}, wantOK: true},
		{name: sampleID + ".old-2", want: Artifact{Name: sampleID + ".old-2", ID: sampleID, State: Stale}, wantOK: true},
		{name: ".partial-1234", wantOK: false},
		{name: ".failed", wantOK: false},
		{name: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseName(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestStore_WriteAndState(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exp_data")
	s := NewStore(dir)

	st, err := s.State(sampleID)
	require.NoError(t, err)
	assert.Equal(t, Pending, st)

	require.NoError(t, s.WriteFailure(sampleID, []byte("boom")))
	st, err = s.State(sampleID)
	require.NoError(t, err)
	assert.Equal(t, Failure, st)

	data, err := os.ReadFile(filepath.Join(dir, sampleID+".failed"))
	require.NoError(t, err)
	assert.Equal(t, "boom", string(data))

	require.NoError(t, s.WriteSuccess(sampleID, []byte("[summary] tput=1")))
	st, err = s.State(sampleID)
	require.NoError(t, err)
	assert.Equal(t, Success, st, "success wins over failure")

	done, err := s.Done(sampleID)
	require.NoError(t, err)
	assert.True(t, done)

	info, err := os.Stat(s.Path(sampleID))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	for _, name := range []string{"b", "a.failed", "c.old", ".partial-x"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	got, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []Artifact{
		{Name: "a.failed", ID: "a", State: Failure},
		{Name: "b", ID: "b", State: Success},
		{Name: "c.old", ID: "c", State: Stale},
	}, got)

	empty, err := NewStore(filepath.Join(dir, "missing")).List()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_QuarantineNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(data)
	}

	write(sampleID, "first")
	got, err := s.Quarantine(sampleID)
	require.NoError(t, err)
	assert.Equal(t, sampleID+".old", got)

	write(sampleID, "second")
	got, err = s.Quarantine(sampleID)
	require.NoError(t, err)
	assert.Equal(t, sampleID+".old-1", got)

	assert.Equal(t, "first", read(sampleID+".old"))
	assert.Equal(t, "second", read(sampleID+".old-1"))
	_, err = os.Stat(filepath.Join(dir, sampleID))
	assert.True(t, os.IsNotExist(err))
}

func TestStore_RenameRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), nil, 0o644))

	assert.Error(t, s.Rename("a", "b"))
	assert.NoError(t, s.Rename("a", "c"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "stale", Stale.String())
	assert.Equal(t, "State(9)", State(9).String())
}
