package runner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shell returns an argv running script with sh, passing any appended
// arguments through as $1, $2, ...
func shell(script string) []string {
	return []string{"sh", "-c", script, "sh"}
}

func TestCommands_RunsEveryStepInDir(t *testing.T) {
	dir := t.TempDir()
	c := &Commands{
		Dir:           dir,
		CleanArgv:     [][]string{shell("echo clean >> steps"), {"false"}, shell("echo rm >> steps")},
		BuildArgv:     shell("echo build >> steps"),
		RunArgv:       shell("echo '[summary] tput=7'; echo oops >&2; exit 3"),
		SyncArgv:      shell("echo sync >> steps"),
		HugepagesArgv: shell(`echo "pages $1 $2" >> steps`),
	}
	ctx := testContext()

	assert.Error(t, c.Clean(ctx), "a failing clean command is reported")
	require.NoError(t, c.Hugepages(ctx, 16384))
	require.NoError(t, c.Build(ctx))
	require.NoError(t, c.Sync(ctx))

	steps, err := os.ReadFile(filepath.Join(dir, "steps"))
	require.NoError(t, err)
	assert.Equal(t, "clean\nrm\npages 16384 16384\nbuild\nsync\n", string(steps))

	out, code, err := c.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Contains(t, string(out), "[summary] tput=7")
	assert.Contains(t, string(out), "oops", "stderr is captured with stdout")
}

func TestCommands_BuildFailure(t *testing.T) {
	c := &Commands{Dir: t.TempDir(), BuildArgv: shell("echo 'config.h:1: error' >&2; exit 2")}

	err := c.Build(testContext())
	var be *BuildError
	require.True(t, errors.As(err, &be), "got %v", err)
	assert.Contains(t, string(be.Output), "config.h:1: error")
}

func TestCommands_ExecuteMissingBinary(t *testing.T) {
	c := &Commands{Dir: t.TempDir(), RunArgv: []string{"./rundb-does-not-exist"}}

	_, code, err := c.Execute(testContext())
	assert.Error(t, err)
	assert.Equal(t, -1, code)
}
