package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/wesleyorama2/txsweep/internal/ctxlog"
)

// Toolchain performs the external steps of one point.
type Toolchain interface {
	// Clean removes the previous build.
	Clean(ctx context.Context) error
	// Hugepages reserves pages huge pages.
	Hugepages(ctx context.Context, pages int) error
	// Build compiles the engine. A failure is a *BuildError.
	Build(ctx context.Context) error
	// Sync flushes file system buffers.
	Sync(ctx context.Context) error
	// Execute runs the engine and returns its combined output and exit
	// code. err is non-nil only when the process could not be run to
	// completion, including cancellation.
	Execute(ctx context.Context) (output []byte, exitCode int, err error)
}

// BuildError reports a failed engine build. It aborts the sweep.
type BuildError struct {
	Output []byte
	Err    error
}

const buildTail = 2000

func (e *BuildError) Error() string {
	out := e.Output
	if len(out) > buildTail {
		out = out[len(out)-buildTail:]
	}
	if len(out) == 0 {
		return fmt.Sprintf("build failed: %v", e.Err)
	}
	return fmt.Sprintf("build failed: %v\n%s", e.Err, out)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Commands runs each step as an argv vector in Dir. Nothing goes through a
// shell.
type Commands struct {
	Dir           string
	CleanArgv     [][]string
	BuildArgv     []string
	RunArgv       []string
	SyncArgv      []string
	HugepagesArgv []string
}

func (c *Commands) command(ctx context.Context, argv []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	return cmd
}

// Clean runs every clean command, discarding output. All commands run even
// when one fails; the first error is returned.
func (c *Commands) Clean(ctx context.Context) error {
	var errs []error
	for _, argv := range c.CleanArgv {
		if err := c.command(ctx, argv).Run(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", argv[0], err))
		}
	}
	return errors.Join(errs...)
}

// Hugepages runs the hugepage command with the page count appended twice,
// once per NUMA-node argument of the setup script.
func (c *Commands) Hugepages(ctx context.Context, pages int) error {
	n := strconv.Itoa(pages)
	argv := append(append([]string{}, c.HugepagesArgv...), n, n)
	if out, err := c.command(ctx, argv).CombinedOutput(); err != nil {
		return fmt.Errorf("hugepages %d: %w: %s", pages, err, out)
	}
	return nil
}

// Build runs the build command.
func (c *Commands) Build(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("building engine", "argv", c.BuildArgv, "dir", c.Dir)
	out, err := c.command(ctx, c.BuildArgv).CombinedOutput()
	if err != nil {
		return &BuildError{Output: out, Err: err}
	}
	return nil
}

// Sync runs the sync command.
func (c *Commands) Sync(ctx context.Context) error {
	return c.command(ctx, c.SyncArgv).Run()
}

// Execute runs the engine and captures stdout and stderr together.
func (c *Commands) Execute(ctx context.Context) ([]byte, int, error) {
	out, err := c.command(ctx, c.RunArgv).CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, -1, ctxErr
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return out, 0, nil
	case errors.As(err, &exitErr):
		return out, exitErr.ExitCode(), nil
	default:
		return out, -1, err
	}
}
