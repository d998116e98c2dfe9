// Package artifact manages the result directory. Every recorded experiment
// leaves exactly one file keyed by its identifier:
//
//	<dir>/<id>          success, raw engine output
//	<dir>/<id>.failed   failure, raw engine output
//	<dir>/<id>.old      quarantined result of an id no longer in the matrix
//
// There is no other persisted state; a missing file means the experiment
// is still pending.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	FailedSuffix = ".failed"
	StaleSuffix  = ".old"

	tempPattern = ".partial-*"
)

// State is the recorded outcome of one identifier.
type State int

const (
	Pending State = iota
	Success
	Failure
	Stale
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Artifact is one file of the result directory.
type Artifact struct {
	// Name is the file name relative to the store directory.
	Name string
	// ID is the identifier the file records. For stale artifacts it is the
	// name the file had before quarantine, which may carry FailedSuffix.
	ID    string
	State State
}

// ParseName classifies a file name. Hidden files (including in-progress
// writes) are not artifacts.
func ParseName(name string) (Artifact, bool) {
	if name == "" || strings.HasPrefix(name, ".") {
		return Artifact{}, false
	}
	if base, ok := cutStale(name); ok {
		return Artifact{Name: name, ID: base, State: Stale}, base != ""
	}
	if base, ok := strings.CutSuffix(name, FailedSuffix); ok {
		return Artifact{Name: name, ID: base, State: Failure}, base != ""
	}
	return Artifact{Name: name, ID: name, State: Success}, true
}

// cutStale strips ".old" or a collision suffix ".old-<n>".
func cutStale(name string) (string, bool) {
	if base, ok := strings.CutSuffix(name, StaleSuffix); ok {
		return base, true
	}
	i := strings.LastIndex(name, StaleSuffix+"-")
	if i < 0 {
		return "", false
	}
	if _, err := strconv.Atoi(name[i+len(StaleSuffix)+1:]); err != nil {
		return "", false
	}
	return name[:i], true
}

// Store is a result directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the success artifact path for id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id)
}

// State reports whether id has a success or failure artifact. A success
// artifact takes precedence.
func (s *Store) State(id string) (State, error) {
	for _, c := range []struct {
		name  string
		state State
	}{
		{id, Success},
		{id + FailedSuffix, Failure},
	} {
		_, err := os.Stat(filepath.Join(s.dir, c.name))
		if err == nil {
			return c.state, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Pending, fmt.Errorf("failed to stat artifact %s: %w", c.name, err)
		}
	}
	return Pending, nil
}

// Done reports whether id was already attempted, successfully or not.
func (s *Store) Done(id string) (bool, error) {
	st, err := s.State(id)
	return st != Pending, err
}

// WriteSuccess records the raw output of a successful run.
func (s *Store) WriteSuccess(id string, output []byte) error {
	return s.write(id, output)
}

// WriteFailure records the raw output of a failed run.
func (s *Store) WriteFailure(id string, output []byte) error {
	return s.write(id+FailedSuffix, output)
}

// write stores data under name atomically: a crash leaves either no file
// or the complete one.
func (s *Store) write(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}
	f, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync artifact %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close artifact %s: %w", name, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("failed to chmod artifact %s: %w", name, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to commit artifact %s: %w", name, err)
	}
	return nil
}

// List returns every artifact in the directory sorted by name. A missing
// directory is an empty store.
func (s *Store) List() ([]Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list result directory: %w", err)
	}

	var out []Artifact
	for _, ent := range entries {
		if !ent.Type().IsRegular() {
			continue
		}
		if a, ok := ParseName(ent.Name()); ok {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b Artifact) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Quarantine renames name to name.old, or to the first free name.old-<n>
// when an earlier quarantine already took that name. It never overwrites.
// It returns the new name.
func (s *Store) Quarantine(name string) (string, error) {
	for n := 0; ; n++ {
		target := name + StaleSuffix
		if n > 0 {
			target = fmt.Sprintf("%s%s-%d", name, StaleSuffix, n)
		}
		if err := s.renameNoReplace(name, target); err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return "", err
		}
		return target, nil
	}
}

// Rename moves an artifact to a new name, refusing to overwrite.
func (s *Store) Rename(from, to string) error {
	return s.renameNoReplace(from, to)
}

func (s *Store) renameNoReplace(from, to string) error {
	dst := filepath.Join(s.dir, to)
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("failed to rename %s: %s: %w", from, to, fs.ErrExist)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to rename %s: %w", from, err)
	}
	if err := os.Rename(filepath.Join(s.dir, from), dst); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", from, to, err)
	}
	return nil
}
