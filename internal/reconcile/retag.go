package reconcile

import (
	"context"
	"fmt"
	"io/fs"
	"slices"

	"github.com/wesleyorama2/txsweep/internal/artifact"
	"github.com/wesleyorama2/txsweep/internal/ctxlog"
	"github.com/wesleyorama2/txsweep/internal/experiment"
)

// Renamer is the part of the result directory Retag needs.
type Renamer interface {
	List() ([]artifact.Artifact, error)
	Rename(from, to string) error
}

// Retag rewrites the tag of every success and failure artifact and renames
// the file to match, keeping the failure suffix. The whole migration is
// planned before anything is renamed: an identifier that does not decode
// (for example one written under a different schema), a target name that
// already exists, or two artifacts mapping to the same target abort it with
// the directory untouched.
//
// Artifacts that already carry tag are left alone. In a dry run the planned
// moves are returned without renaming.
func Retag(ctx context.Context, store Renamer, codec experiment.Codec, tag experiment.Tag, opts Options) ([]Move, error) {
	if !slices.Contains(experiment.Tags, tag) {
		return nil, fmt.Errorf("retag: unknown tag %q (want one of %v)", tag, experiment.Tags)
	}

	artifacts, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("retag: %w", err)
	}

	existing := make(map[string]struct{}, len(artifacts))
	for _, a := range artifacts {
		existing[a.Name] = struct{}{}
	}

	var moves []Move
	targets := map[string]string{}
	for _, a := range artifacts {
		if a.State == artifact.Stale || !codec.Matches(a.ID) {
			continue
		}
		e, err := codec.Decode(a.ID)
		if err != nil {
			return nil, fmt.Errorf("retag %s: %w", a.Name, err)
		}
		if e.Tag == tag {
			continue
		}
		e.Tag = tag
		to := codec.Encode(e)
		if a.State == artifact.Failure {
			to += artifact.FailedSuffix
		}
		// Sources still carry their old tag, so a target can never be a file
		// that this migration moves away.
		if _, ok := existing[to]; ok {
			return nil, fmt.Errorf("retag %s: target %s: %w", a.Name, to, fs.ErrExist)
		}
		if prev, ok := targets[to]; ok {
			return nil, fmt.Errorf("retag %s: target %s is also the target of %s: %w", a.Name, to, prev, fs.ErrExist)
		}
		targets[to] = a.Name
		moves = append(moves, Move{From: a.Name, To: to})
	}

	if opts.DryRun {
		return moves, nil
	}

	logger := ctxlog.FromContext(ctx)
	for i, m := range moves {
		if err := ctx.Err(); err != nil {
			return moves[:i], err
		}
		if err := store.Rename(m.From, m.To); err != nil {
			return moves[:i], fmt.Errorf("retag: %w", err)
		}
		logger.Info("retagged artifact", "from", m.From, "to", m.To)
	}
	return moves, nil
}
