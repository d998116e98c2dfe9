// Package reconcile keeps the result directory consistent with the current
// experiment matrix. Results whose identifier is no longer produced by the
// matrix are quarantined under a ".old" name, never deleted, so a changed
// matrix definition cannot be confused with historical runs.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/wesleyorama2/txsweep/internal/artifact"
	"github.com/wesleyorama2/txsweep/internal/ctxlog"
	"github.com/wesleyorama2/txsweep/internal/experiment"
)

// Store is the part of the result directory the reconciler needs.
type Store interface {
	List() ([]artifact.Artifact, error)
	Quarantine(name string) (string, error)
}

// Move records one quarantined artifact.
type Move struct {
	From string
	To   string
}

// Report contains the results of one reconciliation.
type Report struct {
	// Quarantined are the stale artifacts, in name order. In a dry run To is
	// empty.
	Quarantined []Move
	// Kept is the number of success and failure artifacts that belong to
	// the matrix.
	Kept int
	// Ignored counts already-quarantined files and names outside the codec
	// framing.
	Ignored int
	RunAt   time.Time
}

// HasStale reports whether anything was (or, in a dry run, would be)
// quarantined.
func (r *Report) HasStale() bool {
	return len(r.Quarantined) > 0
}

// Options tunes a reconciliation.
type Options struct {
	// DryRun reports stale artifacts without renaming them.
	DryRun bool
}

// ValidSet returns the identifiers of exps.
func ValidSet(codec experiment.Codec, exps []experiment.Experiment) map[string]struct{} {
	valid := make(map[string]struct{}, len(exps))
	for _, e := range exps {
		valid[codec.Encode(e)] = struct{}{}
	}
	return valid
}

// Reconcile quarantines every success or failure artifact whose identifier
// is not in valid and leaves the rest untouched.
func Reconcile(ctx context.Context, store Store, codec experiment.Codec, valid map[string]struct{}, opts Options) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	report := &Report{RunAt: time.Now()}

	artifacts, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if a.State == artifact.Stale || !codec.Matches(a.ID) {
			report.Ignored++
			continue
		}
		if _, ok := valid[a.ID]; ok {
			report.Kept++
			continue
		}

		move := Move{From: a.Name}
		if !opts.DryRun {
			to, err := store.Quarantine(a.Name)
			if err != nil {
				return report, fmt.Errorf("reconcile: %w", err)
			}
			move.To = to
		}
		logger.Warn("stale artifact", "file", a.Name, "quarantined_as", move.To, "dry_run", opts.DryRun)
		report.Quarantined = append(report.Quarantined, move)
	}
	return report, nil
}
