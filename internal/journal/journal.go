// Package journal keeps an append-only JSON-lines record of every point a
// sweep executed. Artifacts say what the latest outcome of a point is; the
// journal says when each attempt happened and how long it took.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Outcome is the recorded result of one point.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Entry is one journal line.
type Entry struct {
	Run       string    `json:"run"`
	ID        string    `json:"id"`
	Outcome   Outcome   `json:"outcome"`
	Started   time.Time `json:"started"`
	ElapsedMS int64     `json:"elapsed_ms"`
	ExitCode  int       `json:"exit_code"`
}

// Journal appends entries for one invocation of the driver.
type Journal struct {
	path string
	run  string
	mu   sync.Mutex
}

// Open returns a journal writing to path under a fresh run ID. The file is
// created on the first Append.
func Open(path string) *Journal {
	return &Journal{path: path, run: uuid.NewString()}
}

// Path returns the journal file.
func (j *Journal) Path() string { return j.path }

// Run returns the run ID stamped on every entry.
func (j *Journal) Run() string { return j.run }

// Append writes e as one line and syncs it. The Run field is overwritten
// with the journal's run ID.
func (j *Journal) Append(e Entry) error {
	e.Run = j.run
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("journal: encoding entry for %s: %w", e.ID, err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("journal: writing %s: %w", j.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("journal: syncing %s: %w", j.path, err)
	}
	return f.Close()
}

// RunSummary aggregates the entries of one invocation.
type RunSummary struct {
	Run      string
	Started  time.Time
	Finished time.Time
	Success  int
	Failure  int
	Elapsed  time.Duration
}

// Points returns the number of points the run recorded.
func (r *RunSummary) Points() int { return r.Success + r.Failure }

// Summary aggregates a whole journal.
type Summary struct {
	Entries   int
	Malformed int
	Success   int
	Failure   int
	// Runs are in order of first appearance.
	Runs []*RunSummary
	// Latest maps each identifier to its most recent outcome.
	Latest map[string]Outcome
}

// LastRun returns the most recently started run, or nil.
func (s *Summary) LastRun() *RunSummary {
	if len(s.Runs) == 0 {
		return nil
	}
	return s.Runs[len(s.Runs)-1]
}

// Summarize reads the journal at path. A missing file yields an empty
// summary. Lines that are not JSON objects are counted, not fatal, since a
// crash can leave a torn final line.
func Summarize(path string) (*Summary, error) {
	sum := &Summary{Latest: map[string]Outcome{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return sum, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	runs := map[string]*RunSummary{}
	gjson.ForEachLine(string(data), func(line gjson.Result) bool {
		if !line.IsObject() || !gjson.Valid(line.Raw) {
			sum.Malformed++
			return true
		}
		sum.Entries++

		runID := line.Get("run").String()
		id := line.Get("id").String()
		outcome := Outcome(line.Get("outcome").String())
		started := line.Get("started").Time()
		elapsed := time.Duration(line.Get("elapsed_ms").Int()) * time.Millisecond

		r, ok := runs[runID]
		if !ok {
			r = &RunSummary{Run: runID, Started: started}
			runs[runID] = r
			sum.Runs = append(sum.Runs, r)
		}
		if started.Before(r.Started) {
			r.Started = started
		}
		if end := started.Add(elapsed); end.After(r.Finished) {
			r.Finished = end
		}
		r.Elapsed += elapsed

		switch outcome {
		case OutcomeSuccess:
			sum.Success++
			r.Success++
		case OutcomeFailure:
			sum.Failure++
			r.Failure++
		}
		if id != "" {
			sum.Latest[id] = outcome
		}
		return true
	})
	return sum, nil
}
