// Package config provides configuration loading and validation for txsweep.
package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/wesleyorama2/txsweep/internal/experiment"
)

// Config is the root configuration of a sweep.
//
// Example YAML:
//
//	engine:
//	  dir: ./dbx1000
//	commands:
//	  hugepages: ["../script/setup.sh"]
//	settleDelay: 5s
//	results:
//	  dir: exp_data
//	matrix:
//	  seqs: 5
//	  families: [macrobench, gc]
type Config struct {
	// Engine locates the engine source tree and its configuration header.
	Engine EngineConfig `json:"engine,omitempty" yaml:"engine,omitempty"`

	// Commands are the external steps run for every point.
	Commands CommandsConfig `json:"commands,omitempty" yaml:"commands,omitempty"`

	// SyncRepeat is how many times the sync command runs before execution.
	// Zero disables syncing; unset means the default.
	SyncRepeat *int `json:"syncRepeat,omitempty" yaml:"syncRepeat,omitempty"`

	// SettleDelay is waited after syncing, before execution (e.g. "5s").
	SettleDelay string `json:"settleDelay,omitempty" yaml:"settleDelay,omitempty"`

	// Hugepages configures the page counts handed to the hugepage command.
	Hugepages HugepagesConfig `json:"hugepages,omitempty" yaml:"hugepages,omitempty"`

	// SuccessMarker must appear in the output of a successful execution.
	SuccessMarker string `json:"successMarker,omitempty" yaml:"successMarker,omitempty"`

	Results ResultsConfig `json:"results,omitempty" yaml:"results,omitempty"`

	// Journal is the run journal path. Defaults to a hidden file inside the
	// result directory.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	Matrix MatrixConfig `json:"matrix,omitempty" yaml:"matrix,omitempty"`

	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// EngineConfig locates the engine.
type EngineConfig struct {
	// Dir is the working directory of every command.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Template is the pristine configuration header, relative to Dir.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`

	// Output is the header the build reads, relative to Dir.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// CommandsConfig holds argv vectors. Nothing is run through a shell.
type CommandsConfig struct {
	Clean     [][]string `json:"clean,omitempty" yaml:"clean,omitempty"`
	Build     []string   `json:"build,omitempty" yaml:"build,omitempty"`
	Run       []string   `json:"run,omitempty" yaml:"run,omitempty"`
	Sync      []string   `json:"sync,omitempty" yaml:"sync,omitempty"`
	Hugepages []string   `json:"hugepages,omitempty" yaml:"hugepages,omitempty"`
}

// HugepagesConfig sets the page count used by MICA-family experiments.
type HugepagesConfig struct {
	// Large is the page count for MICA-family experiments. Zero releases
	// hugepages for every experiment; unset means the default.
	Large *int `json:"large,omitempty" yaml:"large,omitempty"`
}

// ResultsConfig locates the result directory and the identifier framing.
type ResultsConfig struct {
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
}

// MatrixConfig narrows or widens the experiment matrix.
type MatrixConfig struct {
	Seqs            int      `json:"seqs,omitempty" yaml:"seqs,omitempty"`
	ThreadCounts    []int    `json:"threadCounts,omitempty" yaml:"threadCounts,omitempty"`
	WarehouseCounts []int    `json:"warehouseCounts,omitempty" yaml:"warehouseCounts,omitempty"`
	Families        []string `json:"families,omitempty" yaml:"families,omitempty"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

const journalName = ".journal.jsonl"

// Default returns the configuration used when no file is given.
func Default() *Config {
	m := experiment.DefaultMatrix()
	families := make([]string, len(m.Families))
	for i, f := range m.Families {
		families[i] = string(f)
	}

	return &Config{
		Engine: EngineConfig{
			Dir:      ".",
			Template: "config-std.h",
			Output:   "config.h",
		},
		Commands: CommandsConfig{
			Clean:     [][]string{{"make", "clean"}, {"rm", "-f", "./rundb"}},
			Build:     []string{"make", "-j"},
			Run:       []string{"sudo", "./rundb"},
			Sync:      []string{"sudo", "sync"},
			Hugepages: []string{"../script/setup.sh"},
		},
		SyncRepeat:    intPtr(2),
		SettleDelay:   "5s",
		Hugepages:     HugepagesConfig{Large: intPtr(16384)},
		SuccessMarker: "[summary] tput=",
		Results:       ResultsConfig{Dir: "exp_data"},
		Matrix: MatrixConfig{
			Seqs:            m.Seqs,
			ThreadCounts:    slices.Clone(m.ThreadCounts),
			WarehouseCounts: slices.Clone(m.WarehouseCounts),
			Families:        families,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// ApplyDefaults fills every zero field of c from Default.
func ApplyDefaults(c *Config) {
	d := Default()

	if c.Engine.Dir == "" {
		c.Engine.Dir = d.Engine.Dir
	}
	if c.Engine.Template == "" {
		c.Engine.Template = d.Engine.Template
	}
	if c.Engine.Output == "" {
		c.Engine.Output = d.Engine.Output
	}

	if c.Commands.Clean == nil {
		c.Commands.Clean = d.Commands.Clean
	}
	if len(c.Commands.Build) == 0 {
		c.Commands.Build = d.Commands.Build
	}
	if len(c.Commands.Run) == 0 {
		c.Commands.Run = d.Commands.Run
	}
	if len(c.Commands.Sync) == 0 {
		c.Commands.Sync = d.Commands.Sync
	}
	if len(c.Commands.Hugepages) == 0 {
		c.Commands.Hugepages = d.Commands.Hugepages
	}

	if c.SyncRepeat == nil {
		c.SyncRepeat = d.SyncRepeat
	}
	if c.SettleDelay == "" {
		c.SettleDelay = d.SettleDelay
	}
	if c.Hugepages.Large == nil {
		c.Hugepages.Large = d.Hugepages.Large
	}
	if c.SuccessMarker == "" {
		c.SuccessMarker = d.SuccessMarker
	}
	if c.Results.Dir == "" {
		c.Results.Dir = d.Results.Dir
	}

	if c.Matrix.Seqs == 0 {
		c.Matrix.Seqs = d.Matrix.Seqs
	}
	if len(c.Matrix.ThreadCounts) == 0 {
		c.Matrix.ThreadCounts = d.Matrix.ThreadCounts
	}
	if len(c.Matrix.WarehouseCounts) == 0 {
		c.Matrix.WarehouseCounts = d.Matrix.WarehouseCounts
	}
	if len(c.Matrix.Families) == 0 {
		c.Matrix.Families = d.Matrix.Families
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// Codec returns the identifier codec for the configured framing.
func (c *Config) Codec() experiment.Codec {
	return experiment.Codec{Prefix: c.Results.Prefix, Suffix: c.Results.Suffix}
}

// ExperimentMatrix returns the matrix described by the configuration.
func (c *Config) ExperimentMatrix() experiment.Matrix {
	m := experiment.DefaultMatrix()
	m.Seqs = c.Matrix.Seqs
	m.ThreadCounts = slices.Clone(c.Matrix.ThreadCounts)
	m.WarehouseCounts = slices.Clone(c.Matrix.WarehouseCounts)
	m.Families = make([]experiment.Tag, 0, len(c.Matrix.Families))
	for _, f := range c.Matrix.Families {
		m.Families = append(m.Families, experiment.Tag(f))
	}
	return m
}

// JournalPath returns the configured journal or the default one inside the
// result directory.
func (c *Config) JournalPath() string {
	if c.Journal != "" {
		return c.Journal
	}
	return filepath.Join(c.Results.Dir, journalName)
}

// TemplatePath returns the configuration template path.
func (c *Config) TemplatePath() string {
	return filepath.Join(c.Engine.Dir, c.Engine.Template)
}

// OutputPath returns the path the engine build reads its configuration from.
func (c *Config) OutputPath() string {
	return filepath.Join(c.Engine.Dir, c.Engine.Output)
}

// SyncCount returns how many times to run the sync command.
func (c *Config) SyncCount() int {
	if c.SyncRepeat == nil {
		return 0
	}
	return *c.SyncRepeat
}

// LargePages returns the hugepage count for MICA-family experiments.
func (c *Config) LargePages() int {
	if c.Hugepages.Large == nil {
		return 0
	}
	return *c.Hugepages.Large
}

func intPtr(v int) *int { return &v }

// SettleDuration returns the parsed settle delay. Validate guarantees it
// parses.
func (c *Config) SettleDuration() time.Duration {
	d, _ := ParseDurationString(c.SettleDelay)
	return d
}
