package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/wesleyorama2/txsweep/internal/artifact"
	"github.com/wesleyorama2/txsweep/internal/experiment"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Fields returns the field of every error, in order.
func (e *ValidationErrors) Fields() []string {
	fields := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		fields[i] = err.Field
	}
	return fields
}

// Validate checks the semantic rules the schema cannot express.
//
// Returns nil if valid, or a ValidationErrors containing all validation errors.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	validateEngine(&c.Engine, errs)
	validateCommands(&c.Commands, errs)

	if c.SyncCount() < 0 {
		errs.Add("syncRepeat", "syncRepeat cannot be negative")
	}
	if d, err := ParseDurationString(c.SettleDelay); err != nil {
		errs.Add("settleDelay", fmt.Sprintf("invalid duration: %v", err))
	} else if d < 0 {
		errs.Add("settleDelay", "settleDelay cannot be negative")
	}
	if c.LargePages() < 0 {
		errs.Add("hugepages.large", "page count cannot be negative")
	}
	if c.SuccessMarker == "" {
		errs.Add("successMarker", "successMarker is required")
	}

	validateResults(&c.Results, errs)
	validateMatrix(&c.Matrix, errs)
	validateLogging(&c.Logging, errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateEngine(e *EngineConfig, errs *ValidationErrors) {
	if e.Template == "" {
		errs.Add("engine.template", "template is required")
	}
	if e.Output == "" {
		errs.Add("engine.output", "output is required")
	}
	if e.Template != "" && e.Template == e.Output {
		errs.Add("engine.output", "output must differ from template")
	}
}

func validateCommands(c *CommandsConfig, errs *ValidationErrors) {
	required := []struct {
		field string
		argv  []string
	}{
		{"commands.build", c.Build},
		{"commands.run", c.Run},
		{"commands.sync", c.Sync},
		{"commands.hugepages", c.Hugepages},
	}
	for _, r := range required {
		if len(r.argv) == 0 || r.argv[0] == "" {
			errs.Add(r.field, "command is required")
		}
	}
	for i, argv := range c.Clean {
		if len(argv) == 0 || argv[0] == "" {
			errs.Add(fmt.Sprintf("commands.clean[%d]", i), "command cannot be empty")
		}
	}
}

func validateResults(r *ResultsConfig, errs *ValidationErrors) {
	if r.Dir == "" {
		errs.Add("results.dir", "dir is required")
	}
	if strings.HasPrefix(r.Prefix, ".") {
		errs.Add("results.prefix", "prefix cannot start with '.', artifacts would be hidden")
	}
	for _, sep := range []string{experiment.Separator, experiment.Delimiter, "/"} {
		if strings.Contains(r.Prefix, sep) {
			errs.Add("results.prefix", fmt.Sprintf("prefix cannot contain %q", sep))
		}
		if strings.Contains(r.Suffix, sep) {
			errs.Add("results.suffix", fmt.Sprintf("suffix cannot contain %q", sep))
		}
	}
	for _, reserved := range []string{artifact.FailedSuffix, artifact.StaleSuffix} {
		if strings.HasSuffix(r.Suffix, reserved) {
			errs.Add("results.suffix", fmt.Sprintf("suffix cannot end in %q", reserved))
		}
	}
}

func validateMatrix(m *MatrixConfig, errs *ValidationErrors) {
	if m.Seqs < 1 {
		errs.Add("matrix.seqs", "seqs must be at least 1")
	}
	for i, n := range m.ThreadCounts {
		if n < 1 {
			errs.Add(fmt.Sprintf("matrix.threadCounts[%d]", i), "thread count must be at least 1")
		}
	}
	for i, n := range m.WarehouseCounts {
		if n < 1 {
			errs.Add(fmt.Sprintf("matrix.warehouseCounts[%d]", i), "warehouse count must be at least 1")
		}
	}
	for i, f := range m.Families {
		if !slices.Contains(experiment.Tags, experiment.Tag(f)) {
			errs.Add(fmt.Sprintf("matrix.families[%d]", i), fmt.Sprintf("unknown family: %s", f))
		}
	}
}

func validateLogging(l *LoggingConfig, errs *ValidationErrors) {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs.Add("logging.level", fmt.Sprintf("invalid level: %s", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		errs.Add("logging.format", fmt.Sprintf("invalid format: %s", l.Format))
	}
}
