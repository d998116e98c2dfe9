// Package engineconf rewrites the engine's compile-time configuration for
// one experiment.
//
// The configuration header is treated as opaque text. Only lines of the
// form
//
//	#define NAME value
//
// are indexed, and each override must hit exactly one such line. A
// directive that is missing or defined twice means the template drifted
// from what the translator expects, and the override fails instead of
// silently configuring something else.
package engineconf

import (
	"fmt"
	"os"
	"strings"
)

const directiveKeyword = "#define"

// Override sets one directive to a value.
type Override struct {
	Name  string
	Value string
}

// DirectiveError reports an override whose directive does not occur
// exactly once in the template.
type DirectiveError struct {
	Name  string
	Count int
}

func (e *DirectiveError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("directive %s not found in template", e.Name)
	}
	return fmt.Sprintf("directive %s defined %d times in template, want exactly one", e.Name, e.Count)
}

// Document is a parsed template. It is immutable; Apply returns the
// rendered text and leaves the document untouched.
type Document struct {
	lines []string
	index map[string][]int
	// trailing newline of the source, restored on render
	newline bool
}

// Parse indexes every directive line of text.
func Parse(text string) *Document {
	d := &Document{index: make(map[string][]int)}
	d.newline = strings.HasSuffix(text, "\n")
	d.lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range d.lines {
		if name, ok := directiveName(line); ok {
			d.index[name] = append(d.index[name], i)
		}
	}
	return d
}

// Load reads and parses a template file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config template: %w", err)
	}
	return Parse(string(data)), nil
}

// directiveName returns NAME for a line "#define NAME value". Lines with a
// bare "#define NAME" carry no value to replace and are not indexed.
func directiveName(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != directiveKeyword {
		return "", false
	}
	return fields[1], true
}

// count returns how many times name is defined.
func (d *Document) count(name string) int {
	return len(d.index[name])
}

// value returns the raw value text of a directive defined exactly once.
func (d *Document) value(name string) (string, error) {
	lines := d.index[name]
	if len(lines) != 1 {
		return "", &DirectiveError{Name: name, Count: len(lines)}
	}
	line := strings.TrimSpace(d.lines[lines[0]])
	line = strings.TrimSpace(strings.TrimPrefix(line, directiveKeyword))
	return strings.TrimSpace(strings.TrimPrefix(line, name)), nil
}

// Apply renders the document with every override applied in order. A later
// override of the same name wins.
func (d *Document) Apply(overrides []Override) (string, error) {
	lines := make([]string, len(d.lines))
	copy(lines, d.lines)

	for _, o := range overrides {
		at := d.index[o.Name]
		if len(at) != 1 {
			return "", &DirectiveError{Name: o.Name, Count: len(at)}
		}
		lines[at[0]] = directiveKeyword + " " + o.Name + " " + o.Value
	}

	out := strings.Join(lines, "\n")
	if d.newline {
		out += "\n"
	}
	return out, nil
}
