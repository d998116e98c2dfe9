package experiment

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Separator joins rendered entries of an identifier.
	Separator = "__"
	// Delimiter splits an entry into key and value.
	Delimiter = "@"
)

var (
	// ErrFraming reports an identifier without the codec's prefix/suffix or
	// with a malformed entry.
	ErrFraming = errors.New("malformed identifier")
	// ErrUnknownKey reports a key outside the schema. It means the result
	// directory was written by a different schema and must not be guessed at.
	ErrUnknownKey = errors.New("unknown parameter key")
	// ErrValue reports a value that does not parse as its declared kind or
	// is not in canonical form.
	ErrValue = errors.New("invalid parameter value")
	// ErrSchema reports a structurally invalid experiment.
	ErrSchema = errors.New("schema violation")
)

// Codec maps experiments to identifiers and back. The zero value uses no
// prefix or suffix.
type Codec struct {
	Prefix string
	Suffix string
}

// Encode renders e as prefix + sorted "key@value" entries joined by "__" +
// suffix. Flags render as 1.
func (c Codec) Encode(e Experiment) string {
	var sb strings.Builder
	sb.WriteString(c.Prefix)
	for i, p := range e.Params() {
		if i > 0 {
			sb.WriteString(Separator)
		}
		sb.WriteString(p.Key)
		sb.WriteString(Delimiter)
		sb.WriteString(p.Value)
	}
	sb.WriteString(c.Suffix)
	return sb.String()
}

// Matches reports whether name carries the codec's framing.
func (c Codec) Matches(name string) bool {
	return len(name) >= len(c.Prefix)+len(c.Suffix) &&
		strings.HasPrefix(name, c.Prefix) && strings.HasSuffix(name, c.Suffix)
}

// Decode parses an identifier produced by Encode. Every value is parsed by
// its key's declared kind and must re-render to exactly the text it came
// from, so Encode(Decode(s)) == s whenever Decode succeeds.
func (c Codec) Decode(s string) (Experiment, error) {
	var e Experiment
	if !c.Matches(s) {
		return e, fmt.Errorf("%w: %q lacks prefix %q or suffix %q", ErrFraming, s, c.Prefix, c.Suffix)
	}
	body := s[len(c.Prefix) : len(s)-len(c.Suffix)]
	if body == "" {
		return e, fmt.Errorf("%w: %q has no entries", ErrFraming, s)
	}

	seen := make(map[string]bool)
	prev := ""
	for _, entry := range strings.Split(body, Separator) {
		key, raw, ok := strings.Cut(entry, Delimiter)
		if !ok || key == "" {
			return e, fmt.Errorf("%w: entry %q in %q", ErrFraming, entry, s)
		}
		f, known := schemaByKey[key]
		if !known {
			return e, fmt.Errorf("%w: %q in %q", ErrUnknownKey, key, s)
		}
		if seen[key] {
			return e, fmt.Errorf("%w: duplicate key %q", ErrSchema, key)
		}
		if key < prev {
			return e, fmt.Errorf("%w: key %q out of order", ErrValue, key)
		}
		seen[key], prev = true, key

		if err := f.set(&e, raw); err != nil {
			return e, fmt.Errorf("%w: %s=%q is not a valid %s: %v", ErrValue, key, raw, f.kind, err)
		}
		if got, _ := f.get(&e); got != raw {
			return e, fmt.Errorf("%w: %s=%q is not canonical (want %q)", ErrValue, key, raw, got)
		}
	}

	for i := range schema {
		f := &schema[i]
		switch {
		case seen[f.key] && !f.applies(e.Bench):
			return e, fmt.Errorf("%w: key %q does not apply to bench %q", ErrSchema, f.key, e.Bench)
		case !seen[f.key] && !f.optional && f.applies(e.Bench):
			return e, fmt.Errorf("%w: missing key %q", ErrSchema, f.key)
		}
	}
	if err := e.Validate(); err != nil {
		return e, err
	}
	return e, nil
}

// DefaultCodec is the codec used for result directories unless configured
// otherwise.
var DefaultCodec = Codec{}

// Encode renders e with DefaultCodec.
func Encode(e Experiment) string { return DefaultCodec.Encode(e) }

// Decode parses s with DefaultCodec.
func Decode(s string) (Experiment, error) { return DefaultCodec.Decode(s) }
