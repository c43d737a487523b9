// Package filter selects raw archive records by top-level field values
package filter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	perr "ghscan/internal/platform/errors"
)

type valueSet map[any]struct{}

// Spec is an immutable include/exclude predicate; safe for concurrent use
type Spec struct {
	includes map[string]valueSet
	excludes map[string]valueSet
}

// Builder accumulates include and exclude values; every call adds to the field's set
type Builder struct {
	includes map[string]valueSet
	excludes map[string]valueSet
}

// NewBuilder returns an empty Builder
func NewBuilder() *Builder {
	return &Builder{includes: map[string]valueSet{}, excludes: map[string]valueSet{}}
}

// Include requires field to hold one of values
func (b *Builder) Include(field string, values ...any) *Builder {
	add(b.includes, field, values)
	return b
}

// Exclude rejects records whose field holds one of values
func (b *Builder) Exclude(field string, values ...any) *Builder {
	add(b.excludes, field, values)
	return b
}

// IncludeAssignments parses field=value strings (see ParseAssignments) into includes
func (b *Builder) IncludeAssignments(pairs ...string) (*Builder, error) {
	m, err := ParseAssignments(pairs...)
	if err != nil {
		return b, err
	}
	for f, vs := range m {
		b.Include(f, vs...)
	}
	return b, nil
}

// ExcludeAssignments parses field=value strings (see ParseAssignments) into excludes
func (b *Builder) ExcludeAssignments(pairs ...string) (*Builder, error) {
	m, err := ParseAssignments(pairs...)
	if err != nil {
		return b, err
	}
	for f, vs := range m {
		b.Exclude(f, vs...)
	}
	return b, nil
}

// Build snapshots the builder; later builder calls do not affect the Spec
func (b *Builder) Build() Spec {
	return Spec{includes: clone(b.includes), excludes: clone(b.excludes)}
}

func add(dst map[string]valueSet, field string, values []any) {
	set, ok := dst[field]
	if !ok {
		set = valueSet{}
		dst[field] = set
	}
	for _, v := range values {
		if nv, ok := normalize(v); ok {
			set[nv] = struct{}{}
		}
	}
}

func clone(src map[string]valueSet) map[string]valueSet {
	out := make(map[string]valueSet, len(src))
	for f, set := range src {
		cp := make(valueSet, len(set))
		for v := range set {
			cp[v] = struct{}{}
		}
		out[f] = cp
	}
	return out
}

// Matches reports whether record passes every include and no exclude.
// A missing field has the value nil.
func (s Spec) Matches(record map[string]any) bool {
	for f, set := range s.includes {
		if !member(set, record[f]) {
			return false
		}
	}
	for f, set := range s.excludes {
		if member(set, record[f]) {
			return false
		}
	}
	return true
}

// Empty reports whether the spec accepts every record
func (s Spec) Empty() bool { return len(s.includes) == 0 && len(s.excludes) == 0 }

// String renders the spec for logs, fields sorted
func (s Spec) String() string {
	var parts []string
	render := func(sign string, m map[string]valueSet) {
		fields := make([]string, 0, len(m))
		for f := range m {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			vals := make([]string, 0, len(m[f]))
			for v := range m[f] {
				vals = append(vals, fmt.Sprint(v))
			}
			sort.Strings(vals)
			parts = append(parts, sign+f+"="+strings.Join(vals, "|"))
		}
	}
	render("+", s.includes)
	render("-", s.excludes)
	return strings.Join(parts, " ")
}

func member(set valueSet, v any) bool {
	nv, ok := normalize(v)
	if !ok {
		return false
	}
	_, hit := set[nv]
	return hit
}

// normalize maps numeric kinds to float64 like decoded JSON numbers;
// objects and arrays are not comparable and report false
func normalize(v any) (any, bool) {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f, true
		}
		return x.String(), true
	default:
		return nil, false
	}
}

// ParseAssignments parses "field=value" strings. A value that is a JSON scalar
// (number, true, false, null, quoted string) takes that type; anything else is a string.
func ParseAssignments(pairs ...string) (map[string][]any, error) {
	out := map[string][]any{}
	for _, p := range pairs {
		field, raw, ok := strings.Cut(p, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, perr.Configf("filter: expected field=value, got %q", p)
		}
		out[field] = append(out[field], parseValue(strings.TrimSpace(raw)))
	}
	return out, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		if _, ok := normalize(v); ok {
			return v
		}
	}
	return raw
}
