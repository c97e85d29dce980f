// Package schedule compiles 5-field cron expressions into calendar trigger
// instants and keeps the installed trigger registrations in sync with the
// effective job definitions.
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Sentinel errors for cron compilation.
var (
	ErrFieldCount = errors.New("schedule: expression must have exactly 5 fields")
	ErrBadField   = errors.New("schedule: malformed field")
)

// fieldSpec describes one calendar field of a cron expression, in field
// order: minute, hour, day-of-month, month, day-of-week.
type fieldSpec struct {
	key string
	min int
	max int
}

var fieldSpecs = [5]fieldSpec{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day", 1, 31},
	{"month", 1, 12},
	{"weekday", 0, 6},
}

// termRE matches a single comma-separated term: a literal, a range, or a
// stride. Only digits can reach the value parser, so glob characters can
// never leak into an emitted value.
var termRE = regexp.MustCompile(`^(\*|\d+)(?:-(\d+))?(?:/(\d+))?$`)

// Instant is one calendar trigger instant. Only constrained fields carry a
// key; an unconstrained field is omitted entirely so the consuming
// scheduler interprets it natively as "any".
type Instant map[string]int

// Schedule is a compiled cron expression: the raw source plus the per-field
// expansions. A nil expansion means the field is unconstrained.
type Schedule struct {
	Expr   string
	fields [5][]int
}

// Compile parses a 5-field cron expression into a Schedule. The expression
// must have exactly 5 whitespace-separated fields; each field may be "*",
// a literal, a comma-separated list, a range, or a stride. Callers should
// fall back to rendering the raw string when Compile fails.
func Compile(expr string) (*Schedule, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w, got %d in %q", ErrFieldCount, len(parts), expr)
	}

	s := &Schedule{Expr: expr}
	for i, part := range parts {
		values, err := expandField(part, fieldSpecs[i])
		if err != nil {
			return nil, err
		}
		s.fields[i] = values
	}
	return s, nil
}

// expandField expands one cron field into a sorted set of concrete values
// within the field's domain. A wildcard expands to nil (unconstrained),
// never to the full domain.
func expandField(field string, spec fieldSpec) ([]int, error) {
	var values []int

	for _, term := range strings.Split(field, ",") {
		m := termRE.FindStringSubmatch(term)
		if m == nil {
			return nil, fmt.Errorf("%w: %s %q", ErrBadField, spec.key, term)
		}

		start, rangeEnd, step := m[1], m[2], m[3]

		// A bare wildcard leaves the whole field unconstrained.
		if start == "*" && step == "" {
			return nil, nil
		}

		lo, hi := spec.min, spec.max
		if start != "*" {
			n, err := strconv.Atoi(start)
			if err != nil {
				return nil, fmt.Errorf("%w: %s %q", ErrBadField, spec.key, term)
			}
			lo = n
			hi = n
			if rangeEnd != "" {
				end, err := strconv.Atoi(rangeEnd)
				if err != nil {
					return nil, fmt.Errorf("%w: %s %q", ErrBadField, spec.key, term)
				}
				hi = end
			} else if step != "" {
				// "a/n" strides from a to the end of the domain.
				hi = spec.max
			}
		}

		inc := 1
		if step != "" {
			n, err := strconv.Atoi(step)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("%w: %s step %q", ErrBadField, spec.key, term)
			}
			inc = n
		}

		if lo > hi || lo < spec.min || hi > spec.max {
			return nil, fmt.Errorf("%w: %s %q out of range [%d,%d]", ErrBadField, spec.key, term, spec.min, spec.max)
		}

		for v := lo; v <= hi; v += inc {
			values = append(values, v)
		}
	}

	slices.Sort(values)
	return slices.Compact(values), nil
}

// Instants returns the Cartesian product of the per-field expansions.
// Wildcard fields contribute a single "omit this key" placeholder, so the
// result cardinality is the product of the non-wildcard cardinalities. An
// all-wildcard expression yields exactly one empty instant (fires every
// minute).
func (s *Schedule) Instants() []Instant {
	instants := []Instant{{}}

	for i, values := range s.fields {
		if values == nil {
			continue
		}
		next := make([]Instant, 0, len(instants)*len(values))
		for _, base := range instants {
			for _, v := range values {
				instant := make(Instant, len(base)+1)
				for k, val := range base {
					instant[k] = val
				}
				instant[fieldSpecs[i].key] = v
				next = append(next, instant)
			}
		}
		instants = next
	}

	return instants
}

// Render returns the registration form handed to the external scheduler: a
// single bare instant when the product collapses to one, a list wrapper
// otherwise.
func (s *Schedule) Render() any {
	instants := s.Instants()
	if len(instants) == 1 {
		return instants[0]
	}
	return instants
}
