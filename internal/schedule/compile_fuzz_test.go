package schedule

import (
	"strings"
	"testing"
)

// FuzzCompile verifies that no syntactically valid input can produce a
// non-numeric or out-of-domain value in an emitted instant.
func FuzzCompile(f *testing.F) {
	f.Add("* * * * *")
	f.Add("*/10 9-17 * * 1-5")
	f.Add("0,15,30,45 0 1 1 0")
	f.Add("5-3 * * * *")
	f.Add(strings.Repeat("*", 200))

	f.Fuzz(func(t *testing.T, expr string) {
		s, err := Compile(expr)
		if err != nil {
			return
		}
		for _, instant := range s.Instants() {
			for i, spec := range fieldSpecs {
				v, ok := instant[spec.key]
				if !ok {
					continue
				}
				if v < spec.min || v > spec.max {
					t.Errorf("field %d (%s) value %d outside [%d,%d] for %q",
						i, spec.key, v, spec.min, spec.max, expr)
				}
			}
		}
	})
}
