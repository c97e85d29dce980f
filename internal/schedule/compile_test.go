package schedule

import (
	"errors"
	"testing"
)

func TestCompile_FieldCount(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"", "* * * *", "* * * * * *", "0 7 * *"} {
		if _, err := Compile(expr); !errors.Is(err, ErrFieldCount) {
			t.Errorf("Compile(%q) = %v, want ErrFieldCount", expr, err)
		}
	}
}

func TestCompile_AllWildcard(t *testing.T) {
	t.Parallel()

	s, err := Compile("* * * * *")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	instants := s.Instants()
	if len(instants) != 1 {
		t.Fatalf("got %d instants, want 1", len(instants))
	}
	if len(instants[0]) != 0 {
		t.Errorf("all-wildcard instant should have no constrained keys, got %v", instants[0])
	}
}

func TestCompile_DailyAtSeven(t *testing.T) {
	t.Parallel()

	s, err := Compile("0 7 * * *")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	instants := s.Instants()
	if len(instants) != 1 {
		t.Fatalf("got %d instants, want 1", len(instants))
	}
	got := instants[0]
	if len(got) != 2 || got["minute"] != 0 || got["hour"] != 7 {
		t.Errorf("instant = %v, want minute=0 hour=7 only", got)
	}

	// Single-instant optimization: no list wrapper.
	if _, isList := s.Render().([]Instant); isList {
		t.Error("single instant should render without a list wrapper")
	}
}

func TestCompile_Strides(t *testing.T) {
	t.Parallel()

	s, err := Compile("*/15 * * * *")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	instants := s.Instants()
	if len(instants) != 4 {
		t.Fatalf("got %d instants, want 4", len(instants))
	}
	want := []int{0, 15, 30, 45}
	for i, instant := range instants {
		if instant["minute"] != want[i] {
			t.Errorf("instant[%d] minute = %d, want %d", i, instant["minute"], want[i])
		}
	}
}

func TestCompile_Ranges(t *testing.T) {
	t.Parallel()

	s, err := Compile("0 9-11 * * *")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	instants := s.Instants()
	if len(instants) != 3 {
		t.Fatalf("got %d instants, want 3", len(instants))
	}
	for i, hour := range []int{9, 10, 11} {
		if instants[i]["hour"] != hour || instants[i]["minute"] != 0 {
			t.Errorf("instant[%d] = %v", i, instants[i])
		}
	}

	if _, isList := s.Render().([]Instant); !isList {
		t.Error("multiple instants should render with a list wrapper")
	}
}

func TestCompile_Lists(t *testing.T) {
	t.Parallel()

	s, err := Compile("0 8,12,18 * * *")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	instants := s.Instants()
	if len(instants) != 3 {
		t.Fatalf("got %d instants, want 3", len(instants))
	}
	for i, hour := range []int{8, 12, 18} {
		if instants[i]["hour"] != hour {
			t.Errorf("instant[%d] hour = %d, want %d", i, instants[i]["hour"], hour)
		}
	}
}

func TestCompile_Weekdays(t *testing.T) {
	t.Parallel()

	s, err := Compile("0 9 * * 1-5")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	instants := s.Instants()
	if len(instants) != 5 {
		t.Fatalf("got %d instants, want 5", len(instants))
	}
	for i, instant := range instants {
		if _, ok := instant["weekday"]; !ok {
			t.Errorf("instant[%d] missing weekday key: %v", i, instant)
		}
		if instant["weekday"] != i+1 {
			t.Errorf("instant[%d] weekday = %d, want %d", i, instant["weekday"], i+1)
		}
	}
}

func TestCompile_CartesianProduct(t *testing.T) {
	t.Parallel()

	// 10-minute steps across a 9-hour window on 5 weekdays.
	s, err := Compile("*/10 9-17 * * 1-5")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	instants := s.Instants()
	if len(instants) != 270 {
		t.Fatalf("got %d instants, want 270 (6 minutes x 9 hours x 5 weekdays)", len(instants))
	}

	for _, instant := range instants {
		if len(instant) != 3 {
			t.Fatalf("instant should constrain exactly 3 keys, got %v", instant)
		}
		if _, ok := instant["day"]; ok {
			t.Fatal("wildcard day field must not be emitted")
		}
		if _, ok := instant["month"]; ok {
			t.Fatal("wildcard month field must not be emitted")
		}
	}
}

func TestCompile_StrideFromStart(t *testing.T) {
	t.Parallel()

	// "30/10" strides from 30 to the end of the minute domain.
	s, err := Compile("30/10 * * * *")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	instants := s.Instants()
	if len(instants) != 3 {
		t.Fatalf("got %d instants, want 3 (30, 40, 50)", len(instants))
	}
}

func TestCompile_Malformed(t *testing.T) {
	t.Parallel()

	bad := []string{
		"60 * * * *",  // minute out of range
		"* 24 * * *",  // hour out of range
		"* * 0 * *",   // day below domain
		"* * * 13 *",  // month out of range
		"* * * * 7",   // weekday out of range
		"5-3 * * * *", // inverted range
		"*/0 * * * *", // zero step
		"a * * * *",   // non-numeric
		"? * * * *",   // unsupported glob
	}
	for _, expr := range bad {
		if _, err := Compile(expr); !errors.Is(err, ErrBadField) {
			t.Errorf("Compile(%q) = %v, want ErrBadField", expr, err)
		}
	}
}

func TestCompile_CountMatchesFieldProduct(t *testing.T) {
	t.Parallel()

	cases := []struct {
		expr string
		want int
	}{
		{"* * * * *", 1},
		{"0 * * * *", 1},
		{"0,30 * * * *", 2},
		{"0,30 8-10 * * *", 6},
		{"*/20 */6 1,15 * *", 3 * 4 * 2},
		{"1-3 1-2 1-2 1-2 1-2", 3 * 2 * 2 * 2 * 2},
	}
	for _, tc := range cases {
		s, err := Compile(tc.expr)
		if err != nil {
			t.Errorf("Compile(%q) failed: %v", tc.expr, err)
			continue
		}
		if got := len(s.Instants()); got != tc.want {
			t.Errorf("Compile(%q) yields %d instants, want %d", tc.expr, got, tc.want)
		}
	}
}

func TestCompile_DuplicatesCollapsed(t *testing.T) {
	t.Parallel()

	s, err := Compile("5,5,5 * * * *")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if got := len(s.Instants()); got != 1 {
		t.Errorf("duplicate list values should collapse, got %d instants", got)
	}
}
