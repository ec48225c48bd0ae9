package limiter

import (
	"math"
	"testing"
)

func TestClampIdempotent(t *testing.T) {
	cases := []float64{10, 30, -30, 0, 25, -25}
	for _, x := range cases {
		once, _ := Clamp(x, 25)
		twice, _ := Clamp(once, 25)
		if once != twice {
			t.Fatalf("clamp(clamp(%v)) = %v, want %v", x, twice, once)
		}
	}
}

func TestClampBasic(t *testing.T) {
	if v, clamped := Clamp(10, 25); v != 10 || clamped {
		t.Fatalf("got (%v, %v), want (10, false)", v, clamped)
	}
	if v, clamped := Clamp(30, 25); v != 25 || !clamped {
		t.Fatalf("got (%v, %v), want (25, true)", v, clamped)
	}
	if v, clamped := Clamp(-30, 25); v != -25 || !clamped {
		t.Fatalf("got (%v, %v), want (-25, true)", v, clamped)
	}
}

func TestClampInfinity(t *testing.T) {
	if v, clamped := Clamp(math.Inf(1), 25); v != 25 || !clamped {
		t.Fatalf("+Inf clamp = (%v, %v), want (25, true)", v, clamped)
	}
	if v, clamped := Clamp(math.Inf(-1), 25); v != -25 || !clamped {
		t.Fatalf("-Inf clamp = (%v, %v), want (-25, true)", v, clamped)
	}
}

func TestViolationCounter(t *testing.T) {
	l := New()
	l.Clamp(10, 25)
	l.Clamp(30, 25)
	l.Clamp(-30, 25)
	if got := l.Violations(); got != 2 {
		t.Fatalf("violations = %d, want 2", got)
	}
}

func TestSanitize(t *testing.T) {
	if v := Sanitize(math.NaN(), 25); v != 0 {
		t.Fatalf("NaN sanitize = %v, want 0", v)
	}
	if v := Sanitize(math.Inf(1), 25); v != 25 {
		t.Fatalf("+Inf sanitize = %v, want 25", v)
	}
	if v := Sanitize(math.Inf(-1), 25); v != -25 {
		t.Fatalf("-Inf sanitize = %v, want -25", v)
	}
	if v := Sanitize(12.5, 25); v != 12.5 {
		t.Fatalf("finite sanitize = %v, want unchanged", v)
	}
}
