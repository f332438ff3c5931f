package window_test

import (
	"errors"
	"testing"

	"github.com/alnah/go-subtitler/internal/window"
)

func TestPlan(t *testing.T) {
	t.Parallel()

	t.Run("two windows with snapped tail", func(t *testing.T) {
		t.Parallel()

		windows, err := window.Plan(1000, 600, 60)
		if err != nil {
			t.Fatalf("Plan() error = %v, want nil", err)
		}

		want := []window.Window{
			{Index: 0, Start: 0, End: 600},
			{Index: 1, Start: 540, End: 1001},
		}
		assertWindows(t, windows, want)
	})

	t.Run("duration shorter than length yields one window", func(t *testing.T) {
		t.Parallel()

		windows, err := window.Plan(42.7, 600, 60)
		if err != nil {
			t.Fatalf("Plan() error = %v, want nil", err)
		}

		assertWindows(t, windows, []window.Window{{Index: 0, Start: 0, End: 43}})
	})

	t.Run("duration exactly one window length", func(t *testing.T) {
		t.Parallel()

		windows, err := window.Plan(600, 600, 60)
		if err != nil {
			t.Fatalf("Plan() error = %v, want nil", err)
		}

		assertWindows(t, windows, []window.Window{{Index: 0, Start: 0, End: 601}})
	})

	t.Run("fractional duration snaps past the end", func(t *testing.T) {
		t.Parallel()

		windows, err := window.Plan(1250.3, 600, 60)
		if err != nil {
			t.Fatalf("Plan() error = %v, want nil", err)
		}

		want := []window.Window{
			{Index: 0, Start: 0, End: 600},
			{Index: 1, Start: 540, End: 1140},
			{Index: 2, Start: 1080, End: 1251},
		}
		assertWindows(t, windows, want)
	})

	t.Run("zero duration yields one window", func(t *testing.T) {
		t.Parallel()

		windows, err := window.Plan(0, 600, 60)
		if err != nil {
			t.Fatalf("Plan() error = %v, want nil", err)
		}

		assertWindows(t, windows, []window.Window{{Index: 0, Start: 0, End: 1}})
	})

	t.Run("zero overlap produces adjacent windows", func(t *testing.T) {
		t.Parallel()

		windows, err := window.Plan(90, 30, 0)
		if err != nil {
			t.Fatalf("Plan() error = %v, want nil", err)
		}

		for i := 1; i < len(windows); i++ {
			if windows[i].Start != windows[i-1].End {
				t.Errorf("window %d starts at %d, want %d (previous end)",
					i, windows[i].Start, windows[i-1].End)
			}
		}
	})

	t.Run("non-positive length", func(t *testing.T) {
		t.Parallel()

		for _, length := range []int{0, -5} {
			if _, err := window.Plan(1000, length, 0); !errors.Is(err, window.ErrInvalidLength) {
				t.Errorf("Plan(length=%d) error = %v, want ErrInvalidLength", length, err)
			}
		}
	})

	t.Run("overlap out of range", func(t *testing.T) {
		t.Parallel()

		for _, overlap := range []int{-1, 600, 700} {
			if _, err := window.Plan(1000, 600, overlap); !errors.Is(err, window.ErrInvalidOverlap) {
				t.Errorf("Plan(overlap=%d) error = %v, want ErrInvalidOverlap", overlap, err)
			}
		}
	})
}

func TestPlanCoverage(t *testing.T) {
	t.Parallel()

	// Every planned span must cover the whole duration with no gap between
	// consecutive windows.
	durations := []float64{9.5, 60, 599, 600, 601, 1000, 3599.9, 7200}

	for _, duration := range durations {
		windows, err := window.Plan(duration, 600, 60)
		if err != nil {
			t.Fatalf("Plan(%v) error = %v, want nil", duration, err)
		}

		if windows[0].Start != 0 {
			t.Errorf("Plan(%v): first window starts at %d, want 0", duration, windows[0].Start)
		}
		last := windows[len(windows)-1]
		if float64(last.End) < duration {
			t.Errorf("Plan(%v): last window ends at %d, before the duration", duration, last.End)
		}
		for i := 1; i < len(windows); i++ {
			if windows[i].Start > windows[i-1].End {
				t.Errorf("Plan(%v): gap between window %d and %d", duration, i-1, i)
			}
			if windows[i].Index != i {
				t.Errorf("Plan(%v): window %d has index %d", duration, i, windows[i].Index)
			}
		}
	}
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	t.Run("two windows split the overlap at its midpoint", func(t *testing.T) {
		t.Parallel()

		windows := []window.Window{
			{Index: 0, Start: 0, End: 600},
			{Index: 1, Start: 540, End: 1001},
		}

		valid := window.Reconcile(windows)

		want := []window.ValidRange{
			{Start: 0, End: 570},
			{Start: 570, End: 1001},
		}
		assertRanges(t, valid, want)
	})

	t.Run("single window keeps its full span", func(t *testing.T) {
		t.Parallel()

		valid := window.Reconcile([]window.Window{{Index: 0, Start: 0, End: 43}})

		assertRanges(t, valid, []window.ValidRange{{Start: 0, End: 43}})
	})

	t.Run("odd midpoint floors to the earlier window", func(t *testing.T) {
		t.Parallel()

		windows := []window.Window{
			{Index: 0, Start: 0, End: 10},
			{Index: 1, Start: 7, End: 20},
		}

		valid := window.Reconcile(windows)

		// (7+10)/2 = 8 by integer floor division.
		assertRanges(t, valid, []window.ValidRange{
			{Start: 0, End: 8},
			{Start: 8, End: 20},
		})
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		if got := window.Reconcile(nil); len(got) != 0 {
			t.Errorf("Reconcile(nil) = %v, want empty", got)
		}
	})
}

func TestReconcilePartition(t *testing.T) {
	t.Parallel()

	// Valid ranges must partition the planned span: contiguous, no gap, no
	// double ownership, first and last pinned to the span's edges.
	durations := []float64{100, 1000, 1250.3, 3600}

	for _, duration := range durations {
		windows, err := window.Plan(duration, 600, 60)
		if err != nil {
			t.Fatalf("Plan(%v) error = %v, want nil", duration, err)
		}

		valid := window.Reconcile(windows)

		if len(valid) != len(windows) {
			t.Fatalf("Plan(%v): got %d ranges for %d windows", duration, len(valid), len(windows))
		}
		if valid[0].Start != windows[0].Start {
			t.Errorf("Plan(%v): first range starts at %d, want %d",
				duration, valid[0].Start, windows[0].Start)
		}
		last := len(valid) - 1
		if valid[last].End != windows[last].End {
			t.Errorf("Plan(%v): last range ends at %d, want %d",
				duration, valid[last].End, windows[last].End)
		}
		for i := 1; i < len(valid); i++ {
			if valid[i].Start != valid[i-1].End {
				t.Errorf("Plan(%v): range %d starts at %d, previous ends at %d",
					duration, i, valid[i].Start, valid[i-1].End)
			}
		}
	}
}

func TestValidRangeContains(t *testing.T) {
	t.Parallel()

	v := window.ValidRange{Start: 10, End: 20}

	tests := []struct {
		name   string
		second float64
		want   bool
	}{
		{"below start", 9.9, false},
		{"at start", 10, true},
		{"inside", 15.5, true},
		{"just before end", 19.999, true},
		{"at end", 20, false},
		{"above end", 25, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := v.Contains(tt.second); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.second, got, tt.want)
			}
		})
	}
}

func TestWindowString(t *testing.T) {
	t.Parallel()

	w := window.Window{Index: 2, Start: 540, End: 1001}
	if got, want := w.String(), "window 2: 00540-01001"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func assertWindows(t *testing.T, got, want []window.Window) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d windows %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("window %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func assertRanges(t *testing.T, got, want []window.ValidRange) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d ranges %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("range %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
