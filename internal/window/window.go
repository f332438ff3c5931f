// Package window plans overlapping time windows over a media duration and
// arbitrates ownership of the overlap regions between adjacent windows.
//
// A long recording is transcribed in fixed-length windows that overlap so
// that no speech is lost at a cut point. Adjacent windows then disagree about
// the captions inside their shared overlap (the transcription service sees
// different acoustic context in each), so each window is assigned a valid
// sub-range: the half of every overlap closest to it. Captions whose start
// falls outside the valid range are discarded during the merge.
package window

import (
	"errors"
	"fmt"
)

// Sentinel errors for invalid planning parameters.
var (
	// ErrInvalidLength indicates a non-positive window length.
	ErrInvalidLength = errors.New("window length must be positive")

	// ErrInvalidOverlap indicates an overlap outside [0, length).
	ErrInvalidOverlap = errors.New("overlap must be >= 0 and < window length")
)

// Window is a half-open [Start, End) interval of the source media in whole
// seconds. Windows are immutable once planned.
type Window struct {
	Index int
	Start int
	End   int
}

// Length returns the window length in seconds.
func (w Window) Length() int {
	return w.End - w.Start
}

// String returns a human-readable representation for logging.
func (w Window) String() string {
	return fmt.Sprintf("window %d: %05d-%05d", w.Index, w.Start, w.End)
}

// ValidRange is the sub-interval of a window's global time whose captions are
// authoritative. Consecutive valid ranges partition the planned span with no
// gap and no overlap.
type ValidRange struct {
	Start int
	End   int
}

// Contains reports whether a global start second falls inside the range.
// The range is half-open: Start is included, End is not.
func (v ValidRange) Contains(second float64) bool {
	return float64(v.Start) <= second && second < float64(v.End)
}

// Plan computes the ordered sequence of windows covering [0, duration).
//
// Each window is length seconds long and starts length-overlap seconds after
// the previous one. When the remaining tail is within one second of the
// window length, the final window is snapped to floor(duration)+1 instead of
// emitting a near-empty trailing window. A duration shorter than length
// yields a single window covering [0, floor(duration)+1).
//
// length must be positive and overlap must satisfy 0 <= overlap < length;
// violating either is a configuration error (the loop would not terminate).
func Plan(duration float64, length, overlap int) ([]Window, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, length)
	}
	if overlap < 0 || overlap >= length {
		return nil, fmt.Errorf("%w: got overlap=%d length=%d", ErrInvalidOverlap, overlap, length)
	}

	var windows []Window
	start := 0
	for {
		end := start + length
		if float64(end)+1 > duration {
			// Snap the final window past the true end; the extra second
			// guards against fractional durations.
			end = int(duration) + 1
		}
		windows = append(windows, Window{Index: len(windows), Start: start, End: end})
		if float64(end) >= duration {
			break
		}
		start += length - overlap
	}

	return windows, nil
}

// Reconcile computes the valid range of every window, index-aligned with the
// input. The cut point between two adjacent windows is the midpoint of the
// earlier window's end and the later window's start; integer floor division
// deterministically assigns the midpoint second to the earlier window so no
// second is owned twice. The first range starts at the first window's start,
// the last ends at the last window's end.
func Reconcile(windows []Window) []ValidRange {
	valid := make([]ValidRange, len(windows))
	for i, w := range windows {
		v := ValidRange{Start: w.Start, End: w.End}
		if i > 0 {
			v.Start = (w.Start + windows[i-1].End) / 2
		}
		if i < len(windows)-1 {
			v.End = (w.End + windows[i+1].Start) / 2
		}
		valid[i] = v
	}
	return valid
}
