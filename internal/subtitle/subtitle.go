// Package subtitle reads, writes, and reshapes SRT caption tracks.
//
// The transcription service returns one caption track per window with
// timestamps local to that window. This package shifts those tracks back
// onto the global timeline, keeps only the captions each window is
// authoritative for, and collapses runs of identical captions produced by
// transcribing silence or noise.
package subtitle

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/asticode/go-astisub"

	"github.com/alnah/go-subtitler/internal/window"
)

// Caption is one timed subtitle entry. StartAt and EndAt carry millisecond
// precision; Text holds the entry's lines joined with newlines.
type Caption struct {
	StartAt time.Duration
	EndAt   time.Duration
	Text    string
}

// Shift moves both timestamps by d without touching sub-second precision.
func (c Caption) Shift(d time.Duration) Caption {
	c.StartAt += d
	c.EndAt += d
	return c
}

// Parse decodes an SRT caption track.
// Returns ErrMalformed (wrapped) if the input is not valid SRT.
func Parse(r io.Reader) ([]Caption, error) {
	subs, err := astisub.ReadFromSRT(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	captions := make([]Caption, 0, len(subs.Items))
	for _, item := range subs.Items {
		lines := make([]string, 0, len(item.Lines))
		for _, line := range item.Lines {
			lines = append(lines, line.String())
		}
		captions = append(captions, Caption{
			StartAt: item.StartAt,
			EndAt:   item.EndAt,
			Text:    strings.Join(lines, "\n"),
		})
	}
	return captions, nil
}

// Write serializes captions as SRT, re-indexed from 1 in slice order.
// An empty timeline writes an empty track, not an error: a run whose every
// caption was collapsed as noise still completes.
func Write(w io.Writer, captions []Caption) error {
	if len(captions) == 0 {
		return nil
	}
	subs := astisub.NewSubtitles()
	for i, c := range captions {
		item := &astisub.Item{
			Index:   i + 1,
			StartAt: c.StartAt,
			EndAt:   c.EndAt,
		}
		for line := range strings.SplitSeq(c.Text, "\n") {
			item.Lines = append(item.Lines, astisub.Line{
				Items: []astisub.LineItem{{Text: line}},
			})
		}
		subs.Items = append(subs.Items, item)
	}
	if err := subs.WriteToSRT(w); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// Merge combines per-window caption tracks into one global, time-ordered
// timeline. Tracks are given in window-local time and must be index-aligned
// with windows and valid ranges.
//
// For each window in order, a caption survives when its global start second
// (local start plus the window's offset) falls inside the window's valid
// range; survivors are shifted to global time and appended. Windows are
// merged start-ascending and each valid range lies entirely after the
// previous one, so the output is time-ordered without sorting.
func Merge(windows []window.Window, valid []window.ValidRange, tracks [][]Caption) []Caption {
	var merged []Caption
	for i, w := range windows {
		offset := time.Duration(w.Start) * time.Second
		for _, c := range tracks[i] {
			globalStart := c.StartAt.Seconds() + float64(w.Start)
			if !valid[i].Contains(globalStart) {
				continue
			}
			merged = append(merged, c.Shift(offset))
		}
	}
	return merged
}

// CollapseRuns drops maximal runs of consecutive captions with identical
// text when the run length reaches threshold. Long runs of one caption are
// an artifact of transcribing silence or noise across many windows; runs
// shorter than threshold are kept verbatim. threshold <= 0 disables
// collapsing.
//
// The comparison looks at text only, never timing: a short burst of
// genuinely repeated speech that transcribes to identical text is
// indistinguishable from a silence artifact and is dropped with it. That is
// a known lossy heuristic, kept on purpose.
func CollapseRuns(captions []Caption, threshold int) []Caption {
	if threshold <= 0 {
		return captions
	}

	kept := make([]Caption, 0, len(captions))
	for i := 0; i < len(captions); {
		j := i + 1
		for j < len(captions) && captions[i].Text == captions[j].Text {
			j++
		}
		if j-i < threshold {
			kept = append(kept, captions[i:j]...)
		}
		i = j
	}
	return kept
}
