// Package pipeline orchestrates the full subtitle run: plan overlapping
// windows over the media duration, materialize an audio segment per window,
// transcribe each segment, then reconcile, merge, and de-duplicate the
// per-window caption tracks into one SRT file.
//
// Every per-window artifact (clipped audio, caption track) lives in a
// progress directory named by the window's zero-padded second range. With
// the reuse policy on, an artifact already on disk is the signal that a
// window's work is done, so a rerun after a partial failure resumes from the
// first missing artifact and performs no redundant API calls.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-subtitler/internal/media"
	"github.com/alnah/go-subtitler/internal/subtitle"
	"github.com/alnah/go-subtitler/internal/transcribe"
	"github.com/alnah/go-subtitler/internal/window"
)

// Config holds the per-run parameters.
type Config struct {
	// Mode selects translation or transcription.
	Mode transcribe.Mode

	// ProgressDir holds per-window artifacts during the run.
	ProgressDir string

	// OutputPath is where the final merged SRT is written.
	OutputPath string

	// Segment is the window length in seconds.
	Segment int

	// Overlap is the overlap between consecutive windows in seconds.
	Overlap int

	// Prompt is passed to the transcription API for context.
	Prompt string

	// DeleteDuplicates is the duplicate-run threshold; 0 disables collapsing.
	DeleteDuplicates int

	// Reuse skips producing artifacts that already exist on disk.
	Reuse bool

	// Parallel bounds concurrent clip+transcribe work. Results are always
	// merged in window order regardless of completion order.
	Parallel int

	// Language is the audio language hint (transcription mode only).
	Language string
}

// Pipeline runs the segmentation, transcription, and merge flow.
type Pipeline struct {
	prober  media.Prober
	clipper media.Clipper
	client  transcribe.Client
	logger  *slog.Logger
	cfg     Config
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to a discarding logger so components
// stay silent unless a handle is injected.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Pipeline over the given collaborators.
func New(prober media.Prober, clipper media.Clipper, client transcribe.Client, cfg Config, opts ...Option) *Pipeline {
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}
	p := &Pipeline{
		prober:  prober,
		clipper: clipper,
		client:  client,
		logger:  slog.New(slog.DiscardHandler),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline for mediaPath. The final caption file is written
// only after every window has succeeded; on failure the progress directory
// keeps whatever artifacts were already produced so a rerun with reuse can
// resume.
func (p *Pipeline) Run(ctx context.Context, mediaPath string) error {
	duration, err := p.prober.Duration(ctx, mediaPath)
	if err != nil {
		return err
	}
	p.logger.Info("probed media duration", "path", mediaPath, "seconds", duration)

	windows, err := window.Plan(duration, p.cfg.Segment, p.cfg.Overlap)
	if err != nil {
		return err
	}
	p.logger.Info("planned windows", "count", len(windows), "segment", p.cfg.Segment, "overlap", p.cfg.Overlap)

	if err := os.MkdirAll(p.cfg.ProgressDir, 0750); err != nil { // #nosec G301 -- per-run progress dir
		return fmt.Errorf("cannot create progress directory: %w", err)
	}

	trackPaths, err := p.processWindows(ctx, mediaPath, windows)
	if err != nil {
		return err
	}

	merged, err := p.mergeTracks(windows, trackPaths)
	if err != nil {
		return err
	}

	final := subtitle.CollapseRuns(merged, p.cfg.DeleteDuplicates)
	if dropped := len(merged) - len(final); dropped > 0 {
		p.logger.Info("collapsed duplicate runs", "dropped", dropped, "threshold", p.cfg.DeleteDuplicates)
	}

	return p.writeOutput(final)
}

// processWindows produces the audio segment and caption track of every
// window and returns the track paths index-aligned with windows. Windows are
// processed with at most cfg.Parallel in flight; a slot in the result slice
// keeps consumption ordered however execution interleaves.
func (p *Pipeline) processWindows(ctx context.Context, mediaPath string, windows []window.Window) ([]string, error) {
	trackPaths := make([]string, len(windows))
	sem := make(chan struct{}, p.cfg.Parallel)

	g, ctx := errgroup.WithContext(ctx)
	for i, w := range windows {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			trackPath, err := p.processWindow(ctx, mediaPath, w)
			if err != nil {
				return fmt.Errorf("%s: %w", w, err)
			}
			trackPaths[i] = trackPath
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trackPaths, nil
}

// processWindow ensures one window's artifacts exist and returns the caption
// track path. With reuse on, an existing artifact is trusted as complete.
func (p *Pipeline) processWindow(ctx context.Context, mediaPath string, w window.Window) (string, error) {
	base := filepath.Join(p.cfg.ProgressDir, fmt.Sprintf("%05d-%05d", w.Start, w.End))
	audioPath := base + ".mp3"
	trackPath := base + ".srt"

	if p.cfg.Reuse && fileExists(audioPath) {
		p.logger.Info("reusing audio segment", "path", audioPath)
	} else {
		p.logger.Info("clipping audio segment", "path", audioPath, "start", w.Start, "end", w.End)
		if err := p.clipper.Clip(ctx, mediaPath, w.Start, w.End, audioPath); err != nil {
			return "", err
		}
	}

	if p.cfg.Reuse && fileExists(trackPath) {
		p.logger.Info("reusing caption track", "path", trackPath)
		return trackPath, nil
	}

	p.logger.Info("transcribing audio segment", "path", audioPath, "mode", p.cfg.Mode)
	text, err := p.client.Transcribe(ctx, audioPath, transcribe.Options{
		Mode:     p.cfg.Mode,
		Prompt:   p.cfg.Prompt,
		Language: p.cfg.Language,
	})
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(trackPath, []byte(text), 0644); err != nil { // #nosec G306 -- per-run artifact
		return "", fmt.Errorf("cannot write caption track: %w", err)
	}
	p.logger.Info("caption track saved", "path", trackPath)
	return trackPath, nil
}

// mergeTracks loads every window's caption track and merges them into one
// globally-timed, time-ordered timeline.
func (p *Pipeline) mergeTracks(windows []window.Window, trackPaths []string) ([]subtitle.Caption, error) {
	valid := window.Reconcile(windows)

	tracks := make([][]subtitle.Caption, len(windows))
	for i, trackPath := range trackPaths {
		data, err := os.ReadFile(trackPath) // #nosec G304 -- path built from progress dir
		if err != nil {
			return nil, fmt.Errorf("cannot read caption track: %w", err)
		}
		captions, err := subtitle.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", trackPath, err)
		}
		tracks[i] = captions
		p.logger.Info("merging caption track", "path", trackPath,
			"validStart", valid[i].Start, "validEnd", valid[i].End)
	}

	return subtitle.Merge(windows, valid, tracks), nil
}

// writeOutput serializes the final timeline to cfg.OutputPath.
// Overwrites any previous output so reruns stay idempotent.
func (p *Pipeline) writeOutput(captions []subtitle.Caption) error {
	var buf bytes.Buffer
	if err := subtitle.Write(&buf, captions); err != nil {
		return err
	}
	if err := os.WriteFile(p.cfg.OutputPath, buf.Bytes(), 0644); err != nil { // #nosec G306 -- user output file
		return fmt.Errorf("cannot write output: %w", err)
	}
	p.logger.Info("wrote merged captions", "path", p.cfg.OutputPath, "captions", len(captions))
	return nil
}

// fileExists reports whether a path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
