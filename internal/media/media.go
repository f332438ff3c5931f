// Package media shells out to ffprobe and ffmpeg for the two media
// operations the pipeline needs: probing a file's duration and cutting a
// window of it into an audio segment. Both tools are external collaborators;
// any non-zero exit is fatal to the run.
package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Compile-time interface implementation checks.
var (
	_ Prober  = (*FFprobeProber)(nil)
	_ Clipper = (*FFmpegClipper)(nil)
)

// Prober reports the duration of a media file in seconds.
type Prober interface {
	Duration(ctx context.Context, mediaPath string) (float64, error)
}

// Clipper extracts the [start, end) second range of a media file into an
// audio segment at outputPath.
type Clipper interface {
	Clip(ctx context.Context, mediaPath string, start, end int, outputPath string) error
}

// FFprobeProber probes media duration using ffprobe.
type FFprobeProber struct {
	ffprobePath string
	cmd         commandRunner
}

// ProberOption configures an FFprobeProber.
type ProberOption func(*FFprobeProber)

// WithProberCommandRunner sets a custom command runner (for testing).
func WithProberCommandRunner(r commandRunner) ProberOption {
	return func(p *FFprobeProber) { p.cmd = r }
}

// NewFFprobeProber creates a prober that invokes the given ffprobe binary.
func NewFFprobeProber(ffprobePath string, opts ...ProberOption) (*FFprobeProber, error) {
	if ffprobePath == "" {
		return nil, fmt.Errorf("ffprobePath cannot be empty: %w", ErrFFprobeNotFound)
	}
	p := &FFprobeProber{
		ffprobePath: ffprobePath,
		cmd:         osCommandRunner{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Duration returns the media duration in seconds as reported by ffprobe.
func (p *FFprobeProber) Duration(ctx context.Context, mediaPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	}

	output, err := p.cmd.CombinedOutput(ctx, p.ffprobePath, args)
	if err != nil {
		return 0, fmt.Errorf("%w: %v\nOutput: %s", ErrProbeFailed, err, string(output))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: cannot parse duration %q: %v", ErrProbeFailed, strings.TrimSpace(string(output)), err)
	}
	return duration, nil
}

// FFmpegClipper cuts audio segments using ffmpeg.
type FFmpegClipper struct {
	ffmpegPath string
	cmd        commandRunner
}

// ClipperOption configures an FFmpegClipper.
type ClipperOption func(*FFmpegClipper)

// WithClipperCommandRunner sets a custom command runner (for testing).
func WithClipperCommandRunner(r commandRunner) ClipperOption {
	return func(c *FFmpegClipper) { c.cmd = r }
}

// NewFFmpegClipper creates a clipper that invokes the given ffmpeg binary.
func NewFFmpegClipper(ffmpegPath string, opts ...ClipperOption) (*FFmpegClipper, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ErrFFmpegNotFound)
	}
	c := &FFmpegClipper{
		ffmpegPath: ffmpegPath,
		cmd:        osCommandRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Clip extracts [start, end) seconds of mediaPath into an mp3 at outputPath.
// Encodes at a constant 192kbit/s so segment size is predictable for the
// transcription API's upload limit.
func (c *FFmpegClipper) Clip(ctx context.Context, mediaPath string, start, end int, outputPath string) error {
	args := []string{
		"-v", "error",
		"-y",
		"-i", mediaPath,
		"-ss", strconv.Itoa(start),
		"-to", strconv.Itoa(end),
		"-ab", "192k",
		"-f", "mp3",
		outputPath,
	}

	output, err := c.cmd.CombinedOutput(ctx, c.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: segment %d-%d: %v\nOutput: %s", ErrClipFailed, start, end, err, string(output))
	}
	return nil
}
