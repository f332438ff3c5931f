package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-subtitler/internal/lang"
	"github.com/alnah/go-subtitler/internal/media"
	"github.com/alnah/go-subtitler/internal/pipeline"
	"github.com/alnah/go-subtitler/internal/transcribe"
)

// Pipeline flag defaults.
const (
	defaultSegment          = 600
	defaultOverlap          = 60
	defaultDeleteDuplicates = 3
	defaultTimeout          = 60 * time.Second
	defaultMaxRetries       = 0

	// minSegment keeps windows long enough for the overlap arbitration to
	// be meaningful.
	minSegment = 10
)

// pipelineFlags holds the flags shared by the transcribe and translate
// commands.
type pipelineFlags struct {
	output           string
	keepProgress     bool
	prompt           string
	segment          int
	overlap          int
	deleteDuplicates int
	reuse            bool
	timeout          time.Duration
	maxRetries       int
	parallel         int
	language         string
}

// register binds the shared flags to cmd. withLanguage adds the
// transcription-only language hint.
func (f *pipelineFlags) register(cmd *cobra.Command, withLanguage bool) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output path; a <stem>.progress directory and <stem>.srt file are created (default: same as input)")
	cmd.Flags().BoolVar(&f.keepProgress, "keep-progress", false, "Keep the progress directory after a successful run")
	cmd.Flags().StringVarP(&f.prompt, "prompt", "p", "", "Prompt providing context to the speech API")
	cmd.Flags().IntVarP(&f.segment, "segment", "s", defaultSegment, "Window length in seconds (min 10)")
	cmd.Flags().IntVar(&f.overlap, "overlap", defaultOverlap, "Overlap between windows in seconds")
	cmd.Flags().IntVar(&f.deleteDuplicates, "delete-duplicates", defaultDeleteDuplicates, "Drop runs of this many consecutive identical captions; 0 disables")
	cmd.Flags().BoolVar(&f.reuse, "reuse", false, "Reuse per-window artifacts already present on disk")
	cmd.Flags().DurationVar(&f.timeout, "timeout", defaultTimeout, "Per-request timeout")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", defaultMaxRetries, "Max retries per speech request")
	cmd.Flags().IntVar(&f.parallel, "parallel", 1, "Max windows clipped and transcribed concurrently (1-10)")
	if withLanguage {
		cmd.Flags().StringVarP(&f.language, "language", "l", "", "Audio language hint (ISO 639-1, e.g. en, fr)")
	}
}

// TranscribeCmd creates the transcribe command (transcription mode: captions
// in the audio's language, optional language hint).
func TranscribeCmd(env *Env) *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "transcribe <media-file>",
		Short: "Transcribe a media file into an SRT subtitle track",
		Long: `Transcribe a media file into a single SRT subtitle track.

The media is split into overlapping windows, each window is clipped to an
mp3 segment and sent to the speech API, and the per-window caption tracks
are merged back into one de-duplicated timeline. Per-window artifacts live
in a progress directory; rerun with --reuse to resume an interrupted run
without repeating completed work.`,
		Example: `  subtitler transcribe lecture.mp4
  subtitler transcribe talk.mkv -l fr -o talk
  subtitler transcribe long.mp4 --reuse --max-retries 3 --parallel 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, env, args[0], transcribe.ModeTranscriptions, flags)
		},
	}

	flags.register(cmd, true)
	return cmd
}

// TranslateCmd creates the translate command (translation mode: captions
// translated to English).
func TranslateCmd(env *Env) *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "translate <media-file>",
		Short: "Translate a media file into an English SRT subtitle track",
		Long: `Translate a media file into a single English SRT subtitle track.

Same pipeline as transcribe, using the speech API's translation endpoint.`,
		Example: `  subtitler translate film.mp4
  subtitler translate interview.mp3 --reuse -o interview-en`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, env, args[0], transcribe.ModeTranslations, flags)
		},
	}

	flags.register(cmd, false)
	return cmd
}

// runPipeline validates flags fail-fast, assembles the collaborators, and
// runs the pipeline.
// Validation order: file exists -> segment -> overlap -> threshold ->
// timeout -> language -> parallel -> API key.
func runPipeline(cmd *cobra.Command, env *Env, inputPath string, mode transcribe.Mode, flags pipelineFlags) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast, before any work) ===

	if _, err := os.Stat(inputPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	if flags.segment < minSegment {
		return fmt.Errorf("%w: got %d", ErrInvalidSegment, flags.segment)
	}
	if flags.overlap < 0 || flags.overlap >= flags.segment {
		return fmt.Errorf("%w: got overlap=%d segment=%d", ErrInvalidOverlap, flags.overlap, flags.segment)
	}
	if flags.deleteDuplicates == 1 || flags.deleteDuplicates < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidThreshold, flags.deleteDuplicates)
	}
	if flags.timeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTimeout, flags.timeout)
	}
	if err := lang.Validate(flags.language); err != nil {
		return err
	}
	parallel := clampParallel(flags.parallel)

	apiKey := env.Getenv(EnvAPIKey)
	if apiKey == "" {
		return fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvAPIKey)
	}

	// === SETUP ===

	progressDir, outputPath := derivePaths(inputPath, flags.output)

	ffprobePath, err := env.LookPath("ffprobe")
	if err != nil {
		return fmt.Errorf("%w: %v", media.ErrFFprobeNotFound, err)
	}
	ffmpegPath, err := env.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("%w: %v", media.ErrFFmpegNotFound, err)
	}

	prober, err := env.MediaFactory.NewProber(ffprobePath)
	if err != nil {
		return err
	}
	clipper, err := env.MediaFactory.NewClipper(ffmpegPath)
	if err != nil {
		return err
	}
	client := env.TranscriberFactory.NewClient(apiKey, env.Getenv(EnvAPIBase), flags.timeout, flags.maxRetries)

	p := pipeline.New(prober, clipper, client, pipeline.Config{
		Mode:             mode,
		ProgressDir:      progressDir,
		OutputPath:       outputPath,
		Segment:          flags.segment,
		Overlap:          flags.overlap,
		Prompt:           flags.prompt,
		DeleteDuplicates: flags.deleteDuplicates,
		Reuse:            flags.reuse,
		Parallel:         parallel,
		Language:         flags.language,
	}, pipeline.WithLogger(env.Logger))

	// === RUN ===

	if err := p.Run(ctx, inputPath); err != nil {
		return err
	}

	// Progress artifacts are only kept on demand; on failure the directory
	// survives untouched for a --reuse rerun.
	if !flags.keepProgress {
		if err := os.RemoveAll(progressDir); err != nil {
			fmt.Fprintf(env.Stderr, "Warning: failed to remove progress directory: %v\n", err)
		}
	}

	fmt.Fprintf(env.Stderr, "Done: %s\n", outputPath)
	return nil
}

// derivePaths computes the progress directory and final SRT path from the
// input and the optional output override. "talk.mp4" -> "talk.progress/",
// "talk.srt" next to the input (or next to output when given).
func derivePaths(inputPath, output string) (progressDir, outputPath string) {
	if output == "" {
		output = inputPath
	}
	dir := filepath.Dir(output)
	stem := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))
	return filepath.Join(dir, stem+".progress"), filepath.Join(dir, stem+".srt")
}

// clampParallel constrains parallel request count to [1, MaxRecommendedParallel].
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > transcribe.MaxRecommendedParallel {
		return transcribe.MaxRecommendedParallel
	}
	return n
}
