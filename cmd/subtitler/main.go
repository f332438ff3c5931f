// Command subtitler turns a long audio/video file into one SRT subtitle
// track by transcribing (or translating) overlapping windows of it through
// the Whisper speech API and stitching the results back together.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-subtitler/internal/apierr"
	"github.com/alnah/go-subtitler/internal/cli"
	"github.com/alnah/go-subtitler/internal/lang"
	"github.com/alnah/go-subtitler/internal/media"
	"github.com/alnah/go-subtitler/internal/subtitle"
	"github.com/alnah/go-subtitler/internal/summarize"
	"github.com/alnah/go-subtitler/internal/transcribe"
	"github.com/alnah/go-subtitler/internal/window"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes, one per error class.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitConfig     = 3
	ExitValidation = 4
	ExitTransport  = 5
	ExitMedia      = 6
	ExitData       = 7
	ExitInterrupt  = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation. An interrupt aborts in-flight work
	// immediately; per-window artifacts already on disk stay for a --reuse
	// rerun.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env := cli.DefaultEnv()

	rootCmd := &cobra.Command{
		Use:     "subtitler",
		Short:   "Transcribe, translate, and summarize long media files",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.TranscribeCmd(env))
	rootCmd.AddCommand(cli.TranslateCmd(env))
	rootCmd.AddCommand(cli.SummarizeCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes by class.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Interrupt.
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors: Cobra flag/arg parsing.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Configuration errors: missing credentials or media tools.
	if errors.Is(err, cli.ErrAPIKeyMissing) ||
		errors.Is(err, media.ErrFFmpegNotFound) || errors.Is(err, media.ErrFFprobeNotFound) {
		return ExitConfig
	}

	// Validation errors: invalid flag values or inputs.
	if errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, cli.ErrInvalidSegment) ||
		errors.Is(err, cli.ErrInvalidOverlap) || errors.Is(err, cli.ErrInvalidThreshold) ||
		errors.Is(err, cli.ErrInvalidTimeout) || errors.Is(err, lang.ErrInvalid) ||
		errors.Is(err, window.ErrInvalidLength) || errors.Is(err, window.ErrInvalidOverlap) {
		return ExitValidation
	}

	// Transport errors: the retry budget was exhausted or the API refused us.
	if errors.Is(err, apierr.ErrTransport) || errors.Is(err, apierr.ErrRateLimit) ||
		errors.Is(err, apierr.ErrTimeout) || errors.Is(err, apierr.ErrQuotaExceeded) ||
		errors.Is(err, apierr.ErrAuthFailed) || errors.Is(err, apierr.ErrBadRequest) {
		return ExitTransport
	}

	// Media tool errors: probe or clip subprocess failure.
	if errors.Is(err, media.ErrProbeFailed) || errors.Is(err, media.ErrClipFailed) {
		return ExitMedia
	}

	// Data errors: malformed caption tracks and invalid modes.
	if errors.Is(err, subtitle.ErrMalformed) || errors.Is(err, transcribe.ErrInvalidMode) ||
		errors.Is(err, summarize.ErrEmptyTrack) || errors.Is(err, summarize.ErrEmptyResponse) {
		return ExitData
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate
// Cobra usage errors. Cobra doesn't expose typed errors, so string matching
// is the only reliable approach; these patterns are stable across versions.
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"unknown command",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
	"requires at least",
	"requires at most",
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
