package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alnah/go-subtitler/internal/subtitle"
	"github.com/alnah/go-subtitler/internal/summarize"
)

// SummarizeCmd creates the summarize command.
func SummarizeCmd(env *Env) *cobra.Command {
	var (
		prompt        string
		promptPrev    string
		promptCurrent string
		promptReduce  string
		segment       int
		overlap       int
		timeout       = defaultTimeout
		maxRetries    int
	)

	cmd := &cobra.Command{
		Use:   "summarize <srt-file>",
		Short: "Summarize an SRT subtitle track",
		Long: `Summarize an SRT subtitle track with the chat API.

The track is sliced into overlapping time segments; each segment is
summarized with the previous summaries as context, and a final call merges
the per-segment summaries when there is more than one. The summary is
printed to stdout.`,
		Example: `  subtitler summarize lecture.srt
  subtitler summarize talk.srt --prompt "This is a conference talk about Go."`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]

			// === VALIDATION (fail-fast) ===

			if _, err := os.Stat(inputPath); err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
				}
				return fmt.Errorf("cannot access input file: %w", err)
			}
			if segment < minSegment {
				return fmt.Errorf("%w: got %d", ErrInvalidSegment, segment)
			}
			if overlap < 0 || overlap >= segment {
				return fmt.Errorf("%w: got overlap=%d segment=%d", ErrInvalidOverlap, overlap, segment)
			}
			if timeout <= 0 {
				return fmt.Errorf("%w: got %v", ErrInvalidTimeout, timeout)
			}

			apiKey := env.Getenv(EnvAPIKey)
			if apiKey == "" {
				return fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvAPIKey)
			}

			// === RUN ===

			f, err := os.Open(inputPath) // #nosec G304 -- user-specified input file
			if err != nil {
				return fmt.Errorf("cannot open input file: %w", err)
			}
			captions, err := subtitle.Parse(f)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", inputPath, err)
			}

			summarizer := env.SummarizerFactory.NewSummarizer(apiKey, env.Getenv(EnvAPIBase), timeout, maxRetries,
				func(phase string, current, total int) {
					if phase == "map" {
						fmt.Fprintf(env.Stderr, "Summarizing segment %d/%d...\n", current, total)
					} else {
						fmt.Fprintln(env.Stderr, "Merging segment summaries...")
					}
				})

			summary, err := summarizer.Summarize(cmd.Context(), captions, summarize.Options{
				Prompt:        prompt,
				PromptPrev:    promptPrev,
				PromptCurrent: promptCurrent,
				PromptReduce:  promptReduce,
				Segment:       segment,
				Overlap:       overlap,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", summarize.DefaultPrompt, "System prompt framing the summary task")
	cmd.Flags().StringVar(&promptPrev, "prompt-prev", summarize.DefaultPromptPrev, "Format for a previous segment summary (%d start, %d end, %s summary)")
	cmd.Flags().StringVar(&promptCurrent, "prompt-current", summarize.DefaultPromptCurrent, "Format for the current segment transcription (%d start, %d end, %s text)")
	cmd.Flags().StringVar(&promptReduce, "prompt-reduce", summarize.DefaultPromptReduce, "System prompt for merging segment summaries")
	cmd.Flags().IntVarP(&segment, "segment", "s", defaultSegment, "Slice length in seconds")
	cmd.Flags().IntVar(&overlap, "overlap", defaultOverlap, "Overlap between slices in seconds")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultTimeout, "Per-request timeout")
	cmd.Flags().IntVar(&maxRetries, "max-retries", defaultMaxRetries, "Max retries per chat request")

	return cmd
}
