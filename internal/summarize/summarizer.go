// Package summarize produces a prose summary of a merged caption track with
// a map-reduce over chat completions: the track is sliced into overlapping
// time segments, each segment is summarized with the previous summaries as
// context, and a reduce call merges the per-segment summaries when there is
// more than one.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-subtitler/internal/apierr"
	"github.com/alnah/go-subtitler/internal/subtitle"
)

// Default prompts. PromptPrev and PromptCurrent are fmt format strings
// receiving (start seconds, end seconds, text).
const (
	DefaultPrompt = "Your task is to write a summary of a video. " +
		"A transcription of the video will be given by the user."
	DefaultPromptPrev = "Here is the summary of the video from %d seconds " +
		"to %d seconds:\n\n%s"
	DefaultPromptCurrent = "Here is the transcription of the video from %d seconds " +
		"to %d seconds. Please write a summary of this clip:\n\n%s"
	DefaultPromptReduce = "Please write a summary of the full video."
)

// Chat model configuration.
const (
	defaultChatModel   = openai.GPT3Dot5Turbo
	defaultTemperature = 0.5
)

// SegmentSummary is the summary of one time segment of the track.
type SegmentSummary struct {
	Start   int
	End     int
	Summary string
}

// Options configures a summarization run.
type Options struct {
	// Prompt is the system prompt framing the task.
	Prompt string

	// PromptPrev formats a previous segment's summary as context.
	PromptPrev string

	// PromptCurrent formats the segment transcription being summarized.
	PromptCurrent string

	// PromptReduce is the system prompt for merging segment summaries.
	PromptReduce string

	// Segment is the slice length in seconds.
	Segment int

	// Overlap is the overlap between consecutive slices in seconds.
	Overlap int
}

// withDefaults fills empty prompts with the package defaults.
func (o Options) withDefaults() Options {
	if o.Prompt == "" {
		o.Prompt = DefaultPrompt
	}
	if o.PromptPrev == "" {
		o.PromptPrev = DefaultPromptPrev
	}
	if o.PromptCurrent == "" {
		o.PromptCurrent = DefaultPromptCurrent
	}
	if o.PromptReduce == "" {
		o.PromptReduce = DefaultPromptReduce
	}
	return o
}

// Summarizer turns a caption track into a single prose summary.
type Summarizer interface {
	Summarize(ctx context.Context, captions []subtitle.Caption, opts Options) (string, error)
}

// chatAPI is the subset of the OpenAI client used here.
// *openai.Client implements it implicitly; tests inject mocks.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Summarizer = (*ChatSummarizer)(nil)
	_ chatAPI    = (*openai.Client)(nil)
)

// ChatSummarizer summarizes via the chat completion API with automatic
// retries for transient errors.
type ChatSummarizer struct {
	client     chatAPI
	model      string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	onProgress func(phase string, current, total int)
}

// SummarizerOption configures a ChatSummarizer.
type SummarizerOption func(*ChatSummarizer)

// WithModel sets the chat model.
func WithModel(model string) SummarizerOption {
	return func(s *ChatSummarizer) {
		if model != "" {
			s.model = model
		}
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) SummarizerOption {
	return func(s *ChatSummarizer) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) SummarizerOption {
	return func(s *ChatSummarizer) {
		if base > 0 {
			s.baseDelay = base
		}
		if max > 0 {
			s.maxDelay = max
		}
	}
}

// WithProgress sets a progress callback. phase is "map" or "reduce".
func WithProgress(fn func(phase string, current, total int)) SummarizerOption {
	return func(s *ChatSummarizer) {
		s.onProgress = fn
	}
}

// NewChatSummarizer creates a ChatSummarizer around an injected API client.
func NewChatSummarizer(client chatAPI, opts ...SummarizerOption) *ChatSummarizer {
	s := &ChatSummarizer{
		client:     client,
		model:      defaultChatModel,
		maxRetries: 0,
		baseDelay:  apierr.DefaultBaseDelay,
		maxDelay:   apierr.DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize runs the map phase over overlapping time slices of the track,
// then a reduce call when more than one slice was summarized.
func (s *ChatSummarizer) Summarize(ctx context.Context, captions []subtitle.Caption, opts Options) (string, error) {
	if len(captions) == 0 {
		return "", ErrEmptyTrack
	}
	if opts.Segment <= 0 || opts.Overlap < 0 || opts.Overlap >= opts.Segment {
		return "", fmt.Errorf("invalid slicing: segment=%d overlap=%d", opts.Segment, opts.Overlap)
	}
	opts = opts.withDefaults()

	summaries, err := s.mapSegments(ctx, captions, opts)
	if err != nil {
		return "", err
	}
	if len(summaries) == 1 {
		return summaries[0].Summary, nil
	}
	return s.reduce(ctx, summaries, opts)
}

// mapSegments summarizes each overlapping time slice in order, feeding every
// call the summaries produced so far.
func (s *ChatSummarizer) mapSegments(ctx context.Context, captions []subtitle.Caption, opts Options) ([]SegmentSummary, error) {
	duration := int(captions[len(captions)-1].EndAt.Seconds()) + 1

	total := segmentCount(duration, opts.Segment, opts.Overlap)
	var summaries []SegmentSummary
	for start := 0; start < duration; start += opts.Segment - opts.Overlap {
		end := min(start+opts.Segment, duration)

		if s.onProgress != nil {
			s.onProgress("map", len(summaries)+1, total)
		}

		transcription := sliceText(captions, start, end)
		summary, err := s.summarizeSegment(ctx, start, end, transcription, summaries, opts)
		if err != nil {
			return nil, fmt.Errorf("segment %d-%d: %w", start, end, err)
		}
		summaries = append(summaries, SegmentSummary{Start: start, End: end, Summary: summary})
	}
	return summaries, nil
}

// summarizeSegment summarizes one slice with all previous summaries as context.
func (s *ChatSummarizer) summarizeSegment(ctx context.Context, start, end int, transcription string, prev []SegmentSummary, opts Options) (string, error) {
	parts := make([]string, 0, len(prev)+1)
	for _, p := range prev {
		parts = append(parts, fmt.Sprintf(opts.PromptPrev, p.Start, p.End, p.Summary))
	}
	parts = append(parts, fmt.Sprintf(opts.PromptCurrent, start, end, transcription))

	return s.chat(ctx, opts.Prompt, strings.Join(parts, "\n\n\n"))
}

// reduce merges all segment summaries into one.
func (s *ChatSummarizer) reduce(ctx context.Context, summaries []SegmentSummary, opts Options) (string, error) {
	if s.onProgress != nil {
		s.onProgress("reduce", 1, 1)
	}

	parts := make([]string, 0, len(summaries))
	for _, p := range summaries {
		parts = append(parts, fmt.Sprintf(opts.PromptPrev, p.Start, p.End, p.Summary))
	}
	return s.chat(ctx, opts.PromptReduce, strings.Join(parts, "\n\n\n"))
}

// chat executes one chat completion with retry.
func (s *ChatSummarizer) chat(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: defaultTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	cfg := apierr.RetryConfig{
		MaxRetries: s.maxRetries,
		BaseDelay:  s.baseDelay,
		MaxDelay:   s.maxDelay,
	}

	return apierr.RetryWithBackoff(ctx, cfg, func() (string, error) {
		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", classifyError(err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	}, apierr.IsRetryable)
}

// sliceText joins the text of captions fully inside (start, end) seconds.
func sliceText(captions []subtitle.Caption, start, end int) string {
	startAt := time.Duration(start) * time.Second
	endAt := time.Duration(end) * time.Second

	var lines []string
	for _, c := range captions {
		if c.StartAt > startAt && c.EndAt < endAt {
			lines = append(lines, c.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// segmentCount returns how many map slices cover duration.
func segmentCount(duration, segment, overlap int) int {
	count := 0
	for start := 0; start < duration; start += segment - overlap {
		count++
	}
	return count
}

// classifyError maps chat API errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			if strings.Contains(apiErr.Message, "quota") || strings.Contains(apiErr.Message, "billing") {
				return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTransport)
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%v: %w", err, apierr.ErrTransport)
}
