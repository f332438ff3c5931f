// Package transcribe sends audio segments to the Whisper speech API and
// returns the response as SRT caption-track text. Requests are wrapped in
// bounded exponential-backoff retry; only transient failures retry.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-subtitler/internal/apierr"
	"github.com/alnah/go-subtitler/internal/lang"
)

// ModelWhisper1 is the speech model used for both modes.
const ModelWhisper1 = openai.Whisper1

// MaxRecommendedParallel is the recommended upper limit for concurrent API
// requests. Higher values may trigger rate limiting.
const MaxRecommendedParallel = 10

// Mode selects the audio endpoint: translation to English or transcription
// in the source language.
type Mode string

// Valid modes, named after the API paths they select.
const (
	ModeTranslations   Mode = "translations"
	ModeTranscriptions Mode = "transcriptions"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTranslations, ModeTranscriptions:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidMode, s, ModeTranslations, ModeTranscriptions)
	}
}

// Options configures a transcription request.
type Options struct {
	// Mode selects translation or transcription.
	Mode Mode

	// Prompt provides context to improve accuracy: domain vocabulary,
	// acronyms, expected content.
	Prompt string

	// Language is the audio language hint (ISO 639-1).
	// Only used in transcription mode; empty means auto-detect.
	Language string
}

// Client converts an audio segment into SRT caption-track text.
type Client interface {
	// Transcribe sends the audio file at audioPath and returns the SRT text
	// for that segment, with timestamps local to the segment.
	Transcribe(ctx context.Context, audioPath string, opts Options) (string, error)
}

// audioAPI is the subset of the OpenAI client used here.
// *openai.Client implements it implicitly; tests inject mocks.
type audioAPI interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
	CreateTranslation(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Client   = (*OpenAIClient)(nil)
	_ audioAPI = (*openai.Client)(nil)
)

// OpenAIClient transcribes audio using the OpenAI speech API with automatic
// retries for transient errors.
type OpenAIClient struct {
	client     audioAPI
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// ClientOption configures an OpenAIClient.
type ClientOption func(*OpenAIClient)

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *OpenAIClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) ClientOption {
	return func(c *OpenAIClient) {
		if base > 0 {
			c.baseDelay = base
		}
		if max > 0 {
			c.maxDelay = max
		}
	}
}

// NewOpenAIClient creates an OpenAIClient around an injected API client.
// By default no retries happen; enable them with WithMaxRetries.
func NewOpenAIClient(client audioAPI, opts ...ClientOption) *OpenAIClient {
	c := &OpenAIClient{
		client:     client,
		maxRetries: 0,
		baseDelay:  apierr.DefaultBaseDelay,
		maxDelay:   apierr.DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe sends the audio segment and returns the SRT response text.
// The file is reopened on every attempt, so a retry never resumes from a
// half-consumed stream.
func (c *OpenAIClient) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return "", err
	}

	req := openai.AudioRequest{
		Model:    ModelWhisper1,
		FilePath: audioPath,
		Prompt:   opts.Prompt,
		Format:   openai.AudioResponseFormatSRT,
	}
	if opts.Mode == ModeTranscriptions {
		// The API only accepts ISO 639-1 base codes.
		req.Language = lang.BaseCode(opts.Language)
	}

	cfg := apierr.RetryConfig{
		MaxRetries: c.maxRetries,
		BaseDelay:  c.baseDelay,
		MaxDelay:   c.maxDelay,
	}

	return apierr.RetryWithBackoff(ctx, cfg, func() (string, error) {
		var resp openai.AudioResponse
		var err error
		switch opts.Mode {
		case ModeTranslations:
			resp, err = c.client.CreateTranslation(ctx, req)
		default:
			resp, err = c.client.CreateTranscription(ctx, req)
		}
		if err != nil {
			return "", classifyError(err)
		}
		return resp.Text, nil
	}, apierr.IsRetryable)
}

// classifyError maps OpenAI API errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			// A quota-exceeded 429 is a billing issue, not a transient
			// condition; retrying cannot help.
			if containsAny(apiErr.Message, "quota", "billing") {
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

	// Connection resets, DNS failures and friends surface as plain errors
	// from the HTTP client.
	return fmt.Errorf("%v: %w", err, apierr.ErrTransport)
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
