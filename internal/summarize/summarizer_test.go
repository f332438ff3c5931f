package summarize_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-subtitler/internal/apierr"
	"github.com/alnah/go-subtitler/internal/subtitle"
	"github.com/alnah/go-subtitler/internal/summarize"
)

// mockChatAPI records every request and replays scripted responses.
type mockChatAPI struct {
	requests []openai.ChatCompletionRequest
	respond  func(call int) (openai.ChatCompletionResponse, error)
}

func (m *mockChatAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	return m.respond(len(m.requests))
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

// twoSegmentTrack spans 71 seconds; with segment 60 and overlap 10 it maps
// to two slices, (0, 60) and (50, 71).
func twoSegmentTrack() []subtitle.Caption {
	return []subtitle.Caption{
		{StartAt: 5 * time.Second, EndAt: 10 * time.Second, Text: "alpha"},
		{StartAt: 65 * time.Second, EndAt: 70 * time.Second, Text: "beta"},
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	t.Run("single segment skips the reduce call", func(t *testing.T) {
		t.Parallel()

		mock := &mockChatAPI{respond: func(int) (openai.ChatCompletionResponse, error) {
			return chatResponse("the summary"), nil
		}}
		s := summarize.NewChatSummarizer(mock)

		captions := []subtitle.Caption{
			{StartAt: 5 * time.Second, EndAt: 10 * time.Second, Text: "alpha"},
		}
		got, err := s.Summarize(t.Context(), captions, summarize.Options{Segment: 60, Overlap: 10})
		if err != nil {
			t.Fatalf("Summarize() error = %v, want nil", err)
		}
		if got != "the summary" {
			t.Errorf("Summarize() = %q, want %q", got, "the summary")
		}
		if len(mock.requests) != 1 {
			t.Fatalf("API called %d times, want 1", len(mock.requests))
		}

		req := mock.requests[0]
		if req.Messages[0].Content != summarize.DefaultPrompt {
			t.Errorf("system prompt = %q, want the default", req.Messages[0].Content)
		}
		if !strings.Contains(req.Messages[1].Content, "alpha") {
			t.Errorf("user message %q does not carry the transcription", req.Messages[1].Content)
		}
	})

	t.Run("multiple segments map then reduce", func(t *testing.T) {
		t.Parallel()

		mock := &mockChatAPI{respond: func(call int) (openai.ChatCompletionResponse, error) {
			switch call {
			case 1:
				return chatResponse("first summary"), nil
			case 2:
				return chatResponse("second summary"), nil
			default:
				return chatResponse("full summary"), nil
			}
		}}
		s := summarize.NewChatSummarizer(mock)

		got, err := s.Summarize(t.Context(), twoSegmentTrack(), summarize.Options{Segment: 60, Overlap: 10})
		if err != nil {
			t.Fatalf("Summarize() error = %v, want nil", err)
		}
		if got != "full summary" {
			t.Errorf("Summarize() = %q, want the reduce result", got)
		}
		if len(mock.requests) != 3 {
			t.Fatalf("API called %d times, want 2 map + 1 reduce", len(mock.requests))
		}

		// The second map call carries the first segment's summary as context.
		second := mock.requests[1].Messages[1].Content
		if !strings.Contains(second, "first summary") {
			t.Errorf("second map call %q misses the previous summary", second)
		}
		if !strings.Contains(second, "beta") {
			t.Errorf("second map call %q misses the slice transcription", second)
		}

		// The reduce call switches the system prompt and carries both summaries.
		reduce := mock.requests[2]
		if reduce.Messages[0].Content != summarize.DefaultPromptReduce {
			t.Errorf("reduce system prompt = %q, want the default reduce prompt", reduce.Messages[0].Content)
		}
		if !strings.Contains(reduce.Messages[1].Content, "first summary") ||
			!strings.Contains(reduce.Messages[1].Content, "second summary") {
			t.Errorf("reduce call %q misses a segment summary", reduce.Messages[1].Content)
		}
	})

	t.Run("custom prompt formats", func(t *testing.T) {
		t.Parallel()

		mock := &mockChatAPI{respond: func(int) (openai.ChatCompletionResponse, error) {
			return chatResponse("ok"), nil
		}}
		s := summarize.NewChatSummarizer(mock)

		_, err := s.Summarize(t.Context(), twoSegmentTrack(), summarize.Options{
			Segment:       60,
			Overlap:       10,
			PromptCurrent: "CLIP[%d..%d] %s",
		})
		if err != nil {
			t.Fatalf("Summarize() error = %v, want nil", err)
		}
		if got := mock.requests[0].Messages[1].Content; !strings.Contains(got, "CLIP[0..60] alpha") {
			t.Errorf("first map call = %q, want the custom format applied", got)
		}
	})

	t.Run("reports progress per phase", func(t *testing.T) {
		t.Parallel()

		mock := &mockChatAPI{respond: func(int) (openai.ChatCompletionResponse, error) {
			return chatResponse("ok"), nil
		}}
		var events []string
		s := summarize.NewChatSummarizer(mock, summarize.WithProgress(func(phase string, current, total int) {
			events = append(events, fmt.Sprintf("%s %d/%d", phase, current, total))
		}))

		if _, err := s.Summarize(t.Context(), twoSegmentTrack(), summarize.Options{Segment: 60, Overlap: 10}); err != nil {
			t.Fatalf("Summarize() error = %v, want nil", err)
		}

		want := []string{"map 1/2", "map 2/2", "reduce 1/1"}
		if len(events) != len(want) {
			t.Fatalf("progress events = %v, want %v", events, want)
		}
		for i := range want {
			if events[i] != want[i] {
				t.Errorf("event %d = %q, want %q", i, events[i], want[i])
			}
		}
	})

	t.Run("empty track", func(t *testing.T) {
		t.Parallel()

		s := summarize.NewChatSummarizer(&mockChatAPI{})
		if _, err := s.Summarize(t.Context(), nil, summarize.Options{Segment: 60}); !errors.Is(err, summarize.ErrEmptyTrack) {
			t.Errorf("Summarize(nil) error = %v, want ErrEmptyTrack", err)
		}
	})

	t.Run("overlap must stay under segment", func(t *testing.T) {
		t.Parallel()

		s := summarize.NewChatSummarizer(&mockChatAPI{})
		_, err := s.Summarize(t.Context(), twoSegmentTrack(), summarize.Options{Segment: 60, Overlap: 60})
		if err == nil {
			t.Error("Summarize() error = nil, want invalid slicing error")
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		t.Parallel()

		mock := &mockChatAPI{respond: func(int) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, nil
		}}
		s := summarize.NewChatSummarizer(mock)

		captions := []subtitle.Caption{{StartAt: time.Second, EndAt: 2 * time.Second, Text: "x"}}
		if _, err := s.Summarize(t.Context(), captions, summarize.Options{Segment: 60}); !errors.Is(err, summarize.ErrEmptyResponse) {
			t.Errorf("Summarize() error = %v, want ErrEmptyResponse", err)
		}
	})

	t.Run("retries rate limits", func(t *testing.T) {
		t.Parallel()

		mock := &mockChatAPI{respond: func(call int) (openai.ChatCompletionResponse, error) {
			if call == 1 {
				return openai.ChatCompletionResponse{}, &openai.APIError{
					HTTPStatusCode: http.StatusTooManyRequests,
					Message:        "rate limit reached",
				}
			}
			return chatResponse("recovered"), nil
		}}
		s := summarize.NewChatSummarizer(mock,
			summarize.WithMaxRetries(2),
			summarize.WithRetryDelays(time.Millisecond, time.Millisecond),
		)

		captions := []subtitle.Caption{{StartAt: time.Second, EndAt: 2 * time.Second, Text: "x"}}
		got, err := s.Summarize(t.Context(), captions, summarize.Options{Segment: 60})
		if err != nil {
			t.Fatalf("Summarize() error = %v, want nil after retry", err)
		}
		if got != "recovered" {
			t.Errorf("Summarize() = %q, want %q", got, "recovered")
		}
		if len(mock.requests) != 2 {
			t.Errorf("API called %d times, want 2", len(mock.requests))
		}
	})

	t.Run("does not retry auth failures", func(t *testing.T) {
		t.Parallel()

		mock := &mockChatAPI{respond: func(int) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, &openai.APIError{
				HTTPStatusCode: http.StatusUnauthorized,
				Message:        "invalid api key",
			}
		}}
		s := summarize.NewChatSummarizer(mock,
			summarize.WithMaxRetries(5),
			summarize.WithRetryDelays(time.Millisecond, time.Millisecond),
		)

		captions := []subtitle.Caption{{StartAt: time.Second, EndAt: 2 * time.Second, Text: "x"}}
		if _, err := s.Summarize(t.Context(), captions, summarize.Options{Segment: 60}); !errors.Is(err, apierr.ErrAuthFailed) {
			t.Errorf("Summarize() error = %v, want ErrAuthFailed", err)
		}
		if len(mock.requests) != 1 {
			t.Errorf("API called %d times, want 1 (no retries)", len(mock.requests))
		}
	})
}
