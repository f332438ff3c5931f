package cli

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-subtitler/internal/media"
	"github.com/alnah/go-subtitler/internal/summarize"
	"github.com/alnah/go-subtitler/internal/transcribe"
)

// Environment variables read by the commands.
const (
	// EnvAPIKey holds the bearer token for the speech/chat API.
	EnvAPIKey = "OPENAI_API_KEY"

	// EnvAPIBase overrides the API base URL (proxies, compatible servers).
	EnvAPIBase = "OPENAI_API_BASE"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing commands in isolation.
//
// All fields have production defaults via DefaultEnv(). Tests override
// specific fields using the With* options or by building a custom Env.
type Env struct {
	// I/O and environment
	Stderr   io.Writer
	Getenv   func(string) string
	LookPath func(file string) (string, error)

	// Logger is the observability handle passed down to components.
	// Never global state: tests inject their own.
	Logger *slog.Logger

	// Factories for domain objects
	MediaFactory       MediaFactory
	TranscriberFactory TranscriberFactory
	SummarizerFactory  SummarizerFactory
}

// MediaFactory creates the media tool collaborators.
type MediaFactory interface {
	NewProber(ffprobePath string) (media.Prober, error)
	NewClipper(ffmpegPath string) (media.Clipper, error)
}

// TranscriberFactory creates transcription clients.
type TranscriberFactory interface {
	NewClient(apiKey, baseURL string, timeout time.Duration, maxRetries int) transcribe.Client
}

// SummarizerFactory creates summarizers.
type SummarizerFactory interface {
	NewSummarizer(apiKey, baseURL string, timeout time.Duration, maxRetries int,
		progress func(phase string, current, total int)) summarize.Summarizer
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithLookPath sets the binary path resolver.
func WithLookPath(fn func(string) (string, error)) EnvOption {
	return func(e *Env) { e.LookPath = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EnvOption {
	return func(e *Env) { e.Logger = l }
}

// WithMediaFactory sets the media tool factory.
func WithMediaFactory(f MediaFactory) EnvOption {
	return func(e *Env) { e.MediaFactory = f }
}

// WithTranscriberFactory sets the transcriber factory.
func WithTranscriberFactory(f TranscriberFactory) EnvOption {
	return func(e *Env) { e.TranscriberFactory = f }
}

// WithSummarizerFactory sets the summarizer factory.
func WithSummarizerFactory(f SummarizerFactory) EnvOption {
	return func(e *Env) { e.SummarizerFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stderr:             os.Stderr,
		Getenv:             os.Getenv,
		LookPath:           exec.LookPath,
		Logger:             slog.New(slog.NewTextHandler(os.Stderr, nil)),
		MediaFactory:       &defaultMediaFactory{},
		TranscriberFactory: &defaultTranscriberFactory{},
		SummarizerFactory:  &defaultSummarizerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// newAPIClient builds an OpenAI client with the given credentials, base URL
// override, and per-request timeout.
func newAPIClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(cfg)
}

// defaultMediaFactory implements MediaFactory using the media package.
type defaultMediaFactory struct{}

func (defaultMediaFactory) NewProber(ffprobePath string) (media.Prober, error) {
	return media.NewFFprobeProber(ffprobePath)
}

func (defaultMediaFactory) NewClipper(ffmpegPath string) (media.Clipper, error) {
	return media.NewFFmpegClipper(ffmpegPath)
}

// defaultTranscriberFactory implements TranscriberFactory using OpenAI.
type defaultTranscriberFactory struct{}

func (defaultTranscriberFactory) NewClient(apiKey, baseURL string, timeout time.Duration, maxRetries int) transcribe.Client {
	client := newAPIClient(apiKey, baseURL, timeout)
	return transcribe.NewOpenAIClient(client, transcribe.WithMaxRetries(maxRetries))
}

// defaultSummarizerFactory implements SummarizerFactory using OpenAI.
type defaultSummarizerFactory struct{}

func (defaultSummarizerFactory) NewSummarizer(apiKey, baseURL string, timeout time.Duration, maxRetries int,
	progress func(phase string, current, total int)) summarize.Summarizer {
	client := newAPIClient(apiKey, baseURL, timeout)
	return summarize.NewChatSummarizer(client,
		summarize.WithMaxRetries(maxRetries),
		summarize.WithProgress(progress),
	)
}

// Compile-time interface verification.
var (
	_ MediaFactory       = (*defaultMediaFactory)(nil)
	_ TranscriberFactory = (*defaultTranscriberFactory)(nil)
	_ SummarizerFactory  = (*defaultSummarizerFactory)(nil)
)
