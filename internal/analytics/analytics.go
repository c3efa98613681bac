package analytics

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"

	"github.com/mietevo/mietevo-backend/internal/config"
	"github.com/mietevo/mietevo-backend/internal/logger"
)

const (
	generationEvent = "$ai_generation"

	// long prompts and completions are truncated before capture
	maxCapturedChars = 4000
)

// Generation describes one LLM call for usage telemetry.
type Generation struct {
	UserID           string
	Model            string
	Provider         string
	Input            string
	Output           string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
	// CompletenessScore carries the extraction's self-reported score, -1
	// when not applicable
	CompletenessScore int
}

// Service records LLM usage events. Capture is best-effort; a telemetry
// failure never fails the task that produced it.
type Service interface {
	CaptureGeneration(gen *Generation)
	Close()
}

type noopService struct{}

func (noopService) CaptureGeneration(*Generation) {}
func (noopService) Close()                        {}

type posthogService struct {
	client posthog.Client
	logger *logger.Logger
}

func NewService(cfg *config.Configuration, log *logger.Logger) Service {
	if cfg.Analytics.APIKey == "" {
		return noopService{}
	}

	client, err := posthog.NewWithConfig(cfg.Analytics.APIKey, posthog.Config{
		Endpoint: cfg.Analytics.Endpoint,
	})
	if err != nil {
		log.Warnw("analytics disabled", "error", err)
		return noopService{}
	}

	return &posthogService{client: client, logger: log}
}

// CaptureGeneration implements Service.
func (s *posthogService) CaptureGeneration(gen *Generation) {
	props := posthog.NewProperties().
		Set("$ai_trace_id", uuid.NewString()).
		Set("$ai_model", gen.Model).
		Set("$ai_provider", gen.Provider).
		Set("$ai_input", truncate(gen.Input)).
		Set("$ai_output_choices", truncate(gen.Output)).
		Set("$ai_input_tokens", gen.PromptTokens).
		Set("$ai_output_tokens", gen.CompletionTokens).
		Set("$ai_latency", gen.Latency.Seconds())
	if gen.CompletenessScore >= 0 {
		props.Set("completeness_score", gen.CompletenessScore)
	}

	distinctID := gen.UserID
	if distinctID == "" {
		distinctID = "anonymous"
	}

	if err := s.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      generationEvent,
		Properties: props,
	}); err != nil {
		s.logger.Warnw("failed to capture generation event", "error", err)
	}
}

// Close flushes queued events. Called once per invocation so events leave
// the process before the edge runtime freezes it.
func (s *posthogService) Close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warnw("failed to flush analytics", "error", err)
	}
}

func truncate(s string) string {
	if len(s) <= maxCapturedChars {
		return s
	}
	// back off to a rune boundary so the capture stays valid UTF-8
	cut := maxCapturedChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
