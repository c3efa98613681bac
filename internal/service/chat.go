package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mietevo/mietevo-backend/internal/ai"
	"github.com/mietevo/mietevo-backend/internal/config"
	"github.com/mietevo/mietevo-backend/internal/domain/docs"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
)

const (
	docsSearchLimit = 5

	chatSystemPrompt = `Du bist der Support-Assistent von mietevo, einer Software für die Verwaltung von Mietobjekten und Betriebskostenabrechnungen. Beantworte Fragen knapp und auf Deutsch. Wenn dir Auszüge aus der Dokumentation vorliegen, stütze deine Antwort darauf.`
)

// ChatService answers user questions as a token stream, grounded on
// documentation lookups when those succeed.
type ChatService interface {
	OpenStream(ctx context.Context, message string) (ai.Stream, error)
}

type chatService struct {
	client ai.Client
	docs   docs.Repository
	config *config.Configuration
	logger *logger.Logger
}

func NewChatService(
	client ai.Client,
	docsRepo docs.Repository,
	cfg *config.Configuration,
	log *logger.Logger,
) ChatService {
	return &chatService{
		client: client,
		docs:   docsRepo,
		config: cfg,
		logger: log,
	}
}

// OpenStream acquires a model stream for the user's message. Acquisition is
// retried on transient provider errors; once the stream handle exists,
// mid-stream failures are the caller's to surface.
func (s *chatService) OpenStream(ctx context.Context, message string) (ai.Stream, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ierr.NewError("message is required").
			WithHint("provide a non-empty message").
			Mark(ierr.ErrValidation)
	}

	prompt := s.buildPrompt(ctx, message)

	var stream ai.Stream
	operation := func() error {
		var err error
		stream, err = s.client.GenerateStream(ctx, s.config.AI.ChatModel, prompt)
		return err
	}

	policy := ai.NewChatBackOff(
		ctx,
		s.config.Chat.MaxAttempts,
		time.Duration(s.config.Chat.BackoffBaseMillis)*time.Millisecond,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, ierr.WithError(err).
			WithHint("chat completion unavailable").
			Mark(ierr.ErrAIProcessing)
	}
	return stream, nil
}

// buildPrompt prepends documentation context when the lookup succeeds. A
// failed lookup is logged and the chat answers without context.
func (s *chatService) buildPrompt(ctx context.Context, message string) string {
	var sb strings.Builder
	sb.WriteString(chatSystemPrompt)

	entries, err := s.docs.Search(ctx, message, docsSearchLimit)
	if err != nil {
		s.logger.Warnw("documentation lookup failed, answering without context", "error", err)
	}
	if len(entries) > 0 {
		sb.WriteString("\n\nDokumentation:\n")
		for _, entry := range entries {
			fmt.Fprintf(&sb, "\n## %s\n%s\n", entry.Title, entry.Content)
		}
	}

	sb.WriteString("\n\nFrage: ")
	sb.WriteString(message)
	return sb.String()
}
