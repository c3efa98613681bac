package ai

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/mietevo/mietevo-backend/internal/config"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
)

// Completion is one synchronous model response with its token accounting.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Stream delivers model output one token chunk at a time. Recv returns
// io.EOF when the model is done.
type Stream interface {
	Recv() (string, error)
	Close()
}

// Client is the worker's seam to the language-model provider.
type Client interface {
	Generate(ctx context.Context, model, prompt string) (*Completion, error)
	GenerateStream(ctx context.Context, model, prompt string) (Stream, error)
}

type openaiClient struct {
	client *openai.Client
	log    *logger.Logger
}

// NewClient creates a model client against the configured provider endpoint.
func NewClient(cfg *config.Configuration, log *logger.Logger) Client {
	clientConfig := openai.DefaultConfig(cfg.AI.APIKey)
	if cfg.AI.BaseURL != "" {
		clientConfig.BaseURL = cfg.AI.BaseURL
	}
	return &openaiClient{
		client: openai.NewClientWithConfig(clientConfig),
		log:    log,
	}
}

func (c *openaiClient) Generate(ctx context.Context, model, prompt string) (*Completion, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	text, err := ExtractText(resp)
	if err != nil {
		return nil, err
	}

	return &Completion{
		Text:             text,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *openaiClient) GenerateStream(ctx context.Context, model, prompt string) (Stream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return nil, err
	}
	return &openaiStream{stream: stream}, nil
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openaiStream) Close() {
	s.stream.Close()
}

// ExtractText normalizes the provider's response shape to plain text. The
// probes run in order so provider-shape drift stays isolated to this seam.
func ExtractText(resp openai.ChatCompletionResponse) (string, error) {
	for _, probe := range textProbes {
		if text, ok := probe(resp); ok {
			return text, nil
		}
	}
	return "", ierr.NewError("model returned no extractable text").
		WithHint("empty model response").
		Mark(ierr.ErrAIProcessing)
}

var textProbes = []func(openai.ChatCompletionResponse) (string, bool){
	probeMessageContent,
	probeMultiContent,
}

func probeMessageContent(resp openai.ChatCompletionResponse) (string, bool) {
	if len(resp.Choices) == 0 {
		return "", false
	}
	content := resp.Choices[0].Message.Content
	return content, content != ""
}

func probeMultiContent(resp openai.ChatCompletionResponse) (string, bool) {
	if len(resp.Choices) == 0 {
		return "", false
	}
	for _, part := range resp.Choices[0].Message.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText && part.Text != "" {
			return part.Text, true
		}
	}
	return "", false
}
