package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mietevo/mietevo-backend/internal/ai"
	"github.com/mietevo/mietevo-backend/internal/analytics"
	"github.com/mietevo/mietevo-backend/internal/config"
	"github.com/mietevo/mietevo-backend/internal/domain/application"
	"github.com/mietevo/mietevo-backend/internal/domain/queue"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/mail"
	"github.com/mietevo/mietevo-backend/internal/s3"
	"github.com/mietevo/mietevo-backend/internal/types"
)

// maxEmailPromptChars bounds the email text embedded in the extraction
// prompt so oversized emails stay within the model's context window.
const maxEmailPromptChars = 8000

const extractionPromptHeader = `Analysiere die folgende Mietbewerbungs-E-Mail und extrahiere die Bewerberdaten. Antworte ausschließlich mit einem JSON-Objekt in genau diesem Schema, ohne weiteren Text:

{
  "personalInfo": {"firstName": "", "lastName": "", "email": "", "phone": "", "dateOfBirth": "", "currentAddress": ""},
  "financialInfo": {"monthlyNetIncome": 0, "employmentStatus": "", "employer": ""},
  "householdInfo": {"adults": 0, "children": 0, "pets": false, "smoker": false},
  "applicationInfo": {"desiredMoveInDate": "", "sentiment": "", "completenessScore": 0},
  "redFlags": [],
  "missingInformation": []
}

Unbekannte Felder bleiben leer. completenessScore bewertet die Vollständigkeit der Bewerbung von 0 bis 100.`

// Result is the outcome of one consumer invocation.
type Result struct {
	Status  types.QueueTaskStatus `json:"status"`
	MsgID   int64                 `json:"msgId,omitempty"`
	HasMore bool                  `json:"hasMore"`
}

// QueueConsumer drains the application-email queue one task per invocation.
type QueueConsumer interface {
	ProcessNext(ctx context.Context, userID string) (*Result, error)
}

type queueConsumer struct {
	queueRepo queue.Repository
	appRepo   application.Repository
	storage   s3.Service
	client    ai.Client
	analytics analytics.Service
	config    *config.Configuration
	logger    *logger.Logger
}

func NewQueueConsumer(
	queueRepo queue.Repository,
	appRepo application.Repository,
	storage s3.Service,
	client ai.Client,
	analyticsSvc analytics.Service,
	cfg *config.Configuration,
	log *logger.Logger,
) QueueConsumer {
	return &queueConsumer{
		queueRepo: queueRepo,
		appRepo:   appRepo,
		storage:   storage,
		client:    client,
		analytics: analyticsSvc,
		config:    cfg,
		logger:    log,
	}
}

// ProcessNext leases one message and runs it to a terminal state. Any
// processing failure still deletes the message when the poison policy is on,
// so one bad email cannot wedge the queue.
func (c *queueConsumer) ProcessNext(ctx context.Context, userID string) (*Result, error) {
	messages, err := c.queueRepo.Read(ctx, c.config.Queue.Name, types.QueueVisibilityTimeout, types.QueueReadBatchSize)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return &Result{Status: types.QueueTaskDone, HasMore: false}, nil
	}

	msg := messages[0]
	result, err := c.processMessage(ctx, userID, msg)
	if err != nil {
		c.logger.Errorw("queue task failed", "msg_id", msg.MsgID, "error", err)
		if c.config.Queue.DeleteOnFailure {
			if delErr := c.queueRepo.Delete(ctx, c.config.Queue.Name, msg.MsgID); delErr != nil {
				c.logger.Errorw("failed to delete poisoned message", "msg_id", msg.MsgID, "error", delErr)
			}
		}
		return nil, err
	}
	return result, nil
}

func (c *queueConsumer) processMessage(ctx context.Context, userID string, msg queue.Message) (*Result, error) {
	var task application.Task
	if err := json.Unmarshal(msg.Payload, &task); err != nil {
		return nil, ierr.WithError(err).
			WithHint("malformed queue payload").
			WithMessagef("msg_id:%d", msg.MsgID).
			Mark(ierr.ErrValidation)
	}

	storagePath := task.StoragePath
	if storagePath == "" {
		path, err := c.appRepo.GetStoragePath(ctx, task.EmailID)
		if err != nil {
			c.logger.Warnw("could not resolve email storage path", "email_id", task.EmailID, "error", err)
		} else {
			storagePath = path
		}
	}
	if storagePath == "" {
		// nothing to analyze, drop the task instead of redelivering it
		c.logger.Warnw("queue task has no stored email, skipping", "msg_id", msg.MsgID, "email_id", task.EmailID)
		if err := c.queueRepo.Delete(ctx, c.config.Queue.Name, msg.MsgID); err != nil {
			return nil, err
		}
		return &Result{Status: types.QueueTaskSkipped, MsgID: msg.MsgID, HasMore: true}, nil
	}

	blob, err := c.storage.DownloadEmail(ctx, storagePath)
	if err != nil {
		return nil, err
	}

	raw, err := mail.Decompress(blob)
	if err != nil {
		return nil, err
	}
	email := mail.Parse(raw)

	extraction, err := c.analyze(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	if err := c.appRepo.SaveExtraction(ctx, task.EmailID, extraction); err != nil {
		return nil, err
	}

	if err := c.queueRepo.Delete(ctx, c.config.Queue.Name, msg.MsgID); err != nil {
		return nil, err
	}

	c.logger.Infow("queue task processed",
		"msg_id", msg.MsgID,
		"email_id", task.EmailID,
		"applicant", extraction.DisplayName(),
	)
	return &Result{Status: types.QueueTaskProcessed, MsgID: msg.MsgID, HasMore: true}, nil
}

// analyze runs the extraction model over the email body. Only rate-limit
// responses are retried; any other model failure fails the task.
func (c *queueConsumer) analyze(ctx context.Context, userID string, email *mail.Email) (*application.Extraction, error) {
	prompt := c.buildExtractionPrompt(email)

	var completion *ai.Completion
	start := time.Now()
	err := ai.RetryRateLimited(ai.NewExtractionBackOff(ctx), func() error {
		var genErr error
		completion, genErr = c.client.Generate(ctx, c.config.AI.ExtractionModel, prompt)
		return genErr
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("extraction model call failed").
			Mark(ierr.ErrAIProcessing)
	}
	latency := time.Since(start)

	object, err := ai.FirstJSONObject(completion.Text)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("model response contains no JSON object").
			Mark(ierr.ErrAIProcessing)
	}

	var extraction application.Extraction
	if err := json.Unmarshal([]byte(object), &extraction); err != nil {
		return nil, ierr.WithError(err).
			WithHint("model response does not match extraction schema").
			Mark(ierr.ErrAIProcessing)
	}

	c.analytics.CaptureGeneration(&analytics.Generation{
		UserID:            userID,
		Model:             c.config.AI.ExtractionModel,
		Provider:          "openai",
		Input:             prompt,
		Output:            completion.Text,
		PromptTokens:      completion.PromptTokens,
		CompletionTokens:  completion.CompletionTokens,
		Latency:           latency,
		CompletenessScore: extraction.ApplicationInfo.CompletenessScore,
	})

	return &extraction, nil
}

func (c *queueConsumer) buildExtractionPrompt(email *mail.Email) string {
	body := clampPromptBody(email.Body())
	return fmt.Sprintf("%s\n\nBetreff: %s\nVon: %s\n\n%s", extractionPromptHeader, email.Subject, email.From, body)
}

// clampPromptBody cuts the email text to the prompt budget on a rune
// boundary, keeping the prompt valid UTF-8.
func clampPromptBody(body string) string {
	if len(body) <= maxEmailPromptChars {
		return body
	}
	cut := maxEmailPromptChars
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
