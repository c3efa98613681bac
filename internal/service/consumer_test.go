package service

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mietevo/mietevo-backend/internal/ai"
	"github.com/mietevo/mietevo-backend/internal/analytics"
	"github.com/mietevo/mietevo-backend/internal/config"
	"github.com/mietevo/mietevo-backend/internal/domain/application"
	"github.com/mietevo/mietevo-backend/internal/domain/queue"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/types"
)

type mockQueueRepository struct {
	mock.Mock
}

func (m *mockQueueRepository) Read(ctx context.Context, queueName string, visibilityTimeout time.Duration, count int) ([]queue.Message, error) {
	args := m.Called(ctx, queueName, visibilityTimeout, count)
	if messages := args.Get(0); messages != nil {
		return messages.([]queue.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockQueueRepository) Delete(ctx context.Context, queueName string, msgID int64) error {
	args := m.Called(ctx, queueName, msgID)
	return args.Error(0)
}

type mockApplicationRepository struct {
	mock.Mock
}

func (m *mockApplicationRepository) GetStoragePath(ctx context.Context, emailID string) (string, error) {
	args := m.Called(ctx, emailID)
	return args.String(0), args.Error(1)
}

func (m *mockApplicationRepository) SaveExtraction(ctx context.Context, emailID string, extraction *application.Extraction) error {
	args := m.Called(ctx, emailID, extraction)
	return args.Error(0)
}

type mockStorageService struct {
	mock.Mock
}

func (m *mockStorageService) DownloadEmail(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if blob := args.Get(0); blob != nil {
		return blob.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

type recordingAnalytics struct {
	generations []*analytics.Generation
}

func (r *recordingAnalytics) CaptureGeneration(gen *analytics.Generation) {
	r.generations = append(r.generations, gen)
}

func (r *recordingAnalytics) Close() {}

func gzipEmail(t *testing.T, email map[string]string) []byte {
	t.Helper()
	record, err := json.Marshal(email)
	assert.NoError(t, err)
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err = w.Write(record)
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	return buf.Bytes()
}

func queuedTask(t *testing.T, task application.Task) queue.Message {
	t.Helper()
	payload, err := json.Marshal(task)
	assert.NoError(t, err)
	return queue.Message{MsgID: 42, ReadCount: 1, Payload: payload}
}

const extractionResponse = `{
	"personalInfo": {"firstName": "Anna", "lastName": "Schmidt", "email": "anna@example.com", "phone": "+49 170 1234567", "dateOfBirth": "", "currentAddress": ""},
	"financialInfo": {"monthlyNetIncome": 3200, "employmentStatus": "angestellt", "employer": "ACME GmbH"},
	"householdInfo": {"adults": 2, "children": 1, "pets": false, "smoker": false},
	"applicationInfo": {"desiredMoveInDate": "2026-11-01", "sentiment": "positive", "completenessScore": 85},
	"redFlags": [],
	"missingInformation": ["dateOfBirth"]
}`

type consumerFixture struct {
	queueRepo *mockQueueRepository
	appRepo   *mockApplicationRepository
	storage   *mockStorageService
	client    *mockAIClient
	telemetry *recordingAnalytics
	consumer  QueueConsumer
}

func newConsumerFixture() *consumerFixture {
	f := &consumerFixture{
		queueRepo: new(mockQueueRepository),
		appRepo:   new(mockApplicationRepository),
		storage:   new(mockStorageService),
		client:    new(mockAIClient),
		telemetry: &recordingAnalytics{},
	}
	f.consumer = NewQueueConsumer(
		f.queueRepo,
		f.appRepo,
		f.storage,
		f.client,
		f.telemetry,
		config.GetDefaultConfig(),
		logger.L,
	)
	return f
}

func TestProcessNextEmptyQueue(t *testing.T) {
	f := newConsumerFixture()
	f.queueRepo.On("Read", mock.Anything, types.ApplicationQueue, types.QueueVisibilityTimeout, types.QueueReadBatchSize).
		Return([]queue.Message{}, nil)

	result, err := f.consumer.ProcessNext(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, types.QueueTaskDone, result.Status)
	assert.False(t, result.HasMore)

	f.storage.AssertNotCalled(t, "DownloadEmail", mock.Anything, mock.Anything)
	f.client.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	f.queueRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessNextHappyPath(t *testing.T) {
	f := newConsumerFixture()
	msg := queuedTask(t, application.Task{EmailID: "email-7", UserID: "user-1", StoragePath: "emails/email-7.json.gz"})

	f.queueRepo.On("Read", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]queue.Message{msg}, nil)
	f.storage.On("DownloadEmail", mock.Anything, "emails/email-7.json.gz").
		Return(gzipEmail(t, map[string]string{
			"from":    "anna@example.com",
			"subject": "Bewerbung Wohnung 3",
			"text":    "Guten Tag, ich bewerbe mich auf die Wohnung.",
		}), nil)
	f.client.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&ai.Completion{Text: extractionResponse, PromptTokens: 900, CompletionTokens: 180}, nil)
	f.appRepo.On("SaveExtraction", mock.Anything, "email-7", mock.MatchedBy(func(e *application.Extraction) bool {
		return e.PersonalInfo.FirstName == "Anna" && e.ApplicationInfo.CompletenessScore == 85
	})).Return(nil)
	f.queueRepo.On("Delete", mock.Anything, types.ApplicationQueue, int64(42)).Return(nil)

	result, err := f.consumer.ProcessNext(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, types.QueueTaskProcessed, result.Status)
	assert.Equal(t, int64(42), result.MsgID)
	assert.True(t, result.HasMore)

	f.queueRepo.AssertNumberOfCalls(t, "Delete", 1)
	assert.Len(t, f.telemetry.generations, 1)
	assert.Equal(t, 85, f.telemetry.generations[0].CompletenessScore)
	assert.Equal(t, 900, f.telemetry.generations[0].PromptTokens)
}

func TestProcessNextResolvesMissingStoragePath(t *testing.T) {
	f := newConsumerFixture()
	msg := queuedTask(t, application.Task{EmailID: "email-9", UserID: "user-1"})

	f.queueRepo.On("Read", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]queue.Message{msg}, nil)
	f.appRepo.On("GetStoragePath", mock.Anything, "email-9").
		Return("emails/email-9.json.gz", nil)
	f.storage.On("DownloadEmail", mock.Anything, "emails/email-9.json.gz").
		Return(gzipEmail(t, map[string]string{"text": "Bewerbung"}), nil)
	f.client.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&ai.Completion{Text: extractionResponse}, nil)
	f.appRepo.On("SaveExtraction", mock.Anything, "email-9", mock.Anything).Return(nil)
	f.queueRepo.On("Delete", mock.Anything, mock.Anything, int64(42)).Return(nil)

	result, err := f.consumer.ProcessNext(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, types.QueueTaskProcessed, result.Status)
}

func TestProcessNextSkipsTaskWithoutStoredEmail(t *testing.T) {
	f := newConsumerFixture()
	msg := queuedTask(t, application.Task{EmailID: "email-x", UserID: "user-1"})

	f.queueRepo.On("Read", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]queue.Message{msg}, nil)
	f.appRepo.On("GetStoragePath", mock.Anything, "email-x").
		Return("", ierr.NewError("not found").Mark(ierr.ErrNotFound))
	f.queueRepo.On("Delete", mock.Anything, mock.Anything, int64(42)).Return(nil)

	result, err := f.consumer.ProcessNext(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, types.QueueTaskSkipped, result.Status)
	assert.True(t, result.HasMore)

	f.storage.AssertNotCalled(t, "DownloadEmail", mock.Anything, mock.Anything)
	f.queueRepo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestProcessNextDeletesPoisonedMessage(t *testing.T) {
	f := newConsumerFixture()
	msg := queuedTask(t, application.Task{EmailID: "email-3", UserID: "user-1", StoragePath: "emails/email-3.json.gz"})

	f.queueRepo.On("Read", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]queue.Message{msg}, nil)
	f.storage.On("DownloadEmail", mock.Anything, mock.Anything).
		Return([]byte("not gzip"), nil)
	f.queueRepo.On("Delete", mock.Anything, types.ApplicationQueue, int64(42)).Return(nil)

	_, err := f.consumer.ProcessNext(context.Background(), "user-1")
	assert.Error(t, err)

	f.queueRepo.AssertNumberOfCalls(t, "Delete", 1)
	f.client.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessNextKeepsMessageWhenPoisonPolicyDisabled(t *testing.T) {
	f := newConsumerFixture()
	cfg := config.GetDefaultConfig()
	cfg.Queue.DeleteOnFailure = false
	f.consumer = NewQueueConsumer(f.queueRepo, f.appRepo, f.storage, f.client, f.telemetry, cfg, logger.L)

	msg := queuedTask(t, application.Task{EmailID: "email-3", UserID: "user-1", StoragePath: "emails/email-3.json.gz"})
	f.queueRepo.On("Read", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]queue.Message{msg}, nil)
	f.storage.On("DownloadEmail", mock.Anything, mock.Anything).
		Return(nil, ierr.NewError("bucket unreachable").Mark(ierr.ErrHTTPClient))

	_, err := f.consumer.ProcessNext(context.Background(), "user-1")
	assert.Error(t, err)

	f.queueRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessNextRejectsMalformedPayload(t *testing.T) {
	f := newConsumerFixture()
	msg := queue.Message{MsgID: 7, Payload: json.RawMessage(`not json`)}

	f.queueRepo.On("Read", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]queue.Message{msg}, nil)
	f.queueRepo.On("Delete", mock.Anything, mock.Anything, int64(7)).Return(nil)

	_, err := f.consumer.ProcessNext(context.Background(), "user-1")
	assert.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	f.queueRepo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestClampPromptBodyCutsOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("€", maxEmailPromptChars)

	clamped := clampPromptBody(body)
	assert.LessOrEqual(t, len(clamped), maxEmailPromptChars)
	assert.True(t, utf8.ValidString(clamped))

	short := "kurzer Text mit Umlauten äöü"
	assert.Equal(t, short, clampPromptBody(short))
}
