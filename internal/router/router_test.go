package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mietevo/mietevo-backend/internal/ai"
	v1 "github.com/mietevo/mietevo-backend/internal/api/v1"
	"github.com/mietevo/mietevo-backend/internal/config"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/ratelimit"
	"github.com/mietevo/mietevo-backend/internal/service"
	"github.com/mietevo/mietevo-backend/internal/statement"
	"github.com/mietevo/mietevo-backend/internal/testutil"
	"github.com/mietevo/mietevo-backend/internal/types"
)

type stubRenderer struct {
	pages int
	err   error
}

func (r *stubRenderer) RenderTenantStatement(ctx context.Context, data *statement.BillingData, period *statement.CostPeriod) (*statement.RenderResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &statement.RenderResult{PDF: []byte("%PDF-1.7 stub"), Pages: r.pages}, nil
}

func (r *stubRenderer) RenderHouseOverview(ctx context.Context, data *statement.HouseOverviewData) (*statement.RenderResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &statement.RenderResult{PDF: []byte("%PDF-1.7 stub"), Pages: r.pages}, nil
}

type stubStream struct {
	chunks []string
	pos    int
}

func (s *stubStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *stubStream) Close() {}

type stubChatService struct {
	chunks []string
	err    error
}

func (s *stubChatService) OpenStream(ctx context.Context, message string) (ai.Stream, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &stubStream{chunks: s.chunks}, nil
}

type stubConsumer struct {
	result *service.Result
	err    error
}

func (s *stubConsumer) ProcessNext(ctx context.Context, userID string) (*service.Result, error) {
	return s.result, s.err
}

func newTestRouter(t *testing.T, renderer statement.Renderer, chat *stubChatService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.GetDefaultConfig()
	handlers := Handlers{
		Export: v1.NewExportHandler(renderer, logger.L),
		Chat:   v1.NewChatHandler(chat, ratelimit.NewFixedWindowLimiter(cfg), logger.L),
		Queue: v1.NewQueueHandler(&stubConsumer{
			result: &service.Result{Status: types.QueueTaskDone, HasMore: false},
		}, logger.L),
		Health: v1.NewHealthHandler(logger.L),
	}
	return NewRouter(handlers, cfg, logger.L, testutil.NewMockHTTPClient())
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://app.mietevo.de")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHouseOverviewPDFEndToEnd(t *testing.T) {
	r := newTestRouter(t, &stubRenderer{pages: 1}, &stubChatService{})

	w := postJSON(r, "/", `{
		"type": "pdf",
		"template": "house-overview",
		"nebenkosten": {"startdatum": "2024-01-01", "enddatum": "2024-12-31", "haus_name": "Musterhaus"},
		"totalArea": 500,
		"totalCosts": 12000,
		"costPerSqm": 24
	}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-PDF-Page-Count"))
	assert.NotEmpty(t, w.Header().Get("X-PDF-Generation-Time"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-PDF-Page-Count")
}

func TestCSVExportEndToEnd(t *testing.T) {
	r := newTestRouter(t, &stubRenderer{pages: 1}, &stubChatService{})

	w := postJSON(r, "/", `{
		"type": "csv",
		"filename": "mieter.csv",
		"data": {"columns": ["Name", "Wohnung"], "rows": [["Anna Schmidt", "EG links"]]}
	}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "mieter.csv")
	assert.Contains(t, w.Body.String(), "Anna Schmidt")
}

func TestUnsupportedExportTypeIsRejected(t *testing.T) {
	r := newTestRouter(t, &stubRenderer{pages: 1}, &stubChatService{})

	w := postJSON(r, "/", `{"type": "docx"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]ierr.ErrorEnvelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_request_error", body["error"].Type)
}

func TestChatStreamEndToEnd(t *testing.T) {
	r := newTestRouter(t, &stubRenderer{pages: 1}, &stubChatService{chunks: []string{"Hallo", " Welt"}})

	w := postJSON(r, "/ai", `{"message": "Wie erstelle ich eine Abrechnung?", "sessionId": "sess-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	events := parseSSE(t, w.Body.String())
	assert.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, "chunk", events[0]["type"])
	assert.Equal(t, "Hallo", events[0]["content"])
	assert.Equal(t, "complete", events[len(events)-1]["type"])
	for _, event := range events {
		assert.Equal(t, "sess-1", event["sessionId"])
	}
}

func TestChatDispatchFromRootPath(t *testing.T) {
	r := newTestRouter(t, &stubRenderer{pages: 1}, &stubChatService{chunks: []string{"Hi"}})

	w := postJSON(r, "/", `{"message": "Hilfe"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	events := parseSSE(t, w.Body.String())
	assert.Equal(t, "chunk", events[0]["type"])
	// session id was generated since the caller sent none
	assert.NotEmpty(t, events[0]["sessionId"])
}

func TestChatRateLimit(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Chat.MaxRequests = 1
	gin.SetMode(gin.TestMode)
	handlers := Handlers{
		Export: v1.NewExportHandler(&stubRenderer{pages: 1}, logger.L),
		Chat:   v1.NewChatHandler(&stubChatService{chunks: []string{"Hi"}}, ratelimit.NewFixedWindowLimiter(cfg), logger.L),
		Health: v1.NewHealthHandler(logger.L),
	}
	r := NewRouter(handlers, cfg, logger.L, testutil.NewMockHTTPClient())

	w := postJSON(r, "/ai", `{"message": "Hilfe"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(r, "/ai", `{"message": "Hilfe"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]ierr.ErrorEnvelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_error", body["error"].Type)
}

func TestChatStreamSetupFailureIsHTTPError(t *testing.T) {
	r := newTestRouter(t, &stubRenderer{pages: 1}, &stubChatService{
		err: ierr.NewError("model unavailable").Mark(ierr.ErrAIProcessing),
	})

	w := postJSON(r, "/ai", `{"message": "Hilfe"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]ierr.ErrorEnvelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "AI_PROCESSING_ERROR", body["error"].Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, &stubRenderer{pages: 1}, &stubChatService{})

	req := httptest.NewRequest(http.MethodOptions, "/ai", nil)
	req.Header.Set("Origin", "https://app.mietevo.de")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.mietevo.de", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	r := newTestRouter(t, &stubRenderer{pages: 1}, &stubChatService{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error": "Not Found"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/ai", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestProcessQueueEndpoint(t *testing.T) {
	r := newTestRouter(t, &stubRenderer{pages: 1}, &stubChatService{})

	w := postJSON(r, "/process-queue", `{"user_id": "user-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "done", "hasMore": false}`, w.Body.String())
}

func TestProcessQueueReportsMessageID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.GetDefaultConfig()
	handlers := Handlers{
		Export: v1.NewExportHandler(&stubRenderer{pages: 1}, logger.L),
		Chat:   v1.NewChatHandler(&stubChatService{}, ratelimit.NewFixedWindowLimiter(cfg), logger.L),
		Queue: v1.NewQueueHandler(&stubConsumer{
			result: &service.Result{Status: types.QueueTaskProcessed, MsgID: 42, HasMore: true},
		}, logger.L),
		Health: v1.NewHealthHandler(logger.L),
	}
	r := NewRouter(handlers, cfg, logger.L, testutil.NewMockHTTPClient())

	w := postJSON(r, "/process-queue", `{"user_id": "user-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "processed", "msgId": 42, "hasMore": true}`, w.Body.String())
}

func TestProcessQueueFailureCarriesHasMore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.GetDefaultConfig()
	handlers := Handlers{
		Export: v1.NewExportHandler(&stubRenderer{pages: 1}, logger.L),
		Chat:   v1.NewChatHandler(&stubChatService{}, ratelimit.NewFixedWindowLimiter(cfg), logger.L),
		Queue: v1.NewQueueHandler(&stubConsumer{
			err: ierr.NewError("email download failed").Mark(ierr.ErrHTTPClient),
		}, logger.L),
		Health: v1.NewHealthHandler(logger.L),
	}
	r := NewRouter(handlers, cfg, logger.L, testutil.NewMockHTTPClient())

	w := postJSON(r, "/process-queue", `{"user_id": "user-1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["hasMore"])
	assert.NotNil(t, body["error"])
}

func TestInvocationLogExportUsesProductionEnvironment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.GetDefaultConfig()
	cfg.Logging.OTLPEndpoint = "https://collector.example"
	cfg.Logging.OTLPToken = "token"
	client := testutil.NewMockHTTPClient()
	handlers := Handlers{
		Export: v1.NewExportHandler(&stubRenderer{pages: 1}, logger.L),
		Chat:   v1.NewChatHandler(&stubChatService{}, ratelimit.NewFixedWindowLimiter(cfg), logger.L),
		Queue: v1.NewQueueHandler(&stubConsumer{
			result: &service.Result{Status: types.QueueTaskDone, HasMore: false},
		}, logger.L),
		Health: v1.NewHealthHandler(logger.L),
	}
	r := NewRouter(handlers, cfg, logger.L, client)

	w := postJSON(r, "/process-queue", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)

	// the batch is sent asynchronously after the response
	assert.Eventually(t, func() bool {
		reqs := client.Requests()
		if len(reqs) != 1 {
			return false
		}
		body := string(reqs[0].Body)
		return reqs[0].URL == "https://collector.example/i/v1/logs" &&
			strings.Contains(body, `"deployment.environment"`) &&
			strings.Contains(body, `"production"`)
	}, time.Second, 10*time.Millisecond)
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, &stubRenderer{pages: 1}, &stubChatService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func parseSSE(t *testing.T, body string) []map[string]any {
	t.Helper()
	var events []map[string]any
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event map[string]any
		assert.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		events = append(events, event)
	}
	return events
}
