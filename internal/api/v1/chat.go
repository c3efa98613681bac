package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mietevo/mietevo-backend/internal/api/dto"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/ratelimit"
	"github.com/mietevo/mietevo-backend/internal/service"
)

type ChatHandler struct {
	service service.ChatService
	limiter ratelimit.Limiter
	log     *logger.Logger
}

func NewChatHandler(svc service.ChatService, limiter ratelimit.Limiter, log *logger.Logger) *ChatHandler {
	return &ChatHandler{service: svc, limiter: limiter, log: log}
}

// Chat streams the assistant's answer as SSE. Errors before streaming begins
// use HTTP status codes; once headers are out, errors travel in-band.
func (h *ChatHandler) Chat(c *gin.Context) {
	if allowed, retryAfter := h.limiter.Allow(c.ClientIP()); !allowed {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds()+0.5)))
		c.Error(ierr.NewError("too many requests").
			WithHint("rate limit exceeded, slow down").
			Mark(ierr.ErrRateLimit))
		return
	}

	var req dto.ChatRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		h.log.Errorw("failed to bind chat request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}
	sessionID := req.EnsureSessionID()

	stream, err := h.service.OpenStream(c.Request.Context(), req.Message)
	if err != nil {
		h.log.Errorw("failed to open chat stream", "error", err)
		c.Error(err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	events := make(chan dto.ChatEvent)
	go func() {
		defer close(events)
		defer stream.Close()
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				events <- dto.ChatEvent{Type: dto.ChatEventComplete, SessionID: sessionID}
				return
			}
			if err != nil {
				h.log.Errorw("chat stream failed mid-flight", "error", err, "session_id", sessionID)
				events <- dto.ChatEvent{Type: dto.ChatEventError, Error: err.Error(), SessionID: sessionID}
				return
			}
			if chunk == "" {
				continue
			}
			events <- dto.ChatEvent{Type: dto.ChatEventChunk, Content: chunk, SessionID: sessionID}
		}
	}()

	// the response writer under the Lambda adapter does not implement
	// CloseNotify, so the loop writes c.Writer directly and watches the
	// request context for disconnects
	clientGone := c.Request.Context().Done()
writeLoop:
	for {
		select {
		case <-clientGone:
			break writeLoop
		case event, ok := <-events:
			if !ok {
				break writeLoop
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.log.Errorw("failed to marshal chat event", "error", err, "session_id", sessionID)
				break writeLoop
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			c.Writer.Flush()
			if event.Type != dto.ChatEventChunk {
				break writeLoop
			}
		}
	}

	// drain so the producer goroutine can exit when we stopped early
	go func() {
		deadline := time.After(5 * time.Second)
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return
				}
			case <-deadline:
				return
			}
		}
	}()
}
