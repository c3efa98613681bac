package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mietevo/mietevo-backend/internal/api/dto"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/rest/middleware"
	"github.com/mietevo/mietevo-backend/internal/service"
)

type QueueHandler struct {
	consumer service.QueueConsumer
	log      *logger.Logger
}

func NewQueueHandler(consumer service.QueueConsumer, log *logger.Logger) *QueueHandler {
	return &QueueHandler{consumer: consumer, log: log}
}

// ProcessQueue drains one task. The body is optional; an empty one just
// means anonymous telemetry.
func (h *QueueHandler) ProcessQueue(c *gin.Context) {
	var req dto.ProcessQueueRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		req = dto.ProcessQueueRequest{}
	}

	ilog := middleware.InvocationLoggerFromContext(c, h.log)

	result, err := h.consumer.ProcessNext(c.Request.Context(), req.UserID)
	if err != nil {
		ilog.Log(logger.SeverityError, "queue processing failed", map[string]any{"error": err.Error()})
		h.log.Errorw("queue processing failed", "error", err)
		// the polling scheduler keys on hasMore even on failure
		c.JSON(ierr.HTTPStatusFromErr(err), gin.H{
			"error":   ierr.NewEnvelope(err),
			"hasMore": false,
		})
		return
	}

	ilog.Log(logger.SeverityInfo, "queue task finished", map[string]any{
		"status":   string(result.Status),
		"has_more": result.HasMore,
	})
	c.JSON(http.StatusOK, result)
}
