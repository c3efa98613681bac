package router

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	v1 "github.com/mietevo/mietevo-backend/internal/api/v1"
	"github.com/mietevo/mietevo-backend/internal/config"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/httpclient"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/rest/middleware"
)

// Handlers groups the HTTP handlers for route registration.
type Handlers struct {
	Export *v1.ExportHandler
	Chat   *v1.ChatHandler
	Queue  *v1.QueueHandler
	Health *v1.HealthHandler
}

func NewRouter(
	handlers Handlers,
	cfg *config.Configuration,
	log *logger.Logger,
	client httpclient.Client,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.SentryMiddleware(cfg))
	router.Use(middleware.InvocationLoggerMiddleware(cfg, log, client))
	router.Use(middleware.ErrorHandler())

	router.POST("/ai", handlers.Chat.Chat)
	router.POST("/process-queue", handlers.Queue.ProcessQueue)
	router.POST("/", dispatch(handlers))
	router.GET("/health", handlers.Health.Health)

	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method Not Allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})

	return router
}

// dispatch routes untyped POSTs to the root path: a payload carrying a type
// discriminator is an export, one carrying only a message is a chat.
func dispatch(handlers Handlers) gin.HandlerFunc {
	type probe struct {
		Type    string          `json:"type"`
		Message json.RawMessage `json:"message"`
	}

	return func(c *gin.Context) {
		var p probe
		if err := c.ShouldBindBodyWith(&p, binding.JSON); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("request body must be a JSON object").
				Mark(ierr.ErrValidation))
			return
		}

		switch {
		case p.Type != "":
			handlers.Export.Export(c)
		case len(p.Message) > 0:
			handlers.Chat.Chat(c)
		default:
			c.Error(ierr.NewError("unrecognized request payload").
				WithHint("provide a type discriminator or a message").
				Mark(ierr.ErrValidation))
		}
	}
}
