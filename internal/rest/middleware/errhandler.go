package middleware

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/mietevo/mietevo-backend/internal/errors"
)

// ErrorHandler turns errors attached to the gin context into the shared
// error envelope with the status derived from the error's mark.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			status := ierr.HTTPStatusFromErr(err)
			c.JSON(status, gin.H{"error": ierr.NewEnvelope(err)})
		}
	}
}
