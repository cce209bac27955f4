package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tapbook/internal/pkg/response"
)

// RequestLogger writes one entry per request and recovers from panics. 5xx responses and
// errors attached with c.Error are logged at error level.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				entry(log, c, start).
					WithField("panic", fmt.Sprintf("%v", recovered)).
					WithField("stack", string(debug.Stack())).
					Error("panic recovered")
				response.Error(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
				c.Abort()
				return
			}

			e := entry(log, c, start)
			switch {
			case len(c.Errors) > 0:
				e.WithField("errors", c.Errors.String()).Error("request failed")
			case c.Writer.Status() >= http.StatusInternalServerError:
				e.Error("request failed")
			case c.Writer.Status() >= http.StatusBadRequest:
				e.Info("request rejected")
			default:
				e.Debug("request served")
			}
		}()

		c.Next()
	}
}

func entry(log logrus.FieldLogger, c *gin.Context, start time.Time) logrus.FieldLogger {
	return log.WithFields(logrus.Fields{
		"request_id": RequestIDFrom(c),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"status":     c.Writer.Status(),
		"client_ip":  c.ClientIP(),
		"user_id":    UserID(c),
		"role":       c.GetString(ctxRole),
		"latency_ms": time.Since(start).Milliseconds(),
	})
}
