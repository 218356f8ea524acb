package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wellpath/medtrack/util"
)

// EndpointCallLogger logs each HTTP request as an engine event. It relies on
// util.SetEventLoggerDB having been called during startup so events are also
// persisted to the event_logs table as the mutation audit trail.
func EndpointCallLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		details := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"raw_path":    c.Request.URL.Path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"query":       c.Request.URL.RawQuery,
		}

		util.LogEngineEvent(util.EngineEvent{
			EventType: util.EventEndpointCall,
			IP:        c.ClientIP(),
			Message:   fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
			Details:   details,
		})
	}
}
