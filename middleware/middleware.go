package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wellpath/medtrack/engine"
	"gorm.io/gorm"
)

const (
	dbContextKey        = "db"
	engineContextKey    = "engine"
	schedulerContextKey = "scheduler"
)

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Content-Type", "application/json")

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// DatabaseMiddleware injects the gorm connection into the request context.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbContextKey, db)
		c.Next()
	}
}

// GetDB returns the request-scoped gorm connection, or nil when the
// middleware was not installed.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbContextKey)
	if !ok {
		return nil
	}
	db, ok := v.(*gorm.DB)
	if !ok {
		return nil
	}
	return db
}

// EngineMiddleware injects the progress engine and its scheduler so handlers
// can record dispensations and mark enrollments stale.
func EngineMiddleware(e *engine.Engine, s *engine.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(engineContextKey, e)
		c.Set(schedulerContextKey, s)
		c.Next()
	}
}

// GetEngine returns the request-scoped engine, or nil.
func GetEngine(c *gin.Context) *engine.Engine {
	v, ok := c.Get(engineContextKey)
	if !ok {
		return nil
	}
	e, ok := v.(*engine.Engine)
	if !ok {
		return nil
	}
	return e
}

// GetScheduler returns the request-scoped scheduler, or nil.
func GetScheduler(c *gin.Context) *engine.Scheduler {
	v, ok := c.Get(schedulerContextKey)
	if !ok {
		return nil
	}
	s, ok := v.(*engine.Scheduler)
	if !ok {
		return nil
	}
	return s
}
