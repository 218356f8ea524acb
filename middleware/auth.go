package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wellpath/medtrack/util"
)

// ServiceAuth validates the bearer service token on mutation endpoints.
// User and session management live in the administrative system; this
// middleware only checks that the caller holds a token signed with the
// shared secret. With no secret configured (dev mode) every request passes.
func ServiceAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !util.JWTSecretConfigured() {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			util.LogEngineEvent(util.EngineEvent{
				EventType: util.EventUnauthorizedAccess,
				IP:        c.ClientIP(),
				Message:   fmt.Sprintf("missing bearer token on %s %s", c.Request.Method, c.Request.URL.Path),
			})
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Missing bearer token",
				Err: fmt.Errorf("authorization header absent or malformed"),
			})
			c.Abort()
			return
		}

		if err := util.ValidateServiceToken(token); err != nil {
			util.LogEngineEvent(util.EngineEvent{
				EventType: util.EventUnauthorizedAccess,
				IP:        c.ClientIP(),
				Message:   fmt.Sprintf("invalid service token on %s %s", c.Request.Method, c.Request.URL.Path),
			})
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Invalid service token",
				Err: err,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
