// Package middleware contains Gin middleware for the application.
package middleware

import (
	"context"

	"github.com/CrowdSynth/coordinator/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderXCorrelationID is the header key for the correlation ID.
const HeaderXCorrelationID = "X-Correlation-ID"

// CorrelationID adds a correlation ID to the request context. For the /ws
// upgrade route this is the only correlation the HTTP layer ever sees: once
// the socket is upgraded the gateway keeps running against the
// context.Context carried off of c.Request, not against the gin.Context,
// for the lifetime of the connection, so the ID has to live there rather
// than in gin's own key-value store.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderXCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		// Set in header for response
		c.Header(HeaderXCorrelationID, correlationID)

		ctx := context.WithValue(c.Request.Context(), logging.CorrelationIDKey, correlationID)
		c.Request = c.Request.WithContext(ctx)

		// Pass to next handlers
		c.Next()
	}
}
