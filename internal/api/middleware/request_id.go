package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const (
	// RequestIDHeader is the HTTP header for request tracing.
	RequestIDHeader = "X-Request-ID"

	ctxKeyRequestID contextKey = "request_id"
	ctxKeyParentID  contextKey = "parent_id"
	ctxKeyEmail     contextKey = "email"
)

// RequestID injects a unique request ID into the context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Set(string(ctxKeyRequestID), rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), ctxKeyRequestID, rid),
		)
		c.Next()
	}
}

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// SetParentContext stores the authenticated parent account in context.
func SetParentContext(ctx context.Context, parentID, email string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyParentID, parentID)
	ctx = context.WithValue(ctx, ctxKeyEmail, email)
	return ctx
}

// GetParentID extracts the authenticated parent ID from context.
func GetParentID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyParentID).(string); ok {
		return v
	}
	return ""
}

// GetEmail extracts the authenticated email from context.
func GetEmail(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyEmail).(string); ok {
		return v
	}
	return ""
}
