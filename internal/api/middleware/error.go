package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smartdash/energy-backend-go/pkg/errors"
)

// ErrorHandlingMiddleware recovers panics and converts them to JSON error
// responses.
func ErrorHandlingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"ip":          c.ClientIP(),
			"request_id":  getRequestID(c),
			"panic":       fmt.Sprintf("%v", recovered),
			"stack_trace": string(debug.Stack()),
		}).Error("Panic recovered in API middleware")

		sendErrorResponse(c, errors.ErrInternalServer)
		c.Abort()
	})
}

// ErrorResponseMiddleware converts errors attached to the gin context into
// standardized responses.
func ErrorResponseMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		appErr, ok := errors.AsAppError(err)
		if !ok {
			appErr = errors.Wrap(err, http.StatusInternalServerError, "Request processing error")
		}

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"code":       appErr.Code,
			"request_id": getRequestID(c),
			"error":      err.Error(),
		}).Error("API request error")

		if !c.Writer.Written() {
			sendErrorResponse(c, appErr)
		}
	}
}

func sendErrorResponse(c *gin.Context, err *errors.AppError) {
	response := gin.H{
		"success":   false,
		"error":     err.Message,
		"code":      err.Code,
		"timestamp": time.Now().Format(time.RFC3339),
		"path":      c.Request.URL.Path,
		"method":    c.Request.Method,
	}
	if requestID := getRequestID(c); requestID != "" {
		response["request_id"] = requestID
	}
	c.JSON(err.Code, response)
}

func getRequestID(c *gin.Context) string {
	if requestID := c.GetHeader("X-Request-ID"); requestID != "" {
		return requestID
	}
	return c.GetString("request_id")
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("%d-%d", time.Now().UnixNano(),
				hashString(c.ClientIP()+c.Request.UserAgent()))
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Simple hash function for request ID generation
func hashString(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h *= 16777619
		h ^= uint32(s[i])
	}
	return h
}
