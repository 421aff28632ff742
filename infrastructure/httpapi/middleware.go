package httpapi

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"speech-transcriber/infrastructure/logging"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const loggerKey = "logger"

// requestLogger tags each request with an id and logs it when done
func requestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		entry, reqID := log.WithRequest(c.Request)
		c.Set(loggerKey, entry)
		c.Header(logging.RequestIDHeader, reqID)

		c.Next()

		entry.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start),
		}).Info("request handled")
	}
}

// recovery turns handler panics into a 500 and logs the stack
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestLog(c).WithFields(logrus.Fields{
					"error": fmt.Sprintf("%v", r),
					"stack": string(debug.Stack()),
				}).Error("panic recovered")
				respondStatus(c, http.StatusInternalServerError, "internal", "Internal server error.")
			}
		}()
		c.Next()
	}
}

func requestLog(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(loggerKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logging.Discard()
}
