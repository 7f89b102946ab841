package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// scrubHeaders hides credentials before headers reach the log.
func scrubHeaders(h http.Header) http.Header {
	clone := h.Clone()
	for k := range clone {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "authorization") || strings.Contains(lk, "cookie") {
			clone[k] = []string{"[redacted]"}
		}
	}
	return clone
}

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ce := log.Check(zap.DebugLevel, "incoming request"); ce != nil {
			reqHeaders, _ := json.Marshal(scrubHeaders(c.Request.Header))
			ce.Write(
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("origin", c.GetHeader("Origin")),
				zap.ByteString("hdr", reqHeaders),
			)
		}

		ts := time.Now()
		c.Next()

		latency := time.Since(ts)
		respStatus := c.Writer.Status()

		// Errors the handlers attached with c.Error; only internal failures end up here.
		for _, e := range c.Errors {
			log.Error("handler error",
				zap.Int("status", respStatus),
				zap.Error(e.Err),
				zap.String("path", c.Request.URL.Path),
			)
		}

		fields := []zap.Field{
			zap.Int("status", respStatus),
			zap.Duration("latency", latency),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("ip", c.ClientIP()),
		}
		if respStatus >= http.StatusInternalServerError {
			log.Warn("request failed", fields...)
			return
		}
		log.Info("request completed", fields...)
	}
}
