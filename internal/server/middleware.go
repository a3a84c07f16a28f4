package server

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	"go.uber.org/zap"
)

const contextDormitoryKey = "dormitory"

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error("request", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}

// DormitoryContext resolves the :id path segment and aborts with 404 when the
// dormitory does not exist.
func (s *Server) DormitoryContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
		if err != nil {
			AbortWithError(c, dormitorydomain.ErrNotFound)
			return
		}
		dorm, err := s.dormitorySvc.Get(c.Request.Context(), id)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(contextDormitoryKey, dorm)
		c.Next()
	}
}

func dormitoryFromContext(c *gin.Context) *dormitorydomain.Dormitory {
	v, _ := c.Get(contextDormitoryKey)
	dorm, _ := v.(*dormitorydomain.Dormitory)
	return dorm
}

// CronSecretRequired accepts the secret in X-Cron-Secret or as a bearer
// token. An empty CRON_SECRET leaves the endpoint open.
func (s *Server) CronSecretRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := s.cfg.Cron.Secret
		if secret == "" {
			c.Next()
			return
		}

		provided := strings.TrimSpace(c.GetHeader("X-Cron-Secret"))
		if provided == "" {
			parts := strings.Fields(c.GetHeader("Authorization"))
			if len(parts) == 2 && parts[0] == "Bearer" {
				provided = parts[1]
			}
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}
