package server

import (
	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/dormitory/internal/clock"
	"go.uber.org/zap"
)

// CheckNotifications runs the due/overdue scan on demand. An optional ?at=
// timestamp replays the scan as of that instant.
func (s *Server) CheckNotifications(c *gin.Context) {
	ctx := c.Request.Context()

	at, err := parseDate("at", c.Query("at"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	now := s.clock.Now(ctx)
	if at != nil {
		now = at.UTC()
		ctx = clock.WithTime(ctx, now)
	}

	result, err := s.scheduler.RunScan(ctx, now)
	if err != nil {
		s.log.Warn("on-demand scan failed", zap.Error(err))
		AbortWithError(c, err)
		return
	}

	respondData(c, result)
}
