package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	meterdomain "github.com/railzwaylabs/dormitory/internal/meterreading/domain"
	"github.com/shopspring/decimal"
)

type recordMeterReadingRequest struct {
	RoomID   snowflake.ID     `json:"room_id" binding:"required"`
	Month    int              `json:"month" binding:"required"`
	Year     int              `json:"year" binding:"required"`
	Kind     string           `json:"kind" binding:"required"`
	Previous *decimal.Decimal `json:"previous"`
	Current  decimal.Decimal  `json:"current"`
	ReadAt   string           `json:"read_at"`
}

func (s *Server) RecordMeterReading(c *gin.Context) {
	var req recordMeterReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	readAt, err := parseDate("read_at", req.ReadAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.meterSvc.Record(c.Request.Context(), meterdomain.RecordRequest{
		DormitoryID: dormitoryFromContext(c).ID,
		RoomID:      req.RoomID,
		Month:       req.Month,
		Year:        req.Year,
		Kind:        meterdomain.Kind(strings.TrimSpace(req.Kind)),
		Previous:    req.Previous,
		Current:     req.Current,
		ReadAt:      readAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

func (s *Server) ListMeterReadings(c *gin.Context) {
	month, err := optionalQueryInt(c, "month")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, err := optionalQueryInt(c, "year")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	roomID, err := optionalQueryID(c, "room_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.meterSvc.List(c.Request.Context(), dormitoryFromContext(c).ID, meterdomain.ListRequest{
		Month:  month,
		Year:   year,
		RoomID: roomID,
		Kind:   meterdomain.Kind(strings.TrimSpace(c.Query("kind"))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}
