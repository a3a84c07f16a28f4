package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	roomdomain "github.com/railzwaylabs/dormitory/internal/room/domain"
	"github.com/shopspring/decimal"
)

type createRoomRequest struct {
	Number      string          `json:"number" binding:"required"`
	Floor       int             `json:"floor"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
}

type createTenantRequest struct {
	Name       string  `json:"name" binding:"required"`
	Phone      *string `json:"phone"`
	LineUserID *string `json:"line_user_id"`
	MoveInDate string  `json:"move_in_date"`
}

type updateTenantStatusRequest struct {
	Status      string `json:"status" binding:"required"`
	MoveOutDate string `json:"move_out_date"`
}

func (s *Server) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.roomSvc.CreateRoom(c.Request.Context(), roomdomain.CreateRoomRequest{
		DormitoryID: dormitoryFromContext(c).ID,
		Number:      strings.TrimSpace(req.Number),
		Floor:       req.Floor,
		MonthlyRent: req.MonthlyRent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

func (s *Server) ListRooms(c *gin.Context) {
	resp, err := s.roomSvc.ListRooms(c.Request.Context(), dormitoryFromContext(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

func (s *Server) CreateTenant(c *gin.Context) {
	roomID, err := pathID(c, "roomId", roomdomain.ErrRoomNotFound)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	moveIn, err := parseDate("move_in_date", req.MoveInDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.roomSvc.CreateTenant(c.Request.Context(), roomdomain.CreateTenantRequest{
		DormitoryID: dormitoryFromContext(c).ID,
		RoomID:      roomID,
		Name:        strings.TrimSpace(req.Name),
		Phone:       req.Phone,
		LineUserID:  req.LineUserID,
		MoveInDate:  moveIn,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

// ListTenants filters by a comma separated status list when ?status is set.
func (s *Server) ListTenants(c *gin.Context) {
	var statuses []roomdomain.TenantStatus
	for _, raw := range strings.Split(c.Query("status"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		status := roomdomain.TenantStatus(raw)
		if !status.Valid() {
			AbortWithError(c, roomdomain.ErrInvalidStatus)
			return
		}
		statuses = append(statuses, status)
	}

	resp, err := s.roomSvc.ListTenants(c.Request.Context(), dormitoryFromContext(c).ID, statuses...)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

func (s *Server) UpdateTenantStatus(c *gin.Context) {
	tenantID, err := pathID(c, "tenantId", roomdomain.ErrTenantNotFound)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateTenantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	moveOut, err := parseDate("move_out_date", req.MoveOutDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.roomSvc.UpdateTenantStatus(c.Request.Context(), roomdomain.UpdateTenantStatusRequest{
		DormitoryID: dormitoryFromContext(c).ID,
		TenantID:    tenantID,
		Status:      roomdomain.TenantStatus(strings.TrimSpace(req.Status)),
		MoveOutDate: moveOut,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}
