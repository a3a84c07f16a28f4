package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
)

type createDormitoryRequest struct {
	Name    string  `json:"name" binding:"required"`
	Address *string `json:"address"`
	DueDay  int     `json:"due_day" binding:"omitempty,min=1,max=28"`
}

type upsertNotificationConfigRequest struct {
	Channel     string          `json:"channel" binding:"required"`
	Destination string          `json:"destination"`
	Credential  *string         `json:"credential"`
	Active      *bool           `json:"active"`
	Events      map[string]bool `json:"events"`
}

type upsertPromptPayConfigRequest struct {
	PayeeID     string `json:"payee_id" binding:"required"`
	DisplayName string `json:"display_name"`
	Active      *bool  `json:"active"`
}

func (s *Server) CreateDormitory(c *gin.Context) {
	var req createDormitoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.dormitorySvc.Create(c.Request.Context(), dormitorydomain.CreateRequest{
		Name:    strings.TrimSpace(req.Name),
		Address: req.Address,
		DueDay:  req.DueDay,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

func (s *Server) ListDormitories(c *gin.Context) {
	resp, err := s.dormitorySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

func (s *Server) GetDormitory(c *gin.Context) {
	respondData(c, dormitoryFromContext(c))
}

func (s *Server) UpsertNotificationConfig(c *gin.Context) {
	var req upsertNotificationConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	resp, err := s.dormitorySvc.UpsertNotificationConfig(c.Request.Context(), dormitorydomain.UpsertNotificationConfigRequest{
		DormitoryID: dormitoryFromContext(c).ID,
		Channel:     strings.TrimSpace(req.Channel),
		Destination: strings.TrimSpace(req.Destination),
		Credential:  req.Credential,
		Active:      active,
		Events:      req.Events,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

func (s *Server) GetNotificationConfig(c *gin.Context) {
	resp, err := s.dormitorySvc.GetNotificationConfig(c.Request.Context(), dormitoryFromContext(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

func (s *Server) UpsertPromptPayConfig(c *gin.Context) {
	var req upsertPromptPayConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	resp, err := s.dormitorySvc.UpsertPromptPayConfig(c.Request.Context(), dormitorydomain.UpsertPromptPayConfigRequest{
		DormitoryID: dormitoryFromContext(c).ID,
		PayeeID:     strings.TrimSpace(req.PayeeID),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Active:      active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

func (s *Server) GetPromptPayConfig(c *gin.Context) {
	resp, err := s.dormitorySvc.GetPromptPayConfig(c.Request.Context(), dormitoryFromContext(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}
