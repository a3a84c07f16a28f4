package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billdomain "github.com/railzwaylabs/dormitory/internal/bill/domain"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	"github.com/shopspring/decimal"
)

type createBillRequest struct {
	RoomID   snowflake.ID      `json:"room_id" binding:"required"`
	TenantID snowflake.ID      `json:"tenant_id" binding:"required"`
	Month    int               `json:"month" binding:"required"`
	Year     int               `json:"year" binding:"required"`
	DueDate  string            `json:"due_date"`
	Items    []billItemRequest `json:"items"`
	Notes    *string           `json:"notes"`
}

type billItemRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Amount      decimal.Decimal     `json:"amount"`
	Category    string              `json:"category"`
	Reading     *billReadingRequest `json:"reading"`
}

type billReadingRequest struct {
	Previous  decimal.Decimal  `json:"previous"`
	Current   decimal.Decimal  `json:"current"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type recordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	PaymentMethod string          `json:"payment_method"`
	PaidAt        string          `json:"paid_at"`
	Reference     *string         `json:"reference"`
	EvidenceURL   *string         `json:"evidence_url"`
	RecordedBy    string          `json:"recorded_by"`
}

func (s *Server) CreateBill(c *gin.Context) {
	var req createBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	dorm := dormitoryFromContext(c)
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if dueDate == nil {
		dueDate = defaultDueDate(dorm, req.Month, req.Year)
	}

	items := make([]billdomain.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			name = strings.TrimSpace(it.Description)
		}
		item := billdomain.ItemInput{
			Name:     name,
			Amount:   it.Amount,
			Category: billdomain.Category(strings.TrimSpace(it.Category)),
		}
		if it.Reading != nil {
			item.Reading = &billdomain.ReadingInput{
				Previous:  it.Reading.Previous,
				Current:   it.Reading.Current,
				UnitPrice: it.Reading.UnitPrice,
			}
		}
		items = append(items, item)
	}

	resp, err := s.billSvc.Create(c.Request.Context(), billdomain.CreateRequest{
		DormitoryID: dorm.ID,
		RoomID:      req.RoomID,
		TenantID:    req.TenantID,
		Month:       req.Month,
		Year:        req.Year,
		DueDate:     *dueDate,
		Items:       items,
		Notes:       req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

// defaultDueDate puts the due date on the dormitory's due day of the month
// after the billing period.
func defaultDueDate(dorm *dormitorydomain.Dormitory, month, year int) *time.Time {
	if month < 1 || month > 12 {
		return &time.Time{}
	}
	day := dorm.DueDay
	if day < 1 {
		day = dormitorydomain.DefaultDueDay
	}
	due := time.Date(year, time.Month(month)+1, day, 0, 0, 0, 0, time.UTC)
	return &due
}

func (s *Server) ListBills(c *gin.Context) {
	var query struct {
		Status    string `form:"status"`
		Month     int    `form:"month"`
		Year      int    `form:"year"`
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	roomID, err := optionalQueryID(c, "room_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.billSvc.List(c.Request.Context(), dormitoryFromContext(c).ID, billdomain.ListRequest{
		Status:    billdomain.Status(strings.TrimSpace(query.Status)),
		Month:     query.Month,
		Year:      query.Year,
		RoomID:    roomID,
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondList(c, resp.Bills, resp.PageInfo)
}

func (s *Server) GetBill(c *gin.Context) {
	bill, ok := s.loadBill(c)
	if !ok {
		return
	}
	respondData(c, bill)
}

func (s *Server) RecordPayment(c *gin.Context) {
	billID, err := pathID(c, "billId", billdomain.ErrNotFound)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	paidAt, err := parseDate("paid_at", req.PaidAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = strings.TrimSpace(req.PaymentMethod)
	}

	resp, err := s.billSvc.RecordPayment(c.Request.Context(), billdomain.RecordPaymentRequest{
		DormitoryID: dormitoryFromContext(c).ID,
		BillID:      billID,
		Amount:      req.Amount,
		Method:      billdomain.Method(method),
		PaidAt:      paidAt,
		Reference:   req.Reference,
		EvidenceURL: req.EvidenceURL,
		RecordedBy:  req.RecordedBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, resp)
}

func (s *Server) CancelBill(c *gin.Context) {
	billID, err := pathID(c, "billId", billdomain.ErrNotFound)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.billSvc.Cancel(c.Request.Context(), dormitoryFromContext(c).ID, billID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

func (s *Server) loadBill(c *gin.Context) (*billdomain.Bill, bool) {
	billID, err := pathID(c, "billId", billdomain.ErrNotFound)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	bill, err := s.billSvc.Get(c.Request.Context(), dormitoryFromContext(c).ID, billID)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return bill, true
}
