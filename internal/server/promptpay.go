package server

import (
	"github.com/gin-gonic/gin"
	billdomain "github.com/railzwaylabs/dormitory/internal/bill/domain"
	dormitorydomain "github.com/railzwaylabs/dormitory/internal/dormitory/domain"
	"github.com/railzwaylabs/dormitory/internal/promptpay"
	"github.com/shopspring/decimal"
)

type promptPayResponse struct {
	BillID    string          `json:"bill_id"`
	PayeeName string          `json:"payee_name"`
	Amount    decimal.Decimal `json:"amount"`
	Payload   string          `json:"payload"`
}

// GetBillPromptPay renders the QR payload for the bill's outstanding balance.
func (s *Server) GetBillPromptPay(c *gin.Context) {
	bill, ok := s.loadBill(c)
	if !ok {
		return
	}
	if bill.Status == billdomain.StatusCancelled {
		AbortWithError(c, billdomain.ErrInvalidState)
		return
	}

	cfg, err := s.dormitorySvc.GetPromptPayConfig(c.Request.Context(), bill.DormitoryID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !cfg.Active {
		AbortWithError(c, dormitorydomain.ErrPromptPayNotFound)
		return
	}

	amount := bill.Remaining()
	payload, err := promptpay.BuildPayload(cfg.PayeeID, amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, promptPayResponse{
		BillID:    bill.ID.String(),
		PayeeName: cfg.DisplayName,
		Amount:    amount,
		Payload:   payload,
	})
}
