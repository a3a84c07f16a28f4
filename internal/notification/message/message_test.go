package message

import (
	"testing"
	"time"

	"github.com/railzwaylabs/dormitory/internal/notification/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBaht(t *testing.T) {
	cases := map[string]string{
		"0":         "฿0.00",
		"100":       "฿100.00",
		"1000":      "฿1,000.00",
		"12345.5":   "฿12,345.50",
		"1234567.8": "฿1,234,567.80",
		"-250":      "-฿250.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatBaht(decimal.RequireFromString(in)), in)
	}
}

func TestRenderBillCreated(t *testing.T) {
	text, err := Render(domain.EventBillCreated, BillView{
		DormitoryName: "Baan Suk",
		RoomNumber:    "101",
		Month:         3,
		Year:          2026,
		TotalAmount:   decimal.NewFromInt(4500),
		DueDate:       time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Contains(t, text, "room 101")
	assert.Contains(t, text, "March 2026")
	assert.Contains(t, text, "฿4,500.00")
	assert.Contains(t, text, "05 Apr 2026")
}

func TestRenderPaymentReceived(t *testing.T) {
	text, err := Render(domain.EventPaymentReceived, BillView{
		RoomNumber:    "202",
		Month:         1,
		Year:          2026,
		PaymentAmount: decimal.NewFromInt(1000),
		PaymentMethod: "cash",
		Remaining:     decimal.NewFromInt(2000),
	})
	require.NoError(t, err)
	assert.Contains(t, text, "Amount: ฿1,000.00 via cash")
	assert.Contains(t, text, "Remaining: ฿2,000.00")
}

func TestRenderUtilityReading(t *testing.T) {
	text, err := Render(domain.EventUtilityReading, ReadingView{
		RoomNumber: "303",
		Kind:       "electric",
		Month:      2,
		Year:       2026,
		Previous:   decimal.NewFromInt(1200),
		Current:    decimal.NewFromInt(1350),
		UnitsUsed:  decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	assert.Contains(t, text, "electric meter read for room 303")
	assert.Contains(t, text, "Used: 150.00")
}

func TestRenderUnknownEvent(t *testing.T) {
	_, err := Render(domain.EventType("nope"), BillView{})
	require.ErrorIs(t, err, domain.ErrUnknownEvent)
}
