package message

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/railzwaylabs/dormitory/internal/notification/domain"
	"github.com/shopspring/decimal"
)

// BillView is the data every bill message is rendered from.
type BillView struct {
	DormitoryName string
	RoomNumber    string
	Month         int
	Year          int
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	Remaining     decimal.Decimal
	DueDate       time.Time
	PaymentAmount decimal.Decimal
	PaymentMethod string
}

// ReadingView feeds the utility reading message.
type ReadingView struct {
	DormitoryName string
	RoomNumber    string
	Kind          string
	Month         int
	Year          int
	Previous      decimal.Decimal
	Current       decimal.Decimal
	UnitsUsed     decimal.Decimal
}

var funcs = template.FuncMap{
	"baht":   FormatBaht,
	"period": Period,
	"date":   func(t time.Time) string { return t.Format("02 Jan 2006") },
	"units":  func(d decimal.Decimal) string { return d.StringFixed(2) },
}

var templates = template.Must(template.New("notification").Funcs(funcs).Parse(`
{{define "billCreated"}}[{{.DormitoryName}}] New bill for room {{.RoomNumber}}
Period: {{period .Month .Year}}
Total: {{baht .TotalAmount}}
Due: {{date .DueDate}}{{end}}
{{define "billDueReminder"}}[{{.DormitoryName}}] Reminder: room {{.RoomNumber}} bill for {{period .Month .Year}} is due {{date .DueDate}}
Outstanding: {{baht .Remaining}}{{end}}
{{define "billOverdue"}}[{{.DormitoryName}}] Overdue: room {{.RoomNumber}} bill for {{period .Month .Year}} was due {{date .DueDate}}
Outstanding: {{baht .Remaining}}{{end}}
{{define "paymentReceived"}}[{{.DormitoryName}}] Payment received for room {{.RoomNumber}} ({{period .Month .Year}})
Amount: {{baht .PaymentAmount}}{{if .PaymentMethod}} via {{.PaymentMethod}}{{end}}
Remaining: {{baht .Remaining}}{{end}}
{{define "utilityReading"}}[{{.DormitoryName}}] {{.Kind}} meter read for room {{.RoomNumber}} ({{period .Month .Year}})
Previous: {{units .Previous}} Current: {{units .Current}} Used: {{units .UnitsUsed}}{{end}}
`))

// Render produces the message text for a bill event.
func Render(event domain.EventType, view any) (string, error) {
	if !event.Valid() {
		return "", domain.ErrUnknownEvent
	}
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, string(event), view); err != nil {
		return "", fmt.Errorf("render %s: %w", event, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// FormatBaht renders 12345.5 as "฿12,345.50".
func FormatBaht(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "฿" + grouped.String() + "." + frac
}

func Period(month, year int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%02d/%d", month, year)
	}
	return fmt.Sprintf("%s %d", time.Month(month).String(), year)
}
