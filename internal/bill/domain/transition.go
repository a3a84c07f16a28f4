package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var transitions = map[Status][]Status{
	StatusPending:       {StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled},
	StatusPartiallyPaid: {StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled},
	StatusOverdue:       {StatusPartiallyPaid, StatusPaid, StatusCancelled},
}

// CanTransition reports whether a bill in from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplyPayment records p against the bill in memory.
func (b *Bill) ApplyPayment(p Payment) error {
	if b.Status.Terminal() {
		return ErrInvalidState
	}
	if !p.Amount.IsPositive() || p.Amount.GreaterThan(b.Remaining()) {
		return ErrInvalidAmount
	}

	next := StatusPartiallyPaid
	if p.Amount.Equal(b.Remaining()) {
		next = StatusPaid
	}
	if !CanTransition(b.Status, next) {
		return ErrInvalidState
	}

	b.Payments = append(b.Payments, p)
	b.PaidAmount = b.PaidAmount.Add(p.Amount)
	b.RemainingAmount = b.Remaining()
	b.Status = next
	if next == StatusPaid && b.PaidAt == nil {
		paidAt := p.PaidAt
		b.PaidAt = &paidAt
	}
	b.UpdatedAt = p.CreatedAt
	return nil
}

// MarkOverdue moves an open bill past its due date to overdue.
func (b *Bill) MarkOverdue(now time.Time) error {
	if !now.After(b.DueDate) || !CanTransition(b.Status, StatusOverdue) {
		return ErrInvalidState
	}
	b.Status = StatusOverdue
	b.UpdatedAt = now
	return nil
}

func (b *Bill) Cancel(now time.Time) error {
	if !CanTransition(b.Status, StatusCancelled) {
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
	return nil
}

// ReminderDue reports whether an open bill falls due in (now, now+window].
func (b *Bill) ReminderDue(now time.Time, window time.Duration) bool {
	if b.Status != StatusPending && b.Status != StatusPartiallyPaid {
		return false
	}
	return b.DueDate.After(now) && !b.DueDate.After(now.Add(window))
}

// SumItems totals line item amounts.
func SumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}
