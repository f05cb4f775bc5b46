package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"

	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentApproved   PaymentStatus = "approved"
	PaymentFailed     PaymentStatus = "failed"

	RefundPending  RefundStatus = "pending"
	RefundApproved RefundStatus = "approved"
	RefundRejected RefundStatus = "rejected"

	BudgetApproved BudgetStatus = "approved"
	BudgetDeclined BudgetStatus = "declined"
)

type (
	InvoiceStatus string
	PaymentStatus string
	RefundStatus  string
	BudgetStatus  string

	// Invoice is a billing record issued by the team's billing flow.
	Invoice struct {
		ID            string        `json:"id"`
		InvoiceNumber string        `json:"invoiceNumber"`
		Amount        Money         `json:"amount"`
		PaymentStatus InvoiceStatus `json:"paymentStatus"`
		Category      string        `json:"category"`
	}

	Payment struct {
		ID            string        `json:"id"`
		Status        PaymentStatus `json:"status"`
		PaymentMethod string        `json:"paymentMethod"`
		Amount        Money         `json:"amount"`
	}

	Refund struct {
		ID           string       `json:"id"`
		RefundAmount Money        `json:"refundAmount"`
		Reason       string       `json:"reason"`
		Status       RefundStatus `json:"status"`
	}

	Budget struct {
		ID              string       `json:"id"`
		AllocatedBudget Money        `json:"allocatedBudget"`
		CurrentSpend    Money        `json:"currentSpend"`
		Status          BudgetStatus `json:"status"`
	}

	// Event is a scheduled rehearsal, performance or competition.
	Event struct {
		ID       string    `json:"id"`
		Title    string    `json:"title"`
		Venue    string    `json:"venue"`
		Team     string    `json:"team"`
		StartsAt time.Time `json:"startsAt"`
	}

	Member struct {
		ID       string `json:"id"`
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Team     string `json:"team"`
		Role     string `json:"role"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidStatus = errors.New("invalid status")
	ErrNotFound      = errors.New("not found")
)

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoicePending, InvoicePaid:
		return true
	}
	return false
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentAuthorized, PaymentCompleted, PaymentApproved, PaymentFailed:
		return true
	}
	return false
}

func (s RefundStatus) IsValid() bool {
	switch s {
	case RefundPending, RefundApproved, RefundRejected:
		return true
	}
	return false
}

func (s BudgetStatus) IsValid() bool {
	switch s {
	case BudgetApproved, BudgetDeclined:
		return true
	}
	return false
}

func (i Invoice) Validate() error {
	if strings.TrimSpace(i.InvoiceNumber) == "" {
		return errors.New("empty invoice number")
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if !i.PaymentStatus.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

func (p Payment) Validate() error {
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if !p.Status.IsValid() {
		return ErrInvalidStatus
	}
	if strings.TrimSpace(p.PaymentMethod) == "" {
		return errors.New("empty payment method")
	}
	return nil
}

func (r Refund) Validate() error {
	if err := r.RefundAmount.Validate(); err != nil {
		return err
	}
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	if strings.TrimSpace(r.Reason) == "" {
		return errors.New("empty refund reason")
	}
	return nil
}

func (b Budget) Validate() error {
	if b.AllocatedBudget.Cents < 0 || b.CurrentSpend.Cents < 0 {
		return ErrInvalidAmount
	}
	if !b.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("empty event title")
	}
	if len(e.Title) > 200 {
		return errors.New("event title too long (max 200 characters)")
	}
	if strings.TrimSpace(e.Team) == "" {
		return errors.New("empty team")
	}
	if e.StartsAt.IsZero() {
		return errors.New("event start time not set")
	}
	return nil
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.FullName) == "" {
		return errors.New("empty member name")
	}
	if !strings.Contains(m.Email, "@") {
		return errors.New("invalid email address")
	}
	if strings.TrimSpace(m.Team) == "" {
		return errors.New("empty team")
	}
	return nil
}
