package core

import (
	"testing"
	"time"
)

func TestStatusValidity(t *testing.T) {
	if !PaymentApproved.IsValid() || PaymentStatus("refunded").IsValid() {
		t.Fatal("payment status validity broken")
	}
	if !InvoicePaid.IsValid() || InvoiceStatus("overdue").IsValid() {
		t.Fatal("invoice status validity broken")
	}
	if !RefundRejected.IsValid() || RefundStatus("done").IsValid() {
		t.Fatal("refund status validity broken")
	}
	if !BudgetDeclined.IsValid() || BudgetStatus("open").IsValid() {
		t.Fatal("budget status validity broken")
	}
}

func TestInvoiceValidate(t *testing.T) {
	inv := Invoice{ID: NewID(), InvoiceNumber: "INV-001", Amount: Money{Cents: 5000}, PaymentStatus: InvoicePending, Category: "costumes"}
	if err := inv.Validate(); err != nil {
		t.Fatalf("valid invoice rejected: %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Invoice)
	}{
		{"empty number", func(i *Invoice) { i.InvoiceNumber = " " }},
		{"zero amount", func(i *Invoice) { i.Amount = Money{} }},
		{"bad status", func(i *Invoice) { i.PaymentStatus = "sent" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bad := inv
			tc.mut(&bad)
			if err := bad.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestPaymentValidate(t *testing.T) {
	p := Payment{ID: NewID(), Status: PaymentAuthorized, PaymentMethod: "card", Amount: Money{Cents: 100}}
	if err := p.Validate(); err != nil {
		t.Fatalf("valid payment rejected: %v", err)
	}
	p.PaymentMethod = ""
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for empty payment method")
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{ID: NewID(), AllocatedBudget: Money{Cents: 100000}, CurrentSpend: Money{Cents: 0}, Status: BudgetApproved}
	if err := b.Validate(); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}
	b.CurrentSpend = Money{Cents: -1}
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for negative spend")
	}
}

func TestEventValidate(t *testing.T) {
	e := Event{ID: NewID(), Title: "Spring showcase", Venue: "Main hall", Team: "seniors", StartsAt: time.Date(2026, 4, 12, 18, 0, 0, 0, time.UTC)}
	if err := e.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
	e.StartsAt = time.Time{}
	if err := e.Validate(); err == nil {
		t.Fatal("expected error for zero start time")
	}
}

func TestMemberValidate(t *testing.T) {
	m := Member{ID: NewID(), FullName: "Ada Lovelace", Email: "ada@example.com", Team: "seniors", Role: "dancer"}
	if err := m.Validate(); err != nil {
		t.Fatalf("valid member rejected: %v", err)
	}
	m.Email = "not-an-email"
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for invalid email")
	}
}
