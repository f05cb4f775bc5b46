package services

import (
	"context"
	"errors"
	"testing"

	"troupe/internal/core"
)

type fakeFinanceStore struct {
	invoices map[string]core.Invoice
	payments map[string]core.Payment
	refunds  map[string]core.Refund
	budget   *core.Budget

	updateCalls []string
}

func newFakeFinanceStore() *fakeFinanceStore {
	return &fakeFinanceStore{
		invoices: map[string]core.Invoice{},
		payments: map[string]core.Payment{},
		refunds:  map[string]core.Refund{},
	}
}

func (f *fakeFinanceStore) CreateInvoice(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	if inv.ID == "" {
		inv.ID = core.NewID()
	}
	f.invoices[inv.ID] = inv
	return inv, nil
}

func (f *fakeFinanceStore) GetInvoice(_ context.Context, id string) (core.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return core.Invoice{}, core.ErrNotFound
	}
	return inv, nil
}

func (f *fakeFinanceStore) ListInvoices(context.Context) ([]core.Invoice, error) {
	var out []core.Invoice
	for _, inv := range f.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (f *fakeFinanceStore) UpdateInvoiceFields(_ context.Context, id string, fields map[string]any) (core.Invoice, error) {
	f.updateCalls = append(f.updateCalls, "invoice/"+id)
	inv, ok := f.invoices[id]
	if !ok {
		return core.Invoice{}, core.ErrNotFound
	}
	if v, ok := fields["paymentStatus"]; ok {
		inv.PaymentStatus = core.InvoiceStatus(v.(string))
	}
	if v, ok := fields["amount"]; ok {
		inv.Amount = core.Money{Cents: v.(int64)}
	}
	f.invoices[id] = inv
	return inv, nil
}

func (f *fakeFinanceStore) CreatePayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if p.ID == "" {
		p.ID = core.NewID()
	}
	f.payments[p.ID] = p
	return p, nil
}

func (f *fakeFinanceStore) GetPayment(_ context.Context, id string) (core.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return core.Payment{}, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeFinanceStore) ListPayments(context.Context) ([]core.Payment, error) {
	var out []core.Payment
	for _, p := range f.payments {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeFinanceStore) UpdatePaymentFields(_ context.Context, id string, fields map[string]any) (core.Payment, error) {
	f.updateCalls = append(f.updateCalls, "payment/"+id)
	p, ok := f.payments[id]
	if !ok {
		return core.Payment{}, core.ErrNotFound
	}
	if v, ok := fields["status"]; ok {
		p.Status = core.PaymentStatus(v.(string))
	}
	if v, ok := fields["amount"]; ok {
		p.Amount = core.Money{Cents: v.(int64)}
	}
	f.payments[id] = p
	return p, nil
}

func (f *fakeFinanceStore) CreateRefund(_ context.Context, ref core.Refund) (core.Refund, error) {
	if ref.ID == "" {
		ref.ID = core.NewID()
	}
	f.refunds[ref.ID] = ref
	return ref, nil
}

func (f *fakeFinanceStore) GetRefund(_ context.Context, id string) (core.Refund, error) {
	ref, ok := f.refunds[id]
	if !ok {
		return core.Refund{}, core.ErrNotFound
	}
	return ref, nil
}

func (f *fakeFinanceStore) ListRefunds(context.Context) ([]core.Refund, error) {
	var out []core.Refund
	for _, ref := range f.refunds {
		out = append(out, ref)
	}
	return out, nil
}

func (f *fakeFinanceStore) UpdateRefundFields(_ context.Context, id string, fields map[string]any) (core.Refund, error) {
	f.updateCalls = append(f.updateCalls, "refund/"+id)
	ref, ok := f.refunds[id]
	if !ok {
		return core.Refund{}, core.ErrNotFound
	}
	if v, ok := fields["status"]; ok {
		ref.Status = core.RefundStatus(v.(string))
	}
	f.refunds[id] = ref
	return ref, nil
}

func (f *fakeFinanceStore) GetBudget(context.Context) (core.Budget, error) {
	if f.budget == nil {
		return core.Budget{}, core.ErrNotFound
	}
	return *f.budget, nil
}

func (f *fakeFinanceStore) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = core.NewID()
	}
	f.budget = &b
	return b, nil
}

func (f *fakeFinanceStore) UpdateBudgetFields(_ context.Context, id string, fields map[string]any) (core.Budget, error) {
	f.updateCalls = append(f.updateCalls, "budget/"+id)
	if f.budget == nil || f.budget.ID != id {
		return core.Budget{}, core.ErrNotFound
	}
	b := *f.budget
	if v, ok := fields["allocatedBudget"]; ok {
		b.AllocatedBudget = core.Money{Cents: v.(int64)}
	}
	if v, ok := fields["currentSpend"]; ok {
		b.CurrentSpend = core.Money{Cents: v.(int64)}
	}
	if v, ok := fields["status"]; ok {
		b.Status = core.BudgetStatus(v.(string))
	}
	f.budget = &b
	return b, nil
}

type fakePublisher struct {
	published []string
	fail      bool
}

func (f *fakePublisher) PublishFinanceSync(_ context.Context, kind, id string) error {
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, kind+"/"+id)
	return nil
}

func TestFinanceService_UpdatePayment(t *testing.T) {
	store := newFakeFinanceStore()
	pub := &fakePublisher{}
	svc := NewFinanceService(store, pub)
	ctx := context.Background()

	p, _ := store.CreatePayment(ctx, core.Payment{
		ID:            "p1",
		Status:        core.PaymentAuthorized,
		PaymentMethod: "card",
		Amount:        core.Money{Cents: 2500},
	})

	updated, err := svc.UpdatePayment(ctx, p.ID, map[string]any{"status": "approved"})
	if err != nil {
		t.Fatalf("UpdatePayment() error = %v", err)
	}
	if updated.Status != core.PaymentApproved {
		t.Errorf("status = %v, want approved", updated.Status)
	}
	if len(pub.published) != 1 || pub.published[0] != "payment/p1" {
		t.Errorf("published = %v, want [payment/p1]", pub.published)
	}
}

func TestFinanceService_UpdateRejectsBadPatches(t *testing.T) {
	store := newFakeFinanceStore()
	svc := NewFinanceService(store, &fakePublisher{})
	ctx := context.Background()

	store.CreatePayment(ctx, core.Payment{ID: "p1", Status: core.PaymentAuthorized, PaymentMethod: "card", Amount: core.Money{Cents: 100}})

	tests := []struct {
		name  string
		patch map[string]any
	}{
		{"empty patch", map[string]any{}},
		{"unknown field", map[string]any{"color": "red"}},
		{"invalid status", map[string]any{"status": "teleported"}},
		{"negative amount", map[string]any{"amount": float64(-5)}},
		{"fractional cents", map[string]any{"amount": 10.5}},
		{"amount wrong type", map[string]any{"amount": "100"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdatePayment(ctx, "p1", tt.patch)
			if !errors.Is(err, ErrInvalidPatch) {
				t.Errorf("UpdatePayment() error = %v, want ErrInvalidPatch", err)
			}
		})
	}

	if len(store.updateCalls) != 0 {
		t.Errorf("store received %v, want no update calls for invalid patches", store.updateCalls)
	}
}

func TestFinanceService_UpdateSurvivesBrokerOutage(t *testing.T) {
	store := newFakeFinanceStore()
	svc := NewFinanceService(store, &fakePublisher{fail: true})
	ctx := context.Background()

	store.CreateInvoice(ctx, core.Invoice{
		ID:            "i1",
		InvoiceNumber: "INV-001",
		Amount:        core.Money{Cents: 15000},
		PaymentStatus: core.InvoicePending,
		Category:      "costumes",
	})

	updated, err := svc.UpdateInvoice(ctx, "i1", map[string]any{"paymentStatus": "paid"})
	if err != nil {
		t.Fatalf("UpdateInvoice() error = %v, publish failure must not fail the update", err)
	}
	if updated.PaymentStatus != core.InvoicePaid {
		t.Errorf("paymentStatus = %v, want paid", updated.PaymentStatus)
	}
}

func TestFinanceService_AmountConvertedToCents(t *testing.T) {
	store := newFakeFinanceStore()
	svc := NewFinanceService(store, &fakePublisher{})
	ctx := context.Background()

	store.CreateInvoice(ctx, core.Invoice{
		ID:            "i1",
		InvoiceNumber: "INV-001",
		Amount:        core.Money{Cents: 15000},
		PaymentStatus: core.InvoicePending,
		Category:      "costumes",
	})

	// JSON decoding hands numbers over as float64.
	updated, err := svc.UpdateInvoice(ctx, "i1", map[string]any{"amount": float64(22000)})
	if err != nil {
		t.Fatalf("UpdateInvoice() error = %v", err)
	}
	if updated.Amount.Cents != 22000 {
		t.Errorf("amount = %d cents, want 22000", updated.Amount.Cents)
	}
}

func TestFinanceService_Dashboard(t *testing.T) {
	store := newFakeFinanceStore()
	svc := NewFinanceService(store, &fakePublisher{})
	ctx := context.Background()

	store.CreatePayment(ctx, core.Payment{ID: "p1", Status: core.PaymentApproved, PaymentMethod: "card", Amount: core.Money{Cents: 100}})
	store.CreatePayment(ctx, core.Payment{ID: "p2", Status: core.PaymentAuthorized, PaymentMethod: "cash", Amount: core.Money{Cents: 200}})
	store.UpsertBudget(ctx, core.Budget{ID: "b1", AllocatedBudget: core.Money{Cents: 100000}, CurrentSpend: core.Money{Cents: 300}, Status: core.BudgetApproved})

	agg, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if len(agg.Payments) != 2 {
		t.Errorf("payments = %d, want 2", len(agg.Payments))
	}
	if len(agg.Expenses) != 1 || agg.Expenses[0].ID != "p1" {
		t.Errorf("expenses = %v, want only approved payment p1", agg.Expenses)
	}
	if agg.Budget.ID != "b1" {
		t.Errorf("budget ID = %q, want b1", agg.Budget.ID)
	}
}

func TestFinanceService_DashboardWithoutBudget(t *testing.T) {
	svc := NewFinanceService(newFakeFinanceStore(), &fakePublisher{})

	agg, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard() error = %v, missing budget should not fail", err)
	}
	if agg.Budget.ID != "" {
		t.Errorf("budget = %v, want zero value", agg.Budget)
	}
}
