// Package services orchestrates finance and roster operations across
// SQLite and AMQP.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"troupe/internal/core"
	"troupe/internal/dashboard"
)

// ErrInvalidPatch marks a partial update that fails validation before
// it reaches storage.
var ErrInvalidPatch = errors.New("invalid patch")

// FinanceStore is the slice of the repository the finance service needs.
type FinanceStore interface {
	CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
	GetInvoice(ctx context.Context, id string) (core.Invoice, error)
	ListInvoices(ctx context.Context) ([]core.Invoice, error)
	UpdateInvoiceFields(ctx context.Context, id string, fields map[string]any) (core.Invoice, error)

	CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
	GetPayment(ctx context.Context, id string) (core.Payment, error)
	ListPayments(ctx context.Context) ([]core.Payment, error)
	UpdatePaymentFields(ctx context.Context, id string, fields map[string]any) (core.Payment, error)

	CreateRefund(ctx context.Context, ref core.Refund) (core.Refund, error)
	GetRefund(ctx context.Context, id string) (core.Refund, error)
	ListRefunds(ctx context.Context) ([]core.Refund, error)
	UpdateRefundFields(ctx context.Context, id string, fields map[string]any) (core.Refund, error)

	GetBudget(ctx context.Context) (core.Budget, error)
	UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	UpdateBudgetFields(ctx context.Context, id string, fields map[string]any) (core.Budget, error)
}

// Publisher emits change notifications for the report worker.
type Publisher interface {
	PublishFinanceSync(ctx context.Context, kind, id string) error
}

type FinanceService struct {
	store     FinanceStore
	publisher Publisher
}

func NewFinanceService(store FinanceStore, publisher Publisher) *FinanceService {
	return &FinanceService{store: store, publisher: publisher}
}

// Allowed patch fields per entity kind, keyed by wire name. The bool
// marks fields holding a money amount that arrives as a decimal number.
var (
	invoicePatchFields = map[string]bool{
		"invoiceNumber": false,
		"amount":        true,
		"paymentStatus": false,
		"category":      false,
	}
	paymentPatchFields = map[string]bool{
		"status":        false,
		"paymentMethod": false,
		"amount":        true,
	}
	refundPatchFields = map[string]bool{
		"refundAmount": true,
		"reason":       false,
		"status":       false,
	}
	budgetPatchFields = map[string]bool{
		"allocatedBudget": true,
		"currentSpend":    true,
		"status":          false,
	}
)

// ---- creation ----

func (s *FinanceService) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, fmt.Errorf("%w: %s", ErrInvalidPatch, err)
	}
	created, err := s.store.CreateInvoice(ctx, inv)
	if err != nil {
		return core.Invoice{}, err
	}
	s.publish(ctx, "invoice", created.ID)
	return created, nil
}

func (s *FinanceService) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, fmt.Errorf("%w: %s", ErrInvalidPatch, err)
	}
	created, err := s.store.CreatePayment(ctx, p)
	if err != nil {
		return core.Payment{}, err
	}
	s.publish(ctx, "payment", created.ID)
	return created, nil
}

func (s *FinanceService) CreateRefund(ctx context.Context, ref core.Refund) (core.Refund, error) {
	if err := ref.Validate(); err != nil {
		return core.Refund{}, fmt.Errorf("%w: %s", ErrInvalidPatch, err)
	}
	created, err := s.store.CreateRefund(ctx, ref)
	if err != nil {
		return core.Refund{}, err
	}
	s.publish(ctx, "refund", created.ID)
	return created, nil
}

func (s *FinanceService) SetBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("%w: %s", ErrInvalidPatch, err)
	}
	return s.store.UpsertBudget(ctx, b)
}

// ---- reads ----

func (s *FinanceService) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

func (s *FinanceService) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	return s.store.ListInvoices(ctx)
}

func (s *FinanceService) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	return s.store.GetPayment(ctx, id)
}

func (s *FinanceService) ListPayments(ctx context.Context) ([]core.Payment, error) {
	return s.store.ListPayments(ctx)
}

func (s *FinanceService) GetRefund(ctx context.Context, id string) (core.Refund, error) {
	return s.store.GetRefund(ctx, id)
}

func (s *FinanceService) ListRefunds(ctx context.Context) ([]core.Refund, error) {
	return s.store.ListRefunds(ctx)
}

func (s *FinanceService) GetBudget(ctx context.Context) (core.Budget, error) {
	return s.store.GetBudget(ctx)
}

// Dashboard assembles the full finance aggregate. Expenses are derived
// from payments so they can never drift out of step.
func (s *FinanceService) Dashboard(ctx context.Context) (core.DashboardAggregate, error) {
	invoices, err := s.store.ListInvoices(ctx)
	if err != nil {
		return core.DashboardAggregate{}, fmt.Errorf("list invoices: %w", err)
	}
	payments, err := s.store.ListPayments(ctx)
	if err != nil {
		return core.DashboardAggregate{}, fmt.Errorf("list payments: %w", err)
	}
	refunds, err := s.store.ListRefunds(ctx)
	if err != nil {
		return core.DashboardAggregate{}, fmt.Errorf("list refunds: %w", err)
	}
	budget, err := s.store.GetBudget(ctx)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return core.DashboardAggregate{}, fmt.Errorf("get budget: %w", err)
	}

	return core.DashboardAggregate{
		Invoices: invoices,
		Payments: payments,
		Refunds:  refunds,
		Expenses: dashboard.ProjectExpenses(payments),
		Budget:   budget,
	}, nil
}

// ---- partial updates ----

func (s *FinanceService) UpdateInvoice(ctx context.Context, id string, patch map[string]any) (core.Invoice, error) {
	fields, err := validatePatch(patch, invoicePatchFields, func(f string, v any) error {
		if f == "paymentStatus" && !core.InvoiceStatus(asString(v)).IsValid() {
			return fmt.Errorf("unknown payment status %q", v)
		}
		return nil
	})
	if err != nil {
		return core.Invoice{}, err
	}
	updated, err := s.store.UpdateInvoiceFields(ctx, id, fields)
	if err != nil {
		return core.Invoice{}, err
	}
	s.publish(ctx, "invoice", id)
	return updated, nil
}

func (s *FinanceService) UpdatePayment(ctx context.Context, id string, patch map[string]any) (core.Payment, error) {
	fields, err := validatePatch(patch, paymentPatchFields, func(f string, v any) error {
		if f == "status" && !core.PaymentStatus(asString(v)).IsValid() {
			return fmt.Errorf("unknown payment status %q", v)
		}
		return nil
	})
	if err != nil {
		return core.Payment{}, err
	}
	updated, err := s.store.UpdatePaymentFields(ctx, id, fields)
	if err != nil {
		return core.Payment{}, err
	}
	s.publish(ctx, "payment", id)
	return updated, nil
}

func (s *FinanceService) UpdateRefund(ctx context.Context, id string, patch map[string]any) (core.Refund, error) {
	fields, err := validatePatch(patch, refundPatchFields, func(f string, v any) error {
		if f == "status" && !core.RefundStatus(asString(v)).IsValid() {
			return fmt.Errorf("unknown refund status %q", v)
		}
		return nil
	})
	if err != nil {
		return core.Refund{}, err
	}
	updated, err := s.store.UpdateRefundFields(ctx, id, fields)
	if err != nil {
		return core.Refund{}, err
	}
	s.publish(ctx, "refund", id)
	return updated, nil
}

func (s *FinanceService) UpdateBudget(ctx context.Context, id string, patch map[string]any) (core.Budget, error) {
	fields, err := validatePatch(patch, budgetPatchFields, func(f string, v any) error {
		if f == "status" && !core.BudgetStatus(asString(v)).IsValid() {
			return fmt.Errorf("unknown budget status %q", v)
		}
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	return s.store.UpdateBudgetFields(ctx, id, fields)
}

func (s *FinanceService) publish(ctx context.Context, kind, id string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Publisher not available, skipping sync message", "kind", kind, "id", id)
		return
	}
	// A dead broker must not fail the request, the row is already saved.
	if err := s.publisher.PublishFinanceSync(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", kind, "id", id, "error", err)
	}
}

// validatePatch rejects unknown fields and converts money amounts from
// JSON numbers into cents for storage.
func validatePatch(patch map[string]any, allowed map[string]bool, check func(field string, value any) error) (map[string]any, error) {
	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: empty patch", ErrInvalidPatch)
	}

	fields := make(map[string]any, len(patch))
	for f, v := range patch {
		isMoney, ok := allowed[f]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidPatch, f)
		}
		if err := check(f, v); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPatch, err)
		}
		if isMoney {
			cents, err := asCents(v)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q: %s", ErrInvalidPatch, f, err)
			}
			fields[f] = cents
			continue
		}
		fields[f] = v
	}
	return fields, nil
}

// asCents accepts the numeric shapes JSON decoding produces. Amounts
// are plain cent integers on the wire.
func asCents(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		if n < 0 {
			return 0, errors.New("amount must not be negative")
		}
		return n, nil
	case int:
		if n < 0 {
			return 0, errors.New("amount must not be negative")
		}
		return int64(n), nil
	case float64:
		if n < 0 {
			return 0, errors.New("amount must not be negative")
		}
		if n != math.Trunc(n) {
			return 0, errors.New("amount must be an integer number of cents")
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("amount has unsupported type %T", v)
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
