// Package dashboard keeps a client-held finance aggregate consistent
// with authoritative server state after targeted field updates.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"troupe/internal/core"
)

const (
	KindInvoice Kind = "invoice"
	KindPayment Kind = "payment"
	KindRefund  Kind = "refund"
	KindBudget  Kind = "budget"
)

type (
	// Kind selects which aggregate sequence to search and which remote
	// endpoint to call.
	Kind string

	// Patch maps wire field names to new values. Amounts are integer
	// cents, statuses are strings.
	Patch map[string]any
)

func (k Kind) IsValid() bool {
	switch k {
	case KindInvoice, KindPayment, KindRefund, KindBudget:
		return true
	}
	return false
}

// Gateway is the remote update endpoint, one typed method per entity
// kind. A successful call returns the full authoritative record.
type Gateway interface {
	UpdateInvoice(ctx context.Context, id string, patch Patch) (core.Invoice, error)
	UpdatePayment(ctx context.Context, id string, patch Patch) (core.Payment, error)
	UpdateRefund(ctx context.Context, id string, patch Patch) (core.Refund, error)
	UpdateBudget(ctx context.Context, id string, patch Patch) (core.Budget, error)
}

// Reconciler applies one server-confirmed field change to one entity
// inside a DashboardAggregate. It owns the transition from "old
// aggregate + server response" to "new aggregate"; at most one
// reconciliation may be outstanding per entity identity.
type Reconciler struct {
	gw Gateway

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewReconciler(gw Gateway) *Reconciler {
	return &Reconciler{
		gw:       gw,
		inflight: make(map[string]struct{}),
	}
}

// Reconcile issues the remote update for kind/id and returns the new
// aggregate with exactly that entity replaced. The input aggregate is
// never mutated; on any failure it is returned unchanged.
//
// If no patched field would change the entity, Reconcile is a no-op and
// performs zero gateway calls.
func (r *Reconciler) Reconcile(ctx context.Context, agg core.DashboardAggregate, kind Kind, id string, patch Patch) (core.DashboardAggregate, error) {
	if !kind.IsValid() {
		return agg, fmt.Errorf("unknown entity kind %q", kind)
	}

	if !r.acquire(kind, id) {
		return agg, fmt.Errorf("%w: %s %s", ErrUpdateInFlight, kind, id)
	}
	defer r.release(kind, id)

	switch kind {
	case KindInvoice:
		return r.reconcileInvoice(ctx, agg, id, patch)
	case KindPayment:
		return r.reconcilePayment(ctx, agg, id, patch)
	case KindRefund:
		return r.reconcileRefund(ctx, agg, id, patch)
	default:
		return r.reconcileBudget(ctx, agg, id, patch)
	}
}

func (r *Reconciler) reconcileInvoice(ctx context.Context, agg core.DashboardAggregate, id string, patch Patch) (core.DashboardAggregate, error) {
	idx := indexByID(agg.Invoices, id, func(v core.Invoice) string { return v.ID })
	if idx < 0 {
		return agg, fmt.Errorf("%w: invoice %s", ErrEntityNotFound, id)
	}
	if noChange(patch, invoiceField(agg.Invoices[idx])) {
		return agg, nil
	}

	updated, err := r.gw.UpdateInvoice(ctx, id, patch)
	if err != nil {
		return agg, classify(err)
	}
	if ctx.Err() != nil {
		return agg, ErrStaleAggregate
	}

	next := agg
	next.Invoices = replaceAt(agg.Invoices, idx, updated)
	return next, nil
}

func (r *Reconciler) reconcilePayment(ctx context.Context, agg core.DashboardAggregate, id string, patch Patch) (core.DashboardAggregate, error) {
	idx := indexByID(agg.Payments, id, func(v core.Payment) string { return v.ID })
	if idx < 0 {
		return agg, fmt.Errorf("%w: payment %s", ErrEntityNotFound, id)
	}
	if noChange(patch, paymentField(agg.Payments[idx])) {
		return agg, nil
	}

	updated, err := r.gw.UpdatePayment(ctx, id, patch)
	if err != nil {
		return agg, classify(err)
	}
	if ctx.Err() != nil {
		return agg, ErrStaleAggregate
	}

	next := agg
	next.Payments = replaceAt(agg.Payments, idx, updated)
	next.Expenses = UpdateExpenses(agg.Expenses, updated)
	return next, nil
}

func (r *Reconciler) reconcileRefund(ctx context.Context, agg core.DashboardAggregate, id string, patch Patch) (core.DashboardAggregate, error) {
	idx := indexByID(agg.Refunds, id, func(v core.Refund) string { return v.ID })
	if idx < 0 {
		return agg, fmt.Errorf("%w: refund %s", ErrEntityNotFound, id)
	}
	if noChange(patch, refundField(agg.Refunds[idx])) {
		return agg, nil
	}

	updated, err := r.gw.UpdateRefund(ctx, id, patch)
	if err != nil {
		return agg, classify(err)
	}
	if ctx.Err() != nil {
		return agg, ErrStaleAggregate
	}

	next := agg
	next.Refunds = replaceAt(agg.Refunds, idx, updated)
	return next, nil
}

func (r *Reconciler) reconcileBudget(ctx context.Context, agg core.DashboardAggregate, id string, patch Patch) (core.DashboardAggregate, error) {
	if agg.Budget.ID != id {
		return agg, fmt.Errorf("%w: budget %s", ErrEntityNotFound, id)
	}
	if noChange(patch, budgetField(agg.Budget)) {
		return agg, nil
	}

	// The budget endpoint requires the numeric pair on every call, even
	// for a pure status change.
	out := make(Patch, len(patch)+2)
	for f, v := range patch {
		out[f] = v
	}
	if _, ok := out["allocatedBudget"]; !ok {
		out["allocatedBudget"] = agg.Budget.AllocatedBudget.Cents
	}
	if _, ok := out["currentSpend"]; !ok {
		out["currentSpend"] = agg.Budget.CurrentSpend.Cents
	}

	updated, err := r.gw.UpdateBudget(ctx, id, out)
	if err != nil {
		return agg, classify(err)
	}
	if ctx.Err() != nil {
		return agg, ErrStaleAggregate
	}

	next := agg
	next.Budget = updated
	return next, nil
}

func (r *Reconciler) acquire(kind Kind, id string) bool {
	key := string(kind) + "/" + id
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[key]; busy {
		return false
	}
	r.inflight[key] = struct{}{}
	return true
}

func (r *Reconciler) release(kind Kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, string(kind)+"/"+id)
}

// classify maps gateway failures onto the package taxonomy. Context
// cancellation means the aggregate owner went away: the response is
// discarded rather than reported.
func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return ErrStaleAggregate
	case errors.Is(err, ErrRemoteRejected), errors.Is(err, ErrGatewayUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
}

// noChange reports whether applying patch would leave the entity as it
// is. Unknown fields count as a change so the server gets to validate
// them.
func noChange(patch Patch, current func(string) (any, bool)) bool {
	if len(patch) == 0 {
		return true
	}
	for f, v := range patch {
		cur, known := current(f)
		if !known || !valueEqual(cur, v) {
			return false
		}
	}
	return true
}

func invoiceField(v core.Invoice) func(string) (any, bool) {
	return func(f string) (any, bool) {
		switch f {
		case "invoiceNumber":
			return v.InvoiceNumber, true
		case "amount":
			return v.Amount.Cents, true
		case "paymentStatus":
			return string(v.PaymentStatus), true
		case "category":
			return v.Category, true
		}
		return nil, false
	}
}

func paymentField(v core.Payment) func(string) (any, bool) {
	return func(f string) (any, bool) {
		switch f {
		case "status":
			return string(v.Status), true
		case "paymentMethod":
			return v.PaymentMethod, true
		case "amount":
			return v.Amount.Cents, true
		}
		return nil, false
	}
}

func refundField(v core.Refund) func(string) (any, bool) {
	return func(f string) (any, bool) {
		switch f {
		case "refundAmount":
			return v.RefundAmount.Cents, true
		case "reason":
			return v.Reason, true
		case "status":
			return string(v.Status), true
		}
		return nil, false
	}
}

func budgetField(v core.Budget) func(string) (any, bool) {
	return func(f string) (any, bool) {
		switch f {
		case "allocatedBudget":
			return v.AllocatedBudget.Cents, true
		case "currentSpend":
			return v.CurrentSpend.Cents, true
		case "status":
			return string(v.Status), true
		}
		return nil, false
	}
}

// valueEqual compares a current field value against a patch value,
// tolerating the int width differences JSON decoding introduces.
func valueEqual(a, b any) bool {
	if ai, ok := asInt64(a); ok {
		bi, ok2 := asInt64(b)
		return ok2 && ai == bi
	}
	if _, isNum := asInt64(b); isNum {
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

func indexByID[T any](items []T, id string, idOf func(T) string) int {
	for i, v := range items {
		if idOf(v) == id {
			return i
		}
	}
	return -1
}

// replaceAt copies the sequence with position idx replaced, leaving the
// input slice untouched.
func replaceAt[T any](items []T, idx int, v T) []T {
	out := make([]T, len(items))
	copy(out, items)
	out[idx] = v
	return out
}
