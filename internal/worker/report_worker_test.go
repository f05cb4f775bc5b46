package worker

import (
	"context"
	"errors"
	"testing"

	"troupe/internal/amqp"
	"troupe/internal/core"
	"troupe/internal/sheets/memory"
)

type fakeSource struct {
	payments map[string]core.Payment
	pending  []string
	reported []string
	errored  []string
}

func newFakeSource(payments ...core.Payment) *fakeSource {
	f := &fakeSource{payments: map[string]core.Payment{}}
	for _, p := range payments {
		f.payments[p.ID] = p
		if p.Status == core.PaymentApproved {
			f.pending = append(f.pending, p.ID)
		}
	}
	return f
}

func (f *fakeSource) GetPayment(_ context.Context, id string) (core.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return core.Payment{}, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeSource) ListPendingReportPayments(_ context.Context, limit int) ([]core.Payment, error) {
	var out []core.Payment
	for _, id := range f.pending {
		if len(out) == limit {
			break
		}
		out = append(out, f.payments[id])
	}
	return out, nil
}

func (f *fakeSource) MarkReported(_ context.Context, id string) error {
	f.reported = append(f.reported, id)
	for i, p := range f.pending {
		if p == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeSource) MarkReportError(_ context.Context, id string) error {
	f.errored = append(f.errored, id)
	return nil
}

type failingReport struct{}

func (failingReport) Append(context.Context, core.Payment) (string, error) {
	return "", errors.New("sheet unavailable")
}

func approvedPayment(id string) core.Payment {
	return core.Payment{ID: id, Status: core.PaymentApproved, PaymentMethod: "card", Amount: core.Money{Cents: 1500}}
}

func TestHandleSyncMessage_ApprovedPayment(t *testing.T) {
	source := newFakeSource(approvedPayment("p1"))
	report := memory.New()
	w := NewReportWorker(source, report, 10)

	err := w.HandleSyncMessage(context.Background(), amqp.NewFinanceSyncMessage("payment", "p1"))
	if err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}

	if rows := report.Rows(); len(rows) != 1 || rows[0].ID != "p1" {
		t.Errorf("report rows = %v, want [p1]", rows)
	}
	if len(source.reported) != 1 || source.reported[0] != "p1" {
		t.Errorf("reported = %v, want [p1]", source.reported)
	}
}

func TestHandleSyncMessage_SkipsOtherKinds(t *testing.T) {
	source := newFakeSource(approvedPayment("p1"))
	report := memory.New()
	w := NewReportWorker(source, report, 10)

	for _, kind := range []string{"invoice", "refund", "budget"} {
		if err := w.HandleSyncMessage(context.Background(), amqp.NewFinanceSyncMessage(kind, "x1")); err != nil {
			t.Errorf("HandleSyncMessage(%s) error = %v, want nil", kind, err)
		}
	}
	if len(report.Rows()) != 0 {
		t.Error("non-payment messages must not produce report rows")
	}
}

func TestHandleSyncMessage_SkipsUnapprovedPayment(t *testing.T) {
	source := newFakeSource(core.Payment{ID: "p1", Status: core.PaymentAuthorized, PaymentMethod: "card", Amount: core.Money{Cents: 100}})
	report := memory.New()
	w := NewReportWorker(source, report, 10)

	if err := w.HandleSyncMessage(context.Background(), amqp.NewFinanceSyncMessage("payment", "p1")); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}
	if len(report.Rows()) != 0 {
		t.Error("unapproved payment must not reach the report")
	}
}

func TestHandleSyncMessage_MissingPayment(t *testing.T) {
	w := NewReportWorker(newFakeSource(), memory.New(), 10)

	err := w.HandleSyncMessage(context.Background(), amqp.NewFinanceSyncMessage("payment", "ghost"))
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("HandleSyncMessage() error = %v, want ErrNotFound", err)
	}
}

func TestProcessPending(t *testing.T) {
	source := newFakeSource(approvedPayment("p1"), approvedPayment("p2"))
	report := memory.New()
	w := NewReportWorker(source, report, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if len(report.Rows()) != 2 {
		t.Errorf("report rows = %d, want 2", len(report.Rows()))
	}
	if len(source.pending) != 0 {
		t.Errorf("pending = %v, want drained", source.pending)
	}

	// Second run finds nothing to do.
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("second ProcessPending() error = %v", err)
	}
	if len(report.Rows()) != 2 {
		t.Error("payments must not be reported twice")
	}
}

func TestProcessPending_MarksErrors(t *testing.T) {
	source := newFakeSource(approvedPayment("p1"))
	w := NewReportWorker(source, failingReport{}, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v, per-payment failures are logged", err)
	}
	if len(source.errored) != 1 || source.errored[0] != "p1" {
		t.Errorf("errored = %v, want [p1]", source.errored)
	}
	if len(source.reported) != 0 {
		t.Errorf("reported = %v, want none", source.reported)
	}
}

func TestStartupCheck(t *testing.T) {
	source := newFakeSource(approvedPayment("p1"), approvedPayment("p2"), approvedPayment("p3"))
	report := memory.New()
	w := NewReportWorker(source, report, 2)

	// Startup uses a widened batch, all three fit.
	if err := w.StartupCheck(context.Background()); err != nil {
		t.Fatalf("StartupCheck() error = %v", err)
	}
	if len(report.Rows()) != 3 {
		t.Errorf("report rows = %d, want 3", len(report.Rows()))
	}
}
