// Package worker moves approved payments from SQLite into the expense
// report backend.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"troupe/internal/amqp"
	"troupe/internal/core"
	"troupe/internal/sheets"
)

// PaymentSource is the slice of the repository the worker needs.
type PaymentSource interface {
	GetPayment(ctx context.Context, id string) (core.Payment, error)
	ListPendingReportPayments(ctx context.Context, limit int) ([]core.Payment, error)
	MarkReported(ctx context.Context, id string) error
	MarkReportError(ctx context.Context, id string) error
}

// ReportWorker writes approved payments to the report and keeps the
// sync status in SQLite current.
type ReportWorker struct {
	source    PaymentSource
	report    sheets.ReportWriter
	batchSize int
}

func NewReportWorker(source PaymentSource, report sheets.ReportWriter, batchSize int) *ReportWorker {
	return &ReportWorker{
		source:    source,
		report:    report,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single finance sync message from AMQP.
// Only payment messages reach the report, other kinds are acknowledged
// and dropped.
func (w *ReportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.FinanceSyncMessage) error {
	if msg.Kind != "payment" {
		slog.DebugContext(ctx, "Ignoring non-payment sync message", "kind", msg.Kind, "id", msg.ID)
		return nil
	}

	payment, err := w.source.GetPayment(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get payment from storage: %w", err)
	}

	if payment.Status != core.PaymentApproved {
		slog.DebugContext(ctx, "Payment not approved, skipping report",
			"id", payment.ID, "status", payment.Status)
		return nil
	}

	if err := w.writeToReport(ctx, payment); err != nil {
		return fmt.Errorf("write payment to report: %w", err)
	}

	return nil
}

// ProcessPending writes any approved payments that have not reached
// the report yet. This is a backup mechanism in case AMQP messages are
// lost.
func (w *ReportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.source.ListPendingReportPayments(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending payments: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending payments", "count", len(pending))

	for _, p := range pending {
		if err := w.writeToReport(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to report payment", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck drains the pending backlog at worker startup. Useful to
// recover from missed AMQP messages or worker downtime.
func (w *ReportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.source.ListPendingReportPayments(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending payments for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending payments found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending payments on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		if err := w.writeToReport(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to report payment during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup report check completed",
		"total", len(pending),
		"reported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ReportWorker) writeToReport(ctx context.Context, p core.Payment) error {
	ref, err := w.report.Append(ctx, p)
	if err != nil {
		if markErr := w.source.MarkReportError(ctx, p.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark report error", "id", p.ID, "error", markErr)
		}
		return err
	}

	if err := w.source.MarkReported(ctx, p.ID); err != nil {
		return fmt.Errorf("mark payment reported: %w", err)
	}

	slog.InfoContext(ctx, "Payment written to report", "id", p.ID, "row", ref)
	return nil
}
