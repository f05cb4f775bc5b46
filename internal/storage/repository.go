// Package storage persists troupe's entities in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"troupe/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrAlreadyAssigned = errors.New("member already assigned to event")
)

// Column allowlists translate wire field names to columns; anything
// outside the map is rejected before it reaches SQL.
var (
	invoiceColumns = map[string]string{
		"invoiceNumber": "invoice_number",
		"amount":        "amount_cents",
		"paymentStatus": "payment_status",
		"category":      "category",
	}
	paymentColumns = map[string]string{
		"status":        "status",
		"paymentMethod": "payment_method",
		"amount":        "amount_cents",
	}
	refundColumns = map[string]string{
		"refundAmount": "refund_amount_cents",
		"reason":       "reason",
		"status":       "status",
	}
	budgetColumns = map[string]string{
		"allocatedBudget": "allocated_cents",
		"currentSpend":    "current_spend_cents",
		"status":          "status",
	}
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- invoices ----

func (r *Repository) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if inv.ID == "" {
		inv.ID = core.NewID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (id, invoice_number, amount_cents, payment_status, category) VALUES (?, ?, ?, ?, ?)`,
		inv.ID, inv.InvoiceNumber, inv.Amount.Cents, string(inv.PaymentStatus), inv.Category)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	slog.InfoContext(ctx, "Invoice saved", "id", inv.ID, "number", inv.InvoiceNumber, "amount_cents", inv.Amount.Cents)
	return inv, nil
}

func (r *Repository) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	var inv core.Invoice
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, invoice_number, amount_cents, payment_status, category FROM invoices WHERE id = ?`, id).
		Scan(&inv.ID, &inv.InvoiceNumber, &inv.Amount.Cents, &status, &inv.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	inv.PaymentStatus = core.InvoiceStatus(status)
	return inv, nil
}

func (r *Repository) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, invoice_number, amount_cents, payment_status, category FROM invoices ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []core.Invoice
	for rows.Next() {
		var inv core.Invoice
		var status string
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.Amount.Cents, &status, &inv.Category); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		inv.PaymentStatus = core.InvoiceStatus(status)
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateInvoiceFields(ctx context.Context, id string, fields map[string]any) (core.Invoice, error) {
	if err := r.updateFields(ctx, "invoices", id, invoiceColumns, fields, ""); err != nil {
		return core.Invoice{}, err
	}
	return r.GetInvoice(ctx, id)
}

// ---- payments ----

func (r *Repository) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if p.ID == "" {
		p.ID = core.NewID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, status, payment_method, amount_cents) VALUES (?, ?, ?, ?)`,
		p.ID, string(p.Status), p.PaymentMethod, p.Amount.Cents)
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	slog.InfoContext(ctx, "Payment saved", "id", p.ID, "status", p.Status, "amount_cents", p.Amount.Cents)
	return p, nil
}

func (r *Repository) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	var p core.Payment
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, status, payment_method, amount_cents FROM payments WHERE id = ?`, id).
		Scan(&p.ID, &status, &p.PaymentMethod, &p.Amount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, fmt.Errorf("payment %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	p.Status = core.PaymentStatus(status)
	return p, nil
}

func (r *Repository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	return r.queryPayments(ctx, `SELECT id, status, payment_method, amount_cents FROM payments ORDER BY rowid`)
}

// UpdatePaymentFields applies a partial update and re-queues the
// payment for report sync.
func (r *Repository) UpdatePaymentFields(ctx context.Context, id string, fields map[string]any) (core.Payment, error) {
	if err := r.updateFields(ctx, "payments", id, paymentColumns, fields, "sync_status = 'pending', synced_at = NULL"); err != nil {
		return core.Payment{}, err
	}
	return r.GetPayment(ctx, id)
}

// ListPendingReportPayments returns approved payments awaiting report
// sync. Rows marked 'error' are included so the periodic scan retries
// earlier failures instead of stranding them.
func (r *Repository) ListPendingReportPayments(ctx context.Context, limit int) ([]core.Payment, error) {
	return r.queryPayments(ctx,
		`SELECT id, status, payment_method, amount_cents FROM payments
		 WHERE status = 'approved' AND sync_status IN ('pending', 'error') ORDER BY rowid LIMIT ?`, int64(limit))
}

func (r *Repository) MarkReported(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark payment reported: %w", err)
	}
	slog.InfoContext(ctx, "Payment marked as reported", "id", id)
	return nil
}

func (r *Repository) MarkReportError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark payment report error: %w", err)
	}
	slog.WarnContext(ctx, "Payment marked with report error", "id", id)
	return nil
}

func (r *Repository) queryPayments(ctx context.Context, query string, args ...any) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var p core.Payment
		var status string
		if err := rows.Scan(&p.ID, &status, &p.PaymentMethod, &p.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Status = core.PaymentStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---- refunds ----

func (r *Repository) CreateRefund(ctx context.Context, ref core.Refund) (core.Refund, error) {
	if ref.ID == "" {
		ref.ID = core.NewID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refunds (id, refund_amount_cents, reason, status) VALUES (?, ?, ?, ?)`,
		ref.ID, ref.RefundAmount.Cents, ref.Reason, string(ref.Status))
	if err != nil {
		return core.Refund{}, fmt.Errorf("create refund: %w", err)
	}
	return ref, nil
}

func (r *Repository) GetRefund(ctx context.Context, id string) (core.Refund, error) {
	var ref core.Refund
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, refund_amount_cents, reason, status FROM refunds WHERE id = ?`, id).
		Scan(&ref.ID, &ref.RefundAmount.Cents, &ref.Reason, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Refund{}, fmt.Errorf("refund %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Refund{}, fmt.Errorf("get refund: %w", err)
	}
	ref.Status = core.RefundStatus(status)
	return ref, nil
}

func (r *Repository) ListRefunds(ctx context.Context) ([]core.Refund, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, refund_amount_cents, reason, status FROM refunds ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	defer rows.Close()

	var out []core.Refund
	for rows.Next() {
		var ref core.Refund
		var status string
		if err := rows.Scan(&ref.ID, &ref.RefundAmount.Cents, &ref.Reason, &status); err != nil {
			return nil, fmt.Errorf("scan refund: %w", err)
		}
		ref.Status = core.RefundStatus(status)
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateRefundFields(ctx context.Context, id string, fields map[string]any) (core.Refund, error) {
	if err := r.updateFields(ctx, "refunds", id, refundColumns, fields, ""); err != nil {
		return core.Refund{}, err
	}
	return r.GetRefund(ctx, id)
}

// ---- budget ----

func (r *Repository) GetBudget(ctx context.Context) (core.Budget, error) {
	var b core.Budget
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, allocated_cents, current_spend_cents, status FROM budgets ORDER BY rowid LIMIT 1`).
		Scan(&b.ID, &b.AllocatedBudget.Cents, &b.CurrentSpend.Cents, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	b.Status = core.BudgetStatus(status)
	return b, nil
}

func (r *Repository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = core.NewID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, allocated_cents, current_spend_cents, status) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   allocated_cents = excluded.allocated_cents,
		   current_spend_cents = excluded.current_spend_cents,
		   status = excluded.status,
		   updated_at = CURRENT_TIMESTAMP`,
		b.ID, b.AllocatedBudget.Cents, b.CurrentSpend.Cents, string(b.Status))
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return b, nil
}

func (r *Repository) UpdateBudgetFields(ctx context.Context, id string, fields map[string]any) (core.Budget, error) {
	if err := r.updateFields(ctx, "budgets", id, budgetColumns, fields, ""); err != nil {
		return core.Budget{}, err
	}
	return r.GetBudget(ctx)
}

// ---- events & members ----

func (r *Repository) CreateEvent(ctx context.Context, e core.Event) (core.Event, error) {
	if e.ID == "" {
		e.ID = core.NewID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, title, venue, team, starts_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Venue, e.Team, e.StartsAt.UTC().Format(time.RFC3339))
	if err != nil {
		return core.Event{}, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

func (r *Repository) GetEvent(ctx context.Context, id string) (core.Event, error) {
	var e core.Event
	var startsAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, venue, team, starts_at FROM events WHERE id = ?`, id).
		Scan(&e.ID, &e.Title, &e.Venue, &e.Team, &startsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Event{}, fmt.Errorf("event %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Event{}, fmt.Errorf("get event: %w", err)
	}
	e.StartsAt, err = time.Parse(time.RFC3339, startsAt)
	if err != nil {
		return core.Event{}, fmt.Errorf("parse event start time %q: %w", startsAt, err)
	}
	return e, nil
}

func (r *Repository) ListEvents(ctx context.Context) ([]core.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, venue, team, starts_at FROM events ORDER BY starts_at`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []core.Event
	for rows.Next() {
		var e core.Event
		var startsAt string
		if err := rows.Scan(&e.ID, &e.Title, &e.Venue, &e.Team, &startsAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.StartsAt, err = time.Parse(time.RFC3339, startsAt)
		if err != nil {
			return nil, fmt.Errorf("parse event start time %q: %w", startsAt, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) CreateMember(ctx context.Context, m core.Member) (core.Member, error) {
	if m.ID == "" {
		m.ID = core.NewID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, full_name, email, team, role) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.FullName, m.Email, m.Team, m.Role)
	if err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

func (r *Repository) GetMember(ctx context.Context, id string) (core.Member, error) {
	var m core.Member
	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, team, role FROM members WHERE id = ?`, id).
		Scan(&m.ID, &m.FullName, &m.Email, &m.Team, &m.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Member{}, fmt.Errorf("member %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Member{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (r *Repository) ListMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, full_name, email, team, role FROM members ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.FullName, &m.Email, &m.Team, &m.Role); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) AssignMember(ctx context.Context, eventID, memberID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_assignments (event_id, member_id) VALUES (?, ?)`, eventID, memberID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("event %s member %s: %w", eventID, memberID, ErrAlreadyAssigned)
		}
		return fmt.Errorf("assign member: %w", err)
	}
	return nil
}

func (r *Repository) ListEventMembers(ctx context.Context, eventID string) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.full_name, m.email, m.team, m.role
		 FROM event_assignments a JOIN members m ON m.id = a.member_id
		 WHERE a.event_id = ? ORDER BY a.assigned_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.FullName, &m.Email, &m.Team, &m.Role); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// updateFields builds a partial UPDATE from the allowlisted fields.
// extra, when non-empty, is appended verbatim to the SET clause.
func (r *Repository) updateFields(ctx context.Context, table, id string, columns map[string]string, fields map[string]any, extra string) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty patch", ErrUnknownField)
	}

	sets := make([]string, 0, len(fields)+2)
	args := make([]any, 0, len(fields)+1)
	for f, v := range fields {
		col, ok := columns[f]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	if extra != "" {
		sets = append(sets, extra)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE "+table+" SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, core.ErrNotFound)
	}
	return nil
}
