package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"troupe/internal/core"
	"troupe/internal/services"
	"troupe/internal/storage"
)

const maxBodySize = 1 << 20 // 1MB

// FinanceAPI is the slice of the finance service the handlers use.
type FinanceAPI interface {
	CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
	GetInvoice(ctx context.Context, id string) (core.Invoice, error)
	ListInvoices(ctx context.Context) ([]core.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, patch map[string]any) (core.Invoice, error)

	CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
	GetPayment(ctx context.Context, id string) (core.Payment, error)
	ListPayments(ctx context.Context) ([]core.Payment, error)
	UpdatePayment(ctx context.Context, id string, patch map[string]any) (core.Payment, error)

	CreateRefund(ctx context.Context, ref core.Refund) (core.Refund, error)
	GetRefund(ctx context.Context, id string) (core.Refund, error)
	ListRefunds(ctx context.Context) ([]core.Refund, error)
	UpdateRefund(ctx context.Context, id string, patch map[string]any) (core.Refund, error)

	GetBudget(ctx context.Context) (core.Budget, error)
	SetBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	UpdateBudget(ctx context.Context, id string, patch map[string]any) (core.Budget, error)

	Dashboard(ctx context.Context) (core.DashboardAggregate, error)
}

// RosterAPI is the slice of the roster service the handlers use.
type RosterAPI interface {
	CreateEvent(ctx context.Context, e core.Event) (core.Event, error)
	GetEvent(ctx context.Context, id string) (core.Event, error)
	ListEvents(ctx context.Context) ([]core.Event, error)

	CreateMember(ctx context.Context, m core.Member) (core.Member, error)
	GetMember(ctx context.Context, id string) (core.Member, error)
	ListMembers(ctx context.Context) ([]core.Member, error)

	AssignMember(ctx context.Context, eventID, memberID string) error
	EventRoster(ctx context.Context, eventID string) ([]core.Member, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// respondError maps service errors onto the wire taxonomy.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidPatch),
		errors.Is(err, services.ErrTeamMismatch),
		errors.Is(err, storage.ErrUnknownField):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrAlreadyAssigned):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
