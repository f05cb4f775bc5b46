package http

import (
	"net/http"

	"troupe/internal/core"
)

// Finance PATCH endpoints. A successful response body is the full
// updated entity, so clients can replace their copy wholesale.

func (s *Server) handlePatchInvoice(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.finance.UpdateInvoice(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Invalidate(dashboardCacheKey)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handlePatchPayment(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.finance.UpdatePayment(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Invalidate(dashboardCacheKey)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handlePatchRefund(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.finance.UpdateRefund(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Invalidate(dashboardCacheKey)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handlePatchBudget(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.finance.UpdateBudget(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Invalidate(dashboardCacheKey)
	writeJSON(w, http.StatusOK, updated)
}

// CRUD endpoints.

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var inv core.Invoice
	if err := decodeJSON(r, &inv); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.finance.CreateInvoice(r.Context(), inv)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Invalidate(dashboardCacheKey)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.finance.GetInvoice(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.finance.ListInvoices(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if invoices == nil {
		invoices = []core.Invoice{}
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var p core.Payment
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.finance.CreatePayment(r.Context(), p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Invalidate(dashboardCacheKey)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.finance.GetPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.finance.ListPayments(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if payments == nil {
		payments = []core.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleCreateRefund(w http.ResponseWriter, r *http.Request) {
	var ref core.Refund
	if err := decodeJSON(r, &ref); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.finance.CreateRefund(r.Context(), ref)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Invalidate(dashboardCacheKey)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetRefund(w http.ResponseWriter, r *http.Request) {
	ref, err := s.finance.GetRefund(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) handleListRefunds(w http.ResponseWriter, r *http.Request) {
	refunds, err := s.finance.ListRefunds(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if refunds == nil {
		refunds = []core.Refund{}
	}
	writeJSON(w, http.StatusOK, refunds)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.finance.GetBudget(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var b core.Budget
	if err := decodeJSON(r, &b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	saved, err := s.finance.SetBudget(r.Context(), b)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Invalidate(dashboardCacheKey)
	writeJSON(w, http.StatusOK, saved)
}
