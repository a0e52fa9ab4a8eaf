package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trainingclub/internal/core"
)

func (s *Server) handlePaymentsReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.dateRange(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	report, err := s.svc.Summary.PaymentsReport(r.Context(), start, end)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(toPaymentsReport(report)).Write(w)
}

// handleCreatePayment takes {description, amount, type, date, category?,
// notes?}. The stored sign follows type, not the sign of amount.
func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	cents, err := core.ParseSignedCents(body.Get("amount"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	typ, err := core.ParsePaymentType(body.Get("type"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	date, err := body.Date("date", s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	e, err := s.svc.Ledger.CreateEntry(r.Context(), core.LedgerEntry{
		Description: body.Get("description"),
		Amount:      core.Cents(cents),
		Type:        typ,
		Date:        date,
		Category:    body.Get("category"),
		Notes:       body.Get("notes"),
	})
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("Payment recorded").Data(toLedgerEntry(e)).Write(w)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		BadRequestError("invalid payment id " + strconv.Quote(raw)).Write(w)
		return
	}
	if err := s.svc.Ledger.DeleteEntry(r.Context(), id); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Message("Payment deleted").Write(w)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	year, err := s.yearParam(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	b, err := s.svc.Summary.MonthlyBalance(r.Context(), year)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(toBalance(b)).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.dateRange(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	sum, err := s.svc.Summary.RangeSummary(r.Context(), start, end)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(toRangeSummary(sum)).Write(w)
}
