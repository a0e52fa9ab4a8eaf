package http

import (
	"net/http"
	"strconv"
	"strings"

	"trainingclub/internal/core"
)

func (s *Server) handleFeeGrid(w http.ResponseWriter, r *http.Request) {
	year, err := s.yearParam(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	grid, err := s.svc.Fees.YearGrid(r.Context(), year)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(toFeeGrid(grid)).Write(w)
}

// handleSetFee takes {member_id, year, month, is_paid}.
func (s *Server) handleSetFee(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	year, err := body.Int("year")
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	month, err := body.Int("month")
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	paid, err := body.Bool("is_paid")
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	fs, err := s.svc.Fees.SetPaid(r.Context(), body.Get("member_id"), year, month, paid)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Message("Fee status saved").Data(toFeeStatus(fs)).Write(w)
}

func (s *Server) handleListPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.svc.Prices.ListPrices(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(toPrices(prices)).Write(w)
}

// handleAddPrice takes {price, effective_from, description?}; price is a
// decimal amount of euros.
func (s *Server) handleAddPrice(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	cents, err := core.ParseDecimalToCents(body.Get("price"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	from, err := body.Date("effective_from", s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	p, err := s.svc.Prices.AddPrice(r.Context(), core.Cents(cents), from, body.Get("description"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("Price added").Data(toPrice(p)).Write(w)
}

func (s *Server) handleEffectivePrice(w http.ResponseWriter, r *http.Request) {
	date, err := ParseDateQuery(r.URL.Query(), "date", s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if date.IsZero() {
		date = core.StartOfDay(s.now())
	}
	p, err := s.svc.Prices.PriceEffectiveOn(r.Context(), date)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(toResolvedPrice(date, p)).Write(w)
}

// yearParam reads ?year, defaulting to the current year.
func (s *Server) yearParam(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("year"))
	if v == "" {
		return s.now().Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.Invalidf("invalid year %q", v)
	}
	return y, nil
}
