package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"financeflow/internal/report"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.now())
	writeJSON(w, http.StatusOK, report.BuildDashboard(m.Snapshot(), p))
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.now())
	writeJSON(w, http.StatusOK, report.BuildBudget(m.Snapshot(), p))
}

func (s *Server) handleTransactionsView(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f := ParseTransactionFilter(r.URL.Query())
	writeJSON(w, http.StatusOK, report.FilterTransactions(m.Snapshot(), f))
}

func (s *Server) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.now())
	writeJSON(w, http.StatusOK, map[string]any{
		"period": p,
		"days":   report.BuildCashFlow(m.Snapshot(), p),
	})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.BuildWallet(m.Snapshot(), m.Drifted()))
}

func (s *Server) handleAnnual(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	year := s.now().Year()
	if y, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("year"))); err == nil && y > 0 {
		year = y
	}
	writeJSON(w, http.StatusOK, report.BuildAnnual(m.Snapshot(), year))
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	category := sanitizeInput(chi.URLParam(r, "category"))
	if category == "" {
		BadRequest("category is required").Write(w)
		return
	}
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.now())
	writeJSON(w, http.StatusOK, report.BuildCategoryDetail(m.Snapshot(), category, p))
}
