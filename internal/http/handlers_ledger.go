package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/transfer"
)

type snapshotResponse struct {
	Profile      core.Profile       `json:"profile"`
	Cards        []core.Card        `json:"cards"`
	Transactions []core.Transaction `json:"transactions"`
	Balance      core.Money         `json:"balance"`
	Drifted      []string           `json:"drifted,omitempty"`
	Anonymous    bool               `json:"anonymous"`
}

func newSnapshotResponse(m *ledger.Manager) snapshotResponse {
	snap := m.Snapshot()
	if snap.Cards == nil {
		snap.Cards = []core.Card{}
	}
	if snap.Transactions == nil {
		snap.Transactions = []core.Transaction{}
	}
	return snapshotResponse{
		Profile:      snap.Profile,
		Cards:        snap.Cards,
		Transactions: snap.Transactions,
		Balance:      snap.AggregateBalance(),
		Drifted:      m.Drifted(),
		Anonymous:    m.Ephemeral(),
	}
}

// transactionRequest is a draft plus its card choice. A missing card_id
// defers to the default-card policy; "" attaches no card.
type transactionRequest struct {
	core.TransactionDraft
	CardID *string `json:"card_id"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(m))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	draft := req.TransactionDraft
	draft.Description = sanitizeInput(draft.Description)
	draft.Category = sanitizeInput(draft.Category)
	if draft.OccurredAt.IsZero() {
		now := s.now().UTC()
		draft.OccurredAt = core.NewDate(now.Year(), int(now.Month()), now.Day())
	}

	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := m.AddTransaction(r.Context(), draft, req.CardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	var patch core.TransactionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	patch.Description = sanitizeOptional(patch.Description)
	patch.Category = sanitizeOptional(patch.Category)

	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := m.EditTransaction(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := m.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var draft core.CardDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, r, err)
		return
	}
	draft.Name = sanitizeInput(draft.Name)

	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	card, err := m.AddCard(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var patch core.CardPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	patch.Name = sanitizeOptional(patch.Name)

	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	card, err := m.UpdateCard(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := m.DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReconcileCard(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	card, err := m.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// handleReconcileDrifted repairs every card flagged after a failed balance
// write and returns the refreshed snapshot.
func (s *Server) handleReconcileDrifted(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := m.ReconcileDrifted(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(m))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch core.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	patch.DisplayName = sanitizeOptional(patch.DisplayName)

	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := m.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := m.ResetAllData(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(m))
}

// handleImport applies the settings carried by an exported document. The
// document is validated as a whole before anything is written.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	patch, err := transfer.ParseImport(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	patch.DisplayName = sanitizeOptional(patch.DisplayName)

	m, err := s.manager(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := m.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
