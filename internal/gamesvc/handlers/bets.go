package handlers

import (
	"net/http"
	"time"

	"github.com/avvvet/numbet-services/internal/gamesvc/metrics"
	"github.com/avvvet/numbet-services/internal/gamesvc/service"
)

func (h *Handler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req betRequest
	if err := decode(r, &req); err != nil {
		metrics.RecordBet(err, "invalid", started)
		h.fail(w, r, err)
		return
	}

	receipt, err := h.Bets.PlaceBet(r.Context(), service.PlaceBetInput{
		UserID:         req.UserID,
		Username:       req.Username,
		SlotNumber:     req.SlotNumber,
		SelectedNumber: req.SelectedNumber,
		BetAmount:      req.BetAmount,
	})
	metrics.RecordBet(err, slotLabel(req.SlotNumber), started)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Bet placed", receipt)
}

// ListBets returns all bets, or one user's bets with ?userId=.
func (h *Handler) ListBets(w http.ResponseWriter, r *http.Request) {
	bets, err := h.Bets.ListBets(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Bets", bets)
}
