package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avvvet/numbet-services/internal/gamesvc/metrics"
	"github.com/go-chi/chi"
)

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.Games.CreateGame(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Game created", map[string]interface{}{"game": game})
}

// GetGameID returns the most recently created game together with the id the
// clock currently points at.
func (h *Handler) GetGameID(w http.ResponseWriter, r *http.Request) {
	game, err := h.Games.LatestGame(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Latest game", map[string]interface{}{
		"game":          game,
		"currentGameId": h.Games.CurrentGameID(),
	})
}

func (h *Handler) WinningNumbers(w http.ResponseWriter, r *http.Request) {
	res, err := h.Games.WinningNumbers(r.Context(), chi.URLParam(r, "gameId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Winning numbers", res)
}

func (h *Handler) GameData(w http.ResponseWriter, r *http.Request) {
	games, err := h.Games.AllGames(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Games", games)
}

func (h *Handler) GameQR(w http.ResponseWriter, r *http.Request) {
	details, err := h.Games.PaymentDetails(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Payment details", details)
}

func (h *Handler) GameStatus(w http.ResponseWriter, r *http.Request) {
	game, err := h.Games.EnsureGame(r.Context(), chi.URLParam(r, "gameId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Game status", map[string]interface{}{"game": game})
}

func (h *Handler) UpdateGameDetails(w http.ResponseWriter, r *http.Request) {
	var req gameDetailsRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	game, err := h.Games.UpdatePaymentDetails(r.Context(), req.SelectedAccount, req.IFSCCode, req.AccountNumber)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Game details updated", map[string]interface{}{"game": game})
}

func (h *Handler) UpdateGameQR(w http.ResponseWriter, r *http.Request) {
	var req gameQRRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	game, err := h.Games.UpdatePaymentQR(r.Context(), req.SelectedAccount, req.ImageURL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "QR image updated", map[string]interface{}{"game": game})
}

// DrawNumber only records the number; ProcessWinners settles the slot.
func (h *Handler) DrawNumber(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req drawRequest
	if err := decode(r, &req); err != nil {
		metrics.RecordDraw(err, "record", started)
		h.fail(w, r, err)
		return
	}
	game, err := h.Games.RecordWinningNumber(r.Context(), req.GameID, req.SlotNumber, req.WinningNumber)
	metrics.RecordDraw(err, "record", started)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Winning number updated", map[string]interface{}{"game": game})
}

// ProcessWinners draws the slot if needed and settles its pending bets. Repeating
// the call with the same number finishes an interrupted settlement.
func (h *Handler) ProcessWinners(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req processWinnersRequest
	if err := decode(r, &req); err != nil {
		metrics.RecordDraw(err, "", started)
		h.fail(w, r, err)
		return
	}

	res, err := h.Settlement.DrawAndSettle(r.Context(), req.GameID, req.SlotNumber, req.WinningNumber, req.Multiplier)
	mode := "draw"
	if res != nil && res.Resumed {
		mode = "resume"
	}
	metrics.RecordDraw(err, mode, started)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Game updated and winners processed successfully", res)
}

func slotLabel(slot int) string {
	if slot < 1 || slot > 5 {
		return "invalid"
	}
	return strconv.Itoa(slot)
}
