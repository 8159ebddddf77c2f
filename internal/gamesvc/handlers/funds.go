package handlers

import (
	"net/http"

	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/models"
	"github.com/avvvet/numbet-services/internal/gamesvc/service"
	"github.com/go-chi/chi"
)

func (h *Handler) SubmitDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.Funds.SubmitDeposit(r.Context(), service.DepositInput{
		UserID:        req.UserID,
		Name:          req.Name,
		DepositAmount: req.DepositAmount,
		TransactionID: req.TransactionID,
		ProofImgURL:   req.ProofImgURL,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "Deposit request submitted successfully", map[string]interface{}{"deposit": d})
}

func (h *Handler) PendingDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.Funds.ListPendingDeposits(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Pending deposits", deposits)
}

func (h *Handler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	d, err := h.Funds.ApproveDeposit(r.Context(), chi.URLParam(r, "depositId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Deposit Approved", map[string]interface{}{"deposit": d})
}

func (h *Handler) RejectDeposit(w http.ResponseWriter, r *http.Request) {
	d, err := h.Funds.RejectDeposit(r.Context(), chi.URLParam(r, "depositId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Deposit declined", map[string]interface{}{"deposit": d})
}

// withdrawal returns the handler for one payment mode's submission route.
func (h *Handler) withdrawal(mode, invalidMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req withdrawalRequest
		if err := decode(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
		if req.PaymentMode == "" {
			req.PaymentMode = mode
		}
		if req.PaymentMode != mode {
			h.fail(w, r, apperr.Invalid(invalidMsg))
			return
		}

		wr, err := h.Funds.SubmitWithdrawal(r.Context(), service.WithdrawalInput{
			UserID:           req.UserID,
			Username:         req.Username,
			WithdrawalAmount: req.WithdrawalAmount,
			PaymentMode:      req.PaymentMode,
			UPIID:            req.UPIID,
			BankDetails:      req.BankDetails,
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.ok(w, http.StatusCreated, "Withdrawal request submitted successfully", map[string]interface{}{"withdrawal": wr})
	}
}

func (h *Handler) BankTransferWithdrawal() http.HandlerFunc {
	return h.withdrawal(models.ModeBankTransfer, "Invalid payment mode for bank transfer")
}

func (h *Handler) UPIWithdrawal() http.HandlerFunc {
	return h.withdrawal(models.ModeUPI, "Invalid payment mode for UPI transaction")
}

func (h *Handler) PendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	ws, err := h.Funds.ListPendingWithdrawals(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Pending withdrawal requests", ws)
}

func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	wr, err := h.Funds.ApproveWithdrawal(r.Context(), chi.URLParam(r, "withdrawalReqId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Withdrawal request approved", map[string]interface{}{"withdrawal": wr})
}

func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	wr, err := h.Funds.RejectWithdrawal(r.Context(), chi.URLParam(r, "withdrawalReqId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Withdrawal request rejected and amount refunded", map[string]interface{}{"withdrawal": wr})
}
