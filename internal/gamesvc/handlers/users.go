package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Users.Register(r.Context(), req.Name, req.Phone, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "OTP sent successfully. Please verify to complete registration", nil)
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.Users.VerifyOTP(r.Context(), req.Phone, req.OTP)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "User registered successfully", map[string]interface{}{"user": user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.Users.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Login successful", map[string]interface{}{"user": user})
}

func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Users.SendResetOTP(r.Context(), req.Phone); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "OTP sent successfully", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Users.ResetPassword(r.Context(), req.Phone, req.OTP, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Password reset successful", nil)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.GetUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "User", map[string]interface{}{"user": user})
}

func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Users.UserStats(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "User stats", map[string]interface{}{"user": stats})
}

func (h *Handler) TransactionDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.Users.TransactionDetails(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Transaction details", details)
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	session, err := h.Admins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "Login successful", session)
}
