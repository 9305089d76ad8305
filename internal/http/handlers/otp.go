package handlers

import (
	"errors"
	"net/http"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/logx"
)

// OTPHandler handles delivery-code issuance and verification.
type OTPHandler struct {
	usecase otpUsecase
	logger  logx.Logger
}

// NewOTPHandler creates a new OTPHandler.
func NewOTPHandler(logger logx.Logger, uc otpUsecase) *OTPHandler {
	return &OTPHandler{usecase: uc, logger: logger}
}

// Generate handles POST /shop-orders/{id}/otp. The response never carries
// the code; it goes to the customer through the notifier.
func (h *OTPHandler) Generate(w http.ResponseWriter, r *http.Request) {
	shopOrderID, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	courier, err := actorID(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusUnauthorized, "missing actor")
		return
	}

	res, err := h.usecase.Generate(r.Context(), shopOrderID, courier)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, otpGenerateResponse{
			ShopOrderID: res.ShopOrderID,
			ExpiresAt:   res.ExpiresAt,
		})
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "shop order not found")
	case errors.Is(err, apperr.ErrNotAuthorized):
		writeError(h.logger, w, r, http.StatusForbidden, "not the assigned courier")
	case errors.Is(err, apperr.ErrInvalidStatus):
		writeError(h.logger, w, r, http.StatusConflict, "shop order is not out for delivery")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Verify handles POST /shop-orders/{id}/otp/verify.
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	shopOrderID, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	courier, err := actorID(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusUnauthorized, "missing actor")
		return
	}

	var req otpVerifyRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	res, err := h.usecase.Verify(r.Context(), shopOrderID, courier, req.Code)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, otpVerifyResponse{
			ShopOrderID: res.ShopOrderID,
			Status:      string(domain.StatusDelivered),
			DeliveredAt: res.DeliveredAt,
		})
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "shop order not found")
	case errors.Is(err, apperr.ErrNotAuthorized):
		writeError(h.logger, w, r, http.StatusForbidden, "not the assigned courier")
	case errors.Is(err, apperr.ErrInvalidOrExpiredOTP):
		writeError(h.logger, w, r, http.StatusUnprocessableEntity, "invalid or expired code")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}
