package handlers

import (
	"errors"
	"net/http"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/logx"
)

// DispatchHandler handles HTTP requests for shop-order transitions and
// courier assignments.
type DispatchHandler struct {
	usecase dispatchUsecase
	logger  logx.Logger
}

// NewDispatchHandler creates a new DispatchHandler.
func NewDispatchHandler(logger logx.Logger, uc dispatchUsecase) *DispatchHandler {
	return &DispatchHandler{usecase: uc, logger: logger}
}

// Transition handles PATCH /shop-orders/{id}/status. The acting shop owner
// comes from the actor header; a 200 with no_couriers=true means the status
// stuck but nobody was around to broadcast to.
func (h *DispatchHandler) Transition(w http.ResponseWriter, r *http.Request) {
	shopOrderID, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	owner, err := actorID(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusUnauthorized, "missing actor")
		return
	}

	var req transitionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	res, err := h.usecase.Transition(r.Context(), shopOrderID, owner, domain.ShopOrderStatus(req.Status))
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, transitionToResponse(res))
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "shop order not found")
	case errors.Is(err, apperr.ErrNotAuthorized):
		writeError(h.logger, w, r, http.StatusForbidden, "not the shop owner")
	case errors.Is(err, apperr.ErrInvalidStatus):
		writeError(h.logger, w, r, http.StatusConflict, "status transition not allowed")
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Accept handles POST /assignments/{id}/accept with the courier as actor.
func (h *DispatchHandler) Accept(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	courier, err := actorID(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusUnauthorized, "missing actor")
		return
	}

	res, err := h.usecase.Accept(r.Context(), assignmentID, courier)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, acceptResponse{
			Assignment: assignmentToResponse(res.Assignment),
			Order:      orderToResponse(res.Order),
		})
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "assignment not found")
	case errors.Is(err, apperr.ErrNotBroadcasted):
		writeError(h.logger, w, r, http.StatusConflict, "assignment not broadcasted to courier")
	case errors.Is(err, apperr.ErrAlreadyTaken):
		writeError(h.logger, w, r, http.StatusConflict, "assignment already taken")
	case errors.Is(err, apperr.ErrCourierBusy):
		writeError(h.logger, w, r, http.StatusConflict, "courier already on a delivery")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Current handles GET /couriers/{id}/assignment.
func (h *DispatchHandler) Current(w http.ResponseWriter, r *http.Request) {
	courierID, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	res, err := h.usecase.CurrentAssignment(r.Context(), courierID)
	switch {
	case err == nil && res == nil:
		writeError(h.logger, w, r, http.StatusNotFound, "no active assignment")
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, courierAssignmentResponse{
			Assignment: assignmentToResponse(res.Assignment),
			Order:      orderToResponse(res.Order),
		})
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}
